package ack

import (
	"net"
	"sync"
	"time"

	"github.com/ackio/ackd/lib/sync/atomic"
	"github.com/ackio/ackd/lib/sync/wait"
)

// Connection wraps one accepted client socket for the lifetime of a single
// exchange. A connection is handed to exactly one worker: the worker claims
// it, performs the exchange and closes it on every exit path.
type Connection struct {
	conn net.Conn

	// createdAt is the accept timestamp, kept for diagnostics
	createdAt time.Time

	// claimed marks the handle as owned by a worker, a handle serves at most one
	claimed atomic.Boolean

	// waiting until reply finished
	waitingReply wait.Wait

	// lock while server sending response
	mu sync.Mutex
}

// NewConn creates Connection instance
func NewConn(conn net.Conn) *Connection {
	return &Connection{
		conn:      conn,
		createdAt: time.Now(),
	}
}

// RemoteAddr returns the remote network address
func (c *Connection) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// CreatedAt returns the accept timestamp
func (c *Connection) CreatedAt() time.Time {
	return c.createdAt
}

// Claim takes exclusive ownership of the connection, returns false if a
// worker already holds it
func (c *Connection) Claim() bool {
	return c.claimed.CompareAndSet(false, true)
}

// Read reads request bytes from the client
func (c *Connection) Read(b []byte) (int, error) {
	return c.conn.Read(b)
}

// Write sends response to client over tcp connection
func (c *Connection) Write(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	c.mu.Lock()
	c.waitingReply.Add(1)
	defer func() {
		c.waitingReply.Done()
		c.mu.Unlock()
	}()

	_, err := c.conn.Write(b)
	return err
}

// Close disconnects the client after any in-flight reply has been flushed
func (c *Connection) Close() error {
	c.waitingReply.WaitWithTimeout(10 * time.Second)
	_ = c.conn.Close()
	return nil
}
