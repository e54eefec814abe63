package ack

/*
 * A tcp.Handler serving the acknowledgment exchange: read one request,
 * reply with the fixed acknowledgment, close. One invocation per
 * connection, each invocation runs in its own goroutine.
 */

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/ackio/ackd/lib/logger"
	"github.com/ackio/ackd/lib/sync/atomic"
)

var (
	// ErrClosing reports a connection refused because the handler is shutting down
	ErrClosing = errors.New("handler is closing")
	// ErrConnClaimed reports a connection handle already owned by another worker
	ErrConnClaimed = errors.New("connection already claimed")
)

// Handler implements tcp.Handler for the acknowledgment protocol
type Handler struct {
	activeConn sync.Map
	closing    atomic.Boolean
}

// MakeHandler creates a Handler
func MakeHandler() *Handler {
	return &Handler{}
}

// Handle serves exactly one exchange and reports how it ended. A failure
// concerns only this connection: the handle is closed and the error is
// left to the caller's bookkeeping.
func (h *Handler) Handle(ctx context.Context, conn net.Conn) error {
	if h.closing.Get() {
		// refuse new connection while shutting down
		_ = conn.Close()
		return ErrClosing
	}

	client := NewConn(conn)
	if !client.Claim() {
		_ = conn.Close()
		return ErrConnClaimed
	}
	h.activeConn.Store(client, struct{}{})
	defer func() {
		// release the handle on every exit path
		_ = client.Close()
		h.activeConn.Delete(client)
	}()

	// a request is whatever the first read returns, at most MaxRequestSize
	// bytes. A peer closing without sending is a valid empty request.
	buf := make([]byte, MaxRequestSize)
	n, err := client.Read(buf)
	if err != nil && err != io.EOF {
		return fmt.Errorf("read from %s: %w", client.RemoteAddr(), err)
	}
	logger.Infof("message from %s: %q", client.RemoteAddr(), buf[:n])

	if err := client.Write([]byte(Ack)); err != nil {
		return fmt.Errorf("write to %s: %w", client.RemoteAddr(), err)
	}
	logger.Debugf("served %s in %s", client.RemoteAddr(), time.Since(client.CreatedAt()))
	return nil
}

// Close stops the handler, force-closing every connection still active
func (h *Handler) Close() error {
	logger.Info("handler shutting down...")
	h.closing.Set(true)
	h.activeConn.Range(func(key interface{}, val interface{}) bool {
		client := key.(*Connection)
		_ = client.Close()
		return true
	})
	return nil
}
