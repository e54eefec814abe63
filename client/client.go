// Package client implements the peer side of the acknowledgment exchange:
// connect, send at most one short request, then read the reply until the
// server closes the connection.
package client

import (
	"fmt"
	"io"
	"net"
	"time"

	"github.com/ackio/ackd/ack"
)

// Exchange dials addr, sends the request and returns the server's reply.
// An empty request is valid, the write side is half-closed either way so
// the server never waits for more. timeout bounds the whole exchange,
// 0 means no bound.
func Exchange(addr string, request []byte, timeout time.Duration) ([]byte, error) {
	if len(request) > ack.MaxRequestSize {
		return nil, fmt.Errorf("request of %d bytes exceeds the %d byte cap", len(request), ack.MaxRequestSize)
	}
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", addr, err)
	}
	defer conn.Close()
	if timeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(timeout))
	}

	if len(request) > 0 {
		if _, err := conn.Write(request); err != nil {
			return nil, fmt.Errorf("send request: %w", err)
		}
	}
	if tc, ok := conn.(*net.TCPConn); ok {
		_ = tc.CloseWrite()
	}

	reply, err := io.ReadAll(conn)
	if err != nil {
		return nil, fmt.Errorf("read reply: %w", err)
	}
	return reply, nil
}
