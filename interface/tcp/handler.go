package tcp

import (
	"context"
	"net"
)

// HandleFunc represents application handler function
type HandleFunc func(ctx context.Context, conn net.Conn) error

// Handler represents application server over tcp.
// Handle serves one connection and reports how the exchange ended;
// the returned error stays inside the serving goroutine and is only
// recorded for reaping, it never reaches other connections.
type Handler interface {
	Handle(ctx context.Context, conn net.Conn) error
	Close() error
}
