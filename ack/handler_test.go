package ack

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ackio/ackd/tcp"
)

func startServe(t *testing.T, ch chan struct{}) string {
	var err error
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Error(err)
		return ""
	}
	addr := listener.Addr().String()
	go tcp.ListenAndServe(listener, MakeHandler(), ch)
	return addr
}

func TestListenAndServe(t *testing.T) {
	var err error
	closeChan := make(chan struct{})
	addr := startServe(t, closeChan)

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Error(err)
		return
	}
	_, err = conn.Write([]byte("hello server"))
	if err != nil {
		t.Error(err)
		return
	}
	data, err := io.ReadAll(conn)
	if err != nil {
		t.Error(err)
		return
	}
	assert.Equal(t, Ack, string(data))
	_ = conn.Close()

	closeChan <- struct{}{}
	time.Sleep(time.Second)
}

func TestConcurrentClients(t *testing.T) {
	closeChan := make(chan struct{})
	addr := startServe(t, closeChan)

	for _, n := range []int{1, 5, 50} {
		var wg sync.WaitGroup
		errs := make(chan error, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				conn, err := net.Dial("tcp", addr)
				if err != nil {
					errs <- err
					return
				}
				defer conn.Close()
				_ = conn.SetDeadline(time.Now().Add(3 * time.Second))
				if _, err = conn.Write([]byte(fmt.Sprintf("client %d says hi", i))); err != nil {
					errs <- err
					return
				}
				data, err := io.ReadAll(conn)
				if err != nil {
					errs <- err
					return
				}
				if string(data) != Ack {
					errs <- fmt.Errorf("get wrong response: %q", data)
				}
			}(i)
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			t.Error(err)
		}
	}

	closeChan <- struct{}{}
	time.Sleep(time.Second)
}

func TestEmptyRequest(t *testing.T) {
	var err error
	closeChan := make(chan struct{})
	addr := startServe(t, closeChan)

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Error(err)
		return
	}
	// a peer closing without sending anything made a valid, empty request
	err = conn.(*net.TCPConn).CloseWrite()
	if err != nil {
		t.Error(err)
		return
	}
	data, err := io.ReadAll(conn)
	if err != nil {
		t.Error(err)
		return
	}
	assert.Equal(t, Ack, string(data))
	_ = conn.Close()

	closeChan <- struct{}{}
	time.Sleep(time.Second)
}

func TestMaxSizeRequest(t *testing.T) {
	var err error
	closeChan := make(chan struct{})
	addr := startServe(t, closeChan)

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Error(err)
		return
	}
	_, err = conn.Write(bytes.Repeat([]byte("a"), MaxRequestSize))
	if err != nil {
		t.Error(err)
		return
	}
	data, err := io.ReadAll(conn)
	if err != nil {
		t.Error(err)
		return
	}
	assert.Equal(t, Ack, string(data))
	_ = conn.Close()

	closeChan <- struct{}{}
	time.Sleep(time.Second)
}

func TestClosingHandlerRefuses(t *testing.T) {
	handler := MakeHandler()
	_ = handler.Close()

	server, client := net.Pipe()
	err := handler.Handle(context.Background(), server)
	assert.Equal(t, ErrClosing, err)

	// the refused connection was closed, not leaked
	_ = client.SetReadDeadline(time.Now().Add(time.Second))
	_, err = client.Read(make([]byte, 1))
	assert.Equal(t, io.EOF, err)
}
