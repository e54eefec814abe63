package client

import (
	"bytes"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ackio/ackd/ack"
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
	go tcp.ListenAndServe(listener, ack.MakeHandler(), ch)
	return addr
}

func TestExchange(t *testing.T) {
	closeChan := make(chan struct{})
	addr := startServe(t, closeChan)

	reply, err := Exchange(addr, []byte("hello server"), 3*time.Second)
	if err != nil {
		t.Error(err)
		return
	}
	assert.Equal(t, ack.Ack, string(reply))

	closeChan <- struct{}{}
	time.Sleep(time.Second)
}

func TestExchangeEmptyRequest(t *testing.T) {
	closeChan := make(chan struct{})
	addr := startServe(t, closeChan)

	reply, err := Exchange(addr, nil, 3*time.Second)
	if err != nil {
		t.Error(err)
		return
	}
	assert.Equal(t, ack.Ack, string(reply))

	closeChan <- struct{}{}
	time.Sleep(time.Second)
}

func TestExchangeRejectsOversizedRequest(t *testing.T) {
	_, err := Exchange("127.0.0.1:0", bytes.Repeat([]byte("a"), ack.MaxRequestSize+1), time.Second)
	assert.NotNil(t, err)
}

func TestExchangeConnectFailure(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Error(err)
		return
	}
	addr := listener.Addr().String()
	_ = listener.Close()

	_, err = Exchange(addr, []byte("ping"), time.Second)
	assert.NotNil(t, err)
}
