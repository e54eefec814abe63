package ack

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClaim(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()

	c := NewConn(server)
	assert.True(t, c.Claim())
	// a handle serves exactly one worker
	assert.False(t, c.Claim())
	_ = c.Close()
}

func TestWriteAfterCloseFails(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()

	c := NewConn(server)
	_ = c.Close()
	assert.Error(t, c.Write([]byte("late reply")))
}

func TestWriteSkipsEmptyReply(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()

	c := NewConn(server)
	assert.Nil(t, c.Write(nil))
	_ = c.Close()
}

func TestCreatedAt(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()

	before := time.Now()
	c := NewConn(server)
	assert.False(t, c.CreatedAt().Before(before))
	assert.False(t, c.CreatedAt().After(time.Now()))
	_ = c.Close()
}
