package gnet

/*
 * An event-loop rendition of the acknowledgment server. One OnTraffic
 * callback stands in for a worker's single exchange: read what arrived,
 * answer, close.
 */

import (
	"sync/atomic"

	"github.com/panjf2000/gnet/v2"

	"github.com/ackio/ackd/ack"
	"github.com/ackio/ackd/lib/logger"
)

// AckServer serves the acknowledgment exchange on gnet's event loops
// instead of a goroutine per connection.
type AckServer struct {
	gnet.BuiltinEventEngine
	eng       gnet.Engine
	connected int32
}

func NewAckServer() *AckServer {
	return &AckServer{}
}

func (s *AckServer) OnBoot(eng gnet.Engine) (action gnet.Action) {
	s.eng = eng
	return
}

func (s *AckServer) OnOpen(c gnet.Conn) (out []byte, action gnet.Action) {
	atomic.AddInt32(&s.connected, 1)
	return
}

func (s *AckServer) OnClose(c gnet.Conn, err error) (action gnet.Action) {
	if err != nil {
		logger.Infof("error occurred on connection=%s, %v\n", c.RemoteAddr().String(), err)
	}
	atomic.AddInt32(&s.connected, -1)
	return
}

func (s *AckServer) OnTraffic(c gnet.Conn) (action gnet.Action) {
	buf, err := c.Next(-1)
	if err != nil {
		logger.Infof("read request failed: %v", err)
		return gnet.Close
	}
	if len(buf) > ack.MaxRequestSize {
		buf = buf[:ack.MaxRequestSize]
	}
	logger.Infof("message from %s: %q", c.RemoteAddr(), buf)
	c.Write([]byte(ack.Ack))
	return gnet.Close
}
