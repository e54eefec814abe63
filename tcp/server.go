package tcp

/**
 * A tcp server which answers every connection with a single acknowledgment
 */

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net"
	"os"
	"os/signal"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/ackio/ackd/interface/tcp"
	"github.com/ackio/ackd/lib/logger"
	"github.com/ackio/ackd/lib/sync/wait"
)

// Config stores tcp server properties
type Config struct {
	Address    string        `yaml:"address"`
	MaxConnect uint32        `yaml:"max-connect"`
	Timeout    time.Duration `yaml:"timeout"`
}

// Server lifecycle states. Transitions are one-way:
// Created -> Listening -> Draining -> Stopped
const (
	StateCreated int32 = iota
	StateListening
	StateDraining
	StateStopped
)

const defaultDrainTimeout = 10 * time.Second

var errNotListening = errors.New("server is not listening")

// Server owns one listening endpoint and dispatches every accepted
// connection to a worker goroutine of its own. The accept loop never waits
// for a worker, worker bookkeeping is the reaper's job.
type Server struct {
	cfg      Config
	handler  tcp.Handler
	reaper   *Reaper
	listener net.Listener
	state    int32
	waitDone wait.Wait

	// dispatchLock separates dispatch from the start of the drain
	dispatchLock sync.RWMutex

	stopOnce  sync.Once
	stoppedCh chan struct{}
}

// MakeServer creates a server over the given handler. The returned server
// holds no resources yet, Start binds it.
func MakeServer(cfg Config, handler tcp.Handler) *Server {
	maxConnect := cfg.MaxConnect
	if maxConnect > math.MaxInt32 {
		// the reaper's bound is int32, larger values would wrap negative
		maxConnect = math.MaxInt32
	}
	return &Server{
		cfg:       cfg,
		handler:   handler,
		reaper:    MakeReaper(int32(maxConnect), nil),
		state:     StateCreated,
		stoppedCh: make(chan struct{}),
	}
}

// Start binds the configured address and starts the reap loop. A bind or
// listen failure is fatal: the server never reaches Listening and holds no
// resources.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.cfg.Address)
	if err != nil {
		return fmt.Errorf("bind %s: %w", s.cfg.Address, err)
	}
	if err := s.adopt(listener); err != nil {
		_ = listener.Close()
		return err
	}
	return nil
}

func (s *Server) adopt(listener net.Listener) error {
	if !atomic.CompareAndSwapInt32(&s.state, StateCreated, StateListening) {
		// a rejected start must not touch the adopted endpoint
		return errors.New("server has already been started")
	}
	s.listener = listener
	go s.reaper.Run()
	logger.Info(fmt.Sprintf("bind: %s, start listening...", listener.Addr()))
	return nil
}

// Serve runs the accept loop until Stop or a fatal endpoint failure.
// Transient accept errors are logged and retried, anything else tears the
// server down. Returns nil after a requested stop, the fatal error
// otherwise, in both cases only once the server reached Stopped.
func (s *Server) Serve() error {
	if atomic.LoadInt32(&s.state) != StateListening {
		return errNotListening
	}
	ctx := context.Background()
	var fatal error
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if atomic.LoadInt32(&s.state) >= StateDraining {
				// the listener was closed on purpose
				break
			}
			if ne, ok := err.(net.Error); ok && (ne.Timeout() || ne.Temporary()) {
				logger.Infof("accept occurs temporary error: %v, retry in 5ms", err)
				time.Sleep(5 * time.Millisecond)
				continue
			}
			fatal = fmt.Errorf("accept: %w", err)
			logger.Errorf("accept failed: %v, shutting down", err)
			break
		}
		s.dispatch(ctx, conn)
	}
	s.shutdown()
	return fatal
}

// dispatch hands the connection to a fresh worker goroutine. A registration
// failure concerns this connection only: drop it and keep accepting.
func (s *Server) dispatch(ctx context.Context, conn net.Conn) {
	s.dispatchLock.RLock()
	defer s.dispatchLock.RUnlock()
	if atomic.LoadInt32(&s.state) >= StateDraining {
		// stopping, drop late arrivals
		_ = conn.Close()
		return
	}
	rec, err := s.reaper.Register(conn.RemoteAddr().String())
	if err != nil {
		logger.Errorf("dispatch %s: %v", conn.RemoteAddr(), err)
		_ = conn.Close()
		return
	}
	logger.Info("accept link")
	s.waitDone.Add(1)
	go func() {
		var outcome error
		defer func() {
			if p := recover(); p != nil {
				logger.Errorf("worker %v panic: %v\n%s", rec.ID, p, string(debug.Stack()))
				outcome = fmt.Errorf("worker panic: %v", p)
				_ = conn.Close()
			}
			s.reaper.Signal(rec, outcome)
			s.waitDone.Done()
		}()
		outcome = s.handler.Handle(ctx, conn)
	}()
}

// Stop moves the server to Draining, waits out the drain window and forces
// whatever is left, ending at Stopped. Blocks until then. Repeated calls
// are no-ops, there is no way back to Listening.
func (s *Server) Stop() {
	s.stopOnce.Do(s.doShutdown)
}

func (s *Server) shutdown() {
	s.stopOnce.Do(s.doShutdown)
	<-s.stoppedCh
}

func (s *Server) doShutdown() {
	if !atomic.CompareAndSwapInt32(&s.state, StateListening, StateDraining) {
		// never listened, nothing to drain
		atomic.StoreInt32(&s.state, StateStopped)
		close(s.stoppedCh)
		return
	}
	logger.Info("shutting down...")
	// dispatches racing the state change finish under the read lock,
	// afterwards none can add a worker
	s.dispatchLock.Lock()
	_ = s.listener.Close() // listener.Accept() will return err immediately
	s.dispatchLock.Unlock()

	grace := s.cfg.Timeout
	if grace <= 0 {
		grace = defaultDrainTimeout
	}
	if s.waitDone.WaitWithTimeout(grace) {
		logger.Warnf("drain window of %s elapsed, forcing close of active connections", grace)
	}
	_ = s.handler.Close() // releases workers stuck on their connection
	s.reaper.Stop()
	atomic.StoreInt32(&s.state, StateStopped)
	close(s.stoppedCh)
	logger.Info("server stopped")
}

// State reports the lifecycle state
func (s *Server) State() int32 {
	return atomic.LoadInt32(&s.state)
}

// Outstanding reports the number of workers dispatched but not yet reclaimed
func (s *Server) Outstanding() int32 {
	return s.reaper.Outstanding()
}

// Addr reports the bound address, nil before Start
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// ListenAndServe serves on an existing listener until closeChan signals or
// the accept loop fails. Kept apart from the signal wiring so tests can
// drive the lifecycle directly.
func ListenAndServe(listener net.Listener, handler tcp.Handler, closeChan <-chan struct{}) {
	s := MakeServer(Config{Address: listener.Addr().String()}, handler)
	if err := s.adopt(listener); err != nil {
		_ = listener.Close()
		logger.Error(err)
		return
	}
	go func() {
		select {
		case <-closeChan:
			logger.Info("get exit signal")
			s.Stop()
		case <-s.stoppedCh:
		}
	}()
	if err := s.Serve(); err != nil {
		logger.Error(err)
	}
}

// ListenAndServeWithSignal binds the configured address and serves until a
// termination signal arrives. It returns the startup error when binding
// fails, or the accept error that killed the endpoint.
func ListenAndServeWithSignal(cfg *Config, handler tcp.Handler) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGHUP, syscall.SIGQUIT, syscall.SIGTERM, syscall.SIGINT)
	s := MakeServer(*cfg, handler)
	if err := s.Start(); err != nil {
		return err
	}
	go func() {
		select {
		case sig := <-sigCh:
			switch sig {
			case syscall.SIGHUP, syscall.SIGQUIT, syscall.SIGTERM, syscall.SIGINT:
				logger.Info("get exit signal")
				s.Stop()
			}
		case <-s.stoppedCh:
		}
	}()
	return s.Serve()
}
