// Copyright (c) 2026 Uber Technologies, Inc.
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package uhttp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/atomic"
	"go.uber.org/multierr"
	"go.uber.org/net/metrics"
	"go.uber.org/net/metrics/tallypush"
	"go.uber.org/uhttp/internal/backoff"
	"go.uber.org/uhttp/internal/lifecycle"
	"go.uber.org/uhttp/internal/reactor"
	"go.uber.org/uhttp/internal/sampledlogger"
	"go.uber.org/zap"
)

const (
	_packageName       = "uhttp"
	_tallyPushInterval = 500 * time.Millisecond
	_minAcceptDelay    = 5 * time.Millisecond
	_maxAcceptDelay    = time.Second
)

var errServerNotRunning = errors.New("uhttp: server is not running")

// Server accepts HTTP/1.1 connections and dispatches their events to a
// Handler on a fixed set of event loops.
type Server struct {
	cfg     Config
	handler Handler
	logger  *zap.Logger
	root    *metrics.Root
	tally   bool
	opts    serverOptions
	once    *lifecycle.Once

	workers []*worker
	served  atomic.Bool
	next    atomic.Uint64
	live    *liveConns

	ln          net.Listener
	acceptDelay *backoff.Exponential
	acceptLog   *sampledlogger.Logger
	acceptDone  chan struct{}
	stopping    chan struct{}
	stopPush    context.CancelFunc
}

// NewServer builds a Server. It does not listen until Start or Serve is
// called.
func NewServer(cfg Config, h Handler, opts ...ServerOption) (*Server, error) {
	if h == nil {
		return nil, errors.New("uhttp: a handler is required")
	}
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := newServerOptions(opts)
	delay, err := backoff.NewExponential(
		backoff.BaseJump(_minAcceptDelay),
		backoff.MinBackoff(_minAcceptDelay),
		backoff.MaxBackoff(_maxAcceptDelay))
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:        cfg,
		handler:    h,
		logger:     o.logger.Named(_packageName),
		opts:       o,
		once:       lifecycle.NewOnce(),
		live:       newLiveConns(),
		acceptDone: make(chan struct{}),
		stopping:   make(chan struct{}),
		stopPush:   func() {},
	}
	s.acceptDelay = delay
	s.acceptLog = sampledlogger.New(s.logger, _maxAcceptDelay, o.clock)

	meter := o.meter
	if meter == nil {
		s.root = metrics.New()
		meter = s.root.Scope()
	}
	obs := newObserver(meter, s.logger)

	s.workers = make([]*worker, cfg.Loops)
	for i := range s.workers {
		s.workers[i] = &worker{
			loop:    reactor.NewLoop(reactor.WithClock(o.clock)),
			pools:   newPools(cfg.ReadBufferSize, obs),
			handler: h,
			cfg:     cfg,
			obs:     obs,
			logger:  s.logger.With(zap.Int("loop", i)),
			tracer:  o.tracer,
			live:    s.live,
		}
	}
	return s, nil
}

// Listen starts a server on the given port and host. An empty host listens
// on every interface.
func Listen(port int, host string, backlog int, h Handler, opts ...ServerOption) (*Server, error) {
	s, err := NewServer(Config{Host: host, Port: port, Backlog: backlog}, h, opts...)
	if err != nil {
		return nil, err
	}
	if err := s.Start(); err != nil {
		return nil, err
	}
	return s, nil
}

// Start listens on the configured address and starts serving.
func (s *Server) Start() error {
	return s.once.Start(func() error {
		ln, err := listenTCP(s.cfg.Address(), s.cfg.Backlog)
		if err != nil {
			return fmt.Errorf("uhttp: failed to listen on %v: %v", s.cfg.Address(), err)
		}
		s.serve(ln)
		return nil
	})
}

// Serve starts serving connections accepted from ln. The server closes ln
// when it stops.
func (s *Server) Serve(ln net.Listener) error {
	return s.once.Start(func() error {
		s.serve(ln)
		return nil
	})
}

func (s *Server) serve(ln net.Listener) {
	s.ln = ln
	s.served.Store(true)
	if s.root != nil && s.opts.tally != nil {
		stop, err := s.root.Push(tallypush.New(s.opts.tally), _tallyPushInterval)
		if err != nil {
			s.logger.Error("Failed to start pushing metrics to Tally.", zap.Error(err))
		} else {
			s.stopPush = stop
		}
	}

	for _, w := range s.workers {
		go w.run()
	}
	go s.accept()

	s.logger.Info("Server started.",
		zap.Stringer("addr", ln.Addr()),
		zap.Int("loops", len(s.workers)))
}

func (s *Server) accept() {
	defer close(s.acceptDone)

	var attempt uint
	for {
		nc, err := s.ln.Accept()
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Temporary() {
				delay := s.acceptDelay.Duration(attempt)
				attempt++
				s.acceptLog.Warn("Failed to accept connection, retrying.",
					zap.Error(err), zap.Duration("delay", delay))
				if !s.sleep(delay) {
					return
				}
				continue
			}
			if s.once.State() < lifecycle.Stopping {
				s.logger.Error("Stopped accepting connections.", zap.Error(err))
			}
			return
		}
		attempt = 0

		w := s.workers[int((s.next.Inc()-1)%uint64(len(s.workers)))]
		s.live.add()
		if !w.loop.Post(func() { w.open(nc) }) {
			_ = nc.Close()
			s.live.done()
		}
	}
}

// sleep waits for d and reports false if the server started stopping
// first.
func (s *Server) sleep(d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-s.stopping:
		return false
	}
}

// Stop stops accepting connections and closes the open ones. Requests that
// are being handled are abandoned: their messages report Closed. Stop
// waits until every connection emitted its CLOSE event, or until ctx is
// done.
func (s *Server) Stop(ctx context.Context) error {
	return s.once.Stop(func() error {
		return s.stop(ctx)
	})
}

func (s *Server) stop(ctx context.Context) error {
	close(s.stopping)
	err := s.ln.Close()
	<-s.acceptDone

	for _, w := range s.workers {
		w.loop.Post(w.closeAll)
	}

	select {
	case <-s.live.drained():
	case <-ctx.Done():
		err = multierr.Append(err, fmt.Errorf("uhttp: connections still open: %v", ctx.Err()))
	}

	for _, w := range s.workers {
		w.loop.Stop()
	}
	for _, w := range s.workers {
		select {
		case <-w.loop.Done():
		case <-ctx.Done():
		}
	}
	s.stopPush()

	s.logger.Info("Server stopped.")
	return err
}

// Addr returns the address the server listens on, or nil if it was not
// started.
func (s *Server) Addr() net.Addr {
	if s.once.State() < lifecycle.Running || s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Config returns the configuration of the server with defaults applied.
func (s *Server) Config() Config {
	return s.cfg
}

// Metrics returns the root of the server's metrics, or nil if they are
// registered on a scope given with the Meter option.
func (s *Server) Metrics() *metrics.Root {
	return s.root
}

// PoolStats returns the state of the object pools of every event loop.
func (s *Server) PoolStats() ([]PoolStats, error) {
	stats := make([]PoolStats, len(s.workers))
	if st := s.once.State(); st != lifecycle.Running {
		if st < lifecycle.Running || !s.served.Load() {
			return nil, errServerNotRunning
		}
		<-s.once.Stopped()
		for i, w := range s.workers {
			<-w.loop.Done()
			stats[i] = w.pools.stats()
		}
		return stats, nil
	}

	var wg sync.WaitGroup
	for i, w := range s.workers {
		i, w := i, w
		wg.Add(1)
		if !w.loop.Post(func() {
			stats[i] = w.pools.stats()
			wg.Done()
		}) {
			wg.Done()
			return nil, errServerNotRunning
		}
	}
	wg.Wait()
	return stats, nil
}
