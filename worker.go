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
	"net"
	"sync"
	"time"

	opentracing "github.com/opentracing/opentracing-go"
	"go.uber.org/atomic"
	"go.uber.org/uhttp/internal/reactor"
	"go.uber.org/zap"
)

// worker owns an event loop and every connection, message and buffer
// handled on it.
type worker struct {
	loop    *reactor.Loop
	pools   pools
	handler Handler
	cfg     Config
	obs     *observer
	logger  *zap.Logger
	tracer  opentracing.Tracer

	// Live connections, so that they can be closed when the server stops.
	conns connList

	live *liveConns
}

// liveConns counts the connections of a server that were not closed yet.
// Once drained is called, its channel is closed as soon as the count drops
// to zero.
type liveConns struct {
	n         atomic.Int64
	draining  atomic.Bool
	drainedCh chan struct{}
	once      sync.Once
}

func newLiveConns() *liveConns {
	return &liveConns{drainedCh: make(chan struct{})}
}

func (l *liveConns) add() {
	l.n.Inc()
}

func (l *liveConns) done() {
	if l.n.Dec() == 0 && l.draining.Load() {
		l.once.Do(func() { close(l.drainedCh) })
	}
}

// drained must only be called once no more connections are added.
func (l *liveConns) drained() <-chan struct{} {
	l.draining.Store(true)
	if l.n.Load() == 0 {
		l.once.Do(func() { close(l.drainedCh) })
	}
	return l.drainedCh
}

func (w *worker) run() {
	w.loop.Run()
}

// open takes over an accepted connection. The caller already counted it in
// live.
func (w *worker) open(nc net.Conn) {
	c := w.pools.conns.Get().(*Conn)
	c.init(w, nc)
	w.conns.push(c)
	w.obs.connAccepted()
	c.start()
}

func (w *worker) connReleased() {
	w.live.done()
}

func (w *worker) closeAll() {
	for c := w.conns.head; c != nil; c = c.next {
		c.close()
	}
}

func (w *worker) afterFunc(d time.Duration, f func()) {
	w.loop.Post(func() {
		t := new(reactor.Timer)
		w.loop.InitTimer(t, f)
		t.Start(d)
	})
}

// connList is an intrusive list of connections.
type connList struct {
	head *Conn
	n    int
}

func (l *connList) push(c *Conn) {
	c.prev = nil
	c.next = l.head
	if l.head != nil {
		l.head.prev = c
	}
	l.head = c
	l.n++
}

func (l *connList) remove(c *Conn) {
	if c.prev != nil {
		c.prev.next = c.next
	} else {
		l.head = c.next
	}
	if c.next != nil {
		c.next.prev = c.prev
	}
	c.prev, c.next = nil, nil
	l.n--
}
