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
	"errors"
	"io"
	"net"
	"syscall"
	"time"

	"go.uber.org/uhttp/internal/freelist"
	"go.uber.org/uhttp/internal/reactor"
	"go.uber.org/uhttp/internal/tokenizer"
	"go.uber.org/zap"
)

var errMalformedRequest = errors.New("uhttp: malformed request")

// ConnState is the lifecycle state of a connection.
type ConnState int

const (
	// ConnOpen connections were accepted but are not read from yet.
	ConnOpen ConnState = iota

	// ConnActive connections are read from and parsed.
	ConnActive

	// ConnShuttingDown connections are closing their write half.
	ConnShuttingDown

	// ConnClosing connections are being closed.
	ConnClosing

	// ConnClosed connections were closed and released.
	ConnClosed
)

func (s ConnState) String() string {
	switch s {
	case ConnOpen:
		return "open"
	case ConnActive:
		return "active"
	case ConnShuttingDown:
		return "shutting down"
	case ConnClosing:
		return "closing"
	case ConnClosed:
		return "closed"
	default:
		return "unknown"
	}
}

type parsePhase int

const (
	phaseURL parsePhase = iota
	phaseField
	phaseValue
)

// Conn is an accepted connection.
//
// Conns are owned by an event loop. Except for Post and AfterFunc, which may
// be called from any goroutine, Conn methods must only be called from that
// loop, which is where Handlers run. A Conn is recycled after its CLOSE
// event and must not be used afterwards.
type Conn struct {
	freelist.Entry

	w      *worker
	stream reactor.Stream
	timer  reactor.Timer
	tok    tokenizer.Tokenizer
	state  ConnState
	remote net.Addr

	// Messages whose responses were not written yet, in arrival order.
	head, tail *Message

	// cur is the message being parsed.
	cur        *Message
	phase      parsePhase
	valueStart int

	rbuf    *recvBuffer
	writing int

	// Links of the worker's list of live connections.
	prev, next *Conn

	onTimerFn  func()
	onClosedFn func()
}

func newConn() *Conn {
	c := new(Conn)
	c.onTimerFn = c.onTimer
	c.onClosedFn = c.onClosed
	return c
}

func (c *Conn) init(w *worker, nc net.Conn) {
	c.w = w
	c.state = ConnOpen
	c.remote = nc.RemoteAddr()
	c.stream.Init(w.loop, nc)
	w.loop.InitTimer(&c.timer, c.onTimerFn)
	c.tok.Init((*connParser)(c), tokenizer.MaxHeaderSize(w.cfg.MaxHeaderSize))
}

// start begins reading from a freshly accepted connection.
func (c *Conn) start() {
	c.SetTimeout(c.w.cfg.InitialTimeout)
	c.emit(Event{Type: EventOpen, Conn: c})
	if c.state != ConnOpen {
		return
	}
	c.state = ConnActive
	c.stream.ReadStart((*connReader)(c))
}

// State returns the lifecycle state of the connection.
func (c *Conn) State() ConnState {
	return c.state
}

// RemoteAddr returns the address of the client.
func (c *Conn) RemoteAddr() net.Addr {
	return c.remote
}

// Post runs f on the event loop of the connection. It is safe for concurrent
// use and returns false if the server was stopped.
func (c *Conn) Post(f func()) bool {
	return c.w.loop.Post(f)
}

// AfterFunc runs f on the event loop of the connection once d has elapsed.
// It is safe for concurrent use.
func (c *Conn) AfterFunc(d time.Duration, f func()) {
	c.w.afterFunc(d, f)
}

// SetTimeout arms the inactivity timer of the connection to close it once
// it has been idle for d, replacing any earlier deadline. Zero disarms the
// timer. Expiry is ignored while a request is being handled or a response
// is being written.
func (c *Conn) SetTimeout(d time.Duration) {
	c.CheckInUse()
	if c.state >= ConnClosing {
		return
	}
	if d <= 0 {
		c.timer.Stop()
		return
	}
	c.timer.Start(d)
}

// Shutdown closes the write half of the connection after the responses
// already queued for writing, then closes the connection. Responses that
// are finished later are dropped.
func (c *Conn) Shutdown() {
	c.CheckInUse()
	c.shutdown()
}

// Close closes the connection immediately.
func (c *Conn) Close() {
	c.CheckInUse()
	c.close()
}

func (c *Conn) emit(e Event) {
	c.w.handler.HandleEvent(e)
}

func (c *Conn) busy() bool {
	return c.writing > 0 || (c.head != nil && c.head.announced)
}

func (c *Conn) onTimer() {
	if c.state >= ConnShuttingDown || c.busy() {
		return
	}
	c.w.obs.idleTimeout()
	c.w.logger.Debug("closing idle connection", zap.Stringer("remote", c.remote))
	c.close()
}

func (c *Conn) shutdown() {
	if c.state >= ConnShuttingDown {
		return
	}
	c.state = ConnShuttingDown
	c.timer.Stop()
	c.tok.Pause()
	c.stream.ReadStop()

	req := c.w.pools.requests.Get().(*ioRequest)
	req.conn = c
	req.shutdown = true
	c.stream.Shutdown(req)
}

func (c *Conn) onShutdown(err error) {
	if c.state >= ConnClosing {
		return
	}
	if err != nil {
		c.w.logger.Debug("failed to shut down connection",
			zap.Stringer("remote", c.remote), zap.Error(err))
	}
	c.emit(Event{Type: EventShutdown, Conn: c})
	c.close()
}

func (c *Conn) close() {
	if c.state >= ConnClosing {
		return
	}
	c.state = ConnClosing
	c.timer.Stop()
	c.tok.Pause()
	c.stream.Close(c.onClosedFn)
}

// onClosed runs once the stream was closed and every pending read and write
// was handed back.
func (c *Conn) onClosed() {
	c.state = ConnClosed

	// The message being received is either still in the chain or was
	// already written.
	cur := c.cur
	if cur != nil && !cur.flushed {
		cur = nil
	}
	for m := c.head; m != nil; {
		next := m.next
		m.orphan()
		m = next
	}
	if cur != nil {
		cur.orphan()
	}
	c.head, c.tail, c.cur = nil, nil, nil

	c.emit(Event{Type: EventClose, Conn: c})

	w := c.w
	w.conns.remove(c)
	w.obs.connClosed()
	c.remote = nil
	w.pools.conns.Put(c)
	w.connReleased()
}

func (c *Conn) link(m *Message) {
	m.prev = c.tail
	if c.tail != nil {
		c.tail.next = m
	} else {
		c.head = m
	}
	c.tail = m
}

func (c *Conn) unlink(m *Message) {
	if m.prev != nil {
		m.prev.next = m.next
	} else {
		c.head = m.next
	}
	if m.next != nil {
		m.next.prev = m.prev
	} else {
		c.tail = m.prev
	}
	m.prev, m.next = nil, nil
}

// flush writes the response of a message that left the chain.
func (c *Conn) flush(m *Message) {
	if !c.stream.IsWritable() {
		m.flushed = true
		m.maybeRelease()
		return
	}

	req := c.w.pools.requests.Get().(*ioRequest)
	req.conn = c
	req.msg = m
	c.writing++
	c.stream.Write(req, m.buffers())
}

func (c *Conn) onWritten(m *Message, err error) {
	c.writing--
	m.flushed = true
	keepAlive := m.keepAlive
	m.maybeRelease()

	if c.state >= ConnClosing {
		return
	}
	if err != nil {
		c.ioError(err)
		return
	}
	if c.state != ConnActive {
		return
	}
	if keepAlive {
		c.SetTimeout(c.w.cfg.KeepAliveTimeout)
	} else {
		c.shutdown()
	}
}

// ioError closes the connection after a failed read or write. Errors that
// only mean the client went away are not reported.
func (c *Conn) ioError(err error) {
	if c.state >= ConnClosing {
		return
	}
	if !isDisconnect(err) {
		c.w.obs.ioError()
		c.w.logger.Debug("connection failed",
			zap.Stringer("remote", c.remote), zap.Error(err))
		c.emit(Event{Type: EventError, Conn: c, Err: err})
	}
	c.close()
}

// protocolError closes the connection after a malformed request.
func (c *Conn) protocolError(err error) {
	if err == nil {
		err = errMalformedRequest
	}
	c.w.obs.parseError()
	c.w.logger.Debug("malformed request",
		zap.Stringer("remote", c.remote), zap.Error(err))

	var m *Message
	if c.cur != nil && c.cur.announced {
		m = c.cur
	}
	c.emit(Event{Type: EventError, Conn: c, Message: m, Err: err})
	c.close()
}

func isDisconnect(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE)
}

// connReader receives the data read from the connection's stream.
type connReader Conn

func (r *connReader) AllocBuffer() []byte {
	b := r.w.pools.buffers.Get().(*recvBuffer)
	r.rbuf = b
	return b.buf
}

func (r *connReader) OnRead(buf []byte, n int, err error) {
	c := (*Conn)(r)
	b := c.rbuf
	c.rbuf = nil

	if n > 0 && c.state == ConnActive {
		c.parse(buf[:n])
	}
	c.w.pools.buffers.Put(b)

	if err != nil {
		c.ioError(err)
	}
}

func (c *Conn) parse(data []byte) {
	n := c.tok.Execute(data)
	if c.tok.Paused() || c.state >= ConnClosing {
		return
	}
	if n < len(data) || c.tok.Err() != nil {
		c.protocolError(c.tok.Err())
	}
}
