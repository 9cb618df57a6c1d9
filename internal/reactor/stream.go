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

package reactor

import (
	"errors"
	"net"
	"sync"
)

// ErrCanceled is the error write and shutdown requests complete with when
// their stream is closed before they could be carried out.
var ErrCanceled = errors.New("reactor: request canceled by close")

// ReadHandler receives the data read from a Stream.
type ReadHandler interface {
	// AllocBuffer returns the buffer the next read will fill.
	AllocBuffer() []byte

	// OnRead hands back a buffer obtained from AllocBuffer along with the
	// number of bytes read into it. n may be zero with a nil error, in which
	// case the handler only needs to release buf. err is non-nil once the
	// stream has no more data.
	OnRead(buf []byte, n int, err error)
}

// Request is a pending write or shutdown.
type Request interface {
	// Complete is called on the loop once the request has been carried out
	// or canceled.
	Complete(err error)
}

type writeOp struct {
	req      Request
	bufs     net.Buffers
	shutdown bool
}

type completion struct {
	req Request
	err error
}

// Stream drives non-blocking reads and writes over a net.Conn on behalf of a
// Loop. At most one read is outstanding at a time, and write and shutdown
// requests complete in submission order, always before the close
// completion.
//
// Except where noted, Stream methods must be called from the loop goroutine.
type Stream struct {
	loop *Loop
	conn net.Conn

	// Loop-owned state.
	handler     ReadHandler
	reading     bool
	outstanding bool
	readerDone  bool
	shutdown    bool
	closing     bool
	onClose     func()
	readBufs    chan []byte
	stashed     bool
	started     bool
	writer      bool

	// Written by the reader goroutine before it posts onReadFn, read by the
	// loop after.
	rbuf []byte
	rn   int
	rerr error

	mu        sync.Mutex
	cond      sync.Cond
	queue     []writeOp
	closed    bool
	completed []completion
	draining  []completion
	posted    bool

	wg sync.WaitGroup

	onReadFn     func()
	completeFn   func()
	closeDoneFn  func()
	readerLoopFn func()
	writerLoopFn func()
	closeWaitFn  func()
}

// Init binds the stream to a loop and a connection. A Stream may be
// initialized again once its close callback has run.
func (s *Stream) Init(l *Loop, conn net.Conn) {
	s.loop = l
	s.conn = conn
	s.handler = nil
	s.reading = false
	s.outstanding = false
	s.readerDone = false
	s.shutdown = false
	s.closing = false
	s.onClose = nil
	s.stashed = false
	s.started = false
	s.writer = false
	s.readBufs = make(chan []byte, 1)
	s.rbuf, s.rn, s.rerr = nil, 0, nil

	s.mu.Lock()
	s.cond.L = &s.mu
	s.queue = s.queue[:0]
	s.closed = false
	s.posted = false
	s.mu.Unlock()

	if s.onReadFn == nil {
		s.onReadFn = s.onReadDone
		s.completeFn = s.runCompletions
		s.closeDoneFn = s.closeDone
		s.readerLoopFn = s.readLoop
		s.writerLoopFn = s.writeLoop
		s.closeWaitFn = s.closeWait
	}
}

// Conn returns the connection the stream drives.
func (s *Stream) Conn() net.Conn {
	return s.conn
}

// ReadStart starts delivering data to h.
func (s *Stream) ReadStart(h ReadHandler) {
	if s.closing {
		return
	}
	s.handler = h
	s.reading = true

	if !s.started {
		s.started = true
		s.wg.Add(1)
		go s.readerLoopFn()
	}
	if s.stashed {
		s.stashed = false
		s.loop.Post(s.onReadFn)
		return
	}
	s.requestRead()
}

// ReadStop stops delivering data. A read that is already outstanding
// completes, but its result is held until the next ReadStart.
func (s *Stream) ReadStop() {
	s.reading = false
}

// IsReading reports whether the stream is delivering data.
func (s *Stream) IsReading() bool {
	return s.reading
}

func (s *Stream) requestRead() {
	if s.outstanding || s.readerDone || !s.reading || s.closing {
		return
	}
	s.outstanding = true
	s.readBufs <- s.handler.AllocBuffer()
}

func (s *Stream) readLoop() {
	defer s.wg.Done()
	for buf := range s.readBufs {
		n, err := s.conn.Read(buf)
		s.rbuf, s.rn, s.rerr = buf, n, err
		s.loop.Post(s.onReadFn)
		if err != nil {
			return
		}
	}
}

func (s *Stream) onReadDone() {
	if !s.reading && !s.closing {
		s.stashed = true
		return
	}

	buf, n, err := s.rbuf, s.rn, s.rerr
	s.rbuf, s.rn, s.rerr = nil, 0, nil
	s.outstanding = false
	if err != nil {
		s.readerDone = true
	}

	if s.closing {
		s.handler.OnRead(buf, 0, nil)
		return
	}
	s.handler.OnRead(buf, n, err)
	s.requestRead()
}

// Write queues bufs to be written to the connection. req completes on the
// loop once every byte has been written or the write failed. The slices in
// bufs must not be modified until then.
func (s *Stream) Write(req Request, bufs net.Buffers) {
	s.submit(writeOp{req: req, bufs: bufs})
}

// Shutdown queues a half-close of the connection's write side behind any
// pending writes.
func (s *Stream) Shutdown(req Request) {
	s.shutdown = true
	s.submit(writeOp{req: req, shutdown: true})
}

func (s *Stream) submit(op writeOp) {
	s.mu.Lock()
	if s.closed {
		s.completed = append(s.completed, completion{req: op.req, err: ErrCanceled})
		s.postCompletionsLocked()
		s.mu.Unlock()
		return
	}
	s.queue = append(s.queue, op)
	first := len(s.queue) == 1
	s.mu.Unlock()

	if first {
		s.cond.Signal()
	}
	s.startWriter()
}

func (s *Stream) startWriter() {
	if s.writer {
		return
	}
	s.writer = true
	s.wg.Add(1)
	go s.writerLoopFn()
}

func (s *Stream) writeLoop() {
	defer s.wg.Done()

	s.mu.Lock()
	for {
		for len(s.queue) == 0 && !s.closed {
			s.cond.Wait()
		}
		if len(s.queue) == 0 {
			s.mu.Unlock()
			return
		}
		op := s.queue[0]
		s.queue[0] = writeOp{}
		s.queue = s.queue[1:]
		closed := s.closed
		s.mu.Unlock()

		var err error
		switch {
		case closed:
			err = ErrCanceled
		case op.shutdown:
			err = closeWrite(s.conn)
		default:
			_, err = op.bufs.WriteTo(s.conn)
		}

		s.mu.Lock()
		s.completed = append(s.completed, completion{req: op.req, err: err})
		s.postCompletionsLocked()
	}
}

func (s *Stream) postCompletionsLocked() {
	if s.posted {
		return
	}
	s.posted = true
	s.loop.Post(s.completeFn)
}

func (s *Stream) runCompletions() {
	s.mu.Lock()
	s.draining, s.completed = s.completed, s.draining[:0]
	s.posted = false
	s.mu.Unlock()

	for i, c := range s.draining {
		s.draining[i] = completion{}
		c.req.Complete(c.err)
	}
}

func closeWrite(conn net.Conn) error {
	if cw, ok := conn.(interface{ CloseWrite() error }); ok {
		return cw.CloseWrite()
	}
	return nil
}

// IsWritable reports whether writes may still be queued.
func (s *Stream) IsWritable() bool {
	return !s.closing && !s.shutdown
}

// IsClosing reports whether Close has been called.
func (s *Stream) IsClosing() bool {
	return s.closing
}

// Close closes the connection. Queued writes that have not started complete
// with ErrCanceled. onClose runs on the loop after every outstanding read
// and write completion has been delivered. Closing a stream twice is a
// no-op.
func (s *Stream) Close(onClose func()) {
	if s.closing {
		return
	}
	s.closing = true
	s.reading = false
	s.onClose = onClose

	if s.stashed {
		s.stashed = false
		s.onReadDone()
	}

	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.cond.Broadcast()

	close(s.readBufs)
	_ = s.conn.Close()
	go s.closeWaitFn()
}

func (s *Stream) closeWait() {
	s.wg.Wait()

	// Completions posted by the writer are already queued ahead of this.
	s.loop.Post(s.closeDoneFn)
}

func (s *Stream) closeDone() {
	onClose := s.onClose
	s.onClose = nil
	s.handler = nil
	s.conn = nil
	if onClose != nil {
		onClose()
	}
}
