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
	"time"

	opentracing "github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
	"go.uber.org/uhttp/internal/freelist"
	"go.uber.org/uhttp/internal/tokenizer"
)

// fragment is a piece of a response. It either points into the scratch
// buffer of its message or at bytes handed to Append.
type fragment struct {
	off, n int
	ext    []byte
}

// Message is a request and the response to it.
//
// A Handler sees a Message from its REQUEST event on. Responses may be
// finished in any order: they are written in the order the requests were
// received. A Message is recycled once its response was written and its
// request fully received, or once its connection was closed, so it must
// not be used after End. Message methods must only be called from the event
// loop of its connection, except for Post and AfterFunc.
type Message struct {
	freelist.Entry

	w          *worker
	conn       *Conn
	prev, next *Message

	method     tokenizer.Method
	keepAlive  bool
	upgrade    bool
	idempotent bool

	// URL and headers of the request, see HeaderBlock.
	block  []byte
	urlLen int

	announced bool
	received  bool
	finished  bool
	flushed   bool
	orphaned  bool

	headSent bool
	bodyless bool
	chunked  bool
	status   int
	scratch  []byte
	frags    []fragment
	out      net.Buffers

	span opentracing.Span
}

func newMessage() *Message {
	return new(Message)
}

func (m *Message) init(c *Conn) {
	m.w = c.w
	m.conn = c
}

// reset clears a message before it goes back to its pool. Buffers are kept.
func (m *Message) reset() {
	m.conn = nil
	m.prev, m.next = nil, nil
	m.method = tokenizer.MethodUnknown
	m.keepAlive, m.upgrade, m.idempotent = false, false, false
	m.block = m.block[:0]
	m.urlLen = 0
	m.announced, m.received, m.finished, m.flushed, m.orphaned = false, false, false, false, false
	m.headSent, m.bodyless, m.chunked = false, false, false
	m.status = 0
	m.scratch = m.scratch[:0]
	m.frags = m.frags[:0]
	for i := range m.out {
		m.out[i] = nil
	}
	m.out = m.out[:0]
	m.span = nil
}

func (m *Message) release() {
	m.reset()
	m.w.pools.messages.Put(m)
}

// maybeRelease recycles the message once nothing refers to it anymore.
func (m *Message) maybeRelease() {
	if m.InUse() && m.flushed && m.received {
		m.release()
	}
}

// orphan detaches the message from its closed connection. Messages the
// Handler never saw, or is done with, are recycled right away. The others
// are recycled by their End.
func (m *Message) orphan() {
	if m.orphaned {
		return
	}
	m.orphaned = true
	m.conn = nil
	m.prev, m.next = nil, nil

	if m.span != nil && !m.finished {
		ext.Error.Set(m.span, true)
		m.span.LogKV("event", "connection closed")
		m.span.Finish()
		m.span = nil
	}
	if m.finished || m.flushed || !m.announced {
		m.release()
	}
}

// Conn returns the connection the request was received on, or nil once
// that connection was closed.
func (m *Message) Conn() *Conn {
	m.CheckInUse()
	return m.conn
}

// Method returns the method of the request.
func (m *Message) Method() string {
	return m.method.String()
}

// URLBytes returns the request target as it was received. The slice is only
// valid as long as the message is.
func (m *Message) URLBytes() []byte {
	m.CheckInUse()
	return m.block[:m.urlLen]
}

// URL returns the request target as it was received.
func (m *Message) URL() string {
	return string(m.URLBytes())
}

// Headers returns the headers of the request.
func (m *Message) Headers() HeaderBlock {
	m.CheckInUse()
	if !m.announced {
		return nil
	}
	return HeaderBlock(m.block[m.urlLen+1:])
}

// KeepAlive reports whether the connection stays open after the response.
func (m *Message) KeepAlive() bool {
	return m.keepAlive
}

// Upgrade reports whether the client asked to switch protocols.
func (m *Message) Upgrade() bool {
	return m.upgrade
}

// Idempotent reports whether the method of the request is idempotent, in
// which case a client may safely retry it.
func (m *Message) Idempotent() bool {
	return m.idempotent
}

// Closed reports whether the connection of the message was closed. The
// response of a closed message is dropped, but End must still be called.
func (m *Message) Closed() bool {
	m.CheckInUse()
	return m.orphaned
}

// Post runs f on the event loop of the message. It is safe for concurrent
// use and returns false if the server was stopped.
func (m *Message) Post(f func()) bool {
	return m.w.loop.Post(f)
}

// AfterFunc runs f on the event loop of the message once d has elapsed. It
// is safe for concurrent use.
func (m *Message) AfterFunc(d time.Duration, f func()) {
	m.w.afterFunc(d, f)
}

// Append queues p as part of the response without copying it. p must not
// be modified until the message is recycled.
func (m *Message) Append(p []byte) {
	m.checkWritable()
	if m.orphaned || len(p) == 0 {
		return
	}
	m.frags = append(m.frags, fragment{ext: p})
}

// End marks the response as complete. Responses are written as soon as the
// responses to every earlier request on the connection were ended too.
//
// End panics if nothing was queued for a message whose connection is still
// open, or if called twice.
func (m *Message) End() {
	m.checkWritable()
	if !m.orphaned && len(m.frags) == 0 {
		panic("uhttp: End called before queuing a response")
	}
	m.finished = true
	if m.span != nil {
		m.span.Finish()
		m.span = nil
	}
	if m.orphaned {
		m.release()
		return
	}

	head := m
	for head.prev != nil && head.prev.finished {
		head = head.prev
	}
	if head.prev != nil {
		// An earlier response is still pending.
		return
	}

	c := m.conn
	for head != nil && head.finished {
		next := head.next
		c.unlink(head)
		c.flush(head)
		head = next
	}
}

func (m *Message) checkWritable() {
	m.CheckInUse()
	if m.finished {
		panic("uhttp: response used after End")
	}
}

// addScratch records the bytes appended to the scratch buffer from off on.
func (m *Message) addScratch(off int) {
	n := len(m.scratch) - off
	if n == 0 {
		return
	}
	if last := len(m.frags) - 1; last >= 0 {
		f := &m.frags[last]
		if f.ext == nil && f.off+f.n == off {
			f.n += n
			return
		}
	}
	m.frags = append(m.frags, fragment{off: off, n: n})
}

// buffers returns the response as a list of buffers to write.
func (m *Message) buffers() net.Buffers {
	out := m.out[:0]
	for _, f := range m.frags {
		if f.ext != nil {
			out = append(out, f.ext)
		} else {
			out = append(out, m.scratch[f.off:f.off+f.n])
		}
	}
	m.out = out
	return out
}

func (m *Message) startSpan() {
	t := m.w.tracer
	if t == nil {
		return
	}
	if _, ok := t.(opentracing.NoopTracer); ok {
		return
	}

	parent, err := t.Extract(opentracing.HTTPHeaders, m.Headers())
	if err != nil {
		parent = nil
	}
	m.span = t.StartSpan(
		m.method.String(),
		ext.RPCServerOption(parent),
		opentracing.Tag{Key: string(ext.HTTPMethod), Value: m.method.String()},
		opentracing.Tag{Key: string(ext.HTTPUrl), Value: m.URL()},
		opentracing.Tag{Key: string(ext.Component), Value: _packageName},
	)
}
