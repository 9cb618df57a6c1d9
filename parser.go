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

// connParser receives the tokens of the requests read from a connection.
// It builds the message being parsed and emits its events.
type connParser Conn

// dead reports whether the connection was closed or shut down by a handler
// while a buffer was being parsed. The rest of the buffer is dropped.
func (p *connParser) dead() bool {
	if p.state >= ConnShuttingDown {
		p.tok.Pause()
		return true
	}
	return false
}

func (p *connParser) OnMessageBegin() {
	if p.dead() {
		return
	}
	c := (*Conn)(p)
	m := c.w.pools.messages.Get().(*Message)
	m.init(c)
	c.link(m)
	c.cur = m
	c.phase = phaseURL
}

func (p *connParser) OnURL(b []byte) {
	if m := p.cur; m != nil {
		m.block = append(m.block, b...)
	}
}

func (p *connParser) OnHeaderField(b []byte) {
	m := p.cur
	if m == nil {
		return
	}
	switch p.phase {
	case phaseURL:
		p.endURL()
	case phaseValue:
		p.endValue()
	}
	p.phase = phaseField
	for _, c := range b {
		if 'A' <= c && c <= 'Z' {
			c += 'a' - 'A'
		}
		m.block = append(m.block, c)
	}
}

func (p *connParser) OnHeaderValue(b []byte) {
	m := p.cur
	if m == nil {
		return
	}
	if p.phase != phaseValue {
		m.block = append(m.block, 0)
		p.valueStart = len(m.block)
		p.phase = phaseValue
	}
	m.block = append(m.block, b...)
}

func (p *connParser) endURL() {
	m := p.cur
	m.urlLen = len(m.block)
	m.block = append(m.block, 0)
}

func (p *connParser) endValue() {
	m := p.cur
	n := len(m.block)
	for n > p.valueStart && (m.block[n-1] == ' ' || m.block[n-1] == '\t') {
		n--
	}
	m.block = append(m.block[:n], 0)
}

func (p *connParser) OnHeadersComplete() {
	m := p.cur
	if m == nil || p.dead() {
		return
	}
	switch p.phase {
	case phaseURL:
		p.endURL()
	case phaseField:
		// A field without a value.
		m.block = append(m.block, 0, 0)
	case phaseValue:
		p.endValue()
	}
	m.block = append(m.block, 0)

	m.method = p.tok.Method()
	m.keepAlive = p.tok.ShouldKeepAlive()
	m.upgrade = p.tok.Upgrade()
	m.idempotent = m.method.Idempotent()
	if m.keepAlive {
		p.timer.Stop()
	}
	m.announced = true
	p.w.obs.request()
	m.startSpan()

	c := (*Conn)(p)
	c.emit(Event{Type: EventRequest, Conn: c, Message: m})
}

func (p *connParser) OnBody(b []byte) {
	m := p.cur
	if m == nil || p.dead() {
		return
	}
	c := (*Conn)(p)
	c.emit(Event{Type: EventData, Conn: c, Message: m, Data: b})
}

func (p *connParser) OnMessageComplete() {
	m := p.cur
	if m == nil || p.dead() {
		return
	}
	c := (*Conn)(p)
	c.cur = nil
	m.received = true
	keepAlive := m.keepAlive

	c.emit(Event{Type: EventEnd, Conn: c, Message: m})
	m.maybeRelease()

	if !keepAlive && c.state == ConnActive {
		c.tok.Pause()
		c.stream.ReadStop()
	}
}
