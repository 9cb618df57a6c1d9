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

package main

import (
	"io"
	"time"

	"github.com/fatih/color"
	"go.uber.org/uhttp"
)

var _demoDelays = map[string]time.Duration{
	"/1": 20 * time.Millisecond,
	"/2": 0,
	"/3": 30 * time.Millisecond,
	"/4": 10 * time.Millisecond,
}

var (
	_helloBody   = []byte("Hello\n")
	_helloHeader = uhttp.Header{{Name: "Content-Type", Value: "text/plain"}}
)

// accessLog writes one line per response.
type accessLog struct {
	w    io.Writer
	ok   *color.Color
	fail *color.Color
}

func newAccessLog(w io.Writer, noColor bool) *accessLog {
	l := &accessLog{
		w:    w,
		ok:   color.New(color.FgGreen),
		fail: color.New(color.FgRed),
	}
	if noColor {
		l.ok.DisableColor()
		l.fail.DisableColor()
	}
	return l
}

func (l *accessLog) log(method, url string, status int) {
	c := l.ok
	if status >= 400 {
		c = l.fail
	}
	c.Fprintf(l.w, "%s %s %d %s\n", method, url, status, uhttp.StatusText(status))
}

// demoHandler answers requests after the delay configured for their path.
type demoHandler struct {
	log *accessLog
}

func newDemoHandler(log *accessLog) *demoHandler {
	return &demoHandler{log: log}
}

func (h *demoHandler) HandleEvent(e uhttp.Event) {
	if e.Type != uhttp.EventRequest {
		return
	}

	m := e.Message
	method, url := m.Method(), m.URL()
	respond := func() {
		status := 200
		body := _helloBody
		if m.Upgrade() {
			status, body = 501, nil
		} else if _, ok := _demoDelays[url]; ok {
			body = []byte(url + "\n")
		}
		closed := m.Closed()
		m.Send(status, _helloHeader, body)
		if !closed {
			h.log.log(method, url, status)
		}
	}

	if d := _demoDelays[url]; d > 0 {
		m.AfterFunc(d, respond)
		return
	}
	respond()
}
