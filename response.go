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
	"strconv"

	"github.com/opentracing/opentracing-go/ext"
	"go.uber.org/uhttp/internal/tokenizer"
)

// ErrClosed is returned when writing the response of a message whose
// connection was closed.
var ErrClosed = errors.New("uhttp: connection closed")

var _ io.Writer = (*Message)(nil)

// WriteHead queues the status line and headers of the response.
//
// Unless the headers declare a Content-Length or a Transfer-Encoding, the
// body is sent with chunked encoding. Responses to HEAD requests and 1xx,
// 204 and 304 responses never carry a body.
func (m *Message) WriteHead(status int, h Header) {
	m.writeHead(status, h, -1)
}

func (m *Message) writeHead(status int, h Header, contentLength int) {
	m.checkWritable()
	if m.headSent {
		panic("uhttp: WriteHead called twice")
	}
	m.headSent = true
	m.status = status
	if m.span != nil {
		ext.HTTPStatusCode.Set(m.span, uint16(status))
	}
	if m.orphaned {
		return
	}

	m.bodyless = m.method == tokenizer.MethodHead ||
		(status >= 100 && status < 200) || status == 204 || status == 304

	off := len(m.scratch)
	m.scratch = appendStatusLine(m.scratch, status)

	var flags headerFlags
	for _, f := range h {
		flags.observe(f)
		m.scratch = append(m.scratch, f.Name...)
		m.scratch = append(m.scratch, ": "...)
		m.scratch = append(m.scratch, f.Value...)
		m.scratch = append(m.scratch, "\r\n"...)
	}

	switch {
	case flags.contentLength:
	case flags.transferEncoding:
		m.chunked = flags.chunked && !m.bodyless
	case status < 200 || status == 204:
		// These never carry framing headers.
	case contentLength >= 0:
		m.scratch = append(m.scratch, "Content-Length: "...)
		m.scratch = strconv.AppendInt(m.scratch, int64(contentLength), 10)
		m.scratch = append(m.scratch, "\r\n"...)
	case !m.bodyless:
		m.scratch = append(m.scratch, "Transfer-Encoding: chunked\r\n"...)
		m.chunked = true
	}

	m.scratch = append(m.scratch, "\r\n"...)
	m.addScratch(off)
}

// Write copies p into the response body, writing a 200 head first if
// WriteHead was not called. With chunked encoding, every non-empty Write
// produces one chunk.
func (m *Message) Write(p []byte) (int, error) {
	m.checkWritable()
	if !m.headSent {
		m.WriteHead(200, nil)
	}
	if m.orphaned {
		return 0, ErrClosed
	}
	if len(p) == 0 || m.bodyless {
		return len(p), nil
	}

	off := len(m.scratch)
	if m.chunked {
		m.scratch = strconv.AppendInt(m.scratch, int64(len(p)), 16)
		m.scratch = append(m.scratch, "\r\n"...)
	}
	m.scratch = append(m.scratch, p...)
	if m.chunked {
		m.scratch = append(m.scratch, "\r\n"...)
	}
	m.addScratch(off)
	return len(p), nil
}

// WriteString is like Write for strings.
func (m *Message) WriteString(s string) (int, error) {
	m.checkWritable()
	if !m.headSent {
		m.WriteHead(200, nil)
	}
	if m.orphaned {
		return 0, ErrClosed
	}
	if len(s) == 0 || m.bodyless {
		return len(s), nil
	}

	off := len(m.scratch)
	if m.chunked {
		m.scratch = strconv.AppendInt(m.scratch, int64(len(s)), 16)
		m.scratch = append(m.scratch, "\r\n"...)
	}
	m.scratch = append(m.scratch, s...)
	if m.chunked {
		m.scratch = append(m.scratch, "\r\n"...)
	}
	m.addScratch(off)
	return len(s), nil
}

// Finish terminates the body, writing a 200 head first if WriteHead was
// not called, and ends the message.
func (m *Message) Finish() {
	m.checkWritable()
	if !m.headSent {
		m.WriteHead(200, nil)
	}
	if m.chunked && !m.orphaned {
		off := len(m.scratch)
		m.scratch = append(m.scratch, "0\r\n\r\n"...)
		m.addScratch(off)
	}
	m.End()
}

// Send writes a complete response with the given body and ends the message.
// A Content-Length header is added unless h declares the framing of the
// body.
func (m *Message) Send(status int, h Header, body []byte) {
	m.writeHead(status, h, len(body))
	if len(body) > 0 {
		m.Write(body)
	}
	m.Finish()
}
