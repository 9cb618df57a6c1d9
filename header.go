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
	"bytes"
	"strings"

	opentracing "github.com/opentracing/opentracing-go"
)

// HeaderField is one response header.
type HeaderField struct {
	Name  string
	Value string
}

// Header lists response headers in the order they are written.
type Header []HeaderField

// HeaderBlock holds the headers of a request as they were received, in a
// flat buffer of NUL terminated name and value pairs ended by an empty name:
//
//	name\x00value\x00name\x00value\x00\x00
//
// Names are lowercased. A HeaderBlock points into its Message and is only
// valid as long as the Message is.
type HeaderBlock []byte

var _ opentracing.TextMapReader = HeaderBlock(nil)

// Each calls f for every header in order until f returns false. The slices
// passed to f are only valid during the call.
func (h HeaderBlock) Each(f func(name, value []byte) bool) {
	b := []byte(h)
	for len(b) > 0 {
		i := bytes.IndexByte(b, 0)
		if i <= 0 {
			return
		}
		name := b[:i]
		b = b[i+1:]

		j := bytes.IndexByte(b, 0)
		if j < 0 {
			return
		}
		value := b[:j]
		b = b[j+1:]

		if !f(name, value) {
			return
		}
	}
}

// Get returns the value of the first header with the given name, matched
// case insensitively.
func (h HeaderBlock) Get(name string) (value string, ok bool) {
	h.Each(func(n, v []byte) bool {
		if len(n) == len(name) && strings.EqualFold(string(n), name) {
			value, ok = string(v), true
			return false
		}
		return true
	})
	return value, ok
}

// Len returns the number of headers.
func (h HeaderBlock) Len() int {
	var n int
	h.Each(func(_, _ []byte) bool {
		n++
		return true
	})
	return n
}

// ForeachKey implements opentracing.TextMapReader so that a span context
// can be extracted from request headers.
func (h HeaderBlock) ForeachKey(handler func(key, val string) error) error {
	var err error
	h.Each(func(n, v []byte) bool {
		err = handler(string(n), string(v))
		return err == nil
	})
	return err
}

// headerFlags records which framing headers a response declared.
type headerFlags struct {
	contentLength    bool
	transferEncoding bool
	chunked          bool
}

func (f *headerFlags) observe(field HeaderField) {
	switch {
	case strings.EqualFold(field.Name, "Content-Length"):
		f.contentLength = true
	case strings.EqualFold(field.Name, "Transfer-Encoding"):
		f.transferEncoding = true
		if strings.EqualFold(strings.TrimSpace(field.Value), "chunked") {
			f.chunked = true
		}
	}
}
