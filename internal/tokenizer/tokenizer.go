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

// Package tokenizer incrementally splits an HTTP/1.1 request stream into
// tokens.
//
// A Tokenizer is fed arbitrary slices of the byte stream with Execute and
// reports what it finds through a Handler: the start of a message, spans of
// the request target, header names and values, body bytes, and the end of a
// message. Spans point into the slice passed to Execute and a single token
// may be reported over several calls when it straddles two slices. The
// Tokenizer never copies or retains caller memory.
package tokenizer

import (
	"bytes"
	"errors"
	"math"
)

var (
	// ErrInvalidMethod is returned for request methods the tokenizer does
	// not know.
	ErrInvalidMethod = errors.New("tokenizer: invalid method")

	// ErrInvalidURL is returned for empty request targets or targets with
	// control characters.
	ErrInvalidURL = errors.New("tokenizer: invalid request target")

	// ErrInvalidVersion is returned unless the protocol is HTTP/1.0 or
	// HTTP/1.1.
	ErrInvalidVersion = errors.New("tokenizer: invalid HTTP version")

	// ErrInvalidHeader is returned for malformed header lines.
	ErrInvalidHeader = errors.New("tokenizer: invalid header")

	// ErrInvalidContentLength is returned for unparsable or conflicting
	// Content-Length headers.
	ErrInvalidContentLength = errors.New("tokenizer: invalid Content-Length")

	// ErrInvalidTransferEncoding is returned when the body of a request
	// cannot be framed from its Transfer-Encoding.
	ErrInvalidTransferEncoding = errors.New("tokenizer: invalid Transfer-Encoding")

	// ErrInvalidChunkSize is returned for malformed chunked bodies.
	ErrInvalidChunkSize = errors.New("tokenizer: invalid chunk size")

	// ErrHeaderOverflow is returned when the request line and headers, or
	// the trailers, exceed the configured maximum size.
	ErrHeaderOverflow = errors.New("tokenizer: header too large")
)

// Handler receives tokens from a Tokenizer.
type Handler interface {
	OnMessageBegin()
	OnURL(p []byte)
	OnHeaderField(p []byte)
	OnHeaderValue(p []byte)
	OnHeadersComplete()
	OnBody(p []byte)
	OnMessageComplete()
}

type state uint8

const (
	stateStart state = iota

	// request line and headers
	stateMethod
	stateURLStart
	stateURL
	stateVersion
	stateRequestLineLF
	stateHeaderStart
	stateField
	stateValueStart
	stateValue
	stateValueLF
	stateHeadersLF

	// body
	stateBody
	stateChunkSize
	stateChunkExt
	stateChunkSizeLF
	stateChunkData
	stateChunkDataCR
	stateChunkDataLF

	// trailers
	stateTrailerStart
	stateTrailerLine
	stateTrailerEndLF

	stateDead
)

// counted reports whether bytes read in this state count towards the header
// size limit.
func (s state) counted() bool {
	return (s >= stateMethod && s <= stateHeadersLF) ||
		(s >= stateTrailerStart && s <= stateTrailerEndLF)
}

type headerKind uint8

const (
	headerOther headerKind = iota
	headerContentLength
	headerTransferEncoding
	headerConnection
	headerUpgrade
)

// DefaultMaxHeaderSize bounds the request line and headers of a message
// unless configured otherwise.
const DefaultMaxHeaderSize = 80 * 1024

// Tokenizer is an incremental HTTP/1.1 request tokenizer. It is not safe for
// concurrent use.
type Tokenizer struct {
	h             Handler
	maxHeaderSize int

	state  state
	err    error
	paused bool

	method  Method
	mbuf    [maxMethodLen]byte
	mlen    int
	vbuf    [8]byte
	vlen    int
	minor   int
	hbytes  int
	name    [24]byte
	nameLen int
	kind    headerKind
	val     [64]byte
	valLen  int
	valLong bool

	contentLength int64
	remaining     int64
	chunkDigits   int
	chunked       bool
	teSeen        bool
	connClose     bool
	connKeepAlive bool
	connUpgrade   bool
	upgradeSeen   bool
}

// Option customizes a Tokenizer.
type Option func(*Tokenizer)

// MaxHeaderSize bounds the size of the request line plus headers, and of
// the trailers. Zero or less disables the limit.
func MaxHeaderSize(n int) Option {
	return func(t *Tokenizer) {
		t.maxHeaderSize = n
	}
}

// New builds a Tokenizer reporting to h.
func New(h Handler, opts ...Option) *Tokenizer {
	t := &Tokenizer{}
	t.Init(h, opts...)
	return t
}

// Init prepares t for a new stream, reporting to h.
func (t *Tokenizer) Init(h Handler, opts ...Option) {
	*t = Tokenizer{h: h, maxHeaderSize: DefaultMaxHeaderSize}
	for _, opt := range opts {
		opt(t)
	}
	t.resetMessage()
}

// Reset discards any partial message, error or pause and waits for a new
// message.
func (t *Tokenizer) Reset() {
	t.state = stateStart
	t.err = nil
	t.paused = false
	t.resetMessage()
}

// Err returns the error that stopped the tokenizer, if any.
func (t *Tokenizer) Err() error {
	return t.err
}

// Pause makes the current call to Execute return after the callback that
// called Pause. Execute consumes nothing until Reset is called.
func (t *Tokenizer) Pause() {
	t.paused = true
}

// Paused reports whether Pause was called.
func (t *Tokenizer) Paused() bool {
	return t.paused
}

// Method returns the method of the current message. It is valid from the
// first OnURL until the next OnMessageBegin.
func (t *Tokenizer) Method() Method {
	return t.method
}

// ProtoMinor returns the minor HTTP version of the current message. It is
// valid from OnHeadersComplete until the next OnMessageBegin.
func (t *Tokenizer) ProtoMinor() int {
	return t.minor
}

// ShouldKeepAlive reports whether the connection may carry another request
// after the current one. HTTP/1.1 connections persist unless the client sent
// "Connection: close"; HTTP/1.0 connections only persist with
// "Connection: keep-alive". It is valid from OnHeadersComplete until the
// next OnMessageBegin.
func (t *Tokenizer) ShouldKeepAlive() bool {
	if t.connClose {
		return false
	}
	if t.minor == 0 {
		return t.connKeepAlive
	}
	return true
}

// Upgrade reports whether the client asked to switch protocols, either with
// CONNECT or with an Upgrade header named in Connection.
func (t *Tokenizer) Upgrade() bool {
	return t.method == MethodConnect || (t.upgradeSeen && t.connUpgrade)
}

// Chunked reports whether the current message has a chunked body.
func (t *Tokenizer) Chunked() bool {
	return t.chunked
}

// ContentLength returns the declared length of the current body, or -1 if
// the message did not carry a Content-Length.
func (t *Tokenizer) ContentLength() int64 {
	return t.contentLength
}

func (t *Tokenizer) resetMessage() {
	t.method = MethodUnknown
	t.mlen = 0
	t.vlen = 0
	t.minor = 0
	t.hbytes = 0
	t.nameLen = 0
	t.kind = headerOther
	t.contentLength = -1
	t.remaining = 0
	t.chunkDigits = 0
	t.chunked = false
	t.teSeen = false
	t.connClose = false
	t.connKeepAlive = false
	t.connUpgrade = false
	t.upgradeSeen = false
}

func (t *Tokenizer) fail(i int, err error) int {
	t.err = err
	t.state = stateDead
	return i
}

// Execute tokenizes data and returns the number of bytes consumed. Fewer
// bytes than len(data) are consumed only when the tokenizer fails, in which
// case Err returns the reason, or when a callback paused it.
func (t *Tokenizer) Execute(data []byte) int {
	if t.err != nil || t.paused {
		return 0
	}

	mark := -1
	switch t.state {
	case stateURL, stateField, stateValue:
		mark = 0
	}

	i := 0
	for i < len(data) {
		if t.paused {
			return i
		}

		if t.state.counted() {
			t.hbytes++
			if t.maxHeaderSize > 0 && t.hbytes > t.maxHeaderSize {
				return t.fail(i, ErrHeaderOverflow)
			}
		}

		c := data[i]
		switch t.state {
		case stateStart:
			if c == '\r' || c == '\n' {
				break
			}
			t.resetMessage()
			t.h.OnMessageBegin()
			if !isUpper(c) {
				return t.fail(i, ErrInvalidMethod)
			}
			t.mbuf[0] = c
			t.mlen = 1
			t.hbytes = 1
			t.state = stateMethod

		case stateMethod:
			if c == ' ' {
				t.method = lookupMethod(t.mbuf[:t.mlen])
				if t.method == MethodUnknown {
					return t.fail(i, ErrInvalidMethod)
				}
				t.state = stateURLStart
				break
			}
			if t.mlen == len(t.mbuf) || !isUpper(c) {
				return t.fail(i, ErrInvalidMethod)
			}
			t.mbuf[t.mlen] = c
			t.mlen++

		case stateURLStart:
			if !isURLChar(c) {
				return t.fail(i, ErrInvalidURL)
			}
			mark = i
			t.state = stateURL

		case stateURL:
			if c == ' ' {
				t.h.OnURL(data[mark:i])
				mark = -1
				t.state = stateVersion
				break
			}
			if !isURLChar(c) {
				return t.fail(i, ErrInvalidURL)
			}

		case stateVersion:
			if c == '\r' || c == '\n' {
				switch string(t.vbuf[:t.vlen]) {
				case "HTTP/1.1":
					t.minor = 1
				case "HTTP/1.0":
					t.minor = 0
				default:
					return t.fail(i, ErrInvalidVersion)
				}
				if c == '\r' {
					t.state = stateRequestLineLF
				} else {
					t.state = stateHeaderStart
				}
				break
			}
			if t.vlen == len(t.vbuf) {
				return t.fail(i, ErrInvalidVersion)
			}
			t.vbuf[t.vlen] = c
			t.vlen++

		case stateRequestLineLF:
			if c != '\n' {
				return t.fail(i, ErrInvalidVersion)
			}
			t.state = stateHeaderStart

		case stateHeaderStart:
			switch {
			case c == '\r':
				t.state = stateHeadersLF
			case c == '\n':
				if err := t.headersComplete(); err != nil {
					return t.fail(i, err)
				}
			case isToken(c):
				mark = i
				t.nameLen = 0
				t.appendName(c)
				t.state = stateField
			default:
				return t.fail(i, ErrInvalidHeader)
			}

		case stateField:
			if c == ':' {
				t.h.OnHeaderField(data[mark:i])
				mark = -1
				t.classify()
				t.state = stateValueStart
				break
			}
			if !isToken(c) {
				return t.fail(i, ErrInvalidHeader)
			}
			t.appendName(c)

		case stateValueStart:
			if c == ' ' || c == '\t' {
				break
			}
			mark = i
			t.state = stateValue
			if c == '\r' || c == '\n' {
				if err := t.endValue(data[mark:i], c); err != nil {
					return t.fail(i, err)
				}
				mark = -1
				break
			}
			if c == 0 {
				return t.fail(i, ErrInvalidHeader)
			}
			t.appendValue(c)

		case stateValue:
			if c == '\r' || c == '\n' {
				if err := t.endValue(data[mark:i], c); err != nil {
					return t.fail(i, err)
				}
				mark = -1
				break
			}
			if c == 0 {
				return t.fail(i, ErrInvalidHeader)
			}
			t.appendValue(c)

		case stateValueLF:
			if c != '\n' {
				return t.fail(i, ErrInvalidHeader)
			}
			t.state = stateHeaderStart

		case stateHeadersLF:
			if c != '\n' {
				return t.fail(i, ErrInvalidHeader)
			}
			if err := t.headersComplete(); err != nil {
				return t.fail(i, err)
			}

		case stateBody, stateChunkData:
			n := int64(len(data) - i)
			if n > t.remaining {
				n = t.remaining
			}
			t.h.OnBody(data[i : i+int(n)])
			t.remaining -= n
			i += int(n)
			if t.remaining == 0 {
				if t.state == stateBody {
					t.messageComplete()
				} else {
					t.state = stateChunkDataCR
				}
			}
			continue

		case stateChunkSize:
			if v, ok := unhex(c); ok {
				if t.remaining > math.MaxInt64>>4 {
					return t.fail(i, ErrInvalidChunkSize)
				}
				t.remaining = t.remaining<<4 | int64(v)
				t.chunkDigits++
				break
			}
			if t.chunkDigits == 0 {
				return t.fail(i, ErrInvalidChunkSize)
			}
			switch c {
			case '\r':
				t.state = stateChunkSizeLF
			case '\n':
				t.chunkSizeDone()
			case ';', ' ', '\t':
				t.state = stateChunkExt
			default:
				return t.fail(i, ErrInvalidChunkSize)
			}

		case stateChunkExt:
			switch c {
			case '\r':
				t.state = stateChunkSizeLF
			case '\n':
				t.chunkSizeDone()
			case 0:
				return t.fail(i, ErrInvalidChunkSize)
			}

		case stateChunkSizeLF:
			if c != '\n' {
				return t.fail(i, ErrInvalidChunkSize)
			}
			t.chunkSizeDone()

		case stateChunkDataCR:
			switch c {
			case '\r':
				t.state = stateChunkDataLF
			case '\n':
				t.nextChunk()
			default:
				return t.fail(i, ErrInvalidChunkSize)
			}

		case stateChunkDataLF:
			if c != '\n' {
				return t.fail(i, ErrInvalidChunkSize)
			}
			t.nextChunk()

		case stateTrailerStart:
			switch c {
			case '\r':
				t.state = stateTrailerEndLF
			case '\n':
				t.messageComplete()
			case 0:
				return t.fail(i, ErrInvalidHeader)
			default:
				t.state = stateTrailerLine
			}

		case stateTrailerLine:
			switch c {
			case '\n':
				t.state = stateTrailerStart
			case 0:
				return t.fail(i, ErrInvalidHeader)
			}

		case stateTrailerEndLF:
			if c != '\n' {
				return t.fail(i, ErrInvalidHeader)
			}
			t.messageComplete()

		default:
			return t.fail(i, errors.New("tokenizer: unexpected state"))
		}
		i++
	}

	if mark >= 0 && !t.paused {
		switch t.state {
		case stateURL:
			t.h.OnURL(data[mark:])
		case stateField:
			t.h.OnHeaderField(data[mark:])
		case stateValue:
			t.h.OnHeaderValue(data[mark:])
		}
	}
	return i
}

func (t *Tokenizer) appendName(c byte) {
	if t.nameLen < len(t.name) {
		t.name[t.nameLen] = lower(c)
	}
	t.nameLen++
}

func (t *Tokenizer) classify() {
	t.kind = headerOther
	t.valLen = 0
	t.valLong = false
	if t.nameLen > len(t.name) {
		return
	}
	switch string(t.name[:t.nameLen]) {
	case "content-length":
		t.kind = headerContentLength
	case "transfer-encoding":
		t.kind = headerTransferEncoding
	case "connection":
		t.kind = headerConnection
	case "upgrade":
		t.kind = headerUpgrade
	}
}

func (t *Tokenizer) appendValue(c byte) {
	if t.kind == headerOther {
		return
	}
	if t.valLen == len(t.val) {
		t.valLong = true
		return
	}
	t.val[t.valLen] = lower(c)
	t.valLen++
}

func (t *Tokenizer) endValue(span []byte, c byte) error {
	t.h.OnHeaderValue(span)
	if c == '\r' {
		t.state = stateValueLF
	} else {
		t.state = stateHeaderStart
	}

	v := bytes.TrimRight(t.val[:t.valLen], " \t")
	switch t.kind {
	case headerContentLength:
		if t.valLong || len(v) == 0 {
			return ErrInvalidContentLength
		}
		var n int64
		for _, d := range v {
			if d < '0' || d > '9' || n > (math.MaxInt64-9)/10 {
				return ErrInvalidContentLength
			}
			n = n*10 + int64(d-'0')
		}
		if t.contentLength >= 0 && t.contentLength != n {
			return ErrInvalidContentLength
		}
		t.contentLength = n

	case headerTransferEncoding:
		if t.valLong {
			return ErrInvalidTransferEncoding
		}
		t.teSeen = true
		last := v
		if idx := bytes.LastIndexByte(v, ','); idx >= 0 {
			last = bytes.TrimLeft(v[idx+1:], " \t")
		}
		t.chunked = string(last) == "chunked"

	case headerConnection:
		for len(v) > 0 {
			var tok []byte
			if idx := bytes.IndexByte(v, ','); idx >= 0 {
				tok, v = v[:idx], v[idx+1:]
			} else {
				tok, v = v, nil
			}
			switch string(bytes.Trim(tok, " \t")) {
			case "close":
				t.connClose = true
			case "keep-alive":
				t.connKeepAlive = true
			case "upgrade":
				t.connUpgrade = true
			}
		}

	case headerUpgrade:
		t.upgradeSeen = true
	}
	return nil
}

func (t *Tokenizer) headersComplete() error {
	if t.teSeen {
		if !t.chunked {
			return ErrInvalidTransferEncoding
		}
		if t.contentLength >= 0 {
			return ErrInvalidContentLength
		}
	}

	t.h.OnHeadersComplete()

	switch {
	case t.chunked:
		t.remaining = 0
		t.chunkDigits = 0
		t.state = stateChunkSize
	case t.contentLength > 0:
		t.remaining = t.contentLength
		t.state = stateBody
	default:
		t.messageComplete()
	}
	return nil
}

func (t *Tokenizer) chunkSizeDone() {
	if t.remaining == 0 {
		t.hbytes = 0
		t.state = stateTrailerStart
		return
	}
	t.state = stateChunkData
}

func (t *Tokenizer) nextChunk() {
	t.remaining = 0
	t.chunkDigits = 0
	t.state = stateChunkSize
}

func (t *Tokenizer) messageComplete() {
	t.state = stateStart
	t.h.OnMessageComplete()
}

func isUpper(c byte) bool {
	return c >= 'A' && c <= 'Z'
}

func isURLChar(c byte) bool {
	return c > ' ' && c != 0x7f
}

func lower(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + 'a' - 'A'
	}
	return c
}

func unhex(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

var tokenChars = [256]bool{}

func init() {
	for c := '0'; c <= '9'; c++ {
		tokenChars[c] = true
	}
	for c := 'a'; c <= 'z'; c++ {
		tokenChars[c] = true
		tokenChars[c-'a'+'A'] = true
	}
	for _, c := range "!#$%&'*+-.^_`|~" {
		tokenChars[c] = true
	}
}

func isToken(c byte) bool {
	return tokenChars[c]
}
