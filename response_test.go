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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/uhttp/internal/freelist"
	"go.uber.org/uhttp/internal/tokenizer"
)

// newDetachedMessage returns a message that is not bound to a connection,
// for tests that only look at the bytes queued for its response.
func newDetachedMessage(method tokenizer.Method) *Message {
	l := freelist.New("message", func() freelist.Item { return newMessage() })
	m := l.Get().(*Message)
	m.method = method
	return m
}

func queued(m *Message) string {
	var b bytes.Buffer
	for _, p := range m.buffers() {
		b.Write(p)
	}
	return b.String()
}

func TestWriteHeadFraming(t *testing.T) {
	tests := []struct {
		msg    string
		method tokenizer.Method
		status int
		header Header
		body   []string
		want   string
	}{
		{
			msg:    "chunked when no framing is declared",
			method: tokenizer.MethodGet,
			status: 200,
			body:   []string{"hello", "", " world"},
			want: "HTTP/1.1 200 OK\r\n" +
				"Transfer-Encoding: chunked\r\n\r\n" +
				"5\r\nhello\r\n" +
				"6\r\n world\r\n",
		},
		{
			msg:    "content length disables chunking",
			method: tokenizer.MethodGet,
			status: 201,
			header: Header{{"Content-Length", "5"}, {"X-Custom", "yes"}},
			body:   []string{"he", "llo"},
			want: "HTTP/1.1 201 Created\r\n" +
				"Content-Length: 5\r\n" +
				"X-Custom: yes\r\n\r\n" +
				"hello",
		},
		{
			msg:    "declared chunked encoding",
			method: tokenizer.MethodPost,
			status: 200,
			header: Header{{"transfer-encoding", "chunked"}},
			body:   []string{"abcdefghijklmnopq"},
			want: "HTTP/1.1 200 OK\r\n" +
				"transfer-encoding: chunked\r\n\r\n" +
				"11\r\nabcdefghijklmnopq\r\n",
		},
		{
			msg:    "HEAD responses have no body",
			method: tokenizer.MethodHead,
			status: 200,
			body:   []string{"ignored"},
			want:   "HTTP/1.1 200 OK\r\n\r\n",
		},
		{
			msg:    "no content",
			method: tokenizer.MethodDelete,
			status: 204,
			body:   []string{"ignored"},
			want:   "HTTP/1.1 204 No Content\r\n\r\n",
		},
		{
			msg:    "unknown status",
			method: tokenizer.MethodGet,
			status: 799,
			header: Header{{"Content-Length", "0"}},
			want:   "HTTP/1.1 799 Unknown\r\nContent-Length: 0\r\n\r\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			m := newDetachedMessage(tt.method)
			m.WriteHead(tt.status, tt.header)
			for _, b := range tt.body {
				n, err := m.Write([]byte(b))
				require.NoError(t, err)
				assert.Equal(t, len(b), n)
			}
			assert.Equal(t, tt.want, queued(m))
		})
	}
}

func TestWriteCopiesAndAppendDoesNot(t *testing.T) {
	m := newDetachedMessage(tokenizer.MethodGet)
	m.WriteHead(200, Header{{"Content-Length", "6"}})

	copied := []byte("abc")
	shared := []byte("def")
	m.Write(copied)
	m.Append(shared)
	copied[0] = 'X'
	shared[0] = 'Y'

	assert.Equal(t, "HTTP/1.1 200 OK\r\nContent-Length: 6\r\n\r\nabcYef", queued(m))
	assert.Len(t, m.buffers(), 2, "scratch writes must be coalesced")
}

func TestImplicitHead(t *testing.T) {
	m := newDetachedMessage(tokenizer.MethodGet)
	_, err := m.WriteString("hi")
	require.NoError(t, err)
	assert.Equal(t, "HTTP/1.1 200 OK\r\nTransfer-Encoding: chunked\r\n\r\n2\r\nhi\r\n", queued(m))
}

func TestWriteHeadTwicePanics(t *testing.T) {
	m := newDetachedMessage(tokenizer.MethodGet)
	m.WriteHead(200, nil)
	assert.PanicsWithValue(t, "uhttp: WriteHead called twice", func() {
		m.WriteHead(500, nil)
	})
}

func TestSendFraming(t *testing.T) {
	tests := []struct {
		msg    string
		status int
		header Header
		body   string
		want   string
	}{
		{
			msg:  "adds content length",
			body: "Hello\n",
			want: "HTTP/1.1 200 OK\r\nContent-Length: 6\r\n\r\nHello\n",
		},
		{
			msg:    "keeps declared content length",
			header: Header{{"Content-Length", "6"}},
			body:   "Hello\n",
			want:   "HTTP/1.1 200 OK\r\nContent-Length: 6\r\n\r\nHello\n",
		},
		{
			msg:    "declared chunked encoding",
			header: Header{{"Transfer-Encoding", "chunked"}},
			body:   "Hello\n",
			want:   "HTTP/1.1 200 OK\r\nTransfer-Encoding: chunked\r\n\r\n6\r\nHello\n\r\n0\r\n\r\n",
		},
		{
			msg:  "empty body",
			want: "HTTP/1.1 200 OK\r\nContent-Length: 0\r\n\r\n",
		},
		{
			msg:    "no content",
			status: 204,
			want:   "HTTP/1.1 204 No Content\r\n\r\n",
		},
		{
			msg:    "no content drops body",
			status: 204,
			body:   "Hello\n",
			want:   "HTTP/1.1 204 No Content\r\n\r\n",
		},
		{
			msg:    "informational",
			status: 101,
			header: Header{{"Upgrade", "websocket"}, {"Connection", "Upgrade"}},
			want:   "HTTP/1.1 101 Switching Protocols\r\nUpgrade: websocket\r\nConnection: Upgrade\r\n\r\n",
		},
		{
			msg:    "not modified keeps content length",
			status: 304,
			want:   "HTTP/1.1 304 Not Modified\r\nContent-Length: 0\r\n\r\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			status := tt.status
			if status == 0 {
				status = 200
			}
			m := newDetachedMessage(tokenizer.MethodGet)
			m.writeHead(status, tt.header, len(tt.body))
			if tt.body != "" {
				m.WriteString(tt.body)
			}
			if m.chunked {
				off := len(m.scratch)
				m.scratch = append(m.scratch, "0\r\n\r\n"...)
				m.addScratch(off)
			}
			assert.Equal(t, tt.want, queued(m))
		})
	}
}

func TestStatusText(t *testing.T) {
	assert.Equal(t, "OK", StatusText(200))
	assert.Equal(t, "Not Found", StatusText(404))
	assert.Equal(t, "Unknown", StatusText(299))
	assert.Equal(t, "Unknown", StatusText(-1))

	assert.Equal(t, "HTTP/1.1 404 Not Found\r\n", string(appendStatusLine(nil, 404)))
	assert.Equal(t, "HTTP/1.1 1000 Unknown\r\n", string(appendStatusLine(nil, 1000)))
}
