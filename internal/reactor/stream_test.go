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
	"io"
	"io/ioutil"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/uhttp/internal/testtime"
)

type readResult struct {
	data string
	err  error
}

type recordingReader struct {
	reads  chan readResult
	allocs int
	frees  int
}

func newRecordingReader() *recordingReader {
	return &recordingReader{reads: make(chan readResult, 16)}
}

func (r *recordingReader) AllocBuffer() []byte {
	r.allocs++
	return make([]byte, 8)
}

func (r *recordingReader) OnRead(buf []byte, n int, err error) {
	r.frees++
	if n == 0 && err == nil {
		return
	}
	r.reads <- readResult{data: string(buf[:n]), err: err}
}

func (r *recordingReader) next(t *testing.T) readResult {
	select {
	case res := <-r.reads:
		return res
	case <-time.After(testtime.Timeout):
		require.FailNow(t, "timed out waiting for a read")
		return readResult{}
	}
}

type requestFunc func(error)

func (f requestFunc) Complete(err error) { f(err) }

func newPipeStream(t *testing.T, l *Loop) (*Stream, net.Conn) {
	server, client := net.Pipe()
	s := new(Stream)
	onLoop(t, l, func() { s.Init(l, server) })
	return s, client
}

func closeStream(t *testing.T, l *Loop, s *Stream) {
	closed := make(chan struct{})
	onLoop(t, l, func() { s.Close(func() { close(closed) }) })
	select {
	case <-closed:
	case <-time.After(testtime.Timeout):
		require.FailNow(t, "stream did not close")
	}
}

func TestStreamReads(t *testing.T) {
	defer goleak.VerifyNone(t)

	l := startLoop(t)
	defer stopLoop(t, l)

	s, client := newPipeStream(t, l)
	r := newRecordingReader()
	onLoop(t, l, func() { s.ReadStart(r) })

	go func() {
		client.Write([]byte("hello"))
		client.Write([]byte("0123456789"))
		client.Close()
	}()

	assert.Equal(t, readResult{data: "hello"}, r.next(t))
	assert.Equal(t, readResult{data: "01234567"}, r.next(t))
	assert.Equal(t, readResult{data: "89"}, r.next(t))
	assert.Equal(t, readResult{err: io.EOF}, r.next(t))

	closeStream(t, l, s)
	onLoop(t, l, func() {
		assert.Equal(t, r.allocs, r.frees, "every buffer must be handed back")
	})
}

func TestStreamReadStopHoldsData(t *testing.T) {
	defer goleak.VerifyNone(t)

	l := startLoop(t)
	defer stopLoop(t, l)

	s, client := newPipeStream(t, l)
	defer client.Close()

	r := newRecordingReader()
	onLoop(t, l, func() {
		s.ReadStart(r)
		s.ReadStop()
		assert.False(t, s.IsReading())
	})

	written := make(chan struct{})
	go func() {
		client.Write([]byte("late"))
		close(written)
	}()
	<-written
	settle(t, l)
	assert.Len(t, r.reads, 0, "no data may be delivered while stopped")

	onLoop(t, l, func() { s.ReadStart(r) })
	assert.Equal(t, readResult{data: "late"}, r.next(t))

	closeStream(t, l, s)
	onLoop(t, l, func() { assert.Equal(t, r.allocs, r.frees) })
}

func TestStreamWritesCompleteInOrder(t *testing.T) {
	defer goleak.VerifyNone(t)

	l := startLoop(t)
	defer stopLoop(t, l)

	s, client := newPipeStream(t, l)
	received := make(chan string, 1)
	go func() {
		b, _ := ioutil.ReadAll(client)
		received <- string(b)
	}()

	var order []int
	done := make(chan struct{})
	onLoop(t, l, func() {
		for i, chunk := range []string{"a", "bc", "def"} {
			i := i
			s.Write(requestFunc(func(err error) {
				assert.NoError(t, err)
				order = append(order, i)
			}), net.Buffers{[]byte(chunk), []byte("|")})
		}
		s.Shutdown(requestFunc(func(err error) {
			assert.NoError(t, err)
			order = append(order, -1)
			close(done)
		}))
		assert.False(t, s.IsWritable(), "stream is not writable after shutdown")
	})

	select {
	case <-done:
	case <-time.After(testtime.Timeout):
		require.FailNow(t, "writes did not complete")
	}
	onLoop(t, l, func() { assert.Equal(t, []int{0, 1, 2, -1}, order) })

	closeStream(t, l, s)
	select {
	case got := <-received:
		assert.Equal(t, "a|bc|def|", got)
	case <-time.After(testtime.Timeout):
		require.FailNow(t, "client did not see EOF")
	}
}

func TestStreamCloseCancelsQueuedWrites(t *testing.T) {
	defer goleak.VerifyNone(t)

	l := startLoop(t)
	defer stopLoop(t, l)

	// Nobody reads from the client side so the first write blocks.
	s, client := newPipeStream(t, l)
	defer client.Close()

	var trace []string
	record := func(name string) Request {
		return requestFunc(func(err error) {
			switch err {
			case nil:
				trace = append(trace, name+":ok")
			case ErrCanceled:
				trace = append(trace, name+":canceled")
			default:
				trace = append(trace, name+":failed")
			}
		})
	}

	closed := make(chan struct{})
	onLoop(t, l, func() {
		s.Write(record("first"), net.Buffers{[]byte("blocked")})
	})
	onLoop(t, l, func() {
		s.Write(record("second"), net.Buffers{[]byte("queued")})
		s.Shutdown(record("shutdown"))
		s.Close(func() {
			trace = append(trace, "close")
			close(closed)
		})
		assert.True(t, s.IsClosing())
		s.Close(func() { trace = append(trace, "close again") })
	})

	select {
	case <-closed:
	case <-time.After(testtime.Timeout):
		require.FailNow(t, "stream did not close")
	}

	onLoop(t, l, func() {
		require.Len(t, trace, 4)
		assert.Contains(t, []string{"first:failed", "first:canceled"}, trace[0])
		assert.Equal(t, []string{"second:canceled", "shutdown:canceled", "close"}, trace[1:])
	})
}

func TestStreamWriteAfterClose(t *testing.T) {
	l := startLoop(t)
	defer stopLoop(t, l)

	s, client := newPipeStream(t, l)
	defer client.Close()
	closeStream(t, l, s)

	got := make(chan error, 1)
	onLoop(t, l, func() {
		s.Write(requestFunc(func(err error) { got <- err }), net.Buffers{[]byte("x")})
	})
	select {
	case err := <-got:
		assert.Equal(t, ErrCanceled, err)
	case <-time.After(testtime.Timeout):
		assert.Fail(t, "write was never completed")
	}
}

func TestStreamReuse(t *testing.T) {
	defer goleak.VerifyNone(t)

	l := startLoop(t)
	defer stopLoop(t, l)

	s := new(Stream)
	for i := 0; i < 3; i++ {
		server, client := net.Pipe()
		onLoop(t, l, func() { s.Init(l, server) })

		r := newRecordingReader()
		onLoop(t, l, func() { s.ReadStart(r) })
		go client.Write([]byte("ping"))
		assert.Equal(t, readResult{data: "ping"}, r.next(t))

		closeStream(t, l, s)
		client.Close()
		onLoop(t, l, func() { assert.Equal(t, r.allocs, r.frees) })
	}
}
