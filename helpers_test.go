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
	"bufio"
	"context"
	"errors"
	"io/ioutil"
	"net"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/uhttp/internal/clock"
	"go.uber.org/uhttp/internal/testtime"
)

var errListenerClosed = errors.New("pipe listener closed")

// pipeListener hands out in-memory connections.
type pipeListener struct {
	conns chan net.Conn
	done  chan struct{}
	once  sync.Once
}

func newPipeListener() *pipeListener {
	return &pipeListener{
		conns: make(chan net.Conn),
		done:  make(chan struct{}),
	}
}

func (l *pipeListener) Accept() (net.Conn, error) {
	select {
	case c := <-l.conns:
		return c, nil
	case <-l.done:
		return nil, errListenerClosed
	}
}

func (l *pipeListener) Close() error {
	l.once.Do(func() { close(l.done) })
	return nil
}

func (l *pipeListener) Addr() net.Addr { return pipeAddr{} }

func (l *pipeListener) Dial() (net.Conn, error) {
	server, client := net.Pipe()
	select {
	case l.conns <- server:
		return client, nil
	case <-l.done:
		return nil, errListenerClosed
	}
}

type pipeAddr struct{}

func (pipeAddr) Network() string { return "pipe" }
func (pipeAddr) String() string  { return "pipe" }

// recorder is a Handler that records a description of every event.
type recorder struct {
	events  chan string
	onEvent func(Event)

	mu   sync.Mutex
	last *Conn
}

func newRecorder(onEvent func(Event)) *recorder {
	return &recorder{
		events:  make(chan string, 1024),
		onEvent: onEvent,
	}
}

func (r *recorder) HandleEvent(e Event) {
	desc := describe(e)
	if e.Type == EventOpen {
		r.mu.Lock()
		r.last = e.Conn
		r.mu.Unlock()
	}
	if r.onEvent != nil {
		r.onEvent(e)
	}
	r.events <- desc
}

// conn returns the connection of the latest OPEN event.
func (r *recorder) conn() *Conn {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

func (r *recorder) next(t *testing.T) string {
	select {
	case ev := <-r.events:
		return ev
	case <-time.After(testtime.Timeout):
		t.Fatal("timed out waiting for an event")
		return ""
	}
}

func (r *recorder) expect(t *testing.T, want ...string) {
	for _, w := range want {
		require.Equal(t, w, r.next(t))
	}
}

// expectNone asserts that no event was recorded so far.
func (r *recorder) expectNone(t *testing.T) {
	select {
	case ev := <-r.events:
		t.Fatalf("unexpected event %q", ev)
	default:
	}
}

func describe(e Event) string {
	s := e.Type.String()
	if e.Message != nil {
		s += " " + e.Message.URL()
	}
	if e.Type == EventData {
		s += " " + string(e.Data)
	}
	return s
}

type testServer struct {
	*Server

	ln    *pipeListener
	clock *clock.FakeClock
}

func newTestServer(t *testing.T, cfg Config, h Handler, opts ...ServerOption) *testServer {
	clk := clock.NewFake()
	s, err := NewServer(cfg, h, append(opts, withClock(clk))...)
	require.NoError(t, err)

	ln := newPipeListener()
	require.NoError(t, s.Serve(ln))
	return &testServer{Server: s, ln: ln, clock: clk}
}

func (s *testServer) dial(t *testing.T) (net.Conn, *bufio.Reader) {
	c, err := s.ln.Dial()
	require.NoError(t, err)
	require.NoError(t, c.SetDeadline(time.Now().Add(testtime.Timeout)))
	return c, bufio.NewReader(c)
}

func (s *testServer) stop(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), testtime.Timeout)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
}

// advanceUntil moves the clock forward by step until the recorder sees
// want. Other events fail the test.
func (s *testServer) advanceUntil(t *testing.T, r *recorder, step time.Duration, want string) {
	timeout := time.After(testtime.Timeout)
	for {
		s.clock.Add(step)
		select {
		case ev := <-r.events:
			require.Equal(t, want, ev)
			return
		case <-time.After(testtime.Millisecond):
		case <-timeout:
			t.Fatalf("timed out waiting for %q", want)
		}
	}
}

// onLoop runs f on the event loop of c and waits for it.
func onLoop(t *testing.T, c *Conn, f func()) {
	done := make(chan struct{})
	require.True(t, c.Post(func() {
		defer close(done)
		f()
	}), "event loop stopped")

	select {
	case <-done:
	case <-time.After(testtime.Timeout):
		t.Fatal("timed out waiting for the event loop")
	}
}

// settle waits until the loop of c ran its expired timers.
func settle(t *testing.T, c *Conn) {
	onLoop(t, c, func() {})
	onLoop(t, c, func() {})
}

func send(t *testing.T, c net.Conn, req string) {
	_, err := c.Write([]byte(req))
	require.NoError(t, err)
}

func readResponse(t *testing.T, br *bufio.Reader) (*http.Response, string) {
	res, err := http.ReadResponse(br, nil)
	require.NoError(t, err)
	body, err := ioutil.ReadAll(res.Body)
	require.NoError(t, err)
	require.NoError(t, res.Body.Close())
	return res, string(body)
}

func assertPoolsDrained(t *testing.T, s *testServer) {
	stats, err := s.PoolStats()
	require.NoError(t, err)
	for i, st := range stats {
		require.Equal(t, 0, st.Conns.Live, "live connections on loop %d", i)
		require.Equal(t, 0, st.Messages.Live, "live messages on loop %d", i)
		require.Equal(t, 0, st.Buffers.Live, "live buffers on loop %d", i)
		require.Equal(t, 0, st.Requests.Live, "live requests on loop %d", i)
	}
}
