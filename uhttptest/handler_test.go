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

package uhttptest

import (
	"bufio"
	"context"
	"net"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/uhttp"
)

func TestMockHandlerSeesPipelinedRequests(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	closed := make(chan struct{})
	respond := func(e uhttp.Event) {
		e.Message.Send(200, nil, []byte(e.Message.URL()))
	}

	h := NewMockHandler(mockCtrl)
	gomock.InOrder(
		h.EXPECT().HandleEvent(IsEvent(uhttp.EventOpen)),
		h.EXPECT().HandleEvent(IsMessageEvent(uhttp.EventRequest, "/a")),
		h.EXPECT().HandleEvent(IsMessageEvent(uhttp.EventEnd, "/a")).Do(respond),
		h.EXPECT().HandleEvent(IsMessageEvent(uhttp.EventRequest, "/b")),
		h.EXPECT().HandleEvent(IsMessageEvent(uhttp.EventEnd, "/b")).Do(respond),
		h.EXPECT().HandleEvent(IsEvent(uhttp.EventClose)).Do(func(uhttp.Event) {
			close(closed)
		}),
	)

	s, err := uhttp.Listen(0, "127.0.0.1", 0, h)
	require.NoError(t, err)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		assert.NoError(t, s.Stop(ctx))
	}()

	conn, err := net.Dial("tcp", s.Addr().String())
	require.NoError(t, err)
	require.NoError(t, conn.SetDeadline(time.Now().Add(5*time.Second)))

	_, err = conn.Write([]byte(Pipeline("/a", "/b")))
	require.NoError(t, err)

	res, err := ReadResponses(bufio.NewReader(conn), 2)
	require.NoError(t, err)
	assert.Equal(t, "/a", res[0].Body)
	assert.Equal(t, "/b", res[1].Body)
	assert.Equal(t, "2", res[1].Header.Get("Content-Length"))

	require.NoError(t, conn.Close())
	select {
	case <-closed:
	case <-time.After(5 * time.Second):
		t.Fatal("connection was not closed")
	}
}

func TestEventMatcherString(t *testing.T) {
	assert.Equal(t, "is OPEN event", IsEvent(uhttp.EventOpen).String())
	assert.Equal(t, `is END event for "/x"`, IsMessageEvent(uhttp.EventEnd, "/x").String())
	assert.False(t, IsEvent(uhttp.EventOpen).Matches(uhttp.Event{Type: uhttp.EventClose}))
	assert.False(t, IsMessageEvent(uhttp.EventEnd, "/x").Matches(uhttp.Event{Type: uhttp.EventEnd}))
}
