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
	"go.uber.org/uhttp/internal/freelist"
)

// pools holds the freelists of one event loop. They are only touched from
// that loop's goroutine.
type pools struct {
	requests *freelist.List
	buffers  *freelist.List
	messages *freelist.List
	conns    *freelist.List
}

// PoolStat counts the objects of one pool.
type PoolStat struct {
	// Allocs is the number of objects ever allocated.
	Allocs int
	// Live is the number of objects in use.
	Live int
	// Free is the number of objects waiting to be reused.
	Free int
}

// PoolStats reports the state of the pools of one event loop.
type PoolStats struct {
	Requests PoolStat
	Buffers  PoolStat
	Messages PoolStat
	Conns    PoolStat
}

func poolStat(l *freelist.List) PoolStat {
	s := l.Stats()
	return PoolStat{Allocs: s.Allocs, Live: s.Live, Free: s.Free}
}

func newPools(bufferSize int, obs *observer) pools {
	onAlloc := func(name string) freelist.Option {
		c := obs.poolAllocCounter(name)
		return freelist.OnAlloc(func() { inc(c) })
	}

	return pools{
		requests: freelist.New("request", func() freelist.Item {
			return new(ioRequest)
		}, onAlloc("request")),
		buffers: freelist.New("buffer", func() freelist.Item {
			return &recvBuffer{buf: make([]byte, bufferSize)}
		}, onAlloc("buffer")),
		messages: freelist.New("message", func() freelist.Item {
			return newMessage()
		}, onAlloc("message")),
		conns: freelist.New("conn", func() freelist.Item {
			return newConn()
		}, onAlloc("conn")),
	}
}

func (p *pools) stats() PoolStats {
	return PoolStats{
		Requests: poolStat(p.requests),
		Buffers:  poolStat(p.buffers),
		Messages: poolStat(p.messages),
		Conns:    poolStat(p.conns),
	}
}

// ioRequest is a pending write or shutdown of a connection.
type ioRequest struct {
	freelist.Entry

	conn     *Conn
	msg      *Message
	shutdown bool
}

// Complete is called by the stream once the request was carried out.
func (r *ioRequest) Complete(err error) {
	c, m, shutdown := r.conn, r.msg, r.shutdown
	r.conn, r.msg, r.shutdown = nil, nil, false
	c.w.pools.requests.Put(r)

	if shutdown {
		c.onShutdown(err)
	} else {
		c.onWritten(m, err)
	}
}

// recvBuffer is a buffer a connection reads into.
type recvBuffer struct {
	freelist.Entry

	buf []byte
}
