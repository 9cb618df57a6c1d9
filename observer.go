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
	"go.uber.org/net/metrics"
	"go.uber.org/zap"
)

const _poolTag = "pool"

// observer keeps the metrics of a server. Its methods are safe for
// concurrent use by the event loops.
type observer struct {
	accepted    *metrics.Counter
	closed      *metrics.Counter
	active      *metrics.Gauge
	requests    *metrics.Counter
	parseErrors *metrics.Counter
	ioErrors    *metrics.Counter
	timeouts    *metrics.Counter
	poolAllocs  *metrics.CounterVector
}

func newObserver(meter *metrics.Scope, logger *zap.Logger) *observer {
	tags := metrics.Tags{"component": _packageName}

	accepted, err := meter.Counter(metrics.Spec{
		Name:      "connections_accepted",
		Help:      "Total number of connections accepted.",
		ConstTags: tags,
	})
	if err != nil {
		logger.Error("Failed to create accepted connections counter", zap.Error(err))
	}

	closed, err := meter.Counter(metrics.Spec{
		Name:      "connections_closed",
		Help:      "Total number of connections closed.",
		ConstTags: tags,
	})
	if err != nil {
		logger.Error("Failed to create closed connections counter", zap.Error(err))
	}

	active, err := meter.Gauge(metrics.Spec{
		Name:      "connections_active",
		Help:      "Number of open connections.",
		ConstTags: tags,
	})
	if err != nil {
		logger.Error("Failed to create active connections gauge", zap.Error(err))
	}

	requests, err := meter.Counter(metrics.Spec{
		Name:      "requests",
		Help:      "Total number of requests received.",
		ConstTags: tags,
	})
	if err != nil {
		logger.Error("Failed to create requests counter", zap.Error(err))
	}

	parseErrors, err := meter.Counter(metrics.Spec{
		Name:      "protocol_errors",
		Help:      "Total number of connections closed because of malformed requests.",
		ConstTags: tags,
	})
	if err != nil {
		logger.Error("Failed to create protocol errors counter", zap.Error(err))
	}

	ioErrors, err := meter.Counter(metrics.Spec{
		Name:      "io_errors",
		Help:      "Total number of connections closed because of unexpected I/O errors.",
		ConstTags: tags,
	})
	if err != nil {
		logger.Error("Failed to create I/O errors counter", zap.Error(err))
	}

	timeouts, err := meter.Counter(metrics.Spec{
		Name:      "idle_timeouts",
		Help:      "Total number of connections closed for inactivity.",
		ConstTags: tags,
	})
	if err != nil {
		logger.Error("Failed to create idle timeouts counter", zap.Error(err))
	}

	poolAllocs, err := meter.CounterVector(metrics.Spec{
		Name:      "pool_allocations",
		Help:      "Total number of objects allocated by the per-loop pools.",
		ConstTags: tags,
		VarTags:   []string{_poolTag},
	})
	if err != nil {
		logger.Error("Failed to create pool allocations counter", zap.Error(err))
	}

	return &observer{
		accepted:    accepted,
		closed:      closed,
		active:      active,
		requests:    requests,
		parseErrors: parseErrors,
		ioErrors:    ioErrors,
		timeouts:    timeouts,
		poolAllocs:  poolAllocs,
	}
}

func inc(c *metrics.Counter) {
	if c != nil {
		c.Inc()
	}
}

func (o *observer) connAccepted() {
	inc(o.accepted)
	if o.active != nil {
		o.active.Inc()
	}
}

func (o *observer) connClosed() {
	inc(o.closed)
	if o.active != nil {
		o.active.Dec()
	}
}

func (o *observer) request()     { inc(o.requests) }
func (o *observer) parseError()  { inc(o.parseErrors) }
func (o *observer) ioError()     { inc(o.ioErrors) }
func (o *observer) idleTimeout() { inc(o.timeouts) }

// poolAllocCounter returns the counter of allocations for the named pool.
func (o *observer) poolAllocCounter(pool string) *metrics.Counter {
	if o.poolAllocs == nil {
		return nil
	}
	c, err := o.poolAllocs.Get(_poolTag, pool)
	if err != nil {
		return nil
	}
	return c
}
