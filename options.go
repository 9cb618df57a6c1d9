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
	opentracing "github.com/opentracing/opentracing-go"
	"github.com/uber-go/tally"
	"go.uber.org/net/metrics"
	"go.uber.org/uhttp/internal/clock"
	"go.uber.org/zap"
)

// ServerOption customizes a Server.
type ServerOption func(*serverOptions)

type serverOptions struct {
	logger *zap.Logger
	meter  *metrics.Scope
	tally  tally.Scope
	tracer opentracing.Tracer
	clock  clock.Clock
}

func newServerOptions(opts []ServerOption) serverOptions {
	o := serverOptions{
		logger: zap.NewNop(),
		tracer: opentracing.GlobalTracer(),
		clock:  clock.NewReal(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Logger sets a logger to use for internal logging.
//
// The default is to not write any logs.
func Logger(logger *zap.Logger) ServerOption {
	return func(o *serverOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Meter sets the scope the server registers its metrics on.
//
// By default, the server keeps its metrics on a private root, available
// through Server.Metrics.
func Meter(meter *metrics.Scope) ServerOption {
	return func(o *serverOptions) {
		o.meter = meter
	}
}

// Tally pushes the metrics of the server to a Tally scope, for M3 or
// StatsD-based systems. It has no effect together with Meter, whose owner
// is in charge of pushing.
func Tally(scope tally.Scope) ServerOption {
	return func(o *serverOptions) {
		o.tally = scope
	}
}

// Tracer specifies the tracer used to record a span for every request.
//
// By default, opentracing.GlobalTracer() is used.
func Tracer(tracer opentracing.Tracer) ServerOption {
	return func(o *serverOptions) {
		o.tracer = tracer
	}
}

// withClock drives the timers of the server from the given clock.
func withClock(c clock.Clock) ServerOption {
	return func(o *serverOptions) {
		o.clock = c
	}
}
