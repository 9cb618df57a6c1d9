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

// Package uhttpfx runs a uhttp.Server in an Fx application.
//
// The application provides a uhttp.Config and a uhttp.Handler. The server
// starts listening when the application starts and is stopped with it.
package uhttpfx

import (
	"context"

	opentracing "github.com/opentracing/opentracing-go"
	"github.com/uber-go/tally"
	"go.uber.org/fx"
	"go.uber.org/net/metrics"
	"go.uber.org/uhttp"
	"go.uber.org/zap"
)

// Module provides a *uhttp.Server bound to the application's lifecycle.
var Module = fx.Options(
	fx.Provide(NewServer),
	fx.Invoke(func(*uhttp.Server) {}),
)

// ServerParams defines the dependencies of this module.
type ServerParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    uhttp.Config
	Handler   uhttp.Handler
	Logger    *zap.Logger        `optional:"true"`
	Tracer    opentracing.Tracer `optional:"true"`
	Meter     *metrics.Scope     `optional:"true"`
	Tally     tally.Scope        `optional:"true"`
}

// ServerResult defines the values produced by this module.
type ServerResult struct {
	fx.Out

	Server *uhttp.Server
}

// NewServer produces a uhttp.Server that starts and stops with the
// application.
func NewServer(p ServerParams) (ServerResult, error) {
	var opts []uhttp.ServerOption
	if p.Logger != nil {
		opts = append(opts, uhttp.Logger(p.Logger))
	}
	if p.Tracer != nil {
		opts = append(opts, uhttp.Tracer(p.Tracer))
	}
	if p.Meter != nil {
		opts = append(opts, uhttp.Meter(p.Meter))
	}
	if p.Tally != nil {
		opts = append(opts, uhttp.Tally(p.Tally))
	}

	s, err := uhttp.NewServer(p.Config, p.Handler, opts...)
	if err != nil {
		return ServerResult{}, err
	}

	p.Lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error {
			return s.Start()
		},
		OnStop: func(ctx context.Context) error {
			return s.Stop(ctx)
		},
	})
	return ServerResult{Server: s}, nil
}
