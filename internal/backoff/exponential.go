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

// Package backoff computes jittered retry delays.
package backoff

import (
	"errors"
	"math/rand"
	"time"

	"go.uber.org/multierr"
)

// Option configures an Exponential backoff.
type Option func(*options)

type options struct {
	base, min, max time.Duration
	rand           *rand.Rand
}

func (o options) validate() (err error) {
	if o.base <= 0 {
		err = multierr.Append(err, errors.New("invalid base backoff: must be greater than zero"))
	}
	if o.min < 0 {
		err = multierr.Append(err, errors.New("invalid min backoff: must not be negative"))
	}
	if o.max < o.min {
		err = multierr.Append(err, errors.New("invalid max backoff: must not be less than min"))
	}
	return err
}

// BaseJump sets the delay of the first attempt before jitter.
func BaseJump(d time.Duration) Option {
	return func(o *options) {
		o.base = d
	}
}

// MinBackoff sets the smallest delay ever returned.
func MinBackoff(d time.Duration) Option {
	return func(o *options) {
		o.min = d
	}
}

// MaxBackoff sets the largest delay ever returned.
func MaxBackoff(d time.Duration) Option {
	return func(o *options) {
		o.max = d
	}
}

func randSource(r *rand.Rand) Option {
	return func(o *options) {
		o.rand = r
	}
}

// Exponential doubles the range of its delays with every attempt and picks a
// delay uniformly from that range, clamped to [min, max]. It is not safe for
// concurrent use.
type Exponential struct {
	base time.Duration
	min  time.Duration
	span int64
	rand *rand.Rand
}

// NewExponential builds an Exponential backoff. By default the base delay
// is 5ms and delays never exceed one second.
func NewExponential(opts ...Option) (*Exponential, error) {
	o := options{
		base: 5 * time.Millisecond,
		max:  time.Second,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if err := o.validate(); err != nil {
		return nil, err
	}
	if o.rand == nil {
		o.rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Exponential{
		base: o.base,
		min:  o.min,
		span: int64(o.max - o.min),
		rand: o.rand,
	}, nil
}

// Duration returns the delay to wait before the given attempt, counting
// from zero.
func (e *Exponential) Duration(attempt uint) time.Duration {
	limit := int64(e.base) << attempt
	// Overflowing shifts go negative or to zero.
	if attempt >= 63 || limit > e.span || limit <= 0 {
		limit = e.span
	}
	return e.min + time.Duration(e.rand.Int63n(limit+1))
}
