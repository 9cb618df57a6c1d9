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

// Package reactor is a small callback-driven event loop.
//
// A Loop runs every callback it is given on a single goroutine. Code that
// runs on the loop may touch loop-owned state without locking, and must never
// block. Blocking work, such as socket reads and writes, happens on helper
// goroutines owned by a Stream, which post their completions back onto the
// loop.
package reactor

import (
	"sync"
	"time"

	"go.uber.org/uhttp/internal/clock"
)

// Loop is a single-goroutine event loop with timers.
type Loop struct {
	clock clock.Clock

	mu      sync.Mutex
	tasks   []func()
	stopped bool
	wake    chan struct{}
	done    chan struct{}

	// The fields below are owned by the loop goroutine.
	running []func()
	timers  timerHeap
	timer   clock.Timer
	armed   time.Time
}

// LoopOption customizes a Loop.
type LoopOption func(*Loop)

// WithClock makes the loop read time and schedule timers using the given
// clock.
func WithClock(c clock.Clock) LoopOption {
	return func(l *Loop) {
		l.clock = c
	}
}

// NewLoop builds a Loop. Call Run to start processing callbacks.
func NewLoop(opts ...LoopOption) *Loop {
	l := &Loop{
		clock: clock.NewReal(),
		wake:  make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Now returns the current time according to the loop's clock.
func (l *Loop) Now() time.Time {
	return l.clock.Now()
}

// Post schedules f to run on the loop goroutine. Callbacks run in the order
// they were posted. Post is safe for concurrent use and returns false if the
// loop has been stopped, in which case f will never run.
func (l *Loop) Post(f func()) bool {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return false
	}
	l.tasks = append(l.tasks, f)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

// Stop asks the loop to exit. Callbacks that were already posted still run.
// Stop does not wait for the loop to exit; use Done for that.
func (l *Loop) Stop() {
	l.mu.Lock()
	l.stopped = true
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Done returns a channel that is closed once Run has returned.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// Run processes callbacks and timers until Stop is called. It must be called
// exactly once.
func (l *Loop) Run() {
	defer close(l.done)
	defer l.disarm()

	for {
		more, stopped := l.runTasks()
		l.runTimers()
		if stopped && !more {
			return
		}
		if more {
			continue
		}

		var timeout <-chan time.Time
		if l.timer != nil && !l.armed.IsZero() {
			timeout = l.timer.C()
		}
		select {
		case <-l.wake:
		case <-timeout:
			l.armed = time.Time{}
		}
	}
}

// runTasks runs one batch of posted callbacks. It reports whether more
// callbacks were posted while the batch ran and whether the loop was stopped.
func (l *Loop) runTasks() (more, stopped bool) {
	l.mu.Lock()
	l.running, l.tasks = l.tasks, l.running[:0]
	l.mu.Unlock()

	for i, f := range l.running {
		l.running[i] = nil
		f()
	}

	l.mu.Lock()
	more, stopped = len(l.tasks) > 0, l.stopped
	l.mu.Unlock()
	return more, stopped
}

func (l *Loop) runTimers() {
	now := l.clock.Now()
	for len(l.timers) > 0 && !l.timers[0].deadline.After(now) {
		t := l.timers.pop()
		t.fn()
	}
	l.arm()
}

// arm points the clock timer at the earliest pending deadline.
func (l *Loop) arm() {
	if len(l.timers) == 0 {
		l.disarm()
		return
	}

	deadline := l.timers[0].deadline
	if deadline.Equal(l.armed) {
		return
	}
	if l.timer == nil {
		l.timer = l.clock.TimerAt(deadline)
	} else {
		clock.Drain(l.timer)
		l.timer.ResetAt(deadline)
	}
	l.armed = deadline
}

func (l *Loop) disarm() {
	if l.timer != nil && !l.armed.IsZero() {
		clock.Drain(l.timer)
	}
	l.armed = time.Time{}
}
