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

package clock

import (
	"container/heap"
	"sync"
	"time"
)

// FakeClock is a Clock that only moves when told to. Timers created from it
// fire synchronously from Add and Set.
type FakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers timers
}

var _ Clock = (*FakeClock)(nil)

// NewFake returns a fake clock set to the Unix epoch.
func NewFake() *FakeClock {
	return &FakeClock{now: time.Unix(0, 0)}
}

// Now returns the current time of the fake clock.
func (fc *FakeClock) Now() time.Time {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return fc.now
}

// Add moves the clock forward, firing every timer whose deadline is reached.
func (fc *FakeClock) Add(d time.Duration) {
	fc.mu.Lock()
	fc.advanceLocked(fc.now.Add(d))
	fc.mu.Unlock()
}

// Set moves the clock to the given time if it is in the future.
func (fc *FakeClock) Set(t time.Time) {
	fc.mu.Lock()
	fc.advanceLocked(t)
	fc.mu.Unlock()
}

// Pending returns the number of timers that have not fired or been stopped.
func (fc *FakeClock) Pending() int {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return len(fc.timers)
}

func (fc *FakeClock) advanceLocked(end time.Time) {
	if end.After(fc.now) {
		fc.now = end
	}
	fc.fireLocked()
}

func (fc *FakeClock) fireLocked() {
	for len(fc.timers) > 0 && !fc.timers[0].deadline.After(fc.now) {
		t := heap.Pop(&fc.timers).(*FakeTimer)
		select {
		case t.c <- t.deadline:
		default:
		}
	}
}

// TimerAt returns a timer that fires once the clock reaches deadline.
func (fc *FakeClock) TimerAt(deadline time.Time) Timer {
	return fc.FakeTimerAt(deadline)
}

// FakeTimerAt is TimerAt exposing the concrete timer type.
func (fc *FakeClock) FakeTimerAt(deadline time.Time) *FakeTimer {
	t := &FakeTimer{
		c:        make(chan time.Time, 1),
		clock:    fc,
		deadline: deadline,
		index:    -1,
	}
	fc.mu.Lock()
	heap.Push(&fc.timers, t)
	fc.fireLocked()
	fc.mu.Unlock()
	return t
}

// FakeTimer is a timer driven by a FakeClock.
type FakeTimer struct {
	c        chan time.Time
	clock    *FakeClock
	deadline time.Time
	index    int
}

// C returns the channel the timer fires on.
func (t *FakeTimer) C() <-chan time.Time {
	return t.c
}

// Stop removes the timer from the clock.
func (t *FakeTimer) Stop() bool {
	fc := t.clock
	fc.mu.Lock()
	defer fc.mu.Unlock()

	if t.index < 0 {
		return false
	}
	heap.Remove(&fc.timers, t.index)
	return true
}

// ResetAt reschedules the timer.
func (t *FakeTimer) ResetAt(deadline time.Time) bool {
	fc := t.clock
	fc.mu.Lock()
	defer fc.mu.Unlock()

	active := t.index >= 0
	t.deadline = deadline
	if active {
		heap.Fix(&fc.timers, t.index)
	} else {
		heap.Push(&fc.timers, t)
	}
	fc.fireLocked()
	return active
}
