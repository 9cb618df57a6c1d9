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

import "time"

// Timer is a one-shot callback scheduled on a Loop. Timers are meant to be
// embedded in longer-lived objects and initialized once with InitTimer, so
// arming and disarming them does not allocate.
//
// Timer methods must only be called from the loop goroutine.
type Timer struct {
	loop     *Loop
	fn       func()
	deadline time.Time
	index    int
}

// InitTimer binds t to the loop. fn runs on the loop each time the timer
// expires.
func (l *Loop) InitTimer(t *Timer, fn func()) {
	t.loop = l
	t.fn = fn
	t.deadline = time.Time{}
	t.index = -1
}

// Start arms the timer to fire d from now, replacing any earlier deadline.
func (t *Timer) Start(d time.Duration) {
	l := t.loop
	t.deadline = l.clock.Now().Add(d)
	if t.index >= 0 {
		l.timers.fix(t.index)
	} else {
		l.timers.push(t)
	}
}

// Stop disarms the timer. Stopping a timer that is not armed is a no-op.
func (t *Timer) Stop() {
	if t.index < 0 {
		return
	}
	t.loop.timers.remove(t.index)
}

// Active reports whether the timer is armed.
func (t *Timer) Active() bool {
	return t.index >= 0
}

// Deadline returns the time at which an armed timer fires.
func (t *Timer) Deadline() time.Time {
	return t.deadline
}

// timerHeap is a min-heap of timers ordered by deadline. It is hand-rolled
// instead of using container/heap so that it stays free of interface boxing.
type timerHeap []*Timer

func (h timerHeap) less(i, j int) bool {
	return h[i].deadline.Before(h[j].deadline)
}

func (h timerHeap) swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *timerHeap) push(t *Timer) {
	t.index = len(*h)
	*h = append(*h, t)
	h.up(t.index)
}

func (h *timerHeap) pop() *Timer {
	return h.remove(0)
}

func (h *timerHeap) remove(i int) *Timer {
	old := *h
	n := len(old) - 1
	if n != i {
		old.swap(i, n)
		if !h.down(i, n) {
			h.up(i)
		}
	}
	t := old[n]
	old[n] = nil
	*h = old[:n]
	t.index = -1
	return t
}

func (h timerHeap) fix(i int) {
	if !h.down(i, len(h)) {
		h.up(i)
	}
}

func (h timerHeap) up(j int) {
	for {
		i := (j - 1) / 2
		if i == j || !h.less(j, i) {
			break
		}
		h.swap(i, j)
		j = i
	}
}

func (h timerHeap) down(i0, n int) bool {
	i := i0
	for {
		j1 := 2*i + 1
		if j1 >= n || j1 < 0 {
			break
		}
		j := j1
		if j2 := j1 + 1; j2 < n && h.less(j2, j1) {
			j = j2
		}
		if !h.less(j, i) {
			break
		}
		h.swap(i, j)
		i = j
	}
	return i > i0
}
