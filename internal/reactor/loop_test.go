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

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/uhttp/internal/clock"
	"go.uber.org/uhttp/internal/testtime"
)

func startLoop(t *testing.T, opts ...LoopOption) *Loop {
	l := NewLoop(opts...)
	go l.Run()
	return l
}

func stopLoop(t *testing.T, l *Loop) {
	l.Stop()
	select {
	case <-l.Done():
	case <-time.After(testtime.Timeout):
		require.FailNow(t, "loop did not stop")
	}
}

// onLoop runs f on the loop and waits for it to return.
func onLoop(t *testing.T, l *Loop, f func()) {
	done := make(chan struct{})
	require.True(t, l.Post(func() {
		f()
		close(done)
	}), "loop already stopped")

	select {
	case <-done:
	case <-time.After(testtime.Timeout):
		require.FailNow(t, "timed out waiting for the loop")
	}
}

// settle gives the loop two full iterations to process anything that was
// pending, like a fired clock timer.
func settle(t *testing.T, l *Loop) {
	onLoop(t, l, func() {})
	onLoop(t, l, func() {})
}

func TestLoopRunsCallbacksInOrder(t *testing.T) {
	defer goleak.VerifyNone(t)

	l := startLoop(t)
	defer stopLoop(t, l)

	var got []int
	for i := 0; i < 100; i++ {
		i := i
		l.Post(func() { got = append(got, i) })
	}

	onLoop(t, l, func() {
		require.Len(t, got, 100)
		for i, v := range got {
			assert.Equal(t, i, v)
		}
	})
}

func TestLoopCallbacksMayPost(t *testing.T) {
	l := startLoop(t)
	defer stopLoop(t, l)

	done := make(chan []string, 1)
	var trace []string
	l.Post(func() {
		trace = append(trace, "outer")
		l.Post(func() {
			trace = append(trace, "inner")
			done <- trace
		})
		trace = append(trace, "outer done")
	})

	select {
	case got := <-done:
		assert.Equal(t, []string{"outer", "outer done", "inner"}, got)
	case <-time.After(testtime.Timeout):
		assert.Fail(t, "timed out")
	}
}

func TestLoopPostAfterStop(t *testing.T) {
	l := startLoop(t)

	ran := make(chan struct{})
	require.True(t, l.Post(func() { close(ran) }))
	stopLoop(t, l)

	select {
	case <-ran:
	default:
		assert.Fail(t, "callback posted before Stop did not run")
	}
	assert.False(t, l.Post(func() {}))
}

func TestTimerFires(t *testing.T) {
	clk := clock.NewFake()
	l := startLoop(t, WithClock(clk))
	defer stopLoop(t, l)

	fired := make(chan time.Time, 1)
	var timer Timer
	onLoop(t, l, func() {
		l.InitTimer(&timer, func() { fired <- l.Now() })
		timer.Start(10 * time.Millisecond)
		assert.True(t, timer.Active())
	})

	clk.Add(9 * time.Millisecond)
	settle(t, l)
	select {
	case <-fired:
		require.FailNow(t, "timer fired early")
	default:
	}

	clk.Add(time.Millisecond)
	select {
	case now := <-fired:
		assert.Equal(t, time.Unix(0, 0).Add(10*time.Millisecond), now)
	case <-time.After(testtime.Timeout):
		require.FailNow(t, "timer did not fire")
	}
	onLoop(t, l, func() { assert.False(t, timer.Active()) })
}

func TestTimerRestartReplacesDeadline(t *testing.T) {
	clk := clock.NewFake()
	l := startLoop(t, WithClock(clk))
	defer stopLoop(t, l)

	fired := make(chan struct{}, 10)
	var timer Timer
	onLoop(t, l, func() {
		l.InitTimer(&timer, func() { fired <- struct{}{} })
		timer.Start(10 * time.Millisecond)
		timer.Start(10 * time.Millisecond)
		timer.Start(20 * time.Millisecond)
	})

	clk.Add(10 * time.Millisecond)
	settle(t, l)
	assert.Len(t, fired, 0)

	clk.Add(10 * time.Millisecond)
	select {
	case <-fired:
	case <-time.After(testtime.Timeout):
		require.FailNow(t, "timer did not fire")
	}

	clk.Add(time.Second)
	settle(t, l)
	assert.Len(t, fired, 0, "timer must fire once per Start")
}

func TestTimerStop(t *testing.T) {
	clk := clock.NewFake()
	l := startLoop(t, WithClock(clk))
	defer stopLoop(t, l)

	fired := make(chan struct{}, 1)
	var timer Timer
	onLoop(t, l, func() {
		l.InitTimer(&timer, func() { fired <- struct{}{} })
		timer.Start(time.Millisecond)
		timer.Stop()
		timer.Stop()
	})

	clk.Add(time.Second)
	settle(t, l)
	assert.Len(t, fired, 0)
}

func TestTimersFireInDeadlineOrder(t *testing.T) {
	clk := clock.NewFake()
	l := startLoop(t, WithClock(clk))
	defer stopLoop(t, l)

	delays := []int{5, 1, 4, 2, 3}
	timers := make([]Timer, len(delays))
	var got []int
	done := make(chan struct{})
	onLoop(t, l, func() {
		for i, d := range delays {
			d := d
			l.InitTimer(&timers[i], func() {
				got = append(got, d)
				if len(got) == len(delays) {
					close(done)
				}
			})
			timers[i].Start(time.Duration(d) * time.Millisecond)
		}
		timers[2].Stop()
		timers[2].Start(6 * time.Millisecond)
	})

	clk.Add(10 * time.Millisecond)
	select {
	case <-done:
	case <-time.After(testtime.Timeout):
		require.FailNow(t, "timers did not fire")
	}
	onLoop(t, l, func() {
		assert.Equal(t, []int{1, 2, 3, 5, 4}, got)
	})
}

func TestTimerWithRealClock(t *testing.T) {
	l := startLoop(t)
	defer stopLoop(t, l)

	fired := make(chan struct{})
	var timer Timer
	onLoop(t, l, func() {
		l.InitTimer(&timer, func() { close(fired) })
		timer.Start(5 * time.Millisecond)
	})

	select {
	case <-fired:
	case <-time.After(testtime.Timeout):
		assert.Fail(t, "timer did not fire")
	}
}
