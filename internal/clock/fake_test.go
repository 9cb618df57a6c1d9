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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFakeClockAdd(t *testing.T) {
	clock := NewFake()
	start := clock.Now()
	clock.Add(time.Second)
	assert.Equal(t, time.Second, clock.Now().Sub(start))
}

func TestFakeClockSet(t *testing.T) {
	clock := NewFake()
	assert.Equal(t, time.Unix(0, 0), clock.Now())
	clock.Set(time.Unix(100, 0))
	assert.Equal(t, time.Unix(100, 0), clock.Now())

	clock.Set(time.Unix(50, 0))
	assert.Equal(t, time.Unix(100, 0), clock.Now(), "clock must not go backwards")
}

func TestFakeTimerFiresOnAdd(t *testing.T) {
	clock := NewFake()
	deadline := clock.Now().Add(time.Second)
	timer := clock.TimerAt(deadline)

	clock.Add(500 * time.Millisecond)
	select {
	case <-timer.C():
		require.Fail(t, "timer fired early")
	default:
	}

	clock.Add(500 * time.Millisecond)
	select {
	case got := <-timer.C():
		assert.Equal(t, deadline, got)
	default:
		assert.Fail(t, "timer did not fire")
	}
	assert.Equal(t, 0, clock.Pending())
}

func TestFakeTimerInThePastFiresImmediately(t *testing.T) {
	clock := NewFake()
	clock.Add(time.Minute)
	timer := clock.TimerAt(time.Unix(1, 0))

	select {
	case <-timer.C():
	default:
		assert.Fail(t, "timer did not fire")
	}
}

func TestFakeTimerStop(t *testing.T) {
	clock := NewFake()
	timer := clock.TimerAt(clock.Now().Add(time.Minute))
	assert.Equal(t, 1, clock.Pending())
	assert.True(t, timer.Stop())
	assert.False(t, timer.Stop())
	assert.Equal(t, 0, clock.Pending())

	clock.Add(time.Hour)
	select {
	case <-timer.C():
		assert.Fail(t, "stopped timer fired")
	default:
	}
}

func TestFakeTimerResetAt(t *testing.T) {
	clock := NewFake()
	timer := clock.TimerAt(clock.Now().Add(time.Minute))
	assert.True(t, timer.ResetAt(clock.Now().Add(time.Second)))

	clock.Add(time.Second)
	select {
	case <-timer.C():
	default:
		require.Fail(t, "timer did not fire")
	}

	assert.False(t, timer.ResetAt(clock.Now().Add(time.Second)), "fired timer is inactive")
	clock.Add(time.Second)
	select {
	case <-timer.C():
	default:
		assert.Fail(t, "reset timer did not fire")
	}
}

func TestDrain(t *testing.T) {
	clock := NewFake()
	timer := clock.TimerAt(clock.Now())
	Drain(timer)

	select {
	case <-timer.C():
		assert.Fail(t, "drained timer still delivered")
	default:
	}
}

func TestRealClockTimer(t *testing.T) {
	clock := NewReal()
	timer := clock.TimerAt(clock.Now().Add(time.Millisecond))
	select {
	case <-timer.C():
	case <-time.After(5 * time.Second):
		assert.Fail(t, "test timed out")
	}

	assert.False(t, timer.Stop())
	timer.ResetAt(clock.Now().Add(time.Hour))
	assert.True(t, timer.Stop())
}
