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

// Package clock abstracts the passage of time for the reactor so that timer
// driven behavior, like connection inactivity timeouts, can be tested
// deterministically.
package clock

import "time"

// Clock tells the time and produces timers.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// TimerAt returns a timer that fires once the clock reaches deadline.
	// Deadlines in the past fire immediately.
	TimerAt(deadline time.Time) Timer
}

// Timer is a single, resettable event.
type Timer interface {
	// C returns the channel the timer delivers its deadline on.
	C() <-chan time.Time

	// Stop prevents the timer from firing. It returns false if the timer had
	// already fired or been stopped. Stop does not drain C.
	Stop() bool

	// ResetAt moves the deadline of the timer. Like time.Timer.Reset, it must
	// only be called on stopped or drained timers.
	ResetAt(deadline time.Time) bool
}

// Drain stops the timer and discards a pending delivery, leaving it ready to
// be reset.
func Drain(t Timer) {
	if !t.Stop() {
		select {
		case <-t.C():
		default:
		}
	}
}
