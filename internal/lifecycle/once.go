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

// Package lifecycle drives objects that are started and stopped at most
// once.
package lifecycle

import (
	"fmt"

	"go.uber.org/atomic"
)

// State is a stage in the life of an object.
type State int

const (
	// Idle objects were neither started nor stopped.
	Idle State = iota

	// Starting objects are running their start function.
	Starting

	// Running objects were started successfully.
	Running

	// Stopping objects are running their stop function.
	Stopping

	// Stopped objects were stopped, or stopped before they were started.
	Stopped

	// Errored objects failed to start or stop.
	Errored
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Starting:
		return "starting"
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	case Stopped:
		return "stopped"
	case Errored:
		return "errored"
	default:
		return "unknown"
	}
}

// Once runs the start and stop functions of an object at most once. Callers
// that lose the race wait for the outcome of the winner.
//
// Stopping an object that was never started moves it straight to Stopped.
type Once struct {
	state   atomic.Int32
	started chan struct{}
	stopped chan struct{}

	// err is written before started or stopped is closed.
	err error
}

// NewOnce builds a Once in the Idle state.
func NewOnce() *Once {
	return &Once{
		started: make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

func (o *Once) run(f func() error) error {
	if f == nil {
		return nil
	}
	return f()
}

// Start runs f if the object is Idle and returns its error. Concurrent and
// later calls return the same error, or fail if the object was stopped
// without being started.
func (o *Once) Start(f func() error) error {
	if !o.state.CAS(int32(Idle), int32(Starting)) {
		<-o.started
		switch s := o.State(); s {
		case Running, Errored:
			return o.err
		default:
			return fmt.Errorf("cannot start: object is %v", s)
		}
	}

	if o.err = o.run(f); o.err != nil {
		o.state.Store(int32(Errored))
		close(o.stopped)
	} else {
		o.state.Store(int32(Running))
	}
	close(o.started)
	return o.err
}

// Stop runs f if the object is Running and returns its error. Concurrent
// and later calls wait for f and return the same error. f does not run for
// objects that are still Idle.
func (o *Once) Stop(f func() error) error {
	if o.state.CAS(int32(Idle), int32(Stopped)) {
		close(o.started)
		close(o.stopped)
		return nil
	}

	<-o.started
	if !o.state.CAS(int32(Running), int32(Stopping)) {
		<-o.stopped
		return o.err
	}

	if o.err = o.run(f); o.err != nil {
		o.state.Store(int32(Errored))
	} else {
		o.state.Store(int32(Stopped))
	}
	close(o.stopped)
	return o.err
}

// Started is closed once Start returned or the object was stopped.
func (o *Once) Started() <-chan struct{} {
	return o.started
}

// Stopped is closed once the object was stopped or failed.
func (o *Once) Stopped() <-chan struct{} {
	return o.stopped
}

// State returns the state the object has at least reached.
func (o *Once) State() State {
	return State(o.state.Load())
}
