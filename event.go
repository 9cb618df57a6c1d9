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

// EventType identifies what happened to a connection or a message.
type EventType int

const (
	// EventOpen is emitted once a connection was accepted, before anything
	// is read from it.
	EventOpen EventType = iota + 1

	// EventRequest is emitted once the request line and headers of a
	// message were received.
	EventRequest

	// EventData is emitted for every piece of a request body. Data is only
	// valid for the duration of the callback.
	EventData

	// EventEnd is emitted once the request of a message was fully
	// received.
	EventEnd

	// EventShutdown is emitted once the write half of a connection was
	// closed after a response that did not keep the connection alive.
	EventShutdown

	// EventClose is emitted once a connection was closed. The Conn must not
	// be used after this event.
	EventClose

	// EventError is emitted for malformed requests and unexpected I/O
	// errors, immediately before the connection is closed. Message is set if
	// the error concerns a request the Handler already saw.
	EventError
)

func (t EventType) String() string {
	switch t {
	case EventOpen:
		return "OPEN"
	case EventRequest:
		return "REQUEST"
	case EventData:
		return "DATA"
	case EventEnd:
		return "END"
	case EventShutdown:
		return "SHUTDOWN"
	case EventClose:
		return "CLOSE"
	case EventError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Event is delivered to a Handler.
type Event struct {
	Type    EventType
	Conn    *Conn
	Message *Message
	Data    []byte
	Err     error
}

//go:generate mockgen -destination=uhttptest/handler.go -package=uhttptest go.uber.org/uhttp Handler

// Handler receives the events of a Server. HandleEvent is called on the
// event loop of the connection the event concerns and must not block.
type Handler interface {
	HandleEvent(Event)
}

// HandlerFunc adapts a function into a Handler.
type HandlerFunc func(Event)

// HandleEvent calls f.
func (f HandlerFunc) HandleEvent(e Event) {
	f(e)
}
