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

package uhttptest

import (
	"fmt"

	"go.uber.org/uhttp"
)

// EventMatcher may be used in gomock argument lists to match events by type
// and, for events about a message, by the URL of its request.
type EventMatcher struct {
	typ uhttp.EventType
	url string
	any bool
}

// IsEvent matches connection events of the given type, whatever message
// they carry.
func IsEvent(typ uhttp.EventType) EventMatcher {
	return EventMatcher{typ: typ, any: true}
}

// IsMessageEvent matches events of the given type about a request for url.
func IsMessageEvent(typ uhttp.EventType, url string) EventMatcher {
	return EventMatcher{typ: typ, url: url}
}

// Matches checks if the given object is a matching uhttp.Event.
func (m EventMatcher) Matches(got interface{}) bool {
	e, ok := got.(uhttp.Event)
	if !ok {
		panic(fmt.Sprintf("expected uhttp.Event, got %v", got))
	}
	if e.Type != m.typ {
		return false
	}
	if m.any {
		return true
	}
	return e.Message != nil && e.Message.URL() == m.url
}

func (m EventMatcher) String() string {
	if m.any {
		return fmt.Sprintf("is %v event", m.typ)
	}
	return fmt.Sprintf("is %v event for %q", m.typ, m.url)
}
