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

// Package uhttp is an embeddable HTTP/1.1 server engine.
//
// A Server accepts TCP connections and spreads them over a small number of
// event loops. Each loop parses the bytes of its connections into requests
// and reports their lifecycle to a Handler as Events: OPEN when a connection
// is accepted, REQUEST once the headers of a request are known, DATA for
// every piece of its body, END when the request is complete, and SHUTDOWN,
// CLOSE or ERROR as the connection goes away.
//
// Responses are built on the Message that carried the request with
// WriteHead, Write and Finish, or Send for a complete response in one call.
// Clients may pipeline requests. Responses may be finished in any order,
// from the loop or from any goroutine through Message.Post, and are always
// written in the order their requests arrived:
//
//	func handle(e uhttp.Event) {
//		if e.Type != uhttp.EventRequest {
//			return
//		}
//		m := e.Message
//		m.AfterFunc(10*time.Millisecond, func() {
//			m.Send(200, nil, []byte("Hello\n"))
//		})
//	}
//
// Handlers run on the event loop of the connection and must not block.
// Messages, connections and buffers are pooled per loop and recycled once
// their work is done, so neither a Message nor a Conn may be used after it
// was released: a Message after its response was written and its request
// fully received, a Conn after CLOSE.
package uhttp
