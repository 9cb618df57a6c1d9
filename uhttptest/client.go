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
	"bufio"
	"fmt"
	"io/ioutil"
	"net/http"
	"strings"
)

// Pipeline returns GET requests for the given URLs, ready to be written to
// a connection at once.
func Pipeline(urls ...string) string {
	var b strings.Builder
	for _, u := range urls {
		fmt.Fprintf(&b, "GET %s HTTP/1.1\r\nHost: localhost\r\n\r\n", u)
	}
	return b.String()
}

// Response is a response read back by ReadResponses.
type Response struct {
	Status int
	Header http.Header
	Body   string
}

// ReadResponses reads n responses from r.
func ReadResponses(r *bufio.Reader, n int) ([]Response, error) {
	out := make([]Response, 0, n)
	for i := 0; i < n; i++ {
		res, err := http.ReadResponse(r, nil)
		if err != nil {
			return out, fmt.Errorf("failed to read response %d: %v", i, err)
		}
		body, err := ioutil.ReadAll(res.Body)
		res.Body.Close()
		if err != nil {
			return out, fmt.Errorf("failed to read body of response %d: %v", i, err)
		}
		out = append(out, Response{
			Status: res.StatusCode,
			Header: res.Header,
			Body:   string(body),
		})
	}
	return out, nil
}
