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

package interpolate

import (
	"fmt"
	"strings"
)

// Parse parses a string for interpolation.
func Parse(s string) (String, error) {
	var (
		out String
		lit strings.Builder
	)
	flush := func() {
		if lit.Len() > 0 {
			out = append(out, text(lit.String()))
			lit.Reset()
		}
	}

	for i := 0; i < len(s); {
		switch {
		case s[i] == '\\' && strings.HasPrefix(s[i+1:], "${"):
			lit.WriteByte('$')
			i += 2

		case strings.HasPrefix(s[i:], "${"):
			end := strings.IndexByte(s[i:], '}')
			if end < 0 {
				return nil, fmt.Errorf("unterminated variable at offset %d in %q", i, s)
			}
			v, err := parseVariable(s[i+2 : i+end])
			if err != nil {
				return nil, fmt.Errorf("cannot parse %q: %v", s, err)
			}
			flush()
			out = append(out, v)
			i += end + 1

		default:
			lit.WriteByte(s[i])
			i++
		}
	}
	flush()
	return out, nil
}

// parseVariable parses the inside of ${...}. Names are made of letters,
// digits and underscores, in segments joined by single dashes.
func parseVariable(s string) (segment, error) {
	v := ref(s)
	if idx := strings.IndexByte(s, ':'); idx >= 0 {
		v = refOr(s[:idx], s[idx+1:])
	}

	if v.text == "" {
		return v, fmt.Errorf("empty variable name")
	}
	for _, part := range strings.Split(v.text, "-") {
		if part == "" {
			return v, fmt.Errorf("invalid variable name %q", v.text)
		}
		for _, c := range part {
			if !(c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9') {
				return v, fmt.Errorf("invalid variable name %q", v.text)
			}
		}
	}
	return v, nil
}
