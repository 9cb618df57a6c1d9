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

// Package interpolate renders strings that reference variables, like
// environment variables in configuration files.
//
// A variable is written ${NAME} and may carry a default that is used when
// the variable has no value: ${NAME:default}. A literal "$" followed by "{"
// is written with a backslash: \${.
package interpolate

import (
	"fmt"
	"strings"
)

// segment is either literal text or a reference to a variable.
type segment struct {
	text string

	variable   bool
	def        string
	hasDefault bool
}

func text(s string) segment {
	return segment{text: s}
}

func ref(name string) segment {
	return segment{text: name, variable: true}
}

func refOr(name, def string) segment {
	return segment{text: name, variable: true, def: def, hasDefault: true}
}

// VariableResolver looks up the value of a variable. ok is false if the
// variable is not set.
type VariableResolver func(name string) (value string, ok bool)

// String is a parsed string, ready to be rendered.
type String []segment

// UnknownVariableError is returned by Render for variables that have
// neither a value nor a default.
type UnknownVariableError struct {
	Name string
}

func (e *UnknownVariableError) Error() string {
	return fmt.Sprintf("variable %q does not have a value or a default", e.Name)
}

// Render substitutes every variable of s.
func (s String) Render(resolve VariableResolver) (string, error) {
	var b strings.Builder
	for _, seg := range s {
		if !seg.variable {
			b.WriteString(seg.text)
			continue
		}
		v, ok := resolve(seg.text)
		if !ok {
			if !seg.hasDefault {
				return "", &UnknownVariableError{Name: seg.text}
			}
			v = seg.def
		}
		b.WriteString(v)
	}
	return b.String(), nil
}
