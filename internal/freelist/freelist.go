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

// Package freelist maintains intrusive freelists of reusable objects.
//
// Unlike sync.Pool, a List never gives memory back to the runtime and is not
// safe for concurrent use: it is meant to be owned by a single event loop.
// Every object kept on a List embeds an Entry, which tracks whether the object
// is currently handed out so that double releases and use-after-release are
// caught as soon as they happen.
package freelist

import "fmt"

// Item is an object that can be kept on a List. Embed Entry to implement it.
type Item interface {
	freelistEntry() *Entry
}

// Entry is the bookkeeping embedded in every pooled object.
type Entry struct {
	next  Item
	inUse bool
	owner *List
}

func (e *Entry) freelistEntry() *Entry { return e }

// InUse reports whether the object has been handed out by its List and not
// yet released.
func (e *Entry) InUse() bool {
	return e.inUse
}

// CheckInUse panics if the object is not currently handed out. Objects call
// this on entry to operations that are invalid after release.
func (e *Entry) CheckInUse() {
	if !e.inUse {
		name := "object"
		if e.owner != nil {
			name = e.owner.name
		}
		panic(fmt.Sprintf("use-after-release of pooled %s", name))
	}
}

// Stats is a point-in-time view of a List.
type Stats struct {
	// Allocs is the number of objects ever allocated by the List.
	Allocs int
	// Live is the number of objects currently handed out.
	Live int
	// Free is the number of objects sitting on the freelist.
	Free int
}

// List is a freelist of one kind of object.
type List struct {
	name    string
	newItem func() Item
	onAlloc func()

	head   Item
	allocs int
	live   int
	free   int
}

// Option configures a List.
type Option func(*List)

// OnAlloc registers a function called every time the List has to allocate a
// fresh object because its freelist is empty.
func OnAlloc(f func()) Option {
	return func(l *List) {
		l.onAlloc = f
	}
}

// New builds a List that allocates objects with newItem when empty. The name
// is used in panic messages.
func New(name string, newItem func() Item, opts ...Option) *List {
	l := &List{name: name, newItem: newItem}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Name returns the name of the objects kept on this list.
func (l *List) Name() string {
	return l.name
}

// Get pops an object off the freelist, allocating a new one if the freelist
// is empty. The returned object is marked in use.
func (l *List) Get() Item {
	it := l.head
	if it != nil {
		e := it.freelistEntry()
		l.head = e.next
		e.next = nil
		l.free--
	} else {
		it = l.newItem()
		it.freelistEntry().owner = l
		l.allocs++
		if l.onAlloc != nil {
			l.onAlloc()
		}
	}

	e := it.freelistEntry()
	if e.inUse {
		panic(fmt.Sprintf("pooled %s handed out twice", l.name))
	}
	e.inUse = true
	l.live++
	return it
}

// Put pushes an object back on the freelist. Releasing an object that is not
// in use, or that belongs to another List, panics.
func (l *List) Put(it Item) {
	e := it.freelistEntry()
	if !e.inUse {
		panic(fmt.Sprintf("double release of pooled %s", l.name))
	}
	if e.owner != l {
		panic(fmt.Sprintf("pooled %s released to the wrong list", l.name))
	}
	e.inUse = false
	e.next = l.head
	l.head = it
	l.live--
	l.free++
}

// Stats returns the current counters of the List.
func (l *List) Stats() Stats {
	return Stats{Allocs: l.allocs, Live: l.live, Free: l.free}
}
