// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package value

import "errors"

// ErrInfiniteRecursion is returned when a thunk is forced while it is
// already being forced, i.e. a value depends on itself.
var ErrInfiniteRecursion = errors.New("infinite recursion")

// Lazy is a memoized thunk. A successful result is cached; a failed
// force is not, so a thunk that failed because its dependencies were not
// ready can be forced again later.
//
// Lazy is not safe for concurrent use.
type Lazy struct {
	compute func() (Value, error)
	result  Value
	done    bool
	forcing bool
}

// NewLazy returns a thunk that computes its value with compute on first
// force.
func NewLazy(compute func() (Value, error)) *Lazy {
	return &Lazy{compute: compute}
}

// Eager returns an already-forced thunk holding v.
func Eager(v Value) *Lazy {
	return &Lazy{result: v, done: true}
}

// Force evaluates the thunk.
func (l *Lazy) Force() (Value, error) {
	if l.done {
		return l.result, nil
	}
	if l.forcing {
		return nil, ErrInfiniteRecursion
	}
	l.forcing = true
	result, err := l.compute()
	l.forcing = false
	if err != nil {
		return nil, err
	}
	l.result = result
	l.done = true
	l.compute = nil
	return result, nil
}

// Forced reports whether the thunk has a cached result.
func (l *Lazy) Forced() bool {
	return l.done
}
