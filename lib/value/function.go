// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package value

import (
	"fmt"
	"sort"
)

// Param is a declared function parameter. An empty Name marks an
// anonymous (positional-only) parameter.
type Param struct {
	Name     string
	Optional bool
}

// Args is a named argument set. Arguments are lazy so a callee that
// never reads an argument never forces it.
type Args map[string]*Lazy

// Clone returns a shallow copy of the argument set.
func (a Args) Clone() Args {
	out := make(Args, len(a)+2)
	for name, arg := range a {
		out[name] = arg
	}
	return out
}

// Has reports whether the named argument is bound.
func (a Args) Has(name string) bool {
	_, ok := a[name]
	return ok
}

// Force evaluates the named argument. A missing argument is an error.
func (a Args) Force(name string) (Value, error) {
	arg, ok := a[name]
	if !ok {
		return nil, fmt.Errorf("argument %q not bound", name)
	}
	v, err := arg.Force()
	if err != nil {
		return nil, fmt.Errorf("argument %q: %w", name, err)
	}
	return v, nil
}

// Names returns the bound argument names, sorted.
func (a Args) Names() []string {
	names := make([]string, 0, len(a))
	for name := range a {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Function is a callable value. Impl receives only declared, bound
// arguments; optional parameters that were not passed are absent.
type Function struct {
	Name   string
	Params []Param
	Impl   func(args Args) (Value, error)
}

// NewFunction returns a function whose parameters are all required and
// named.
func NewFunction(name string, params []string, impl func(args Args) (Value, error)) *Function {
	declared := make([]Param, len(params))
	for i, param := range params {
		declared[i] = Param{Name: param}
	}
	return &Function{Name: name, Params: declared, Impl: impl}
}

// Declares reports whether the function has a parameter with the given
// name.
func (f *Function) Declares(name string) bool {
	for _, param := range f.Params {
		if param.Name == name {
			return true
		}
	}
	return false
}

func (f *Function) label() string {
	if f.Name == "" {
		return "anonymous function"
	}
	return "function " + f.Name
}

// Call invokes fn with args. Unless allowExtra is set, arguments that
// do not match a declared parameter are an error; with allowExtra they
// are dropped. Every required parameter must be bound.
func Call(fn *Function, args Args, allowExtra bool) (Value, error) {
	bound := make(Args, len(fn.Params))
	for _, name := range args.Names() {
		if !fn.Declares(name) {
			if allowExtra {
				continue
			}
			return nil, fmt.Errorf("%s has no parameter %q", fn.label(), name)
		}
		bound[name] = args[name]
	}
	for i, param := range fn.Params {
		if param.Name == "" {
			return nil, fmt.Errorf("%s: parameter %d is positional, only named arguments can be passed", fn.label(), i)
		}
		if !param.Optional && !bound.Has(param.Name) {
			return nil, fmt.Errorf("%s: missing argument %q", fn.label(), param.Name)
		}
	}
	return fn.Impl(bound)
}
