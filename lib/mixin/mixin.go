// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package mixin folds patches ("mixins") onto a base document.
//
// A mixin is one of:
//
//   - null: no change.
//   - an object: extends the base (mixin fields override, plus-merge
//     fields combine).
//   - a function: called with the ambient arguments plus prev (the base)
//     and final (a reference to the eventual result of the whole fold).
//     It returns an object, or an array that is applied as a mixin list.
//   - an array: each entry is applied in turn to the running result.
//
// Functions only receive the arguments they declare; see [Apply].
package mixin

import (
	"fmt"

	"github.com/bureau-foundation/bootnet/lib/deferred"
	"github.com/bureau-foundation/bootnet/lib/value"
)

// Argument names bound by the resolver. User-supplied arguments may not
// use them.
const (
	ArgPrev  = "prev"
	ArgFinal = "final"
)

// Thread returns the subset of args matching the parameters fn
// declares. Every parameter must be named.
func Thread(args value.Args, fn *value.Function) (value.Args, error) {
	filtered := make(value.Args, len(fn.Params))
	for _, param := range fn.Params {
		if param.Name == "" {
			return nil, fmt.Errorf("only named parameters supported")
		}
		if arg, ok := args[param.Name]; ok {
			filtered[param.Name] = arg
		}
	}
	return filtered, nil
}

// Apply calls v with the subset of args matching its declared
// parameters. Values that are not functions are returned unchanged.
func Apply(args value.Args, v value.Value) (value.Value, error) {
	fn, ok := v.(*value.Function)
	if !ok {
		return v, nil
	}
	filtered, err := Thread(args, fn)
	if err != nil {
		return nil, err
	}
	out, err := value.Call(fn, filtered, false)
	if err != nil {
		return nil, fmt.Errorf("during top-level argument call: %w", err)
	}
	return out, nil
}

// Resolve applies mixin to base. A null mixin returns base unchanged;
// every other mixin requires base to be an object, and the result is
// always an object. Function mixins receive ambient plus prev and a
// lazy final reference into the cell.
func Resolve(base, mixin value.Value, ambient value.Args, final *deferred.Cell) (value.Value, error) {
	if _, ok := mixin.(value.Null); ok {
		return base, nil
	}
	baseObject, ok := base.(*value.Object)
	if !ok {
		return nil, fmt.Errorf("mixin base should be object, got %s", base.Kind())
	}

	switch m := mixin.(type) {
	case *value.Object:
		return value.Extend(baseObject, m), nil
	case *value.Function:
		args := ambient.Clone()
		args[ArgPrev] = value.Eager(base)
		args[ArgFinal] = final.Lazy()
		out, err := Apply(args, m)
		if err != nil {
			return nil, err
		}
		switch out := out.(type) {
		case *value.Object:
			return out, nil
		case value.Array:
			return Resolve(base, out, ambient, final)
		default:
			return nil, fmt.Errorf("mixin function should return object or array, got %s", out.Kind())
		}
	case value.Array:
		current := base
		for i, entry := range m {
			next, err := Resolve(current, entry, ambient, final)
			if err != nil {
				return nil, fmt.Errorf("mixin array[%d]: %w", i, err)
			}
			current = next
		}
		return current, nil
	default:
		return nil, fmt.Errorf("mixin should be null, object, function or array, got %s", mixin.Kind())
	}
}

// Mixer wraps mixin in a function of prev that resolves it against prev
// with its own final cell, filled with the result. Library modules use
// it to apply user-supplied overrides to a sub-document.
func Mixer(mixin value.Value) *value.Function {
	return value.NewFunction("mixer", []string{ArgPrev}, func(args value.Args) (value.Value, error) {
		prev, err := args.Force(ArgPrev)
		if err != nil {
			return nil, err
		}
		final := deferred.New("mixer final")
		out, err := Resolve(prev, mixin, nil, final)
		if err != nil {
			return nil, err
		}
		final.Fill(out)
		return out, nil
	})
}
