// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package value

import (
	"fmt"
	"math"
	"strconv"
)

// Kind identifies the concrete type of a Value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
	KindFunction
)

// String returns the kind name used in error messages.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "boolean"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	case KindFunction:
		return "function"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Value is a document value. The set of implementations is closed:
// Null, Bool, Number, String, Array, *Object and *Function.
type Value interface {
	Kind() Kind
	sealed()
}

// Null is the null value.
type Null struct{}

// Bool is a boolean value.
type Bool bool

// Number is a numeric value. Integers are represented exactly up to 2^53.
type Number float64

// String is a string value.
type String string

// Array is an ordered sequence of values.
type Array []Value

func (Null) Kind() Kind     { return KindNull }
func (Bool) Kind() Kind     { return KindBool }
func (Number) Kind() Kind   { return KindNumber }
func (String) Kind() Kind   { return KindString }
func (Array) Kind() Kind    { return KindArray }
func (*Object) Kind() Kind  { return KindObject }
func (*Function) Kind() Kind { return KindFunction }

func (Null) sealed()      {}
func (Bool) sealed()      {}
func (Number) sealed()    {}
func (String) sealed()    {}
func (Array) sealed()     {}
func (*Object) sealed()   {}
func (*Function) sealed() {}

// Int returns the number as an int64 if it is integral and in range.
func (n Number) Int() (int64, bool) {
	f := float64(n)
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f < -(1<<53) || f > 1<<53 {
		return 0, false
	}
	return int64(f), true
}

// String formats the number the way it is manifested: integral values
// have no fractional part.
func (n Number) String() string {
	return strconv.FormatFloat(float64(n), 'f', -1, 64)
}

// Plus combines two values the way a plus-merge field does: objects
// extend, arrays and strings concatenate, numbers add.
func Plus(left, right Value) (Value, error) {
	switch l := left.(type) {
	case *Object:
		if r, ok := right.(*Object); ok {
			return Extend(l, r), nil
		}
	case Array:
		if r, ok := right.(Array); ok {
			out := make(Array, 0, len(l)+len(r))
			out = append(out, l...)
			return append(out, r...), nil
		}
	case String:
		if r, ok := right.(String); ok {
			return l + r, nil
		}
	case Number:
		if r, ok := right.(Number); ok {
			return l + r, nil
		}
	}
	return nil, fmt.Errorf("cannot add %s and %s", left.Kind(), right.Kind())
}

// ExpectObject returns v as an object, or an error naming what was
// expected.
func ExpectObject(v Value, what string) (*Object, error) {
	if o, ok := v.(*Object); ok {
		return o, nil
	}
	return nil, fmt.Errorf("%s: expected object, got %s", what, v.Kind())
}

// ExpectString returns v as a Go string.
func ExpectString(v Value, what string) (string, error) {
	if s, ok := v.(String); ok {
		return string(s), nil
	}
	return "", fmt.Errorf("%s: expected string, got %s", what, v.Kind())
}

// ExpectArray returns v as an array.
func ExpectArray(v Value, what string) (Array, error) {
	if a, ok := v.(Array); ok {
		return a, nil
	}
	return nil, fmt.Errorf("%s: expected array, got %s", what, v.Kind())
}

// ExpectInt returns v as an integral number.
func ExpectInt(v Value, what string) (int64, error) {
	n, ok := v.(Number)
	if !ok {
		return 0, fmt.Errorf("%s: expected number, got %s", what, v.Kind())
	}
	i, ok := n.Int()
	if !ok {
		return 0, fmt.Errorf("%s: expected integer, got %s", what, n)
	}
	return i, nil
}
