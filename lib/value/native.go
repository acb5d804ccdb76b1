// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package value

import (
	"fmt"
	"reflect"
	"sort"
)

// ToNative manifests v into plain Go data: nil, bool, float64, string,
// []any and map[string]any. Hidden fields are dropped and functions are
// rejected, as in [MarshalJSON].
func ToNative(v Value) (any, error) {
	switch v := v.(type) {
	case Null:
		return nil, nil
	case Bool:
		return bool(v), nil
	case Number:
		return float64(v), nil
	case String:
		return string(v), nil
	case Array:
		out := make([]any, len(v))
		for i, element := range v {
			native, err := ToNative(element)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = native
		}
		return out, nil
	case *Object:
		out := make(map[string]any, v.Len())
		for _, field := range v.Fields(false) {
			forced, err := field.Value.Force()
			if err != nil {
				return nil, fmt.Errorf("%s: %w", field.Name, err)
			}
			native, err := ToNative(forced)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", field.Name, err)
			}
			out[field.Name] = native
		}
		return out, nil
	case *Function:
		return nil, fmt.Errorf("cannot convert %s to data", v.label())
	default:
		return nil, fmt.Errorf("unknown value type %T", v)
	}
}

// FromNative converts plain Go data into a Value. Maps must have string
// keys; their entries are added in sorted key order. A Value passes
// through unchanged and a *Lazy is forced.
func FromNative(x any) (Value, error) {
	switch x := x.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return x, nil
	case *Lazy:
		return x.Force()
	case bool:
		return Bool(x), nil
	case string:
		return String(x), nil
	case float64:
		return Number(x), nil
	case int:
		return Number(x), nil
	case []any:
		out := make(Array, len(x))
		for i, element := range x {
			converted, err := FromNative(element)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = converted
		}
		return out, nil
	case map[string]any:
		keys := make([]string, 0, len(x))
		for key := range x {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		builder := NewObject()
		for _, key := range keys {
			converted, err := FromNative(x[key])
			if err != nil {
				return nil, fmt.Errorf("%s: %w", key, err)
			}
			builder.Set(key, converted)
		}
		return builder.Build(), nil
	}
	return fromReflect(reflect.ValueOf(x))
}

func fromReflect(rv reflect.Value) (Value, error) {
	switch rv.Kind() {
	case reflect.Invalid:
		return Null{}, nil
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return Null{}, nil
		}
		return FromNative(rv.Elem().Interface())
	case reflect.Bool:
		return Bool(rv.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Number(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return Number(rv.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return Number(rv.Float()), nil
	case reflect.String:
		return String(rv.String()), nil
	case reflect.Slice, reflect.Array:
		out := make(Array, rv.Len())
		for i := range rv.Len() {
			converted, err := FromNative(rv.Index(i).Interface())
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = converted
		}
		return out, nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, fmt.Errorf("map key type %s is not string", rv.Type().Key())
		}
		keys := make([]string, 0, rv.Len())
		for _, key := range rv.MapKeys() {
			keys = append(keys, key.String())
		}
		sort.Strings(keys)
		builder := NewObject()
		for _, key := range keys {
			element := rv.MapIndex(reflect.ValueOf(key).Convert(rv.Type().Key()))
			converted, err := FromNative(element.Interface())
			if err != nil {
				return nil, fmt.Errorf("%s: %w", key, err)
			}
			builder.Set(key, converted)
		}
		return builder.Build(), nil
	default:
		return nil, fmt.Errorf("cannot convert %s to a value", rv.Type())
	}
}

// Equal reports whether a and b manifest to the same data.
func Equal(a, b Value) (bool, error) {
	left, err := ToNative(a)
	if err != nil {
		return false, err
	}
	right, err := ToNative(b)
	if err != nil {
		return false, err
	}
	return reflect.DeepEqual(left, right), nil
}
