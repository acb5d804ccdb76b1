// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package evaluator

import (
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"maps"
	"os"
	"reflect"
	"slices"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"

	"github.com/bureau-foundation/bootnet/lib/value"
)

// ScriptEntryPoint is the function a module script must define.
const ScriptEntryPoint = "Module"

// LoadScript interprets a Go module script and returns its entry point
// as a function value. The script is a package main file defining
//
//	func Module(prev any, final func() (any, error), ...) (any, error)
//
// Parameter names are the argument names the module accepts; a blank
// parameter makes the module unusable as a mixin. Ordinary parameters
// receive the argument as plain data converted to the declared type:
// objects become map[string]any (hidden fields keep a "::" key suffix)
// and functions become func(map[string]any) (any, error) taking named
// arguments. Parameters of type func() (any, error) receive a lazy
// reference instead, which is how a script reads final.
//
// The return value is converted back with [value.FromNative]. Inside a
// returned map, a func() (any, error) entry becomes a lazy field, so a
// script can describe fields computed from final after the fold fills
// it, and a func(any) (any, error) entry becomes a one-parameter
// function (parameter "value"), which is how a script passes callbacks
// such as a spec modifier.
func LoadScript(path string) (*value.Function, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	params, err := scriptParams(path, source)
	if err != nil {
		return nil, err
	}

	interpreter := interp.New(interp.Options{})
	if err := interpreter.Use(stdlib.Symbols); err != nil {
		return nil, fmt.Errorf("loading script symbols: %w", err)
	}
	if _, err := interpreter.EvalPath(path); err != nil {
		return nil, fmt.Errorf("interpreting %s: %w", path, err)
	}
	entry, err := interpreter.Eval(ScriptEntryPoint)
	if err != nil {
		return nil, fmt.Errorf("%s must define func %s: %w", path, ScriptEntryPoint, err)
	}
	if entry.Kind() != reflect.Func {
		return nil, fmt.Errorf("%s: %s is not a function", path, ScriptEntryPoint)
	}
	if entry.Type().NumIn() != len(params) {
		return nil, fmt.Errorf("%s: %s declares %d parameters, interpreter reports %d", path, ScriptEntryPoint, len(params), entry.Type().NumIn())
	}

	return &value.Function{
		Name:   path,
		Params: params,
		Impl: func(args value.Args) (value.Value, error) {
			return callScript(entry, params, args)
		},
	}, nil
}

// scriptParams reads the entry point's parameter names from source. The
// interpreter exposes only types, not names.
func scriptParams(path string, source []byte) ([]value.Param, error) {
	file, err := parser.ParseFile(token.NewFileSet(), path, source, parser.SkipObjectResolution)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if file.Name.Name != "main" {
		return nil, fmt.Errorf("%s: module scripts must be package main, got %s", path, file.Name.Name)
	}
	for _, decl := range file.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok || fn.Recv != nil || fn.Name.Name != ScriptEntryPoint {
			continue
		}
		var params []value.Param
		for _, field := range fn.Type.Params.List {
			if _, variadic := field.Type.(*ast.Ellipsis); variadic {
				return nil, fmt.Errorf("%s: %s cannot be variadic", path, ScriptEntryPoint)
			}
			if len(field.Names) == 0 {
				params = append(params, value.Param{})
				continue
			}
			for _, name := range field.Names {
				if name.Name == "_" {
					params = append(params, value.Param{})
					continue
				}
				params = append(params, value.Param{Name: name.Name})
			}
		}
		return params, nil
	}
	return nil, fmt.Errorf("%s: no func %s found", path, ScriptEntryPoint)
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

var thunkType = reflect.TypeOf((func() (any, error))(nil))

func callScript(entry reflect.Value, params []value.Param, args value.Args) (result value.Value, err error) {
	entryType := entry.Type()
	in := make([]reflect.Value, len(params))
	for i, param := range params {
		paramType := entryType.In(i)
		if paramType == thunkType {
			in[i] = reflect.ValueOf(thunk(args[param.Name]))
			continue
		}
		arg, err := args.Force(param.Name)
		if err != nil {
			return nil, err
		}
		native, err := toScript(arg)
		if err != nil {
			return nil, fmt.Errorf("argument %q: %w", param.Name, err)
		}
		converted, err := convertArgument(native, paramType)
		if err != nil {
			return nil, fmt.Errorf("argument %q: %w", param.Name, err)
		}
		in[i] = converted
	}

	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("script panicked: %v", recovered)
		}
	}()
	out := entry.Call(in)

	switch len(out) {
	case 1:
	case 2:
		if !entryType.Out(1).Implements(errorType) {
			return nil, errors.New("second result must be an error")
		}
		if !out[1].IsNil() {
			return nil, out[1].Interface().(error)
		}
	default:
		return nil, fmt.Errorf("%s must return (any) or (any, error)", ScriptEntryPoint)
	}
	return fromScript(out[0].Interface())
}

func thunk(lazy *value.Lazy) func() (any, error) {
	return func() (any, error) {
		if lazy == nil {
			return nil, errors.New("argument not bound")
		}
		v, err := lazy.Force()
		if err != nil {
			return nil, err
		}
		return toScript(v)
	}
}

// CallbackParam names the parameter of functions built from script
// callbacks.
const CallbackParam = "value"

// toScript is [value.ToNative] extended for scripts: hidden fields are
// kept and functions become callables.
func toScript(v value.Value) (any, error) {
	switch v := v.(type) {
	case *value.Function:
		return scriptCallable(v), nil
	case value.Array:
		out := make([]any, len(v))
		for i, element := range v {
			converted, err := toScript(element)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = converted
		}
		return out, nil
	case *value.Object:
		out := make(map[string]any, v.Len())
		for _, field := range v.Fields(true) {
			forced, err := field.Value.Force()
			if err != nil {
				return nil, fmt.Errorf("%s: %w", field.Name, err)
			}
			converted, err := toScript(forced)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", field.Name, err)
			}
			key := field.Name
			if field.IsHidden() {
				key += "::"
			}
			out[key] = converted
		}
		return out, nil
	default:
		return value.ToNative(v)
	}
}

func scriptCallable(fn *value.Function) func(map[string]any) (any, error) {
	return func(named map[string]any) (any, error) {
		args := make(value.Args, len(named))
		for name, x := range named {
			converted, err := fromScript(x)
			if err != nil {
				return nil, fmt.Errorf("argument %q: %w", name, err)
			}
			args[name] = value.Eager(converted)
		}
		result, err := value.Call(fn, args, false)
		if err != nil {
			return nil, err
		}
		return toScript(result)
	}
}

func callbackFunction(fn func(any) (any, error)) *value.Function {
	return value.NewFunction("script callback", []string{CallbackParam}, func(args value.Args) (value.Value, error) {
		arg, err := args.Force(CallbackParam)
		if err != nil {
			return nil, err
		}
		converted, err := toScript(arg)
		if err != nil {
			return nil, err
		}
		result, err := fn(converted)
		if err != nil {
			return nil, err
		}
		return fromScript(result)
	})
}

func convertArgument(native any, target reflect.Type) (reflect.Value, error) {
	if native == nil {
		return reflect.Zero(target), nil
	}
	rv := reflect.ValueOf(native)
	if rv.Type().AssignableTo(target) {
		out := reflect.New(target).Elem()
		out.Set(rv)
		return out, nil
	}
	if rv.Kind() == reflect.Float64 && isInteger(target.Kind()) {
		f := rv.Float()
		if f != float64(int64(f)) {
			return reflect.Value{}, fmt.Errorf("%v is not an integer", f)
		}
	}
	if rv.Type().ConvertibleTo(target) && rv.Kind() != reflect.String {
		return rv.Convert(target), nil
	}
	return reflect.Value{}, fmt.Errorf("cannot use %T as %s", native, target)
}

func isInteger(kind reflect.Kind) bool {
	switch kind {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}

// fromScript converts a script result, turning thunks inside maps into
// lazy fields and callbacks into functions.
func fromScript(x any) (value.Value, error) {
	switch x := x.(type) {
	case func(any) (any, error):
		return callbackFunction(x), nil
	case map[string]any:
		builder := value.NewObject()
		// Script maps have no order; fields are added sorted by key.
		for _, key := range slices.Sorted(maps.Keys(x)) {
			field := value.ParseFieldKey(key)
			if fn, ok := x[key].(func() (any, error)); ok {
				field.Value = value.NewLazy(func() (value.Value, error) {
					out, err := fn()
					if err != nil {
						return nil, err
					}
					return fromScript(out)
				})
				builder.SetField(field)
				continue
			}
			converted, err := fromScript(x[key])
			if err != nil {
				return nil, fmt.Errorf("%s: %w", key, err)
			}
			field.Value = value.Eager(converted)
			builder.SetField(field)
		}
		return builder.Build(), nil
	case []any:
		out := make(value.Array, len(x))
		for i, element := range x {
			converted, err := fromScript(element)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = converted
		}
		return out, nil
	default:
		return value.FromNative(x)
	}
}
