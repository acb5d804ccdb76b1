// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package mixin

import (
	"errors"
	"strings"
	"testing"

	"github.com/bureau-foundation/bootnet/lib/deferred"
	"github.com/bureau-foundation/bootnet/lib/value"
)

func manifest(t *testing.T, v value.Value) string {
	t.Helper()
	data, err := value.MarshalJSON(v)
	if err != nil {
		t.Fatalf("MarshalJSON() error: %v", err)
	}
	return string(data)
}

func object(fields ...any) *value.Object {
	builder := value.NewObject()
	for i := 0; i < len(fields); i += 2 {
		builder.Set(fields[i].(string), fields[i+1].(value.Value))
	}
	return builder.Build()
}

func TestResolveNullReturnsBase(t *testing.T) {
	base := object("a", value.Number(1))
	got, err := Resolve(base, value.Null{}, nil, deferred.New("final"))
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if got != value.Value(base) {
		t.Errorf("Resolve(base, null) returned a different value")
	}

	// A null mixin does not check the base shape.
	got, err = Resolve(value.String("scalar"), value.Null{}, nil, deferred.New("final"))
	if err != nil || got != value.String("scalar") {
		t.Errorf("Resolve(scalar, null) = %v, %v; want scalar, nil", got, err)
	}
}

func TestResolveObjectOverrides(t *testing.T) {
	base := object("a", value.Number(1), "b", value.Number(2))
	got, err := Resolve(base, object("b", value.Number(3), "c", value.Number(4)), nil, deferred.New("final"))
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if s := manifest(t, got); s != `{"a":1,"b":3,"c":4}` {
		t.Errorf("Resolve() = %s", s)
	}
}

func TestResolveRequiresObjectBase(t *testing.T) {
	for _, mixin := range []value.Value{object(), value.Array{}, value.NewFunction("f", nil, nil)} {
		_, err := Resolve(value.Number(1), mixin, nil, deferred.New("final"))
		if err == nil || !strings.Contains(err.Error(), "base should be object") {
			t.Errorf("Resolve(number, %s) error = %v, want base error", mixin.Kind(), err)
		}
	}
}

func TestResolveRejectsScalarMixin(t *testing.T) {
	_, err := Resolve(object(), value.String("x"), nil, deferred.New("final"))
	if err == nil || !strings.Contains(err.Error(), "mixin should be null, object, function or array") {
		t.Errorf("Resolve() error = %v", err)
	}
}

func TestResolveListEqualsSequentialResolve(t *testing.T) {
	base := object("a", value.Number(1))
	m1 := object("b", value.Number(2))
	m2 := value.NewFunction("m2", []string{"prev"}, func(args value.Args) (value.Value, error) {
		prev, err := args.Force("prev")
		if err != nil {
			return nil, err
		}
		b, err := prev.(*value.Object).Lookup("b")
		if err != nil {
			return nil, err
		}
		return object("c", b.(value.Number)*10), nil
	})

	listed, err := Resolve(base, value.Array{m1, m2}, nil, deferred.New("final"))
	if err != nil {
		t.Fatalf("Resolve(list) error: %v", err)
	}
	step, err := Resolve(base, m1, nil, deferred.New("final"))
	if err != nil {
		t.Fatalf("Resolve(m1) error: %v", err)
	}
	sequential, err := Resolve(step, m2, nil, deferred.New("final"))
	if err != nil {
		t.Fatalf("Resolve(m2) error: %v", err)
	}
	if a, b := manifest(t, listed), manifest(t, sequential); a != b {
		t.Errorf("list resolve = %s, sequential = %s", a, b)
	}
}

func TestResolveListErrorNamesIndex(t *testing.T) {
	_, err := Resolve(object(), value.Array{object(), value.Bool(true)}, nil, deferred.New("final"))
	if err == nil || !strings.Contains(err.Error(), "mixin array[1]") {
		t.Errorf("Resolve() error = %v, want index in message", err)
	}
}

func TestResolveFunctionReturningArray(t *testing.T) {
	fn := value.NewFunction("patches", nil, func(value.Args) (value.Value, error) {
		return value.Array{object("x", value.Number(1)), object("y", value.Number(2))}, nil
	})
	got, err := Resolve(object(), fn, nil, deferred.New("final"))
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if s := manifest(t, got); s != `{"x":1,"y":2}` {
		t.Errorf("Resolve() = %s", s)
	}
}

func TestResolveFunctionBadResult(t *testing.T) {
	fn := value.NewFunction("bad", nil, func(value.Args) (value.Value, error) {
		return value.String("nope"), nil
	})
	_, err := Resolve(object(), fn, nil, deferred.New("final"))
	if err == nil || !strings.Contains(err.Error(), "should return object or array") {
		t.Errorf("Resolve() error = %v", err)
	}
}

func TestResolveFinalReference(t *testing.T) {
	final := deferred.New("final")
	// Reads a field contributed by a later mixin through final.
	early := value.NewFunction("early", []string{"final"}, func(args value.Args) (value.Value, error) {
		reference := args["final"]
		return value.NewObject().SetLazy("greeting", func() (value.Value, error) {
			resolved, err := reference.Force()
			if err != nil {
				return nil, err
			}
			name, err := resolved.(*value.Object).Lookup("name")
			if err != nil {
				return nil, err
			}
			return "hello " + name.(value.String), nil
		}).Build(), nil
	})

	got, err := Resolve(object(), value.Array{early, object("name", value.String("bob"))}, nil, final)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}

	greeting, _ := got.(*value.Object).Field("greeting")
	if _, err := greeting.Value.Force(); !errors.Is(err, deferred.ErrReadBeforeFill) {
		t.Fatalf("forcing before fill error = %v, want ErrReadBeforeFill", err)
	}

	final.Fill(got)
	if s := manifest(t, got); s != `{"greeting":"hello bob","name":"bob"}` {
		t.Errorf("Resolve() = %s", s)
	}
}

func TestApplyFiltersArguments(t *testing.T) {
	var seen []string
	fn := value.NewFunction("module", []string{"prev", "region"}, func(args value.Args) (value.Value, error) {
		seen = args.Names()
		return object(), nil
	})
	args := value.Args{
		"prev":   value.Eager(object()),
		"final":  value.Eager(value.Null{}),
		"region": value.Eager(value.String("eu")),
		"unused": value.Eager(value.Null{}),
	}
	if _, err := Apply(args, fn); err != nil {
		t.Fatalf("Apply() error: %v", err)
	}
	if strings.Join(seen, ",") != "prev,region" {
		t.Errorf("callee saw %v, want [prev region]", seen)
	}
}

func TestApplyPassesThroughNonFunctions(t *testing.T) {
	v := object("a", value.Number(1))
	got, err := Apply(value.Args{"x": value.Eager(value.Null{})}, v)
	if err != nil || got != value.Value(v) {
		t.Errorf("Apply(object) = %v, %v; want unchanged", got, err)
	}
}

func TestApplyRejectsAnonymousParameters(t *testing.T) {
	fn := &value.Function{Name: "positional", Params: []value.Param{{Name: "prev"}, {}}}
	_, err := Apply(value.Args{}, fn)
	if err == nil || err.Error() != "only named parameters supported" {
		t.Errorf("Apply() error = %v, want only named parameters supported", err)
	}
}

func TestApplyWrapsCallErrors(t *testing.T) {
	fn := value.NewFunction("needs", []string{"region"}, nil)
	_, err := Apply(value.Args{}, fn)
	if err == nil || !strings.HasPrefix(err.Error(), "during top-level argument call") {
		t.Errorf("Apply() error = %v, want wrapped call error", err)
	}
}

func TestMixer(t *testing.T) {
	override := object("image", value.String("custom"))
	fn := Mixer(value.Array{override, value.Null{}})
	got, err := value.Call(fn, value.Args{"prev": value.Eager(object("image", value.String("default"), "ports", value.Array{}))}, false)
	if err != nil {
		t.Fatalf("Call(mixer) error: %v", err)
	}
	if s := manifest(t, got); s != `{"image":"custom","ports":[]}` {
		t.Errorf("mixer result = %s", s)
	}
}
