// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package value

import (
	"errors"
	"strings"
	"testing"
)

func mustJSON(t *testing.T, v Value) string {
	t.Helper()
	data, err := MarshalJSON(v)
	if err != nil {
		t.Fatalf("MarshalJSON() error: %v", err)
	}
	return string(data)
}

func TestExtendOverridesAndAppends(t *testing.T) {
	base := NewObject().Set("a", Number(1)).Set("b", String("base")).Build()
	child := NewObject().Set("b", String("child")).Set("c", Bool(true)).Build()

	got := mustJSON(t, Extend(base, child))
	want := `{"a":1,"b":"child","c":true}`
	if got != want {
		t.Errorf("Extend() = %s, want %s", got, want)
	}
}

func TestExtendHiddenFields(t *testing.T) {
	base := NewObject().SetHidden("secret", String("x")).Set("shown", Number(1)).Build()
	// An inheriting override keeps the field hidden.
	child := NewObject().Set("secret", String("y")).Build()
	extended := Extend(base, child)

	if got := mustJSON(t, extended); got != `{"shown":1}` {
		t.Errorf("manifest = %s, want hidden field omitted", got)
	}
	secret, err := extended.Lookup("secret")
	if err != nil {
		t.Fatalf("Lookup(secret) error: %v", err)
	}
	if secret != String("y") {
		t.Errorf("secret = %v, want y", secret)
	}

	visible := NewObject().SetField(Field{Name: "secret", Value: Eager(String("z")), Visibility: Visible}).Build()
	if got := mustJSON(t, Extend(base, visible)); got != `{"secret":"z","shown":1}` {
		t.Errorf("manifest = %s, want secret made visible", got)
	}
}

func TestExtendPlusMerge(t *testing.T) {
	base := NewObject().
		Set("list", Array{Number(1)}).
		Set("name", String("val")).
		Set("nested", NewObject().Set("x", Number(1)).Build()).
		Build()
	child := NewObject().
		SetPlus("list", Array{Number(2)}).
		SetPlus("name", String("idator")).
		SetPlus("nested", NewObject().Set("y", Number(2)).Build()).
		SetPlus("fresh", Array{String("new")}).
		Build()

	got := mustJSON(t, Extend(base, child))
	want := `{"list":[1,2],"name":"validator","nested":{"x":1,"y":2},"fresh":["new"]}`
	if got != want {
		t.Errorf("Extend() = %s, want %s", got, want)
	}
}

func TestExtendPlusMergeIsLazy(t *testing.T) {
	forced := false
	base := NewObject().SetLazy("a", func() (Value, error) {
		forced = true
		return Number(1), nil
	}).Build()
	child := NewObject().SetPlus("a", Number(2)).Build()

	extended := Extend(base, child)
	if forced {
		t.Fatal("Extend forced a base field")
	}
	a, err := extended.Lookup("a")
	if err != nil {
		t.Fatalf("Lookup(a) error: %v", err)
	}
	if a != Number(3) {
		t.Errorf("a = %v, want 3", a)
	}
}

func TestExtendPlusMergeMismatch(t *testing.T) {
	base := NewObject().Set("a", Number(1)).Build()
	child := NewObject().SetPlus("a", String("x")).Build()
	_, err := MarshalJSON(Extend(base, child))
	if err == nil || !strings.Contains(err.Error(), "cannot add number and string") {
		t.Errorf("MarshalJSON() error = %v, want add mismatch", err)
	}
}

func TestLazyRecursion(t *testing.T) {
	var lazy *Lazy
	lazy = NewLazy(func() (Value, error) {
		return lazy.Force()
	})
	if _, err := lazy.Force(); !errors.Is(err, ErrInfiniteRecursion) {
		t.Errorf("Force() error = %v, want ErrInfiniteRecursion", err)
	}
}

func TestLazyRetriesAfterError(t *testing.T) {
	ready := false
	calls := 0
	lazy := NewLazy(func() (Value, error) {
		calls++
		if !ready {
			return nil, errors.New("not ready")
		}
		return String("ok"), nil
	})
	if _, err := lazy.Force(); err == nil {
		t.Fatal("Force() succeeded before ready")
	}
	ready = true
	for range 2 {
		v, err := lazy.Force()
		if err != nil {
			t.Fatalf("Force() error: %v", err)
		}
		if v != String("ok") {
			t.Errorf("Force() = %v, want ok", v)
		}
	}
	if calls != 2 {
		t.Errorf("compute called %d times, want 2", calls)
	}
}

func TestCall(t *testing.T) {
	fn := &Function{
		Name:   "greet",
		Params: []Param{{Name: "name"}, {Name: "greeting", Optional: true}},
		Impl: func(args Args) (Value, error) {
			name, err := args.Force("name")
			if err != nil {
				return nil, err
			}
			greeting := Value(String("hello"))
			if args.Has("greeting") {
				if greeting, err = args.Force("greeting"); err != nil {
					return nil, err
				}
			}
			return greeting.(String) + " " + name.(String), nil
		},
	}

	got, err := Call(fn, Args{"name": Eager(String("node"))}, false)
	if err != nil {
		t.Fatalf("Call() error: %v", err)
	}
	if got != String("hello node") {
		t.Errorf("Call() = %v, want %q", got, "hello node")
	}

	if _, err := Call(fn, Args{}, false); err == nil || !strings.Contains(err.Error(), `missing argument "name"`) {
		t.Errorf("Call() with no args error = %v, want missing argument", err)
	}

	extra := Args{"name": Eager(String("node")), "other": Eager(Null{})}
	if _, err := Call(fn, extra, false); err == nil || !strings.Contains(err.Error(), `no parameter "other"`) {
		t.Errorf("Call() with extra arg error = %v, want unknown parameter", err)
	}
	if _, err := Call(fn, extra, true); err != nil {
		t.Errorf("Call() with allowExtra error: %v", err)
	}
}

func TestManifestIndent(t *testing.T) {
	v := NewObject().
		Set("list", Array{Number(1.5), Null{}}).
		Set("empty", Empty()).
		Build()
	data, err := MarshalIndent(v, "  ")
	if err != nil {
		t.Fatalf("MarshalIndent() error: %v", err)
	}
	want := "{\n  \"list\": [\n    1.5,\n    null\n  ],\n  \"empty\": {}\n}"
	if string(data) != want {
		t.Errorf("MarshalIndent() = %q, want %q", data, want)
	}
}

func TestManifestFunctionFails(t *testing.T) {
	v := NewObject().Set("f", NewFunction("f", nil, nil)).Build()
	_, err := MarshalJSON(v)
	if err == nil || !strings.Contains(err.Error(), ".f") {
		t.Errorf("MarshalJSON() error = %v, want failure naming .f", err)
	}
}

func TestParseYAMLKeepsOrderAndModifiers(t *testing.T) {
	v, err := ParseYAML([]byte(`
zeta: 1
alpha: [true, "x", 2.5]
"hidden::": {a: 1}
list+: [1]
nothing: ~
`))
	if err != nil {
		t.Fatalf("ParseYAML() error: %v", err)
	}
	obj, err := ExpectObject(v, "document")
	if err != nil {
		t.Fatal(err)
	}
	if got := mustJSON(t, obj); got != `{"zeta":1,"alpha":[true,"x",2.5],"list":[1],"nothing":null}` {
		t.Errorf("manifest = %s", got)
	}
	field, ok := obj.Field("hidden")
	if !ok || !field.IsHidden() {
		t.Errorf("field hidden = %+v, want a hidden field", field)
	}
	field, _ = obj.Field("list")
	if !field.Add {
		t.Error("list+ did not produce a plus-merge field")
	}
}

func TestYAMLRoundTrip(t *testing.T) {
	source := "services:\n  node:\n    image: parity/polkadot\n    ports:\n      - 9944\n"
	v, err := ParseYAML([]byte(source))
	if err != nil {
		t.Fatalf("ParseYAML() error: %v", err)
	}
	out, err := MarshalYAML(v)
	if err != nil {
		t.Fatalf("MarshalYAML() error: %v", err)
	}
	if string(out) != source {
		t.Errorf("MarshalYAML() = %q, want %q", out, source)
	}
}

func TestNativeConversion(t *testing.T) {
	v, err := FromNative(map[string]any{
		"b":     []string{"x", "y"},
		"a":     uint16(7),
		"inner": map[string]int{"n": 1},
	})
	if err != nil {
		t.Fatalf("FromNative() error: %v", err)
	}
	if got := mustJSON(t, v); got != `{"a":7,"b":["x","y"],"inner":{"n":1}}` {
		t.Errorf("FromNative() manifest = %s", got)
	}

	native, err := ToNative(v)
	if err != nil {
		t.Fatalf("ToNative() error: %v", err)
	}
	back, err := FromNative(native)
	if err != nil {
		t.Fatalf("FromNative() error: %v", err)
	}
	equal, err := Equal(v, back)
	if err != nil {
		t.Fatalf("Equal() error: %v", err)
	}
	if !equal {
		t.Error("value changed after native round trip")
	}
}

func TestParseJSONKeepsKeysLiteral(t *testing.T) {
	v, err := ParseJSON([]byte(`{"z": 1, "a::": [true, null], "b+": "x"}`))
	if err != nil {
		t.Fatalf("ParseJSON() error: %v", err)
	}
	if got := mustJSON(t, v); got != `{"z":1,"a::":[true,null],"b+":"x"}` {
		t.Errorf("ParseJSON() = %s", got)
	}

	if _, err := ParseJSON([]byte(`{} {}`)); err == nil {
		t.Error("expected error for trailing data")
	}
}
