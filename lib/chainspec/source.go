// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chainspec

import (
	"context"
	"fmt"

	"github.com/bureau-foundation/bootnet/lib/value"
)

// Source says where a chain's spec comes from. It is one of
// [GenesisSource], [RawSource] or [FromScratchGenesisSource].
type Source interface {
	isSource()
}

// GenesisSource asks the node binary for a built-in chain's genesis
// spec, lets Modify rewrite it, then converts it to raw form.
type GenesisSource struct {
	// Chain is passed as --chain. Empty uses the binary's default.
	Chain string

	Modify         *value.Function
	SpecFilePrefix string
	ModifyRaw      *value.Function
}

// RawSource supplies an already raw spec.
type RawSource struct {
	RawSpec   value.Value
	ModifyRaw *value.Function
}

// FromScratchGenesisSource supplies a genesis spec directly, without
// consulting the binary's built-in chains.
type FromScratchGenesisSource struct {
	Spec           value.Value
	Modify         *value.Function
	SpecFilePrefix string
	ModifyRaw      *value.Function
}

func (GenesisSource) isSource()            {}
func (RawSource) isSource()                {}
func (FromScratchGenesisSource) isSource() {}

// ParseSource decodes a source from an object with exactly one key:
// "Genesis", "Raw" or "FromScratchGenesis".
func ParseSource(v value.Value) (Source, error) {
	obj, err := value.ExpectObject(v, "spec source")
	if err != nil {
		return nil, err
	}
	names := obj.Names()
	if len(names) != 1 {
		return nil, fmt.Errorf("spec source should have exactly one of Genesis, Raw, FromScratchGenesis; got %d fields", len(names))
	}
	body, err := obj.Lookup(names[0])
	if err != nil {
		return nil, err
	}
	fields, err := value.ExpectObject(body, names[0])
	if err != nil {
		return nil, err
	}

	switch names[0] {
	case "Genesis":
		var source GenesisSource
		if source.Chain, err = stringField(fields, "chain", false); err != nil {
			return nil, err
		}
		if source.SpecFilePrefix, err = stringField(fields, "specFilePrefix", false); err != nil {
			return nil, err
		}
		if source.Modify, err = functionField(fields, "modify"); err != nil {
			return nil, err
		}
		if source.ModifyRaw, err = functionField(fields, "modifyRaw"); err != nil {
			return nil, err
		}
		return source, nil
	case "Raw":
		var source RawSource
		if source.RawSpec, err = fields.Lookup("rawSpec"); err != nil {
			return nil, err
		}
		if source.ModifyRaw, err = functionField(fields, "modifyRaw"); err != nil {
			return nil, err
		}
		return source, nil
	case "FromScratchGenesis":
		var source FromScratchGenesisSource
		if source.Spec, err = fields.Lookup("spec"); err != nil {
			return nil, err
		}
		if source.SpecFilePrefix, err = stringField(fields, "specFilePrefix", false); err != nil {
			return nil, err
		}
		if source.Modify, err = functionField(fields, "modify"); err != nil {
			return nil, err
		}
		if source.ModifyRaw, err = functionField(fields, "modifyRaw"); err != nil {
			return nil, err
		}
		return source, nil
	default:
		return nil, fmt.Errorf("unknown spec source %q", names[0])
	}
}

func functionField(obj *value.Object, name string) (*value.Function, error) {
	v, ok, err := obj.Get(name)
	if err != nil {
		return nil, err
	}
	if !ok || v.Kind() == value.KindNull {
		return nil, nil
	}
	fn, isFunction := v.(*value.Function)
	if !isFunction {
		return nil, fmt.Errorf("%s: expected function, got %s", name, v.Kind())
	}
	return fn, nil
}

// Process produces the final raw spec for source. Callbacks run in
// order: Modify on the genesis spec, build-spec --raw, then ModifyRaw.
func Process(ctx context.Context, builder Builder, bin FileLocation, source Source) (value.Value, error) {
	switch source := source.(type) {
	case GenesisSource:
		data, err := builder.BuildGenesis(ctx, bin, source.Chain)
		if err != nil {
			return nil, err
		}
		genesis, err := value.ParseJSON(data)
		if err != nil {
			return nil, fmt.Errorf("parsing genesis spec: %w", err)
		}
		return finishGenesis(ctx, builder, bin, genesis, source.Modify, source.SpecFilePrefix, source.ModifyRaw)
	case FromScratchGenesisSource:
		return finishGenesis(ctx, builder, bin, source.Spec, source.Modify, source.SpecFilePrefix, source.ModifyRaw)
	case RawSource:
		return applyCallback(source.ModifyRaw, source.RawSpec, "modifyRaw")
	default:
		return nil, fmt.Errorf("unsupported spec source %T", source)
	}
}

func finishGenesis(ctx context.Context, builder Builder, bin FileLocation, genesis value.Value, modify *value.Function, prefix string, modifyRaw *value.Function) (value.Value, error) {
	genesis, err := applyCallback(modify, genesis, "modify")
	if err != nil {
		return nil, err
	}
	encoded, err := value.MarshalIndent(genesis, "    ")
	if err != nil {
		return nil, fmt.Errorf("manifesting genesis spec: %w", err)
	}
	data, err := builder.BuildRaw(ctx, bin, prefix, encoded)
	if err != nil {
		return nil, err
	}
	raw, err := value.ParseJSON(data)
	if err != nil {
		return nil, fmt.Errorf("parsing raw spec: %w", err)
	}
	return applyCallback(modifyRaw, raw, "modifyRaw")
}

// applyCallback calls fn with spec bound to its first parameter.
// Remaining parameters must be optional.
func applyCallback(fn *value.Function, spec value.Value, what string) (value.Value, error) {
	if fn == nil {
		return spec, nil
	}
	if len(fn.Params) == 0 {
		return nil, fmt.Errorf("%s callback should take the spec as its first parameter", what)
	}
	result, err := value.Call(fn, value.Args{fn.Params[0].Name: value.Eager(spec)}, false)
	if err != nil {
		return nil, fmt.Errorf("%s callback: %w", what, err)
	}
	return result, nil
}
