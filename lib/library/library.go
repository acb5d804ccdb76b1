// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package library provides the built-in modules every composition can
// import, and the "bdk" builtins object exposing the composer's native
// operations to library authors and module scripts.
//
// Modules are registered under "lib:bootnet/...":
//
//   - inputs/base: adds hostnames, lazily provisioned keys and lazily
//     built raw specs to every chain and node in the document.
//   - outputs/debug, outputs/addressbook, outputs/compose,
//     outputs/composediscover: the generator payloads.
//
// The document shape the modules understand:
//
//	chains:
//	  <chain>:
//	    bin: <file location>          # node binary
//	    spec: {Genesis: {...}}        # spec source, optional
//	    ss58Format: 42                # optional
//	    wantedKeys: {aura: sr25519}   # shared by every node
//	    nodes:
//	      <node>:
//	        hostname: <name>          # defaults to <chain>-<node>
//	        wantedKeys: {...}
//	        extraArgs: [...]
//	        composeOverrides: <mixin> # applied to the compose service
package library

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/bureau-foundation/bootnet/lib/address"
	"github.com/bureau-foundation/bootnet/lib/chainspec"
	"github.com/bureau-foundation/bootnet/lib/evaluator"
	"github.com/bureau-foundation/bootnet/lib/keystore"
	"github.com/bureau-foundation/bootnet/lib/mixin"
	"github.com/bureau-foundation/bootnet/lib/provision"
	"github.com/bureau-foundation/bootnet/lib/value"
)

// Module references of the built-in library.
const (
	BaseModule            = evaluator.LibraryPrefix + "bootnet/inputs/base"
	DebugModule           = evaluator.LibraryPrefix + "bootnet/outputs/debug"
	AddressBookModule     = evaluator.LibraryPrefix + "bootnet/outputs/addressbook"
	ComposeModule         = evaluator.LibraryPrefix + "bootnet/outputs/compose"
	ComposeDiscoverModule = evaluator.LibraryPrefix + "bootnet/outputs/composediscover"
)

// Output attributes under _output.
const (
	DebugOutput           = "debug"
	AddressBookOutput     = "addressbook"
	ComposeOutput         = "dockerCompose"
	ComposeDiscoverOutput = "dockerComposeDiscover"
)

// ConfigField holds a generator's injected config inside its output
// namespace.
const ConfigField = "_config"

// Parameter names of a file reconciler, the function stored as
// reconcile_<file> next to a generated file.
const (
	ReconcileCurrent   = "current"
	ReconcileGenerated = "generated"
)

// ReconcilePrefix prefixes the reconciler field of a generated file.
const ReconcilePrefix = "reconcile_"

// BuiltinsArg is the ambient argument name under which module scripts
// receive the builtins object.
const BuiltinsArg = "bdk"

// Options configures a Library.
type Options struct {
	// Context bounds spec builds started from lazy fields.
	Context context.Context

	// Specs builds chain specs.
	Specs chainspec.Builder

	// Keys provisions node keys.
	Keys *provision.Provisioner

	// Mounts lists host directories for local binaries. Defaults to
	// chainspec.DockerMounts.
	Mounts func() ([]string, error)

	Logger *slog.Logger
}

// Library holds the native dependencies of the built-in modules.
type Library struct {
	ctx    context.Context
	specs  chainspec.Builder
	keys   *provision.Provisioner
	mounts func() ([]string, error)
	logger *slog.Logger
}

// New returns a library. Missing dependencies surface as errors only
// when a module actually needs them.
func New(options Options) *Library {
	library := &Library{
		ctx:    options.Context,
		specs:  options.Specs,
		keys:   options.Keys,
		mounts: options.Mounts,
		logger: options.Logger,
	}
	if library.ctx == nil {
		library.ctx = context.Background()
	}
	if library.specs == nil {
		library.specs = chainspec.Backend{}
	}
	if library.keys == nil {
		library.keys = provision.New(keystore.NewBackend(nil, options.Logger), options.Logger)
	}
	if library.mounts == nil {
		library.mounts = chainspec.DockerMounts
	}
	if library.logger == nil {
		library.logger = slog.New(slog.DiscardHandler)
	}
	return library
}

// Register makes the built-in modules importable from e.
func (l *Library) Register(e *evaluator.Evaluator) {
	for ref, module := range l.Modules() {
		name := ref[len(evaluator.LibraryPrefix):]
		e.Register(name, module)
	}
}

// Modules returns the built-in modules by reference.
func (l *Library) Modules() map[string]value.Value {
	return map[string]value.Value{
		BaseModule:            value.NewFunction(BaseModule, []string{mixin.ArgPrev, mixin.ArgFinal}, l.base),
		DebugModule:           value.NewFunction(DebugModule, []string{mixin.ArgPrev, mixin.ArgFinal}, debugModule),
		AddressBookModule:     value.NewFunction(AddressBookModule, []string{mixin.ArgPrev, mixin.ArgFinal}, addressBookModule),
		ComposeModule:         value.NewFunction(ComposeModule, []string{mixin.ArgPrev, mixin.ArgFinal}, l.composeModule),
		ComposeDiscoverModule: value.NewFunction(ComposeDiscoverModule, []string{mixin.ArgPrev, mixin.ArgFinal}, composeDiscoverModule),
	}
}

// Builtins returns the bdk object:
//
//	mixer(mixin)                    a function of prev applying mixin
//	toRelative(from, to)            relative path from one absolute path to another
//	dockerMounts()                  host directories for the empty image
//	processSpec(bin, spec)          build and modify a raw chain spec
//	ensureKeys(path, wantedKeys, format?)
func (l *Library) Builtins() *value.Object {
	return value.NewObject().
		Set("mixer", value.NewFunction("bdk.mixer", []string{"mixin"}, builtinMixer)).
		Set("toRelative", value.NewFunction("bdk.toRelative", []string{"from", "to"}, builtinToRelative)).
		Set("dockerMounts", value.NewFunction("bdk.dockerMounts", nil, l.builtinDockerMounts)).
		Set("processSpec", value.NewFunction("bdk.processSpec", []string{"bin", "spec"}, l.builtinProcessSpec)).
		Set("ensureKeys", &value.Function{
			Name:   "bdk.ensureKeys",
			Params: []value.Param{{Name: "path"}, {Name: "wantedKeys"}, {Name: "format", Optional: true}},
			Impl:   l.builtinEnsureKeys,
		}).
		Build()
}

func builtinMixer(args value.Args) (value.Value, error) {
	m, err := args.Force("mixin")
	if err != nil {
		return nil, err
	}
	return mixin.Mixer(m), nil
}

func builtinToRelative(args value.Args) (value.Value, error) {
	from, err := forceString(args, "from")
	if err != nil {
		return nil, err
	}
	to, err := forceString(args, "to")
	if err != nil {
		return nil, err
	}
	relative, err := toRelative(from, to)
	if err != nil {
		return nil, err
	}
	return value.String(relative), nil
}

func toRelative(from, to string) (string, error) {
	if !filepath.IsAbs(from) || !filepath.IsAbs(to) {
		return "", fmt.Errorf("incorrect paths, both should be absolute: %q, %q", from, to)
	}
	return filepath.Rel(from, to)
}

func (l *Library) builtinDockerMounts(value.Args) (value.Value, error) {
	l.logger.Warn("resulting spec will not work on the remote machine, impure bdk.dockerMounts() was used")
	mounts, err := l.mounts()
	if err != nil {
		return nil, err
	}
	out := make(value.Array, len(mounts))
	for i, mount := range mounts {
		out[i] = value.String(mount)
	}
	return out, nil
}

func (l *Library) builtinProcessSpec(args value.Args) (value.Value, error) {
	bin, err := args.Force("bin")
	if err != nil {
		return nil, err
	}
	spec, err := args.Force("spec")
	if err != nil {
		return nil, err
	}
	return l.processSpec(bin, spec)
}

func (l *Library) processSpec(binValue, specValue value.Value) (value.Value, error) {
	bin, err := chainspec.ParseFileLocation(binValue)
	if err != nil {
		return nil, fmt.Errorf("bin: %w", err)
	}
	source, err := chainspec.ParseSource(specValue)
	if err != nil {
		return nil, fmt.Errorf("spec: %w", err)
	}
	return chainspec.Process(l.ctx, l.specs, bin, source)
}

func (l *Library) builtinEnsureKeys(args value.Args) (value.Value, error) {
	path, err := forceString(args, "path")
	if err != nil {
		return nil, err
	}
	wantedValue, err := args.Force("wantedKeys")
	if err != nil {
		return nil, err
	}
	format := address.DefaultFormat
	if args.Has("format") {
		formatValue, err := args.Force("format")
		if err != nil {
			return nil, err
		}
		if format, err = parseFormat(formatValue); err != nil {
			return nil, err
		}
	}
	return l.ensureKeys(path, wantedValue, format)
}

func (l *Library) ensureKeys(path string, wantedValue value.Value, format address.Format) (value.Value, error) {
	wanted, err := provision.ParseRequests(wantedValue)
	if err != nil {
		return nil, fmt.Errorf("wantedKeys: %w", err)
	}
	keys, err := l.keys.EnsureKeys(path, wanted, format)
	if err != nil {
		return nil, err
	}
	return keys.Value(), nil
}

// parseFormat reads an SS58 format; null is the default.
func parseFormat(v value.Value) (address.Format, error) {
	if v.Kind() == value.KindNull {
		return address.DefaultFormat, nil
	}
	n, err := value.ExpectInt(v, "ss58 format")
	if err != nil {
		return 0, err
	}
	return address.ParseFormat(n)
}

func forceString(args value.Args, name string) (string, error) {
	v, err := args.Force(name)
	if err != nil {
		return "", err
	}
	return value.ExpectString(v, name)
}
