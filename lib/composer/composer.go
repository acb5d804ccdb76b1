// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package composer runs the three-stage composition pipeline.
//
// The base stage folds the user's modules into a document. The
// extension stage folds the generators' library modules over it and
// injects each generator's config. The extraction stage hands every
// generator its payload from _output.<attribute>.
//
// Each of the first two stages owns a deferred cell: modules folded in
// the stage receive a lazy final reference into it, which becomes
// readable once the stage's result is known. Reading final while the
// stage is still folding fails with [deferred.ErrReadBeforeFill].
package composer

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/bureau-foundation/bootnet/lib/deferred"
	"github.com/bureau-foundation/bootnet/lib/generator"
	"github.com/bureau-foundation/bootnet/lib/mixin"
	"github.com/bureau-foundation/bootnet/lib/value"
)

// OutputKey is the document field holding generator payloads.
const OutputKey = "_output"

// ConfigKey holds a generator's injected config inside its namespace.
const ConfigKey = "_config"

// Importer resolves module references and calls the function a module
// evaluates to. *evaluator.Evaluator implements it.
type Importer interface {
	Import(ref string) (value.Value, error)
	Evaluate(fn value.Value, args value.Args, allowExtra bool) (value.Value, error)
}

// Options describes one run.
type Options struct {
	// Modules are the user's modules, folded in order. The first is the
	// base document.
	Modules []string

	// InputModules are folded before the generators' library modules.
	InputModules []string

	// Args are user-supplied top-level arguments.
	Args value.Args

	// Ambient are arguments supplied by the host (such as the builtins
	// object). User arguments may not shadow them.
	Ambient value.Args

	// BaseModule is appended to Modules when set.
	BaseModule string
}

// Pipeline composes documents and feeds generators.
type Pipeline struct {
	importer   Importer
	generators []generator.Generator
	logger     *slog.Logger
}

// New returns a pipeline for the given generators, processed in order.
func New(importer Importer, generators []generator.Generator, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Pipeline{importer: importer, generators: generators, logger: logger}
}

// Run composes the document and processes every generator's payload.
// All payloads are manifested before the first generator runs, so a
// composition error never leaves partial output behind.
func (p *Pipeline) Run(options Options) error {
	document, err := p.Compose(options)
	if err != nil {
		return err
	}
	payloads, err := p.Extract(document)
	if err != nil {
		return err
	}
	for i, gen := range p.generators {
		if _, err := value.MarshalJSON(payloads[i]); err != nil {
			return fmt.Errorf("generator %s: %w", gen.OutputAttribute(), err)
		}
	}
	for i, gen := range p.generators {
		p.logger.Info("running generator", "generator", gen.OutputAttribute())
		if err := gen.Process(payloads[i]); err != nil {
			return fmt.Errorf("generator %s: %w", gen.OutputAttribute(), err)
		}
	}
	return nil
}

// Compose runs the base and extension stages and returns the document.
func (p *Pipeline) Compose(options Options) (value.Value, error) {
	args, err := argumentSet(options)
	if err != nil {
		return nil, err
	}
	config, err := p.baseStage(options, args)
	if err != nil {
		return nil, err
	}
	return p.extensionStage(options, args, config)
}

// argumentSet merges user and ambient arguments.
func argumentSet(options Options) (value.Args, error) {
	args := make(value.Args, len(options.Args)+len(options.Ambient))
	for _, name := range options.Ambient.Names() {
		args[name] = options.Ambient[name]
	}
	for _, name := range options.Args.Names() {
		if name == mixin.ArgPrev || name == mixin.ArgFinal {
			return nil, fmt.Errorf("top-level arguments should not contain prev/final, got %q", name)
		}
		if options.Ambient.Has(name) {
			return nil, fmt.Errorf("top-level argument %q is reserved", name)
		}
		args[name] = options.Args[name]
	}
	return args, nil
}

func (p *Pipeline) baseStage(options Options, args value.Args) (value.Value, error) {
	modules := append([]string(nil), options.Modules...)
	if options.BaseModule != "" {
		modules = append(modules, options.BaseModule)
	}
	if len(options.Modules) == 0 {
		return nil, errors.New("at least one module should be specified")
	}

	p.logger.Info("evaluating config")
	final := deferred.New("config")

	head, err := p.importer.Import(modules[0])
	if err != nil {
		return nil, err
	}
	var patches value.Array
	if array, ok := head.(value.Array); ok {
		if len(array) == 0 {
			return nil, fmt.Errorf("module %q: empty array config", modules[0])
		}
		head, patches = array[0], array[1:]
	}

	headArgs := args.Clone()
	headArgs[mixin.ArgFinal] = final.Lazy()
	config, err := p.thread(headArgs, head)
	if err != nil {
		return nil, fmt.Errorf("module %q: %w", modules[0], err)
	}

	for i, patch := range patches {
		config, err = mixin.Resolve(config, patch, args, final)
		if err != nil {
			return nil, fmt.Errorf("config array[%d]: %w", i+1, err)
		}
	}
	if config, err = p.fold(config, modules[1:], args, final); err != nil {
		return nil, err
	}

	final.Fill(config)
	return config, nil
}

func (p *Pipeline) extensionStage(options Options, args value.Args, config value.Value) (value.Value, error) {
	modules := append([]string(nil), options.InputModules...)
	for _, gen := range p.generators {
		modules = append(modules, gen.LibraryModules()...)
	}

	p.logger.Info("evaluating input config")
	final := deferred.New("input config")

	config, err := p.fold(config, modules, args, final)
	if err != nil {
		return nil, err
	}

	for _, gen := range p.generators {
		payload, ok, err := gen.Config()
		if err != nil {
			return nil, fmt.Errorf("generator %s config: %w", gen.OutputAttribute(), err)
		}
		if !ok {
			continue
		}
		if config, err = mixin.Resolve(config, configPatch(gen.OutputAttribute(), payload), nil, final); err != nil {
			return nil, fmt.Errorf("generator %s config: %w", gen.OutputAttribute(), err)
		}
	}

	final.Fill(config)
	return config, nil
}

// thread evaluates a function module with the arguments it declares.
// Other values are returned unchanged.
func (p *Pipeline) thread(args value.Args, module value.Value) (value.Value, error) {
	fn, ok := module.(*value.Function)
	if !ok {
		return module, nil
	}
	filtered, err := mixin.Thread(args, fn)
	if err != nil {
		return nil, err
	}
	out, err := p.importer.Evaluate(fn, filtered, false)
	if err != nil {
		return nil, fmt.Errorf("during top-level argument call: %w", err)
	}
	return out, nil
}

// fold resolves each module against config in turn.
func (p *Pipeline) fold(config value.Value, modules []string, args value.Args, final *deferred.Cell) (value.Value, error) {
	for _, ref := range modules {
		p.logger.Debug("module", "module", ref)
		module, err := p.importer.Import(ref)
		if err != nil {
			return nil, err
		}
		if config, err = mixin.Resolve(config, module, args, final); err != nil {
			return nil, fmt.Errorf("module %q: %w", ref, err)
		}
	}
	return config, nil
}

// configPatch builds {_output+: {<attribute>+: {_config+:: payload}}}.
func configPatch(attribute string, payload value.Value) *value.Object {
	namespace := value.NewObject().
		SetField(value.Field{Name: ConfigKey, Value: value.Eager(payload), Visibility: value.Hidden, Add: true}).
		Build()
	output := value.NewObject().
		SetField(value.Field{Name: attribute, Value: value.Eager(namespace), Add: true}).
		Build()
	return value.NewObject().
		SetField(value.Field{Name: OutputKey, Value: value.Eager(output), Add: true}).
		Build()
}

// Extract returns each generator's payload from the document, in
// generator order.
func (p *Pipeline) Extract(document value.Value) ([]value.Value, error) {
	obj, ok := document.(*value.Object)
	if !ok {
		return nil, fmt.Errorf("config should be an object, got %s", document.Kind())
	}
	outputValue, ok, err := obj.Get(OutputKey)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", OutputKey, err)
	}
	if !ok {
		return nil, errors.New("missing output key, have you imported any of the generators?")
	}
	output, err := value.ExpectObject(outputValue, OutputKey)
	if err != nil {
		return nil, err
	}

	payloads := make([]value.Value, len(p.generators))
	for i, gen := range p.generators {
		payload, ok, err := output.Get(gen.OutputAttribute())
		if err != nil {
			return nil, fmt.Errorf("generator %s: %w", gen.OutputAttribute(), err)
		}
		if !ok {
			return nil, fmt.Errorf("missing generator output: %s", gen.OutputAttribute())
		}
		payloads[i] = payload
	}
	return payloads, nil
}
