// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/bureau-foundation/bootnet/cmd/bootnet/cli"
	"github.com/bureau-foundation/bootnet/lib/chainspec"
	"github.com/bureau-foundation/bootnet/lib/composer"
	"github.com/bureau-foundation/bootnet/lib/config"
	"github.com/bureau-foundation/bootnet/lib/evaluator"
	"github.com/bureau-foundation/bootnet/lib/generator"
	"github.com/bureau-foundation/bootnet/lib/library"
	"github.com/bureau-foundation/bootnet/lib/provision"
	"github.com/bureau-foundation/bootnet/lib/value"
	"github.com/spf13/pflag"
)

type generateParams struct {
	secretParams
	Spec         string   `flag:"spec" desc:"spec backend: docker"`
	SpecCache    string   `flag:"spec-cache" desc:"cache directory for specs built from digest-pinned images"`
	Generators   []string `flag:"generator,g" desc:"generator: docker_compose=<dir>, docker_compose_discover=<file>, addressbook[=<file>] or debug (repeatable)"`
	InputModules []string `flag:"input-module" desc:"module folded after the user modules and before the generators (repeatable)"`
	SearchPaths  []string `flag:"jpath,J" desc:"directory searched for lib: modules, before the configured ones (repeatable)"`
	TLAStrings   []string `flag:"tla-str" desc:"top-level string argument name=value (repeatable)"`
	TLACode      []string `flag:"tla-code" desc:"top-level argument name=<yaml or json> (repeatable)"`
}

func generateCommand() *cli.Command {
	var params generateParams

	return &cli.Command{
		Name:    "generate",
		Summary: "Compose modules and run generators",
		Description: `Fold the given modules into one document and run every generator
over it.

The first module is the base document; each later module is a mixin
applied on top. After the user modules come the --input-module modules,
the generators' library modules, and finally the built-in base module
that fills in hostnames, keys and chain specs. Every payload is rendered
before the first generator writes anything.`,
		Usage: "bootnet generate [flags] <module>...",
		Examples: []cli.Example{
			{
				Description: "Inspect the composed document",
				Command:     "bootnet generate --secret memory -g debug network.yaml",
			},
			{
				Description: "Render a compose project and an address book",
				Command:     "bootnet generate --secret file=secrets --spec docker -g docker_compose=out -g addressbook=out/addresses.json network.yaml",
			},
			{
				Description: "Pass arguments to function modules",
				Command:     "bootnet generate -g debug --tla-str name=devnet --tla-code replicas=3 network.yaml",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("generate", &params)
		},
		Run: func(args []string) error {
			return runGenerate(&params, args)
		},
	}
}

func runGenerate(params *generateParams, modules []string) error {
	if len(modules) == 0 {
		return cli.Usage("at least one module is required")
	}
	if len(params.Generators) == 0 {
		return cli.Usage("at least one --generator is required")
	}
	topLevel, err := parseTopLevelArgs(params.TLAStrings, params.TLACode)
	if err != nil {
		return &cli.UsageError{Err: err}
	}

	logger, err := params.logger("generate")
	if err != nil {
		return err
	}
	cfg, err := params.loadConfig()
	if err != nil {
		return err
	}
	params.apply(cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration:\n%w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	workDir, err := os.Getwd()
	if err != nil {
		return err
	}
	pipeline, lib, err := buildPipeline(ctx, cfg, params.Generators, workDir, logger)
	if err != nil {
		return err
	}

	logger.Info("composing", "modules", modules, "generators", len(params.Generators))
	return pipeline.Run(composer.Options{
		Modules:      modules,
		InputModules: params.InputModules,
		Args:         topLevel,
		Ambient:      value.Args{library.BuiltinsArg: value.Eager(lib.Builtins())},
		BaseModule:   library.BaseModule,
	})
}

// apply overlays the generate-only flags on cfg.
func (p *generateParams) apply(cfg *config.Config) {
	if p.Spec != "" {
		cfg.Spec.Backend = p.Spec
	}
	if p.SpecCache != "" {
		cfg.Spec.CacheDir = p.SpecCache
	}
	if len(p.SearchPaths) > 0 {
		cfg.Library.SearchPaths = append(append([]string(nil), p.SearchPaths...), cfg.Library.SearchPaths...)
	}
}

// buildPipeline wires the stores, builders, evaluator and generators
// described by cfg.
func buildPipeline(ctx context.Context, cfg *config.Config, generatorSpecs []string, workDir string, logger *slog.Logger) (*composer.Pipeline, *library.Library, error) {
	keys, err := openStore(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	timeout, err := cfg.SpecTimeout()
	if err != nil {
		return nil, nil, err
	}
	specs, err := chainspec.ParseBackend(cfg.Spec.Backend, chainspec.BackendOptions{
		EmptyImage: cfg.Spec.EmptyImage,
		Timeout:    timeout,
		CacheDir:   cfg.Spec.CacheDir,
		Logger:     logger,
	})
	if err != nil {
		return nil, nil, err
	}

	eval := evaluator.New(evaluator.Options{
		WorkDir:     workDir,
		SearchPaths: cfg.Library.SearchPaths,
		Logger:      logger,
	})
	lib := library.New(library.Options{
		Context: ctx,
		Specs:   specs,
		Keys:    provision.New(keys, logger),
		Logger:  logger,
	})
	lib.Register(eval)

	environment := generator.Environment{
		WorkDir:    workDir,
		Stderr:     stderr,
		EmptyImage: cfg.Spec.EmptyImage,
		Logger:     logger,
	}
	generators := make([]generator.Generator, 0, len(generatorSpecs))
	for _, spec := range generatorSpecs {
		gen, err := generator.Parse(spec, environment)
		if err != nil {
			return nil, nil, &cli.UsageError{Err: err}
		}
		generators = append(generators, gen)
	}
	return composer.New(eval, generators, logger), lib, nil
}

// parseTopLevelArgs reads --tla-str and --tla-code values. A name may
// be given only once across both flags.
func parseTopLevelArgs(strs, code []string) (value.Args, error) {
	args := make(value.Args)
	add := func(flag, entry string, parse func(string) (value.Value, error)) error {
		name, raw, ok := strings.Cut(entry, "=")
		if !ok || name == "" {
			return fmt.Errorf("--%s %q: expected name=value", flag, entry)
		}
		if args.Has(name) {
			return fmt.Errorf("--%s %q: argument %q given twice", flag, entry, name)
		}
		v, err := parse(raw)
		if err != nil {
			return fmt.Errorf("--%s %s: %w", flag, name, err)
		}
		args[name] = value.Eager(v)
		return nil
	}
	for _, entry := range strs {
		if err := add("tla-str", entry, func(raw string) (value.Value, error) {
			return value.String(raw), nil
		}); err != nil {
			return nil, err
		}
	}
	for _, entry := range code {
		if err := add("tla-code", entry, evaluator.ParseCode); err != nil {
			return nil, err
		}
	}
	return args, nil
}
