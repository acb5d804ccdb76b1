// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package generator defines output writers for composed documents.
//
// A generator names the library modules that build its payload, the
// attribute under _output where the payload lives, and optional config
// the pipeline injects next to the payload as _config. After
// composition the pipeline hands each generator its payload.
package generator

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/bureau-foundation/bootnet/lib/value"
)

// Generator turns its _output payload into files or streams.
type Generator interface {
	// LibraryModules are folded into the document during the extension
	// stage. They must not conflict with other generators' modules.
	LibraryModules() []string

	// OutputAttribute is the payload's key under _output.
	OutputAttribute() string

	// Config returns the value injected as _output.<attribute>._config,
	// or ok == false for none.
	Config() (config value.Value, ok bool, err error)

	// Process consumes the payload.
	Process(payload value.Value) error
}

// Environment carries what Parse needs to construct generators.
type Environment struct {
	// WorkDir resolves relative output paths.
	WorkDir string

	// Stderr receives stream output. Defaults to os.Stderr.
	Stderr io.Writer

	// EmptyImage is passed to the compose generator.
	EmptyImage string

	Logger *slog.Logger
}

// Parse builds a generator from its command-line form:
//
//	docker_compose=<dir>
//	docker_compose_discover=<file>
//	addressbook[=<file>]
//	debug
func Parse(spec string, env Environment) (Generator, error) {
	stderr := env.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}
	logger := env.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	if dir, ok := strings.CutPrefix(spec, "docker_compose="); ok {
		if dir == "" {
			return nil, fmt.Errorf("docker_compose generator needs an output directory")
		}
		return &DockerCompose{Dir: resolve(env.WorkDir, dir), EmptyImage: env.EmptyImage, Logger: logger}, nil
	}
	if file, ok := strings.CutPrefix(spec, "docker_compose_discover="); ok {
		if file == "" {
			return nil, fmt.Errorf("docker_compose_discover generator needs an output file")
		}
		return &DockerComposeDiscover{File: resolve(env.WorkDir, file)}, nil
	}
	if spec == "addressbook" {
		return &AddressBook{Out: stderr}, nil
	}
	if file, ok := strings.CutPrefix(spec, "addressbook="); ok {
		if file == "" {
			return nil, fmt.Errorf("addressbook generator needs an output file")
		}
		return &AddressBook{File: resolve(env.WorkDir, file), Out: stderr}, nil
	}
	if spec == "debug" {
		return &Debug{Out: stderr}, nil
	}
	return nil, fmt.Errorf("unknown generator %q (expected docker_compose=<dir>, docker_compose_discover=<file>, addressbook[=<file>] or debug)", spec)
}

func resolve(workDir, path string) string {
	if filepath.IsAbs(path) || workDir == "" {
		return filepath.Clean(path)
	}
	return filepath.Join(workDir, path)
}
