// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package evaluator loads modules by reference and calls function values
// with named arguments.
//
// A module reference takes one of three forms:
//
//   - "lib:<name>": a library module. Built-in modules registered with
//     [Evaluator.Register] take precedence, then <name> is searched for
//     in each library search path.
//   - "snippet:<source>": inline YAML or JSON source.
//   - anything else: a file path relative to the working directory.
//
// Files are interpreted by extension: .json and .yaml/.yml are data,
// .jsonc is JSON with comments and trailing commas, and .go is a module
// script evaluated with yaegi (see [LoadScript]).
package evaluator

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"

	"github.com/bureau-foundation/bootnet/lib/value"
)

// Reference prefixes.
const (
	LibraryPrefix = "lib:"
	SnippetPrefix = "snippet:"
)

// Options configures an Evaluator.
type Options struct {
	// WorkDir resolves bare path references. Empty means the process
	// working directory.
	WorkDir string

	// SearchPaths are the directories searched for "lib:" references
	// that are not built in.
	SearchPaths []string

	Logger *slog.Logger
}

// Evaluator imports modules and caches them per reference.
type Evaluator struct {
	workDir     string
	searchPaths []string
	builtins    map[string]value.Value
	cache       map[string]value.Value
	logger      *slog.Logger
}

// New returns an evaluator with no built-in modules.
func New(options Options) *Evaluator {
	logger := options.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Evaluator{
		workDir:     options.WorkDir,
		searchPaths: options.SearchPaths,
		builtins:    make(map[string]value.Value),
		cache:       make(map[string]value.Value),
		logger:      logger,
	}
}

// Register makes v importable as "lib:<name>".
func (e *Evaluator) Register(name string, v value.Value) {
	e.builtins[name] = v
}

// Import evaluates the module named by ref.
func (e *Evaluator) Import(ref string) (value.Value, error) {
	if cached, ok := e.cache[ref]; ok {
		return cached, nil
	}
	v, err := e.load(ref)
	if err != nil {
		return nil, fmt.Errorf("importing %q: %w", ref, err)
	}
	e.cache[ref] = v
	return v, nil
}

func (e *Evaluator) load(ref string) (value.Value, error) {
	if source, ok := strings.CutPrefix(ref, SnippetPrefix); ok {
		return value.ParseYAML([]byte(source))
	}
	if name, ok := strings.CutPrefix(ref, LibraryPrefix); ok {
		if builtin, ok := e.builtins[name]; ok {
			e.logger.Debug("using built-in library module", "module", name)
			return builtin, nil
		}
		path, err := e.findLibrary(name)
		if err != nil {
			return nil, err
		}
		return e.loadFile(path)
	}
	path := ref
	if !filepath.IsAbs(path) && e.workDir != "" {
		path = filepath.Join(e.workDir, path)
	}
	return e.loadFile(path)
}

func (e *Evaluator) findLibrary(name string) (string, error) {
	if !filepath.IsLocal(name) {
		return "", fmt.Errorf("library module name %q must be a relative path inside a search path", name)
	}
	for _, dir := range e.searchPaths {
		candidate := filepath.Join(dir, name)
		info, err := os.Stat(candidate)
		if err == nil && !info.IsDir() {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("library module %q not found in %d search paths", name, len(e.searchPaths))
}

func (e *Evaluator) loadFile(path string) (value.Value, error) {
	e.logger.Debug("loading module file", "path", path)
	switch ext := filepath.Ext(path); ext {
	case ".go":
		return LoadScript(path)
	case ".json", ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return value.ParseYAML(data)
	case ".jsonc":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return value.ParseYAML(jsonc.ToJSON(data))
	default:
		return nil, fmt.Errorf("unsupported module type %q", ext)
	}
}

// Evaluate calls fn with args. Values that are not functions are
// rejected.
func (e *Evaluator) Evaluate(fn value.Value, args value.Args, allowExtra bool) (value.Value, error) {
	function, ok := fn.(*value.Function)
	if !ok {
		return nil, fmt.Errorf("cannot call %s", fn.Kind())
	}
	return value.Call(function, args, allowExtra)
}

// ParseCode parses an inline argument value (YAML or JSON).
func ParseCode(source string) (value.Value, error) {
	return value.ParseYAML([]byte(source))
}
