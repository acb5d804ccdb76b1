// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package generator

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bureau-foundation/bootnet/lib/atomicfile"
	"github.com/bureau-foundation/bootnet/lib/binhash"
	"github.com/bureau-foundation/bootnet/lib/chainspec"
	"github.com/bureau-foundation/bootnet/lib/library"
	"github.com/bureau-foundation/bootnet/lib/value"
)

// SumsFile records the BLAKE3 digest of every file the compose
// generator wrote, relative to the output directory.
const SumsFile = ".bootnet.sum"

// DockerCompose writes each visible field of its payload as a file
// under Dir. A hidden reconcile_<name> function, when present and the
// file already exists, merges the existing content with the new one.
type DockerCompose struct {
	Dir        string
	EmptyImage string
	Logger     *slog.Logger
}

func (*DockerCompose) LibraryModules() []string { return []string{library.ComposeModule} }
func (*DockerCompose) OutputAttribute() string { return library.ComposeOutput }

// Config supplies the empty image for local binaries and the output
// root the compose file's relative paths are computed against.
func (c *DockerCompose) Config() (value.Value, bool, error) {
	emptyImage := c.EmptyImage
	if emptyImage == "" {
		emptyImage = chainspec.DefaultEmptyImage
	}
	return value.NewObject().
		Set("emptyImage", value.String(emptyImage)).
		Set("outputRoot", value.String(c.Dir)).
		Build(), true, nil
}

// Process writes the payload's files. Files whose content is unchanged
// are left alone.
func (c *DockerCompose) Process(payload value.Value) error {
	files, err := value.ExpectObject(payload, "docker compose output")
	if err != nil {
		return err
	}
	sums, err := c.readSums()
	if err != nil {
		return err
	}

	for _, field := range files.Fields(false) {
		path, err := c.outputPath(field.Name)
		if err != nil {
			return err
		}
		contentValue, err := field.Value.Force()
		if err != nil {
			return fmt.Errorf("%s: %w", field.Name, err)
		}
		content, err := value.ExpectString(contentValue, field.Name)
		if err != nil {
			return err
		}

		existing, err := os.ReadFile(path)
		exists := err == nil
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		if exists && files.Has(library.ReconcilePrefix+field.Name) {
			content, err = reconcile(files, field.Name, string(existing), content)
			if err != nil {
				return err
			}
		}

		digest := digestOf([]byte(content))
		if exists {
			current := digestOf(existing)
			if current == digest {
				sums[field.Name] = digest
				continue
			}
			if recorded, ok := sums[field.Name]; ok && recorded != current {
				c.logger().Warn("overwriting file modified since last generation", "path", path)
			}
		}
		if err := atomicfile.WriteFile(path, []byte(content), 0644); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		sums[field.Name] = digest
		c.logger().Info("wrote generated file", "path", path)
	}
	return c.writeSums(sums)
}

// outputPath resolves a payload field name inside Dir.
func (c *DockerCompose) outputPath(name string) (string, error) {
	if slices.Contains(strings.Split(filepath.ToSlash(name), "/"), "..") {
		return "", fmt.Errorf("generator output should not use parent dir: %q", name)
	}
	if !filepath.IsLocal(name) {
		return "", fmt.Errorf("generator output should not escape the output directory: tried to write %q outside of %s", name, c.Dir)
	}
	return filepath.Join(c.Dir, name), nil
}

func reconcile(files *value.Object, name, current, generated string) (string, error) {
	reconcilerValue, err := files.Lookup(library.ReconcilePrefix + name)
	if err != nil {
		return "", err
	}
	reconciler, ok := reconcilerValue.(*value.Function)
	if !ok {
		return "", fmt.Errorf("%s%s: expected function, got %s", library.ReconcilePrefix, name, reconcilerValue.Kind())
	}
	result, err := value.Call(reconciler, value.Args{
		library.ReconcileCurrent:   value.Eager(value.String(current)),
		library.ReconcileGenerated: value.Eager(value.String(generated)),
	}, false)
	if err != nil {
		return "", fmt.Errorf("reconciling %s: %w", name, err)
	}
	return value.ExpectString(result, "reconciled "+name)
}

func digestOf(data []byte) string {
	return binhash.HashBytes(data).String()
}

func (c *DockerCompose) readSums() (map[string]string, error) {
	sums := make(map[string]string)
	data, err := os.ReadFile(filepath.Join(c.Dir, SumsFile))
	if errors.Is(err, fs.ErrNotExist) {
		return sums, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, &sums); err != nil {
		c.logger().Warn("ignoring unreadable sums file", "path", filepath.Join(c.Dir, SumsFile), "error", err)
		return make(map[string]string), nil
	}
	for name, digest := range sums {
		if _, err := binhash.ParseDigest(digest); err != nil {
			c.logger().Warn("ignoring malformed sum", "file", name, "error", err)
			delete(sums, name)
		}
	}
	return sums, nil
}

func (c *DockerCompose) writeSums(sums map[string]string) error {
	data, err := json.MarshalIndent(sums, "", "  ")
	if err != nil {
		return err
	}
	return atomicfile.WriteFile(filepath.Join(c.Dir, SumsFile), append(data, '\n'), 0644)
}

func (c *DockerCompose) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return c.Logger
}
