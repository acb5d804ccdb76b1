// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chainspec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// ErrBinaryNotSet is returned when a location names neither a docker
// image nor a local binary.
var ErrBinaryNotSet = errors.New("binary is not set")

// DefaultTimeout bounds a single build-spec invocation.
const DefaultTimeout = 25 * time.Second

// DefaultEmptyImage runs local binaries when no image is given. The
// host's root directories are bind-mounted into it read-only.
const DefaultEmptyImage = "docker.io/library/debian:bookworm-slim"

// specMountPath is where a raw build sees its input spec.
const specMountPath = "/tmp/spec.json"

// basePath is the node's scratch base path inside the container.
const basePath = "/tmp/node"

// CommandError reports a failed raw build. The input spec is left on
// disk at SpecPath so the failure can be reproduced.
type CommandError struct {
	SpecPath string
	Command  string
	Err      error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("docker finished with non-zero exit code; spec dumped to %s\ncommand was: %s: %v", e.SpecPath, e.Command, e.Err)
}

func (e *CommandError) Unwrap() error { return e.Err }

// DockerBuilder builds specs by running the node binary under docker.
type DockerBuilder struct {
	// Docker is the docker executable. Defaults to "docker" on PATH.
	Docker string

	// EmptyImage hosts local binaries. Defaults to DefaultEmptyImage.
	EmptyImage string

	// Timeout bounds each invocation; on expiry the container is sent
	// SIGINT. Defaults to DefaultTimeout.
	Timeout time.Duration

	// TempDir holds raw build inputs. Defaults to os.TempDir().
	TempDir string

	// Mounts lists host directories bind-mounted into EmptyImage.
	// Defaults to DockerMounts.
	Mounts func() ([]string, error)

	// Stderr receives the container's stderr. Defaults to os.Stderr.
	Stderr io.Writer

	Logger *slog.Logger
}

// BuildGenesis runs build-spec for chain.
func (b *DockerBuilder) BuildGenesis(ctx context.Context, bin FileLocation, chain string) ([]byte, error) {
	args := []string{"build-spec", "--base-path", basePath}
	if chain != "" {
		args = append(args, "--chain", chain)
	}
	b.logger().Info("building genesis", "bin", bin.String(), "chain", chain)
	command, err := b.command(bin, nil, args)
	if err != nil {
		return nil, err
	}
	output, err := b.run(ctx, command)
	if err != nil {
		return nil, fmt.Errorf("building genesis spec: %w\ncommand was: %s", err, strings.Join(command, " "))
	}
	return output, nil
}

// BuildRaw converts a genesis spec to raw form. The spec is written to
// a read-only temporary file, named with prefix, and mounted into the
// container. The file is removed on success and kept on failure.
func (b *DockerBuilder) BuildRaw(ctx context.Context, bin FileLocation, prefix string, spec []byte) ([]byte, error) {
	path, err := writeSpecFile(b.tempDir(), prefix, spec)
	if err != nil {
		return nil, err
	}
	b.logger().Info("building raw", "bin", bin.String(), "spec", path)

	mount := []string{"--mount", "type=bind,source=" + path + ",target=" + specMountPath + ",readonly"}
	args := []string{"build-spec", "--raw", "--base-path", basePath, "--chain", specMountPath}
	command, err := b.command(bin, mount, args)
	if err != nil {
		os.Remove(path)
		return nil, err
	}
	output, err := b.run(ctx, command)
	if err != nil {
		return nil, &CommandError{SpecPath: path, Command: strings.Join(command, " "), Err: err}
	}
	if err := os.Remove(path); err != nil {
		b.logger().Warn("removing raw spec input", "path", path, "error", err)
	}
	return output, nil
}

// command assembles the docker argv (including argv[0]).
func (b *DockerBuilder) command(bin FileLocation, extra, args []string) ([]string, error) {
	command := []string{
		b.docker(), "run", "--rm",
		"-e", "RUST_LOG=debug,wasmtime_cranelift=info",
		"-e", "RUST_BACKTRACE=full",
		"-e", "COLORBT_SHOW_HIDDEN=1",
	}
	switch {
	case bin.DockerImage != "":
		if bin.Pinned() {
			command = append(command, "--pull", "missing")
		} else {
			command = append(command, "--pull", "never")
		}
		command = append(command, extra...)
		if bin.Docker != "" {
			command = append(command, "--entrypoint", bin.Docker)
		}
		command = append(command, bin.DockerImage)
	case bin.Local != "":
		command = append(command, "--pull", "missing")
		mounts, err := b.mounts()
		if err != nil {
			return nil, fmt.Errorf("listing host mounts: %w", err)
		}
		for _, dir := range mounts {
			command = append(command, "--mount", "type=bind,source="+dir+",target="+dir+",readonly")
		}
		command = append(command, extra...)
		command = append(command, b.emptyImage(), bin.Local)
	default:
		return nil, ErrBinaryNotSet
	}
	return append(command, args...), nil
}

func (b *DockerBuilder) run(ctx context.Context, command []string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout())
	defer cancel()

	cmd := exec.CommandContext(ctx, command[0], command[1:]...)
	cmd.Cancel = func() error {
		return cmd.Process.Signal(os.Interrupt)
	}
	cmd.WaitDelay = 5 * time.Second
	cmd.Stdin = nil
	cmd.Stderr = b.stderr()
	var stdout bytes.Buffer
	cmd.Stdout = &stdout

	b.logger().Debug("running docker", "command", strings.Join(command, " "))
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%w (%w)", err, ctxErr)
		}
		return nil, err
	}
	return stdout.Bytes(), nil
}

func writeSpecFile(dir, prefix string, spec []byte) (string, error) {
	file, err := os.CreateTemp(dir, prefix+"*.json")
	if err != nil {
		return "", fmt.Errorf("creating raw spec input: %w", err)
	}
	path := file.Name()
	if _, err := file.Write(spec); err != nil {
		file.Close()
		os.Remove(path)
		return "", fmt.Errorf("writing raw spec input: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("writing raw spec input: %w", err)
	}
	if err := os.Chmod(path, 0444); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("writing raw spec input: %w", err)
	}
	return path, nil
}

// excludedRoots are never mounted into the empty image.
var excludedRoots = map[string]bool{
	"proc": true, "sys": true, "dev": true,
	"tmp": true, "run": true, "var": true,
}

// DockerMounts lists the host root directories a local binary needs to
// run inside the empty image: every directory under / except virtual
// and scratch filesystems. The resulting spec build depends on the host
// it ran on.
func DockerMounts() ([]string, error) {
	return rootMounts("/")
}

func rootMounts(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	var mounts []string
	for _, entry := range entries {
		if !entry.IsDir() || excludedRoots[entry.Name()] {
			continue
		}
		mounts = append(mounts, filepath.Join(root, entry.Name()))
	}
	return mounts, nil
}

func (b *DockerBuilder) docker() string {
	if b.Docker == "" {
		return "docker"
	}
	return b.Docker
}

func (b *DockerBuilder) emptyImage() string {
	if b.EmptyImage == "" {
		return DefaultEmptyImage
	}
	return b.EmptyImage
}

func (b *DockerBuilder) timeout() time.Duration {
	if b.Timeout <= 0 {
		return DefaultTimeout
	}
	return b.Timeout
}

func (b *DockerBuilder) tempDir() string {
	if b.TempDir == "" {
		return os.TempDir()
	}
	return b.TempDir
}

func (b *DockerBuilder) mounts() ([]string, error) {
	if b.Mounts == nil {
		return DockerMounts()
	}
	return b.Mounts()
}

func (b *DockerBuilder) stderr() io.Writer {
	if b.Stderr == nil {
		return os.Stderr
	}
	return b.Stderr
}

func (b *DockerBuilder) logger() *slog.Logger {
	if b.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return b.Logger
}
