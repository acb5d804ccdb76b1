// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chainspec

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ErrBackendNotSet is returned by a [Backend] with no builder.
var ErrBackendNotSet = errors.New("spec backend is not set")

// Builder produces chain spec JSON from a node binary.
type Builder interface {
	// BuildGenesis returns the genesis spec of chain. An empty chain
	// uses the binary's default.
	BuildGenesis(ctx context.Context, bin FileLocation, chain string) ([]byte, error)

	// BuildRaw converts a genesis spec to raw form. prefix names the
	// temporary input file.
	BuildRaw(ctx context.Context, bin FileLocation, prefix string, spec []byte) ([]byte, error)
}

// Backend is the builder the composer uses. A zero Backend fails every
// request with ErrBackendNotSet, so specs that never need a build still
// compose without docker.
type Backend struct {
	Builder Builder
}

// BuildGenesis implements Builder.
func (b Backend) BuildGenesis(ctx context.Context, bin FileLocation, chain string) ([]byte, error) {
	if b.Builder == nil {
		return nil, ErrBackendNotSet
	}
	return b.Builder.BuildGenesis(ctx, bin, chain)
}

// BuildRaw implements Builder.
func (b Backend) BuildRaw(ctx context.Context, bin FileLocation, prefix string, spec []byte) ([]byte, error) {
	if b.Builder == nil {
		return nil, ErrBackendNotSet
	}
	return b.Builder.BuildRaw(ctx, bin, prefix, spec)
}

// BackendOptions carries the settings ParseBackend applies to a docker
// builder.
type BackendOptions struct {
	EmptyImage string
	Timeout    time.Duration
	CacheDir   string
	Logger     *slog.Logger
}

// ParseBackend selects a backend by name: "docker", or "" for none.
// With a CacheDir the docker builder is wrapped in a CachingBuilder.
func ParseBackend(name string, options BackendOptions) (Backend, error) {
	switch name {
	case "":
		return Backend{}, nil
	case "docker":
		var builder Builder = &DockerBuilder{
			EmptyImage: options.EmptyImage,
			Timeout:    options.Timeout,
			Logger:     options.Logger,
		}
		if options.CacheDir != "" {
			builder = &CachingBuilder{Builder: builder, Dir: options.CacheDir, Logger: options.Logger}
		}
		return Backend{Builder: builder}, nil
	default:
		return Backend{}, fmt.Errorf("unknown spec backend %q (expected \"docker\")", name)
	}
}
