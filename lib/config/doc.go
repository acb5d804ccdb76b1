// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for bootnet.
//
// Configuration is loaded from a single file specified by either the
// BOOTNET_CONFIG environment variable (via [Load]) or a --config flag
// (via [LoadFile]). Unlike most deployments of this loader, the file is
// optional: with neither set, [Load] returns [Default]. Command-line
// flags override whatever the file says.
//
// Variable expansion is performed on path fields after loading:
// ${HOME} and ${VAR:-default} patterns are expanded. No other
// environment variables override config values.
//
// Key exports:
//
//   - [Config] -- master struct with Secret, Spec, Library
//   - [Default] -- returns a Config with no backends configured
//   - [Load] and [LoadFile] -- the two entry points for loading
//
// This package depends on no other bootnet packages.
package config
