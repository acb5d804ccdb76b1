// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvVar names the environment variable [Load] reads.
const EnvVar = "BOOTNET_CONFIG"

// Config is the master configuration for bootnet.
type Config struct {
	// Secret configures where provisioned keys are stored.
	Secret SecretConfig `yaml:"secret"`

	// Spec configures how chain specs are built.
	Spec SpecConfig `yaml:"spec"`

	// Library configures module resolution.
	Library LibraryConfig `yaml:"library"`
}

// SecretConfig configures the secret store.
type SecretConfig struct {
	// Backend selects the store: "" (none), "memory" or "file=<dir>".
	Backend string `yaml:"backend"`

	// Escrow lists age recipients that receive a sealed copy of every
	// generated secret. Only the file backend supports escrow.
	Escrow []string `yaml:"escrow"`
}

// SpecConfig configures the chain spec builder.
type SpecConfig struct {
	// Backend selects the builder: "" (none) or "docker".
	Backend string `yaml:"backend"`

	// Timeout bounds every docker invocation.
	// Default: 25s
	Timeout string `yaml:"timeout"`

	// EmptyImage runs local binaries. Empty uses the builder's default.
	EmptyImage string `yaml:"empty_image"`

	// CacheDir caches specs built from digest-pinned images. Empty
	// disables the cache.
	CacheDir string `yaml:"cache_dir"`
}

// LibraryConfig configures module resolution.
type LibraryConfig struct {
	// SearchPaths are searched in order for lib: modules that are not
	// built in.
	SearchPaths []string `yaml:"search_paths"`
}

// Default returns the default configuration: no secret backend, no
// spec backend, and no search paths. Documents that never read keys or
// raw specs compose without any of them.
func Default() *Config {
	return &Config{
		Spec: SpecConfig{
			Timeout: "25s",
		},
	}
}

// Load loads configuration from the file named by BOOTNET_CONFIG, or
// returns [Default] when the variable is unset.
func Load() (*Config, error) {
	configPath := os.Getenv(EnvVar)
	if configPath == "" {
		cfg := Default()
		cfg.expandVariables()
		return cfg, nil
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path.
//
// The file is merged over [Default]; fields it omits keep their
// defaults. The only expansion performed is ${HOME} and similar path
// variables for portability.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	cfg.expandVariables()
	return cfg, nil
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in paths.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}

	c.Secret.Backend = expandVars(c.Secret.Backend, vars)
	c.Spec.CacheDir = expandVars(c.Spec.CacheDir, vars)
	for i, path := range c.Library.SearchPaths {
		c.Library.SearchPaths[i] = expandVars(path, vars)
	}
}

// expandVars expands ${VAR} and ${VAR:-default} patterns.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		// Check provided vars first, then environment.
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// SpecTimeout returns the parsed spec.timeout.
func (c *Config) SpecTimeout() (time.Duration, error) {
	timeout, err := time.ParseDuration(c.Spec.Timeout)
	if err != nil {
		return 0, fmt.Errorf("spec.timeout: %w", err)
	}
	if timeout <= 0 {
		return 0, fmt.Errorf("spec.timeout must be positive, got %s", c.Spec.Timeout)
	}
	return timeout, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	switch backend := c.Secret.Backend; {
	case backend == "", backend == "memory":
		if len(c.Secret.Escrow) > 0 {
			errs = append(errs, fmt.Errorf("secret.escrow requires the file backend"))
		}
	case strings.HasPrefix(backend, "file="):
		if backend == "file=" {
			errs = append(errs, fmt.Errorf("secret.backend file= needs a directory"))
		}
	default:
		errs = append(errs, fmt.Errorf("secret.backend must be empty, memory or file=<dir>, got %q", backend))
	}
	for i, recipient := range c.Secret.Escrow {
		if !strings.HasPrefix(recipient, "age1") {
			errs = append(errs, fmt.Errorf("secret.escrow[%d] is not an age recipient: %q", i, recipient))
		}
	}

	specBackends := []string{"", "docker"}
	if !slices.Contains(specBackends, c.Spec.Backend) {
		errs = append(errs, fmt.Errorf("spec.backend must be one of: %q", specBackends))
	}
	if _, err := c.SpecTimeout(); err != nil {
		errs = append(errs, err)
	}

	for i, path := range c.Library.SearchPaths {
		if path == "" {
			errs = append(errs, fmt.Errorf("library.search_paths[%d] is empty", i))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
