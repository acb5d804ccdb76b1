// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Secret.Backend != "" {
		t.Errorf("expected no secret backend, got %s", cfg.Secret.Backend)
	}

	if cfg.Spec.Backend != "" {
		t.Errorf("expected no spec backend, got %s", cfg.Spec.Backend)
	}

	timeout, err := cfg.SpecTimeout()
	if err != nil || timeout != 25*time.Second {
		t.Errorf("expected timeout=25s, got %v (%v)", timeout, err)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoad_WithoutBootnetConfig(t *testing.T) {
	// Save and restore BOOTNET_CONFIG.
	origConfig := os.Getenv(EnvVar)
	defer os.Setenv(EnvVar, origConfig)

	os.Unsetenv(EnvVar)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() without %s failed: %v", EnvVar, err)
	}
	if cfg.Spec.Timeout != "25s" {
		t.Errorf("expected defaults, got timeout=%s", cfg.Spec.Timeout)
	}
}

func TestLoad_WithBootnetConfig(t *testing.T) {
	// Save and restore BOOTNET_CONFIG.
	origConfig := os.Getenv(EnvVar)
	defer os.Setenv(EnvVar, origConfig)

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "bootnet.yaml")

	configContent := `
spec:
  backend: docker
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	os.Setenv(EnvVar, configPath)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Spec.Backend != "docker" {
		t.Errorf("expected spec backend=docker, got %s", cfg.Spec.Backend)
	}

	// Fields the file omits keep their defaults.
	if cfg.Spec.Timeout != "25s" {
		t.Errorf("expected timeout=25s, got %s", cfg.Spec.Timeout)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	origConfig := os.Getenv(EnvVar)
	defer os.Setenv(EnvVar, origConfig)

	os.Setenv(EnvVar, filepath.Join(t.TempDir(), "missing.yaml"))

	if _, err := Load(); err == nil {
		t.Fatal("expected error for a missing config file, got nil")
	}
}

func TestLoadFile(t *testing.T) {
	origHome := os.Getenv("HOME")
	defer os.Setenv("HOME", origHome)
	os.Setenv("HOME", "/home/operator")

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "bootnet.yaml")

	configContent := `
secret:
  backend: file=${HOME}/secrets
  escrow:
    - age1ql3z7hjy54pw3hyww5ayyfg7zqgvc7w3j2elw8zmrj2kg5sfn9aqmcac8p

spec:
  backend: docker
  timeout: 1m
  empty_image: docker.io/library/alpine:3
  cache_dir: ${BOOTNET_TEST_CACHE:-/var/cache/bootnet}

library:
  search_paths:
    - ${HOME}/presets
    - /usr/share/bootnet
`

	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if cfg.Secret.Backend != "file=/home/operator/secrets" {
		t.Errorf("expected backend=file=/home/operator/secrets, got %s", cfg.Secret.Backend)
	}

	if len(cfg.Secret.Escrow) != 1 {
		t.Errorf("expected one escrow recipient, got %v", cfg.Secret.Escrow)
	}

	timeout, err := cfg.SpecTimeout()
	if err != nil || timeout != time.Minute {
		t.Errorf("expected timeout=1m, got %v (%v)", timeout, err)
	}

	if cfg.Spec.EmptyImage != "docker.io/library/alpine:3" {
		t.Errorf("expected empty_image=docker.io/library/alpine:3, got %s", cfg.Spec.EmptyImage)
	}

	if cfg.Spec.CacheDir != "/var/cache/bootnet" {
		t.Errorf("expected cache_dir=/var/cache/bootnet, got %s", cfg.Spec.CacheDir)
	}

	want := []string{"/home/operator/presets", "/usr/share/bootnet"}
	if strings.Join(cfg.Library.SearchPaths, ",") != strings.Join(want, ",") {
		t.Errorf("expected search_paths=%v, got %v", want, cfg.Library.SearchPaths)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("loaded config should validate: %v", err)
	}
}

func TestLoadFile_InvalidYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "bootnet.yaml")
	if err := os.WriteFile(configPath, []byte("spec: [unterminated"), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	if _, err := LoadFile(configPath); err == nil {
		t.Fatal("expected parse error, got nil")
	}
}

func TestExpandVars(t *testing.T) {
	tests := []struct {
		input    string
		vars     map[string]string
		expected string
	}{
		{
			input:    "${HOME}/bootnet",
			vars:     map[string]string{"HOME": "/home/user"},
			expected: "/home/user/bootnet",
		},
		{
			input:    "${BOOTNET_TEST_MISSING:-default}",
			vars:     map[string]string{},
			expected: "default",
		},
		{
			input:    "${PRESENT:-default}",
			vars:     map[string]string{"PRESENT": "value"},
			expected: "value",
		},
		{
			input:    "file=${A}/${B}",
			vars:     map[string]string{"A": "first", "B": "second"},
			expected: "file=first/second",
		},
		{
			input:    "no variables here",
			vars:     map[string]string{},
			expected: "no variables here",
		},
	}

	for _, tt := range tests {
		result := expandVars(tt.input, tt.vars)
		if result != tt.expected {
			t.Errorf("expandVars(%q) = %q, want %q", tt.input, result, tt.expected)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid default config",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name: "memory secret backend",
			modify: func(c *Config) {
				c.Secret.Backend = "memory"
			},
			wantErr: false,
		},
		{
			name: "unknown secret backend",
			modify: func(c *Config) {
				c.Secret.Backend = "vault"
			},
			wantErr: true,
		},
		{
			name: "file backend without directory",
			modify: func(c *Config) {
				c.Secret.Backend = "file="
			},
			wantErr: true,
		},
		{
			name: "escrow without file backend",
			modify: func(c *Config) {
				c.Secret.Escrow = []string{"age1example"}
			},
			wantErr: true,
		},
		{
			name: "escrow that is not an age recipient",
			modify: func(c *Config) {
				c.Secret.Backend = "file=/secrets"
				c.Secret.Escrow = []string{"ssh-ed25519 AAAA"}
			},
			wantErr: true,
		},
		{
			name: "unknown spec backend",
			modify: func(c *Config) {
				c.Spec.Backend = "podman"
			},
			wantErr: true,
		},
		{
			name: "invalid timeout",
			modify: func(c *Config) {
				c.Spec.Timeout = "soon"
			},
			wantErr: true,
		},
		{
			name: "zero timeout",
			modify: func(c *Config) {
				c.Spec.Timeout = "0s"
			},
			wantErr: true,
		},
		{
			name: "empty search path",
			modify: func(c *Config) {
				c.Library.SearchPaths = []string{""}
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_JoinsErrors(t *testing.T) {
	cfg := Default()
	cfg.Secret.Backend = "vault"
	cfg.Spec.Backend = "podman"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	for _, want := range []string{"secret.backend", "spec.backend"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected %q in %q", want, err.Error())
		}
	}
}
