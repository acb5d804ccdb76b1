// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"
	"log/slog"

	"github.com/bureau-foundation/bootnet/cmd/bootnet/cli"
	"github.com/bureau-foundation/bootnet/lib/config"
	"github.com/bureau-foundation/bootnet/lib/keystore"
	"github.com/bureau-foundation/bootnet/lib/sealed"
)

// secretParams are the flags shared by every command that touches the
// secret store. Non-empty values override the configuration file.
type secretParams struct {
	ConfigPath string   `flag:"config" desc:"configuration file (default: $BOOTNET_CONFIG)"`
	Secret     string   `flag:"secret" desc:"secret backend: memory or file=<dir>" env:"BOOTNET_SECRET"`
	Escrow     []string `flag:"escrow" desc:"age recipient receiving a sealed copy of every secret (repeatable)"`
	LogLevel   string   `flag:"log-level" desc:"log level: debug, info, warn or error" default:"info" env:"BOOTNET_LOG_LEVEL"`
}

// loadConfig reads the configuration file and applies flag overrides.
func (p *secretParams) loadConfig() (*config.Config, error) {
	var cfg *config.Config
	var err error
	if p.ConfigPath != "" {
		cfg, err = config.LoadFile(p.ConfigPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if p.Secret != "" {
		cfg.Secret.Backend = p.Secret
	}
	cfg.Secret.Escrow = append(cfg.Secret.Escrow, p.Escrow...)
	return cfg, nil
}

func (p *secretParams) logger(command string) (*slog.Logger, error) {
	level, err := cli.ParseLogLevel(p.LogLevel)
	if err != nil {
		return nil, &cli.UsageError{Err: err}
	}
	return cli.NewCommandLogger(level).With("command", command), nil
}

// openStore builds the configured secret store wrapped in a backend.
func openStore(cfg *config.Config, logger *slog.Logger) (*keystore.Backend, error) {
	var escrow *sealed.Recipients
	if len(cfg.Secret.Escrow) > 0 {
		recipients, err := sealed.ParseRecipients(cfg.Secret.Escrow)
		if err != nil {
			return nil, fmt.Errorf("escrow: %w", err)
		}
		escrow = recipients
	}
	store, err := keystore.ParseBackend(cfg.Secret.Backend, escrow)
	if err != nil {
		return nil, err
	}
	return keystore.NewBackend(store, logger), nil
}
