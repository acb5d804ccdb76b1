// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands builds the bootnet command tree.
package commands

import (
	"io"
	"os"

	"github.com/bureau-foundation/bootnet/cmd/bootnet/cli"
)

// stdout receives command results and stderr receives stream
// generator output. Tests replace them.
var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

// Root builds and returns the complete bootnet command tree.
func Root() *cli.Command {
	return &cli.Command{
		Name: "bootnet",
		Description: `bootnet: cluster configuration composer.

Folds configuration modules into a single document, provisions node keys
and chain specs on demand, and hands the result to output generators.`,
		Subcommands: []*cli.Command{
			generateCommand(),
			keysCommand(),
			versionCommand(),
		},
		Examples: []cli.Example{
			{
				Description: "Print the composed document of a two-node network",
				Command:     "bootnet generate --secret memory --generator debug network.yaml",
			},
			{
				Description: "Write a docker compose project, keeping keys on disk",
				Command:     "bootnet generate --secret file=secrets --spec docker --generator docker_compose=out network.yaml",
			},
			{
				Description: "Provision one node's keys and print them",
				Command:     "bootnet keys ensure --secret file=secrets --path alice aura=sr25519 gran=ed25519",
			},
		},
	}
}
