// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"

	"github.com/bureau-foundation/bootnet/cmd/bootnet/cli"
	"github.com/bureau-foundation/bootnet/lib/version"
	"github.com/spf13/pflag"
)

func versionCommand() *cli.Command {
	var params struct {
		cli.JSONOutput
	}

	return &cli.Command{
		Name:    "version",
		Summary: "Print version information",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("version", &params)
		},
		Run: func(args []string) error {
			if params.OutputJSON {
				return cli.WriteJSON(stdout, version.Current())
			}
			_, err := fmt.Fprintf(stdout, "bootnet %s\n", version.Full())
			return err
		},
	}
}
