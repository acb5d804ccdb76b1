// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/bureau-foundation/bootnet/cmd/bootnet/cli"
	"github.com/bureau-foundation/bootnet/lib/address"
	"github.com/bureau-foundation/bootnet/lib/provision"
	"github.com/bureau-foundation/bootnet/lib/sealed"
	"github.com/bureau-foundation/bootnet/lib/secret"
	"github.com/spf13/pflag"
)

func keysCommand() *cli.Command {
	return &cli.Command{
		Name:    "keys",
		Summary: "Provision and inspect node keys",
		Description: `Work with the secret store outside a generate run.

Keys are generated once and reused: running ensure twice with the same
store prints the same identities.`,
		Subcommands: []*cli.Command{
			keysEnsureCommand(),
			keysEscrowKeygenCommand(),
			keysUnsealCommand(),
		},
	}
}

type keysEnsureParams struct {
	secretParams
	Path   string `flag:"path" desc:"node or wallet path to provision"`
	Format int    `flag:"format" desc:"SS58 address format" default:"42"`
}

func keysEnsureCommand() *cli.Command {
	var params keysEnsureParams

	return &cli.Command{
		Name:    "ensure",
		Summary: "Provision the keys of one node",
		Description: `Generate any missing keys of a node and print the node identity,
public keys and wallet addresses as JSON.

Each argument is name=scheme for a new key or name=@other to reuse the
key provisioned for another name. Names starting with _ are wallets.`,
		Usage: "bootnet keys ensure --secret <backend> --path <node> <name>=<scheme|@alias>...",
		Examples: []cli.Example{
			{
				Description: "Provision session keys for alice",
				Command:     "bootnet keys ensure --secret file=secrets --path alice aura=sr25519 gran=ed25519 babe=@aura",
			},
			{
				Description: "Provision a stash wallet",
				Command:     "bootnet keys ensure --secret file=secrets --path alice _stash=sr25519",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("ensure", &params)
		},
		Run: func(args []string) error {
			return runKeysEnsure(&params, args)
		},
	}
}

func runKeysEnsure(params *keysEnsureParams, args []string) error {
	if params.Path == "" {
		return cli.Usage("--path is required")
	}
	wanted, err := parseWantedKeys(args)
	if err != nil {
		return &cli.UsageError{Err: err}
	}
	format, err := address.ParseFormat(int64(params.Format))
	if err != nil {
		return &cli.UsageError{Err: err}
	}

	logger, err := params.logger("keys ensure")
	if err != nil {
		return err
	}
	cfg, err := params.loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration:\n%w", err)
	}
	store, err := openStore(cfg, logger)
	if err != nil {
		return err
	}

	keys, err := provision.New(store, logger).EnsureKeys(params.Path, wanted, format)
	if err != nil {
		return err
	}
	return cli.WriteJSON(stdout, keys)
}

// parseWantedKeys reads name=scheme and name=@alias arguments.
func parseWantedKeys(args []string) (map[string]provision.Request, error) {
	wanted := make(map[string]provision.Request, len(args))
	for _, arg := range args {
		name, spec, ok := strings.Cut(arg, "=")
		if !ok || name == "" || spec == "" {
			return nil, fmt.Errorf("%q: expected name=scheme or name=@alias", arg)
		}
		if _, exists := wanted[name]; exists {
			return nil, fmt.Errorf("%q: key %q given twice", arg, name)
		}
		if target, isAlias := strings.CutPrefix(spec, "@"); isAlias {
			wanted[name] = provision.AliasRequest{Target: target}
			continue
		}
		scheme, err := address.ParseScheme(spec)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", arg, err)
		}
		wanted[name] = provision.SchemeRequest{Scheme: scheme}
	}
	return wanted, nil
}

func keysEscrowKeygenCommand() *cli.Command {
	var params struct {
		PrivateKeyFile string `flag:"private-key-file" desc:"where to write the private key (required)"`
	}

	return &cli.Command{
		Name:    "escrow-keygen",
		Summary: "Generate an escrow keypair",
		Description: `Generate an age keypair for --escrow. The private key is written to
--private-key-file with mode 0600; the public recipient is printed.`,
		Usage: "bootnet keys escrow-keygen --private-key-file <path>",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("escrow-keygen", &params)
		},
		Run: func(args []string) error {
			if len(args) > 0 {
				return cli.Usage("unexpected argument %q", args[0])
			}
			if params.PrivateKeyFile == "" {
				return cli.Usage("--private-key-file is required")
			}
			return runEscrowKeygen(params.PrivateKeyFile)
		},
	}
}

func runEscrowKeygen(path string) error {
	keypair, err := sealed.GenerateKeypair()
	if err != nil {
		return err
	}
	defer keypair.Close()

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return err
	}
	if _, err := file.Write(keypair.PrivateKey.Bytes()); err != nil {
		file.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if _, err := file.Write([]byte("\n")); err != nil {
		file.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := file.Close(); err != nil {
		return err
	}
	_, err = fmt.Fprintln(stdout, keypair.PublicKey)
	return err
}

func keysUnsealCommand() *cli.Command {
	var params struct {
		Identity string `flag:"identity,i" desc:"escrow private key file, or - for stdin (required)"`
	}

	return &cli.Command{
		Name:    "unseal",
		Summary: "Decrypt an escrowed secret",
		Description: `Decrypt a file from the escrow/ directory of a file secret store and
write the plaintext to stdout.`,
		Usage: "bootnet keys unseal --identity <private-key-file> <file.age>",
		Examples: []cli.Example{
			{
				Description: "Recover alice's node key",
				Command:     "bootnet keys unseal -i escrow.key secrets/escrow/node/alice.age",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("unseal", &params)
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return cli.Usage("expected exactly one sealed file")
			}
			if params.Identity == "" {
				return cli.Usage("--identity is required")
			}
			return runUnseal(params.Identity, args[0])
		},
	}
}

func runUnseal(identityPath, sealedPath string) error {
	ciphertext, err := os.ReadFile(sealedPath)
	if err != nil {
		return err
	}
	identity, err := secret.ReadFromPath(identityPath)
	if err != nil {
		return fmt.Errorf("reading identity: %w", err)
	}
	defer identity.Close()

	plaintext, err := sealed.Open(ciphertext, identity)
	if err != nil {
		return fmt.Errorf("%s: %w", sealedPath, err)
	}
	defer plaintext.Close()
	_, err = stdout.Write(plaintext.Bytes())
	return err
}
