// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package provision makes sure every key a cluster document asks for
// exists, generating what is missing.
//
// For a node (the "path") and its wanted keys, [Provisioner.EnsureKeys]:
//
//  1. creates the node identity if the store has none;
//  2. for each wanted name, in sorted order:
//     - "_tag" names are wallets: a 24-word mnemonic for (path, tag);
//     - names ending in "Keys" or "Key" are reserved and skipped;
//     - other names are typed keys: a 12-word mnemonic for (path, name),
//     shared with every wanted alias that names it directly;
//  3. resolves the local keystore directory and node key file.
//
// Keys that already exist are only read, so a second run with the same
// input against the same store writes nothing and returns the same
// result.
package provision

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"
	"strings"

	"github.com/bureau-foundation/bootnet/lib/address"
	"github.com/bureau-foundation/bootnet/lib/keystore"
	"github.com/bureau-foundation/bootnet/lib/secret"
	"github.com/bureau-foundation/bootnet/lib/value"
)

// Keys is the provisioning result for one node.
type Keys struct {
	NodeIdentity     string            `json:"nodeIdentity"`
	Keys             map[string]string `json:"keys"`
	Wallets          map[string]string `json:"wallets"`
	LocalKeystoreDir string            `json:"localKeystoreDir"`
	LocalNodeFile    string            `json:"localNodeFile"`
}

// Value renders the result as a document object.
func (k *Keys) Value() *value.Object {
	return value.NewObject().
		Set("nodeIdentity", value.String(k.NodeIdentity)).
		Set("keys", stringMap(k.Keys)).
		Set("wallets", stringMap(k.Wallets)).
		Set("localKeystoreDir", value.String(k.LocalKeystoreDir)).
		Set("localNodeFile", value.String(k.LocalNodeFile)).
		Build()
}

func stringMap(m map[string]string) *value.Object {
	builder := value.NewObject()
	for _, name := range slices.Sorted(maps.Keys(m)) {
		builder.Set(name, value.String(m[name]))
	}
	return builder.Build()
}

// Provisioner generates and looks up keys in a store.
type Provisioner struct {
	store  keystore.Store
	random io.Reader
	logger *slog.Logger
}

// New returns a provisioner drawing entropy from crypto/rand.
func New(store keystore.Store, logger *slog.Logger) *Provisioner {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Provisioner{store: store, random: rand.Reader, logger: logger}
}

// SetRandom replaces the entropy source. Tests use it for deterministic
// key material.
func (p *Provisioner) SetRandom(random io.Reader) {
	p.random = random
}

// IsWallet reports whether a wanted name is a wallet, and returns its
// role tag.
func IsWallet(name string) (string, bool) {
	return strings.CutPrefix(name, "_")
}

// IsReserved reports whether a wanted name follows the "...Keys" or
// "...Key" convention and is provisioned elsewhere.
func IsReserved(name string) bool {
	return (len(name) > 4 && strings.HasSuffix(name, "Keys")) ||
		(len(name) > 3 && strings.HasSuffix(name, "Key"))
}

// EnsureKeys provisions the wanted keys of path.
func (p *Provisioner) EnsureKeys(path string, wanted map[string]Request, format address.Format) (*Keys, error) {
	names := slices.Sorted(maps.Keys(wanted))
	if err := validateTags(names, wanted); err != nil {
		return nil, fmt.Errorf("provisioning %q: %w", path, err)
	}

	nodeID, err := p.ensureNodeIdentity(path)
	if err != nil {
		return nil, fmt.Errorf("provisioning %q: %w", path, err)
	}
	result := &Keys{
		NodeIdentity: nodeID,
		Keys:         make(map[string]string),
		Wallets:      make(map[string]string),
	}

	for _, name := range names {
		if tag, ok := IsWallet(name); ok {
			addr, err := p.ensureWallet(path, tag, wanted[name], format)
			if err != nil {
				return nil, fmt.Errorf("provisioning %q wallet %q: %w", path, name, err)
			}
			result.Wallets[tag] = addr
			continue
		}
		if IsReserved(name) {
			continue
		}
		// Aliases are filled from their target; opaque requests belong
		// to someone else.
		request, ok := wanted[name].(SchemeRequest)
		if !ok {
			continue
		}
		scheme := request.Scheme

		aliases := aliasesOf(name, names, wanted)
		addr, err := p.ensureTypedKey(path, name, scheme, aliases, format)
		if err != nil {
			return nil, fmt.Errorf("provisioning %q key %q: %w", path, name, err)
		}
		result.Keys[name] = addr
		for _, alias := range aliases {
			result.Keys[alias] = addr
		}
	}

	dir, ok, err := p.store.LocalKeystoreDir(path)
	if err != nil {
		return nil, fmt.Errorf("provisioning %q: resolving keystore directory: %w", path, err)
	}
	if !ok {
		return nil, fmt.Errorf("provisioning %q: secret store has no keystore directory", path)
	}
	nodeFile, ok, err := p.store.LocalNodeFile(path)
	if err != nil {
		return nil, fmt.Errorf("provisioning %q: resolving node key file: %w", path, err)
	}
	if !ok {
		return nil, fmt.Errorf("provisioning %q: secret store has no node key file", path)
	}
	result.LocalKeystoreDir = dir
	result.LocalNodeFile = nodeFile
	return result, nil
}

// validateTags checks every name that would be stored as a typed key
// before anything touches the store.
func validateTags(names []string, wanted map[string]Request) error {
	for _, name := range names {
		if _, ok := IsWallet(name); ok || IsReserved(name) {
			continue
		}
		stored := false
		switch request := wanted[name].(type) {
		case SchemeRequest:
			stored = true
		case AliasRequest:
			_, stored = wanted[request.Target].(SchemeRequest)
			if _, wallet := IsWallet(request.Target); wallet || IsReserved(request.Target) {
				stored = false
			}
		}
		if !stored {
			continue
		}
		if err := keystore.ValidateRoleTag(name); err != nil {
			return fmt.Errorf("key %q: %w", name, err)
		}
	}
	return nil
}

// aliasesOf returns the wanted names that alias name directly. Aliases
// of aliases are not followed.
func aliasesOf(name string, names []string, wanted map[string]Request) []string {
	var aliases []string
	for _, candidate := range names {
		if _, ok := IsWallet(candidate); ok || IsReserved(candidate) {
			continue
		}
		if alias, ok := wanted[candidate].(AliasRequest); ok && alias.Target == name {
			aliases = append(aliases, candidate)
		}
	}
	return aliases
}

func (p *Provisioner) ensureNodeIdentity(path string) (string, error) {
	id, ok, err := p.store.NodeID(path)
	if err != nil {
		return "", fmt.Errorf("reading node identity: %w", err)
	}
	if ok {
		return id, nil
	}
	seed := make([]byte, ed25519.SeedSize)
	if _, err := io.ReadFull(p.random, seed); err != nil {
		return "", fmt.Errorf("generating node identity: %w", err)
	}
	key := ed25519.NewKeyFromSeed(seed)
	secret.Zero(seed)
	err = p.store.StoreNodeKey(path, key)
	secret.Zero(key)
	if err != nil {
		return "", err
	}
	id, ok, err = p.store.NodeID(path)
	if err != nil {
		return "", fmt.Errorf("reading node identity: %w", err)
	}
	if !ok {
		return "", fmt.Errorf("node identity missing after store")
	}
	return id, nil
}

func (p *Provisioner) ensureWallet(path, tag string, request Request, format address.Format) (string, error) {
	schemeRequest, ok := request.(SchemeRequest)
	if !ok {
		return "", fmt.Errorf("wallet scheme must be scheme-based")
	}
	scheme := schemeRequest.Scheme
	addr, ok, err := p.store.Wallet(path, tag, scheme, format)
	if err != nil {
		return "", err
	}
	if ok {
		return addr, nil
	}

	mnemonic, err := p.newMnemonic(address.WalletWords)
	if err != nil {
		return "", err
	}
	defer mnemonic.Close()
	if err := p.store.StoreWallet(path, tag, scheme, mnemonic.String(), format); err != nil {
		return "", err
	}
	addr, ok, err = p.store.Wallet(path, tag, scheme, format)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("wallet missing after store")
	}
	return addr, nil
}

func (p *Provisioner) ensureTypedKey(path, tag string, scheme address.Scheme, aliases []string, format address.Format) (string, error) {
	addr, ok, err := p.store.TypedKey(path, tag, scheme, format)
	if err != nil {
		return "", err
	}
	if ok {
		return addr, nil
	}

	mnemonic, err := p.newMnemonic(address.TypedKeyWords)
	if err != nil {
		return "", err
	}
	defer mnemonic.Close()
	if err := p.store.StoreTypedKey(path, tag, scheme, mnemonic.String(), format); err != nil {
		return "", err
	}
	for _, alias := range aliases {
		if err := p.store.StoreTypedKey(path, alias, scheme, mnemonic.String(), format); err != nil {
			return "", fmt.Errorf("alias %q: %w", alias, err)
		}
	}
	p.logger.Debug("generated typed key", "node", path, "tag", tag, "aliases", aliases)

	addr, ok, err = p.store.TypedKey(path, tag, scheme, format)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("typed key missing after store")
	}
	return addr, nil
}

func (p *Provisioner) newMnemonic(words int) (*secret.Buffer, error) {
	mnemonic, err := address.NewMnemonic(p.random, words)
	if err != nil {
		return nil, fmt.Errorf("generating mnemonic: %w", err)
	}
	return secret.NewFromString(mnemonic)
}
