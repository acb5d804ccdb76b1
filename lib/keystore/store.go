// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package keystore persists node identities, typed keys and wallets.
//
// A typed key belongs to a (node, role tag) pair, where the role tag is
// the 4-character key type a substrate keystore files keys under (aura,
// gran, babe, ...). A pair resolves to at most one stored key: writing a
// key removes stale keys with the same tag, and reading a tag that has
// more than one candidate fails with [ErrDuplicateKeyByType].
//
// Lookups that find nothing report ok == false rather than an error.
package keystore

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/bureau-foundation/bootnet/lib/address"
)

var (
	// ErrBackendNotSet is returned by every operation of a Backend
	// with no store configured.
	ErrBackendNotSet = errors.New("secret backend is not set")

	// ErrInvalidRoleTag is returned for role tags that are not exactly
	// 4 characters.
	ErrInvalidRoleTag = errors.New("keystore role tag should be 4 characters")

	// ErrDuplicateKeyByType is returned when more than one key is stored
	// for the same (node, role tag) pair.
	ErrDuplicateKeyByType = errors.New("duplicate key by type")

	// ErrInvalidName is returned for node or wallet names that cannot be
	// encoded as a single path component.
	ErrInvalidName = errors.New("name cannot be encoded as a path")
)

// Store is a secret storage backend.
type Store interface {
	// StoreNodeKey saves the identity key of a node.
	StoreNodeKey(node string, key ed25519.PrivateKey) error
	// NodeID returns the peer id of a stored node identity.
	NodeID(node string) (string, bool, error)

	// StoreTypedKey saves the mnemonic of the node's key for a role tag.
	StoreTypedKey(node, tag string, scheme address.Scheme, mnemonic string, format address.Format) error
	// TypedKey returns the address of the node's key for a role tag.
	TypedKey(node, tag string, scheme address.Scheme, format address.Format) (string, bool, error)

	// StoreWallet saves the mnemonic of an account's wallet for a role tag.
	StoreWallet(name, tag string, scheme address.Scheme, mnemonic string, format address.Format) error
	// Wallet returns the address of a stored wallet.
	Wallet(name, tag string, scheme address.Scheme, format address.Format) (string, bool, error)

	// LocalKeystoreDir returns the directory holding the node's typed
	// keys, or a placeholder when there are none.
	LocalKeystoreDir(node string) (string, bool, error)
	// LocalNodeFile returns the file holding the node identity key.
	LocalNodeFile(node string) (string, bool, error)
}

// Placeholder is the keystore directory reported for nodes without
// typed keys, so a container mount always has a source.
const Placeholder = "/var/empty"

// ValidateRoleTag checks the 4-character rule.
func ValidateRoleTag(tag string) error {
	if utf8.RuneCountInString(tag) != 4 {
		return fmt.Errorf("%w: %q", ErrInvalidRoleTag, tag)
	}
	return nil
}

// ValidateName checks that a node or wallet name is a single, plain
// path component.
func ValidateName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, "/\\\x00") {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

func validateTyped(node, tag string) error {
	if err := ValidateName(node); err != nil {
		return err
	}
	return ValidateRoleTag(tag)
}

// Wallet tags are not limited to 4 characters, but they are part of the
// file name.
func validateWallet(name, tag string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if tag == "" {
		return fmt.Errorf("wallet %q: empty role tag", name)
	}
	return ValidateName(name + "-" + tag)
}
