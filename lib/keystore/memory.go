// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package keystore

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"slices"
	"strings"

	"github.com/bureau-foundation/bootnet/lib/address"
)

// MemoryStore keeps secrets in process memory. It follows the FileStore
// naming and dedup rules, and is used for dry runs and tests.
type MemoryStore struct {
	nodes   map[string][]byte
	typed   map[string]map[string]string
	wallets map[string]string
	writes  int
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nodes:   make(map[string][]byte),
		typed:   make(map[string]map[string]string),
		wallets: make(map[string]string),
	}
}

// Writes returns the number of store operations performed so far.
func (s *MemoryStore) Writes() int {
	return s.writes
}

// PutRaw stores a typed-key entry under an explicit entry name
// (hex(tag) followed by hex(public key)), bypassing dedup.
func (s *MemoryStore) PutRaw(node, entry, mnemonic string) {
	if s.typed[node] == nil {
		s.typed[node] = make(map[string]string)
	}
	s.typed[node][entry] = mnemonic
}

func (s *MemoryStore) StoreNodeKey(node string, key ed25519.PrivateKey) error {
	if err := ValidateName(node); err != nil {
		return err
	}
	s.writes++
	s.nodes[node] = slices.Clone(key.Seed())
	return nil
}

func (s *MemoryStore) NodeID(node string) (string, bool, error) {
	if err := ValidateName(node); err != nil {
		return "", false, err
	}
	seed, ok := s.nodes[node]
	if !ok {
		return "", false, nil
	}
	id, err := address.PeerID(ed25519.NewKeyFromSeed(seed).Public().(ed25519.PublicKey))
	if err != nil {
		return "", false, err
	}
	return id, true, nil
}

func (s *MemoryStore) StoreTypedKey(node, tag string, scheme address.Scheme, mnemonic string, format address.Format) error {
	if err := validateTyped(node, tag); err != nil {
		return err
	}
	public, err := address.PublicKey(scheme, mnemonic)
	if err != nil {
		return err
	}
	prefix := hex.EncodeToString([]byte(tag))
	entries := s.typed[node]
	for entry := range entries {
		if strings.HasPrefix(entry, prefix) {
			delete(entries, entry)
		}
	}
	s.writes++
	s.PutRaw(node, prefix+hex.EncodeToString(public), mnemonic)
	return nil
}

func (s *MemoryStore) TypedKey(node, tag string, scheme address.Scheme, format address.Format) (string, bool, error) {
	if err := validateTyped(node, tag); err != nil {
		return "", false, err
	}
	prefix := hex.EncodeToString([]byte(tag))
	var matches []string
	for entry := range s.typed[node] {
		if strings.HasPrefix(entry, prefix) {
			matches = append(matches, entry)
		}
	}
	switch len(matches) {
	case 0:
		return "", false, nil
	case 1:
	default:
		slices.Sort(matches)
		return "", false, fmt.Errorf("node %q tag %q: %w (%s)", node, tag, ErrDuplicateKeyByType, strings.Join(matches, ", "))
	}
	addr, err := address.Address(scheme, s.typed[node][matches[0]], format)
	if err != nil {
		return "", false, err
	}
	return addr, true, nil
}

func (s *MemoryStore) StoreWallet(name, tag string, scheme address.Scheme, mnemonic string, format address.Format) error {
	if err := validateWallet(name, tag); err != nil {
		return err
	}
	s.writes++
	s.wallets[name+"-"+tag] = mnemonic
	return nil
}

func (s *MemoryStore) Wallet(name, tag string, scheme address.Scheme, format address.Format) (string, bool, error) {
	if err := validateWallet(name, tag); err != nil {
		return "", false, err
	}
	mnemonic, ok := s.wallets[name+"-"+tag]
	if !ok {
		return "", false, nil
	}
	addr, err := address.Address(scheme, mnemonic, format)
	if err != nil {
		return "", false, err
	}
	return addr, true, nil
}

func (s *MemoryStore) LocalKeystoreDir(node string) (string, bool, error) {
	if err := ValidateName(node); err != nil {
		return "", false, err
	}
	return Placeholder, true, nil
}

func (s *MemoryStore) LocalNodeFile(node string) (string, bool, error) {
	if err := ValidateName(node); err != nil {
		return "", false, err
	}
	if _, ok := s.nodes[node]; !ok {
		return "", false, nil
	}
	return Placeholder, true, nil
}
