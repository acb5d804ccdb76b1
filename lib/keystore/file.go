// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package keystore

import (
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bureau-foundation/bootnet/lib/address"
	"github.com/bureau-foundation/bootnet/lib/atomicfile"
	"github.com/bureau-foundation/bootnet/lib/sealed"
)

// FileStore keeps secrets in a directory tree:
//
//	node/<node>                            raw 32-byte ed25519 seed
//	keystore/<node>/<hex(tag)><hex(pub)>   JSON string of the mnemonic
//	wallet/<name>-<tag>                    JSON string of the mnemonic
//	escrow/<same path>.age                 age copy, when escrow is set
//
// The keystore directory of a node uses the substrate file-keystore
// naming, so it can be mounted into a node container as is. Node and
// keystore files are world-readable for the same reason.
type FileStore struct {
	root   string
	escrow *sealed.Recipients
}

// NewFileStore returns a store rooted at root. escrow may be nil.
func NewFileStore(root string, escrow *sealed.Recipients) (*FileStore, error) {
	absolute, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving secret root %q: %w", root, err)
	}
	return &FileStore{root: absolute, escrow: escrow}, nil
}

// Root returns the absolute store directory.
func (s *FileStore) Root() string {
	return s.root
}

func (s *FileStore) nodeFile(node string) string {
	return filepath.Join(s.root, "node", node)
}

func (s *FileStore) keystoreDir(node string) string {
	return filepath.Join(s.root, "keystore", node)
}

func (s *FileStore) walletFile(name, tag string) string {
	return filepath.Join(s.root, "wallet", name+"-"+tag)
}

// write stores data atomically and escrows it.
func (s *FileStore) write(path string, data []byte, mode os.FileMode) error {
	if err := atomicfile.WriteFile(path, data, mode); err != nil {
		return err
	}
	if s.escrow == nil {
		return nil
	}
	relative, err := filepath.Rel(s.root, path)
	if err != nil {
		return err
	}
	ciphertext, err := s.escrow.Seal(data)
	if err != nil {
		return fmt.Errorf("escrowing %s: %w", relative, err)
	}
	return atomicfile.WriteFile(filepath.Join(s.root, "escrow", relative+".age"), ciphertext, 0600)
}

// readOptional returns ok == false when the file does not exist.
func readOptional(path string) ([]byte, bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (s *FileStore) StoreNodeKey(node string, key ed25519.PrivateKey) error {
	if err := ValidateName(node); err != nil {
		return err
	}
	return s.write(s.nodeFile(node), key.Seed(), 0644)
}

func (s *FileStore) NodeID(node string) (string, bool, error) {
	if err := ValidateName(node); err != nil {
		return "", false, err
	}
	seed, ok, err := readOptional(s.nodeFile(node))
	if err != nil || !ok {
		return "", false, err
	}
	key, err := address.NodeKeyFromSeed(seed)
	if err != nil {
		return "", false, fmt.Errorf("node %q: %w", node, err)
	}
	id, err := address.PeerID(key.Public().(ed25519.PublicKey))
	if err != nil {
		return "", false, err
	}
	return id, true, nil
}

func (s *FileStore) StoreTypedKey(node, tag string, scheme address.Scheme, mnemonic string, format address.Format) error {
	if err := validateTyped(node, tag); err != nil {
		return err
	}
	public, err := address.PublicKey(scheme, mnemonic)
	if err != nil {
		return err
	}
	encoded, err := json.Marshal(mnemonic)
	if err != nil {
		return err
	}
	prefix := hex.EncodeToString([]byte(tag))
	name := prefix + hex.EncodeToString(public)
	dir := s.keystoreDir(node)
	if err := s.write(filepath.Join(dir, name), encoded, 0644); err != nil {
		return err
	}

	stale, err := s.candidates(dir, prefix)
	if err != nil {
		return err
	}
	for _, candidate := range stale {
		if candidate == name {
			continue
		}
		if err := os.Remove(filepath.Join(dir, candidate)); err != nil {
			return fmt.Errorf("removing stale key %s: %w", candidate, err)
		}
	}
	return nil
}

func (s *FileStore) TypedKey(node, tag string, scheme address.Scheme, format address.Format) (string, bool, error) {
	if err := validateTyped(node, tag); err != nil {
		return "", false, err
	}
	dir := s.keystoreDir(node)
	candidates, err := s.candidates(dir, hex.EncodeToString([]byte(tag)))
	if err != nil {
		return "", false, err
	}
	switch len(candidates) {
	case 0:
		return "", false, nil
	case 1:
	default:
		return "", false, fmt.Errorf("node %q tag %q: %w (%s)", node, tag, ErrDuplicateKeyByType, strings.Join(candidates, ", "))
	}
	data, err := os.ReadFile(filepath.Join(dir, candidates[0]))
	if err != nil {
		return "", false, err
	}
	return decodeAddress(data, scheme, format)
}

// candidates lists keystore entries starting with prefix. Anything that
// is not a regular file is an error.
func (s *FileStore) candidates(dir, prefix string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var names []string
	for _, entry := range entries {
		if !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}
		if !entry.Type().IsRegular() {
			return nil, fmt.Errorf("keystore entry %s is not a regular file", filepath.Join(dir, entry.Name()))
		}
		names = append(names, entry.Name())
	}
	return names, nil
}

func decodeAddress(data []byte, scheme address.Scheme, format address.Format) (string, bool, error) {
	var mnemonic string
	if err := json.Unmarshal(data, &mnemonic); err != nil {
		return "", false, fmt.Errorf("decoding stored mnemonic: %w", err)
	}
	addr, err := address.Address(scheme, mnemonic, format)
	if err != nil {
		return "", false, err
	}
	return addr, true, nil
}

func (s *FileStore) StoreWallet(name, tag string, scheme address.Scheme, mnemonic string, format address.Format) error {
	if err := validateWallet(name, tag); err != nil {
		return err
	}
	encoded, err := json.Marshal(mnemonic)
	if err != nil {
		return err
	}
	return s.write(s.walletFile(name, tag), encoded, 0600)
}

func (s *FileStore) Wallet(name, tag string, scheme address.Scheme, format address.Format) (string, bool, error) {
	if err := validateWallet(name, tag); err != nil {
		return "", false, err
	}
	data, ok, err := readOptional(s.walletFile(name, tag))
	if err != nil || !ok {
		return "", false, err
	}
	return decodeAddress(data, scheme, format)
}

func (s *FileStore) LocalKeystoreDir(node string) (string, bool, error) {
	if err := ValidateName(node); err != nil {
		return "", false, err
	}
	dir := s.keystoreDir(node)
	info, err := os.Stat(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return Placeholder, true, nil
	}
	if err != nil {
		return "", false, err
	}
	if !info.IsDir() {
		return "", false, fmt.Errorf("%s is not a directory", dir)
	}
	return dir, true, nil
}

func (s *FileStore) LocalNodeFile(node string) (string, bool, error) {
	if err := ValidateName(node); err != nil {
		return "", false, err
	}
	path := s.nodeFile(node)
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	} else if err != nil {
		return "", false, err
	}
	return path, true, nil
}
