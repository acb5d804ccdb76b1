// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package keystore

import (
	"crypto/ed25519"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bureau-foundation/bootnet/lib/address"
	"github.com/bureau-foundation/bootnet/lib/sealed"
)

// Backend dispatches to the configured store and logs every new secret.
// A Backend without a store fails every call with ErrBackendNotSet.
type Backend struct {
	store  Store
	logger *slog.Logger
}

// NewBackend wraps store, which may be nil.
func NewBackend(store Store, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Backend{store: store, logger: logger}
}

// ParseBackend builds a store from its command-line form:
//
//	""            no backend
//	"memory"      in-memory store
//	"file=<dir>"  file store rooted at dir
func ParseBackend(spec string, escrow *sealed.Recipients) (Store, error) {
	switch {
	case spec == "":
		return nil, nil
	case spec == "memory":
		if escrow != nil {
			return nil, fmt.Errorf("escrow is not supported by the memory secret backend")
		}
		return NewMemoryStore(), nil
	case strings.HasPrefix(spec, "file="):
		dir := strings.TrimPrefix(spec, "file=")
		if dir == "" {
			return nil, fmt.Errorf("file secret backend needs a directory (file=<dir>)")
		}
		store, err := NewFileStore(dir, escrow)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown secret backend %q (expected memory or file=<dir>)", spec)
	}
}

func (b *Backend) StoreNodeKey(node string, key ed25519.PrivateKey) error {
	if b.store == nil {
		return ErrBackendNotSet
	}
	if err := b.store.StoreNodeKey(node, key); err != nil {
		return fmt.Errorf("storing node identity %q: %w", node, err)
	}
	peerID, err := address.PeerID(key.Public().(ed25519.PublicKey))
	if err != nil {
		return err
	}
	b.logger.Info("new node identity", "node", node, "peer_id", peerID)
	return nil
}

func (b *Backend) NodeID(node string) (string, bool, error) {
	if b.store == nil {
		return "", false, ErrBackendNotSet
	}
	return b.store.NodeID(node)
}

func (b *Backend) StoreTypedKey(node, tag string, scheme address.Scheme, mnemonic string, format address.Format) error {
	if b.store == nil {
		return ErrBackendNotSet
	}
	if err := b.store.StoreTypedKey(node, tag, scheme, mnemonic, format); err != nil {
		return fmt.Errorf("storing %s key %q for %q: %w", scheme, tag, node, err)
	}
	b.logger.Info("new node key", "node", node, "tag", tag, "scheme", string(scheme))
	return nil
}

func (b *Backend) TypedKey(node, tag string, scheme address.Scheme, format address.Format) (string, bool, error) {
	if b.store == nil {
		return "", false, ErrBackendNotSet
	}
	return b.store.TypedKey(node, tag, scheme, format)
}

func (b *Backend) StoreWallet(name, tag string, scheme address.Scheme, mnemonic string, format address.Format) error {
	if b.store == nil {
		return ErrBackendNotSet
	}
	if err := b.store.StoreWallet(name, tag, scheme, mnemonic, format); err != nil {
		return fmt.Errorf("storing wallet %q for %q: %w", tag, name, err)
	}
	b.logger.Info("new wallet", "name", name, "tag", tag, "scheme", string(scheme))
	return nil
}

func (b *Backend) Wallet(name, tag string, scheme address.Scheme, format address.Format) (string, bool, error) {
	if b.store == nil {
		return "", false, ErrBackendNotSet
	}
	return b.store.Wallet(name, tag, scheme, format)
}

func (b *Backend) LocalKeystoreDir(node string) (string, bool, error) {
	if b.store == nil {
		return "", false, ErrBackendNotSet
	}
	return b.store.LocalKeystoreDir(node)
}

func (b *Backend) LocalNodeFile(node string) (string, bool, error) {
	if b.store == nil {
		return "", false, ErrBackendNotSet
	}
	return b.store.LocalNodeFile(node)
}
