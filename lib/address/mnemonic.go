// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package address

import (
	"crypto/sha512"
	"fmt"
	"io"

	"github.com/tyler-smith/go-bip39"
	"golang.org/x/crypto/pbkdf2"
)

// Mnemonic lengths used for generated keys.
const (
	TypedKeyWords = 12
	WalletWords   = 24
)

// NewMnemonic reads fresh entropy from random and returns a BIP-39
// English mnemonic of the given word count (12, 15, 18, 21 or 24).
func NewMnemonic(random io.Reader, words int) (string, error) {
	if words < 12 || words > 24 || words%3 != 0 {
		return "", fmt.Errorf("unsupported mnemonic length %d", words)
	}
	entropy := make([]byte, words/3*4)
	if _, err := io.ReadFull(random, entropy); err != nil {
		return "", fmt.Errorf("reading entropy: %w", err)
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", fmt.Errorf("encoding mnemonic: %w", err)
	}
	return mnemonic, nil
}

// MiniSecret returns the 32-byte mini secret of a mnemonic.
func MiniSecret(mnemonic string) ([32]byte, error) {
	var seed [32]byte
	entropy, err := bip39.EntropyFromMnemonic(mnemonic)
	if err != nil {
		return seed, fmt.Errorf("invalid mnemonic: %w", err)
	}
	derived := pbkdf2.Key(entropy, []byte("mnemonic"), 2048, 64, sha512.New)
	copy(seed[:], derived[:32])
	return seed, nil
}
