// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package address

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"

	schnorrkel "github.com/ChainSafe/go-schnorrkel"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"
)

// Scheme is a signature scheme.
type Scheme string

const (
	Sr25519  Scheme = "sr25519"
	Ed25519  Scheme = "ed25519"
	Ecdsa    Scheme = "ecdsa"
	Ethereum Scheme = "ethereum"
)

// ParseScheme validates a scheme name.
func ParseScheme(name string) (Scheme, error) {
	switch scheme := Scheme(name); scheme {
	case Sr25519, Ed25519, Ecdsa, Ethereum:
		return scheme, nil
	default:
		return "", fmt.Errorf("unknown signature scheme %q (expected sr25519, ed25519, ecdsa or ethereum)", name)
	}
}

// PublicKey derives the scheme's public key from a mnemonic. ecdsa and
// ethereum keys are returned in compressed form.
func PublicKey(scheme Scheme, mnemonic string) ([]byte, error) {
	seed, err := MiniSecret(mnemonic)
	if err != nil {
		return nil, err
	}
	switch scheme {
	case Sr25519:
		mini, err := schnorrkel.NewMiniSecretKeyFromRaw(seed)
		if err != nil {
			return nil, fmt.Errorf("sr25519 mini secret: %w", err)
		}
		public := mini.Public().Encode()
		return public[:], nil
	case Ed25519:
		return ed25519.NewKeyFromSeed(seed[:]).Public().(ed25519.PublicKey), nil
	case Ecdsa, Ethereum:
		return secp256k1.PrivKeyFromBytes(seed[:]).PubKey().SerializeCompressed(), nil
	default:
		return nil, fmt.Errorf("unknown signature scheme %q", scheme)
	}
}

// Address derives the display address of a mnemonic's key.
func Address(scheme Scheme, mnemonic string, format Format) (string, error) {
	if scheme == Ethereum {
		seed, err := MiniSecret(mnemonic)
		if err != nil {
			return "", err
		}
		return EthereumAddress(secp256k1.PrivKeyFromBytes(seed[:]).PubKey()), nil
	}
	public, err := PublicKey(scheme, mnemonic)
	if err != nil {
		return "", err
	}
	if scheme == Ecdsa {
		// Accounts for ecdsa keys are the hash of the compressed key.
		account := blake2b.Sum256(public)
		public = account[:]
	}
	return EncodeSS58(format, public)
}

// EthereumAddress returns the 0x-prefixed account of a secp256k1 key:
// the last 20 bytes of the keccak-256 hash of the uncompressed key.
func EthereumAddress(public *secp256k1.PublicKey) string {
	hash := sha3.NewLegacyKeccak256()
	hash.Write(public.SerializeUncompressed()[1:])
	sum := hash.Sum(nil)
	return "0x" + hex.EncodeToString(sum[len(sum)-20:])
}
