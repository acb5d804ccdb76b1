// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package address derives public keys and display addresses from
// mnemonic-seeded key material.
//
// Key derivation follows the substrate convention: the BIP-39 entropy of
// a mnemonic (not its seed) is stretched with PBKDF2-HMAC-SHA512 using
// the salt "mnemonic" and 2048 rounds, and the first 32 bytes become the
// mini secret for every scheme. Addresses are SS58 encoded with a
// chain-specific format (42, the generic substrate format, unless
// configured otherwise), except for the ethereum scheme which uses the
// usual 0x-prefixed hex account.
//
// Node identities are ed25519 keys shown as libp2p peer ids.
package address
