// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package address

import (
	"crypto/ed25519"
	"fmt"

	"github.com/ipfs/go-cid"
	"github.com/mr-tron/base58"
	"github.com/multiformats/go-multihash"
	"google.golang.org/protobuf/encoding/protowire"
)

// libp2p crypto.pb key type for ed25519.
const libp2pKeyTypeEd25519 = 1

// peerMultihash returns the identity multihash of the protobuf-framed
// libp2p public key.
func peerMultihash(public ed25519.PublicKey) (multihash.Multihash, error) {
	if len(public) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("ed25519 public key must be %d bytes, got %d", ed25519.PublicKeySize, len(public))
	}
	var framed []byte
	framed = protowire.AppendTag(framed, 1, protowire.VarintType)
	framed = protowire.AppendVarint(framed, libp2pKeyTypeEd25519)
	framed = protowire.AppendTag(framed, 2, protowire.BytesType)
	framed = protowire.AppendBytes(framed, public)
	return multihash.Sum(framed, multihash.IDENTITY, -1)
}

// PeerID returns the base58 libp2p peer id ("12D3KooW...") of a node
// identity key.
func PeerID(public ed25519.PublicKey) (string, error) {
	hash, err := peerMultihash(public)
	if err != nil {
		return "", err
	}
	return base58.Encode(hash), nil
}

// PeerCID returns the peer id as a CIDv1 with the libp2p-key codec.
func PeerCID(public ed25519.PublicKey) (string, error) {
	hash, err := peerMultihash(public)
	if err != nil {
		return "", err
	}
	return cid.NewCidV1(cid.Libp2pKey, hash).String(), nil
}

// NodeKeyFromSeed returns the node identity keypair for a stored seed.
func NodeKeyFromSeed(seed []byte) (ed25519.PrivateKey, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("node key seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	return ed25519.NewKeyFromSeed(seed), nil
}

// PeerCIDFromID converts a base58 peer id into its CIDv1 form.
func PeerCIDFromID(peerID string) (string, error) {
	decoded, err := base58.Decode(peerID)
	if err != nil {
		return "", fmt.Errorf("decoding peer id: %w", err)
	}
	hash, err := multihash.Cast(decoded)
	if err != nil {
		return "", fmt.Errorf("peer id is not a multihash: %w", err)
	}
	return cid.NewCidV1(cid.Libp2pKey, hash).String(), nil
}
