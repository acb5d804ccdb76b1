// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package library

import (
	"fmt"
	"strings"

	"github.com/bureau-foundation/bootnet/lib/address"
	"github.com/bureau-foundation/bootnet/lib/mixin"
	"github.com/bureau-foundation/bootnet/lib/value"
)

// debugModule exposes the whole final document as the debug payload.
func debugModule(args value.Args) (value.Value, error) {
	prev, err := forceObject(args, mixin.ArgPrev)
	if err != nil {
		return nil, err
	}
	return outputNamespace(prev, DebugOutput, args[mixin.ArgFinal]), nil
}

// addressBookModule collects every node's public identity:
//
//	{<chain>: {<node>: {hostname, nodeIdentity, peerCID, keys, wallets}}}
func addressBookModule(args value.Args) (value.Value, error) {
	prev, err := forceObject(args, mixin.ArgPrev)
	if err != nil {
		return nil, err
	}
	final := args[mixin.ArgFinal]
	payload := value.NewLazy(func() (value.Value, error) {
		document, err := forceDocument(final)
		if err != nil {
			return nil, err
		}
		chains, err := chainsOf(document)
		if err != nil {
			return nil, err
		}
		book := value.NewObject()
		for _, chain := range chains {
			nodes := value.NewObject()
			for _, node := range chain.nodes {
				entry, err := addressBookEntry(node)
				if err != nil {
					return nil, fmt.Errorf("chains.%s.nodes.%s: %w", node.chain, node.name, err)
				}
				nodes.Set(node.name, entry)
			}
			book.Set(chain.name, nodes.Build())
		}
		return book.Build(), nil
	})
	return outputNamespace(prev, AddressBookOutput, payload), nil
}

func addressBookEntry(node nodeEntry) (value.Value, error) {
	keys, err := lookupObject(node.node, "keys")
	if err != nil {
		return nil, err
	}
	identityValue, err := keys.Lookup("nodeIdentity")
	if err != nil {
		return nil, err
	}
	identity, err := value.ExpectString(identityValue, "nodeIdentity")
	if err != nil {
		return nil, err
	}
	peerCID, err := address.PeerCIDFromID(identity)
	if err != nil {
		return nil, err
	}
	typed, err := keys.Lookup("keys")
	if err != nil {
		return nil, err
	}
	wallets, err := keys.Lookup("wallets")
	if err != nil {
		return nil, err
	}
	return value.NewObject().
		Set("hostname", value.String(node.hostname)).
		Set("nodeIdentity", value.String(identity)).
		Set("peerCID", value.String(peerCID)).
		Set("keys", typed).
		Set("wallets", wallets).
		Build(), nil
}

// composeDiscoverModule renders an env file locating every node:
//
//	BOOTNET_<CHAIN>_<NODE>_HOSTNAME=<hostname>
//	BOOTNET_<CHAIN>_<NODE>_PEER_ID=<peer id>
//	BOOTNET_<CHAIN>_<NODE>_RPC=ws://<hostname>:9944
func composeDiscoverModule(args value.Args) (value.Value, error) {
	prev, err := forceObject(args, mixin.ArgPrev)
	if err != nil {
		return nil, err
	}
	final := args[mixin.ArgFinal]
	payload := value.NewLazy(func() (value.Value, error) {
		document, err := forceDocument(final)
		if err != nil {
			return nil, err
		}
		chains, err := chainsOf(document)
		if err != nil {
			return nil, err
		}
		var builder strings.Builder
		for _, chain := range chains {
			for _, node := range chain.nodes {
				peerID, err := nodeIdentity(node)
				if err != nil {
					return nil, fmt.Errorf("chains.%s.nodes.%s: %w", node.chain, node.name, err)
				}
				prefix := "BOOTNET_" + envName(node.chain) + "_" + envName(node.name) + "_"
				fmt.Fprintf(&builder, "%sHOSTNAME=%s\n", prefix, node.hostname)
				fmt.Fprintf(&builder, "%sPEER_ID=%s\n", prefix, peerID)
				fmt.Fprintf(&builder, "%sRPC=ws://%s:%d\n", prefix, node.hostname, rpcPort)
			}
		}
		return value.String(builder.String()), nil
	})
	return outputNamespace(prev, ComposeDiscoverOutput, payload), nil
}

func nodeIdentity(node nodeEntry) (string, error) {
	keys, err := lookupObject(node.node, "keys")
	if err != nil {
		return "", err
	}
	identity, err := keys.Lookup("nodeIdentity")
	if err != nil {
		return "", err
	}
	return value.ExpectString(identity, "nodeIdentity")
}

// envName upper-cases name and replaces everything but letters and
// digits with '_'.
func envName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r - 'a' + 'A'
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, name)
}

func stringArray(v value.Value, what string) ([]string, error) {
	array, err := value.ExpectArray(v, what)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(array))
	for i, element := range array {
		s, err := value.ExpectString(element, fmt.Sprintf("%s[%d]", what, i))
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}
