// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package library

import (
	"fmt"

	"github.com/bureau-foundation/bootnet/lib/mixin"
	"github.com/bureau-foundation/bootnet/lib/provision"
	"github.com/bureau-foundation/bootnet/lib/value"
)

// base adds hostname and keys to every node and rawSpec to every chain
// with a spec. keys and rawSpec are lazy and read their inputs from
// final, so patches applied after this module still take effect.
func (l *Library) base(args value.Args) (value.Value, error) {
	prev, err := forceObject(args, mixin.ArgPrev)
	if err != nil {
		return nil, err
	}
	final := args[mixin.ArgFinal]

	chains, ok, err := optionalObject(prev, "chains")
	if err != nil || !ok {
		return prev, err
	}

	chainsPatch := value.NewObject()
	for _, chainName := range chains.Names() {
		chain, err := lookupObject(chains, chainName)
		if err != nil {
			return nil, fmt.Errorf("chains.%s: %w", chainName, err)
		}
		chainPatch := value.NewObject()

		if chain.Has("spec") {
			chainPatch.SetLazy("rawSpec", func() (value.Value, error) {
				finalChain, err := lookupPath(final, "chains", chainName)
				if err != nil {
					return nil, err
				}
				bin, err := finalChain.Lookup("bin")
				if err != nil {
					return nil, fmt.Errorf("chains.%s: %w", chainName, err)
				}
				spec, err := finalChain.Lookup("spec")
				if err != nil {
					return nil, fmt.Errorf("chains.%s: %w", chainName, err)
				}
				raw, err := l.processSpec(bin, spec)
				if err != nil {
					return nil, fmt.Errorf("chains.%s.rawSpec: %w", chainName, err)
				}
				return raw, nil
			})
		}

		nodes, ok, err := optionalObject(chain, "nodes")
		if err != nil {
			return nil, fmt.Errorf("chains.%s: %w", chainName, err)
		}
		if ok {
			nodesPatch := value.NewObject()
			for _, nodeName := range nodes.Names() {
				node, err := lookupObject(nodes, nodeName)
				if err != nil {
					return nil, fmt.Errorf("chains.%s.nodes.%s: %w", chainName, nodeName, err)
				}
				nodePatch := value.NewObject()
				if !node.Has("hostname") {
					nodePatch.Set("hostname", value.String(chainName+"-"+nodeName))
				}
				nodePatch.SetLazy("keys", func() (value.Value, error) {
					keys, err := l.nodeKeys(final, chainName, nodeName)
					if err != nil {
						return nil, fmt.Errorf("chains.%s.nodes.%s.keys: %w", chainName, nodeName, err)
					}
					return keys, nil
				})
				nodesPatch.SetPlus(nodeName, nodePatch.Build())
			}
			chainPatch.SetPlus("nodes", nodesPatch.Build())
		}
		chainsPatch.SetPlus(chainName, chainPatch.Build())
	}

	patch := value.NewObject().SetPlus("chains", chainsPatch.Build()).Build()
	return value.Extend(prev, patch), nil
}

// nodeKeys provisions a node's keys: the chain's wantedKeys merged with
// the node's, the node's entries winning.
func (l *Library) nodeKeys(final *value.Lazy, chainName, nodeName string) (value.Value, error) {
	chain, err := lookupPath(final, "chains", chainName)
	if err != nil {
		return nil, err
	}
	node, err := lookupPath(final, "chains", chainName, "nodes", nodeName)
	if err != nil {
		return nil, err
	}
	hostname, err := node.Lookup("hostname")
	if err != nil {
		return nil, err
	}
	path, err := value.ExpectString(hostname, "hostname")
	if err != nil {
		return nil, err
	}

	format, err := chainFormat(chain)
	if err != nil {
		return nil, err
	}
	chainWanted, err := wantedKeys(chain)
	if err != nil {
		return nil, fmt.Errorf("chain wantedKeys: %w", err)
	}
	nodeWanted, err := wantedKeys(node)
	if err != nil {
		return nil, fmt.Errorf("node wantedKeys: %w", err)
	}

	keys, err := l.keys.EnsureKeys(path, provision.MergeRequests(chainWanted, nodeWanted), format)
	if err != nil {
		return nil, err
	}
	return keys.Value(), nil
}

func wantedKeys(obj *value.Object) (map[string]provision.Request, error) {
	v, ok, err := obj.Get("wantedKeys")
	if err != nil {
		return nil, err
	}
	if !ok {
		return map[string]provision.Request{}, nil
	}
	return provision.ParseRequests(v)
}
