// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package library

import (
	"fmt"
	"strings"

	"github.com/bureau-foundation/bootnet/lib/address"
	"github.com/bureau-foundation/bootnet/lib/value"
)

func forceObject(args value.Args, name string) (*value.Object, error) {
	v, err := args.Force(name)
	if err != nil {
		return nil, err
	}
	return value.ExpectObject(v, name)
}

// optionalObject returns the named field as an object. A missing or
// null field is reported with ok == false.
func optionalObject(obj *value.Object, name string) (*value.Object, bool, error) {
	v, ok, err := obj.Get(name)
	if err != nil || !ok {
		return nil, false, err
	}
	if v.Kind() == value.KindNull {
		return nil, false, nil
	}
	field, err := value.ExpectObject(v, name)
	if err != nil {
		return nil, false, err
	}
	return field, true, nil
}

func lookupObject(obj *value.Object, name string) (*value.Object, error) {
	v, err := obj.Lookup(name)
	if err != nil {
		return nil, err
	}
	return value.ExpectObject(v, name)
}

// lookupPath forces root and walks the named fields, each of which must
// be an object.
func lookupPath(root *value.Lazy, path ...string) (*value.Object, error) {
	if root == nil {
		return nil, fmt.Errorf("final is not bound")
	}
	v, err := root.Force()
	if err != nil {
		return nil, err
	}
	current, err := value.ExpectObject(v, "final")
	if err != nil {
		return nil, err
	}
	for i, name := range path {
		if current, err = lookupObject(current, name); err != nil {
			return nil, fmt.Errorf("final.%s: %w", strings.Join(path[:i+1], "."), err)
		}
	}
	return current, nil
}

// chainFormat returns a chain's ss58Format, defaulting to 42.
func chainFormat(chain *value.Object) (address.Format, error) {
	v, ok, err := chain.Get("ss58Format")
	if err != nil {
		return 0, err
	}
	if !ok {
		return address.DefaultFormat, nil
	}
	return parseFormat(v)
}

// outputNamespace wraps payload as {_output+:: {<attribute>: payload}}.
// The namespace is hidden so that manifesting the document never
// includes generator payloads.
func outputNamespace(prev *value.Object, attribute string, payload *value.Lazy) *value.Object {
	namespace := value.NewObject().
		SetField(value.Field{Name: attribute, Value: payload, Add: true}).
		Build()
	patch := value.NewObject().
		SetField(value.Field{Name: "_output", Value: value.Eager(namespace), Visibility: value.Hidden, Add: true}).
		Build()
	return value.Extend(prev, patch)
}

// generatorConfig reads the config the pipeline injected for attribute.
func generatorConfig(final *value.Lazy, attribute string) (*value.Object, error) {
	document, err := forceDocument(final)
	if err != nil {
		return nil, err
	}
	output, err := lookupObject(document, "_output")
	if err != nil {
		return nil, err
	}
	namespace, err := lookupObject(output, attribute)
	if err != nil {
		return nil, err
	}
	config, err := lookupObject(namespace, ConfigField)
	if err != nil {
		return nil, fmt.Errorf("_output.%s: %w", attribute, err)
	}
	return config, nil
}

// nodeEntry is one node of a chain, in document order.
type nodeEntry struct {
	chain    string
	name     string
	node     *value.Object
	hostname string
}

type chainEntry struct {
	name  string
	chain *value.Object
	nodes []nodeEntry
}

// chainsOf enumerates a document's chains and nodes.
func chainsOf(document *value.Object) ([]chainEntry, error) {
	chains, ok, err := optionalObject(document, "chains")
	if err != nil || !ok {
		return nil, err
	}
	var out []chainEntry
	for _, chainName := range chains.Names() {
		chain, err := lookupObject(chains, chainName)
		if err != nil {
			return nil, fmt.Errorf("chains.%s: %w", chainName, err)
		}
		entry := chainEntry{name: chainName, chain: chain}
		nodes, ok, err := optionalObject(chain, "nodes")
		if err != nil {
			return nil, fmt.Errorf("chains.%s: %w", chainName, err)
		}
		if ok {
			for _, nodeName := range nodes.Names() {
				node, err := lookupObject(nodes, nodeName)
				if err != nil {
					return nil, fmt.Errorf("chains.%s.nodes.%s: %w", chainName, nodeName, err)
				}
				hostnameValue, err := node.Lookup("hostname")
				if err != nil {
					return nil, fmt.Errorf("chains.%s.nodes.%s: %w", chainName, nodeName, err)
				}
				hostname, err := value.ExpectString(hostnameValue, "hostname")
				if err != nil {
					return nil, fmt.Errorf("chains.%s.nodes.%s: %w", chainName, nodeName, err)
				}
				entry.nodes = append(entry.nodes, nodeEntry{chain: chainName, name: nodeName, node: node, hostname: hostname})
			}
		}
		out = append(out, entry)
	}
	return out, nil
}

func forceDocument(final *value.Lazy) (*value.Object, error) {
	if final == nil {
		return nil, fmt.Errorf("final is not bound")
	}
	v, err := final.Force()
	if err != nil {
		return nil, err
	}
	return value.ExpectObject(v, "final")
}
