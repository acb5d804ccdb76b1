// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package provision

import (
	"fmt"
	"maps"
	"slices"

	"github.com/bureau-foundation/bootnet/lib/address"
	"github.com/bureau-foundation/bootnet/lib/value"
)

// Request describes what to provision for one wanted key name.
type Request interface {
	isRequest()
}

// SchemeRequest asks for a key of the given signature scheme.
type SchemeRequest struct {
	Scheme address.Scheme
}

// AliasRequest asks for the same key as another wanted name. It is
// honored only when Target is itself a SchemeRequest.
type AliasRequest struct {
	Target string
}

// OpaqueRequest is a wanted key handled by something other than the
// provisioner (a library module, an external tool). It is ignored.
type OpaqueRequest struct{}

func (SchemeRequest) isRequest() {}
func (AliasRequest) isRequest()  {}
func (OpaqueRequest) isRequest() {}

// ParseRequests reads a wantedKeys document object:
//
//	wantedKeys:
//	  aura: sr25519          # scheme request
//	  babe: {alias: aura}    # alias request
//	  beefy: {custom: true}  # opaque request
//	  _stash: sr25519        # wallet
//
// Null is an empty request set.
func ParseRequests(v value.Value) (map[string]Request, error) {
	requests := make(map[string]Request)
	if _, ok := v.(value.Null); ok {
		return requests, nil
	}
	obj, err := value.ExpectObject(v, "wantedKeys")
	if err != nil {
		return nil, err
	}
	for _, field := range obj.Fields(false) {
		entry, err := field.Value.Force()
		if err != nil {
			return nil, fmt.Errorf("wantedKeys.%s: %w", field.Name, err)
		}
		request, err := parseRequest(entry)
		if err != nil {
			return nil, fmt.Errorf("wantedKeys.%s: %w", field.Name, err)
		}
		requests[field.Name] = request
	}
	return requests, nil
}

func parseRequest(v value.Value) (Request, error) {
	switch v := v.(type) {
	case value.String:
		scheme, err := address.ParseScheme(string(v))
		if err != nil {
			return nil, err
		}
		return SchemeRequest{Scheme: scheme}, nil
	case *value.Object:
		names := v.Names()
		if len(names) == 1 && names[0] == "alias" {
			target, err := v.Lookup("alias")
			if err != nil {
				return nil, err
			}
			name, err := value.ExpectString(target, "alias")
			if err != nil {
				return nil, err
			}
			return AliasRequest{Target: name}, nil
		}
		return OpaqueRequest{}, nil
	default:
		return nil, fmt.Errorf("key request should be a scheme name or an object, got %s", v.Kind())
	}
}

// MergeRequests overlays requests in order; later entries win.
func MergeRequests(sets ...map[string]Request) map[string]Request {
	merged := make(map[string]Request)
	for _, set := range sets {
		for _, name := range slices.Sorted(maps.Keys(set)) {
			merged[name] = set[name]
		}
	}
	return merged
}
