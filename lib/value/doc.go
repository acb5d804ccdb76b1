// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package value defines the document model that bootnet modules operate
// on: a closed set of kinds (null, bool, number, string, array, object,
// function) behind the sealed [Value] interface.
//
// Object fields are lazy. A field holds a [*Lazy] thunk that is forced
// on first access and memoized on success, so an object can carry
// fields whose computation depends on values that do not exist yet (see
// package deferred). Each field also carries a visibility and a
// plus-merge flag:
//
//   - Hidden fields are retrievable by name but skipped by enumeration
//     and manifestation.
//   - Plus-merge fields combine with the same-named field of the base
//     object when extended instead of replacing it.
//
// [Extend] is the only way objects are combined. It never forces a
// field: merges of plus-merge fields are themselves thunks.
//
// Consumers switch on the concrete type:
//
//	switch v := v.(type) {
//	case value.Null:
//	case *value.Object:
//	case value.Array:
//	...
//	}
package value
