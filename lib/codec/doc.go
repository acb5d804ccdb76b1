// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides bootnet's CBOR encoding configuration.
//
// JSON is the format for documents, generated files and CLI output.
// CBOR is used where a compact binary form is asked for, such as an
// address book written to a .cbor file. The encoder uses Core
// Deterministic Encoding (RFC 8949 §4.2): sorted map keys, smallest
// integer encoding, no indefinite-length items, so the same document
// always produces identical bytes.
//
//	data, err := codec.MarshalValue(document)
//	document, err := codec.UnmarshalValue(data)
package codec
