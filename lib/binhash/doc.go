// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package binhash provides BLAKE3 content hashing for generated files
// and local node binaries.
//
// The compose generator records the digest of every file it writes so
// it can tell hand edits apart from its own previous output. The spec
// cache keys specs built from a local binary by the binary's digest, so
// a rebuilt but byte-identical binary reuses the cached spec.
//
// The API surface:
//
//   - [HashFile] -- streams a file through BLAKE3 with constant memory
//     usage regardless of file size
//   - [HashBytes] -- hashes an in-memory buffer
//   - [Digest.String] and [ParseDigest] -- the canonical hex form
//
// This package has no dependencies on other bootnet packages.
package binhash
