// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package secret holds key material (generated mnemonics, node seeds,
// age identities) in memory outside the Go heap.
//
// A [Buffer] is an anonymous mmap region locked into RAM with mlock and
// excluded from core dumps with MADV_DONTDUMP. Close zeroes, unlocks and
// unmaps it; any access after Close panics.
//
// Depends on golang.org/x/sys/unix only.
package secret
