// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Bootnet composes cluster configuration. It folds configuration
// modules into one document, provisions node keys and chain specs on
// demand, and renders the result through generators (docker compose,
// address books, debug dumps). The keys subcommands manage the secret
// store directly.
package main
