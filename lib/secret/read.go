// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"bytes"
	"fmt"
	"io"
	"os"
)

// MaxFileSize bounds what ReadFromPath and ReadFrom accept. Escrow
// identities and mnemonics are well under a kilobyte.
const MaxFileSize = 64 << 10

// ReadFromPath reads a secret from a file, or from stdin if path is
// "-". See [ReadFrom].
func ReadFromPath(path string) (*Buffer, error) {
	if path == "-" {
		buffer, err := ReadFrom(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("stdin: %w", err)
		}
		return buffer, nil
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	buffer, err := ReadFrom(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return buffer, nil
}

// ReadFrom reads all of r into protected memory with surrounding
// whitespace trimmed. Input over MaxFileSize or blank input is an
// error. The intermediate heap copy is zeroed before returning.
func ReadFrom(r io.Reader) (*Buffer, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxFileSize+1))
	defer Zero(data)
	if err != nil {
		return nil, fmt.Errorf("reading secret: %w", err)
	}
	if len(data) > MaxFileSize {
		return nil, fmt.Errorf("secret exceeds %d bytes", MaxFileSize)
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("secret is empty")
	}
	return NewFromBytes(trimmed)
}
