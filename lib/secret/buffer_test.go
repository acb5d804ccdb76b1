// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewFromBytes(t *testing.T) {
	source := []byte("bottom drive obey lake")
	buffer, err := NewFromBytes(source)
	if err != nil {
		t.Fatalf("NewFromBytes failed: %v", err)
	}
	defer buffer.Close()

	if got := buffer.String(); got != "bottom drive obey lake" {
		t.Errorf("String() = %q", got)
	}
	if buffer.Len() != len(source) {
		t.Errorf("Len() = %d, want %d", buffer.Len(), len(source))
	}
	for index, b := range source {
		if b != 0 {
			t.Fatalf("source byte %d was not zeroed", index)
		}
	}
}

func TestNewRejectsEmpty(t *testing.T) {
	if _, err := New(0); err == nil {
		t.Error("New(0) succeeded")
	}
	if _, err := NewFromBytes(nil); err == nil {
		t.Error("NewFromBytes(nil) succeeded")
	}
}

func TestCloseIsIdempotentAndPanicsAfter(t *testing.T) {
	buffer, err := NewFromString("seed")
	if err != nil {
		t.Fatalf("NewFromString failed: %v", err)
	}
	if err := buffer.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := buffer.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}
	if buffer.data != nil {
		t.Error("data not released after Close")
	}

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on Bytes() after Close")
		}
	}()
	buffer.Bytes()
}

func TestReadFromPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "identity")
	if err := os.WriteFile(path, []byte("\n  AGE-SECRET-KEY-1EXAMPLE \n"), 0600); err != nil {
		t.Fatalf("writing identity: %v", err)
	}
	buffer, err := ReadFromPath(path)
	if err != nil {
		t.Fatalf("ReadFromPath failed: %v", err)
	}
	defer buffer.Close()
	if got := buffer.String(); got != "AGE-SECRET-KEY-1EXAMPLE" {
		t.Errorf("ReadFromPath() = %q", got)
	}

	empty := filepath.Join(t.TempDir(), "empty")
	if err := os.WriteFile(empty, []byte(" \n"), 0600); err != nil {
		t.Fatalf("writing empty file: %v", err)
	}
	if _, err := ReadFromPath(empty); err == nil {
		t.Error("ReadFromPath accepted a blank file")
	}
}

func TestReadFromLimits(t *testing.T) {
	buffer, err := ReadFrom(strings.NewReader("\tmnemonic words\r\n"))
	if err != nil {
		t.Fatalf("ReadFrom failed: %v", err)
	}
	if got := buffer.String(); got != "mnemonic words" {
		t.Errorf("ReadFrom() = %q", got)
	}
	buffer.Close()

	oversized := strings.Repeat("x", MaxFileSize+1)
	if _, err := ReadFrom(strings.NewReader(oversized)); err == nil || !strings.Contains(err.Error(), "exceeds") {
		t.Errorf("ReadFrom(oversized) error = %v, want a size error", err)
	}
	if _, err := ReadFromPath(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("ReadFromPath accepted a missing file")
	}
}
