// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package generator

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/bureau-foundation/bootnet/lib/atomicfile"
	"github.com/bureau-foundation/bootnet/lib/codec"
	"github.com/bureau-foundation/bootnet/lib/library"
	"github.com/bureau-foundation/bootnet/lib/value"
)

// Debug prints the whole composed document.
type Debug struct {
	Out io.Writer
}

func (*Debug) LibraryModules() []string { return []string{library.DebugModule} }
func (*Debug) OutputAttribute() string { return library.DebugOutput }
func (*Debug) Config() (value.Value, bool, error) { return nil, false, nil }

// Process writes the payload as indented JSON.
func (d *Debug) Process(payload value.Value) error {
	data, err := value.MarshalIndent(payload, "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(d.Out, "%s\n", data)
	return err
}

// AddressBook reports node identities and key addresses. Without a
// File it prints JSON to Out; a File ending in .cbor receives CBOR,
// any other File JSON.
type AddressBook struct {
	File string
	Out  io.Writer
}

func (*AddressBook) LibraryModules() []string { return []string{library.AddressBookModule} }
func (*AddressBook) OutputAttribute() string { return library.AddressBookOutput }
func (*AddressBook) Config() (value.Value, bool, error) { return nil, false, nil }

// Process writes the address book.
func (a *AddressBook) Process(payload value.Value) error {
	if a.File != "" && filepath.Ext(a.File) == ".cbor" {
		data, err := codec.MarshalValue(payload)
		if err != nil {
			return err
		}
		return atomicfile.WriteFile(a.File, data, 0644)
	}
	data, err := value.MarshalIndent(payload, "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if a.File != "" {
		return atomicfile.WriteFile(a.File, data, 0644)
	}
	_, err = a.Out.Write(data)
	return err
}

// DockerComposeDiscover writes the env file describing compose nodes.
type DockerComposeDiscover struct {
	File string
}

func (*DockerComposeDiscover) LibraryModules() []string {
	return []string{library.ComposeDiscoverModule}
}
func (*DockerComposeDiscover) OutputAttribute() string { return library.ComposeDiscoverOutput }
func (*DockerComposeDiscover) Config() (value.Value, bool, error) { return nil, false, nil }

// Process writes the payload string to File.
func (d *DockerComposeDiscover) Process(payload value.Value) error {
	content, err := value.ExpectString(payload, "docker compose discover output")
	if err != nil {
		return err
	}
	if err := atomicfile.WriteFile(d.File, []byte(content), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", d.File, err)
	}
	return nil
}
