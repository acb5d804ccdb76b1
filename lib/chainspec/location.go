// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package chainspec builds Substrate chain specifications by running
// the node binary's build-spec subcommand, and applies user callbacks
// to the genesis and raw forms.
//
// The node binary is described by a [FileLocation]: either a path on
// the local machine, or a container image with an optional entrypoint.
// A [Builder] turns a location into genesis and raw spec JSON.
// [DockerBuilder] is the production implementation; [CachingBuilder]
// memoizes results for images pinned by digest.
package chainspec

import (
	"fmt"
	"strings"

	"github.com/bureau-foundation/bootnet/lib/value"
)

// FileLocation describes where an executable lives. Exactly one of
// Local or DockerImage is used: DockerImage takes precedence when set.
type FileLocation struct {
	// Local is a path on the machine running the composer.
	Local string

	// DockerImage is an image reference. When it contains "@" it is
	// pinned by digest and may be pulled; otherwise it must already be
	// present locally.
	DockerImage string

	// Docker is the entrypoint inside DockerImage. Empty uses the
	// image's default entrypoint.
	Docker string
}

// IsZero reports whether no location is set.
func (l FileLocation) IsZero() bool {
	return l.Local == "" && l.DockerImage == ""
}

// Pinned reports whether the location refers to immutable content.
func (l FileLocation) Pinned() bool {
	return strings.Contains(l.DockerImage, "@")
}

// String renders the location for log output.
func (l FileLocation) String() string {
	switch {
	case l.DockerImage != "" && l.Docker != "":
		return l.DockerImage + ":" + l.Docker
	case l.DockerImage != "":
		return l.DockerImage
	default:
		return l.Local
	}
}

// ParseFileLocation decodes a location from a config value. A string
// is a local path. An object has a required "dockerImage" and optional
// "docker" and "local" fields.
func ParseFileLocation(v value.Value) (FileLocation, error) {
	switch v := v.(type) {
	case value.String:
		return FileLocation{Local: string(v)}, nil
	case *value.Object:
		var location FileLocation
		var err error
		if location.DockerImage, err = stringField(v, "dockerImage", true); err != nil {
			return FileLocation{}, err
		}
		if location.Docker, err = stringField(v, "docker", false); err != nil {
			return FileLocation{}, err
		}
		if location.Local, err = stringField(v, "local", false); err != nil {
			return FileLocation{}, err
		}
		return location, nil
	default:
		return FileLocation{}, fmt.Errorf("file location should be string or object, got %s", v.Kind())
	}
}

// Value encodes the location in the form ParseFileLocation accepts.
func (l FileLocation) Value() value.Value {
	if l.DockerImage == "" {
		return value.String(l.Local)
	}
	builder := value.NewObject().Set("dockerImage", value.String(l.DockerImage))
	if l.Docker != "" {
		builder.Set("docker", value.String(l.Docker))
	}
	if l.Local != "" {
		builder.Set("local", value.String(l.Local))
	}
	return builder.Build()
}

// stringField reads an optional (or required) string field. A null
// field counts as absent.
func stringField(obj *value.Object, name string, required bool) (string, error) {
	v, ok, err := obj.Get(name)
	if err != nil {
		return "", err
	}
	if !ok || v.Kind() == value.KindNull {
		if required {
			return "", fmt.Errorf("missing field %q", name)
		}
		return "", nil
	}
	return value.ExpectString(v, name)
}
