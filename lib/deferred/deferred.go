// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package deferred provides a single-assignment cell for forward
// references. A composition stage hands out lazy references to its own
// eventual result before that result exists; modules may embed those
// references in fields that are only forced after the stage fills the
// cell.
package deferred

import (
	"errors"
	"fmt"

	"github.com/bureau-foundation/bootnet/lib/value"
)

// ErrReadBeforeFill is returned when a reference into a cell is forced
// before the cell has been filled.
var ErrReadBeforeFill = errors.New("read before fill")

// Cell holds at most one value.
type Cell struct {
	name   string
	value  value.Value
	filled bool
}

// New returns an empty cell. The name appears in error messages.
func New(name string) *Cell {
	return &Cell{name: name}
}

// Fill stores v. Filling a cell twice is a pipeline ordering bug and
// panics.
func (c *Cell) Fill(v value.Value) {
	if c.filled {
		panic(fmt.Sprintf("deferred: double fill of %s", c.name))
	}
	c.value = v
	c.filled = true
}

// Get returns the filled value, or ErrReadBeforeFill.
func (c *Cell) Get() (value.Value, error) {
	if !c.filled {
		return nil, fmt.Errorf("%s: %w", c.name, ErrReadBeforeFill)
	}
	return c.value, nil
}

// Lazy returns a reference to the cell's eventual value. Forcing it
// before Fill fails with ErrReadBeforeFill; the failure is not cached,
// so the same reference succeeds once the cell is filled.
func (c *Cell) Lazy() *value.Lazy {
	return value.NewLazy(c.Get)
}
