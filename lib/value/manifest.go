// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package value

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strings"
)

// MarshalJSON manifests v as compact JSON. Visible object fields are
// forced and written in insertion order; hidden fields are skipped.
// Functions cannot be manifested.
func MarshalJSON(v Value) ([]byte, error) {
	return MarshalIndent(v, "")
}

// MarshalIndent is like MarshalJSON but indents nested values with
// indent. An empty indent produces compact output.
func MarshalIndent(v Value, indent string) ([]byte, error) {
	var buffer bytes.Buffer
	m := manifester{buffer: &buffer, indent: indent}
	if err := m.write(v, 0, nil); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

type manifester struct {
	buffer *bytes.Buffer
	indent string
}

func (m *manifester) newline(depth int) {
	if m.indent == "" {
		return
	}
	m.buffer.WriteByte('\n')
	m.buffer.WriteString(strings.Repeat(m.indent, depth))
}

func (m *manifester) write(v Value, depth int, path []string) error {
	switch v := v.(type) {
	case Null:
		m.buffer.WriteString("null")
	case Bool:
		if v {
			m.buffer.WriteString("true")
		} else {
			m.buffer.WriteString("false")
		}
	case Number:
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return manifestError(path, fmt.Errorf("number %v is not representable in JSON", f))
		}
		m.buffer.WriteString(v.String())
	case String:
		m.writeString(string(v))
	case Array:
		if len(v) == 0 {
			m.buffer.WriteString("[]")
			return nil
		}
		m.buffer.WriteByte('[')
		for i, element := range v {
			if i > 0 {
				m.buffer.WriteByte(',')
			}
			m.newline(depth + 1)
			if err := m.write(element, depth+1, append(path, fmt.Sprintf("[%d]", i))); err != nil {
				return err
			}
		}
		m.newline(depth)
		m.buffer.WriteByte(']')
	case *Object:
		fields := v.Fields(false)
		if len(fields) == 0 {
			m.buffer.WriteString("{}")
			return nil
		}
		m.buffer.WriteByte('{')
		for i, field := range fields {
			if i > 0 {
				m.buffer.WriteByte(',')
			}
			m.newline(depth + 1)
			m.writeString(field.Name)
			m.buffer.WriteByte(':')
			if m.indent != "" {
				m.buffer.WriteByte(' ')
			}
			fieldPath := append(path, field.Name)
			forced, err := field.Value.Force()
			if err != nil {
				return manifestError(fieldPath, err)
			}
			if err := m.write(forced, depth+1, fieldPath); err != nil {
				return err
			}
		}
		m.newline(depth)
		m.buffer.WriteByte('}')
	case *Function:
		return manifestError(path, fmt.Errorf("cannot manifest %s", v.label()))
	default:
		return manifestError(path, fmt.Errorf("unknown value type %s", reflect.TypeOf(v)))
	}
	return nil
}

func (m *manifester) writeString(s string) {
	encoder := json.NewEncoder(m.buffer)
	encoder.SetEscapeHTML(false)
	// Encoding a string never fails.
	_ = encoder.Encode(s)
	// Encode terminates with a newline.
	m.buffer.Truncate(m.buffer.Len() - 1)
}

func manifestError(path []string, err error) error {
	if len(path) == 0 {
		return fmt.Errorf("manifesting: %w", err)
	}
	return fmt.Errorf("manifesting %s: %w", formatPath(path), err)
}

func formatPath(path []string) string {
	var builder strings.Builder
	for _, segment := range path {
		if !strings.HasPrefix(segment, "[") {
			builder.WriteByte('.')
		}
		builder.WriteString(segment)
	}
	return builder.String()
}
