// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package value

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ParseJSON decodes a JSON document into a Value, preserving object key
// order. Unlike ParseYAML, keys are taken literally: no field modifiers
// are interpreted, which matters for documents produced by external
// tools such as chain spec builders.
func ParseJSON(data []byte) (Value, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	v, err := decodeJSON(decoder)
	if err != nil {
		return nil, err
	}
	if _, err := decoder.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("trailing data after JSON document")
	}
	return v, nil
}

func decodeJSON(decoder *json.Decoder) (Value, error) {
	token, err := decoder.Token()
	if err != nil {
		return nil, err
	}
	switch t := token.(type) {
	case nil:
		return Null{}, nil
	case bool:
		return Bool(t), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return nil, fmt.Errorf("number %s: %w", t, err)
		}
		return Number(f), nil
	case string:
		return String(t), nil
	case json.Delim:
		switch t {
		case '[':
			out := Array{}
			for decoder.More() {
				element, err := decodeJSON(decoder)
				if err != nil {
					return nil, err
				}
				out = append(out, element)
			}
			if _, err := decoder.Token(); err != nil {
				return nil, err
			}
			return out, nil
		case '{':
			builder := NewObject()
			for decoder.More() {
				keyToken, err := decoder.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyToken.(string)
				if !ok {
					return nil, fmt.Errorf("object key is %T, not string", keyToken)
				}
				child, err := decodeJSON(decoder)
				if err != nil {
					return nil, fmt.Errorf("%s: %w", key, err)
				}
				builder.Set(key, child)
			}
			if _, err := decoder.Token(); err != nil {
				return nil, err
			}
			return builder.Build(), nil
		}
	}
	return nil, fmt.Errorf("unexpected JSON token %v", token)
}
