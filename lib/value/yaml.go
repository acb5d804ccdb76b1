// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package value

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ParseYAML parses a YAML (or JSON) document into a Value, preserving
// mapping key order. An empty document is null.
//
// Mapping keys may carry field modifiers: a trailing "::" marks the
// field hidden and a trailing "+" (before any "::") marks it plus-merge,
// so "validators+" appends to an inherited list and "config::" is an
// internal field excluded from output.
func ParseYAML(data []byte) (Value, error) {
	var document yaml.Node
	if err := yaml.Unmarshal(data, &document); err != nil {
		return nil, err
	}
	if document.Kind == 0 {
		return Null{}, nil
	}
	return FromYAMLNode(&document)
}

// FromYAMLNode converts a decoded YAML node into a Value.
func FromYAMLNode(node *yaml.Node) (Value, error) {
	switch node.Kind {
	case yaml.DocumentNode:
		if len(node.Content) == 0 {
			return Null{}, nil
		}
		return FromYAMLNode(node.Content[0])
	case yaml.AliasNode:
		return FromYAMLNode(node.Alias)
	case yaml.ScalarNode:
		return scalarFromYAML(node)
	case yaml.SequenceNode:
		out := make(Array, 0, len(node.Content))
		for _, child := range node.Content {
			element, err := FromYAMLNode(child)
			if err != nil {
				return nil, err
			}
			out = append(out, element)
		}
		return out, nil
	case yaml.MappingNode:
		builder := NewObject()
		for i := 0; i+1 < len(node.Content); i += 2 {
			keyNode, valueNode := node.Content[i], node.Content[i+1]
			if keyNode.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("line %d: mapping keys must be scalars", keyNode.Line)
			}
			if keyNode.Value == "<<" && keyNode.ShortTag() == "!!merge" {
				return nil, fmt.Errorf("line %d: merge keys are not supported, use a plus-merge field", keyNode.Line)
			}
			child, err := FromYAMLNode(valueNode)
			if err != nil {
				return nil, err
			}
			field := ParseFieldKey(keyNode.Value)
			field.Value = Eager(child)
			builder.SetField(field)
		}
		return builder.Build(), nil
	default:
		return nil, fmt.Errorf("line %d: unsupported YAML node kind %d", node.Line, node.Kind)
	}
}

// ParseFieldKey splits a data-file key into the field name and its
// modifiers.
func ParseFieldKey(key string) Field {
	field := Field{Name: key}
	if name, ok := strings.CutSuffix(field.Name, "::"); ok && name != "" {
		field.Name = name
		field.Visibility = Hidden
	}
	if name, ok := strings.CutSuffix(field.Name, "+"); ok && name != "" {
		field.Name = name
		field.Add = true
	}
	return field
}

func scalarFromYAML(node *yaml.Node) (Value, error) {
	switch node.ShortTag() {
	case "!!null":
		return Null{}, nil
	case "!!bool":
		var b bool
		if err := node.Decode(&b); err != nil {
			return nil, fmt.Errorf("line %d: %w", node.Line, err)
		}
		return Bool(b), nil
	case "!!int", "!!float":
		var f float64
		if err := node.Decode(&f); err != nil {
			return nil, fmt.Errorf("line %d: %w", node.Line, err)
		}
		return Number(f), nil
	default:
		return String(node.Value), nil
	}
}

// ToYAMLNode manifests v as a YAML node tree. Like [MarshalJSON] it
// forces visible fields, skips hidden fields and rejects functions.
func ToYAMLNode(v Value) (*yaml.Node, error) {
	switch v := v.(type) {
	case Null:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}, nil
	case Bool:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(bool(v))}, nil
	case Number:
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("number %v is not representable", f)
		}
		tag := "!!float"
		if _, ok := v.Int(); ok {
			tag = "!!int"
		}
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: v.String()}, nil
	case String:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: string(v)}, nil
	case Array:
		node := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for i, element := range v {
			child, err := ToYAMLNode(element)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			node.Content = append(node.Content, child)
		}
		return node, nil
	case *Object:
		node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, field := range v.Fields(false) {
			forced, err := field.Value.Force()
			if err != nil {
				return nil, fmt.Errorf("%s: %w", field.Name, err)
			}
			child, err := ToYAMLNode(forced)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", field.Name, err)
			}
			key := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: field.Name}
			node.Content = append(node.Content, key, child)
		}
		return node, nil
	case *Function:
		return nil, fmt.Errorf("cannot manifest %s", v.label())
	default:
		return nil, fmt.Errorf("unknown value type %T", v)
	}
}

// MarshalYAML manifests v as a YAML document with two-space indentation.
func MarshalYAML(v Value) ([]byte, error) {
	node, err := ToYAMLNode(v)
	if err != nil {
		return nil, err
	}
	var buffer bytes.Buffer
	encoder := yaml.NewEncoder(&buffer)
	encoder.SetIndent(2)
	if err := encoder.Encode(node); err != nil {
		return nil, err
	}
	if err := encoder.Close(); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}
