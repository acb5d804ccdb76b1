// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package value

import "fmt"

// Visibility controls whether a field is enumerated and manifested.
type Visibility int

const (
	// Inherit takes the visibility of the base field on extension and
	// behaves as Visible otherwise.
	Inherit Visibility = iota
	// Hidden fields are retrievable by name but not enumerated.
	Hidden
	// Visible fields are enumerated even when overriding a hidden field.
	Visible
)

// Field is a single object member.
type Field struct {
	Name       string
	Value      *Lazy
	Visibility Visibility
	// Add marks a plus-merge field: on extension it is combined with
	// the base field of the same name using [Plus].
	Add bool
}

// IsHidden reports whether the field is excluded from enumeration.
func (f Field) IsHidden() bool {
	return f.Visibility == Hidden
}

// Object is an ordered set of lazy fields. Objects are immutable once
// built.
type Object struct {
	fields []Field
	index  map[string]int
}

// Empty returns an object with no fields.
func Empty() *Object {
	return &Object{index: map[string]int{}}
}

// Len returns the number of fields, hidden ones included.
func (o *Object) Len() int {
	return len(o.fields)
}

// Field returns the named field regardless of its visibility.
func (o *Object) Field(name string) (Field, bool) {
	i, ok := o.index[name]
	if !ok {
		return Field{}, false
	}
	return o.fields[i], true
}

// Has reports whether the object has the named field, hidden or not.
func (o *Object) Has(name string) bool {
	_, ok := o.index[name]
	return ok
}

// Get forces and returns the named field. Missing fields are reported
// with ok == false.
func (o *Object) Get(name string) (Value, bool, error) {
	field, ok := o.Field(name)
	if !ok {
		return nil, false, nil
	}
	v, err := field.Value.Force()
	if err != nil {
		return nil, true, fmt.Errorf("field %q: %w", name, err)
	}
	return v, true, nil
}

// Lookup forces and returns the named field, failing when it is missing.
func (o *Object) Lookup(name string) (Value, error) {
	v, ok, err := o.Get(name)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("field %q not found", name)
	}
	return v, nil
}

// Fields returns the fields in insertion order. Hidden fields are
// included only if includeHidden is set.
func (o *Object) Fields(includeHidden bool) []Field {
	out := make([]Field, 0, len(o.fields))
	for _, field := range o.fields {
		if field.IsHidden() && !includeHidden {
			continue
		}
		out = append(out, field)
	}
	return out
}

// Names returns the visible field names in insertion order.
func (o *Object) Names() []string {
	var names []string
	for _, field := range o.fields {
		if !field.IsHidden() {
			names = append(names, field.Name)
		}
	}
	return names
}

// Extend returns base overlaid by child. Fields of child replace
// same-named fields of base in place; new fields are appended. A child
// field with Inherit visibility keeps the base field's visibility. A
// plus-merge child field is combined lazily with the base field.
func Extend(base, child *Object) *Object {
	out := &Object{
		fields: make([]Field, len(base.fields), len(base.fields)+len(child.fields)),
		index:  make(map[string]int, len(base.fields)+len(child.fields)),
	}
	copy(out.fields, base.fields)
	for name, i := range base.index {
		out.index[name] = i
	}

	for _, field := range child.fields {
		i, exists := out.index[field.Name]
		if !exists {
			out.index[field.Name] = len(out.fields)
			out.fields = append(out.fields, field)
			continue
		}
		inherited := out.fields[i]
		merged := field
		if merged.Visibility == Inherit {
			merged.Visibility = inherited.Visibility
		}
		if field.Add {
			merged.Value = plusLazy(field.Name, inherited.Value, field.Value)
			merged.Add = inherited.Add
		}
		out.fields[i] = merged
	}
	return out
}

func plusLazy(name string, base, child *Lazy) *Lazy {
	return NewLazy(func() (Value, error) {
		left, err := base.Force()
		if err != nil {
			return nil, err
		}
		right, err := child.Force()
		if err != nil {
			return nil, err
		}
		out, err := Plus(left, right)
		if err != nil {
			return nil, fmt.Errorf("merging field %q: %w", name, err)
		}
		return out, nil
	})
}

// ObjectBuilder assembles an Object field by field.
type ObjectBuilder struct {
	obj *Object
}

// NewObject starts an empty object.
func NewObject() *ObjectBuilder {
	return &ObjectBuilder{obj: Empty()}
}

// SetField adds or replaces a field.
func (b *ObjectBuilder) SetField(field Field) *ObjectBuilder {
	if i, ok := b.obj.index[field.Name]; ok {
		b.obj.fields[i] = field
		return b
	}
	b.obj.index[field.Name] = len(b.obj.fields)
	b.obj.fields = append(b.obj.fields, field)
	return b
}

// Set adds a visible field with an already computed value.
func (b *ObjectBuilder) Set(name string, v Value) *ObjectBuilder {
	return b.SetField(Field{Name: name, Value: Eager(v)})
}

// SetLazy adds a visible field computed on first access.
func (b *ObjectBuilder) SetLazy(name string, compute func() (Value, error)) *ObjectBuilder {
	return b.SetField(Field{Name: name, Value: NewLazy(compute)})
}

// SetHidden adds a hidden field.
func (b *ObjectBuilder) SetHidden(name string, v Value) *ObjectBuilder {
	return b.SetField(Field{Name: name, Value: Eager(v), Visibility: Hidden})
}

// SetPlus adds a plus-merge field.
func (b *ObjectBuilder) SetPlus(name string, v Value) *ObjectBuilder {
	return b.SetField(Field{Name: name, Value: Eager(v), Add: true})
}

// Build returns the assembled object. The builder must not be used
// afterwards.
func (b *ObjectBuilder) Build() *Object {
	obj := b.obj
	b.obj = nil
	return obj
}
