// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
)

// FlagsFromParams returns a flag set bound to the tagged fields of
// params, a pointer to a struct. It panics on an invalid struct, which
// is a programming error:
//
//	var params generateParams
//	command := &cli.Command{
//	    Flags: func() *pflag.FlagSet {
//	        return cli.FlagsFromParams("generate", &params)
//	    },
//	    Run: func(args []string) error {
//	        // params is populated here
//	    },
//	}
func FlagsFromParams(name string, params any) *pflag.FlagSet {
	flagSet := pflag.NewFlagSet(name, pflag.ContinueOnError)
	if err := BindFlags(params, flagSet); err != nil {
		panic(fmt.Sprintf("cli.FlagsFromParams(%q): %v", name, err))
	}
	return flagSet
}

// BindFlags registers a flag on flagSet for every tagged field of
// params, a pointer to a struct.
//
// # Struct tags
//
//   - flag:"name" or flag:"name,n": long name and optional shorthand.
//     Untagged fields are skipped.
//   - desc:"help text": the usage string.
//   - default:"value": the default, parsed as the field's type.
//   - env:"VARIABLE": an environment variable that replaces the default
//     when set and non-empty. The flag still wins.
//
// # Field types
//
// string, bool, int, [time.Duration] and []string. A []string flag is
// repeatable and never splits on commas; its default and env values
// are comma-separated.
//
// Embedded structs are bound recursively.
func BindFlags(params any, flagSet *pflag.FlagSet) error {
	pointer := reflect.ValueOf(params)
	if pointer.Kind() != reflect.Pointer || pointer.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("params must be a pointer to a struct, got %T", params)
	}
	return bindStruct(pointer.Elem(), flagSet)
}

func bindStruct(structValue reflect.Value, flagSet *pflag.FlagSet) error {
	for i := range structValue.NumField() {
		field := structValue.Type().Field(i)
		if field.Anonymous && field.Type.Kind() == reflect.Struct {
			if err := bindStruct(structValue.Field(i), flagSet); err != nil {
				return fmt.Errorf("embedded %s: %w", field.Name, err)
			}
			continue
		}
		spec, ok := parseFlagSpec(field)
		if !ok {
			continue
		}
		if err := spec.bind(structValue.Field(i), flagSet); err != nil {
			return fmt.Errorf("field %s: %w", field.Name, err)
		}
	}
	return nil
}

// flagSpec is the parsed tag set of one field.
type flagSpec struct {
	name        string
	shorthand   string
	description string
	defaultText string
}

func parseFlagSpec(field reflect.StructField) (flagSpec, bool) {
	tag := field.Tag.Get("flag")
	if tag == "" {
		return flagSpec{}, false
	}
	name, shorthand, _ := strings.Cut(tag, ",")
	spec := flagSpec{
		name:        name,
		shorthand:   shorthand,
		description: field.Tag.Get("desc"),
		defaultText: field.Tag.Get("default"),
	}
	if variable := field.Tag.Get("env"); variable != "" {
		if fromEnv := os.Getenv(variable); fromEnv != "" {
			spec.defaultText = fromEnv
		}
		spec.description = strings.TrimSpace(spec.description + " [$" + variable + "]")
	}
	return spec, true
}

// binders registers a flag for each supported field type. Each parses
// its default with the same rules the flag applies to its value.
var binders = map[reflect.Type]func(flagSet *pflag.FlagSet, target any, spec flagSpec) error{
	reflect.TypeFor[string](): func(flagSet *pflag.FlagSet, target any, spec flagSpec) error {
		flagSet.StringVarP(target.(*string), spec.name, spec.shorthand, spec.defaultText, spec.description)
		return nil
	},
	reflect.TypeFor[bool](): func(flagSet *pflag.FlagSet, target any, spec flagSpec) error {
		value, err := parseDefault(spec.defaultText, strconv.ParseBool)
		if err != nil {
			return err
		}
		flagSet.BoolVarP(target.(*bool), spec.name, spec.shorthand, value, spec.description)
		return nil
	},
	reflect.TypeFor[int](): func(flagSet *pflag.FlagSet, target any, spec flagSpec) error {
		value, err := parseDefault(spec.defaultText, strconv.Atoi)
		if err != nil {
			return err
		}
		flagSet.IntVarP(target.(*int), spec.name, spec.shorthand, value, spec.description)
		return nil
	},
	reflect.TypeFor[time.Duration](): func(flagSet *pflag.FlagSet, target any, spec flagSpec) error {
		value, err := parseDefault(spec.defaultText, time.ParseDuration)
		if err != nil {
			return err
		}
		flagSet.DurationVarP(target.(*time.Duration), spec.name, spec.shorthand, value, spec.description)
		return nil
	},
	reflect.TypeFor[[]string](): func(flagSet *pflag.FlagSet, target any, spec flagSpec) error {
		var value []string
		if spec.defaultText != "" {
			value = strings.Split(spec.defaultText, ",")
		}
		flagSet.StringArrayVarP(target.(*[]string), spec.name, spec.shorthand, value, spec.description)
		return nil
	},
}

func (s flagSpec) bind(fieldValue reflect.Value, flagSet *pflag.FlagSet) error {
	binder, ok := binders[fieldValue.Type()]
	if !ok {
		return fmt.Errorf("unsupported type %s for flag --%s", fieldValue.Type(), s.name)
	}
	if !fieldValue.CanAddr() {
		return fmt.Errorf("flag --%s: field is not addressable", s.name)
	}
	if err := binder(flagSet, fieldValue.Addr().Interface(), s); err != nil {
		return fmt.Errorf("default for --%s: %w", s.name, err)
	}
	return nil
}

// parseDefault parses text, treating "" as the zero value.
func parseDefault[T any](text string, parse func(string) (T, error)) (T, error) {
	if text == "" {
		var zero T
		return zero, nil
	}
	return parse(text)
}
