// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"testing"

	"github.com/spf13/pflag"
)

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"", "abc", 3},
		{"abc", "", 3},
		{"abc", "abc", 0},
		{"abc", "abd", 1}, // substitution
		{"abc", "ab", 1},  // deletion
		{"ab", "abc", 1},  // insertion
		{"abc", "bac", 2}, // transposition (counted as 2 edits)
		{"kitten", "sitting", 3},
		{"generate", "genrate", 1},
		{"ensure", "ensrue", 2},
	}

	for _, test := range tests {
		t.Run(test.a+"->"+test.b, func(t *testing.T) {
			got := levenshtein(test.a, test.b)
			if got != test.want {
				t.Errorf("levenshtein(%q, %q) = %d, want %d", test.a, test.b, got, test.want)
			}
		})
	}
}

func TestSuggestCommand(t *testing.T) {
	commands := []*Command{
		{Name: "generate"},
		{Name: "keys"},
		{Name: "version"},
	}

	tests := []struct {
		input string
		want  string
	}{
		{"genrate", "generate"},
		{"key", "keys"},
		{"vrsion", "version"},
		{"gen", "generate"},
		{"zzzzzzzzz", ""},
	}

	for _, test := range tests {
		if got := suggestCommand(test.input, commands); got != test.want {
			t.Errorf("suggestCommand(%q) = %q, want %q", test.input, got, test.want)
		}
	}
}

func TestSuggestFlag(t *testing.T) {
	flagSet := pflag.NewFlagSet("generate", pflag.ContinueOnError)
	flagSet.String("secret", "", "")
	flagSet.StringArrayP("jpath", "J", nil, "")
	flagSet.StringArray("tla-str", nil, "")

	tests := []struct {
		args []string
		want string
	}{
		{[]string{"--secert", "memory"}, "--secret"},
		{[]string{"--tla-st=name=value"}, "--tla-str"},
		{[]string{"-J", "lib", "--jpth", "x"}, "--jpath"},
		{[]string{"--secret", "memory", "--zzzzzzzzzz"}, ""},
		{[]string{"--", "--secert"}, ""},
		{[]string{"-", "--secert"}, "--secret"},
	}

	for _, test := range tests {
		if got := suggestFlag(test.args, flagSet); got != test.want {
			t.Errorf("suggestFlag(%v) = %q, want %q", test.args, got, test.want)
		}
	}
}
