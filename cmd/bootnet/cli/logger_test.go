// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestNewLogger_JSONWhenPiped(t *testing.T) {
	var buffer bytes.Buffer
	logger := newLogger(&buffer, false, slog.LevelInfo)
	logger.Info("building genesis", "chain", "dev")
	logger.Debug("hidden")

	var entry map[string]any
	if err := json.Unmarshal(buffer.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v\n%s", err, buffer.String())
	}
	if entry["msg"] != "building genesis" || entry["chain"] != "dev" {
		t.Errorf("entry = %v", entry)
	}
}

func TestNewLogger_TextOnTerminal(t *testing.T) {
	var buffer bytes.Buffer
	logger := newLogger(&buffer, true, slog.LevelDebug)
	logger.Debug("module", "module", "cluster.yaml")
	if !strings.Contains(buffer.String(), "msg=module module=cluster.yaml") {
		t.Errorf("output = %q", buffer.String())
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"warn", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"trace", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseLogLevel(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLogLevel(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}
