// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bureau-foundation/bootnet/cmd/bootnet/cli"
	"github.com/bureau-foundation/bootnet/lib/address"
	"github.com/bureau-foundation/bootnet/lib/config"
	"github.com/bureau-foundation/bootnet/lib/provision"
	"github.com/bureau-foundation/bootnet/lib/sealed"
	"github.com/bureau-foundation/bootnet/lib/value"
)

// captureStdout redirects command results for the duration of the test.
func captureStdout(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buffer bytes.Buffer
	previous := stdout
	stdout = &buffer
	t.Cleanup(func() { stdout = previous })
	return &buffer
}

func captureStderr(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buffer bytes.Buffer
	previous := stderr
	stderr = &buffer
	t.Cleanup(func() { stderr = previous })
	return &buffer
}

func TestParseTopLevelArgs(t *testing.T) {
	args, err := parseTopLevelArgs(
		[]string{"name=devnet", "empty="},
		[]string{"replicas=3", "labels={team: infra}"},
	)
	if err != nil {
		t.Fatalf("parseTopLevelArgs: %v", err)
	}
	if got := args.Names(); strings.Join(got, ",") != "empty,labels,name,replicas" {
		t.Errorf("names = %v", got)
	}

	name, _ := args.Force("name")
	if name != value.String("devnet") {
		t.Errorf("name = %v, want devnet", name)
	}
	replicas, _ := args.Force("replicas")
	if replicas != value.Number(3) {
		t.Errorf("replicas = %v, want number 3", replicas)
	}
	labels, _ := args.Force("labels")
	data, err := value.MarshalJSON(labels)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"team":"infra"}` {
		t.Errorf("labels = %s", data)
	}
}

func TestParseTopLevelArgsErrors(t *testing.T) {
	tests := []struct {
		name string
		strs []string
		code []string
		want string
	}{
		{"missing equals", []string{"devnet"}, nil, "expected name=value"},
		{"empty name", nil, []string{"=3"}, "expected name=value"},
		{"duplicate across flags", []string{"name=a"}, []string{"name=1"}, `argument "name" given twice`},
		{"invalid code", nil, []string{"broken={"}, "--tla-code broken"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseTopLevelArgs(tt.strs, tt.code)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want it to contain %q", err, tt.want)
			}
		})
	}
}

func TestParseWantedKeys(t *testing.T) {
	wanted, err := parseWantedKeys([]string{"aura=sr25519", "gran=ed25519", "babe=@aura", "_stash=sr25519"})
	if err != nil {
		t.Fatalf("parseWantedKeys: %v", err)
	}
	if got := wanted["aura"]; got != (provision.SchemeRequest{Scheme: address.Sr25519}) {
		t.Errorf("aura = %#v", got)
	}
	if got := wanted["gran"]; got != (provision.SchemeRequest{Scheme: address.Ed25519}) {
		t.Errorf("gran = %#v", got)
	}
	if got := wanted["babe"]; got != (provision.AliasRequest{Target: "aura"}) {
		t.Errorf("babe = %#v", got)
	}
	if len(wanted) != 4 {
		t.Errorf("wanted has %d entries, want 4", len(wanted))
	}

	for _, bad := range [][]string{
		{"aura"},
		{"aura="},
		{"aura=rsa"},
		{"aura=sr25519", "aura=ed25519"},
	} {
		if _, err := parseWantedKeys(bad); err == nil {
			t.Errorf("parseWantedKeys(%v) = nil error", bad)
		}
	}
}

func TestGenerateApplyFlags(t *testing.T) {
	cfg := config.Default()
	cfg.Spec.CacheDir = "/configured/cache"
	cfg.Library.SearchPaths = []string{"/configured/lib"}

	params := generateParams{
		Spec:        "docker",
		SearchPaths: []string{"vendor/lib"},
	}
	params.apply(cfg)

	if cfg.Spec.Backend != "docker" {
		t.Errorf("spec backend = %q, want docker", cfg.Spec.Backend)
	}
	if cfg.Spec.CacheDir != "/configured/cache" {
		t.Errorf("cache dir = %q, want the configured one", cfg.Spec.CacheDir)
	}
	if strings.Join(cfg.Library.SearchPaths, ":") != "vendor/lib:/configured/lib" {
		t.Errorf("search paths = %v, want flags first", cfg.Library.SearchPaths)
	}
}

func TestSecretParamsOverrideConfig(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "bootnet.yaml")
	content := `
secret:
  backend: file=/configured
  escrow: [age1configured]
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	params := secretParams{ConfigPath: configPath, Secret: "memory", Escrow: []string{"age1flag"}}
	cfg, err := params.loadConfig()
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Secret.Backend != "memory" {
		t.Errorf("backend = %q, want the flag value", cfg.Secret.Backend)
	}
	if strings.Join(cfg.Secret.Escrow, ",") != "age1configured,age1flag" {
		t.Errorf("escrow = %v", cfg.Secret.Escrow)
	}
}

func TestGenerateRequiresModuleAndGenerator(t *testing.T) {
	var usage *cli.UsageError

	err := runGenerate(&generateParams{Generators: []string{"debug"}}, nil)
	if !errors.As(err, &usage) {
		t.Errorf("no modules: error = %v, want a usage error", err)
	}
	err = runGenerate(&generateParams{}, []string{"network.yaml"})
	if !errors.As(err, &usage) || !strings.Contains(err.Error(), "--generator") {
		t.Errorf("no generators: error = %v, want a usage error naming --generator", err)
	}
}

func TestGenerateRejectsUnknownGenerator(t *testing.T) {
	t.Setenv(config.EnvVar, "")
	t.Chdir(t.TempDir())

	params := &generateParams{Generators: []string{"terraform=out"}}
	err := runGenerate(params, []string{"network.yaml"})
	var usage *cli.UsageError
	if !errors.As(err, &usage) || !strings.Contains(err.Error(), "unknown generator") {
		t.Errorf("error = %v, want an unknown generator usage error", err)
	}
}

func TestGenerateDebug(t *testing.T) {
	t.Setenv(config.EnvVar, "")
	t.Chdir(t.TempDir())
	if err := os.WriteFile("empty.yaml", []byte("{}\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile("named.yaml", []byte("name: demo\nreplicas: 3\n"), 0644); err != nil {
		t.Fatal(err)
	}

	output := captureStderr(t)
	if err := Root().Execute([]string{"generate", "--log-level", "error", "-g", "debug", "empty.yaml"}); err != nil {
		t.Fatalf("generate empty.yaml: %v", err)
	}
	if got := strings.TrimSpace(output.String()); got != "{}" {
		t.Errorf("debug output for an empty document = %q, want {}", got)
	}

	output.Reset()
	if err := Root().Execute([]string{"generate", "--log-level", "error", "-g", "debug", "named.yaml"}); err != nil {
		t.Fatalf("generate named.yaml: %v", err)
	}
	var document map[string]any
	if err := json.Unmarshal(output.Bytes(), &document); err != nil {
		t.Fatalf("debug output is not JSON: %v\n%s", err, output.String())
	}
	if document["name"] != "demo" || document["replicas"] != float64(3) {
		t.Errorf("debug document = %v, want name=demo replicas=3", document)
	}
	if _, ok := document["_output"]; ok {
		t.Error("debug document exposes _output")
	}
}

func TestGenerateAddressBook(t *testing.T) {
	t.Setenv(config.EnvVar, "")
	dir := t.TempDir()
	t.Chdir(dir)

	network := `
chains:
  relay:
    bin: {dockerImage: "parity/polkadot:v1"}
    wantedKeys: {aura: sr25519}
    nodes:
      alice: {}
      bob: {}
`
	if err := os.WriteFile("network.yaml", []byte(network), 0644); err != nil {
		t.Fatal(err)
	}
	patch := `
chains+:
  relay+:
    nodes+:
      charlie: {}
`
	if err := os.WriteFile("charlie.yaml", []byte(patch), 0644); err != nil {
		t.Fatal(err)
	}

	err := Root().Execute([]string{
		"generate",
		"--secret", "file=secrets",
		"--log-level", "error",
		"-g", "addressbook=out/addresses.json",
		"network.yaml", "charlie.yaml",
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "out", "addresses.json"))
	if err != nil {
		t.Fatal(err)
	}
	var book map[string]map[string]struct {
		Hostname     string            `json:"hostname"`
		NodeIdentity string            `json:"nodeIdentity"`
		Keys         map[string]string `json:"keys"`
	}
	if err := json.Unmarshal(data, &book); err != nil {
		t.Fatalf("address book is not JSON: %v\n%s", err, data)
	}
	relay := book["relay"]
	if len(relay) != 3 {
		t.Fatalf("relay nodes = %v, want alice, bob and charlie", relay)
	}
	for name, node := range relay {
		if node.NodeIdentity == "" || node.Keys["aura"] == "" {
			t.Errorf("%s: missing identity or aura key: %+v", name, node)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "secrets", "node", "relay-alice")); err != nil {
		t.Errorf("node key not stored: %v", err)
	}
}

func TestKeysEnsure(t *testing.T) {
	t.Setenv(config.EnvVar, "")
	dir := t.TempDir()
	output := captureStdout(t)

	args := []string{
		"keys", "ensure",
		"--secret", "file=" + dir,
		"--log-level", "error",
		"--path", "alice",
		"aura=sr25519", "babe=@aura", "_stash=sr25519",
	}
	if err := Root().Execute(args); err != nil {
		t.Fatalf("keys ensure: %v", err)
	}
	var first provision.Keys
	if err := json.Unmarshal(output.Bytes(), &first); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, output.String())
	}
	if first.NodeIdentity == "" {
		t.Error("nodeIdentity is empty")
	}
	if first.Keys["aura"] == "" || first.Keys["babe"] != first.Keys["aura"] {
		t.Errorf("keys = %v, want babe aliased to aura", first.Keys)
	}
	if first.Wallets["stash"] == "" {
		t.Errorf("wallets = %v, want stash", first.Wallets)
	}

	output.Reset()
	if err := Root().Execute(args); err != nil {
		t.Fatalf("second keys ensure: %v", err)
	}
	var second provision.Keys
	if err := json.Unmarshal(output.Bytes(), &second); err != nil {
		t.Fatal(err)
	}
	if second.NodeIdentity != first.NodeIdentity || second.Keys["aura"] != first.Keys["aura"] {
		t.Errorf("second run changed keys: %+v vs %+v", second, first)
	}
}

func TestKeysEnsureRequiresPath(t *testing.T) {
	t.Setenv(config.EnvVar, "")
	err := Root().Execute([]string{"keys", "ensure", "--secret", "memory", "aura=sr25519"})
	var usage *cli.UsageError
	if !errors.As(err, &usage) {
		t.Errorf("error = %v, want a usage error", err)
	}
}

func TestEscrowKeygenAndUnseal(t *testing.T) {
	dir := t.TempDir()
	output := captureStdout(t)

	keyPath := filepath.Join(dir, "escrow.key")
	if err := runEscrowKeygen(keyPath); err != nil {
		t.Fatalf("escrow-keygen: %v", err)
	}
	info, err := os.Stat(keyPath)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("private key mode = %v, want 0600", info.Mode().Perm())
	}
	publicKey := strings.TrimSpace(output.String())
	if !strings.HasPrefix(publicKey, "age1") {
		t.Fatalf("public key = %q", publicKey)
	}
	if err := runEscrowKeygen(keyPath); err == nil {
		t.Error("escrow-keygen overwrote an existing key")
	}

	recipients, err := sealed.ParseRecipients([]string{publicKey})
	if err != nil {
		t.Fatal(err)
	}
	ciphertext, err := recipients.Seal([]byte("bottom drive obey lake curtain smoke basket hold race lonely fit walk"))
	if err != nil {
		t.Fatal(err)
	}
	sealedPath := filepath.Join(dir, "wallet.age")
	if err := os.WriteFile(sealedPath, ciphertext, 0600); err != nil {
		t.Fatal(err)
	}

	output.Reset()
	if err := runUnseal(keyPath, sealedPath); err != nil {
		t.Fatalf("unseal: %v", err)
	}
	if output.String() != "bottom drive obey lake curtain smoke basket hold race lonely fit walk" {
		t.Errorf("plaintext = %q", output.String())
	}
}

func TestVersionJSON(t *testing.T) {
	output := captureStdout(t)
	if err := Root().Execute([]string{"version", "--json"}); err != nil {
		t.Fatal(err)
	}
	var build struct {
		Version   string `json:"version"`
		GoVersion string `json:"go_version"`
	}
	if err := json.Unmarshal(output.Bytes(), &build); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, output.String())
	}
	if build.Version == "" || build.GoVersion == "" {
		t.Errorf("build = %+v", build)
	}
}
