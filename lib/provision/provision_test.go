// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package provision

import (
	"encoding/hex"
	"errors"
	"strings"
	"testing"

	"github.com/bureau-foundation/bootnet/lib/address"
	"github.com/bureau-foundation/bootnet/lib/keystore"
	"github.com/bureau-foundation/bootnet/lib/value"
)

// counterReader is a deterministic entropy source.
type counterReader struct {
	next byte
}

func (r *counterReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = r.next
		r.next++
	}
	return len(p), nil
}

// recordingStore remembers the mnemonics it was asked to store.
type recordingStore struct {
	*keystore.MemoryStore
	typed   map[string]string
	wallets map[string]string
}

func newRecordingStore() *recordingStore {
	return &recordingStore{
		MemoryStore: keystore.NewMemoryStore(),
		typed:       make(map[string]string),
		wallets:     make(map[string]string),
	}
}

func (s *recordingStore) StoreTypedKey(node, tag string, scheme address.Scheme, mnemonic string, format address.Format) error {
	s.typed[tag] = mnemonic
	return s.MemoryStore.StoreTypedKey(node, tag, scheme, mnemonic, format)
}

func (s *recordingStore) StoreWallet(name, tag string, scheme address.Scheme, mnemonic string, format address.Format) error {
	s.wallets[tag] = mnemonic
	return s.MemoryStore.StoreWallet(name, tag, scheme, mnemonic, format)
}

func newProvisioner(store keystore.Store) *Provisioner {
	p := New(store, nil)
	p.SetRandom(&counterReader{})
	return p
}

func sr25519() Request {
	return SchemeRequest{Scheme: address.Sr25519}
}

func TestEnsureKeysSingleTypedKey(t *testing.T) {
	store := newRecordingStore()
	keys, err := newProvisioner(store).EnsureKeys("alice", map[string]Request{"aura": sr25519()}, address.DefaultFormat)
	if err != nil {
		t.Fatalf("EnsureKeys failed: %v", err)
	}

	if len(store.typed) != 1 {
		t.Fatalf("generated %d typed keys, want 1", len(store.typed))
	}
	mnemonic := store.typed["aura"]
	if words := len(strings.Fields(mnemonic)); words != 12 {
		t.Errorf("typed key mnemonic has %d words, want 12", words)
	}
	want, err := address.Address(address.Sr25519, mnemonic, address.DefaultFormat)
	if err != nil {
		t.Fatalf("Address failed: %v", err)
	}
	if keys.Keys["aura"] != want {
		t.Errorf("keys[aura] = %q, want %q", keys.Keys["aura"], want)
	}
	if !strings.HasPrefix(keys.NodeIdentity, "12D3KooW") {
		t.Errorf("NodeIdentity = %q, want a peer id", keys.NodeIdentity)
	}
	if keys.LocalKeystoreDir != keystore.Placeholder || keys.LocalNodeFile == "" {
		t.Errorf("local paths = %q, %q", keys.LocalKeystoreDir, keys.LocalNodeFile)
	}
	// Node identity plus one typed key.
	if store.Writes() != 2 {
		t.Errorf("store writes = %d, want 2", store.Writes())
	}
}

func TestEnsureKeysIdempotent(t *testing.T) {
	store := keystore.NewMemoryStore()
	wanted := map[string]Request{
		"aura":   sr25519(),
		"gran":   SchemeRequest{Scheme: address.Ed25519},
		"_stash": sr25519(),
	}
	p := newProvisioner(store)

	first, err := p.EnsureKeys("alice", wanted, address.DefaultFormat)
	if err != nil {
		t.Fatalf("first EnsureKeys failed: %v", err)
	}
	writes := store.Writes()

	second, err := p.EnsureKeys("alice", wanted, address.DefaultFormat)
	if err != nil {
		t.Fatalf("second EnsureKeys failed: %v", err)
	}
	if store.Writes() != writes {
		t.Errorf("second run wrote %d times", store.Writes()-writes)
	}
	equal, err := value.Equal(first.Value(), second.Value())
	if err != nil {
		t.Fatalf("Equal failed: %v", err)
	}
	if !equal {
		t.Errorf("second run returned %+v, first %+v", second, first)
	}
}

func TestEnsureKeysAliasFanOut(t *testing.T) {
	store := newRecordingStore()
	wanted := map[string]Request{
		"aura": sr25519(),
		"babe": AliasRequest{Target: "aura"},
	}
	keys, err := newProvisioner(store).EnsureKeys("alice", wanted, address.DefaultFormat)
	if err != nil {
		t.Fatalf("EnsureKeys failed: %v", err)
	}
	if keys.Keys["aura"] == "" || keys.Keys["aura"] != keys.Keys["babe"] {
		t.Errorf("keys = %v, want aura and babe to share an address", keys.Keys)
	}
	if store.typed["aura"] != store.typed["babe"] {
		t.Error("alias was stored with a different mnemonic")
	}

	// The alias is persisted under its own tag.
	stored, ok, err := store.TypedKey("alice", "babe", address.Sr25519, address.DefaultFormat)
	if err != nil || !ok || stored != keys.Keys["aura"] {
		t.Errorf("stored alias = %q, %v, %v", stored, ok, err)
	}
}

func TestEnsureKeysAliasIsSingleLevel(t *testing.T) {
	store := newRecordingStore()
	wanted := map[string]Request{
		"aura": sr25519(),
		"babe": AliasRequest{Target: "aura"},
		"imon": AliasRequest{Target: "babe"},
	}
	keys, err := newProvisioner(store).EnsureKeys("alice", wanted, address.DefaultFormat)
	if err != nil {
		t.Fatalf("EnsureKeys failed: %v", err)
	}
	if _, ok := keys.Keys["imon"]; ok {
		t.Errorf("alias of an alias was resolved: %v", keys.Keys)
	}
	if _, ok := store.typed["imon"]; ok {
		t.Error("alias of an alias was stored")
	}
}

func TestEnsureKeysDuplicateByType(t *testing.T) {
	store := keystore.NewMemoryStore()
	tag := hex.EncodeToString([]byte("aura"))
	store.PutRaw("alice", tag+"aa", "bottom drive obey lake curtain smoke basket hold race lonely fit walk")
	store.PutRaw("alice", tag+"bb", "legal winner thank year wave sausage worth useful legal winner thank yellow")

	_, err := newProvisioner(store).EnsureKeys("alice", map[string]Request{"aura": sr25519()}, address.DefaultFormat)
	if !errors.Is(err, keystore.ErrDuplicateKeyByType) {
		t.Errorf("EnsureKeys error = %v, want ErrDuplicateKeyByType", err)
	}
}

func TestEnsureKeysRejectsBadTagsBeforeStorage(t *testing.T) {
	for _, tag := range []string{"aur", "auras", "éé"} {
		store := keystore.NewMemoryStore()
		wanted := map[string]Request{"aura": sr25519(), tag: sr25519()}
		_, err := newProvisioner(store).EnsureKeys("alice", wanted, address.DefaultFormat)
		if !errors.Is(err, keystore.ErrInvalidRoleTag) {
			t.Errorf("EnsureKeys(tag %q) error = %v, want ErrInvalidRoleTag", tag, err)
		}
		if store.Writes() != 0 {
			t.Errorf("EnsureKeys(tag %q) wrote %d times before failing", tag, store.Writes())
		}
	}
}

func TestEnsureKeysWallets(t *testing.T) {
	store := newRecordingStore()
	keys, err := newProvisioner(store).EnsureKeys("validator", map[string]Request{"_stash": sr25519()}, 0)
	if err != nil {
		t.Fatalf("EnsureKeys failed: %v", err)
	}
	mnemonic := store.wallets["stash"]
	if words := len(strings.Fields(mnemonic)); words != 24 {
		t.Errorf("wallet mnemonic has %d words, want 24", words)
	}
	want, _ := address.Address(address.Sr25519, mnemonic, 0)
	if keys.Wallets["stash"] != want {
		t.Errorf("wallets[stash] = %q, want %q", keys.Wallets["stash"], want)
	}
	if len(keys.Keys) != 0 {
		t.Errorf("wallet leaked into keys: %v", keys.Keys)
	}

	_, err = newProvisioner(newRecordingStore()).EnsureKeys("validator", map[string]Request{"_stash": OpaqueRequest{}}, 0)
	if err == nil || !strings.Contains(err.Error(), "wallet scheme must be scheme-based") {
		t.Errorf("EnsureKeys(opaque wallet) error = %v", err)
	}
}

func TestEnsureKeysSkipsReservedAndOpaque(t *testing.T) {
	store := newRecordingStore()
	wanted := map[string]Request{
		"sessionKeys": sr25519(),
		"nodeKey":     sr25519(),
		"beef":        OpaqueRequest{},
	}
	keys, err := newProvisioner(store).EnsureKeys("alice", wanted, address.DefaultFormat)
	if err != nil {
		t.Fatalf("EnsureKeys failed: %v", err)
	}
	if len(keys.Keys) != 0 || len(store.typed) != 0 {
		t.Errorf("reserved or opaque names were provisioned: %v", keys.Keys)
	}
}

func TestEnsureKeysUnsetBackend(t *testing.T) {
	_, err := newProvisioner(keystore.NewBackend(nil, nil)).EnsureKeys("alice", map[string]Request{"aura": sr25519()}, address.DefaultFormat)
	if !errors.Is(err, keystore.ErrBackendNotSet) {
		t.Errorf("EnsureKeys error = %v, want ErrBackendNotSet", err)
	}
}

func TestParseRequests(t *testing.T) {
	v, err := value.ParseYAML([]byte(`
aura: sr25519
babe: {alias: aura}
beef: {custom: true}
_stash: ed25519
`))
	if err != nil {
		t.Fatalf("ParseYAML failed: %v", err)
	}
	requests, err := ParseRequests(v)
	if err != nil {
		t.Fatalf("ParseRequests failed: %v", err)
	}
	if requests["aura"] != sr25519() {
		t.Errorf("aura = %#v", requests["aura"])
	}
	if requests["babe"] != (AliasRequest{Target: "aura"}) {
		t.Errorf("babe = %#v", requests["babe"])
	}
	if requests["beef"] != (OpaqueRequest{}) {
		t.Errorf("beef = %#v", requests["beef"])
	}
	if requests["_stash"] != (SchemeRequest{Scheme: address.Ed25519}) {
		t.Errorf("_stash = %#v", requests["_stash"])
	}

	for _, bad := range []string{"aura: rsa", "aura: 4", "[x]"} {
		v, err := value.ParseYAML([]byte(bad))
		if err != nil {
			t.Fatalf("ParseYAML(%q) failed: %v", bad, err)
		}
		if _, err := ParseRequests(v); err == nil {
			t.Errorf("ParseRequests(%q) succeeded", bad)
		}
	}

	empty, err := ParseRequests(value.Null{})
	if err != nil || len(empty) != 0 {
		t.Errorf("ParseRequests(null) = %v, %v", empty, err)
	}
}

func TestMergeRequests(t *testing.T) {
	merged := MergeRequests(
		map[string]Request{"aura": sr25519(), "gran": sr25519()},
		map[string]Request{"gran": SchemeRequest{Scheme: address.Ed25519}},
	)
	if merged["gran"] != (SchemeRequest{Scheme: address.Ed25519}) || merged["aura"] != sr25519() {
		t.Errorf("MergeRequests() = %v", merged)
	}
}
