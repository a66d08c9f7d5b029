package registry

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestLoaderMissingFileYieldsEmptySnapshot(t *testing.T) {
	l := NewLoader(filepath.Join(t.TempDir(), "missing.json"))
	snap := l.Load()
	if snap.Version != 0 || len(snap.Chains) != 0 {
		t.Fatalf("expected empty snapshot, got %+v", snap)
	}
}

func TestLoaderMalformedJSONYieldsEmptySnapshot(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "registry.json")
	if err := os.WriteFile(path, []byte("not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	l := NewLoader(path)
	snap := l.Load()
	if snap.Version != 0 || len(snap.Chains) != 0 {
		t.Fatalf("expected empty snapshot, got %+v", snap)
	}
}

func TestDedupeTokensPrefersHigherPriority(t *testing.T) {
	tokens := []Token{
		{Symbol: "weth", Address: "bridge-placeholder", Source: "defaults"},
		{Symbol: "WETH", Address: "0x1111111111111111111111111111111111111111", Source: "contracts"},
		{Symbol: "wbtc", Address: "0x2222222222222222222222222222222222222222", Source: "pair-discovery"},
	}
	out := DedupeTokens(tokens)
	if len(out) != 2 {
		t.Fatalf("expected 2 tokens after dedupe, got %d: %+v", len(out), out)
	}
	// sorted lexicographically by UPPER symbol: WBTC before WETH.
	if out[0].Symbol != "wbtc" || out[1].Symbol != "WETH" {
		t.Fatalf("unexpected order/selection: %+v", out)
	}
	if out[1].Address != "0x1111111111111111111111111111111111111111" {
		t.Fatalf("expected contracts-sourced token to win, got %+v", out[1])
	}
}

func TestDedupeTokensDeterministicOrdering(t *testing.T) {
	tokens := []Token{
		{Symbol: "ZETA", Address: "0x3333333333333333333333333333333333333333", Source: "contracts"},
		{Symbol: "ALPHA", Address: "0x4444444444444444444444444444444444444444", Source: "contracts"},
	}
	out := DedupeTokens(tokens)
	if out[0].Symbol != "ALPHA" || out[1].Symbol != "ZETA" {
		t.Fatalf("expected alphabetic ordering, got %+v", out)
	}
}

func TestRiskAssumptionsUnknownChain(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "registry.json")
	writeSnapshot(t, path, Snapshot{Version: 1, Chains: []Chain{{ChainID: 31337, ChainKey: "hardhat-local"}}})

	l := NewLoader(path)
	if _, _, _, ok := l.RiskAssumptions(999999); ok {
		t.Fatal("expected unknown chain to report not found")
	}
	if _, _, _, ok := l.RiskAssumptions(31337); !ok {
		t.Fatal("expected known chain to be found")
	}
}

func writeSnapshot(t *testing.T, path string, snap Snapshot) {
	t.Helper()
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
}
