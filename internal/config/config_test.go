package config

import "testing"

func TestIndexerSettingsFromEnvRequiresChainID(t *testing.T) {
	t.Setenv("INDEXER_CHAIN_ID", "")
	if _, err := IndexerSettingsFromEnv("SEPOLIA_RPC_URL"); err == nil {
		t.Fatal("expected error when INDEXER_CHAIN_ID is unset")
	}
}

func TestIndexerSettingsFromEnvRPCFallback(t *testing.T) {
	t.Setenv("INDEXER_CHAIN_ID", "11155111")
	t.Setenv("INDEXER_RPC_URL", "")
	t.Setenv("SEPOLIA_RPC_URL", "https://example.invalid/rpc")

	s, err := IndexerSettingsFromEnv("SEPOLIA_RPC_URL")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.RPCURL != "https://example.invalid/rpc" {
		t.Fatalf("expected fallback RPC URL, got %q", s.RPCURL)
	}
	if s.ChainID != 11155111 {
		t.Fatalf("expected chain id 11155111, got %d", s.ChainID)
	}
}

func TestComplianceFromEnvLowercasesCSV(t *testing.T) {
	t.Setenv("COMPLIANCE_ENFORCEMENT_ENABLED", "true")
	t.Setenv("COMPLIANCE_BLOCKED_COUNTRIES", "IR, KP")
	c := complianceFromEnv()
	if !c.EnforcementEnabled {
		t.Fatal("expected enforcement enabled")
	}
	if len(c.BlockedCountries) != 2 || c.BlockedCountries[0] != "ir" || c.BlockedCountries[1] != "kp" {
		t.Fatalf("unexpected blocked countries: %v", c.BlockedCountries)
	}
}

func TestEnvChainOrGlobal(t *testing.T) {
	t.Setenv("MUSD_POLICY_PROVIDER", "global-provider")
	t.Setenv("MUSD_POLICY_PROVIDER_SEPOLIA", "chain-provider")

	if got := EnvChainOrGlobal("MUSD_POLICY_PROVIDER", "SEPOLIA", "default"); got != "chain-provider" {
		t.Fatalf("expected chain-specific override, got %q", got)
	}
	if got := EnvChainOrGlobal("MUSD_POLICY_PROVIDER", "BSC", "default"); got != "global-provider" {
		t.Fatalf("expected global fallback, got %q", got)
	}
	if got := EnvChainOrGlobal("UNSET_VAR", "BSC", "default"); got != "default" {
		t.Fatalf("expected hardcoded default, got %q", got)
	}
}
