package registry

import (
	"math/big"
	"testing"
)

func TestToDecimalString(t *testing.T) {
	cases := []struct {
		raw      string
		decimals int
		want     string
	}{
		{"100000000000000000000", 18, "100"},
		{"100000000000000000", 18, "0.1"},
		{"1", 18, "0.000000000000000001"},
		{"0", 18, "0"},
		{"1000", 0, "1000"},
	}
	for _, c := range cases {
		raw, ok := new(big.Int).SetString(c.raw, 10)
		if !ok {
			t.Fatalf("bad test fixture %q", c.raw)
		}
		got := toDecimalString(raw, c.decimals)
		if got != c.want {
			t.Errorf("toDecimalString(%s, %d) = %q, want %q", c.raw, c.decimals, got, c.want)
		}
	}
}

func TestMergeTokensDedupesByAddressAndSymbol(t *testing.T) {
	base := []Token{{Symbol: "WETH", Address: "0xaaa"}}
	extra := []Token{
		{Symbol: "WETH", Address: "0xaaa"},
		{Symbol: "WBTC", Address: "0xbbb"},
	}
	out := mergeTokens(base, extra)
	if len(out) != 2 {
		t.Fatalf("expected 2 tokens, got %d: %+v", len(out), out)
	}
}

func TestFallbackTagsDiscoveryStatus(t *testing.T) {
	entry := Chain{ChainKey: "ethereum-sepolia"}
	previous := Chain{ChainKey: "ethereum-sepolia", Pairs: []Pair{{PairAddress: "0xPair1"}}}
	out := fallback(entry, previous, BuildOptions{}, "ethereum-sepolia", "rpc-url-missing", "2026-01-01T00:00:00Z")
	if out.NetworkHealth.RPCConnected {
		t.Fatal("expected rpc_connected=false on fallback")
	}
	if len(out.Pairs) != 1 {
		t.Fatalf("expected previous pair to be carried over, got %+v", out.Pairs)
	}
	wantPrefix := "fallback-previous: rpc-url-missing"
	if out.NetworkHealth.DiscoveryStatus != wantPrefix {
		t.Fatalf("got discovery_status %q want %q", out.NetworkHealth.DiscoveryStatus, wantPrefix)
	}
}

func TestTrustAssumptionsHasThreeFixedEntries(t *testing.T) {
	out := trustAssumptions("ethereum-sepolia", "2026-01-01T00:00:00Z")
	if len(out) != 3 {
		t.Fatalf("expected 3 trust assumptions, got %d", len(out))
	}
}
