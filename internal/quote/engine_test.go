package quote

import (
	"encoding/json"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/WeAreTheArtMakers/mcryptoex/internal/apperr"
	"github.com/WeAreTheArtMakers/mcryptoex/internal/config"
	"github.com/WeAreTheArtMakers/mcryptoex/internal/registry"
)

func testChain() registry.Chain {
	return registry.Chain{
		ChainID: 31337,
		Tokens: []registry.Token{
			{Symbol: "mUSD", Decimals: 18},
			{Symbol: "WETH", Decimals: 18},
			{Symbol: "WBTC", Decimals: 8},
		},
		Pairs: []registry.Pair{
			{
				PairAddress: "0xpair1", Token0Symbol: "mUSD", Token1Symbol: "WETH",
				Reserve0Decimal: "3300000", Reserve1Decimal: "1000", CheckedAt: "2026-01-01T00:00:00Z",
			},
		},
	}
}

func newTestEngine(t *testing.T, chain registry.Chain) *Engine {
	t.Helper()
	dir := t.TempDir()
	path := dir + "/registry.json"
	writeTestSnapshot(t, path, registry.Snapshot{Version: 1, Chains: []registry.Chain{chain}})
	loader := registry.NewLoader(path)
	cache := NewDepthCache(loader, config.QuoteSettings{CacheTTLSeconds: 20, AllowStaticFallback: true})
	return NewEngine(cache, config.QuoteSettings{CacheTTLSeconds: 20, AllowStaticFallback: true})
}

func TestQuoteDirectRoute(t *testing.T) {
	e := newTestEngine(t, testChain())
	result, err := e.Quote(Request{
		ChainID:        31337,
		TokenIn:        "mUSD",
		TokenOut:       "WETH",
		AmountIn:       decimal.NewFromInt(1000),
		SlippageBps:    50,
		SwapFeeBps:     30,
		ProtocolFeeBps: 5,
	}, time.Unix(0, 0))
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if len(result.Route) != 2 || result.Route[0] != "MUSD" || result.Route[1] != "WETH" {
		t.Fatalf("expected direct route, got %+v", result.Route)
	}
	if result.ExpectedOut.Sign() <= 0 {
		t.Fatalf("expected positive output, got %s", result.ExpectedOut)
	}
	wantMinOut := result.ExpectedOut.Mul(decimal.NewFromInt(9950)).Div(decimal.NewFromInt(10000))
	if !result.MinOut.Equal(wantMinOut) {
		t.Fatalf("min_out = %s, want %s", result.MinOut, wantMinOut)
	}
}

func TestQuoteTwoHopRoute(t *testing.T) {
	chain := testChain()
	chain.Pairs = append(chain.Pairs, registry.Pair{
		PairAddress: "0xpair2", Token0Symbol: "mUSD", Token1Symbol: "WBTC",
		Reserve0Decimal: "5200000", Reserve1Decimal: "100", CheckedAt: "2026-01-01T00:00:00Z",
	})
	e := newTestEngine(t, chain)

	result, err := e.Quote(Request{
		ChainID:        31337,
		TokenIn:        "WBTC",
		TokenOut:       "WETH",
		AmountIn:       decimal.NewFromInt(1),
		SlippageBps:    100,
		SwapFeeBps:     30,
		ProtocolFeeBps: 5,
	}, time.Unix(0, 0))
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if len(result.Route) != 3 || result.Route[1] != "MUSD" {
		t.Fatalf("expected two-hop route via mUSD, got %+v", result.Route)
	}
}

func TestQuoteRejectsSameToken(t *testing.T) {
	e := newTestEngine(t, testChain())
	_, err := e.Quote(Request{ChainID: 31337, TokenIn: "WETH", TokenOut: "weth", AmountIn: decimal.NewFromInt(1)}, time.Unix(0, 0))
	if err == nil {
		t.Fatal("expected an error for token_in == token_out")
	}
}

func TestQuoteUnknownChain(t *testing.T) {
	e := newTestEngine(t, testChain())
	_, err := e.Quote(Request{ChainID: 999, TokenIn: "WETH", TokenOut: "mUSD", AmountIn: decimal.NewFromInt(1)}, time.Unix(0, 0))
	if err == nil {
		t.Fatal("expected an error for an unknown chain")
	}
}

func TestQuoteRejectsUnregisteredToken(t *testing.T) {
	e := newTestEngine(t, testChain())
	_, err := e.Quote(Request{ChainID: 31337, TokenIn: "INVALID", TokenOut: "WETH", AmountIn: decimal.NewFromInt(1)}, time.Unix(0, 0))
	if err == nil {
		t.Fatal("expected an error for an unregistered token_in")
	}
	appErr, ok := apperr.As(err)
	if !ok || appErr.Status != http.StatusUnprocessableEntity {
		t.Fatalf("expected a 422 validation error, got %v", err)
	}

	_, err = e.Quote(Request{ChainID: 31337, TokenIn: "WETH", TokenOut: "INVALID", AmountIn: decimal.NewFromInt(1)}, time.Unix(0, 0))
	if err == nil {
		t.Fatal("expected an error for an unregistered token_out")
	}
}

func writeTestSnapshot(t *testing.T, path string, snap registry.Snapshot) {
	t.Helper()
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
}
