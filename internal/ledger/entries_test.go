package ledger

import (
	"testing"

	"github.com/WeAreTheArtMakers/mcryptoex/internal/notes"
)

func TestDeriveEntriesSwapProducesFiveBalancedTuples(t *testing.T) {
	raw := notes.Raw{
		ChainID:            31337,
		UserAddress:        "0xUSER",
		PoolAddress:        "0xPOOL",
		Action:             notes.ActionSwap,
		TokenIn:            "WETH",
		TokenOut:           "mUSD",
		AmountIn:           "100",
		AmountOut:          "0.03",
		FeeUSD:             "0.30",
		ProtocolRevenueUSD: "0.12",
		GasCostUSD:         "0.22",
	}
	entries := DeriveEntries(raw)
	if len(entries) != 5 {
		t.Fatalf("expected 5 entry tuples, got %d: %+v", len(entries), entries)
	}
	for _, e := range entries {
		if e.DebitAccount == "" || e.CreditAccount == "" {
			t.Fatalf("entry %q missing an account: %+v", e.EntryType, e)
		}
		if e.Amount.Sign() <= 0 {
			t.Fatalf("entry %q expected a positive amount, got %s", e.EntryType, e.Amount)
		}
	}
}

func TestDeriveEntriesProtocolFeeAccruedIsANoOp(t *testing.T) {
	raw := notes.Raw{Action: notes.ActionProtocolFeeAccrued}
	if entries := DeriveEntries(raw); entries != nil {
		t.Fatalf("expected no ledger entries for PROTOCOL_FEE_ACCRUED, got %+v", entries)
	}
}

func TestDeriveEntriesLiquidityAddUsesUserToPoolAccounts(t *testing.T) {
	raw := notes.Raw{
		UserAddress: "0xUSER",
		PoolAddress: "0xPOOL",
		Action:      notes.ActionLiquidityAdd,
		TokenIn:     "WETH",
		TokenOut:    "mUSD",
		AmountIn:    "1",
		AmountOut:   "3300",
		GasCostUSD:  "0.05",
	}
	entries := DeriveEntries(raw)
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].DebitAccount != "user:0xuser" || entries[0].CreditAccount != "pool:0xpool" {
		t.Fatalf("unexpected accounts on first entry: %+v", entries[0])
	}
}
