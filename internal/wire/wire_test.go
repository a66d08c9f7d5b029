package wire

import (
	"testing"
	"time"
)

func mustParseRFC3339(t *testing.T, s string) time.Time {
	t.Helper()
	tm, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t.Fatalf("parse time %q: %v", s, err)
	}
	return tm
}

func TestDexTxRawRoundTrip(t *testing.T) {
	want := &DexTxRaw{
		NoteID:        "note-1",
		CorrelationID: "corr-1",
		ChainID:       31337,
		TxHash:        "0xabc",
		BlockNumber:   42,
		PoolAddress:   "0xpool",
		UserAddress:   "0xuser",
		Action:        "SWAP",
		TokenIn:       "mUSD",
		TokenOut:      "WETH",
		AmountIn:      "100.0",
		AmountOut:     "0.03",
		FeeUSD:        "0.30",
		GasUsed:       "117104",
		GasCostUSD:    "0.22",
		MinOut:        "0.0297",
		OccurredAt:    TimestampFromTime(mustParseRFC3339(t, "2026-01-01T00:00:00Z")),
		Source:        "chain-indexer",
	}

	got, err := UnmarshalDexTxRaw(want.Marshal())
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if *got != *want {
		t.Fatalf("round trip mismatch:\n got=%+v\nwant=%+v", got, want)
	}
}

func TestDexTxValidRoundTrip(t *testing.T) {
	want := &DexTxValid{
		Raw:               DexTxRaw{NoteID: "note-1", ChainID: 1, Action: "SWAP"},
		TxID:              "tx-1",
		ValidationVersion: "v1",
	}
	got, err := UnmarshalDexTxValid(want.Marshal())
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.TxID != want.TxID || got.ValidationVersion != want.ValidationVersion || got.Raw.NoteID != want.Raw.NoteID {
		t.Fatalf("round trip mismatch: got=%+v want=%+v", got, want)
	}
}

func TestDexLedgerEntryBatchRoundTrip(t *testing.T) {
	want := &DexLedgerEntryBatch{
		BatchID:       "batch-1",
		TxID:          "tx-1",
		NoteID:        "note-1",
		CorrelationID: "corr-1",
		ChainID:       31337,
		TxHash:        "0xabc",
		CreatedAt:     TimestampFromTime(mustParseRFC3339(t, "2026-01-01T00:00:00Z")),
		Entries: []LedgerEntryItem{
			{EntryType: "swap_notional_in", DebitAccount: "user:0xuser", CreditAccount: "pool:0xpool", Asset: "mUSD", Amount: "100.0"},
			{EntryType: "swap_notional_out", DebitAccount: "pool:0xpool", CreditAccount: "user:0xuser", Asset: "WETH", Amount: "0.03"},
		},
	}

	got, err := UnmarshalDexLedgerEntryBatch(want.Marshal())
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(got.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got.Entries))
	}
	if got.Entries[0] != want.Entries[0] || got.Entries[1] != want.Entries[1] {
		t.Fatalf("entry mismatch: got=%+v want=%+v", got.Entries, want.Entries)
	}
	if got.BatchID != want.BatchID || got.ChainID != want.ChainID {
		t.Fatalf("batch header mismatch: got=%+v want=%+v", got, want)
	}
}
