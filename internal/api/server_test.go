package api

import (
	"testing"
	"time"

	"github.com/WeAreTheArtMakers/mcryptoex/internal/olap"
	"github.com/WeAreTheArtMakers/mcryptoex/internal/store"
)

func TestToPairRow(t *testing.T) {
	row := store.PairRow{
		ChainID:      11155111,
		PairAddress:  "0xPool",
		Token0Symbol: "mUSD",
		Token1Symbol: "wBTC",
		SwapCount:    42,
	}
	got := toPairRow(row, true)
	if got.ChainID != row.ChainID || got.PairAddress != row.PairAddress ||
		got.Token0Symbol != row.Token0Symbol || got.Token1Symbol != row.Token1Symbol ||
		got.SwapCount != row.SwapCount || !got.Canonical {
		t.Fatalf("toPairRow dropped or mismatched a field: %+v", got)
	}
}

func TestToLedgerRowFormatsTimestampAsUTCRFC3339(t *testing.T) {
	occurred := time.Date(2026, 1, 2, 3, 4, 5, 0, time.FixedZone("EST", -5*60*60))
	row := store.LedgerRow{
		TxID:       "tx-1",
		NoteID:     "note-1",
		ChainID:    97,
		AccountID:  "pool:0xabc",
		Side:       "DEBIT",
		Asset:      "mUSD",
		Amount:     "10.5",
		EntryType:  "SWAP",
		OccurredAt: occurred,
	}
	got := toLedgerRow(row)
	want := occurred.UTC().Format(time.RFC3339)
	if got.OccurredAt != want {
		t.Fatalf("OccurredAt = %s, want %s", got.OccurredAt, want)
	}
	if got.TxID != row.TxID || got.Amount != row.Amount {
		t.Fatalf("toLedgerRow dropped a field: %+v", got)
	}
}

func TestToAnalyticsBucket(t *testing.T) {
	b := olap.Bucket{BucketStart: "2026-01-02T03:00:00Z", Action: "SWAP", Count: 7, VolumeUSD: "1234.56"}
	got := toAnalyticsBucket(b)
	if got.BucketStart != b.BucketStart || got.Action != b.Action || got.Count != b.Count || got.VolumeUSD != b.VolumeUSD {
		t.Fatalf("toAnalyticsBucket mismatch: %+v", got)
	}
}

func TestParsePositiveInt64(t *testing.T) {
	if _, err := parsePositiveInt64("0"); err == nil {
		t.Fatal("expected error for zero")
	}
	if _, err := parsePositiveInt64("-5"); err == nil {
		t.Fatal("expected error for negative")
	}
	if _, err := parsePositiveInt64("abc"); err == nil {
		t.Fatal("expected error for non-numeric")
	}
	v, err := parsePositiveInt64("42")
	if err != nil || v != 42 {
		t.Fatalf("parsePositiveInt64(42) = %d, %v", v, err)
	}
}

func TestParsePositiveDecimal(t *testing.T) {
	if _, err := parsePositiveDecimal("0"); err == nil {
		t.Fatal("expected error for zero")
	}
	if _, err := parsePositiveDecimal("-1.5"); err == nil {
		t.Fatal("expected error for negative")
	}
	if _, err := parsePositiveDecimal("not-a-number"); err == nil {
		t.Fatal("expected error for non-numeric")
	}
	v, err := parsePositiveDecimal("1.5")
	if err != nil || v.String() != "1.5" {
		t.Fatalf("parsePositiveDecimal(1.5) = %s, %v", v.String(), err)
	}
}

func TestLowerAddress(t *testing.T) {
	if got := lowerAddress("0xABCdef"); got != "0xabcdef" {
		t.Fatalf("lowerAddress = %s, want 0xabcdef", got)
	}
}
