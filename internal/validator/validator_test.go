package validator

import (
	"context"
	"testing"

	"github.com/WeAreTheArtMakers/mcryptoex/internal/wire"
	"github.com/WeAreTheArtMakers/mcryptoex/pkg/logging"
)

type fakeSink struct {
	validPayload []byte
	dlqPayload   []byte
}

func (f *fakeSink) PublishValid(ctx context.Context, noteID string, payload []byte) error {
	f.validPayload = payload
	return nil
}

func (f *fakeSink) PublishDLQ(ctx context.Context, randomKey string, payload []byte) error {
	f.dlqPayload = payload
	return nil
}

func validRaw() *wire.DexTxRaw {
	return &wire.DexTxRaw{
		NoteID:             "note-1",
		CorrelationID:      "corr-1",
		ChainID:            31337,
		TxHash:             "0xabc",
		Action:             "SWAP",
		UserAddress:        "0xuser",
		PoolAddress:        "0xpool",
		TokenIn:            "WETH",
		TokenOut:           "mUSD",
		AmountIn:           "1",
		AmountOut:          "3300",
		FeeUSD:             "0",
		GasUsed:            "21000",
		GasCostUSD:         "0.01",
		ProtocolRevenueUSD: "0",
	}
}

func TestProcessValidNoteGoesToValidTopic(t *testing.T) {
	sink := &fakeSink{}
	v := New(sink, logging.Default())

	if err := v.Process(context.Background(), validRaw().Marshal()); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if sink.validPayload == nil {
		t.Fatal("expected a valid-topic publish")
	}
	if sink.dlqPayload != nil {
		t.Fatal("expected no DLQ publish")
	}

	decoded, err := wire.UnmarshalDexTxValid(sink.validPayload)
	if err != nil {
		t.Fatalf("unmarshal valid note: %v", err)
	}
	if decoded.TxID == "" {
		t.Fatal("expected a derived tx_id")
	}
	if decoded.ValidationVersion != "v1" {
		t.Fatalf("got validation_version %q", decoded.ValidationVersion)
	}
	if decoded.Raw.MinOut != "0" {
		t.Fatalf("expected empty min_out coerced to 0, got %q", decoded.Raw.MinOut)
	}
}

func TestProcessMissingRequiredFieldGoesToDLQ(t *testing.T) {
	sink := &fakeSink{}
	v := New(sink, logging.Default())

	raw := validRaw()
	raw.UserAddress = ""
	if err := v.Process(context.Background(), raw.Marshal()); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if sink.dlqPayload == nil {
		t.Fatal("expected a DLQ publish")
	}
	if sink.validPayload != nil {
		t.Fatal("expected no valid-topic publish")
	}
}

func TestProcessUnknownActionGoesToDLQ(t *testing.T) {
	sink := &fakeSink{}
	v := New(sink, logging.Default())

	raw := validRaw()
	raw.Action = "NOT_A_REAL_ACTION"
	if err := v.Process(context.Background(), raw.Marshal()); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if sink.dlqPayload == nil {
		t.Fatal("expected a DLQ publish for an unknown action")
	}
}

func TestProcessNegativeDecimalGoesToDLQ(t *testing.T) {
	sink := &fakeSink{}
	v := New(sink, logging.Default())

	raw := validRaw()
	raw.AmountIn = "-1"
	if err := v.Process(context.Background(), raw.Marshal()); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if sink.dlqPayload == nil {
		t.Fatal("expected a DLQ publish for a negative decimal")
	}
}
