// Package validator checks raw notes for structural correctness and
// derives each note's tx_id before it is allowed onto the valid topic.
package validator

import (
	"context"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/WeAreTheArtMakers/mcryptoex/internal/notes"
	"github.com/WeAreTheArtMakers/mcryptoex/internal/wire"
	"github.com/WeAreTheArtMakers/mcryptoex/pkg/logging"
)

// Sink is the narrow publish surface the validator needs from the bus.
type Sink interface {
	PublishValid(ctx context.Context, noteID string, payload []byte) error
	PublishDLQ(ctx context.Context, randomKey string, payload []byte) error
}

// Validator consumes raw-note bytes and emits valid-note bytes or DLQ
// records. It holds no state across messages; every call is independent.
type Validator struct {
	sink Sink
	log  *logging.Logger
}

func New(sink Sink, log *logging.Logger) *Validator {
	return &Validator{sink: sink, log: log}
}

// requiredStringFields lists the note fields that must be non-empty.
var requiredStringFields = []string{
	"note_id", "correlation_id", "tx_hash", "action",
	"user_address", "pool_address", "token_in", "token_out",
}

// decimalFields lists the fields that must parse as non-negative
// arbitrary-precision decimals. min_out alone coerces an empty string to 0.
var decimalFields = []string{
	"amount_in", "amount_out", "fee_usd", "gas_used",
	"gas_cost_usd", "protocol_revenue_usd", "min_out",
}

// Process validates one raw-note payload and publishes its outcome. It
// never returns an error for a malformed payload: validation failures are
// quarantined to the DLQ, not surfaced as processing errors, so the caller
// can always commit its source offset synchronously after this returns.
func (v *Validator) Process(ctx context.Context, payload []byte) error {
	raw, err := wire.UnmarshalDexTxRaw(payload)
	if err != nil {
		return v.quarantine(ctx, fmt.Sprintf("unmarshal: %v", err), payload)
	}

	fields := map[string]string{
		"note_id":        raw.NoteID,
		"correlation_id": raw.CorrelationID,
		"tx_hash":        raw.TxHash,
		"action":         raw.Action,
		"user_address":   raw.UserAddress,
		"pool_address":   raw.PoolAddress,
		"token_in":       raw.TokenIn,
		"token_out":      raw.TokenOut,
	}
	for _, name := range requiredStringFields {
		if fields[name] == "" {
			return v.quarantine(ctx, fmt.Sprintf("missing required field %q", name), payload)
		}
	}
	if raw.ChainID <= 0 {
		return v.quarantine(ctx, "chain_id must be > 0", payload)
	}
	if !notes.ValidActions[notes.Action(raw.Action)] {
		return v.quarantine(ctx, fmt.Sprintf("unknown action %q", raw.Action), payload)
	}

	decimalValues := map[string]string{
		"amount_in":            raw.AmountIn,
		"amount_out":           raw.AmountOut,
		"fee_usd":              raw.FeeUSD,
		"gas_used":             raw.GasUsed,
		"gas_cost_usd":         raw.GasCostUSD,
		"protocol_revenue_usd": raw.ProtocolRevenueUSD,
		"min_out":              raw.MinOut,
	}
	for _, name := range decimalFields {
		s := decimalValues[name]
		if s == "" {
			if name == "min_out" {
				raw.MinOut = "0"
				continue
			}
			return v.quarantine(ctx, fmt.Sprintf("missing required decimal field %q", name), payload)
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return v.quarantine(ctx, fmt.Sprintf("field %q is not a decimal: %v", name, err), payload)
		}
		if d.IsNegative() {
			return v.quarantine(ctx, fmt.Sprintf("field %q must be non-negative", name), payload)
		}
	}

	occurredAt := raw.OccurredAt
	if occurredAt.Seconds == 0 && occurredAt.Nanos == 0 {
		occurredAt = wire.TimestampFromTime(time.Now().UTC())
		raw.OccurredAt = occurredAt
	}

	txID := notes.DeriveTxID(raw.ChainID, raw.TxHash, raw.NoteID)
	valid := &wire.DexTxValid{
		Raw:               *raw,
		TxID:              txID,
		ValidationVersion: notes.ValidationVersion,
	}

	return v.sink.PublishValid(ctx, raw.NoteID, valid.Marshal())
}

func (v *Validator) quarantine(ctx context.Context, reason string, payload []byte) error {
	v.log.Warn("validation failed", "reason", reason)
	record := fmt.Sprintf(`{"error":%q,"payload_hex":%q}`, reason, hex.EncodeToString(payload))
	return v.sink.PublishDLQ(ctx, notes.RandomID(), []byte(record))
}
