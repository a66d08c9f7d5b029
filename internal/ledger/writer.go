package ledger

import (
	"context"
	"fmt"

	"github.com/WeAreTheArtMakers/mcryptoex/internal/notes"
	"github.com/WeAreTheArtMakers/mcryptoex/internal/wire"
	"github.com/WeAreTheArtMakers/mcryptoex/pkg/logging"
)

// IngestResult is the outcome of writing one valid note's transaction and
// ledger rows, decoupled from the concrete Postgres type so this package
// does not import internal/store directly.
type IngestResult struct {
	Inserted bool
	TxID     string
	Entries  []Entry
	Payload  string
}

// TransactionalStore is the durable side of the writer: one DB transaction
// per note.
type TransactionalStore interface {
	Ingest(ctx context.Context, valid notes.Valid) (IngestResult, error)
}

// Bus is the best-effort, post-commit publish surface: the ledger-entry
// batch proto and the outbox payload.
type Bus interface {
	PublishLedgerEntries(ctx context.Context, key string, payload []byte) error
	PublishOutbox(ctx context.Context, key string, payload []byte) error
}

// OLAP records one row per newly-ingested transaction into the analytics
// store, best-effort and outside the Postgres transaction.
type OLAP interface {
	InsertRawTransaction(ctx context.Context, valid notes.Valid) error
}

// Writer consumes valid notes and performs full
// ingest: transactional insert, then best-effort post-commit publishes.
type Writer struct {
	store TransactionalStore
	bus   Bus
	olap  OLAP
	log   *logging.Logger
}

func NewWriter(store TransactionalStore, bus Bus, olap OLAP, log *logging.Logger) *Writer {
	return &Writer{store: store, bus: bus, olap: olap, log: log}
}

// Process ingests one valid-note payload. It returns an error only when a
// step that must happen before the caller may commit its Kafka offset
// fails (the transactional insert, or any of the post-commit publishes).
// The caller should commit its offset synchronously only once this
// returns nil.
func (w *Writer) Process(ctx context.Context, payload []byte) error {
	decoded, err := wire.UnmarshalDexTxValid(payload)
	if err != nil {
		return fmt.Errorf("unmarshal valid note: %w", err)
	}
	valid := notes.Valid{
		Raw:               rawFromWire(decoded.Raw),
		TxID:              decoded.TxID,
		ValidationVersion: decoded.ValidationVersion,
	}

	result, err := w.store.Ingest(ctx, valid)
	if err != nil {
		return fmt.Errorf("ingest: %w", err)
	}
	if !result.Inserted {
		// Duplicate note_id: the idempotency guard already short-circuited
		// every downstream side effect, so there is nothing left to do.
		w.log.Debug("duplicate note ignored", "note_id", valid.NoteID)
		return nil
	}

	batch := entryBatchToWire(valid, result.Entries)
	if err := w.bus.PublishLedgerEntries(ctx, valid.NoteID, batch.Marshal()); err != nil {
		return fmt.Errorf("publish ledger entries: %w", err)
	}
	if err := w.bus.PublishOutbox(ctx, valid.NoteID, []byte(result.Payload)); err != nil {
		return fmt.Errorf("publish outbox: %w", err)
	}
	if err := w.olap.InsertRawTransaction(ctx, valid); err != nil {
		return fmt.Errorf("olap insert: %w", err)
	}

	return nil
}

func rawFromWire(r wire.DexTxRaw) notes.Raw {
	return notes.Raw{
		NoteID:             r.NoteID,
		CorrelationID:      r.CorrelationID,
		ChainID:            r.ChainID,
		TxHash:             r.TxHash,
		BlockNumber:        r.BlockNumber,
		PoolAddress:        r.PoolAddress,
		UserAddress:        r.UserAddress,
		Action:             notes.Action(r.Action),
		TokenIn:            r.TokenIn,
		TokenOut:           r.TokenOut,
		AmountIn:           r.AmountIn,
		AmountOut:          r.AmountOut,
		FeeUSD:             r.FeeUSD,
		GasUsed:            r.GasUsed,
		GasCostUSD:         r.GasCostUSD,
		ProtocolRevenueUSD: r.ProtocolRevenueUSD,
		MinOut:             r.MinOut,
		OccurredAt:         r.OccurredAt.Time(),
		Source:             r.Source,
	}
}

func entryBatchToWire(valid notes.Valid, entries []Entry) *wire.DexLedgerEntryBatch {
	items := make([]wire.LedgerEntryItem, 0, len(entries)*2)
	for _, e := range entries {
		items = append(items,
			wire.LedgerEntryItem{
				EntryType:     e.EntryType,
				DebitAccount:  e.DebitAccount,
				CreditAccount: e.CreditAccount,
				Asset:         e.Asset,
				Amount:        e.Amount.String(),
			},
		)
	}
	return &wire.DexLedgerEntryBatch{
		BatchID:       notes.RandomID(),
		TxID:          valid.TxID,
		NoteID:        valid.NoteID,
		CorrelationID: valid.CorrelationID,
		ChainID:       valid.ChainID,
		TxHash:        valid.TxHash,
		CreatedAt:     wire.TimestampFromTime(valid.OccurredAt),
		Entries:       items,
	}
}
