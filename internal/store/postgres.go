// Package store provides the transactional Postgres persistence layer for
// ingested DEX transactions and their ledger entries. The pool/schema/
// lifecycle shape (Config/New/Close/DB, embedded-SQL initSchema) carries
// over from a prior SQLite-backed version, generalized to Postgres via pgx.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/WeAreTheArtMakers/mcryptoex/internal/ledger"
	"github.com/WeAreTheArtMakers/mcryptoex/internal/notes"
)

// Store is the transactional side of the ledger writer: Postgres only,
// written to inside a single commit per note.
type Store struct {
	pool *pgxpool.Pool
}

// Config holds the store's connection configuration.
type Config struct {
	DSN         string
	MinConns    int32
	MaxConns    int32
}

// New opens a pooled connection to Postgres and ensures the schema exists.
func New(ctx context.Context, cfg Config) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	} else {
		poolCfg.MinConns = 1
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	} else {
		poolCfg.MaxConns = 10
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := &Store{pool: pool}
	if err := s.initSchema(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return s, nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Pool returns the underlying pgx pool, for components (e.g. the API's
// read-only endpoints) that issue their own plain queries.
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

func (s *Store) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS dex_transactions (
		tx_id            TEXT PRIMARY KEY,
		note_id          TEXT NOT NULL UNIQUE,
		chain_id         BIGINT NOT NULL,
		tx_hash          TEXT NOT NULL,
		action           TEXT NOT NULL,
		pool_address     TEXT NOT NULL,
		user_address     TEXT NOT NULL,
		token_in         TEXT NOT NULL,
		token_out        TEXT NOT NULL,
		amount_in        NUMERIC NOT NULL,
		amount_out       NUMERIC NOT NULL,
		fee_usd          NUMERIC NOT NULL DEFAULT 0,
		gas_cost_usd     NUMERIC NOT NULL DEFAULT 0,
		protocol_revenue_usd NUMERIC NOT NULL DEFAULT 0,
		occurred_at      TIMESTAMPTZ NOT NULL,
		created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE INDEX IF NOT EXISTS idx_dex_transactions_chain_occurred
		ON dex_transactions(chain_id, occurred_at DESC);

	CREATE TABLE IF NOT EXISTS dex_ledger_entries (
		entry_id              BIGSERIAL PRIMARY KEY,
		tx_id                  TEXT NOT NULL,
		note_id                TEXT NOT NULL,
		chain_id               BIGINT NOT NULL,
		tx_hash                TEXT NOT NULL,
		account_id             TEXT NOT NULL,
		side                   TEXT NOT NULL CHECK (side IN ('debit','credit')),
		asset                  TEXT NOT NULL,
		amount                 NUMERIC NOT NULL CHECK (amount >= 0),
		entry_type             TEXT NOT NULL,
		fee_usd                NUMERIC NOT NULL DEFAULT 0,
		gas_cost_usd           NUMERIC NOT NULL DEFAULT 0,
		protocol_revenue_usd   NUMERIC NOT NULL DEFAULT 0,
		pool_address           TEXT NOT NULL,
		occurred_at            TIMESTAMPTZ NOT NULL,
		created_at             TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE INDEX IF NOT EXISTS idx_dex_ledger_entries_tx ON dex_ledger_entries(tx_id);
	CREATE INDEX IF NOT EXISTS idx_dex_ledger_entries_account ON dex_ledger_entries(account_id, occurred_at DESC);

	CREATE TABLE IF NOT EXISTS dex_outbox (
		id            BIGSERIAL PRIMARY KEY,
		tx_id         TEXT NOT NULL,
		event_type    TEXT NOT NULL,
		payload_json  TEXT NOT NULL,
		published     BOOLEAN NOT NULL DEFAULT false,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE INDEX IF NOT EXISTS idx_dex_outbox_unpublished ON dex_outbox(published) WHERE NOT published;
	`
	_, err := s.pool.Exec(ctx, schema)
	return err
}

// Ingest performs the durable-write transactional boundary: insert the
// transaction row with ON CONFLICT (note_id) DO NOTHING RETURNING tx_id; if
// a row came back, bulk-insert the derived ledger entries and one outbox
// row, all inside the same transaction.
func (s *Store) Ingest(ctx context.Context, valid notes.Valid) (ledger.IngestResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return ledger.IngestResult{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var txID string
	err = tx.QueryRow(ctx, `
		INSERT INTO dex_transactions
			(tx_id, note_id, chain_id, tx_hash, action, pool_address, user_address,
			 token_in, token_out, amount_in, amount_out, fee_usd, gas_cost_usd,
			 protocol_revenue_usd, occurred_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
		ON CONFLICT (note_id) DO NOTHING
		RETURNING tx_id
	`, valid.TxID, valid.NoteID, valid.ChainID, valid.TxHash, string(valid.Action),
		valid.PoolAddress, valid.UserAddress, valid.TokenIn, valid.TokenOut,
		valid.AmountIn, valid.AmountOut, valid.FeeUSD, valid.GasCostUSD,
		valid.ProtocolRevenueUSD, valid.OccurredAt).Scan(&txID)

	if err != nil {
		if err == pgx.ErrNoRows {
			// Duplicate note_id: already ingested, no side effects.
			return ledger.IngestResult{Inserted: false}, tx.Commit(ctx)
		}
		return ledger.IngestResult{}, fmt.Errorf("insert transaction: %w", err)
	}

	entries := ledger.DeriveEntries(valid.Raw)
	var kept []ledger.Entry
	for _, e := range entries {
		if e.Amount.Sign() <= 0 {
			continue
		}
		kept = append(kept, e)
		for _, side := range []string{"debit", "credit"} {
			account := e.DebitAccount
			if side == "credit" {
				account = e.CreditAccount
			}
			_, err := tx.Exec(ctx, `
				INSERT INTO dex_ledger_entries
					(tx_id, note_id, chain_id, tx_hash, account_id, side, asset, amount,
					 entry_type, fee_usd, gas_cost_usd, protocol_revenue_usd, pool_address, occurred_at)
				VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
			`, txID, valid.NoteID, valid.ChainID, valid.TxHash, account, side, e.Asset, e.Amount.String(),
				e.EntryType, valid.FeeUSD, valid.GasCostUSD, valid.ProtocolRevenueUSD,
				valid.PoolAddress, valid.OccurredAt)
			if err != nil {
				return ledger.IngestResult{}, fmt.Errorf("insert ledger entry %s/%s: %w", e.EntryType, side, err)
			}
		}
	}

	payload := outboxPayload(valid)
	if _, err := tx.Exec(ctx, `
		INSERT INTO dex_outbox (tx_id, event_type, payload_json, published)
		VALUES ($1, $2, $3, false)
	`, txID, outboxEventType, payload); err != nil {
		return ledger.IngestResult{}, fmt.Errorf("insert outbox row: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return ledger.IngestResult{}, fmt.Errorf("commit: %w", err)
	}

	return ledger.IngestResult{Inserted: true, TxID: txID, Entries: kept, Payload: payload}, nil
}

// Ready reports whether a trivial query succeeds, for /health/ready.
func (s *Store) Ready(ctx context.Context) bool {
	var one int
	return s.pool.QueryRow(ctx, "SELECT 1").Scan(&one) == nil
}

// PairRow is one aggregated row of swap activity for a pool, consumed by
// the API's /pairs endpoint.
type PairRow struct {
	ChainID      int64
	PairAddress  string
	Token0Symbol string
	Token1Symbol string
	SwapCount    int64
}

// RecentPairs aggregates swap counts per pool from the ingested ledger,
// most active first. Canonical selection against the on-chain registry
// happens in the caller, which has the registry snapshot; this query only
// reports what has actually traded.
func (s *Store) RecentPairs(ctx context.Context, chainID *int64, limit int) ([]PairRow, error) {
	query := `
		SELECT chain_id, pool_address, token_in, token_out, count(*) AS swap_count
		FROM dex_transactions
		WHERE action = 'SWAP' AND ($1::bigint IS NULL OR chain_id = $1)
		GROUP BY chain_id, pool_address, token_in, token_out
		ORDER BY swap_count DESC
		LIMIT $2
	`
	var chainArg any
	if chainID != nil {
		chainArg = *chainID
	}
	rows, err := s.pool.Query(ctx, query, chainArg, limit)
	if err != nil {
		return nil, fmt.Errorf("query pairs: %w", err)
	}
	defer rows.Close()

	var out []PairRow
	for rows.Next() {
		var r PairRow
		if err := rows.Scan(&r.ChainID, &r.PairAddress, &r.Token0Symbol, &r.Token1Symbol, &r.SwapCount); err != nil {
			return nil, fmt.Errorf("scan pair row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// LedgerRow is one row of the /ledger/recent endpoint.
type LedgerRow struct {
	TxID       string
	NoteID     string
	ChainID    int64
	AccountID  string
	Side       string
	Asset      string
	Amount     string
	EntryType  string
	OccurredAt time.Time
}

// RecentLedgerEntries returns the most recent ledger rows, optionally
// filtered by chain and entry type.
func (s *Store) RecentLedgerEntries(ctx context.Context, chainID *int64, entryType string, limit int) ([]LedgerRow, error) {
	query := `
		SELECT tx_id, note_id, chain_id, account_id, side, asset, amount, entry_type, occurred_at
		FROM dex_ledger_entries
		WHERE ($1::bigint IS NULL OR chain_id = $1)
		  AND ($2 = '' OR entry_type = $2)
		ORDER BY occurred_at DESC, entry_id DESC
		LIMIT $3
	`
	var chainArg any
	if chainID != nil {
		chainArg = *chainID
	}
	rows, err := s.pool.Query(ctx, query, chainArg, entryType, limit)
	if err != nil {
		return nil, fmt.Errorf("query ledger entries: %w", err)
	}
	defer rows.Close()

	var out []LedgerRow
	for rows.Next() {
		var r LedgerRow
		if err := rows.Scan(&r.TxID, &r.NoteID, &r.ChainID, &r.AccountID, &r.Side, &r.Asset, &r.Amount, &r.EntryType, &r.OccurredAt); err != nil {
			return nil, fmt.Errorf("scan ledger row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// outboxEventType is the event_type stamped on every dex_outbox record.
const outboxEventType = "dex.note.ingested"

func outboxPayload(valid notes.Valid) string {
	return fmt.Sprintf(
		`{"event_type":%q,"tx_id":%q,"note_id":%q,"chain_id":%d,"tx_hash":%q,"action":%q,"occurred_at":%q}`,
		outboxEventType, valid.TxID, valid.NoteID, valid.ChainID, valid.TxHash, valid.Action,
		valid.OccurredAt.Format(time.RFC3339),
	)
}
