// Package olap wraps the ClickHouse analytics store: raw-transaction
// inserts from the ledger writer, and time-bucketed reads for the
// /analytics endpoint. OLAP is a degraded-mode dependency; it being
// unreachable at startup must not fail startup.
package olap

import (
	"context"
	"fmt"
	"sync"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/WeAreTheArtMakers/mcryptoex/internal/config"
	"github.com/WeAreTheArtMakers/mcryptoex/internal/notes"
	"github.com/WeAreTheArtMakers/mcryptoex/pkg/logging"
)

// Client lazily (re)connects to ClickHouse: a transient failure nulls the
// underlying connection so the next call attempts a fresh connect, rather
// than wedging the process in a permanently-broken state.
type Client struct {
	mu   sync.Mutex
	opts *clickhouse.Options
	conn driver.Conn
	log  *logging.Logger
}

func New(infra config.Infra, log *logging.Logger) *Client {
	return &Client{
		opts: &clickhouse.Options{
			Addr: []string{fmt.Sprintf("%s:%d", infra.ClickHouseHost, infra.ClickHousePort)},
			Auth: clickhouse.Auth{
				Database: infra.ClickHouseDatabase,
				Username: infra.ClickHouseUsername,
				Password: infra.ClickHousePassword,
			},
		},
		log: log,
	}
}

// connect returns the live connection, establishing one if the client has
// none cached. Startup never fails here: a connect failure is returned to
// the caller as an upstream error, and the client stays nil for a later
// retry
func (c *Client) connect(ctx context.Context) (driver.Conn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		if err := c.conn.Ping(ctx); err == nil {
			return c.conn, nil
		}
		c.conn = nil
	}

	conn, err := clickhouse.Open(c.opts)
	if err != nil {
		return nil, err
	}
	if err := conn.Ping(ctx); err != nil {
		return nil, err
	}
	c.conn = conn
	return conn, nil
}

// Ready reports whether a SELECT 1 succeeds, for /health/ready.
func (c *Client) Ready(ctx context.Context) bool {
	conn, err := c.connect(ctx)
	if err != nil {
		return false
	}
	return conn.Exec(ctx, "SELECT 1") == nil
}

func (c *Client) initSchema(ctx context.Context, conn driver.Conn) error {
	return conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS dex_raw_transactions (
			tx_id String,
			note_id String,
			chain_id Int64,
			tx_hash String,
			action String,
			token_in String,
			token_out String,
			amount_in String,
			amount_out String,
			fee_usd String,
			gas_cost_usd String,
			protocol_revenue_usd String,
			occurred_at DateTime
		) ENGINE = MergeTree() ORDER BY (chain_id, occurred_at)
	`)
}

// InsertRawTransaction appends one row for a newly-ingested note, best
// effort and outside the Postgres transaction
func (c *Client) InsertRawTransaction(ctx context.Context, valid notes.Valid) error {
	conn, err := c.connect(ctx)
	if err != nil {
		return fmt.Errorf("clickhouse connect: %w", err)
	}
	if err := c.initSchema(ctx, conn); err != nil {
		c.invalidate()
		return fmt.Errorf("clickhouse init schema: %w", err)
	}

	batch, err := conn.PrepareBatch(ctx, "INSERT INTO dex_raw_transactions")
	if err != nil {
		c.invalidate()
		return fmt.Errorf("clickhouse prepare batch: %w", err)
	}
	if err := batch.Append(
		valid.TxID, valid.NoteID, valid.ChainID, valid.TxHash, string(valid.Action),
		valid.TokenIn, valid.TokenOut, valid.AmountIn, valid.AmountOut,
		valid.FeeUSD, valid.GasCostUSD, valid.ProtocolRevenueUSD, valid.OccurredAt,
	); err != nil {
		c.invalidate()
		return fmt.Errorf("clickhouse append row: %w", err)
	}
	if err := batch.Send(); err != nil {
		c.invalidate()
		return fmt.Errorf("clickhouse send batch: %w", err)
	}
	return nil
}

// invalidate forces the next call to reconnect, per the transient-failure
// handling requires.
func (c *Client) invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn = nil
}

// Bucket is one time-bucketed aggregate row for /analytics.
type Bucket struct {
	BucketStart string
	Action      string
	Count       uint64
	VolumeUSD   string
}

// RecentBuckets queries per-minute, per-action transaction counts and summed
// amount_in over the trailing window (every action, not only swaps);
// callers degrade to a warning payload on error rather than
// failing the request.
func (c *Client) RecentBuckets(ctx context.Context, minutes int) ([]Bucket, error) {
	conn, err := c.connect(ctx)
	if err != nil {
		return nil, fmt.Errorf("clickhouse connect: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT toStartOfMinute(occurred_at) AS bucket_start, action, count() AS c,
		       sum(toFloat64OrZero(amount_in)) AS volume
		FROM dex_raw_transactions
		WHERE occurred_at >= now() - INTERVAL %d MINUTE
		GROUP BY bucket_start, action
		ORDER BY bucket_start DESC
	`, minutes)
	rows, err := conn.Query(ctx, query)
	if err != nil {
		c.invalidate()
		return nil, fmt.Errorf("clickhouse query: %w", err)
	}
	defer rows.Close()

	var out []Bucket
	for rows.Next() {
		var (
			bucketStart string
			action      string
			count       uint64
			volume      float64
		)
		if err := rows.Scan(&bucketStart, &action, &count, &volume); err != nil {
			return nil, fmt.Errorf("clickhouse scan row: %w", err)
		}
		out = append(out, Bucket{
			BucketStart: bucketStart,
			Action:      action,
			Count:       count,
			VolumeUSD:   fmt.Sprintf("%.2f", volume),
		})
	}
	return out, rows.Err()
}
