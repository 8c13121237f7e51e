// Copyright 2025 Ledgerflow Authors
//
// Package audit is an optional, off-by-default durable mirror of
// committed TransactionRecords (spec.md §6 "Persisted state
// (informational)": the engine itself stores nothing durable, but a
// host application may want a queryable trail beyond the process-
// lifetime record cache). Grounded in the teacher's pkg/database
// client/repository idiom: a functional-option *sql.DB wrapper over
// lib/pq, with sentinel not-found errors instead of bare nil returns.
package audit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	_ "github.com/lib/pq"

	"github.com/ledgerflow/txengine/pkg/types"
)

// ErrRecordNotFound is returned by Get when no record exists for the
// given transaction id.
var ErrRecordNotFound = errors.New("audit: record not found")

// Client is a connection-pooled mirror of handled TransactionRecords.
// A nil *Client is a valid no-op sink: Record on a nil Client
// silently does nothing, so wiring audit is opt-in at construction
// time only.
type Client struct {
	db     *sql.DB
	logger *log.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithLogger overrides the client's default logger.
func WithLogger(logger *log.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// NewClient opens a pooled Postgres connection and verifies it with a
// ping. dsn is a standard lib/pq connection string.
func NewClient(ctx context.Context, dsn string, opts ...Option) (*Client, error) {
	if dsn == "" {
		return nil, fmt.Errorf("audit: dsn cannot be empty")
	}
	c := &Client{logger: log.New(log.Writer(), "[audit] ", log.LstdFlags)}
	for _, opt := range opts {
		opt(c)
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("audit: open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)
	c.db = db

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("audit: ping: %w", err)
	}

	c.logger.Printf("connected to audit store")
	return c, nil
}

// Close releases the underlying connection pool.
func (c *Client) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// EnsureSchema creates the records table if absent. Safe to call on
// every startup.
func (c *Client) EnsureSchema(ctx context.Context) error {
	if c == nil {
		return nil
	}
	_, err := c.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS transaction_records (
			payer_shard BIGINT NOT NULL,
			payer_realm BIGINT NOT NULL,
			payer_num BIGINT NOT NULL,
			valid_start BIGINT NOT NULL,
			nonce INTEGER NOT NULL,
			consensus_timestamp TIMESTAMPTZ NOT NULL,
			status TEXT NOT NULL,
			memo TEXT NOT NULL,
			transaction_fee BIGINT NOT NULL,
			PRIMARY KEY (payer_shard, payer_realm, payer_num, valid_start, nonce)
		)`)
	if err != nil {
		return fmt.Errorf("audit: ensure schema: %w", err)
	}
	return nil
}

// Record mirrors one TransactionRecord into the audit table, upserting
// on the transaction id's natural key so a replayed record (spec.md §6
// "reconstructed from replay of the block stream on restart") is
// idempotent rather than duplicated.
func (c *Client) Record(ctx context.Context, rec types.TransactionRecord) error {
	if c == nil {
		return nil
	}
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO transaction_records (
			payer_shard, payer_realm, payer_num, valid_start, nonce,
			consensus_timestamp, status, memo, transaction_fee
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (payer_shard, payer_realm, payer_num, valid_start, nonce)
		DO UPDATE SET consensus_timestamp = EXCLUDED.consensus_timestamp,
			status = EXCLUDED.status, memo = EXCLUDED.memo,
			transaction_fee = EXCLUDED.transaction_fee`,
		rec.TxID.Payer.Shard, rec.TxID.Payer.Realm, rec.TxID.Payer.Num,
		rec.TxID.ValidStart.UnixNano(), rec.TxID.Nonce,
		rec.ConsensusTimestamp, rec.Receipt.Status, rec.Memo, rec.TransactionFee,
	)
	if err != nil {
		return fmt.Errorf("audit: record: %w", err)
	}
	return nil
}

// Get retrieves a previously mirrored record by transaction id.
func (c *Client) Get(ctx context.Context, id types.TransactionID) (types.TransactionRecord, error) {
	if c == nil {
		return types.TransactionRecord{}, ErrRecordNotFound
	}
	var rec types.TransactionRecord
	rec.TxID = id
	var status types.ResponseCode
	err := c.db.QueryRowContext(ctx, `
		SELECT consensus_timestamp, status, memo, transaction_fee
		FROM transaction_records
		WHERE payer_shard = $1 AND payer_realm = $2 AND payer_num = $3
			AND valid_start = $4 AND nonce = $5`,
		id.Payer.Shard, id.Payer.Realm, id.Payer.Num, id.ValidStart.UnixNano(), id.Nonce,
	).Scan(&rec.ConsensusTimestamp, &status, &rec.Memo, &rec.TransactionFee)
	if err == sql.ErrNoRows {
		return types.TransactionRecord{}, ErrRecordNotFound
	}
	if err != nil {
		return types.TransactionRecord{}, fmt.Errorf("audit: get: %w", err)
	}
	rec.Receipt = types.Receipt{Status: status}
	return rec, nil
}
