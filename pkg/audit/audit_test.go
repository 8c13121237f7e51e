// Copyright 2025 Ledgerflow Authors
//
// Exercises Client against a real Postgres instance when one is
// configured; otherwise skipped, mirroring how the database tests in
// this codebase's lineage gate on an env-provided test DSN.

package audit

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/ledgerflow/txengine/pkg/types"
)

func testClient(t *testing.T) *Client {
	t.Helper()
	dsn := os.Getenv("TXENGINE_TEST_AUDIT_DSN")
	if dsn == "" {
		t.Skip("TXENGINE_TEST_AUDIT_DSN not configured; skipping audit integration test")
	}
	c, err := NewClient(context.Background(), dsn)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.EnsureSchema(context.Background()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestRecordAndGetRoundTrip(t *testing.T) {
	c := testClient(t)
	ctx := context.Background()

	txID := types.TransactionID{Payer: types.AccountID{Num: 100}, ValidStart: time.Now().UTC()}
	rec := types.NewTransactionRecord(txID, time.Now().UTC(), types.Receipt{Status: types.OK}, "memo", 5)

	if err := c.Record(ctx, rec); err != nil {
		t.Fatal(err)
	}
	got, err := c.Get(ctx, txID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Receipt.Status != types.OK {
		t.Errorf("expected OK, got %s", got.Receipt.Status)
	}
	if got.Memo != "memo" {
		t.Errorf("expected memo to round-trip, got %q", got.Memo)
	}
}

func TestGetMissingRecordReturnsSentinel(t *testing.T) {
	c := testClient(t)
	_, err := c.Get(context.Background(), types.TransactionID{Payer: types.AccountID{Num: 999999}, ValidStart: time.Now()})
	if err != ErrRecordNotFound {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestNilClientRecordIsNoOp(t *testing.T) {
	var c *Client
	if err := c.Record(context.Background(), types.TransactionRecord{}); err != nil {
		t.Errorf("expected nil-client Record to be a no-op, got %v", err)
	}
	if _, err := c.Get(context.Background(), types.TransactionID{}); err != ErrRecordNotFound {
		t.Errorf("expected nil-client Get to report ErrRecordNotFound, got %v", err)
	}
}
