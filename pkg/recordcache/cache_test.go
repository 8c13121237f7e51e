// Copyright 2025 Ledgerflow Authors

package recordcache

import (
	"testing"
	"time"

	"github.com/ledgerflow/txengine/pkg/types"
)

func rec(payer types.AccountID, nonce uint32) types.TransactionRecord {
	id := types.TransactionID{Payer: payer, ValidStart: time.Now(), Nonce: nonce}
	return types.NewTransactionRecord(id, time.Now(), types.Receipt{Status: types.OK}, "", 0)
}

func TestAddAndGet(t *testing.T) {
	c := New(2)
	payer := types.AccountID{Num: 100}
	r := rec(payer, 0)
	c.Add(payer, r)

	got, ok := c.Get(r.TxID)
	if !ok {
		t.Fatal("expected record to be retrievable")
	}
	if got.TxID.Nonce != r.TxID.Nonce {
		t.Error("retrieved record mismatch")
	}
}

func TestPerPayerEvictsEldest(t *testing.T) {
	c := New(2)
	payer := types.AccountID{Num: 100}
	r1 := rec(payer, 1)
	r2 := rec(payer, 2)
	r3 := rec(payer, 3)
	c.Add(payer, r1)
	c.Add(payer, r2)
	c.Add(payer, r3)

	if _, ok := c.Get(r1.TxID); ok {
		t.Error("eldest record should have been evicted")
	}
	records := c.RecordsFor(payer)
	if len(records) != 2 {
		t.Fatalf("expected 2 records after eviction, got %d", len(records))
	}
}

func TestRecordsForIsolatesPayers(t *testing.T) {
	c := New(5)
	a := types.AccountID{Num: 1}
	b := types.AccountID{Num: 2}
	c.Add(a, rec(a, 1))
	c.Add(b, rec(b, 1))

	if len(c.RecordsFor(a)) != 1 || len(c.RecordsFor(b)) != 1 {
		t.Error("payers' records must not leak into each other")
	}
}
