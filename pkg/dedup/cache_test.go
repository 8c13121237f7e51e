// Copyright 2025 Ledgerflow Authors

package dedup

import (
	"sync"
	"testing"
	"time"

	"github.com/ledgerflow/txengine/pkg/types"
)

func txID(payerNum uint64, validStart time.Time, nonce uint32) types.TransactionID {
	return types.TransactionID{Payer: types.AccountID{Shard: 0, Realm: 0, Num: payerNum}, ValidStart: validStart, Nonce: nonce}
}

func TestAddIsIdempotent(t *testing.T) {
	c := New(time.Minute)
	id := txID(1, time.Now(), 0)
	c.Add(id)
	c.Add(id)
	if c.Len() != 1 {
		t.Fatalf("expected 1 entry after duplicate adds, got %d", c.Len())
	}
	if !c.Contains(id) {
		t.Error("expected Contains to report true after Add")
	}
}

func TestPurgeEvictsExpired(t *testing.T) {
	c := New(time.Minute)
	old := txID(1, time.Now().Add(-2*time.Minute), 0)
	fresh := txID(2, time.Now(), 0)
	c.Add(old)
	c.Add(fresh)

	purged := c.Purge(time.Now())
	if purged != 1 {
		t.Fatalf("expected exactly 1 purged entry, got %d", purged)
	}
	if c.Contains(old) {
		t.Error("expired entry should have been purged")
	}
	if !c.Contains(fresh) {
		t.Error("fresh entry should survive purge")
	}
}

func TestConcurrentAdd(t *testing.T) {
	c := New(time.Minute)
	var wg sync.WaitGroup
	now := time.Now()
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n uint64) {
			defer wg.Done()
			c.Add(txID(n, now, 0))
		}(uint64(i))
	}
	wg.Wait()
	if c.Len() != 50 {
		t.Fatalf("expected 50 distinct entries, got %d", c.Len())
	}
}
