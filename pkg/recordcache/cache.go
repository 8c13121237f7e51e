// Copyright 2025 Ledgerflow Authors
//
// Package recordcache is the record cache (spec.md §4.4, component C4):
// a bounded per-payer FIFO of transaction records, queryable by
// transaction id or by payer.
package recordcache

import (
	"sync"

	"github.com/ledgerflow/txengine/pkg/types"
)

// Cache holds every committed TransactionRecord, bounded per payer at
// maxQueryable entries (spec.md §4.4 "Per-payer bound"): once a payer's
// queue is full, the eldest record is evicted before the new one is
// inserted.
type Cache struct {
	mu            sync.Mutex
	maxQueryable  int
	byTxID        map[string]types.TransactionRecord
	byPayer       map[string][]string // payer key -> ordered tx-id keys, oldest first
}

func New(maxQueryable int) *Cache {
	if maxQueryable < 1 {
		maxQueryable = 1
	}
	return &Cache{
		maxQueryable: maxQueryable,
		byTxID:       make(map[string]types.TransactionRecord),
		byPayer:      make(map[string][]string),
	}
}

// Add inserts a record for the given payer, evicting the payer's eldest
// record first if the per-payer bound would otherwise be exceeded.
func (c *Cache) Add(payer types.AccountID, record types.TransactionRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()

	payerKey := payer.String()
	txKey := record.TxID.Key()

	queue := c.byPayer[payerKey]
	if len(queue) >= c.maxQueryable {
		eldest := queue[0]
		queue = queue[1:]
		delete(c.byTxID, eldest)
	}
	queue = append(queue, txKey)
	c.byPayer[payerKey] = queue
	c.byTxID[txKey] = record
}

// Get returns the record for a transaction id, if still cached.
func (c *Cache) Get(id types.TransactionID) (types.TransactionRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.byTxID[id.Key()]
	return r, ok
}

// RecordsFor returns every record still cached for payer, oldest first.
func (c *Cache) RecordsFor(payer types.AccountID) []types.TransactionRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	queue := c.byPayer[payer.String()]
	out := make([]types.TransactionRecord, 0, len(queue))
	for _, key := range queue {
		if r, ok := c.byTxID[key]; ok {
			out = append(out, r)
		}
	}
	return out
}
