// Copyright 2025 Ledgerflow Authors
//
// Package store is the account state layer the engine reads and
// mutates through (spec.md §1 "does not persist state to durable
// storage" — this package is the pluggable seam a host application
// wires to its own durable state; the engine only sees the interfaces).
// The default implementation here is an in-memory cometbft-db MemDB,
// grounded on the teacher's key-value adapter idiom: a flat key space
// partitioned by prefix, JSON-encoded values, and a small sentinel-error
// vocabulary instead of ad-hoc error strings.
package store

import (
	"encoding/json"
	"errors"
	"sync"

	dbm "github.com/cometbft/cometbft-db"

	"github.com/ledgerflow/txengine/pkg/types"
)

var (
	// ErrAccountNotFound is returned by GetAccount/GetAccountByAlias when
	// no matching record exists.
	ErrAccountNotFound = errors.New("store: account not found")
	// ErrAlreadyExists names a create-on-existing-id conflict. No function
	// in this package returns it: PutAccount inserts or overwrites.
	ErrAlreadyExists = errors.New("store: account already exists")
)

const (
	accountPrefix = "acct/"
	aliasPrefix   = "alias/"
)

// ReadableAccountStore is the read-only view pre-handle workers use to
// resolve payers without risking a concurrent mutation (spec.md §4.6
// step 4, "readable store factory").
type ReadableAccountStore interface {
	GetAccount(id types.AccountID) (Account, error)
	GetAccountByAlias(alias types.EvmAlias) (Account, error)
}

// WritableAccountStore extends ReadableAccountStore with the mutation
// surface typed handlers use via ctx.writable_store(T) (spec.md §4.7
// step 6). Mutations made under a discarded transactional scope must
// never become visible; AccountStore achieves this via WritableView.
type WritableAccountStore interface {
	ReadableAccountStore
	PutAccount(a Account) error
}

// AccountStore is the default account store: a cometbft-db-backed table
// of JSON-encoded Account records, keyed by account id and indexed by
// EVM alias for hollow-account lookups.
type AccountStore struct {
	mu sync.RWMutex
	db dbm.DB
}

// NewMemAccountStore builds a store backed by an in-process MemDB,
// suitable for tests and the demo node (cmd/txnode); production
// deployments wire a durable dbm.DB implementation instead.
func NewMemAccountStore() *AccountStore {
	return &AccountStore{db: dbm.NewMemDB()}
}

// NewAccountStore wraps an arbitrary cometbft-db backend.
func NewAccountStore(db dbm.DB) *AccountStore {
	return &AccountStore{db: db}
}

func accountKey(id types.AccountID) []byte {
	return []byte(accountPrefix + id.String())
}

func aliasKey(alias types.EvmAlias) []byte {
	return append([]byte(aliasPrefix), alias[:]...)
}

func (s *AccountStore) GetAccount(id types.AccountID) (Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	raw, err := s.db.Get(accountKey(id))
	if err != nil {
		return Account{}, err
	}
	if raw == nil {
		return Account{}, ErrAccountNotFound
	}
	var a Account
	if err := json.Unmarshal(raw, &a); err != nil {
		return Account{}, err
	}
	return a, nil
}

func (s *AccountStore) GetAccountByAlias(alias types.EvmAlias) (Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	raw, err := s.db.Get(aliasKey(alias))
	if err != nil {
		return Account{}, err
	}
	if raw == nil {
		return Account{}, ErrAccountNotFound
	}
	var id types.AccountID
	if err := json.Unmarshal(raw, &id); err != nil {
		return Account{}, err
	}
	return s.GetAccount(id)
}

// PutAccount inserts or updates a as a direct, immediately-visible
// mutation. Typed handlers should not call this directly; they go
// through a WritableView (view.go) so their mutations commit or discard
// atomically with the rest of the transaction's outcome.
func (s *AccountStore) PutAccount(a Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.putAccountLocked(a)
}

func (s *AccountStore) putAccountLocked(a Account) error {
	raw, err := json.Marshal(a)
	if err != nil {
		return err
	}
	if err := s.db.Set(accountKey(a.ID), raw); err != nil {
		return err
	}
	if a.Alias != nil {
		idRaw, err := json.Marshal(a.ID)
		if err != nil {
			return err
		}
		if err := s.db.Set(aliasKey(*a.Alias), idRaw); err != nil {
			return err
		}
	}
	return nil
}
