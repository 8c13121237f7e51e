// Copyright 2025 Ledgerflow Authors

package store

import (
	"testing"

	"github.com/ledgerflow/txengine/pkg/keys"
	"github.com/ledgerflow/txengine/pkg/types"
)

func TestPutAndGetAccount(t *testing.T) {
	s := NewMemAccountStore()
	id := types.AccountID{Num: 100}
	a := Account{ID: id, Key: keys.NewEd25519([]byte{1, 2, 3}), Balance: 50}
	if err := s.PutAccount(a); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetAccount(id)
	if err != nil {
		t.Fatal(err)
	}
	if got.Balance != 50 || !got.Key.Equal(a.Key) {
		t.Error("retrieved account does not match stored account")
	}
}

func TestGetAccountNotFound(t *testing.T) {
	s := NewMemAccountStore()
	_, err := s.GetAccount(types.AccountID{Num: 999})
	if err != ErrAccountNotFound {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestGetAccountByAlias(t *testing.T) {
	s := NewMemAccountStore()
	alias := types.EvmAlias{1, 2, 3}
	id := types.AccountID{Num: 200}
	if err := s.PutAccount(Account{ID: id, Alias: &alias, IsHollow: true}); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetAccountByAlias(alias)
	if err != nil {
		t.Fatal(err)
	}
	if !got.ID.Equal(id) {
		t.Error("alias lookup returned the wrong account")
	}
}

func TestWritableViewDiscardDoesNotLeak(t *testing.T) {
	backing := NewMemAccountStore()
	id := types.AccountID{Num: 1}
	if err := backing.PutAccount(Account{ID: id, Balance: 10}); err != nil {
		t.Fatal(err)
	}

	view := NewWritableView(backing)
	a, _ := view.GetAccount(id)
	a.Balance = 999
	if err := view.PutAccount(a); err != nil {
		t.Fatal(err)
	}
	view.Discard()

	got, _ := backing.GetAccount(id)
	if got.Balance != 10 {
		t.Error("discarded mutation must not be visible on the backing store")
	}
}

func TestWritableViewCommitApplies(t *testing.T) {
	backing := NewMemAccountStore()
	id := types.AccountID{Num: 1}
	if err := backing.PutAccount(Account{ID: id, Balance: 10}); err != nil {
		t.Fatal(err)
	}

	view := NewWritableView(backing)
	a, _ := view.GetAccount(id)
	a.Balance = 777
	if err := view.PutAccount(a); err != nil {
		t.Fatal(err)
	}
	if err := view.Commit(); err != nil {
		t.Fatal(err)
	}

	got, _ := backing.GetAccount(id)
	if got.Balance != 777 {
		t.Error("committed mutation should be visible on the backing store")
	}
}
