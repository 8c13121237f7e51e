// Copyright 2025 Ledgerflow Authors

package cryptotransfer

import (
	"context"
	"testing"

	"github.com/ledgerflow/txengine/pkg/spi"
	"github.com/ledgerflow/txengine/pkg/store"
	"github.com/ledgerflow/txengine/pkg/types"
)

func bodyWithFields(fields map[string]any) types.TransactionBody {
	return types.TransactionBody{Kind: Kind, Fields: fields}
}

func TestHandleMovesBalanceBetweenAccounts(t *testing.T) {
	backing := store.NewMemAccountStore()
	alice := types.AccountID{Num: 100}
	erin := types.AccountID{Num: 200}
	if err := backing.PutAccount(store.Account{ID: alice, Balance: 1000}); err != nil {
		t.Fatal(err)
	}

	view := store.NewWritableView(backing)
	hc := &spi.HandleContext{Writable: view, Payer: alice}

	h := New()
	body := bodyWithFields(map[string]any{"toShard": 0.0, "toRealm": 0.0, "toNum": 200.0, "amount": 1000.0})
	if err := h.Handle(context.Background(), hc, body); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := view.Commit(); err != nil {
		t.Fatal(err)
	}

	from, err := backing.GetAccount(alice)
	if err != nil {
		t.Fatal(err)
	}
	if from.Balance != 0 {
		t.Errorf("expected sender balance 0, got %d", from.Balance)
	}
	to, err := backing.GetAccount(erin)
	if err != nil {
		t.Fatal(err)
	}
	if to.Balance != 1000 {
		t.Errorf("expected recipient balance 1000, got %d", to.Balance)
	}
}

func TestHandleRejectsInsufficientBalance(t *testing.T) {
	backing := store.NewMemAccountStore()
	alice := types.AccountID{Num: 100}
	if err := backing.PutAccount(store.Account{ID: alice, Balance: 10}); err != nil {
		t.Fatal(err)
	}
	view := store.NewWritableView(backing)
	hc := &spi.HandleContext{Writable: view, Payer: alice}

	h := New()
	body := bodyWithFields(map[string]any{"toNum": 200.0, "amount": 1000.0})
	err := h.Handle(context.Background(), hc, body)
	he, ok := err.(*spi.HandleError)
	if !ok || he.Code != types.InvalidAccountAmounts {
		t.Fatalf("expected INVALID_ACCOUNT_AMOUNTS, got %v", err)
	}
}

func TestPreHandleRejectsMissingFields(t *testing.T) {
	h := New()
	pre := spi.NewPreHandleContext(store.NewMemAccountStore(), types.AccountID{Num: 100})
	err := h.PreHandle(pre, bodyWithFields(nil))
	pe, ok := err.(*spi.PreCheckError)
	if !ok || pe.Code != types.InvalidTransactionBody {
		t.Fatalf("expected INVALID_TRANSACTION_BODY, got %v", err)
	}
}
