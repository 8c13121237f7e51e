// Copyright 2025 Ledgerflow Authors
//
// Package cryptotransfer is an illustrative typed handler (spec.md §8
// scenario 1): a minimal debit/credit transfer between two accounts,
// grounded in the teacher's ledger balance bookkeeping idiom
// (pkg/ledger). It exists to exercise the engine's dispatch contract
// end to end, not as a spec component in its own right.
package cryptotransfer

import (
	"context"

	"github.com/ledgerflow/txengine/pkg/spi"
	"github.com/ledgerflow/txengine/pkg/store"
	"github.com/ledgerflow/txengine/pkg/types"
)

const Kind = "cryptoTransfer"

// Handler implements spi.Handler for the cryptoTransfer kind. It makes
// no additional signature demands beyond the payer's: the recipient is
// never required to sign a transfer into its own account.
type Handler struct{}

func New() *Handler { return &Handler{} }

func (Handler) Kind() string { return Kind }

func (Handler) PreHandle(pre *spi.PreHandleContext, body types.TransactionBody) error {
	if _, _, ok := fields(body); !ok {
		return &spi.PreCheckError{Code: types.InvalidTransactionBody}
	}
	return nil
}

func (Handler) Handle(ctx context.Context, hc *spi.HandleContext, body types.TransactionBody) error {
	to, amount, ok := fields(body)
	if !ok {
		return &spi.HandleError{Code: types.InvalidTransactionBody}
	}
	if !to.IsWellFormed() {
		return &spi.HandleError{Code: types.InvalidTransferAccountID}
	}

	from, err := hc.Writable.GetAccount(hc.Payer)
	if err != nil {
		return &spi.HandleError{Code: types.PayerAccountNotFound}
	}
	if from.Balance < amount {
		return &spi.HandleError{Code: types.InvalidAccountAmounts}
	}

	recipient, err := hc.Writable.GetAccount(to)
	if err != nil {
		if err != store.ErrAccountNotFound {
			return &spi.HandleError{Code: types.InvalidTransferAccountID}
		}
		recipient = store.Account{ID: to}
	}

	from.Balance -= amount
	recipient.Balance += amount

	if err := hc.Writable.PutAccount(from); err != nil {
		return &spi.HandleError{Code: types.InvalidAccountAmounts}
	}
	if err := hc.Writable.PutAccount(recipient); err != nil {
		return &spi.HandleError{Code: types.InvalidTransferAccountID}
	}
	return nil
}

// fields pulls the transfer's destination account and amount out of the
// transaction body's opaque field bag. Fields arrives JSON-decoded, so
// numeric values surface as float64 regardless of their wire shape.
func fields(body types.TransactionBody) (types.AccountID, uint64, bool) {
	shard, _ := body.Fields["toShard"].(float64)
	realm, _ := body.Fields["toRealm"].(float64)
	num, ok := body.Fields["toNum"].(float64)
	if !ok {
		return types.AccountID{}, 0, false
	}
	amount, ok := body.Fields["amount"].(float64)
	if !ok || amount < 0 {
		return types.AccountID{}, 0, false
	}
	to := types.AccountID{Shard: uint64(shard), Realm: uint64(realm), Num: uint64(num)}
	return to, uint64(amount), true
}
