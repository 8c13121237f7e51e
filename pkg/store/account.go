// Copyright 2025 Ledgerflow Authors

package store

import "github.com/ledgerflow/txengine/pkg/keys"
import "github.com/ledgerflow/txengine/pkg/types"

// Account is the minimal ledger account record the engine's handlers
// operate on: identity, the key required to authorize it, an optional
// EVM alias for hollow-account flows, and a balance the illustrative
// cryptoTransfer handler moves (spec.md §8 scenario 6 "hollow-account
// payer").
type Account struct {
	ID       types.AccountID
	Key      keys.Key
	Alias    *types.EvmAlias
	IsHollow bool
	Balance  uint64
}

// IsHollowFor reports whether this account is a hollow account
// identified only by alias, still awaiting a completing signature that
// reveals its real key (spec.md §4.6 step 5, §8 scenario 6).
func (a Account) IsHollowFor(alias types.EvmAlias) bool {
	return a.IsHollow && a.Alias != nil && a.Alias.Equal(alias)
}
