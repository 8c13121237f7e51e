// Copyright 2025 Ledgerflow Authors

package store

import "github.com/ledgerflow/txengine/pkg/types"

// WritableView buffers account mutations against a backing AccountStore
// and only applies them on Commit; Discard drops them entirely. This is
// the transactional scope the handle workflow wraps typed-handler
// dispatch in (spec.md §4.7 step 6: "commit mutations" vs "discard
// mutations").
type WritableView struct {
	backing  *AccountStore
	pending  map[string]Account
}

// NewWritableView opens a transactional scope over backing. Reads see
// any value already staged in this view first, falling through to
// backing's committed state.
func NewWritableView(backing *AccountStore) *WritableView {
	return &WritableView{backing: backing, pending: make(map[string]Account)}
}

func (v *WritableView) GetAccount(id types.AccountID) (Account, error) {
	if a, ok := v.pending[id.String()]; ok {
		return a, nil
	}
	return v.backing.GetAccount(id)
}

func (v *WritableView) GetAccountByAlias(alias types.EvmAlias) (Account, error) {
	for _, a := range v.pending {
		if a.IsHollowFor(alias) || (a.Alias != nil && a.Alias.Equal(alias)) {
			return a, nil
		}
	}
	return v.backing.GetAccountByAlias(alias)
}

func (v *WritableView) PutAccount(a Account) error {
	v.pending[a.ID.String()] = a
	return nil
}

// Commit applies every staged mutation to the backing store. Called by
// the handle workflow when the dispatched handler's HandlerOutcome is Ok
// (spec.md §4.7 step 6).
func (v *WritableView) Commit() error {
	for _, a := range v.pending {
		if err := v.backing.PutAccount(a); err != nil {
			return err
		}
	}
	return nil
}

// Discard drops every staged mutation without touching the backing
// store, used when the dispatched handler's outcome is Failed or Unknown
// (spec.md §4.7 step 6).
func (v *WritableView) Discard() {
	v.pending = make(map[string]Account)
}
