// Copyright 2025 Ledgerflow Authors
//
// Package freeze is the illustrative operational side-effecting handler
// (spec.md §2, component C9): it writes a marker file and schedules a
// freeze time, included only to show how a handler with real side
// effects interacts with the handle workflow's transactional scope.
// It mirrors the teacher's ValidatorApp.Shutdown/SaveABCIState "flush
// state to disk before stopping" pattern, repurposed onto a single
// handled transaction rather than process shutdown.
package freeze

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ledgerflow/txengine/pkg/spi"
	"github.com/ledgerflow/txengine/pkg/types"
)

const Kind = "freeze"

// marker is the on-disk record written when a freeze is scheduled,
// analogous to the teacher's ledger.ABCIState snapshot.
type marker struct {
	FreezeTime time.Time `json:"freezeTime"`
	ScheduledBy types.AccountID `json:"scheduledBy"`
}

// Handler implements spi.Handler for the freeze kind. It requires the
// payer's signature only — there is no additional key to collect in
// PreHandle — and on Handle writes a marker file recording when the
// node should freeze.
type Handler struct {
	dir string
}

// New builds a freeze handler that writes marker files under dir. dir
// must already exist; Handle returns a HandleError if the write fails,
// which discards the (empty) transactional scope this handler opened.
func New(dir string) *Handler {
	return &Handler{dir: dir}
}

func (Handler) Kind() string { return Kind }

func (Handler) PreHandle(pre *spi.PreHandleContext, body types.TransactionBody) error {
	if _, ok := freezeTime(body); !ok {
		return &spi.PreCheckError{Code: types.InvalidTransactionBody}
	}
	return nil
}

func (h *Handler) Handle(ctx context.Context, hc *spi.HandleContext, body types.TransactionBody) error {
	ft, ok := freezeTime(body)
	if !ok {
		return &spi.HandleError{Code: types.InvalidTransactionBody}
	}

	m := marker{FreezeTime: ft, ScheduledBy: hc.Payer}
	raw, err := json.Marshal(m)
	if err != nil {
		return &spi.HandleError{Code: types.InvalidTransactionBody}
	}

	path := filepath.Join(h.dir, "freeze.json")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return &spi.HandleError{Code: types.Unknown}
	}
	return nil
}

// freezeTime pulls the scheduled freeze instant out of the body's field
// bag, encoded as RFC3339 text the same way gossip-delivered bodies
// carry every other non-numeric field.
func freezeTime(body types.TransactionBody) (time.Time, bool) {
	raw, ok := body.Fields["freezeTime"].(string)
	if !ok {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// ReadMarker loads a previously written freeze marker, returning an
// error if none has been written under dir.
func ReadMarker(dir string) (time.Time, types.AccountID, error) {
	raw, err := os.ReadFile(filepath.Join(dir, "freeze.json"))
	if err != nil {
		return time.Time{}, types.AccountID{}, fmt.Errorf("freeze: read marker: %w", err)
	}
	var m marker
	if err := json.Unmarshal(raw, &m); err != nil {
		return time.Time{}, types.AccountID{}, fmt.Errorf("freeze: decode marker: %w", err)
	}
	return m.FreezeTime, m.ScheduledBy, nil
}
