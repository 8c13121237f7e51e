// Copyright 2025 Ledgerflow Authors
//
// Package handle is the handle workflow (spec.md §4.7, component C7):
// single-threaded, consensus-ordered, the only place application state
// ever mutates.
package handle

import (
	"context"
	"log"
	"time"

	"github.com/ledgerflow/txengine/pkg/keys"
	"github.com/ledgerflow/txengine/pkg/prehandle"
	"github.com/ledgerflow/txengine/pkg/recordcache"
	"github.com/ledgerflow/txengine/pkg/sigexpand"
	"github.com/ledgerflow/txengine/pkg/sigverify"
	"github.com/ledgerflow/txengine/pkg/spi"
	"github.com/ledgerflow/txengine/pkg/store"
	"github.com/ledgerflow/txengine/pkg/types"
)

const (
	// nodeDueDiligencePenalty, payerFailureFee, and baseTransactionFee are
	// illustrative fixed fees; a production host supplies a real fee
	// schedule (out of scope, spec.md §1).
	nodeDueDiligencePenalty = uint64(100)
	payerFailureFee         = uint64(10)
	baseTransactionFee      = uint64(1)
)

// Workflow is the handle workflow: per round, per transaction in strict
// consensus order (spec.md §4.7 "Trigger").
type Workflow struct {
	backing          *store.AccountStore
	preHandle        *prehandle.Workflow
	verifier         *sigverify.Engine
	registry         *spi.Registry
	records          *recordcache.Cache
	verifyTimeout    time.Duration
	configVersion    uint64
	haltOnVerifyTimeout bool
	logger           *log.Logger
}

func New(backing *store.AccountStore, preHandle *prehandle.Workflow, verifier *sigverify.Engine, registry *spi.Registry, records *recordcache.Cache, verifyTimeout time.Duration, configVersion uint64, haltOnVerifyTimeout bool) *Workflow {
	return &Workflow{
		backing:             backing,
		preHandle:           preHandle,
		verifier:            verifier,
		registry:            registry,
		records:             records,
		verifyTimeout:       verifyTimeout,
		configVersion:       configVersion,
		haltOnVerifyTimeout: haltOnVerifyTimeout,
		logger:              log.New(log.Writer(), "[handle] ", log.LstdFlags),
	}
}

// HandleTransaction runs the per-transaction procedure of spec.md §4.7
// and returns the emitted record. consensusNow is the round's assigned
// wall-clock time, used for both re-run pre-handle and record emission.
func (w *Workflow) HandleTransaction(ctx context.Context, env *types.TransactionEnvelope, consensusNow time.Time) *types.TransactionRecord {
	if env.IsSystem {
		return nil
	}

	r := env.Metadata()
	if r.IsRerunnable(w.configVersion) {
		env.WithConsensusTimestamp(consensusNow)
		w.preHandle.Process(ctx, env)
		fresh := env.Metadata()
		if r != nil {
			fresh = fresh.WithInner(r)
			env.SetMetadata(fresh)
		}
		r = fresh
	}

	switch r.Status {
	case types.NodeDueDiligenceFailure:
		rec := w.emit(*r.Payer, r.TxInfo, r.ResponseCode, consensusNow, nodeDueDiligencePenalty)
		w.records.Add(*r.Payer, rec)
		return &rec
	case types.PreHandleFailure:
		rec := w.emit(*r.Payer, r.TxInfo, r.ResponseCode, consensusNow, payerFailureFee)
		w.records.Add(*r.Payer, rec)
		return &rec
	case types.UnknownFailure:
		rec := w.emit(types.AccountID{}, nil, types.Unknown, consensusNow, 0)
		return &rec
	}

	return w.dispatch(ctx, env, r, consensusNow)
}

func (w *Workflow) dispatch(ctx context.Context, env *types.TransactionEnvelope, r *types.PreHandleResult, consensusNow time.Time) *types.TransactionRecord {
	effective := w.completeSignatures(ctx, r)

	view := store.NewWritableView(w.backing)
	facade := NewVerificationFacadeWithHalt(effective, w.verifyTimeout, w.logger, w.haltOnVerifyTimeout)
	hc := &spi.HandleContext{Writable: view, Payer: *r.Payer, Verifier: facade}

	handler, ok := w.registry.Lookup(r.TxInfo.Body.Kind)
	if !ok {
		view.Discard()
		rec := w.emit(*r.Payer, r.TxInfo, types.InvalidTransactionBody, consensusNow, payerFailureFee)
		w.records.Add(*r.Payer, rec)
		return &rec
	}

	payerVerification := facade.VerificationFor(ctx, *r.PayerKey)
	if !payerVerification.Passed {
		view.Discard()
		rec := w.emit(*r.Payer, r.TxInfo, types.InvalidSignature, consensusNow, payerFailureFee)
		w.records.Add(*r.Payer, rec)
		return &rec
	}

	err := handler.Handle(ctx, hc, r.TxInfo.Body)
	outcome := spi.FromHandleErr(err)

	var rec types.TransactionRecord
	switch {
	case outcome.IsOk():
		if cerr := view.Commit(); cerr != nil {
			w.logger.Printf("ERROR: commit failed for payer %s: %v", r.Payer.String(), cerr)
			rec = w.emit(*r.Payer, r.TxInfo, types.Unknown, consensusNow, 0)
			break
		}
		rec = w.emit(*r.Payer, r.TxInfo, types.OK, consensusNow, baseTransactionFee)
	case outcome.IsFailed():
		view.Discard()
		rec = w.emit(*r.Payer, r.TxInfo, outcome.Code(), consensusNow, payerFailureFee)
	default:
		view.Discard()
		rec = w.emit(*r.Payer, r.TxInfo, types.Unknown, consensusNow, 0)
	}

	w.records.Add(*r.Payer, rec)
	return &rec
}

// completeSignatures walks required_keys ∪ {payer_key}, keeping any
// verification already seeded during pre-handle and expanding/submitting
// whichever keys are still missing (spec.md §4.7 step 5).
func (w *Workflow) completeSignatures(ctx context.Context, r *types.PreHandleResult) map[string]sigverify.Future {
	effective := make(map[string]sigverify.Future, len(r.VerificationResults)+1)
	for k, v := range r.VerificationResults {
		effective[k] = v
	}

	needed := keys.NewSet()
	if r.RequiredKeys != nil {
		for _, k := range r.RequiredKeys.Items() {
			needed.Add(k)
		}
	}
	if r.PayerKey != nil {
		needed.Add(*r.PayerKey)
	}

	var missing []keys.Key
	for _, k := range flattenLeaves(needed.Items()) {
		if _, ok := effective[sigverify.MapKey(k)]; !ok {
			missing = append(missing, k)
		}
	}
	if len(missing) == 0 {
		return effective
	}

	pairs, err := sigexpand.Expand(r.TxInfo.SignedBytes, r.TxInfo.Sigs, missing)
	if err != nil {
		return effective
	}
	for k, v := range w.verifier.Verify(ctx, sigexpand.ToJobs(pairs)) {
		effective[k] = v
	}
	return effective
}

func flattenLeaves(ks []keys.Key) []keys.Key {
	set := keys.NewSet()
	for _, k := range ks {
		for _, leaf := range sigexpand.Collapse(k) {
			set.Add(leaf)
		}
	}
	return set.Items()
}

func (w *Workflow) emit(payer types.AccountID, info *types.TransactionInfo, code types.ResponseCode, consensusNow time.Time, fee uint64) types.TransactionRecord {
	var txID types.TransactionID
	var memo string
	if info != nil {
		txID = info.TxID
		memo = info.Body.Memo
	}
	receipt := types.Receipt{Status: code}
	return types.NewTransactionRecord(txID, consensusNow, receipt, memo, fee)
}
