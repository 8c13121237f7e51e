// Copyright 2025 Ledgerflow Authors
//
// Package prehandle is the pre-handle workflow (spec.md §4.6, component
// C6): a parallel, optimistic, pre-consensus pass over a lazy sequence
// of transaction envelopes. Every failure is captured into the
// envelope's metadata rather than propagated, so one bad envelope never
// stops the stream (spec.md §4.6 "no exception leaves this function").
package prehandle

import (
	"context"
	"log"
	"time"

	"github.com/ledgerflow/txengine/pkg/checker"
	"github.com/ledgerflow/txengine/pkg/dedup"
	"github.com/ledgerflow/txengine/pkg/keys"
	"github.com/ledgerflow/txengine/pkg/sigexpand"
	"github.com/ledgerflow/txengine/pkg/sigverify"
	"github.com/ledgerflow/txengine/pkg/spi"
	"github.com/ledgerflow/txengine/pkg/store"
	"github.com/ledgerflow/txengine/pkg/types"
)

// ReadableStoreFactory produces a fresh snapshot-safe readable account
// store per envelope (spec.md §4.6 "Inputs").
type ReadableStoreFactory func() store.ReadableAccountStore

// Workflow runs the pre-handle procedure on one envelope per Process
// call. It owns no worker pool; callers fan envelopes out across their
// own goroutines, as cmd/txnode does (spec.md §5 "Pre-handle domain":
// parallel, no ordering guarantee, no state mutation).
type Workflow struct {
	storeFactory     ReadableStoreFactory
	creatorNodeID    types.AccountID
	dedupCache       *dedup.Cache
	verifier         *sigverify.Engine
	registry         *spi.Registry
	maxValidDuration time.Duration
	configVersion    uint64
	logger           *log.Logger
}

func New(storeFactory ReadableStoreFactory, creatorNodeID types.AccountID, dedupCache *dedup.Cache, verifier *sigverify.Engine, registry *spi.Registry, maxValidDuration time.Duration, configVersion uint64) *Workflow {
	return &Workflow{
		storeFactory:     storeFactory,
		creatorNodeID:    creatorNodeID,
		dedupCache:       dedupCache,
		verifier:         verifier,
		registry:         registry,
		maxValidDuration: maxValidDuration,
		configVersion:    configVersion,
		logger:           log.New(log.Writer(), "[prehandle] ", log.LstdFlags),
	}
}

// Process runs the full per-envelope procedure (spec.md §4.6 steps 1-8)
// and attaches the resulting PreHandleResult to env's metadata. It never
// returns an error: every failure mode is captured in the metadata
// itself, matching the contract that no exception leaves this function.
func (w *Workflow) Process(ctx context.Context, env *types.TransactionEnvelope) {
	if env.IsSystem {
		return
	}
	env.SetMetadata(w.process(ctx, env))
}

func (w *Workflow) process(ctx context.Context, env *types.TransactionEnvelope) *types.PreHandleResult {
	now := env.ConsensusTimestamp
	if now.IsZero() {
		now = time.Now()
	}

	info, err := checker.ParseAndCheck(env.RawBytes, now, w.maxValidDuration)
	if err != nil {
		return types.NewNodeDueDiligenceFailure(w.creatorNodeID, checker.CodeOf(err), nil, w.configVersion)
	}

	isReplay := w.dedupCache.Contains(info.TxID)

	// dedup_cache.add(tx_id) always, even on the due-diligence path below
	// (spec.md §4.6 failure taxonomy: "dedup_cache.add still executed").
	w.dedupCache.Add(info.TxID)

	if isReplay {
		return types.NewPreHandleFailure(info.TxID.Payer, types.DuplicateTransaction, info, nil, w.configVersion)
	}

	readable := w.storeFactory()
	payerAcct, lookupErr := readable.GetAccount(info.TxID.Payer)
	if lookupErr != nil {
		return types.NewNodeDueDiligenceFailure(w.creatorNodeID, types.PayerAccountNotFound, info, w.configVersion)
	}

	verifications := make(map[string]sigverify.Future)

	if payerAcct.IsHollow && payerAcct.Alias != nil {
		// Hollow-account payer: identified only by EVM alias, the real
		// key is whichever ECDSA signature's derived alias matches
		// (spec.md §4.6 step 5, §8 scenario 6).
		if hollowPair, ok := matchHollowKey(info, *payerAcct.Alias); ok {
			mergeVerifications(verifications, w.verifier.Verify(ctx, sigexpand.ToJobs([]sigexpand.ExpandedSignaturePair{hollowPair})))
		}
	} else {
		payerPairs, err := sigexpand.Expand(info.SignedBytes, info.Sigs, sigexpand.Collapse(payerAcct.Key))
		if err != nil {
			return types.NewUnknownFailure(w.configVersion)
		}
		mergeVerifications(verifications, w.verifier.Verify(ctx, sigexpand.ToJobs(payerPairs)))
	}

	preCtx := spi.NewPreHandleContext(readable, payerAcct.ID)
	handler, ok := w.registry.Lookup(info.Body.Kind)
	if !ok {
		return types.NewPreHandleFailure(payerAcct.ID, types.InvalidTransactionBody, info, verifications, w.configVersion)
	}
	if err := handler.PreHandle(preCtx, info.Body); err != nil {
		if pe, ok := err.(*spi.PreCheckError); ok {
			return types.NewPreHandleFailure(payerAcct.ID, pe.Code, info, verifications, w.configVersion)
		}
		return types.NewUnknownFailure(w.configVersion)
	}

	requiredLeaves := flattenAll(preCtx.RequiredKeys().Items())
	remainingPairs, err := sigexpand.Expand(info.SignedBytes, info.Sigs, requiredLeaves)
	if err != nil {
		return types.NewUnknownFailure(w.configVersion)
	}
	mergeVerifications(verifications, w.verifier.Verify(ctx, sigexpand.ToJobs(remainingPairs)))

	return types.NewSoFarSoGood(payerAcct.ID, payerAcct.Key, info, preCtx.RequiredKeys(), verifications, w.configVersion)
}

func mergeVerifications(dst map[string]sigverify.Future, src map[string]sigverify.Future) {
	for k, v := range src {
		dst[k] = v
	}
}

// matchHollowKey scans info's raw ECDSA signature pairs for the one
// whose full public key (carried as PubKeyPrefix, since the account
// behind a hollow payer is not yet known by prefix) derives the target
// alias (spec.md §4.6 step 5).
func matchHollowKey(info *types.TransactionInfo, target types.EvmAlias) (sigexpand.ExpandedSignaturePair, bool) {
	for _, s := range info.Sigs {
		if s.Kind != types.SigKindEcdsaSecp256k1 {
			continue
		}
		alias, err := sigexpand.AliasOf(s.PubKeyPrefix)
		if err != nil || types.EvmAlias(alias) != target {
			continue
		}
		k := keys.NewEcdsaSecp256k1(s.PubKeyPrefix)
		a := [20]byte(alias)
		return sigexpand.ExpandedSignaturePair{Key: k, Alias: &a, SignedMsg: info.SignedBytes, Signature: s.Signature}, true
	}
	return sigexpand.ExpandedSignaturePair{}, false
}

// flattenAll collapses every key (composite or leaf) into its
// cryptographic leaves, deduplicating by exact key equality.
func flattenAll(ks []keys.Key) []keys.Key {
	set := keys.NewSet()
	for _, k := range ks {
		for _, leaf := range sigexpand.Collapse(k) {
			set.Add(leaf)
		}
	}
	return set.Items()
}
