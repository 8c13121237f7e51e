// Copyright 2025 Ledgerflow Authors

package types

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// TransactionEnvelope is the opaque carrier produced by gossip (spec.md
// §3, §6). The metadata slot is read by the handle thread with
// acquire/release semantics (spec.md §5 "Ordering guarantees"): a
// pre-handle worker publishes a PreHandleResult with Store, and the
// handle thread observes it with Load, with no further synchronization
// needed between the two.
type TransactionEnvelope struct {
	RawBytes           []byte
	ConsensusTimestamp time.Time
	IsSystem           bool
	CreatorNodeID      AccountID

	// GossipID is a per-envelope correlation id minted once by the
	// gossip layer on receipt, carried alongside the envelope purely for
	// log correlation across the pre-handle/handle boundary — it plays
	// no role in any spec invariant and is never derived from the
	// transaction's own id.
	GossipID uuid.UUID

	metadata atomic.Pointer[PreHandleResult]
}

func NewEnvelope(rawBytes []byte, creator AccountID, isSystem bool) *TransactionEnvelope {
	return &TransactionEnvelope{RawBytes: rawBytes, CreatorNodeID: creator, IsSystem: isSystem, GossipID: uuid.New()}
}

// Metadata loads the currently attached PreHandleResult, or nil if none
// has been set yet.
func (e *TransactionEnvelope) Metadata() *PreHandleResult {
	return e.metadata.Load()
}

// SetMetadata publishes a new PreHandleResult. Per spec.md §8's
// "at-most-one concurrent pre-handle" property, pre-handle workers must
// only call this when the slot is still nil (CompareAndSwap semantics);
// the handle thread may overwrite an existing non-nil result freely when
// re-running pre-handle.
func (e *TransactionEnvelope) SetMetadata(r *PreHandleResult) {
	e.metadata.Store(r)
}

// SetMetadataIfAbsent publishes r only if no result has been attached
// yet, returning false if a pre-handle worker lost the race to another
// attempt for the same envelope.
func (e *TransactionEnvelope) SetMetadataIfAbsent(r *PreHandleResult) bool {
	return e.metadata.CompareAndSwap(nil, r)
}

// WithConsensusTimestamp attaches the consensus-assigned timestamp,
// called once the gossip/consensus layer (external) has ordered this
// transaction into a round.
func (e *TransactionEnvelope) WithConsensusTimestamp(ts time.Time) *TransactionEnvelope {
	e.ConsensusTimestamp = ts
	return e
}
