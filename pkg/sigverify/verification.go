// Copyright 2025 Ledgerflow Authors
//
// Package sigverify is the signature verification engine (spec.md §4.2,
// component C2). It batches signature jobs to an async crypto worker and
// wraps each job in a future; a separate aggregator composes futures into
// compound futures over key-lists and thresholds (used by the handle-time
// verifier, pkg/handle).
package sigverify

import (
	"context"
	"crypto/ed25519"
	"errors"
	"log"

	gethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/ledgerflow/txengine/pkg/keys"
)

// SignatureVerification is the resolved outcome of a future: which key
// (and, for ECDSA, which EVM alias) was checked, and whether it passed.
type SignatureVerification struct {
	Key      keys.Key
	Alias    *[20]byte
	Passed   bool
}

// Job is one prepared verification request: signed bytes, a signature,
// and the key to check it against. Verify (below) hands all of a call's
// Jobs to the CryptoEngine in one SubmitBatch call; it does not pack
// them into per-scheme concatenated byte buffers. Job is the unit a
// CryptoEngine consumes.
type Job struct {
	Variant   keys.Variant
	SignedMsg []byte // for ECDSA this is pre-hashed to keccak256 by the caller
	Signature []byte
	KeyBytes  []byte
}

// CryptoEngine is the capability interface the engine invokes to do the
// actual cryptography; it does not know or care whether the
// implementation is a goroutine pool, an external process, or (in tests)
// a synchronous stub (spec.md §9 Design Notes, "Global crypto worker
// pool").
type CryptoEngine interface {
	// SubmitBatch submits jobs and returns one channel per job that will
	// receive exactly one bool (true = signature valid) and then close.
	SubmitBatch(ctx context.Context, jobs []Job) []<-chan bool
}

// Leaf is a SignatureVerificationFuture wrapping a single crypto job.
type Leaf struct {
	key    keys.Key
	alias  *[20]byte
	result <-chan bool
}

func newLeaf(k keys.Key, alias *[20]byte, result <-chan bool) *Leaf {
	return &Leaf{key: k, alias: alias, result: result}
}

// Await blocks until the job resolves or ctx is done. A context
// cancellation/timeout converts to a failed verification, per spec.md
// §5 "Cancellation" and §7 "Timeout on verification".
func (l *Leaf) Await(ctx context.Context) SignatureVerification {
	select {
	case passed, ok := <-l.result:
		if !ok {
			return SignatureVerification{Key: l.key, Alias: l.alias, Passed: false}
		}
		return SignatureVerification{Key: l.key, Alias: l.alias, Passed: passed}
	case <-ctx.Done():
		return SignatureVerification{Key: l.key, Alias: l.alias, Passed: false}
	}
}

// Compound aggregates child futures under a failure tolerance: it passes
// iff the number of failing children is <= NumCanFail (spec.md §3
// SignatureVerificationFuture, §4.2 "Compound future composition").
type Compound struct {
	key        keys.Key
	children   []Future
	numCanFail int
}

// Future is the common interface both Leaf and Compound satisfy, letting
// the handle-context facade (pkg/handle) recurse over arbitrary key
// shapes without type-switching on concrete future types.
type Future interface {
	Await(ctx context.Context) SignatureVerification
}

func NewCompound(key keys.Key, children []Future, numCanFail int) *Compound {
	return &Compound{key: key, children: children, numCanFail: numCanFail}
}

// Await resolves iteratively: no goroutine is blocked per compound future
// (spec.md §9 "Compound futures" design note). Children are awaited in
// order under the same overall deadline from ctx; a child timing out
// still counts as a failure, which may short-circuit the tolerance.
func (c *Compound) Await(ctx context.Context) SignatureVerification {
	if len(c.children) == 0 {
		return SignatureVerification{Key: c.key, Passed: false}
	}
	failed := 0
	for _, child := range c.children {
		v := child.Await(ctx)
		if !v.Passed {
			failed++
			if failed > c.numCanFail {
				return SignatureVerification{Key: c.key, Passed: false}
			}
		}
	}
	return SignatureVerification{Key: c.key, Passed: failed <= c.numCanFail}
}

// Engine is the verification engine entry point: verify(signed_bytes,
// sigs) -> map<Key, Future> (spec.md §4.2 "Contract").
type Engine struct {
	crypto CryptoEngine
	logger *log.Logger
}

func NewEngine(crypto CryptoEngine) *Engine {
	return &Engine{
		crypto: crypto,
		logger: log.New(log.Writer(), "[sigverify] ", log.LstdFlags),
	}
}

// PreparedJob pairs a Job with the Key and optional EVM alias it will
// resolve to once verified — the output of the signature expander
// (pkg/sigexpand), consumed here.
type PreparedJob struct {
	Key       keys.Key
	Alias     *[20]byte
	Job       Job
}

var ErrEmptyBatch = errors.New("sigverify: empty batch")

// Verify submits every prepared job to the crypto engine in one batch
// call and returns a leaf future per key, keyed by exact Key equality
// (spec.md §3 "verification_results ... keyed by exact Key equality").
func (e *Engine) Verify(ctx context.Context, prepared []PreparedJob) map[string]Future {
	out := make(map[string]Future, len(prepared))
	if len(prepared) == 0 {
		return out
	}

	jobs := make([]Job, len(prepared))
	for i, p := range prepared {
		jobs[i] = p.Job
	}
	channels := e.crypto.SubmitBatch(ctx, jobs)
	for i, p := range prepared {
		out[keyMapKey(p.Key)] = newLeaf(p.Key, p.Alias, channels[i])
	}
	return out
}

// keyMapKey renders a Key as a stable map key. It delegates to the
// exported MapKey, which callers outside this package use to index the
// same maps.
func keyMapKey(k keys.Key) string {
	return MapKey(k)
}

// MapKey is the canonical string form of a keys.Key used to index
// verification_results maps throughout the engine.
func MapKey(k keys.Key) string {
	b := make([]byte, 0, len(k.Bytes())+8)
	b = append(b, byte(k.Variant()))
	b = append(b, k.Bytes()...)
	for _, c := range k.Children() {
		b = append(b, MapKey(c)...)
	}
	return string(b)
}

// VerifyEd25519 checks a single Ed25519 signature synchronously — used by
// the in-process CryptoEngine implementations in workerpool.go.
func VerifyEd25519(pub, msg, sig []byte) bool {
	if len(pub) != ed25519.PublicKeySize || len(sig) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(pub, msg, sig)
}

// VerifyEcdsaSecp256k1 checks a recoverable or plain r||s ECDSA secp256k1
// signature against an uncompressed public key and a pre-hashed
// (keccak256) message, using go-ethereum's battle-tested secp256k1
// bindings (spec.md §4.2; grounded on the teacher's
// pkg/verification/unified_verifier.go use of the same package).
func VerifyEcdsaSecp256k1(pub, hash, sig []byte) bool {
	if len(sig) < 64 {
		return false
	}
	// gethcrypto.VerifySignature wants a 64-byte r||s signature (no
	// recovery id) and an uncompressed or compressed pubkey.
	return gethcrypto.VerifySignature(pub, hash, sig[:64])
}
