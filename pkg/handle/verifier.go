// Copyright 2025 Ledgerflow Authors

package handle

import (
	"context"
	"log"
	"os"
	"sync"
	"time"

	"github.com/ledgerflow/txengine/pkg/keys"
	"github.com/ledgerflow/txengine/pkg/sigverify"
	"github.com/ledgerflow/txengine/pkg/types"
)

// VerificationFacade implements the handle-context verifier (spec.md
// §4.8, component C8): given the effective future map built by the
// handle workflow, resolve a key or alias to a SignatureVerification
// under a global timeout, recursing through composite keys by building
// compound futures on demand.
//
// Resolved results are memoized per key for the lifetime of this facade
// (one per dispatched transaction): futures are pure, so re-awaiting an
// already-resolved key is wasted work. Memoization is allowed, not
// required, by spec.md §9.
type VerificationFacade struct {
	futures map[string]sigverify.Future
	timeout time.Duration
	logger  *log.Logger

	// haltOnTimeout makes a verification timeout fatal rather than a
	// logged downgrade-to-failed: every correct node must reach the same
	// decision, so a node that cannot resolve a verification within the
	// shared timeout has fallen out of sync with its peers rather than
	// reached a principled verdict (config.HaltOnVerificationTimeout).
	haltOnTimeout bool
	// halt is called instead of os.Exit directly, so tests can observe
	// the halt decision without killing the test binary.
	halt func()

	mu     sync.Mutex
	cached map[string]sigverify.SignatureVerification
}

func NewVerificationFacade(futures map[string]sigverify.Future, timeout time.Duration, logger *log.Logger) *VerificationFacade {
	return NewVerificationFacadeWithHalt(futures, timeout, logger, false)
}

// NewVerificationFacadeWithHalt is NewVerificationFacade plus the
// haltOnVerificationTimeout config option (spec.md §9 Open Question,
// decision recorded in DESIGN.md).
func NewVerificationFacadeWithHalt(futures map[string]sigverify.Future, timeout time.Duration, logger *log.Logger, haltOnTimeout bool) *VerificationFacade {
	if logger == nil {
		logger = log.New(log.Writer(), "[handle] ", log.LstdFlags)
	}
	return &VerificationFacade{
		futures:       futures,
		timeout:       timeout,
		logger:        logger,
		haltOnTimeout: haltOnTimeout,
		halt:          func() { os.Exit(1) },
		cached:        make(map[string]sigverify.SignatureVerification),
	}
}

// VerificationFor implements the algorithm in spec.md §4.8: leaves
// resolve directly from the future map; KeyList/ThresholdKey build a
// compound future over their children (num_can_fail = 0 for KeyList,
// |children|-t' for ThresholdKey); anything else fails without a
// future.
func (f *VerificationFacade) VerificationFor(ctx context.Context, k keys.Key) sigverify.SignatureVerification {
	cacheKey := sigverify.MapKey(k)
	f.mu.Lock()
	if v, ok := f.cached[cacheKey]; ok {
		f.mu.Unlock()
		return v
	}
	f.mu.Unlock()

	future, ok := f.buildFuture(k)
	var v sigverify.SignatureVerification
	if !ok {
		v = sigverify.SignatureVerification{Key: k, Passed: false}
	} else {
		v = f.awaitWithTimeout(ctx, future, k)
	}

	f.mu.Lock()
	f.cached[cacheKey] = v
	f.mu.Unlock()
	return v
}

func (f *VerificationFacade) buildFuture(k keys.Key) (sigverify.Future, bool) {
	switch k.Variant() {
	case keys.VariantEd25519, keys.VariantEcdsaSecp256k1:
		future, ok := f.futures[sigverify.MapKey(k)]
		return future, ok
	case keys.VariantKeyList:
		return f.buildCompound(k, k.Children(), 0)
	case keys.VariantThresholdKey:
		tPrime := k.EffectiveThreshold()
		numCanFail := len(k.Children()) - int(tPrime)
		return f.buildCompound(k, k.Children(), numCanFail)
	default:
		return nil, false
	}
}

func (f *VerificationFacade) buildCompound(k keys.Key, children []keys.Key, numCanFail int) (sigverify.Future, bool) {
	if len(children) == 0 {
		return nil, false
	}
	childFutures := make([]sigverify.Future, 0, len(children))
	for _, c := range children {
		cf, ok := f.buildFuture(c)
		if !ok {
			// A child with no matching signature resolves as an
			// always-failed leaf, which still counts against
			// num_can_fail rather than aborting the whole facade.
			cf = failedFuture{key: c}
		}
		childFutures = append(childFutures, cf)
	}
	return sigverify.NewCompound(k, childFutures, numCanFail), true
}

// VerificationForAlias scans resolved verifications for the first whose
// alias matches (spec.md §4.8 "For an evm_alias lookup"). Every leaf
// future in the map is awaited in turn since aliases are only known
// after resolution, not before.
func (f *VerificationFacade) VerificationForAlias(ctx context.Context, alias types.EvmAlias) sigverify.SignatureVerification {
	for _, future := range f.futures {
		v := f.awaitWithTimeout(ctx, future, keys.Key{})
		if v.Alias != nil && types.EvmAlias(*v.Alias).Equal(alias) {
			return v
		}
	}
	return sigverify.SignatureVerification{Passed: false}
}

// awaitWithTimeout enforces workflowVerificationTimeoutMS (spec.md §5
// "Suspension/blocking points"): a timeout resolves failed and logs an
// ISS warning, since correct nodes should all reach the same decision
// within the same bound.
func (f *VerificationFacade) awaitWithTimeout(ctx context.Context, future sigverify.Future, k keys.Key) sigverify.SignatureVerification {
	timeoutCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()
	v := future.Await(timeoutCtx)
	if !v.Passed && timeoutCtx.Err() != nil {
		if f.haltOnTimeout {
			f.logger.Printf("FATAL: verification_for timed out after %s; halting node per haltOnVerificationTimeout, key variant=%d", f.timeout, k.Variant())
			f.halt()
			return v
		}
		f.logger.Printf("WARNING: verification_for timed out after %s; possible ISS risk, key variant=%d", f.timeout, k.Variant())
	}
	return v
}

// failedFuture is a Future that always resolves failed, used to fill in
// compound children with no matching signature without special-casing
// the compose step.
type failedFuture struct {
	key keys.Key
}

func (f failedFuture) Await(ctx context.Context) sigverify.SignatureVerification {
	return sigverify.SignatureVerification{Key: f.key, Passed: false}
}
