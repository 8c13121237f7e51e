// Copyright 2025 Ledgerflow Authors

package handle

import (
	"context"
	"log"
	"testing"
	"time"

	"github.com/ledgerflow/txengine/pkg/keys"
	"github.com/ledgerflow/txengine/pkg/sigverify"
)

// blockingFuture never resolves on its own, forcing awaitWithTimeout to
// hit the deadline.
type blockingFuture struct{ key keys.Key }

func (f blockingFuture) Await(ctx context.Context) sigverify.SignatureVerification {
	<-ctx.Done()
	return sigverify.SignatureVerification{Key: f.key, Passed: false}
}

func TestVerificationForMemoizesResolvedResults(t *testing.T) {
	pub := make([]byte, 32)
	k := keys.NewEd25519(pub)

	calls := 0
	futures := map[string]sigverify.Future{
		sigverify.MapKey(k): countingFuture{inner: sigverify.SignatureVerification{Key: k, Passed: true}, calls: &calls},
	}
	f := NewVerificationFacade(futures, time.Second, nil)

	f.VerificationFor(context.Background(), k)
	f.VerificationFor(context.Background(), k)
	if calls != 1 {
		t.Errorf("expected the future to be awaited exactly once across repeated calls, got %d", calls)
	}
}

func TestVerificationForHaltsOnTimeoutWhenConfigured(t *testing.T) {
	k := keys.NewEd25519(make([]byte, 32))
	futures := map[string]sigverify.Future{sigverify.MapKey(k): blockingFuture{key: k}}

	f := NewVerificationFacadeWithHalt(futures, 10*time.Millisecond, log.New(log.Writer(), "", 0), true)
	halted := false
	f.halt = func() { halted = true }

	f.VerificationFor(context.Background(), k)
	if !halted {
		t.Error("expected a verification timeout to invoke halt when haltOnVerificationTimeout is set")
	}
}

func TestVerificationForDowngradesOnTimeoutByDefault(t *testing.T) {
	k := keys.NewEd25519(make([]byte, 32))
	futures := map[string]sigverify.Future{sigverify.MapKey(k): blockingFuture{key: k}}

	f := NewVerificationFacade(futures, 10*time.Millisecond, log.New(log.Writer(), "", 0))
	halted := false
	f.halt = func() { halted = true }

	v := f.VerificationFor(context.Background(), k)
	if halted {
		t.Error("expected no halt when haltOnVerificationTimeout is unset")
	}
	if v.Passed {
		t.Error("expected a timed-out verification to downgrade to failed")
	}
}

type countingFuture struct {
	inner sigverify.SignatureVerification
	calls *int
}

func (f countingFuture) Await(ctx context.Context) sigverify.SignatureVerification {
	*f.calls++
	return f.inner
}
