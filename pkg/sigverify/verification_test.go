// Copyright 2025 Ledgerflow Authors

package sigverify

import (
	"context"
	"crypto/ed25519"
	"testing"
	"time"

	"github.com/ledgerflow/txengine/pkg/keys"
)

func TestLeafAwaitPassResolvesTrue(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatal(err)
	}
	msg := []byte("hello")
	sig := ed25519.Sign(priv, msg)

	eng := NewEngine(SyncEngine{})
	k := keys.NewEd25519(pub)
	prepared := []PreparedJob{{Key: k, Job: Job{Variant: keys.VariantEd25519, SignedMsg: msg, Signature: sig, KeyBytes: pub}}}

	futures := eng.Verify(context.Background(), prepared)
	f, ok := futures[MapKey(k)]
	if !ok {
		t.Fatal("expected a future keyed by the Ed25519 key")
	}
	v := f.Await(context.Background())
	if !v.Passed {
		t.Error("expected verification to pass for a valid signature")
	}
}

func TestLeafAwaitFailsOnBadSignature(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatal(err)
	}
	eng := NewEngine(SyncEngine{})
	k := keys.NewEd25519(pub)
	prepared := []PreparedJob{{Key: k, Job: Job{Variant: keys.VariantEd25519, SignedMsg: []byte("x"), Signature: make([]byte, 64), KeyBytes: pub}}}

	futures := eng.Verify(context.Background(), prepared)
	v := futures[MapKey(k)].Await(context.Background())
	if v.Passed {
		t.Error("garbage signature must not verify")
	}
}

func TestCompoundKeyListRequiresAllChildren(t *testing.T) {
	pass := staticFuture(true)
	fail := staticFuture(false)

	allPass := NewCompound(keys.NewKeyList(nil), []Future{pass, pass}, 0)
	if !allPass.Await(context.Background()).Passed {
		t.Error("KeyList with all-passing children should pass")
	}

	oneFails := NewCompound(keys.NewKeyList(nil), []Future{pass, fail}, 0)
	if oneFails.Await(context.Background()).Passed {
		t.Error("KeyList with any failing child should fail")
	}
}

func TestCompoundThresholdTolerance(t *testing.T) {
	pass := staticFuture(true)
	fail := staticFuture(false)

	// ThresholdKey(2, 3 children), one fails -> numCanFail = 3-2 = 1
	twoOfThree := NewCompound(keys.NewThresholdKey(2, nil), []Future{pass, fail, pass}, 1)
	if !twoOfThree.Await(context.Background()).Passed {
		t.Error("2-of-3 threshold with exactly one failure should pass")
	}

	tooManyFail := NewCompound(keys.NewThresholdKey(2, nil), []Future{fail, fail, pass}, 1)
	if tooManyFail.Await(context.Background()).Passed {
		t.Error("2-of-3 threshold with two failures should fail")
	}
}

func TestCompoundEmptyChildrenFails(t *testing.T) {
	empty := NewCompound(keys.NewThresholdKey(1, nil), nil, 0)
	if empty.Await(context.Background()).Passed {
		t.Error("empty child list must yield a failed verification")
	}
}

func TestLeafAwaitTimesOutToFailed(t *testing.T) {
	neverCh := make(chan bool)
	l := newLeaf(keys.NewEd25519([]byte{1}), nil, neverCh)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	v := l.Await(ctx)
	if v.Passed {
		t.Error("timed-out leaf future must resolve failed")
	}
}

// staticFuture builds a Future that always resolves to a fixed pass/fail
// value, used to test Compound composition in isolation from real crypto.
func staticFuture(passed bool) Future {
	ch := make(chan bool, 1)
	ch <- passed
	close(ch)
	return newLeaf(keys.Key{}, nil, ch)
}
