// Copyright 2025 Ledgerflow Authors

package keys

import "testing"

func TestEffectiveThresholdClamping(t *testing.T) {
	children := []Key{NewEd25519([]byte{1}), NewEd25519([]byte{2}), NewEd25519([]byte{3})}

	low := NewThresholdKey(0, children)
	if got := low.EffectiveThreshold(); got != 1 {
		t.Errorf("threshold 0 should clamp to 1, got %d", got)
	}

	high := NewThresholdKey(10, children)
	if got := high.EffectiveThreshold(); got != 3 {
		t.Errorf("threshold 10 should clamp to len(children)=3, got %d", got)
	}

	exact := NewThresholdKey(2, children)
	if got := exact.EffectiveThreshold(); got != 2 {
		t.Errorf("threshold 2 should stay 2, got %d", got)
	}

	empty := NewThresholdKey(2, nil)
	if got := empty.EffectiveThreshold(); got != 0 {
		t.Errorf("empty children should yield threshold 0, got %d", got)
	}
}

func TestKeyEqual(t *testing.T) {
	a := NewEd25519([]byte{1, 2, 3})
	b := NewEd25519([]byte{1, 2, 3})
	c := NewEd25519([]byte{1, 2, 4})

	if !a.Equal(b) {
		t.Fatal("identical Ed25519 keys should be equal")
	}
	if a.Equal(c) {
		t.Fatal("different Ed25519 keys should not be equal")
	}

	ecdsa := NewEcdsaSecp256k1([]byte{1, 2, 3})
	if a.Equal(ecdsa) {
		t.Fatal("keys of different variants with the same bytes must not be equal")
	}

	list1 := NewKeyList([]Key{a, ecdsa})
	list2 := NewKeyList([]Key{a, ecdsa})
	list3 := NewKeyList([]Key{ecdsa, a})
	if !list1.Equal(list2) {
		t.Fatal("identical key lists should be equal")
	}
	if list1.Equal(list3) {
		t.Fatal("key lists in a different order should not be equal")
	}
}

func TestSetDeduplicates(t *testing.T) {
	s := NewSet()
	k1 := NewEd25519([]byte{9, 9})
	k2 := NewEd25519([]byte{9, 9})
	s.Add(k1)
	s.Add(k2)
	if s.Len() != 1 {
		t.Fatalf("expected deduplication, got %d items", s.Len())
	}
	s.Add(NewEd25519([]byte{1}))
	if s.Len() != 2 {
		t.Fatalf("expected 2 distinct items, got %d", s.Len())
	}
}

func TestIsCryptoLeafAndComposite(t *testing.T) {
	if !NewEd25519([]byte{1}).IsCryptoLeaf() {
		t.Error("Ed25519 should be a crypto leaf")
	}
	if !NewEcdsaSecp256k1([]byte{1}).IsCryptoLeaf() {
		t.Error("EcdsaSecp256k1 should be a crypto leaf")
	}
	if NewContractID([]byte{1}).IsCryptoLeaf() {
		t.Error("ContractID should not be a crypto leaf")
	}
	if !NewKeyList(nil).IsComposite() {
		t.Error("KeyList should be composite")
	}
	if !NewThresholdKey(1, nil).IsComposite() {
		t.Error("ThresholdKey should be composite")
	}
}
