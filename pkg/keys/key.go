// Copyright 2025 Ledgerflow Authors
//
// Package keys defines the cryptographic key sum type shared by signature
// expansion, verification, and the handle-context facade. A Key is either
// a signable leaf (Ed25519, ECDSA secp256k1), a signable composite
// (KeyList, ThresholdKey), or a structurally-valid-but-unsignable variant
// that always yields a failed verification.
package keys

import "bytes"

// Variant identifies which arm of the Key sum type a value occupies.
type Variant int

const (
	VariantUnset Variant = iota
	VariantEd25519
	VariantEcdsaSecp256k1
	VariantKeyList
	VariantThresholdKey
	VariantContractID
	VariantDelegatableContractID
	VariantEcdsaP384
	VariantRsa3072
)

// Key is an immutable value; construct one with the New* helpers below.
// Only VariantEd25519, VariantEcdsaSecp256k1, VariantKeyList, and
// VariantThresholdKey ever participate in signing. Everything else is
// structurally valid but deterministically fails verification.
type Key struct {
	variant   Variant
	bytes     []byte // leaf key material (Ed25519 / ECDSA / ContractID bytes)
	threshold uint32 // raw threshold, unclamped, for VariantThresholdKey
	children  []Key  // for VariantKeyList / VariantThresholdKey
}

func NewEd25519(b []byte) Key {
	return Key{variant: VariantEd25519, bytes: append([]byte(nil), b...)}
}

func NewEcdsaSecp256k1(b []byte) Key {
	return Key{variant: VariantEcdsaSecp256k1, bytes: append([]byte(nil), b...)}
}

func NewKeyList(children []Key) Key {
	return Key{variant: VariantKeyList, children: append([]Key(nil), children...)}
}

func NewThresholdKey(threshold uint32, children []Key) Key {
	return Key{variant: VariantThresholdKey, threshold: threshold, children: append([]Key(nil), children...)}
}

func NewContractID(b []byte) Key {
	return Key{variant: VariantContractID, bytes: append([]byte(nil), b...)}
}

func NewDelegatableContractID(b []byte) Key {
	return Key{variant: VariantDelegatableContractID, bytes: append([]byte(nil), b...)}
}

func NewEcdsaP384(b []byte) Key {
	return Key{variant: VariantEcdsaP384, bytes: append([]byte(nil), b...)}
}

func NewRsa3072(b []byte) Key {
	return Key{variant: VariantRsa3072, bytes: append([]byte(nil), b...)}
}

func (k Key) Variant() Variant { return k.variant }
func (k Key) Bytes() []byte    { return k.bytes }
func (k Key) Children() []Key  { return k.children }

// IsUnset reports whether this is the zero-value Key (no variant set).
func (k Key) IsUnset() bool { return k.variant == VariantUnset }

// IsCryptoLeaf reports whether this key is an Ed25519 or ECDSA secp256k1
// leaf — the only variants the verification_results map is keyed by.
func (k Key) IsCryptoLeaf() bool {
	return k.variant == VariantEd25519 || k.variant == VariantEcdsaSecp256k1
}

// IsComposite reports whether this key is a KeyList or ThresholdKey.
func (k Key) IsComposite() bool {
	return k.variant == VariantKeyList || k.variant == VariantThresholdKey
}

// EffectiveThreshold returns the clamped threshold for a ThresholdKey:
// t < 1 becomes 1, t > len(children) becomes len(children). Calling this
// on a non-ThresholdKey returns 0.
func (k Key) EffectiveThreshold() uint32 {
	if k.variant != VariantThresholdKey {
		return 0
	}
	n := uint32(len(k.children))
	if n == 0 {
		return 0
	}
	t := k.threshold
	if t < 1 {
		t = 1
	}
	if t > n {
		t = n
	}
	return t
}

// Equal implements exact structural equality, used as the map key
// comparison for verification_results (cryptographic leaves only, but
// defined generally for composite keys too since Equal is also used in
// required-key set membership tests).
func (k Key) Equal(o Key) bool {
	if k.variant != o.variant {
		return false
	}
	switch k.variant {
	case VariantEd25519, VariantEcdsaSecp256k1, VariantContractID,
		VariantDelegatableContractID, VariantEcdsaP384, VariantRsa3072:
		return bytes.Equal(k.bytes, o.bytes)
	case VariantKeyList:
		return equalChildren(k.children, o.children)
	case VariantThresholdKey:
		return k.threshold == o.threshold && equalChildren(k.children, o.children)
	case VariantUnset:
		return true
	default:
		return false
	}
}

func equalChildren(a, b []Key) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

// Set is an unordered collection of Keys deduplicated by Equal, used for
// the required_keys set accumulated during pre-handle (§3, §4.6 step 6).
type Set struct {
	items []Key
}

func NewSet() *Set { return &Set{} }

// Add inserts k if no equal key is already present.
func (s *Set) Add(k Key) {
	for _, e := range s.items {
		if e.Equal(k) {
			return
		}
	}
	s.items = append(s.items, k)
}

func (s *Set) Items() []Key {
	return append([]Key(nil), s.items...)
}

func (s *Set) Len() int { return len(s.items) }
