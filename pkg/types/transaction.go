// Copyright 2025 Ledgerflow Authors

package types

import (
	"bytes"
	"time"
)

// TransactionID is payer account + nanosecond-precision valid-start
// timestamp + nonce (spec.md §3 TransactionInfo).
type TransactionID struct {
	Payer      AccountID
	ValidStart time.Time
	Nonce      uint32
}

func (id TransactionID) Equal(o TransactionID) bool {
	return id.Payer.Equal(o.Payer) && id.ValidStart.Equal(o.ValidStart) && id.Nonce == o.Nonce
}

// Key renders a TransactionID as a string suitable for use as a map/cache
// key; dedup and record caches both index by this.
func (id TransactionID) Key() string {
	return id.Payer.String() + "@" + id.ValidStart.UTC().Format(time.RFC3339Nano) + "#" +
		itoa(uint64(id.Nonce))
}

func itoa(n uint64) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

// SignatureKind identifies the cryptographic scheme a raw signature pair
// claims, matching keys.Variant's signable arms plus the unsignable ones
// that must never reach the expander (spec.md §4.1 edge cases).
type SignatureKind int

const (
	SigKindEd25519 SignatureKind = iota
	SigKindEcdsaSecp256k1
	SigKindContract
	SigKindEcdsaP384
	SigKindRsa3072
	SigKindUnset
)

// SignaturePair is one entry of a SignatureMap: a public-key prefix (which
// may be a truncation of the full key), a signature, and its kind.
type SignaturePair struct {
	PubKeyPrefix []byte
	Signature    []byte
	Kind         SignatureKind
}

// IsPrefixOf reports whether p.PubKeyPrefix is a (possibly improper)
// prefix of keyBytes — the matching rule used by the signature expander
// (spec.md §4.1 step 2).
func (p SignaturePair) IsPrefixOf(keyBytes []byte) bool {
	if len(p.PubKeyPrefix) > len(keyBytes) {
		return false
	}
	return bytes.Equal(p.PubKeyPrefix, keyBytes[:len(p.PubKeyPrefix)])
}

// SignatureMap is the list of raw signature pairs attached to a
// transaction. The checker (C5) enforces that the prefixes are pairwise
// prefix-disjoint before pre-handle ever sees it.
type SignatureMap []SignaturePair

// TransactionBody is the minimal functional request shape the engine
// needs: a discriminant the dispatcher routes on, and an opaque field bag
// for the typed handler (per-service business logic is out of scope,
// spec.md §1). Memo participates in checker size bounds (§4.5).
type TransactionBody struct {
	Kind string
	Memo string
	// Fields carries handler-specific data (e.g. transfer amounts). The
	// engine never interprets it; only the registered handler for Kind
	// does.
	Fields map[string]any
}

// TransactionInfo is the parsed form of a raw envelope (spec.md §3).
type TransactionInfo struct {
	SignedBytes []byte
	Body        TransactionBody
	TxID        TransactionID
	Sigs        SignatureMap
}
