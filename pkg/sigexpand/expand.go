// Copyright 2025 Ledgerflow Authors
//
// Package sigexpand matches required keys against a transaction's raw
// signature map and prepares verification jobs for pkg/sigverify
// (spec.md §4.1, component C1).
package sigexpand

import (
	"errors"
	"fmt"

	gethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/ledgerflow/txengine/pkg/keys"
	"github.com/ledgerflow/txengine/pkg/sigverify"
	"github.com/ledgerflow/txengine/pkg/types"
)

// ErrUnsupportedKind is returned for signature kinds that must never
// reach the expander (CONTRACT, ECDSA_384, RSA_3072, UNSET) — spec.md
// §4.1 "Edge cases".
var ErrUnsupportedKind = errors.New("sigexpand: unsupported signature kind")

// ExpandedSignaturePair is one matched (key, raw signature) ready for
// verification, plus the derived EVM alias for ECDSA keys.
type ExpandedSignaturePair struct {
	Key       keys.Key
	Alias     *[20]byte
	SignedMsg []byte
	Signature []byte
}

// Expand matches every cryptographic leaf in requiredKeys against the
// unique raw pair whose public-key prefix is a proper prefix of the
// key's bytes (spec.md §4.1 steps 1-2), skipping composite keys (they
// have no signature of their own — their leaves are matched
// individually by the caller, which is expected to flatten them first
// via keys.Set built from Collapse).
func Expand(signedBytes []byte, sigs types.SignatureMap, requiredKeys []keys.Key) ([]ExpandedSignaturePair, error) {
	out := make([]ExpandedSignaturePair, 0, len(requiredKeys))
	for _, k := range requiredKeys {
		if k.IsComposite() {
			continue
		}
		switch k.Variant() {
		case keys.VariantEd25519, keys.VariantEcdsaSecp256k1:
		default:
			return nil, fmt.Errorf("%w: variant %d", ErrUnsupportedKind, k.Variant())
		}

		raw, ok := matchUniquePrefix(sigs, k.Bytes())
		if !ok {
			// No matching raw pair: per spec.md §4.1 step 2, do not emit;
			// the key will fail verification deterministically downstream.
			continue
		}

		pair := ExpandedSignaturePair{Key: k, SignedMsg: signedBytes, Signature: raw.Signature}
		if k.Variant() == keys.VariantEcdsaSecp256k1 {
			alias, err := AliasOf(k.Bytes())
			if err != nil {
				return nil, err
			}
			pair.Alias = &alias
		}
		out = append(out, pair)
	}
	return out, nil
}

// matchUniquePrefix finds the raw pair whose PubKeyPrefix is a proper
// prefix of keyBytes. The checker (C5) already guarantees pairwise
// prefix-disjointness, so at most one pair can match; the first hit
// wins.
func matchUniquePrefix(sigs types.SignatureMap, keyBytes []byte) (types.SignaturePair, bool) {
	for _, s := range sigs {
		if s.IsPrefixOf(keyBytes) {
			return s, true
		}
	}
	return types.SignaturePair{}, false
}

// AliasOf derives the 20-byte EVM-style alias for an ECDSA secp256k1
// public key: keccak256(uncompressed_public_key[1:])[12:32] (spec.md
// §4.1 step 3; grounded on the teacher's
// pkg/verification/unified_verifier.go use of go-ethereum's keccak256).
func AliasOf(uncompressedPubKey []byte) ([20]byte, error) {
	var alias [20]byte
	if len(uncompressedPubKey) != 65 || uncompressedPubKey[0] != 0x04 {
		return alias, fmt.Errorf("sigexpand: expected a 65-byte uncompressed secp256k1 key, got %d bytes", len(uncompressedPubKey))
	}
	h := gethcrypto.Keccak256(uncompressedPubKey[1:])
	copy(alias[:], h[12:32])
	return alias, nil
}

// ToJobs converts expanded pairs into sigverify.PreparedJob values ready
// for Engine.Verify.
func ToJobs(pairs []ExpandedSignaturePair) []sigverify.PreparedJob {
	jobs := make([]sigverify.PreparedJob, 0, len(pairs))
	for _, p := range pairs {
		variant := p.Key.Variant()
		signedMsg := p.SignedMsg
		if variant == keys.VariantEcdsaSecp256k1 {
			signedMsg = gethcrypto.Keccak256(p.SignedMsg)
		}
		jobs = append(jobs, sigverify.PreparedJob{
			Key:   p.Key,
			Alias: p.Alias,
			Job: sigverify.Job{
				Variant:   variant,
				SignedMsg: signedMsg,
				Signature: p.Signature,
				KeyBytes:  p.Key.Bytes(),
			},
		})
	}
	return jobs
}

// Collapse flattens a key tree into its cryptographic leaves, used by
// callers (pkg/prehandle, pkg/handle) to turn a KeyList/ThresholdKey
// requirement into the individual leaves Expand operates on.
func Collapse(k keys.Key) []keys.Key {
	if k.IsCryptoLeaf() {
		return []keys.Key{k}
	}
	if !k.IsComposite() {
		return nil
	}
	var leaves []keys.Key
	for _, c := range k.Children() {
		leaves = append(leaves, Collapse(c)...)
	}
	return leaves
}
