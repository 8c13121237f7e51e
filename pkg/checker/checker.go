// Copyright 2025 Ledgerflow Authors
//
// Package checker is the transaction checker (spec.md §4.5, component
// C5): it parses the wire bytes of a transaction envelope into a
// TransactionInfo and rejects anything structurally wrong before
// pre-handle ever sees it.
package checker

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ledgerflow/txengine/pkg/types"
)

// MaxTransactionBytes is the fixed wire-size ceiling (spec.md §4.5,
// §7 table: "max_transaction_bytes fixed 6144").
const MaxTransactionBytes = 6144

// MaxMemoBytes bounds the transaction body memo.
const MaxMemoBytes = 100

// ValidStartSkew is the small forward skew tolerated on
// transaction_id.valid_start, absorbing clock drift between the
// submitting client and consensus time (spec.md §4.5).
const ValidStartSkew = 10 * time.Second

// PreCheckException is the checker's only failure mode: a tagged
// response code, never a generic error (spec.md §4.5 "fails with a
// PreCheckException(code)").
type PreCheckException struct {
	Code types.ResponseCode
}

func (e *PreCheckException) Error() string {
	return fmt.Sprintf("checker: precheck failed: %s", e.Code)
}

func newFailure(code types.ResponseCode) error {
	return &PreCheckException{Code: code}
}

// CodeOf extracts the ResponseCode from err if it is a PreCheckException,
// defaulting to Unknown otherwise.
func CodeOf(err error) types.ResponseCode {
	var pc *PreCheckException
	if errors.As(err, &pc) {
		return pc.Code
	}
	return types.Unknown
}

// wireBody is the part of the envelope signatures are computed over.
// Keeping it a distinct, separately-marshaled JSON value (rather than a
// field among siblings of Sigs) means signed_bytes has one canonical
// encoding regardless of what else gossip wraps around it.
type wireBody struct {
	PayerShard uint64         `json:"payerShard"`
	PayerRealm uint64         `json:"payerRealm"`
	PayerNum   uint64         `json:"payerNum"`
	ValidStart int64          `json:"validStart"` // unix nanos
	Nonce      uint32         `json:"nonce"`
	Kind       string         `json:"kind"`
	Memo       string         `json:"memo"`
	Fields     map[string]any `json:"fields"`
}

// wireTransaction is the JSON-encoded envelope this engine consumes. The
// engine itself does not define the bytes-on-the-wire framing used
// between clients and nodes (that's gossip's concern); this is simply
// the structure parse_and_check expects once that framing has been
// stripped. Body is carried pre-marshaled so signed_bytes (what
// signatures are computed over) never includes the signature map
// itself.
type wireTransaction struct {
	Body json.RawMessage     `json:"body"`
	Sigs []wireSignaturePair `json:"sigs"`
}

type wireSignaturePair struct {
	PubKeyPrefix []byte `json:"pubKeyPrefix"`
	Signature    []byte `json:"signature"`
	Kind         int    `json:"kind"`
}

// EncodeBody renders a transaction body to the canonical bytes a client
// signs over, for use by callers assembling wire envelopes (tests, the
// demo node's client-facing edge).
func EncodeBody(payer types.AccountID, validStart time.Time, nonce uint32, kind, memo string, fields map[string]any) ([]byte, error) {
	return json.Marshal(wireBody{
		PayerShard: payer.Shard, PayerRealm: payer.Realm, PayerNum: payer.Num,
		ValidStart: validStart.UnixNano(), Nonce: nonce, Kind: kind, Memo: memo, Fields: fields,
	})
}

// EncodeEnvelope wraps a signed body and its signature map into the
// bytes parse_and_check expects.
func EncodeEnvelope(body []byte, sigs types.SignatureMap) ([]byte, error) {
	wireSigs := make([]wireSignaturePair, len(sigs))
	for i, s := range sigs {
		wireSigs[i] = wireSignaturePair{PubKeyPrefix: s.PubKeyPrefix, Signature: s.Signature, Kind: int(s.Kind)}
	}
	return json.Marshal(wireTransaction{Body: body, Sigs: wireSigs})
}

// ParseAndCheck enforces spec.md §4.5's contract: size bound,
// parseability, non-null transaction id, valid-start window, payer
// shape, memo bound, and pairwise prefix-disjoint signature entries.
func ParseAndCheck(rawBytes []byte, consensusNow time.Time, maxValidDuration time.Duration) (*types.TransactionInfo, error) {
	if len(rawBytes) == 0 || len(rawBytes) > MaxTransactionBytes {
		return nil, newFailure(types.TransactionOversize)
	}

	var wire wireTransaction
	if err := json.Unmarshal(rawBytes, &wire); err != nil || len(wire.Body) == 0 {
		return nil, newFailure(types.InvalidTransaction)
	}
	var body wireBody
	if err := json.Unmarshal(wire.Body, &body); err != nil {
		return nil, newFailure(types.InvalidTransaction)
	}

	payer := types.AccountID{Shard: body.PayerShard, Realm: body.PayerRealm, Num: body.PayerNum}
	if !payer.IsWellFormed() {
		return nil, newFailure(types.InvalidPayerAccountID)
	}

	if body.Kind == "" {
		return nil, newFailure(types.InvalidTransactionBody)
	}

	validStart := time.Unix(0, body.ValidStart)
	if validStart.IsZero() {
		return nil, newFailure(types.InvalidTransactionStart)
	}
	earliest := consensusNow.Add(-maxValidDuration)
	latest := consensusNow.Add(ValidStartSkew)
	if validStart.Before(earliest) {
		return nil, newFailure(types.TransactionExpired)
	}
	if validStart.After(latest) {
		return nil, newFailure(types.InvalidTransactionStart)
	}

	if len(body.Memo) > MaxMemoBytes {
		return nil, newFailure(types.MemoTooLong)
	}

	sigs, err := toSignatureMap(wire.Sigs)
	if err != nil {
		return nil, err
	}
	if err := checkPrefixDisjoint(sigs); err != nil {
		return nil, err
	}

	txID := types.TransactionID{Payer: payer, ValidStart: validStart, Nonce: body.Nonce}
	info := &types.TransactionInfo{
		SignedBytes: []byte(wire.Body),
		Body:        types.TransactionBody{Kind: body.Kind, Memo: body.Memo, Fields: body.Fields},
		TxID:        txID,
		Sigs:        sigs,
	}
	return info, nil
}

func toSignatureMap(wireSigs []wireSignaturePair) (types.SignatureMap, error) {
	out := make(types.SignatureMap, 0, len(wireSigs))
	for _, s := range wireSigs {
		kind := types.SignatureKind(s.Kind)
		if kind < types.SigKindEd25519 || kind > types.SigKindUnset {
			return nil, newFailure(types.InvalidSignature)
		}
		out = append(out, types.SignaturePair{PubKeyPrefix: s.PubKeyPrefix, Signature: s.Signature, Kind: kind})
	}
	return out, nil
}

// checkPrefixDisjoint enforces that no two SignatureMap entries' prefixes
// are prefixes of one another, which would make required-key matching
// ambiguous downstream (spec.md §4.5).
func checkPrefixDisjoint(sigs types.SignatureMap) error {
	for i := 0; i < len(sigs); i++ {
		for j := i + 1; j < len(sigs); j++ {
			if isPrefixEither(sigs[i].PubKeyPrefix, sigs[j].PubKeyPrefix) {
				return newFailure(types.InvalidSignature)
			}
		}
	}
	return nil
}

func isPrefixEither(a, b []byte) bool {
	return hasPrefix(a, b) || hasPrefix(b, a)
}

func hasPrefix(s, prefix []byte) bool {
	if len(prefix) > len(s) {
		return false
	}
	for i := range prefix {
		if s[i] != prefix[i] {
			return false
		}
	}
	return true
}
