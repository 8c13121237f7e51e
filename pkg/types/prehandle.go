// Copyright 2025 Ledgerflow Authors

package types

import (
	"github.com/ledgerflow/txengine/pkg/keys"
	"github.com/ledgerflow/txengine/pkg/sigverify"
)

// PreHandleResult is the tagged record attached to an envelope's metadata
// slot after a pre-handle attempt (spec.md §3 PreHandleResult).
//
// Invariants enforced by construction (see the New* constructors below),
// not by callers: SoFarSoGood implies TxInfo/Payer/VerificationResults are
// set; NodeDueDiligenceFailure implies Payer is the creator node account;
// UnknownFailure implies every optional field is zero and the code is
// Unknown.
type PreHandleResult struct {
	Status              PreHandleStatus
	ResponseCode         ResponseCode
	Payer                *AccountID
	PayerKey             *keys.Key
	TxInfo               *TransactionInfo
	RequiredKeys         *keys.Set
	VerificationResults  map[string]sigverify.Future
	InnerResult          *PreHandleResult
	ConfigVersion        uint64
}

// NewSoFarSoGood builds the success-path result (spec.md invariant:
// status=SO_FAR_SO_GOOD ⇒ tx_info≠null ∧ payer≠null ∧ verification_results≠null).
func NewSoFarSoGood(payer AccountID, payerKey keys.Key, info *TransactionInfo, required *keys.Set, verifications map[string]sigverify.Future, configVersion uint64) *PreHandleResult {
	if verifications == nil {
		verifications = map[string]sigverify.Future{}
	}
	if required == nil {
		required = keys.NewSet()
	}
	return &PreHandleResult{
		Status:              SoFarSoGood,
		ResponseCode:         OK,
		Payer:                &payer,
		PayerKey:             &payerKey,
		TxInfo:               info,
		RequiredKeys:         required,
		VerificationResults:  verifications,
		ConfigVersion:        configVersion,
	}
}

// NewNodeDueDiligenceFailure builds a due-diligence failure; payer is
// always the creator node's account id (spec.md invariant).
func NewNodeDueDiligenceFailure(creator AccountID, code ResponseCode, info *TransactionInfo, configVersion uint64) *PreHandleResult {
	return &PreHandleResult{
		Status:        NodeDueDiligenceFailure,
		ResponseCode:  code,
		Payer:         &creator,
		TxInfo:        info,
		ConfigVersion: configVersion,
	}
}

// NewPreHandleFailure builds a pre-handle (payer-chargeable) failure.
func NewPreHandleFailure(payer AccountID, code ResponseCode, info *TransactionInfo, verifications map[string]sigverify.Future, configVersion uint64) *PreHandleResult {
	if verifications == nil {
		verifications = map[string]sigverify.Future{}
	}
	return &PreHandleResult{
		Status:              PreHandleFailure,
		ResponseCode:         code,
		Payer:                &payer,
		TxInfo:               info,
		VerificationResults:  verifications,
		ConfigVersion:        configVersion,
	}
}

// NewUnknownFailure builds the catch-all result: no one is billed, every
// optional field stays nil, code is Unknown (spec.md invariant).
func NewUnknownFailure(configVersion uint64) *PreHandleResult {
	return &PreHandleResult{
		Status:        UnknownFailure,
		ResponseCode:  Unknown,
		ConfigVersion: configVersion,
	}
}

// WithInner returns a copy of r with inner set as its InnerResult, used
// when the handle workflow re-runs pre-handle and wants to preserve the
// prior (stale/failed) result for observability (spec.md §4.7 step 2).
func (r *PreHandleResult) WithInner(inner *PreHandleResult) *PreHandleResult {
	cp := *r
	cp.InnerResult = inner
	return &cp
}

// IsRerunnable reports whether the handle workflow must re-run pre-handle
// for this result (spec.md §4.7 step 2: absent, PRE_HANDLE_FAILURE,
// UNKNOWN_FAILURE, or stale config_version).
func (r *PreHandleResult) IsRerunnable(currentConfigVersion uint64) bool {
	if r == nil {
		return true
	}
	if r.Status == PreHandleFailure || r.Status == UnknownFailure {
		return true
	}
	return r.ConfigVersion != currentConfigVersion
}
