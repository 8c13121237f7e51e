// Copyright 2025 Ledgerflow Authors

package types

// ResponseCode is the domain status code surfaced on every TransactionRecord
// receipt (spec.md §3, §6). Non-exhaustive by design — typed handlers may
// return codes not enumerated here.
type ResponseCode string

const (
	OK                          ResponseCode = "OK"
	Unknown                     ResponseCode = "UNKNOWN"
	InvalidTransaction          ResponseCode = "INVALID_TRANSACTION"
	PayerAccountNotFound        ResponseCode = "PAYER_ACCOUNT_NOT_FOUND"
	InvalidAccountAmounts       ResponseCode = "INVALID_ACCOUNT_AMOUNTS"
	InvalidSignature            ResponseCode = "INVALID_SIGNATURE"
	InvalidPayerAccountID       ResponseCode = "INVALID_PAYER_ACCOUNT_ID"
	InvalidTransferAccountID    ResponseCode = "INVALID_TRANSFER_ACCOUNT_ID"
	MemoTooLong                 ResponseCode = "MEMO_TOO_LONG"
	InvalidTransactionStart     ResponseCode = "INVALID_TRANSACTION_START"
	TransactionExpired          ResponseCode = "TRANSACTION_EXPIRED"
	DuplicateTransaction        ResponseCode = "DUPLICATE_TRANSACTION"
	TransactionOversize         ResponseCode = "TRANSACTION_OVERSIZE"
	InvalidTransactionBody      ResponseCode = "INVALID_TRANSACTION_BODY"
)

// PreHandleStatus is the coarse-grained outcome of a pre-handle attempt
// (spec.md §3 PreHandleResult).
type PreHandleStatus int

const (
	SoFarSoGood PreHandleStatus = iota
	NodeDueDiligenceFailure
	PreHandleFailure
	UnknownFailure
)

func (s PreHandleStatus) String() string {
	switch s {
	case SoFarSoGood:
		return "SO_FAR_SO_GOOD"
	case NodeDueDiligenceFailure:
		return "NODE_DUE_DILIGENCE_FAILURE"
	case PreHandleFailure:
		return "PRE_HANDLE_FAILURE"
	case UnknownFailure:
		return "UNKNOWN_FAILURE"
	default:
		return "UNKNOWN_STATUS"
	}
}
