// Copyright 2025 Ledgerflow Authors

package types

import "time"

// Receipt is the minimal, always-available outcome summary for a
// transaction id (spec.md §3 "Transaction record"): response code plus
// whatever identifiers the dispatched handler chose to mint.
type Receipt struct {
	Status    ResponseCode
	NewIDs    []AccountID
	RunningHash []byte
}

// TransactionRecord is the durable record of one handled transaction,
// fed into the record cache (C4) and, when enabled, the audit mirror
// (pkg/audit). Fields mirror spec.md §3/§6: consensus timestamp, the
// transaction id it belongs to, fee charged, the receipt, and a free-form
// memo copied from the transaction body for query convenience.
type TransactionRecord struct {
	TxID               TransactionID
	ConsensusTimestamp time.Time
	Receipt            Receipt
	Memo               string
	TransactionFee     uint64
}

func NewTransactionRecord(txID TransactionID, consensusTimestamp time.Time, receipt Receipt, memo string, fee uint64) TransactionRecord {
	return TransactionRecord{
		TxID:               txID,
		ConsensusTimestamp: consensusTimestamp,
		Receipt:            receipt,
		Memo:               memo,
		TransactionFee:     fee,
	}
}
