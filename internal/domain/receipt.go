package domain

import "github.com/ethereum/go-ethereum/common"

// TxID is the hash of an individually submitted transaction.
type TxID = common.Hash

// ReceiptStatus is the on-chain outcome of a finalized transaction.
type ReceiptStatus int

const (
	ReceiptSuccess ReceiptStatus = iota
	ReceiptReverted
)

// String returns a human-readable representation of the receipt status.
func (s ReceiptStatus) String() string {
	switch s {
	case ReceiptSuccess:
		return "success"
	case ReceiptReverted:
		return "reverted"
	default:
		return "unknown"
	}
}

// Receipt reports the finalization of a submitted transaction.
type Receipt struct {
	TxID        TxID
	Status      ReceiptStatus
	BlockNumber uint64
}

// Succeeded returns true if the transaction was applied.
func (r Receipt) Succeeded() bool {
	return r.Status == ReceiptSuccess
}
