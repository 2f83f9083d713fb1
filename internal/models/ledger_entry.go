package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/paisasplit/splitledger/internal/money"
)

// LedgerEntry is one signed, immutable economic fact derived from a
// transaction or settlement. Exactly one of AccountID or MemberID is the
// subject of an entry, determined by its type: cash and transfer entries hit
// an account, receivable and write-off entries hit a member, expense and
// income entries carry a category. Entries are never mutated or deleted once
// persisted; corrections are additive.
type LedgerEntry struct {
	ID            string          `json:"id"`
	TransactionID string          `json:"transaction_id"`
	Type          LedgerEntryType `json:"type"`
	AccountID     string          `json:"account_id,omitempty"`
	MemberID      string          `json:"member_id,omitempty"`
	CategoryID    string          `json:"category_id,omitempty"`
	AmountSigned  money.Money     `json:"amount_signed"`
	Currency      string          `json:"currency"`
	CreatedAt     time.Time       `json:"created_at"`
}

// NewLedgerEntry builds an entry with a fresh identity. The ledger engine is
// the only intended caller.
func NewLedgerEntry(transactionID string, typ LedgerEntryType, amount money.Money, currency string) LedgerEntry {
	return LedgerEntry{
		ID:            uuid.New().String(),
		TransactionID: transactionID,
		Type:          typ,
		AmountSigned:  amount,
		Currency:      currency,
		CreatedAt:     time.Now(),
	}
}
