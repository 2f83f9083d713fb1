package events

import (
	"time"

	"github.com/paisasplit/splitledger/internal/money"
)

// TransactionPosted is published after a split transaction and its postings
// have been committed.
type TransactionPosted struct {
	TransactionID string      `json:"transaction_id"`
	AccountID     string      `json:"account_id"`
	GroupID       string      `json:"group_id,omitempty"`
	AmountTotal   money.Money `json:"amount_total"`
	Currency      string      `json:"currency"`
	EntryCount    int         `json:"entry_count"`
	OccurredAt    time.Time   `json:"occurred_at"`
}
