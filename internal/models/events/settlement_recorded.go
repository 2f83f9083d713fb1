package events

import (
	"time"

	"github.com/paisasplit/splitledger/internal/money"
)

// SettlementRecorded is published after a settlement and its postings have
// been committed.
type SettlementRecorded struct {
	SettlementID string      `json:"settlement_id"`
	GroupID      string      `json:"group_id"`
	FromMemberID string      `json:"from_member_id"`
	ToMemberID   string      `json:"to_member_id"`
	Amount       money.Money `json:"amount"`
	OccurredAt   time.Time   `json:"occurred_at"`
}
