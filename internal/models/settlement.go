package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/paisasplit/splitledger/internal/money"
)

// Settlement records a real-world payment from one member to another that
// reduces an outstanding receivable. Its postings are anchored on
// LinkedTransactionID; a settlement without a linked transaction produces no
// postings.
type Settlement struct {
	ID                  string           `json:"id"`
	GroupID             string           `json:"group_id"`
	FromMemberID        string           `json:"from_member_id"`
	ToMemberID          string           `json:"to_member_id"`
	AccountID           string           `json:"account_id,omitempty"`
	Amount              money.Money      `json:"amount"`
	Currency            string           `json:"currency"`
	Method              SettlementMethod `json:"method"`
	Date                time.Time        `json:"date"`
	Note                string           `json:"note,omitempty"`
	LinkedTransactionID string           `json:"linked_transaction_id,omitempty"`
}

func NewSettlement(groupID, fromMemberID, toMemberID, accountID string, amount money.Money, currency string, method SettlementMethod, linkedTransactionID string) Settlement {
	return Settlement{
		ID:                  uuid.New().String(),
		GroupID:             groupID,
		FromMemberID:        fromMemberID,
		ToMemberID:          toMemberID,
		AccountID:           accountID,
		Amount:              amount,
		Currency:            currency,
		Method:              method,
		Date:                time.Now(),
		LinkedTransactionID: linkedTransactionID,
	}
}
