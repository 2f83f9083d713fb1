package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/paisasplit/splitledger/internal/money"
)

// Transaction represents one money-moving event: a plain expense, a split
// expense, a transfer, or a settlement anchor. A transaction is immutable
// once its postings have been generated; corrections are expressed as a new
// transaction plus a reversal, never as an in-place edit.
type Transaction struct {
	ID            string          `json:"id"`
	Kind          TransactionKind `json:"kind"`
	Title         string          `json:"title"`
	Note          string          `json:"note,omitempty"`
	AccountID     string          `json:"account_id"`
	CategoryID    string          `json:"category_id,omitempty"`
	AmountTotal   money.Money     `json:"amount_total"`
	Currency      string          `json:"currency"`
	Date          time.Time       `json:"date"`
	GroupID       string          `json:"group_id,omitempty"`
	PayerMemberID string          `json:"payer_member_id,omitempty"`
	Deleted       bool            `json:"deleted"`
	CreatedAt     time.Time       `json:"created_at"`
}

// NewSplitTransaction builds a split-expense transaction paid from accountID
// on behalf of groupID, with payerMemberID identifying who fronted the money.
func NewSplitTransaction(title, accountID, groupID, payerMemberID string, total money.Money, currency string) Transaction {
	now := time.Now()
	return Transaction{
		ID:            uuid.New().String(),
		Kind:          KindSplit,
		Title:         title,
		AccountID:     accountID,
		AmountTotal:   total,
		Currency:      currency,
		Date:          now,
		GroupID:       groupID,
		PayerMemberID: payerMemberID,
		CreatedAt:     now,
	}
}

// NewTransferTransaction builds a transfer out of accountID. The destination
// account is supplied to the ledger when postings are generated.
func NewTransferTransaction(title, accountID string, total money.Money, currency string) Transaction {
	now := time.Now()
	return Transaction{
		ID:          uuid.New().String(),
		Kind:        KindTransfer,
		Title:       title,
		AccountID:   accountID,
		AmountTotal: total,
		Currency:    currency,
		Date:        now,
		CreatedAt:   now,
	}
}

// Split is one member's allocated share of a split transaction's total.
// SharePercent and ShareCount record the input the share was resolved from;
// they are never re-derived. For one transaction the share amounts of all
// included splits sum exactly to the transaction total.
type Split struct {
	ID            string      `json:"id"`
	TransactionID string      `json:"transaction_id"`
	MemberID      string      `json:"member_id"`
	ShareAmount   money.Money `json:"share_amount"`
	SharePercent  *float64    `json:"share_percent,omitempty"`
	ShareCount    *int        `json:"share_count,omitempty"`
	Included      bool        `json:"included"`
	Status        SplitStatus `json:"status"`
	SettledAmount money.Money `json:"settled_amount"`
}

func NewSplit(transactionID, memberID string, share money.Money) Split {
	return Split{
		ID:            uuid.New().String(),
		TransactionID: transactionID,
		MemberID:      memberID,
		ShareAmount:   share,
		Included:      true,
		Status:        SplitOpen,
		SettledAmount: money.Zero(),
	}
}

// Remaining is the part of the share not yet settled back to the payer.
func (s Split) Remaining() money.Money {
	return s.ShareAmount.Sub(s.SettledAmount)
}
