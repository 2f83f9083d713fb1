package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/paisasplit/splitledger/internal/money"
)

// Account is a place money lives: cash in hand, a bank account, a wallet.
// CurrentBalance always equals OpeningBalance plus the algebraic sum of every
// posting ever applied against the account. Accounts are never deleted, only
// archived.
type Account struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Type           AccountType     `json:"type"`
	OpeningBalance money.Money     `json:"opening_balance"`
	CurrentBalance money.Money     `json:"current_balance"`
	Currency       string          `json:"currency"`
	Archived       bool            `json:"archived"`
	Icon           string          `json:"icon,omitempty"`
	Color          string          `json:"color,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// NewAccount opens an account with its current balance equal to the opening
// balance.
func NewAccount(name string, typ AccountType, opening money.Money, currency string) Account {
	return Account{
		ID:             uuid.New().String(),
		Name:           name,
		Type:           typ,
		OpeningBalance: opening,
		CurrentBalance: opening,
		Currency:       currency,
		CreatedAt:      time.Now(),
	}
}
