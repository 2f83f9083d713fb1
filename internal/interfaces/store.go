package interfaces

import (
	"context"

	"github.com/paisasplit/splitledger/internal/models"
)

// Store is the persistence collaborator the ledger core requires: upserts by
// identity for master data, read-all and read-by-parent queries, and
// atomic units of work that persist a money-moving action together with its
// postings and the affected balance updates. Ledger entries are insert-only;
// no Store method mutates or deletes one.
type Store interface {
	UpsertAccount(ctx context.Context, account models.Account) error
	UpsertCategory(ctx context.Context, category models.Category) error
	UpsertGroup(ctx context.Context, group models.Group) error
	UpsertMember(ctx context.Context, member models.Member) error

	Account(ctx context.Context, id string) (models.Account, error)
	Accounts(ctx context.Context) ([]models.Account, error)
	Groups(ctx context.Context) ([]models.Group, error)
	Members(ctx context.Context, groupID string) ([]models.Member, error)
	Transactions(ctx context.Context) ([]models.Transaction, error)
	SplitsByTransaction(ctx context.Context, transactionID string) ([]models.Split, error)
	Entries(ctx context.Context) ([]models.LedgerEntry, error)
	EntriesByAccount(ctx context.Context, accountID string) ([]models.LedgerEntry, error)
	EntriesByTransaction(ctx context.Context, transactionID string) ([]models.LedgerEntry, error)
	Settlements(ctx context.Context) ([]models.Settlement, error)

	// ApplySplitTransaction persists the transaction, its splits and its
	// postings, and debits the paying account by the transaction total, all
	// or nothing. A failure partway leaves no partial state visible.
	ApplySplitTransaction(ctx context.Context, tx models.Transaction, splits []models.Split, entries []models.LedgerEntry) error

	// ApplySettlement persists the settlement and its postings, credits the
	// receiving account by the settlement amount, and advances the settled
	// amount on the paying member's splits of the linked transaction, all or
	// nothing.
	ApplySettlement(ctx context.Context, s models.Settlement, entries []models.LedgerEntry) error

	// ApplyTransfer persists the transfer transaction and its postings, and
	// moves the total from the source account to the destination, all or
	// nothing.
	ApplyTransfer(ctx context.Context, tx models.Transaction, toAccountID string, entries []models.LedgerEntry) error
}
