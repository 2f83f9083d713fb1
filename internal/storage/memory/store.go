// Package memory is an in-memory Store used by tests and the demo server.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/paisasplit/splitledger/internal/apperr"
	"github.com/paisasplit/splitledger/internal/interfaces"
	"github.com/paisasplit/splitledger/internal/models"
)

// Store keeps everything in slices and maps behind one mutex. Reads hand out
// copies so callers can never reach internal state. Each Apply method
// mutates under a single lock acquisition, which makes the unit of work
// trivially all-or-nothing.
type Store struct {
	mu           sync.Mutex
	accounts     []models.Account
	categories   []models.Category
	groups       []models.Group
	members      []models.Member
	transactions []models.Transaction
	splits       []models.Split
	entries      []models.LedgerEntry
	settlements  []models.Settlement

	subscribers []func()
}

func NewStore() *Store {
	return &Store{}
}

// SubscribeAccounts registers fn to run after every write that changes
// account state. A boundary convenience for reactive reads; the ledger core
// never depends on it.
func (m *Store) SubscribeAccounts(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscribers = append(m.subscribers, fn)
}

// notify runs outside the store lock.
func (m *Store) notify() {
	m.mu.Lock()
	subs := make([]func(), len(m.subscribers))
	copy(subs, m.subscribers)
	m.mu.Unlock()

	for _, fn := range subs {
		fn()
	}
}

func (m *Store) UpsertAccount(ctx context.Context, account models.Account) error {
	m.mu.Lock()
	replaced := false
	for i := range m.accounts {
		if m.accounts[i].ID == account.ID {
			m.accounts[i] = account
			replaced = true
			break
		}
	}
	if !replaced {
		m.accounts = append(m.accounts, account)
	}
	m.mu.Unlock()

	m.notify()
	return nil
}

func (m *Store) UpsertCategory(ctx context.Context, category models.Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.categories {
		if m.categories[i].ID == category.ID {
			m.categories[i] = category
			return nil
		}
	}
	m.categories = append(m.categories, category)
	return nil
}

func (m *Store) UpsertGroup(ctx context.Context, group models.Group) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.groups {
		if m.groups[i].ID == group.ID {
			m.groups[i] = group
			return nil
		}
	}
	m.groups = append(m.groups, group)
	return nil
}

func (m *Store) UpsertMember(ctx context.Context, member models.Member) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.members {
		if m.members[i].ID == member.ID {
			m.members[i] = member
			return nil
		}
	}
	m.members = append(m.members, member)
	return nil
}

func (m *Store) Account(ctx context.Context, id string) (models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if a.ID == id {
			return a, nil
		}
	}
	return models.Account{}, fmt.Errorf("account %s: %w", id, apperr.ErrNotFound)
}

func (m *Store) Accounts(ctx context.Context) ([]models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Account, len(m.accounts))
	copy(out, m.accounts)
	return out, nil
}

func (m *Store) Groups(ctx context.Context) ([]models.Group, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Group, len(m.groups))
	copy(out, m.groups)
	return out, nil
}

func (m *Store) Members(ctx context.Context, groupID string) ([]models.Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Member
	for _, mem := range m.members {
		if mem.GroupID == groupID {
			out = append(out, mem)
		}
	}
	return out, nil
}

func (m *Store) Transactions(ctx context.Context) ([]models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Transaction, len(m.transactions))
	copy(out, m.transactions)
	return out, nil
}

func (m *Store) SplitsByTransaction(ctx context.Context, transactionID string) ([]models.Split, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Split
	for _, s := range m.splits {
		if s.TransactionID == transactionID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *Store) Entries(ctx context.Context) ([]models.LedgerEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.LedgerEntry, len(m.entries))
	copy(out, m.entries)
	return out, nil
}

func (m *Store) EntriesByAccount(ctx context.Context, accountID string) ([]models.LedgerEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.LedgerEntry
	for _, e := range m.entries {
		if e.AccountID == accountID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *Store) EntriesByTransaction(ctx context.Context, transactionID string) ([]models.LedgerEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.LedgerEntry
	for _, e := range m.entries {
		if e.TransactionID == transactionID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *Store) Settlements(ctx context.Context) ([]models.Settlement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Settlement, len(m.settlements))
	copy(out, m.settlements)
	return out, nil
}

func (m *Store) ApplySplitTransaction(ctx context.Context, tx models.Transaction, splits []models.Split, entries []models.LedgerEntry) error {
	m.mu.Lock()
	idx := m.accountIndex(tx.AccountID)
	if idx < 0 {
		m.mu.Unlock()
		return fmt.Errorf("account %s: %w", tx.AccountID, apperr.ErrNotFound)
	}

	m.transactions = append(m.transactions, tx)
	m.splits = append(m.splits, splits...)
	m.entries = append(m.entries, entries...)
	m.accounts[idx].CurrentBalance = m.accounts[idx].CurrentBalance.Sub(tx.AmountTotal)
	m.mu.Unlock()

	m.notify()
	return nil
}

func (m *Store) ApplySettlement(ctx context.Context, s models.Settlement, entries []models.LedgerEntry) error {
	m.mu.Lock()
	idx := m.accountIndex(s.AccountID)
	if idx < 0 {
		m.mu.Unlock()
		return fmt.Errorf("account %s: %w", s.AccountID, apperr.ErrNotFound)
	}

	m.settlements = append(m.settlements, s)
	m.entries = append(m.entries, entries...)
	m.accounts[idx].CurrentBalance = m.accounts[idx].CurrentBalance.Add(s.Amount)
	m.settleSplits(s)
	m.mu.Unlock()

	m.notify()
	return nil
}

// settleSplits advances the settled amount on the paying member's splits of
// the linked transaction. Called with the lock held.
func (m *Store) settleSplits(s models.Settlement) {
	remaining := s.Amount
	for i := range m.splits {
		sp := &m.splits[i]
		if sp.TransactionID != s.LinkedTransactionID || sp.MemberID != s.FromMemberID {
			continue
		}
		open := sp.ShareAmount.Sub(sp.SettledAmount)
		paid := remaining
		if open.LessThan(paid) {
			paid = open
		}
		sp.SettledAmount = sp.SettledAmount.Add(paid)
		remaining = remaining.Sub(paid)
		if !sp.SettledAmount.LessThan(sp.ShareAmount) {
			sp.Status = models.SplitSettled
		}
	}
}

func (m *Store) ApplyTransfer(ctx context.Context, tx models.Transaction, toAccountID string, entries []models.LedgerEntry) error {
	m.mu.Lock()
	from := m.accountIndex(tx.AccountID)
	to := m.accountIndex(toAccountID)
	if from < 0 || to < 0 {
		m.mu.Unlock()
		return fmt.Errorf("transfer accounts: %w", apperr.ErrNotFound)
	}

	m.transactions = append(m.transactions, tx)
	m.entries = append(m.entries, entries...)
	m.accounts[from].CurrentBalance = m.accounts[from].CurrentBalance.Sub(tx.AmountTotal)
	m.accounts[to].CurrentBalance = m.accounts[to].CurrentBalance.Add(tx.AmountTotal)
	m.mu.Unlock()

	m.notify()
	return nil
}

// accountIndex returns the position of an account, or -1. Called with the
// lock held.
func (m *Store) accountIndex(id string) int {
	for i := range m.accounts {
		if m.accounts[i].ID == id {
			return i
		}
	}
	return -1
}

var _ interfaces.Store = (*Store)(nil)
