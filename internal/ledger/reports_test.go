package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/paisasplit/splitledger/internal/models"
	"github.com/paisasplit/splitledger/internal/money"
)

func receivable(typ models.LedgerEntryType, memberID, amount string) models.LedgerEntry {
	e := models.NewLedgerEntry("tx-1", typ, money.MustParse(amount), "INR")
	e.MemberID = memberID
	return e
}

func TestTotalBalanceSkipsArchived(t *testing.T) {
	cash := models.NewAccount("Cash", models.AccountCash, money.MustParse("1000.00"), "INR")
	bank := models.NewAccount("Bank", models.AccountBank, money.MustParse("2500.50"), "INR")
	old := models.NewAccount("Old wallet", models.AccountWallet, money.MustParse("99.00"), "INR")
	old.Archived = true

	total := TotalBalance([]models.Account{cash, bank, old})
	assert.Equal(t, "3500.50", total.String())
}

func TestMemberReceivablesFolding(t *testing.T) {
	entries := []models.LedgerEntry{
		receivable(models.EntryReceivableInc, "mem-alice", "33.33"),
		receivable(models.EntryReceivableInc, "mem-bob", "33.33"),
		receivable(models.EntryReceivableDec, "mem-alice", "-20.00"),
		receivable(models.EntryWriteOff, "mem-bob", "-33.33"),
		// Unrelated entry types never count toward receivables.
		models.NewLedgerEntry("tx-1", models.EntryCashOut, money.MustParse("-100.00"), "INR"),
		models.NewLedgerEntry("tx-1", models.EntryExpense, money.MustParse("33.34"), "INR"),
	}

	owed := MemberReceivables(entries)
	assert.Equal(t, "13.33", owed["mem-alice"].String())
	assert.Equal(t, "0.00", owed["mem-bob"].String())

	assert.Equal(t, "13.33", OutstandingReceivables(entries).String())
}

func TestNetWorthIncludesReceivables(t *testing.T) {
	accounts := []models.Account{
		models.NewAccount("Cash", models.AccountCash, money.MustParse("750.00"), "INR"),
	}
	entries := []models.LedgerEntry{
		receivable(models.EntryReceivableInc, "mem-alice", "83.33"),
		receivable(models.EntryReceivableInc, "mem-bob", "83.33"),
	}

	// Money fronted for others is still yours until written off.
	assert.Equal(t, "916.66", NetWorth(accounts, entries).String())
}

func TestNetWorthEmptyLedger(t *testing.T) {
	assert.True(t, NetWorth(nil, nil).IsZero())
}
