package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paisasplit/splitledger/internal/models"
	"github.com/paisasplit/splitledger/internal/money"
)

func splitFixture(t *testing.T) (models.Transaction, []models.Split) {
	t.Helper()

	tx := models.NewSplitTransaction("Dinner", "acc-1", "grp-1", "mem-you", money.MustParse("100.00"), "INR")
	tx.CategoryID = "cat-food"
	splits := []models.Split{
		models.NewSplit(tx.ID, "mem-you", money.MustParse("33.34")),
		models.NewSplit(tx.ID, "mem-alice", money.MustParse("33.33")),
		models.NewSplit(tx.ID, "mem-bob", money.MustParse("33.33")),
	}
	return tx, splits
}

func TestPostSplitTransactionOrderAndShape(t *testing.T) {
	tx, splits := splitFixture(t)

	entries := NewEngine().PostSplitTransaction(tx, splits)
	require.Len(t, entries, 4)

	// Fixed order: cash_out, payer's own expense, then receivables in
	// input split order.
	assert.Equal(t, models.EntryCashOut, entries[0].Type)
	assert.Equal(t, "acc-1", entries[0].AccountID)
	assert.Equal(t, "-100.00", entries[0].AmountSigned.String())

	assert.Equal(t, models.EntryExpense, entries[1].Type)
	assert.Equal(t, "cat-food", entries[1].CategoryID)
	assert.Equal(t, "33.34", entries[1].AmountSigned.String())

	assert.Equal(t, models.EntryReceivableInc, entries[2].Type)
	assert.Equal(t, "mem-alice", entries[2].MemberID)
	assert.Equal(t, "33.33", entries[2].AmountSigned.String())

	assert.Equal(t, models.EntryReceivableInc, entries[3].Type)
	assert.Equal(t, "mem-bob", entries[3].MemberID)
	assert.Equal(t, "33.33", entries[3].AmountSigned.String())

	for _, e := range entries {
		assert.Equal(t, tx.ID, e.TransactionID)
		assert.Equal(t, "INR", e.Currency)
	}
}

func TestPostSplitTransactionBalanceInvariant(t *testing.T) {
	tx, splits := splitFixture(t)
	splits = append(splits, models.NewSplit(tx.ID, "mem-carol", money.Zero()))
	tx.AmountTotal = money.MustParse("100.00")

	entries := NewEngine().PostSplitTransaction(tx, splits)

	var cashOut, expense, receivables money.Money
	for _, e := range entries {
		switch e.Type {
		case models.EntryCashOut:
			cashOut = e.AmountSigned
		case models.EntryExpense:
			expense = expense.Add(e.AmountSigned)
		case models.EntryReceivableInc:
			receivables = receivables.Add(e.AmountSigned)
		}
	}

	// |cash_out| == payer's expense + sum of receivable increases, exactly.
	assert.True(t, cashOut.Abs().Equal(expense.Add(receivables)),
		"cash %s vs expense %s + receivable %s", cashOut, expense, receivables)
}

func TestPostSplitTransactionNoPayerSplit(t *testing.T) {
	tx, splits := splitFixture(t)
	// Payer consumed nothing; their split is simply absent.
	splits = splits[1:]
	tx.AmountTotal = money.MustParse("66.66")

	entries := NewEngine().PostSplitTransaction(tx, splits)
	require.Len(t, entries, 3)
	assert.Equal(t, models.EntryCashOut, entries[0].Type)
	assert.Equal(t, models.EntryReceivableInc, entries[1].Type)
	assert.Equal(t, models.EntryReceivableInc, entries[2].Type)
}

func TestPostSplitTransactionSkipsExcludedSplits(t *testing.T) {
	tx, splits := splitFixture(t)
	splits[2].Included = false

	entries := NewEngine().PostSplitTransaction(tx, splits)
	require.Len(t, entries, 3)
	for _, e := range entries {
		assert.NotEqual(t, "mem-bob", e.MemberID)
	}
}

func TestPostSplitTransactionDeterministicOverDuplicates(t *testing.T) {
	// The engine does not police referential integrity; duplicate members
	// still post deterministically, one receivable per split in order.
	tx, splits := splitFixture(t)
	splits = append(splits, splits[1])

	entries := NewEngine().PostSplitTransaction(tx, splits)
	require.Len(t, entries, 5)
	assert.Equal(t, "mem-alice", entries[2].MemberID)
	assert.Equal(t, "mem-bob", entries[3].MemberID)
	assert.Equal(t, "mem-alice", entries[4].MemberID)
}

func TestPostSettlement(t *testing.T) {
	stl := models.NewSettlement("grp-1", "mem-alice", "mem-you", "acc-1",
		money.MustParse("33.33"), "INR", models.MethodUPI, "tx-1")

	entries := NewEngine().PostSettlement(stl)
	require.Len(t, entries, 2)

	cashIn, dec := entries[0], entries[1]
	assert.Equal(t, models.EntryCashIn, cashIn.Type)
	assert.Equal(t, "acc-1", cashIn.AccountID)
	assert.Equal(t, "33.33", cashIn.AmountSigned.String())
	assert.Equal(t, "tx-1", cashIn.TransactionID)

	assert.Equal(t, models.EntryReceivableDec, dec.Type)
	assert.Equal(t, "mem-alice", dec.MemberID)
	assert.Equal(t, "-33.33", dec.AmountSigned.String())
	assert.Equal(t, "tx-1", dec.TransactionID)

	// equal magnitude, opposite conceptual direction
	assert.True(t, cashIn.AmountSigned.Equal(dec.AmountSigned.Neg()))
}

func TestPostSettlementWithoutLinkedTransaction(t *testing.T) {
	stl := models.NewSettlement("grp-1", "mem-alice", "mem-you", "acc-1",
		money.MustParse("10.00"), "INR", models.MethodCash, "")

	assert.Empty(t, NewEngine().PostSettlement(stl))
}

func TestPostTransfer(t *testing.T) {
	tx := models.NewTransferTransaction("To savings", "acc-cash", money.MustParse("200.00"), "INR")

	entries := NewEngine().PostTransfer(tx, "acc-bank")
	require.Len(t, entries, 2)

	assert.Equal(t, models.EntryTransferOut, entries[0].Type)
	assert.Equal(t, "acc-cash", entries[0].AccountID)
	assert.Equal(t, "-200.00", entries[0].AmountSigned.String())

	assert.Equal(t, models.EntryTransferIn, entries[1].Type)
	assert.Equal(t, "acc-bank", entries[1].AccountID)
	assert.Equal(t, "200.00", entries[1].AmountSigned.String())
}
