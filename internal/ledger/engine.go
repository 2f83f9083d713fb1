// Package ledger turns split transactions and settlements into balanced sets
// of signed postings and applies them atomically against a store.
package ledger

import (
	"github.com/paisasplit/splitledger/internal/models"
)

// Engine derives ledger entries from transactions and settlements. It is
// pure and stateless: it never validates referential integrity and never
// touches storage, so it is safe to call from any number of goroutines. Over
// any syntactically well-formed input it posts deterministically; the
// orchestration in Service is responsible for rejecting inconsistent input
// before entries are persisted.
type Engine struct{}

func NewEngine() Engine {
	return Engine{}
}

// PostSplitTransaction produces the postings for a split expense, in fixed
// order: one cash_out against the paying account for the negated total, the
// payer's own expense share if a split for the payer exists, then one
// receivable_inc per remaining included split in input order. The full
// amount leaves the account immediately regardless of who ultimately owes
// what; the receivables record what the payer is now owed.
//
// When the splits sum to the transaction total, the magnitude of the
// cash_out entry equals the expense share plus the sum of all receivable
// increases, so the posting set is a closed economic picture of the
// transaction.
func (Engine) PostSplitTransaction(tx models.Transaction, splits []models.Split) []models.LedgerEntry {
	entries := make([]models.LedgerEntry, 0, len(splits)+1)

	cashOut := models.NewLedgerEntry(tx.ID, models.EntryCashOut, tx.AmountTotal.Neg(), tx.Currency)
	cashOut.AccountID = tx.AccountID
	entries = append(entries, cashOut)

	for _, s := range splits {
		if !s.Included || s.MemberID != tx.PayerMemberID {
			continue
		}
		own := models.NewLedgerEntry(tx.ID, models.EntryExpense, s.ShareAmount, tx.Currency)
		own.CategoryID = tx.CategoryID
		entries = append(entries, own)
		break
	}

	for _, s := range splits {
		if !s.Included || s.MemberID == tx.PayerMemberID {
			continue
		}
		owed := models.NewLedgerEntry(tx.ID, models.EntryReceivableInc, s.ShareAmount, tx.Currency)
		owed.MemberID = s.MemberID
		entries = append(entries, owed)
	}

	return entries
}

// PostSettlement produces the posting pair for a settlement: a cash_in
// against the settlement's account and a receivable_dec against the paying
// member, both anchored on the linked transaction. A settlement without a
// linked transaction produces no postings; requesting postings for one is a
// caller error validated upstream, not signaled here.
func (Engine) PostSettlement(s models.Settlement) []models.LedgerEntry {
	if s.LinkedTransactionID == "" {
		return nil
	}

	cashIn := models.NewLedgerEntry(s.LinkedTransactionID, models.EntryCashIn, s.Amount, s.Currency)
	cashIn.AccountID = s.AccountID

	dec := models.NewLedgerEntry(s.LinkedTransactionID, models.EntryReceivableDec, s.Amount.Neg(), s.Currency)
	dec.MemberID = s.FromMemberID

	return []models.LedgerEntry{cashIn, dec}
}

// PostTransfer produces the posting pair for a transfer between two
// accounts: transfer_out against the source for the negated total,
// transfer_in against the destination for the total.
func (Engine) PostTransfer(tx models.Transaction, toAccountID string) []models.LedgerEntry {
	out := models.NewLedgerEntry(tx.ID, models.EntryTransferOut, tx.AmountTotal.Neg(), tx.Currency)
	out.AccountID = tx.AccountID

	in := models.NewLedgerEntry(tx.ID, models.EntryTransferIn, tx.AmountTotal, tx.Currency)
	in.AccountID = toAccountID

	return []models.LedgerEntry{out, in}
}
