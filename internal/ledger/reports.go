package ledger

import (
	"github.com/paisasplit/splitledger/internal/models"
	"github.com/paisasplit/splitledger/internal/money"
)

// Derived totals are pure recomputations over persisted state. The boundary
// layer decides when to re-invoke them: polling, explicit invalidation after
// a write, or a store subscription. Nothing here assumes any notification
// mechanism.

// TotalBalance sums the current balances of all non-archived accounts.
func TotalBalance(accounts []models.Account) money.Money {
	total := money.Zero()
	for _, a := range accounts {
		if a.Archived {
			continue
		}
		total = total.Add(a.CurrentBalance)
	}
	return total
}

// MemberReceivables folds the receivable family of entries into an
// outstanding amount per member: increases add, decreases and write-offs
// subtract through their negative signed amounts. All other entry types are
// ignored.
func MemberReceivables(entries []models.LedgerEntry) map[string]money.Money {
	owed := make(map[string]money.Money)
	for _, e := range entries {
		switch e.Type {
		case models.EntryReceivableInc, models.EntryReceivableDec, models.EntryWriteOff:
			owed[e.MemberID] = owed[e.MemberID].Add(e.AmountSigned)
		}
	}
	return owed
}

// OutstandingReceivables is the total still owed to the ledger owner across
// all members.
func OutstandingReceivables(entries []models.LedgerEntry) money.Money {
	total := money.Zero()
	for _, amount := range MemberReceivables(entries) {
		total = total.Add(amount)
	}
	return total
}

// NetWorth is the total account balance plus everything still receivable.
func NetWorth(accounts []models.Account, entries []models.LedgerEntry) money.Money {
	return TotalBalance(accounts).Add(OutstandingReceivables(entries))
}
