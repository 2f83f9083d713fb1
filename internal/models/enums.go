package models

// AccountType classifies where an account's money physically lives.
type AccountType string

const (
	AccountCash       AccountType = "cash"
	AccountBank       AccountType = "bank"
	AccountWallet     AccountType = "wallet"
	AccountCard       AccountType = "card"
	AccountInvestment AccountType = "investment"
)

func (t AccountType) Valid() bool {
	switch t {
	case AccountCash, AccountBank, AccountWallet, AccountCard, AccountInvestment:
		return true
	}
	return false
}

// TransactionKind distinguishes how a transaction moves money.
type TransactionKind string

const (
	KindExpense    TransactionKind = "expense"
	KindSplit      TransactionKind = "split"
	KindTransfer   TransactionKind = "transfer"
	KindSettlement TransactionKind = "settlement"
)

func (k TransactionKind) Valid() bool {
	switch k {
	case KindExpense, KindSplit, KindTransfer, KindSettlement:
		return true
	}
	return false
}

// SplitMode names how a transaction's total was divided among members. The
// mode is an input-surface concern: by the time splits reach the ledger they
// already carry resolved share amounts.
type SplitMode string

const (
	ModeEqual         SplitMode = "equal"
	ModeCustomAmounts SplitMode = "custom_amounts"
	ModePercentages   SplitMode = "percentages"
	ModeShares        SplitMode = "shares"
	ModeItemized      SplitMode = "itemized"
)

func (m SplitMode) Valid() bool {
	switch m {
	case ModeEqual, ModeCustomAmounts, ModePercentages, ModeShares, ModeItemized:
		return true
	}
	return false
}

// SplitStatus tracks whether a member's share has been paid back.
type SplitStatus string

const (
	SplitOpen    SplitStatus = "open"
	SplitSettled SplitStatus = "settled"
	SplitWaived  SplitStatus = "waived"
)

func (s SplitStatus) Valid() bool {
	switch s {
	case SplitOpen, SplitSettled, SplitWaived:
		return true
	}
	return false
}

// LedgerEntryType is the closed set of posting kinds. Cash entries always
// reference an Account, receivable entries always reference a Member; the two
// families reconcile through the posting balance rule rather than a shared
// account chart.
type LedgerEntryType string

const (
	EntryCashOut       LedgerEntryType = "cash_out"
	EntryCashIn        LedgerEntryType = "cash_in"
	EntryExpense       LedgerEntryType = "expense"
	EntryIncome        LedgerEntryType = "income"
	EntryReceivableInc LedgerEntryType = "receivable_inc"
	EntryReceivableDec LedgerEntryType = "receivable_dec"
	EntryWriteOff      LedgerEntryType = "writeoff"
	EntryTransferIn    LedgerEntryType = "transfer_in"
	EntryTransferOut   LedgerEntryType = "transfer_out"
)

func (t LedgerEntryType) Valid() bool {
	switch t {
	case EntryCashOut, EntryCashIn, EntryExpense, EntryIncome,
		EntryReceivableInc, EntryReceivableDec, EntryWriteOff,
		EntryTransferIn, EntryTransferOut:
		return true
	}
	return false
}

// SettlementMethod records how a settlement was paid in the real world.
type SettlementMethod string

const (
	MethodUPI          SettlementMethod = "upi"
	MethodCash         SettlementMethod = "cash"
	MethodBankTransfer SettlementMethod = "bank_transfer"
	MethodOther        SettlementMethod = "other"
)

func (m SettlementMethod) Valid() bool {
	switch m {
	case MethodUPI, MethodCash, MethodBankTransfer, MethodOther:
		return true
	}
	return false
}
