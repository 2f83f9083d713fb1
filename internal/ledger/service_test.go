package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paisasplit/splitledger/internal/apperr"
	"github.com/paisasplit/splitledger/internal/interfaces"
	"github.com/paisasplit/splitledger/internal/models"
	"github.com/paisasplit/splitledger/internal/money"
	"github.com/paisasplit/splitledger/internal/storage/memory"
)

type fixture struct {
	store   *memory.Store
	service *Service
	account models.Account
	group   models.Group
	you     models.Member
	alice   models.Member
	bob     models.Member
}

func newFixture(t *testing.T, publisher interfaces.EventPublisher) *fixture {
	t.Helper()
	ctx := context.Background()

	store := memory.NewStore()
	account := models.NewAccount("Cash", models.AccountCash, money.MustParse("1000.00"), "INR")
	require.NoError(t, store.UpsertAccount(ctx, account))

	group := models.NewGroup("Friends")
	require.NoError(t, store.UpsertGroup(ctx, group))

	you := models.NewMember(group.ID, "You", true)
	alice := models.NewMember(group.ID, "Alice", false)
	bob := models.NewMember(group.ID, "Bob", false)
	for _, m := range []models.Member{you, alice, bob} {
		require.NoError(t, store.UpsertMember(ctx, m))
	}

	return &fixture{
		store:   store,
		service: NewService(store, publisher),
		account: account,
		group:   group,
		you:     you,
		alice:   alice,
		bob:     bob,
	}
}

func (f *fixture) splitTx(t *testing.T, total string) (models.Transaction, []models.Split) {
	t.Helper()
	tx := models.NewSplitTransaction("Dinner", f.account.ID, f.group.ID, f.you.ID,
		money.MustParse(total), "INR")
	shares := equalThirds(t, total)
	return tx, []models.Split{
		models.NewSplit(tx.ID, f.you.ID, shares[0]),
		models.NewSplit(tx.ID, f.alice.ID, shares[1]),
		models.NewSplit(tx.ID, f.bob.ID, shares[2]),
	}
}

func equalThirds(t *testing.T, total string) []money.Money {
	t.Helper()
	amount := money.MustParse(total)
	base := amount.DivTrunc(3)
	first := amount.Sub(base.MulInt(2))
	return []money.Money{first, base, base}
}

func TestApplySplitTransactionUpdatesBalance(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	tx, splits := f.splitTx(t, "250.00")
	require.NoError(t, f.service.ApplySplitTransaction(ctx, tx, splits))

	// 1000.00 - 250.00 = 750.00 regardless of how the total is divided.
	account, err := f.store.Account(ctx, f.account.ID)
	require.NoError(t, err)
	assert.Equal(t, "750.00", account.CurrentBalance.String())

	entries, err := f.store.EntriesByTransaction(ctx, tx.ID)
	require.NoError(t, err)
	require.Len(t, entries, 4) // cash_out, expense, two receivables

	persisted, err := f.store.SplitsByTransaction(ctx, tx.ID)
	require.NoError(t, err)
	assert.Len(t, persisted, 3)
}

func TestApplySplitTransactionIsDeliberatelyNotIdempotent(t *testing.T) {
	// Applying the same logical transaction twice is two economic events:
	// two posting sets and two balance decrements. This guards against a
	// future dedup "fix" silently changing the semantics.
	f := newFixture(t, nil)
	ctx := context.Background()

	tx, splits := f.splitTx(t, "100.00")
	require.NoError(t, f.service.ApplySplitTransaction(ctx, tx, splits))
	require.NoError(t, f.service.ApplySplitTransaction(ctx, tx, splits))

	account, err := f.store.Account(ctx, f.account.ID)
	require.NoError(t, err)
	assert.Equal(t, "800.00", account.CurrentBalance.String())

	entries, err := f.store.EntriesByTransaction(ctx, tx.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 8)
}

func TestApplySplitTransactionValidation(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	t.Run("sum mismatch", func(t *testing.T) {
		tx, splits := f.splitTx(t, "100.00")
		splits[1].ShareAmount = money.MustParse("50.00")
		err := f.service.ApplySplitTransaction(ctx, tx, splits)
		assert.True(t, apperr.IsValidation(err), "got %v", err)
	})

	t.Run("member outside group", func(t *testing.T) {
		tx, splits := f.splitTx(t, "100.00")
		splits[2].MemberID = "mem-stranger"
		err := f.service.ApplySplitTransaction(ctx, tx, splits)
		assert.True(t, apperr.IsValidation(err), "got %v", err)
	})

	t.Run("duplicate member", func(t *testing.T) {
		tx, splits := f.splitTx(t, "100.00")
		splits[2].MemberID = splits[1].MemberID
		err := f.service.ApplySplitTransaction(ctx, tx, splits)
		assert.True(t, apperr.IsValidation(err), "got %v", err)
	})

	t.Run("payer outside group", func(t *testing.T) {
		tx, splits := f.splitTx(t, "100.00")
		tx.PayerMemberID = "mem-stranger"
		err := f.service.ApplySplitTransaction(ctx, tx, splits)
		assert.True(t, apperr.IsValidation(err), "got %v", err)
	})

	t.Run("wrong kind", func(t *testing.T) {
		tx, splits := f.splitTx(t, "100.00")
		tx.Kind = models.KindExpense
		err := f.service.ApplySplitTransaction(ctx, tx, splits)
		assert.True(t, apperr.IsValidation(err), "got %v", err)
	})

	t.Run("no splits", func(t *testing.T) {
		tx, _ := f.splitTx(t, "100.00")
		err := f.service.ApplySplitTransaction(ctx, tx, nil)
		assert.True(t, apperr.IsValidation(err), "got %v", err)
	})

	// None of the failed applies may have touched the account.
	account, err := f.store.Account(ctx, f.account.ID)
	require.NoError(t, err)
	assert.Equal(t, "1000.00", account.CurrentBalance.String())

	entries, err := f.store.Entries(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestApplySplitTransactionExcludedPayer(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	// Payer fronted 10.00 but consumes nothing: alice and bob owe it all.
	tx := models.NewSplitTransaction("Taxi", f.account.ID, f.group.ID, f.you.ID,
		money.MustParse("10.00"), "INR")
	payerSplit := models.NewSplit(tx.ID, f.you.ID, money.Zero())
	payerSplit.Included = false
	splits := []models.Split{
		models.NewSplit(tx.ID, f.alice.ID, money.MustParse("5.00")),
		models.NewSplit(tx.ID, f.bob.ID, money.MustParse("5.00")),
		payerSplit,
	}
	require.NoError(t, f.service.ApplySplitTransaction(ctx, tx, splits))

	entries, err := f.store.EntriesByTransaction(ctx, tx.ID)
	require.NoError(t, err)
	require.Len(t, entries, 3) // cash_out + two receivables, no expense
	assert.Equal(t, models.EntryCashOut, entries[0].Type)
	assert.Equal(t, models.EntryReceivableInc, entries[1].Type)
	assert.Equal(t, models.EntryReceivableInc, entries[2].Type)
}

func TestRecordSettlement(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	tx, splits := f.splitTx(t, "100.00")
	require.NoError(t, f.service.ApplySplitTransaction(ctx, tx, splits))

	aliceShare := splits[1].ShareAmount
	stl := models.NewSettlement(f.group.ID, f.alice.ID, f.you.ID, f.account.ID,
		aliceShare, "INR", models.MethodUPI, tx.ID)
	require.NoError(t, f.service.RecordSettlement(ctx, stl))

	// Balance: 1000 - 100 + alice's repayment.
	account, err := f.store.Account(ctx, f.account.ID)
	require.NoError(t, err)
	assert.Equal(t, money.MustParse("900.00").Add(aliceShare).String(),
		account.CurrentBalance.String())

	// Alice's split is fully settled.
	persisted, err := f.store.SplitsByTransaction(ctx, tx.ID)
	require.NoError(t, err)
	for _, sp := range persisted {
		if sp.MemberID == f.alice.ID {
			assert.Equal(t, models.SplitSettled, sp.Status)
			assert.True(t, sp.SettledAmount.Equal(aliceShare))
		} else {
			assert.Equal(t, models.SplitOpen, sp.Status)
		}
	}

	// Outstanding receivables now cover bob only.
	entries, err := f.store.Entries(ctx)
	require.NoError(t, err)
	assert.Equal(t, splits[2].ShareAmount.String(),
		OutstandingReceivables(entries).String())
}

func TestRecordSettlementValidation(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	valid := func() models.Settlement {
		return models.NewSettlement(f.group.ID, f.alice.ID, f.you.ID, f.account.ID,
			money.MustParse("10.00"), "INR", models.MethodCash, "tx-1")
	}

	cases := []struct {
		name   string
		mutate func(*models.Settlement)
	}{
		{"missing linked transaction", func(s *models.Settlement) { s.LinkedTransactionID = "" }},
		{"missing account", func(s *models.Settlement) { s.AccountID = "" }},
		{"same member both sides", func(s *models.Settlement) { s.ToMemberID = s.FromMemberID }},
		{"zero amount", func(s *models.Settlement) { s.Amount = money.Zero() }},
		{"payer outside group", func(s *models.Settlement) { s.FromMemberID = "mem-stranger" }},
		{"no group", func(s *models.Settlement) { s.GroupID = "" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			stl := valid()
			tc.mutate(&stl)
			err := f.service.RecordSettlement(ctx, stl)
			assert.True(t, apperr.IsValidation(err), "got %v", err)
		})
	}

	settlements, err := f.store.Settlements(ctx)
	require.NoError(t, err)
	assert.Empty(t, settlements)
}

func TestApplyTransfer(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	bank := models.NewAccount("Bank", models.AccountBank, money.MustParse("500.00"), "INR")
	require.NoError(t, f.store.UpsertAccount(ctx, bank))

	tx := models.NewTransferTransaction("Top up", f.account.ID, money.MustParse("200.00"), "INR")
	require.NoError(t, f.service.ApplyTransfer(ctx, tx, bank.ID))

	from, err := f.store.Account(ctx, f.account.ID)
	require.NoError(t, err)
	to, err := f.store.Account(ctx, bank.ID)
	require.NoError(t, err)
	assert.Equal(t, "800.00", from.CurrentBalance.String())
	assert.Equal(t, "700.00", to.CurrentBalance.String())

	err = f.service.ApplyTransfer(ctx, tx, f.account.ID)
	assert.True(t, apperr.IsValidation(err), "self-transfer must be rejected")
}

// failingStore wraps the memory store and fails every apply, standing in for
// an unavailable database.
type failingStore struct {
	*memory.Store
}

func (f failingStore) ApplySplitTransaction(ctx context.Context, tx models.Transaction, splits []models.Split, entries []models.LedgerEntry) error {
	return errors.New("connection reset")
}

func TestApplySplitTransactionPersistenceFailure(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	service := NewService(failingStore{f.store}, nil)
	tx, splits := f.splitTx(t, "100.00")

	err := service.ApplySplitTransaction(ctx, tx, splits)
	var pe *apperr.PersistenceError
	require.ErrorAs(t, err, &pe)

	// Nothing is visible to readers after the failed apply.
	account, err := f.store.Account(ctx, f.account.ID)
	require.NoError(t, err)
	assert.Equal(t, "1000.00", account.CurrentBalance.String())
	entries, err := f.store.Entries(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

// capturePublisher records published events for assertions.
type capturePublisher struct {
	mu     sync.Mutex
	topics []string
}

func (c *capturePublisher) Publish(topic string, event any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.topics = append(c.topics, topic)
	return nil
}

func TestEventsPublishedAfterApply(t *testing.T) {
	pub := &capturePublisher{}
	f := newFixture(t, pub)
	ctx := context.Background()

	tx, splits := f.splitTx(t, "90.00")
	require.NoError(t, f.service.ApplySplitTransaction(ctx, tx, splits))

	stl := models.NewSettlement(f.group.ID, f.alice.ID, f.you.ID, f.account.ID,
		splits[1].ShareAmount, "INR", models.MethodUPI, tx.ID)
	require.NoError(t, f.service.RecordSettlement(ctx, stl))

	assert.Equal(t, []string{TopicTransactionPosted, TopicSettlementRecorded}, pub.topics)
}

func TestValidationFailurePublishesNothing(t *testing.T) {
	pub := &capturePublisher{}
	f := newFixture(t, pub)

	tx, splits := f.splitTx(t, "100.00")
	splits[0].ShareAmount = money.MustParse("99.99")
	require.Error(t, f.service.ApplySplitTransaction(context.Background(), tx, splits))
	assert.Empty(t, pub.topics)
}

func TestConcurrentAppliesSerializeOnBalance(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tx, splits := f.splitTx(t, "10.00")
			assert.NoError(t, f.service.ApplySplitTransaction(ctx, tx, splits))
		}()
	}
	wg.Wait()

	account, err := f.store.Account(ctx, f.account.ID)
	require.NoError(t, err)
	assert.Equal(t, "800.00", account.CurrentBalance.String())
}
