package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/paisasplit/splitledger/internal/apperr"
	"github.com/paisasplit/splitledger/internal/interfaces"
	"github.com/paisasplit/splitledger/internal/models"
	"github.com/paisasplit/splitledger/internal/models/events"
	"github.com/paisasplit/splitledger/internal/money"
)

const (
	TopicTransactionPosted  = "transaction_posted"
	TopicSettlementRecorded = "settlement_recorded"
)

// Service orchestrates money-moving actions: it validates input, derives
// postings through the engine, and hands everything to the store as one
// atomic unit of work. Concurrent applies against the same account are
// serialized through a per-account lock so the balance read-modify-write
// never interleaves, even on stores without row locking.
type Service struct {
	store     interfaces.Store
	publisher interfaces.EventPublisher
	engine    Engine

	muMap map[string]*sync.Mutex // one lock per account
	mapMu sync.Mutex             // protects muMap itself
}

// NewService builds a Service around a store. publisher may be nil, in which
// case no events are emitted.
func NewService(store interfaces.Store, publisher interfaces.EventPublisher) *Service {
	return &Service{
		store:     store,
		publisher: publisher,
		engine:    NewEngine(),
		muMap:     make(map[string]*sync.Mutex),
	}
}

func (s *Service) accountLock(accountID string) *sync.Mutex {
	s.mapMu.Lock()
	defer s.mapMu.Unlock()

	if _, exists := s.muMap[accountID]; !exists {
		s.muMap[accountID] = &sync.Mutex{}
	}
	return s.muMap[accountID]
}

// ApplySplitTransaction validates the transaction and its splits, then
// persists the transaction, the splits, the derived postings, and the paying
// account's new balance as one unit of work. A validation failure persists
// nothing; a storage failure rolls back in full.
//
// Applying the same logical transaction twice is two independent economic
// events: two posting sets and two balance decrements. The operation is
// deliberately not idempotent.
func (s *Service) ApplySplitTransaction(ctx context.Context, tx models.Transaction, splits []models.Split) error {
	if err := s.validateSplitTransaction(ctx, tx, splits); err != nil {
		return err
	}

	for i := range splits {
		splits[i].TransactionID = tx.ID
	}
	entries := s.engine.PostSplitTransaction(tx, splits)

	mu := s.accountLock(tx.AccountID)
	mu.Lock()
	defer mu.Unlock()

	if err := s.store.ApplySplitTransaction(ctx, tx, splits, entries); err != nil {
		return apperr.Persistence("apply split transaction", err)
	}

	s.publish(TopicTransactionPosted, events.TransactionPosted{
		TransactionID: tx.ID,
		AccountID:     tx.AccountID,
		GroupID:       tx.GroupID,
		AmountTotal:   tx.AmountTotal,
		Currency:      tx.Currency,
		EntryCount:    len(entries),
		OccurredAt:    time.Now(),
	})
	return nil
}

func (s *Service) validateSplitTransaction(ctx context.Context, tx models.Transaction, splits []models.Split) error {
	if tx.Kind != models.KindSplit {
		return apperr.Validationf("transaction %s is %q, not a split", tx.ID, tx.Kind)
	}
	if tx.AmountTotal.IsNegative() {
		return apperr.Validationf("transaction total %s is negative", tx.AmountTotal)
	}
	if len(splits) == 0 {
		return apperr.Validationf("split transaction needs at least one split")
	}
	if tx.GroupID == "" {
		return apperr.Validationf("split transaction needs a group")
	}

	members, err := s.store.Members(ctx, tx.GroupID)
	if err != nil {
		return apperr.Persistence("load group members", err)
	}
	inGroup := make(map[string]bool, len(members))
	for _, m := range members {
		inGroup[m.ID] = true
	}

	if tx.PayerMemberID != "" && !inGroup[tx.PayerMemberID] {
		return apperr.Validationf("payer member %s is not in group %s", tx.PayerMemberID, tx.GroupID)
	}

	seen := make(map[string]bool, len(splits))
	sum := money.Zero()
	for _, sp := range splits {
		if sp.MemberID == "" {
			return apperr.Validationf("split %s has no member", sp.ID)
		}
		if seen[sp.MemberID] {
			return apperr.Validationf("member %s appears in more than one split", sp.MemberID)
		}
		seen[sp.MemberID] = true
		if !inGroup[sp.MemberID] {
			return apperr.Validationf("split member %s is not in group %s", sp.MemberID, tx.GroupID)
		}
		if sp.ShareAmount.IsNegative() {
			return apperr.Validationf("split for member %s has negative share %s", sp.MemberID, sp.ShareAmount)
		}
		if sp.Included {
			sum = sum.Add(sp.ShareAmount)
		}
	}
	if !sum.Equal(tx.AmountTotal) {
		return apperr.Validationf("included shares sum to %s, transaction total is %s", sum, tx.AmountTotal)
	}
	return nil
}

// RecordSettlement validates the settlement, derives its posting pair, and
// persists settlement, postings, the receiving account's new balance, and
// the settled-amount bookkeeping on the linked splits as one unit of work.
func (s *Service) RecordSettlement(ctx context.Context, stl models.Settlement) error {
	if stl.GroupID == "" {
		return apperr.Validationf("settlement needs a group")
	}
	if stl.FromMemberID == "" || stl.ToMemberID == "" {
		return apperr.Validationf("settlement needs both members")
	}
	if stl.FromMemberID == stl.ToMemberID {
		return apperr.Validationf("settlement members must differ")
	}
	if !stl.Amount.IsPositive() {
		return apperr.Validationf("settlement amount %s must be positive", stl.Amount)
	}
	if stl.LinkedTransactionID == "" {
		return apperr.Validationf("settlement needs a linked transaction to generate postings")
	}
	if stl.AccountID == "" {
		return apperr.Validationf("settlement needs a receiving account")
	}

	members, err := s.store.Members(ctx, stl.GroupID)
	if err != nil {
		return apperr.Persistence("load group members", err)
	}
	inGroup := make(map[string]bool, len(members))
	for _, m := range members {
		inGroup[m.ID] = true
	}
	if !inGroup[stl.FromMemberID] {
		return apperr.Validationf("paying member %s is not in group %s", stl.FromMemberID, stl.GroupID)
	}
	if !inGroup[stl.ToMemberID] {
		return apperr.Validationf("receiving member %s is not in group %s", stl.ToMemberID, stl.GroupID)
	}

	entries := s.engine.PostSettlement(stl)

	mu := s.accountLock(stl.AccountID)
	mu.Lock()
	defer mu.Unlock()

	if err := s.store.ApplySettlement(ctx, stl, entries); err != nil {
		return apperr.Persistence("apply settlement", err)
	}

	s.publish(TopicSettlementRecorded, events.SettlementRecorded{
		SettlementID: stl.ID,
		GroupID:      stl.GroupID,
		FromMemberID: stl.FromMemberID,
		ToMemberID:   stl.ToMemberID,
		Amount:       stl.Amount,
		OccurredAt:   time.Now(),
	})
	return nil
}

// ApplyTransfer moves a transaction's total between two accounts as one unit
// of work.
func (s *Service) ApplyTransfer(ctx context.Context, tx models.Transaction, toAccountID string) error {
	if tx.Kind != models.KindTransfer {
		return apperr.Validationf("transaction %s is %q, not a transfer", tx.ID, tx.Kind)
	}
	if toAccountID == "" || toAccountID == tx.AccountID {
		return apperr.Validationf("transfer needs a distinct destination account")
	}
	if !tx.AmountTotal.IsPositive() {
		return apperr.Validationf("transfer amount %s must be positive", tx.AmountTotal)
	}

	entries := s.engine.PostTransfer(tx, toAccountID)

	// Lock both accounts in a fixed order to avoid deadlocks.
	first, second := s.accountLock(tx.AccountID), s.accountLock(toAccountID)
	if toAccountID < tx.AccountID {
		first, second = second, first
	}
	first.Lock()
	defer first.Unlock()
	second.Lock()
	defer second.Unlock()

	if err := s.store.ApplyTransfer(ctx, tx, toAccountID, entries); err != nil {
		return apperr.Persistence("apply transfer", err)
	}
	return nil
}

// publish is best effort: the ledger write has already committed, so a
// publisher failure is dropped rather than surfaced as an apply failure.
func (s *Service) publish(topic string, event any) {
	if s.publisher == nil {
		return
	}
	_ = s.publisher.Publish(topic, event)
}
