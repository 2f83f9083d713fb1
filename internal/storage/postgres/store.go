// Package postgres is the lib/pq-backed Store. Each Apply method runs as a
// single database transaction with the affected account rows locked FOR
// UPDATE, so the balance read-modify-write is serialized and the unit of
// work commits or rolls back as a whole.
package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	"github.com/paisasplit/splitledger/internal/apperr"
	"github.com/paisasplit/splitledger/internal/interfaces"
	"github.com/paisasplit/splitledger/internal/models"
	"github.com/paisasplit/splitledger/internal/money"
)

//go:embed schema.sql
var schema string

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Migrate creates the schema if it does not exist.
func (p *Store) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, schema)
	return err
}

func (p *Store) UpsertAccount(ctx context.Context, a models.Account) error {
	const query = `INSERT INTO accounts (id, name, type, opening_balance, current_balance, currency, archived, icon, color, created_at)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	ON CONFLICT (id) DO UPDATE SET name=$2, type=$3, opening_balance=$4, current_balance=$5, currency=$6, archived=$7, icon=$8, color=$9`

	_, err := p.db.ExecContext(ctx, query, a.ID, a.Name, string(a.Type),
		a.OpeningBalance.String(), a.CurrentBalance.String(), a.Currency,
		a.Archived, a.Icon, a.Color, a.CreatedAt)
	return err
}

func (p *Store) UpsertCategory(ctx context.Context, c models.Category) error {
	const query = `INSERT INTO categories (id, name, icon, color, parent_id)
	VALUES ($1,$2,$3,$4,$5)
	ON CONFLICT (id) DO UPDATE SET name=$2, icon=$3, color=$4, parent_id=$5`

	_, err := p.db.ExecContext(ctx, query, c.ID, c.Name, c.Icon, c.Color, c.ParentID)
	return err
}

func (p *Store) UpsertGroup(ctx context.Context, g models.Group) error {
	const query = `INSERT INTO groups (id, name, description, archived, created_at)
	VALUES ($1,$2,$3,$4,$5)
	ON CONFLICT (id) DO UPDATE SET name=$2, description=$3, archived=$4`

	_, err := p.db.ExecContext(ctx, query, g.ID, g.Name, g.Description, g.Archived, g.CreatedAt)
	return err
}

func (p *Store) UpsertMember(ctx context.Context, m models.Member) error {
	const query = `INSERT INTO members (id, group_id, display_name, notes, is_self, avatar_color, created_at)
	VALUES ($1,$2,$3,$4,$5,$6,$7)
	ON CONFLICT (id) DO UPDATE SET display_name=$3, notes=$4, avatar_color=$6`

	_, err := p.db.ExecContext(ctx, query, m.ID, m.GroupID, m.DisplayName, m.Notes, m.IsSelf, m.AvatarColor, m.CreatedAt)
	return err
}

func (p *Store) Account(ctx context.Context, id string) (models.Account, error) {
	const query = `SELECT id, name, type, opening_balance, current_balance, currency, archived, icon, color, created_at
	FROM accounts WHERE id = $1`

	a, err := scanAccount(p.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return models.Account{}, fmt.Errorf("account %s: %w", id, apperr.ErrNotFound)
	}
	return a, err
}

func (p *Store) Accounts(ctx context.Context) ([]models.Account, error) {
	const query = `SELECT id, name, type, opening_balance, current_balance, currency, archived, icon, color, created_at
	FROM accounts ORDER BY created_at`

	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []models.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (p *Store) Groups(ctx context.Context) ([]models.Group, error) {
	const query = `SELECT id, name, description, archived, created_at FROM groups ORDER BY created_at`

	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []models.Group
	for rows.Next() {
		var g models.Group
		if err := rows.Scan(&g.ID, &g.Name, &g.Description, &g.Archived, &g.CreatedAt); err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

func (p *Store) Members(ctx context.Context, groupID string) ([]models.Member, error) {
	const query = `SELECT id, group_id, display_name, notes, is_self, avatar_color, created_at
	FROM members WHERE group_id = $1 ORDER BY created_at`

	rows, err := p.db.QueryContext(ctx, query, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []models.Member
	for rows.Next() {
		var m models.Member
		if err := rows.Scan(&m.ID, &m.GroupID, &m.DisplayName, &m.Notes, &m.IsSelf, &m.AvatarColor, &m.CreatedAt); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (p *Store) Transactions(ctx context.Context) ([]models.Transaction, error) {
	const query = `SELECT id, kind, title, note, account_id, category_id, amount_total, currency, date, group_id, payer_member_id, deleted, created_at
	FROM transactions ORDER BY date DESC`

	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txs []models.Transaction
	for rows.Next() {
		var (
			t         models.Transaction
			kind      string
			amountStr string
		)
		if err := rows.Scan(&t.ID, &kind, &t.Title, &t.Note, &t.AccountID, &t.CategoryID,
			&amountStr, &t.Currency, &t.Date, &t.GroupID, &t.PayerMemberID, &t.Deleted, &t.CreatedAt); err != nil {
			return nil, err
		}
		t.Kind = models.TransactionKind(kind)
		if t.AmountTotal, err = money.Parse(amountStr); err != nil {
			return nil, err
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

func (p *Store) SplitsByTransaction(ctx context.Context, transactionID string) ([]models.Split, error) {
	const query = `SELECT id, transaction_id, member_id, share_amount, share_percent, share_count, included, status, settled_amount
	FROM splits WHERE transaction_id = $1`

	rows, err := p.db.QueryContext(ctx, query, transactionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var splits []models.Split
	for rows.Next() {
		var (
			s                     models.Split
			status                string
			shareStr, settledStr  string
		)
		if err := rows.Scan(&s.ID, &s.TransactionID, &s.MemberID, &shareStr,
			&s.SharePercent, &s.ShareCount, &s.Included, &status, &settledStr); err != nil {
			return nil, err
		}
		s.Status = models.SplitStatus(status)
		if s.ShareAmount, err = money.Parse(shareStr); err != nil {
			return nil, err
		}
		if s.SettledAmount, err = money.Parse(settledStr); err != nil {
			return nil, err
		}
		splits = append(splits, s)
	}
	return splits, rows.Err()
}

func (p *Store) Entries(ctx context.Context) ([]models.LedgerEntry, error) {
	return p.queryEntries(ctx, `SELECT id, transaction_id, entry_type, account_id, member_id, category_id, amount_signed, currency, created_at
	FROM ledger_entries ORDER BY created_at`)
}

func (p *Store) EntriesByAccount(ctx context.Context, accountID string) ([]models.LedgerEntry, error) {
	return p.queryEntries(ctx, `SELECT id, transaction_id, entry_type, account_id, member_id, category_id, amount_signed, currency, created_at
	FROM ledger_entries WHERE account_id = $1 ORDER BY created_at`, accountID)
}

func (p *Store) EntriesByTransaction(ctx context.Context, transactionID string) ([]models.LedgerEntry, error) {
	return p.queryEntries(ctx, `SELECT id, transaction_id, entry_type, account_id, member_id, category_id, amount_signed, currency, created_at
	FROM ledger_entries WHERE transaction_id = $1 ORDER BY created_at`, transactionID)
}

func (p *Store) queryEntries(ctx context.Context, query string, args ...any) ([]models.LedgerEntry, error) {
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.LedgerEntry
	for rows.Next() {
		var (
			e         models.LedgerEntry
			entryType string
			amountStr string
		)
		if err := rows.Scan(&e.ID, &e.TransactionID, &entryType, &e.AccountID,
			&e.MemberID, &e.CategoryID, &amountStr, &e.Currency, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Type = models.LedgerEntryType(entryType)
		if e.AmountSigned, err = money.Parse(amountStr); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (p *Store) Settlements(ctx context.Context) ([]models.Settlement, error) {
	const query = `SELECT id, group_id, from_member_id, to_member_id, account_id, amount, currency, method, date, note, linked_transaction_id
	FROM settlements ORDER BY date DESC`

	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var settlements []models.Settlement
	for rows.Next() {
		var (
			s         models.Settlement
			method    string
			amountStr string
		)
		if err := rows.Scan(&s.ID, &s.GroupID, &s.FromMemberID, &s.ToMemberID, &s.AccountID,
			&amountStr, &s.Currency, &method, &s.Date, &s.Note, &s.LinkedTransactionID); err != nil {
			return nil, err
		}
		s.Method = models.SettlementMethod(method)
		if s.Amount, err = money.Parse(amountStr); err != nil {
			return nil, err
		}
		settlements = append(settlements, s)
	}
	return settlements, rows.Err()
}

func (p *Store) ApplySplitTransaction(ctx context.Context, tx models.Transaction, splits []models.Split, entries []models.LedgerEntry) error {
	dbTx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			dbTx.Rollback()
		}
	}()

	// Lock the paying account for the duration of the unit of work so the
	// balance read-modify-write cannot interleave with a concurrent apply.
	if err = lockAccount(ctx, dbTx, tx.AccountID); err != nil {
		return err
	}
	if err = insertTransaction(ctx, dbTx, tx); err != nil {
		return err
	}
	for _, s := range splits {
		if err = insertSplit(ctx, dbTx, s); err != nil {
			return err
		}
	}
	for _, e := range entries {
		if err = insertEntry(ctx, dbTx, e); err != nil {
			return err
		}
	}
	if err = adjustBalance(ctx, dbTx, tx.AccountID, tx.AmountTotal.Neg()); err != nil {
		return err
	}
	return dbTx.Commit()
}

func (p *Store) ApplySettlement(ctx context.Context, s models.Settlement, entries []models.LedgerEntry) error {
	dbTx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			dbTx.Rollback()
		}
	}()

	if err = lockAccount(ctx, dbTx, s.AccountID); err != nil {
		return err
	}
	if err = insertSettlement(ctx, dbTx, s); err != nil {
		return err
	}
	for _, e := range entries {
		if err = insertEntry(ctx, dbTx, e); err != nil {
			return err
		}
	}
	if err = adjustBalance(ctx, dbTx, s.AccountID, s.Amount); err != nil {
		return err
	}
	if err = settleSplits(ctx, dbTx, s); err != nil {
		return err
	}
	return dbTx.Commit()
}

func (p *Store) ApplyTransfer(ctx context.Context, tx models.Transaction, toAccountID string, entries []models.LedgerEntry) error {
	dbTx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			dbTx.Rollback()
		}
	}()

	// Fixed lock order avoids deadlock between opposite-direction transfers.
	first, second := tx.AccountID, toAccountID
	if second < first {
		first, second = second, first
	}
	if err = lockAccount(ctx, dbTx, first); err != nil {
		return err
	}
	if err = lockAccount(ctx, dbTx, second); err != nil {
		return err
	}
	if err = insertTransaction(ctx, dbTx, tx); err != nil {
		return err
	}
	for _, e := range entries {
		if err = insertEntry(ctx, dbTx, e); err != nil {
			return err
		}
	}
	if err = adjustBalance(ctx, dbTx, tx.AccountID, tx.AmountTotal.Neg()); err != nil {
		return err
	}
	if err = adjustBalance(ctx, dbTx, toAccountID, tx.AmountTotal); err != nil {
		return err
	}
	return dbTx.Commit()
}

func lockAccount(ctx context.Context, dbTx *sql.Tx, accountID string) error {
	const query = `SELECT 1 FROM accounts WHERE id = $1 FOR UPDATE`

	var one int
	err := dbTx.QueryRowContext(ctx, query, accountID).Scan(&one)
	if err == sql.ErrNoRows {
		return fmt.Errorf("account %s: %w", accountID, apperr.ErrNotFound)
	}
	return err
}

func adjustBalance(ctx context.Context, dbTx *sql.Tx, accountID string, delta money.Money) error {
	const query = `UPDATE accounts SET current_balance = current_balance + $2 WHERE id = $1`

	_, err := dbTx.ExecContext(ctx, query, accountID, delta.String())
	return err
}

func insertTransaction(ctx context.Context, dbTx *sql.Tx, t models.Transaction) error {
	const query = `INSERT INTO transactions (id, kind, title, note, account_id, category_id, amount_total, currency, date, group_id, payer_member_id, deleted, created_at)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`

	_, err := dbTx.ExecContext(ctx, query, t.ID, string(t.Kind), t.Title, t.Note,
		t.AccountID, t.CategoryID, t.AmountTotal.String(), t.Currency, t.Date,
		t.GroupID, t.PayerMemberID, t.Deleted, t.CreatedAt)
	return err
}

func insertSplit(ctx context.Context, dbTx *sql.Tx, s models.Split) error {
	const query = `INSERT INTO splits (id, transaction_id, member_id, share_amount, share_percent, share_count, included, status, settled_amount)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`

	_, err := dbTx.ExecContext(ctx, query, s.ID, s.TransactionID, s.MemberID,
		s.ShareAmount.String(), s.SharePercent, s.ShareCount, s.Included,
		string(s.Status), s.SettledAmount.String())
	return err
}

func insertEntry(ctx context.Context, dbTx *sql.Tx, e models.LedgerEntry) error {
	const query = `INSERT INTO ledger_entries (id, transaction_id, entry_type, account_id, member_id, category_id, amount_signed, currency, created_at)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`

	_, err := dbTx.ExecContext(ctx, query, e.ID, e.TransactionID, string(e.Type),
		e.AccountID, e.MemberID, e.CategoryID, e.AmountSigned.String(), e.Currency, e.CreatedAt)
	return err
}

func insertSettlement(ctx context.Context, dbTx *sql.Tx, s models.Settlement) error {
	const query = `INSERT INTO settlements (id, group_id, from_member_id, to_member_id, account_id, amount, currency, method, date, note, linked_transaction_id)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`

	_, err := dbTx.ExecContext(ctx, query, s.ID, s.GroupID, s.FromMemberID, s.ToMemberID,
		s.AccountID, s.Amount.String(), s.Currency, string(s.Method), s.Date, s.Note, s.LinkedTransactionID)
	return err
}

// settleSplits advances settled_amount on the paying member's splits of the
// linked transaction, oldest first, and flips fully repaid splits to
// settled.
func settleSplits(ctx context.Context, dbTx *sql.Tx, s models.Settlement) error {
	const query = `SELECT id, share_amount, settled_amount FROM splits
	WHERE transaction_id = $1 AND member_id = $2 FOR UPDATE`

	rows, err := dbTx.QueryContext(ctx, query, s.LinkedTransactionID, s.FromMemberID)
	if err != nil {
		return err
	}
	defer rows.Close()

	type openSplit struct {
		id             string
		share, settled money.Money
	}
	var open []openSplit
	for rows.Next() {
		var (
			o                    openSplit
			shareStr, settledStr string
		)
		if err := rows.Scan(&o.id, &shareStr, &settledStr); err != nil {
			return err
		}
		if o.share, err = money.Parse(shareStr); err != nil {
			return err
		}
		if o.settled, err = money.Parse(settledStr); err != nil {
			return err
		}
		open = append(open, o)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	// The transaction holds a single connection; the cursor must be drained
	// and closed before the updates below can run on it.
	rows.Close()

	remaining := s.Amount
	for _, o := range open {
		outstanding := o.share.Sub(o.settled)
		paid := remaining
		if outstanding.LessThan(paid) {
			paid = outstanding
		}
		newSettled := o.settled.Add(paid)
		status := models.SplitOpen
		if !newSettled.LessThan(o.share) {
			status = models.SplitSettled
		}

		const update = `UPDATE splits SET settled_amount = $2, status = $3 WHERE id = $1`
		if _, err := dbTx.ExecContext(ctx, update, o.id, newSettled.String(), string(status)); err != nil {
			return err
		}
		remaining = remaining.Sub(paid)
	}
	return nil
}

func scanAccount(row interface{ Scan(...any) error }) (models.Account, error) {
	var (
		a          models.Account
		typ        string
		openStr    string
		currentStr string
	)
	err := row.Scan(&a.ID, &a.Name, &typ, &openStr, &currentStr, &a.Currency,
		&a.Archived, &a.Icon, &a.Color, &a.CreatedAt)
	if err != nil {
		return models.Account{}, err
	}
	a.Type = models.AccountType(typ)
	if a.OpeningBalance, err = money.Parse(openStr); err != nil {
		return models.Account{}, err
	}
	if a.CurrentBalance, err = money.Parse(currentStr); err != nil {
		return models.Account{}, err
	}
	return a, nil
}

var _ interfaces.Store = (*Store)(nil)
