// Package sqlite is the go-sqlite3-backed Store, the single-writer
// deployment for a personal ledger kept on disk. Each Apply method runs as
// one database transaction; sqlite's file lock serializes writers, and the
// system assumes a single logical writer per ledger.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

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

// Open opens (or creates) the database at path and ensures the schema
// exists. The _txlock=immediate option makes write transactions take the
// file lock up front instead of on first write.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_txlock=immediate&_foreign_keys=on")
	if err != nil {
		return nil, err
	}
	// sqlite allows one writer; more connections just queue on the lock.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) UpsertAccount(ctx context.Context, a models.Account) error {
	const query = `INSERT INTO accounts (id, name, type, opening_balance, current_balance, currency, archived, icon, color, created_at)
	VALUES (?,?,?,?,?,?,?,?,?,?)
	ON CONFLICT (id) DO UPDATE SET name=excluded.name, type=excluded.type,
	opening_balance=excluded.opening_balance, current_balance=excluded.current_balance,
	currency=excluded.currency, archived=excluded.archived, icon=excluded.icon, color=excluded.color`

	_, err := s.db.ExecContext(ctx, query, a.ID, a.Name, string(a.Type),
		a.OpeningBalance.String(), a.CurrentBalance.String(), a.Currency,
		a.Archived, a.Icon, a.Color, a.CreatedAt)
	return err
}

func (s *Store) UpsertCategory(ctx context.Context, c models.Category) error {
	const query = `INSERT INTO categories (id, name, icon, color, parent_id)
	VALUES (?,?,?,?,?)
	ON CONFLICT (id) DO UPDATE SET name=excluded.name, icon=excluded.icon,
	color=excluded.color, parent_id=excluded.parent_id`

	_, err := s.db.ExecContext(ctx, query, c.ID, c.Name, c.Icon, c.Color, c.ParentID)
	return err
}

func (s *Store) UpsertGroup(ctx context.Context, g models.Group) error {
	const query = `INSERT INTO groups (id, name, description, archived, created_at)
	VALUES (?,?,?,?,?)
	ON CONFLICT (id) DO UPDATE SET name=excluded.name,
	description=excluded.description, archived=excluded.archived`

	_, err := s.db.ExecContext(ctx, query, g.ID, g.Name, g.Description, g.Archived, g.CreatedAt)
	return err
}

func (s *Store) UpsertMember(ctx context.Context, m models.Member) error {
	const query = `INSERT INTO members (id, group_id, display_name, notes, is_self, avatar_color, created_at)
	VALUES (?,?,?,?,?,?,?)
	ON CONFLICT (id) DO UPDATE SET display_name=excluded.display_name,
	notes=excluded.notes, avatar_color=excluded.avatar_color`

	_, err := s.db.ExecContext(ctx, query, m.ID, m.GroupID, m.DisplayName, m.Notes, m.IsSelf, m.AvatarColor, m.CreatedAt)
	return err
}

func (s *Store) Account(ctx context.Context, id string) (models.Account, error) {
	const query = `SELECT id, name, type, opening_balance, current_balance, currency, archived, icon, color, created_at
	FROM accounts WHERE id = ?`

	a, err := scanAccount(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return models.Account{}, fmt.Errorf("account %s: %w", id, apperr.ErrNotFound)
	}
	return a, err
}

func (s *Store) Accounts(ctx context.Context) ([]models.Account, error) {
	const query = `SELECT id, name, type, opening_balance, current_balance, currency, archived, icon, color, created_at
	FROM accounts ORDER BY created_at`

	rows, err := s.db.QueryContext(ctx, query)
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

func (s *Store) Groups(ctx context.Context) ([]models.Group, error) {
	const query = `SELECT id, name, description, archived, created_at FROM groups ORDER BY created_at`

	rows, err := s.db.QueryContext(ctx, query)
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

func (s *Store) Members(ctx context.Context, groupID string) ([]models.Member, error) {
	const query = `SELECT id, group_id, display_name, notes, is_self, avatar_color, created_at
	FROM members WHERE group_id = ? ORDER BY created_at`

	rows, err := s.db.QueryContext(ctx, query, groupID)
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

func (s *Store) Transactions(ctx context.Context) ([]models.Transaction, error) {
	const query = `SELECT id, kind, title, note, account_id, category_id, amount_total, currency, date, group_id, payer_member_id, deleted, created_at
	FROM transactions ORDER BY date DESC`

	rows, err := s.db.QueryContext(ctx, query)
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

func (s *Store) SplitsByTransaction(ctx context.Context, transactionID string) ([]models.Split, error) {
	const query = `SELECT id, transaction_id, member_id, share_amount, share_percent, share_count, included, status, settled_amount
	FROM splits WHERE transaction_id = ?`

	rows, err := s.db.QueryContext(ctx, query, transactionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var splits []models.Split
	for rows.Next() {
		var (
			sp                   models.Split
			status               string
			shareStr, settledStr string
		)
		if err := rows.Scan(&sp.ID, &sp.TransactionID, &sp.MemberID, &shareStr,
			&sp.SharePercent, &sp.ShareCount, &sp.Included, &status, &settledStr); err != nil {
			return nil, err
		}
		sp.Status = models.SplitStatus(status)
		if sp.ShareAmount, err = money.Parse(shareStr); err != nil {
			return nil, err
		}
		if sp.SettledAmount, err = money.Parse(settledStr); err != nil {
			return nil, err
		}
		splits = append(splits, sp)
	}
	return splits, rows.Err()
}

func (s *Store) Entries(ctx context.Context) ([]models.LedgerEntry, error) {
	return s.queryEntries(ctx, `SELECT id, transaction_id, entry_type, account_id, member_id, category_id, amount_signed, currency, created_at
	FROM ledger_entries ORDER BY created_at`)
}

func (s *Store) EntriesByAccount(ctx context.Context, accountID string) ([]models.LedgerEntry, error) {
	return s.queryEntries(ctx, `SELECT id, transaction_id, entry_type, account_id, member_id, category_id, amount_signed, currency, created_at
	FROM ledger_entries WHERE account_id = ? ORDER BY created_at`, accountID)
}

func (s *Store) EntriesByTransaction(ctx context.Context, transactionID string) ([]models.LedgerEntry, error) {
	return s.queryEntries(ctx, `SELECT id, transaction_id, entry_type, account_id, member_id, category_id, amount_signed, currency, created_at
	FROM ledger_entries WHERE transaction_id = ? ORDER BY created_at`, transactionID)
}

func (s *Store) queryEntries(ctx context.Context, query string, args ...any) ([]models.LedgerEntry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
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

func (s *Store) Settlements(ctx context.Context) ([]models.Settlement, error) {
	const query = `SELECT id, group_id, from_member_id, to_member_id, account_id, amount, currency, method, date, note, linked_transaction_id
	FROM settlements ORDER BY date DESC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var settlements []models.Settlement
	for rows.Next() {
		var (
			stl       models.Settlement
			method    string
			amountStr string
		)
		if err := rows.Scan(&stl.ID, &stl.GroupID, &stl.FromMemberID, &stl.ToMemberID, &stl.AccountID,
			&amountStr, &stl.Currency, &method, &stl.Date, &stl.Note, &stl.LinkedTransactionID); err != nil {
			return nil, err
		}
		stl.Method = models.SettlementMethod(method)
		if stl.Amount, err = money.Parse(amountStr); err != nil {
			return nil, err
		}
		settlements = append(settlements, stl)
	}
	return settlements, rows.Err()
}

func (s *Store) ApplySplitTransaction(ctx context.Context, tx models.Transaction, splits []models.Split, entries []models.LedgerEntry) error {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			dbTx.Rollback()
		}
	}()

	if err = accountExists(ctx, dbTx, tx.AccountID); err != nil {
		return err
	}
	if err = insertTransaction(ctx, dbTx, tx); err != nil {
		return err
	}
	for _, sp := range splits {
		if err = insertSplit(ctx, dbTx, sp); err != nil {
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

func (s *Store) ApplySettlement(ctx context.Context, stl models.Settlement, entries []models.LedgerEntry) error {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			dbTx.Rollback()
		}
	}()

	if err = accountExists(ctx, dbTx, stl.AccountID); err != nil {
		return err
	}
	if err = insertSettlement(ctx, dbTx, stl); err != nil {
		return err
	}
	for _, e := range entries {
		if err = insertEntry(ctx, dbTx, e); err != nil {
			return err
		}
	}
	if err = adjustBalance(ctx, dbTx, stl.AccountID, stl.Amount); err != nil {
		return err
	}
	if err = settleSplits(ctx, dbTx, stl); err != nil {
		return err
	}
	return dbTx.Commit()
}

func (s *Store) ApplyTransfer(ctx context.Context, tx models.Transaction, toAccountID string, entries []models.LedgerEntry) error {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			dbTx.Rollback()
		}
	}()

	if err = accountExists(ctx, dbTx, tx.AccountID); err != nil {
		return err
	}
	if err = accountExists(ctx, dbTx, toAccountID); err != nil {
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

func accountExists(ctx context.Context, dbTx *sql.Tx, accountID string) error {
	const query = `SELECT 1 FROM accounts WHERE id = ?`

	var one int
	err := dbTx.QueryRowContext(ctx, query, accountID).Scan(&one)
	if err == sql.ErrNoRows {
		return fmt.Errorf("account %s: %w", accountID, apperr.ErrNotFound)
	}
	return err
}

// adjustBalance reads the balance inside the transaction, applies the delta
// in exact Money arithmetic, and writes it back. Safe under the single-writer
// assumption plus sqlite's transaction lock.
func adjustBalance(ctx context.Context, dbTx *sql.Tx, accountID string, delta money.Money) error {
	var balanceStr string
	err := dbTx.QueryRowContext(ctx, `SELECT current_balance FROM accounts WHERE id = ?`, accountID).Scan(&balanceStr)
	if err == sql.ErrNoRows {
		return fmt.Errorf("account %s: %w", accountID, apperr.ErrNotFound)
	}
	if err != nil {
		return err
	}
	balance, err := money.Parse(balanceStr)
	if err != nil {
		return err
	}

	_, err = dbTx.ExecContext(ctx, `UPDATE accounts SET current_balance = ? WHERE id = ?`,
		balance.Add(delta).String(), accountID)
	return err
}

func insertTransaction(ctx context.Context, dbTx *sql.Tx, t models.Transaction) error {
	const query = `INSERT INTO transactions (id, kind, title, note, account_id, category_id, amount_total, currency, date, group_id, payer_member_id, deleted, created_at)
	VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`

	_, err := dbTx.ExecContext(ctx, query, t.ID, string(t.Kind), t.Title, t.Note,
		t.AccountID, t.CategoryID, t.AmountTotal.String(), t.Currency, t.Date,
		t.GroupID, t.PayerMemberID, t.Deleted, t.CreatedAt)
	return err
}

func insertSplit(ctx context.Context, dbTx *sql.Tx, sp models.Split) error {
	const query = `INSERT INTO splits (id, transaction_id, member_id, share_amount, share_percent, share_count, included, status, settled_amount)
	VALUES (?,?,?,?,?,?,?,?,?)`

	_, err := dbTx.ExecContext(ctx, query, sp.ID, sp.TransactionID, sp.MemberID,
		sp.ShareAmount.String(), sp.SharePercent, sp.ShareCount, sp.Included,
		string(sp.Status), sp.SettledAmount.String())
	return err
}

func insertEntry(ctx context.Context, dbTx *sql.Tx, e models.LedgerEntry) error {
	const query = `INSERT INTO ledger_entries (id, transaction_id, entry_type, account_id, member_id, category_id, amount_signed, currency, created_at)
	VALUES (?,?,?,?,?,?,?,?,?)`

	_, err := dbTx.ExecContext(ctx, query, e.ID, e.TransactionID, string(e.Type),
		e.AccountID, e.MemberID, e.CategoryID, e.AmountSigned.String(), e.Currency, e.CreatedAt)
	return err
}

func insertSettlement(ctx context.Context, dbTx *sql.Tx, stl models.Settlement) error {
	const query = `INSERT INTO settlements (id, group_id, from_member_id, to_member_id, account_id, amount, currency, method, date, note, linked_transaction_id)
	VALUES (?,?,?,?,?,?,?,?,?,?,?)`

	_, err := dbTx.ExecContext(ctx, query, stl.ID, stl.GroupID, stl.FromMemberID, stl.ToMemberID,
		stl.AccountID, stl.Amount.String(), stl.Currency, string(stl.Method), stl.Date, stl.Note, stl.LinkedTransactionID)
	return err
}

func settleSplits(ctx context.Context, dbTx *sql.Tx, stl models.Settlement) error {
	const query = `SELECT id, share_amount, settled_amount FROM splits
	WHERE transaction_id = ? AND member_id = ?`

	rows, err := dbTx.QueryContext(ctx, query, stl.LinkedTransactionID, stl.FromMemberID)
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
	rows.Close()

	remaining := stl.Amount
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

		const update = `UPDATE splits SET settled_amount = ?, status = ? WHERE id = ?`
		if _, err := dbTx.ExecContext(ctx, update, newSettled.String(), string(status), o.id); err != nil {
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
