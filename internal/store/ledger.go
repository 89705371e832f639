package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/bywater/internal/model"
)

type LedgerStore struct {
	db *sql.DB
}

func NewLedgerStore(db *sql.DB) *LedgerStore {
	return &LedgerStore{db: db}
}

// Credit adds amount to the user's materialized balance (creating the row
// at zero if absent) and appends a positive ledger entry. The balance
// mutation is a single upsert, so concurrent credits cannot lose updates.
func (s *LedgerStore) Credit(userID int64, amount int, changeType model.ChangeType, relatedID int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO balances (user_id, balance) VALUES (?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET balance = balance + excluded.balance`,
		userID, amount,
	)
	if err != nil {
		return fmt.Errorf("credit balance: %w", err)
	}

	_, err = tx.Exec(
		`INSERT INTO ledger_entries (user_id, amount, change_type, related_id) VALUES (?, ?, ?, ?)`,
		userID, amount, string(changeType), relatedID,
	)
	if err != nil {
		return fmt.Errorf("insert ledger entry: %w", err)
	}

	return tx.Commit()
}

// Debit subtracts amount only when the current balance covers it, in one
// conditional update, and appends a negative ledger entry. Returns false
// when the balance was insufficient; nothing is written in that case.
func (s *LedgerStore) Debit(userID int64, amount int, changeType model.ChangeType, relatedID int64) (bool, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		`UPDATE balances SET balance = balance - ? WHERE user_id = ? AND balance >= ?`,
		amount, userID, amount,
	)
	if err != nil {
		return false, fmt.Errorf("debit balance: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return false, nil
	}

	_, err = tx.Exec(
		`INSERT INTO ledger_entries (user_id, amount, change_type, related_id) VALUES (?, ?, ?, ?)`,
		userID, -amount, string(changeType), relatedID,
	)
	if err != nil {
		return false, fmt.Errorf("insert ledger entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	return true, nil
}

// Balance returns the materialized balance, or 0 when no row exists.
func (s *LedgerStore) Balance(userID int64) (int, error) {
	var balance int
	err := s.db.QueryRow(`SELECT balance FROM balances WHERE user_id = ?`, userID).Scan(&balance)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get balance: %w", err)
	}
	return balance, nil
}

// History returns the user's ledger entries, newest first.
func (s *LedgerStore) History(userID int64) ([]model.LedgerEntry, error) {
	rows, err := s.db.Query(
		`SELECT id, user_id, amount, change_type, related_id, created_at
		 FROM ledger_entries WHERE user_id = ? ORDER BY created_at DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []model.LedgerEntry
	for rows.Next() {
		var e model.LedgerEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Amount, &e.ChangeType, &e.RelatedID, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
