package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/bywater/internal/model"
)

type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

const userCols = `id, name, role, guardian_id, pin_hash IS NOT NULL, created_at, updated_at`

func scanUser(scanner interface{ Scan(...any) error }) (*model.User, error) {
	var u model.User
	var guardianID sql.NullInt64
	var hasPIN int

	err := scanner.Scan(&u.ID, &u.Name, &u.Role, &guardianID, &hasPIN, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if guardianID.Valid {
		u.GuardianID = &guardianID.Int64
	}
	u.HasPIN = hasPIN != 0
	return &u, nil
}

func (s *UserStore) Create(name string, role model.Role, guardianID *int64) (*model.User, error) {
	var gID sql.NullInt64
	if guardianID != nil {
		gID = sql.NullInt64{Int64: *guardianID, Valid: true}
	}

	result, err := s.db.Exec(
		`INSERT INTO users (name, role, guardian_id) VALUES (?, ?, ?)`,
		name, string(role), gID,
	)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *UserStore) GetByID(id int64) (*model.User, error) {
	row := s.db.QueryRow(`SELECT `+userCols+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *UserStore) List() ([]model.User, error) {
	rows, err := s.db.Query(`SELECT ` + userCols + ` FROM users ORDER BY role ASC, name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func (s *UserStore) ListDependentsOf(guardianID int64) ([]model.User, error) {
	rows, err := s.db.Query(
		`SELECT `+userCols+` FROM users WHERE guardian_id = ? ORDER BY name ASC`,
		guardianID,
	)
	if err != nil {
		return nil, fmt.Errorf("list dependents: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func (s *UserStore) Update(id int64, name string) (*model.User, error) {
	_, err := s.db.Exec(
		`UPDATE users SET name = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		name, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	return s.GetByID(id)
}

// Delete removes a user; tasks, submissions, ledger rows, balance, reward
// requests, and badge awards cascade at the schema level.
func (s *UserStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

// --- PIN methods ---

func (s *UserStore) SetPINHash(id int64, hash string) error {
	_, err := s.db.Exec(
		`UPDATE users SET pin_hash = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		hash, id,
	)
	if err != nil {
		return fmt.Errorf("set pin: %w", err)
	}
	return nil
}

func (s *UserStore) ClearPIN(id int64) error {
	_, err := s.db.Exec(
		`UPDATE users SET pin_hash = NULL, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		id,
	)
	if err != nil {
		return fmt.Errorf("clear pin: %w", err)
	}
	return nil
}

// GetPINHash returns the stored hash, or "" when no PIN is set.
func (s *UserStore) GetPINHash(id int64) (string, error) {
	var hash sql.NullString
	err := s.db.QueryRow(`SELECT pin_hash FROM users WHERE id = ?`, id).Scan(&hash)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get pin hash: %w", err)
	}
	return hash.String, nil
}
