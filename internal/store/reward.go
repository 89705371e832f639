package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/bywater/internal/model"
)

type RewardStore struct {
	db *sql.DB
}

func NewRewardStore(db *sql.DB) *RewardStore {
	return &RewardStore{db: db}
}

// --- Catalog methods ---

const rewardCols = `id, name, icon, point_cost, active, created_at, updated_at`

func scanReward(scanner interface{ Scan(...any) error }) (*model.Reward, error) {
	var r model.Reward
	var active int

	err := scanner.Scan(&r.ID, &r.Name, &r.Icon, &r.PointCost, &active, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}

	r.Active = active != 0
	return &r, nil
}

func (s *RewardStore) Create(name, icon string, pointCost int, active bool) (*model.Reward, error) {
	var a int
	if active {
		a = 1
	}

	result, err := s.db.Exec(
		`INSERT INTO rewards (name, icon, point_cost, active) VALUES (?, ?, ?, ?)`,
		name, icon, pointCost, a,
	)
	if err != nil {
		return nil, fmt.Errorf("insert reward: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *RewardStore) GetByID(id int64) (*model.Reward, error) {
	row := s.db.QueryRow(`SELECT `+rewardCols+` FROM rewards WHERE id = ?`, id)
	r, err := scanReward(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get reward: %w", err)
	}
	return r, nil
}

// List returns all rewards, active first, then by name.
func (s *RewardStore) List() ([]model.Reward, error) {
	rows, err := s.db.Query(`SELECT ` + rewardCols + ` FROM rewards ORDER BY active DESC, name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list rewards: %w", err)
	}
	defer rows.Close()

	var rewards []model.Reward
	for rows.Next() {
		r, err := scanReward(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reward: %w", err)
		}
		rewards = append(rewards, *r)
	}
	return rewards, rows.Err()
}

func (s *RewardStore) Update(id int64, name, icon string, pointCost int, active bool) (*model.Reward, error) {
	var a int
	if active {
		a = 1
	}

	_, err := s.db.Exec(
		`UPDATE rewards SET name = ?, icon = ?, point_cost = ?, active = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		name, icon, pointCost, a, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update reward: %w", err)
	}
	return s.GetByID(id)
}

func (s *RewardStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM rewards WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete reward: %w", err)
	}
	return nil
}

// --- Request methods ---

const requestCols = `id, reward_id, requested_by, status, requested_at, resolved_at`

func scanRequest(scanner interface{ Scan(...any) error }) (*model.RewardRequest, error) {
	var r model.RewardRequest
	var resolvedAt sql.NullTime

	err := scanner.Scan(&r.ID, &r.RewardID, &r.RequestedBy, &r.Status, &r.RequestedAt, &resolvedAt)
	if err != nil {
		return nil, err
	}

	if resolvedAt.Valid {
		r.ResolvedAt = &resolvedAt.Time
	}
	return &r, nil
}

func (s *RewardStore) CreateRequest(rewardID, userID int64) (*model.RewardRequest, error) {
	result, err := s.db.Exec(
		`INSERT INTO reward_requests (reward_id, requested_by) VALUES (?, ?)`,
		rewardID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("insert reward request: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetRequestByID(id)
}

func (s *RewardStore) GetRequestByID(id int64) (*model.RewardRequest, error) {
	row := s.db.QueryRow(`SELECT `+requestCols+` FROM reward_requests WHERE id = ?`, id)
	r, err := scanRequest(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get reward request: %w", err)
	}
	return r, nil
}

// ResolveRequest transitions a request out of submitted exactly once; the
// conditional update makes the second of two concurrent approvals a no-op.
func (s *RewardStore) ResolveRequest(id int64, status model.RequestStatus, resolvedAt time.Time) (bool, error) {
	result, err := s.db.Exec(
		`UPDATE reward_requests SET status = ?, resolved_at = ? WHERE id = ? AND status = 'submitted'`,
		string(status), resolvedAt.UTC(), id,
	)
	if err != nil {
		return false, fmt.Errorf("resolve reward request: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// ReopenRequest puts a request back in submitted status. Used when a
// debit fails after the request already won the resolve race.
func (s *RewardStore) ReopenRequest(id int64) error {
	_, err := s.db.Exec(
		`UPDATE reward_requests SET status = 'submitted', resolved_at = NULL WHERE id = ?`,
		id,
	)
	if err != nil {
		return fmt.Errorf("reopen reward request: %w", err)
	}
	return nil
}

// ListRequests returns all requests newest first, optionally filtered by
// status ("" means all).
func (s *RewardStore) ListRequests(status model.RequestStatus) ([]model.RewardRequest, error) {
	if status == "" {
		return s.queryRequests(`SELECT ` + requestCols + ` FROM reward_requests ORDER BY requested_at DESC, id DESC`)
	}
	return s.queryRequests(
		`SELECT `+requestCols+` FROM reward_requests WHERE status = ? ORDER BY requested_at DESC, id DESC`,
		string(status),
	)
}

func (s *RewardStore) ListRequestsByUser(userID int64, status model.RequestStatus) ([]model.RewardRequest, error) {
	if status == "" {
		return s.queryRequests(
			`SELECT `+requestCols+` FROM reward_requests WHERE requested_by = ? ORDER BY requested_at DESC, id DESC`,
			userID,
		)
	}
	return s.queryRequests(
		`SELECT `+requestCols+` FROM reward_requests WHERE requested_by = ? AND status = ? ORDER BY requested_at DESC, id DESC`,
		userID, string(status),
	)
}

func (s *RewardStore) queryRequests(query string, args ...any) ([]model.RewardRequest, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list reward requests: %w", err)
	}
	defer rows.Close()

	var requests []model.RewardRequest
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reward request: %w", err)
		}
		requests = append(requests, *r)
	}
	return requests, rows.Err()
}
