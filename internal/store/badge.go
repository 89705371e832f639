package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/bywater/internal/model"
)

type BadgeStore struct {
	db *sql.DB
}

func NewBadgeStore(db *sql.DB) *BadgeStore {
	return &BadgeStore{db: db}
}

// --- Badge methods ---

const badgeCols = `id, name, icon, condition, active, created_at, updated_at`

func scanBadge(scanner interface{ Scan(...any) error }) (*model.Badge, error) {
	var b model.Badge
	var active int

	err := scanner.Scan(&b.ID, &b.Name, &b.Icon, &b.Condition, &active, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}

	b.Active = active != 0
	return &b, nil
}

func (s *BadgeStore) Create(name, icon, condition string, active bool) (*model.Badge, error) {
	var a int
	if active {
		a = 1
	}

	result, err := s.db.Exec(
		`INSERT INTO badges (name, icon, condition, active) VALUES (?, ?, ?, ?)`,
		name, icon, condition, a,
	)
	if err != nil {
		return nil, fmt.Errorf("insert badge: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *BadgeStore) GetByID(id int64) (*model.Badge, error) {
	row := s.db.QueryRow(`SELECT `+badgeCols+` FROM badges WHERE id = ?`, id)
	b, err := scanBadge(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get badge: %w", err)
	}
	return b, nil
}

func (s *BadgeStore) List() ([]model.Badge, error) {
	return s.queryBadges(`SELECT ` + badgeCols + ` FROM badges ORDER BY active DESC, name ASC`)
}

// ListActive returns only badges eligible for new grants.
func (s *BadgeStore) ListActive() ([]model.Badge, error) {
	return s.queryBadges(`SELECT ` + badgeCols + ` FROM badges WHERE active = 1 ORDER BY name ASC`)
}

func (s *BadgeStore) queryBadges(query string, args ...any) ([]model.Badge, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list badges: %w", err)
	}
	defer rows.Close()

	var badges []model.Badge
	for rows.Next() {
		b, err := scanBadge(rows)
		if err != nil {
			return nil, fmt.Errorf("scan badge: %w", err)
		}
		badges = append(badges, *b)
	}
	return badges, rows.Err()
}

func (s *BadgeStore) Update(id int64, name, icon, condition string, active bool) (*model.Badge, error) {
	var a int
	if active {
		a = 1
	}

	_, err := s.db.Exec(
		`UPDATE badges SET name = ?, icon = ?, condition = ?, active = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		name, icon, condition, a, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update badge: %w", err)
	}
	return s.GetByID(id)
}

// Delete removes a badge and cascades its awards.
func (s *BadgeStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM badges WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete badge: %w", err)
	}
	return nil
}

// --- Award methods ---

const awardCols = `id, user_id, badge_id, assigned_at, received_at`

func scanAward(scanner interface{ Scan(...any) error }) (*model.BadgeAward, error) {
	var a model.BadgeAward
	var receivedAt sql.NullTime

	err := scanner.Scan(&a.ID, &a.UserID, &a.BadgeID, &a.AssignedAt, &receivedAt)
	if err != nil {
		return nil, err
	}

	if receivedAt.Valid {
		a.ReceivedAt = &receivedAt.Time
	}
	return &a, nil
}

// Award grants the badge to the user once. A second grant, concurrent or
// not, hits the (user_id, badge_id) unique constraint and is absorbed by
// INSERT OR IGNORE; false means the user already held it.
func (s *BadgeStore) Award(userID, badgeID int64) (bool, error) {
	result, err := s.db.Exec(
		`INSERT OR IGNORE INTO badge_awards (user_id, badge_id) VALUES (?, ?)`,
		userID, badgeID,
	)
	if err != nil {
		return false, fmt.Errorf("insert badge award: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func (s *BadgeStore) GetAwardByID(id int64) (*model.BadgeAward, error) {
	row := s.db.QueryRow(`SELECT `+awardCols+` FROM badge_awards WHERE id = ?`, id)
	a, err := scanAward(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get badge award: %w", err)
	}
	return a, nil
}

func (s *BadgeStore) ListAwardsByUser(userID int64) ([]model.BadgeAward, error) {
	rows, err := s.db.Query(
		`SELECT `+awardCols+` FROM badge_awards WHERE user_id = ? ORDER BY assigned_at DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list badge awards: %w", err)
	}
	defer rows.Close()

	var awards []model.BadgeAward
	for rows.Next() {
		a, err := scanAward(rows)
		if err != nil {
			return nil, fmt.Errorf("scan badge award: %w", err)
		}
		awards = append(awards, *a)
	}
	return awards, rows.Err()
}

// AwardedBadgeIDs returns the set of badge ids the user already holds.
func (s *BadgeStore) AwardedBadgeIDs(userID int64) (map[int64]bool, error) {
	rows, err := s.db.Query(`SELECT badge_id FROM badge_awards WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("list awarded badge ids: %w", err)
	}
	defer rows.Close()

	ids := make(map[int64]bool)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan badge id: %w", err)
		}
		ids[id] = true
	}
	return ids, rows.Err()
}

func (s *BadgeStore) CountAwardsByUser(userID int64) (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM badge_awards WHERE user_id = ?`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count badge awards: %w", err)
	}
	return count, nil
}

// Acknowledge stamps received_at once, and only for the holder.
func (s *BadgeStore) Acknowledge(awardID, userID int64) (bool, error) {
	result, err := s.db.Exec(
		`UPDATE badge_awards SET received_at = CURRENT_TIMESTAMP WHERE id = ? AND user_id = ? AND received_at IS NULL`,
		awardID, userID,
	)
	if err != nil {
		return false, fmt.Errorf("acknowledge badge award: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}
