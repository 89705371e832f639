package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dukerupert/bywater/internal/model"
)

// ErrDuplicatePending is returned by Create when a submitted-status row
// already exists for the same (task, user) pair. The partial unique index
// enforces this even under concurrent submits.
var ErrDuplicatePending = errors.New("pending submission already exists")

type SubmissionStore struct {
	db *sql.DB
}

func NewSubmissionStore(db *sql.DB) *SubmissionStore {
	return &SubmissionStore{db: db}
}

const submissionCols = `id, task_id, submitted_by, status, submitted_at, resolved_at`

func scanSubmission(scanner interface{ Scan(...any) error }) (*model.Submission, error) {
	var sub model.Submission
	var resolvedAt sql.NullTime

	err := scanner.Scan(&sub.ID, &sub.TaskID, &sub.SubmittedBy, &sub.Status, &sub.SubmittedAt, &resolvedAt)
	if err != nil {
		return nil, err
	}

	if resolvedAt.Valid {
		sub.ResolvedAt = &resolvedAt.Time
	}
	return &sub, nil
}

func (s *SubmissionStore) Create(taskID, userID int64) (*model.Submission, error) {
	result, err := s.db.Exec(
		`INSERT INTO submissions (task_id, submitted_by) VALUES (?, ?)`,
		taskID, userID,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, ErrDuplicatePending
		}
		return nil, fmt.Errorf("insert submission: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *SubmissionStore) GetByID(id int64) (*model.Submission, error) {
	row := s.db.QueryRow(`SELECT `+submissionCols+` FROM submissions WHERE id = ?`, id)
	sub, err := scanSubmission(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get submission: %w", err)
	}
	return sub, nil
}

// LatestPendingForTask returns the most recent submitted-status submission
// for the task, or nil when none is pending.
func (s *SubmissionStore) LatestPendingForTask(taskID int64) (*model.Submission, error) {
	row := s.db.QueryRow(
		`SELECT `+submissionCols+` FROM submissions WHERE task_id = ? AND status = 'submitted' ORDER BY submitted_at DESC, id DESC LIMIT 1`,
		taskID,
	)
	sub, err := scanSubmission(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest pending submission: %w", err)
	}
	return sub, nil
}

// Resolve transitions a submission out of submitted exactly once. The
// conditional update is the guard against concurrent double-approval: the
// loser of the race sees zero rows affected and gets false back.
func (s *SubmissionStore) Resolve(id int64, status model.SubmissionStatus, resolvedAt time.Time) (bool, error) {
	result, err := s.db.Exec(
		`UPDATE submissions SET status = ?, resolved_at = ? WHERE id = ? AND status = 'submitted'`,
		string(status), resolvedAt.UTC(), id,
	)
	if err != nil {
		return false, fmt.Errorf("resolve submission: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func (s *SubmissionStore) List() ([]model.Submission, error) {
	return s.querySubmissions(`SELECT ` + submissionCols + ` FROM submissions ORDER BY submitted_at DESC, id DESC`)
}

func (s *SubmissionStore) ListByUser(userID int64) ([]model.Submission, error) {
	return s.querySubmissions(
		`SELECT `+submissionCols+` FROM submissions WHERE submitted_by = ? ORDER BY submitted_at DESC, id DESC`,
		userID,
	)
}

func (s *SubmissionStore) ListByTask(taskID int64) ([]model.Submission, error) {
	return s.querySubmissions(
		`SELECT `+submissionCols+` FROM submissions WHERE task_id = ? ORDER BY submitted_at DESC, id DESC`,
		taskID,
	)
}

func (s *SubmissionStore) querySubmissions(query string, args ...any) ([]model.Submission, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	defer rows.Close()

	var subs []model.Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		subs = append(subs, *sub)
	}
	return subs, rows.Err()
}

// CountApproved returns the user's total approved submissions.
func (s *SubmissionStore) CountApproved(userID int64) (int, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM submissions WHERE submitted_by = ? AND status = 'approved'`,
		userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count approved submissions: %w", err)
	}
	return count, nil
}

// CountApprovedInCategory restricts the count to tasks whose category slug
// matches.
func (s *SubmissionStore) CountApprovedInCategory(userID int64, slug string) (int, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*)
		 FROM submissions s
		 JOIN tasks t ON t.id = s.task_id
		 JOIN categories c ON c.id = t.category_id
		 WHERE s.submitted_by = ? AND s.status = 'approved' AND c.slug = ?`,
		userID, slug,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count approved submissions in category: %w", err)
	}
	return count, nil
}
