package store

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/dukerupert/bywater/internal/model"
)

type TaskStore struct {
	db *sql.DB
}

func NewTaskStore(db *sql.DB) *TaskStore {
	return &TaskStore{db: db}
}

// --- Category methods ---

const categoryCols = `id, name, slug, sort_order, created_at, updated_at`

func scanCategory(scanner interface{ Scan(...any) error }) (*model.Category, error) {
	var c model.Category
	err := scanner.Scan(&c.ID, &c.Name, &c.Slug, &c.SortOrder, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *TaskStore) ListCategories() ([]model.Category, error) {
	rows, err := s.db.Query(`SELECT ` + categoryCols + ` FROM categories ORDER BY sort_order ASC, name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var categories []model.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, *c)
	}
	return categories, rows.Err()
}

func (s *TaskStore) GetCategoryByID(id int64) (*model.Category, error) {
	row := s.db.QueryRow(`SELECT `+categoryCols+` FROM categories WHERE id = ?`, id)
	c, err := scanCategory(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get category: %w", err)
	}
	return c, nil
}

func (s *TaskStore) GetCategoryBySlug(slug string) (*model.Category, error) {
	row := s.db.QueryRow(`SELECT `+categoryCols+` FROM categories WHERE slug = ?`, slug)
	c, err := scanCategory(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get category by slug: %w", err)
	}
	return c, nil
}

// --- Task methods ---

const taskCols = `id, title, description, due_date, recurrence, recurrence_days, day_of_month, assigned_to, created_by, points, category_id, created_at, updated_at`

func scanTask(scanner interface{ Scan(...any) error }) (*model.Task, error) {
	var t model.Task
	var dueDate sql.NullTime
	var days string
	var categoryID sql.NullInt64

	err := scanner.Scan(
		&t.ID, &t.Title, &t.Description, &dueDate, &t.Recurrence, &days,
		&t.DayOfMonth, &t.AssignedTo, &t.CreatedBy, &t.Points, &categoryID,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if dueDate.Valid {
		t.DueDate = &dueDate.Time
	}
	if categoryID.Valid {
		t.CategoryID = &categoryID.Int64
	}
	t.RecurrenceDays = decodeDays(days)
	return &t, nil
}

// encodeDays stores weekday indices as a comma-separated column value.
func encodeDays(days []int) string {
	if len(days) == 0 {
		return ""
	}
	parts := make([]string, len(days))
	for i, d := range days {
		parts[i] = strconv.Itoa(d)
	}
	return strings.Join(parts, ",")
}

func decodeDays(s string) []int {
	if s == "" {
		return nil
	}
	var days []int
	for _, part := range strings.Split(s, ",") {
		n, err := strconv.Atoi(part)
		if err != nil {
			continue
		}
		days = append(days, n)
	}
	return days
}

func (s *TaskStore) Create(t model.Task) (*model.Task, error) {
	var dueDate sql.NullTime
	if t.DueDate != nil {
		dueDate = sql.NullTime{Time: t.DueDate.UTC(), Valid: true}
	}
	var categoryID sql.NullInt64
	if t.CategoryID != nil {
		categoryID = sql.NullInt64{Int64: *t.CategoryID, Valid: true}
	}

	result, err := s.db.Exec(
		`INSERT INTO tasks (title, description, due_date, recurrence, recurrence_days, day_of_month, assigned_to, created_by, points, category_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.Title, t.Description, dueDate, t.Recurrence, encodeDays(t.RecurrenceDays),
		t.DayOfMonth, t.AssignedTo, t.CreatedBy, t.Points, categoryID,
	)
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *TaskStore) GetByID(id int64) (*model.Task, error) {
	row := s.db.QueryRow(`SELECT `+taskCols+` FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

func (s *TaskStore) List() ([]model.Task, error) {
	return s.queryTasks(`SELECT ` + taskCols + ` FROM tasks ORDER BY due_date ASC, title ASC`)
}

func (s *TaskStore) ListByAssignee(userID int64) ([]model.Task, error) {
	return s.queryTasks(
		`SELECT `+taskCols+` FROM tasks WHERE assigned_to = ? ORDER BY due_date ASC, title ASC`,
		userID,
	)
}

func (s *TaskStore) ListByOwner(guardianID int64) ([]model.Task, error) {
	return s.queryTasks(
		`SELECT `+taskCols+` FROM tasks WHERE created_by = ? ORDER BY due_date ASC, title ASC`,
		guardianID,
	)
}

func (s *TaskStore) queryTasks(query string, args ...any) ([]model.Task, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

func (s *TaskStore) Update(id int64, t model.Task) (*model.Task, error) {
	var dueDate sql.NullTime
	if t.DueDate != nil {
		dueDate = sql.NullTime{Time: t.DueDate.UTC(), Valid: true}
	}
	var categoryID sql.NullInt64
	if t.CategoryID != nil {
		categoryID = sql.NullInt64{Int64: *t.CategoryID, Valid: true}
	}

	_, err := s.db.Exec(
		`UPDATE tasks SET title = ?, description = ?, due_date = ?, recurrence = ?, recurrence_days = ?, day_of_month = ?, assigned_to = ?, points = ?, category_id = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		t.Title, t.Description, dueDate, t.Recurrence, encodeDays(t.RecurrenceDays),
		t.DayOfMonth, t.AssignedTo, t.Points, categoryID, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	return s.GetByID(id)
}

func (s *TaskStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}
