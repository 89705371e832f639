package model

import "time"

type Category struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	SortOrder int       `json:"sort_order"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Task struct {
	ID             int64      `json:"id"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	DueDate        *time.Time `json:"due_date"`
	Recurrence     string     `json:"recurrence"`
	RecurrenceDays []int      `json:"recurrence_days,omitempty"`
	DayOfMonth     int        `json:"day_of_month,omitempty"`
	AssignedTo     int64      `json:"assigned_to"`
	CreatedBy      int64      `json:"created_by"`
	Points         int        `json:"points"`
	CategoryID     *int64     `json:"category_id"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}
