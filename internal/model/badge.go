package model

import "time"

// Badge holds a declarative award condition as raw JSON; parsing and
// evaluation live in the badge package.
type Badge struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Icon      string    `json:"icon"`
	Condition string    `json:"condition"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BadgeAward is a (user, badge) pair; a user holds a badge at most once.
// ReceivedAt is set when the dependent acknowledges the award.
type BadgeAward struct {
	ID         int64      `json:"id"`
	UserID     int64      `json:"user_id"`
	BadgeID    int64      `json:"badge_id"`
	AssignedAt time.Time  `json:"assigned_at"`
	ReceivedAt *time.Time `json:"received_at"`
}
