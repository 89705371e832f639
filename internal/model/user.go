package model

import "time"

type Role string

const (
	RoleGuardian  Role = "guardian"
	RoleDependent Role = "dependent"
)

type User struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Role       Role      `json:"role"`
	GuardianID *int64    `json:"guardian_id"`
	HasPIN     bool      `json:"has_pin"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (u *User) IsGuardian() bool {
	return u.Role == RoleGuardian
}

func (u *User) IsDependent() bool {
	return u.Role == RoleDependent
}
