package engine

import "fmt"

// ValidationError reports malformed or missing input.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func validationf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// ForbiddenError reports an actor lacking the role or ownership an
// operation requires.
type ForbiddenError struct {
	Msg string
}

func (e *ForbiddenError) Error() string { return e.Msg }

func forbiddenf(format string, args ...any) error {
	return &ForbiddenError{Msg: fmt.Sprintf(format, args...)}
}

// ConflictError reports a state-machine violation: a duplicate pending
// submission, or a transition attempted on an already-resolved row.
type ConflictError struct {
	Msg string
}

func (e *ConflictError) Error() string { return e.Msg }

func conflictf(format string, args ...any) error {
	return &ConflictError{Msg: fmt.Sprintf(format, args...)}
}

// NotFoundError reports a missing referenced entity.
type NotFoundError struct {
	Entity string
	ID     int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

// InsufficientBalanceError reports a redemption the user's points cannot
// cover.
type InsufficientBalanceError struct {
	UserID   int64
	Balance  int
	Required int
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("user %d has %d points, needs %d", e.UserID, e.Balance, e.Required)
}
