package model

import "time"

// ChangeType records why a ledger entry was written.
type ChangeType string

const (
	ChangeTaskApproved   ChangeType = "task_approved"
	ChangeRewardRedeemed ChangeType = "reward_redeemed"
)

// LedgerEntry is one append-only balance delta. Credits are positive,
// debits negative. RelatedID points at the submission or reward request
// that caused the change.
type LedgerEntry struct {
	ID         int64      `json:"id"`
	UserID     int64      `json:"user_id"`
	Amount     int        `json:"amount"`
	ChangeType ChangeType `json:"change_type"`
	RelatedID  int64      `json:"related_id"`
	CreatedAt  time.Time  `json:"created_at"`
}

type Balance struct {
	UserID  int64 `json:"user_id"`
	Balance int   `json:"balance"`
}
