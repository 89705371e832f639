package badge

import (
	"fmt"
	"log/slog"

	"github.com/dukerupert/bywater/internal/model"
)

// SubmissionStats supplies the approved-submission counts conditions are
// evaluated against.
type SubmissionStats interface {
	CountApproved(userID int64) (int, error)
	CountApprovedInCategory(userID int64, slug string) (int, error)
}

// AwardStore supplies badge definitions and records grants.
type AwardStore interface {
	ListActive() ([]model.Badge, error)
	AwardedBadgeIDs(userID int64) (map[int64]bool, error)
	CountAwardsByUser(userID int64) (int, error)
	Award(userID, badgeID int64) (bool, error)
}

// Engine evaluates active badges against a user's activity and grants the
// ones whose conditions are met.
type Engine struct {
	badges AwardStore
	stats  SubmissionStats
	logger *slog.Logger
}

func NewEngine(badges AwardStore, stats SubmissionStats, logger *slog.Logger) *Engine {
	return &Engine{badges: badges, stats: stats, logger: logger}
}

// Evaluate runs after every task approval. For each active badge the user
// does not yet hold, any satisfied condition grants it. Grants go through
// an insert-or-ignore unique pair, so a concurrent evaluation granting the
// same badge is a no-op rather than an error. Returns the newly granted
// badges.
func (e *Engine) Evaluate(userID int64) ([]model.Badge, error) {
	active, err := e.badges.ListActive()
	if err != nil {
		return nil, fmt.Errorf("list active badges: %w", err)
	}

	held, err := e.badges.AwardedBadgeIDs(userID)
	if err != nil {
		return nil, fmt.Errorf("list held badges: %w", err)
	}

	var granted []model.Badge
	for _, b := range active {
		if held[b.ID] {
			continue
		}

		conditions, err := ParseConditions(b.Condition)
		if err != nil {
			// Stored conditions are validated on write; a bad one here
			// should not block the remaining badges.
			e.logger.Error("invalid badge condition", "badge_id", b.ID, "error", err)
			continue
		}

		ok, err := e.anySatisfied(userID, conditions)
		if err != nil {
			return granted, err
		}
		if !ok {
			continue
		}

		created, err := e.badges.Award(userID, b.ID)
		if err != nil {
			return granted, fmt.Errorf("award badge %d: %w", b.ID, err)
		}
		if created {
			e.logger.Info("badge awarded", "badge_id", b.ID, "user_id", userID)
			granted = append(granted, b)
		}
	}
	return granted, nil
}

func (e *Engine) anySatisfied(userID int64, conditions []Condition) (bool, error) {
	for _, c := range conditions {
		ok, err := e.satisfied(userID, c)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

func (e *Engine) satisfied(userID int64, c Condition) (bool, error) {
	switch c := c.(type) {
	case TaskApproveCondition:
		var count int
		var err error
		if c.CategorySlug != "" {
			count, err = e.stats.CountApprovedInCategory(userID, c.CategorySlug)
		} else {
			count, err = e.stats.CountApproved(userID)
		}
		if err != nil {
			return false, fmt.Errorf("count approved: %w", err)
		}
		return count >= c.Threshold, nil
	case BadgeOwnCountCondition:
		count, err := e.badges.CountAwardsByUser(userID)
		if err != nil {
			return false, fmt.Errorf("count awards: %w", err)
		}
		return count >= c.Threshold, nil
	default:
		return false, nil
	}
}
