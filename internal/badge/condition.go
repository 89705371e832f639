package badge

import (
	"encoding/json"
	"fmt"
)

// Condition is one recognized award rule. A badge's stored condition JSON
// may carry several; any satisfied condition grants the badge.
type Condition interface {
	isCondition()
}

// TaskApproveCondition grants when the user's approved-submission count
// reaches Threshold, optionally narrowed to one task category.
type TaskApproveCondition struct {
	Threshold    int
	CategorySlug string
}

// BadgeOwnCountCondition grants when the user's held-badge count reaches
// Threshold.
type BadgeOwnCountCondition struct {
	Threshold int
}

func (TaskApproveCondition) isCondition()   {}
func (BadgeOwnCountCondition) isCondition() {}

// conditionDoc is the stored JSON shape, e.g.
// {"task_approve":{"gte":5,"category":"kitchen"},"badge_own_count":{"gte":3}}.
// Keys outside the recognized set are ignored by the decoder.
type conditionDoc struct {
	TaskApprove *struct {
		GTE      int    `json:"gte"`
		Category string `json:"category,omitempty"`
	} `json:"task_approve,omitempty"`
	BadgeOwnCount *struct {
		GTE int `json:"gte"`
	} `json:"badge_own_count,omitempty"`
}

// ParseConditions decodes a badge's condition JSON into its recognized
// variants. A document with no recognized keys yields an empty slice, which
// never matches.
func ParseConditions(raw string) ([]Condition, error) {
	var doc conditionDoc
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("parse badge condition: %w", err)
	}

	var conditions []Condition
	if doc.TaskApprove != nil {
		if doc.TaskApprove.GTE < 1 {
			return nil, fmt.Errorf("task_approve.gte must be >= 1, got %d", doc.TaskApprove.GTE)
		}
		conditions = append(conditions, TaskApproveCondition{
			Threshold:    doc.TaskApprove.GTE,
			CategorySlug: doc.TaskApprove.Category,
		})
	}
	if doc.BadgeOwnCount != nil {
		if doc.BadgeOwnCount.GTE < 1 {
			return nil, fmt.Errorf("badge_own_count.gte must be >= 1, got %d", doc.BadgeOwnCount.GTE)
		}
		conditions = append(conditions, BadgeOwnCountCondition{Threshold: doc.BadgeOwnCount.GTE})
	}
	return conditions, nil
}
