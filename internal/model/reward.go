package model

import "time"

type Reward struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Icon      string    `json:"icon"`
	PointCost int       `json:"point_cost"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type RequestStatus string

const (
	RequestSubmitted RequestStatus = "submitted"
	RequestApproved  RequestStatus = "approved"
	RequestRejected  RequestStatus = "rejected"
)

type RewardRequest struct {
	ID          int64         `json:"id"`
	RewardID    int64         `json:"reward_id"`
	RequestedBy int64         `json:"requested_by"`
	Status      RequestStatus `json:"status"`
	RequestedAt time.Time     `json:"requested_at"`
	ResolvedAt  *time.Time    `json:"resolved_at"`
}
