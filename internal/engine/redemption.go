package engine

import (
	"fmt"
	"time"

	"github.com/dukerupert/bywater/internal/model"
)

// RequestRedemption files a dependent's request to spend points on a
// catalog item. The requester's balance must cover the item's cost at
// request time; the cost is read again at approval, not frozen here.
func (e *Engine) RequestRedemption(actorID, rewardID int64) (*model.RewardRequest, error) {
	actor, err := e.requireDependent(actorID)
	if err != nil {
		return nil, err
	}

	reward, err := e.rewards.GetByID(rewardID)
	if err != nil {
		return nil, fmt.Errorf("get reward: %w", err)
	}
	if reward == nil {
		return nil, validationf("reward %d does not exist", rewardID)
	}
	if !reward.Active {
		return nil, validationf("reward %d is not active", rewardID)
	}

	balance, err := e.ledger.Balance(actor.ID)
	if err != nil {
		return nil, fmt.Errorf("get balance: %w", err)
	}
	if balance < reward.PointCost {
		return nil, &InsufficientBalanceError{UserID: actor.ID, Balance: balance, Required: reward.PointCost}
	}

	req, err := e.rewards.CreateRequest(reward.ID, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("create reward request: %w", err)
	}
	return req, nil
}

// ApproveRedemption debits the requester's ledger by the item's current
// cost and marks the request approved. The conditional status update
// decides between concurrent approvals; the conditional debit re-checks
// the balance, which may have dropped since the request was filed.
func (e *Engine) ApproveRedemption(requestID, actorID int64) (*model.RewardRequest, error) {
	if _, err := e.requireGuardian(actorID); err != nil {
		return nil, err
	}

	req, err := e.rewards.GetRequestByID(requestID)
	if err != nil {
		return nil, fmt.Errorf("get reward request: %w", err)
	}
	if req == nil {
		return nil, &NotFoundError{Entity: "reward request", ID: requestID}
	}
	if req.Status != model.RequestSubmitted {
		return nil, conflictf("reward request %d is already %s", req.ID, req.Status)
	}

	reward, err := e.rewards.GetByID(req.RewardID)
	if err != nil {
		return nil, fmt.Errorf("get reward: %w", err)
	}
	if reward == nil {
		return nil, &NotFoundError{Entity: "reward", ID: req.RewardID}
	}

	resolved, err := e.rewards.ResolveRequest(req.ID, model.RequestApproved, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("approve reward request: %w", err)
	}
	if !resolved {
		return nil, conflictf("reward request %d is already resolved", req.ID)
	}

	debited, err := e.ledger.Debit(req.RequestedBy, reward.PointCost, model.ChangeRewardRedeemed, req.ID)
	if err != nil {
		return nil, fmt.Errorf("debit points: %w", err)
	}
	if !debited {
		// The balance dropped between the request and this approval.
		// Put the request back so the guardian can retry later.
		if err := e.rewards.ReopenRequest(req.ID); err != nil {
			return nil, fmt.Errorf("reopen reward request: %w", err)
		}
		balance, err := e.ledger.Balance(req.RequestedBy)
		if err != nil {
			return nil, fmt.Errorf("get balance: %w", err)
		}
		return nil, &InsufficientBalanceError{UserID: req.RequestedBy, Balance: balance, Required: reward.PointCost}
	}

	return e.rewards.GetRequestByID(req.ID)
}

// RejectRedemption marks the request rejected. No ledger effect.
func (e *Engine) RejectRedemption(requestID, actorID int64) (*model.RewardRequest, error) {
	if _, err := e.requireGuardian(actorID); err != nil {
		return nil, err
	}

	req, err := e.rewards.GetRequestByID(requestID)
	if err != nil {
		return nil, fmt.Errorf("get reward request: %w", err)
	}
	if req == nil {
		return nil, &NotFoundError{Entity: "reward request", ID: requestID}
	}

	resolved, err := e.rewards.ResolveRequest(req.ID, model.RequestRejected, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("reject reward request: %w", err)
	}
	if !resolved {
		return nil, conflictf("reward request %d is already resolved", req.ID)
	}

	return e.rewards.GetRequestByID(req.ID)
}

// ListRedemptions returns all requests for a guardian (optionally scoped
// by status), or the actor's own for a dependent, newest first.
func (e *Engine) ListRedemptions(actorID int64, status model.RequestStatus) ([]model.RewardRequest, error) {
	actor, err := e.requireUser(actorID)
	if err != nil {
		return nil, err
	}

	if actor.IsGuardian() {
		return e.rewards.ListRequests(status)
	}
	return e.rewards.ListRequestsByUser(actor.ID, status)
}
