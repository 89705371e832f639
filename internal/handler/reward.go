package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/bywater/internal/engine"
	"github.com/dukerupert/bywater/internal/middleware"
	"github.com/dukerupert/bywater/internal/model"
	"github.com/dukerupert/bywater/internal/store"
	"github.com/dukerupert/bywater/internal/websocket"
)

type RewardHandler struct {
	engine  *engine.Engine
	rewards *store.RewardStore
	ledger  *store.LedgerStore
	users   *store.UserStore
	hub     *websocket.Hub
	logger  *slog.Logger
}

func NewRewardHandler(eng *engine.Engine, rewards *store.RewardStore, ledger *store.LedgerStore, users *store.UserStore, hub *websocket.Hub, logger *slog.Logger) *RewardHandler {
	return &RewardHandler{engine: eng, rewards: rewards, ledger: ledger, users: users, hub: hub, logger: logger}
}

func (h *RewardHandler) broadcast(msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(msg)
	}
}

// requireGuardian loads the actor and checks the guardian role, writing
// the error response itself when the check fails.
func (h *RewardHandler) requireGuardian(w http.ResponseWriter, r *http.Request) *model.User {
	actor, err := h.users.GetByID(middleware.ActorID(r.Context()))
	if err != nil {
		h.logger.Error("load actor", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load actor"})
		return nil
	}
	if actor == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unknown actor"})
		return nil
	}
	if !actor.IsGuardian() {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "guardian role required"})
		return nil
	}
	return actor
}

// --- Catalog endpoints ---

type rewardRequest struct {
	Name      string `json:"name"`
	Icon      string `json:"icon"`
	PointCost int    `json:"point_cost"`
	Active    bool   `json:"active"`
}

func (h *RewardHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h.requireGuardian(w, r) == nil {
		return
	}

	var req rewardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}
	if req.PointCost < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "point_cost must be >= 0"})
		return
	}

	reward, err := h.rewards.Create(req.Name, req.Icon, req.PointCost, req.Active)
	if err != nil {
		h.logger.Error("create reward", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create reward"})
		return
	}

	h.broadcast(websocket.NewMessage("reward", "created", reward.ID))

	writeJSON(w, http.StatusCreated, reward)
}

func (h *RewardHandler) List(w http.ResponseWriter, r *http.Request) {
	rewards, err := h.rewards.List()
	if err != nil {
		h.logger.Error("list rewards", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list rewards"})
		return
	}
	if rewards == nil {
		rewards = []model.Reward{}
	}
	writeJSON(w, http.StatusOK, rewards)
}

func (h *RewardHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h.requireGuardian(w, r) == nil {
		return
	}

	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	existing, err := h.rewards.GetByID(id)
	if err != nil {
		h.logger.Error("get reward", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get reward"})
		return
	}
	if existing == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "reward not found"})
		return
	}

	var req rewardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}
	if req.PointCost < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "point_cost must be >= 0"})
		return
	}

	reward, err := h.rewards.Update(id, req.Name, req.Icon, req.PointCost, req.Active)
	if err != nil {
		h.logger.Error("update reward", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update reward"})
		return
	}

	h.broadcast(websocket.NewMessage("reward", "updated", id))

	writeJSON(w, http.StatusOK, reward)
}

func (h *RewardHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h.requireGuardian(w, r) == nil {
		return
	}

	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	if err := h.rewards.Delete(id); err != nil {
		h.logger.Error("delete reward", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delete reward"})
		return
	}

	h.broadcast(websocket.NewMessage("reward", "deleted", id))

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// --- Redemption endpoints ---

func (h *RewardHandler) Request(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	req, err := h.engine.RequestRedemption(middleware.ActorID(r.Context()), id)
	if err != nil {
		if isInternal(err) {
			h.logger.Error("request redemption", "error", err)
		}
		writeEngineError(w, err)
		return
	}

	h.broadcast(websocket.NewUserMessage("redemption", "requested", req.ID, req.RequestedBy))

	writeJSON(w, http.StatusCreated, req)
}

func (h *RewardHandler) ApproveRequest(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	req, err := h.engine.ApproveRedemption(id, middleware.ActorID(r.Context()))
	if err != nil {
		if isInternal(err) {
			h.logger.Error("approve redemption", "error", err)
		}
		writeEngineError(w, err)
		return
	}

	h.broadcast(websocket.NewUserMessage("redemption", "approved", req.ID, req.RequestedBy))

	writeJSON(w, http.StatusOK, req)
}

func (h *RewardHandler) RejectRequest(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	req, err := h.engine.RejectRedemption(id, middleware.ActorID(r.Context()))
	if err != nil {
		if isInternal(err) {
			h.logger.Error("reject redemption", "error", err)
		}
		writeEngineError(w, err)
		return
	}

	h.broadcast(websocket.NewUserMessage("redemption", "rejected", req.ID, req.RequestedBy))

	writeJSON(w, http.StatusOK, req)
}

func (h *RewardHandler) ListRequests(w http.ResponseWriter, r *http.Request) {
	status := model.RequestStatus(r.URL.Query().Get("status"))
	switch status {
	case "", model.RequestSubmitted, model.RequestApproved, model.RequestRejected:
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status filter"})
		return
	}

	requests, err := h.engine.ListRedemptions(middleware.ActorID(r.Context()), status)
	if err != nil {
		if isInternal(err) {
			h.logger.Error("list redemptions", "error", err)
		}
		writeEngineError(w, err)
		return
	}
	if requests == nil {
		requests = []model.RewardRequest{}
	}
	writeJSON(w, http.StatusOK, requests)
}

// --- Ledger endpoints ---

// canViewLedger allows self-reads and guardian reads.
func (h *RewardHandler) canViewLedger(w http.ResponseWriter, r *http.Request, userID int64) bool {
	actorID := middleware.ActorID(r.Context())
	if actorID == userID {
		return true
	}

	actor, err := h.users.GetByID(actorID)
	if err != nil {
		h.logger.Error("load actor", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load actor"})
		return false
	}
	if actor == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unknown actor"})
		return false
	}
	if !actor.IsGuardian() {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "cannot view another user's points"})
		return false
	}
	return true
}

func (h *RewardHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	if !h.canViewLedger(w, r, id) {
		return
	}

	balance, err := h.ledger.Balance(id)
	if err != nil {
		h.logger.Error("get balance", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get balance"})
		return
	}

	writeJSON(w, http.StatusOK, model.Balance{UserID: id, Balance: balance})
}

func (h *RewardHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	if !h.canViewLedger(w, r, id) {
		return
	}

	entries, err := h.ledger.History(id)
	if err != nil {
		h.logger.Error("get ledger history", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get history"})
		return
	}
	if entries == nil {
		entries = []model.LedgerEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}
