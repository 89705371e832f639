package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/bywater/internal/badge"
	"github.com/dukerupert/bywater/internal/middleware"
	"github.com/dukerupert/bywater/internal/model"
	"github.com/dukerupert/bywater/internal/store"
	"github.com/dukerupert/bywater/internal/websocket"
)

type BadgeHandler struct {
	badges *store.BadgeStore
	users  *store.UserStore
	hub    *websocket.Hub
	logger *slog.Logger
}

func NewBadgeHandler(badges *store.BadgeStore, users *store.UserStore, hub *websocket.Hub, logger *slog.Logger) *BadgeHandler {
	return &BadgeHandler{badges: badges, users: users, hub: hub, logger: logger}
}

func (h *BadgeHandler) broadcast(msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(msg)
	}
}

func (h *BadgeHandler) requireGuardian(w http.ResponseWriter, r *http.Request) *model.User {
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

type badgeRequest struct {
	Name      string          `json:"name"`
	Icon      string          `json:"icon"`
	Condition json.RawMessage `json:"condition"`
	Active    bool            `json:"active"`
}

// validate trims the name and parses the condition document so malformed
// rules are rejected at write time instead of surfacing during evaluation.
func (r *badgeRequest) validate() string {
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return "name is required"
	}
	if len(r.Condition) == 0 {
		return "condition is required"
	}
	conditions, err := badge.ParseConditions(string(r.Condition))
	if err != nil {
		return err.Error()
	}
	if len(conditions) == 0 {
		return "condition must include task_approve or badge_own_count"
	}
	return ""
}

func (h *BadgeHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h.requireGuardian(w, r) == nil {
		return
	}

	var req badgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if msg := req.validate(); msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	b, err := h.badges.Create(req.Name, req.Icon, string(req.Condition), req.Active)
	if err != nil {
		h.logger.Error("create badge", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create badge"})
		return
	}

	h.broadcast(websocket.NewMessage("badge", "created", b.ID))

	writeJSON(w, http.StatusCreated, b)
}

func (h *BadgeHandler) List(w http.ResponseWriter, r *http.Request) {
	badges, err := h.badges.List()
	if err != nil {
		h.logger.Error("list badges", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list badges"})
		return
	}
	if badges == nil {
		badges = []model.Badge{}
	}
	writeJSON(w, http.StatusOK, badges)
}

func (h *BadgeHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h.requireGuardian(w, r) == nil {
		return
	}

	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	existing, err := h.badges.GetByID(id)
	if err != nil {
		h.logger.Error("get badge", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get badge"})
		return
	}
	if existing == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "badge not found"})
		return
	}

	var req badgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if msg := req.validate(); msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	b, err := h.badges.Update(id, req.Name, req.Icon, string(req.Condition), req.Active)
	if err != nil {
		h.logger.Error("update badge", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update badge"})
		return
	}

	h.broadcast(websocket.NewMessage("badge", "updated", id))

	writeJSON(w, http.StatusOK, b)
}

func (h *BadgeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h.requireGuardian(w, r) == nil {
		return
	}

	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	if err := h.badges.Delete(id); err != nil {
		h.logger.Error("delete badge", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delete badge"})
		return
	}

	h.broadcast(websocket.NewMessage("badge", "deleted", id))

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// --- Award endpoints ---

// ListAwards returns the awards held by one user. Self-reads are always
// allowed; reads of another user require the guardian role.
func (h *BadgeHandler) ListAwards(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	if middleware.ActorID(r.Context()) != id {
		if h.requireGuardian(w, r) == nil {
			return
		}
	}

	awards, err := h.badges.ListAwardsByUser(id)
	if err != nil {
		h.logger.Error("list badge awards", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list awards"})
		return
	}
	if awards == nil {
		awards = []model.BadgeAward{}
	}
	writeJSON(w, http.StatusOK, awards)
}

// Acknowledge marks an award as seen by its holder. Only the holder may
// acknowledge, and only once.
func (h *BadgeHandler) Acknowledge(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	actorID := middleware.ActorID(r.Context())

	award, err := h.badges.GetAwardByID(id)
	if err != nil {
		h.logger.Error("get badge award", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get award"})
		return
	}
	if award == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "award not found"})
		return
	}
	if award.UserID != actorID {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "only the holder can acknowledge an award"})
		return
	}

	ok, err := h.badges.Acknowledge(id, actorID)
	if err != nil {
		h.logger.Error("acknowledge badge award", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to acknowledge award"})
		return
	}
	if !ok {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "award already acknowledged"})
		return
	}

	award, err = h.badges.GetAwardByID(id)
	if err != nil {
		h.logger.Error("reload badge award", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to reload award"})
		return
	}

	h.broadcast(websocket.NewUserMessage("badge_award", "acknowledged", id, actorID))

	writeJSON(w, http.StatusOK, award)
}
