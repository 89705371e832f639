package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/bywater/internal/middleware"
	"github.com/dukerupert/bywater/internal/model"
	"github.com/dukerupert/bywater/internal/store"
	"github.com/dukerupert/bywater/internal/websocket"
	"golang.org/x/crypto/bcrypt"
)

type UserHandler struct {
	users  *store.UserStore
	hub    *websocket.Hub
	logger *slog.Logger
}

func NewUserHandler(users *store.UserStore, hub *websocket.Hub, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: users, hub: hub, logger: logger}
}

func (h *UserHandler) broadcast(msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(msg)
	}
}

// actor loads the acting user set by the actor middleware, or writes an
// error response and returns nil.
func (h *UserHandler) actor(w http.ResponseWriter, r *http.Request) *model.User {
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
	return actor
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List()
	if err != nil {
		h.logger.Error("list users", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list users"})
		return
	}
	if users == nil {
		users = []model.User{}
	}
	writeJSON(w, http.StatusOK, users)
}

type userRequest struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor := h.actor(w, r)
	if actor == nil {
		return
	}

	var req userRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}

	role := model.Role(req.Role)
	var guardianID *int64
	switch role {
	case model.RoleGuardian:
		// Guardians provision guardians; the first one comes from setup.
	case model.RoleDependent:
		// Dependents are created by, and linked to, the acting guardian.
		if !actor.IsGuardian() {
			writeJSON(w, http.StatusForbidden, map[string]string{"error": "only guardians can create dependents"})
			return
		}
		guardianID = &actor.ID
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "role must be guardian or dependent"})
		return
	}

	user, err := h.users.Create(req.Name, role, guardianID)
	if err != nil {
		h.logger.Error("create user", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create user"})
		return
	}

	h.broadcast(websocket.NewMessage("user", "created", user.ID))

	writeJSON(w, http.StatusCreated, user)
}

func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	var req userRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}

	existing, err := h.users.GetByID(id)
	if err != nil {
		h.logger.Error("get user", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get user"})
		return
	}
	if existing == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "user not found"})
		return
	}

	user, err := h.users.Update(id, req.Name)
	if err != nil {
		h.logger.Error("update user", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update user"})
		return
	}

	h.broadcast(websocket.NewMessage("user", "updated", id))

	writeJSON(w, http.StatusOK, user)
}

// Delete removes a user and cascades their tasks, submissions, ledger
// rows, requests, and awards. Guardian-only.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor := h.actor(w, r)
	if actor == nil {
		return
	}
	if !actor.IsGuardian() {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "only guardians can delete users"})
		return
	}

	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	if err := h.users.Delete(id); err != nil {
		h.logger.Error("delete user", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delete user"})
		return
	}

	h.broadcast(websocket.NewMessage("user", "deleted", id))

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// --- PIN methods ---

type pinRequest struct {
	PIN string `json:"pin"`
}

func (h *UserHandler) SetPIN(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	var req pinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	if len(req.PIN) < 4 || !isDigits(req.PIN) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "PIN must be at least 4 digits"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.PIN), bcrypt.DefaultCost)
	if err != nil {
		h.logger.Error("hash pin", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to set PIN"})
		return
	}

	if err := h.users.SetPINHash(id, string(hash)); err != nil {
		h.logger.Error("set pin", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to set PIN"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "set"})
}

func (h *UserHandler) ClearPIN(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	if err := h.users.ClearPIN(id); err != nil {
		h.logger.Error("clear pin", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to clear PIN"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (h *UserHandler) VerifyPIN(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	var req pinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	hash, err := h.users.GetPINHash(id)
	if err != nil {
		h.logger.Error("get pin hash", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to verify PIN"})
		return
	}
	if hash == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "no PIN set"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.PIN)); err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "incorrect PIN"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "verified"})
}

func isDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
