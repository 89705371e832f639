package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/bywater/internal/engine"
	"github.com/dukerupert/bywater/internal/middleware"
	"github.com/dukerupert/bywater/internal/model"
	"github.com/dukerupert/bywater/internal/store"
	"github.com/dukerupert/bywater/internal/websocket"
)

type TaskHandler struct {
	engine *engine.Engine
	tasks  *store.TaskStore
	hub    *websocket.Hub
	logger *slog.Logger
}

func NewTaskHandler(eng *engine.Engine, tasks *store.TaskStore, hub *websocket.Hub, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{engine: eng, tasks: tasks, hub: hub, logger: logger}
}

func (h *TaskHandler) broadcast(msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(msg)
	}
}

type taskRequest struct {
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	DueDate        *time.Time `json:"due_date"`
	Recurrence     string     `json:"recurrence"`
	RecurrenceDays []int      `json:"recurrence_days"`
	DayOfMonth     int        `json:"day_of_month"`
	AssignedTo     int64      `json:"assigned_to"`
	Points         int        `json:"points"`
	CategoryID     *int64     `json:"category_id"`
}

func (r taskRequest) input() engine.TaskInput {
	return engine.TaskInput{
		Title:          r.Title,
		Description:    r.Description,
		DueDate:        r.DueDate,
		Recurrence:     r.Recurrence,
		RecurrenceDays: r.RecurrenceDays,
		DayOfMonth:     r.DayOfMonth,
		AssignedTo:     r.AssignedTo,
		Points:         r.Points,
		CategoryID:     r.CategoryID,
	}
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	task, err := h.engine.CreateTask(middleware.ActorID(r.Context()), req.input())
	if err != nil {
		if isInternal(err) {
			h.logger.Error("create task", "error", err)
		}
		writeEngineError(w, err)
		return
	}

	h.broadcast(websocket.NewUserMessage("task", "created", task.ID, task.AssignedTo))

	writeJSON(w, http.StatusCreated, task)
}

func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.engine.ListTasks(middleware.ActorID(r.Context()))
	if err != nil {
		if isInternal(err) {
			h.logger.Error("list tasks", "error", err)
		}
		writeEngineError(w, err)
		return
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	task, err := h.engine.UpdateTask(middleware.ActorID(r.Context()), id, req.input())
	if err != nil {
		if isInternal(err) {
			h.logger.Error("update task", "error", err)
		}
		writeEngineError(w, err)
		return
	}

	h.broadcast(websocket.NewUserMessage("task", "updated", task.ID, task.AssignedTo))

	writeJSON(w, http.StatusOK, task)
}

func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	if err := h.engine.DeleteTask(middleware.ActorID(r.Context()), id); err != nil {
		if isInternal(err) {
			h.logger.Error("delete task", "error", err)
		}
		writeEngineError(w, err)
		return
	}

	h.broadcast(websocket.NewMessage("task", "deleted", id))

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *TaskHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.tasks.ListCategories()
	if err != nil {
		h.logger.Error("list categories", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list categories"})
		return
	}
	if categories == nil {
		categories = []model.Category{}
	}
	writeJSON(w, http.StatusOK, categories)
}

// --- Submission endpoints ---

func (h *TaskHandler) Submit(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	sub, err := h.engine.Submit(id, middleware.ActorID(r.Context()))
	if err != nil {
		if isInternal(err) {
			h.logger.Error("submit task", "error", err)
		}
		writeEngineError(w, err)
		return
	}

	h.broadcast(websocket.NewUserMessage("submission", "created", sub.ID, sub.SubmittedBy))

	writeJSON(w, http.StatusCreated, sub)
}

type approvalResponse struct {
	Submission *model.Submission `json:"submission"`
	NewBadges  []model.Badge     `json:"new_badges,omitempty"`
}

func (h *TaskHandler) Approve(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	sub, granted, err := h.engine.ApproveSubmission(id, middleware.ActorID(r.Context()))
	if err != nil {
		if isInternal(err) {
			h.logger.Error("approve submission", "error", err)
		}
		writeEngineError(w, err)
		return
	}

	h.broadcast(websocket.NewUserMessage("submission", "approved", sub.ID, sub.SubmittedBy))
	for _, b := range granted {
		h.broadcast(websocket.NewUserMessage("badge", "awarded", b.ID, sub.SubmittedBy))
	}

	writeJSON(w, http.StatusOK, approvalResponse{Submission: sub, NewBadges: granted})
}

func (h *TaskHandler) Reject(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	sub, err := h.engine.RejectSubmission(id, middleware.ActorID(r.Context()))
	if err != nil {
		if isInternal(err) {
			h.logger.Error("reject submission", "error", err)
		}
		writeEngineError(w, err)
		return
	}

	h.broadcast(websocket.NewUserMessage("submission", "rejected", sub.ID, sub.SubmittedBy))

	writeJSON(w, http.StatusOK, sub)
}

func (h *TaskHandler) ListSubmissions(w http.ResponseWriter, r *http.Request) {
	subs, err := h.engine.ListSubmissions(middleware.ActorID(r.Context()))
	if err != nil {
		if isInternal(err) {
			h.logger.Error("list submissions", "error", err)
		}
		writeEngineError(w, err)
		return
	}
	if subs == nil {
		subs = []model.Submission{}
	}
	writeJSON(w, http.StatusOK, subs)
}
