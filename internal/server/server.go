package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/dukerupert/bywater/internal/badge"
	"github.com/dukerupert/bywater/internal/engine"
	"github.com/dukerupert/bywater/internal/handler"
	"github.com/dukerupert/bywater/internal/middleware"
	"github.com/dukerupert/bywater/internal/store"
	ws "github.com/dukerupert/bywater/internal/websocket"
)

type Server struct {
	db      *sql.DB
	hub     *ws.Hub
	userH   *handler.UserHandler
	taskH   *handler.TaskHandler
	rewardH *handler.RewardHandler
	badgeH  *handler.BadgeHandler
	logger  *slog.Logger
}

func New(db *sql.DB, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	userStore := store.NewUserStore(db)
	taskStore := store.NewTaskStore(db)
	submissionStore := store.NewSubmissionStore(db)
	ledgerStore := store.NewLedgerStore(db)
	rewardStore := store.NewRewardStore(db)
	badgeStore := store.NewBadgeStore(db)

	badgeEngine := badge.NewEngine(badgeStore, submissionStore, logger.With("component", "badge"))
	eng := engine.New(userStore, taskStore, submissionStore, ledgerStore, rewardStore, badgeEngine, logger.With("component", "engine"))

	return &Server{
		db:      db,
		hub:     hub,
		userH:   handler.NewUserHandler(userStore, hub, logger.With("component", "user")),
		taskH:   handler.NewTaskHandler(eng, taskStore, hub, logger.With("component", "task")),
		rewardH: handler.NewRewardHandler(eng, rewardStore, ledgerStore, userStore, hub, logger.With("component", "reward")),
		badgeH:  handler.NewBadgeHandler(badgeStore, userStore, hub, logger.With("component", "badge")),
		logger:  logger,
	}
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes
	outerMux.HandleFunc("GET /health", s.healthHandler)
	outerMux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub))

	// API routes require an acting user
	apiMux := http.NewServeMux()
	s.registerAPIRoutes(apiMux)
	outerMux.Handle("/api/", middleware.RequireActor(apiMux))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) registerAPIRoutes(mux *http.ServeMux) {
	// User routes
	mux.HandleFunc("GET /api/users", s.userH.List)
	mux.HandleFunc("POST /api/users", s.userH.Create)
	mux.HandleFunc("PUT /api/users/{id}", s.userH.Update)
	mux.HandleFunc("DELETE /api/users/{id}", s.userH.Delete)

	// PIN routes
	mux.HandleFunc("POST /api/users/{id}/pin", s.userH.SetPIN)
	mux.HandleFunc("DELETE /api/users/{id}/pin", s.userH.ClearPIN)
	mux.HandleFunc("POST /api/users/{id}/pin/verify", s.userH.VerifyPIN)

	// Task routes
	mux.HandleFunc("GET /api/categories", s.taskH.ListCategories)
	mux.HandleFunc("POST /api/tasks", s.taskH.Create)
	mux.HandleFunc("GET /api/tasks", s.taskH.List)
	mux.HandleFunc("PUT /api/tasks/{id}", s.taskH.Update)
	mux.HandleFunc("DELETE /api/tasks/{id}", s.taskH.Delete)

	// Submission routes
	mux.HandleFunc("POST /api/tasks/{id}/submit", s.taskH.Submit)
	mux.HandleFunc("POST /api/tasks/{id}/approve", s.taskH.Approve)
	mux.HandleFunc("POST /api/tasks/{id}/reject", s.taskH.Reject)
	mux.HandleFunc("GET /api/submissions", s.taskH.ListSubmissions)

	// Reward catalog routes
	mux.HandleFunc("POST /api/rewards", s.rewardH.Create)
	mux.HandleFunc("GET /api/rewards", s.rewardH.List)
	mux.HandleFunc("PUT /api/rewards/{id}", s.rewardH.Update)
	mux.HandleFunc("DELETE /api/rewards/{id}", s.rewardH.Delete)

	// Redemption routes
	mux.HandleFunc("POST /api/rewards/{id}/request", s.rewardH.Request)
	mux.HandleFunc("GET /api/redemptions", s.rewardH.ListRequests)
	mux.HandleFunc("POST /api/redemptions/{id}/approve", s.rewardH.ApproveRequest)
	mux.HandleFunc("POST /api/redemptions/{id}/reject", s.rewardH.RejectRequest)

	// Point routes
	mux.HandleFunc("GET /api/users/{id}/balance", s.rewardH.GetBalance)
	mux.HandleFunc("GET /api/users/{id}/ledger", s.rewardH.GetHistory)

	// Badge routes
	mux.HandleFunc("POST /api/badges", s.badgeH.Create)
	mux.HandleFunc("GET /api/badges", s.badgeH.List)
	mux.HandleFunc("PUT /api/badges/{id}", s.badgeH.Update)
	mux.HandleFunc("DELETE /api/badges/{id}", s.badgeH.Delete)
	mux.HandleFunc("GET /api/users/{id}/awards", s.badgeH.ListAwards)
	mux.HandleFunc("POST /api/awards/{id}/ack", s.badgeH.Acknowledge)
}
