// Package engine implements the task lifecycle and reward economy: the
// submission state machine, the reward redemption workflow, and the task
// catalog. Correctness under overlapping requests comes from the storage
// layer (conditional status updates, atomic balance mutations, the unique
// award pair), not from in-process locking.
package engine

import (
	"log/slog"

	"github.com/dukerupert/bywater/internal/badge"
	"github.com/dukerupert/bywater/internal/store"
)

type Engine struct {
	users       *store.UserStore
	tasks       *store.TaskStore
	submissions *store.SubmissionStore
	ledger      *store.LedgerStore
	rewards     *store.RewardStore
	badges      *badge.Engine
	logger      *slog.Logger
}

func New(
	users *store.UserStore,
	tasks *store.TaskStore,
	submissions *store.SubmissionStore,
	ledger *store.LedgerStore,
	rewards *store.RewardStore,
	badges *badge.Engine,
	logger *slog.Logger,
) *Engine {
	return &Engine{
		users:       users,
		tasks:       tasks,
		submissions: submissions,
		ledger:      ledger,
		rewards:     rewards,
		badges:      badges,
		logger:      logger,
	}
}
