package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/dukerupert/bywater/internal/model"
	"github.com/dukerupert/bywater/internal/recurrence"
	"github.com/dukerupert/bywater/internal/store"
)

// Submit records a dependent's claim that they completed the task. Only
// the task's assignee may submit, and only one pending submission per
// (task, user) may exist at a time.
func (e *Engine) Submit(taskID, actorID int64) (*model.Submission, error) {
	actor, err := e.requireDependent(actorID)
	if err != nil {
		return nil, err
	}

	task, err := e.tasks.GetByID(taskID)
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	if task == nil {
		return nil, &NotFoundError{Entity: "task", ID: taskID}
	}
	if task.AssignedTo != actor.ID {
		return nil, forbiddenf("task %d is not assigned to user %d", taskID, actor.ID)
	}

	sub, err := e.submissions.Create(taskID, actor.ID)
	if errors.Is(err, store.ErrDuplicatePending) {
		return nil, conflictf("task %d already has a pending submission from user %d", taskID, actor.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("create submission: %w", err)
	}
	return sub, nil
}

// ApproveSubmission resolves the latest pending submission on a task as
// approved, then applies the approval's side effects: the successor task
// for recurring tasks, a ledger credit for the task's point value, and a
// badge re-evaluation. The conditional status update is
// what makes a concurrent second approval lose: it observes zero rows
// changed and returns Conflict, so the credit happens exactly once.
//
// Returns the resolved submission and any badges the approval unlocked.
func (e *Engine) ApproveSubmission(taskID, actorID int64) (*model.Submission, []model.Badge, error) {
	task, sub, err := e.pendingForGuardian(taskID, actorID)
	if err != nil {
		return nil, nil, err
	}

	now := time.Now().UTC()
	resolved, err := e.submissions.Resolve(sub.ID, model.SubmissionApproved, now)
	if err != nil {
		return nil, nil, fmt.Errorf("approve submission: %w", err)
	}
	if !resolved {
		return nil, nil, conflictf("submission %d is already resolved", sub.ID)
	}

	if successor, err := e.spawnSuccessor(task, now); err != nil {
		return nil, nil, err
	} else if successor != nil {
		e.logger.Info("successor task created",
			"task_id", task.ID, "successor_id", successor.ID, "due_date", successor.DueDate)
	}

	if err := e.ledger.Credit(task.AssignedTo, task.Points, model.ChangeTaskApproved, sub.ID); err != nil {
		return nil, nil, fmt.Errorf("credit points: %w", err)
	}

	granted, err := e.badges.Evaluate(task.AssignedTo)
	if err != nil {
		// The approval, successor, and credit have already taken effect;
		// grants are insert-or-ignore so a later evaluation can catch up.
		return nil, nil, fmt.Errorf("evaluate badges: %w", err)
	}

	resolvedSub, err := e.submissions.GetByID(sub.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("reload submission: %w", err)
	}
	return resolvedSub, granted, nil
}

// RejectSubmission resolves the latest pending submission on a task as
// rejected. No ledger, recurrence, or badge effects.
func (e *Engine) RejectSubmission(taskID, actorID int64) (*model.Submission, error) {
	_, sub, err := e.pendingForGuardian(taskID, actorID)
	if err != nil {
		return nil, err
	}

	resolved, err := e.submissions.Resolve(sub.ID, model.SubmissionRejected, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("reject submission: %w", err)
	}
	if !resolved {
		return nil, conflictf("submission %d is already resolved", sub.ID)
	}

	return e.submissions.GetByID(sub.ID)
}

// ListSubmissions returns all submissions for a guardian, or the actor's
// own for a dependent.
func (e *Engine) ListSubmissions(actorID int64) ([]model.Submission, error) {
	actor, err := e.requireUser(actorID)
	if err != nil {
		return nil, err
	}

	if actor.IsGuardian() {
		return e.submissions.List()
	}
	return e.submissions.ListByUser(actor.ID)
}

// pendingForGuardian checks the approver owns the task and locates its
// latest pending submission.
func (e *Engine) pendingForGuardian(taskID, actorID int64) (*model.Task, *model.Submission, error) {
	actor, err := e.requireGuardian(actorID)
	if err != nil {
		return nil, nil, err
	}

	task, err := e.ownedTask(actor.ID, taskID)
	if err != nil {
		return nil, nil, err
	}

	sub, err := e.submissions.LatestPendingForTask(task.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("find pending submission: %w", err)
	}
	if sub == nil {
		return nil, nil, &NotFoundError{Entity: "pending submission for task", ID: taskID}
	}
	return task, sub, nil
}

// spawnSuccessor clones a recurring task with the next due date. Non-
// recurring policies yield no successor. A task without a stored due date
// recurs from the approval date.
func (e *Engine) spawnSuccessor(task *model.Task, approvedAt time.Time) (*model.Task, error) {
	rule := recurrence.Rule{
		Policy:     recurrence.Policy(task.Recurrence),
		Weekdays:   task.RecurrenceDays,
		DayOfMonth: task.DayOfMonth,
	}

	base := approvedAt
	if task.DueDate != nil {
		base = *task.DueDate
	}

	next := recurrence.NextDueDate(rule, base)
	if next == nil {
		return nil, nil
	}

	successor, err := e.tasks.Create(model.Task{
		Title:          task.Title,
		Description:    task.Description,
		DueDate:        next,
		Recurrence:     task.Recurrence,
		RecurrenceDays: task.RecurrenceDays,
		DayOfMonth:     task.DayOfMonth,
		AssignedTo:     task.AssignedTo,
		CreatedBy:      task.CreatedBy,
		Points:         task.Points,
		CategoryID:     task.CategoryID,
	})
	if err != nil {
		return nil, fmt.Errorf("create successor task: %w", err)
	}
	return successor, nil
}
