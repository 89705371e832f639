package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/dukerupert/bywater/internal/model"
	"github.com/dukerupert/bywater/internal/recurrence"
)

// TaskInput carries the guardian-supplied fields for creating or updating
// a task.
type TaskInput struct {
	Title          string
	Description    string
	DueDate        *time.Time
	Recurrence     string
	RecurrenceDays []int
	DayOfMonth     int
	AssignedTo     int64
	Points         int
	CategoryID     *int64
}

func (in TaskInput) rule() recurrence.Rule {
	return recurrence.Rule{
		Policy:     recurrence.Policy(in.Recurrence),
		Weekdays:   in.RecurrenceDays,
		DayOfMonth: in.DayOfMonth,
	}
}

// CreateTask creates a task owned by the acting guardian and assigned to
// one of their dependents.
func (e *Engine) CreateTask(actorID int64, in TaskInput) (*model.Task, error) {
	actor, err := e.requireGuardian(actorID)
	if err != nil {
		return nil, err
	}

	in.Title = strings.TrimSpace(in.Title)
	if in.Recurrence == "" {
		in.Recurrence = string(recurrence.None)
	}
	if err := e.validateTaskInput(actor, in); err != nil {
		return nil, err
	}

	task, err := e.tasks.Create(model.Task{
		Title:          in.Title,
		Description:    in.Description,
		DueDate:        in.DueDate,
		Recurrence:     in.Recurrence,
		RecurrenceDays: in.RecurrenceDays,
		DayOfMonth:     in.DayOfMonth,
		AssignedTo:     in.AssignedTo,
		CreatedBy:      actor.ID,
		Points:         in.Points,
		CategoryID:     in.CategoryID,
	})
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	return task, nil
}

// UpdateTask updates a task; only the owning guardian may change it.
func (e *Engine) UpdateTask(actorID, taskID int64, in TaskInput) (*model.Task, error) {
	actor, err := e.requireGuardian(actorID)
	if err != nil {
		return nil, err
	}

	task, err := e.ownedTask(actor.ID, taskID)
	if err != nil {
		return nil, err
	}

	in.Title = strings.TrimSpace(in.Title)
	if in.Recurrence == "" {
		in.Recurrence = string(recurrence.None)
	}
	if err := e.validateTaskInput(actor, in); err != nil {
		return nil, err
	}

	updated, err := e.tasks.Update(task.ID, model.Task{
		Title:          in.Title,
		Description:    in.Description,
		DueDate:        in.DueDate,
		Recurrence:     in.Recurrence,
		RecurrenceDays: in.RecurrenceDays,
		DayOfMonth:     in.DayOfMonth,
		AssignedTo:     in.AssignedTo,
		Points:         in.Points,
		CategoryID:     in.CategoryID,
	})
	if err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	return updated, nil
}

// DeleteTask removes a task; only the owning guardian may delete it.
// Submissions against the task cascade away with it.
func (e *Engine) DeleteTask(actorID, taskID int64) error {
	actor, err := e.requireGuardian(actorID)
	if err != nil {
		return err
	}

	if _, err := e.ownedTask(actor.ID, taskID); err != nil {
		return err
	}

	if err := e.tasks.Delete(taskID); err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}

// ListTasks returns the tasks a user can see: a guardian's owned tasks, or
// a dependent's assigned tasks.
func (e *Engine) ListTasks(actorID int64) ([]model.Task, error) {
	actor, err := e.requireUser(actorID)
	if err != nil {
		return nil, err
	}

	if actor.IsGuardian() {
		return e.tasks.ListByOwner(actor.ID)
	}
	return e.tasks.ListByAssignee(actor.ID)
}

func (e *Engine) validateTaskInput(actor *model.User, in TaskInput) error {
	if in.Title == "" {
		return validationf("title is required")
	}
	if in.Points < 0 {
		return validationf("points must be >= 0")
	}

	if err := in.rule().Validate(); err != nil {
		return &ValidationError{Msg: err.Error()}
	}

	assignee, err := e.users.GetByID(in.AssignedTo)
	if err != nil {
		return fmt.Errorf("get assignee: %w", err)
	}
	if assignee == nil || !assignee.IsDependent() {
		return validationf("assignee %d is not a dependent", in.AssignedTo)
	}
	if assignee.GuardianID == nil || *assignee.GuardianID != actor.ID {
		return forbiddenf("dependent %d is not in guardian %d's care", assignee.ID, actor.ID)
	}

	if in.CategoryID != nil {
		category, err := e.tasks.GetCategoryByID(*in.CategoryID)
		if err != nil {
			return fmt.Errorf("get category: %w", err)
		}
		if category == nil {
			return validationf("category %d does not exist", *in.CategoryID)
		}
	}
	return nil
}

func (e *Engine) requireUser(id int64) (*model.User, error) {
	user, err := e.users.GetByID(id)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, &NotFoundError{Entity: "user", ID: id}
	}
	return user, nil
}

func (e *Engine) requireGuardian(id int64) (*model.User, error) {
	user, err := e.requireUser(id)
	if err != nil {
		return nil, err
	}
	if !user.IsGuardian() {
		return nil, forbiddenf("user %d is not a guardian", id)
	}
	return user, nil
}

func (e *Engine) requireDependent(id int64) (*model.User, error) {
	user, err := e.requireUser(id)
	if err != nil {
		return nil, err
	}
	if !user.IsDependent() {
		return nil, forbiddenf("user %d is not a dependent", id)
	}
	return user, nil
}

// ownedTask loads a task and checks the guardian owns it.
func (e *Engine) ownedTask(guardianID, taskID int64) (*model.Task, error) {
	task, err := e.tasks.GetByID(taskID)
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	if task == nil {
		return nil, &NotFoundError{Entity: "task", ID: taskID}
	}
	if task.CreatedBy != guardianID {
		return nil, forbiddenf("task %d is not owned by guardian %d", taskID, guardianID)
	}
	return task, nil
}
