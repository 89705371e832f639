package store

import (
	"errors"
	"testing"
	"time"

	"github.com/dukerupert/bywater/internal/database"
	"github.com/dukerupert/bywater/internal/model"
)

type submissionFixture struct {
	subs  *SubmissionStore
	tasks *TaskStore
	users *UserStore

	guardian  *model.User
	dependent *model.User
}

func setupSubmissionTestDB(t *testing.T) *submissionFixture {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("enable foreign keys: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	f := &submissionFixture{
		subs:  NewSubmissionStore(db),
		tasks: NewTaskStore(db),
		users: NewUserStore(db),
	}

	f.guardian, err = f.users.Create("Dana", model.RoleGuardian, nil)
	if err != nil {
		t.Fatalf("create guardian: %v", err)
	}
	f.dependent, err = f.users.Create("Milo", model.RoleDependent, &f.guardian.ID)
	if err != nil {
		t.Fatalf("create dependent: %v", err)
	}
	return f
}

func (f *submissionFixture) createTask(t *testing.T, title string) *model.Task {
	t.Helper()
	task, err := f.tasks.Create(model.Task{
		Title:      title,
		AssignedTo: f.dependent.ID,
		CreatedBy:  f.guardian.ID,
		Points:     10,
	})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	return task
}

func TestSubmissionCreate(t *testing.T) {
	f := setupSubmissionTestDB(t)
	task := f.createTask(t, "Sweep porch")

	sub, err := f.subs.Create(task.ID, f.dependent.ID)
	if err != nil {
		t.Fatalf("create submission: %v", err)
	}
	if sub.Status != model.SubmissionSubmitted {
		t.Errorf("status = %q, want %q", sub.Status, model.SubmissionSubmitted)
	}
	if sub.ResolvedAt != nil {
		t.Error("new submission should have nil resolved_at")
	}
}

func TestSubmissionDuplicatePending(t *testing.T) {
	f := setupSubmissionTestDB(t)
	task := f.createTask(t, "Sweep porch")

	if _, err := f.subs.Create(task.ID, f.dependent.ID); err != nil {
		t.Fatalf("first submission: %v", err)
	}

	_, err := f.subs.Create(task.ID, f.dependent.ID)
	if !errors.Is(err, ErrDuplicatePending) {
		t.Fatalf("expected ErrDuplicatePending, got %v", err)
	}
}

func TestSubmissionResubmitAfterResolve(t *testing.T) {
	f := setupSubmissionTestDB(t)
	task := f.createTask(t, "Sweep porch")

	sub, _ := f.subs.Create(task.ID, f.dependent.ID)
	ok, err := f.subs.Resolve(sub.ID, model.SubmissionRejected, time.Now().UTC())
	if err != nil || !ok {
		t.Fatalf("resolve: ok=%v err=%v", ok, err)
	}

	// A resolved submission frees the (task, user) slot.
	if _, err := f.subs.Create(task.ID, f.dependent.ID); err != nil {
		t.Fatalf("resubmit after rejection: %v", err)
	}
}

func TestSubmissionResolveOnlyOnce(t *testing.T) {
	f := setupSubmissionTestDB(t)
	task := f.createTask(t, "Sweep porch")

	sub, _ := f.subs.Create(task.ID, f.dependent.ID)
	now := time.Now().UTC()

	ok, err := f.subs.Resolve(sub.ID, model.SubmissionApproved, now)
	if err != nil {
		t.Fatalf("first resolve: %v", err)
	}
	if !ok {
		t.Fatal("first resolve should win")
	}

	ok, err = f.subs.Resolve(sub.ID, model.SubmissionRejected, now)
	if err != nil {
		t.Fatalf("second resolve: %v", err)
	}
	if ok {
		t.Fatal("second resolve should see zero rows affected")
	}

	got, _ := f.subs.GetByID(sub.ID)
	if got.Status != model.SubmissionApproved {
		t.Errorf("status = %q, want approved after losing second resolve", got.Status)
	}
	if got.ResolvedAt == nil {
		t.Error("resolved_at should be set")
	}
}

func TestLatestPendingForTask(t *testing.T) {
	f := setupSubmissionTestDB(t)
	task := f.createTask(t, "Sweep porch")

	pending, err := f.subs.LatestPendingForTask(task.ID)
	if err != nil {
		t.Fatalf("latest pending: %v", err)
	}
	if pending != nil {
		t.Fatal("expected nil with no submissions")
	}

	sub, _ := f.subs.Create(task.ID, f.dependent.ID)
	pending, err = f.subs.LatestPendingForTask(task.ID)
	if err != nil {
		t.Fatalf("latest pending: %v", err)
	}
	if pending == nil || pending.ID != sub.ID {
		t.Fatalf("latest pending = %+v, want id %d", pending, sub.ID)
	}

	f.subs.Resolve(sub.ID, model.SubmissionApproved, time.Now().UTC())
	pending, _ = f.subs.LatestPendingForTask(task.ID)
	if pending != nil {
		t.Error("expected nil after the only submission was resolved")
	}
}

func TestCountApproved(t *testing.T) {
	f := setupSubmissionTestDB(t)

	for i := 0; i < 3; i++ {
		task := f.createTask(t, "Task")
		sub, _ := f.subs.Create(task.ID, f.dependent.ID)
		f.subs.Resolve(sub.ID, model.SubmissionApproved, time.Now().UTC())
	}
	// One rejected, should not count.
	task := f.createTask(t, "Task")
	sub, _ := f.subs.Create(task.ID, f.dependent.ID)
	f.subs.Resolve(sub.ID, model.SubmissionRejected, time.Now().UTC())

	count, err := f.subs.CountApproved(f.dependent.ID)
	if err != nil {
		t.Fatalf("count approved: %v", err)
	}
	if count != 3 {
		t.Errorf("count = %d, want 3", count)
	}
}

func TestCountApprovedInCategory(t *testing.T) {
	f := setupSubmissionTestDB(t)

	kitchen, _ := f.tasks.GetCategoryBySlug("kitchen")
	yard, _ := f.tasks.GetCategoryBySlug("yard")

	approveInCategory := func(categoryID *int64) {
		task, err := f.tasks.Create(model.Task{
			Title:      "Task",
			AssignedTo: f.dependent.ID,
			CreatedBy:  f.guardian.ID,
			CategoryID: categoryID,
		})
		if err != nil {
			t.Fatalf("create task: %v", err)
		}
		sub, _ := f.subs.Create(task.ID, f.dependent.ID)
		f.subs.Resolve(sub.ID, model.SubmissionApproved, time.Now().UTC())
	}

	approveInCategory(&kitchen.ID)
	approveInCategory(&kitchen.ID)
	approveInCategory(&yard.ID)
	approveInCategory(nil)

	count, err := f.subs.CountApprovedInCategory(f.dependent.ID, "kitchen")
	if err != nil {
		t.Fatalf("count in category: %v", err)
	}
	if count != 2 {
		t.Errorf("kitchen count = %d, want 2", count)
	}

	count, _ = f.subs.CountApprovedInCategory(f.dependent.ID, "school")
	if count != 0 {
		t.Errorf("school count = %d, want 0", count)
	}
}

func TestListByUser(t *testing.T) {
	f := setupSubmissionTestDB(t)
	other, _ := f.users.Create("Ada", model.RoleDependent, &f.guardian.ID)

	t1 := f.createTask(t, "One")
	t2, _ := f.tasks.Create(model.Task{Title: "Two", AssignedTo: other.ID, CreatedBy: f.guardian.ID})

	f.subs.Create(t1.ID, f.dependent.ID)
	f.subs.Create(t2.ID, other.ID)

	mine, err := f.subs.ListByUser(f.dependent.ID)
	if err != nil {
		t.Fatalf("list by user: %v", err)
	}
	if len(mine) != 1 {
		t.Fatalf("expected 1 submission, got %d", len(mine))
	}
	if mine[0].TaskID != t1.ID {
		t.Errorf("task_id = %d, want %d", mine[0].TaskID, t1.ID)
	}

	all, err := f.subs.List()
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("expected 2 submissions, got %d", len(all))
	}
}
