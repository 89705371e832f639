package store

import (
	"testing"
	"time"

	"github.com/dukerupert/bywater/internal/database"
	"github.com/dukerupert/bywater/internal/model"
)

func setupTaskTestDB(t *testing.T) (*TaskStore, *UserStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("enable foreign keys: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewTaskStore(db), NewUserStore(db)
}

func TestCategorySeedData(t *testing.T) {
	ts, _ := setupTaskTestDB(t)

	categories, err := ts.ListCategories()
	if err != nil {
		t.Fatalf("list categories: %v", err)
	}
	if len(categories) != 6 {
		t.Fatalf("expected 6 seed categories, got %d", len(categories))
	}

	expected := []string{"kitchen", "bathroom", "bedroom", "yard", "school", "general"}
	for i, slug := range expected {
		if categories[i].Slug != slug {
			t.Errorf("category[%d].Slug = %q, want %q", i, categories[i].Slug, slug)
		}
	}
}

func TestGetCategoryBySlug(t *testing.T) {
	ts, _ := setupTaskTestDB(t)

	c, err := ts.GetCategoryBySlug("kitchen")
	if err != nil {
		t.Fatalf("get category: %v", err)
	}
	if c == nil || c.Name != "Kitchen" {
		t.Fatalf("expected Kitchen, got %+v", c)
	}

	missing, err := ts.GetCategoryBySlug("garage")
	if err != nil {
		t.Fatalf("get missing category: %v", err)
	}
	if missing != nil {
		t.Error("expected nil for missing slug")
	}
}

func TestTaskCRUD(t *testing.T) {
	ts, us := setupTaskTestDB(t)

	g, _ := us.Create("Dana", model.RoleGuardian, nil)
	dep, _ := us.Create("Milo", model.RoleDependent, &g.ID)

	kitchen, _ := ts.GetCategoryBySlug("kitchen")
	due := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	task, err := ts.Create(model.Task{
		Title:       "Unload dishwasher",
		Description: "Before dinner",
		DueDate:     &due,
		Recurrence:  "daily",
		AssignedTo:  dep.ID,
		CreatedBy:   g.ID,
		Points:      20,
		CategoryID:  &kitchen.ID,
	})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if task.Title != "Unload dishwasher" {
		t.Errorf("title = %q, want %q", task.Title, "Unload dishwasher")
	}
	if task.DueDate == nil || !task.DueDate.Equal(due) {
		t.Errorf("due_date = %v, want %v", task.DueDate, due)
	}
	if task.CategoryID == nil || *task.CategoryID != kitchen.ID {
		t.Errorf("category_id = %v, want %d", task.CategoryID, kitchen.ID)
	}

	// Update
	task.Title = "Load dishwasher"
	task.Points = 25
	updated, err := ts.Update(task.ID, *task)
	if err != nil {
		t.Fatalf("update task: %v", err)
	}
	if updated.Title != "Load dishwasher" || updated.Points != 25 {
		t.Errorf("updated = %q/%d, want Load dishwasher/25", updated.Title, updated.Points)
	}

	// Delete
	if err := ts.Delete(task.ID); err != nil {
		t.Fatalf("delete task: %v", err)
	}
	got, err := ts.GetByID(task.ID)
	if err != nil {
		t.Fatalf("get deleted task: %v", err)
	}
	if got != nil {
		t.Error("expected nil for deleted task")
	}
}

func TestTaskRecurrenceDaysRoundTrip(t *testing.T) {
	ts, us := setupTaskTestDB(t)

	g, _ := us.Create("Dana", model.RoleGuardian, nil)
	dep, _ := us.Create("Milo", model.RoleDependent, &g.ID)

	task, err := ts.Create(model.Task{
		Title:          "Practice piano",
		Recurrence:     "weekly",
		RecurrenceDays: []int{1, 3, 5},
		AssignedTo:     dep.ID,
		CreatedBy:      g.ID,
		Points:         10,
	})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}

	got, err := ts.GetByID(task.ID)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if len(got.RecurrenceDays) != 3 {
		t.Fatalf("expected 3 recurrence days, got %v", got.RecurrenceDays)
	}
	for i, want := range []int{1, 3, 5} {
		if got.RecurrenceDays[i] != want {
			t.Errorf("recurrence_days[%d] = %d, want %d", i, got.RecurrenceDays[i], want)
		}
	}
}

func TestListByAssigneeAndOwner(t *testing.T) {
	ts, us := setupTaskTestDB(t)

	g1, _ := us.Create("Dana", model.RoleGuardian, nil)
	g2, _ := us.Create("Sam", model.RoleGuardian, nil)
	d1, _ := us.Create("Milo", model.RoleDependent, &g1.ID)
	d2, _ := us.Create("Rex", model.RoleDependent, &g2.ID)

	ts.Create(model.Task{Title: "A", AssignedTo: d1.ID, CreatedBy: g1.ID})
	ts.Create(model.Task{Title: "B", AssignedTo: d1.ID, CreatedBy: g1.ID})
	ts.Create(model.Task{Title: "C", AssignedTo: d2.ID, CreatedBy: g2.ID})

	byAssignee, err := ts.ListByAssignee(d1.ID)
	if err != nil {
		t.Fatalf("list by assignee: %v", err)
	}
	if len(byAssignee) != 2 {
		t.Errorf("expected 2 tasks for d1, got %d", len(byAssignee))
	}

	byOwner, err := ts.ListByOwner(g2.ID)
	if err != nil {
		t.Fatalf("list by owner: %v", err)
	}
	if len(byOwner) != 1 {
		t.Errorf("expected 1 task for g2, got %d", len(byOwner))
	}
}

func TestDeleteCategoryNullsTaskCategory(t *testing.T) {
	ts, us := setupTaskTestDB(t)

	g, _ := us.Create("Dana", model.RoleGuardian, nil)
	dep, _ := us.Create("Milo", model.RoleDependent, &g.ID)
	yard, _ := ts.GetCategoryBySlug("yard")

	task, _ := ts.Create(model.Task{Title: "Rake leaves", AssignedTo: dep.ID, CreatedBy: g.ID, CategoryID: &yard.ID})

	if _, err := ts.db.Exec(`DELETE FROM categories WHERE id = ?`, yard.ID); err != nil {
		t.Fatalf("delete category: %v", err)
	}

	got, err := ts.GetByID(task.ID)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if got.CategoryID != nil {
		t.Errorf("category_id = %v, want nil after category delete", got.CategoryID)
	}
}
