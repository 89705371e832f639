package store

import (
	"testing"

	"github.com/dukerupert/bywater/internal/database"
	"github.com/dukerupert/bywater/internal/model"
)

func setupBadgeTestDB(t *testing.T) (*BadgeStore, *model.User) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("enable foreign keys: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	users := NewUserStore(db)
	guardian, err := users.Create("Dana", model.RoleGuardian, nil)
	if err != nil {
		t.Fatalf("create guardian: %v", err)
	}
	dep, err := users.Create("Milo", model.RoleDependent, &guardian.ID)
	if err != nil {
		t.Fatalf("create dependent: %v", err)
	}
	return NewBadgeStore(db), dep
}

func TestBadgeCRUD(t *testing.T) {
	bs, _ := setupBadgeTestDB(t)

	badge, err := bs.Create("High Five", "hand", `{"task_approve":{"gte":5}}`, true)
	if err != nil {
		t.Fatalf("create badge: %v", err)
	}
	if badge.Condition != `{"task_approve":{"gte":5}}` {
		t.Errorf("condition = %q", badge.Condition)
	}

	updated, err := bs.Update(badge.ID, "High Ten", "hand", `{"task_approve":{"gte":10}}`, false)
	if err != nil {
		t.Fatalf("update badge: %v", err)
	}
	if updated.Name != "High Ten" || updated.Active {
		t.Errorf("updated = %+v, want High Ten inactive", updated)
	}

	if err := bs.Delete(badge.ID); err != nil {
		t.Fatalf("delete badge: %v", err)
	}
	got, _ := bs.GetByID(badge.ID)
	if got != nil {
		t.Error("expected nil for deleted badge")
	}
}

func TestListActiveExcludesInactive(t *testing.T) {
	bs, _ := setupBadgeTestDB(t)

	bs.Create("Active", "", `{"task_approve":{"gte":1}}`, true)
	bs.Create("Retired", "", `{"task_approve":{"gte":1}}`, false)

	active, err := bs.ListActive()
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(active) != 1 || active[0].Name != "Active" {
		t.Fatalf("active = %+v, want only Active", active)
	}
}

func TestAwardIdempotent(t *testing.T) {
	bs, dep := setupBadgeTestDB(t)

	badge, _ := bs.Create("High Five", "", `{"task_approve":{"gte":5}}`, true)

	created, err := bs.Award(dep.ID, badge.ID)
	if err != nil {
		t.Fatalf("first award: %v", err)
	}
	if !created {
		t.Fatal("first award should insert")
	}

	created, err = bs.Award(dep.ID, badge.ID)
	if err != nil {
		t.Fatalf("second award: %v", err)
	}
	if created {
		t.Fatal("second award should be a no-op")
	}

	count, _ := bs.CountAwardsByUser(dep.ID)
	if count != 1 {
		t.Errorf("award count = %d, want 1", count)
	}
}

func TestAwardedBadgeIDs(t *testing.T) {
	bs, dep := setupBadgeTestDB(t)

	b1, _ := bs.Create("One", "", `{"task_approve":{"gte":1}}`, true)
	b2, _ := bs.Create("Two", "", `{"task_approve":{"gte":2}}`, true)
	bs.Award(dep.ID, b1.ID)

	held, err := bs.AwardedBadgeIDs(dep.ID)
	if err != nil {
		t.Fatalf("awarded ids: %v", err)
	}
	if !held[b1.ID] {
		t.Errorf("expected badge %d to be held", b1.ID)
	}
	if held[b2.ID] {
		t.Errorf("badge %d should not be held", b2.ID)
	}
}

func TestAcknowledge(t *testing.T) {
	bs, dep := setupBadgeTestDB(t)

	badge, _ := bs.Create("High Five", "", `{"task_approve":{"gte":5}}`, true)
	bs.Award(dep.ID, badge.ID)

	awards, _ := bs.ListAwardsByUser(dep.ID)
	if len(awards) != 1 {
		t.Fatalf("expected 1 award, got %d", len(awards))
	}
	award := awards[0]
	if award.ReceivedAt != nil {
		t.Fatal("new award should have nil received_at")
	}

	// Wrong user cannot acknowledge.
	ok, err := bs.Acknowledge(award.ID, dep.ID+100)
	if err != nil {
		t.Fatalf("acknowledge wrong user: %v", err)
	}
	if ok {
		t.Fatal("wrong user should not acknowledge")
	}

	ok, err = bs.Acknowledge(award.ID, dep.ID)
	if err != nil {
		t.Fatalf("acknowledge: %v", err)
	}
	if !ok {
		t.Fatal("holder should acknowledge")
	}

	got, _ := bs.GetAwardByID(award.ID)
	if got.ReceivedAt == nil {
		t.Error("received_at should be set")
	}

	// Second acknowledge is a no-op.
	ok, _ = bs.Acknowledge(award.ID, dep.ID)
	if ok {
		t.Fatal("second acknowledge should see zero rows affected")
	}
}

func TestDeleteBadgeCascadesAwards(t *testing.T) {
	bs, dep := setupBadgeTestDB(t)

	badge, _ := bs.Create("High Five", "", `{"task_approve":{"gte":5}}`, true)
	bs.Award(dep.ID, badge.ID)

	if err := bs.Delete(badge.ID); err != nil {
		t.Fatalf("delete badge: %v", err)
	}

	count, _ := bs.CountAwardsByUser(dep.ID)
	if count != 0 {
		t.Errorf("award count = %d, want 0 after badge delete", count)
	}
}
