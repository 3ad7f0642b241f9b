package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bitfantasy/onboard/internal/onboarding/entity"
	"github.com/bitfantasy/onboard/internal/onboarding/testutil"
	"github.com/google/uuid"
)

func TestPublishVersionCompareAndSet(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repos := NewRepositories(db)
	ctx := context.Background()

	now := time.Now().UTC()
	tmpl := &entity.Template{ID: uuid.New().String(), Name: "HR", Department: "HR", Status: entity.TemplateStatusDraft, LatestVersionNumber: 1}
	if err := repos.Template.Create(ctx, tmpl); err != nil {
		t.Fatalf("create template: %v", err)
	}
	version := &entity.TemplateVersion{ID: uuid.New().String(), TemplateID: tmpl.ID, VersionNumber: 1, Status: entity.TemplateStatusDraft}
	if err := repos.Template.CreateVersion(ctx, version); err != nil {
		t.Fatalf("create version: %v", err)
	}

	ok, err := repos.Template.PublishVersion(ctx, version.ID, now)
	if err != nil || !ok {
		t.Fatalf("Expected first publish to win, got %v %v", ok, err)
	}
	ok, err = repos.Template.PublishVersion(ctx, version.ID, now.Add(time.Hour))
	if err != nil || ok {
		t.Fatalf("Expected second publish to be a no-op, got %v %v", ok, err)
	}

	stored, err := repos.Template.FindVersion(ctx, version.ID)
	if err != nil {
		t.Fatalf("find version: %v", err)
	}
	if stored.PublishedAt == nil || !stored.PublishedAt.Equal(now) {
		t.Errorf("Expected publishedAt %v, got %v", now, stored.PublishedAt)
	}

	dup := &entity.TemplateVersion{ID: uuid.New().String(), TemplateID: tmpl.ID, VersionNumber: 1, Status: entity.TemplateStatusDraft}
	if err := repos.Template.CreateVersion(ctx, dup); !errors.Is(err, ErrStoreRejected) {
		t.Errorf("Expected duplicate version number to be rejected, got %v", err)
	}
}

func TestNotFoundIsClassified(t *testing.T) {
	repos := NewRepositories(testutil.SetupTestDB(t))
	ctx := context.Background()

	if _, err := repos.Case.FindByID(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if _, err := repos.Task.FindForUpdate(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if _, err := repos.Checklist.FindForUpdate(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if err := repos.Case.UpdateStatus(ctx, "missing", entity.CaseStatusCompleted, time.Now()); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestTransactionRollsBack(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repos := NewRepositories(db)
	ctx := context.Background()

	boom := errors.New("boom")
	err := repos.Transaction(ctx, func(tx *Repositories) error {
		if err := tx.Case.Create(ctx, &entity.Case{
			ID: uuid.New().String(), Title: "x", EmployeeEmail: "x@example.com", Department: "HR", Status: entity.CaseStatusOpen,
		}); err != nil {
			return err
		}
		return boom
	})
	if err != boom {
		t.Fatalf("Expected fn error to pass through, got %v", err)
	}
	var count int64
	db.Model(&entity.Case{}).Count(&count)
	if count != 0 {
		t.Errorf("Expected rollback, got %d cases", count)
	}
}

func TestCaseListTaskCounts(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repos := NewRepositories(db)
	ctx := context.Background()

	newCase := func(dept string, status entity.CaseStatus) *entity.Case {
		c := &entity.Case{ID: uuid.New().String(), Title: dept, EmployeeEmail: "x@example.com", Department: dept, Status: status}
		if err := repos.Case.Create(ctx, c); err != nil {
			t.Fatalf("create case: %v", err)
		}
		return c
	}
	withTasks := newCase("Engineering", entity.CaseStatusOpen)
	newCase("Engineering", entity.CaseStatusCompleted)
	newCase("Sales", entity.CaseStatusOpen)

	var tasks []entity.Task
	for i := 0; i < 3; i++ {
		tasks = append(tasks, entity.Task{
			ID: uuid.New().String(), CaseID: &withTasks.ID, Title: "t", Department: "Engineering",
			Status: entity.TaskStatusNotStarted, Priority: entity.PriorityMed, Sequence: i,
		})
	}
	if err := repos.Task.CreateBatch(ctx, tasks); err != nil {
		t.Fatalf("create tasks: %v", err)
	}

	cases, err := repos.Case.List(ctx, CaseFilter{Department: "Engineering", Statuses: []entity.CaseStatus{entity.CaseStatusOpen}})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(cases) != 1 || cases[0].ID != withTasks.ID || cases[0].TaskCount != 3 {
		t.Errorf("Expected one open engineering case with 3 tasks, got %+v", cases)
	}

	all, _ := repos.Case.List(ctx, CaseFilter{})
	if len(all) != 3 {
		t.Errorf("Expected 3 cases, got %d", len(all))
	}

	found, err := repos.Case.FindByID(ctx, withTasks.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(found.Tasks) != 3 || found.Tasks[0].Sequence != 2 {
		t.Errorf("Expected tasks newest first by sequence, got %+v", found.Tasks)
	}
}
