package service

import (
	"path/filepath"
	"testing"

	"github.com/baiirun/phi/internal/db"
	"github.com/baiirun/phi/internal/model"
)

func setupService(t *testing.T) *Service {
	t.Helper()
	store, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	if err := store.Init(); err != nil {
		t.Fatalf("failed to init db: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return New(store)
}

func TestCreateTask_AssignsOrderIndexes(t *testing.T) {
	svc := setupService(t)

	first, err := svc.CreateTask("one")
	if err != nil {
		t.Fatalf("failed to create task: %v", err)
	}
	second, err := svc.CreateTask("two")
	if err != nil {
		t.Fatalf("failed to create task: %v", err)
	}

	if first.OrderIndex != 1 {
		t.Errorf("first order index = %d, want 1", first.OrderIndex)
	}
	if second.OrderIndex != 2 {
		t.Errorf("second order index = %d, want 2", second.OrderIndex)
	}
	if first.Status != model.StatusInbox {
		t.Errorf("status = %q, want inbox", first.Status)
	}
}

func TestSetStatus_PersistsInvariant(t *testing.T) {
	svc := setupService(t)

	task, err := svc.CreateTask("finish me")
	if err != nil {
		t.Fatalf("failed to create task: %v", err)
	}

	if err := svc.SetStatus(task, model.StatusCompleted); err != nil {
		t.Fatalf("failed to set status: %v", err)
	}

	got, err := svc.GetTask(task.ID)
	if err != nil {
		t.Fatalf("failed to get task: %v", err)
	}
	if got.Status != model.StatusCompleted {
		t.Errorf("status = %q, want completed", got.Status)
	}
	if got.CompletedAt == nil {
		t.Error("completed task must have completed_at")
	}

	if err := svc.SetStatus(task, model.StatusActive); err != nil {
		t.Fatalf("failed to set status: %v", err)
	}
	got, err = svc.GetTask(task.ID)
	if err != nil {
		t.Fatalf("failed to get task: %v", err)
	}
	if got.CompletedAt != nil {
		t.Error("leaving completed must clear completed_at")
	}
}

func TestSetStatus_RejectsInvalid(t *testing.T) {
	svc := setupService(t)

	task, err := svc.CreateTask("x")
	if err != nil {
		t.Fatalf("failed to create task: %v", err)
	}
	if err := svc.SetStatus(task, model.Status("done")); err == nil {
		t.Error("expected error for invalid status")
	}
}

func TestToggleCompleted_RoundTrip(t *testing.T) {
	svc := setupService(t)

	task, err := svc.CreateTask("flip me")
	if err != nil {
		t.Fatalf("failed to create task: %v", err)
	}

	if err := svc.ToggleCompleted(task); err != nil {
		t.Fatalf("failed to toggle: %v", err)
	}
	if !task.IsCompleted() {
		t.Error("expected completed after first toggle")
	}

	if err := svc.ToggleCompleted(task); err != nil {
		t.Fatalf("failed to toggle: %v", err)
	}
	if task.Status != model.StatusInbox {
		t.Errorf("status = %q, want inbox after second toggle", task.Status)
	}
	if task.CompletedAt != nil {
		t.Error("completed_at must be cleared after un-completing")
	}
}

func TestProjectAndTagLifecycle(t *testing.T) {
	svc := setupService(t)

	project, err := svc.CreateProject("side quest")
	if err != nil {
		t.Fatalf("failed to create project: %v", err)
	}
	if project.OrderIndex != 1 {
		t.Errorf("project order index = %d, want 1", project.OrderIndex)
	}

	tag, err := svc.CreateTag("later")
	if err != nil {
		t.Fatalf("failed to create tag: %v", err)
	}

	if err := svc.DeleteProject(project.ID); err != nil {
		t.Fatalf("failed to delete project: %v", err)
	}
	if err := svc.DeleteTag(tag.ID); err != nil {
		t.Fatalf("failed to delete tag: %v", err)
	}

	projects, err := svc.GetAllProjects()
	if err != nil {
		t.Fatalf("failed to list projects: %v", err)
	}
	if len(projects) != 0 {
		t.Errorf("got %d projects, want 0", len(projects))
	}
	tags, err := svc.GetAllTags()
	if err != nil {
		t.Fatalf("failed to list tags: %v", err)
	}
	if len(tags) != 0 {
		t.Errorf("got %d tags, want 0", len(tags))
	}
}
