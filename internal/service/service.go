// Package service wraps the store with the entity lifecycle rules: fresh
// order indexes on create, updated_at bumps on every mutation, and the
// completed_at invariant on status changes.
package service

import (
	"fmt"
	"time"

	"github.com/baiirun/phi/internal/db"
	"github.com/baiirun/phi/internal/model"
)

// Service owns entity mutations. Reads go straight to the store; the
// in-memory collections callers hold are read-mostly caches valid for one
// render or reconciliation pass, never a source of truth.
type Service struct {
	store *db.DB
}

func New(store *db.DB) *Service {
	return &Service{store: store}
}

// CreateTask creates an inbox task with the next order index.
func (s *Service) CreateTask(title string) (*model.Task, error) {
	task := model.NewTask(title)
	idx, err := s.store.NextOrderIndex("tasks")
	if err != nil {
		return nil, err
	}
	task.OrderIndex = idx
	if err := s.store.InsertTask(task); err != nil {
		return nil, err
	}
	return task, nil
}

// UpdateTask persists task edits, bumping updated_at.
func (s *Service) UpdateTask(task *model.Task) error {
	task.UpdatedAt = time.Now().UTC()
	return s.store.UpdateTask(task)
}

// SetStatus transitions a task, maintaining the completion invariant, and
// persists it.
func (s *Service) SetStatus(task *model.Task, status model.Status) error {
	if !status.IsValid() {
		return fmt.Errorf("invalid status: %s", status)
	}
	task.SetStatus(status, time.Now().UTC())
	return s.store.UpdateTask(task)
}

// ToggleCompleted flips a task between completed and inbox.
func (s *Service) ToggleCompleted(task *model.Task) error {
	if task.IsCompleted() {
		return s.SetStatus(task, model.StatusInbox)
	}
	return s.SetStatus(task, model.StatusCompleted)
}

// DeleteTask soft-deletes a task.
func (s *Service) DeleteTask(id string) error {
	return s.store.DeleteTask(id)
}

// GetAllTasks returns a fresh read of the non-deleted tasks.
func (s *Service) GetAllTasks() ([]model.Task, error) {
	return s.store.GetAllTasks()
}

// GetTask returns one task, or nil when absent.
func (s *Service) GetTask(id string) (*model.Task, error) {
	return s.store.GetTask(id)
}

// CreateProject creates a project with the next order index.
func (s *Service) CreateProject(name string) (*model.Project, error) {
	project := model.NewProject(name)
	idx, err := s.store.NextOrderIndex("projects")
	if err != nil {
		return nil, err
	}
	project.OrderIndex = idx
	if err := s.store.InsertProject(project); err != nil {
		return nil, err
	}
	return project, nil
}

// UpdateProject persists project edits, bumping updated_at.
func (s *Service) UpdateProject(project *model.Project) error {
	project.UpdatedAt = time.Now().UTC()
	return s.store.UpdateProject(project)
}

// DeleteProject soft-deletes a project; its tasks keep their reference.
func (s *Service) DeleteProject(id string) error {
	return s.store.DeleteProject(id)
}

// GetAllProjects returns a fresh read of the non-deleted projects.
func (s *Service) GetAllProjects() ([]model.Project, error) {
	return s.store.GetAllProjects()
}

// CreateTag creates a tag.
func (s *Service) CreateTag(name string) (*model.Tag, error) {
	tag := model.NewTag(name)
	if err := s.store.InsertTag(tag); err != nil {
		return nil, err
	}
	return tag, nil
}

// UpdateTag persists tag edits, bumping updated_at.
func (s *Service) UpdateTag(tag *model.Tag) error {
	tag.UpdatedAt = time.Now().UTC()
	return s.store.UpdateTag(tag)
}

// DeleteTag soft-deletes a tag; tasks keep their tag ids.
func (s *Service) DeleteTag(id string) error {
	return s.store.DeleteTag(id)
}

// GetAllTags returns a fresh read of the non-deleted tags.
func (s *Service) GetAllTags() ([]model.Tag, error) {
	return s.store.GetAllTags()
}
