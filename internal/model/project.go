package model

import (
	"time"

	"github.com/google/uuid"
)

// Project groups tasks. Tasks hold a weak reference by id; deleting a project
// does not touch its tasks. The reconciler maps remote repositories onto
// projects by display name, so a renamed project will no longer match its
// repository on the next sync.
type Project struct {
	ID          string
	Name        string
	Description string
	Color       string
	Icon        string
	OrderIndex  int64
	IsInbox     bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Deleted     bool
}

// NewProject creates a project with a fresh id and equal timestamps.
func NewProject(name string) *Project {
	now := time.Now().UTC()
	return &Project{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// DisplayIcon returns the configured icon or a default folder marker.
func (p *Project) DisplayIcon() string {
	if p.Icon != "" {
		return p.Icon
	}
	return "📁"
}
