package model

import (
	"time"

	"github.com/google/uuid"
)

// Tag is a label referenced from tasks by id. Tags survive task deletion.
type Tag struct {
	ID        string
	Name      string
	Color     string
	CreatedAt time.Time
	UpdatedAt time.Time
	Deleted   bool
}

// NewTag creates a tag with a fresh id and equal timestamps.
func NewTag(name string) *Tag {
	now := time.Now().UTC()
	return &Tag{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
