// Package model defines the core entities of phi: tasks, projects and tags.
//
// All entities are soft-deleted (the Deleted flag is set, rows are kept) and
// carry created/updated timestamps. Mutations go through the service layer,
// which bumps UpdatedAt.
package model

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a task.
type Status string

const (
	StatusInbox     Status = "inbox"
	StatusActive    Status = "active"
	StatusScheduled Status = "scheduled"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusInbox, StatusActive, StatusScheduled, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// ParseStatus maps a stored string to a Status, defaulting to inbox for
// unknown values so a corrupted row never breaks a load.
func ParseStatus(s string) Status {
	st := Status(s)
	if st.IsValid() {
		return st
	}
	return StatusInbox
}

// Priority is an ordered urgency level. Rank gives the ordering.
type Priority string

const (
	PriorityNone   Priority = "none"
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

func (p Priority) IsValid() bool {
	switch p {
	case PriorityNone, PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Rank returns the sort weight of the priority; higher is more urgent.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

// Symbol returns the short marker rendered next to a task title.
func (p Priority) Symbol() string {
	switch p {
	case PriorityHigh:
		return "!!!"
	case PriorityMedium:
		return "!!"
	case PriorityLow:
		return "!"
	default:
		return " "
	}
}

func ParsePriority(s string) Priority {
	p := Priority(s)
	if p.IsValid() {
		return p
	}
	return PriorityNone
}

// Kind classifies what a task is. The gh: kinds mark tasks created by the
// GitHub reconciler rather than by hand.
type Kind string

const (
	KindTask     Kind = "task"
	KindBug      Kind = "bug"
	KindFeature  Kind = "feature"
	KindChore    Kind = "chore"
	KindGHIssue  Kind = "gh:issue"
	KindGHPR     Kind = "gh:pr"
	KindGHReview Kind = "gh:review"
)

func (k Kind) IsValid() bool {
	switch k {
	case KindTask, KindBug, KindFeature, KindChore, KindGHIssue, KindGHPR, KindGHReview:
		return true
	}
	return false
}

// Symbol returns the short marker rendered next to a task title.
func (k Kind) Symbol() string {
	switch k {
	case KindTask:
		return "[T]"
	case KindBug:
		return "[B]"
	case KindFeature:
		return "[F]"
	case KindChore:
		return "[C]"
	case KindGHIssue:
		return "[ISS]"
	case KindGHPR:
		return "[PR]"
	case KindGHReview:
		return "[REV]"
	}
	return ""
}

// ParseKind returns the zero Kind for unknown values; Kind is optional on a
// task, so the zero value means "not set".
func ParseKind(s string) Kind {
	k := Kind(s)
	if k.IsValid() {
		return k
	}
	return ""
}

// Size is a rough effort estimate.
type Size string

const (
	SizeXS Size = "xs"
	SizeS  Size = "s"
	SizeM  Size = "m"
	SizeL  Size = "l"
)

func (sz Size) IsValid() bool {
	switch sz {
	case SizeXS, SizeS, SizeM, SizeL:
		return true
	}
	return false
}

func (sz Size) Display() string {
	switch sz {
	case SizeXS:
		return "XS"
	case SizeS:
		return "S"
	case SizeM:
		return "M"
	case SizeL:
		return "L"
	}
	return ""
}

func ParseSize(s string) Size {
	sz := Size(s)
	if sz.IsValid() {
		return sz
	}
	return ""
}

// Task is a single tracked item. DueDate and StartDate are calendar dates
// (midnight UTC, no meaningful time component). ContextURL holds the canonical
// link of a remotely-sourced task and is the stable identity the reconciler
// matches on. Metadata stashes remote provenance as free-form string pairs.
type Task struct {
	ID          string
	Title       string
	Notes       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DueDate     *time.Time
	StartDate   *time.Time
	CompletedAt *time.Time
	ProjectID   string
	Priority    Priority
	Tags        []string
	Status      Status
	OrderIndex  int64
	Deleted     bool
	Kind        Kind
	Size        Size
	Assignee    string
	ContextURL  string
	Metadata    map[string]string
}

// NewTask creates a task in the inbox with a fresh id and equal timestamps.
func NewTask(title string) *Task {
	now := time.Now().UTC()
	return &Task{
		ID:        uuid.NewString(),
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
		Priority:  PriorityNone,
		Status:    StatusInbox,
		Metadata:  make(map[string]string),
	}
}

func (t *Task) IsCompleted() bool {
	return t.Status == StatusCompleted
}

// SetStatus transitions the task and maintains the completion invariant:
// CompletedAt is populated exactly when Status is completed. UpdatedAt is
// always bumped, even for a same-status transition.
func (t *Task) SetStatus(status Status, now time.Time) {
	t.Status = status
	if status == StatusCompleted {
		at := now
		t.CompletedAt = &at
	} else {
		t.CompletedAt = nil
	}
	t.UpdatedAt = now
}

// IsOverdue reports whether the task has a due date strictly before today and
// is not completed.
func (t *Task) IsOverdue(today time.Time) bool {
	if t.DueDate == nil || t.IsCompleted() {
		return false
	}
	return DateOf(*t.DueDate).Before(DateOf(today))
}

// IsDueToday reports whether the task is due exactly today.
func (t *Task) IsDueToday(today time.Time) bool {
	if t.DueDate == nil {
		return false
	}
	return DateOf(*t.DueDate).Equal(DateOf(today))
}

// HasTag reports whether the task references the given tag id.
func (t *Task) HasTag(tagID string) bool {
	for _, id := range t.Tags {
		if id == tagID {
			return true
		}
	}
	return false
}

// DateOf truncates a timestamp to its calendar date at midnight UTC. Due and
// start dates are compared through this so time-of-day never leaks into
// classification.
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
