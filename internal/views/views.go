// Package views classifies the task collection into the named view buckets
// and provides the sort and grouping policies used to render them.
//
// Every function here is pure: it never mutates its input, and anything
// date-sensitive takes today as an argument instead of reading the clock.
// Buckets are views, not partitions — a task may land in several.
package views

import (
	"sort"
	"strings"
	"time"

	"github.com/baiirun/phi/internal/model"
)

// Inbox returns tasks still sitting in the inbox.
func Inbox(tasks []model.Task) []model.Task {
	return filter(tasks, func(t *model.Task) bool {
		return t.Status == model.StatusInbox
	})
}

// Today returns open tasks due today or earlier. Overdue tasks stay in Today
// until handled.
func Today(tasks []model.Task, today time.Time) []model.Task {
	day := model.DateOf(today)
	return filter(tasks, func(t *model.Task) bool {
		return !t.IsCompleted() && t.DueDate != nil && !model.DateOf(*t.DueDate).After(day)
	})
}

// Upcoming returns open tasks due strictly after today.
func Upcoming(tasks []model.Task, today time.Time) []model.Task {
	day := model.DateOf(today)
	return filter(tasks, func(t *model.Task) bool {
		return !t.IsCompleted() && t.DueDate != nil && model.DateOf(*t.DueDate).After(day)
	})
}

// Anytime returns open tasks with no due date.
func Anytime(tasks []model.Task) []model.Task {
	return filter(tasks, func(t *model.Task) bool {
		return !t.IsCompleted() && t.DueDate == nil
	})
}

// Completed returns completed tasks.
func Completed(tasks []model.Task) []model.Task {
	return filter(tasks, func(t *model.Task) bool {
		return t.IsCompleted()
	})
}

// Review returns open tasks whose due date has passed — the subset of Today
// that needs attention.
func Review(tasks []model.Task, today time.Time) []model.Task {
	day := model.DateOf(today)
	return filter(tasks, func(t *model.Task) bool {
		return !t.IsCompleted() && t.DueDate != nil && model.DateOf(*t.DueDate).Before(day)
	})
}

// ByProject returns open tasks belonging to the given project.
func ByProject(tasks []model.Task, projectID string) []model.Task {
	return filter(tasks, func(t *model.Task) bool {
		return !t.IsCompleted() && t.ProjectID == projectID && projectID != ""
	})
}

// ByTag returns open tasks carrying the given tag.
func ByTag(tasks []model.Task, tagID string) []model.Task {
	return filter(tasks, func(t *model.Task) bool {
		return !t.IsCompleted() && t.HasTag(tagID)
	})
}

// Search returns tasks whose title or notes contain the query,
// case-insensitively. Completed tasks are searchable.
func Search(tasks []model.Task, query string) []model.Task {
	q := strings.ToLower(query)
	return filter(tasks, func(t *model.Task) bool {
		return strings.Contains(strings.ToLower(t.Title), q) ||
			strings.Contains(strings.ToLower(t.Notes), q)
	})
}

// filter copies matching non-deleted tasks into a fresh slice.
func filter(tasks []model.Task, keep func(*model.Task) bool) []model.Task {
	var out []model.Task
	for i := range tasks {
		if tasks[i].Deleted {
			continue
		}
		if keep(&tasks[i]) {
			out = append(out, tasks[i])
		}
	}
	return out
}

// SortByDueDate orders tasks by due date ascending. Tasks without a due date
// sort after all dated tasks; undated ties fall back to the manual order
// index.
func SortByDueDate(tasks []model.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := tasks[i].DueDate, tasks[j].DueDate
		switch {
		case a != nil && b != nil:
			return model.DateOf(*a).Before(model.DateOf(*b))
		case a != nil:
			return true
		case b != nil:
			return false
		default:
			return tasks[i].OrderIndex < tasks[j].OrderIndex
		}
	})
}

// SortByPriority orders tasks by priority, highest first.
func SortByPriority(tasks []model.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		return tasks[i].Priority.Rank() > tasks[j].Priority.Rank()
	})
}

// DateGroup is one due-date bucket produced by GroupByDueDate. Date is nil for
// the undated group.
type DateGroup struct {
	Date  *time.Time
	Tasks []model.Task
}

// GroupByDueDate groups tasks by exact due date, ascending. The undated group
// sorts before every dated group, mirroring an ordered map keyed by an
// optional date.
func GroupByDueDate(tasks []model.Task) []DateGroup {
	byDate := make(map[time.Time][]model.Task)
	var undated []model.Task
	for _, t := range tasks {
		if t.DueDate == nil {
			undated = append(undated, t)
			continue
		}
		day := model.DateOf(*t.DueDate)
		byDate[day] = append(byDate[day], t)
	}

	dates := make([]time.Time, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	groups := make([]DateGroup, 0, len(dates)+1)
	if len(undated) > 0 {
		groups = append(groups, DateGroup{Tasks: undated})
	}
	for _, d := range dates {
		day := d
		groups = append(groups, DateGroup{Date: &day, Tasks: byDate[d]})
	}
	return groups
}
