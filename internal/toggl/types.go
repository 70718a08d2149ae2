// Package toggl fetches time-tracking data from the Toggl Track API and
// aggregates it into the weekly report shown by the TUI and CLI. The
// integration is read-only; nothing here writes back to Toggl or touches the
// task store.
package toggl

import (
	"fmt"
	"sort"
	"time"
)

// NoProject labels entries without a project in the distribution report.
const NoProject = "No Project"

// TimeEntry is one tracked interval. Duration is negative while the timer is
// still running.
type TimeEntry struct {
	ID          int64  `json:"id"`
	Description string `json:"description"`
	Duration    int64  `json:"duration"`
	Start       string `json:"start"`
	Stop        string `json:"stop"`
	ProjectID   int64  `json:"project_id"`
	// Older payloads carry the project id as pid.
	PID         int64  `json:"pid"`
	ProjectName string `json:"project_name"`
}

func (e *TimeEntry) projectID() int64 {
	if e.ProjectID != 0 {
		return e.ProjectID
	}
	return e.PID
}

// StartDate returns the calendar date the entry started on, or nil when the
// start timestamp is malformed.
func (e *TimeEntry) StartDate() *time.Time {
	t, err := time.Parse(time.RFC3339, e.Start)
	if err != nil {
		return nil
	}
	d := dateOf(t)
	return &d
}

// DurationSecs returns the tracked seconds, counting a running timer from its
// start up to now.
func (e *TimeEntry) DurationSecs(now time.Time) int64 {
	if e.Duration >= 0 {
		return e.Duration
	}
	start, err := time.Parse(time.RFC3339, e.Start)
	if err != nil {
		return 0
	}
	return int64(now.Sub(start).Seconds())
}

// FormatDuration renders the tracked time as HH:MM:SS.
func (e *TimeEntry) FormatDuration(now time.Time) string {
	secs := e.DurationSecs(now)
	return fmt.Sprintf("%02d:%02d:%02d", secs/3600, (secs%3600)/60, secs%60)
}

// FormatDurationShort renders the tracked time as "2h 30m", or "45m" under an
// hour.
func (e *TimeEntry) FormatDurationShort(now time.Time) string {
	secs := e.DurationSecs(now)
	hours := secs / 3600
	minutes := (secs % 3600) / 60
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}

// Project is a Toggl project; only used to resolve entry project names.
type Project struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Data is one complete fetch of recent entries plus the project name index.
type Data struct {
	Entries  []TimeEntry
	Projects map[int64]string
}

// DurationForDate sums the tracked seconds of entries started on the given
// calendar date.
func (d *Data) DurationForDate(date, now time.Time) int64 {
	day := dateOf(date)
	var total int64
	for i := range d.Entries {
		if sd := d.Entries[i].StartDate(); sd != nil && sd.Equal(day) {
			total += d.Entries[i].DurationSecs(now)
		}
	}
	return total
}

// ProjectDuration is one row of the per-project distribution.
type ProjectDuration struct {
	Name    string
	Seconds int64
}

// DurationByProject aggregates tracked seconds per project name, most tracked
// first. Entries resolve their name from the entry itself, then the project
// index, then NoProject. Names listed in hidden are left out of the report.
func (d *Data) DurationByProject(hidden []string, now time.Time) []ProjectDuration {
	skip := make(map[string]bool, len(hidden))
	for _, name := range hidden {
		skip[name] = true
	}

	totals := make(map[string]int64)
	for i := range d.Entries {
		e := &d.Entries[i]
		name := e.ProjectName
		if name == "" {
			name = d.Projects[e.projectID()]
		}
		if name == "" {
			name = NoProject
		}
		if skip[name] {
			continue
		}
		totals[name] += e.DurationSecs(now)
	}

	rows := make([]ProjectDuration, 0, len(totals))
	for name, secs := range totals {
		rows = append(rows, ProjectDuration{Name: name, Seconds: secs})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Seconds != rows[j].Seconds {
			return rows[i].Seconds > rows[j].Seconds
		}
		return rows[i].Name < rows[j].Name
	})
	return rows
}

// DayEntries is one day of the recent-entry listing.
type DayEntries struct {
	Date    time.Time
	Entries []TimeEntry
}

// EntriesByDate groups entries by calendar date, most recent day first.
// Entries with a malformed start are dropped.
func (d *Data) EntriesByDate() []DayEntries {
	byDate := make(map[time.Time][]TimeEntry)
	for i := range d.Entries {
		sd := d.Entries[i].StartDate()
		if sd == nil {
			continue
		}
		byDate[*sd] = append(byDate[*sd], d.Entries[i])
	}

	dates := make([]time.Time, 0, len(byDate))
	for day := range byDate {
		dates = append(dates, day)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].After(dates[j]) })

	groups := make([]DayEntries, 0, len(dates))
	for _, day := range dates {
		groups = append(groups, DayEntries{Date: day, Entries: byDate[day]})
	}
	return groups
}

// FormatHours renders seconds as decimal hours, e.g. "2.5h".
func FormatHours(seconds int64) string {
	return fmt.Sprintf("%.1fh", float64(seconds)/3600.0)
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
