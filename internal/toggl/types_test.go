package toggl

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(id int64, start string, duration int64, project string) TimeEntry {
	return TimeEntry{ID: id, Start: start, Duration: duration, ProjectName: project}
}

func TestTimeEntry_DurationSecs(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

	stopped := entry(1, "2026-08-29T08:00:00Z", 5400, "")
	assert.Equal(t, int64(5400), stopped.DurationSecs(now))

	running := entry(2, "2026-08-29T11:30:00Z", -1, "")
	assert.Equal(t, int64(1800), running.DurationSecs(now))

	malformed := entry(3, "yesterday-ish", -1, "")
	assert.Equal(t, int64(0), malformed.DurationSecs(now))
}

func TestTimeEntry_FormatDuration(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

	e := entry(1, "2026-08-29T08:00:00Z", 3903, "")
	assert.Equal(t, "01:05:03", e.FormatDuration(now))
	assert.Equal(t, "1h 5m", e.FormatDurationShort(now))

	short := entry(2, "2026-08-29T08:00:00Z", 2700, "")
	assert.Equal(t, "45m", short.FormatDurationShort(now))
}

func TestTimeEntry_StartDate(t *testing.T) {
	e := entry(1, "2026-08-28T23:15:00Z", 60, "")
	d := e.StartDate()
	require.NotNil(t, d)
	assert.Equal(t, time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC), *d)

	bad := entry(2, "not-a-time", 60, "")
	assert.Nil(t, bad.StartDate())
}

func TestData_DurationForDate(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	data := &Data{Entries: []TimeEntry{
		entry(1, "2026-08-28T09:00:00Z", 1800, ""),
		entry(2, "2026-08-28T14:00:00Z", 600, ""),
		entry(3, "2026-08-29T09:00:00Z", 300, ""),
	}}

	day := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, int64(2400), data.DurationForDate(day, now))
}

func TestData_DurationByProject(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	data := &Data{
		Entries: []TimeEntry{
			entry(1, "2026-08-28T09:00:00Z", 3600, "phi"),
			entry(2, "2026-08-28T11:00:00Z", 1800, "phi"),
			{ID: 3, Start: "2026-08-28T13:00:00Z", Duration: 900, ProjectID: 7},
			entry(4, "2026-08-28T15:00:00Z", 600, ""),
		},
		Projects: map[int64]string{7: "infra"},
	}

	rows := data.DurationByProject(nil, now)
	require.Len(t, rows, 3)
	assert.Equal(t, ProjectDuration{Name: "phi", Seconds: 5400}, rows[0])
	assert.Equal(t, ProjectDuration{Name: "infra", Seconds: 900}, rows[1])
	assert.Equal(t, ProjectDuration{Name: NoProject, Seconds: 600}, rows[2])
}

func TestData_DurationByProject_HidesListedProjects(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	data := &Data{Entries: []TimeEntry{
		entry(1, "2026-08-28T09:00:00Z", 3600, "phi"),
		entry(2, "2026-08-28T11:00:00Z", 1800, "meetings"),
	}}

	rows := data.DurationByProject([]string{"meetings"}, now)
	require.Len(t, rows, 1)
	assert.Equal(t, "phi", rows[0].Name)
}

func TestData_EntriesByDate_MostRecentFirst(t *testing.T) {
	data := &Data{Entries: []TimeEntry{
		entry(1, "2026-08-27T09:00:00Z", 60, ""),
		entry(2, "2026-08-29T09:00:00Z", 60, ""),
		entry(3, "2026-08-29T10:00:00Z", 60, ""),
		entry(4, "garbage", 60, ""),
	}}

	groups := data.EntriesByDate()
	require.Len(t, groups, 2)
	assert.Equal(t, time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC), groups[0].Date)
	assert.Len(t, groups[0].Entries, 2)
	assert.Equal(t, time.Date(2026, 8, 27, 0, 0, 0, 0, time.UTC), groups[1].Date)
}

func TestFormatHours(t *testing.T) {
	assert.Equal(t, "2.5h", FormatHours(9000))
	assert.Equal(t, "0.0h", FormatHours(0))
}
