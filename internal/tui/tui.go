// Package tui provides an interactive terminal UI for phi using Bubble Tea.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/baiirun/phi/internal/model"
	"github.com/baiirun/phi/internal/service"
	phisync "github.com/baiirun/phi/internal/sync"
	"github.com/baiirun/phi/internal/toggl"
	"github.com/baiirun/phi/internal/views"
)

// Bucket identifies which view is on screen.
type Bucket int

const (
	BucketInbox Bucket = iota
	BucketToday
	BucketUpcoming
	BucketAnytime
	BucketReview
	BucketCompleted
)

var bucketNames = map[Bucket]string{
	BucketInbox:     "Inbox",
	BucketToday:     "Today",
	BucketUpcoming:  "Upcoming",
	BucketAnytime:   "Anytime",
	BucketReview:    "Review",
	BucketCompleted: "Completed",
}

// Status icons
const (
	iconOpen      = "○"
	iconScheduled = "◐"
	iconDone      = "●"
	iconCancelled = "✗"
)

// Model is the main Bubble Tea model for the TUI.
type Model struct {
	svc        *service.Service
	reconciler *phisync.Reconciler
	fetcher    *phisync.Fetcher

	tasks    []model.Task
	projects map[string]string // project id -> name
	filtered []model.Task
	cursor   int
	bucket   Bucket

	syncing bool

	togglClient  *toggl.Client
	togglHidden  []string
	togglData    *toggl.Data
	togglLoading bool
	showToggl    bool

	// UI state
	width   int
	height  int
	err     error
	message string
}

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	selectedRowStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("229")).
				Background(lipgloss.Color("57"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	messageStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	overdueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))
)

func statusIcon(s model.Status) string {
	switch s {
	case model.StatusScheduled:
		return iconScheduled
	case model.StatusCompleted:
		return iconDone
	case model.StatusCancelled:
		return iconCancelled
	default:
		return iconOpen
	}
}

// New creates a new TUI model. fetcher and togglClient may be nil when the
// matching token is not configured; the sync and toggl keys then report that
// instead of fetching.
func New(svc *service.Service, reconciler *phisync.Reconciler, fetcher *phisync.Fetcher,
	togglClient *toggl.Client, togglHidden []string) Model {
	return Model{
		svc:         svc,
		reconciler:  reconciler,
		fetcher:     fetcher,
		togglClient: togglClient,
		togglHidden: togglHidden,
		bucket:      BucketInbox,
		projects:    make(map[string]string),
	}
}

// Messages
type tasksMsg struct {
	tasks    []model.Task
	projects map[string]string
	err      error
}

type syncMsg struct {
	stats phisync.Stats
	err   error
}

type actionMsg struct {
	message string
	err     error
}

type togglMsg struct {
	data *toggl.Data
	err  error
}

// loadTasks reads a fresh snapshot of tasks and project names.
func (m Model) loadTasks() tea.Cmd {
	return func() tea.Msg {
		tasks, err := m.svc.GetAllTasks()
		if err != nil {
			return tasksMsg{err: err}
		}
		projects, err := m.svc.GetAllProjects()
		if err != nil {
			return tasksMsg{err: err}
		}
		names := make(map[string]string, len(projects))
		for _, p := range projects {
			names[p.ID] = p.Name
		}
		return tasksMsg{tasks: tasks, projects: names}
	}
}

// runSync fetches a snapshot and reconciles it into the store.
func (m Model) runSync() tea.Cmd {
	return func() tea.Msg {
		ch, ok := m.fetcher.Start(context.Background())
		if !ok {
			return syncMsg{err: fmt.Errorf("sync already in progress")}
		}
		res := <-ch
		if res.Err != nil {
			// Fetch failed: reconciliation is skipped, local state untouched.
			return syncMsg{err: res.Err}
		}

		tasks, err := m.svc.GetAllTasks()
		if err != nil {
			return syncMsg{err: err}
		}
		projects, err := m.svc.GetAllProjects()
		if err != nil {
			return syncMsg{err: err}
		}
		stats := m.reconciler.Reconcile(tasks, projects, res.Snapshot)
		return syncMsg{stats: stats}
	}
}

// loadToggl fetches the past week of tracked time.
func (m Model) loadToggl() tea.Cmd {
	return func() tea.Msg {
		data, err := m.togglClient.FetchAll(context.Background(), 7)
		if err != nil {
			return togglMsg{err: err}
		}
		return togglMsg{data: data}
	}
}

// applyBucket classifies the loaded tasks into the active bucket.
func (m *Model) applyBucket() {
	today := time.Now().UTC()
	switch m.bucket {
	case BucketInbox:
		m.filtered = views.Inbox(m.tasks)
	case BucketToday:
		m.filtered = views.Today(m.tasks, today)
	case BucketUpcoming:
		m.filtered = views.Upcoming(m.tasks, today)
	case BucketAnytime:
		m.filtered = views.Anytime(m.tasks)
	case BucketReview:
		m.filtered = views.Review(m.tasks, today)
	case BucketCompleted:
		m.filtered = views.Completed(m.tasks)
	}
	views.SortByDueDate(m.filtered)
	if m.cursor >= len(m.filtered) {
		m.cursor = max(0, len(m.filtered)-1)
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return m.loadTasks()
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		// Clear message on any key
		m.message = ""
		m.err = nil
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tasksMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.tasks = msg.tasks
		m.projects = msg.projects
		m.applyBucket()
		return m, nil

	case syncMsg:
		m.syncing = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		if msg.stats.IsNoop() {
			m.message = "synced, nothing changed"
		} else {
			m.message = fmt.Sprintf("synced: %d new, %d updated, %d closed, %d projects",
				msg.stats.TasksCreated, msg.stats.TasksUpdated,
				msg.stats.TasksClosed, msg.stats.ProjectsCreated)
		}
		return m, m.loadTasks()

	case actionMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.message = msg.message
		return m, m.loadTasks()

	case togglMsg:
		m.togglLoading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.togglData = msg.data
		return m, nil
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showToggl {
		return m.handleTogglKey(msg)
	}

	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "j", "down":
		if m.cursor < len(m.filtered)-1 {
			m.cursor++
		}

	case "k", "up":
		if m.cursor > 0 {
			m.cursor--
		}

	case "tab", "l", "right":
		m.bucket = (m.bucket + 1) % 6
		m.cursor = 0
		m.applyBucket()

	case "shift+tab", "h", "left":
		m.bucket = (m.bucket + 5) % 6
		m.cursor = 0
		m.applyBucket()

	case "1", "2", "3", "4", "5", "6":
		m.bucket = Bucket(msg.String()[0] - '1')
		m.cursor = 0
		m.applyBucket()

	case " ", "x":
		if task, ok := m.current(); ok {
			return m, m.toggle(task)
		}

	case "d":
		if task, ok := m.current(); ok {
			return m, m.delete(task)
		}

	case "s":
		if m.fetcher == nil {
			m.err = fmt.Errorf("github token not configured, set %s or edit the config file", "PHI_GITHUB_TOKEN")
			return m, nil
		}
		if m.syncing {
			return m, nil
		}
		m.syncing = true
		return m, m.runSync()

	case "t":
		if m.togglClient == nil {
			m.err = fmt.Errorf("toggl token not configured, set %s or edit the config file", "PHI_TOGGL_TOKEN")
			return m, nil
		}
		m.showToggl = true
		if m.togglData == nil && !m.togglLoading {
			m.togglLoading = true
			return m, m.loadToggl()
		}

	case "r":
		return m, m.loadTasks()
	}

	return m, nil
}

func (m Model) handleTogglKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "t", "esc":
		m.showToggl = false

	case "r":
		if m.togglClient != nil && !m.togglLoading {
			m.togglLoading = true
			return m, m.loadToggl()
		}
	}

	return m, nil
}

func (m Model) current() (model.Task, bool) {
	if len(m.filtered) == 0 || m.cursor >= len(m.filtered) {
		return model.Task{}, false
	}
	return m.filtered[m.cursor], true
}

func (m Model) toggle(task model.Task) tea.Cmd {
	return func() tea.Msg {
		if err := m.svc.ToggleCompleted(&task); err != nil {
			return actionMsg{err: err}
		}
		if task.IsCompleted() {
			return actionMsg{message: "completed " + task.Title}
		}
		return actionMsg{message: "reopened " + task.Title}
	}
}

func (m Model) delete(task model.Task) tea.Cmd {
	return func() tea.Msg {
		if err := m.svc.DeleteTask(task.ID); err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{message: "deleted " + task.Title}
	}
}

// View implements tea.Model.
func (m Model) View() string {
	if m.showToggl {
		return m.togglView()
	}

	var b strings.Builder

	// Bucket tabs
	var tabs []string
	for bucket := BucketInbox; bucket <= BucketCompleted; bucket++ {
		name := bucketNames[bucket]
		if bucket == m.bucket {
			tabs = append(tabs, titleStyle.Render(name))
		} else {
			tabs = append(tabs, dimStyle.Render(name))
		}
	}
	b.WriteString(strings.Join(tabs, dimStyle.Render(" | ")))
	if m.syncing {
		b.WriteString(dimStyle.Render("  syncing..."))
	}
	b.WriteString("\n\n")

	if len(m.filtered) == 0 {
		b.WriteString(dimStyle.Render("  nothing here"))
		b.WriteString("\n")
	}

	today := time.Now().UTC()
	for i, task := range m.filtered {
		row := m.renderRow(task, today)
		if i == m.cursor {
			row = selectedRowStyle.Render(row)
		}
		b.WriteString(row)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if m.err != nil {
		b.WriteString(errorStyle.Render(m.err.Error()))
		b.WriteString("\n")
	} else if m.message != "" {
		b.WriteString(messageStyle.Render(m.message))
		b.WriteString("\n")
	}
	b.WriteString(helpStyle.Render("j/k move · tab bucket · space toggle · d delete · s sync · t toggl · r reload · q quit"))

	return b.String()
}

// togglView renders the past week of tracked time: hours per day, then the
// per-project distribution with hidden projects filtered out.
func (m Model) togglView() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Toggl"))
	b.WriteString(dimStyle.Render("  last 7 days"))
	b.WriteString("\n\n")

	switch {
	case m.togglLoading:
		b.WriteString(dimStyle.Render("  loading..."))
		b.WriteString("\n")

	case m.err != nil:
		b.WriteString(errorStyle.Render(m.err.Error()))
		b.WriteString("\n")

	case m.togglData != nil:
		now := time.Now().UTC()
		for i := 6; i >= 0; i-- {
			day := now.AddDate(0, 0, -i)
			secs := m.togglData.DurationForDate(day, now)
			// One cell per half hour, capped so long days stay on screen.
			bar := strings.Repeat("█", int(min(secs/1800, 40)))
			b.WriteString(fmt.Sprintf("  %s %s %s\n",
				dimStyle.Render(day.Format("Mon")), bar, toggl.FormatHours(secs)))
		}

		rows := m.togglData.DurationByProject(m.togglHidden, now)
		if len(rows) > 0 {
			b.WriteString("\n")
		}
		for _, row := range rows {
			b.WriteString(fmt.Sprintf("  %s %s\n",
				row.Name, dimStyle.Render(toggl.FormatHours(row.Seconds))))
		}
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("t close · r reload · q quit"))
	return b.String()
}

func (m Model) renderRow(task model.Task, today time.Time) string {
	var parts []string
	parts = append(parts, statusIcon(task.Status))
	if task.Kind != "" {
		parts = append(parts, task.Kind.Symbol())
	}
	if task.Priority != model.PriorityNone {
		parts = append(parts, task.Priority.Symbol())
	}
	parts = append(parts, task.Title)

	if name := m.projects[task.ProjectID]; name != "" {
		parts = append(parts, dimStyle.Render("("+name+")"))
	}
	if task.DueDate != nil {
		due := task.DueDate.Format("2006-01-02")
		if task.IsOverdue(today) {
			parts = append(parts, overdueStyle.Render(due))
		} else {
			parts = append(parts, dimStyle.Render(due))
		}
	}

	return "  " + strings.Join(parts, " ")
}
