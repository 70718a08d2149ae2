package sync

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/baiirun/phi/internal/db"
	"github.com/baiirun/phi/internal/github"
	"github.com/baiirun/phi/internal/model"
)

func setupStore(t *testing.T) *db.DB {
	t.Helper()
	store, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, store.Init())
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func issue(id int64, url, repo, title string) github.Issue {
	return github.Issue{
		ID:         id,
		Title:      title,
		HTMLURL:    url,
		State:      "open",
		Repository: &github.Repository{FullName: repo},
	}
}

// reconcileFresh runs one pass over a fresh read of the store, the way the
// app drives it.
func reconcileFresh(t *testing.T, r *Reconciler, store *db.DB, snap *github.Snapshot) Stats {
	t.Helper()
	tasks, err := store.GetAllTasks()
	require.NoError(t, err)
	projects, err := store.GetAllProjects()
	require.NoError(t, err)
	return r.Reconcile(tasks, projects, snap)
}

func TestReconcile_CreatesTaskAndProject(t *testing.T) {
	store := setupStore(t)
	r := NewReconciler(store, zap.NewNop())

	snap := &github.Snapshot{
		AssignedIssues: []github.Issue{
			issue(1, "https://github.com/o/r/issues/1", "o/r", "Fix bug"),
		},
	}

	stats := reconcileFresh(t, r, store, snap)
	assert.Equal(t, 1, stats.TasksCreated)
	assert.Equal(t, 1, stats.ProjectsCreated)

	tasks, err := store.GetAllTasks()
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	task := tasks[0]
	assert.Equal(t, "Fix bug", task.Title)
	assert.Equal(t, model.StatusInbox, task.Status)
	assert.Equal(t, "https://github.com/o/r/issues/1", task.ContextURL)
	assert.Equal(t, model.KindGHIssue, task.Kind)
	assert.Equal(t, "1", task.Metadata[MetaGitHubID])
	assert.Equal(t, "issue", task.Metadata[MetaGitHubType])
	assert.Equal(t, "o/r", task.Metadata[MetaGitHubRepo])

	projects, err := store.GetAllProjects()
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, "o/r", projects[0].Name)
	assert.Equal(t, projects[0].ID, task.ProjectID)
	assert.NotEmpty(t, projects[0].Icon)
}

func TestReconcile_OriginKinds(t *testing.T) {
	store := setupStore(t)
	r := NewReconciler(store, zap.NewNop())

	snap := &github.Snapshot{
		AssignedIssues: []github.Issue{issue(1, "https://github.com/o/r/issues/1", "o/r", "an issue")},
		MyPRs:          []github.Issue{issue(2, "https://github.com/o/r/pull/2", "o/r", "my pr")},
		ReviewPRs:      []github.Issue{issue(3, "https://github.com/o/r/pull/3", "o/r", "their pr")},
	}

	reconcileFresh(t, r, store, snap)

	tasks, err := store.GetAllTasks()
	require.NoError(t, err)
	require.Len(t, tasks, 3)

	kinds := make(map[string]model.Kind)
	for _, task := range tasks {
		kinds[task.Title] = task.Kind
	}
	assert.Equal(t, model.KindGHIssue, kinds["an issue"])
	assert.Equal(t, model.KindGHPR, kinds["my pr"])
	assert.Equal(t, model.KindGHReview, kinds["their pr"])
}

func TestReconcile_OneProjectPerRepoPerBatch(t *testing.T) {
	store := setupStore(t)
	r := NewReconciler(store, zap.NewNop())

	snap := &github.Snapshot{
		AssignedIssues: []github.Issue{
			issue(1, "https://github.com/o/r/issues/1", "o/r", "first"),
			issue(2, "https://github.com/o/r/issues/2", "o/r", "second"),
		},
	}

	stats := reconcileFresh(t, r, store, snap)
	assert.Equal(t, 2, stats.TasksCreated)
	assert.Equal(t, 1, stats.ProjectsCreated)

	projects, err := store.GetAllProjects()
	require.NoError(t, err)
	require.Len(t, projects, 1)

	tasks, err := store.GetAllTasks()
	require.NoError(t, err)
	for _, task := range tasks {
		assert.Equal(t, projects[0].ID, task.ProjectID)
	}
}

func TestReconcile_ReusesExistingProjectByName(t *testing.T) {
	store := setupStore(t)
	r := NewReconciler(store, zap.NewNop())

	existing := model.NewProject("o/r")
	require.NoError(t, store.InsertProject(existing))

	snap := &github.Snapshot{
		AssignedIssues: []github.Issue{issue(1, "https://github.com/o/r/issues/1", "o/r", "x")},
	}

	stats := reconcileFresh(t, r, store, snap)
	assert.Zero(t, stats.ProjectsCreated)

	tasks, err := store.GetAllTasks()
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, existing.ID, tasks[0].ProjectID)
}

func TestReconcile_Idempotent(t *testing.T) {
	store := setupStore(t)
	r := NewReconciler(store, zap.NewNop())

	snap := &github.Snapshot{
		AssignedIssues: []github.Issue{issue(1, "https://github.com/o/r/issues/1", "o/r", "once")},
		MyPRs:          []github.Issue{issue(2, "https://github.com/o/q/pull/2", "o/q", "twice")},
	}

	first := reconcileFresh(t, r, store, snap)
	assert.False(t, first.IsNoop())

	tasksAfterFirst, err := store.GetAllTasks()
	require.NoError(t, err)

	second := reconcileFresh(t, r, store, snap)
	assert.True(t, second.IsNoop(), "second pass must write nothing, got %+v", second)

	tasksAfterSecond, err := store.GetAllTasks()
	require.NoError(t, err)
	require.Len(t, tasksAfterSecond, len(tasksAfterFirst))
	for i := range tasksAfterFirst {
		assert.Equal(t, tasksAfterFirst[i].UpdatedAt, tasksAfterSecond[i].UpdatedAt,
			"timestamps must not move on a no-op pass")
	}

	projects, err := store.GetAllProjects()
	require.NoError(t, err)
	assert.Len(t, projects, 2)
}

func TestReconcile_ClosesVanishedTasks(t *testing.T) {
	store := setupStore(t)
	r := NewReconciler(store, zap.NewNop())

	snap := &github.Snapshot{
		AssignedIssues: []github.Issue{issue(1, "https://github.com/o/r/issues/1", "o/r", "will close")},
	}
	reconcileFresh(t, r, store, snap)

	// Second snapshot omits the URL entirely: the item was closed remotely.
	stats := reconcileFresh(t, r, store, &github.Snapshot{})
	assert.Equal(t, 1, stats.TasksClosed)

	tasks, err := store.GetAllTasks()
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, model.StatusCompleted, tasks[0].Status)
	require.NotNil(t, tasks[0].CompletedAt)
}

func TestReconcile_ClosureIgnoresForeignURLs(t *testing.T) {
	store := setupStore(t)
	r := NewReconciler(store, zap.NewNop())

	local := model.NewTask("jira import")
	local.ContextURL = "https://jira.example.com/browse/X-1"
	require.NoError(t, store.InsertTask(local))

	stats := reconcileFresh(t, r, store, &github.Snapshot{})
	assert.True(t, stats.IsNoop())

	tasks, err := store.GetAllTasks()
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, model.StatusInbox, tasks[0].Status)
}

func TestReconcile_ClosedStateInSnapshotCompletesTask(t *testing.T) {
	store := setupStore(t)
	r := NewReconciler(store, zap.NewNop())

	open := issue(1, "https://github.com/o/r/issues/1", "o/r", "flips")
	reconcileFresh(t, r, store, &github.Snapshot{AssignedIssues: []github.Issue{open}})

	closed := open
	closed.State = "closed"
	stats := reconcileFresh(t, r, store, &github.Snapshot{AssignedIssues: []github.Issue{closed}})
	assert.Equal(t, 1, stats.TasksUpdated)

	tasks, err := store.GetAllTasks()
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, model.StatusCompleted, tasks[0].Status)
	require.NotNil(t, tasks[0].CompletedAt)

	// Running the closed snapshot again is a no-op: already completed.
	again := reconcileFresh(t, r, store, &github.Snapshot{AssignedIssues: []github.Issue{closed}})
	assert.True(t, again.IsNoop())
}

func TestReconcile_AttachesProjectToMatchedTask(t *testing.T) {
	store := setupStore(t)
	r := NewReconciler(store, zap.NewNop())

	local := model.NewTask("pre-existing")
	local.ContextURL = "https://github.com/o/r/issues/1"
	require.NoError(t, store.InsertTask(local))

	snap := &github.Snapshot{
		AssignedIssues: []github.Issue{issue(1, "https://github.com/o/r/issues/1", "o/r", "pre-existing")},
	}
	stats := reconcileFresh(t, r, store, snap)
	assert.Equal(t, 1, stats.TasksUpdated)
	assert.Equal(t, 1, stats.ProjectsCreated)
	assert.Zero(t, stats.TasksCreated)

	tasks, err := store.GetAllTasks()
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.NotEmpty(t, tasks[0].ProjectID)
}

func TestReconcile_PreservesLocalEdits(t *testing.T) {
	store := setupStore(t)
	r := NewReconciler(store, zap.NewNop())

	snap := &github.Snapshot{
		AssignedIssues: []github.Issue{issue(1, "https://github.com/o/r/issues/1", "o/r", "remote title")},
	}
	reconcileFresh(t, r, store, snap)

	// User edits the synced task locally.
	tasks, err := store.GetAllTasks()
	require.NoError(t, err)
	edited := tasks[0]
	edited.Title = "my better title"
	edited.Priority = model.PriorityHigh
	edited.UpdatedAt = time.Now().UTC()
	require.NoError(t, store.UpdateTask(&edited))

	// The same open item coming back must not clobber the edits.
	stats := reconcileFresh(t, r, store, snap)
	assert.True(t, stats.IsNoop())

	tasks, err = store.GetAllTasks()
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "my better title", tasks[0].Title)
	assert.Equal(t, model.PriorityHigh, tasks[0].Priority)
}

func TestReconcile_UnknownRepoSentinel(t *testing.T) {
	store := setupStore(t)
	r := NewReconciler(store, zap.NewNop())

	bare := github.Issue{ID: 5, Title: "orphan", HTMLURL: "https://example.com/x", State: "open"}
	stats := reconcileFresh(t, r, store, &github.Snapshot{AssignedIssues: []github.Issue{bare}})
	assert.Equal(t, 1, stats.TasksCreated)

	projects, err := store.GetAllProjects()
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, github.UnknownRepo, projects[0].Name)
}

// failingStore wraps a real store and fails inserts for a chosen title to
// prove one bad item does not abort the batch.
type failingStore struct {
	*db.DB
	failTitle string
}

func (f *failingStore) InsertTask(task *model.Task) error {
	if task.Title == f.failTitle {
		return fmt.Errorf("disk full")
	}
	return f.DB.InsertTask(task)
}

func TestReconcile_WriteFailureSkipsItemOnly(t *testing.T) {
	store := setupStore(t)
	r := NewReconciler(&failingStore{DB: store, failTitle: "bad"}, zap.NewNop())

	snap := &github.Snapshot{
		AssignedIssues: []github.Issue{
			issue(1, "https://github.com/o/r/issues/1", "o/r", "bad"),
			issue(2, "https://github.com/o/r/issues/2", "o/r", "good"),
		},
	}

	stats := reconcileFresh(t, r, store, snap)
	assert.Equal(t, 1, stats.TasksCreated)

	tasks, err := store.GetAllTasks()
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "good", tasks[0].Title)
}
