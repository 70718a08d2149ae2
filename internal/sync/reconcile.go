// Package sync merges GitHub snapshots into the local task store.
//
// A reconciliation pass is a declarative idempotent merge: it is run once per
// successful fetch, matches remote items to local tasks by canonical URL, and
// interprets disappearance from the open-item snapshot as remote closure.
// It is never run on a failed fetch — a partial snapshot would read as a mass
// closure of everything missing from it.
package sync

import (
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/baiirun/phi/internal/github"
	"github.com/baiirun/phi/internal/model"
)

// Metadata keys stashed on tasks created from GitHub items.
const (
	MetaGitHubID   = "github_id"
	MetaGitHubType = "github_type"
	MetaGitHubRepo = "github_repo"
)

// githubProjectIcon marks projects auto-created from repositories.
const githubProjectIcon = ""

// Store is the slice of the repository the reconciler writes through.
type Store interface {
	InsertTask(*model.Task) error
	UpdateTask(*model.Task) error
	InsertProject(*model.Project) error
	NextOrderIndex(table string) (int64, error)
}

// Stats counts the mutations one pass performed. A second pass over the same
// snapshot must report all zeros.
type Stats struct {
	TasksCreated    int
	TasksUpdated    int
	TasksClosed     int
	ProjectsCreated int
}

// IsNoop reports whether the pass wrote nothing.
func (s Stats) IsNoop() bool {
	return s == Stats{}
}

// Reconciler merges remote snapshots into local state.
type Reconciler struct {
	store  Store
	logger *zap.Logger
	now    func() time.Time
}

// NewReconciler builds a reconciler writing through store. logger may be nil.
func NewReconciler(store Store, logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{store: store, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// remoteItem is one snapshot entry tagged with its origin stream.
type remoteItem struct {
	issue  *github.Issue
	origin string
}

// kindFor maps an origin stream to the task kind it produces.
func kindFor(origin string) model.Kind {
	switch origin {
	case "issue":
		return model.KindGHIssue
	case "my_pr":
		return model.KindGHPR
	case "review":
		return model.KindGHReview
	}
	return ""
}

// Reconcile merges snap into the given local state, writing every required
// mutation through the store. tasks and projects must be a fresh read of the
// store; the caller reloads after the pass so downstream views observe the
// merged result.
//
// Individual write failures are logged and skipped — partial progress is
// fine, duplicates are not — so Reconcile itself never fails.
func (r *Reconciler) Reconcile(tasks []model.Task, projects []model.Project, snap *github.Snapshot) Stats {
	var stats Stats

	// Flatten the three streams, tagging each item with its origin. The set
	// of URLs seen here is the authority for "still open remotely".
	items := make([]remoteItem, 0, len(snap.AssignedIssues)+len(snap.MyPRs)+len(snap.ReviewPRs))
	for i := range snap.AssignedIssues {
		items = append(items, remoteItem{&snap.AssignedIssues[i], "issue"})
	}
	for i := range snap.MyPRs {
		items = append(items, remoteItem{&snap.MyPRs[i], "my_pr"})
	}
	for i := range snap.ReviewPRs {
		items = append(items, remoteItem{&snap.ReviewPRs[i], "review"})
	}

	seen := make(map[string]bool, len(items))

	// Repo names match projects by display name. This silently diverges for
	// renamed projects; a dedicated external-key column would be the fix.
	repoToProject := make(map[string]string, len(projects))
	for i := range projects {
		repoToProject[projects[i].Name] = projects[i].ID
	}

	tasksByURL := make(map[string]*model.Task, len(tasks))
	for i := range tasks {
		if tasks[i].ContextURL != "" {
			tasksByURL[tasks[i].ContextURL] = &tasks[i]
		}
	}

	for _, item := range items {
		seen[item.issue.HTMLURL] = true
		repoName := item.issue.RepoName()

		projectID := repoToProject[repoName]
		if projectID == "" {
			projectID = r.createProject(repoName, &stats)
			if projectID != "" {
				// Register so later items in this batch reuse it.
				repoToProject[repoName] = projectID
			}
		}

		if existing := tasksByURL[item.issue.HTMLURL]; existing != nil {
			r.updateMatched(existing, item.issue, projectID, &stats)
		} else {
			r.createTask(item, projectID, repoName, &stats)
		}
	}

	// Any GitHub-sourced task missing from the snapshot is closed remotely:
	// the API only ever returns open items.
	for i := range tasks {
		t := &tasks[i]
		if t.ContextURL == "" || !strings.Contains(t.ContextURL, "github.com") {
			continue
		}
		if seen[t.ContextURL] || t.IsCompleted() {
			continue
		}
		updated := *t
		updated.SetStatus(model.StatusCompleted, r.now())
		if err := r.store.UpdateTask(&updated); err != nil {
			r.logger.Warn("failed to close task for vanished remote item",
				zap.String("task_id", t.ID), zap.String("url", t.ContextURL), zap.Error(err))
			continue
		}
		stats.TasksClosed++
	}

	return stats
}

// createProject provisions a project for a repo, returning its id or "" when
// the insert failed.
func (r *Reconciler) createProject(repoName string, stats *Stats) string {
	project := model.NewProject(repoName)
	project.Icon = githubProjectIcon
	if idx, err := r.store.NextOrderIndex("projects"); err == nil {
		project.OrderIndex = idx
	} else {
		r.logger.Warn("failed to allocate project order index", zap.Error(err))
	}

	if err := r.store.InsertProject(project); err != nil {
		r.logger.Warn("failed to create project for repo",
			zap.String("repo", repoName), zap.Error(err))
		return ""
	}
	stats.ProjectsCreated++
	return project.ID
}

// updateMatched writes a matched task back only when something changed:
// the remote item flipped to closed, or a project was just resolved for a
// task that had none. No-op matches are not written.
func (r *Reconciler) updateMatched(task *model.Task, issue *github.Issue, projectID string, stats *Stats) {
	updated := *task
	changed := false

	if issue.State == "closed" && !task.IsCompleted() {
		updated.SetStatus(model.StatusCompleted, r.now())
		changed = true
	}
	if task.ProjectID == "" && projectID != "" {
		updated.ProjectID = projectID
		changed = true
	}

	if !changed {
		return
	}
	updated.UpdatedAt = r.now()
	if err := r.store.UpdateTask(&updated); err != nil {
		r.logger.Warn("failed to update task from remote item",
			zap.String("task_id", task.ID), zap.String("url", issue.HTMLURL), zap.Error(err))
		return
	}
	stats.TasksUpdated++
}

// createTask seeds a new inbox task from a remote item.
func (r *Reconciler) createTask(item remoteItem, projectID, repoName string, stats *Stats) {
	issue := item.issue

	task := model.NewTask(issue.Title)
	task.Notes = issue.Body
	task.ContextURL = issue.HTMLURL
	task.Status = model.StatusInbox
	task.ProjectID = projectID
	task.Kind = kindFor(item.origin)
	task.Metadata[MetaGitHubID] = formatID(issue.ID)
	task.Metadata[MetaGitHubType] = item.origin
	task.Metadata[MetaGitHubRepo] = repoName

	if idx, err := r.store.NextOrderIndex("tasks"); err == nil {
		task.OrderIndex = idx
	} else {
		r.logger.Warn("failed to allocate task order index", zap.Error(err))
	}

	if err := r.store.InsertTask(task); err != nil {
		r.logger.Warn("failed to create task from remote item",
			zap.String("url", issue.HTMLURL), zap.Error(err))
		return
	}
	stats.TasksCreated++
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
