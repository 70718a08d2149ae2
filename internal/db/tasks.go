package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/baiirun/phi/internal/model"
)

const taskColumns = `id, title, notes, created_at, updated_at, due_date, start_date,
	completed_at, project_id, priority, status, order_index, deleted,
	kind, size, assignee, context_url, metadata`

// InsertTask inserts a new task and its tag references.
func (db *DB) InsertTask(task *model.Task) error {
	if !task.Status.IsValid() {
		return fmt.Errorf("invalid status: %s", task.Status)
	}
	if !task.Priority.IsValid() {
		return fmt.Errorf("invalid priority: %s", task.Priority)
	}

	_, err := db.Exec(`
		INSERT INTO tasks (`+taskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		task.ID, task.Title, nullStr(task.Notes),
		task.CreatedAt.UTC().Format(timeLayout), task.UpdatedAt.UTC().Format(timeLayout),
		nullDate(task.DueDate), nullDate(task.StartDate), nullTime(task.CompletedAt),
		nullStr(task.ProjectID), string(task.Priority), string(task.Status),
		task.OrderIndex, task.Deleted,
		nullStr(string(task.Kind)), nullStr(string(task.Size)),
		nullStr(task.Assignee), nullStr(task.ContextURL), marshalMetadata(task.Metadata),
	)
	if err != nil {
		return fmt.Errorf("failed to insert task: %w", err)
	}

	return db.replaceTaskTags(task.ID, task.Tags, false)
}

// UpdateTask rewrites all mutable columns of a task and replaces its tag set.
func (db *DB) UpdateTask(task *model.Task) error {
	if !task.Status.IsValid() {
		return fmt.Errorf("invalid status: %s", task.Status)
	}

	result, err := db.Exec(`
		UPDATE tasks SET title = ?, notes = ?, updated_at = ?, due_date = ?,
			start_date = ?, completed_at = ?, project_id = ?, priority = ?,
			status = ?, order_index = ?, deleted = ?, kind = ?, size = ?,
			assignee = ?, context_url = ?, metadata = ?
		WHERE id = ?`,
		task.Title, nullStr(task.Notes), task.UpdatedAt.UTC().Format(timeLayout),
		nullDate(task.DueDate), nullDate(task.StartDate), nullTime(task.CompletedAt),
		nullStr(task.ProjectID), string(task.Priority), string(task.Status),
		task.OrderIndex, task.Deleted,
		nullStr(string(task.Kind)), nullStr(string(task.Size)),
		nullStr(task.Assignee), nullStr(task.ContextURL), marshalMetadata(task.Metadata),
		task.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("task not found: %s", task.ID)
	}

	return db.replaceTaskTags(task.ID, task.Tags, true)
}

// DeleteTask soft-deletes a task. The row is retained.
func (db *DB) DeleteTask(id string) error {
	result, err := db.Exec(`
		UPDATE tasks SET deleted = 1, updated_at = ? WHERE id = ?`,
		time.Now().UTC().Format(timeLayout), id)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("task not found: %s", id)
	}
	return nil
}

// GetTask retrieves a non-deleted task by ID, or nil if absent.
func (db *DB) GetTask(id string) (*model.Task, error) {
	row := db.QueryRow(`SELECT `+taskColumns+` FROM tasks WHERE id = ? AND deleted = 0`, id)

	task, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	task.Tags, err = db.taskTags(task.ID)
	if err != nil {
		return nil, err
	}
	return task, nil
}

// GetAllTasks returns every non-deleted task ordered by manual order index.
func (db *DB) GetAllTasks() ([]model.Task, error) {
	rows, err := db.Query(`
		SELECT ` + taskColumns + ` FROM tasks
		WHERE deleted = 0 ORDER BY order_index ASC, created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		task.Tags, err = db.taskTags(task.ID)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	return tasks, rows.Err()
}

// replaceTaskTags rewrites the task_tags rows for a task. When clear is false
// the task is new and has no rows to remove.
func (db *DB) replaceTaskTags(taskID string, tags []string, clear bool) error {
	if clear {
		if _, err := db.Exec(`DELETE FROM task_tags WHERE task_id = ?`, taskID); err != nil {
			return fmt.Errorf("failed to clear task tags: %w", err)
		}
	}
	for _, tagID := range tags {
		_, err := db.Exec(`INSERT OR IGNORE INTO task_tags (task_id, tag_id) VALUES (?, ?)`, taskID, tagID)
		if err != nil {
			return fmt.Errorf("failed to insert task tag: %w", err)
		}
	}
	return nil
}

func (db *DB) taskTags(taskID string) ([]string, error) {
	rows, err := db.Query(`SELECT tag_id FROM task_tags WHERE task_id = ?`, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to query task tags: %w", err)
	}
	defer rows.Close()

	var tags []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan task tag: %w", err)
		}
		tags = append(tags, id)
	}
	return tags, rows.Err()
}

// scanner covers *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanTask(row scanner) (*model.Task, error) {
	var (
		task        model.Task
		notes       sql.NullString
		createdAt   string
		updatedAt   string
		dueDate     sql.NullString
		startDate   sql.NullString
		completedAt sql.NullString
		projectID   sql.NullString
		priority    string
		status      string
		kind        sql.NullString
		size        sql.NullString
		assignee    sql.NullString
		contextURL  sql.NullString
		metadata    sql.NullString
	)

	err := row.Scan(
		&task.ID, &task.Title, &notes, &createdAt, &updatedAt,
		&dueDate, &startDate, &completedAt, &projectID, &priority, &status,
		&task.OrderIndex, &task.Deleted, &kind, &size, &assignee, &contextURL, &metadata,
	)
	if err != nil {
		return nil, err
	}

	task.Notes = notes.String
	task.CreatedAt = parseTime(createdAt)
	task.UpdatedAt = parseTime(updatedAt)
	task.DueDate = parseDate(dueDate)
	task.StartDate = parseDate(startDate)
	if completedAt.Valid {
		at := parseTime(completedAt.String)
		task.CompletedAt = &at
	}
	task.ProjectID = projectID.String
	task.Priority = model.ParsePriority(priority)
	task.Status = model.ParseStatus(status)
	task.Kind = model.ParseKind(kind.String)
	task.Size = model.ParseSize(size.String)
	task.Assignee = assignee.String
	task.ContextURL = contextURL.String
	task.Metadata = unmarshalMetadata(metadata)

	return &task, nil
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(timeLayout)
}

func nullDate(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(dateLayout)
}

// parseTime tolerates a malformed timestamp by substituting now; a corrupted
// row should degrade, not break every load.
func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Now().UTC()
	}
	return t.UTC()
}

func parseDate(s sql.NullString) *time.Time {
	if !s.Valid {
		return nil
	}
	t, err := time.Parse(dateLayout, s.String)
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}

func marshalMetadata(m map[string]string) any {
	if len(m) == 0 {
		return nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil
	}
	return string(b)
}

func unmarshalMetadata(s sql.NullString) map[string]string {
	m := make(map[string]string)
	if !s.Valid {
		return m
	}
	_ = json.Unmarshal([]byte(s.String), &m)
	return m
}
