package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/baiirun/phi/internal/model"
)

const projectColumns = `id, name, description, color, icon, order_index, is_inbox,
	created_at, updated_at, deleted`

// InsertProject inserts a new project.
func (db *DB) InsertProject(project *model.Project) error {
	_, err := db.Exec(`
		INSERT INTO projects (`+projectColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		project.ID, project.Name, nullStr(project.Description),
		nullStr(project.Color), nullStr(project.Icon),
		project.OrderIndex, project.IsInbox,
		project.CreatedAt.UTC().Format(timeLayout), project.UpdatedAt.UTC().Format(timeLayout),
		project.Deleted,
	)
	if err != nil {
		return fmt.Errorf("failed to insert project: %w", err)
	}
	return nil
}

// UpdateProject rewrites all mutable columns of a project.
func (db *DB) UpdateProject(project *model.Project) error {
	result, err := db.Exec(`
		UPDATE projects SET name = ?, description = ?, color = ?, icon = ?,
			order_index = ?, is_inbox = ?, updated_at = ?, deleted = ?
		WHERE id = ?`,
		project.Name, nullStr(project.Description), nullStr(project.Color),
		nullStr(project.Icon), project.OrderIndex, project.IsInbox,
		project.UpdatedAt.UTC().Format(timeLayout), project.Deleted,
		project.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("project not found: %s", project.ID)
	}
	return nil
}

// DeleteProject soft-deletes a project. Tasks keep their weak reference.
func (db *DB) DeleteProject(id string) error {
	result, err := db.Exec(`
		UPDATE projects SET deleted = 1, updated_at = ? WHERE id = ?`,
		time.Now().UTC().Format(timeLayout), id)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("project not found: %s", id)
	}
	return nil
}

// GetProject retrieves a non-deleted project by ID, or nil if absent.
func (db *DB) GetProject(id string) (*model.Project, error) {
	row := db.QueryRow(`SELECT `+projectColumns+` FROM projects WHERE id = ? AND deleted = 0`, id)

	project, err := scanProject(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return project, nil
}

// GetAllProjects returns every non-deleted project ordered by manual order index.
func (db *DB) GetAllProjects() ([]model.Project, error) {
	rows, err := db.Query(`
		SELECT ` + projectColumns + ` FROM projects
		WHERE deleted = 0 ORDER BY order_index ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query projects: %w", err)
	}
	defer rows.Close()

	var projects []model.Project
	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, *project)
	}
	return projects, rows.Err()
}

func scanProject(row scanner) (*model.Project, error) {
	var (
		project     model.Project
		description sql.NullString
		color       sql.NullString
		icon        sql.NullString
		createdAt   string
		updatedAt   string
	)

	err := row.Scan(
		&project.ID, &project.Name, &description, &color, &icon,
		&project.OrderIndex, &project.IsInbox, &createdAt, &updatedAt, &project.Deleted,
	)
	if err != nil {
		return nil, err
	}

	project.Description = description.String
	project.Color = color.String
	project.Icon = icon.String
	project.CreatedAt = parseTime(createdAt)
	project.UpdatedAt = parseTime(updatedAt)

	return &project, nil
}
