package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/baiirun/phi/internal/model"
)

// InsertTag inserts a new tag.
func (db *DB) InsertTag(tag *model.Tag) error {
	_, err := db.Exec(`
		INSERT INTO tags (id, name, color, created_at, updated_at, deleted)
		VALUES (?, ?, ?, ?, ?, ?)`,
		tag.ID, tag.Name, nullStr(tag.Color),
		tag.CreatedAt.UTC().Format(timeLayout), tag.UpdatedAt.UTC().Format(timeLayout),
		tag.Deleted,
	)
	if err != nil {
		return fmt.Errorf("failed to insert tag: %w", err)
	}
	return nil
}

// UpdateTag rewrites all mutable columns of a tag.
func (db *DB) UpdateTag(tag *model.Tag) error {
	result, err := db.Exec(`
		UPDATE tags SET name = ?, color = ?, updated_at = ?, deleted = ? WHERE id = ?`,
		tag.Name, nullStr(tag.Color), tag.UpdatedAt.UTC().Format(timeLayout),
		tag.Deleted, tag.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update tag: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("tag not found: %s", tag.ID)
	}
	return nil
}

// DeleteTag soft-deletes a tag. Tasks keep their tag id references.
func (db *DB) DeleteTag(id string) error {
	result, err := db.Exec(`
		UPDATE tags SET deleted = 1, updated_at = ? WHERE id = ?`,
		time.Now().UTC().Format(timeLayout), id)
	if err != nil {
		return fmt.Errorf("failed to delete tag: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("tag not found: %s", id)
	}
	return nil
}

// GetTag retrieves a non-deleted tag by ID, or nil if absent.
func (db *DB) GetTag(id string) (*model.Tag, error) {
	row := db.QueryRow(`
		SELECT id, name, color, created_at, updated_at, deleted
		FROM tags WHERE id = ? AND deleted = 0`, id)

	tag, err := scanTag(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tag: %w", err)
	}
	return tag, nil
}

// GetAllTags returns every non-deleted tag ordered by name.
func (db *DB) GetAllTags() ([]model.Tag, error) {
	rows, err := db.Query(`
		SELECT id, name, color, created_at, updated_at, deleted
		FROM tags WHERE deleted = 0 ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tags: %w", err)
	}
	defer rows.Close()

	var tags []model.Tag
	for rows.Next() {
		tag, err := scanTag(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		tags = append(tags, *tag)
	}
	return tags, rows.Err()
}

func scanTag(row scanner) (*model.Tag, error) {
	var (
		tag       model.Tag
		color     sql.NullString
		createdAt string
		updatedAt string
	)

	err := row.Scan(&tag.ID, &tag.Name, &color, &createdAt, &updatedAt, &tag.Deleted)
	if err != nil {
		return nil, err
	}

	tag.Color = color.String
	tag.CreatedAt = parseTime(createdAt)
	tag.UpdatedAt = parseTime(updatedAt)

	return &tag, nil
}
