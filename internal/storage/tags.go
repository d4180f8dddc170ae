package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tallyhq/tally/internal/model"
)

// CreateTag inserts a new tag and assigns its ID.
func (s *SQLiteStorage) CreateTag(ctx context.Context, tag *model.Tag) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if tag == nil {
		return fmt.Errorf("%w: tag", ErrNilParameter)
	}
	if err := validateString(tag.Name, "name"); err != nil {
		return err
	}
	return s.createTagTx(ctx, s.db, tag)
}

func (s *SQLiteStorage) createTagTx(ctx context.Context, q queryable, tag *model.Tag) error {
	result, err := q.ExecContext(ctx,
		`INSERT INTO tags (user_id, name, color) VALUES (?, ?, ?)`,
		tag.UserID, tag.Name, tag.Color)
	if err != nil {
		return fmt.Errorf("failed to insert tag: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get tag id: %w", err)
	}
	tag.ID = id
	return nil
}

// GetTag returns a tag by ID, or nil if it does not exist.
func (s *SQLiteStorage) GetTag(ctx context.Context, id int64) (*model.Tag, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.getTagTx(ctx, s.db, id)
}

func (s *SQLiteStorage) getTagTx(ctx context.Context, q queryable, id int64) (*model.Tag, error) {
	var tag model.Tag
	err := q.QueryRowContext(ctx,
		`SELECT id, user_id, name, color, created_at FROM tags WHERE id = ?`, id).Scan(
		&tag.ID, &tag.UserID, &tag.Name, &tag.Color, &tag.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query tag: %w", err)
	}
	return &tag, nil
}

// ListTags returns all tags ordered by name.
func (s *SQLiteStorage) ListTags(ctx context.Context) ([]model.Tag, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.listTagsTx(ctx, s.db)
}

func (s *SQLiteStorage) listTagsTx(ctx context.Context, q queryable) ([]model.Tag, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, user_id, name, color, created_at FROM tags ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tags: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tags []model.Tag
	for rows.Next() {
		var tag model.Tag
		if err := rows.Scan(&tag.ID, &tag.UserID, &tag.Name, &tag.Color, &tag.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		tags = append(tags, tag)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tags: %w", err)
	}
	return tags, nil
}

// DeleteTag removes a tag and its transaction associations.
func (s *SQLiteStorage) DeleteTag(ctx context.Context, id int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateID(id, "id"); err != nil {
		return err
	}
	return s.deleteTagTx(ctx, s.db, id)
}

func (s *SQLiteStorage) deleteTagTx(ctx context.Context, q queryable, id int64) error {
	result, err := q.ExecContext(ctx, `DELETE FROM tags WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete tag: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("tag %d: %w", id, sql.ErrNoRows)
	}
	return nil
}
