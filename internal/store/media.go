package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"streamify/internal/models"
)

const mediaColumns = "id, owner_id, title, description, filename, storage_key, content_type, content_type_source, size_bytes, views, created_at, updated_at"

const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

// MediaFilter narrows ListMedia results.
type MediaFilter struct {
	OwnerID string
	Search  string
	Limit   int
	Offset  int
}

// MediaUpdate carries optional field changes.
type MediaUpdate struct {
	Title       *string
	Description *string
}

// MediaExists checks whether a media record exists by id.
func (s *Store) MediaExists(id string) (bool, error) {
	var exists int
	err := s.db.QueryRow("SELECT 1 FROM media WHERE id = ? LIMIT 1", id).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// CreateMedia inserts one media record.
func (s *Store) CreateMedia(ctx context.Context, media *models.Media) error {
	if media == nil {
		return fmt.Errorf("media is required")
	}

	now := time.Now().UTC()
	if media.CreatedAt.IsZero() {
		media.CreatedAt = now
	}
	if media.UpdatedAt.IsZero() {
		media.UpdatedAt = media.CreatedAt
	}
	if strings.TrimSpace(media.ContentTypeSource) == "" {
		media.ContentTypeSource = string(models.ContentTypeSourceDefault)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO media (`+mediaColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		media.ID,
		media.OwnerID,
		media.Title,
		media.Description,
		media.Filename,
		media.StorageKey,
		media.ContentType,
		media.ContentTypeSource,
		media.SizeBytes,
		media.Views,
		dbFormatTime(media.CreatedAt),
		dbFormatTime(media.UpdatedAt),
	)
	return err
}

// GetMedia returns one media record, or nil when absent.
func (s *Store) GetMedia(ctx context.Context, id string) (*models.Media, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+mediaColumns+` FROM media WHERE id = ?`, id)
	return scanMedia(row)
}

// ListMedia lists media newest first.
func (s *Store) ListMedia(ctx context.Context, filter MediaFilter) ([]models.Media, error) {
	var conditions []string
	var args []any

	if owner := strings.TrimSpace(filter.OwnerID); owner != "" {
		conditions = append(conditions, "owner_id = ?")
		args = append(args, owner)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		conditions = append(conditions, "title LIKE ? ESCAPE '\\'")
		args = append(args, "%"+escapeLike(search)+"%")
	}

	query := `SELECT ` + mediaColumns + ` FROM media`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC, id ASC LIMIT ? OFFSET ?"
	args = append(args, normalizeLimit(filter.Limit), max(filter.Offset, 0))

	return s.queryMedia(ctx, query, args...)
}

// ListRelated returns the most viewed media other than id.
func (s *Store) ListRelated(ctx context.Context, id string, limit int) ([]models.Media, error) {
	return s.queryMedia(ctx,
		`SELECT `+mediaColumns+` FROM media WHERE id != ? ORDER BY views DESC, created_at DESC LIMIT ?`,
		id, normalizeLimit(limit),
	)
}

// UpdateMedia applies update and returns the stored record.
func (s *Store) UpdateMedia(ctx context.Context, id string, update MediaUpdate) (*models.Media, error) {
	var sets []string
	var args []any
	if update.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *update.Title)
	}
	if update.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *update.Description)
	}
	if len(sets) > 0 {
		sets = append(sets, "updated_at = ?")
		args = append(args, dbFormatTime(time.Now()), id)

		result, err := s.db.ExecContext(ctx, "UPDATE media SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
		if err != nil {
			return nil, err
		}
		if err := requireAffected(result, id); err != nil {
			return nil, err
		}
	}

	media, err := s.GetMedia(ctx, id)
	if err != nil {
		return nil, err
	}
	if media == nil {
		return nil, fmt.Errorf("%w: media %s", ErrNotFound, id)
	}
	return media, nil
}

// DeleteMedia removes one media record.
func (s *Store) DeleteMedia(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM media WHERE id = ?", id)
	if err != nil {
		return err
	}
	return requireAffected(result, id)
}

// IncrementViews adds one view in a single atomic statement.
func (s *Store) IncrementViews(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "UPDATE media SET views = views + 1 WHERE id = ?", id)
	if err != nil {
		return err
	}
	return requireAffected(result, id)
}

// StorageKeys returns the storage key of every media record.
func (s *Store) StorageKeys(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT storage_key FROM media")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	keys := map[string]struct{}{}
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys[key] = struct{}{}
	}
	return keys, rows.Err()
}

// MigrationStatus reports applied and pending schema versions.
func (s *Store) MigrationStatus() (*MigrationStatus, error) {
	return MigrationPlan(s.db)
}

func (s *Store) queryMedia(ctx context.Context, query string, args ...any) ([]models.Media, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Media{}
	for rows.Next() {
		media, err := scanMedia(rows)
		if err != nil {
			return nil, err
		}
		if media == nil {
			continue
		}
		out = append(out, *media)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func scanMedia(scanner interface {
	Scan(dest ...any) error
}) (*models.Media, error) {
	media := models.Media{}
	var createdAt, updatedAt string

	err := scanner.Scan(
		&media.ID,
		&media.OwnerID,
		&media.Title,
		&media.Description,
		&media.Filename,
		&media.StorageKey,
		&media.ContentType,
		&media.ContentTypeSource,
		&media.SizeBytes,
		&media.Views,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	if media.CreatedAt, err = dbParseTime(createdAt); err != nil {
		return nil, err
	}
	if media.UpdatedAt, err = dbParseTime(updatedAt); err != nil {
		return nil, err
	}
	return &media, nil
}

func requireAffected(result sql.Result, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: media %s", ErrNotFound, id)
	}
	return nil
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}

func escapeLike(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(value)
}
