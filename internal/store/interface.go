package store

import (
	"context"

	"streamify/internal/models"
)

// MediaStore abstracts media record storage backends.
type MediaStore interface {
	MediaExists(id string) (bool, error)
	CreateMedia(ctx context.Context, media *models.Media) error
	GetMedia(ctx context.Context, id string) (*models.Media, error)
	ListMedia(ctx context.Context, filter MediaFilter) ([]models.Media, error)
	ListRelated(ctx context.Context, id string, limit int) ([]models.Media, error)
	UpdateMedia(ctx context.Context, id string, update MediaUpdate) (*models.Media, error)
	DeleteMedia(ctx context.Context, id string) error
	IncrementViews(ctx context.Context, id string) error
	StorageKeys(ctx context.Context) (map[string]struct{}, error)
}

var _ MediaStore = (*Store)(nil)
