package repository

import (
	"context"

	"guest-snapper/internal/domain/upload"
)

type MediaRepository interface {
	Create(ctx context.Context, r *upload.Record) error
	GetByStorageKey(ctx context.Context, storageKey string) (upload.Record, error)
	ListByEvent(ctx context.Context, eventID string, page, limit int) ([]upload.Record, int64, error)
}
