package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"guest-snapper/internal/domain/upload"
	snapper_errors "guest-snapper/pkg/errors"

	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"
)

type mediaRepository struct {
	db DBTX
}

func NewMediaRepository(db DBTX) MediaRepository {
	return &mediaRepository{db: db}
}

var mediaColumns = []string{
	"id",
	"event_id",
	"album_id",
	"uploader_name",
	"caption",
	"storage_key",
	"url",
	"file_name",
	"file_size",
	"file_type",
	"mime_type",
	"created_at",
}

func (r *mediaRepository) Create(ctx context.Context, rec *upload.Record) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	query, args := insertMediaQuery(rec)
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return snapper_errors.ErrAlreadyExists
		}
		return fmt.Errorf("inserting media: %w", err)
	}
	return nil
}

func (r *mediaRepository) GetByStorageKey(ctx context.Context, storageKey string) (upload.Record, error) {
	s := sqlbuilder.Select(mediaColumns...).From("media")
	s.Where(s.Equal("storage_key", storageKey))
	s.Limit(1)

	query, args := s.BuildWithFlavor(sqlbuilder.PostgreSQL)
	rec, err := scanRecord(r.db.QueryRowContext(ctx, query, args...))
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return upload.Record{}, snapper_errors.ErrNotFound
	case err != nil:
		return upload.Record{}, fmt.Errorf("scanning media: %w", err)
	}
	return rec, nil
}

func (r *mediaRepository) ListByEvent(ctx context.Context, eventID string, page, limit int) ([]upload.Record, int64, error) {
	query, args := listByEventQuery(eventID, page, limit)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("querying media: %w", err)
	}
	defer rows.Close()

	var (
		records []upload.Record
		total   int64
	)
	for rows.Next() {
		var rec upload.Record
		if err := rows.Scan(append(recordFields(&rec), &total)...); err != nil {
			return nil, 0, fmt.Errorf("scanning media: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

func insertMediaQuery(rec *upload.Record) (string, []interface{}) {
	s := sqlbuilder.InsertInto("media").
		Cols(mediaColumns...).
		Values(
			rec.ID,
			rec.EventID,
			rec.AlbumID,
			rec.UploaderName,
			rec.Caption,
			rec.StorageKey,
			rec.URL,
			rec.FileName,
			rec.FileSize,
			rec.FileType,
			rec.MimeType,
			rec.CreatedAt,
		)
	return s.BuildWithFlavor(sqlbuilder.PostgreSQL)
}

// listByEventQuery pages an event's media newest first; every row carries the total count.
func listByEventQuery(eventID string, page, limit int) (string, []interface{}) {
	limit, offset := PageOffset(page, limit)

	s := sqlbuilder.Select(mediaColumns...).From("media")
	s.SelectMore("count(*) over() as total_count")
	s.Where(s.Equal("event_id", eventID))
	s.OrderBy("created_at DESC", "id")
	s.Limit(limit).Offset(offset)
	return s.BuildWithFlavor(sqlbuilder.PostgreSQL)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func recordFields(rec *upload.Record) []interface{} {
	return []interface{}{
		&rec.ID,
		&rec.EventID,
		&rec.AlbumID,
		&rec.UploaderName,
		&rec.Caption,
		&rec.StorageKey,
		&rec.URL,
		&rec.FileName,
		&rec.FileSize,
		&rec.FileType,
		&rec.MimeType,
		&rec.CreatedAt,
	}
}

func scanRecord(row rowScanner) (upload.Record, error) {
	var rec upload.Record
	err := row.Scan(recordFields(&rec)...)
	return rec, err
}
