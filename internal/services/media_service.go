package services

import (
	"context"
	"fmt"
	"strings"

	"guest-snapper/internal/domain/upload"
	"guest-snapper/internal/repository"
	snapper_errors "guest-snapper/pkg/errors"
)

type MediaService struct {
	repo repository.MediaRepository
}

func NewMediaService(repo repository.MediaRepository) *MediaService {
	return &MediaService{repo: repo}
}

// RecordMetadata stores the media row for an object that is already in storage.
func (s *MediaService) RecordMetadata(ctx context.Context, req upload.MetadataRequest) (upload.Record, error) {
	if strings.TrimSpace(req.Target.EventID) == "" || req.StorageKey == "" || req.FileName == "" {
		return upload.Record{}, fmt.Errorf("%w: event id, storage key and file name are required", snapper_errors.ErrInvalidInput)
	}
	if req.FileSize < 0 {
		return upload.Record{}, fmt.Errorf("%w: negative file size", snapper_errors.ErrInvalidInput)
	}

	fileType := req.FileType
	if fileType == "" {
		fileType = upload.FileTypeOf(req.MimeType)
	}

	rec := upload.Record{
		EventID:      strings.TrimSpace(req.Target.EventID),
		AlbumID:      req.Target.AlbumID,
		UploaderName: req.Target.UploaderName,
		Caption:      req.Target.Caption,
		StorageKey:   req.StorageKey,
		URL:          req.DestinationURL,
		FileName:     req.FileName,
		FileSize:     req.FileSize,
		FileType:     fileType,
		MimeType:     req.MimeType,
	}
	if err := s.repo.Create(ctx, &rec); err != nil {
		return upload.Record{}, err
	}
	return rec, nil
}

func (s *MediaService) GetByStorageKey(ctx context.Context, storageKey string) (upload.Record, error) {
	if storageKey == "" {
		return upload.Record{}, snapper_errors.ErrInvalidInput
	}
	return s.repo.GetByStorageKey(ctx, storageKey)
}

func (s *MediaService) ListByEvent(ctx context.Context, eventID string, page, limit int) ([]upload.Record, int64, error) {
	if strings.TrimSpace(eventID) == "" {
		return nil, 0, snapper_errors.ErrInvalidInput
	}
	return s.repo.ListByEvent(ctx, eventID, page, limit)
}
