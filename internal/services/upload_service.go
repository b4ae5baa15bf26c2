package services

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"guest-snapper/internal/domain/upload"
	snapper_errors "guest-snapper/pkg/errors"

	"github.com/google/uuid"
	"github.com/jellydator/ttlcache/v3"
)

// ObjectStore is the storage side of the upload service; *storage.Client implements it.
type ObjectStore interface {
	PresignPut(ctx context.Context, key, contentType string, sizeBytes int64) (string, error)
	CreateMultipart(ctx context.Context, key, contentType string) (string, error)
	PresignPart(ctx context.Context, key, uploadID string, partNumber int) (string, error)
	CompleteMultipart(ctx context.Context, key, uploadID string, parts []upload.PartResult) error
	AbortMultipart(ctx context.Context, key, uploadID string) error
	FileURL(key string) string
	PartSizeFor(size int64) int64
	PresignTTL() time.Duration
}

// openSession is a multipart upload that has been initiated and not yet completed or aborted.
type openSession struct {
	StorageKey string
	PartCount  int
}

// UploadService issues presigned URLs and closes multipart sessions directly against storage.
type UploadService struct {
	store    ObjectStore
	sessions *ttlcache.Cache[string, openSession]
}

func NewUploadService(store ObjectStore) *UploadService {
	sessions := ttlcache.New[string, openSession](
		ttlcache.WithTTL[string, openSession](store.PresignTTL()),
		ttlcache.WithDisableTouchOnHit[string, openSession](),
	)
	return &UploadService{store: store, sessions: sessions}
}

// Run evicts expired sessions until ctx is done.
func (s *UploadService) Run(ctx context.Context) {
	go s.sessions.Start()
	<-ctx.Done()
	s.sessions.Stop()
}

// OpenSessions is the number of multipart sessions currently tracked.
func (s *UploadService) OpenSessions() int {
	return s.sessions.Len()
}

func (s *UploadService) IssueSingleURL(ctx context.Context, req upload.FileRequest) (upload.SingleURL, error) {
	if err := validateFileRequest(req); err != nil {
		return upload.SingleURL{}, err
	}

	key := buildObjectKey(req.Target.EventID, req.FileName)
	url, err := s.store.PresignPut(ctx, key, contentTypeOrDefault(req.ContentType), req.FileSize)
	if err != nil {
		return upload.SingleURL{}, err
	}

	return upload.SingleURL{
		URL:            url,
		StorageKey:     key,
		DestinationURL: s.store.FileURL(key),
	}, nil
}

func (s *UploadService) InitiateMultipart(ctx context.Context, req upload.FileRequest) (upload.MultipartInit, error) {
	if err := validateFileRequest(req); err != nil {
		return upload.MultipartInit{}, err
	}

	partSize := s.store.PartSizeFor(req.FileSize)
	parts, err := upload.PlanParts(req.FileSize, partSize)
	if err != nil {
		return upload.MultipartInit{}, err
	}

	key := buildObjectKey(req.Target.EventID, req.FileName)
	uploadID, err := s.store.CreateMultipart(ctx, key, contentTypeOrDefault(req.ContentType))
	if err != nil {
		return upload.MultipartInit{}, err
	}
	s.sessions.Set(uploadID, openSession{StorageKey: key, PartCount: len(parts)}, ttlcache.DefaultTTL)

	return upload.MultipartInit{
		SessionID:      uploadID,
		StorageKey:     key,
		DestinationURL: s.store.FileURL(key),
		PartSize:       partSize,
	}, nil
}

func (s *UploadService) IssuePartURLs(ctx context.Context, req upload.PartURLsRequest) ([]upload.PartURL, error) {
	session, err := s.lookup(req.SessionID, req.StorageKey)
	if err != nil {
		return nil, err
	}
	if len(req.PartNumbers) == 0 {
		return nil, fmt.Errorf("%w: no part numbers requested", snapper_errors.ErrInvalidInput)
	}

	urls := make([]upload.PartURL, 0, len(req.PartNumbers))
	for _, n := range req.PartNumbers {
		if n < 1 || n > session.PartCount {
			return nil, fmt.Errorf("%w: part %d outside 1..%d", snapper_errors.ErrInvalidInput, n, session.PartCount)
		}
		url, err := s.store.PresignPart(ctx, session.StorageKey, req.SessionID, n)
		if err != nil {
			return nil, err
		}
		urls = append(urls, upload.PartURL{PartNumber: n, URL: url})
	}
	return urls, nil
}

// CompleteMultipart requires exactly one ETag per planned part. A failed completion
// leaves the session open so it can still be aborted.
func (s *UploadService) CompleteMultipart(ctx context.Context, req upload.CompleteRequest) error {
	session, err := s.lookup(req.SessionID, req.StorageKey)
	if err != nil {
		return err
	}
	if err := validateCompletedParts(req.Parts, session.PartCount); err != nil {
		return err
	}

	if err := s.store.CompleteMultipart(ctx, session.StorageKey, req.SessionID, req.Parts); err != nil {
		return err
	}
	s.sessions.Delete(req.SessionID)
	return nil
}

func (s *UploadService) AbortMultipart(ctx context.Context, req upload.AbortRequest) error {
	session, err := s.lookup(req.SessionID, req.StorageKey)
	if err != nil {
		return err
	}
	if err := s.store.AbortMultipart(ctx, session.StorageKey, req.SessionID); err != nil {
		return err
	}
	s.sessions.Delete(req.SessionID)
	return nil
}

func (s *UploadService) lookup(sessionID, storageKey string) (openSession, error) {
	if sessionID == "" || storageKey == "" {
		return openSession{}, fmt.Errorf("%w: session_id and storage_key are required", snapper_errors.ErrInvalidInput)
	}
	item := s.sessions.Get(sessionID)
	if item == nil || item.Value().StorageKey != storageKey {
		return openSession{}, snapper_errors.ErrNotFound
	}
	return item.Value(), nil
}

func validateFileRequest(req upload.FileRequest) error {
	eventID := strings.TrimSpace(req.Target.EventID)
	if eventID == "" || strings.ContainsAny(eventID, `/\`) || eventID == "." || eventID == ".." {
		return fmt.Errorf("%w: invalid event id %q", snapper_errors.ErrInvalidInput, req.Target.EventID)
	}
	if strings.TrimSpace(req.FileName) == "" {
		return fmt.Errorf("%w: file name is required", snapper_errors.ErrInvalidInput)
	}
	if req.FileSize < 0 {
		return fmt.Errorf("%w: negative file size", snapper_errors.ErrInvalidInput)
	}
	return nil
}

func validateCompletedParts(parts []upload.PartResult, partCount int) error {
	if len(parts) != partCount {
		return fmt.Errorf("%w: got %d parts, expected %d", snapper_errors.ErrInvalidInput, len(parts), partCount)
	}
	seen := make(map[int]bool, len(parts))
	for _, p := range parts {
		if p.PartNumber < 1 || p.PartNumber > partCount || seen[p.PartNumber] {
			return fmt.Errorf("%w: bad or repeated part number %d", snapper_errors.ErrInvalidInput, p.PartNumber)
		}
		if p.ETag == "" {
			return fmt.Errorf("%w: part %d has no etag", snapper_errors.ErrInvalidInput, p.PartNumber)
		}
		seen[p.PartNumber] = true
	}
	return nil
}

// buildObjectKey names a new object: events/<event>/<uuid><ext>.
func buildObjectKey(eventID, fileName string) string {
	ext := strings.ToLower(path.Ext(fileName))
	return fmt.Sprintf("events/%s/%s%s", strings.TrimSpace(eventID), uuid.NewString(), ext)
}

func contentTypeOrDefault(contentType string) string {
	if contentType == "" {
		return "application/octet-stream"
	}
	return contentType
}
