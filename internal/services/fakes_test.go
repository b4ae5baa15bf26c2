package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"guest-snapper/internal/domain/upload"
	snapper_errors "guest-snapper/pkg/errors"
)

type fakeStore struct {
	mu        sync.Mutex
	partSize  int64
	ttl       time.Duration
	created   []string
	completed map[string][]upload.PartResult
	aborted   []string

	completeErr error
	abortErr    error
}

func newFakeStore() *fakeStore {
	return &fakeStore{partSize: 5, ttl: time.Hour, completed: map[string][]upload.PartResult{}}
}

func (f *fakeStore) PresignPut(_ context.Context, key, contentType string, size int64) (string, error) {
	return fmt.Sprintf("https://s3.test/%s?ct=%s&size=%d", key, contentType, size), nil
}

func (f *fakeStore) CreateMultipart(_ context.Context, key, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, key)
	return fmt.Sprintf("upload-%d", len(f.created)), nil
}

func (f *fakeStore) PresignPart(_ context.Context, key, uploadID string, n int) (string, error) {
	return fmt.Sprintf("https://s3.test/%s?uploadId=%s&partNumber=%d", key, uploadID, n), nil
}

func (f *fakeStore) CompleteMultipart(_ context.Context, _, uploadID string, parts []upload.PartResult) error {
	if f.completeErr != nil {
		return f.completeErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completed[uploadID] = parts
	return nil
}

func (f *fakeStore) AbortMultipart(_ context.Context, _, uploadID string) error {
	if f.abortErr != nil {
		return f.abortErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.aborted = append(f.aborted, uploadID)
	return nil
}

func (f *fakeStore) FileURL(key string) string {
	return "https://cdn.test/" + key
}

func (f *fakeStore) PartSizeFor(int64) int64 {
	return f.partSize
}

func (f *fakeStore) PresignTTL() time.Duration {
	return f.ttl
}

type fakeMediaRepo struct {
	mu      sync.Mutex
	records map[string]upload.Record
}

func newFakeMediaRepo() *fakeMediaRepo {
	return &fakeMediaRepo{records: map[string]upload.Record{}}
}

func (r *fakeMediaRepo) Create(_ context.Context, rec *upload.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[rec.StorageKey]; ok {
		return snapper_errors.ErrAlreadyExists
	}
	r.records[rec.StorageKey] = *rec
	return nil
}

func (r *fakeMediaRepo) GetByStorageKey(_ context.Context, key string) (upload.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[key]
	if !ok {
		return upload.Record{}, snapper_errors.ErrNotFound
	}
	return rec, nil
}

func (r *fakeMediaRepo) ListByEvent(_ context.Context, eventID string, _, _ int) ([]upload.Record, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []upload.Record
	for _, rec := range r.records {
		if rec.EventID == eventID {
			out = append(out, rec)
		}
	}
	return out, int64(len(out)), nil
}

type fakePublisher struct {
	events []upload.ProgressEvent
	err    error
}

func (p *fakePublisher) PublishProgress(_ context.Context, ev upload.ProgressEvent) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, ev)
	return nil
}
