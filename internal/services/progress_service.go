package services

import (
	"context"
	"time"

	"guest-snapper/internal/domain/upload"
)

type ProgressPublisher interface {
	PublishProgress(ctx context.Context, ev upload.ProgressEvent) error
}

// ProgressService relays upload progress reported by clients to event viewers.
type ProgressService struct {
	publisher ProgressPublisher
	now       func() time.Time
}

func NewProgressService(publisher ProgressPublisher) *ProgressService {
	return &ProgressService{publisher: publisher, now: time.Now}
}

func (s *ProgressService) Publish(ctx context.Context, ev upload.ProgressEvent) error {
	if err := ev.Validate(); err != nil {
		return err
	}
	if ev.At.IsZero() {
		ev.At = s.now().UTC()
	}
	return s.publisher.PublishProgress(ctx, ev)
}
