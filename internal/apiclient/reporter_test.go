package apiclient

import (
	"context"
	"errors"
	"sync"
	"testing"

	"guest-snapper/internal/domain/upload"
	"guest-snapper/internal/uploader"
	"guest-snapper/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []upload.ProgressEvent
	err    error
}

func (p *recordingPublisher) PublishProgress(_ context.Context, ev upload.ProgressEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) kinds() []upload.ProgressKind {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]upload.ProgressKind, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Kind)
	}
	return out
}

func TestProgressReporter_ThrottlesFileProgressOnly(t *testing.T) {
	pub := &recordingPublisher{}
	r := NewProgressReporter(context.Background(), pub, "wedding-42", 0, logger.Nop())

	for i := 0; i < 50; i++ {
		r.OnFileProgress("a", upload.NewProgress(int64(i), 100))
	}
	r.OnFileComplete(uploader.ItemResult{ID: "a", Status: upload.ItemFailed, Err: errors.New("transfer failed")})
	r.OnOverallProgress(1, 1)
	r.Close()

	assert.Equal(t, []upload.ProgressKind{upload.ProgressDone, upload.ProgressOverall}, pub.kinds())

	pub.mu.Lock()
	defer pub.mu.Unlock()
	done := pub.events[0]
	assert.Equal(t, "wedding-42", done.EventID)
	assert.Equal(t, r.BatchID(), done.BatchID)
	assert.Equal(t, upload.ItemFailed, done.Status)
	assert.Equal(t, "transfer failed", done.Error)
	assert.False(t, done.At.IsZero())
	assert.NoError(t, done.Validate())
}

func TestProgressReporter_BurstAllowsFileProgress(t *testing.T) {
	pub := &recordingPublisher{}
	r := NewProgressReporter(context.Background(), pub, "wedding-42", 3, logger.Nop())

	for i := 0; i < 20; i++ {
		r.OnFileProgress("a", upload.NewProgress(int64(i), 100))
	}
	r.Close()

	kinds := pub.kinds()
	require.NotEmpty(t, kinds)
	assert.LessOrEqual(t, len(kinds), 4)
	for _, k := range kinds {
		assert.Equal(t, upload.ProgressFile, k)
	}
}

func TestProgressReporter_CloseIsIdempotentAndDropsLateReports(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("api down")}
	ctx, cancel := context.WithCancel(context.Background())
	r := NewProgressReporter(ctx, pub, "wedding-42", 10, logger.Nop())

	cancel()
	r.OnOverallProgress(0, 2)
	r.Close()
	r.Close()
	r.OnOverallProgress(2, 2)

	assert.Equal(t, []upload.ProgressKind{upload.ProgressOverall}, pub.kinds(), "reports queued before Close survive a cancelled context")
}
