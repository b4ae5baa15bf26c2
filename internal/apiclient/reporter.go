package apiclient

import (
	"context"
	"sync"
	"time"

	"guest-snapper/internal/domain/upload"
	"guest-snapper/internal/uploader"
	"guest-snapper/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	reportQueueSize = 256
	reportTimeout   = 5 * time.Second
)

type ProgressPublisher interface {
	PublishProgress(ctx context.Context, ev upload.ProgressEvent) error
}

// ProgressReporter is an uploader.BatchObserver that relays batch progress to the API.
// File progress is throttled and dropped when the queue is full; completions and
// overall progress are always delivered, in order.
type ProgressReporter struct {
	publisher ProgressPublisher
	eventID   string
	batchID   string
	limiter   *rate.Limiter
	log       *logger.Logger
	now       func() time.Time

	ctx   context.Context
	queue chan upload.ProgressEvent
	done  chan struct{}

	mu     sync.RWMutex
	closed bool
}

var _ uploader.BatchObserver = (*ProgressReporter)(nil)

// NewProgressReporter starts the sender. perSecond <= 0 disables file progress reports.
// Reports keep being delivered after ctx is cancelled until Close returns.
func NewProgressReporter(ctx context.Context, publisher ProgressPublisher, eventID string, perSecond float64, l *logger.Logger) *ProgressReporter {
	limiter := rate.NewLimiter(0, 0)
	if perSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(perSecond), max(1, int(perSecond)))
	}
	r := &ProgressReporter{
		publisher: publisher,
		eventID:   eventID,
		batchID:   uuid.NewString(),
		limiter:   limiter,
		log:       logger.OrGlobal(l),
		now:       time.Now,
		ctx:       context.WithoutCancel(ctx),
		queue:     make(chan upload.ProgressEvent, reportQueueSize),
		done:      make(chan struct{}),
	}
	go r.run()
	return r
}

func (r *ProgressReporter) BatchID() string {
	return r.batchID
}

func (r *ProgressReporter) OnFileProgress(itemID string, p upload.Progress) {
	if !r.limiter.Allow() {
		return
	}
	r.enqueue(upload.ProgressEvent{Kind: upload.ProgressFile, ItemID: itemID, Progress: &p}, false)
}

func (r *ProgressReporter) OnFileComplete(result uploader.ItemResult) {
	ev := upload.ProgressEvent{Kind: upload.ProgressDone, ItemID: result.ID, Status: result.Status}
	if result.Err != nil {
		ev.Error = result.Err.Error()
	}
	r.enqueue(ev, true)
}

func (r *ProgressReporter) OnOverallProgress(completed, total int) {
	r.enqueue(upload.ProgressEvent{Kind: upload.ProgressOverall, Completed: completed, Total: total}, true)
}

// Close stops accepting reports and waits until the queued ones have been sent.
func (r *ProgressReporter) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		<-r.done
		return
	}
	r.closed = true
	close(r.queue)
	r.mu.Unlock()
	<-r.done
}

func (r *ProgressReporter) enqueue(ev upload.ProgressEvent, mustDeliver bool) {
	ev.EventID = r.eventID
	ev.BatchID = r.batchID
	ev.At = r.now().UTC()

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return
	}
	if mustDeliver {
		r.queue <- ev
		return
	}
	select {
	case r.queue <- ev:
	default:
	}
}

func (r *ProgressReporter) run() {
	defer close(r.done)
	for ev := range r.queue {
		ctx, cancel := context.WithTimeout(r.ctx, reportTimeout)
		if err := r.publisher.PublishProgress(ctx, ev); err != nil {
			r.log.Logger.Debug("progress report failed",
				zap.String("kind", string(ev.Kind)),
				zap.String("item_id", ev.ItemID),
				zap.Error(err),
			)
		}
		cancel()
	}
}
