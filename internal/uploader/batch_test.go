package uploader

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"guest-snapper/internal/domain/upload"
	"guest-snapper/internal/transfer"
	snapper_errors "guest-snapper/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type batchLog struct {
	mu        sync.Mutex
	completed []ItemResult
	overall   [][2]int
	progress  map[string][]upload.Progress
}

func newBatchLog() *batchLog {
	return &batchLog{progress: map[string][]upload.Progress{}}
}

func (b *batchLog) hooks() Hooks {
	return Hooks{
		FileProgress: func(id string, p upload.Progress) {
			b.mu.Lock()
			b.progress[id] = append(b.progress[id], p)
			b.mu.Unlock()
		},
		FileComplete: func(r ItemResult) {
			b.mu.Lock()
			b.completed = append(b.completed, r)
			b.mu.Unlock()
		},
		OverallProgress: func(completed, total int) {
			b.mu.Lock()
			b.overall = append(b.overall, [2]int{completed, total})
			b.mu.Unlock()
		},
	}
}

func batchItems(names ...string) []upload.BatchItem {
	items := make([]upload.BatchItem, 0, len(names))
	for _, name := range names {
		items = append(items, upload.BatchItem{
			ID:     "item-" + name,
			File:   testFile(name, 2048, "image/jpeg"),
			Target: testTarget,
		})
	}
	return items
}

func TestUploadBatch_IsolatesFailures(t *testing.T) {
	svc := &fakeServices{IssueSingleURLFn: func(_ context.Context, req upload.FileRequest) (upload.SingleURL, error) {
		if req.FileName == "two.jpg" {
			return upload.SingleURL{}, errors.New("quota exceeded")
		}
		key := "events/evt-1/" + req.FileName
		return upload.SingleURL{URL: "https://storage.test/single/" + req.FileName, StorageKey: key, DestinationURL: "https://cdn.test/" + key}, nil
	}}
	engine := newTestEngine(svc, &fakeTransfer{}, Options{})
	events := newBatchLog()

	result := engine.UploadBatch(context.Background(), batchItems("one.jpg", "two.jpg", "three.jpg"), BatchOptions{}, events.hooks())

	assert.Equal(t, 3, result.TotalCount)
	assert.Equal(t, 2, result.SuccessfulCount)
	require.Len(t, result.Results, 3)

	assert.Equal(t, "item-one.jpg", result.Results[0].ID)
	assert.True(t, result.Results[0].Success())
	assert.Equal(t, upload.ItemSucceeded, result.Results[0].Status)
	assert.Equal(t, "events/evt-1/one.jpg", result.Results[0].Record.StorageKey)

	assert.Equal(t, "item-two.jpg", result.Results[1].ID)
	assert.False(t, result.Results[1].Success())
	assert.Equal(t, upload.ItemFailed, result.Results[1].Status)
	assert.ErrorIs(t, result.Results[1].Err, snapper_errors.ErrURLIssuance)

	assert.Equal(t, "item-three.jpg", result.Results[2].ID)
	assert.True(t, result.Results[2].Success())

	assert.Len(t, events.completed, 3)
	assert.Equal(t, [][2]int{{1, 3}, {2, 3}, {3, 3}}, events.overall)
	for _, id := range []string{"item-one.jpg", "item-three.jpg"} {
		p := events.progress[id]
		require.NotEmpty(t, p, id)
		assert.Equal(t, 100, p[len(p)-1].Percent)
	}
}

func TestUploadBatch_RoutesByStrategy(t *testing.T) {
	svc := &fakeServices{}
	engine := newTestEngine(svc, &fakeTransfer{}, Options{Selector: Selector{Threshold: 4096}})

	items := []upload.BatchItem{
		{ID: "photo", File: testFile("photo.jpg", 4096, "image/jpeg"), Target: testTarget},
		{ID: "video", File: testFile("video.mp4", 3*testPartSize*2, "video/mp4"), Target: testTarget},
	}
	result := engine.UploadBatch(context.Background(), items, BatchOptions{}, nil)
	require.Equal(t, 2, result.SuccessfulCount)

	assert.Equal(t, StrategySingle, result.Results[0].Strategy)
	assert.Equal(t, StrategyMultipart, result.Results[1].Strategy)

	singles, initiates, completes, _, records := svc.counts()
	assert.Equal(t, 1, singles)
	assert.Equal(t, 1, initiates)
	assert.Equal(t, 1, completes)
	assert.Equal(t, 2, records)
}

func TestUploadBatch_RejectsBadIDs(t *testing.T) {
	svc := &fakeServices{}
	engine := newTestEngine(svc, &fakeTransfer{}, Options{})

	items := batchItems("a.jpg", "b.jpg", "c.jpg", "d.jpg")
	items[1].ID = items[0].ID
	items[3].ID = ""

	result := engine.UploadBatch(context.Background(), items, BatchOptions{}, nil)
	assert.Equal(t, 4, result.TotalCount)
	assert.Equal(t, 1, result.SuccessfulCount)
	assert.ErrorIs(t, result.Results[0].Err, snapper_errors.ErrInvalidInput)
	assert.ErrorIs(t, result.Results[1].Err, snapper_errors.ErrInvalidInput)
	assert.True(t, result.Results[2].Success())
	assert.ErrorIs(t, result.Results[3].Err, snapper_errors.ErrInvalidInput)

	singles, _, _, _, _ := svc.counts()
	assert.Equal(t, 1, singles)
}

func TestUploadBatch_FileConcurrency(t *testing.T) {
	put := &fakeTransfer{PutFn: func(ctx context.Context, req transfer.PutRequest) (string, error) {
		time.Sleep(20 * time.Millisecond)
		return succeedPut(req)
	}}
	engine := newTestEngine(&fakeServices{}, put, Options{})

	result := engine.UploadBatch(context.Background(), batchItems("1.jpg", "2.jpg", "3.jpg", "4.jpg", "5.jpg"), BatchOptions{FileConcurrency: 2}, nil)
	assert.Equal(t, 5, result.SuccessfulCount)
	assert.LessOrEqual(t, put.maxSeen, int32(2))
}

func TestUploadBatch_CancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	svc := &fakeServices{}
	engine := newTestEngine(svc, &fakeTransfer{}, Options{})
	events := newBatchLog()

	result := engine.UploadBatch(ctx, batchItems("a.jpg", "b.jpg"), BatchOptions{}, events.hooks())
	assert.Equal(t, 0, result.SuccessfulCount)
	for _, r := range result.Results {
		assert.ErrorIs(t, r.Err, snapper_errors.ErrCancelled)
		assert.Equal(t, upload.ItemFailed, r.Status)
	}
	assert.Len(t, events.completed, 2)

	singles, _, _, _, _ := svc.counts()
	assert.Zero(t, singles)
}
