package uploader

import (
	"context"
	"sync"

	"guest-snapper/internal/domain/upload"
	"guest-snapper/internal/limiter"
	snapper_errors "guest-snapper/pkg/errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BatchOptions tune one batch. Zero values fall back to the engine defaults.
type BatchOptions struct {
	FileConcurrency int
	Multipart       MultipartOptions
}

// ItemResult is the settled outcome of one batch item.
type ItemResult struct {
	ID       string
	Status   upload.ItemStatus
	Strategy Strategy
	Record   upload.Record
	Err      error
}

func (r ItemResult) Success() bool {
	return r.Err == nil
}

type BatchResult struct {
	// Results follow the order of the submitted items.
	Results         []ItemResult
	SuccessfulCount int
	TotalCount      int
}

// UploadBatch uploads every item independently under a file-level limiter and
// returns once all of them have settled. A failing item never cancels the others.
// Items with an empty or repeated id fail with ErrInvalidInput without running.
func (e *Engine) UploadBatch(ctx context.Context, items []upload.BatchItem, opts BatchOptions, obs BatchObserver) BatchResult {
	if obs == nil {
		obs = Hooks{}
	}
	fileConcurrency := opts.FileConcurrency
	if fileConcurrency < 1 {
		fileConcurrency = e.fileConcurrency
	}
	multipart := e.withDefaults(opts.Multipart)

	batchID := uuid.NewString()
	log := e.log.Ctx(ctx).With(zap.String("batch_id", batchID), zap.Int("files", len(items)))
	log.Logger.Info("batch upload started", zap.Int("file_concurrency", fileConcurrency))

	lim, err := limiter.New(fileConcurrency)
	if err != nil {
		// fileConcurrency is at least 1 here
		panic(err)
	}

	batch := make([]upload.BatchItem, len(items))
	copy(batch, items)

	var (
		mu        sync.Mutex
		results   = make([]ItemResult, len(batch))
		completed int
	)
	settle := func(i int, res ItemResult) {
		mu.Lock()
		defer mu.Unlock()
		batch[i].Status = res.Status
		results[i] = res
		completed++
		obs.OnFileComplete(res)
		obs.OnOverallProgress(completed, len(batch))
	}

	type scheduled struct {
		index  int
		future *limiter.Future[struct{}]
	}
	pending := make([]scheduled, 0, len(batch))

	seen := make(map[string]int, len(batch))
	for i := range batch {
		if batch[i].ID != "" {
			seen[batch[i].ID]++
		}
	}

	for i := range batch {
		i := i
		item := batch[i]
		batch[i].Status = upload.ItemPending

		if item.ID == "" || seen[item.ID] > 1 {
			settle(i, ItemResult{
				ID:     item.ID,
				Status: upload.ItemFailed,
				Err:    e.fail(ctx, snapper_errors.ErrURLIssuance, "validate", item.File, "", snapper_errors.ErrInvalidInput),
			})
			continue
		}

		f := limiter.Schedule(ctx, lim, func(ctx context.Context) (struct{}, error) {
			mu.Lock()
			batch[i].Status = upload.ItemUploading
			mu.Unlock()

			res := ItemResult{ID: item.ID, Strategy: e.selector.Choose(item.File.Size)}
			fileObs := itemObserver{id: item.ID, batch: obs}
			if res.Strategy == StrategyMultipart {
				res.Record, res.Err = e.UploadMultipart(ctx, item.File, item.Target, multipart, fileObs)
			} else {
				res.Record, res.Err = e.UploadSingle(ctx, item.File, item.Target, fileObs)
			}

			res.Status = upload.ItemSucceeded
			if res.Err != nil {
				res.Status = upload.ItemFailed
				log.Logger.Warn("batch item failed", zap.String("item_id", item.ID), zap.Error(res.Err))
			}
			settle(i, res)
			return struct{}{}, nil
		})
		pending = append(pending, scheduled{index: i, future: f})
	}

	for _, s := range pending {
		if _, err := s.future.Wait(); err != nil {
			// never admitted: the batch context was done first
			item := batch[s.index]
			settle(s.index, ItemResult{
				ID:       item.ID,
				Status:   upload.ItemFailed,
				Strategy: e.selector.Choose(item.File.Size),
				Err:      e.fail(ctx, snapper_errors.ErrCancelled, "schedule", item.File, "", err),
			})
		}
	}

	out := BatchResult{Results: results, TotalCount: len(results)}
	for _, r := range results {
		if r.Success() {
			out.SuccessfulCount++
		}
	}
	log.Logger.Info("batch upload finished",
		zap.Int("succeeded", out.SuccessfulCount), zap.Int("failed", out.TotalCount-out.SuccessfulCount))
	return out
}
