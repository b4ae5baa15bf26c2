package uploader

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"guest-snapper/internal/domain/upload"
	"guest-snapper/internal/limiter"
	"guest-snapper/internal/retry"
	"guest-snapper/internal/transfer"
	snapper_errors "guest-snapper/pkg/errors"
	"guest-snapper/pkg/logger"

	"go.uber.org/zap"
)

// UploadMultipart sends the file as a multipart session and records its metadata.
//
// Parts run through a limiter of opts.Concurrency slots, each under opts.Retry.
// The first part that exhausts its retries cancels the others; once they settle
// the session is aborted. Cancelling ctx stops admission of queued parts, cancels
// in-flight PUTs and aborts the session.
func (e *Engine) UploadMultipart(ctx context.Context, file upload.File, target upload.Target, opts MultipartOptions, obs Observer) (upload.Record, error) {
	obs = orNop(obs)
	opts = e.withDefaults(opts)
	log := e.log.Ctx(ctx).With(zap.String("file", file.Name), zap.Int64("size", file.Size))

	if err := validateFile(file); err != nil {
		return upload.Record{}, e.fail(ctx, snapper_errors.ErrURLIssuance, "validate", file, "", err)
	}

	init, err := e.issuer.InitiateMultipart(ctx, upload.FileRequest{
		Target:      target,
		FileName:    file.Name,
		ContentType: file.ContentType,
		FileSize:    file.Size,
	})
	if err != nil {
		return upload.Record{}, e.fail(ctx, snapper_errors.ErrURLIssuance, "initiate", file, "", err)
	}

	session := &upload.Session{
		SessionID:      init.SessionID,
		StorageKey:     init.StorageKey,
		DestinationURL: init.DestinationURL,
		PartSize:       init.PartSize,
	}
	log = log.With(zap.String("storage_key", session.StorageKey), zap.String("session_id", session.SessionID))
	stateChanged(obs, session, upload.StateInitiated)

	parts, err := upload.PlanParts(file.Size, session.PartSize)
	if err != nil {
		return upload.Record{}, e.abort(ctx, session, obs, log,
			e.fail(ctx, snapper_errors.ErrURLIssuance, "plan", file, session.StorageKey, err))
	}
	session.Parts = parts
	stateChanged(obs, session, upload.StatePartsPlanned)

	issued, err := e.issuer.IssuePartURLs(ctx, upload.PartURLsRequest{
		StorageKey:  session.StorageKey,
		SessionID:   session.SessionID,
		PartNumbers: upload.PartNumbers(parts),
	})
	if err == nil {
		var urls map[int]string
		if urls, err = partURLs(parts, issued); err == nil {
			stateChanged(obs, session, upload.StatePartURLsIssued)
			return e.finishMultipart(ctx, file, target, session, urls, opts, obs, log)
		}
	}
	return upload.Record{}, e.abort(ctx, session, obs, log,
		e.fail(ctx, snapper_errors.ErrURLIssuance, "issue_part_urls", file, session.StorageKey, err))
}

func (e *Engine) finishMultipart(ctx context.Context, file upload.File, target upload.Target, session *upload.Session, urls map[int]string, opts MultipartOptions, obs Observer, log *logger.Logger) (upload.Record, error) {
	tracker := newProgressTracker(file.Size, session.Parts, obs.OnProgress)
	tracker.start()
	stateChanged(obs, session, upload.StatePartsUploading)

	results, err := e.uploadParts(ctx, file, session, urls, opts, tracker, obs, log)
	if err != nil {
		var uerr *snapper_errors.UploadError
		if !errors.As(err, &uerr) {
			uerr = e.fail(ctx, snapper_errors.ErrTransfer, "part", file, session.StorageKey, err)
		}
		return upload.Record{}, e.abort(ctx, session, obs, log, uerr)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].PartNumber < results[j].PartNumber
	})
	session.Results = results

	if err := ctx.Err(); err != nil {
		return upload.Record{}, e.abort(ctx, session, obs, log,
			e.fail(ctx, snapper_errors.ErrCancelled, "complete", file, session.StorageKey, err))
	}
	err = e.closer.CompleteMultipart(ctx, upload.CompleteRequest{
		StorageKey: session.StorageKey,
		SessionID:  session.SessionID,
		Parts:      results,
	})
	if err != nil {
		return upload.Record{}, e.abort(ctx, session, obs, log,
			e.fail(ctx, snapper_errors.ErrCompletion, "complete", file, session.StorageKey, err))
	}
	stateChanged(obs, session, upload.StateCompleted)
	tracker.finish()
	log.Logger.Debug("multipart upload completed", zap.Int("parts", len(results)))

	return e.recordMetadata(ctx, file, target, session.StorageKey, session.DestinationURL)
}

// uploadParts runs every planned part and returns one result per part, or the first failure.
func (e *Engine) uploadParts(ctx context.Context, file upload.File, session *upload.Session, urls map[int]string, opts MultipartOptions, tracker *progressTracker, obs Observer, log *logger.Logger) ([]upload.PartResult, error) {
	lim, err := limiter.New(opts.Concurrency)
	if err != nil {
		return nil, err
	}

	partCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		mu       sync.Mutex
		results  = make([]upload.PartResult, 0, len(session.Parts))
		firstErr error
	)

	futures := make([]*limiter.Future[struct{}], 0, len(session.Parts))
	for _, part := range session.Parts {
		part := part
		futures = append(futures, limiter.Schedule(partCtx, lim, func(ctx context.Context) (struct{}, error) {
			etag, err := e.uploadPart(ctx, file, session.StorageKey, part, urls[part.Number], opts.Retry, tracker, log)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
					cancel()
				}
				return struct{}{}, err
			}
			results = append(results, upload.PartResult{PartNumber: part.Number, ETag: etag})
			obs.OnPartDone(part.Number)
			return struct{}{}, nil
		}))
	}

	var dropped error
	for _, f := range futures {
		if _, err := f.Wait(); err != nil && dropped == nil {
			dropped = err
		}
	}

	if firstErr != nil {
		return nil, firstErr
	}
	if len(results) != len(session.Parts) {
		if dropped == nil {
			dropped = fmt.Errorf("%d of %d parts uploaded", len(results), len(session.Parts))
		}
		return nil, dropped
	}
	return results, nil
}

func (e *Engine) uploadPart(ctx context.Context, file upload.File, key string, part upload.PartRange, url string, policy retry.Policy, tracker *progressTracker, log *logger.Logger) (string, error) {
	onRetry := policy.OnRetry
	policy.OnRetry = func(attempt uint, err error) {
		log.Logger.Warn("part upload failed, retrying",
			zap.Int("part", part.Number), zap.Uint("attempt", attempt), zap.Error(err))
		if onRetry != nil {
			onRetry(attempt, err)
		}
	}

	var etag string
	err := policy.Do(ctx, func(uint) error {
		tag, err := e.transfer.Put(ctx, transfer.PutRequest{
			URL:         url,
			Body:        file.Source,
			Offset:      part.Start,
			Length:      part.Length(),
			ContentType: file.ContentType,
			OnProgress: func(loaded, _ int64) {
				tracker.update(part.Number, loaded)
			},
		})
		if err != nil {
			return err
		}
		etag = tag
		return nil
	})
	if err != nil {
		uerr := e.fail(ctx, snapper_errors.ErrTransfer, "part", file, key, err)
		uerr.PartNumber = part.Number
		return "", uerr
	}

	tracker.complete(part.Number)
	return upload.NormalizeETag(etag), nil
}

// abort releases the session on a context detached from the caller's cancellation.
// A failed abort is logged and attached to primary, which is always what gets returned.
func (e *Engine) abort(ctx context.Context, session *upload.Session, obs Observer, log *logger.Logger, primary *snapper_errors.UploadError) error {
	abortCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.abortTimeout)
	defer cancel()

	err := e.closer.AbortMultipart(abortCtx, upload.AbortRequest{
		StorageKey: session.StorageKey,
		SessionID:  session.SessionID,
	})
	if err != nil {
		primary.AbortErr = err
		log.Logger.Error("abort failed, storage may hold orphaned parts",
			zap.NamedError("cause", primary), zap.Error(err))
	} else {
		log.Logger.Info("multipart session aborted", zap.NamedError("cause", primary))
	}
	stateChanged(obs, session, upload.StateAborted)
	return primary
}

// partURLs indexes issued URLs by part number, failing if any planned part has none.
func partURLs(parts []upload.PartRange, issued []upload.PartURL) (map[int]string, error) {
	urls := make(map[int]string, len(issued))
	for _, u := range issued {
		if u.URL != "" {
			urls[u.PartNumber] = u.URL
		}
	}
	for _, p := range parts {
		if _, ok := urls[p.Number]; !ok {
			return nil, fmt.Errorf("no url issued for part %d", p.Number)
		}
	}
	return urls, nil
}
