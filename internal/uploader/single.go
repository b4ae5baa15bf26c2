package uploader

import (
	"context"

	"guest-snapper/internal/domain/upload"
	"guest-snapper/internal/transfer"
	snapper_errors "guest-snapper/pkg/errors"

	"go.uber.org/zap"
)

// UploadSingle sends the whole file in one PUT and records its metadata.
// Nothing is retried: each call issues at most one PUT.
func (e *Engine) UploadSingle(ctx context.Context, file upload.File, target upload.Target, obs Observer) (upload.Record, error) {
	obs = orNop(obs)
	log := e.log.Ctx(ctx).With(zap.String("file", file.Name), zap.Int64("size", file.Size))

	if err := validateFile(file); err != nil {
		return upload.Record{}, e.fail(ctx, snapper_errors.ErrURLIssuance, "validate", file, "", err)
	}

	issued, err := e.issuer.IssueSingleURL(ctx, upload.FileRequest{
		Target:      target,
		FileName:    file.Name,
		ContentType: file.ContentType,
		FileSize:    file.Size,
	})
	if err != nil {
		return upload.Record{}, e.fail(ctx, snapper_errors.ErrURLIssuance, "issue_url", file, "", err)
	}
	log = log.With(zap.String("storage_key", issued.StorageKey))

	whole := []upload.PartRange{{Number: 1, Start: 0, End: file.Size}}
	tracker := newProgressTracker(file.Size, whole, obs.OnProgress)
	tracker.start()

	_, err = e.transfer.Put(ctx, transfer.PutRequest{
		URL:         issued.URL,
		Body:        file.Source,
		Length:      file.Size,
		ContentType: file.ContentType,
		OnProgress: func(loaded, _ int64) {
			tracker.update(1, loaded)
		},
	})
	if err != nil {
		log.Logger.Warn("single upload failed", zap.Error(err))
		return upload.Record{}, e.fail(ctx, snapper_errors.ErrTransfer, "put", file, issued.StorageKey, err)
	}
	tracker.finish()

	record, err := e.recordMetadata(ctx, file, target, issued.StorageKey, issued.DestinationURL)
	if err != nil {
		return upload.Record{}, err
	}
	log.Logger.Debug("single upload stored")
	return record, nil
}
