// Package uploader moves local files into object storage through presigned URLs.
//
// An Engine picks a single PUT or a multipart session per file, drives part
// uploads through a bounded limiter with per-part retry, aggregates progress and
// either completes the session or aborts it. Batches run several files under a
// second, file-level limiter.
package uploader

import (
	"context"
	"errors"
	"time"

	"guest-snapper/config"
	"guest-snapper/internal/domain/upload"
	"guest-snapper/internal/retry"
	"guest-snapper/internal/transfer"
	snapper_errors "guest-snapper/pkg/errors"
	"guest-snapper/pkg/logger"

	"go.uber.org/zap"
)

const (
	DefaultPartConcurrency = 4
	DefaultFileConcurrency = 3
	DefaultAbortTimeout    = 30 * time.Second
)

// MultipartOptions tune one multipart upload. Zero values fall back to the engine defaults.
type MultipartOptions struct {
	Concurrency int
	Retry       retry.Policy
}

// Options configure an Engine.
type Options struct {
	// Transferer performs the PUTs; nil uses transfer.NewHTTPTransfer(nil).
	Transferer Transferer

	Selector        Selector
	Multipart       MultipartOptions
	FileConcurrency int

	// AbortTimeout bounds the cleanup abort, which runs even after the caller's context is cancelled.
	AbortTimeout time.Duration

	Logger *logger.Logger
}

// OptionsFromConfig maps the upload section of the application config to engine options.
func OptionsFromConfig(cfg config.UploadConfig) Options {
	policy := retry.Default()
	if cfg.PartMaxAttempts > 0 {
		policy.MaxAttempts = uint(cfg.PartMaxAttempts)
	}
	if cfg.RetryBaseDelay > 0 {
		policy.Backoff = retry.Linear(cfg.RetryBaseDelay)
	}
	return Options{
		Selector:        Selector{Threshold: cfg.MultipartThreshold},
		Multipart:       MultipartOptions{Concurrency: cfg.PartConcurrency, Retry: policy},
		FileConcurrency: cfg.FileConcurrency,
	}
}

type Engine struct {
	issuer   URLIssuer
	closer   SessionCloser
	recorder MetadataRecorder
	transfer Transferer

	selector        Selector
	multipart       MultipartOptions
	fileConcurrency int
	abortTimeout    time.Duration
	log             *logger.Logger
}

func NewEngine(issuer URLIssuer, closer SessionCloser, recorder MetadataRecorder, opts Options) *Engine {
	e := &Engine{
		issuer:          issuer,
		closer:          closer,
		recorder:        recorder,
		transfer:        opts.Transferer,
		selector:        opts.Selector,
		fileConcurrency: opts.FileConcurrency,
		abortTimeout:    opts.AbortTimeout,
		log:             logger.OrGlobal(opts.Logger),
	}
	if e.transfer == nil {
		e.transfer = transfer.NewHTTPTransfer(nil)
	}
	if e.fileConcurrency < 1 {
		e.fileConcurrency = DefaultFileConcurrency
	}
	if e.abortTimeout <= 0 {
		e.abortTimeout = DefaultAbortTimeout
	}
	e.multipart = e.withDefaults(opts.Multipart)
	return e
}

// Strategy reports how a file of the given size would be sent.
func (e *Engine) Strategy(size int64) Strategy {
	return e.selector.Choose(size)
}

// Upload sends one file with the strategy the selector picks for its size.
func (e *Engine) Upload(ctx context.Context, file upload.File, target upload.Target, obs Observer) (upload.Record, error) {
	if e.selector.Choose(file.Size) == StrategyMultipart {
		return e.UploadMultipart(ctx, file, target, e.multipart, obs)
	}
	return e.UploadSingle(ctx, file, target, obs)
}

func (e *Engine) withDefaults(opts MultipartOptions) MultipartOptions {
	if opts.Concurrency < 1 {
		if e.multipart.Concurrency > 0 {
			opts.Concurrency = e.multipart.Concurrency
		} else {
			opts.Concurrency = DefaultPartConcurrency
		}
	}
	if opts.Retry.MaxAttempts == 0 {
		if e.multipart.Retry.MaxAttempts > 0 {
			opts.Retry.MaxAttempts = e.multipart.Retry.MaxAttempts
		} else {
			opts.Retry.MaxAttempts = retry.DefaultMaxAttempts
		}
	}
	if opts.Retry.Backoff == nil {
		if e.multipart.Retry.Backoff != nil {
			opts.Retry.Backoff = e.multipart.Retry.Backoff
		} else {
			opts.Retry.Backoff = retry.Linear(retry.DefaultBaseDelay)
		}
	}
	return opts
}

func (e *Engine) recordMetadata(ctx context.Context, file upload.File, target upload.Target, key, destination string) (upload.Record, error) {
	record, err := e.recorder.RecordMetadata(ctx, upload.MetadataRequest{
		Target:         target,
		StorageKey:     key,
		DestinationURL: destination,
		FileName:       file.Name,
		FileSize:       file.Size,
		FileType:       upload.FileTypeOf(file.ContentType),
		MimeType:       file.ContentType,
	})
	if err != nil {
		e.log.Ctx(ctx).Logger.Error("metadata persist failed, object stored without record",
			zap.String("file", file.Name), zap.String("storage_key", key), zap.Error(err))
		return upload.Record{}, e.fail(ctx, snapper_errors.ErrMetadataPersist, "record", file, key, err)
	}
	return record, nil
}

// fail builds the error returned for a failed step. Steps before the bytes are
// durably stored report ErrCancelled once ctx is done.
func (e *Engine) fail(ctx context.Context, kind error, op string, file upload.File, key string, err error) *snapper_errors.UploadError {
	cancelled := ctx.Err() != nil && kind != snapper_errors.ErrMetadataPersist
	if cancelled {
		kind = snapper_errors.ErrCancelled
	}

	uerr := snapper_errors.NewUploadError(kind, op, err)
	uerr.FileName = file.Name
	uerr.StorageKey = key

	var inner *snapper_errors.UploadError
	if errors.As(err, &inner) {
		uerr.StatusCode = inner.StatusCode
		uerr.PartNumber = inner.PartNumber
		if !cancelled && inner.Err != nil {
			uerr.Err = inner.Err
		}
	}
	return uerr
}

func validateFile(file upload.File) error {
	if file.Size < 0 || (file.Source == nil && file.Size > 0) {
		return snapper_errors.ErrInvalidInput
	}
	return nil
}
