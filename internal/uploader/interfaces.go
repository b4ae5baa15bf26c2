package uploader

import (
	"context"

	"guest-snapper/internal/domain/upload"
	"guest-snapper/internal/transfer"
)

// URLIssuer hands out presigned URLs and opens multipart sessions.
type URLIssuer interface {
	IssueSingleURL(ctx context.Context, req upload.FileRequest) (upload.SingleURL, error)
	InitiateMultipart(ctx context.Context, req upload.FileRequest) (upload.MultipartInit, error)
	IssuePartURLs(ctx context.Context, req upload.PartURLsRequest) ([]upload.PartURL, error)
}

// SessionCloser finishes or releases a multipart session.
type SessionCloser interface {
	CompleteMultipart(ctx context.Context, req upload.CompleteRequest) error
	AbortMultipart(ctx context.Context, req upload.AbortRequest) error
}

// MetadataRecorder persists the media record once the bytes are stored.
type MetadataRecorder interface {
	RecordMetadata(ctx context.Context, req upload.MetadataRequest) (upload.Record, error)
}

// Transferer moves one byte range to a presigned URL.
type Transferer interface {
	Put(ctx context.Context, req transfer.PutRequest) (string, error)
}
