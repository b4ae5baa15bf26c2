package upload

import (
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Target identifies where a file is being uploaded.
type Target struct {
	EventID      string `json:"event_id"`
	AlbumID      string `json:"album_id,omitempty"`
	UploaderName string `json:"uploader_name,omitempty"`
	Caption      string `json:"caption,omitempty"`
}

// File describes the local bytes to upload.
type File struct {
	Name        string
	Size        int64
	ContentType string
	Source      io.ReaderAt
}

// PartResult is produced once storage has durably accepted a part.
type PartResult struct {
	PartNumber int    `json:"part_number"`
	ETag       string `json:"etag"`
}

// PartURL is a presigned URL for one part of a multipart session.
type PartURL struct {
	PartNumber int    `json:"part_number"`
	URL        string `json:"url"`
}

type State string

const (
	StateInitiated      State = "INITIATED"
	StatePartsPlanned   State = "PARTS_PLANNED"
	StatePartURLsIssued State = "PART_URLS_ISSUED"
	StatePartsUploading State = "PARTS_UPLOADING"
	StateCompleted      State = "COMPLETED"
	StateAborted        State = "ABORTED"
)

// Session is a multipart upload session as seen by the orchestrator that owns it.
type Session struct {
	SessionID      string
	StorageKey     string
	DestinationURL string
	PartSize       int64
	Parts          []PartRange
	Results        []PartResult
	State          State
}

type ItemStatus string

const (
	ItemPending   ItemStatus = "pending"
	ItemUploading ItemStatus = "uploading"
	ItemSucceeded ItemStatus = "succeeded"
	ItemFailed    ItemStatus = "failed"
)

// BatchItem is one file of a batch upload.
type BatchItem struct {
	ID     string
	File   File
	Target Target
	Status ItemStatus
}

// Record is the persisted media row written once bytes are durably stored.
type Record struct {
	ID           uuid.UUID `json:"id"`
	EventID      string    `json:"event_id"`
	AlbumID      string    `json:"album_id,omitempty"`
	UploaderName string    `json:"uploader_name,omitempty"`
	Caption      string    `json:"caption,omitempty"`
	StorageKey   string    `json:"storage_key"`
	URL          string    `json:"url"`
	FileName     string    `json:"file_name"`
	FileSize     int64     `json:"file_size"`
	FileType     string    `json:"file_type"`
	MimeType     string    `json:"mime_type"`
	CreatedAt    time.Time `json:"created_at"`
}

const (
	FileTypeImage = "image"
	FileTypeVideo = "video"
	FileTypeAudio = "audio"
	FileTypeOther = "other"
)

// FileTypeOf maps a MIME type to the media category stored with the record.
func FileTypeOf(mimeType string) string {
	major, _, _ := strings.Cut(strings.ToLower(mimeType), "/")
	switch major {
	case FileTypeImage, FileTypeVideo, FileTypeAudio:
		return major
	default:
		return FileTypeOther
	}
}
