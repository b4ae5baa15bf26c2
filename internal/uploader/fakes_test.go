package uploader

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"guest-snapper/internal/domain/upload"
	"guest-snapper/internal/retry"
	"guest-snapper/internal/transfer"
	"guest-snapper/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

const testPartSize = 1024

var fastRetry = retry.Policy{
	MaxAttempts: 4,
	Backoff:     func(uint) time.Duration { return time.Millisecond },
}

// fakeServices implements URLIssuer, SessionCloser and MetadataRecorder.
// Nil function fields fall back to a successful default.
type fakeServices struct {
	IssueSingleURLFn    func(ctx context.Context, req upload.FileRequest) (upload.SingleURL, error)
	InitiateMultipartFn func(ctx context.Context, req upload.FileRequest) (upload.MultipartInit, error)
	IssuePartURLsFn     func(ctx context.Context, req upload.PartURLsRequest) ([]upload.PartURL, error)
	CompleteMultipartFn func(ctx context.Context, req upload.CompleteRequest) error
	AbortMultipartFn    func(ctx context.Context, req upload.AbortRequest) error
	RecordMetadataFn    func(ctx context.Context, req upload.MetadataRequest) (upload.Record, error)

	mu        sync.Mutex
	singles   []upload.FileRequest
	initiates []upload.FileRequest
	completes []upload.CompleteRequest
	aborts    []upload.AbortRequest
	records   []upload.MetadataRequest
}

func (f *fakeServices) IssueSingleURL(ctx context.Context, req upload.FileRequest) (upload.SingleURL, error) {
	f.mu.Lock()
	f.singles = append(f.singles, req)
	f.mu.Unlock()
	if f.IssueSingleURLFn != nil {
		return f.IssueSingleURLFn(ctx, req)
	}
	key := "events/" + req.Target.EventID + "/" + req.FileName
	return upload.SingleURL{
		URL:            "https://storage.test/single/" + req.FileName,
		StorageKey:     key,
		DestinationURL: "https://cdn.test/" + key,
	}, nil
}

func (f *fakeServices) InitiateMultipart(ctx context.Context, req upload.FileRequest) (upload.MultipartInit, error) {
	f.mu.Lock()
	f.initiates = append(f.initiates, req)
	f.mu.Unlock()
	if f.InitiateMultipartFn != nil {
		return f.InitiateMultipartFn(ctx, req)
	}
	key := "events/" + req.Target.EventID + "/" + req.FileName
	return upload.MultipartInit{
		SessionID:      "session-" + req.FileName,
		StorageKey:     key,
		DestinationURL: "https://cdn.test/" + key,
		PartSize:       testPartSize,
	}, nil
}

func (f *fakeServices) IssuePartURLs(ctx context.Context, req upload.PartURLsRequest) ([]upload.PartURL, error) {
	if f.IssuePartURLsFn != nil {
		return f.IssuePartURLsFn(ctx, req)
	}
	urls := make([]upload.PartURL, 0, len(req.PartNumbers))
	for _, n := range req.PartNumbers {
		urls = append(urls, upload.PartURL{PartNumber: n, URL: fmt.Sprintf("https://storage.test/%s/part/%d", req.SessionID, n)})
	}
	return urls, nil
}

func (f *fakeServices) CompleteMultipart(ctx context.Context, req upload.CompleteRequest) error {
	f.mu.Lock()
	f.completes = append(f.completes, req)
	f.mu.Unlock()
	if f.CompleteMultipartFn != nil {
		return f.CompleteMultipartFn(ctx, req)
	}
	return nil
}

func (f *fakeServices) AbortMultipart(ctx context.Context, req upload.AbortRequest) error {
	f.mu.Lock()
	f.aborts = append(f.aborts, req)
	f.mu.Unlock()
	if f.AbortMultipartFn != nil {
		return f.AbortMultipartFn(ctx, req)
	}
	return nil
}

func (f *fakeServices) RecordMetadata(ctx context.Context, req upload.MetadataRequest) (upload.Record, error) {
	f.mu.Lock()
	f.records = append(f.records, req)
	f.mu.Unlock()
	if f.RecordMetadataFn != nil {
		return f.RecordMetadataFn(ctx, req)
	}
	return upload.Record{
		ID:           uuid.New(),
		EventID:      req.Target.EventID,
		AlbumID:      req.Target.AlbumID,
		UploaderName: req.Target.UploaderName,
		Caption:      req.Target.Caption,
		StorageKey:   req.StorageKey,
		URL:          req.DestinationURL,
		FileName:     req.FileName,
		FileSize:     req.FileSize,
		FileType:     req.FileType,
		MimeType:     req.MimeType,
		CreatedAt:    time.Now(),
	}, nil
}

func (f *fakeServices) counts() (singles, initiates, completes, aborts, records int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.singles), len(f.initiates), len(f.completes), len(f.aborts), len(f.records)
}

// fakeTransfer counts PUTs and delegates to PutFn, or succeeds with a quoted ETag.
type fakeTransfer struct {
	PutFn func(ctx context.Context, req transfer.PutRequest) (string, error)

	calls    int32
	inFlight int32
	maxSeen  int32
}

func (f *fakeTransfer) Put(ctx context.Context, req transfer.PutRequest) (string, error) {
	atomic.AddInt32(&f.calls, 1)
	cur := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)
	for {
		seen := atomic.LoadInt32(&f.maxSeen)
		if cur <= seen || atomic.CompareAndSwapInt32(&f.maxSeen, seen, cur) {
			break
		}
	}

	if f.PutFn != nil {
		return f.PutFn(ctx, req)
	}
	return succeedPut(req)
}

func (f *fakeTransfer) callCount() int {
	return int(atomic.LoadInt32(&f.calls))
}

func succeedPut(req transfer.PutRequest) (string, error) {
	if req.OnProgress != nil && req.Length > 0 {
		req.OnProgress(req.Length/2, req.Length)
		req.OnProgress(req.Length, req.Length)
	}
	return fmt.Sprintf(`"etag-%d"`, partOf(req.URL)), nil
}

// partOf extracts the part number from a fake part URL, 0 for single URLs.
func partOf(url string) int {
	idx := strings.LastIndex(url, "/part/")
	if idx < 0 {
		return 0
	}
	n, _ := strconv.Atoi(url[idx+len("/part/"):])
	return n
}

// progressLog records every progress event and state change an upload emits.
type progressLog struct {
	mu        sync.Mutex
	events    []upload.Progress
	states    []upload.State
	partsDone []int
}

func (p *progressLog) hooks() Hooks {
	return Hooks{
		Progress: func(pr upload.Progress) {
			p.mu.Lock()
			p.events = append(p.events, pr)
			p.mu.Unlock()
		},
		PartDone: func(n int) {
			p.mu.Lock()
			p.partsDone = append(p.partsDone, n)
			p.mu.Unlock()
		},
		StateChange: func(s upload.State) {
			p.mu.Lock()
			p.states = append(p.states, s)
			p.mu.Unlock()
		},
	}
}

func (p *progressLog) assertMonotonic(t *testing.T, total int64) {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()

	var last int64
	for _, ev := range p.events {
		assert.Equal(t, total, ev.TotalBytes)
		assert.GreaterOrEqual(t, ev.UploadedBytes, last, "uploaded bytes went backwards")
		assert.LessOrEqual(t, ev.UploadedBytes, total, "uploaded bytes overshot the file size")
		last = ev.UploadedBytes
	}
}

func (p *progressLog) lastState() upload.State {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.states) == 0 {
		return ""
	}
	return p.states[len(p.states)-1]
}

func newTestEngine(svc *fakeServices, put *fakeTransfer, opts Options) *Engine {
	opts.Transferer = put
	opts.Logger = logger.Nop()
	if opts.Multipart.Retry.MaxAttempts == 0 {
		opts.Multipart.Retry = fastRetry
	}
	return NewEngine(svc, svc, svc, opts)
}

func testFile(name string, size int64, contentType string) upload.File {
	return upload.File{
		Name:        name,
		Size:        size,
		ContentType: contentType,
		Source:      bytes.NewReader(make([]byte, size)),
	}
}

var testTarget = upload.Target{EventID: "evt-1", AlbumID: "album-9", UploaderName: "Sam", Caption: "first dance"}
