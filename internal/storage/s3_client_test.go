package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"guest-snapper/internal/domain/upload"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type s3Call struct {
	method string
	path   string
	query  url.Values
	body   string
}

type fakeS3 struct {
	mu    sync.Mutex
	calls []s3Call
	abort int
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.calls = append(f.calls, s3Call{method: r.Method, path: r.URL.Path, query: r.URL.Query(), body: string(body)})
	f.mu.Unlock()

	q := r.URL.Query()
	w.Header().Set("Content-Type", "application/xml")
	switch {
	case r.Method == http.MethodPost && q.Has("uploads"):
		_, _ = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>
<InitiateMultipartUploadResult><Bucket>media</Bucket><Key>events/e1/a.mp4</Key><UploadId>upload-123</UploadId></InitiateMultipartUploadResult>`))
	case r.Method == http.MethodPost && q.Has("uploadId"):
		_, _ = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>
<CompleteMultipartUploadResult><Bucket>media</Bucket><Key>events/e1/a.mp4</Key><ETag>"final"</ETag></CompleteMultipartUploadResult>`))
	case r.Method == http.MethodDelete && q.Get("uploadId") == "gone":
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>
<Error><Code>NoSuchUpload</Code><Message>The specified upload does not exist.</Message><RequestId>r1</RequestId></Error>`))
	case r.Method == http.MethodDelete && q.Get("uploadId") == "denied":
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>
<Error><Code>AccessDenied</Code><Message>Access Denied</Message><RequestId>r2</RequestId></Error>`))
	case r.Method == http.MethodDelete:
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusBadRequest)
	}
}

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(context.Background(), S3Config{
		Region:     "us-east-1",
		Bucket:     "media",
		AccessKey:  "AKIDEXAMPLE",
		SecretKey:  "secret",
		Endpoint:   server.URL,
		PresignTTL: 15 * time.Minute,
		PartSize:   8 * 1024 * 1024,
	})
	require.NoError(t, err)
	return client
}

func TestNewClient_RequiresRegionAndBucket(t *testing.T) {
	_, err := NewClient(context.Background(), S3Config{Bucket: "media"})
	assert.Error(t, err)
	_, err = NewClient(context.Background(), S3Config{Region: "us-east-1"})
	assert.Error(t, err)
}

func TestClient_PresignPut(t *testing.T) {
	client := newTestClient(t, &fakeS3{})

	raw, err := client.PresignPut(context.Background(), "events/e1/a.jpg", "image/jpeg", 1234)
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "/media/events/e1/a.jpg", u.Path)
	assert.Equal(t, "900", u.Query().Get("X-Amz-Expires"))
	assert.Contains(t, strings.ToLower(u.Query().Get("X-Amz-SignedHeaders")), "content-type")

	_, err = client.PresignPut(context.Background(), "", "image/jpeg", 1)
	assert.Error(t, err)
}

func TestClient_MultipartLifecycle(t *testing.T) {
	s3 := &fakeS3{}
	client := newTestClient(t, s3)
	ctx := context.Background()

	uploadID, err := client.CreateMultipart(ctx, "events/e1/a.mp4", "video/mp4")
	require.NoError(t, err)
	assert.Equal(t, "upload-123", uploadID)

	raw, err := client.PresignPart(ctx, "events/e1/a.mp4", uploadID, 3)
	require.NoError(t, err)
	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "3", u.Query().Get("partNumber"))
	assert.Equal(t, "upload-123", u.Query().Get("uploadId"))

	_, err = client.PresignPart(ctx, "events/e1/a.mp4", uploadID, 0)
	assert.Error(t, err)

	err = client.CompleteMultipart(ctx, "events/e1/a.mp4", uploadID, []upload.PartResult{
		{PartNumber: 1, ETag: "aaa"},
		{PartNumber: 2, ETag: "bbb"},
	})
	require.NoError(t, err)

	s3.mu.Lock()
	defer s3.mu.Unlock()
	last := s3.calls[len(s3.calls)-1]
	assert.Equal(t, http.MethodPost, last.method)
	assert.Equal(t, "upload-123", last.query.Get("uploadId"))
	assert.Less(t, strings.Index(last.body, "<PartNumber>1</PartNumber>"), strings.Index(last.body, "<PartNumber>2</PartNumber>"))
	assert.Contains(t, last.body, "<ETag>aaa</ETag>")
}

func TestClient_AbortMultipart(t *testing.T) {
	client := newTestClient(t, &fakeS3{})
	ctx := context.Background()

	assert.NoError(t, client.AbortMultipart(ctx, "events/e1/a.mp4", "upload-123"))
	assert.NoError(t, client.AbortMultipart(ctx, "events/e1/a.mp4", "gone"), "an unknown upload is already released")

	err := client.AbortMultipart(ctx, "events/e1/a.mp4", "denied")
	require.Error(t, err)
	assert.False(t, IsNoSuchUpload(err))
}

func TestClient_FileURL(t *testing.T) {
	assert.Equal(t, "https://cdn.example.com/events/e1/a.jpg",
		(&Client{cfg: S3Config{PublicBase: "https://cdn.example.com/"}}).FileURL("events/e1/a.jpg"))
	assert.Equal(t, "http://minio:9000/media/events/e1/a.jpg",
		(&Client{cfg: S3Config{Endpoint: "http://minio:9000", Bucket: "media"}}).FileURL("events/e1/a.jpg"))
	assert.Equal(t, "https://media.s3.eu-west-1.amazonaws.com/events/e1/a.jpg",
		(&Client{cfg: S3Config{Bucket: "media", Region: "eu-west-1"}}).FileURL("events/e1/a.jpg"))
	assert.Empty(t, (&Client{}).FileURL(""))
}

func TestClient_PartSizeFor(t *testing.T) {
	c := &Client{cfg: S3Config{PartSize: 8 * 1024 * 1024}}
	assert.Equal(t, int64(8*1024*1024), c.PartSizeFor(100*1024*1024))

	small := &Client{cfg: S3Config{PartSize: 1024}}
	assert.Equal(t, int64(MinPartSize), small.PartSizeFor(50*1024*1024))

	huge := int64(200) * 1024 * 1024 * 1024
	size := c.PartSizeFor(huge)
	assert.LessOrEqual(t, (huge+size-1)/size, int64(MaxParts))
}
