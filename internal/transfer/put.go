// Package transfer performs single HTTP PUTs of byte ranges to presigned URLs.
package transfer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	snapper_errors "guest-snapper/pkg/errors"
)

// ProgressFunc receives the bytes handed to the transport so far and the range length.
type ProgressFunc func(loaded, total int64)

// PutRequest describes one PUT of the range [Offset, Offset+Length) of Body.
type PutRequest struct {
	URL         string
	Body        io.ReaderAt
	Offset      int64
	Length      int64
	ContentType string
	OnProgress  ProgressFunc
}

// HTTPTransfer is stateless and safe for concurrent use.
type HTTPTransfer struct {
	client *http.Client
}

// NewHTTPTransfer wraps client; a nil client gets a plain http.Client with no timeout,
// since deadlines come from the caller's context.
func NewHTTPTransfer(client *http.Client) *HTTPTransfer {
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPTransfer{client: client}
}

// Put uploads the range and returns the ETag header exactly as storage sent it.
func (t *HTTPTransfer) Put(ctx context.Context, req PutRequest) (string, error) {
	if req.URL == "" || req.Length < 0 || (req.Body == nil && req.Length > 0) {
		return "", snapper_errors.NewUploadError(snapper_errors.ErrTransfer, "put", snapper_errors.ErrInvalidInput)
	}

	var body io.Reader = http.NoBody
	if req.Length > 0 {
		body = &progressReader{
			r:          io.NewSectionReader(req.Body, req.Offset, req.Length),
			total:      req.Length,
			onProgress: req.OnProgress,
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPut, req.URL, body)
	if err != nil {
		return "", snapper_errors.NewUploadError(snapper_errors.ErrTransfer, "put", err)
	}
	httpReq.ContentLength = req.Length
	if req.ContentType != "" {
		httpReq.Header.Set("Content-Type", req.ContentType)
	}

	resp, err := t.client.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", snapper_errors.NewUploadError(snapper_errors.ErrCancelled, "put", ctxErr)
		}
		return "", snapper_errors.NewUploadError(snapper_errors.ErrTransfer, "put", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		uerr := snapper_errors.NewUploadError(snapper_errors.ErrTransfer, "put",
			fmt.Errorf("unexpected status %s: %s", resp.Status, strings.TrimSpace(string(snippet))))
		uerr.StatusCode = resp.StatusCode
		return "", uerr
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	if req.OnProgress != nil {
		req.OnProgress(req.Length, req.Length)
	}
	return resp.Header.Get("ETag"), nil
}

type progressReader struct {
	r          io.Reader
	loaded     int64
	total      int64
	onProgress ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.loaded += int64(n)
		if p.onProgress != nil {
			p.onProgress(p.loaded, p.total)
		}
	}
	return n, err
}
