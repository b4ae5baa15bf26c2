// Package apiclient talks to the guest-snapper API and implements the upload
// engine's collaborator interfaces over HTTP.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"guest-snapper/internal/domain/upload"
	"guest-snapper/internal/transport/httpdto"
	"guest-snapper/pkg/logger"

	"go.uber.org/zap"
)

const defaultTimeout = 30 * time.Second

// APIError is a non-2xx answer from the API.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("api returned status %d: %s (%s)", e.StatusCode, e.Message, e.Code)
}

// Unwrap maps the response code back to the service sentinel, so errors.Is works across the wire.
func (e *APIError) Unwrap() error {
	return httpdto.ErrorForCode(e.Code)
}

type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	log        *logger.Logger
}

// New returns a client for the API at baseURL. A nil httpClient gets a default with a timeout.
func New(baseURL string, httpClient *http.Client, l *logger.Logger) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base URL %q must be http or https", baseURL)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{baseURL: u, httpClient: httpClient, log: logger.OrGlobal(l)}, nil
}

func (c *Client) IssueSingleURL(ctx context.Context, req upload.FileRequest) (upload.SingleURL, error) {
	var out upload.SingleURL
	err := c.doRequest(ctx, http.MethodPost, "/v1/uploads/presign", req, &out)
	return out, err
}

func (c *Client) InitiateMultipart(ctx context.Context, req upload.FileRequest) (upload.MultipartInit, error) {
	var out upload.MultipartInit
	err := c.doRequest(ctx, http.MethodPost, "/v1/uploads/multipart", req, &out)
	return out, err
}

func (c *Client) IssuePartURLs(ctx context.Context, req upload.PartURLsRequest) ([]upload.PartURL, error) {
	var out httpdto.PartURLsResponse
	if err := c.doRequest(ctx, http.MethodPost, "/v1/uploads/multipart/parts", req, &out); err != nil {
		return nil, err
	}
	return out.Parts, nil
}

func (c *Client) CompleteMultipart(ctx context.Context, req upload.CompleteRequest) error {
	return c.doRequest(ctx, http.MethodPost, "/v1/uploads/multipart/complete", req, nil)
}

func (c *Client) AbortMultipart(ctx context.Context, req upload.AbortRequest) error {
	return c.doRequest(ctx, http.MethodPost, "/v1/uploads/multipart/abort", req, nil)
}

func (c *Client) RecordMetadata(ctx context.Context, req upload.MetadataRequest) (upload.Record, error) {
	var out upload.Record
	err := c.doRequest(ctx, http.MethodPost, "/v1/media", req, &out)
	return out, err
}

func (c *Client) PublishProgress(ctx context.Context, ev upload.ProgressEvent) error {
	return c.doRequest(ctx, http.MethodPost, "/v1/uploads/progress", ev, nil)
}

// doRequest sends body as JSON and decodes the data field of the response envelope into target.
func (c *Client) doRequest(ctx context.Context, method, path string, body, target any) error {
	endpoint := c.baseURL.JoinPath(path).String()

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body for %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request %s %s: %w", method, path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("http request %s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("failed to read response body for %s %s: %w", method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var envelope httpdto.Response[json.RawMessage]
		if json.Unmarshal(raw, &envelope) == nil {
			apiErr.Code = envelope.Code
			apiErr.Message = envelope.Error
		}
		c.log.Ctx(ctx).Logger.Debug("api request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("code", apiErr.Code),
		)
		return apiErr
	}

	if target == nil || len(raw) == 0 {
		return nil
	}
	var envelope httpdto.Response[json.RawMessage]
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return fmt.Errorf("failed to decode response body for %s %s: %w", method, path, err)
	}
	if len(envelope.Data) == 0 {
		return errors.New("response carried no data")
	}
	if err := json.Unmarshal(envelope.Data, target); err != nil {
		return fmt.Errorf("failed to decode response data for %s %s: %w", method, path, err)
	}
	return nil
}
