package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"guest-snapper/internal/domain/upload"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

const (
	MinPartSize = 5 * 1024 * 1024
	MaxParts    = 10000
)

type S3Config struct {
	Region     string
	Bucket     string
	AccessKey  string
	SecretKey  string
	Endpoint   string
	PublicBase string
	PresignTTL time.Duration
	PartSize   int64
}

type Client struct {
	cfg     S3Config
	s3      *s3.Client
	presign *s3.PresignClient
}

func NewClient(ctx context.Context, cfg S3Config) (*Client, error) {
	if cfg.Region == "" || cfg.Bucket == "" {
		return nil, errors.New("s3 region and bucket are required")
	}

	var opts []func(*config.LoadOptions) error
	opts = append(opts, config.WithRegion(cfg.Region))

	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}

	endpoint := ""
	if cfg.Endpoint != "" {
		parsed, err := url.Parse(cfg.Endpoint)
		if err != nil {
			return nil, fmt.Errorf("invalid s3 endpoint: %w", err)
		}
		endpoint = parsed.String()
	}

	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	return &Client{
		cfg:     cfg,
		s3:      s3Client,
		presign: s3.NewPresignClient(s3Client),
	}, nil
}

func (c *Client) Bucket() string {
	return c.cfg.Bucket
}

func (c *Client) PresignTTL() time.Duration {
	if c.cfg.PresignTTL > 0 {
		return c.cfg.PresignTTL
	}
	return time.Hour
}

func (c *Client) presignOptions(po *s3.PresignOptions) {
	po.Expires = c.PresignTTL()
}

// PresignPut returns a URL for a single PUT of the whole object.
// Content type and length are part of the signature.
func (c *Client) PresignPut(ctx context.Context, key, contentType string, sizeBytes int64) (string, error) {
	if c == nil {
		return "", errors.New("s3 client not initialized")
	}
	if key == "" {
		return "", errors.New("object key is required")
	}
	input := &s3.PutObjectInput{
		Bucket: aws.String(c.cfg.Bucket),
		Key:    aws.String(key),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if sizeBytes > 0 {
		input.ContentLength = aws.Int64(sizeBytes)
	}

	presigned, err := c.presign.PresignPutObject(ctx, input, c.presignOptions)
	if err != nil {
		return "", err
	}
	return presigned.URL, nil
}

// CreateMultipart opens a multipart upload and returns its upload id.
func (c *Client) CreateMultipart(ctx context.Context, key, contentType string) (string, error) {
	if key == "" {
		return "", errors.New("object key is required")
	}
	input := &s3.CreateMultipartUploadInput{
		Bucket: aws.String(c.cfg.Bucket),
		Key:    aws.String(key),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	out, err := c.s3.CreateMultipartUpload(ctx, input)
	if err != nil {
		return "", fmt.Errorf("create multipart upload: %w", err)
	}
	if out.UploadId == nil || *out.UploadId == "" {
		return "", errors.New("create multipart upload: storage returned no upload id")
	}
	return *out.UploadId, nil
}

// PresignPart returns a URL for one UploadPart request.
func (c *Client) PresignPart(ctx context.Context, key, uploadID string, partNumber int) (string, error) {
	if partNumber < 1 || partNumber > MaxParts {
		return "", fmt.Errorf("part number %d out of range", partNumber)
	}
	presigned, err := c.presign.PresignUploadPart(ctx, &s3.UploadPartInput{
		Bucket:     aws.String(c.cfg.Bucket),
		Key:        aws.String(key),
		UploadId:   aws.String(uploadID),
		PartNumber: aws.Int32(int32(partNumber)),
	}, c.presignOptions)
	if err != nil {
		return "", err
	}
	return presigned.URL, nil
}

// CompleteMultipart merges the parts, which must be sorted by part number.
func (c *Client) CompleteMultipart(ctx context.Context, key, uploadID string, parts []upload.PartResult) error {
	completed := make([]types.CompletedPart, 0, len(parts))
	for _, p := range parts {
		completed = append(completed, types.CompletedPart{
			ETag:       aws.String(p.ETag),
			PartNumber: aws.Int32(int32(p.PartNumber)),
		})
	}

	_, err := c.s3.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:          aws.String(c.cfg.Bucket),
		Key:             aws.String(key),
		UploadId:        aws.String(uploadID),
		MultipartUpload: &types.CompletedMultipartUpload{Parts: completed},
	})
	if err != nil {
		return fmt.Errorf("complete multipart upload: %w", err)
	}
	return nil
}

// AbortMultipart discards the upload and its parts. An upload storage no longer
// knows about counts as released.
func (c *Client) AbortMultipart(ctx context.Context, key, uploadID string) error {
	_, err := c.s3.AbortMultipartUpload(ctx, &s3.AbortMultipartUploadInput{
		Bucket:   aws.String(c.cfg.Bucket),
		Key:      aws.String(key),
		UploadId: aws.String(uploadID),
	})
	if err == nil || IsNoSuchUpload(err) {
		return nil
	}
	return fmt.Errorf("abort multipart upload: %w", err)
}

func IsNoSuchUpload(err error) bool {
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == "NoSuchUpload"
}

// FileURL is where the stored object can be fetched from.
func (c *Client) FileURL(key string) string {
	if c == nil || key == "" {
		return ""
	}
	if c.cfg.PublicBase != "" {
		return strings.TrimRight(c.cfg.PublicBase, "/") + "/" + key
	}
	if c.cfg.Endpoint != "" {
		return strings.TrimRight(c.cfg.Endpoint, "/") + "/" + c.cfg.Bucket + "/" + key
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", c.cfg.Bucket, c.cfg.Region, key)
}

// PartSizeFor picks the part size for an object of the given size: the configured
// size, never below the storage minimum, grown until the object fits in MaxParts.
func (c *Client) PartSizeFor(size int64) int64 {
	partSize := c.cfg.PartSize
	if partSize < MinPartSize {
		partSize = MinPartSize
	}
	if size > partSize*MaxParts {
		partSize = (size + MaxParts - 1) / MaxParts
	}
	return partSize
}
