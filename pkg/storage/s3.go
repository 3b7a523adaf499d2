package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Presigned GET URLs cannot outlive seven days with SigV4.
const maxPresignTTL = 7 * 24 * time.Hour

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
	deleteObject = func(c *s3.Client, ctx context.Context, in *s3.DeleteObjectInput) (*s3.DeleteObjectOutput, error) {
		return c.DeleteObject(ctx, in)
	}
)

type S3Config struct {
	Region    string
	Endpoint  string // MinIO or other S3-compatible endpoint; empty for AWS
	AccessKey string
	SecretKey string
	Bucket    string
	// PublicBaseURL, when set, is used to build permanent object URLs
	// (<base>/<key>) instead of presigned GET URLs.
	PublicBaseURL string
	URLTTL        time.Duration
}

type s3Storage struct {
	cfg        S3Config
	client     *s3.Client
	presign    *s3.PresignClient
	httpClient *http.Client
}

// NewS3Storage creates an S3-backed BlobStorage. Binaries are written through
// a presigned PUT so the transfer is a plain streamed HTTP body.
func NewS3Storage(ctx context.Context, cfg S3Config) (BlobStorage, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is not configured")
	}

	awsCfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	if cfg.URLTTL <= 0 || cfg.URLTTL > maxPresignTTL {
		cfg.URLTTL = maxPresignTTL
	}

	return &s3Storage{
		cfg:        cfg,
		client:     client,
		presign:    newS3PresignClient(client),
		httpClient: &http.Client{},
	}, nil
}

func (s *s3Storage) Upload(ctx context.Context, in UploadInput) (string, error) {
	bucket := s.cfg.Bucket
	key := in.Key

	putIn := &s3.PutObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}
	if in.ContentType != "" {
		putIn.ContentType = aws.String(in.ContentType)
	}

	signed, err := presignPutObject(s.presign, ctx, putIn, s3.WithPresignExpires(15*time.Minute))
	if err != nil {
		return "", fmt.Errorf("failed to presign upload: %w", err)
	}

	// A non-nil body with ContentLength 0 is sent chunked, which S3 rejects.
	body := in.Reader
	if in.Size == 0 {
		body = http.NoBody
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, signed.URL, body)
	if err != nil {
		return "", err
	}
	req.ContentLength = in.Size
	for name, values := range signed.SignedHeader {
		if strings.EqualFold(name, "host") {
			continue
		}
		for _, v := range values {
			req.Header.Add(name, v)
		}
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to upload object: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("object store returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return s.URL(ctx, key)
}

func (s *s3Storage) Delete(ctx context.Context, key string) error {
	bucket := s.cfg.Bucket
	if _, err := deleteObject(s.client, ctx, &s3.DeleteObjectInput{Bucket: &bucket, Key: &key}); err != nil {
		return fmt.Errorf("failed to delete object %s: %w", key, err)
	}
	return nil
}

// URL returns <PublicBaseURL>/<key> when a public base is configured and a
// freshly presigned GET valid for URLTTL otherwise.
func (s *s3Storage) URL(ctx context.Context, key string) (string, error) {
	if s.cfg.PublicBaseURL != "" {
		return strings.TrimRight(s.cfg.PublicBaseURL, "/") + "/" + key, nil
	}

	bucket := s.cfg.Bucket
	signed, err := presignGetObject(s.presign, ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(s.cfg.URLTTL))
	if err != nil {
		return "", fmt.Errorf("failed to presign download: %w", err)
	}

	return signed.URL, nil
}
