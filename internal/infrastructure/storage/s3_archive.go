// Package storage archives raw catalog source payloads in S3-compatible object storage.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"

	syncapp "github.com/zetta/backend/internal/application/catalogsync"
	infraconfig "github.com/zetta/backend/internal/infrastructure/config"
)

var (
	_ syncapp.PayloadArchive = (*S3PayloadArchive)(nil)
	_ syncapp.PayloadArchive = NoopPayloadArchive{}
)

var contentTypes = map[string]string{
	"json": "application/json",
	"csv":  "text/csv",
	"xml":  "application/xml",
}

// S3PayloadArchive writes raw source bodies to a bucket. It works with AWS S3
// and S3-compatible servers such as MinIO.
type S3PayloadArchive struct {
	client    *s3.Client
	bucket    string
	keyPrefix string
	logger    *zap.Logger
}

// S3ArchiveOption configures an S3PayloadArchive
type S3ArchiveOption func(*S3PayloadArchive)

// WithLogger sets the archive logger
func WithLogger(logger *zap.Logger) S3ArchiveOption {
	return func(a *S3PayloadArchive) {
		a.logger = logger
	}
}

// NewS3PayloadArchive creates an archive from storage settings.
func NewS3PayloadArchive(ctx context.Context, cfg *infraconfig.StorageConfig, opts ...S3ArchiveOption) (*S3PayloadArchive, error) {
	if cfg == nil {
		return nil, errors.New("storage configuration is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("storage bucket is required")
	}

	loadOpts := []func(*config.LoadOptions) error{
		config.WithRegion(regionOrDefault(cfg.Region)),
	}
	// Without static keys the default chain (env, shared profile, instance role) applies.
	if cfg.AccessKey != "" || cfg.SecretKey != "" {
		if cfg.AccessKey == "" || cfg.SecretKey == "" {
			return nil, errors.New("storage access key and secret key must be set together")
		}
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	endpoint, err := normalizeEndpoint(cfg.Endpoint, cfg.UseSSL)
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	a := &S3PayloadArchive{
		client:    client,
		bucket:    cfg.Bucket,
		keyPrefix: strings.Trim(cfg.KeyPrefix, "/"),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

func regionOrDefault(region string) string {
	if region == "" {
		return "us-east-1"
	}
	return region
}

// normalizeEndpoint adds a scheme to bare host:port endpoints. An empty
// endpoint means the regional AWS endpoint.
func normalizeEndpoint(endpoint string, useSSL bool) (string, error) {
	if endpoint == "" {
		return "", nil
	}
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		if useSSL {
			endpoint = "https://" + endpoint
		} else {
			endpoint = "http://" + endpoint
		}
	}
	if _, err := url.Parse(endpoint); err != nil {
		return "", fmt.Errorf("invalid storage endpoint: %w", err)
	}
	return endpoint, nil
}

// EnsureBucket creates the bucket if it doesn't exist.
func (a *S3PayloadArchive) EnsureBucket(ctx context.Context) error {
	_, err := a.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(a.bucket)})
	if err == nil {
		return nil
	}

	var notFound *types.NotFound
	var noSuchBucket *types.NoSuchBucket
	if !errors.As(err, &notFound) && !errors.As(err, &noSuchBucket) {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	a.logger.Info("creating archive bucket", zap.String("bucket", a.bucket))
	_, err = a.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(a.bucket)})
	if err != nil {
		var alreadyOwned *types.BucketAlreadyOwnedByYou
		if errors.As(err, &alreadyOwned) {
			return nil
		}
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

// ObjectKey returns where a payload is stored:
// {prefix}/{seller}/{config}/{yyyy}/{mm}/{dd}/{log id}.{format}
func (a *S3PayloadArchive) ObjectKey(p syncapp.ArchivedPayload) string {
	ext := p.Format
	if ext == "" {
		ext = "bin"
	}
	started := p.StartedAt.UTC()
	return path.Join(
		a.keyPrefix,
		p.SellerID.String(),
		p.ConfigID.String(),
		started.Format("2006/01/02"),
		p.SyncLogID.String()+"."+ext,
	)
}

// Archive uploads the payload and returns its object key.
func (a *S3PayloadArchive) Archive(ctx context.Context, p syncapp.ArchivedPayload) (string, error) {
	key := a.ObjectKey(p)
	contentType, ok := contentTypes[p.Format]
	if !ok {
		contentType = "application/octet-stream"
	}

	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(a.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(p.Body),
		ContentLength: aws.Int64(int64(len(p.Body))),
		ContentType:   aws.String(contentType),
		Metadata: map[string]string{
			"config-id": p.ConfigID.String(),
			"sync-log":  p.SyncLogID.String(),
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to archive payload %s: %w", key, err)
	}

	a.logger.Debug("payload archived",
		zap.String("bucket", a.bucket),
		zap.String("key", key),
		zap.Int("bytes", len(p.Body)),
	)
	return key, nil
}

// Bucket returns the bucket name
func (a *S3PayloadArchive) Bucket() string {
	return a.bucket
}

// NoopPayloadArchive discards payloads. It is used when storage is disabled.
type NoopPayloadArchive struct{}

// Archive returns an empty key
func (NoopPayloadArchive) Archive(context.Context, syncapp.ArchivedPayload) (string, error) {
	return "", nil
}
