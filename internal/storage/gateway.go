package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	appconfig "github.com/piwcasokwa/backend/internal/config"
	"go.uber.org/zap"
)

// ErrObjectNotFound is returned by Delete when the key does not exist
var ErrObjectNotFound = errors.New("object not found")

// Overridable in tests
var (
	loadDefaultAWSConfig  = config.LoadDefaultConfig
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

type s3API interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

type presignAPI interface {
	PresignPutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

type s3Gateway struct {
	client    s3API
	presigner presignAPI
	bucket    string
	baseURL   string
	logger    *zap.Logger
}

// NewS3Gateway connects to the configured bucket.
// A custom endpoint (MinIO, GCS interoperability, R2) switches the client to path-style addressing.
func NewS3Gateway(ctx context.Context, cfg appconfig.StorageConfig, logger *zap.Logger) (*s3Gateway, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load storage config: %w", err)
	}

	client := newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &s3Gateway{
		client:    client,
		presigner: s3.NewPresignClient(client),
		bucket:    cfg.Bucket,
		baseURL:   cfg.PublicBaseURL,
		logger:    logger,
	}, nil
}

// Method PresignPut issues a write-scoped URL for key.
// The content type is part of the signature, so the PUT must send the same Content-Type header.
func (g *s3Gateway) PresignPut(ctx context.Context, key, contentType string, expiry time.Duration) (string, error) {
	req, err := g.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(g.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(expiry))
	if err != nil {
		return "", fmt.Errorf("failed to presign upload for %s: %w", key, err)
	}
	return req.URL, nil
}

// Method Delete removes key from the bucket.
// S3 deletes are idempotent, so existence is checked first to report ErrObjectNotFound.
func (g *s3Gateway) Delete(ctx context.Context, key string) error {
	_, err := g.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(g.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return ErrObjectNotFound
		}
		return fmt.Errorf("failed to stat object %s: %w", key, err)
	}

	if _, err := g.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(g.bucket),
		Key:    aws.String(key),
	}); err != nil {
		if isNotFound(err) {
			return ErrObjectNotFound
		}
		return fmt.Errorf("failed to delete object %s: %w", key, err)
	}

	g.logger.Debug("object deleted", zap.String("key", key))
	return nil
}

// Method PublicURL returns the canonical public URL of key
func (g *s3Gateway) PublicURL(key string) string {
	return PublicURL(g.baseURL, g.bucket, key)
}

// Method KeyFromPublicURL is the inverse of PublicURL
func (g *s3Gateway) KeyFromPublicURL(publicURL string) (string, error) {
	return KeyFromPublicURL(g.baseURL, g.bucket, publicURL)
}

func isNotFound(err error) bool {
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return true
		}
	}
	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) && respErr.HTTPStatusCode() == http.StatusNotFound {
		return true
	}
	return false
}
