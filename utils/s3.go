package utils

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/raushankrgupta/fitly-tryon/config"
)

// BucketSpec describes a bucket provisioned at startup.
type BucketSpec struct {
	Name   string
	Public bool
}

// S3Store stores try-on images in an S3 compatible object store.
type S3Store struct {
	client  *s3.Client
	presign *s3.PresignClient

	region        string
	endpoint      string
	pathStyle     bool
	publicBaseURL string
	presignExpiry time.Duration
}

// NewS3Store initializes the S3 client from cfg. AWS_S3_ENDPOINT points it at MinIO or another
// S3 compatible service.
func NewS3Store(ctx context.Context, cfg *config.Config) (*S3Store, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
		}
		o.UsePathStyle = cfg.S3UsePathStyle
	})

	return &S3Store{
		client:        client,
		presign:       s3.NewPresignClient(client),
		region:        cfg.AWSRegion,
		endpoint:      strings.TrimRight(cfg.S3Endpoint, "/"),
		pathStyle:     cfg.S3UsePathStyle,
		publicBaseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
		presignExpiry: cfg.PresignExpiration,
	}, nil
}

// Upload puts data under bucket/key and returns the object key.
func (s *S3Store) Upload(ctx context.Context, bucket, key string, data []byte, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s/%s: %w", bucket, key, err)
	}
	return key, nil
}

// PublicURL returns the unsigned URL of an object in a public bucket.
func (s *S3Store) PublicURL(bucket, key string) string {
	escaped := escapeKey(key)

	if s.publicBaseURL != "" {
		return fmt.Sprintf("%s/%s/%s", s.publicBaseURL, bucket, escaped)
	}

	if s.endpoint != "" {
		u, err := url.Parse(s.endpoint)
		if err != nil || u.Host == "" {
			return fmt.Sprintf("%s/%s/%s", s.endpoint, bucket, escaped)
		}
		if s.pathStyle {
			return fmt.Sprintf("%s://%s/%s/%s", u.Scheme, u.Host, bucket, escaped)
		}
		return fmt.Sprintf("%s://%s.%s/%s", u.Scheme, bucket, u.Host, escaped)
	}

	if s.pathStyle {
		return fmt.Sprintf("https://s3.%s.amazonaws.com/%s/%s", s.region, bucket, escaped)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", bucket, s.region, escaped)
}

// PresignedURL generates a presigned GET URL for an object in a private bucket
func (s *S3Store) PresignedURL(ctx context.Context, bucket, key string) (string, error) {
	expiry := s.presignExpiry
	if expiry <= 0 {
		expiry = time.Hour
	}

	request, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expiry))
	if err != nil {
		return "", fmt.Errorf("failed to sign request: %w", err)
	}

	return request.URL, nil
}

// EnsureBuckets creates missing buckets and attaches a public read policy where asked.
// Failures are logged and skipped so a misconfigured bucket does not stop the server.
func (s *S3Store) EnsureBuckets(ctx context.Context, logger *slog.Logger, buckets []BucketSpec) {
	for _, b := range buckets {
		if err := s.ensureBucket(ctx, b); err != nil {
			logger.Error("could not provision bucket", "bucket", b.Name, "err", err)
			continue
		}
		logger.Info("bucket ready", "bucket", b.Name, "public", b.Public)
	}
}

func (s *S3Store) ensureBucket(ctx context.Context, b BucketSpec) error {
	input := &s3.CreateBucketInput{Bucket: aws.String(b.Name)}
	if s.region != "" && s.region != "us-east-1" {
		input.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(s.region),
		}
	}

	if _, err := s.client.CreateBucket(ctx, input); err != nil && !bucketExists(err) {
		return fmt.Errorf("create bucket: %w", err)
	}

	if !b.Public {
		return nil
	}
	_, err := s.client.PutBucketPolicy(ctx, &s3.PutBucketPolicyInput{
		Bucket: aws.String(b.Name),
		Policy: aws.String(publicReadPolicy(b.Name)),
	})
	if err != nil {
		return fmt.Errorf("put bucket policy: %w", err)
	}
	return nil
}

func bucketExists(err error) bool {
	var owned *types.BucketAlreadyOwnedByYou
	var exists *types.BucketAlreadyExists
	if errors.As(err, &owned) || errors.As(err, &exists) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "BucketAlreadyOwnedByYou", "BucketAlreadyExists":
			return true
		}
	}
	return false
}

func publicReadPolicy(bucket string) string {
	return fmt.Sprintf(`{"Version":"2012-10-17","Statement":[{"Effect":"Allow","Principal":"*","Action":["s3:GetObject"],"Resource":["arn:aws:s3:::%s/*"]}]}`, bucket)
}

func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
