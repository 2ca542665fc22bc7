package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"skyvault/internal/domain/models/drive"
)

const providerS3 = "s3"

// S3Config contains configuration for the S3 object store
type S3Config struct {
	Bucket    string
	Region    string
	Endpoint  string // optional, for S3-compatible storage
	AccessKey string // optional, falls back to the default credential chain
	SecretKey string
	// Timeout bounds every single S3 call. Storage failures must surface
	// quickly so the caller can roll back its half of a compensating pair.
	Timeout time.Duration
}

// S3ObjectStore implements ObjectStore on Amazon S3 or S3-compatible storage.
//
// Object keys are "<area>/<key>", so relocation between the active and
// quarantine areas is a server-side copy plus delete; bytes never transit
// this process.
type S3ObjectStore struct {
	client  *s3.Client
	presign *s3.PresignClient
	bucket  string
	timeout time.Duration
	logger  *slog.Logger
}

// NewS3ObjectStore creates an S3-backed object store
func NewS3ObjectStore(ctx context.Context, cfg S3Config, logger *slog.Logger) (*S3ObjectStore, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	var opts []func(*awsconfig.LoadOptions) error
	opts = append(opts, awsconfig.WithRegion(cfg.Region))
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3ObjectStore{
		client:  client,
		presign: s3.NewPresignClient(client),
		bucket:  cfg.Bucket,
		timeout: cfg.Timeout,
		logger:  logger,
	}, nil
}

// Put durably stores content under the active area
func (s *S3ObjectStore) Put(ctx context.Context, key string, body io.Reader, contentType string) (drive.StorageLocator, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	fullKey := areaKey(AreaActive, key)
	out, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(fullKey),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return drive.StorageLocator{}, fmt.Errorf("put object %s: %w", fullKey, err)
	}

	loc := drive.StorageLocator{
		Provider: providerS3,
		Bucket:   s.bucket,
		Key:      fullKey,
	}
	if out.ETag != nil {
		loc.ETag = strings.Trim(*out.ETag, `"`)
	}
	return loc, nil
}

// Relocate copies the object into the target area and deletes the source
func (s *S3ObjectStore) Relocate(ctx context.Context, loc drive.StorageLocator, target Area) (drive.StorageLocator, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	newKey := areaKey(target, stripArea(loc.Key))
	if newKey == loc.Key {
		return loc, nil
	}

	source := url.PathEscape(loc.Bucket + "/" + loc.Key)
	_, err := s.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(s.bucket),
		Key:        aws.String(newKey),
		CopySource: aws.String(source),
	})
	if err != nil {
		return drive.StorageLocator{}, fmt.Errorf("copy object to %s: %w", newKey, err)
	}

	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(loc.Bucket),
		Key:    aws.String(loc.Key),
	}); err != nil {
		// The copy succeeded; a dangling source is harmless and the next
		// relocation overwrites it. Log and carry on.
		s.logger.Warn("relocate: source delete failed", "key", loc.Key, "error", err)
	}

	newLoc := loc
	newLoc.Bucket = s.bucket
	newLoc.Key = newKey
	return newLoc, nil
}

// Delete removes the object; missing objects are not an error
func (s *S3ObjectStore) Delete(ctx context.Context, loc drive.StorageLocator) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(loc.Bucket),
		Key:    aws.String(loc.Key),
	})
	if err != nil {
		return fmt.Errorf("delete object %s: %w", loc.Key, err)
	}
	return nil
}

// PresignedGetURL issues a temporary read URL
func (s *S3ObjectStore) PresignedGetURL(ctx context.Context, loc drive.StorageLocator, ttl time.Duration) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(loc.Bucket),
		Key:    aws.String(loc.Key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("presign get %s: %w", loc.Key, err)
	}
	return req.URL, nil
}

func areaKey(area Area, key string) string {
	return string(area) + "/" + key
}

// stripArea removes a leading area segment from a stored key, if present.
func stripArea(key string) string {
	for _, a := range []Area{AreaActive, AreaQuarantine} {
		if rest, ok := strings.CutPrefix(key, string(a)+"/"); ok {
			return rest
		}
	}
	return key
}
