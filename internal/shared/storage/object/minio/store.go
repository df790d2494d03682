package minio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"gallery-backend/internal/shared/storage/object"
	"gallery-backend/internal/shared/telemetry"
)

// Options configures a MinIO (or any S3-compatible) backend.
type Options struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	Bucket        string
	Prefix        string
	UseSSL        bool
	PublicBaseURL string
	// Region skips the bucket location lookup when set.
	Region string
}

// Store implements ObjectStore on top of minio-go.
type Store struct {
	client     *minio.Client
	bucket     string
	prefix     string
	publicBase string
}

// New creates a MinIO client and makes sure the bucket exists.
func New(ctx context.Context, opts Options) (*Store, error) {
	if strings.TrimSpace(opts.Bucket) == "" {
		return nil, fmt.Errorf("minio bucket is required")
	}
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
		Region: opts.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, opts.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket existence: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, opts.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %q: %w", opts.Bucket, err)
		}
		telemetry.Info("storage.bucket.created", map[string]any{"bucket": opts.Bucket})
	}

	publicBase := strings.TrimSpace(opts.PublicBaseURL)
	if publicBase == "" {
		scheme := "http"
		if opts.UseSSL {
			scheme = "https"
		}
		publicBase = fmt.Sprintf("%s://%s/%s", scheme, opts.Endpoint, opts.Bucket)
	}

	return &Store{
		client:     client,
		bucket:     opts.Bucket,
		prefix:     object.NormalizePrefix(opts.Prefix),
		publicBase: strings.TrimRight(publicBase, "/"),
	}, nil
}

// Put uploads body with its exact size so MinIO performs a single-part upload.
func (s *Store) Put(ctx context.Context, body []byte, contentType, originalName string) (object.Object, error) {
	if err := ctx.Err(); err != nil {
		return object.Object{}, fmt.Errorf("%w: %w", object.ErrWrite, err)
	}
	key := object.NewKey(originalName)
	objectKey := object.ApplyPrefix(s.prefix, key)

	_, err := s.client.PutObject(ctx, s.bucket, objectKey, bytes.NewReader(body), int64(len(body)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return object.Object{}, fmt.Errorf("%w: put object %q: %w", object.ErrWrite, objectKey, err)
	}
	return object.Object{
		Key:         key,
		URL:         object.URLFor(s.publicBase, s.prefix, key),
		ContentType: contentType,
		SizeBytes:   int64(len(body)),
	}, nil
}

// Delete removes the object at key. RemoveObject succeeds for missing keys.
func (s *Store) Delete(ctx context.Context, urlOrKey string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", object.ErrDelete, err)
	}
	key, err := object.KeyFromRef(urlOrKey, s.prefix)
	if err != nil {
		return err
	}
	objectKey := object.ApplyPrefix(s.prefix, key)
	if err := s.client.RemoveObject(ctx, s.bucket, objectKey, minio.RemoveObjectOptions{}); err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil
		}
		return fmt.Errorf("%w: remove object %q: %w", object.ErrDelete, objectKey, err)
	}
	return nil
}

// Open streams an object back. Missing objects surface as object.ErrNotFound.
func (s *Store) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	objectKey := object.ApplyPrefix(s.prefix, key)
	if _, err := s.client.StatObject(ctx, s.bucket, objectKey, minio.StatObjectOptions{}); err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, fmt.Errorf("%w: %s", object.ErrNotFound, key)
		}
		return nil, fmt.Errorf("stat object %q: %w", objectKey, err)
	}
	obj, err := s.client.GetObject(ctx, s.bucket, objectKey, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get object %q: %w", objectKey, err)
	}
	return obj, nil
}

var _ object.ObjectStore = (*Store)(nil)
