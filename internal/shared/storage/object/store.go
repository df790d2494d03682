package object

import (
	"context"
	"errors"
	"io"
)

var (
	// ErrWrite indicates the object could not be written. No partial object is left behind.
	ErrWrite = errors.New("object store write failed")
	// ErrDelete indicates a transient delete failure; the caller may retry.
	ErrDelete = errors.New("object store delete failed")
	// ErrNotFound indicates the object does not exist.
	ErrNotFound = errors.New("object not found")
	// ErrInvalidKey indicates a key or URL that cannot address an object.
	ErrInvalidKey = errors.New("invalid object key")
)

// Object describes a stored binary.
type Object struct {
	Key         string
	URL         string
	ContentType string
	SizeBytes   int64
}

// ObjectStore defines the contract for saving, reading and deleting binary objects.
type ObjectStore interface {
	Put(ctx context.Context, body []byte, contentType, originalName string) (Object, error)
	Delete(ctx context.Context, urlOrKey string) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}
