package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gallery-backend/internal/shared/storage/object"
)

// Store implements ObjectStore using the local filesystem.
type Store struct {
	baseDir    string
	prefix     string
	publicBase string
}

// New creates a new local object store rooted at baseDir. URLs are built from publicBase.
func New(baseDir, prefix, publicBase string) *Store {
	return &Store{
		baseDir:    baseDir,
		prefix:     object.NormalizePrefix(prefix),
		publicBase: publicBase,
	}
}

// Prefix returns the path segment objects are stored and served under.
func (s *Store) Prefix() string { return s.prefix }

// Put writes body under a freshly generated key. The file is written to a temporary
// name and renamed so a partial object is never visible.
func (s *Store) Put(ctx context.Context, body []byte, contentType, originalName string) (object.Object, error) {
	if err := ctx.Err(); err != nil {
		return object.Object{}, fmt.Errorf("%w: %w", object.ErrWrite, err)
	}

	key := object.NewKey(originalName)
	dirPath := filepath.Join(s.baseDir, filepath.FromSlash(s.prefix))
	if err := os.MkdirAll(dirPath, 0o755); err != nil {
		return object.Object{}, fmt.Errorf("%w: mkdir: %w", object.ErrWrite, err)
	}

	tmp, err := os.CreateTemp(dirPath, ".upload-*")
	if err != nil {
		return object.Object{}, fmt.Errorf("%w: create temp: %w", object.ErrWrite, err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(body); err != nil {
		_ = tmp.Close()
		cleanup()
		return object.Object{}, fmt.Errorf("%w: write body: %w", object.ErrWrite, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return object.Object{}, fmt.Errorf("%w: close temp: %w", object.ErrWrite, err)
	}
	if err := os.Rename(tmpName, filepath.Join(dirPath, key)); err != nil {
		cleanup()
		return object.Object{}, fmt.Errorf("%w: rename: %w", object.ErrWrite, err)
	}

	return object.Object{
		Key:         key,
		URL:         object.URLFor(s.publicBase, s.prefix, key),
		ContentType: contentType,
		SizeBytes:   int64(len(body)),
	}, nil
}

// Delete removes the object. A missing object is not an error.
func (s *Store) Delete(ctx context.Context, urlOrKey string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", object.ErrDelete, err)
	}
	key, err := object.KeyFromRef(urlOrKey, s.prefix)
	if err != nil {
		return err
	}
	fullPath, err := s.pathFor(key)
	if err != nil {
		return err
	}
	if err := os.Remove(fullPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: remove %s: %w", object.ErrDelete, key, err)
	}
	return nil
}

// Open opens a stored object for reading.
func (s *Store) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fullPath, err := s.pathFor(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(fullPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", object.ErrNotFound, key)
		}
		return nil, err
	}
	return f, nil
}

func (s *Store) pathFor(key string) (string, error) {
	if !object.ValidKey(key) {
		return "", fmt.Errorf("%w: %q", object.ErrInvalidKey, key)
	}
	return filepath.Join(s.baseDir, filepath.FromSlash(s.prefix), key), nil
}

var _ object.ObjectStore = (*Store)(nil)
