package images

import (
	"errors"
	"fmt"
	"strings"

	"gallery-backend/internal/shared/storage/object"
)

var (
	// ErrValidation indicates bad or missing input.
	ErrValidation = errors.New("validation error")
	// ErrNotFound indicates the referenced record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrStoreWrite indicates the object store rejected a write.
	ErrStoreWrite = object.ErrWrite
	// ErrStoreDelete indicates a retryable object store delete failure.
	ErrStoreDelete = object.ErrDelete
	// ErrCatalogWrite indicates the catalog store failed to persist a change.
	ErrCatalogWrite = errors.New("catalog write failed")
	// ErrCatalogRead indicates the catalog store failed to answer a query.
	ErrCatalogRead = errors.New("catalog read failed")
	// ErrDuplicateKey is returned by a Repo when an object key is already cataloged.
	ErrDuplicateKey = errors.New("object key already cataloged")
)

// OpError carries the failing operation and the identifiers needed for cleanup.
// It matches both its Kind and its cause with errors.Is.
type OpError struct {
	Op        string
	Kind      error
	ImageID   int64
	ObjectKey string
	Err       error
}

func (e *OpError) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.ImageID != 0 {
		fmt.Fprintf(&b, " id=%d", e.ImageID)
	}
	if e.ObjectKey != "" {
		fmt.Fprintf(&b, " key=%s", e.ObjectKey)
	}
	if e.Kind != nil {
		b.WriteString(": ")
		b.WriteString(e.Kind.Error())
	}
	if e.Err != nil && e.Err != e.Kind {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *OpError) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

func validationError(op, msg string) error {
	return &OpError{Op: op, Kind: ErrValidation, Err: errors.New(msg)}
}
