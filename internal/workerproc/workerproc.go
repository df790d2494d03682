package workerproc

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"gallery-backend/internal/images"
	"gallery-backend/internal/shared/queue"
	"gallery-backend/internal/shared/telemetry"
)

// Resolver repairs one reported inconsistency.
type Resolver interface {
	Resolve(ctx context.Context, inc images.Inconsistency) error
}

// MessageMeta captures details useful for logging and diagnostics.
type MessageMeta struct {
	BodyLen int
	BodySHA string
}

// ComputeMeta returns the body length and SHA-256 hash.
func ComputeMeta(body string) MessageMeta {
	if body == "" {
		return MessageMeta{BodyLen: 0, BodySHA: ""}
	}
	sum := sha256.Sum256([]byte(body))
	return MessageMeta{BodyLen: len(body), BodySHA: hex.EncodeToString(sum[:])}
}

// ErrEmptyBody indicates an empty queue payload.
type ErrEmptyBody struct {
	Meta MessageMeta
}

func (e ErrEmptyBody) Error() string { return "empty message body" }

// ErrDecode indicates a JSON decode failure.
type ErrDecode struct {
	Meta MessageMeta
	Err  error
}

func (e ErrDecode) Error() string {
	if e.Err == nil {
		return "decode message"
	}
	return "decode message: " + e.Err.Error()
}

// ErrInvalidMessage indicates a decoded message that can never be processed.
type ErrInvalidMessage struct {
	Meta      MessageMeta
	RequestID string
	Reason    string
}

func (e ErrInvalidMessage) Error() string { return "invalid message: " + e.Reason }

// ErrProcess indicates processing failed after successful parsing.
type ErrProcess struct {
	Kind      string
	ImageID   int64
	ObjectKey string
	RequestID string
	Err       error
}

func (e ErrProcess) Error() string {
	if e.Err == nil {
		return "reconcile " + e.Kind
	}
	return "reconcile " + e.Kind + ": " + e.Err.Error()
}

func (e ErrProcess) Unwrap() error { return e.Err }

// Unrecoverable reports whether err means the message should be dropped rather
// than redelivered.
func Unrecoverable(err error) bool {
	switch err.(type) {
	case ErrEmptyBody, ErrDecode, ErrInvalidMessage:
		return true
	}
	var procErr ErrProcess
	if errors.As(err, &procErr) {
		return errors.Is(procErr.Err, images.ErrValidation) || errors.Is(procErr.Err, images.ErrUnknownInconsistency)
	}
	return false
}

// ParseMessage validates and decodes the queue payload.
func ParseMessage(body string) (queue.Message, MessageMeta, error) {
	meta := ComputeMeta(body)
	if strings.TrimSpace(body) == "" {
		return queue.Message{}, meta, ErrEmptyBody{Meta: meta}
	}

	msg, err := queue.DecodeMessage([]byte(body))
	if err != nil {
		return queue.Message{}, meta, ErrDecode{Meta: meta, Err: err}
	}
	switch msg.Kind {
	case queue.KindOrphanedObject:
		if strings.TrimSpace(msg.ObjectKey) == "" {
			return msg, meta, ErrInvalidMessage{Meta: meta, RequestID: msg.RequestID, Reason: "missing object key"}
		}
	case queue.KindDanglingRecord:
		if msg.ImageID <= 0 {
			return msg, meta, ErrInvalidMessage{Meta: meta, RequestID: msg.RequestID, Reason: "missing image id"}
		}
	default:
		return msg, meta, ErrInvalidMessage{Meta: meta, RequestID: msg.RequestID, Reason: "unknown kind " + msg.Kind}
	}
	return msg, meta, nil
}

// HandleMessage parses, validates, and resolves a message payload.
func HandleMessage(ctx context.Context, resolver Resolver, body string) error {
	if resolver == nil {
		return errors.New("reconciler not configured")
	}

	msg, _, err := ParseMessage(body)
	if err != nil {
		return err
	}

	ctxWithRequest := telemetry.WithRequestID(ctx, msg.RequestID)
	inc := images.Inconsistency{
		Kind:      msg.Kind,
		ImageID:   msg.ImageID,
		ObjectKey: msg.ObjectKey,
	}
	if err := resolver.Resolve(ctxWithRequest, inc); err != nil {
		return ErrProcess{
			Kind:      msg.Kind,
			ImageID:   msg.ImageID,
			ObjectKey: msg.ObjectKey,
			RequestID: msg.RequestID,
			Err:       err,
		}
	}
	return nil
}
