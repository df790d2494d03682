package images

import (
	"context"
	"time"

	"gallery-backend/internal/shared/queue"
	"gallery-backend/internal/shared/telemetry"
)

// Inconsistency kinds.
const (
	InconsistencyOrphanedObject = queue.KindOrphanedObject
	InconsistencyDanglingRecord = queue.KindDanglingRecord
)

// Inconsistency describes a detected disagreement between the object store and
// the catalog. It is reported, never returned as an error.
type Inconsistency struct {
	Kind      string
	ImageID   int64
	ObjectKey string
	Cause     error
}

// Reporter hands inconsistencies to an out-of-band cleaner.
type Reporter interface {
	Report(ctx context.Context, inc Inconsistency)
}

// QueueReporter publishes inconsistencies to a reconciliation queue.
type QueueReporter struct {
	Queue   queue.Client
	Timeout time.Duration
	Now     func() time.Time
}

// Report publishes inc. Publish failures are logged; the original failure is
// already being returned to the caller.
func (r *QueueReporter) Report(ctx context.Context, inc Inconsistency) {
	if r == nil || r.Queue == nil {
		return
	}
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	sendCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	msg := queue.Message{
		Kind:       inc.Kind,
		ImageID:    inc.ImageID,
		ObjectKey:  inc.ObjectKey,
		RequestID:  telemetry.RequestIDFromContext(ctx),
		DetectedAt: now().UTC().Format(time.RFC3339),
		Version:    1,
	}
	if inc.Cause != nil {
		msg.Reason = inc.Cause.Error()
	}
	if err := r.Queue.Send(sendCtx, msg); err != nil {
		telemetry.Error("catalog.inconsistency.publish_failed", map[string]any{
			"kind":       inc.Kind,
			"image_id":   inc.ImageID,
			"object_key": inc.ObjectKey,
			"err":        err.Error(),
		})
	}
}

var _ Reporter = (*QueueReporter)(nil)
