package images

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gallery-backend/internal/shared/metrics"
	"gallery-backend/internal/shared/telemetry"
)

// ErrUnknownInconsistency is returned for a report kind the reconciler cannot act on.
var ErrUnknownInconsistency = errors.New("unknown inconsistency kind")

// Reconciler repairs reported inconsistencies out of band. Every action is
// idempotent, so a report may be delivered more than once.
type Reconciler struct {
	Svc *Service
}

// Resolve re-checks both stores and removes whichever half is left over.
func (r *Reconciler) Resolve(ctx context.Context, inc Inconsistency) error {
	switch inc.Kind {
	case InconsistencyOrphanedObject:
		return r.resolveOrphan(ctx, inc)
	case InconsistencyDanglingRecord:
		return r.resolveDangling(ctx, inc)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownInconsistency, inc.Kind)
	}
}

// resolveOrphan deletes the object only when no record references it. A
// create that timed out on the client may still have committed.
func (r *Reconciler) resolveOrphan(ctx context.Context, inc Inconsistency) error {
	key := strings.TrimSpace(inc.ObjectKey)
	if key == "" {
		return validationError("reconcile", "object key is required")
	}
	s := r.Svc

	getCtx, cancel := s.withTimeout(ctx)
	img, err := s.Repo.GetByObjectKey(getCtx, key)
	cancel()
	switch {
	case err == nil:
		telemetry.Info("reconcile.orphan.referenced", map[string]any{"object_key": key, "image_id": img.ID})
		metrics.IncReconciled(inc.Kind, "skipped")
		return nil
	case !errors.Is(err, ErrNotFound):
		return &OpError{Op: "reconcile", Kind: ErrCatalogRead, ObjectKey: key, Err: err}
	}

	delCtx, cancel := s.withTimeout(ctx)
	err = s.Store.Delete(delCtx, key)
	cancel()
	if err != nil {
		metrics.IncStoreFailure("object", "delete")
		return &OpError{Op: "reconcile", Kind: ErrStoreDelete, ObjectKey: key, Err: err}
	}
	telemetry.Info("reconcile.orphan.deleted", map[string]any{"object_key": key})
	metrics.IncReconciled(inc.Kind, "repaired")
	return nil
}

// resolveDangling finishes a delete whose record removal failed.
func (r *Reconciler) resolveDangling(ctx context.Context, inc Inconsistency) error {
	if inc.ImageID <= 0 {
		return validationError("reconcile", "image id is required")
	}
	err := r.Svc.Delete(ctx, inc.ImageID)
	if errors.Is(err, ErrNotFound) {
		metrics.IncReconciled(inc.Kind, "skipped")
		return nil
	}
	if err != nil {
		return err
	}
	telemetry.Info("reconcile.dangling.deleted", map[string]any{"image_id": inc.ImageID, "object_key": inc.ObjectKey})
	metrics.IncReconciled(inc.Kind, "repaired")
	return nil
}
