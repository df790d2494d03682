package images

import (
	"context"
	"errors"
	"testing"
)

func TestReconcileOrphanDeletesUnreferencedObject(t *testing.T) {
	env := newTestEnv(t)
	env.svc.Repo = &failingRepo{MemoryRepo: env.repo, createErr: errors.New("db down")}
	if _, err := env.svc.Upload(context.Background(), UploadInput{Body: []byte("data"), OriginalName: "a.png"}); err == nil {
		t.Fatalf("expected upload to fail")
	}
	reports := env.reporter.all()
	if len(reports) != 1 {
		t.Fatalf("expected a report, got %d", len(reports))
	}

	env.svc.Repo = env.repo
	rec := &Reconciler{Svc: env.svc}
	if err := rec.Resolve(context.Background(), reports[0]); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if n := env.objectCount(t); n != 0 {
		t.Fatalf("expected orphan removed, got %d objects", n)
	}

	// Redelivery is harmless.
	if err := rec.Resolve(context.Background(), reports[0]); err != nil {
		t.Fatalf("resolve again: %v", err)
	}
}

func TestReconcileOrphanKeepsReferencedObject(t *testing.T) {
	env := newTestEnv(t)
	img, err := env.svc.Upload(context.Background(), UploadInput{Body: []byte("data"), OriginalName: "a.png"})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	rec := &Reconciler{Svc: env.svc}
	err = rec.Resolve(context.Background(), Inconsistency{Kind: InconsistencyOrphanedObject, ObjectKey: img.ObjectKey})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if n := env.objectCount(t); n != 1 {
		t.Fatalf("referenced object must survive, got %d objects", n)
	}
}

func TestReconcileDanglingRecordCompletesDelete(t *testing.T) {
	env := newTestEnv(t)
	img, err := env.svc.Upload(context.Background(), UploadInput{Body: []byte("data"), OriginalName: "a.png"})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	env.svc.Repo = &failingRepo{MemoryRepo: env.repo, deleteErr: errors.New("db down")}
	if err := env.svc.Delete(context.Background(), img.ID); err == nil {
		t.Fatalf("expected delete to fail")
	}
	reports := env.reporter.all()
	if len(reports) != 1 {
		t.Fatalf("expected a report, got %d", len(reports))
	}

	env.svc.Repo = env.repo
	rec := &Reconciler{Svc: env.svc}
	if err := rec.Resolve(context.Background(), reports[0]); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if _, err := env.svc.Get(context.Background(), img.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected record removed, got %v", err)
	}
	if err := rec.Resolve(context.Background(), reports[0]); err != nil {
		t.Fatalf("resolve again: %v", err)
	}
}

func TestReconcileRejectsUnknownKind(t *testing.T) {
	env := newTestEnv(t)
	rec := &Reconciler{Svc: env.svc}
	err := rec.Resolve(context.Background(), Inconsistency{Kind: "mystery"})
	if !errors.Is(err, ErrUnknownInconsistency) {
		t.Fatalf("expected ErrUnknownInconsistency, got %v", err)
	}
	err = rec.Resolve(context.Background(), Inconsistency{Kind: InconsistencyDanglingRecord})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}
