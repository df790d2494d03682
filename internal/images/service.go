package images

import (
	"bytes"
	"context"
	"errors"
	"image"
	_ "image/gif" // register decoders for dimension sniffing
	_ "image/jpeg"
	_ "image/png"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"

	"gallery-backend/internal/shared/metrics"
	"gallery-backend/internal/shared/storage/object"
	"gallery-backend/internal/shared/telemetry"
)

// MaxDescriptionLen bounds descriptions in runes.
const MaxDescriptionLen = 2000

// UploadInput is a single image to catalog.
type UploadInput struct {
	Body         []byte
	ContentType  string
	OriginalName string
	Description  string
}

// ListParams are the raw list inputs; Service.List normalizes them.
type ListParams struct {
	Page   int
	Limit  int
	Search string
}

// Service keeps the object store and the catalog in step. Writes go to the
// object store before the catalog on upload, and the object is removed before
// the record on delete, so the only possible leftovers are an orphaned object
// or a record whose object is already gone. Both are reported.
type Service struct {
	Store        object.ObjectStore
	Repo         Repo
	Reporter     Reporter
	StoreTimeout time.Duration

	now func() time.Time
}

// Upload stores the bytes and then records them in the catalog.
func (s *Service) Upload(ctx context.Context, in UploadInput) (Image, error) {
	start := time.Now()
	if len(in.Body) == 0 {
		return Image{}, validationError("upload", "file is required")
	}
	if utf8.RuneCountInString(in.Description) > MaxDescriptionLen {
		return Image{}, validationError("upload", "description is too long")
	}

	mimeType := detectMimeType(in.Body, in.ContentType)
	width, height := dimensions(in.Body)

	putCtx, cancel := s.withTimeout(ctx)
	obj, err := s.Store.Put(putCtx, in.Body, mimeType, in.OriginalName)
	cancel()
	if err != nil {
		metrics.IncStoreFailure("object", "put")
		return Image{}, &OpError{Op: "upload", Kind: ErrStoreWrite, Err: err}
	}

	rec := Image{
		ObjectKey:    obj.Key,
		URL:          obj.URL,
		Description:  in.Description,
		OriginalName: in.OriginalName,
		MimeType:     mimeType,
		SizeBytes:    int64(len(in.Body)),
		Width:        width,
		Height:       height,
		CreatedAt:    s.clock().UTC(),
	}

	createCtx, cancel := s.withTimeout(ctx)
	created, err := s.Repo.Create(createCtx, rec)
	cancel()
	if err != nil {
		metrics.IncStoreFailure("catalog", "create")
		s.report(ctx, Inconsistency{Kind: InconsistencyOrphanedObject, ObjectKey: obj.Key, Cause: err})
		return Image{}, &OpError{Op: "upload", Kind: ErrCatalogWrite, ObjectKey: obj.Key, Err: err}
	}

	metrics.IncUploaded()
	metrics.ObserveUploadDurationMs(float64(time.Since(start).Microseconds()) / 1000.0)
	return created, nil
}

// Get returns one record.
func (s *Service) Get(ctx context.Context, id int64) (Image, error) {
	getCtx, cancel := s.withTimeout(ctx)
	defer cancel()
	img, err := s.Repo.GetByID(getCtx, id)
	if err != nil {
		return Image{}, readError("get", id, err)
	}
	return img, nil
}

// Delete removes the object and then the record. An object delete failure
// leaves the record untouched so the call can be retried.
func (s *Service) Delete(ctx context.Context, id int64) error {
	img, err := s.Get(ctx, id)
	if err != nil {
		var opErr *OpError
		if errors.As(err, &opErr) {
			opErr.Op = "delete"
		}
		return err
	}

	ref := img.ObjectKey
	if ref == "" {
		ref = img.URL
	}
	delCtx, cancel := s.withTimeout(ctx)
	err = s.Store.Delete(delCtx, ref)
	cancel()
	if err != nil {
		metrics.IncStoreFailure("object", "delete")
		return &OpError{Op: "delete", Kind: ErrStoreDelete, ImageID: id, ObjectKey: img.ObjectKey, Err: err}
	}

	repoCtx, cancel := s.withTimeout(ctx)
	err = s.Repo.Delete(repoCtx, id)
	cancel()
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return &OpError{Op: "delete", Kind: ErrNotFound, ImageID: id}
		}
		metrics.IncStoreFailure("catalog", "delete")
		s.report(ctx, Inconsistency{Kind: InconsistencyDanglingRecord, ImageID: id, ObjectKey: img.ObjectKey, Cause: err})
		return &OpError{Op: "delete", Kind: ErrCatalogWrite, ImageID: id, ObjectKey: img.ObjectKey, Err: err}
	}

	metrics.IncDeleted()
	return nil
}

// UpdateDescription replaces the description. The object store is not touched.
func (s *Service) UpdateDescription(ctx context.Context, id int64, description string) (Image, error) {
	if utf8.RuneCountInString(description) > MaxDescriptionLen {
		return Image{}, validationError("update_description", "description is too long")
	}
	updCtx, cancel := s.withTimeout(ctx)
	defer cancel()
	img, err := s.Repo.UpdateDescription(updCtx, id, description)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Image{}, &OpError{Op: "update_description", Kind: ErrNotFound, ImageID: id}
		}
		metrics.IncStoreFailure("catalog", "update")
		return Image{}, &OpError{Op: "update_description", Kind: ErrCatalogWrite, ImageID: id, Err: err}
	}
	return img, nil
}

// List returns one page, newest first. The total is counted under the same
// search filter as the page. A blank search term means no filter; any other
// term is matched as given.
func (s *Service) List(ctx context.Context, p ListParams) (Page, error) {
	page, limit := NormalizePage(p.Page, p.Limit)
	search := p.Search
	if strings.TrimSpace(search) == "" {
		search = ""
	}

	listCtx, cancel := s.withTimeout(ctx)
	defer cancel()
	res, err := s.Repo.List(listCtx, ListQuery{
		Search: search,
		Limit:  limit,
		Offset: offsetFor(page, limit),
	})
	if err != nil {
		metrics.IncStoreFailure("catalog", "list")
		return Page{}, &OpError{Op: "list", Kind: ErrCatalogRead, Err: err}
	}

	imgs := res.Images
	if imgs == nil {
		imgs = []Image{}
	}
	return Page{
		Images:      imgs,
		TotalCount:  res.TotalCount,
		TotalPages:  TotalPages(res.TotalCount, limit),
		CurrentPage: page,
		HasMore:     page*limit < res.TotalCount,
	}, nil
}

func (s *Service) report(ctx context.Context, inc Inconsistency) {
	fields := map[string]any{
		"kind":       inc.Kind,
		"object_key": inc.ObjectKey,
		"request_id": telemetry.RequestIDFromContext(ctx),
	}
	if inc.ImageID != 0 {
		fields["image_id"] = inc.ImageID
	}
	if inc.Cause != nil {
		fields["err"] = inc.Cause.Error()
	}
	telemetry.Warn("catalog.inconsistency", fields)
	metrics.IncInconsistency(inc.Kind)
	if s.Reporter != nil {
		s.Reporter.Report(context.WithoutCancel(ctx), inc)
	}
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.StoreTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.StoreTimeout)
}

func (s *Service) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

func readError(op string, id int64, err error) error {
	if errors.Is(err, ErrNotFound) {
		return &OpError{Op: op, Kind: ErrNotFound, ImageID: id}
	}
	return &OpError{Op: op, Kind: ErrCatalogRead, ImageID: id, Err: err}
}

// detectMimeType sniffs the payload. The declared type is used only when the
// content is not recognized; the file extension is never consulted.
func detectMimeType(body []byte, declared string) string {
	detected := mimetype.Detect(body).String()
	detected, _, _ = strings.Cut(detected, ";")
	if detected != "" && detected != "application/octet-stream" {
		return detected
	}
	declared, _, _ = strings.Cut(strings.TrimSpace(declared), ";")
	if declared != "" {
		return strings.ToLower(declared)
	}
	return "application/octet-stream"
}

// dimensions reads the image header only. Unknown formats report 0x0.
func dimensions(body []byte) (int, int) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(body))
	if err != nil {
		return 0, 0
	}
	return cfg.Width, cfg.Height
}
