package images

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"gallery-backend/internal/shared/server/respond"
	"gallery-backend/internal/shared/util"
)

// DefaultMaxUploadBytes caps upload request bodies.
const DefaultMaxUploadBytes int64 = 10 << 20 // 10MB

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc            *Service
	MaxUploadBytes int64
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service, maxUploadBytes int64) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}
	return &Handler{Svc: svc, MaxUploadBytes: maxUploadBytes}
}

// RegisterRoutes attaches image routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/upload", h.upload)
	rg.GET("/images", h.list)
	rg.GET("/images/:id", h.get)
	rg.DELETE("/images/:id", h.delete)
	rg.PUT("/images/:id/description", h.updateDescription)
}

func (h *Handler) upload(c *gin.Context) {
	if c.Request.ContentLength > h.MaxUploadBytes {
		respond.Error(c, http.StatusRequestEntityTooLarge, "payload_too_large", "file exceeds upload limit", nil)
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxUploadBytes)

	fileHeader, err := formFile(c)
	if err != nil {
		if isTooLarge(err) {
			respond.Error(c, http.StatusRequestEntityTooLarge, "payload_too_large", "file exceeds upload limit", nil)
			return
		}
		respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", nil)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}
	defer file.Close()

	body, err := io.ReadAll(file)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}
	if len(body) == 0 {
		respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", nil)
		return
	}

	originalName, err := util.SanitizeFileName(fileHeader.Filename)
	if err != nil {
		originalName = ""
	}

	img, err := h.Svc.Upload(c.Request.Context(), UploadInput{
		Body:         body,
		ContentType:  fileHeader.Header.Get("Content-Type"),
		OriginalName: originalName,
		Description:  c.PostForm("description"),
	})
	if err != nil {
		h.writeError(c, err, "failed to upload image")
		return
	}

	c.Set("imageId", img.ID)
	c.Set("objectKey", img.ObjectKey)
	respond.JSON(c, http.StatusCreated, toResponse(img))
}

func (h *Handler) list(c *gin.Context) {
	page := queryInt(c, "page", DefaultPage)
	limit := queryInt(c, "limit", DefaultLimit)

	p, err := h.Svc.List(c.Request.Context(), ListParams{
		Page:   page,
		Limit:  limit,
		Search: c.Query("search"),
	})
	if err != nil {
		h.writeError(c, err, "failed to list images")
		return
	}

	respond.OK(c, toListResponse(p))
}

func (h *Handler) get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	img, err := h.Svc.Get(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err, "failed to fetch image")
		return
	}

	respond.OK(c, toResponse(img))
}

func (h *Handler) delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.Svc.Delete(c.Request.Context(), id); err != nil {
		h.writeError(c, err, "failed to delete image")
		return
	}

	respond.OK(c, gin.H{"success": true})
}

func (h *Handler) updateDescription(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req updateDescriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	if req.Description == nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "description is required", nil)
		return
	}

	img, err := h.Svc.UpdateDescription(c.Request.Context(), id, *req.Description)
	if err != nil {
		h.writeError(c, err, "failed to update description")
		return
	}

	respond.OK(c, updateDescriptionResponse{Success: true, Image: toResponse(img)})
}

// writeError maps service errors onto HTTP statuses. Causes of server errors
// are logged, never returned to the client.
func (h *Handler) writeError(c *gin.Context, err error, fallback string) {
	var opErr *OpError
	if errors.As(err, &opErr) && opErr.ImageID != 0 {
		c.Set("imageId", opErr.ImageID)
	}
	switch {
	case errors.Is(err, ErrValidation):
		msg := "invalid request"
		if opErr != nil && opErr.Err != nil {
			msg = opErr.Err.Error()
		}
		respond.Error(c, http.StatusBadRequest, "validation_error", msg, nil)
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "image not found", nil)
	case errors.Is(err, ErrStoreWrite), errors.Is(err, ErrStoreDelete):
		c.Set(respond.CauseKey, err.Error())
		respond.Error(c, http.StatusInternalServerError, "storage_error", fallback, nil)
	default:
		c.Set(respond.CauseKey, err.Error())
		respond.Error(c, http.StatusInternalServerError, "internal_error", fallback, nil)
	}
}

func formFile(c *gin.Context) (*multipart.FileHeader, error) {
	fh, err := c.FormFile("image")
	if err == nil {
		return fh, nil
	}
	if isTooLarge(err) {
		return nil, err
	}
	return c.FormFile("file")
}

func isTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return true
	}
	return strings.Contains(err.Error(), "request body too large")
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(c.Param("id")), 10, 64)
	if err != nil || id <= 0 {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid image id", nil)
		return 0, false
	}
	c.Set("imageId", id)
	return id, true
}

// queryInt parses a query parameter, returning def when it is absent or not a number.
func queryInt(c *gin.Context, key string, def int) int {
	v := strings.TrimSpace(c.Query(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
