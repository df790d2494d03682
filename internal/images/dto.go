package images

import "time"

// ImageResponse is the outward-facing representation of an image record.
type ImageResponse struct {
	ID           int64     `json:"id"`
	ObjectKey    string    `json:"objectKey"`
	URL          string    `json:"url"`
	Description  string    `json:"description"`
	CreatedAt    time.Time `json:"createdAt"`
	OriginalName string    `json:"originalName,omitempty"`
	MimeType     string    `json:"mimeType,omitempty"`
	SizeBytes    int64     `json:"sizeBytes"`
	Width        int       `json:"width,omitempty"`
	Height       int       `json:"height,omitempty"`
}

// ListResponse is one page of the catalog.
type ListResponse struct {
	Images      []ImageResponse `json:"images"`
	TotalCount  int             `json:"totalCount"`
	TotalPages  int             `json:"totalPages"`
	CurrentPage int             `json:"currentPage"`
	HasMore     bool            `json:"hasMore"`
}

type updateDescriptionRequest struct {
	Description *string `json:"description"`
}

type updateDescriptionResponse struct {
	Success bool          `json:"success"`
	Image   ImageResponse `json:"image"`
}

func toResponse(img Image) ImageResponse {
	return ImageResponse{
		ID:           img.ID,
		ObjectKey:    img.ObjectKey,
		URL:          img.URL,
		Description:  img.Description,
		CreatedAt:    img.CreatedAt,
		OriginalName: img.OriginalName,
		MimeType:     img.MimeType,
		SizeBytes:    img.SizeBytes,
		Width:        img.Width,
		Height:       img.Height,
	}
}

func toListResponse(p Page) ListResponse {
	out := make([]ImageResponse, 0, len(p.Images))
	for _, img := range p.Images {
		out = append(out, toResponse(img))
	}
	return ListResponse{
		Images:      out,
		TotalCount:  p.TotalCount,
		TotalPages:  p.TotalPages,
		CurrentPage: p.CurrentPage,
		HasMore:     p.HasMore,
	}
}
