package images

import "time"

// Image is the catalog record for one stored object. Everything except
// Description is immutable once created.
type Image struct {
	ID           int64
	ObjectKey    string
	URL          string
	Description  string
	OriginalName string
	MimeType     string
	SizeBytes    int64
	Width        int
	Height       int
	CreatedAt    time.Time
}

// ListQuery selects a page of images. Search is a case-insensitive substring
// match on Description; empty matches everything.
type ListQuery struct {
	Search string
	Limit  int
	Offset int
}

// ListResult is one page plus the total under the same filter.
type ListResult struct {
	Images     []Image
	TotalCount int
}

// Page is the paginated answer returned by Service.List.
type Page struct {
	Images      []Image
	TotalCount  int
	TotalPages  int
	CurrentPage int
	HasMore     bool
}
