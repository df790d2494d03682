package images

import "math"

const (
	DefaultPage  = 1
	DefaultLimit = 12
	MaxLimit     = 100
)

// NormalizePage applies defaults and clamps: page >= 1, 1 <= limit <= MaxLimit.
// A non-positive limit falls back to DefaultLimit. page is capped so that
// page*limit fits in an int.
func NormalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = DefaultPage
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if maxPage := math.MaxInt / limit; page > maxPage {
		page = maxPage
	}
	return page, limit
}

// TotalPages is ceil(total/limit), 0 when there is nothing to show.
func TotalPages(total, limit int) int {
	if total <= 0 || limit <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}

// offsetFor converts a 1-based page into a row offset.
func offsetFor(page, limit int) int {
	return (page - 1) * limit
}
