package images

import "context"

// Repo defines persistence operations for image records.
type Repo interface {
	Create(ctx context.Context, img Image) (Image, error)
	GetByID(ctx context.Context, id int64) (Image, error)
	GetByObjectKey(ctx context.Context, key string) (Image, error)
	UpdateDescription(ctx context.Context, id int64, description string) (Image, error)
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, q ListQuery) (ListResult, error)
}
