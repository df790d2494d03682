package images

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu     sync.RWMutex
	nextID int64
	data   map[int64]Image
	keys   map[string]int64
	now    func() time.Time
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		data: make(map[int64]Image),
		keys: make(map[string]int64),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Create assigns an ID and stores the record.
func (r *MemoryRepo) Create(ctx context.Context, img Image) (Image, error) {
	if err := ctx.Err(); err != nil {
		return Image{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.keys[img.ObjectKey]; dup {
		return Image{}, ErrDuplicateKey
	}
	r.nextID++
	img.ID = r.nextID
	if img.CreatedAt.IsZero() {
		img.CreatedAt = r.now()
	}
	r.data[img.ID] = img
	r.keys[img.ObjectKey] = img.ID
	return img, nil
}

// GetByID returns a record by ID.
func (r *MemoryRepo) GetByID(ctx context.Context, id int64) (Image, error) {
	if err := ctx.Err(); err != nil {
		return Image{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	img, ok := r.data[id]
	if !ok {
		return Image{}, ErrNotFound
	}
	return img, nil
}

// GetByObjectKey returns the record referencing key.
func (r *MemoryRepo) GetByObjectKey(ctx context.Context, key string) (Image, error) {
	if err := ctx.Err(); err != nil {
		return Image{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.keys[key]
	if !ok {
		return Image{}, ErrNotFound
	}
	return r.data[id], nil
}

// UpdateDescription replaces the description of a record.
func (r *MemoryRepo) UpdateDescription(ctx context.Context, id int64, description string) (Image, error) {
	if err := ctx.Err(); err != nil {
		return Image{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	img, ok := r.data[id]
	if !ok {
		return Image{}, ErrNotFound
	}
	img.Description = description
	r.data[id] = img
	return img, nil
}

// Delete removes a record.
func (r *MemoryRepo) Delete(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	img, ok := r.data[id]
	if !ok {
		return ErrNotFound
	}
	delete(r.data, id)
	delete(r.keys, img.ObjectKey)
	return nil
}

// List returns matching records newest first, honoring limit/offset. The total
// is counted under the same lock and filter as the page.
func (r *MemoryRepo) List(ctx context.Context, q ListQuery) (ListResult, error) {
	if err := ctx.Err(); err != nil {
		return ListResult{}, err
	}
	needle := strings.ToLower(q.Search)

	r.mu.RLock()
	matched := make([]Image, 0, len(r.data))
	for _, img := range r.data {
		if needle == "" || strings.Contains(strings.ToLower(img.Description), needle) {
			matched = append(matched, img)
		}
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	total := len(matched)
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= total || q.Limit <= 0 {
		return ListResult{Images: []Image{}, TotalCount: total}, nil
	}
	end := offset + q.Limit
	if end > total {
		end = total
	}
	return ListResult{Images: matched[offset:end], TotalCount: total}, nil
}

var _ Repo = (*MemoryRepo)(nil)
