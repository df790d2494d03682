package images

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const imageColumns = `id, object_key, url, description, original_name, mime_type, size_bytes, width, height, created_at`

const uniqueViolation = "23505"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanImage(row rowScanner) (Image, error) {
	var img Image
	err := row.Scan(
		&img.ID,
		&img.ObjectKey,
		&img.URL,
		&img.Description,
		&img.OriginalName,
		&img.MimeType,
		&img.SizeBytes,
		&img.Width,
		&img.Height,
		&img.CreatedAt,
	)
	return img, err
}

// Create inserts a new record and returns it with the assigned ID.
func (r *PGRepo) Create(ctx context.Context, img Image) (Image, error) {
	const query = `
INSERT INTO images (
    object_key,
    url,
    description,
    original_name,
    mime_type,
    size_bytes,
    width,
    height,
    created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING id`

	err := r.DB.QueryRowContext(
		ctx,
		query,
		img.ObjectKey,
		img.URL,
		img.Description,
		img.OriginalName,
		img.MimeType,
		img.SizeBytes,
		img.Width,
		img.Height,
		img.CreatedAt,
	).Scan(&img.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return Image{}, ErrDuplicateKey
		}
		return Image{}, err
	}
	return img, nil
}

// GetByID fetches a record by ID.
func (r *PGRepo) GetByID(ctx context.Context, id int64) (Image, error) {
	query := `SELECT ` + imageColumns + ` FROM images WHERE id = $1`
	img, err := scanImage(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Image{}, ErrNotFound
		}
		return Image{}, err
	}
	return img, nil
}

// GetByObjectKey returns the record referencing key.
func (r *PGRepo) GetByObjectKey(ctx context.Context, key string) (Image, error) {
	query := `SELECT ` + imageColumns + ` FROM images WHERE object_key = $1`
	img, err := scanImage(r.DB.QueryRowContext(ctx, query, key))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Image{}, ErrNotFound
		}
		return Image{}, err
	}
	return img, nil
}

// UpdateDescription sets the description and returns the updated record.
func (r *PGRepo) UpdateDescription(ctx context.Context, id int64, description string) (Image, error) {
	query := `UPDATE images SET description = $1 WHERE id = $2 RETURNING ` + imageColumns
	img, err := scanImage(r.DB.QueryRowContext(ctx, query, description, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Image{}, ErrNotFound
		}
		return Image{}, err
	}
	return img, nil
}

// Delete removes a record by ID.
func (r *PGRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM images WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// List counts and pages matching records inside one read-only snapshot so the
// total always agrees with the filter used for the page.
func (r *PGRepo) List(ctx context.Context, q ListQuery) (ListResult, error) {
	where := ""
	var args []any
	if q.Search != "" {
		where = ` WHERE description ILIKE $1 ESCAPE '\'`
		args = append(args, "%"+escapeLike(q.Search)+"%")
	}

	tx, err := r.DB.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return ListResult{}, fmt.Errorf("begin list tx: %w", err)
	}
	defer tx.Rollback()

	var total int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM images`+where, args...).Scan(&total); err != nil {
		return ListResult{}, fmt.Errorf("count images: %w", err)
	}

	out := []Image{}
	if total > 0 && q.Limit > 0 && q.Offset >= 0 && q.Offset < total {
		n := len(args)
		query := fmt.Sprintf(`SELECT %s FROM images%s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
			imageColumns, where, n+1, n+2)
		rows, err := tx.QueryContext(ctx, query, append(args, q.Limit, q.Offset)...)
		if err != nil {
			return ListResult{}, fmt.Errorf("list images: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			img, err := scanImage(rows)
			if err != nil {
				return ListResult{}, err
			}
			out = append(out, img)
		}
		if err := rows.Err(); err != nil {
			return ListResult{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return ListResult{}, fmt.Errorf("commit list tx: %w", err)
	}
	return ListResult{Images: out, TotalCount: total}, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

var _ Repo = (*PGRepo)(nil)
