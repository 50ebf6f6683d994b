package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/trinnux/gallery/internal/model"
)

const imageColumns = `id, filename, caption, category, featured, status, position, created_at, updated_at`

const (
	publicOrder = `ORDER BY featured DESC, position ASC, created_at DESC, id ASC`
	adminOrder  = `ORDER BY position ASC, id ASC`
)

type ImageRepository interface {
	Create(ctx context.Context, image *model.Image) error
	ByID(ctx context.Context, id int64) (*model.Image, error)
	List(ctx context.Context, filter model.ImageFilter, page, pageSize int) ([]*model.Image, int, error)
	ListForAdmin(ctx context.Context) ([]*model.Image, error)
	Categories(ctx context.Context) ([]string, error)
	UpdateMetadata(ctx context.Context, id int64, meta model.ImageMetadata) (*model.Image, error)
	SoftDelete(ctx context.Context, id int64) (*model.Image, error)
	UpdatePositions(ctx context.Context, updates []model.PositionUpdate) error
}

type imageRepository struct {
	db *sqlx.DB
}

func NewImageRepository(db *sqlx.DB) ImageRepository {
	return &imageRepository{db: db}
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", model.ErrStorage, op, err)
}

// Create inserts the image as the last entry of the manual order. The
// max(position) read and the insert share one transaction, and the table is
// locked first where the driver needs it, so concurrent creates never get
// the same position.
func (r *imageRepository) Create(ctx context.Context, image *model.Image) error {
	now := time.Now().UTC()
	if image.CreatedAt.IsZero() {
		image.CreatedAt = now
	}
	image.UpdatedAt = image.CreatedAt
	if image.Status == "" {
		image.Status = model.ImageStatusActive
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return storageErr("begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	maxQuery := `SELECT COALESCE(MAX(position), 0) + 1 FROM gallery_images`
	switch r.db.DriverName() {
	case "pgx":
		_, err = tx.ExecContext(ctx, `LOCK TABLE gallery_images IN SHARE ROW EXCLUSIVE MODE`)
		if err != nil {
			return storageErr("lock table", err)
		}
	case "mysql":
		maxQuery += ` FOR UPDATE`
	}
	// sqlite takes the write lock at BEGIN (_txlock=immediate in the DSN)

	var next int
	err = tx.GetContext(ctx, &next, maxQuery)
	if err != nil {
		return storageErr("read max position", err)
	}

	query := r.db.Rebind(`INSERT INTO gallery_images (filename, caption, category, featured, status, position, created_at, updated_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	args := []any{
		image.Filename,
		image.Caption,
		image.Category,
		image.Featured,
		string(image.Status),
		next,
		image.CreatedAt,
		image.UpdatedAt,
	}

	id, err := r.insertReturningID(ctx, tx, query, args...)
	if err != nil {
		return storageErr("insert image", err)
	}

	err = tx.Commit()
	if err != nil {
		return storageErr("commit", err)
	}

	image.ID = id
	image.Position = next
	return nil
}

// insertReturningID runs an INSERT and returns the generated id. pgx has no
// LastInsertId, so it gets a RETURNING clause instead.
func (r *imageRepository) insertReturningID(ctx context.Context, tx *sqlx.Tx, query string, args ...any) (int64, error) {
	if r.db.DriverName() == "pgx" {
		var id int64
		err := tx.QueryRowxContext(ctx, query+` RETURNING id`, args...).Scan(&id)
		return id, err
	}

	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

func (r *imageRepository) ByID(ctx context.Context, id int64) (*model.Image, error) {
	image := &model.Image{}
	query := r.db.Rebind(`SELECT ` + imageColumns + ` FROM gallery_images WHERE id = ?`)

	err := r.db.GetContext(ctx, image, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: image %d", model.ErrNotFound, id)
	}
	if err != nil {
		return nil, storageErr("get image", err)
	}

	return image, nil
}

// List returns one page of active images plus the total matching the filter.
// Pages are 1-based; a page past the end is empty, not an error.
func (r *imageRepository) List(ctx context.Context, filter model.ImageFilter, page, pageSize int) ([]*model.Image, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 1
	}

	where := []string{"status = ?"}
	args := []any{string(model.ImageStatusActive)}
	if filter.Category != "" {
		where = append(where, "category = ?")
		args = append(args, filter.Category)
	}
	whereSQL := ` WHERE ` + strings.Join(where, " AND ")

	var total int
	countQuery := r.db.Rebind(`SELECT COUNT(*) FROM gallery_images` + whereSQL)
	err := r.db.GetContext(ctx, &total, countQuery, args...)
	if err != nil {
		return nil, 0, storageErr("count images", err)
	}

	images := []*model.Image{}
	if total == 0 || (page-1)*pageSize >= total {
		return images, total, nil
	}

	query := r.db.Rebind(`SELECT ` + imageColumns + ` FROM gallery_images` + whereSQL + ` ` + publicOrder + ` LIMIT ? OFFSET ?`)
	args = append(args, pageSize, (page-1)*pageSize)

	err = r.db.SelectContext(ctx, &images, query, args...)
	if err != nil {
		return nil, 0, storageErr("list images", err)
	}

	return images, total, nil
}

// ListForAdmin returns all active images in manual order, without the
// featured bias of public reads.
func (r *imageRepository) ListForAdmin(ctx context.Context) ([]*model.Image, error) {
	images := []*model.Image{}
	query := r.db.Rebind(`SELECT ` + imageColumns + ` FROM gallery_images WHERE status = ? ` + adminOrder)

	err := r.db.SelectContext(ctx, &images, query, string(model.ImageStatusActive))
	if err != nil {
		return nil, storageErr("list images", err)
	}

	return images, nil
}

func (r *imageRepository) Categories(ctx context.Context) ([]string, error) {
	categories := []string{}
	query := r.db.Rebind(`SELECT DISTINCT category FROM gallery_images
	          WHERE status = ? AND category <> '' ORDER BY category ASC`)

	err := r.db.SelectContext(ctx, &categories, query, string(model.ImageStatusActive))
	if err != nil {
		return nil, storageErr("list categories", err)
	}

	return categories, nil
}

// UpdateMetadata applies the non-nil fields of meta and returns the updated row.
func (r *imageRepository) UpdateMetadata(ctx context.Context, id int64, meta model.ImageMetadata) (*model.Image, error) {
	sets := []string{"updated_at = ?"}
	args := []any{time.Now().UTC()}
	if meta.Caption != nil {
		sets = append(sets, "caption = ?")
		args = append(args, *meta.Caption)
	}
	if meta.Category != nil {
		sets = append(sets, "category = ?")
		args = append(args, *meta.Category)
	}
	if meta.Featured != nil {
		sets = append(sets, "featured = ?")
		args = append(args, *meta.Featured)
	}
	args = append(args, id)

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, storageErr("begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := r.db.Rebind(`UPDATE gallery_images SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`)
	_, err = tx.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, storageErr("update image", err)
	}

	// Read back instead of trusting RowsAffected: MySQL reports 0 for unchanged rows
	image := &model.Image{}
	err = tx.GetContext(ctx, image, r.db.Rebind(`SELECT `+imageColumns+` FROM gallery_images WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: image %d", model.ErrNotFound, id)
	}
	if err != nil {
		return nil, storageErr("get image", err)
	}

	err = tx.Commit()
	if err != nil {
		return nil, storageErr("commit", err)
	}

	return image, nil
}

// SoftDelete hides the image and returns the row as it was before the call.
// Hiding an already hidden image succeeds without writing.
func (r *imageRepository) SoftDelete(ctx context.Context, id int64) (*model.Image, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, storageErr("begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	selectQuery := `SELECT ` + imageColumns + ` FROM gallery_images WHERE id = ?`
	if r.db.DriverName() != "sqlite" {
		selectQuery += ` FOR UPDATE`
	}

	previous := &model.Image{}
	err = tx.GetContext(ctx, previous, r.db.Rebind(selectQuery), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: image %d", model.ErrNotFound, id)
	}
	if err != nil {
		return nil, storageErr("get image", err)
	}

	if previous.Status == model.ImageStatusHidden {
		return previous, nil
	}

	query := r.db.Rebind(`UPDATE gallery_images SET status = ?, updated_at = ? WHERE id = ?`)
	_, err = tx.ExecContext(ctx, query, string(model.ImageStatusHidden), time.Now().UTC(), id)
	if err != nil {
		return nil, storageErr("hide image", err)
	}

	err = tx.Commit()
	if err != nil {
		return nil, storageErr("commit", err)
	}

	return previous, nil
}

// UpdatePositions writes every position of the batch in one transaction.
// Any failure rolls back the whole batch. Unknown ids match no row and are
// skipped; duplicate positions are allowed.
func (r *imageRepository) UpdatePositions(ctx context.Context, updates []model.PositionUpdate) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return storageErr("begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PreparexContext(ctx, r.db.Rebind(`UPDATE gallery_images SET position = ?, updated_at = ? WHERE id = ?`))
	if err != nil {
		return storageErr("prepare position update", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, u := range updates {
		_, err := stmt.ExecContext(ctx, u.Position, now, u.ID)
		if err != nil {
			return storageErr(fmt.Sprintf("update position of image %d", u.ID), err)
		}
	}

	err = tx.Commit()
	if err != nil {
		return storageErr("commit", err)
	}

	return nil
}
