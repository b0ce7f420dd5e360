package assets

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/2025-X-Thon-Team10-JobShorts/Backend/internal/models"
	"github.com/2025-X-Thon-Team10-JobShorts/Backend/pkg/database"
)

// ErrDuplicateVideoKey is returned by Create when the video key is already registered.
var ErrDuplicateVideoKey = errors.New("video key already registered")

// uniqueViolation is the PostgreSQL SQLSTATE for unique_violation.
const uniqueViolation = "23505"

const columns = `id, owner_pid, title, description, video_key, thumbnail_key, duration_sec, tags, visibility, status, created_at, updated_at`

// Repository handles short_forms persistence.
type Repository struct {
	db database.DBTX
}

// NewRepository creates an asset repository over a pool or transaction.
func NewRepository(db database.DBTX) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to tx.
func (r *Repository) WithTx(tx pgx.Tx) *Repository {
	return &Repository{db: tx}
}

// Create inserts an asset and fills its id and timestamps.
func (r *Repository) Create(ctx context.Context, a *models.Asset) error {
	const q = `INSERT INTO short_forms (owner_pid, title, description, video_key, thumbnail_key, duration_sec, tags, visibility, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at`
	if a.Tags == nil {
		a.Tags = []string{}
	}
	if a.Visibility == "" {
		a.Visibility = models.VisibilityPublic
	}
	if a.Status == "" {
		a.Status = models.AssetStatusReady
	}
	err := r.db.QueryRow(ctx, q, a.OwnerID, a.Title, a.Description, a.VideoKey, a.ThumbnailKey, a.DurationSec, a.Tags, a.Visibility, string(a.Status)).
		Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicateVideoKey
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// GetByID returns an asset or nil when absent.
func (r *Repository) GetByID(ctx context.Context, id int64) (*models.Asset, error) {
	return r.one(ctx, `SELECT `+columns+` FROM short_forms WHERE id = $1`, id)
}

// GetByVideoKey returns an asset by its video key or nil when absent.
func (r *Repository) GetByVideoKey(ctx context.Context, videoKey string) (*models.Asset, error) {
	return r.one(ctx, `SELECT `+columns+` FROM short_forms WHERE video_key = $1`, videoKey)
}

// GetByVideoKeyForUpdate locks the row until the surrounding transaction ends.
func (r *Repository) GetByVideoKeyForUpdate(ctx context.Context, videoKey string) (*models.Asset, error) {
	return r.one(ctx, `SELECT `+columns+` FROM short_forms WHERE video_key = $1 FOR UPDATE`, videoKey)
}

// ListFeed returns up to limit assets older than beforeID (0 = from the top), newest first.
func (r *Repository) ListFeed(ctx context.Context, beforeID int64, limit int) ([]models.Asset, error) {
	const q = `SELECT ` + columns + ` FROM short_forms
		WHERE ($1::bigint = 0 OR id < $1) AND visibility = 'PUBLIC'
		ORDER BY created_at DESC, id DESC LIMIT $2`
	return r.many(ctx, q, beforeID, limit)
}

// ListByTag is ListFeed restricted to assets carrying tag.
func (r *Repository) ListByTag(ctx context.Context, tag string, beforeID int64, limit int) ([]models.Asset, error) {
	const q = `SELECT ` + columns + ` FROM short_forms
		WHERE tags @> ARRAY[$1::text] AND ($2::bigint = 0 OR id < $2) AND visibility = 'PUBLIC'
		ORDER BY created_at DESC, id DESC LIMIT $3`
	return r.many(ctx, q, tag, beforeID, limit)
}

// ListByOwner returns an owner's assets, newest first.
func (r *Repository) ListByOwner(ctx context.Context, ownerID string) ([]models.Asset, error) {
	const q = `SELECT ` + columns + ` FROM short_forms WHERE owner_pid = $1 ORDER BY created_at DESC, id DESC`
	return r.many(ctx, q, ownerID)
}

// ListMissingThumbnail returns assets whose thumbnail was never recorded.
func (r *Repository) ListMissingThumbnail(ctx context.Context, limit int) ([]models.Asset, error) {
	const q = `SELECT ` + columns + ` FROM short_forms WHERE thumbnail_key IS NULL ORDER BY id LIMIT $1`
	return r.many(ctx, q, limit)
}

// Count returns the number of assets.
func (r *Repository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM short_forms`).Scan(&n)
	return n, err
}

// SetThumbnailKey records the generated thumbnail for the asset with videoKey.
func (r *Repository) SetThumbnailKey(ctx context.Context, videoKey, thumbnailKey string) error {
	const q = `UPDATE short_forms SET thumbnail_key = $1, updated_at = NOW() WHERE video_key = $2`
	_, err := r.db.Exec(ctx, q, thumbnailKey, videoKey)
	return err
}

// UpdateTags replaces the tag list.
func (r *Repository) UpdateTags(ctx context.Context, id int64, tags []string) error {
	const q = `UPDATE short_forms SET tags = $1, updated_at = NOW() WHERE id = $2`
	_, err := r.db.Exec(ctx, q, tags, id)
	return err
}

// UpdateStatus sets the status unconditionally.
func (r *Repository) UpdateStatus(ctx context.Context, id int64, status models.AssetStatus) error {
	const q = `UPDATE short_forms SET status = $1, updated_at = NOW() WHERE id = $2`
	_, err := r.db.Exec(ctx, q, string(status), id)
	return err
}

// TransitionStatus moves the asset to status only if it is currently in one of from.
// It reports whether a row changed.
func (r *Repository) TransitionStatus(ctx context.Context, id int64, from []models.AssetStatus, to models.AssetStatus) (bool, error) {
	const q = `UPDATE short_forms SET status = $1, updated_at = NOW() WHERE id = $2 AND status = ANY($3)`
	states := make([]string, len(from))
	for i, s := range from {
		states[i] = string(s)
	}
	tag, err := r.db.Exec(ctx, q, string(to), id, states)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *Repository) one(ctx context.Context, q string, args ...any) (*models.Asset, error) {
	a, err := scanAsset(r.db.QueryRow(ctx, q, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (r *Repository) many(ctx context.Context, q string, args ...any) ([]models.Asset, error) {
	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Asset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *a)
	}
	return list, rows.Err()
}

func scanAsset(row pgx.Row) (*models.Asset, error) {
	var a models.Asset
	var status string
	err := row.Scan(&a.ID, &a.OwnerID, &a.Title, &a.Description, &a.VideoKey, &a.ThumbnailKey, &a.DurationSec, &a.Tags, &a.Visibility, &status, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	a.Status = models.AssetStatus(status)
	if a.Tags == nil {
		a.Tags = []string{}
	}
	return &a, nil
}
