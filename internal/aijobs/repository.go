package aijobs

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/2025-X-Thon-Team10-JobShorts/Backend/internal/models"
	"github.com/2025-X-Thon-Team10-JobShorts/Backend/pkg/database"
)

const columns = `id, short_form_id, COALESCE(stt_provider,''), COALESCE(stt_request_id,''), COALESCE(transcript,''), COALESCE(summary,''), extra_json, status, COALESCE(error_message,''), created_at, updated_at`

// Repository handles short_form_ai persistence.
type Repository struct {
	db database.DBTX
}

// NewRepository creates an AI job repository over a pool or transaction.
func NewRepository(db database.DBTX) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to tx.
func (r *Repository) WithTx(tx pgx.Tx) *Repository {
	return &Repository{db: tx}
}

// Create inserts a job, PENDING unless set.
func (r *Repository) Create(ctx context.Context, j *models.AIJob) error {
	const q = `INSERT INTO short_form_ai (short_form_id, stt_provider, stt_request_id, status)
		VALUES ($1, NULLIF($2,''), NULLIF($3,''), $4)
		RETURNING id, created_at, updated_at`
	if j.Status == "" {
		j.Status = models.AIJobStatusPending
	}
	return r.db.QueryRow(ctx, q, j.AssetID, j.Provider, j.ProviderRequestID, string(j.Status)).
		Scan(&j.ID, &j.CreatedAt, &j.UpdatedAt)
}

// GetLatestByAsset returns the most recent job for an asset or nil.
func (r *Repository) GetLatestByAsset(ctx context.Context, assetID int64) (*models.AIJob, error) {
	const q = `SELECT ` + columns + ` FROM short_form_ai WHERE short_form_id = $1 ORDER BY id DESC LIMIT 1`
	j, err := scanJob(r.db.QueryRow(ctx, q, assetID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return j, nil
}

// GetLatestByAssets returns the most recent job per asset id.
func (r *Repository) GetLatestByAssets(ctx context.Context, assetIDs []int64) (map[int64]*models.AIJob, error) {
	out := make(map[int64]*models.AIJob, len(assetIDs))
	if len(assetIDs) == 0 {
		return out, nil
	}
	const q = `SELECT DISTINCT ON (short_form_id) ` + columns + ` FROM short_form_ai
		WHERE short_form_id = ANY($1) ORDER BY short_form_id, id DESC`
	rows, err := r.db.Query(ctx, q, assetIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out[j.AssetID] = j
	}
	return out, rows.Err()
}

// MarkDone finalizes a job with its result.
func (r *Repository) MarkDone(ctx context.Context, id int64, transcript, summary string, extra []byte) error {
	const q = `UPDATE short_form_ai SET transcript = $1, summary = $2, extra_json = $3, status = $4, error_message = NULL, updated_at = NOW() WHERE id = $5`
	_, err := r.db.Exec(ctx, q, transcript, summary, nullJSON(extra), string(models.AIJobStatusDone), id)
	return err
}

// MarkFailed finalizes a job with an error message.
func (r *Repository) MarkFailed(ctx context.Context, id int64, message string) error {
	const q = `UPDATE short_form_ai SET status = $1, error_message = $2, updated_at = NOW() WHERE id = $3`
	_, err := r.db.Exec(ctx, q, string(models.AIJobStatusFailed), message, id)
	return err
}

func nullJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

func scanJob(row pgx.Row) (*models.AIJob, error) {
	var j models.AIJob
	var status string
	var extra []byte
	err := row.Scan(&j.ID, &j.AssetID, &j.Provider, &j.ProviderRequestID, &j.Transcript, &j.Summary, &extra, &status, &j.ErrorMessage, &j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		return nil, err
	}
	j.Status = models.AIJobStatus(status)
	if len(extra) > 0 {
		j.Extra = extra
	}
	return &j, nil
}
