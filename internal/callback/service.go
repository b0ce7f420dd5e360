// Package callback ingests completion callbacks from the external AI worker
// and finalizes the AI job and its short-form in one transaction.
package callback

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/2025-X-Thon-Team10-JobShorts/Backend/internal/aijobs"
	"github.com/2025-X-Thon-Team10-JobShorts/Backend/internal/assets"
	"github.com/2025-X-Thon-Team10-JobShorts/Backend/internal/models"
	"github.com/2025-X-Thon-Team10-JobShorts/Backend/pkg/database"
)

var (
	ErrUnauthorized  = errors.New("invalid internal token")
	ErrValidation    = errors.New("invalid callback")
	ErrAssetNotFound = errors.New("no short-form for job")
)

// AssetStore is the asset persistence used inside the callback transaction.
type AssetStore interface {
	GetByVideoKeyForUpdate(ctx context.Context, videoKey string) (*models.Asset, error)
	UpdateTags(ctx context.Context, id int64, tags []string) error
	UpdateStatus(ctx context.Context, id int64, status models.AssetStatus) error
}

// JobStore is the AI job persistence used inside the callback transaction.
type JobStore interface {
	Create(ctx context.Context, j *models.AIJob) error
	GetLatestByAsset(ctx context.Context, assetID int64) (*models.AIJob, error)
	MarkDone(ctx context.Context, id int64, transcript, summary string, extra []byte) error
	MarkFailed(ctx context.Context, id int64, message string) error
}

// Stores are the repositories bound to one transaction.
type Stores struct {
	Assets AssetStore
	Jobs   JobStore
}

// TxRunner runs fn in a single transaction; an error from fn rolls it back.
type TxRunner interface {
	InTx(ctx context.Context, fn func(Stores) error) error
}

// Notifier is told about the asset after a committed change.
type Notifier interface {
	AssetUpdated(a *models.Asset)
}

// PgTx runs callbacks in a pgx transaction on the given repositories.
type PgTx struct {
	pool   *pgxpool.Pool
	assets *assets.Repository
	jobs   *aijobs.Repository
}

// NewPgTx creates a TxRunner backed by pool.
func NewPgTx(pool *pgxpool.Pool, assetRepo *assets.Repository, jobRepo *aijobs.Repository) *PgTx {
	return &PgTx{pool: pool, assets: assetRepo, jobs: jobRepo}
}

// InTx implements TxRunner.
func (p *PgTx) InTx(ctx context.Context, fn func(Stores) error) error {
	return database.WithTx(ctx, p.pool, func(tx pgx.Tx) error {
		return fn(Stores{Assets: p.assets.WithTx(tx), Jobs: p.jobs.WithTx(tx)})
	})
}

// Completion describes a processed callback.
type Completion struct {
	Asset     *models.Asset
	Job       *models.AIJob
	Duplicate bool
}

// Service applies AI worker callbacks.
type Service struct {
	tx       TxRunner
	notifier Notifier
	provider string
	now      func() time.Time
	logger   *zap.Logger
}

// NewService creates a callback service. notifier may be nil.
func NewService(tx TxRunner, notifier Notifier, provider string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if provider == "" {
		provider = "ai-worker"
	}
	return &Service{tx: tx, notifier: notifier, provider: provider, now: time.Now, logger: logger}
}

// Complete finalizes the job identified by pathJobID (the video key). The
// first terminal result wins: callbacks for a job that is already DONE or
// FAILED are acknowledged without changes.
func (s *Service) Complete(ctx context.Context, pathJobID string, p *Payload) (*Completion, error) {
	jobID := strings.TrimSpace(pathJobID)
	if bodyID := p.ID(); bodyID != "" {
		if jobID == "" {
			jobID = bodyID
		} else if bodyID != jobID {
			return nil, fmt.Errorf("%w: job id mismatch", ErrValidation)
		}
	}
	if jobID == "" {
		return nil, fmt.Errorf("%w: missing job id", ErrValidation)
	}
	outcome, err := p.Outcome()
	if err != nil {
		return nil, err
	}
	transcript, summary := p.Texts()
	if outcome == OutcomeSuccess && transcript == "" && summary == "" {
		return nil, fmt.Errorf("%w: success without transcript or summary", ErrValidation)
	}

	var done Completion
	err = s.tx.InTx(ctx, func(st Stores) error {
		done = Completion{}
		asset, err := st.Assets.GetByVideoKeyForUpdate(ctx, jobID)
		if err != nil {
			return fmt.Errorf("lock asset: %w", err)
		}
		if asset == nil {
			return ErrAssetNotFound
		}
		done.Asset = asset

		job, err := st.Jobs.GetLatestByAsset(ctx, asset.ID)
		if err != nil {
			return fmt.Errorf("get ai job: %w", err)
		}
		if job == nil {
			job = &models.AIJob{AssetID: asset.ID, Provider: s.provider, ProviderRequestID: jobID, Status: models.AIJobStatusPending}
			if err := st.Jobs.Create(ctx, job); err != nil {
				return fmt.Errorf("create ai job: %w", err)
			}
		}
		done.Job = job
		if job.Status.Terminal() {
			done.Duplicate = true
			return nil
		}

		if outcome == OutcomeFailed {
			msg := p.FailureMessage()
			if err := st.Jobs.MarkFailed(ctx, job.ID, msg); err != nil {
				return fmt.Errorf("mark job failed: %w", err)
			}
			job.Status, job.ErrorMessage = models.AIJobStatusFailed, msg
			return s.setStatus(ctx, st, asset, models.AssetStatusFailed)
		}

		blob, err := p.Blob(s.now())
		if err != nil {
			return err
		}
		if err := st.Jobs.MarkDone(ctx, job.ID, transcript, summary, blob); err != nil {
			return fmt.Errorf("mark job done: %w", err)
		}
		job.Status, job.Transcript, job.Summary, job.Extra = models.AIJobStatusDone, transcript, summary, blob
		if tags := p.Tags(blob); len(tags) > 0 {
			if err := st.Assets.UpdateTags(ctx, asset.ID, tags); err != nil {
				return fmt.Errorf("update tags: %w", err)
			}
			asset.Tags = tags
		}
		return s.setStatus(ctx, st, asset, models.AssetStatusReadyWithAI)
	})
	if err != nil {
		return nil, err
	}

	if done.Duplicate {
		s.logger.Info("duplicate callback ignored",
			zap.String("job_id", jobID),
			zap.String("ai_status", string(done.Job.Status)),
		)
		return &done, nil
	}
	s.logger.Info("callback applied",
		zap.String("job_id", jobID),
		zap.Int64("asset_id", done.Asset.ID),
		zap.String("outcome", string(outcome)),
		zap.String("status", string(done.Asset.Status)),
	)
	if s.notifier != nil {
		s.notifier.AssetUpdated(done.Asset)
	}
	return &done, nil
}

func (s *Service) setStatus(ctx context.Context, st Stores, asset *models.Asset, next models.AssetStatus) error {
	if !asset.Status.CanTransitionTo(next) {
		s.logger.Warn("asset status change refused",
			zap.Int64("asset_id", asset.ID),
			zap.String("from", string(asset.Status)),
			zap.String("to", string(next)),
		)
		return nil
	}
	if err := st.Assets.UpdateStatus(ctx, asset.ID, next); err != nil {
		return fmt.Errorf("update asset status: %w", err)
	}
	asset.Status = next
	return nil
}
