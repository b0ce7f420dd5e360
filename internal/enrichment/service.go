// Package enrichment drives a short-form video from upload to a fully
// enriched feed item: upload URLs, registration, background thumbnail and AI
// work, and the merged read views.
package enrichment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/2025-X-Thon-Team10-JobShorts/Backend/internal/aiworker"
	"github.com/2025-X-Thon-Team10-JobShorts/Backend/internal/assets"
	"github.com/2025-X-Thon-Team10-JobShorts/Backend/internal/backfill"
	"github.com/2025-X-Thon-Team10-JobShorts/Backend/internal/models"
	"github.com/2025-X-Thon-Team10-JobShorts/Backend/internal/summaries"
	"github.com/2025-X-Thon-Team10-JobShorts/Backend/pkg/queue"
	"github.com/2025-X-Thon-Team10-JobShorts/Backend/pkg/storage"
)

var (
	ErrAssetNotFound = errors.New("asset not found")
	ErrInvalidCursor = errors.New("invalid cursor")
	ErrInvalidInput  = errors.New("invalid input")
	ErrConflict      = errors.New("video already registered")
)

// ObjectStore issues presigned URLs.
type ObjectStore interface {
	PresignUpload(ctx context.Context, key, contentType string) (string, error)
	PresignDownload(ctx context.Context, key string) (string, error)
}

// AssetStore is the persistence the orchestrator needs for assets.
type AssetStore interface {
	Create(ctx context.Context, a *models.Asset) error
	GetByID(ctx context.Context, id int64) (*models.Asset, error)
	GetByVideoKey(ctx context.Context, videoKey string) (*models.Asset, error)
	ListFeed(ctx context.Context, beforeID int64, limit int) ([]models.Asset, error)
	ListByTag(ctx context.Context, tag string, beforeID int64, limit int) ([]models.Asset, error)
	ListByOwner(ctx context.Context, ownerID string) ([]models.Asset, error)
	ListMissingThumbnail(ctx context.Context, limit int) ([]models.Asset, error)
	Count(ctx context.Context) (int64, error)
	SetThumbnailKey(ctx context.Context, videoKey, thumbnailKey string) error
	UpdateTags(ctx context.Context, id int64, tags []string) error
	UpdateStatus(ctx context.Context, id int64, status models.AssetStatus) error
	TransitionStatus(ctx context.Context, id int64, from []models.AssetStatus, to models.AssetStatus) (bool, error)
}

// JobStore is the persistence the orchestrator needs for AI jobs.
type JobStore interface {
	Create(ctx context.Context, j *models.AIJob) error
	GetLatestByAsset(ctx context.Context, assetID int64) (*models.AIJob, error)
	GetLatestByAssets(ctx context.Context, assetIDs []int64) (map[int64]*models.AIJob, error)
	MarkFailed(ctx context.Context, id int64, message string) error
}

// Directory resolves owner profiles and follow state.
type Directory interface {
	GetOwnerInfos(ctx context.Context, pids []string) (map[string]models.OwnerInfo, error)
	FollowingSet(ctx context.Context, viewer string, pids []string) (map[string]bool, error)
}

// ThumbnailEnsurer is satisfied by *thumbnail.Generator.
type ThumbnailEnsurer interface {
	Ensure(ctx context.Context, videoKey string) (bool, error)
}

// SummaryReader is satisfied by *summaries.Reader.
type SummaryReader interface {
	Read(ctx context.Context, videoKey string) (*summaries.Document, error)
}

// Intake submits jobs to the external AI worker.
type Intake interface {
	Submit(ctx context.Context, req aiworker.Request) error
}

// Enqueuer schedules background jobs; *worker.Pool and *queue.Queue satisfy it.
type Enqueuer interface {
	Enqueue(ctx context.Context, jobType queue.JobType, payload any) error
}

// Notifier is told about asset state changes.
type Notifier interface {
	AssetUpdated(a *models.Asset)
}

// Reconciler rebuilds assets from the object store.
type Reconciler interface {
	Reconcile(ctx context.Context, prefix string) (backfill.Report, error)
}

// Deps are the collaborators of Service. Notifier and Reconciler may be nil.
type Deps struct {
	Store      ObjectStore
	Assets     AssetStore
	Jobs       JobStore
	Users      Directory
	Thumbnails ThumbnailEnsurer
	Summaries  SummaryReader
	Intake     Intake
	Tasks      Enqueuer
	Notifier   Notifier
	Reconciler Reconciler
	Tx         TxRunner
}

// Options tune the service.
type Options struct {
	CallbackBase       string
	Provider           string
	DefaultPageSize    int
	MaxPageSize        int
	BootstrapReconcile bool
	SummaryPrefix      string
}

// Service is the enrichment orchestrator.
type Service struct {
	Deps
	opts         Options
	logger       *zap.Logger
	bootstrapped atomic.Bool
}

// NewService creates the orchestrator.
func NewService(d Deps, opts Options, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.DefaultPageSize <= 0 {
		opts.DefaultPageSize = 10
	}
	if opts.MaxPageSize <= 0 {
		opts.MaxPageSize = 50
	}
	if opts.MaxPageSize < opts.DefaultPageSize {
		opts.MaxPageSize = opts.DefaultPageSize
	}
	if opts.SummaryPrefix == "" {
		opts.SummaryPrefix = summaries.Prefix
	}
	if opts.Provider == "" {
		opts.Provider = "ai-worker"
	}
	return &Service{Deps: d, opts: opts, logger: logger}
}

// IssueUploadURL reserves a video key for ownerID and returns a presigned PUT URL for it.
func (s *Service) IssueUploadURL(ctx context.Context, ownerID, fileName, mimeType string) (*models.UploadTicket, error) {
	ownerID = strings.TrimSpace(ownerID)
	fileName = strings.TrimSpace(fileName)
	if ownerID == "" || fileName == "" || strings.Contains(ownerID, "/") {
		return nil, fmt.Errorf("%w: owner and file name are required", ErrInvalidInput)
	}
	if mimeType == "" {
		mimeType = "video/mp4"
	}
	key := storage.VideoKey(ownerID, fileName)
	url, err := s.Store.PresignUpload(ctx, key, mimeType)
	if err != nil {
		return nil, fmt.Errorf("presign upload: %w", err)
	}
	return &models.UploadTicket{UploadURL: url, VideoKey: key}, nil
}

// RegisterInput describes an uploaded video to register.
type RegisterInput struct {
	OwnerID     string
	Title       string
	Description string
	VideoKey    string
	DurationSec *int
	Tags        []string
	Visibility  string
}

// RegisterAsset persists the asset as READY and schedules thumbnail, AI
// dispatch and tag sync in the background. It never waits for them.
func (s *Service) RegisterAsset(ctx context.Context, in RegisterInput) (*models.Asset, error) {
	in.OwnerID = strings.TrimSpace(in.OwnerID)
	in.VideoKey = strings.TrimSpace(in.VideoKey)
	if in.OwnerID == "" || in.VideoKey == "" {
		return nil, fmt.Errorf("%w: owner and video key are required", ErrInvalidInput)
	}
	if owner := storage.OwnerFromVideoKey(in.VideoKey); owner != in.OwnerID {
		return nil, fmt.Errorf("%w: video key does not belong to owner", ErrInvalidInput)
	}
	if in.DurationSec != nil && *in.DurationSec < 0 {
		return nil, fmt.Errorf("%w: negative duration", ErrInvalidInput)
	}
	visibility := strings.ToUpper(strings.TrimSpace(in.Visibility))
	switch visibility {
	case "":
		visibility = models.VisibilityPublic
	case models.VisibilityPublic, models.VisibilityPrivate:
	default:
		return nil, fmt.Errorf("%w: unknown visibility %q", ErrInvalidInput, in.Visibility)
	}

	existing, err := s.Assets.GetByVideoKey(ctx, in.VideoKey)
	if err != nil {
		return nil, fmt.Errorf("lookup video key: %w", err)
	}
	if existing != nil {
		return nil, ErrConflict
	}

	asset := &models.Asset{
		OwnerID:     in.OwnerID,
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		VideoKey:    in.VideoKey,
		DurationSec: in.DurationSec,
		Tags:        summaries.CleanTags(in.Tags),
		Visibility:  visibility,
		Status:      models.AssetStatusReady,
	}
	if err := s.Assets.Create(ctx, asset); err != nil {
		if errors.Is(err, assets.ErrDuplicateVideoKey) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("create asset: %w", err)
	}
	s.logger.Info("asset registered", zap.Int64("asset_id", asset.ID), zap.String("video_key", asset.VideoKey))

	payload := queue.AssetPayload{AssetID: asset.ID, VideoKey: asset.VideoKey}
	for _, t := range []queue.JobType{queue.JobTypeThumbnail, queue.JobTypeAIDispatch, queue.JobTypeTagSync} {
		if err := s.Tasks.Enqueue(context.WithoutCancel(ctx), t, payload); err != nil {
			s.logger.Error("schedule background job failed",
				zap.String("type", string(t)),
				zap.Int64("asset_id", asset.ID),
				zap.Error(err),
			)
		}
	}
	return asset, nil
}

// DispatchAIJob records a PENDING job, moves the asset to PROCESSING_STT and
// submits it to the AI worker. A rejected submission fails the asset and the
// job in one transaction. A redelivered dispatch reuses the pending job and
// does nothing once the job has concluded.
func (s *Service) DispatchAIJob(ctx context.Context, asset *models.Asset) error {
	if asset.Status == models.AssetStatusFailed {
		s.logger.Warn("not dispatching failed asset", zap.Int64("asset_id", asset.ID))
		return nil
	}
	job, err := s.Jobs.GetLatestByAsset(ctx, asset.ID)
	if err != nil {
		return fmt.Errorf("lookup ai job: %w", err)
	}
	switch {
	case job != nil && job.Status.Terminal():
		s.logger.Info("ai job already concluded", zap.Int64("asset_id", asset.ID), zap.Int64("ai_job_id", job.ID))
		return nil
	case job == nil:
		job = &models.AIJob{
			AssetID:           asset.ID,
			Provider:          s.opts.Provider,
			ProviderRequestID: asset.VideoKey,
			Status:            models.AIJobStatusPending,
		}
		if err := s.Jobs.Create(ctx, job); err != nil {
			return fmt.Errorf("create ai job: %w", err)
		}
	}
	moved, err := s.Assets.TransitionStatus(ctx, asset.ID, []models.AssetStatus{models.AssetStatusReady}, models.AssetStatusProcessingSTT)
	if err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}
	if moved {
		asset.Status = models.AssetStatusProcessingSTT
		s.notify(asset)
	}

	req := aiworker.NewRequest(asset.VideoKey, s.opts.CallbackBase)
	if err := s.Intake.Submit(ctx, req); err != nil {
		s.logger.Error("ai intake rejected", zap.Int64("asset_id", asset.ID), zap.String("job_id", req.JobID), zap.Error(err))
		failed := func(st TxStores) error {
			if uerr := st.Assets.UpdateStatus(ctx, asset.ID, models.AssetStatusFailed); uerr != nil {
				return fmt.Errorf("mark asset failed: %w", uerr)
			}
			if jerr := st.Jobs.MarkFailed(ctx, job.ID, "[DISPATCH] "+err.Error()); jerr != nil {
				return fmt.Errorf("mark job failed: %w", jerr)
			}
			return nil
		}
		if terr := s.Tx.InTx(ctx, failed); terr != nil {
			return terr
		}
		asset.Status = models.AssetStatusFailed
		s.notify(asset)
		return nil
	}
	s.logger.Info("ai job dispatched", zap.Int64("asset_id", asset.ID), zap.Int64("ai_job_id", job.ID))
	return nil
}

// EnsureThumbnail generates the thumbnail if needed and records its key on the asset.
func (s *Service) EnsureThumbnail(ctx context.Context, videoKey string) (bool, error) {
	ok, err := s.Thumbnails.Ensure(ctx, videoKey)
	if err != nil || !ok {
		return ok, err
	}
	thumbKey := storage.ThumbnailKey(videoKey)
	if err := s.Assets.SetThumbnailKey(ctx, videoKey, thumbKey); err != nil {
		return true, fmt.Errorf("record thumbnail key: %w", err)
	}
	if asset, err := s.Assets.GetByVideoKey(ctx, videoKey); err == nil && asset != nil {
		s.notify(asset)
	}
	return true, nil
}

// SyncTags copies tags from an existing summary document onto the asset.
// Missing documents or empty tag lists leave the asset untouched.
func (s *Service) SyncTags(ctx context.Context, assetID int64, videoKey string) error {
	doc, err := s.Summaries.Read(ctx, videoKey)
	if err != nil {
		return fmt.Errorf("read summary: %w", err)
	}
	if doc == nil {
		return nil
	}
	tags := doc.ExtractTags()
	if len(tags) == 0 {
		return nil
	}
	if err := s.Assets.UpdateTags(ctx, assetID, tags); err != nil {
		return fmt.Errorf("update tags: %w", err)
	}
	s.logger.Info("tags synced from summary", zap.Int64("asset_id", assetID), zap.Strings("tags", tags))
	return nil
}

// RegenerateThumbnail schedules a thumbnail ensure for a registered video.
func (s *Service) RegenerateThumbnail(ctx context.Context, videoKey string) error {
	asset, err := s.Assets.GetByVideoKey(ctx, videoKey)
	if err != nil {
		return fmt.Errorf("lookup video key: %w", err)
	}
	if asset == nil {
		return ErrAssetNotFound
	}
	return s.Tasks.Enqueue(ctx, queue.JobTypeThumbnail, queue.AssetPayload{AssetID: asset.ID, VideoKey: asset.VideoKey})
}

// GenerateMissingThumbnails schedules thumbnail jobs for assets without one
// and returns how many were scheduled.
func (s *Service) GenerateMissingThumbnails(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = 500
	}
	list, err := s.Assets.ListMissingThumbnail(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("list missing thumbnails: %w", err)
	}
	n := 0
	for _, a := range list {
		if err := s.Tasks.Enqueue(ctx, queue.JobTypeThumbnail, queue.AssetPayload{AssetID: a.ID, VideoKey: a.VideoKey}); err != nil {
			s.logger.Warn("schedule thumbnail failed", zap.Int64("asset_id", a.ID), zap.Error(err))
			continue
		}
		n++
	}
	return n, nil
}

// Reconcile runs the backfill crawler over prefix (default summary prefix).
func (s *Service) Reconcile(ctx context.Context, prefix string) (backfill.Report, error) {
	if s.Reconciler == nil {
		return backfill.Report{}, errors.New("reconcile not configured")
	}
	if prefix == "" {
		prefix = s.opts.SummaryPrefix
	}
	return s.Reconciler.Reconcile(ctx, prefix)
}

func (s *Service) notify(a *models.Asset) {
	if s.Notifier != nil && a != nil {
		s.Notifier.AssetUpdated(a)
	}
}
