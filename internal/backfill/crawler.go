// Package backfill rebuilds short-form rows from what the object store holds:
// summary documents left by the AI worker and the uploaded videos they
// describe.
package backfill

import (
	"context"
	"fmt"
	"path"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/2025-X-Thon-Team10-JobShorts/Backend/internal/models"
	"github.com/2025-X-Thon-Team10-JobShorts/Backend/internal/summaries"
	"github.com/2025-X-Thon-Team10-JobShorts/Backend/pkg/queue"
	"github.com/2025-X-Thon-Team10-JobShorts/Backend/pkg/storage"
)

// TitleRunes is how much of the summary becomes a generated title.
const TitleRunes = 50

// DefaultVideoExtensions are the upload extensions a summary can match.
var DefaultVideoExtensions = []string{".mp4", ".avi", ".mov", ".wmv", ".flv", ".mkv", ".webm"}

type Lister interface {
	List(ctx context.Context, prefix string) ([]string, error)
}

type SummaryReader interface {
	ReadKey(ctx context.Context, key string) (*summaries.Document, error)
}

type AssetStore interface {
	Create(ctx context.Context, a *models.Asset) error
	GetByVideoKey(ctx context.Context, videoKey string) (*models.Asset, error)
	UpdateTags(ctx context.Context, id int64, tags []string) error
	TransitionStatus(ctx context.Context, id int64, from []models.AssetStatus, to models.AssetStatus) (bool, error)
}

type JobStore interface {
	GetLatestByAsset(ctx context.Context, assetID int64) (*models.AIJob, error)
}

type Directory interface {
	Exists(ctx context.Context, pid string) (bool, error)
}

type Enqueuer interface {
	Enqueue(ctx context.Context, jobType queue.JobType, payload any) error
}

// Options tune a crawl.
type Options struct {
	VideoPrefix     string
	VideoExtensions []string
	Concurrency     int
}

// Report summarizes one reconcile run.
type Report struct {
	Scanned int `json:"scanned"`
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

type outcome int

const (
	skipped outcome = iota
	created
	updated
)

// Crawler reconciles the relational store with the object store.
type Crawler struct {
	store     Lister
	summaries SummaryReader
	assets    AssetStore
	jobs      JobStore
	users     Directory
	tasks     Enqueuer
	opts      Options
	logger    *zap.Logger
}

// NewCrawler creates a Crawler. tasks may be nil to skip thumbnail scheduling.
func NewCrawler(store Lister, sums SummaryReader, assets AssetStore, jobs JobStore, users Directory, tasks Enqueuer, opts Options, logger *zap.Logger) *Crawler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.VideoPrefix == "" {
		opts.VideoPrefix = storage.FolderVideos + "/"
	}
	if len(opts.VideoExtensions) == 0 {
		opts.VideoExtensions = DefaultVideoExtensions
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	return &Crawler{
		store:     store,
		summaries: sums,
		assets:    assets,
		jobs:      jobs,
		users:     users,
		tasks:     tasks,
		opts:      opts,
		logger:    logger,
	}
}

// Reconcile processes every summary document under prefix. Failures on single
// objects are counted and logged; only listing errors and cancellation abort
// the run.
func (c *Crawler) Reconcile(ctx context.Context, prefix string) (Report, error) {
	if prefix == "" {
		prefix = summaries.Prefix
	}
	keys, err := c.store.List(ctx, prefix)
	if err != nil {
		return Report{}, fmt.Errorf("list summaries: %w", err)
	}
	videos, err := c.store.List(ctx, c.opts.VideoPrefix)
	if err != nil {
		return Report{}, fmt.Errorf("list videos: %w", err)
	}
	videos = c.filterVideos(videos)

	var (
		mu     sync.Mutex
		report Report
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.Concurrency)
	for _, key := range keys {
		if !strings.HasSuffix(strings.ToLower(key), ".json") {
			continue
		}
		key := key
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := c.reconcileOne(gctx, key, videos)
			mu.Lock()
			defer mu.Unlock()
			report.Scanned++
			switch {
			case err != nil:
				report.Failed++
				c.logger.Warn("reconcile object failed", zap.String("key", key), zap.Error(err))
			case res == created:
				report.Created++
			case res == updated:
				report.Updated++
			default:
				report.Skipped++
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return report, err
	}
	c.logger.Info("reconcile finished",
		zap.String("prefix", prefix),
		zap.Int("scanned", report.Scanned),
		zap.Int("created", report.Created),
		zap.Int("updated", report.Updated),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed),
	)
	return report, nil
}

func (c *Crawler) reconcileOne(ctx context.Context, key string, videos []string) (outcome, error) {
	doc, err := c.summaries.ReadKey(ctx, key)
	if err != nil {
		return skipped, err
	}
	if doc == nil {
		return skipped, nil
	}
	videoKey := MatchVideo(summaries.NameFromKey(key), videos)
	if videoKey == "" {
		c.logger.Debug("no video for summary", zap.String("key", key))
		return skipped, nil
	}
	owner := storage.OwnerFromVideoKey(videoKey)
	if owner == "" {
		return skipped, nil
	}
	ok, err := c.users.Exists(ctx, owner)
	if err != nil {
		return skipped, fmt.Errorf("lookup owner: %w", err)
	}
	if !ok {
		c.logger.Debug("unknown owner for video", zap.String("video_key", videoKey), zap.String("owner", owner))
		return skipped, nil
	}

	tags := doc.ExtractTags()
	asset, err := c.assets.GetByVideoKey(ctx, videoKey)
	if err != nil {
		return skipped, fmt.Errorf("lookup asset: %w", err)
	}

	res := skipped
	if asset == nil {
		asset = &models.Asset{
			OwnerID:     owner,
			Title:       Title(doc.Summary),
			Description: strings.TrimSpace(doc.Summary),
			VideoKey:    videoKey,
			Tags:        tags,
			Visibility:  models.VisibilityPublic,
			Status:      models.AssetStatusReady,
		}
		if err := c.assets.Create(ctx, asset); err != nil {
			return skipped, fmt.Errorf("create asset: %w", err)
		}
		res = created
	} else {
		if res, err = c.update(ctx, asset, tags); err != nil {
			return skipped, err
		}
	}

	if c.tasks != nil {
		if err := c.tasks.Enqueue(ctx, queue.JobTypeThumbnail, queue.AssetPayload{AssetID: asset.ID, VideoKey: videoKey}); err != nil {
			c.logger.Warn("schedule thumbnail failed", zap.String("video_key", videoKey), zap.Error(err))
		}
	}
	return res, nil
}

// update applies tags and the PROCESSING_STT -> READY normalization. The
// normalization only happens when no AI job has reached a terminal state;
// terminal asset statuses are never touched.
func (c *Crawler) update(ctx context.Context, asset *models.Asset, tags []string) (outcome, error) {
	res := skipped
	if len(tags) > 0 {
		if err := c.assets.UpdateTags(ctx, asset.ID, tags); err != nil {
			return skipped, fmt.Errorf("update tags: %w", err)
		}
		res = updated
	}
	if asset.Status != models.AssetStatusProcessingSTT {
		return res, nil
	}
	job, err := c.jobs.GetLatestByAsset(ctx, asset.ID)
	if err != nil {
		return res, fmt.Errorf("lookup ai job: %w", err)
	}
	if job != nil && job.Status.Terminal() {
		return res, nil
	}
	moved, err := c.assets.TransitionStatus(ctx, asset.ID, []models.AssetStatus{models.AssetStatusProcessingSTT}, models.AssetStatusReady)
	if err != nil {
		return res, fmt.Errorf("normalize status: %w", err)
	}
	if moved {
		res = updated
	}
	return res, nil
}

func (c *Crawler) filterVideos(keys []string) []string {
	out := keys[:0:0]
	for _, k := range keys {
		ext := strings.ToLower(path.Ext(k))
		for _, allowed := range c.opts.VideoExtensions {
			if ext == strings.ToLower(allowed) {
				out = append(out, k)
				break
			}
		}
	}
	return out
}

// MatchVideo finds the video a summary name refers to. An exact base name
// match wins over a video whose file name merely contains the name.
func MatchVideo(name string, videos []string) string {
	if name == "" {
		return ""
	}
	fallback := ""
	for _, v := range videos {
		if summaries.BaseName(v) == name {
			return v
		}
		if fallback == "" && strings.Contains(path.Base(v), name) {
			fallback = v
		}
	}
	return fallback
}

// Title derives an asset title from a summary.
func Title(summary string) string {
	s := strings.TrimSpace(summary)
	if s == "" {
		return "Untitled"
	}
	r := []rune(s)
	if len(r) > TitleRunes {
		return string(r[:TitleRunes]) + "..."
	}
	return s
}
