package enrichment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/2025-X-Thon-Team10-JobShorts/Backend/internal/models"
)

// GetDetail returns the merged view of one asset. Summary and transcript come
// from the derived summary object when it exists, otherwise from the latest
// AI job.
func (s *Service) GetDetail(ctx context.Context, id int64, viewerID string) (*models.Detail, error) {
	asset, err := s.Assets.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get asset: %w", err)
	}
	if asset == nil {
		return nil, ErrAssetNotFound
	}
	job, err := s.Jobs.GetLatestByAsset(ctx, asset.ID)
	if err != nil {
		return nil, fmt.Errorf("get ai job: %w", err)
	}
	owners, following := s.people(ctx, viewerID, []models.Asset{*asset})

	jobs := map[int64]*models.AIJob{}
	if job != nil {
		jobs[asset.ID] = job
	}
	item := s.buildItem(ctx, *asset, owners, following, jobs)

	d := &models.Detail{FeedItem: item, Visibility: asset.Visibility}
	if asset.ThumbnailKey != nil {
		d.ThumbnailKey = *asset.ThumbnailKey
	}

	doc, err := s.Summaries.Read(ctx, asset.VideoKey)
	if err != nil {
		s.logger.Warn("summary read failed", zap.String("video_key", asset.VideoKey), zap.Error(err))
	}
	switch {
	case doc != nil:
		d.Transcript = doc.Transcript
		d.Summary = doc.Summary
	case job != nil:
		d.Transcript = job.Transcript
		d.Summary = job.Summary
	}
	if job != nil {
		d.ErrorMessage = job.ErrorMessage
	}
	return d, nil
}

// GetFeed returns the newest public assets before cursor.
func (s *Service) GetFeed(ctx context.Context, cursor string, pageSize int, viewerID string) (*models.Page, error) {
	beforeID, err := DecodeCursor(cursor)
	if err != nil {
		return nil, err
	}
	if beforeID == 0 {
		s.bootstrap(ctx)
	}
	limit := s.pageSize(pageSize)
	list, err := s.Assets.ListFeed(ctx, beforeID, limit+1)
	if err != nil {
		return nil, fmt.Errorf("list feed: %w", err)
	}
	return s.page(ctx, list, limit, viewerID)
}

// Search returns public assets carrying tag, newest first.
func (s *Service) Search(ctx context.Context, tag, cursor string, pageSize int, viewerID string) (*models.Page, error) {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return nil, fmt.Errorf("%w: tag is required", ErrInvalidInput)
	}
	beforeID, err := DecodeCursor(cursor)
	if err != nil {
		return nil, err
	}
	limit := s.pageSize(pageSize)
	list, err := s.Assets.ListByTag(ctx, tag, beforeID, limit+1)
	if err != nil {
		return nil, fmt.Errorf("list by tag: %w", err)
	}
	return s.page(ctx, list, limit, viewerID)
}

// ListByOwner returns every asset of an owner as feed items.
func (s *Service) ListByOwner(ctx context.Context, ownerID, viewerID string) ([]models.FeedItem, error) {
	list, err := s.Assets.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list by owner: %w", err)
	}
	return s.items(ctx, list, viewerID)
}

func (s *Service) pageSize(n int) int {
	if n <= 0 {
		return s.opts.DefaultPageSize
	}
	if n > s.opts.MaxPageSize {
		return s.opts.MaxPageSize
	}
	return n
}

func (s *Service) page(ctx context.Context, list []models.Asset, limit int, viewerID string) (*models.Page, error) {
	p := &models.Page{}
	if len(list) > limit {
		list = list[:limit]
		p.HasMore = true
	}
	items, err := s.items(ctx, list, viewerID)
	if err != nil {
		return nil, err
	}
	p.Items = items
	if p.HasMore && len(list) > 0 {
		p.NextCursor = EncodeCursor(list[len(list)-1].ID)
	}
	return p, nil
}

func (s *Service) items(ctx context.Context, list []models.Asset, viewerID string) ([]models.FeedItem, error) {
	out := make([]models.FeedItem, 0, len(list))
	if len(list) == 0 {
		return out, nil
	}
	ids := make([]int64, len(list))
	for i, a := range list {
		ids[i] = a.ID
	}
	jobs, err := s.Jobs.GetLatestByAssets(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("get ai jobs: %w", err)
	}
	owners, following := s.people(ctx, viewerID, list)
	for _, a := range list {
		out = append(out, s.buildItem(ctx, a, owners, following, jobs))
	}
	return out, nil
}

// people resolves owner profiles and the viewer's follow state. Directory
// failures degrade to bare owner ids.
func (s *Service) people(ctx context.Context, viewerID string, list []models.Asset) (map[string]models.OwnerInfo, map[string]bool) {
	seen := make(map[string]struct{}, len(list))
	pids := make([]string, 0, len(list))
	for _, a := range list {
		if _, ok := seen[a.OwnerID]; ok {
			continue
		}
		seen[a.OwnerID] = struct{}{}
		pids = append(pids, a.OwnerID)
	}
	owners, err := s.Users.GetOwnerInfos(ctx, pids)
	if err != nil {
		s.logger.Warn("owner lookup failed", zap.Error(err))
		owners = nil
	}
	var following map[string]bool
	if viewerID != "" {
		if following, err = s.Users.FollowingSet(ctx, viewerID, pids); err != nil {
			s.logger.Warn("follow lookup failed", zap.String("viewer", viewerID), zap.Error(err))
			following = nil
		}
		// Viewers never follow themselves.
		delete(following, viewerID)
	}
	return owners, following
}

func (s *Service) buildItem(ctx context.Context, a models.Asset, owners map[string]models.OwnerInfo, following map[string]bool, jobs map[int64]*models.AIJob) models.FeedItem {
	owner, ok := owners[a.OwnerID]
	if !ok {
		owner = models.OwnerInfo{PID: a.OwnerID}
	}
	owner.IsFollowed = following[a.OwnerID]

	item := models.FeedItem{
		ID:          a.ID,
		Owner:       owner,
		Title:       a.Title,
		Description: a.Description,
		VideoKey:    a.VideoKey,
		DurationSec: a.DurationSec,
		Tags:        a.Tags,
		Status:      a.Status,
		AIStatus:    models.AIJobStatusPending,
		CreatedAt:   a.CreatedAt,
	}
	if item.Tags == nil {
		item.Tags = []string{}
	}
	if job := jobs[a.ID]; job != nil {
		item.AIStatus = job.Status
		item.Summary = job.Summary
	}
	if url, err := s.Store.PresignDownload(ctx, a.VideoKey); err == nil {
		item.VideoURL = url
	} else {
		s.logger.Warn("presign video failed", zap.String("video_key", a.VideoKey), zap.Error(err))
	}
	if a.ThumbnailKey != nil && *a.ThumbnailKey != "" {
		if url, err := s.Store.PresignDownload(ctx, *a.ThumbnailKey); err == nil {
			item.ThumbnailURL = url
		}
	}
	return item
}

// bootstrap fills an empty store from the object store once per process.
func (s *Service) bootstrap(ctx context.Context) {
	if !s.opts.BootstrapReconcile || s.Reconciler == nil {
		return
	}
	n, err := s.Assets.Count(ctx)
	if err != nil || n > 0 {
		return
	}
	if !s.bootstrapped.CompareAndSwap(false, true) {
		return
	}
	report, err := s.Reconciler.Reconcile(ctx, s.opts.SummaryPrefix)
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Warn("feed bootstrap reconcile failed", zap.Error(err))
		return
	}
	s.logger.Info("feed bootstrap reconcile done", zap.Int("created", report.Created), zap.Int("updated", report.Updated))
}
