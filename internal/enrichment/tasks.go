package enrichment

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/2025-X-Thon-Team10-JobShorts/Backend/internal/models"
	"github.com/2025-X-Thon-Team10-JobShorts/Backend/internal/thumbnail"
	"github.com/2025-X-Thon-Team10-JobShorts/Backend/pkg/queue"
)

// HandleThumbnail makes sure the asset has a thumbnail. A missing video or an
// exhausted generation is logged and dropped; other errors are retried.
func (s *Service) HandleThumbnail(ctx context.Context, p queue.AssetPayload) error {
	ok, err := s.EnsureThumbnail(ctx, p.VideoKey)
	if errors.Is(err, thumbnail.ErrExhausted) {
		s.logger.Error("thumbnail generation gave up", zap.String("video_key", p.VideoKey), zap.Error(err))
		return nil
	}
	if err != nil {
		return err
	}
	if !ok {
		s.logger.Warn("thumbnail not generated", zap.String("video_key", p.VideoKey))
	}
	return nil
}

// HandleAIDispatch submits the asset to the AI worker.
func (s *Service) HandleAIDispatch(ctx context.Context, p queue.AssetPayload) error {
	asset, err := s.lookup(ctx, p)
	if err != nil {
		return err
	}
	if asset == nil {
		s.logger.Warn("ai dispatch for unknown asset", zap.Int64("asset_id", p.AssetID), zap.String("video_key", p.VideoKey))
		return nil
	}
	return s.DispatchAIJob(ctx, asset)
}

// HandleTagSync copies tags from an existing summary object.
func (s *Service) HandleTagSync(ctx context.Context, p queue.AssetPayload) error {
	asset, err := s.lookup(ctx, p)
	if err != nil {
		return err
	}
	if asset == nil {
		return nil
	}
	return s.SyncTags(ctx, asset.ID, asset.VideoKey)
}

func (s *Service) lookup(ctx context.Context, p queue.AssetPayload) (*models.Asset, error) {
	var (
		asset *models.Asset
		err   error
	)
	if p.AssetID != 0 {
		asset, err = s.Assets.GetByID(ctx, p.AssetID)
	} else {
		asset, err = s.Assets.GetByVideoKey(ctx, p.VideoKey)
	}
	if err != nil {
		return nil, fmt.Errorf("lookup asset: %w", err)
	}
	return asset, nil
}
