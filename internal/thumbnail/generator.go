// Package thumbnail renders a still image for an uploaded video and stores it
// next to the video in the object store.
package thumbnail

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"

	"github.com/2025-X-Thon-Team10-JobShorts/Backend/pkg/keylock"
	"github.com/2025-X-Thon-Team10-JobShorts/Backend/pkg/storage"
)

// ErrExhausted is returned when every generation attempt failed. The failure is
// final for the video; callers should not schedule it again.
var ErrExhausted = errors.New("thumbnail attempts exhausted")

// ObjectStore is the subset of the media bucket the generator needs.
type ObjectStore interface {
	Exists(ctx context.Context, key string) (bool, error)
	Read(ctx context.Context, key string) ([]byte, error)
	ReadRange(ctx context.Context, key string, offset, length int64) ([]byte, error)
	Write(ctx context.Context, key string, data []byte, contentType string) error
}

// FrameExtractor writes one decoded video frame from videoPath as an image at framePath.
type FrameExtractor interface {
	Extract(ctx context.Context, videoPath, framePath string) error
}

// Options tune generation. Zero values fall back to defaults.
type Options struct {
	Width          int
	Height         int
	Quality        int
	PartialBytes   int64
	Attempts       int
	Backoff        time.Duration
	AttemptTimeout time.Duration
	TempDir        string
}

func (o Options) withDefaults() Options {
	if o.Width <= 0 {
		o.Width = 320
	}
	if o.Height <= 0 {
		o.Height = 180
	}
	if o.Quality <= 0 || o.Quality > 100 {
		o.Quality = 85
	}
	if o.PartialBytes <= 0 {
		o.PartialBytes = 10 * 1024 * 1024
	}
	if o.Attempts <= 0 {
		o.Attempts = 3
	}
	if o.Backoff < 0 {
		o.Backoff = 0
	}
	if o.AttemptTimeout <= 0 {
		o.AttemptTimeout = 2 * time.Minute
	}
	return o
}

// Generator ensures a thumbnail exists for a video key.
type Generator struct {
	store  ObjectStore
	frames FrameExtractor
	locks  *keylock.Registry
	opts   Options
	logger *zap.Logger
}

// NewGenerator creates a thumbnail generator. locks serializes work per video key.
func NewGenerator(store ObjectStore, frames FrameExtractor, locks *keylock.Registry, opts Options, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if locks == nil {
		locks = keylock.New()
	}
	return &Generator{store: store, frames: frames, locks: locks, opts: opts.withDefaults(), logger: logger}
}

// Ensure makes sure the thumbnail for videoKey exists. It returns true when the
// thumbnail already existed or was generated, false when the video is missing
// or every attempt failed.
func (g *Generator) Ensure(ctx context.Context, videoKey string) (bool, error) {
	thumbKey := storage.ThumbnailKey(videoKey)
	log := g.logger.With(zap.String("video_key", videoKey), zap.String("thumbnail_key", thumbKey))

	release, err := g.locks.AcquireContext(ctx, videoKey)
	if err != nil {
		return false, fmt.Errorf("acquire thumbnail lock: %w", err)
	}
	defer release()

	exists, err := g.store.Exists(ctx, thumbKey)
	if err != nil {
		log.Warn("thumbnail check failed, regenerating", zap.Error(err))
	} else if exists {
		log.Debug("thumbnail already exists")
		return true, nil
	}

	videoExists, err := g.store.Exists(ctx, videoKey)
	if err != nil {
		return false, fmt.Errorf("stat video: %w", err)
	}
	if !videoExists {
		log.Warn("video not found, skipping thumbnail")
		return false, nil
	}

	var lastErr error
	for attempt := 1; attempt <= g.opts.Attempts; attempt++ {
		if attempt > 1 {
			if err := sleep(ctx, g.opts.Backoff); err != nil {
				return false, err
			}
		}
		lastErr = g.attempt(ctx, videoKey, thumbKey)
		if lastErr == nil {
			log.Info("thumbnail generated", zap.Int("attempt", attempt))
			return true, nil
		}
		log.Warn("thumbnail attempt failed", zap.Int("attempt", attempt), zap.Error(lastErr))
	}
	return false, fmt.Errorf("%w after %d attempts: %w", ErrExhausted, g.opts.Attempts, lastErr)
}

func (g *Generator) attempt(parent context.Context, videoKey, thumbKey string) error {
	ctx, cancel := context.WithTimeout(parent, g.opts.AttemptTimeout)
	defer cancel()

	partial := true
	data, err := g.store.ReadRange(ctx, videoKey, 0, g.opts.PartialBytes)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return err
		}
		g.logger.Debug("range read failed, downloading whole video", zap.String("video_key", videoKey), zap.Error(err))
		partial = false
		if data, err = g.store.Read(ctx, videoKey); err != nil {
			return fmt.Errorf("download video: %w", err)
		}
	}

	img, err := g.render(ctx, videoKey, data)
	if err != nil && partial && int64(len(data)) >= g.opts.PartialBytes {
		// A truncated container can hide the index at the tail; retry with the whole file.
		full, rerr := g.store.Read(ctx, videoKey)
		if rerr != nil {
			return fmt.Errorf("download video: %w", rerr)
		}
		img, err = g.render(ctx, videoKey, full)
	}
	if err != nil {
		return err
	}
	if err := g.store.Write(ctx, thumbKey, img, "image/jpeg"); err != nil {
		return fmt.Errorf("upload thumbnail: %w", err)
	}
	return nil
}

// render writes data to a temp file, extracts a frame and returns it as a resized JPEG.
func (g *Generator) render(ctx context.Context, videoKey string, data []byte) ([]byte, error) {
	videoFile, err := os.CreateTemp(g.opts.TempDir, "video-*"+storage.VideoExt(videoKey))
	if err != nil {
		return nil, fmt.Errorf("create temp video: %w", err)
	}
	videoPath := videoFile.Name()
	defer os.Remove(videoPath)

	_, werr := videoFile.Write(data)
	cerr := videoFile.Close()
	if werr != nil {
		return nil, fmt.Errorf("write temp video: %w", werr)
	}
	if cerr != nil {
		return nil, fmt.Errorf("close temp video: %w", cerr)
	}

	framePath := filepath.Join(filepath.Dir(videoPath), filepath.Base(videoPath)+".frame.png")
	defer os.Remove(framePath)

	if err := g.frames.Extract(ctx, videoPath, framePath); err != nil {
		return nil, fmt.Errorf("extract frame: %w", err)
	}
	return Encode(framePath, g.opts.Width, g.opts.Height, g.opts.Quality)
}

// Encode loads the image at path, resizes it to exactly width x height with
// Lanczos resampling and returns it JPEG-encoded.
func Encode(path string, width, height, quality int) ([]byte, error) {
	src, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open frame: %w", err)
	}
	dst := imaging.Resize(src, width, height, imaging.Lanczos)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, dst, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
