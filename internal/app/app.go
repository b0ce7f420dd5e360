// Package app assembles the services shared by the server, worker and
// backfill binaries.
package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/2025-X-Thon-Team10-JobShorts/Backend/config"
	"github.com/2025-X-Thon-Team10-JobShorts/Backend/internal/aijobs"
	"github.com/2025-X-Thon-Team10-JobShorts/Backend/internal/aiworker"
	"github.com/2025-X-Thon-Team10-JobShorts/Backend/internal/assets"
	"github.com/2025-X-Thon-Team10-JobShorts/Backend/internal/backfill"
	"github.com/2025-X-Thon-Team10-JobShorts/Backend/internal/enrichment"
	"github.com/2025-X-Thon-Team10-JobShorts/Backend/internal/realtime"
	"github.com/2025-X-Thon-Team10-JobShorts/Backend/internal/summaries"
	"github.com/2025-X-Thon-Team10-JobShorts/Backend/internal/thumbnail"
	"github.com/2025-X-Thon-Team10-JobShorts/Backend/internal/users"
	"github.com/2025-X-Thon-Team10-JobShorts/Backend/internal/worker"
	"github.com/2025-X-Thon-Team10-JobShorts/Backend/pkg/bus"
	"github.com/2025-X-Thon-Team10-JobShorts/Backend/pkg/database"
	"github.com/2025-X-Thon-Team10-JobShorts/Backend/pkg/keylock"
	"github.com/2025-X-Thon-Team10-JobShorts/Backend/pkg/queue"
	"github.com/2025-X-Thon-Team10-JobShorts/Backend/pkg/redis"
	"github.com/2025-X-Thon-Team10-JobShorts/Backend/pkg/storage"
)

// App holds the wired components of one process.
type App struct {
	Config     *config.Config
	Logger     *zap.Logger
	Pool       *pgxpool.Pool
	Redis      *redis.Client // nil when not configured for this process
	S3         *storage.S3
	Hub        *realtime.Hub
	Processor  *worker.Processor
	Tasks      *worker.Pool  // set for the memory backend
	Queue      *queue.Queue  // set for the redis backend
	Enrichment *enrichment.Service
	Crawler    *backfill.Crawler
	Assets     *assets.Repository
	Jobs       *aijobs.Repository

	nats *bus.Client
}

// New connects to the stores and wires the enrichment pipeline. When
// startPool is set and the memory backend is configured, background tasks run
// on an in-process pool; otherwise they are pushed to the Redis queue.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger, startPool bool) (*App, error) {
	a := &App{Config: cfg, Logger: logger}
	ok := false
	defer func() {
		if !ok {
			a.Close(context.Background())
		}
	}()

	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	a.Pool = pool
	if err := database.Migrate(ctx, pool); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	useRedisQueue := cfg.Worker.Backend == config.TaskBackendRedis || !startPool
	if rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger); err != nil {
		if useRedisQueue {
			return nil, fmt.Errorf("redis: %w", err)
		}
		logger.Warn("redis unavailable; realtime events stay on this instance", zap.Error(err))
	} else {
		a.Redis = rdb
	}

	s3Client, err := storage.NewS3(ctx, storage.S3Config{
		Region:          cfg.AWS.Region,
		AccessKeyID:     cfg.AWS.AccessKeyID,
		SecretAccessKey: cfg.AWS.SecretAccessKey,
		Bucket:          cfg.AWS.MediaBucket,
		Endpoint:        cfg.AWS.Endpoint,
		UsePathStyle:    cfg.AWS.UsePathStyle,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("s3: %w", err)
	}
	a.S3 = s3Client

	intake, err := a.intake()
	if err != nil {
		return nil, err
	}

	if a.Redis != nil {
		ps := realtime.NewRedisPubSub(a.Redis.Client, logger)
		a.Hub = realtime.NewHub(logger, ps, ps)
	} else {
		a.Hub = realtime.NewHub(logger, nil, nil)
	}

	a.Processor = worker.NewProcessor(cfg.Worker.TaskTimeout, logger)
	var tasks enrichment.Enqueuer
	if useRedisQueue {
		a.Queue = queue.NewQueue(a.Redis.Client, logger)
		tasks = a.Queue
		logger.Info("background tasks use the redis queue; thumbnail locks are per process")
	} else {
		a.Tasks = worker.NewPool(a.Processor, cfg.Worker.PoolSize, cfg.Worker.QueueCapacity, logger)
		tasks = a.Tasks
	}

	a.Assets = assets.NewRepository(pool)
	a.Jobs = aijobs.NewRepository(pool)
	userRepo := users.NewRepository(pool)
	summaryReader := summaries.NewReader(s3Client, keylock.New())

	thumbs := thumbnail.NewGenerator(
		s3Client,
		thumbnail.NewFFmpegExtractor(cfg.Thumbnail.FFmpegPath, cfg.Thumbnail.FFprobePath),
		keylock.New(),
		thumbnail.Options{
			Width:          cfg.Thumbnail.Width,
			Height:         cfg.Thumbnail.Height,
			Quality:        cfg.Thumbnail.Quality,
			PartialBytes:   cfg.Thumbnail.PartialBytes,
			Attempts:       cfg.Thumbnail.Attempts,
			Backoff:        cfg.Thumbnail.Backoff,
			AttemptTimeout: cfg.Thumbnail.AttemptTimeout,
			TempDir:        cfg.Thumbnail.TempDir,
		},
		logger,
	)

	a.Crawler = backfill.NewCrawler(s3Client, summaryReader, a.Assets, a.Jobs, userRepo, tasks, backfill.Options{
		VideoPrefix:     cfg.Backfill.VideoPrefix,
		VideoExtensions: cfg.Backfill.VideoExtensions,
		Concurrency:     cfg.Backfill.Concurrency,
	}, logger)

	a.Enrichment = enrichment.NewService(enrichment.Deps{
		Store:      s3Client,
		Assets:     a.Assets,
		Jobs:       a.Jobs,
		Users:      userRepo,
		Thumbnails: thumbs,
		Summaries:  summaryReader,
		Intake:     intake,
		Tasks:      tasks,
		Notifier:   a.Hub,
		Reconciler: a.Crawler,
		Tx:         enrichment.NewPgTx(a.Pool, a.Assets, a.Jobs),
	}, enrichment.Options{
		CallbackBase:       cfg.AI.CallbackBase,
		DefaultPageSize:    cfg.Feed.DefaultPageSize,
		MaxPageSize:        cfg.Feed.MaxPageSize,
		BootstrapReconcile: cfg.Feed.BootstrapCrawl,
		SummaryPrefix:      cfg.Backfill.SummaryPrefix,
	}, logger)

	a.Processor.Register(queue.JobTypeThumbnail, a.Enrichment.HandleThumbnail)
	a.Processor.Register(queue.JobTypeAIDispatch, a.Enrichment.HandleAIDispatch)
	a.Processor.Register(queue.JobTypeTagSync, a.Enrichment.HandleTagSync)

	ok = true
	return a, nil
}

func (a *App) intake() (enrichment.Intake, error) {
	cfg := a.Config
	if cfg.AI.Transport == config.AITransportNATS {
		nc, err := bus.Connect(cfg.NATS.URL, a.Logger)
		if err != nil {
			return nil, fmt.Errorf("nats: %w", err)
		}
		a.nats = nc
		return aiworker.NewNATSClient(nc, cfg.AI.Subject, cfg.AI.RequestTimeout, a.Logger), nil
	}
	return aiworker.NewHTTPClient(cfg.AI.IntakeURL, cfg.AI.RequestTimeout, a.Logger), nil
}

// Close drains the task pool and releases connections.
func (a *App) Close(ctx context.Context) {
	if a.Tasks != nil {
		if err := a.Tasks.Shutdown(ctx); err != nil {
			a.Logger.Warn("task pool did not drain", zap.Error(err))
		}
	}
	if a.nats != nil {
		a.nats.Close()
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if a.Pool != nil {
		a.Pool.Close()
	}
}
