package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Task backends for background enrichment work.
const (
	TaskBackendMemory = "memory"
	TaskBackendRedis  = "redis"
)

// AI intake transports.
const (
	AITransportHTTP = "http"
	AITransportNATS = "nats"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	AWS       AWSConfig
	AI        AIConfig
	NATS      NATSConfig
	Worker    WorkerConfig
	Thumbnail ThumbnailConfig
	Feed      FeedConfig
	Backfill  BackfillConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string
	ReadTimeout        int
	WriteTimeout       int
	CORSAllowedOrigins string // comma-separated, or "*" for all
	CORSMaxAge         time.Duration
	PublicBaseURL      string // used to build AI callback URLs
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL      string // if set, used as-is
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// JWTConfig holds JWT validation settings for viewer identity.
type JWTConfig struct {
	Secret      string
	ExpireHours int
}

// AWSConfig holds AWS credentials and the media bucket.
type AWSConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	MediaBucket     string
	Endpoint        string // optional, S3-compatible stores (MinIO, LocalStack)
	UsePathStyle    bool
}

// AIConfig holds the external AI worker contract settings.
type AIConfig struct {
	Transport      string // http | nats
	IntakeURL      string
	Subject        string
	CallbackBase   string // defaults to Server.PublicBaseURL
	InternalToken  string // X-Internal-Token shared secret; empty disables the check
	RequestTimeout time.Duration
}

// NATSConfig holds the NATS connection used by the nats AI transport.
type NATSConfig struct {
	URL string
}

// WorkerConfig controls background task execution.
type WorkerConfig struct {
	Backend       string // memory | redis
	PoolSize      int
	QueueCapacity int
	TaskTimeout   time.Duration
}

// ThumbnailConfig controls frame extraction and encoding.
type ThumbnailConfig struct {
	Width          int
	Height         int
	Quality        int
	FFmpegPath     string
	FFprobePath    string
	PartialBytes   int64
	Attempts       int
	Backoff        time.Duration
	AttemptTimeout time.Duration
	TempDir        string
}

// FeedConfig controls pagination defaults.
type FeedConfig struct {
	DefaultPageSize int
	MaxPageSize     int
	BootstrapCrawl  bool // reconcile from the object store when the asset table is empty
}

// BackfillConfig controls the object store reconcile job.
type BackfillConfig struct {
	SummaryPrefix   string
	VideoPrefix     string
	VideoExtensions []string
	Concurrency     int
}

// DSN returns the PostgreSQL connection string.
// If DatabaseConfig.URL is set (e.g. DATABASE_URL env), it is used as-is; otherwise built from components.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()      // .env
	_ = godotenv.Load("env") // env (no leading dot)

	publicBase := strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:8080"), "/")

	cfg := &Config{
		Server: ServerConfig{
			Port:               getEnv("PORT", "8080"),
			ReadTimeout:        getEnvInt("READ_TIMEOUT_SEC", 30),
			WriteTimeout:       getEnvInt("WRITE_TIMEOUT_SEC", 30),
			CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
			CORSMaxAge:         getEnvDuration("CORS_MAX_AGE", 12*time.Hour),
			PublicBaseURL:      publicBase,
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", ""),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "jobshorts"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret:      getEnv("JWT_SECRET", "change-me-in-production"),
			ExpireHours: getEnvInt("JWT_EXPIRE_HOURS", 24),
		},
		AWS: AWSConfig{
			Region:          getEnv("AWS_REGION", "ap-northeast-2"),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			MediaBucket:     getEnv("AWS_S3_MEDIA_BUCKET", "jobshorts-media"),
			Endpoint:        getEnv("AWS_S3_ENDPOINT", ""),
			UsePathStyle:    getEnvBool("AWS_S3_PATH_STYLE", false),
		},
		AI: AIConfig{
			Transport:      strings.ToLower(getEnv("AI_TRANSPORT", AITransportHTTP)),
			IntakeURL:      getEnv("AI_INTAKE_URL", "http://localhost:8000/jobs"),
			Subject:        getEnv("AI_NATS_SUBJECT", "ai.jobs.intake"),
			CallbackBase:   strings.TrimRight(getEnv("AI_CALLBACK_BASE_URL", publicBase), "/"),
			InternalToken:  getEnv("INTERNAL_CALLBACK_TOKEN", ""),
			RequestTimeout: getEnvDuration("AI_REQUEST_TIMEOUT", 10*time.Second),
		},
		NATS: NATSConfig{
			URL: getEnv("NATS_URL", "nats://localhost:4222"),
		},
		Worker: WorkerConfig{
			Backend:       strings.ToLower(getEnv("TASK_BACKEND", TaskBackendMemory)),
			PoolSize:      getEnvInt("WORKER_POOL_SIZE", 4),
			QueueCapacity: getEnvInt("WORKER_QUEUE_CAPACITY", 256),
			TaskTimeout:   getEnvDuration("WORKER_TASK_TIMEOUT", 5*time.Minute),
		},
		Thumbnail: ThumbnailConfig{
			Width:          getEnvInt("THUMBNAIL_WIDTH", 320),
			Height:         getEnvInt("THUMBNAIL_HEIGHT", 180),
			Quality:        getEnvInt("THUMBNAIL_JPEG_QUALITY", 85),
			FFmpegPath:     getEnv("FFMPEG_PATH", "ffmpeg"),
			FFprobePath:    getEnv("FFPROBE_PATH", "ffprobe"),
			PartialBytes:   int64(getEnvInt("THUMBNAIL_PARTIAL_BYTES", 10*1024*1024)),
			Attempts:       getEnvInt("THUMBNAIL_ATTEMPTS", 3),
			Backoff:        getEnvDuration("THUMBNAIL_BACKOFF", 2*time.Second),
			AttemptTimeout: getEnvDuration("THUMBNAIL_ATTEMPT_TIMEOUT", 2*time.Minute),
			TempDir:        getEnv("THUMBNAIL_TEMP_DIR", ""),
		},
		Feed: FeedConfig{
			DefaultPageSize: getEnvInt("FEED_DEFAULT_PAGE_SIZE", 10),
			MaxPageSize:     getEnvInt("FEED_MAX_PAGE_SIZE", 50),
			BootstrapCrawl:  getEnvBool("FEED_BOOTSTRAP_RECONCILE", false),
		},
		Backfill: BackfillConfig{
			SummaryPrefix:   getEnv("BACKFILL_SUMMARY_PREFIX", "summary/"),
			VideoPrefix:     getEnv("BACKFILL_VIDEO_PREFIX", "videos/"),
			VideoExtensions: splitTrim(getEnv("BACKFILL_VIDEO_EXTENSIONS", ".mp4,.avi,.mov,.wmv,.flv,.mkv,.webm"), ","),
			Concurrency:     getEnvInt("BACKFILL_CONCURRENCY", 4),
		},
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the services cannot run with.
func (c *Config) Validate() error {
	switch c.Worker.Backend {
	case TaskBackendMemory, TaskBackendRedis:
	default:
		return fmt.Errorf("unknown TASK_BACKEND %q", c.Worker.Backend)
	}
	switch c.AI.Transport {
	case AITransportHTTP, AITransportNATS:
	default:
		return fmt.Errorf("unknown AI_TRANSPORT %q", c.AI.Transport)
	}
	if c.Worker.PoolSize <= 0 {
		return fmt.Errorf("WORKER_POOL_SIZE must be positive, got %d", c.Worker.PoolSize)
	}
	if c.Thumbnail.Width <= 0 || c.Thumbnail.Height <= 0 {
		return fmt.Errorf("thumbnail size must be positive, got %dx%d", c.Thumbnail.Width, c.Thumbnail.Height)
	}
	if c.Feed.DefaultPageSize <= 0 || c.Feed.MaxPageSize < c.Feed.DefaultPageSize {
		return fmt.Errorf("invalid feed page sizes: default %d, max %d", c.Feed.DefaultPageSize, c.Feed.MaxPageSize)
	}
	return nil
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func splitTrim(s, sep string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, v := range strings.Split(s, sep) {
		if t := strings.TrimSpace(v); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
