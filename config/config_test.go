package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TASK_BACKEND", "")
	t.Setenv("AI_TRANSPORT", "")
	t.Setenv("PUBLIC_BASE_URL", "https://api.example.com/")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, TaskBackendMemory, cfg.Worker.Backend)
	require.Equal(t, AITransportHTTP, cfg.AI.Transport)
	require.Equal(t, "https://api.example.com", cfg.AI.CallbackBase)
	require.Equal(t, 320, cfg.Thumbnail.Width)
	require.Equal(t, 180, cfg.Thumbnail.Height)
	require.Equal(t, 2*time.Second, cfg.Thumbnail.Backoff)
	require.Equal(t, int64(10*1024*1024), cfg.Thumbnail.PartialBytes)
	require.Equal(t, 10, cfg.Feed.DefaultPageSize)
	require.Contains(t, cfg.Backfill.VideoExtensions, ".webm")
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("TASK_BACKEND", "REDIS")
	t.Setenv("AI_TRANSPORT", "nats")
	t.Setenv("THUMBNAIL_BACKOFF", "500ms")
	t.Setenv("AWS_S3_PATH_STYLE", "true")
	t.Setenv("BACKFILL_VIDEO_EXTENSIONS", " .mp4 , ,.mov")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, TaskBackendRedis, cfg.Worker.Backend)
	require.Equal(t, AITransportNATS, cfg.AI.Transport)
	require.Equal(t, 500*time.Millisecond, cfg.Thumbnail.Backoff)
	require.True(t, cfg.AWS.UsePathStyle)
	require.Equal(t, []string{".mp4", ".mov"}, cfg.Backfill.VideoExtensions)
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	t.Setenv("TASK_BACKEND", "kafka")
	_, err := Load()
	require.Error(t, err)
	require.Contains(t, err.Error(), "TASK_BACKEND")
}

func TestDSNPrefersURL(t *testing.T) {
	c := DatabaseConfig{URL: "postgres://x/y"}
	require.Equal(t, "postgres://x/y", c.DSN())

	c = DatabaseConfig{User: "u", Password: "p", Host: "h", Port: "5432", DBName: "d", SSLMode: "disable"}
	require.Equal(t, "postgres://u:p@h:5432/d?sslmode=disable", c.DSN())
}
