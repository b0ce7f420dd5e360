package storage

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThumbnailKey(t *testing.T) {
	assert.Equal(t, "videos/u1/abc_clip_thumbnail.jpg", ThumbnailKey("videos/u1/abc_clip.mp4"))
	assert.Equal(t, "videos/u1/noext_thumbnail.jpg", ThumbnailKey("videos/u1/noext"))
	assert.Equal(t, "videos/u.1/a_b_thumbnail.jpg", ThumbnailKey("videos/u.1/a_b.MOV"))
}

func TestVideoKey(t *testing.T) {
	key := VideoKey("u1", "../../etc/clip.mp4")
	require.True(t, strings.HasPrefix(key, "videos/u1/"), key)
	require.True(t, strings.HasSuffix(key, "_clip.mp4"), key)
	require.NotEqual(t, key, VideoKey("u1", "clip.mp4"))
	require.Equal(t, "u1", OwnerFromVideoKey(key))
}

func TestVideoExt(t *testing.T) {
	assert.Equal(t, ".mov", VideoExt("videos/u1/a.MOV"))
	assert.Equal(t, ".mp4", VideoExt("videos/u1/a"))
}

func TestOwnerFromVideoKey(t *testing.T) {
	assert.Equal(t, "p-9", OwnerFromVideoKey("videos/p-9/x_y.mp4"))
	assert.Equal(t, "", OwnerFromVideoKey("summary/summary_y.json"))
	assert.Equal(t, "", OwnerFromVideoKey("videos/x.mp4"))
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(ErrNotFound))
	assert.True(t, IsNotFound(fmt.Errorf("wrap: %w", &types.NoSuchKey{})))
	assert.True(t, IsNotFound(&types.NotFound{}))
	assert.False(t, IsNotFound(errors.New("connection reset")))
	assert.False(t, IsNotFound(nil))
}
