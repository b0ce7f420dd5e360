package thumbnail

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2025-X-Thon-Team10-JobShorts/Backend/pkg/keylock"
	"github.com/2025-X-Thon-Team10-JobShorts/Backend/pkg/storage"
)

type memStore struct {
	mu         sync.Mutex
	objects    map[string][]byte
	writes     map[string]int
	rangeErr   error
	rangeCalls int
	fullCalls  int
	writeDelay time.Duration
}

func newMemStore() *memStore {
	return &memStore{objects: map[string][]byte{}, writes: map[string]int{}}
}

func (m *memStore) Exists(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok, nil
}

func (m *memStore) Read(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fullCalls++
	b, ok := m.objects[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return b, nil
}

func (m *memStore) ReadRange(_ context.Context, key string, offset, length int64) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rangeCalls++
	if m.rangeErr != nil {
		return nil, m.rangeErr
	}
	b, ok := m.objects[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	end := offset + length
	if end > int64(len(b)) {
		end = int64(len(b))
	}
	return b[offset:end], nil
}

func (m *memStore) Write(_ context.Context, key string, data []byte, _ string) error {
	if m.writeDelay > 0 {
		time.Sleep(m.writeDelay)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	m.writes[key]++
	return nil
}

// fakeFrames writes a solid PNG instead of running ffmpeg.
type fakeFrames struct {
	calls    int32
	failures int32
	paths    []string
	mu       sync.Mutex
}

func (f *fakeFrames) Extract(_ context.Context, videoPath, framePath string) error {
	n := atomic.AddInt32(&f.calls, 1)
	f.mu.Lock()
	f.paths = append(f.paths, videoPath, framePath)
	f.mu.Unlock()
	if n <= atomic.LoadInt32(&f.failures) {
		return errors.New("decode error")
	}
	img := image.NewRGBA(image.Rect(0, 0, 64, 48))
	for x := 0; x < 64; x++ {
		for y := 0; y < 48; y++ {
			img.Set(x, y, color.RGBA{R: 200, G: 100, B: 50, A: 255})
		}
	}
	out, err := os.Create(framePath)
	if err != nil {
		return err
	}
	defer out.Close()
	return png.Encode(out, img)
}

func testOptions(t *testing.T) Options {
	return Options{Backoff: time.Millisecond, TempDir: t.TempDir()}
}

func TestEnsureGeneratesThumbnail(t *testing.T) {
	store := newMemStore()
	store.objects["videos/u1/abc_clip.mp4"] = []byte("not really a video")
	frames := &fakeFrames{}
	opts := testOptions(t)
	g := NewGenerator(store, frames, keylock.New(), opts, nil)

	ok, err := g.Ensure(context.Background(), "videos/u1/abc_clip.mp4")
	require.NoError(t, err)
	require.True(t, ok)

	thumb, exists := store.objects["videos/u1/abc_clip_thumbnail.jpg"]
	require.True(t, exists)
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(thumb))
	require.NoError(t, err)
	assert.Equal(t, 320, cfg.Width)
	assert.Equal(t, 180, cfg.Height)

	require.Len(t, frames.paths, 2)
	assert.Contains(t, frames.paths[0], ".mp4")
	entries, err := os.ReadDir(opts.TempDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "temp files must be removed")
}

func TestEnsureSkipsExistingThumbnail(t *testing.T) {
	store := newMemStore()
	store.objects["videos/u1/a.mp4"] = []byte("v")
	store.objects["videos/u1/a_thumbnail.jpg"] = []byte("old")
	frames := &fakeFrames{}
	g := NewGenerator(store, frames, keylock.New(), testOptions(t), nil)

	ok, err := g.Ensure(context.Background(), "videos/u1/a.mp4")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int32(0), frames.calls)
	assert.Equal(t, 0, store.writes["videos/u1/a_thumbnail.jpg"])
}

func TestEnsureMissingVideoDoesNotRetry(t *testing.T) {
	store := newMemStore()
	frames := &fakeFrames{}
	g := NewGenerator(store, frames, keylock.New(), testOptions(t), nil)

	ok, err := g.Ensure(context.Background(), "videos/u1/missing.mp4")
	require.NoError(t, err)
	require.False(t, ok)
	assert.Equal(t, int32(0), frames.calls)
	assert.Equal(t, 0, store.rangeCalls)
}

func TestEnsureConcurrentCallsUploadOnce(t *testing.T) {
	store := newMemStore()
	store.objects["videos/u1/abc_clip.mp4"] = []byte("v")
	store.writeDelay = 20 * time.Millisecond
	g := NewGenerator(store, &fakeFrames{}, keylock.New(), testOptions(t), nil)

	var wg sync.WaitGroup
	results := make([]bool, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ok, err := g.Ensure(context.Background(), "videos/u1/abc_clip.mp4")
			assert.NoError(t, err)
			results[i] = ok
		}(i)
	}
	wg.Wait()

	assert.Equal(t, []bool{true, true}, results)
	assert.Equal(t, 1, store.writes["videos/u1/abc_clip_thumbnail.jpg"])
}

func TestEnsureRetriesThenSucceeds(t *testing.T) {
	store := newMemStore()
	store.objects["videos/u1/a.mp4"] = []byte("v")
	frames := &fakeFrames{failures: 2}
	g := NewGenerator(store, frames, keylock.New(), testOptions(t), nil)

	ok, err := g.Ensure(context.Background(), "videos/u1/a.mp4")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int32(3), frames.calls)
}

func TestEnsureGivesUpAfterAttempts(t *testing.T) {
	store := newMemStore()
	store.objects["videos/u1/a.mp4"] = []byte("v")
	frames := &fakeFrames{failures: 10}
	g := NewGenerator(store, frames, keylock.New(), testOptions(t), nil)

	ok, err := g.Ensure(context.Background(), "videos/u1/a.mp4")
	require.ErrorIs(t, err, ErrExhausted)
	require.False(t, ok)
	assert.Equal(t, int32(3), frames.calls)
	assert.Equal(t, 0, store.writes["videos/u1/a_thumbnail.jpg"])
}

func TestEnsureFallsBackToFullDownload(t *testing.T) {
	store := newMemStore()
	store.objects["videos/u1/a.mov"] = []byte("v")
	store.rangeErr = errors.New("range not satisfiable")
	frames := &fakeFrames{}
	g := NewGenerator(store, frames, keylock.New(), testOptions(t), nil)

	ok, err := g.Ensure(context.Background(), "videos/u1/a.mov")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, store.fullCalls)
	assert.Contains(t, frames.paths[0], ".mov")
}

func TestSeekOffset(t *testing.T) {
	assert.Equal(t, 1.0, SeekOffset(60))
	assert.InDelta(t, 0.5, SeekOffset(5), 1e-9)
	assert.Equal(t, 0.0, SeekOffset(0))
}
