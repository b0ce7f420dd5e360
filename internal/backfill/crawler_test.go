package backfill

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2025-X-Thon-Team10-JobShorts/Backend/internal/models"
	"github.com/2025-X-Thon-Team10-JobShorts/Backend/internal/summaries"
	"github.com/2025-X-Thon-Team10-JobShorts/Backend/pkg/queue"
)

type fakeLister struct{ keys []string }

func (f *fakeLister) List(_ context.Context, prefix string) ([]string, error) {
	var out []string
	for _, k := range f.keys {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	return out, nil
}

type fakeSummaries map[string]*summaries.Document

func (f fakeSummaries) ReadKey(_ context.Context, key string) (*summaries.Document, error) {
	return f[key], nil
}

type fakeAssets struct {
	mu     sync.Mutex
	nextID int64
	byKey  map[string]*models.Asset
}

func newFakeAssets(list ...*models.Asset) *fakeAssets {
	f := &fakeAssets{byKey: map[string]*models.Asset{}}
	for _, a := range list {
		f.nextID++
		a.ID = f.nextID
		f.byKey[a.VideoKey] = a
	}
	return f
}

func (f *fakeAssets) Create(_ context.Context, a *models.Asset) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	a.ID = f.nextID
	cp := *a
	f.byKey[a.VideoKey] = &cp
	return nil
}

func (f *fakeAssets) GetByVideoKey(_ context.Context, key string) (*models.Asset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.byKey[key]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (f *fakeAssets) find(id int64) *models.Asset {
	for _, a := range f.byKey {
		if a.ID == id {
			return a
		}
	}
	return nil
}

func (f *fakeAssets) UpdateTags(_ context.Context, id int64, tags []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.find(id).Tags = tags
	return nil
}

func (f *fakeAssets) TransitionStatus(_ context.Context, id int64, from []models.AssetStatus, to models.AssetStatus) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a := f.find(id)
	for _, s := range from {
		if a.Status == s {
			a.Status = to
			return true, nil
		}
	}
	return false, nil
}

type fakeJobs map[int64]*models.AIJob

func (f fakeJobs) GetLatestByAsset(_ context.Context, id int64) (*models.AIJob, error) {
	return f[id], nil
}

type fakeUsers map[string]bool

func (f fakeUsers) Exists(_ context.Context, pid string) (bool, error) { return f[pid], nil }

type recordingTasks struct {
	mu   sync.Mutex
	keys []string
}

func (r *recordingTasks) Enqueue(_ context.Context, t queue.JobType, payload any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys = append(r.keys, string(t)+":"+payload.(queue.AssetPayload).VideoKey)
	return nil
}

func TestReconcileCreatesMissingAsset(t *testing.T) {
	long := strings.Repeat("가", 60)
	store := &fakeLister{keys: []string{
		"summary/summary_clip.json",
		"videos/u1/abc_clip.mp4",
		"videos/u1/abc_clip_thumbnail.jpg",
	}}
	sums := fakeSummaries{"summary/summary_clip.json": {Summary: long, Keywords: []string{"go", "backend"}}}
	assets := newFakeAssets()
	tasks := &recordingTasks{}
	c := NewCrawler(store, sums, assets, fakeJobs{}, fakeUsers{"u1": true}, tasks, Options{}, nil)

	report, err := c.Reconcile(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, Report{Scanned: 1, Created: 1}, report)

	a, _ := assets.GetByVideoKey(context.Background(), "videos/u1/abc_clip.mp4")
	require.NotNil(t, a)
	assert.Equal(t, "u1", a.OwnerID)
	assert.Equal(t, models.AssetStatusReady, a.Status)
	assert.Equal(t, []string{"go", "backend"}, a.Tags)
	assert.Equal(t, strings.Repeat("가", 50)+"...", a.Title)
	assert.Equal(t, long, a.Description)
	assert.Equal(t, []string{"thumbnail:videos/u1/abc_clip.mp4"}, tasks.keys)
}

func TestReconcileNeverRegressesTerminalStatus(t *testing.T) {
	done := &models.Asset{OwnerID: "u1", VideoKey: "videos/u1/a_one.mp4", Status: models.AssetStatusReadyWithAI, Tags: []string{"old"}}
	failed := &models.Asset{OwnerID: "u1", VideoKey: "videos/u1/b_two.mp4", Status: models.AssetStatusFailed}
	assets := newFakeAssets(done, failed)
	store := &fakeLister{keys: []string{
		"summary/summary_one.json", "summary/summary_two.json",
		done.VideoKey, failed.VideoKey,
	}}
	sums := fakeSummaries{
		"summary/summary_one.json": {Summary: "s"},
		"summary/summary_two.json": {Summary: "s", Tags: []string{"x"}},
	}
	c := NewCrawler(store, sums, assets, fakeJobs{}, fakeUsers{"u1": true}, nil, Options{}, nil)

	_, err := c.Reconcile(context.Background(), "summary/")
	require.NoError(t, err)

	got, _ := assets.GetByVideoKey(context.Background(), done.VideoKey)
	assert.Equal(t, models.AssetStatusReadyWithAI, got.Status)
	assert.Equal(t, []string{"old"}, got.Tags, "empty tags must not erase")
	got, _ = assets.GetByVideoKey(context.Background(), failed.VideoKey)
	assert.Equal(t, models.AssetStatusFailed, got.Status)
	assert.Equal(t, []string{"x"}, got.Tags)
}

func TestReconcileNormalizesStuckProcessing(t *testing.T) {
	stuck := &models.Asset{OwnerID: "u1", VideoKey: "videos/u1/a_one.mp4", Status: models.AssetStatusProcessingSTT}
	signalled := &models.Asset{OwnerID: "u1", VideoKey: "videos/u1/b_two.mp4", Status: models.AssetStatusProcessingSTT}
	assets := newFakeAssets(stuck, signalled)
	jobs := fakeJobs{
		stuck.ID:     {Status: models.AIJobStatusPending},
		signalled.ID: {Status: models.AIJobStatusDone},
	}
	store := &fakeLister{keys: []string{"summary/summary_one.json", "summary/summary_two.json", stuck.VideoKey, signalled.VideoKey}}
	sums := fakeSummaries{"summary/summary_one.json": {}, "summary/summary_two.json": {}}
	c := NewCrawler(store, sums, assets, jobs, fakeUsers{"u1": true}, nil, Options{Concurrency: 1}, nil)

	report, err := c.Reconcile(context.Background(), "summary/")
	require.NoError(t, err)
	assert.Equal(t, 1, report.Updated)
	assert.Equal(t, 1, report.Skipped)

	got, _ := assets.GetByVideoKey(context.Background(), stuck.VideoKey)
	assert.Equal(t, models.AssetStatusReady, got.Status)
	got, _ = assets.GetByVideoKey(context.Background(), signalled.VideoKey)
	assert.Equal(t, models.AssetStatusProcessingSTT, got.Status)
}

func TestReconcileSkipsUnknownOwnerAndUnmatched(t *testing.T) {
	store := &fakeLister{keys: []string{
		"summary/summary_clip.json", "summary/summary_nothing.json", "summary/readme.txt",
		"videos/ghost/abc_clip.mp4",
	}}
	sums := fakeSummaries{"summary/summary_clip.json": {Summary: "s"}, "summary/summary_nothing.json": {Summary: "s"}}
	assets := newFakeAssets()
	c := NewCrawler(store, sums, assets, fakeJobs{}, fakeUsers{}, nil, Options{}, nil)

	report, err := c.Reconcile(context.Background(), "summary/")
	require.NoError(t, err)
	assert.Equal(t, Report{Scanned: 2, Skipped: 2}, report)
	assert.Empty(t, assets.byKey)
}

func TestMatchVideo(t *testing.T) {
	videos := []string{"videos/u1/x_myclip.mp4", "videos/u2/y_clip.mov"}
	assert.Equal(t, "videos/u2/y_clip.mov", MatchVideo("clip", videos))
	assert.Equal(t, "videos/u1/x_myclip.mp4", MatchVideo("myc", videos))
	assert.Empty(t, MatchVideo("zzz", videos))
	assert.Empty(t, MatchVideo("", videos))
}

func TestTitle(t *testing.T) {
	assert.Equal(t, "Untitled", Title("  "))
	assert.Equal(t, "short", Title(" short "))
	assert.Equal(t, strings.Repeat("a", 50)+"...", Title(strings.Repeat("a", 51)))
	assert.Equal(t, strings.Repeat("a", 50), Title(strings.Repeat("a", 50)))
}
