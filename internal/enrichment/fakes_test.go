package enrichment

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/2025-X-Thon-Team10-JobShorts/Backend/internal/aiworker"
	"github.com/2025-X-Thon-Team10-JobShorts/Backend/internal/backfill"
	"github.com/2025-X-Thon-Team10-JobShorts/Backend/internal/models"
	"github.com/2025-X-Thon-Team10-JobShorts/Backend/internal/summaries"
	"github.com/2025-X-Thon-Team10-JobShorts/Backend/pkg/queue"
)

type fakeStore struct{}

func (fakeStore) PresignUpload(_ context.Context, key, _ string) (string, error) {
	return "https://bucket/put/" + key, nil
}

func (fakeStore) PresignDownload(_ context.Context, key string) (string, error) {
	return "https://bucket/get/" + key, nil
}

type fakeAssets struct {
	mu        sync.Mutex
	rows      map[int64]*models.Asset
	next      int64
	createErr error
}

func newFakeAssets() *fakeAssets { return &fakeAssets{rows: map[int64]*models.Asset{}} }

func (f *fakeAssets) Create(_ context.Context, a *models.Asset) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.next++
	a.ID = f.next
	a.CreatedAt = time.Unix(1700000000+f.next, 0)
	cp := *a
	f.rows[a.ID] = &cp
	return nil
}

func (f *fakeAssets) GetByID(_ context.Context, id int64) (*models.Asset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a, ok := f.rows[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeAssets) GetByVideoKey(_ context.Context, key string) (*models.Asset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.rows {
		if a.VideoKey == key {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeAssets) list(pred func(*models.Asset) bool, beforeID int64, limit int) []models.Asset {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Asset
	for _, a := range f.rows {
		if (beforeID == 0 || a.ID < beforeID) && pred(a) {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (f *fakeAssets) ListFeed(_ context.Context, beforeID int64, limit int) ([]models.Asset, error) {
	return f.list(func(a *models.Asset) bool { return a.Visibility == models.VisibilityPublic }, beforeID, limit), nil
}

func (f *fakeAssets) ListByTag(_ context.Context, tag string, beforeID int64, limit int) ([]models.Asset, error) {
	return f.list(func(a *models.Asset) bool {
		if a.Visibility != models.VisibilityPublic {
			return false
		}
		for _, t := range a.Tags {
			if t == tag {
				return true
			}
		}
		return false
	}, beforeID, limit), nil
}

func (f *fakeAssets) ListByOwner(_ context.Context, owner string) ([]models.Asset, error) {
	return f.list(func(a *models.Asset) bool { return a.OwnerID == owner }, 0, 0), nil
}

func (f *fakeAssets) ListMissingThumbnail(_ context.Context, limit int) ([]models.Asset, error) {
	return f.list(func(a *models.Asset) bool { return a.ThumbnailKey == nil }, 0, limit), nil
}

func (f *fakeAssets) Count(_ context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.rows)), nil
}

func (f *fakeAssets) SetThumbnailKey(_ context.Context, videoKey, thumbKey string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.rows {
		if a.VideoKey == videoKey {
			k := thumbKey
			a.ThumbnailKey = &k
		}
	}
	return nil
}

func (f *fakeAssets) UpdateTags(_ context.Context, id int64, tags []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[id].Tags = tags
	return nil
}

func (f *fakeAssets) UpdateStatus(_ context.Context, id int64, s models.AssetStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[id].Status = s
	return nil
}

func (f *fakeAssets) TransitionStatus(_ context.Context, id int64, from []models.AssetStatus, to models.AssetStatus) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a := f.rows[id]
	for _, s := range from {
		if a.Status == s {
			a.Status = to
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeAssets) get(id int64) models.Asset {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.rows[id]
}

type fakeJobs struct {
	mu            sync.Mutex
	jobs          []*models.AIJob
	markFailedErr error
}

func (f *fakeJobs) Create(_ context.Context, j *models.AIJob) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	j.ID = int64(len(f.jobs) + 1)
	if j.Status == "" {
		j.Status = models.AIJobStatusPending
	}
	cp := *j
	f.jobs = append(f.jobs, &cp)
	return nil
}

func (f *fakeJobs) GetLatestByAsset(_ context.Context, assetID int64) (*models.AIJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.jobs) - 1; i >= 0; i-- {
		if f.jobs[i].AssetID == assetID {
			cp := *f.jobs[i]
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeJobs) GetLatestByAssets(ctx context.Context, ids []int64) (map[int64]*models.AIJob, error) {
	out := map[int64]*models.AIJob{}
	for _, id := range ids {
		if j, _ := f.GetLatestByAsset(ctx, id); j != nil {
			out[id] = j
		}
	}
	return out, nil
}

func (f *fakeJobs) MarkFailed(_ context.Context, id int64, msg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.markFailedErr != nil {
		return f.markFailedErr
	}
	j := f.jobs[id-1]
	j.Status, j.ErrorMessage = models.AIJobStatusFailed, msg
	return nil
}

type fakeUsers struct {
	owners    map[string]models.OwnerInfo
	following map[string]bool
	err       error
}

func (f *fakeUsers) GetOwnerInfos(_ context.Context, pids []string) (map[string]models.OwnerInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := map[string]models.OwnerInfo{}
	for _, p := range pids {
		if o, ok := f.owners[p]; ok {
			out[p] = o
		}
	}
	return out, nil
}

func (f *fakeUsers) FollowingSet(_ context.Context, _ string, _ []string) (map[string]bool, error) {
	return f.following, f.err
}

type fakeThumbs struct {
	ok  bool
	err error
}

func (f fakeThumbs) Ensure(context.Context, string) (bool, error) { return f.ok, f.err }

// fakeTx runs fn against the shared fakes and restores their state when fn
// fails.
type fakeTx struct {
	assets *fakeAssets
	jobs   *fakeJobs
}

func (t fakeTx) InTx(_ context.Context, fn func(TxStores) error) error {
	t.assets.mu.Lock()
	rows := make(map[int64]models.Asset, len(t.assets.rows))
	for id, a := range t.assets.rows {
		rows[id] = *a
	}
	t.assets.mu.Unlock()
	t.jobs.mu.Lock()
	jobs := make([]models.AIJob, len(t.jobs.jobs))
	for i, j := range t.jobs.jobs {
		jobs[i] = *j
	}
	t.jobs.mu.Unlock()

	err := fn(TxStores{Assets: t.assets, Jobs: t.jobs})
	if err == nil {
		return nil
	}

	t.assets.mu.Lock()
	t.assets.rows = make(map[int64]*models.Asset, len(rows))
	for id := range rows {
		a := rows[id]
		t.assets.rows[id] = &a
	}
	t.assets.mu.Unlock()
	t.jobs.mu.Lock()
	t.jobs.jobs = t.jobs.jobs[:0]
	for i := range jobs {
		j := jobs[i]
		t.jobs.jobs = append(t.jobs.jobs, &j)
	}
	t.jobs.mu.Unlock()
	return err
}

type fakeSummaries map[string]*summaries.Document

func (f fakeSummaries) Read(_ context.Context, videoKey string) (*summaries.Document, error) {
	return f[videoKey], nil
}

type fakeIntake struct {
	mu   sync.Mutex
	err  error
	reqs []aiworker.Request
}

func (f *fakeIntake) Submit(_ context.Context, req aiworker.Request) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reqs = append(f.reqs, req)
	return f.err
}

type recordingTasks struct {
	mu    sync.Mutex
	types []queue.JobType
	err   error
}

func (r *recordingTasks) Enqueue(_ context.Context, t queue.JobType, _ any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.types = append(r.types, t)
	return nil
}

type recordingNotifier struct {
	mu       sync.Mutex
	statuses []models.AssetStatus
}

func (r *recordingNotifier) AssetUpdated(a *models.Asset) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, a.Status)
}

type countingReconciler struct {
	mu    sync.Mutex
	calls int
}

func (c *countingReconciler) Reconcile(context.Context, string) (backfill.Report, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return backfill.Report{}, nil
}

type fixture struct {
	svc      *Service
	assets   *fakeAssets
	jobs     *fakeJobs
	users    *fakeUsers
	sums     fakeSummaries
	intake   *fakeIntake
	tasks    *recordingTasks
	notifier *recordingNotifier
}

func newFixture(opts Options) *fixture {
	f := &fixture{
		assets:   newFakeAssets(),
		jobs:     &fakeJobs{},
		users:    &fakeUsers{owners: map[string]models.OwnerInfo{}},
		sums:     fakeSummaries{},
		intake:   &fakeIntake{},
		tasks:    &recordingTasks{},
		notifier: &recordingNotifier{},
	}
	f.svc = NewService(Deps{
		Store:      fakeStore{},
		Assets:     f.assets,
		Jobs:       f.jobs,
		Users:      f.users,
		Thumbnails: fakeThumbs{ok: true},
		Summaries:  f.sums,
		Intake:     f.intake,
		Tasks:      f.tasks,
		Notifier:   f.notifier,
		Tx:         fakeTx{assets: f.assets, jobs: f.jobs},
	}, opts, nil)
	return f
}

func (f *fixture) seed(n int, owner string, tags ...string) []*models.Asset {
	out := make([]*models.Asset, 0, n)
	for i := 0; i < n; i++ {
		a := &models.Asset{
			OwnerID:    owner,
			Title:      "clip",
			VideoKey:   "videos/" + owner + "/" + strings.Repeat("x", i+1) + "_clip.mp4",
			Tags:       tags,
			Visibility: models.VisibilityPublic,
			Status:     models.AssetStatusReady,
		}
		_ = f.assets.Create(context.Background(), a)
		out = append(out, a)
	}
	return out
}

var errBoom = errors.New("boom")
