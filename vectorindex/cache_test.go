package vectorindex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hack-pad/hackpadfs"
	"github.com/hack-pad/hackpadfs/mem"
	"github.com/poiesic/distillery/ai/mock"
	"github.com/poiesic/distillery/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDims = 8

// fakeSource is an in-memory embedding source that counts page fetches.
type fakeSource struct {
	mu        sync.Mutex
	rows      []core.EmbeddingRow
	newest    time.Time
	failPages int // number of EmbeddingRows calls to fail before succeeding
	gate      chan struct{}

	pageCalls  atomic.Int32
	countCalls atomic.Int32
}

func newFakeSource(n int) *fakeSource {
	src := &fakeSource{newest: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	for i := 0; i < n; i++ {
		src.add(fmt.Sprintf("db.public.table_%03d", i))
	}
	return src
}

func (f *fakeSource) add(name string) {
	raw := rawVector(mock.GenerateDeterministicVector(name, testDims))
	f.rows = append(f.rows, core.EmbeddingRow{EntityName: name, Embedding: &raw, UpdatedAt: f.newest})
}

func (f *fakeSource) touch(at time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.newest = at
}

func (f *fakeSource) CountEmbeddingRows(ctx context.Context, corpus string) (int, error) {
	f.countCalls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows), nil
}

func (f *fakeSource) EmbeddingRows(ctx context.Context, corpus string, offset, limit int) ([]core.EmbeddingRow, error) {
	f.pageCalls.Add(1)
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failPages > 0 {
		f.failPages--
		return nil, errors.New("connection reset")
	}
	if offset >= len(f.rows) {
		return nil, nil
	}
	end := min(offset+limit, len(f.rows))
	return append([]core.EmbeddingRow(nil), f.rows[offset:end]...), nil
}

func (f *fakeSource) NewestEmbedding(ctx context.Context, corpus string) (time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.rows) == 0 {
		return time.Time{}, nil
	}
	return f.newest, nil
}

func rawVector(v []float32) string {
	s := "["
	for i, x := range v {
		if i > 0 {
			s += ","
		}
		s += fmt.Sprintf("%g", x)
	}
	return s + "]"
}

func testConfig() *Config {
	return &Config{
		Corpus:     "catalog",
		Dimensions: testDims,
		BatchSize:  100,
		MaxRetries: 3,
		RetryDelay: time.Millisecond,
	}
}

func newMemFS(t *testing.T) hackpadfs.FS {
	t.Helper()
	fsys, err := mem.NewFS()
	require.NoError(t, err)
	return fsys
}

func newTestCache(t *testing.T, src *fakeSource, fsys hackpadfs.FS) *Cache {
	t.Helper()
	c, err := NewCache(src, fsys, testConfig())
	require.NoError(t, err)
	return c
}

func TestNewCache_Validation(t *testing.T) {
	fsys := newMemFS(t)

	_, err := NewCache(nil, fsys, nil)
	assert.ErrorIs(t, err, ErrSourceRequired)

	_, err = NewCache(newFakeSource(0), nil, nil)
	assert.ErrorIs(t, err, ErrFSRequired)

	cfg := testConfig()
	cfg.BatchSize = 0
	_, err = NewCache(newFakeSource(0), fsys, cfg)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestCache_RebuildPaginates(t *testing.T) {
	ctx := context.Background()
	src := newFakeSource(250)
	c := newTestCache(t, src, newMemFS(t))

	assert.Equal(t, StateUnloaded, c.State())

	s, err := c.GetIndex(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 250, s.Len())
	assert.Equal(t, int32(3), src.pageCalls.Load(), "250 rows in batches of 100")
	assert.Equal(t, StateLoadedFresh, c.State())
	assert.Same(t, s, c.Current())
}

func TestCache_SkipsUnusableRows(t *testing.T) {
	ctx := context.Background()
	src := newFakeSource(3)
	bad := "not a vector"
	short := "[1, 2]"
	src.rows = append(src.rows,
		core.EmbeddingRow{EntityName: "db.s.null", UpdatedAt: src.newest},
		core.EmbeddingRow{EntityName: "db.s.bad", Embedding: &bad, UpdatedAt: src.newest},
		core.EmbeddingRow{EntityName: "db.s.short", Embedding: &short, UpdatedAt: src.newest},
	)
	c := newTestCache(t, src, newMemFS(t))

	s, err := c.Rebuild(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, s.Len())
	assert.NotContains(t, s.Names, "db.s.null")
	assert.NotContains(t, s.Names, "db.s.bad")
	assert.NotContains(t, s.Names, "db.s.short")
}

func TestCache_EmptyCorpus(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t, newFakeSource(0), newMemFS(t))

	s, err := c.GetIndex(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Len())
	assert.True(t, s.IsPlaceholder())
	assert.Equal(t, []string{EmptyIndexName}, s.Names)
	assert.Equal(t, testDims, s.Dimensions)
}

func TestCache_SnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	fsys := newMemFS(t)
	src := newFakeSource(20)

	built, err := newTestCache(t, src, fsys).Rebuild(ctx)
	require.NoError(t, err)

	for _, name := range []string{
		"catalog-" + built.Fingerprint + ".hnsw",
		"catalog-" + built.Fingerprint + ".names",
		"catalog-latest.hnsw",
		"catalog-latest.names",
		"catalog-meta.json",
	} {
		_, err := hackpadfs.Stat(fsys, name)
		assert.NoError(t, err, name)
	}

	fetches := src.pageCalls.Load()
	loaded, err := newTestCache(t, src, fsys).GetIndex(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, fetches, src.pageCalls.Load(), "fast load must not fetch")
	assert.Equal(t, built.Names, loaded.Names)
	assert.Equal(t, built.Fingerprint, loaded.Fingerprint)

	target := src.rows[7].EntityName
	query := mock.GenerateDeterministicVector(target, testDims)
	got := loaded.Search(query, 3)
	require.NotEmpty(t, got)
	assert.Equal(t, target, got[0].Name)
	assert.InDelta(t, 0, got[0].Distance, 1e-4)
	for i := 1; i < len(got); i++ {
		assert.LessOrEqual(t, got[i-1].Distance, got[i].Distance)
	}
}

func TestCache_FreshnessSkipsFetch(t *testing.T) {
	ctx := context.Background()
	fsys := newMemFS(t)
	src := newFakeSource(10)

	c := newTestCache(t, src, fsys)
	first, err := c.GetIndex(ctx, true)
	require.NoError(t, err)
	fetches := src.pageCalls.Load()

	again, err := c.GetIndex(ctx, true)
	require.NoError(t, err)
	assert.Same(t, first, again)
	assert.Equal(t, fetches, src.pageCalls.Load())

	// a cold cache with the same fingerprint on disk loads it by name
	cold := newTestCache(t, src, fsys)
	loaded, err := cold.GetIndex(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, first.Fingerprint, loaded.Fingerprint)
	assert.Equal(t, fetches, src.pageCalls.Load())
	assert.Equal(t, int32(1), src.countCalls.Load())
}

func TestCache_StaleRebuilds(t *testing.T) {
	ctx := context.Background()
	src := newFakeSource(5)
	c := newTestCache(t, src, newMemFS(t))

	first, err := c.GetIndex(ctx, true)
	require.NoError(t, err)

	src.add("db.public.late_arrival")
	src.touch(src.newest.Add(time.Hour))

	second, err := c.GetIndex(ctx, true)
	require.NoError(t, err)
	assert.NotEqual(t, first.Fingerprint, second.Fingerprint)
	assert.Equal(t, 6, second.Len())
	assert.Contains(t, second.Names, "db.public.late_arrival")
}

func TestCache_FailedRebuildLeavesStale(t *testing.T) {
	ctx := context.Background()
	src := newFakeSource(5)
	c := newTestCache(t, src, newMemFS(t))

	first, err := c.GetIndex(ctx, true)
	require.NoError(t, err)

	src.touch(src.newest.Add(time.Minute))
	src.failPages = 10

	_, err = c.GetIndex(ctx, true)
	require.Error(t, err)
	assert.Equal(t, StateLoadedStale, c.State())
	assert.Same(t, first, c.Current(), "old snapshot keeps serving")
}

func TestCache_RetriesTransientPageErrors(t *testing.T) {
	src := newFakeSource(5)
	src.failPages = 2
	c := newTestCache(t, src, newMemFS(t))

	s, err := c.Rebuild(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, s.Len())
	assert.Equal(t, int32(3), src.pageCalls.Load())
}

func TestCache_CorruptSnapshotRebuilds(t *testing.T) {
	ctx := context.Background()
	fsys := newMemFS(t)
	src := newFakeSource(5)

	_, err := newTestCache(t, src, fsys).Rebuild(ctx)
	require.NoError(t, err)
	require.NoError(t, hackpadfs.WriteFullFile(fsys, "catalog-latest.hnsw", []byte("garbage"), 0644))

	fetches := src.pageCalls.Load()
	s, err := newTestCache(t, src, fsys).GetIndex(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 5, s.Len())
	assert.Greater(t, src.pageCalls.Load(), fetches)
}

func TestCache_NameMappingShorterThanGraphRebuilds(t *testing.T) {
	ctx := context.Background()
	fsys := newMemFS(t)
	src := newFakeSource(5)

	_, err := newTestCache(t, src, fsys).Rebuild(ctx)
	require.NoError(t, err)

	// a crash between writing the graph and the names leaves them out of step
	raw, err := hackpadfs.ReadFile(fsys, namesPath("catalog", latestTag))
	require.NoError(t, err)
	var mapping names
	require.NoError(t, json.Unmarshal(raw, &mapping))
	mapping.Names = mapping.Names[:2]
	raw, err = json.Marshal(mapping)
	require.NoError(t, err)
	require.NoError(t, hackpadfs.WriteFullFile(fsys, namesPath("catalog", latestTag), raw, 0644))

	_, err = load(fsys, "catalog", latestTag, testDims)
	assert.ErrorIs(t, err, ErrSnapshotCorrupt)

	fetches := src.pageCalls.Load()
	s, err := newTestCache(t, src, fsys).GetIndex(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 5, s.Len())
	assert.Greater(t, src.pageCalls.Load(), fetches, "mismatched snapshot must be rebuilt")

	target := "db.public.table_004"
	got := s.Search(mock.GenerateDeterministicVector(target, testDims), 5)
	require.NotEmpty(t, got)
	assert.Equal(t, target, got[0].Name)
}

// readOnlyFS hides every write capability of the wrapped filesystem.
type readOnlyFS struct {
	fsys hackpadfs.FS
}

func (r readOnlyFS) Open(name string) (hackpadfs.File, error) {
	return r.fsys.Open(name)
}

func TestCache_PersistFailureIsNotFatal(t *testing.T) {
	c := newTestCache(t, newFakeSource(4), readOnlyFS{fsys: newMemFS(t)})

	s, err := c.GetIndex(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 4, s.Len())
	assert.Equal(t, StateLoadedFresh, c.State())
}

func TestCache_ConcurrentRebuildsCollapse(t *testing.T) {
	ctx := context.Background()
	src := newFakeSource(50)
	src.gate = make(chan struct{})
	c := newTestCache(t, src, newMemFS(t))

	const callers = 8
	var wg sync.WaitGroup
	results := make([]*Snapshot, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := c.GetIndex(ctx, true)
			assert.NoError(t, err)
			results[i] = s
		}(i)
	}

	time.Sleep(50 * time.Millisecond)
	close(src.gate)
	wg.Wait()

	assert.Equal(t, int32(1), src.pageCalls.Load(), "one rebuild for all callers")
	for _, s := range results {
		assert.Same(t, results[0], s)
	}
}

func TestCache_IdenticalEmbeddingsKeepSnapshotLoadable(t *testing.T) {
	ctx := context.Background()
	fsys := newMemFS(t)
	src := newFakeSource(3)
	copied := src.rows[0]
	copied.EntityName = "db.public.table_000_copy"
	src.rows = append(src.rows, copied)

	s, err := newTestCache(t, src, fsys).Rebuild(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, s.Len())
	assert.NotContains(t, s.Names, "db.public.table_000_copy")

	fetches := src.pageCalls.Load()
	loaded, err := newTestCache(t, src, fsys).GetIndex(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, fetches, src.pageCalls.Load(), "snapshot loads without a rebuild")
	assert.Equal(t, s.Names, loaded.Names)
}

func TestCache_SharedRebuildSurvivesStarterCancel(t *testing.T) {
	src := newFakeSource(20)
	src.gate = make(chan struct{})
	c := newTestCache(t, src, newMemFS(t))

	starterCtx, cancel := context.WithCancel(context.Background())
	starterDone := make(chan error, 1)
	go func() {
		_, err := c.Rebuild(starterCtx)
		starterDone <- err
	}()
	require.Eventually(t, func() bool { return src.pageCalls.Load() == 1 }, time.Second, time.Millisecond)

	joinerDone := make(chan error, 1)
	var joined *Snapshot
	go func() {
		s, err := c.Rebuild(context.Background())
		joined = s
		joinerDone <- err
	}()
	time.Sleep(20 * time.Millisecond)

	cancel()
	close(src.gate)

	require.NoError(t, <-joinerDone)
	require.NotNil(t, joined)
	assert.Equal(t, 20, joined.Len())
	assert.NoError(t, <-starterDone)
	assert.Equal(t, int32(1), src.countCalls.Load(), "one rebuild served both callers")
}
