package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"

	"github.com/hack-pad/hackpadfs"
	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/distillery/ai"
	"github.com/poiesic/distillery/storage"
	"github.com/poiesic/distillery/vectorindex"
)

// DefaultMemoThreshold is the minimum lexical similarity for a memo hit.
const DefaultMemoThreshold = 0.2

// IndexCache is the part of vectorindex.Cache the searcher needs.
type IndexCache interface {
	GetIndex(ctx context.Context, refresh bool) (*vectorindex.Snapshot, error)
	Current() *vectorindex.Snapshot
}

var _ IndexCache = (*vectorindex.Cache)(nil)

// Searcher answers catalog and memo queries.
type Searcher struct {
	index     IndexCache
	catalog   storage.CatalogStore
	embedder  ai.Embedder
	memos     hackpadfs.FS
	pool      *ants.Pool
	source    string
	threshold float64
	logger    *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithSource restricts catalog hydration to entities with this source tag.
func WithSource(source string) Option {
	return func(s *Searcher) error {
		s.source = source
		return nil
	}
}

// WithMemoThreshold sets the minimum similarity for memo results.
func WithMemoThreshold(threshold float64) Option {
	return func(s *Searcher) error {
		if threshold < 0 || threshold > 1 {
			return ErrInvalidThreshold
		}
		s.threshold = threshold
		return nil
	}
}

// WithPoolSize sets the number of memo scoring workers.
func WithPoolSize(size int) Option {
	return func(s *Searcher) error {
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		if s.pool != nil {
			s.pool.Release()
		}
		s.pool = pool
		return nil
	}
}

// NewSearcher creates a searcher. memos is the filesystem holding one
// directory of memo files per freeform scope.
func NewSearcher(
	index IndexCache,
	catalog storage.CatalogStore,
	embedder ai.Embedder,
	memos hackpadfs.FS,
	opts ...Option,
) (*Searcher, error) {
	if index == nil {
		return nil, ErrIndexRequired
	}
	if catalog == nil {
		return nil, ErrCatalogRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if memos == nil {
		return nil, ErrMemoFSRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	s := &Searcher{
		index:     index,
		catalog:   catalog,
		embedder:  embedder,
		memos:     memos,
		pool:      pool,
		threshold: DefaultMemoThreshold,
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			s.Release()
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "retrieval")

	return s, nil
}

// Release releases the memo scoring pool.
// The searcher should not be used after calling Release.
func (s *Searcher) Release() {
	if s.pool != nil {
		s.pool.Release()
	}
}

// Search runs a query.
func (s *Searcher) Search(ctx context.Context, q Query) ([]Result, error) {
	return s.SearchWithMonitor(ctx, q, nil)
}

// SearchWithMonitor runs a query, reporting each stage to monitor.
func (s *Searcher) SearchWithMonitor(ctx context.Context, q Query, monitor Monitor) ([]Result, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}

	if q.Entity != nil {
		monitor.Start(q.Entity.String(), 1)
		results, err := s.lookup(ctx, *q.Entity, q.Verbosity)
		if err != nil {
			return nil, err
		}
		monitor.Finish(results)
		return results, nil
	}

	if q.Text == "" {
		return nil, ErrEmptyQuery
	}

	var (
		results []Result
		err     error
	)
	switch scope := q.Scope.(type) {
	case nil, CatalogScope:
		topN := clampTopN(q.TopN)
		monitor.Start(q.Text, topN)
		results, err = s.searchCatalog(ctx, q.Text, topN, q.Verbosity, monitor)
	case FreeformScope:
		if verr := validateScopeName(scope.Name); verr != nil {
			return nil, verr
		}
		monitor.Start(q.Text, 0)
		results, err = s.searchMemos(ctx, scope.Name, q.Text, monitor)
	default:
		return nil, fmt.Errorf("%w: %T", ErrInvalidScope, q.Scope)
	}
	if err != nil {
		return nil, err
	}

	monitor.Finish(results)
	return results, nil
}
