// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package vectorindex

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/hack-pad/hackpadfs"
	"github.com/poiesic/distillery/core"
	"github.com/poiesic/distillery/storage"
	"golang.org/x/sync/singleflight"
)

// State describes what the cache currently holds.
type State int

const (
	// StateUnloaded means no snapshot is in memory.
	StateUnloaded State = iota
	// StateLoadedFresh means the in-memory snapshot matched the source at
	// its last check.
	StateLoadedFresh
	// StateLoadedStale means a refresh check found the source has changed
	// and the snapshot is awaiting rebuild.
	StateLoadedStale
)

func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateLoadedFresh:
		return "loaded_fresh"
	case StateLoadedStale:
		return "loaded_stale"
	default:
		return "unknown"
	}
}

// Option configures a Cache.
type Option func(*Cache) error

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) error {
		c.logger = logger
		return nil
	}
}

// WithProgress reports rebuild progress to w every reportInterval rows.
func WithProgress(w io.Writer, reportInterval int) Option {
	return func(c *Cache) error {
		c.progress = NewProgressTracker(w, reportInterval)
		return nil
	}
}

// Cache owns the in-memory snapshot of one corpus and its persisted copies.
// Construct one per corpus and share it.
type Cache struct {
	source   storage.EmbeddingSource
	fs       hackpadfs.FS
	config   *Config
	logger   *slog.Logger
	progress *ProgressTracker

	mu      sync.RWMutex
	current *Snapshot
	state   State

	rebuilds singleflight.Group
}

// NewCache creates a cache over source, persisting snapshots to fsys.
func NewCache(source storage.EmbeddingSource, fsys hackpadfs.FS, config *Config, opts ...Option) (*Cache, error) {
	if source == nil {
		return nil, ErrSourceRequired
	}
	if fsys == nil {
		return nil, ErrFSRequired
	}
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	c := &Cache{
		source: source,
		fs:     fsys,
		config: config,
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	c.logger = c.logger.With("component", "vectorindex", "corpus", config.Corpus)
	return c, nil
}

// Dimensions returns the configured embedding size.
func (c *Cache) Dimensions() int {
	return c.config.Dimensions
}

// State returns the current cache state.
func (c *Cache) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Current returns the in-memory snapshot without any I/O, or nil.
func (c *Cache) Current() *Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// GetIndex returns a usable snapshot.
//
// Without refresh, an in-memory snapshot is returned as is; otherwise the
// latest persisted snapshot is loaded, falling back to a rebuild.
// With refresh, the source's fingerprint is compared with the persisted side
// record: on a match the in-memory or persisted snapshot is reused without
// fetching vectors, on a mismatch the index is rebuilt.
func (c *Cache) GetIndex(ctx context.Context, refresh bool) (*Snapshot, error) {
	if !refresh {
		if s := c.Current(); s != nil {
			return s, nil
		}
		s, err := load(c.fs, c.config.Corpus, latestTag, c.config.Dimensions)
		if err == nil {
			c.logger.Debug("loaded latest snapshot", "fingerprint", s.Fingerprint, "nodes", s.Len())
			c.install(s)
			return s, nil
		}
		c.logger.Info("no usable snapshot on disk, rebuilding", "err", err)
		return c.Rebuild(ctx)
	}

	fingerprint, err := c.fingerprint(ctx)
	if err != nil {
		return nil, err
	}

	if s := c.Current(); s != nil && s.Fingerprint == fingerprint {
		c.markFresh(s)
		return s, nil
	}

	meta, err := readMeta(c.fs, c.config.Corpus)
	if err == nil && meta.Fingerprint == fingerprint {
		s, err := load(c.fs, c.config.Corpus, fingerprint, c.config.Dimensions)
		if err == nil && s.Len() == meta.Count {
			c.logger.Debug("loaded snapshot by fingerprint", "fingerprint", fingerprint, "nodes", s.Len())
			c.install(s)
			return s, nil
		}
		if err == nil {
			err = fmt.Errorf("%w: %d names, meta says %d", ErrSnapshotCorrupt, s.Len(), meta.Count)
		}
		c.logger.Warn("persisted snapshot unusable, rebuilding", "fingerprint", fingerprint, "err", err)
	} else if err != nil && !errors.Is(err, ErrSnapshotMissing) {
		c.logger.Warn("side record unreadable, rebuilding", "err", err)
	}

	c.markStale()
	return c.rebuild(ctx, fingerprint)
}

// Rebuild builds a fresh snapshot from the source regardless of state.
func (c *Cache) Rebuild(ctx context.Context) (*Snapshot, error) {
	fingerprint, err := c.fingerprint(ctx)
	if err != nil {
		return nil, err
	}
	return c.rebuild(ctx, fingerprint)
}

// rebuild runs at most one rebuild per corpus. Joined callers share its
// result, so it runs detached from the cancellation of whoever started it.
func (c *Cache) rebuild(ctx context.Context, fingerprint string) (*Snapshot, error) {
	shared := context.WithoutCancel(ctx)
	v, err, joined := c.rebuilds.Do(c.config.Corpus, func() (any, error) {
		entries, err := c.fetchEmbeddings(shared)
		if err != nil {
			return nil, err
		}

		s := buildSnapshot(entries, fingerprint, c.config.Dimensions)
		if dups := len(entries) - s.Len(); len(entries) > 0 && dups > 0 {
			c.logger.Warn("entities share identical embeddings, indexing the first of each", "skipped", dups)
		}
		if err := persist(c.fs, c.config.Corpus, s); err != nil {
			c.logger.Error("failed to persist snapshot", "fingerprint", fingerprint, "err", err)
		}
		c.install(s)
		c.logger.Info("rebuilt index", "fingerprint", fingerprint, "nodes", s.Len(), "placeholder", s.IsPlaceholder())
		return s, nil
	})
	if err != nil {
		return nil, fmt.Errorf("rebuild %s index: %w", c.config.Corpus, err)
	}
	if joined {
		c.logger.Debug("joined in-flight rebuild")
	}
	return v.(*Snapshot), nil
}

// fingerprint derives the current freshness token from the source.
func (c *Cache) fingerprint(ctx context.Context) (string, error) {
	newest, err := c.source.NewestEmbedding(ctx, c.config.Corpus)
	if err != nil {
		return "", fmt.Errorf("read newest embedding: %w", err)
	}
	return core.Fingerprint(c.config.Corpus, newest), nil
}

func (c *Cache) install(s *Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = s
	c.state = StateLoadedFresh
}

func (c *Cache) markFresh(s *Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == s {
		c.state = StateLoadedFresh
	}
}

func (c *Cache) markStale() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current != nil {
		c.state = StateLoadedStale
	}
}
