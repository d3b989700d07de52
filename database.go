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

package distillery

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/hack-pad/hackpadfs"
	osfs "github.com/hack-pad/hackpadfs/os"

	"github.com/poiesic/distillery/ai"
	"github.com/poiesic/distillery/ai/openai"
	"github.com/poiesic/distillery/distill"
	"github.com/poiesic/distillery/retrieval"
	"github.com/poiesic/distillery/storage/badger"
	"github.com/poiesic/distillery/storage/sqlite"
	"github.com/poiesic/distillery/vectorindex"
)

// Layout of a data directory.
const (
	badgerDir   = "badger"
	catalogFile = "catalog.db"
	indexDir    = "index"
	memoDir     = "memos"
)

// Database owns every store under one data directory and builds the
// components that run on top of them.
type Database struct {
	repos    *badger.Repositories
	catalog  *sqlite.Store
	index    hackpadfs.FS
	memos    hackpadfs.FS
	provider ai.AIProvider
	logger   *slog.Logger
}

// DatabaseOption configures a Database.
type DatabaseOption func(*databaseOptions)

type databaseOptions struct {
	aiConfig *ai.Config
	provider ai.AIProvider
	logger   *slog.Logger
}

// WithAIConfig sets the configuration of the OpenAI-compatible provider.
func WithAIConfig(config *ai.Config) DatabaseOption {
	return func(o *databaseOptions) {
		o.aiConfig = config
	}
}

// WithProvider replaces the OpenAI-compatible provider. The Database takes
// ownership and closes it.
func WithProvider(provider ai.AIProvider) DatabaseOption {
	return func(o *databaseOptions) {
		o.provider = provider
	}
}

// WithLogger sets the logger handed to every component.
func WithLogger(logger *slog.Logger) DatabaseOption {
	return func(o *databaseOptions) {
		o.logger = logger
	}
}

// NewDatabase opens (creating if needed) the data directory at dir.
func NewDatabase(dir string, opts ...DatabaseOption) (*Database, error) {
	options := &databaseOptions{
		aiConfig: ai.DefaultConfig(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}
	if options.logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	root, err := openRoot(dir)
	if err != nil {
		return nil, err
	}
	index, err := subdir(root, indexDir)
	if err != nil {
		return nil, err
	}
	memos, err := subdir(root, memoDir)
	if err != nil {
		return nil, err
	}

	repos, err := badger.OpenRepositories(filepath.Join(dir, badgerDir), false)
	if err != nil {
		return nil, err
	}

	catalog, err := sqlite.Open(filepath.Join(dir, catalogFile), sqlite.WithLogger(options.logger))
	if err != nil {
		repos.Close()
		return nil, err
	}

	provider := options.provider
	if provider == nil {
		provider, err = openai.NewProvider(options.aiConfig)
		if err != nil {
			catalog.Close()
			repos.Close()
			return nil, err
		}
	}

	return &Database{
		repos:    repos,
		catalog:  catalog,
		index:    index,
		memos:    memos,
		provider: provider,
		logger:   options.logger,
	}, nil
}

func openRoot(dir string) (hackpadfs.FS, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	fsys := osfs.NewFS()
	rel, err := fsys.FromOSPath(abs)
	if err != nil {
		return nil, err
	}
	if err := hackpadfs.MkdirAll(fsys, rel, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return fsys.Sub(rel)
}

func subdir(root hackpadfs.FS, name string) (hackpadfs.FS, error) {
	if err := hackpadfs.MkdirAll(root, name, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create %s directory: %w", name, err)
	}
	sub, ok := root.(hackpadfs.SubFS)
	if !ok {
		return nil, fmt.Errorf("%s: filesystem cannot open subdirectories", name)
	}
	return sub.Sub(name)
}

func (db *Database) Close() error {
	logger := db.logger.With("component", "database")
	if err := db.provider.Close(); err != nil {
		logger.Error("error closing AI provider", "err", err)
	}
	if err := db.catalog.Close(); err != nil {
		logger.Error("error closing catalog store", "err", err)
		return err
	}
	if err := db.repos.Close(); err != nil {
		logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}

func (db *Database) Repositories() *badger.Repositories {
	return db.repos
}

func (db *Database) Catalog() *sqlite.Store {
	return db.catalog
}

// MemoFS is the filesystem holding one directory of memo files per scope.
func (db *Database) MemoFS() hackpadfs.FS {
	return db.memos
}

func (db *Database) Provider() ai.AIProvider {
	return db.provider
}

// NewIndexCache creates a vector index cache over the catalog embeddings,
// persisting snapshots under the index directory.
func (db *Database) NewIndexCache(config *vectorindex.Config, opts ...vectorindex.Option) (*vectorindex.Cache, error) {
	opts = append([]vectorindex.Option{vectorindex.WithLogger(db.logger)}, opts...)
	return vectorindex.NewCache(db.catalog, db.index, config, opts...)
}

// NewSearcher creates a searcher over index, the catalog and the memo files.
// The caller must Release it.
func (db *Database) NewSearcher(index retrieval.IndexCache, opts ...retrieval.Option) (*retrieval.Searcher, error) {
	opts = append([]retrieval.Option{retrieval.WithLogger(db.logger)}, opts...)
	return retrieval.NewSearcher(index, db.catalog, db.provider.Embedder(), db.memos, opts...)
}

// NewPipeline creates the distillation pipeline over the badger stores.
func (db *Database) NewPipeline(opts ...distill.Option) (*distill.Pipeline, error) {
	opts = append([]distill.Option{distill.WithLogger(db.logger)}, opts...)
	return distill.NewPipeline(
		db.repos.Threads,
		db.repos.Threads,
		db.repos.Profiles,
		db.repos.Heartbeats,
		db.provider.Completer(),
		opts...,
	)
}
