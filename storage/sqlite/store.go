// Package sqlite provides the SQLite-backed embedding store and entity catalog.
// Uses ncruces/go-sqlite3/driver which provides a database/sql interface; the
// sqlite-vec bindings supply the engine build with the vec extension compiled in.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	_ "github.com/asg017/sqlite-vec-go-bindings/ncruces"
	_ "github.com/ncruces/go-sqlite3/driver"

	"github.com/poiesic/distillery/core"
	"github.com/poiesic/distillery/storage"
)

// Store is the SQLite-backed embedding source and catalog.
// Safe for concurrent use.
type Store struct {
	mu         sync.RWMutex
	db         *sql.DB
	logger     *slog.Logger
	vecVersion string
}

var (
	_ storage.EmbeddingSource = (*Store)(nil)
	_ storage.CatalogStore    = (*Store)(nil)
)

// schema defines the tables the harvester writes and the searcher reads.
const schema = `
-- Embeddings, one row per (corpus, entity). embedding is a JSON float array
-- and stays NULL until the harvester has produced a vector.
CREATE TABLE IF NOT EXISTS embeddings (
    corpus TEXT NOT NULL,
    entity_name TEXT NOT NULL,
    embedding TEXT,
    updated_at INTEGER NOT NULL,
    PRIMARY KEY (corpus, entity_name)
);

CREATE INDEX IF NOT EXISTS idx_embeddings_updated ON embeddings(corpus, updated_at);

-- Catalog entities hydrated into search results
CREATE TABLE IF NOT EXISTS catalog_entities (
    name TEXT PRIMARY KEY,
    source TEXT NOT NULL DEFAULT '',
    database_name TEXT NOT NULL,
    schema_name TEXT NOT NULL,
    table_name TEXT NOT NULL,
    condensed TEXT NOT NULL DEFAULT '',
    full_schema TEXT NOT NULL DEFAULT '',
    sample TEXT NOT NULL DEFAULT '',
    updated_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_catalog_qualified ON catalog_entities(database_name, schema_name, table_name);
`

// Option configures a Store.
type Option func(*Store) error

// WithLogger sets the logger for the store.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		s.logger = logger
		return nil
	}
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore(opts ...Option) (*Store, error) {
	return Open(":memory:", opts...)
}

// Open creates a store with a specific data source name.
// Use ":memory:" for in-memory or a file path for persistent storage.
func Open(dsn string, opts ...Option) (*Store, error) {
	s := &Store{logger: slog.Default()}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "sqlite-store")

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dsn == ":memory:" {
		// every pooled connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	if err := db.QueryRow("SELECT vec_version()").Scan(&s.vecVersion); err != nil {
		s.logger.Warn("sqlite-vec not available", "error", err)
	} else {
		s.logger.Debug("sqlite-vec loaded", "version", s.vecVersion)
	}

	s.db = db
	return s, nil
}

// VecVersion returns the sqlite-vec version, or "" if the extension is absent.
func (s *Store) VecVersion() string {
	return s.vecVersion
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// =============================================================================
// Embeddings
// =============================================================================

// UpsertEmbedding stores a vector for an entity as a JSON float array.
func (s *Store) UpsertEmbedding(ctx context.Context, corpus, name string, vec []float32, at time.Time) error {
	raw, err := json.Marshal(vec)
	if err != nil {
		return fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
	}
	text := string(raw)
	return s.UpsertRawEmbedding(ctx, corpus, name, &text, at)
}

// UpsertRawEmbedding stores the embedding text verbatim. A nil raw value
// records an entity that has no vector yet.
func (s *Store) UpsertRawEmbedding(ctx context.Context, corpus, name string, raw *string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var embedding sql.NullString
	if raw != nil {
		embedding = sql.NullString{String: *raw, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO embeddings (corpus, entity_name, embedding, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(corpus, entity_name) DO UPDATE SET
			embedding = excluded.embedding,
			updated_at = excluded.updated_at
	`, corpus, name, embedding, at.UnixMicro())
	return err
}

// CountEmbeddingRows returns the number of rows in a corpus.
func (s *Store) CountEmbeddingRows(ctx context.Context, corpus string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM embeddings WHERE corpus = ?`, corpus).Scan(&count)
	return count, err
}

// EmbeddingRows returns a page of rows in insertion order.
func (s *Store) EmbeddingRows(ctx context.Context, corpus string, offset, limit int) ([]core.EmbeddingRow, error) {
	if offset < 0 || limit <= 0 {
		return nil, fmt.Errorf("%w: offset %d limit %d", storage.ErrInvalidQuery, offset, limit)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT entity_name, embedding, updated_at FROM embeddings
		WHERE corpus = ?
		ORDER BY rowid
		LIMIT ? OFFSET ?
	`, corpus, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.EmbeddingRow
	for rows.Next() {
		var (
			row       core.EmbeddingRow
			embedding sql.NullString
			updated   int64
		)
		if err := rows.Scan(&row.EntityName, &embedding, &updated); err != nil {
			return nil, err
		}
		if embedding.Valid {
			text := embedding.String
			row.Embedding = &text
		}
		row.UpdatedAt = time.UnixMicro(updated).UTC()
		out = append(out, row)
	}
	return out, rows.Err()
}

// NewestEmbedding returns MAX(updated_at) for a corpus; zero if it is empty.
func (s *Store) NewestEmbedding(ctx context.Context, corpus string) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var newest sql.NullInt64
	err := s.db.QueryRowContext(ctx, `SELECT MAX(updated_at) FROM embeddings WHERE corpus = ?`, corpus).Scan(&newest)
	if err != nil {
		return time.Time{}, err
	}
	if !newest.Valid {
		return time.Time{}, nil
	}
	return time.UnixMicro(newest.Int64).UTC(), nil
}

// =============================================================================
// Catalog
// =============================================================================

// UpsertEntity creates or replaces a catalog entity keyed by its name.
// An empty Name is derived from the qualified database/schema/table.
func (s *Store) UpsertEntity(ctx context.Context, d core.EntityDetail) error {
	if d.Name == "" {
		d.Name = core.EntityPointer{Database: d.Database, Schema: d.Schema, Table: d.Table}.String()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO catalog_entities (name, source, database_name, schema_name, table_name, condensed, full_schema, sample, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			source = excluded.source,
			database_name = excluded.database_name,
			schema_name = excluded.schema_name,
			table_name = excluded.table_name,
			condensed = excluded.condensed,
			full_schema = excluded.full_schema,
			sample = excluded.sample,
			updated_at = excluded.updated_at
	`, d.Name, d.Source, d.Database, d.Schema, d.Table, d.Condensed, d.FullSchema, d.Sample, time.Now().UnixMicro())
	return err
}

// EntityDetails hydrates the named entities in store order.
func (s *Store) EntityDetails(ctx context.Context, names []string, verbosity core.Verbosity, source string) ([]core.EntityDetail, error) {
	if len(names) == 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	args := make([]any, 0, len(names)+2)
	for _, n := range names {
		args = append(args, n)
	}
	args = append(args, source, source)

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(names)), ",")
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, source, database_name, schema_name, table_name, condensed, full_schema, sample
		FROM catalog_entities
		WHERE name IN (`+placeholders+`) AND (? = '' OR source = ?)
		ORDER BY rowid
	`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.EntityDetail
	for rows.Next() {
		d, err := scanEntity(rows, verbosity)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// LookupEntity finds one entity by its qualified name, case-insensitively.
func (s *Store) LookupEntity(ctx context.Context, ptr core.EntityPointer, verbosity core.Verbosity) (*core.EntityDetail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT name, source, database_name, schema_name, table_name, condensed, full_schema, sample
		FROM catalog_entities
		WHERE database_name = ? COLLATE NOCASE
		  AND schema_name = ? COLLATE NOCASE
		  AND table_name = ? COLLATE NOCASE
		LIMIT 1
	`, ptr.Database, ptr.Schema, ptr.Table)

	d, err := scanEntity(row, verbosity)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, ptr)
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntity(sc scanner, verbosity core.Verbosity) (core.EntityDetail, error) {
	var d core.EntityDetail
	err := sc.Scan(&d.Name, &d.Source, &d.Database, &d.Schema, &d.Table, &d.Condensed, &d.FullSchema, &d.Sample)
	if err != nil {
		return d, err
	}
	if verbosity == core.VerbosityShort {
		d.FullSchema = ""
		d.Sample = ""
	} else {
		d.Condensed = ""
	}
	return d, nil
}
