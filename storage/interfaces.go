package storage

import (
	"context"
	"time"

	"github.com/poiesic/distillery/core"
)

// ThreadStore provides message ingestion and the thread views the selector
// and distiller read from.
type ThreadStore interface {
	// AddMessages persists messages and updates the per-thread activity
	// aggregates in the same transaction.
	// Messages with ID=0 receive a new ID from the sequence.
	AddMessages(ctx context.Context, msgs ...*core.Message) ([]*core.Message, error)

	// ThreadsNeedingDistillation returns threads whose last activity is after
	// their watermark and after cutoff, that have more than three qualifying
	// messages and at most one distinct human participant.
	// Results are ordered by last activity, oldest first.
	ThreadsNeedingDistillation(ctx context.Context, cutoff time.Time) ([]core.ThreadCandidate, error)

	// Messages returns the messages of a thread with Timestamp strictly after
	// since, ordered by timestamp ascending, up to limit.
	Messages(ctx context.Context, threadID string, since time.Time, limit int) ([]*core.Message, error)
}

// KnowledgeStore provides append-only access to knowledge records.
type KnowledgeStore interface {
	// InsertKnowledgeRecord appends a record and advances the thread
	// watermark to record.Watermark atomically.
	InsertKnowledgeRecord(ctx context.Context, record *core.KnowledgeRecord) (*core.KnowledgeRecord, error)

	// LatestKnowledgeRecord returns the record with the greatest watermark
	// for a thread. Returns nil, nil if the thread has none.
	LatestKnowledgeRecord(ctx context.Context, threadID string) (*core.KnowledgeRecord, error)

	// KnowledgeRecords returns every record for a thread, oldest watermark first.
	KnowledgeRecords(ctx context.Context, threadID string) ([]*core.KnowledgeRecord, error)
}

// ProfileStore provides append-only access to user/bot profiles.
type ProfileStore interface {
	// LatestProfile returns the most recently inserted profile for the pair.
	// Returns nil, nil if none exists.
	LatestProfile(ctx context.Context, user, bot string) (*core.UserBotProfile, error)

	// InsertProfile appends a new profile row.
	InsertProfile(ctx context.Context, profile *core.UserBotProfile) (*core.UserBotProfile, error)

	// Profiles returns the history for the pair, oldest first.
	Profiles(ctx context.Context, user, bot string) ([]*core.UserBotProfile, error)
}

// HeartbeatStore records and reads agent liveness.
type HeartbeatStore interface {
	// Beat records that agent was alive at the given time.
	Beat(ctx context.Context, agent string, at time.Time) error

	// Heartbeat returns the most recent heartbeat across all agents.
	// Returns nil, nil if no agent has ever beaten.
	Heartbeat(ctx context.Context) (*core.Heartbeat, error)
}

// EmbeddingSource is the read side of the embedding store the vector index
// cache is built from.
type EmbeddingSource interface {
	// CountEmbeddingRows returns the number of rows in a corpus.
	CountEmbeddingRows(ctx context.Context, corpus string) (int, error)

	// EmbeddingRows returns up to limit rows starting at offset in a stable order.
	EmbeddingRows(ctx context.Context, corpus string, offset, limit int) ([]core.EmbeddingRow, error)

	// NewestEmbedding returns the greatest updated_at in a corpus.
	// The zero time means the corpus is empty.
	NewestEmbedding(ctx context.Context, corpus string) (time.Time, error)
}

// CatalogStore hydrates catalog entities.
type CatalogStore interface {
	// EntityDetails returns details for the named entities in store order.
	// Unknown names are omitted. An empty source matches every source.
	EntityDetails(ctx context.Context, names []string, verbosity core.Verbosity, source string) ([]core.EntityDetail, error)

	// LookupEntity returns one entity addressed by its fully qualified name.
	// Returns ErrNotFound if it does not exist.
	LookupEntity(ctx context.Context, ptr core.EntityPointer, verbosity core.Verbosity) (*core.EntityDetail, error)
}
