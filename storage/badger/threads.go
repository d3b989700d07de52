package badger

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/distillery/core"
	"github.com/poiesic/distillery/storage"
)

// minQualifyingMessages is the exclusive lower bound on qualifying messages
// for a thread to be distilled.
const minQualifyingMessages = 3

// ThreadRepository implements storage.ThreadStore and storage.KnowledgeStore
// for BadgerDB.
type ThreadRepository struct {
	backend *Backend
	msgSeq  *badger.Sequence
	knoSeq  *badger.Sequence
}

var (
	_ storage.ThreadStore    = (*ThreadRepository)(nil)
	_ storage.KnowledgeStore = (*ThreadRepository)(nil)
)

// NewThreadRepository creates a new ThreadRepository.
func NewThreadRepository(backend *Backend) (*ThreadRepository, error) {
	msgSeq, err := backend.GetSequence(messageIDSeq)
	if err != nil {
		return nil, err
	}
	knoSeq, err := backend.GetSequence(knowledgeIDSeq)
	if err != nil {
		msgSeq.Release()
		return nil, err
	}

	return &ThreadRepository{
		backend: backend,
		msgSeq:  msgSeq,
		knoSeq:  knoSeq,
	}, nil
}

// Close releases the ID sequences.
func (r *ThreadRepository) Close() error {
	return errors.Join(r.msgSeq.Release(), r.knoSeq.Release())
}

// AddMessages adds one or more messages and folds them into their thread
// aggregates in one transaction.
func (r *ThreadRepository) AddMessages(ctx context.Context, msgs ...*core.Message) ([]*core.Message, error) {
	for _, msg := range msgs {
		if err := core.ValidateMessage(msg); err != nil {
			return nil, err
		}
	}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, msg := range msgs {
			if msg.Id == 0 {
				id, err := nextID(r.msgSeq)
				if err != nil {
					return err
				}
				msg.Id = id
			}
			// Stored precision is microseconds.
			msg.Timestamp = msg.Timestamp.UTC().Truncate(time.Microsecond)

			key := makeMessageKey(msg.ThreadID, msg.Timestamp, msg.Id)
			if err := tx.Set(key, storage.MarshalMessage(msg)); err != nil {
				return err
			}

			stats, err := readThreadStats(tx, msg.ThreadID)
			if err != nil {
				return err
			}
			if stats == nil {
				stats = &core.ThreadStats{ThreadID: msg.ThreadID}
			}
			foldMessage(stats, msg)
			if err := tx.Set(makeThreadKey(msg.ThreadID), storage.MarshalThreadStats(stats)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}

	return msgs, nil
}

// foldMessage updates a thread aggregate with one message.
func foldMessage(stats *core.ThreadStats, msg *core.Message) {
	if msg.Timestamp.After(stats.LastActivity) {
		stats.LastActivity = msg.Timestamp
	}
	if msg.BotID != "" {
		stats.BotID = msg.BotID
	}
	if !msg.Qualifies() {
		return
	}
	stats.Qualifying++
	if msg.PrimaryUser != "" && !stats.HasHuman(msg.PrimaryUser) {
		stats.Humans = append(stats.Humans, msg.PrimaryUser)
	}
}

// ThreadsNeedingDistillation scans the thread aggregates for eligible threads.
func (r *ThreadRepository) ThreadsNeedingDistillation(ctx context.Context, cutoff time.Time) ([]core.ThreadCandidate, error) {
	var candidates []core.ThreadCandidate

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(threadPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var stats *core.ThreadStats
			err := iter.Item().Value(func(val []byte) error {
				var err error
				stats, err = storage.UnmarshalThreadStats(val)
				return err
			})
			if err != nil {
				return err
			}
			if !eligible(stats, cutoff) {
				continue
			}
			candidates = append(candidates, core.ThreadCandidate{
				ThreadID:           stats.ThreadID,
				LastActivity:       stats.LastActivity,
				Watermark:          stats.Watermark,
				QualifyingMessages: stats.Qualifying,
				SingleHuman:        len(stats.Humans) <= 1,
			})
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	sortCandidates(candidates)
	return candidates, nil
}

func eligible(stats *core.ThreadStats, cutoff time.Time) bool {
	if !stats.LastActivity.After(stats.Watermark) {
		return false
	}
	if !cutoff.IsZero() && !stats.LastActivity.After(cutoff) {
		return false
	}
	return stats.Qualifying > minQualifyingMessages && len(stats.Humans) <= 1
}

func sortCandidates(c []core.ThreadCandidate) {
	slices.SortFunc(c, func(a, b core.ThreadCandidate) int {
		return a.LastActivity.Compare(b.LastActivity)
	})
}

// Messages returns messages of a thread strictly after since.
func (r *ThreadRepository) Messages(ctx context.Context, threadID string, since time.Time, limit int) ([]*core.Message, error) {
	if threadID == "" || limit <= 0 {
		return nil, fmt.Errorf("%w: thread %q limit %d", storage.ErrInvalidQuery, threadID, limit)
	}

	var msgs []*core.Message
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeMessagePrefix(threadID)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Seek(makeMessageSeekKey(threadID, since)); iter.Valid() && len(msgs) < limit; iter.Next() {
			err := iter.Item().Value(func(val []byte) error {
				msg, err := storage.UnmarshalMessage(val)
				if err != nil {
					return err
				}
				msgs = append(msgs, msg)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	}, false)

	return msgs, err
}

// InsertKnowledgeRecord appends a record and advances the thread watermark
// in the same transaction. A failed insert leaves the watermark untouched, so
// the thread stays eligible and is retried on the next scan.
func (r *ThreadRepository) InsertKnowledgeRecord(ctx context.Context, record *core.KnowledgeRecord) (*core.KnowledgeRecord, error) {
	if err := core.ValidateKnowledgeRecord(record); err != nil {
		return nil, err
	}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		id, err := nextID(r.knoSeq)
		if err != nil {
			return err
		}
		record.Id = id
		record.Watermark = record.Watermark.UTC().Truncate(time.Microsecond)
		record.InsertedAt = time.Now().UTC()

		key := makeKnowledgeKey(record.ThreadID, record.Watermark, record.Id)
		if err := tx.Set(key, storage.MarshalKnowledgeRecord(record)); err != nil {
			return err
		}

		stats, err := readThreadStats(tx, record.ThreadID)
		if err != nil {
			return err
		}
		if stats == nil {
			stats = &core.ThreadStats{ThreadID: record.ThreadID}
		}
		if record.Watermark.After(stats.Watermark) {
			stats.Watermark = record.Watermark
		}
		if err := tx.Set(makeThreadKey(record.ThreadID), storage.MarshalThreadStats(stats)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}

	return record, nil
}

// LatestKnowledgeRecord returns the record with the greatest watermark.
func (r *ThreadRepository) LatestKnowledgeRecord(ctx context.Context, threadID string) (*core.KnowledgeRecord, error) {
	var record *core.KnowledgeRecord
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		prefix := makeKnowledgePrefix(threadID)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.Reverse = true
		iter := tx.NewIterator(opts)
		defer iter.Close()

		iter.Seek(seekLast(prefix))
		if !iter.Valid() {
			return nil
		}
		return iter.Item().Value(func(val []byte) error {
			var err error
			record, err = storage.UnmarshalKnowledgeRecord(val)
			return err
		})
	}, false)

	return record, err
}

// KnowledgeRecords returns all records of a thread, oldest watermark first.
func (r *ThreadRepository) KnowledgeRecords(ctx context.Context, threadID string) ([]*core.KnowledgeRecord, error) {
	var records []*core.KnowledgeRecord
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeKnowledgePrefix(threadID)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			err := iter.Item().Value(func(val []byte) error {
				record, err := storage.UnmarshalKnowledgeRecord(val)
				if err != nil {
					return err
				}
				records = append(records, record)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	}, false)

	return records, err
}

// ThreadStats returns the activity aggregate of a thread.
// Returns storage.ErrNotFound if the thread has never been seen.
func (r *ThreadRepository) ThreadStats(ctx context.Context, threadID string) (*core.ThreadStats, error) {
	var stats *core.ThreadStats
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		stats, err = readThreadStats(tx, threadID)
		if err != nil {
			return err
		}
		if stats == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return stats, err
}

// readThreadStats reads a thread aggregate within a transaction.
// Returns nil, nil if the thread has no aggregate yet.
func readThreadStats(tx *badger.Txn, threadID string) (*core.ThreadStats, error) {
	item, err := tx.Get(makeThreadKey(threadID))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var stats *core.ThreadStats
	err = item.Value(func(val []byte) error {
		var err error
		stats, err = storage.UnmarshalThreadStats(val)
		return err
	})
	return stats, err
}
