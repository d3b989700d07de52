package badger

import (
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/distillery/core"
	"github.com/poiesic/distillery/storage"
)

// ProfileRepository implements storage.ProfileStore for BadgerDB.
// Rows are keyed by sequence ID within a (user, bot) pair, so the last key
// of a pair is always the newest profile.
type ProfileRepository struct {
	backend *Backend
	idSeq   *badger.Sequence
}

var _ storage.ProfileStore = (*ProfileRepository)(nil)

// NewProfileRepository creates a new ProfileRepository.
func NewProfileRepository(backend *Backend) (*ProfileRepository, error) {
	idSeq, err := backend.GetSequence(profileIDSeq)
	if err != nil {
		return nil, err
	}

	return &ProfileRepository{
		backend: backend,
		idSeq:   idSeq,
	}, nil
}

// Close releases the ID sequence.
func (r *ProfileRepository) Close() error {
	return r.idSeq.Release()
}

// InsertProfile appends a new profile row for the pair.
func (r *ProfileRepository) InsertProfile(ctx context.Context, profile *core.UserBotProfile) (*core.UserBotProfile, error) {
	if err := core.ValidateProfile(profile); err != nil {
		return nil, err
	}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		id, err := nextID(r.idSeq)
		if err != nil {
			return err
		}
		profile.Id = id
		profile.InsertedAt = time.Now().UTC().Truncate(time.Microsecond)

		key := makeProfileKey(profile.PrimaryUser, profile.BotID, profile.Id)
		if err := tx.Set(key, storage.MarshalProfile(profile)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}

	return profile, nil
}

// LatestProfile returns the newest profile for the pair, or nil, nil.
func (r *ProfileRepository) LatestProfile(ctx context.Context, user, bot string) (*core.UserBotProfile, error) {
	var profile *core.UserBotProfile
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		prefix := makeProfilePrefix(user, bot)
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
			profile, err = storage.UnmarshalProfile(val)
			return err
		})
	}, false)

	return profile, err
}

// Profiles returns the full history for the pair, oldest first.
func (r *ProfileRepository) Profiles(ctx context.Context, user, bot string) ([]*core.UserBotProfile, error) {
	var profiles []*core.UserBotProfile
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeProfilePrefix(user, bot)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			err := iter.Item().Value(func(val []byte) error {
				p, err := storage.UnmarshalProfile(val)
				if err != nil {
					return err
				}
				profiles = append(profiles, p)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	}, false)

	return profiles, err
}
