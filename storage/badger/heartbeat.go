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

package badger

import (
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/distillery/core"
	"github.com/poiesic/distillery/storage"
)

// HeartbeatRepository implements storage.HeartbeatStore for BadgerDB.
type HeartbeatRepository struct {
	backend *Backend
}

var _ storage.HeartbeatStore = (*HeartbeatRepository)(nil)

// NewHeartbeatRepository creates a new HeartbeatRepository.
func NewHeartbeatRepository(backend *Backend) *HeartbeatRepository {
	return &HeartbeatRepository{
		backend: backend,
	}
}

// Beat persists the liveness timestamp for an agent.
func (r *HeartbeatRepository) Beat(ctx context.Context, agent string, at time.Time) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		hb := &core.Heartbeat{Agent: agent, At: at.UTC()}
		if err := tx.Set(makeHeartbeatKey(agent), storage.MarshalHeartbeat(hb)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// Heartbeat returns the freshest heartbeat across all agents.
// Returns nil, nil if no heartbeat exists.
func (r *HeartbeatRepository) Heartbeat(ctx context.Context) (*core.Heartbeat, error) {
	var newest *core.Heartbeat
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(heartbeatPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			err := iter.Item().Value(func(val []byte) error {
				hb, err := storage.UnmarshalHeartbeat(val)
				if err != nil {
					return err
				}
				if newest == nil || hb.At.After(newest.At) {
					newest = hb
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	}, false)

	return newest, err
}
