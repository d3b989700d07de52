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
// Package storage defines the store collaborators of distillery.
//
// The interfaces decouple the selector, distiller, refiner and retrieval
// components from concrete backends. Two local adapters ship with the module:
//
//   - storage/badger: messages, thread aggregates, knowledge records,
//     user/bot profiles and heartbeats
//   - storage/sqlite: the embedding store and the entity catalog
//
// # Usage
//
//	backend, err := badger.OpenBackend("/path/to/db", false)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer backend.Close()
//
//	threads, err := badger.NewThreadRepository(backend)
//
// # Append-only records
//
// Knowledge records and profiles are never updated in place. The record with
// the greatest watermark is authoritative for a thread and the most recently
// inserted profile is current for a (user, bot) pair. Older rows remain
// readable through KnowledgeRecords and Profiles.
//
// # Thread Safety
//
// All implementations must be safe for concurrent use.
package storage
