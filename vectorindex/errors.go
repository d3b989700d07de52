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

import "errors"

var (
	// ErrSourceRequired is returned when no embedding source is provided.
	ErrSourceRequired = errors.New("embedding source is required")

	// ErrFSRequired is returned when no snapshot filesystem is provided.
	ErrFSRequired = errors.New("snapshot filesystem is required")

	// ErrInvalidConfig indicates the cache configuration is unusable.
	ErrInvalidConfig = errors.New("invalid index configuration")

	// ErrInvalidMaxAttempts is returned when maxAttempts is not positive.
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be positive")

	// ErrSnapshotMissing indicates no persisted snapshot exists under a name.
	ErrSnapshotMissing = errors.New("snapshot not found")

	// ErrSnapshotCorrupt indicates a persisted snapshot could not be decoded
	// or its mapping does not match its graph.
	ErrSnapshotCorrupt = errors.New("snapshot corrupt")

	// ErrDimensionMismatch indicates a vector of the wrong size.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)
