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

package retrieval

import "errors"

var (
	// ErrIndexRequired is returned when no index cache is provided.
	ErrIndexRequired = errors.New("index cache required")

	// ErrCatalogRequired is returned when no catalog store is provided.
	ErrCatalogRequired = errors.New("catalog store required")

	// ErrEmbedderRequired is returned when no embedder is provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrMemoFSRequired is returned when no memo filesystem is provided.
	ErrMemoFSRequired = errors.New("memo filesystem required")

	// ErrEmptyQuery is returned when a query has neither text nor entity pointer.
	ErrEmptyQuery = errors.New("query text required")

	// ErrInvalidScope is returned for a nil scope or an unusable scope name.
	ErrInvalidScope = errors.New("invalid search scope")

	// ErrInvalidThreshold is returned for a memo threshold outside [0, 1].
	ErrInvalidThreshold = errors.New("memo threshold must be within [0, 1]")
)
