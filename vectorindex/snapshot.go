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
	"encoding/binary"
	"math"
	"slices"
	"time"

	"github.com/fogfish/hnsw"
	"github.com/fogfish/hnsw/vector"
	kvector "github.com/kshard/vector"
)

// EmptyIndexName is the name of the placeholder node inserted when a corpus
// has no usable embeddings, so that an index always exists.
const EmptyIndexName = "empty_index"

// Neighbor is one search result.
type Neighbor struct {
	Name     string
	Distance float32
}

// Snapshot is an immutable, built index plus its identity. Graph keys are
// positions in Names.
type Snapshot struct {
	index       *hnsw.HNSW[vector.VF32]
	Names       []string
	Fingerprint string
	Dimensions  int
	BuiltAt     time.Time
}

// buildSnapshot inserts entries into a fresh graph. An empty entry list
// produces the single zero-vector placeholder. The graph folds identical
// vectors into one node, so only the first entity with a given vector is
// indexed; graph keys stay positions in Names.
func buildSnapshot(entries []entry, fingerprint string, dims int) *Snapshot {
	if len(entries) == 0 {
		entries = []entry{{name: EmptyIndexName, vec: make([]float32, dims)}}
	}

	s := &Snapshot{
		index:       hnsw.New[vector.VF32](vector.SurfaceVF32(kvector.Cosine())),
		Names:       make([]string, 0, len(entries)),
		Fingerprint: fingerprint,
		Dimensions:  dims,
		BuiltAt:     time.Now().UTC(),
	}
	seen := make(map[string]struct{}, len(entries))
	buf := make([]byte, 0, 4*dims)
	for _, e := range entries {
		buf = buf[:0]
		for _, x := range e.vec {
			buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(x))
		}
		if _, dup := seen[string(buf)]; dup {
			continue
		}
		seen[string(buf)] = struct{}{}
		s.index.Insert(vector.VF32{Key: uint32(len(s.Names)), Vec: e.vec})
		s.Names = append(s.Names, e.name)
	}
	return s
}

// Len returns the number of nodes in the index, placeholder included.
func (s *Snapshot) Len() int {
	return len(s.Names)
}

// IsPlaceholder reports whether the snapshot holds only the empty-corpus node.
func (s *Snapshot) IsPlaceholder() bool {
	return len(s.Names) == 1 && s.Names[0] == EmptyIndexName
}

// Search returns up to k nearest neighbors of vec ordered by ascending
// cosine distance. Keys that do not map to a name are dropped.
func (s *Snapshot) Search(vec []float32, k int) []Neighbor {
	if k < 1 || len(vec) != s.Dimensions {
		return nil
	}

	ef := k * 2
	if ef < 100 {
		ef = 100
	}

	results := s.index.Search(vector.VF32{Vec: vec}, k, ef)
	out := make([]Neighbor, 0, len(results))
	seen := make(map[uint32]struct{}, len(results))
	for _, r := range results {
		if int(r.Key) >= len(s.Names) {
			continue
		}
		if _, dup := seen[r.Key]; dup {
			continue
		}
		seen[r.Key] = struct{}{}
		out = append(out, Neighbor{
			Name:     s.Names[r.Key],
			Distance: CosineDistance(vec, r.Vec),
		})
	}

	slices.SortStableFunc(out, func(a, b Neighbor) int {
		switch {
		case a.Distance < b.Distance:
			return -1
		case a.Distance > b.Distance:
			return 1
		default:
			return 0
		}
	})
	return out
}
