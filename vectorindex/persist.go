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
	"bytes"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/fogfish/hnsw"
	"github.com/fogfish/hnsw/vector"
	"github.com/hack-pad/hackpadfs"
	kvector "github.com/kshard/vector"
)

const latestTag = "latest"

// names is the id -> name mapping persisted next to each graph.
type names struct {
	Fingerprint string    `json:"fingerprint"`
	Dimensions  int       `json:"dimensions"`
	BuiltAt     time.Time `json:"built_at"`
	Names       []string  `json:"names"`
}

// Meta is the side record describing the most recent successful build.
type Meta struct {
	Fingerprint string    `json:"fingerprint"`
	Dimensions  int       `json:"dimensions"`
	Count       int       `json:"count"`
	BuiltAt     time.Time `json:"built_at"`
}

func graphPath(corpus, tag string) string { return corpus + "-" + tag + ".hnsw" }
func namesPath(corpus, tag string) string { return corpus + "-" + tag + ".names" }
func metaPath(corpus string) string       { return corpus + "-meta.json" }

// persist writes the snapshot under its fingerprint and the latest alias,
// then the side record. The side record goes last so a reader never sees a
// fingerprint whose files are missing.
func persist(fsys hackpadfs.FS, corpus string, s *Snapshot) error {
	var graph bytes.Buffer
	if err := gob.NewEncoder(&graph).Encode(s.index.Nodes()); err != nil {
		return fmt.Errorf("encode graph: %w", err)
	}
	mapping, err := json.Marshal(names{
		Fingerprint: s.Fingerprint,
		Dimensions:  s.Dimensions,
		BuiltAt:     s.BuiltAt,
		Names:       s.Names,
	})
	if err != nil {
		return fmt.Errorf("encode names: %w", err)
	}

	for _, tag := range []string{s.Fingerprint, latestTag} {
		if err := hackpadfs.WriteFullFile(fsys, graphPath(corpus, tag), graph.Bytes(), 0644); err != nil {
			return fmt.Errorf("write graph: %w", err)
		}
		if err := hackpadfs.WriteFullFile(fsys, namesPath(corpus, tag), mapping, 0644); err != nil {
			return fmt.Errorf("write names: %w", err)
		}
	}

	meta, err := json.Marshal(Meta{
		Fingerprint: s.Fingerprint,
		Dimensions:  s.Dimensions,
		Count:       s.Len(),
		BuiltAt:     s.BuiltAt,
	})
	if err != nil {
		return fmt.Errorf("encode meta: %w", err)
	}
	if err := hackpadfs.WriteFullFile(fsys, metaPath(corpus), meta, 0644); err != nil {
		return fmt.Errorf("write meta: %w", err)
	}
	return nil
}

// load reads the snapshot stored under tag, either a fingerprint or the
// latest alias.
func load(fsys hackpadfs.FS, corpus, tag string, dims int) (*Snapshot, error) {
	rawGraph, err := hackpadfs.ReadFile(fsys, graphPath(corpus, tag))
	if err != nil {
		return nil, missingOr(err)
	}
	rawNames, err := hackpadfs.ReadFile(fsys, namesPath(corpus, tag))
	if err != nil {
		return nil, missingOr(err)
	}

	var mapping names
	if err := json.Unmarshal(rawNames, &mapping); err != nil {
		return nil, fmt.Errorf("%w: names: %w", ErrSnapshotCorrupt, err)
	}
	if len(mapping.Names) == 0 {
		return nil, fmt.Errorf("%w: empty name mapping", ErrSnapshotCorrupt)
	}
	if mapping.Dimensions != dims {
		return nil, fmt.Errorf("%w: snapshot has %d dimensions, want %d", ErrDimensionMismatch, mapping.Dimensions, dims)
	}

	var nodes hnsw.Nodes[vector.VF32]
	if err := gob.NewDecoder(bytes.NewReader(rawGraph)).Decode(&nodes); err != nil {
		return nil, fmt.Errorf("%w: graph: %w", ErrSnapshotCorrupt, err)
	}

	s := &Snapshot{
		index:       hnsw.FromNodes[vector.VF32](vector.SurfaceVF32(kvector.Cosine()), nodes),
		Names:       mapping.Names,
		Fingerprint: mapping.Fingerprint,
		Dimensions:  mapping.Dimensions,
		BuiltAt:     mapping.BuiltAt,
	}
	if size := s.index.Size(); size != len(mapping.Names) {
		return nil, fmt.Errorf("%w: graph has %d nodes, mapping has %d names", ErrSnapshotCorrupt, size, len(mapping.Names))
	}

	return s, nil
}

// readMeta returns the persisted side record.
func readMeta(fsys hackpadfs.FS, corpus string) (*Meta, error) {
	raw, err := hackpadfs.ReadFile(fsys, metaPath(corpus))
	if err != nil {
		return nil, missingOr(err)
	}
	var m Meta
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("%w: meta: %w", ErrSnapshotCorrupt, err)
	}
	return &m, nil
}

func missingOr(err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %w", ErrSnapshotMissing, err)
	}
	return err
}
