// Package vectorindex maintains an approximate nearest neighbor index over an
// embedding corpus.
//
// A Cache builds an HNSW graph from the rows of a storage.EmbeddingSource,
// persists it to a hackpadfs filesystem and reloads it on demand. Freshness is
// tracked with a fingerprint of the corpus name and its newest update time,
// so a refresh check that finds nothing changed costs one query and no vector
// fetches. Rebuilds of the same corpus are collapsed so concurrent callers on
// a cold cache share one build.
//
// Persisted files, relative to the filesystem root:
//
//	<corpus>-<fingerprint>.hnsw   graph nodes
//	<corpus>-<fingerprint>.names  id to name mapping
//	<corpus>-latest.hnsw          alias of the most recent build
//	<corpus>-latest.names
//	<corpus>-meta.json            fingerprint, dimensions, count, build time
//
// A corpus with no usable embeddings produces a single zero vector named
// EmptyIndexName, so callers always receive an index.
package vectorindex
