// Package retrieval answers search requests from live agents.
//
// A query targets either the catalog, served from the embedding index kept by
// package vectorindex and hydrated from a storage.CatalogStore, or a freeform
// scope, served by a lexical similarity pass over the memo files in that
// scope's directory. A query that names an entity directly skips both and
// performs a point lookup.
//
// Catalog queries return at most MaxTopN results in the store's order; the
// scores attached to them are advisory. Memo queries return every memo whose
// similarity reaches the configured threshold, best first.
package retrieval
