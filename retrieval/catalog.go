package retrieval

import (
	"context"
	"errors"
	"fmt"

	"github.com/poiesic/distillery/core"
	"github.com/poiesic/distillery/storage"
	"github.com/poiesic/distillery/vectorindex"
)

// lookup resolves an entity pointer without touching the index.
func (s *Searcher) lookup(ctx context.Context, ptr core.EntityPointer, verbosity core.Verbosity) ([]Result, error) {
	detail, err := s.catalog.LookupEntity(ctx, ptr, verbosity)
	if errors.Is(err, storage.ErrNotFound) {
		return []Result{{
			Name:     ptr.String(),
			Content:  fmt.Sprintf("%s: not found", ptr),
			NotFound: true,
		}}, nil
	}
	if err != nil {
		s.logger.Error("error looking up entity", "entity", ptr.String(), "err", err)
		return nil, err
	}
	return []Result{{
		Name:    detail.Name,
		Content: detail.Text(verbosity),
		Score:   1,
		Entity:  detail,
	}}, nil
}

// snapshot returns the index to query. An index with at most one node is
// refreshed first so a cold or placeholder index heals once the corpus has
// embeddings. Index errors degrade to whatever is loaded, possibly nothing.
func (s *Searcher) snapshot(ctx context.Context) *vectorindex.Snapshot {
	current := s.index.Current()
	if current != nil && current.Len() > 1 {
		return current
	}

	fresh, err := s.index.GetIndex(ctx, true)
	if err != nil {
		s.logger.Warn("index refresh failed, serving loaded index", "err", err)
		return current
	}
	return fresh
}

func (s *Searcher) searchCatalog(ctx context.Context, text string, topN int, verbosity core.Verbosity, monitor Monitor) ([]Result, error) {
	snap := s.snapshot(ctx)
	if snap == nil || snap.IsPlaceholder() {
		s.logger.Debug("catalog index is empty")
		return []Result{}, nil
	}

	embedding, err := s.embedder.EmbedText(ctx, text)
	if err != nil {
		s.logger.Error("error generating embedding for query", "query", text, "err", err)
		return nil, err
	}

	neighbors := snap.Search(embedding, topN)
	monitor.AfterIndexQuery(neighbors)

	names := make([]string, 0, len(neighbors))
	scores := make(map[string]float32, len(neighbors))
	for _, n := range neighbors {
		if n.Name == vectorindex.EmptyIndexName {
			continue
		}
		names = append(names, n.Name)
		scores[n.Name] = 1 - n.Distance
	}
	if len(names) == 0 {
		return []Result{}, nil
	}

	details, err := s.catalog.EntityDetails(ctx, names, verbosity, s.source)
	if err != nil {
		s.logger.Error("error hydrating catalog entities", "count", len(names), "err", err)
		return nil, err
	}

	results := make([]Result, 0, len(details))
	for i := range details {
		d := &details[i]
		results = append(results, Result{
			Name:    d.Name,
			Content: d.Text(verbosity),
			Score:   scores[d.Name],
			Entity:  d,
		})
	}
	monitor.AfterHydration(results)
	return results, nil
}
