package vectorindex

import (
	"context"
	"fmt"

	"github.com/poiesic/distillery/core"
)

// entry is one parsed embedding.
type entry struct {
	name string
	vec  []float32
}

// fetchEmbeddings pages through the whole corpus with a running offset and
// returns every row that parses to a vector of the configured size.
// Unusable rows are logged and skipped. A page that keeps failing after
// retries aborts the fetch.
func (c *Cache) fetchEmbeddings(ctx context.Context) ([]entry, error) {
	var total int
	err := RetryWithBackoff(ctx, func() error {
		var err error
		total, err = c.source.CountEmbeddingRows(ctx, c.config.Corpus)
		return err
	}, c.config.MaxRetries, c.config.RetryDelay)
	if err != nil {
		return nil, fmt.Errorf("count embedding rows: %w", err)
	}

	if c.progress != nil {
		c.progress.Start(total)
		defer c.progress.Finish()
	}

	entries := make([]entry, 0, total)
	skipped := 0
	for offset := 0; offset < total; {
		var rows []core.EmbeddingRow
		err := RetryWithBackoff(ctx, func() error {
			var err error
			rows, err = c.source.EmbeddingRows(ctx, c.config.Corpus, offset, c.config.BatchSize)
			return err
		}, c.config.MaxRetries, c.config.RetryDelay)
		if err != nil {
			return nil, fmt.Errorf("fetch embedding rows at offset %d: %w", offset, err)
		}
		if len(rows) == 0 {
			// the corpus shrank under us
			break
		}

		pageSkipped := 0
		for _, row := range rows {
			if row.Embedding == nil {
				c.logger.Debug("skipping row without embedding", "entity", row.EntityName)
				pageSkipped++
				continue
			}
			vec, err := parseVector(*row.Embedding, c.config.Dimensions)
			if err != nil {
				c.logger.Warn("skipping unparsable embedding", "entity", row.EntityName, "err", err)
				pageSkipped++
				continue
			}
			entries = append(entries, entry{name: row.EntityName, vec: vec})
		}
		skipped += pageSkipped
		offset += len(rows)

		if c.progress != nil {
			c.progress.Increment(len(rows), pageSkipped)
		}
	}

	c.logger.Info("fetched embeddings", "corpus", c.config.Corpus, "rows", total, "parsed", len(entries), "skipped", skipped)
	return entries, nil
}
