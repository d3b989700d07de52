package retrieval

import (
	"context"
	"errors"
	"io/fs"
	"path"
	"slices"
	"strings"
	"sync"

	"github.com/hack-pad/hackpadfs"
)

var memoExtensions = []string{".md", ".txt"}

func isMemo(name string) bool {
	return slices.Contains(memoExtensions, strings.ToLower(path.Ext(name)))
}

// searchMemos scores every memo in the scope directory against text and
// returns those at or above the threshold, best first.
func (s *Searcher) searchMemos(ctx context.Context, scope, text string, monitor Monitor) ([]Result, error) {
	entries, err := hackpadfs.ReadDir(s.memos, scope)
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.Debug("memo scope has no directory", "scope", scope)
		return []Result{}, nil
	}
	if err != nil {
		return nil, err
	}

	query := termFrequencies(text)
	if len(query) == 0 {
		return []Result{}, nil
	}

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results = make([]Result, 0)
	)
	for _, entry := range entries {
		if entry.IsDir() || !isMemo(entry.Name()) {
			continue
		}
		if err := ctx.Err(); err != nil {
			break
		}

		name := entry.Name()
		wg.Add(1)
		err := s.pool.Submit(func() {
			defer wg.Done()
			content, err := hackpadfs.ReadFile(s.memos, path.Join(scope, name))
			if err != nil {
				s.logger.Warn("failed to read memo", "scope", scope, "memo", name, "err", err)
				return
			}
			score := lexicalSimilarity(query, termFrequencies(string(content)))
			monitor.MemoScored(name, float32(score))
			if score < s.threshold {
				return
			}
			mu.Lock()
			results = append(results, Result{
				Name:    name,
				Content: string(content),
				Score:   float32(score),
			})
			mu.Unlock()
		})
		if err != nil {
			wg.Done()
			s.logger.Warn("failed to submit memo scoring", "memo", name, "err", err)
		}
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	slices.SortFunc(results, func(a, b Result) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		default:
			return strings.Compare(a.Name, b.Name)
		}
	})
	return results, nil
}
