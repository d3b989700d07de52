package retrieval

import "github.com/poiesic/distillery/vectorindex"

// Monitor provides hooks to observe a search.
// MemoScored is called from the scoring workers and may run concurrently.
type Monitor interface {
	Start(query string, topN int)
	AfterIndexQuery(neighbors []vectorindex.Neighbor)
	MemoScored(name string, score float32)
	AfterHydration(results []Result)
	Finish(results []Result)
}

// noopMonitor is a no-op implementation of Monitor
type noopMonitor struct{}

var _ Monitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string, _ int)                    {}
func (n *noopMonitor) AfterIndexQuery(_ []vectorindex.Neighbor) {}
func (n *noopMonitor) MemoScored(_ string, _ float32)           {}
func (n *noopMonitor) AfterHydration(_ []Result)                {}
func (n *noopMonitor) Finish(_ []Result)                        {}
