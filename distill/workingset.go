package distill

import "sync"

// WorkingSet holds the ids of threads that are queued or being distilled.
// A thread in the set is never selected again until it is removed.
type WorkingSet struct {
	mu      sync.Mutex
	threads map[string]struct{}
}

// NewWorkingSet creates an empty working set.
func NewWorkingSet() *WorkingSet {
	return &WorkingSet{threads: make(map[string]struct{})}
}

// TryAdd inserts threadID and reports whether it was absent.
func (w *WorkingSet) TryAdd(threadID string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.threads[threadID]; ok {
		return false
	}
	w.threads[threadID] = struct{}{}
	return true
}

// Remove makes threadID selectable again.
func (w *WorkingSet) Remove(threadID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.threads, threadID)
}

// Contains reports whether threadID is in flight.
func (w *WorkingSet) Contains(threadID string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.threads[threadID]
	return ok
}

// Len returns the number of threads in flight.
func (w *WorkingSet) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.threads)
}
