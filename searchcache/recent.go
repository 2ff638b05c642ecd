package searchcache

import (
	"sync"
	"time"
)

// RecentWindow is the short exact-duplicate guard in front of the full
// cache: the last N queries over a few minutes, keyed by normalized
// text. It catches bursty repeats within one conversation before the
// broader similarity machinery runs.
type RecentWindow struct {
	mu      sync.Mutex
	order   []string // normalized queries, oldest first
	byQuery map[string]recentEntry
	max     int
	ttl     time.Duration
}

type recentEntry struct {
	content string
	addedAt time.Time
}

// NewRecentWindow creates a window of at most max entries, each valid
// for ttl. Non-positive arguments fall back to 50 entries / 10 min.
func NewRecentWindow(max int, ttl time.Duration) *RecentWindow {
	if max <= 0 {
		max = 50
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &RecentWindow{
		byQuery: make(map[string]recentEntry),
		max:     max,
		ttl:     ttl,
	}
}

// Lookup returns the stored content for an exact normalized duplicate.
// Expired entries are pruned opportunistically.
func (w *RecentWindow) Lookup(query string) (string, bool) {
	normalized := normalize(query)
	if normalized == "" {
		return "", false
	}
	now := time.Now()

	w.mu.Lock()
	defer w.mu.Unlock()

	w.pruneLocked(now)
	e, ok := w.byQuery[normalized]
	if !ok {
		return "", false
	}
	return e.content, true
}

// Add records a query and its answer, evicting the oldest entry when
// the window is full.
func (w *RecentWindow) Add(query, content string) {
	normalized := normalize(query)
	if normalized == "" {
		return
	}
	now := time.Now()

	w.mu.Lock()
	defer w.mu.Unlock()

	w.pruneLocked(now)
	if _, ok := w.byQuery[normalized]; !ok {
		w.order = append(w.order, normalized)
	}
	w.byQuery[normalized] = recentEntry{content: content, addedAt: now}

	for len(w.order) > w.max {
		oldest := w.order[0]
		w.order = w.order[1:]
		delete(w.byQuery, oldest)
	}
}

// Len returns the current window size.
func (w *RecentWindow) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.byQuery)
}

func (w *RecentWindow) pruneLocked(now time.Time) {
	cutoff := now.Add(-w.ttl)
	kept := w.order[:0]
	for _, q := range w.order {
		e, ok := w.byQuery[q]
		if !ok {
			continue
		}
		if e.addedAt.Before(cutoff) {
			delete(w.byQuery, q)
			continue
		}
		kept = append(kept, q)
	}
	w.order = kept
}
