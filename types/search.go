package types

import "time"

// SearchStrategy names the path a search request took through the
// orchestrator pipeline.
type SearchStrategy string

const (
	StrategyRecentDuplicate SearchStrategy = "recent_duplicate"
	StrategyCacheHit        SearchStrategy = "cache_hit"
	StrategyKnowledge       SearchStrategy = "knowledge"
	StrategyMinimal         SearchStrategy = "minimal"
	StrategyStandard        SearchStrategy = "standard"
	StrategyComprehensive   SearchStrategy = "comprehensive"
	StrategyProgressive     SearchStrategy = "progressive"
	StrategyEscalated       SearchStrategy = "escalated"
)

// SearchOptions tunes a single Search call. The zero value asks for
// default behavior.
type SearchOptions struct {
	// ForceFresh skips the recent-duplicate window and the search cache.
	ForceFresh bool
	// ForceSearch executes a search even when classification says none
	// is needed.
	ForceSearch bool
	// MaxCacheAge rejects cache hits older than this, even if their TTL
	// has not elapsed. Zero means TTL only.
	MaxCacheAge time.Duration
	// SimilarityThreshold overrides the configured cache similarity
	// threshold when > 0.
	SimilarityThreshold float64
}

// SearchResult is the orchestrator's answer for one query.
type SearchResult struct {
	RequestID    string          `json:"request_id"`
	Query        string          `json:"query"`
	Content      string          `json:"content"`
	FromCache    bool            `json:"from_cache"`
	Strategy     SearchStrategy  `json:"strategy"`
	Intensity    SearchIntensity `json:"intensity"`
	Sources      int             `json:"sources"`
	ScrapedSites int             `json:"scraped_sites"`
	QualityScore float64         `json:"quality_score,omitempty"`
	Escalated    bool            `json:"escalated,omitempty"`
	Duration     time.Duration   `json:"duration"`
	Timestamp    time.Time       `json:"timestamp"`
}
