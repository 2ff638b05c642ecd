package types

import "time"

// Memory is a single stored fact about a user, as returned by the
// external memory store. Similarity is set only when the store ran a
// vector search; lexical overlap is used as a stand-in otherwise.
type Memory struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	Type       string     `json:"type"` // preference | skill | context | fact
	Key        string     `json:"key"`
	Value      string     `json:"value"`
	Confidence float64    `json:"confidence"`
	Similarity *float64   `json:"similarity,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  *time.Time `json:"updated_at,omitempty"`
}

// ScoredMemory is a Memory augmented with a composite relevance score
// in [0,1]. Derived per request, never persisted.
type ScoredMemory struct {
	Memory
	RelevanceScore float64 `json:"relevance_score"`
}

// UserProfile is the external store's snapshot of a user.
type UserProfile struct {
	UserID      string            `json:"user_id"`
	DisplayName string            `json:"display_name,omitempty"`
	Tone        string            `json:"tone,omitempty"`
	Preferences map[string]string `json:"preferences,omitempty"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// RetrievalStrategy is the per-query plan for memory retrieval: how
// many memories to return and how strictly to filter them. A pure
// value computed per (query, personalization level); never persisted.
type RetrievalStrategy struct {
	MaxMemories         int     `json:"max_memories"`
	ConfidenceThreshold float64 `json:"confidence_threshold"`
	DiversityWeight     float64 `json:"diversity_weight"`
	RecencyWeight       float64 `json:"recency_weight"`
	Reasoning           string  `json:"reasoning,omitempty"`
}

// AdaptiveMemoryResult is what the retriever hands back to the host.
type AdaptiveMemoryResult struct {
	Memories       []ScoredMemory    `json:"memories"`
	Profile        *UserProfile      `json:"profile,omitempty"`
	Strategy       RetrievalStrategy `json:"strategy"`
	Skipped        bool              `json:"skipped"`
	SkipReason     string            `json:"skip_reason,omitempty"`
	CandidateCount int               `json:"candidate_count"`
	Duration       time.Duration     `json:"duration"`
}
