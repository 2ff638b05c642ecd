package memory

import (
	"regexp"
	"sort"
	"strings"

	"github.com/querysift/querysift/types"
)

// ScoringWeights combines the relevance signals. They sum to 1 so the
// composite stays in [0,1] before clamping.
type ScoringWeights struct {
	Confidence float64 `yaml:"confidence"`
	Similarity float64 `yaml:"similarity"`
	Type       float64 `yaml:"type"`
	Recency    float64 `yaml:"recency"`
}

// DefaultScoringWeights returns the default signal weights.
func DefaultScoringWeights() ScoringWeights {
	return ScoringWeights{Confidence: 0.4, Similarity: 0.3, Type: 0.2, Recency: 0.1}
}

var (
	preferenceLangRe = regexp.MustCompile(`\b(prefer|favorite|favourite|like|love|hate|style|always|usually)\b`)
	capabilityLangRe = regexp.MustCompile(`\b(can you|how (do|can) i|able to|capable|know how|skill|experienced?)\b`)
)

// typeRelevance boosts memory types that match what the query is
// asking for: preferences for preference language, skills for
// capability language, a flat score for conversational context.
func typeRelevance(memoryType, lowerQuery string) float64 {
	switch memoryType {
	case "preference":
		if preferenceLangRe.MatchString(lowerQuery) {
			return 1.0
		}
		return 0.6
	case "skill":
		if capabilityLangRe.MatchString(lowerQuery) {
			return 0.9
		}
		return 0.6
	case "context":
		return 0.8
	default:
		return 0.6
	}
}

// keywordOverlap is the share of query tokens present in the memory's
// key and value. Lexical stand-in for vector similarity when the store
// did not provide one.
func keywordOverlap(lowerQuery string, m types.Memory) float64 {
	queryTokens := strings.Fields(lowerQuery)
	if len(queryTokens) == 0 {
		return 0
	}
	memText := strings.ToLower(m.Key + " " + m.Value)
	memTokens := make(map[string]struct{})
	for _, tok := range strings.Fields(memText) {
		memTokens[tok] = struct{}{}
	}
	shared := 0
	for _, tok := range queryTokens {
		if _, ok := memTokens[tok]; ok {
			shared++
		}
	}
	return float64(shared) / float64(len(queryTokens))
}

// scoreMemories filters candidates by the strategy's confidence
// threshold and computes a composite relevance score for each
// survivor, clamped to [0,1].
func scoreMemories(candidates []types.Memory, query string, strategy types.RetrievalStrategy, weights ScoringWeights) []types.ScoredMemory {
	lower := strings.ToLower(query)
	scored := make([]types.ScoredMemory, 0, len(candidates))

	for _, m := range candidates {
		if m.Confidence < strategy.ConfidenceThreshold {
			continue
		}

		similarity := keywordOverlap(lower, m)
		if m.Similarity != nil {
			similarity = *m.Similarity
		}

		score := weights.Confidence*m.Confidence +
			weights.Similarity*similarity +
			weights.Type*typeRelevance(m.Type, lower) +
			weights.Recency*strategy.RecencyWeight

		if score > 1 {
			score = 1
		}
		if score < 0 {
			score = 0
		}

		scored = append(scored, types.ScoredMemory{Memory: m, RelevanceScore: score})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].RelevanceScore > scored[j].RelevanceScore
	})
	return scored
}

// diversityTrigger is the diversity weight above which selection
// spreads across memory types instead of taking the raw top-N.
const diversityTrigger = 0.7

// selectMemories picks at most strategy.MaxMemories from the scored,
// descending-sorted candidates. With a high diversity weight the first
// pass takes the top memory of each distinct type, then remaining
// slots fill with the next best whose key is unused.
func selectMemories(scored []types.ScoredMemory, strategy types.RetrievalStrategy) []types.ScoredMemory {
	max := strategy.MaxMemories
	if max <= 0 {
		return nil
	}
	if len(scored) <= max && strategy.DiversityWeight <= diversityTrigger {
		return scored
	}

	if strategy.DiversityWeight <= diversityTrigger {
		return scored[:max]
	}

	selected := make([]types.ScoredMemory, 0, max)
	usedTypes := make(map[string]struct{})
	usedKeys := make(map[string]struct{})

	// Pass 1: best memory of each distinct type.
	for _, m := range scored {
		if len(selected) >= max {
			break
		}
		if _, seen := usedTypes[m.Type]; seen {
			continue
		}
		usedTypes[m.Type] = struct{}{}
		usedKeys[m.Key] = struct{}{}
		selected = append(selected, m)
	}

	// Pass 2: fill remaining slots by score, skipping used keys.
	for _, m := range scored {
		if len(selected) >= max {
			break
		}
		if _, seen := usedKeys[m.Key]; seen {
			continue
		}
		usedKeys[m.Key] = struct{}{}
		selected = append(selected, m)
	}

	return selected
}
