package memory

import (
	"fmt"
	"testing"

	"github.com/querysift/querysift/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func mem(id, memType, key, value string, confidence float64) types.Memory {
	return types.Memory{ID: id, Type: memType, Key: key, Value: value, Confidence: confidence}
}

// ---------------------------------------------------------------------------
// Filtering and scoring
// ---------------------------------------------------------------------------

func TestScoreMemories_ConfidenceFilter(t *testing.T) {
	candidates := []types.Memory{
		mem("1", "preference", "music", "jazz", 0.9),
		mem("2", "preference", "food", "thai", 0.5),
		mem("3", "context", "project", "rewrite", 0.71),
	}
	strategy := types.RetrievalStrategy{MaxMemories: 5, ConfidenceThreshold: 0.7, RecencyWeight: 0.5}

	scored := scoreMemories(candidates, "what music do i like", strategy, DefaultScoringWeights())

	require.Len(t, scored, 2)
	for _, s := range scored {
		assert.GreaterOrEqual(t, s.Confidence, 0.7)
	}
}

func TestScoreMemories_SortedDescending(t *testing.T) {
	candidates := []types.Memory{
		mem("low", "fact", "trivia", "unrelated detail", 0.7),
		mem("high", "preference", "music", "jazz and blues", 0.95),
	}
	strategy := types.RetrievalStrategy{MaxMemories: 5, ConfidenceThreshold: 0.6, RecencyWeight: 0.5}

	scored := scoreMemories(candidates, "what music do i usually like", strategy, DefaultScoringWeights())

	require.Len(t, scored, 2)
	assert.Equal(t, "high", scored[0].ID)
	assert.GreaterOrEqual(t, scored[0].RelevanceScore, scored[1].RelevanceScore)
}

func TestScoreMemories_StoreSimilarityWins(t *testing.T) {
	sim := 0.95
	withVector := mem("v", "fact", "alpha", "beta", 0.8)
	withVector.Similarity = &sim
	withoutVector := mem("l", "fact", "alpha", "beta", 0.8)

	strategy := types.RetrievalStrategy{MaxMemories: 5, ConfidenceThreshold: 0.5, RecencyWeight: 0.5}
	weights := DefaultScoringWeights()

	scored := scoreMemories([]types.Memory{withVector, withoutVector}, "completely different words", strategy, weights)

	require.Len(t, scored, 2)
	// Vector similarity 0.95 beats lexical overlap 0.
	assert.Equal(t, "v", scored[0].ID)
	assert.Greater(t, scored[0].RelevanceScore, scored[1].RelevanceScore)
}

func TestTypeRelevance(t *testing.T) {
	assert.Equal(t, 1.0, typeRelevance("preference", "what is my favorite color"))
	assert.Equal(t, 0.6, typeRelevance("preference", "population of norway"))
	assert.Equal(t, 0.9, typeRelevance("skill", "can you tell if i know how to solder"))
	assert.Equal(t, 0.6, typeRelevance("skill", "population of norway"))
	assert.Equal(t, 0.8, typeRelevance("context", "anything"))
	assert.Equal(t, 0.6, typeRelevance("fact", "anything"))
}

func TestKeywordOverlap(t *testing.T) {
	m := mem("1", "preference", "favorite music", "jazz and blues records", 0.9)

	assert.Equal(t, 1.0, keywordOverlap("jazz blues", m))
	assert.Equal(t, 0.5, keywordOverlap("jazz opera", m))
	assert.Equal(t, 0.0, keywordOverlap("quantum physics", m))
	assert.Equal(t, 0.0, keywordOverlap("", m))
}

func TestScoreMemories_ScoresStayInRange(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 12).Draw(t, "n")
		candidates := make([]types.Memory, n)
		for i := range candidates {
			candidates[i] = mem(
				fmt.Sprintf("m%d", i),
				rapid.SampledFrom([]string{"preference", "skill", "context", "fact"}).Draw(t, "type"),
				rapid.StringN(1, 12, 20).Draw(t, "key"),
				rapid.StringN(0, 30, 60).Draw(t, "value"),
				rapid.Float64Range(0, 1).Draw(t, "confidence"),
			)
		}
		strategy := types.RetrievalStrategy{
			MaxMemories:         5,
			ConfidenceThreshold: rapid.Float64Range(0, 1).Draw(t, "threshold"),
			RecencyWeight:       rapid.Float64Range(0, 1).Draw(t, "recency"),
		}

		scored := scoreMemories(candidates, rapid.StringN(0, 40, 80).Draw(t, "query"), strategy, DefaultScoringWeights())

		for _, s := range scored {
			assert.GreaterOrEqual(t, s.RelevanceScore, 0.0)
			assert.LessOrEqual(t, s.RelevanceScore, 1.0)
			assert.GreaterOrEqual(t, s.Confidence, strategy.ConfidenceThreshold)
		}
	})
}

// ---------------------------------------------------------------------------
// Selection
// ---------------------------------------------------------------------------

func scoredSet(memories ...types.Memory) []types.ScoredMemory {
	out := make([]types.ScoredMemory, len(memories))
	for i, m := range memories {
		// Descending scores in input order, as scoreMemories guarantees.
		out[i] = types.ScoredMemory{Memory: m, RelevanceScore: 1.0 - float64(i)*0.05}
	}
	return out
}

func TestSelectMemories_TopNWithoutDiversity(t *testing.T) {
	scored := scoredSet(
		mem("1", "preference", "a", "", 0.9),
		mem("2", "preference", "b", "", 0.9),
		mem("3", "preference", "c", "", 0.9),
		mem("4", "skill", "d", "", 0.9),
	)
	strategy := types.RetrievalStrategy{MaxMemories: 2, DiversityWeight: 0.4}

	selected := selectMemories(scored, strategy)
	require.Len(t, selected, 2)
	assert.Equal(t, "1", selected[0].ID)
	assert.Equal(t, "2", selected[1].ID)
}

func TestSelectMemories_DiversitySpreadsAcrossTypes(t *testing.T) {
	// Six preferences dominate by score; diversity still pulls in one
	// memory of each other type first.
	scored := scoredSet(
		mem("p1", "preference", "k1", "", 0.9),
		mem("p2", "preference", "k2", "", 0.9),
		mem("p3", "preference", "k3", "", 0.9),
		mem("s1", "skill", "k4", "", 0.9),
		mem("c1", "context", "k5", "", 0.9),
		mem("f1", "fact", "k6", "", 0.9),
	)
	strategy := types.RetrievalStrategy{MaxMemories: 4, DiversityWeight: 0.8}

	selected := selectMemories(scored, strategy)
	require.Len(t, selected, 4)

	seen := make(map[string]int)
	for _, m := range selected {
		seen[m.Type]++
	}
	assert.Equal(t, map[string]int{"preference": 1, "skill": 1, "context": 1, "fact": 1}, seen)
}

func TestSelectMemories_DiversityFillsRemainingSlotsByScore(t *testing.T) {
	scored := scoredSet(
		mem("p1", "preference", "k1", "", 0.9),
		mem("p2", "preference", "k2", "", 0.9),
		mem("s1", "skill", "k3", "", 0.9),
	)
	strategy := types.RetrievalStrategy{MaxMemories: 3, DiversityWeight: 0.8}

	selected := selectMemories(scored, strategy)
	require.Len(t, selected, 3)
	// Pass 1 takes p1 and s1; pass 2 backfills p2.
	assert.Equal(t, "p1", selected[0].ID)
	assert.Equal(t, "s1", selected[1].ID)
	assert.Equal(t, "p2", selected[2].ID)
}

func TestSelectMemories_NeverExceedsMax(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 20).Draw(t, "n")
		scored := make([]types.ScoredMemory, n)
		for i := range scored {
			scored[i] = types.ScoredMemory{
				Memory: mem(
					fmt.Sprintf("m%d", i),
					rapid.SampledFrom([]string{"preference", "skill", "context", "fact"}).Draw(t, "type"),
					fmt.Sprintf("key%d", rapid.IntRange(0, 8).Draw(t, "key")),
					"",
					0.9,
				),
				RelevanceScore: 1.0 - float64(i)*0.01,
			}
		}
		strategy := types.RetrievalStrategy{
			MaxMemories:     rapid.IntRange(0, 8).Draw(t, "max"),
			DiversityWeight: rapid.Float64Range(0, 1).Draw(t, "diversity"),
		}

		selected := selectMemories(scored, strategy)
		assert.LessOrEqual(t, len(selected), strategy.MaxMemories)
	})
}
