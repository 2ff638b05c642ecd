package searchcache

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
)

var (
	punctRe      = regexp.MustCompile(`[^\w\s]`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// normalize lowercases, strips punctuation, and collapses whitespace
// so trivial rephrasings share a cache key.
func normalize(query string) string {
	q := strings.ToLower(strings.TrimSpace(query))
	q = punctRe.ReplaceAllString(q, " ")
	q = whitespaceRe.ReplaceAllString(q, " ")
	return strings.TrimSpace(q)
}

// cacheKey hashes the normalized query. Same prefix-truncated sha256
// shape as the rest of our keys.
func cacheKey(normalized string) string {
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:16])
}

func tokenSet(normalized string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range strings.Fields(normalized) {
		set[tok] = struct{}{}
	}
	return set
}

// overlapRatio is the Jaccard ratio of two string sets.
func overlapRatio(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	small, large := a, b
	if len(b) < len(a) {
		small, large = b, a
	}
	shared := 0
	for tok := range small {
		if _, ok := large[tok]; ok {
			shared++
		}
	}
	union := len(a) + len(b) - shared
	return float64(shared) / float64(union)
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, it := range items {
		set[it] = struct{}{}
	}
	return set
}

// lengthSimilarity compares query lengths on a 0..1 scale.
func lengthSimilarity(a, b int) float64 {
	if a == 0 && b == 0 {
		return 1
	}
	max := a
	if b > max {
		max = b
	}
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	return 1 - float64(diff)/float64(max)
}

// SimilarityWeights combines token overlap, tag overlap, and length
// similarity into one score.
type SimilarityWeights struct {
	Token  float64 `yaml:"token"`
	Tag    float64 `yaml:"tag"`
	Length float64 `yaml:"length"`
}

func DefaultSimilarityWeights() SimilarityWeights {
	return SimilarityWeights{Token: 0.6, Tag: 0.3, Length: 0.1}
}

// score computes the weighted similarity between an incoming query
// (tokens, tags, length) and a stored entry.
func (w SimilarityWeights) score(tokens map[string]struct{}, tags map[string]struct{}, length int, e *Entry) float64 {
	tok := overlapRatio(tokens, tokenSet(e.normalized))
	tag := overlapRatio(tags, toSet(e.Tags))
	ln := lengthSimilarity(length, len(e.normalized))
	return w.Token*tok + w.Tag*tag + w.Length*ln
}
