package memory

import (
	"regexp"
	"strings"

	"github.com/querysift/querysift/types"
)

// skipPattern recognizes queries where personal memories add nothing:
// definitions, math, generic how-tos, documentation references, simple
// factual forms, comparisons, example requests.
type skipPattern struct {
	reason string
	re     *regexp.Regexp
}

var skipPatterns = []skipPattern{
	{"definition", regexp.MustCompile(`^(what (is|are|was|were)|define|definition of|meaning of)\b`)},
	{"math", regexp.MustCompile(`^[\d\s+\-*/().=%^]+$`)},
	{"generic_howto", regexp.MustCompile(`^how (do you|to|does)\b`)},
	{"documentation", regexp.MustCompile(`\b(docs|documentation|man page|api reference|changelog)\b`)},
	{"simple_factual", regexp.MustCompile(`^(who|when|where) (is|was|are|were)\b`)},
	{"comparison", regexp.MustCompile(`\b(vs\.?|versus|compare|difference between)\b`)},
	{"example_request", regexp.MustCompile(`\b(example|examples|sample) (of|for|code)\b|^(give|show) me an example`)},
}

// minQueryLength is the character floor below which retrieval is
// skipped outright.
const minQueryLength = 15

// shouldSkip reports whether retrieval can be skipped for the query,
// and why.
func shouldSkip(query string) (string, bool) {
	trimmed := strings.TrimSpace(query)
	if len(trimmed) < minQueryLength {
		return "short_query", true
	}
	lower := strings.ToLower(trimmed)
	for _, p := range skipPatterns {
		if p.re.MatchString(lower) {
			return p.reason, true
		}
	}
	return "", false
}

var firstPersonRe = regexp.MustCompile(`\b(i|i'm|i've|me|my|mine|our|us)\b`)

// technicalVocabRe mirrors the classifier's technical vocabulary. The
// refinement keys on the words themselves: by the time a query reaches
// the moderate branch its derived type is no longer technical, but the
// vocabulary still signals that a tight, high-confidence strategy fits.
var technicalVocabRe = regexp.MustCompile(`\b(api|sdk|cli|code|function|method|class|error|exception|bug|stack trace|install|configure|config|deploy|compile|build|debug|refactor|library|framework|server|database|kubernetes|docker|regex|algorithm)\b`)

// determineStrategy computes the retrieval plan for one query. The
// personalization level is the primary axis; moderate gets refined by
// query category and complexity, in priority order.
func determineStrategy(analysis types.QueryAnalysis, query string) types.RetrievalStrategy {
	switch analysis.Personalization {
	case types.PersonalizationNone:
		return types.RetrievalStrategy{Reasoning: "no personalization"}

	case types.PersonalizationMinimal:
		return types.RetrievalStrategy{
			MaxMemories:         2,
			ConfidenceThreshold: 0.85,
			DiversityWeight:     0.3,
			RecencyWeight:       0.8,
			Reasoning:           "minimal personalization, recency-weighted",
		}

	case types.PersonalizationHigh:
		return types.RetrievalStrategy{
			MaxMemories:         6,
			ConfidenceThreshold: 0.65,
			DiversityWeight:     0.8,
			RecencyWeight:       0.4,
			Reasoning:           "high personalization, diversity-weighted",
		}
	}

	// Moderate: refine by lexical cues, most demanding first.
	lower := strings.ToLower(query)
	personal := analysis.QueryType == types.QueryPersonal ||
		firstPersonRe.MatchString(lower)
	wordCount := len(strings.Fields(query))

	switch {
	case personal && analysis.Complexity == types.ComplexityComplex:
		return types.RetrievalStrategy{
			MaxMemories:         5,
			ConfidenceThreshold: 0.7,
			DiversityWeight:     0.5,
			RecencyWeight:       0.5,
			Reasoning:           "complex personal query",
		}
	case personal:
		return types.RetrievalStrategy{
			MaxMemories:         4,
			ConfidenceThreshold: 0.75,
			DiversityWeight:     0.5,
			RecencyWeight:       0.5,
			Reasoning:           "personal query",
		}
	case analysis.QueryType == types.QueryTechnical || technicalVocabRe.MatchString(lower):
		return types.RetrievalStrategy{
			MaxMemories:         3,
			ConfidenceThreshold: 0.8,
			DiversityWeight:     0.4,
			RecencyWeight:       0.5,
			Reasoning:           "technical query",
		}
	case analysis.QueryType == types.QueryCreative:
		return types.RetrievalStrategy{
			MaxMemories:         3,
			ConfidenceThreshold: 0.7,
			DiversityWeight:     0.8,
			RecencyWeight:       0.3,
			Reasoning:           "creative query, diversity-weighted",
		}
	case analysis.QueryType == types.QueryFactual:
		return types.RetrievalStrategy{
			MaxMemories:         1,
			ConfidenceThreshold: 0.9,
			DiversityWeight:     0.2,
			RecencyWeight:       0.5,
			Reasoning:           "factual query, single high-confidence memory",
		}
	case wordCount <= 5 || analysis.Complexity == types.ComplexitySimple:
		return types.RetrievalStrategy{
			MaxMemories:         2,
			ConfidenceThreshold: 0.8,
			DiversityWeight:     0.3,
			RecencyWeight:       0.6,
			Reasoning:           "simple query",
		}
	default:
		return types.RetrievalStrategy{
			MaxMemories:         3,
			ConfidenceThreshold: 0.75,
			DiversityWeight:     0.5,
			RecencyWeight:       0.5,
			Reasoning:           "moderate personalization",
		}
	}
}
