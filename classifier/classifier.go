package classifier

import (
	"github.com/querysift/querysift/types"
	"go.uber.org/zap"
)

// rule pairs a predicate over query features with the analysis it
// produces. Rules are evaluated in order; the first match wins, so the
// table encodes precedence without nested control flow.
type rule struct {
	name    string
	when    func(f *queryFeatures) bool
	verdict func(f *queryFeatures) verdict
}

// verdict is a rule's search decision before personalization and
// source recommendations are filled in.
type verdict struct {
	searchNeeded bool
	intensity    types.SearchIntensity
	confidence   float64
	reasoning    string
}

func noSearch(confidence float64, reasoning string) verdict {
	return verdict{searchNeeded: false, intensity: types.IntensityNone, confidence: confidence, reasoning: reasoning}
}

func search(intensity types.SearchIntensity, confidence float64, reasoning string) verdict {
	return verdict{searchNeeded: true, intensity: intensity, confidence: confidence, reasoning: reasoning}
}

// Classifier scores a query's need for web search and personalization.
// It is pure and deterministic: no I/O, no state mutation, safe for
// concurrent use.
type Classifier struct {
	families []patternFamily
	rules    []rule
	logger   *zap.Logger
}

// New creates a Classifier with the default pattern families and rule
// table.
func New(logger *zap.Logger) *Classifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Classifier{
		families: defaultFamilies(),
		logger:   logger.With(zap.String("component", "classifier")),
	}
	c.rules = defaultRules()
	return c
}

// defaultRules is the precedence table. Highest-priority rules first;
// the final rule always matches.
func defaultRules() []rule {
	return []rule{
		{
			name: "greeting",
			when: func(f *queryFeatures) bool { return f.has(famGreeting) },
			verdict: func(f *queryFeatures) verdict {
				return noSearch(1.0, "greeting, no information need")
			},
		},
		{
			name: "creative",
			when: func(f *queryFeatures) bool { return f.has(famCreative) },
			verdict: func(f *queryFeatures) verdict {
				return noSearch(0.9, "creative generation, answered from model knowledge")
			},
		},
		{
			name: "conceptual",
			when: func(f *queryFeatures) bool {
				return f.has(famConceptual) && !f.has(famRecentYear) && !f.has(famCurrentInfo)
			},
			verdict: func(f *queryFeatures) verdict {
				return noSearch(0.85, "conceptual or historical, stable knowledge")
			},
		},
		{
			name: "current_info",
			when: func(f *queryFeatures) bool { return f.has(famCurrentInfo) || f.has(famUrgency) },
			verdict: func(f *queryFeatures) verdict {
				if f.has(famResearch) {
					return search(types.IntensityDeep, 0.95, "current information with research depth")
				}
				return search(types.IntensityModerate, 0.95, "current information required")
			},
		},
		{
			name: "research",
			when: func(f *queryFeatures) bool { return f.has(famResearch) && f.isComplex() },
			verdict: func(f *queryFeatures) verdict {
				return search(types.IntensityComprehensive, 0.9, "complex research query")
			},
		},
		{
			name: "comparison",
			when: func(f *queryFeatures) bool { return f.has(famComparison) },
			verdict: func(f *queryFeatures) verdict {
				if f.isComplex() {
					return search(types.IntensityDeep, 0.85, "complex comparison")
				}
				return search(types.IntensityModerate, 0.85, "comparison")
			},
		},
		{
			name: "factual_data",
			when: func(f *queryFeatures) bool { return f.has(famFactualData) },
			verdict: func(f *queryFeatures) verdict {
				return search(types.IntensityModerate, 0.8, "factual data lookup")
			},
		},
		{
			name: "how_to",
			when: func(f *queryFeatures) bool { return f.has(famHowTo) },
			verdict: func(f *queryFeatures) verdict {
				if f.has(famTechnical) || f.isVerySpecific() {
					return search(types.IntensityModerate, 0.7, "specific technical how-to")
				}
				return noSearch(0.75, "general how-to, answered from model knowledge")
			},
		},
		{
			name: "default",
			when: func(f *queryFeatures) bool { return true },
			verdict: func(f *queryFeatures) verdict {
				if f.isComplex() && f.isVerySpecific() {
					return search(types.IntensityLight, 0.6, "complex specific query, light verification")
				}
				return noSearch(0.8, "no search signal")
			},
		},
	}
}

// sourcePlan maps intensity to recommended source and scrape counts.
var sourcePlan = map[types.SearchIntensity][2]int{
	types.IntensityNone:          {0, 0},
	types.IntensityLight:         {2, 1},
	types.IntensityModerate:      {4, 2},
	types.IntensityDeep:          {6, 3},
	types.IntensityComprehensive: {8, 4},
}

// Analyze evaluates the query against the rule table and returns the
// full analysis. uc may be nil. Malformed or empty queries fall
// through to the default rule.
func (c *Classifier) Analyze(query string, uc *types.UserContext) types.QueryAnalysis {
	f := c.extractFeatures(query)

	var matchedRule string
	var v verdict
	for _, r := range c.rules {
		if r.when(f) {
			matchedRule = r.name
			v = r.verdict(f)
			break
		}
	}

	plan := sourcePlan[v.intensity]
	analysis := types.QueryAnalysis{
		SearchNeeded:       v.searchNeeded,
		Intensity:          v.intensity,
		QueryType:          f.queryType,
		Personalization:    derivePersonalization(f),
		Confidence:         v.confidence,
		RecommendedSources: plan[0],
		RecommendedScrapes: plan[1],
		Complexity:         f.complexity,
		Specificity:        f.specificity,
		Reasoning:          v.reasoning,
	}

	c.logger.Debug("query classified",
		zap.String("rule", matchedRule),
		zap.String("query_type", string(analysis.QueryType)),
		zap.Bool("search_needed", analysis.SearchNeeded),
		zap.String("intensity", string(analysis.Intensity)),
		zap.Float64("confidence", analysis.Confidence),
	)

	return analysis
}
