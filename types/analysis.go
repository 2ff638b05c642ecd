package types

// SearchIntensity controls how many sources a search fetches and scrapes.
type SearchIntensity string

const (
	IntensityNone          SearchIntensity = "none"
	IntensityLight         SearchIntensity = "light"
	IntensityModerate      SearchIntensity = "moderate"
	IntensityDeep          SearchIntensity = "deep"
	IntensityComprehensive SearchIntensity = "comprehensive"
)

// QueryType is the coarse category a query falls into.
type QueryType string

const (
	QueryGreeting  QueryType = "greeting"
	QueryFactual   QueryType = "factual"
	QueryPersonal  QueryType = "personal"
	QueryTechnical QueryType = "technical"
	QueryCreative  QueryType = "creative"
	QueryResearch  QueryType = "research"
	QueryGeneral   QueryType = "general"
)

// PersonalizationLevel is how much stored user memory should influence
// a response.
type PersonalizationLevel string

const (
	PersonalizationNone     PersonalizationLevel = "none"
	PersonalizationMinimal  PersonalizationLevel = "minimal"
	PersonalizationModerate PersonalizationLevel = "moderate"
	PersonalizationHigh     PersonalizationLevel = "high"
)

// Complexity buckets a query by word count.
type Complexity string

const (
	ComplexitySimple   Complexity = "simple"
	ComplexityModerate Complexity = "moderate"
	ComplexityComplex  Complexity = "complex"
)

// Specificity measures how many concrete signals a query carries
// (quoted phrases, years, acronyms, dotted tokens).
type Specificity string

const (
	SpecificityVague        Specificity = "vague"
	SpecificitySpecific     Specificity = "specific"
	SpecificityVerySpecific Specificity = "very_specific"
)

// QueryAnalysis is the classifier's verdict for a single query.
// It is computed fresh per query and never cached; recomputing is cheap.
//
// Invariant: Intensity == IntensityNone exactly when SearchNeeded is false.
type QueryAnalysis struct {
	SearchNeeded       bool                 `json:"search_needed"`
	Intensity          SearchIntensity      `json:"search_intensity"`
	QueryType          QueryType            `json:"query_type"`
	Personalization    PersonalizationLevel `json:"personalization_level"`
	Confidence         float64              `json:"confidence"`
	RecommendedSources int                  `json:"recommended_sources"`
	RecommendedScrapes int                  `json:"recommended_scrapes"`
	Complexity         Complexity           `json:"complexity"`
	Specificity        Specificity          `json:"specificity"`
	Reasoning          string               `json:"reasoning,omitempty"`
}

// UserContext carries optional per-user hints into classification and
// retrieval. All fields may be zero.
type UserContext struct {
	RecentTopics  []string `json:"recent_topics,omitempty"`
	PreferredTone string   `json:"preferred_tone,omitempty"`
}
