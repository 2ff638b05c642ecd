package classifier

import (
	"strings"

	"github.com/querysift/querysift/types"
)

// queryFeatures is everything the rule table needs to know about one
// query. Computed once, read by every rule predicate.
type queryFeatures struct {
	raw       string
	lower     string
	wordCount int

	complexity  types.Complexity
	specificity types.Specificity
	queryType   types.QueryType

	matched map[string]bool
}

func (f *queryFeatures) has(family string) bool { return f.matched[family] }

func (f *queryFeatures) isComplex() bool { return f.complexity == types.ComplexityComplex }
func (f *queryFeatures) isSimple() bool  { return f.complexity == types.ComplexitySimple }
func (f *queryFeatures) isVerySpecific() bool {
	return f.specificity == types.SpecificityVerySpecific
}

func (c *Classifier) extractFeatures(query string) *queryFeatures {
	raw := strings.TrimSpace(query)
	f := &queryFeatures{
		raw:       raw,
		lower:     strings.ToLower(raw),
		wordCount: len(strings.Fields(raw)),
		matched:   make(map[string]bool, len(c.families)+1),
	}

	for _, fam := range c.families {
		f.matched[fam.name] = fam.match(f.lower)
	}
	f.matched[famRecentYear] = recentYearRe.MatchString(raw)

	f.complexity = bucketComplexity(f.wordCount)
	f.specificity = bucketSpecificity(raw)
	f.queryType = deriveQueryType(f)

	return f
}

func bucketComplexity(words int) types.Complexity {
	switch {
	case words <= 3:
		return types.ComplexitySimple
	case words <= 8:
		return types.ComplexityModerate
	default:
		return types.ComplexityComplex
	}
}

// bucketSpecificity counts concrete signals: quoted phrases, year
// tokens, acronyms, and dotted tokens (domains, file names, versions).
func bucketSpecificity(raw string) types.Specificity {
	signals := 0
	if quotedPhraseRe.MatchString(raw) {
		signals++
	}
	if yearTokenRe.MatchString(raw) {
		signals++
	}
	if acronymRe.MatchString(raw) {
		signals++
	}
	if dottedTokenRe.MatchString(raw) {
		signals++
	}

	switch {
	case signals >= 2:
		return types.SpecificityVerySpecific
	case signals == 1:
		return types.SpecificitySpecific
	default:
		return types.SpecificityVague
	}
}

// deriveQueryType picks the coarse query category. Order matters:
// greeting and creative are unambiguous openers, personal needs
// first-person language, and technical vocabulary beats the generic
// factual buckets.
func deriveQueryType(f *queryFeatures) types.QueryType {
	switch {
	case f.has(famGreeting):
		return types.QueryGreeting
	case f.has(famCreative):
		return types.QueryCreative
	case f.has(famFirstPerson) && (f.has(famPreference) || f.has(famPersonal)):
		return types.QueryPersonal
	case f.has(famTechnical):
		return types.QueryTechnical
	case f.has(famResearch):
		return types.QueryResearch
	case f.has(famFactualData) || f.has(famCurrentInfo) || f.has(famConceptual):
		return types.QueryFactual
	default:
		return types.QueryGeneral
	}
}

// derivePersonalization maps the query category to how much stored
// user memory should influence the response.
func derivePersonalization(f *queryFeatures) types.PersonalizationLevel {
	switch f.queryType {
	case types.QueryGreeting:
		return types.PersonalizationNone
	case types.QueryFactual, types.QueryTechnical:
		return types.PersonalizationMinimal
	case types.QueryPersonal:
		if f.has(famPreference) {
			return types.PersonalizationHigh
		}
		return types.PersonalizationModerate
	case types.QueryCreative:
		return types.PersonalizationModerate
	case types.QueryResearch:
		if f.has(famFirstPerson) {
			return types.PersonalizationModerate
		}
		return types.PersonalizationMinimal
	default:
		return types.PersonalizationMinimal
	}
}
