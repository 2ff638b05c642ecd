package searchcache

import (
	"regexp"
	"time"

	"github.com/querysift/querysift/types"
)

// TTLConfig holds the content-aware cache lifetimes. Fresh-content
// categories expire fast; evergreen ones linger. These are empirically
// tuned values, kept configurable rather than derived.
type TTLConfig struct {
	BreakingNews time.Duration `yaml:"breaking_news"`
	Prices       time.Duration `yaml:"prices"`
	Weather      time.Duration `yaml:"weather"`
	Research     time.Duration `yaml:"research"`
	Comparison   time.Duration `yaml:"comparison"`
	Factual      time.Duration `yaml:"factual"`
	HowTo        time.Duration `yaml:"how_to"`
	General      time.Duration `yaml:"general"`
}

// DefaultTTLConfig returns the default TTL buckets.
func DefaultTTLConfig() TTLConfig {
	return TTLConfig{
		BreakingNews: 2 * time.Minute,
		Prices:       3 * time.Minute,
		Weather:      5 * time.Minute,
		Research:     15 * time.Minute,
		Comparison:   10 * time.Minute,
		Factual:      30 * time.Minute,
		HowTo:        60 * time.Minute,
		General:      10 * time.Minute,
	}
}

// ttlCategory pairs a content matcher with the name of its bucket.
type ttlCategory struct {
	name string
	re   *regexp.Regexp
}

// Ordered: first match wins, so the most volatile categories come
// first.
var ttlCategories = []ttlCategory{
	{"breaking_news", regexp.MustCompile(`\b(breaking|news|headline|headlines|just (happened|announced))\b`)},
	{"prices", regexp.MustCompile(`\b(price|prices|cost|market|stock|stocks|crypto|bitcoin|ethereum|exchange rate|rate today)\b`)},
	{"weather", regexp.MustCompile(`\b(weather|forecast|temperature|rain|snow|storm)\b`)},
	{"research", regexp.MustCompile(`\b(research|analysis|study|studies|in depth|comprehensive)\b`)},
	{"comparison", regexp.MustCompile(`\b(vs|versus|compare|comparison|difference between|better than)\b`)},
	{"factual", regexp.MustCompile(`\b(statistics|stats|population|gdp|how (many|much)|number of)\b`)},
	{"how_to", regexp.MustCompile(`\b(how to|tutorial|guide|step by step|instructions)\b`)},
}

func (t TTLConfig) byName(name string) time.Duration {
	switch name {
	case "breaking_news":
		return t.BreakingNews
	case "prices":
		return t.Prices
	case "weather":
		return t.Weather
	case "research":
		return t.Research
	case "comparison":
		return t.Comparison
	case "factual":
		return t.Factual
	case "how_to":
		return t.HowTo
	default:
		return t.General
	}
}

// TTLFor resolves a normalized query to its cache lifetime. Content
// categories take precedence; the search intensity keys the fallback.
func (t TTLConfig) TTLFor(normalized string, intensity types.SearchIntensity) (string, time.Duration) {
	for _, cat := range ttlCategories {
		if cat.re.MatchString(normalized) {
			return cat.name, t.byName(cat.name)
		}
	}

	switch intensity {
	case types.IntensityComprehensive:
		return "research", t.Research
	case types.IntensityDeep:
		return "comparison", t.Comparison
	case types.IntensityLight:
		return "factual", t.Factual
	default:
		return "general", t.General
	}
}
