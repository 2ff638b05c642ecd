package searchcache

import "regexp"

// tagFamily derives a tag from topic or query-shape keywords. Tags
// drive bulk invalidation: the host can drop everything tagged "news"
// after an editorial correction, or "pricing" after a market event.
type tagFamily struct {
	tag string
	re  *regexp.Regexp
}

var tagFamilies = []tagFamily{
	// Topic families.
	{"tech", regexp.MustCompile(`\b(ai|ml|software|hardware|computer|tech|technology|programming|code|app|startup)\b`)},
	{"business", regexp.MustCompile(`\b(market|stock|stocks|company|economy|business|revenue|earnings|investment)\b`)},
	{"science", regexp.MustCompile(`\b(science|scientific|physics|chemistry|biology|climate|space|nasa)\b`)},
	{"news", regexp.MustCompile(`\b(news|breaking|headline|headlines|announced|report)\b`)},
	{"weather", regexp.MustCompile(`\b(weather|forecast|temperature|storm)\b`)},
	{"sports", regexp.MustCompile(`\b(game|match|score|team|league|championship|playoffs)\b`)},
	{"health", regexp.MustCompile(`\b(health|medical|disease|symptom|treatment|vaccine|diet)\b`)},
	// Query-shape families.
	{"pricing", regexp.MustCompile(`\b(price|prices|cost|cheap|expensive|deal|discount)\b`)},
	{"howto", regexp.MustCompile(`\b(how to|tutorial|guide|step by step)\b`)},
	{"comparison", regexp.MustCompile(`\b(vs|versus|compare|comparison|difference between)\b`)},
	{"review", regexp.MustCompile(`\b(review|reviews|best|top|rated|recommended)\b`)},
}

// deriveTags returns the tags for a normalized query, in family order.
func deriveTags(normalized string) []string {
	var tags []string
	for _, f := range tagFamilies {
		if f.re.MatchString(normalized) {
			tags = append(tags, f.tag)
		}
	}
	return tags
}
