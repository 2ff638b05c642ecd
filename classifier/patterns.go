package classifier

import "regexp"

// patternFamily groups the regular expressions that recognize one kind
// of query. Families are evaluated once per query; rules then combine
// the boolean outcomes.
type patternFamily struct {
	name string
	res  []*regexp.Regexp
}

func (f patternFamily) match(q string) bool {
	for _, re := range f.res {
		if re.MatchString(q) {
			return true
		}
	}
	return false
}

func mustFamily(name string, patterns ...string) patternFamily {
	res := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		res = append(res, regexp.MustCompile(p))
	}
	return patternFamily{name: name, res: res}
}

// Family names used by rules and by downstream strategy refinement.
const (
	famGreeting    = "greeting"
	famCurrentInfo = "current_info"
	famResearch    = "research"
	famFactualData = "factual_data"
	famHowTo       = "how_to"
	famConceptual  = "conceptual"
	famCreative    = "creative"
	famComparison  = "comparison"
	famUrgency     = "urgency"
	famTechnical   = "technical"
	famRecentYear  = "recent_year"
	famFirstPerson = "first_person"
	famPreference  = "preference"
	famPersonal    = "personal"
)

// defaultFamilies returns the ordered pattern table. All expressions
// run against the lowercased query, except recent_year and the
// specificity signals which need the raw text.
func defaultFamilies() []patternFamily {
	return []patternFamily{
		mustFamily(famGreeting,
			`^(hi|hiya|hello|hey|yo|sup|howdy|greetings)\b`,
			`^good (morning|afternoon|evening|night)\b`,
			`^(thanks|thank you|bye|goodbye|see you|take care)\b`,
			`^how are you\b`,
		),
		mustFamily(famCurrentInfo,
			`\b(latest|current|recent|breaking|today|tonight|this (week|month|year)|right now|up[- ]to[- ]date)\b`,
			`\b(news|headline|headlines)\b`,
			`\b(price|prices|stock|stocks|market|exchange rate|weather|forecast|score|scores)\b`,
			`\bwhat('?s| is) happening\b`,
		),
		mustFamily(famResearch,
			`\b(research|analy[sz]e|analysis|in[- ]depth|comprehensive|thorough|literature|survey|state of the art|deep dive)\b`,
			`\b(stud(y|ies)|papers?|findings)\b`,
		),
		mustFamily(famFactualData,
			`\b(statistics|stats|data|dataset|population|gdp|revenue|market share|percentage|average)\b`,
			`\bhow (many|much)\b`,
			`\bnumber of\b`,
		),
		mustFamily(famHowTo,
			`^how (do|to|can|should|would) `,
			`\b(step[- ]by[- ]step|tutorial|guide|walkthrough|instructions)\b`,
		),
		mustFamily(famConceptual,
			`^(what (is|are|was|were)|who (is|was)|define|explain)\b`,
			`^why (is|are|do|does|did|was|were)\b`,
			`\b(history of|origin of|meaning of|concept of|theory of)\b`,
		),
		mustFamily(famCreative,
			`^(write|compose|draft|create|make up|invent|imagine|brainstorm|generate)\b`,
			`\b(poem|story|song|lyrics|essay|haiku|slogan|tagline|joke)\b`,
		),
		mustFamily(famComparison,
			`\b(vs\.?|versus|compare|comparison|difference between|better than|pros and cons)\b`,
			`\bwhich (is|one is) (better|best|faster|cheaper)\b`,
		),
		mustFamily(famUrgency,
			`\b(urgent|urgently|immediately|asap|right away|as soon as possible)\b`,
		),
		mustFamily(famTechnical,
			`\b(api|sdk|cli|code|function|method|class|error|exception|bug|stack trace|install|configure|config|deploy|compile|build|debug|refactor)\b`,
			`\b(library|framework|server|database|kubernetes|docker|regex|algorithm)\b`,
		),
		mustFamily(famFirstPerson,
			`\b(i|i'm|i've|me|my|mine|we|our|us)\b`,
		),
		mustFamily(famPreference,
			`\b(prefer|preference|favorite|favourite|like (best|most)|my (style|taste|usual)|always use|usually)\b`,
			`\b(recommend|suggest) (something |anything )?for me\b`,
		),
		mustFamily(famPersonal,
			`\b(for me|help me|should i|my (life|work|day|routine|schedule|situation|goals?|plans?))\b`,
			`\b(remind me|based on (what|my))\b`,
		),
	}
}

// recentYearRe is matched against the raw query: a year at or near the
// present means "conceptual" queries still need fresh information.
var recentYearRe = regexp.MustCompile(`\b20(2[3-9]|3[0-9])\b`)

// Specificity signals, matched against the raw query.
var (
	quotedPhraseRe = regexp.MustCompile(`"[^"]+"|'[^']{3,}'`)
	yearTokenRe    = regexp.MustCompile(`\b(19|20)\d{2}\b`)
	acronymRe      = regexp.MustCompile(`\b[A-Z][A-Z0-9]{1,}\b`)
	dottedTokenRe  = regexp.MustCompile(`\b\w+\.\w+\b`)
)
