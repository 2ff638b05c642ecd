// Package classifier decides, for an incoming natural-language query,
// whether a web search is warranted, how aggressive it should be, and
// how much of the user's stored memory should influence the response.
//
// The classifier is a pure function over the query text. It evaluates
// the query against ordered pattern families (greeting, current
// information, research, factual data, how-to, conceptual, creative,
// comparison, urgency, technical) and applies a precedence-ordered
// rule table: the first matching rule determines the search verdict.
// Rules live in a data-driven table rather than a chain of branches so
// each rule is independently testable and reorderable.
package classifier
