// Package memory retrieves the stored facts about a user that are
// relevant enough to inject into a response, and no more.
//
// Retrieval is adaptive: the classifier's personalization level picks
// a strategy (how many memories, how strict the confidence filter,
// how much to weigh diversity and recency), raw candidates and the
// user profile are fetched concurrently from the host's store, and
// survivors are scored by a composite of confidence, similarity, type
// relevance, and recency. High-diversity strategies spread selection
// across memory types instead of taking the raw top-N.
//
// Greetings and impersonal queries (definitions, math, comparisons)
// exit early with zero memories; a greeting still fetches the user's
// single most recent communication-style preference.
package memory
