// Package orchestrator turns a query into a search decision: answer
// from the recent-duplicate window, the search cache, existing model
// knowledge, or one of three upstream execution modes picked from the
// classified intensity.
//
// The progressive variant bounds cost the other way around: a forced
// fast pass first, escalating once to a comprehensive search only when
// the fast result's heuristic quality score falls short.
//
// The orchestrator performs no retries; retry and backoff belong to
// the host's transport. It adds the protections a shared upstream
// needs: a client-side rate limiter, a circuit breaker, per-call
// deadlines, and singleflight coalescing of identical in-flight
// queries.
package orchestrator
