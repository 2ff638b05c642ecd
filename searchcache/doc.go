// Package searchcache stores prior web-search results with
// content-aware lifetimes and similarity-based lookup.
//
// Queries are normalized before hashing so trivial rephrasings share a
// key; a miss falls back to a similarity scan over live entries that
// weighs token overlap, tag overlap, and length. TTLs come from
// content categories (breaking news expires in minutes, how-to guides
// in an hour), with the search intensity keying the fallback. Tags
// derived from topic keyword families drive bulk invalidation.
//
// The cache is best effort by contract: no lookup error ever reaches a
// caller, and the two-tier layering (RecentWindow for exact bursty
// repeats, Cache for broader similarity) is intentional — the two
// horizons serve different latencies.
package searchcache
