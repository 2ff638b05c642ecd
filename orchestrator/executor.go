package orchestrator

import "context"

// Executor is the host-supplied web-search transport. The three
// variants trade breadth for latency; the orchestrator picks one per
// query from the classified intensity. Implementations own retries and
// backoff; the orchestrator only adds time bounds, rate limiting, and
// circuit breaking.
type Executor interface {
	// SearchMinimal fetches from two sources with no scraping beyond
	// snippets. The fast path.
	SearchMinimal(ctx context.Context, query string) (string, error)

	// SearchStandard fetches sourceCount sources and scrapes
	// scrapeCount of them.
	SearchStandard(ctx context.Context, query string, sourceCount, scrapeCount int) (string, error)

	// SearchComprehensive runs the wide parallel multi-source
	// fetch-and-scrape.
	SearchComprehensive(ctx context.Context, query string, sourceCount, scrapeCount int) (string, error)
}
