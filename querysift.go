// Package querysift is an adaptive caching and retrieval engine that
// sits in front of an expensive, rate-limited web-search provider and
// a per-user memory store. For every incoming query it decides whether
// to search at all, how aggressively, whether a prior answer can be
// reused, and which stored user facts are relevant enough to inject
// into a response.
//
// Usage:
//
//	engine, err := querysift.New(
//	    querysift.WithExecutor(myTransport),
//	    querysift.WithMemoryStore(myStore),
//	)
//	result, err := engine.Search(ctx, "latest AI news", types.SearchOptions{})
//
// The host supplies the search transport and the memory store; the
// engine owns classification, caching, circuit breaking, and
// retrieval strategy.
package querysift

import (
	"context"
	"regexp"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/querysift/querysift/circuitbreaker"
	"github.com/querysift/querysift/classifier"
	"github.com/querysift/querysift/config"
	"github.com/querysift/querysift/internal/metrics"
	"github.com/querysift/querysift/memory"
	"github.com/querysift/querysift/orchestrator"
	"github.com/querysift/querysift/rescache"
	"github.com/querysift/querysift/searchcache"
	"github.com/querysift/querysift/types"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Dependency names for the engine's circuit breakers.
const (
	DependencySearch      = "search"
	DependencyMemoryStore = "memory_store"
	DependencyEmbedding   = "embedding"
)

// Engine owns one instance of every component. There is no hidden
// global state: tests and hosts construct isolated engines.
type Engine struct {
	cfg       *config.Config
	logger    *zap.Logger
	collector *metrics.Collector
	rdb       *redis.Client

	classifier   *classifier.Classifier
	cache        *searchcache.Cache
	orchestrator *orchestrator.Orchestrator
	retriever    *memory.Retriever
	profiles     *rescache.Cache[*types.UserProfile]
	breakers     map[string]*circuitbreaker.CircuitBreaker
}

// Option configures the engine created by New.
type Option func(*options)

type options struct {
	cfg        *config.Config
	logger     *zap.Logger
	executor   orchestrator.Executor
	store      memory.Store
	rdb        *redis.Client
	registerer prometheus.Registerer
}

// WithConfig supplies a full configuration; defaults apply otherwise.
func WithConfig(cfg *config.Config) Option {
	return func(o *options) { o.cfg = cfg }
}

// WithLogger sets a custom zap logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithExecutor sets the host's search transport. Required for Search
// and ProgressiveSearch.
func WithExecutor(exec orchestrator.Executor) Option {
	return func(o *options) { o.executor = exec }
}

// WithMemoryStore sets the host's memory persistence layer. Required
// for RetrieveMemories.
func WithMemoryStore(store memory.Store) Option {
	return func(o *options) { o.store = store }
}

// WithRedis sets a pre-built Redis client for the shared cache tiers,
// overriding the redis section of the configuration.
func WithRedis(rdb *redis.Client) Option {
	return func(o *options) { o.rdb = rdb }
}

// WithMetricsRegisterer registers engine metrics on the given
// registerer instead of the default registry. Tests use this to avoid
// duplicate-registration panics.
func WithMetricsRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) { o.registerer = reg }
}

// New wires an Engine from the supplied options.
func New(opts ...Option) (*Engine, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	cfg := o.cfg
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := o.logger
	if logger == nil {
		var err error
		logger, err = cfg.Log.Build()
		if err != nil {
			return nil, err
		}
	}

	rdb := o.rdb
	if rdb == nil && cfg.Redis.Enabled {
		rdb = redis.NewClient(&redis.Options{
			Addr:         cfg.Redis.Addr,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
		})
	}

	collector := metrics.NewCollector(cfg.Metrics.Namespace, o.registerer)

	e := &Engine{
		cfg:       cfg,
		logger:    logger,
		collector: collector,
		rdb:       rdb,
		breakers:  make(map[string]*circuitbreaker.CircuitBreaker),
	}

	e.classifier = classifier.New(logger)
	e.newBreaker(DependencySearch, cfg.Breakers.Search)
	e.newBreaker(DependencyMemoryStore, cfg.Breakers.MemoryStore)
	e.newBreaker(DependencyEmbedding, cfg.Breakers.Embedding)

	var cacheOpts []searchcache.Option
	if rdb != nil {
		cacheOpts = append(cacheOpts, searchcache.WithRedis(rdb))
	}
	e.cache = searchcache.New(cfg.Cache, logger, cacheOpts...)

	profiles, err := rescache.New[*types.UserProfile](cfg.ProfileCache, rdb, logger)
	if err != nil {
		return nil, err
	}
	e.profiles = profiles

	if o.executor != nil {
		e.orchestrator = orchestrator.New(cfg.Orchestrator, e.classifier, e.cache, o.executor, logger,
			orchestrator.WithBreaker(e.breakers[DependencySearch]),
			orchestrator.WithCollector(collector),
		)
	}

	if o.store != nil {
		e.retriever = memory.New(cfg.Memory, e.classifier, o.store, logger,
			memory.WithBreaker(e.breakers[DependencyMemoryStore]),
			memory.WithProfileCache(profiles),
		)
	}

	return e, nil
}

// newBreaker creates one dependency breaker with metric and log hooks.
func (e *Engine) newBreaker(name string, cfg config.BreakerConfig) {
	bc := cfg.ToBreaker()
	bc.OnStateChange = func(from, to circuitbreaker.State) {
		e.collector.RecordBreakerTransition(name, to.String(), float64(to))
		e.logger.Info("breaker state changed",
			zap.String("dependency", name),
			zap.String("from", from.String()),
			zap.String("to", to.String()),
		)
	}
	e.breakers[name] = circuitbreaker.New(name, bc, e.logger)
}

// Classify analyzes a query without touching any cache or upstream.
func (e *Engine) Classify(query string, uc *types.UserContext) types.QueryAnalysis {
	analysis := e.classifier.Analyze(query, uc)
	e.collector.RecordClassification(string(analysis.QueryType), string(analysis.Intensity))
	return analysis
}

// Search runs the full orchestration pipeline for one query.
func (e *Engine) Search(ctx context.Context, query string, opts types.SearchOptions) (*types.SearchResult, error) {
	if e.orchestrator == nil {
		return nil, types.NewError(types.ErrNotConfigured, "no search executor configured")
	}
	return e.orchestrator.Search(ctx, query, opts)
}

// ProgressiveSearch runs the fast-then-escalate variant.
// qualityThreshold <= 0 uses the configured default.
func (e *Engine) ProgressiveSearch(ctx context.Context, query string, opts types.SearchOptions, qualityThreshold float64) (*types.SearchResult, error) {
	if e.orchestrator == nil {
		return nil, types.NewError(types.ErrNotConfigured, "no search executor configured")
	}
	return e.orchestrator.ProgressiveSearch(ctx, query, opts, qualityThreshold)
}

// SearchBatch pre-warms the cache for several queries.
func (e *Engine) SearchBatch(ctx context.Context, queries []string, opts types.SearchOptions) ([]*types.SearchResult, error) {
	if e.orchestrator == nil {
		return nil, types.NewError(types.ErrNotConfigured, "no search executor configured")
	}
	return e.orchestrator.SearchBatch(ctx, queries, opts)
}

// RetrieveMemories runs adaptive memory retrieval for one user query.
func (e *Engine) RetrieveMemories(ctx context.Context, userID, query string, uc *types.UserContext) (*types.AdaptiveMemoryResult, error) {
	if e.retriever == nil {
		return nil, types.NewError(types.ErrNotConfigured, "no memory store configured")
	}
	result, err := e.retriever.Retrieve(ctx, userID, query, uc)
	if err != nil {
		e.collector.RecordRetrieval("error", 0, 0)
		return nil, err
	}
	outcome := "retrieved"
	if result.Skipped {
		outcome = "skipped"
	}
	e.collector.RecordRetrieval(outcome, len(result.Memories), result.Duration)
	return result, nil
}

// Breaker returns the shared breaker for a dependency name, for host
// call sites that wrap their own upstream calls (embedding generation,
// LLM completions).
func (e *Engine) Breaker(name string) *circuitbreaker.CircuitBreaker {
	return e.breakers[name]
}

// InvalidateByTag drops every cached search result carrying the tag.
func (e *Engine) InvalidateByTag(tag string) int {
	return e.cache.InvalidateByTag(tag)
}

// InvalidateByPattern drops every cached search result whose query
// matches the pattern.
func (e *Engine) InvalidateByPattern(re *regexp.Regexp) int {
	return e.cache.InvalidateByPattern(re)
}

// ClearCache drops all cached search results.
func (e *Engine) ClearCache(ctx context.Context) {
	e.cache.Clear(ctx)
}

// CacheStats returns a snapshot of search-cache counters.
func (e *Engine) CacheStats() searchcache.Stats {
	return e.cache.GetStats()
}

// Start launches background cache maintenance. The maintenance stops
// when ctx is done or Stop is called.
func (e *Engine) Start(ctx context.Context) {
	e.cache.Start(ctx)
}

// Stop halts background maintenance and releases in-process cache
// resources. The engine is unusable afterward.
func (e *Engine) Stop() {
	e.cache.Stop()
	e.profiles.Close()
}
