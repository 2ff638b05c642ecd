package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/querysift/querysift/circuitbreaker"
	"github.com/querysift/querysift/classifier"
	"github.com/querysift/querysift/internal/metrics"
	"github.com/querysift/querysift/searchcache"
	"github.com/querysift/querysift/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

const tracerName = "github.com/querysift/querysift/orchestrator"

// knowledgeAnswer is returned when classification says no search is
// needed and the caller did not force one.
const knowledgeAnswer = "This query can be answered from existing knowledge; no web search was performed."

// Config tunes the orchestrator.
type Config struct {
	// CacheSimilarityThreshold is the minimum similarity score for a
	// cache hit during the pipeline's cache stage.
	CacheSimilarityThreshold float64 `yaml:"cache_similarity_threshold"`
	// QualityThreshold is the default first-pass score below which
	// progressive search escalates.
	QualityThreshold float64 `yaml:"quality_threshold"`
	// SearchTimeout bounds each upstream execution.
	SearchTimeout time.Duration `yaml:"search_timeout"`
	// RateLimit and RateBurst throttle upstream dispatch. The provider
	// is rate limited; this keeps the client inside its budget.
	RateLimit float64 `yaml:"rate_limit"`
	RateBurst int     `yaml:"rate_burst"`
	// RecentWindowSize and RecentWindowTTL shape the exact-duplicate
	// guard in front of the cache.
	RecentWindowSize int           `yaml:"recent_window_size"`
	RecentWindowTTL  time.Duration `yaml:"recent_window_ttl"`
	// BatchConcurrency bounds SearchBatch fan-out.
	BatchConcurrency int `yaml:"batch_concurrency"`
}

// DefaultConfig returns the default orchestrator configuration.
func DefaultConfig() Config {
	return Config{
		CacheSimilarityThreshold: 0.6,
		QualityThreshold:         0.7,
		SearchTimeout:            30 * time.Second,
		RateLimit:                2,
		RateBurst:                4,
		RecentWindowSize:         50,
		RecentWindowTTL:          10 * time.Minute,
		BatchConcurrency:         4,
	}
}

// Orchestrator composes the classifier, the two cache tiers, and the
// host's search transport into one decision pipeline per query.
type Orchestrator struct {
	config     Config
	classifier *classifier.Classifier
	cache      *searchcache.Cache
	recent     *searchcache.RecentWindow
	exec       Executor
	breaker    *circuitbreaker.CircuitBreaker
	limiter    *rate.Limiter
	group      singleflight.Group
	tracer     trace.Tracer
	collector  *metrics.Collector
	logger     *zap.Logger
}

// Option configures optional orchestrator collaborators.
type Option func(*Orchestrator)

// WithBreaker guards upstream executions with the given breaker.
func WithBreaker(b *circuitbreaker.CircuitBreaker) Option {
	return func(o *Orchestrator) { o.breaker = b }
}

// WithCollector attaches the metrics collector.
func WithCollector(c *metrics.Collector) Option {
	return func(o *Orchestrator) { o.collector = c }
}

// New creates an Orchestrator. cls and cache are required; exec is the
// host's transport.
func New(config Config, cls *classifier.Classifier, cache *searchcache.Cache, exec Executor, logger *zap.Logger, opts ...Option) *Orchestrator {
	def := DefaultConfig()
	if config.CacheSimilarityThreshold <= 0 {
		config.CacheSimilarityThreshold = def.CacheSimilarityThreshold
	}
	if config.QualityThreshold <= 0 {
		config.QualityThreshold = def.QualityThreshold
	}
	if config.SearchTimeout <= 0 {
		config.SearchTimeout = def.SearchTimeout
	}
	if config.RateLimit <= 0 {
		config.RateLimit = def.RateLimit
	}
	if config.RateBurst <= 0 {
		config.RateBurst = def.RateBurst
	}
	if config.RecentWindowSize <= 0 {
		config.RecentWindowSize = def.RecentWindowSize
	}
	if config.RecentWindowTTL <= 0 {
		config.RecentWindowTTL = def.RecentWindowTTL
	}
	if config.BatchConcurrency <= 0 {
		config.BatchConcurrency = def.BatchConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cls == nil {
		cls = classifier.New(logger)
	}

	o := &Orchestrator{
		config:     config,
		classifier: cls,
		cache:      cache,
		recent:     searchcache.NewRecentWindow(config.RecentWindowSize, config.RecentWindowTTL),
		exec:       exec,
		limiter:    rate.NewLimiter(rate.Limit(config.RateLimit), config.RateBurst),
		tracer:     otel.Tracer(tracerName),
		logger:     logger.With(zap.String("component", "orchestrator")),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Search runs the full pipeline for one query: recent-duplicate check,
// classification, cache lookup, execution, write-through. Each stage
// short-circuits on success.
func (o *Orchestrator) Search(ctx context.Context, query string, opts types.SearchOptions) (*types.SearchResult, error) {
	start := time.Now()
	requestID := uuid.NewString()

	ctx, span := o.tracer.Start(ctx, "orchestrator.Search",
		trace.WithAttributes(attribute.String("request_id", requestID)))
	defer span.End()

	// Stage 1: exact duplicates within the conversation window.
	if !opts.ForceFresh {
		if content, ok := o.recent.Lookup(query); ok {
			o.collector.RecordCacheHit("recent")
			o.collector.RecordSearch(string(types.StrategyRecentDuplicate), "hit")
			span.SetAttributes(attribute.String("strategy", string(types.StrategyRecentDuplicate)))
			return o.result(requestID, query, content, types.StrategyRecentDuplicate, types.IntensityNone, 0, 0, true, start), nil
		}
		o.collector.RecordCacheMiss("recent")
	}

	// Stage 2: classification.
	analysis := o.classifier.Analyze(query, nil)
	o.collector.RecordClassification(string(analysis.QueryType), string(analysis.Intensity))
	span.SetAttributes(
		attribute.String("query_type", string(analysis.QueryType)),
		attribute.String("intensity", string(analysis.Intensity)),
	)

	// Stage 3: full cache.
	if !opts.ForceFresh {
		threshold := opts.SimilarityThreshold
		if threshold <= 0 {
			threshold = o.config.CacheSimilarityThreshold
		}
		if entry, err := o.cache.Get(ctx, query, threshold, opts.MaxCacheAge); err == nil {
			o.collector.RecordCacheHit("search")
			o.collector.RecordSearch(string(types.StrategyCacheHit), "hit")
			return o.result(requestID, query, entry.Result, types.StrategyCacheHit, entry.Intensity, entry.Sources, entry.ScrapedSites, true, start), nil
		}
		o.collector.RecordCacheMiss("search")
	}

	// Stage 4: execution, or a synthesized answer when no search is
	// warranted.
	if !analysis.SearchNeeded && !opts.ForceSearch {
		o.collector.RecordSearch(string(types.StrategyKnowledge), "ok")
		return o.result(requestID, query, knowledgeAnswer, types.StrategyKnowledge, types.IntensityNone, 0, 0, false, start), nil
	}

	intensity := analysis.Intensity
	if intensity == types.IntensityNone {
		// Forced search with no classified intensity.
		intensity = types.IntensityLight
	}

	content, strategy, err := o.execute(ctx, query, intensity, analysis)
	if err != nil {
		o.collector.RecordSearch(string(strategy), "error")
		return nil, err
	}

	// Stage 5: write-through to both tiers.
	o.recent.Add(query, content)
	o.cache.Set(ctx, query, content, intensity, analysis.RecommendedSources, analysis.RecommendedScrapes)

	o.collector.RecordSearch(string(strategy), "ok")
	return o.result(requestID, query, content, strategy, intensity, analysis.RecommendedSources, analysis.RecommendedScrapes, false, start), nil
}

// execute dispatches to one of the three transport modes. Identical
// concurrent queries share a single upstream call.
func (o *Orchestrator) execute(ctx context.Context, query string, intensity types.SearchIntensity, analysis types.QueryAnalysis) (string, types.SearchStrategy, error) {
	var strategy types.SearchStrategy
	var mode func(ctx context.Context) (string, error)

	switch {
	case intensity == types.IntensityComprehensive || intensity == types.IntensityDeep:
		strategy = types.StrategyComprehensive
		mode = func(ctx context.Context) (string, error) {
			return o.exec.SearchComprehensive(ctx, query, analysis.RecommendedSources, analysis.RecommendedScrapes)
		}
	case intensity == types.IntensityLight || analysis.RecommendedSources <= 2:
		strategy = types.StrategyMinimal
		mode = func(ctx context.Context) (string, error) {
			return o.exec.SearchMinimal(ctx, query)
		}
	default:
		strategy = types.StrategyStandard
		mode = func(ctx context.Context) (string, error) {
			return o.exec.SearchStandard(ctx, query, analysis.RecommendedSources, analysis.RecommendedScrapes)
		}
	}

	content, err := o.dispatch(ctx, query, string(strategy), mode)
	return content, strategy, err
}

// dispatch applies singleflight, the rate limiter, the circuit
// breaker, and the search timeout around one upstream call.
func (o *Orchestrator) dispatch(ctx context.Context, query, mode string, fn func(ctx context.Context) (string, error)) (string, error) {
	key := mode + ":" + query

	v, err, shared := o.group.Do(key, func() (any, error) {
		if err := o.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}

		execStart := time.Now()
		var content string
		var err error
		if o.breaker != nil {
			content, err = circuitbreaker.ExecuteTyped(o.breaker, ctx, func(ctx context.Context) (string, error) {
				return fn(ctx)
			}, nil)
		} else {
			callCtx, cancel := context.WithTimeout(ctx, o.config.SearchTimeout)
			defer cancel()
			content, err = fn(callCtx)
		}
		o.collector.ObserveSearchDuration(mode, time.Since(execStart))
		if err != nil {
			return nil, err
		}
		return content, nil
	})
	if err != nil {
		var typed *types.Error
		if errors.As(err, &typed) {
			return "", err
		}
		return "", types.NewError(types.ErrSearchFailed, "search execution failed").WithCause(err).WithRetryable(true)
	}
	if shared {
		o.logger.Debug("coalesced duplicate in-flight search", zap.String("mode", mode))
	}
	return v.(string), nil
}

// ProgressiveSearch runs a forced fast pass first and escalates once
// to a comprehensive search when the first pass scores below the
// quality threshold. qualityThreshold <= 0 uses the configured
// default. The fast result is kept when escalation fails: a degraded
// answer beats no answer.
func (o *Orchestrator) ProgressiveSearch(ctx context.Context, query string, opts types.SearchOptions, qualityThreshold float64) (*types.SearchResult, error) {
	start := time.Now()
	requestID := uuid.NewString()
	if qualityThreshold <= 0 {
		qualityThreshold = o.config.QualityThreshold
	}

	ctx, span := o.tracer.Start(ctx, "orchestrator.ProgressiveSearch",
		trace.WithAttributes(attribute.String("request_id", requestID)))
	defer span.End()

	// Recent duplicates and cache still apply to the progressive path.
	if !opts.ForceFresh {
		if content, ok := o.recent.Lookup(query); ok {
			o.collector.RecordCacheHit("recent")
			return o.result(requestID, query, content, types.StrategyRecentDuplicate, types.IntensityNone, 0, 0, true, start), nil
		}
		if entry, err := o.cache.Get(ctx, query, o.config.CacheSimilarityThreshold, opts.MaxCacheAge); err == nil {
			o.collector.RecordCacheHit("search")
			return o.result(requestID, query, entry.Result, types.StrategyCacheHit, entry.Intensity, entry.Sources, entry.ScrapedSites, true, start), nil
		}
	}

	fast, err := o.dispatch(ctx, query, "minimal", func(ctx context.Context) (string, error) {
		return o.exec.SearchMinimal(ctx, query)
	})
	if err != nil {
		o.collector.RecordSearch(string(types.StrategyProgressive), "error")
		return nil, err
	}

	score := scoreQuality(fast)
	span.SetAttributes(attribute.Float64("quality_score", score))

	if score >= qualityThreshold {
		o.collector.ObserveQuality(score)
		o.recent.Add(query, fast)
		o.cache.Set(ctx, query, fast, types.IntensityLight, 2, 1)
		o.collector.RecordSearch(string(types.StrategyProgressive), "ok")

		res := o.result(requestID, query, fast, types.StrategyProgressive, types.IntensityLight, 2, 1, false, start)
		res.QualityScore = score
		return res, nil
	}

	o.collector.RecordEscalation(score)
	o.logger.Info("escalating low-quality fast pass",
		zap.Float64("score", score),
		zap.Float64("threshold", qualityThreshold),
	)

	plan := o.classifier.Analyze(query, nil)
	sources, scrapes := plan.RecommendedSources, plan.RecommendedScrapes
	if sources < 6 {
		sources, scrapes = 8, 4
	}
	full, err := o.dispatch(ctx, query, "comprehensive", func(ctx context.Context) (string, error) {
		return o.exec.SearchComprehensive(ctx, query, sources, scrapes)
	})
	if err != nil {
		// Escalation failed; the fast pass is still a usable answer.
		o.logger.Warn("escalation failed, returning fast-pass result", zap.Error(err))
		o.collector.RecordSearch(string(types.StrategyEscalated), "degraded")
		res := o.result(requestID, query, fast, types.StrategyProgressive, types.IntensityLight, 2, 1, false, start)
		res.QualityScore = score
		return res, nil
	}

	o.recent.Add(query, full)
	o.cache.Set(ctx, query, full, types.IntensityComprehensive, sources, scrapes)
	o.collector.RecordSearch(string(types.StrategyEscalated), "ok")

	res := o.result(requestID, query, full, types.StrategyEscalated, types.IntensityComprehensive, sources, scrapes, false, start)
	res.QualityScore = score
	res.Escalated = true
	return res, nil
}

// SearchBatch runs Search for several queries with bounded
// concurrency. Used for pre-warming; individual failures surface as
// nil slots plus the first error.
func (o *Orchestrator) SearchBatch(ctx context.Context, queries []string, opts types.SearchOptions) ([]*types.SearchResult, error) {
	results := make([]*types.SearchResult, len(queries))

	// Plain errgroup, not WithContext: one bad query must not cancel
	// its siblings mid-warm.
	var g errgroup.Group
	g.SetLimit(o.config.BatchConcurrency)

	for i, q := range queries {
		g.Go(func() error {
			res, err := o.Search(ctx, q, opts)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}

	err := g.Wait()
	return results, err
}

// Start launches cache maintenance owned by this orchestrator's
// lifecycle.
func (o *Orchestrator) Start(ctx context.Context) { o.cache.Start(ctx) }

// Stop halts background maintenance.
func (o *Orchestrator) Stop() { o.cache.Stop() }

func (o *Orchestrator) result(requestID, query, content string, strategy types.SearchStrategy, intensity types.SearchIntensity, sources, scraped int, fromCache bool, start time.Time) *types.SearchResult {
	return &types.SearchResult{
		RequestID:    requestID,
		Query:        query,
		Content:      content,
		FromCache:    fromCache,
		Strategy:     strategy,
		Intensity:    intensity,
		Sources:      sources,
		ScrapedSites: scraped,
		Duration:     time.Since(start),
		Timestamp:    time.Now(),
	}
}
