package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/querysift/querysift/circuitbreaker"
	"github.com/querysift/querysift/classifier"
	"github.com/querysift/querysift/rescache"
	"github.com/querysift/querysift/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Config tunes the retriever.
type Config struct {
	// FetchTimeout bounds each external store call.
	FetchTimeout time.Duration `yaml:"fetch_timeout"`
	// CandidateMultiplier over-fetches raw candidates so filtering and
	// diversity selection have material to work with.
	CandidateMultiplier int `yaml:"candidate_multiplier"`
	// ProfileCacheTTL is how long profile snapshots stay cached.
	ProfileCacheTTL time.Duration `yaml:"profile_cache_ttl"`

	Weights ScoringWeights `yaml:"scoring_weights"`
}

// DefaultConfig returns the default retriever configuration.
func DefaultConfig() Config {
	return Config{
		FetchTimeout:        10 * time.Second,
		CandidateMultiplier: 2,
		ProfileCacheTTL:     5 * time.Minute,
		Weights:             DefaultScoringWeights(),
	}
}

// Retriever selects, scores, and filters a user's stored memories for
// one query. Classification gates how much retrieval happens at all.
type Retriever struct {
	config     Config
	classifier *classifier.Classifier
	store      Store
	breaker    *circuitbreaker.CircuitBreaker
	profiles   *rescache.Cache[*types.UserProfile]
	logger     *zap.Logger
}

// Option configures optional retriever collaborators.
type Option func(*Retriever)

// WithBreaker guards store calls with the given breaker. The breaker
// should be the shared instance for the memory-store dependency.
func WithBreaker(b *circuitbreaker.CircuitBreaker) Option {
	return func(r *Retriever) { r.breaker = b }
}

// WithProfileCache caches profile snapshots between requests.
func WithProfileCache(c *rescache.Cache[*types.UserProfile]) Option {
	return func(r *Retriever) { r.profiles = c }
}

// New creates a Retriever over the given store.
func New(config Config, cls *classifier.Classifier, store Store, logger *zap.Logger, opts ...Option) *Retriever {
	def := DefaultConfig()
	if config.FetchTimeout <= 0 {
		config.FetchTimeout = def.FetchTimeout
	}
	if config.CandidateMultiplier <= 0 {
		config.CandidateMultiplier = def.CandidateMultiplier
	}
	if config.ProfileCacheTTL <= 0 {
		config.ProfileCacheTTL = def.ProfileCacheTTL
	}
	if config.Weights == (ScoringWeights{}) {
		config.Weights = DefaultScoringWeights()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cls == nil {
		cls = classifier.New(logger)
	}

	r := &Retriever{
		config:     config,
		classifier: cls,
		store:      store,
		logger:     logger.With(zap.String("component", "memory_retriever")),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Retrieve runs the adaptive pipeline: fast exits, strategy selection,
// concurrent candidate and profile fetch, confidence filtering,
// relevance scoring, and diversity-constrained selection.
func (r *Retriever) Retrieve(ctx context.Context, userID, query string, uc *types.UserContext) (*types.AdaptiveMemoryResult, error) {
	start := time.Now()
	analysis := r.classifier.Analyze(query, uc)

	// Greetings skip retrieval but still surface the user's
	// communication-style preference; it is a single cheap lookup.
	if analysis.QueryType == types.QueryGreeting {
		return r.greetingResult(ctx, userID, start)
	}

	if analysis.Personalization == types.PersonalizationNone {
		return skippedResult("personalization_none", start), nil
	}
	if reason, skip := shouldSkip(query); skip {
		r.logger.Debug("retrieval skipped", zap.String("reason", reason))
		return skippedResult(reason, start), nil
	}

	strategy := determineStrategy(analysis, query)
	if strategy.MaxMemories == 0 {
		return skippedResult("zero_memory_strategy", start), nil
	}

	candidates, profile, err := r.fetch(ctx, userID, query, strategy.MaxMemories*r.config.CandidateMultiplier)
	if err != nil {
		return nil, types.NewError(types.ErrMemoryStore, "memory retrieval failed").WithCause(err).WithRetryable(true)
	}

	scored := scoreMemories(candidates, query, strategy, r.config.Weights)
	selected := selectMemories(scored, strategy)

	r.logger.Debug("memories retrieved",
		zap.Int("candidates", len(candidates)),
		zap.Int("after_filter", len(scored)),
		zap.Int("selected", len(selected)),
		zap.String("strategy", strategy.Reasoning),
	)

	return &types.AdaptiveMemoryResult{
		Memories:       selected,
		Profile:        profile,
		Strategy:       strategy,
		CandidateCount: len(candidates),
		Duration:       time.Since(start),
	}, nil
}

// fetch issues the candidate and profile lookups concurrently. The
// candidate fetch is load-bearing and its failure propagates; the
// profile is best effort.
func (r *Retriever) fetch(ctx context.Context, userID, query string, limit int) ([]types.Memory, *types.UserProfile, error) {
	var candidates []types.Memory
	var profile *types.UserProfile

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		fctx, cancel := context.WithTimeout(gctx, r.config.FetchTimeout)
		defer cancel()

		var err error
		if r.breaker != nil {
			candidates, err = circuitbreaker.ExecuteTyped(r.breaker, fctx, func(ctx context.Context) ([]types.Memory, error) {
				return r.store.FetchCandidates(ctx, userID, query, limit)
			}, nil)
		} else {
			candidates, err = r.store.FetchCandidates(fctx, userID, query, limit)
		}
		if err != nil {
			return fmt.Errorf("fetch candidates: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		fctx, cancel := context.WithTimeout(gctx, r.config.FetchTimeout)
		defer cancel()
		profile = r.profileSnapshot(fctx, userID)
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return candidates, profile, nil
}

// profileSnapshot returns the cached profile, fetching and caching on
// miss. Profile failures degrade to nil; they never fail the request.
func (r *Retriever) profileSnapshot(ctx context.Context, userID string) *types.UserProfile {
	if r.profiles != nil {
		if p, ok := r.profiles.Get(ctx, userID); ok {
			return p
		}
	}

	p, err := r.store.FetchProfile(ctx, userID)
	if err != nil {
		r.logger.Warn("profile fetch failed", zap.Error(err))
		return nil
	}
	if p != nil && r.profiles != nil {
		cost := int64(len(p.UserID) + len(p.DisplayName) + len(p.Tone) + 64*len(p.Preferences))
		r.profiles.Set(ctx, userID, p, cost, r.config.ProfileCacheTTL)
	}
	return p
}

func (r *Retriever) greetingResult(ctx context.Context, userID string, start time.Time) (*types.AdaptiveMemoryResult, error) {
	result := skippedResult("greeting", start)

	fctx, cancel := context.WithTimeout(ctx, r.config.FetchTimeout)
	defer cancel()

	style, err := r.store.FetchStylePreference(fctx, userID)
	if err != nil {
		r.logger.Warn("style preference fetch failed", zap.Error(err))
		return result, nil
	}
	if style != nil {
		result.Memories = []types.ScoredMemory{{Memory: *style, RelevanceScore: style.Confidence}}
	}
	result.Duration = time.Since(start)
	return result, nil
}

func skippedResult(reason string, start time.Time) *types.AdaptiveMemoryResult {
	return &types.AdaptiveMemoryResult{
		Memories:   []types.ScoredMemory{},
		Skipped:    true,
		SkipReason: reason,
		Duration:   time.Since(start),
	}
}
