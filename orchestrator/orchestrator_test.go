package orchestrator

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/querysift/querysift/searchcache"
	"github.com/querysift/querysift/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeExecutor counts calls per mode and returns canned content.
type fakeExecutor struct {
	minimalContent       string
	standardContent      string
	comprehensiveContent string

	minimalErr       error
	comprehensiveErr error

	minimalCalls       atomic.Int32
	standardCalls      atomic.Int32
	comprehensiveCalls atomic.Int32
}

func (e *fakeExecutor) SearchMinimal(ctx context.Context, query string) (string, error) {
	e.minimalCalls.Add(1)
	return e.minimalContent, e.minimalErr
}

func (e *fakeExecutor) SearchStandard(ctx context.Context, query string, sources, scrapes int) (string, error) {
	e.standardCalls.Add(1)
	return e.standardContent, nil
}

func (e *fakeExecutor) SearchComprehensive(ctx context.Context, query string, sources, scrapes int) (string, error) {
	e.comprehensiveCalls.Add(1)
	return e.comprehensiveContent, e.comprehensiveErr
}

func newTestOrchestrator(exec Executor) *Orchestrator {
	cacheCfg := searchcache.DefaultConfig()
	cacheCfg.SweepInterval = 0
	cache := searchcache.New(cacheCfg, zap.NewNop())

	cfg := DefaultConfig()
	cfg.RateLimit = 1000 // tests should not wait on the limiter
	cfg.RateBurst = 1000
	return New(cfg, nil, cache, exec, zap.NewNop())
}

// Long enough to score above the default quality threshold.
func richAnswer() string {
	var b strings.Builder
	b.WriteString("Summary of findings.\n")
	for i := 1; i <= 5; i++ {
		b.WriteString("1. A detailed section with enough substance to count. ")
		b.WriteString(strings.Repeat("More supporting detail here. ", 8))
		b.WriteString("\n")
	}
	return b.String()
}

// ---------------------------------------------------------------------------
// Pipeline stages
// ---------------------------------------------------------------------------

func TestSearch_KnowledgeAnswerSkipsUpstream(t *testing.T) {
	exec := &fakeExecutor{}
	o := newTestOrchestrator(exec)

	res, err := o.Search(context.Background(), "write a haiku about autumn", types.SearchOptions{})
	require.NoError(t, err)

	assert.Equal(t, types.StrategyKnowledge, res.Strategy)
	assert.Equal(t, knowledgeAnswer, res.Content)
	assert.False(t, res.FromCache)
	assert.Zero(t, exec.minimalCalls.Load()+exec.standardCalls.Load()+exec.comprehensiveCalls.Load())
}

func TestSearch_StandardModeForModerateIntensity(t *testing.T) {
	exec := &fakeExecutor{standardContent: "standard answer"}
	o := newTestOrchestrator(exec)

	res, err := o.Search(context.Background(), "latest AI news", types.SearchOptions{})
	require.NoError(t, err)

	assert.Equal(t, types.StrategyStandard, res.Strategy)
	assert.Equal(t, "standard answer", res.Content)
	assert.Equal(t, types.IntensityModerate, res.Intensity)
	assert.Equal(t, 4, res.Sources)
	assert.Equal(t, int32(1), exec.standardCalls.Load())
	assert.NotEmpty(t, res.RequestID)
}

func TestSearch_ComprehensiveModeForDeepIntensity(t *testing.T) {
	exec := &fakeExecutor{comprehensiveContent: "deep answer"}
	o := newTestOrchestrator(exec)

	res, err := o.Search(context.Background(), "comprehensive research survey of battery chemistry trends and tradeoffs", types.SearchOptions{})
	require.NoError(t, err)

	assert.Equal(t, types.StrategyComprehensive, res.Strategy)
	assert.Equal(t, int32(1), exec.comprehensiveCalls.Load())
	assert.Equal(t, int32(0), exec.standardCalls.Load())
}

func TestSearch_ForceSearchOverridesClassifier(t *testing.T) {
	exec := &fakeExecutor{minimalContent: "forced answer"}
	o := newTestOrchestrator(exec)

	// A creative query normally gets the knowledge answer.
	res, err := o.Search(context.Background(), "write a haiku about autumn", types.SearchOptions{ForceSearch: true})
	require.NoError(t, err)

	assert.Equal(t, types.StrategyMinimal, res.Strategy)
	assert.Equal(t, "forced answer", res.Content)
	assert.Equal(t, types.IntensityLight, res.Intensity)
	assert.Equal(t, int32(1), exec.minimalCalls.Load())
}

// ---------------------------------------------------------------------------
// Duplicate window and cache reuse
// ---------------------------------------------------------------------------

func TestSearch_SecondIdenticalQueryHitsRecentWindow(t *testing.T) {
	exec := &fakeExecutor{standardContent: "fresh answer"}
	o := newTestOrchestrator(exec)
	ctx := context.Background()

	first, err := o.Search(ctx, "latest AI news", types.SearchOptions{})
	require.NoError(t, err)
	assert.False(t, first.FromCache)

	second, err := o.Search(ctx, "Latest AI News!", types.SearchOptions{})
	require.NoError(t, err)

	assert.True(t, second.FromCache)
	assert.Equal(t, types.StrategyRecentDuplicate, second.Strategy)
	assert.Equal(t, "fresh answer", second.Content)
	assert.Equal(t, int32(1), exec.standardCalls.Load(), "no second upstream call")
}

func TestSearch_SimilarQueryHitsCache(t *testing.T) {
	exec := &fakeExecutor{standardContent: "shared answer"}
	o := newTestOrchestrator(exec)
	ctx := context.Background()

	_, err := o.Search(ctx, "latest AI news", types.SearchOptions{})
	require.NoError(t, err)

	// Rephrased, so the exact recent window misses but similarity hits.
	res, err := o.Search(ctx, "recent AI news", types.SearchOptions{})
	require.NoError(t, err)

	assert.True(t, res.FromCache)
	assert.Equal(t, types.StrategyCacheHit, res.Strategy)
	assert.Equal(t, "shared answer", res.Content)
	assert.Equal(t, int32(1), exec.standardCalls.Load())
}

func TestSearch_ForceFreshBypassesBothTiers(t *testing.T) {
	exec := &fakeExecutor{standardContent: "answer"}
	o := newTestOrchestrator(exec)
	ctx := context.Background()

	_, err := o.Search(ctx, "latest AI news", types.SearchOptions{})
	require.NoError(t, err)

	res, err := o.Search(ctx, "latest AI news", types.SearchOptions{ForceFresh: true})
	require.NoError(t, err)

	assert.False(t, res.FromCache)
	assert.Equal(t, int32(2), exec.standardCalls.Load())
}

// ---------------------------------------------------------------------------
// Failure shaping
// ---------------------------------------------------------------------------

func TestSearch_UpstreamFailureIsTyped(t *testing.T) {
	exec := &fakeExecutor{minimalErr: errors.New("dns failure")}
	o := newTestOrchestrator(exec)

	_, err := o.Search(context.Background(), "write a haiku about autumn", types.SearchOptions{ForceSearch: true})
	require.Error(t, err)

	var typed *types.Error
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, types.ErrSearchFailed, typed.Code)
	assert.True(t, typed.Retryable)
}

// ---------------------------------------------------------------------------
// Progressive search
// ---------------------------------------------------------------------------

func TestProgressiveSearch_GoodFastPassStops(t *testing.T) {
	exec := &fakeExecutor{minimalContent: richAnswer()}
	o := newTestOrchestrator(exec)

	res, err := o.ProgressiveSearch(context.Background(), "overview of the nordic power market", types.SearchOptions{}, 0)
	require.NoError(t, err)

	assert.Equal(t, types.StrategyProgressive, res.Strategy)
	assert.False(t, res.Escalated)
	assert.GreaterOrEqual(t, res.QualityScore, o.config.QualityThreshold)
	assert.Equal(t, int32(1), exec.minimalCalls.Load())
	assert.Equal(t, int32(0), exec.comprehensiveCalls.Load())
}

func TestProgressiveSearch_EscalatesOnLowQuality(t *testing.T) {
	exec := &fakeExecutor{
		minimalContent:       "no results found",
		comprehensiveContent: richAnswer(),
	}
	o := newTestOrchestrator(exec)

	res, err := o.ProgressiveSearch(context.Background(), "overview of the nordic power market", types.SearchOptions{}, 0)
	require.NoError(t, err)

	assert.True(t, res.Escalated)
	assert.Equal(t, types.StrategyEscalated, res.Strategy)
	assert.Equal(t, richAnswer(), res.Content)
	assert.Equal(t, types.IntensityComprehensive, res.Intensity)
	assert.GreaterOrEqual(t, res.Sources, 6, "escalation widens the source plan")
	assert.Equal(t, int32(1), exec.minimalCalls.Load())
	assert.Equal(t, int32(1), exec.comprehensiveCalls.Load())
}

func TestProgressiveSearch_FailedEscalationKeepsFastResult(t *testing.T) {
	exec := &fakeExecutor{
		minimalContent:   "no results found",
		comprehensiveErr: errors.New("provider 503"),
	}
	o := newTestOrchestrator(exec)

	res, err := o.ProgressiveSearch(context.Background(), "overview of the nordic power market", types.SearchOptions{}, 0)
	require.NoError(t, err, "a degraded answer beats no answer")

	assert.False(t, res.Escalated)
	assert.Equal(t, types.StrategyProgressive, res.Strategy)
	assert.Equal(t, "no results found", res.Content)
}

func TestProgressiveSearch_ReusesRecentWindow(t *testing.T) {
	exec := &fakeExecutor{minimalContent: richAnswer()}
	o := newTestOrchestrator(exec)
	ctx := context.Background()

	_, err := o.ProgressiveSearch(ctx, "overview of the nordic power market", types.SearchOptions{}, 0)
	require.NoError(t, err)

	res, err := o.ProgressiveSearch(ctx, "overview of the nordic power market", types.SearchOptions{}, 0)
	require.NoError(t, err)

	assert.True(t, res.FromCache)
	assert.Equal(t, int32(1), exec.minimalCalls.Load())
}

// ---------------------------------------------------------------------------
// Batch
// ---------------------------------------------------------------------------

// selectiveExecutor fails one query and answers the rest.
type selectiveExecutor struct {
	failQuery string
	calls     atomic.Int32
}

func (e *selectiveExecutor) answer(query string) (string, error) {
	e.calls.Add(1)
	if query == e.failQuery {
		return "", errors.New("provider 500")
	}
	return "answer for " + query, nil
}

func (e *selectiveExecutor) SearchMinimal(ctx context.Context, query string) (string, error) {
	return e.answer(query)
}

func (e *selectiveExecutor) SearchStandard(ctx context.Context, query string, sources, scrapes int) (string, error) {
	return e.answer(query)
}

func (e *selectiveExecutor) SearchComprehensive(ctx context.Context, query string, sources, scrapes int) (string, error) {
	return e.answer(query)
}

func TestSearchBatch(t *testing.T) {
	exec := &fakeExecutor{standardContent: "answer"}
	o := newTestOrchestrator(exec)

	queries := []string{"latest AI news", "current bitcoin price", "write a haiku about autumn"}
	results, err := o.SearchBatch(context.Background(), queries, types.SearchOptions{})
	require.NoError(t, err)
	require.Len(t, results, 3)

	for i, res := range results {
		require.NotNil(t, res, "slot %d", i)
		assert.Equal(t, queries[i], res.Query)
	}
	assert.Equal(t, types.StrategyKnowledge, results[2].Strategy)
}

func TestSearchBatch_FailureLeavesSiblingsIntact(t *testing.T) {
	exec := &selectiveExecutor{failQuery: "current bitcoin price"}
	o := newTestOrchestrator(exec)

	queries := []string{"latest AI news", "current bitcoin price", "weather forecast berlin"}
	results, err := o.SearchBatch(context.Background(), queries, types.SearchOptions{})
	require.Error(t, err, "the first failure still surfaces")
	require.Len(t, results, 3)

	// The failed slot is nil; the healthy queries complete anyway.
	assert.Nil(t, results[1])
	require.NotNil(t, results[0])
	require.NotNil(t, results[2])
	assert.Equal(t, "answer for latest AI news", results[0].Content)
	assert.Equal(t, "answer for weather forecast berlin", results[2].Content)
	assert.Equal(t, int32(3), exec.calls.Load(), "every query reaches the upstream")
}

// ---------------------------------------------------------------------------
// Quality scoring
// ---------------------------------------------------------------------------

func TestScoreQuality(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantMin float64
		wantMax float64
	}{
		{"empty", "", 0, 0.31},
		{"short stub", "brief", 0, 0.31},
		{"rich sectioned answer", richAnswer(), 0.7, 1},
		{"stale marker", "As of my last knowledge update I cannot help with this question at all, sorry about that today.", 0, 0.31},
		{"error marker", "no results found", 0, 0.31},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score := scoreQuality(tt.content)
			assert.GreaterOrEqual(t, score, tt.wantMin)
			assert.LessOrEqual(t, score, tt.wantMax)
		})
	}
}

func TestScoreQuality_AlwaysInRange(t *testing.T) {
	inputs := []string{
		"",
		strings.Repeat("x", 5000),
		"1. one\n2. two\n3. three\n4. four\n5. five\n6. six\n" + strings.Repeat("body ", 400),
		"failed to fetch; as of my last knowledge",
	}
	for _, in := range inputs {
		score := scoreQuality(in)
		assert.GreaterOrEqual(t, score, 0.0)
		assert.LessOrEqual(t, score, 1.0)
	}
}

// ---------------------------------------------------------------------------
// Lifecycle
// ---------------------------------------------------------------------------

func TestStartStop(t *testing.T) {
	o := newTestOrchestrator(&fakeExecutor{})
	ctx, cancel := context.WithCancel(context.Background())
	o.Start(ctx)
	cancel()
	o.Stop()
	// No goroutine leaks or panics; nothing further to assert.
	time.Sleep(10 * time.Millisecond)
}
