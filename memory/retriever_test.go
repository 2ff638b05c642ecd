package memory

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/querysift/querysift/rescache"
	"github.com/querysift/querysift/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeStore is an in-memory Store with per-call counters and
// injectable failures.
type fakeStore struct {
	candidates []types.Memory
	profile    *types.UserProfile
	style      *types.Memory

	candidatesErr error
	profileErr    error

	candidateCalls atomic.Int32
	profileCalls   atomic.Int32
	styleCalls     atomic.Int32

	lastLimit int
}

func (s *fakeStore) FetchCandidates(ctx context.Context, userID, query string, limit int) ([]types.Memory, error) {
	s.candidateCalls.Add(1)
	s.lastLimit = limit
	if s.candidatesErr != nil {
		return nil, s.candidatesErr
	}
	return s.candidates, nil
}

func (s *fakeStore) FetchProfile(ctx context.Context, userID string) (*types.UserProfile, error) {
	s.profileCalls.Add(1)
	if s.profileErr != nil {
		return nil, s.profileErr
	}
	return s.profile, nil
}

func (s *fakeStore) FetchStylePreference(ctx context.Context, userID string) (*types.Memory, error) {
	s.styleCalls.Add(1)
	return s.style, nil
}

func newTestRetriever(store Store, opts ...Option) *Retriever {
	return New(Config{}, nil, store, zap.NewNop(), opts...)
}

// ---------------------------------------------------------------------------
// Fast exits
// ---------------------------------------------------------------------------

func TestRetrieve_GreetingReturnsStylePreference(t *testing.T) {
	style := types.Memory{Type: "preference", Key: "communication_style", Value: "concise", Confidence: 0.9}
	store := &fakeStore{style: &style}
	r := newTestRetriever(store)

	result, err := r.Retrieve(context.Background(), "u1", "good morning", nil)
	require.NoError(t, err)

	assert.True(t, result.Skipped)
	assert.Equal(t, "greeting", result.SkipReason)
	require.Len(t, result.Memories, 1)
	assert.Equal(t, "communication_style", result.Memories[0].Key)
	assert.Equal(t, 0.9, result.Memories[0].RelevanceScore)
	assert.Equal(t, int32(0), store.candidateCalls.Load(), "greeting must not run full retrieval")
}

func TestRetrieve_GreetingWithoutStoredStyle(t *testing.T) {
	store := &fakeStore{}
	r := newTestRetriever(store)

	result, err := r.Retrieve(context.Background(), "u1", "hello", nil)
	require.NoError(t, err)
	assert.True(t, result.Skipped)
	assert.Empty(t, result.Memories)
}

func TestRetrieve_SkipsImpersonalQueries(t *testing.T) {
	store := &fakeStore{}
	r := newTestRetriever(store)

	tests := []struct {
		query      string
		wantReason string
	}{
		{"what is the gdp of france", "definition"},
		{"how do you reverse a linked list in place", "generic_howto"},
		{"ok", "short_query"},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			result, err := r.Retrieve(context.Background(), "u1", tt.query, nil)
			require.NoError(t, err)
			assert.True(t, result.Skipped)
			assert.Equal(t, tt.wantReason, result.SkipReason)
			assert.Empty(t, result.Memories)
		})
	}
	assert.Equal(t, int32(0), store.candidateCalls.Load())
}

func TestRetrieve_SkipPatternBeatsStrategy(t *testing.T) {
	store := &fakeStore{}
	r := newTestRetriever(store)

	// Personal framing, but a comparison shape: memories add nothing.
	result, err := r.Retrieve(context.Background(), "u1", "should i pick postgres vs mysql for my project", nil)
	require.NoError(t, err)
	assert.True(t, result.Skipped)
	assert.Equal(t, "comparison", result.SkipReason)
}

// ---------------------------------------------------------------------------
// Full pipeline
// ---------------------------------------------------------------------------

func personalQuery() string {
	return "recommend a restaurant for my anniversary dinner based on what i like"
}

func TestRetrieve_FullPipeline(t *testing.T) {
	store := &fakeStore{
		candidates: []types.Memory{
			{ID: "1", Type: "preference", Key: "cuisine", Value: "thai food", Confidence: 0.95},
			{ID: "2", Type: "preference", Key: "budget", Value: "mid range", Confidence: 0.9},
			{ID: "3", Type: "context", Key: "city", Value: "lives in amsterdam", Confidence: 0.85},
			{ID: "4", Type: "fact", Key: "allergy", Value: "peanut allergy", Confidence: 0.99},
			{ID: "5", Type: "fact", Key: "noise", Value: "low confidence guess", Confidence: 0.2},
		},
		profile: &types.UserProfile{UserID: "u1", DisplayName: "Sam", Tone: "casual"},
	}
	r := newTestRetriever(store)

	result, err := r.Retrieve(context.Background(), "u1", personalQuery(), nil)
	require.NoError(t, err)

	assert.False(t, result.Skipped)
	assert.Equal(t, 5, result.CandidateCount)
	assert.NotEmpty(t, result.Memories)
	assert.LessOrEqual(t, len(result.Memories), result.Strategy.MaxMemories)
	require.NotNil(t, result.Profile)
	assert.Equal(t, "Sam", result.Profile.DisplayName)

	// The low-confidence candidate never survives filtering.
	for _, m := range result.Memories {
		assert.NotEqual(t, "5", m.ID)
	}
}

func TestRetrieve_OverFetchesCandidates(t *testing.T) {
	store := &fakeStore{}
	r := newTestRetriever(store)

	result, err := r.Retrieve(context.Background(), "u1", personalQuery(), nil)
	require.NoError(t, err)
	assert.False(t, result.Skipped)

	assert.Equal(t, result.Strategy.MaxMemories*DefaultConfig().CandidateMultiplier, store.lastLimit)
}

func TestRetrieve_CandidateFailureIsTyped(t *testing.T) {
	store := &fakeStore{candidatesErr: errors.New("connection refused")}
	r := newTestRetriever(store)

	_, err := r.Retrieve(context.Background(), "u1", personalQuery(), nil)
	require.Error(t, err)

	var typed *types.Error
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, types.ErrMemoryStore, typed.Code)
	assert.True(t, typed.Retryable)
}

func TestRetrieve_ProfileFailureDegradesToNil(t *testing.T) {
	store := &fakeStore{
		candidates: []types.Memory{
			{ID: "1", Type: "preference", Key: "cuisine", Value: "thai", Confidence: 0.95},
		},
		profileErr: errors.New("profile service down"),
	}
	r := newTestRetriever(store)

	result, err := r.Retrieve(context.Background(), "u1", personalQuery(), nil)
	require.NoError(t, err)
	assert.Nil(t, result.Profile)
	assert.NotEmpty(t, result.Memories)
}

// ---------------------------------------------------------------------------
// Profile cache
// ---------------------------------------------------------------------------

func TestRetrieve_ProfileCacheAvoidsRefetch(t *testing.T) {
	profiles, err := rescache.New[*types.UserProfile](rescache.Config{}, nil, zap.NewNop())
	require.NoError(t, err)
	defer profiles.Close()

	store := &fakeStore{
		profile: &types.UserProfile{UserID: "u1", DisplayName: "Sam"},
	}
	r := newTestRetriever(store, WithProfileCache(profiles))

	_, err = r.Retrieve(context.Background(), "u1", personalQuery(), nil)
	require.NoError(t, err)
	require.Equal(t, int32(1), store.profileCalls.Load())
	profiles.Wait()

	result, err := r.Retrieve(context.Background(), "u1", personalQuery(), nil)
	require.NoError(t, err)
	assert.Equal(t, int32(1), store.profileCalls.Load(), "second request should hit the cache")
	require.NotNil(t, result.Profile)
	assert.Equal(t, "Sam", result.Profile.DisplayName)
}
