package memory

import (
	"context"

	"github.com/querysift/querysift/types"
)

// Store is the host-supplied persistence layer. Implementations own
// the storage format; the retriever only consumes snapshots. All calls
// must honor ctx cancellation.
type Store interface {
	// FetchCandidates returns up to limit raw memory candidates for the
	// query, most relevant first when the store supports ranking.
	FetchCandidates(ctx context.Context, userID, query string, limit int) ([]types.Memory, error)

	// FetchProfile returns the user's profile snapshot.
	FetchProfile(ctx context.Context, userID string) (*types.UserProfile, error)

	// FetchStylePreference returns the user's most recent
	// communication-style preference, or nil if none is stored. Used on
	// the greeting fast path where full retrieval is skipped.
	FetchStylePreference(ctx context.Context, userID string) (*types.Memory, error)
}
