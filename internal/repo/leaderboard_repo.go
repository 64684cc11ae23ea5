package repo

import (
	"context"
	"strings"

	"github.com/tbourn/levelup-backend/internal/docstore"
	"github.com/tbourn/levelup-backend/internal/domain"
	"github.com/tbourn/levelup-backend/internal/errs"
)

// LeaderboardRepository stores ranked entries. Every entry of one board
// shares the board's partition, so board reads never fan out.
type LeaderboardRepository struct {
	*Repository[domain.LeaderboardEntry, *domain.LeaderboardEntry]
}

func NewLeaderboardRepository(c docstore.Container, opts ...Option) *LeaderboardRepository {
	return &LeaderboardRepository{NewRepository[domain.LeaderboardEntry](c, "LeaderboardEntry", opts...)}
}

// EntryID is the document ID of userID's entry on board t. Republishing a board
// therefore overwrites entries in place.
func EntryID(t domain.LeaderboardType, userID string) string { return string(t) + ":" + userID }

// GetByType returns the first limit entries of board t by rank.
func (r *LeaderboardRepository) GetByType(ctx context.Context, t domain.LeaderboardType, limit int) (domain.QueryResult[[]*domain.LeaderboardEntry], error) {
	if !t.Valid() {
		return domain.QueryResult[[]*domain.LeaderboardEntry]{}, errs.Validation("Type", "Unknown leaderboard type.")
	}
	return r.Query(ctx,
		"SELECT * FROM c WHERE c.type = @type ORDER BY c.rank ASC",
		WithPartitionKey(string(t)), WithParam("type", t), WithLimit(limit))
}

func (r *LeaderboardRepository) GetUserEntry(ctx context.Context, t domain.LeaderboardType, userID string) (domain.QueryResult[*domain.LeaderboardEntry], error) {
	if !t.Valid() {
		return domain.QueryResult[*domain.LeaderboardEntry]{}, errs.Validation("Type", "Unknown leaderboard type.")
	}
	if strings.TrimSpace(userID) == "" {
		return domain.QueryResult[*domain.LeaderboardEntry]{}, errs.Validation("UserId", "User id is required.")
	}
	return r.FindOne(ctx, EntryID(t, userID),
		"SELECT * FROM c WHERE c.type = @type AND c.userId = @userId",
		WithPartitionKey(string(t)), WithParam("type", t), WithParam("userId", userID))
}

// GetUserEntries returns userID's entry on every board.
func (r *LeaderboardRepository) GetUserEntries(ctx context.Context, userID string) (domain.QueryResult[[]*domain.LeaderboardEntry], error) {
	if strings.TrimSpace(userID) == "" {
		return domain.QueryResult[[]*domain.LeaderboardEntry]{}, errs.Validation("UserId", "User id is required.")
	}
	return r.Query(ctx,
		"SELECT * FROM c WHERE c.userId = @userId ORDER BY c.type ASC",
		WithParam("userId", userID))
}

// GetEntriesAroundRank returns the entries of board t ranked within
// [max(1, rank-window), rank+window], by rank ascending.
func (r *LeaderboardRepository) GetEntriesAroundRank(ctx context.Context, t domain.LeaderboardType, rank, window int) (domain.QueryResult[[]*domain.LeaderboardEntry], error) {
	if !t.Valid() {
		return domain.QueryResult[[]*domain.LeaderboardEntry]{}, errs.Validation("Type", "Unknown leaderboard type.")
	}
	if rank < 1 {
		return domain.QueryResult[[]*domain.LeaderboardEntry]{}, errs.Validation("Rank", "Rank must be at least 1.")
	}
	if window < 0 || window > r.MaxLimit()/2 {
		return domain.QueryResult[[]*domain.LeaderboardEntry]{}, errs.Validation("Range", "Range is out of bounds.")
	}
	return r.Query(ctx,
		"SELECT * FROM c WHERE c.type = @type AND c.rank >= @minRank AND c.rank <= @maxRank ORDER BY c.rank ASC",
		WithPartitionKey(string(t)),
		WithParam("type", t),
		WithParam("minRank", max(1, rank-window)),
		WithParam("maxRank", rank+window))
}
