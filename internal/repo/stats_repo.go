package repo

import (
	"context"
	"strings"
	"time"

	"github.com/tbourn/levelup-backend/internal/docstore"
	"github.com/tbourn/levelup-backend/internal/domain"
	"github.com/tbourn/levelup-backend/internal/errs"
)

// StatsRepository stores one UserStats document per user, partitioned by
// UserID.
type StatsRepository struct {
	*Repository[domain.UserStats, *domain.UserStats]
}

func NewStatsRepository(c docstore.Container, opts ...Option) *StatsRepository {
	return &StatsRepository{NewRepository[domain.UserStats](c, "UserStats", opts...)}
}

// GetByUserID returns the stats document of userID.
func (r *StatsRepository) GetByUserID(ctx context.Context, userID string) (domain.QueryResult[*domain.UserStats], error) {
	if strings.TrimSpace(userID) == "" {
		return domain.QueryResult[*domain.UserStats]{}, errs.Validation("UserId", "User id is required.")
	}
	return r.FindOne(ctx, userID,
		"SELECT * FROM c WHERE c.userId = @userId",
		WithPartitionKey(userID), WithParam("userId", userID))
}

func (r *StatsRepository) GetTopByTotalSolved(ctx context.Context, limit int) (domain.QueryResult[[]*domain.UserStats], error) {
	return r.top(ctx, "totalSolved", limit)
}

func (r *StatsRepository) GetTopByStreak(ctx context.Context, limit int) (domain.QueryResult[[]*domain.UserStats], error) {
	return r.top(ctx, "currentStreak", limit)
}

func (r *StatsRepository) GetTopByWeeklySolved(ctx context.Context, limit int) (domain.QueryResult[[]*domain.UserStats], error) {
	return r.top(ctx, "problemsSolvedThisWeek", limit)
}

func (r *StatsRepository) GetTopByHardSolved(ctx context.Context, limit int) (domain.QueryResult[[]*domain.UserStats], error) {
	return r.top(ctx, "hardSolved", limit)
}

// top orders by a fixed field name; field never comes from user input.
func (r *StatsRepository) top(ctx context.Context, field string, limit int) (domain.QueryResult[[]*domain.UserStats], error) {
	return r.Query(ctx, "SELECT * FROM c ORDER BY c."+field+" DESC", WithLimit(limit))
}

// GetStaleStats returns stats last synced before threshold, oldest first.
func (r *StatsRepository) GetStaleStats(ctx context.Context, threshold time.Time) (domain.QueryResult[[]*domain.UserStats], error) {
	return r.Query(ctx,
		"SELECT * FROM c WHERE c.lastSyncedAt < @cutoff ORDER BY c.lastSyncedAt ASC",
		WithParam("cutoff", threshold))
}
