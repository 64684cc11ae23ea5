package repo

import (
	"context"
	"strings"
	"time"

	"github.com/tbourn/levelup-backend/internal/docstore"
	"github.com/tbourn/levelup-backend/internal/domain"
	"github.com/tbourn/levelup-backend/internal/errs"
)

// ActivityRepository stores feed entries, partitioned by day.
type ActivityRepository struct {
	*Repository[domain.Activity, *domain.Activity]
}

func NewActivityRepository(c docstore.Container, opts ...Option) *ActivityRepository {
	return &ActivityRepository{NewRepository[domain.Activity](c, "Activity", opts...)}
}

func (r *ActivityRepository) GetByUserID(ctx context.Context, userID string, limit int) (domain.QueryResult[[]*domain.Activity], error) {
	if strings.TrimSpace(userID) == "" {
		return domain.QueryResult[[]*domain.Activity]{}, errs.Validation("UserId", "User id is required.")
	}
	return r.Query(ctx,
		"SELECT * FROM c WHERE c.userId = @userId ORDER BY c.createdAt DESC",
		WithParam("userId", userID), WithLimit(limit))
}

// GetByDate returns one day of activity, a single-partition read.
func (r *ActivityRepository) GetByDate(ctx context.Context, date string) (domain.QueryResult[[]*domain.Activity], error) {
	if _, err := domain.ParseDate(date); err != nil {
		return domain.QueryResult[[]*domain.Activity]{}, errs.Validation("Date", "Date must be formatted as yyyy-MM-dd.")
	}
	return r.Query(ctx,
		"SELECT * FROM c WHERE c.date = @date ORDER BY c.createdAt DESC",
		WithPartitionKey(date), WithParam("date", date))
}

func (r *ActivityRepository) GetByDateRange(ctx context.Context, from, to time.Time) (domain.QueryResult[[]*domain.Activity], error) {
	if to.Before(from) {
		return domain.QueryResult[[]*domain.Activity]{}, errs.Validation("DateRange", "End date must not be before start date.")
	}
	return r.Query(ctx,
		"SELECT * FROM c WHERE c.date >= @startDate AND c.date <= @endDate ORDER BY c.createdAt DESC",
		WithParam("startDate", domain.FormatDate(from)), WithParam("endDate", domain.FormatDate(to)))
}

// GetCommunityFeed returns the latest activity across all users.
func (r *ActivityRepository) GetCommunityFeed(ctx context.Context, limit int) (domain.QueryResult[[]*domain.Activity], error) {
	return r.Query(ctx, "SELECT * FROM c ORDER BY c.createdAt DESC", WithLimit(limit))
}

func (r *ActivityRepository) GetByType(ctx context.Context, t domain.ActivityType, limit int) (domain.QueryResult[[]*domain.Activity], error) {
	return r.Query(ctx,
		"SELECT * FROM c WHERE c.activityType = @type ORDER BY c.createdAt DESC",
		WithParam("type", t), WithLimit(limit))
}
