package repo

import (
	"context"
	"strings"
	"time"

	"github.com/tbourn/levelup-backend/internal/docstore"
	"github.com/tbourn/levelup-backend/internal/domain"
	"github.com/tbourn/levelup-backend/internal/errs"
)

// ChallengeRepository stores daily challenges, partitioned by their date.
type ChallengeRepository struct {
	*Repository[domain.DailyChallenge, *domain.DailyChallenge]
}

func NewChallengeRepository(c docstore.Container, opts ...Option) *ChallengeRepository {
	r := NewRepository[domain.DailyChallenge](c, "DailyChallenge", opts...)
	return &ChallengeRepository{r}
}

// GetByDate returns the challenge of date (yyyy-MM-dd).
func (r *ChallengeRepository) GetByDate(ctx context.Context, date string) (domain.QueryResult[*domain.DailyChallenge], error) {
	if _, err := domain.ParseDate(date); err != nil {
		return domain.QueryResult[*domain.DailyChallenge]{}, errs.Validation("Date", "Date must be formatted as yyyy-MM-dd.")
	}
	return r.FindOne(ctx, date,
		"SELECT * FROM c WHERE c.date = @date",
		WithPartitionKey(date), WithParam("date", date))
}

// GetTodaysChallenge returns the challenge for the current UTC date.
func (r *ChallengeRepository) GetTodaysChallenge(ctx context.Context) (domain.QueryResult[*domain.DailyChallenge], error) {
	return r.GetByDate(ctx, domain.FormatDate(r.now()))
}

// GetByDateRange returns challenges dated within [from, to], newest first.
func (r *ChallengeRepository) GetByDateRange(ctx context.Context, from, to time.Time) (domain.QueryResult[[]*domain.DailyChallenge], error) {
	if to.Before(from) {
		return domain.QueryResult[[]*domain.DailyChallenge]{}, errs.Validation("DateRange", "End date must not be before start date.")
	}
	return r.Query(ctx,
		"SELECT * FROM c WHERE c.date >= @startDate AND c.date <= @endDate ORDER BY c.date DESC",
		WithParam("startDate", domain.FormatDate(from)), WithParam("endDate", domain.FormatDate(to)))
}

func (r *ChallengeRepository) GetActive(ctx context.Context, limit int) (domain.QueryResult[[]*domain.DailyChallenge], error) {
	return r.Query(ctx,
		"SELECT * FROM c WHERE c.isActive = true ORDER BY c.date DESC",
		WithLimit(limit))
}

// GetCompletedByUser returns challenges userID completed, newest first.
func (r *ChallengeRepository) GetCompletedByUser(ctx context.Context, userID string, limit int) (domain.QueryResult[[]*domain.DailyChallenge], error) {
	if strings.TrimSpace(userID) == "" {
		return domain.QueryResult[[]*domain.DailyChallenge]{}, errs.Validation("UserId", "User id is required.")
	}
	return r.Query(ctx,
		"SELECT * FROM c WHERE ARRAY_CONTAINS(c.completedByIds, @userId) ORDER BY c.date DESC",
		WithParam("userId", userID), WithLimit(limit))
}

// CommunityGoalRepository stores weekly goals, partitioned by the Monday the
// week starts on.
type CommunityGoalRepository struct {
	*Repository[domain.CommunityGoal, *domain.CommunityGoal]
}

func NewCommunityGoalRepository(c docstore.Container, opts ...Option) *CommunityGoalRepository {
	return &CommunityGoalRepository{NewRepository[domain.CommunityGoal](c, "CommunityGoal", opts...)}
}

// GetCurrentWeekGoal returns the goal of the week containing now.
func (r *CommunityGoalRepository) GetCurrentWeekGoal(ctx context.Context) (domain.QueryResult[*domain.CommunityGoal], error) {
	return r.GetByWeekStart(ctx, domain.FormatDate(domain.WeekStart(r.now())))
}

func (r *CommunityGoalRepository) GetByWeekStart(ctx context.Context, weekStart string) (domain.QueryResult[*domain.CommunityGoal], error) {
	if _, err := domain.ParseDate(weekStart); err != nil {
		return domain.QueryResult[*domain.CommunityGoal]{}, errs.Validation("WeekStart", "Week start must be formatted as yyyy-MM-dd.")
	}
	return r.FindOne(ctx, weekStart,
		"SELECT * FROM c WHERE c.weekStart = @weekStart",
		WithPartitionKey(weekStart), WithParam("weekStart", weekStart))
}

// GetByDateRange returns goals whose week starts within [from, to].
func (r *CommunityGoalRepository) GetByDateRange(ctx context.Context, from, to time.Time) (domain.QueryResult[[]*domain.CommunityGoal], error) {
	if to.Before(from) {
		return domain.QueryResult[[]*domain.CommunityGoal]{}, errs.Validation("DateRange", "End date must not be before start date.")
	}
	return r.Query(ctx,
		"SELECT * FROM c WHERE c.weekStart >= @startDate AND c.weekStart <= @endDate ORDER BY c.weekStart DESC",
		WithParam("startDate", domain.FormatDate(from)), WithParam("endDate", domain.FormatDate(to)))
}

// GetRecent returns the latest limit goals.
func (r *CommunityGoalRepository) GetRecent(ctx context.Context, limit int) (domain.QueryResult[[]*domain.CommunityGoal], error) {
	return r.Query(ctx, "SELECT * FROM c ORDER BY c.weekStart DESC", WithLimit(limit))
}
