package services

import (
	"context"
	"strings"
	"time"

	"github.com/tbourn/levelup-backend/internal/domain"
	"github.com/tbourn/levelup-backend/internal/errs"
)

// ChallengeRepo is the daily challenge read contract.
type ChallengeRepo interface {
	GetByDate(ctx context.Context, date string) (domain.QueryResult[*domain.DailyChallenge], error)
	GetTodaysChallenge(ctx context.Context) (domain.QueryResult[*domain.DailyChallenge], error)
	GetByDateRange(ctx context.Context, from, to time.Time) (domain.QueryResult[[]*domain.DailyChallenge], error)
	GetActive(ctx context.Context, limit int) (domain.QueryResult[[]*domain.DailyChallenge], error)
}

// GoalRepo is the community goal read contract.
type GoalRepo interface {
	GetCurrentWeekGoal(ctx context.Context) (domain.QueryResult[*domain.CommunityGoal], error)
	GetRecent(ctx context.Context, limit int) (domain.QueryResult[[]*domain.CommunityGoal], error)
}

// ActivityRepo is the activity feed read contract.
type ActivityRepo interface {
	GetByUserID(ctx context.Context, userID string, limit int) (domain.QueryResult[[]*domain.Activity], error)
	GetCommunityFeed(ctx context.Context, limit int) (domain.QueryResult[[]*domain.Activity], error)
	GetByType(ctx context.Context, t domain.ActivityType, limit int) (domain.QueryResult[[]*domain.Activity], error)
}

// MaxChallengeRange bounds the span of a challenge range query.
const MaxChallengeRange = 31 * 24 * time.Hour

// CommunityService serves daily challenges, weekly goals and the activity
// feed.
type CommunityService struct {
	Challenges ChallengeRepo
	Goals      GoalRepo
	Activities ActivityRepo

	Now          func() time.Time
	DefaultLimit int
}

func NewCommunityService(challenges ChallengeRepo, goals GoalRepo, activities ActivityRepo) *CommunityService {
	return &CommunityService{
		Challenges:   challenges,
		Goals:        goals,
		Activities:   activities,
		Now:          time.Now,
		DefaultLimit: 20,
	}
}

func (s *CommunityService) TodaysChallenge(ctx context.Context) (*domain.DailyChallenge, error) {
	res, err := s.Challenges.GetTodaysChallenge(ctx)
	if err != nil {
		return nil, err
	}
	return res.Value, nil
}

func (s *CommunityService) Challenge(ctx context.Context, date string) (*domain.DailyChallenge, error) {
	res, err := s.Challenges.GetByDate(ctx, strings.TrimSpace(date))
	if err != nil {
		return nil, err
	}
	return res.Value, nil
}

// ChallengesBetween lists challenges dated within [from, to] (yyyy-MM-dd). Empty
// bounds default to the last seven days ending today.
func (s *CommunityService) ChallengesBetween(ctx context.Context, from, to string) ([]*domain.DailyChallenge, error) {
	today := s.Now().UTC()
	end, err := parseDateOr(to, today, "To")
	if err != nil {
		return nil, err
	}
	start, err := parseDateOr(from, end.AddDate(0, 0, -6), "From")
	if err != nil {
		return nil, err
	}
	if end.Sub(start) > MaxChallengeRange {
		return nil, errs.Validation("DateRange", "A range may span at most 31 days.")
	}
	res, err := s.Challenges.GetByDateRange(ctx, start, end)
	if err != nil {
		return nil, err
	}
	return res.Value, nil
}

func (s *CommunityService) ActiveChallenges(ctx context.Context, limit int) ([]*domain.DailyChallenge, error) {
	res, err := s.Challenges.GetActive(ctx, limitOr(limit, s.DefaultLimit))
	if err != nil {
		return nil, err
	}
	return res.Value, nil
}

func (s *CommunityService) CurrentGoal(ctx context.Context) (*domain.CommunityGoal, error) {
	res, err := s.Goals.GetCurrentWeekGoal(ctx)
	if err != nil {
		return nil, err
	}
	return res.Value, nil
}

func (s *CommunityService) RecentGoals(ctx context.Context, limit int) ([]*domain.CommunityGoal, error) {
	res, err := s.Goals.GetRecent(ctx, limitOr(limit, s.DefaultLimit))
	if err != nil {
		return nil, err
	}
	return res.Value, nil
}

// Feed returns the community feed, optionally narrowed to one activity type.
func (s *CommunityService) Feed(ctx context.Context, t domain.ActivityType, limit int) ([]*domain.Activity, error) {
	limit = limitOr(limit, s.DefaultLimit)
	var (
		res domain.QueryResult[[]*domain.Activity]
		err error
	)
	if t != "" {
		res, err = s.Activities.GetByType(ctx, t, limit)
	} else {
		res, err = s.Activities.GetCommunityFeed(ctx, limit)
	}
	if err != nil {
		return nil, err
	}
	return res.Value, nil
}

func (s *CommunityService) UserActivity(ctx context.Context, userID string, limit int) ([]*domain.Activity, error) {
	res, err := s.Activities.GetByUserID(ctx, userID, limitOr(limit, s.DefaultLimit))
	if err != nil {
		return nil, err
	}
	return res.Value, nil
}

func parseDateOr(s string, def time.Time, field string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return def, nil
	}
	t, err := domain.ParseDate(s)
	if err != nil {
		return time.Time{}, errs.Validation(field, "Date must be formatted as yyyy-MM-dd.")
	}
	return t, nil
}
