package services

import (
	"context"
	"sort"
	"strings"

	"github.com/tbourn/levelup-backend/internal/domain"
	"github.com/tbourn/levelup-backend/internal/errs"
)

// StatsRepo is the read contract ProgressService needs for stats.
type StatsRepo interface {
	GetByUserID(ctx context.Context, userID string) (domain.QueryResult[*domain.UserStats], error)
	GetTopByTotalSolved(ctx context.Context, limit int) (domain.QueryResult[[]*domain.UserStats], error)
	GetTopByStreak(ctx context.Context, limit int) (domain.QueryResult[[]*domain.UserStats], error)
	GetTopByWeeklySolved(ctx context.Context, limit int) (domain.QueryResult[[]*domain.UserStats], error)
	GetTopByHardSolved(ctx context.Context, limit int) (domain.QueryResult[[]*domain.UserStats], error)
}

// AchievementRepo is the read contract ProgressService needs for badges.
type AchievementRepo interface {
	GetByUserID(ctx context.Context, userID string) (domain.QueryResult[[]*domain.Achievement], error)
	GetUnlockedByUserID(ctx context.Context, userID string) (domain.QueryResult[[]*domain.Achievement], error)
}

// Stats metrics accepted by ProgressService.Top.
const (
	MetricTotalSolved = "totalSolved"
	MetricStreak      = "streak"
	MetricWeekly      = "weekly"
	MetricHard        = "hard"
)

// ProgressService serves per-user stats and achievements.
type ProgressService struct {
	Stats        StatsRepo
	Achievements AchievementRepo
	DefaultLimit int
}

func NewProgressService(stats StatsRepo, achievements AchievementRepo) *ProgressService {
	return &ProgressService{Stats: stats, Achievements: achievements, DefaultLimit: 10}
}

func (s *ProgressService) UserStats(ctx context.Context, userID string) (*domain.UserStats, error) {
	res, err := s.Stats.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return res.Value, nil
}

// Top ranks users by metric. An empty metric means MetricTotalSolved.
func (s *ProgressService) Top(ctx context.Context, metric string, limit int) ([]*domain.UserStats, error) {
	limit = limitOr(limit, s.DefaultLimit)
	var (
		res domain.QueryResult[[]*domain.UserStats]
		err error
	)
	switch strings.TrimSpace(metric) {
	case "", MetricTotalSolved:
		res, err = s.Stats.GetTopByTotalSolved(ctx, limit)
	case MetricStreak:
		res, err = s.Stats.GetTopByStreak(ctx, limit)
	case MetricWeekly:
		res, err = s.Stats.GetTopByWeeklySolved(ctx, limit)
	case MetricHard:
		res, err = s.Stats.GetTopByHardSolved(ctx, limit)
	default:
		return nil, errs.Validation("Metric", "Metric must be one of totalSolved, streak, weekly, hard.")
	}
	if err != nil {
		return nil, err
	}
	return res.Value, nil
}

// UserAchievements lists userID's badges, optionally only the unlocked ones.
func (s *ProgressService) UserAchievements(ctx context.Context, userID string, unlockedOnly bool) ([]*domain.Achievement, error) {
	var (
		res domain.QueryResult[[]*domain.Achievement]
		err error
	)
	if unlockedOnly {
		res, err = s.Achievements.GetUnlockedByUserID(ctx, userID)
	} else {
		res, err = s.Achievements.GetByUserID(ctx, userID)
	}
	if err != nil {
		return nil, err
	}
	return res.Value, nil
}

// rarityOrder ranks rarities from most to least common.
var rarityOrder = map[domain.BadgeRarity]int{
	domain.RarityCommon:    0,
	domain.RarityRare:      1,
	domain.RarityEpic:      2,
	domain.RarityLegendary: 3,
	domain.RarityMythic:    4,
	domain.RaritySpecial:   5,
}

// BadgeCatalogue returns every badge definition, most common first.
func BadgeCatalogue() []domain.Badge {
	out := make([]domain.Badge, 0, len(domain.BadgeDefinitions))
	for _, b := range domain.BadgeDefinitions {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		if ri, rj := rarityOrder[out[i].Rarity], rarityOrder[out[j].Rarity]; ri != rj {
			return ri < rj
		}
		return out[i].Type < out[j].Type
	})
	return out
}
