package repo

import (
	"context"
	"strings"

	"github.com/tbourn/levelup-backend/internal/docstore"
	"github.com/tbourn/levelup-backend/internal/domain"
	"github.com/tbourn/levelup-backend/internal/errs"
)

// AchievementRepository stores badge instances, partitioned by UserID.
type AchievementRepository struct {
	*Repository[domain.Achievement, *domain.Achievement]
}

func NewAchievementRepository(c docstore.Container, opts ...Option) *AchievementRepository {
	return &AchievementRepository{NewRepository[domain.Achievement](c, "Achievement", opts...)}
}

// GetByUserID returns every achievement of userID, newest first.
func (r *AchievementRepository) GetByUserID(ctx context.Context, userID string) (domain.QueryResult[[]*domain.Achievement], error) {
	if strings.TrimSpace(userID) == "" {
		return domain.QueryResult[[]*domain.Achievement]{}, errs.Validation("UserId", "User id is required.")
	}
	return r.GetAllByPartitionKey(ctx, userID)
}

// GetUnlockedByUserID returns the unlocked achievements of userID, most
// recently unlocked first.
func (r *AchievementRepository) GetUnlockedByUserID(ctx context.Context, userID string) (domain.QueryResult[[]*domain.Achievement], error) {
	if strings.TrimSpace(userID) == "" {
		return domain.QueryResult[[]*domain.Achievement]{}, errs.Validation("UserId", "User id is required.")
	}
	return r.Query(ctx,
		"SELECT * FROM c WHERE c.userId = @userId AND c.isUnlocked = true ORDER BY c.unlockedAt DESC",
		WithPartitionKey(userID), WithParam("userId", userID))
}

func (r *AchievementRepository) GetByUserAndType(ctx context.Context, userID string, t domain.AchievementType) (domain.QueryResult[*domain.Achievement], error) {
	if strings.TrimSpace(userID) == "" {
		return domain.QueryResult[*domain.Achievement]{}, errs.Validation("UserId", "User id is required.")
	}
	return r.FindOne(ctx, userID+"/"+string(t),
		"SELECT * FROM c WHERE c.userId = @userId AND c.achievementType = @type",
		WithPartitionKey(userID), WithParam("userId", userID), WithParam("type", t))
}

// GetUnlockedByType lists, across all users, unlocked achievements of type t.
func (r *AchievementRepository) GetUnlockedByType(ctx context.Context, t domain.AchievementType, limit int) (domain.QueryResult[[]*domain.Achievement], error) {
	return r.Query(ctx,
		"SELECT * FROM c WHERE c.achievementType = @type AND c.isUnlocked = true ORDER BY c.unlockedAt DESC",
		WithParam("type", t), WithLimit(limit))
}

// GetByRarity lists, across all users, unlocked achievements of a rarity.
func (r *AchievementRepository) GetByRarity(ctx context.Context, rarity domain.BadgeRarity, limit int) (domain.QueryResult[[]*domain.Achievement], error) {
	return r.Query(ctx,
		"SELECT * FROM c WHERE c.rarity = @rarity AND c.isUnlocked = true ORDER BY c.unlockedAt DESC",
		WithParam("rarity", rarity), WithLimit(limit))
}
