package repo

import "github.com/tbourn/levelup-backend/internal/docstore"

// Repositories bundles one repository per collection.
type Repositories struct {
	Users          *UserRepository
	Stats          *StatsRepository
	Squads         *SquadRepository
	Achievements   *AchievementRepository
	Leaderboards   *LeaderboardRepository
	Challenges     *ChallengeRepository
	CommunityGoals *CommunityGoalRepository
	Activities     *ActivityRepository
	Notifications  *NotificationRepository
	Idempotency    *IdempotencyRepository
}

// New builds every repository over cs with the same options.
func New(cs docstore.Containers, opts ...Option) *Repositories {
	return &Repositories{
		Users:          NewUserRepository(cs.Users, opts...),
		Stats:          NewStatsRepository(cs.Stats, opts...),
		Squads:         NewSquadRepository(cs.Squads, opts...),
		Achievements:   NewAchievementRepository(cs.Achievements, opts...),
		Leaderboards:   NewLeaderboardRepository(cs.Leaderboards, opts...),
		Challenges:     NewChallengeRepository(cs.Challenges, opts...),
		CommunityGoals: NewCommunityGoalRepository(cs.CommunityGoals, opts...),
		Activities:     NewActivityRepository(cs.Activities, opts...),
		Notifications:  NewNotificationRepository(cs.Notifications, opts...),
		Idempotency:    NewIdempotencyRepository(cs.Idempotency, opts...),
	}
}
