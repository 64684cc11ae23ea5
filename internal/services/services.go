package services

import "github.com/tbourn/levelup-backend/internal/repo"

// Services bundles every service built over one set of repositories.
type Services struct {
	Users         *UserService
	Squads        *SquadService
	Progress      *ProgressService
	Leaderboards  *LeaderboardService
	Community     *CommunityService
	Notifications *NotificationService
}

func New(r *repo.Repositories) *Services {
	return &Services{
		Users:         NewUserService(r.Users, r.Stats),
		Squads:        NewSquadService(r.Squads, r.Users, r.Activities),
		Progress:      NewProgressService(r.Stats, r.Achievements),
		Leaderboards:  NewLeaderboardService(r.Leaderboards, r.Users),
		Community:     NewCommunityService(r.Challenges, r.CommunityGoals, r.Activities),
		Notifications: NewNotificationService(r.Notifications),
	}
}
