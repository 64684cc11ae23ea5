package docstore

import (
	"fmt"

	"gorm.io/gorm"
)

// Collection names.
const (
	CollectionUsers          = "users"
	CollectionStats          = "stats"
	CollectionSquads         = "squads"
	CollectionAchievements   = "achievements"
	CollectionLeaderboards   = "leaderboards"
	CollectionChallenges     = "challenges"
	CollectionCommunityGoals = "community_goals"
	CollectionActivities     = "activities"
	CollectionNotifications  = "notifications"
	CollectionIdempotency    = "idempotency"
)

// Containers holds one handle per collection. It is assembled once at startup
// and passed by value to the repositories; nothing mutates it afterwards.
type Containers struct {
	Users          Container
	Stats          Container
	Squads         Container
	Achievements   Container
	Leaderboards   Container
	Challenges     Container
	CommunityGoals Container
	Activities     Container
	Notifications  Container
	Idempotency    Container
}

// Settings configures the decorators applied by NewContainers.
type Settings struct {
	PageSize  int
	Retry     RetryPolicy
	Breaker   BreakerPolicy
	CacheSize int // per cached collection; 0 disables caching
	Metrics   bool
}

// cachedCollections are read mostly by id and benefit from the LRU.
var cachedCollections = map[string]bool{
	CollectionUsers:  true,
	CollectionStats:  true,
	CollectionSquads: true,
}

// NewContainers builds every collection over db, wrapping each as
// metrics(cache(resilience(sqlite))).
func NewContainers(db *gorm.DB, s Settings) (Containers, error) {
	build := func(name string) (Container, error) {
		var c Container = NewSQLiteContainer(db, name, s.PageSize)
		c = WithResilience(c, s.Retry, s.Breaker)
		if cachedCollections[name] {
			var err error
			if c, err = WithCache(c, s.CacheSize); err != nil {
				return nil, fmt.Errorf("cache %s: %w", name, err)
			}
		}
		if s.Metrics {
			c = WithMetrics(c)
		}
		return c, nil
	}

	var (
		cs  Containers
		err error
	)
	targets := []struct {
		name string
		dst  *Container
	}{
		{CollectionUsers, &cs.Users},
		{CollectionStats, &cs.Stats},
		{CollectionSquads, &cs.Squads},
		{CollectionAchievements, &cs.Achievements},
		{CollectionLeaderboards, &cs.Leaderboards},
		{CollectionChallenges, &cs.Challenges},
		{CollectionCommunityGoals, &cs.CommunityGoals},
		{CollectionActivities, &cs.Activities},
		{CollectionNotifications, &cs.Notifications},
		{CollectionIdempotency, &cs.Idempotency},
	}
	for _, t := range targets {
		if *t.dst, err = build(t.name); err != nil {
			return Containers{}, err
		}
	}
	return cs, nil
}
