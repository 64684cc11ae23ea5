package domain

import "time"

// LeaderboardEntry is one ranked row of a leaderboard. Partitioned by the
// leaderboard type, so one partition holds a whole board.
type LeaderboardEntry struct {
	BaseEntity
	Type          LeaderboardType `json:"type"`
	UserID        string          `json:"userId"`
	DisplayName   string          `json:"displayName"`
	AvatarURL     string          `json:"avatarUrl,omitempty"`
	Rank          int             `json:"rank"`
	PreviousRank  *int            `json:"previousRank,omitempty"`
	Score         float64         `json:"score"`
	PreviousScore *float64        `json:"previousScore,omitempty"`
	SquadID       string          `json:"squadId,omitempty"`
	SquadName     string          `json:"squadName,omitempty"`
	PeriodStart   time.Time       `json:"periodStart"`
	PeriodEnd     *time.Time      `json:"periodEnd,omitempty"`
}

func (e LeaderboardEntry) PartitionKey() string { return string(e.Type) }

// RankChange is positive when the user moved up.
func (e LeaderboardEntry) RankChange() int {
	if e.PreviousRank == nil {
		return 0
	}
	return *e.PreviousRank - e.Rank
}

func (e LeaderboardEntry) ScoreChange() float64 {
	if e.PreviousScore == nil {
		return 0
	}
	return e.Score - *e.PreviousScore
}

// LeaderboardMetadata describes a leaderboard.
type LeaderboardMetadata struct {
	Type        LeaderboardType        `json:"type"`
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Icon        string                 `json:"icon"`
	RefreshRate LeaderboardRefreshRate `json:"refreshRate"`
}

// LeaderboardDefinitions is the static leaderboard catalogue.
var LeaderboardDefinitions = map[LeaderboardType]LeaderboardMetadata{
	LeaderboardQuestChampions:  {LeaderboardQuestChampions, "Quest Champions", "Quest level completion", "🥇", RefreshRealTime},
	LeaderboardStreakKings:     {LeaderboardStreakKings, "Streak Kings", "Current streak days", "🔥", RefreshDaily},
	LeaderboardSpeedDemons:     {LeaderboardSpeedDemons, "Speed Demons", "Problems solved this week", "⚡", RefreshWeekly},
	LeaderboardHardCrushers:    {LeaderboardHardCrushers, "Hard Crushers", "Hard problems solved", "🧠", RefreshMonthly},
	LeaderboardContestWarriors: {LeaderboardContestWarriors, "Contest Warriors", "Contest rating", "📊", RefreshAfterContests},
	LeaderboardRisingStars:     {LeaderboardRisingStars, "Rising Stars", "Most improved (% gain)", "🌟", RefreshWeekly},
}
