package domain

import "time"

// UserStats is the synced LeetCode snapshot and gamification counters of one
// user. Partitioned by UserID.
type UserStats struct {
	BaseEntity
	UserID           string    `json:"userId"`
	LeetCodeUsername string    `json:"leetCodeUsername"`
	LastSyncedAt     time.Time `json:"lastSyncedAt"`

	TotalSolved  int `json:"totalSolved"`
	EasySolved   int `json:"easySolved"`
	MediumSolved int `json:"mediumSolved"`
	HardSolved   int `json:"hardSolved"`

	CurrentStreak      int    `json:"currentStreak"`
	MaxStreak          int    `json:"maxStreak"`
	LastSubmissionDate string `json:"lastSubmissionDate,omitempty"` // yyyy-MM-dd

	ContestRating    float64 `json:"contestRating"`
	ContestsAttended int     `json:"contestsAttended"`
	GlobalRanking    *int    `json:"globalRanking,omitempty"`

	QuestProgress map[QuestType]QuestProgress `json:"questProgress"`

	ProblemsSolvedThisWeek  int `json:"problemsSolvedThisWeek"`
	ProblemsSolvedThisMonth int `json:"problemsSolvedThisMonth"`

	FreezeTokens  int `json:"freezeTokens"`
	StreakShields int `json:"streakShields"`
}

func (s UserStats) PartitionKey() string { return s.UserID }

// QuestProgress tracks one quest line for a user.
type QuestProgress struct {
	QuestType         QuestType  `json:"questType"`
	CurrentLevel      int        `json:"currentLevel"`
	TotalLevels       int        `json:"totalLevels"`
	ProblemsCompleted int        `json:"problemsCompleted"`
	ProblemsRequired  int        `json:"problemsRequired"`
	IsCompleted       bool       `json:"isCompleted"`
	CompletedAt       *time.Time `json:"completedAt,omitempty"`
	CurrentThemeZone  string     `json:"currentThemeZone,omitempty"`
}

func (q QuestProgress) ProgressPercentage() float64 {
	return percent(float64(q.CurrentLevel), float64(q.TotalLevels))
}

// NewUserStats returns an empty stats document for a freshly registered user.
func NewUserStats(userID, leetCodeUsername string, now time.Time) *UserStats {
	return &UserStats{
		UserID:           userID,
		LeetCodeUsername: leetCodeUsername,
		LastSyncedAt:     now.UTC(),
		QuestProgress:    map[QuestType]QuestProgress{},
	}
}

// IsStale reports whether the stats were last synced before threshold.
func (s UserStats) IsStale(threshold time.Time) bool { return s.LastSyncedAt.Before(threshold) }
