package domain

import (
	"slices"
	"time"
)

// DailyChallenge is the problem of the day. Partitioned by Date.
type DailyChallenge struct {
	BaseEntity
	Date               string              `json:"date"` // yyyy-MM-dd
	Title              string              `json:"title"`
	Description        string              `json:"description,omitempty"`
	LeetCodeProblemID  string              `json:"leetCodeProblemId,omitempty"`
	LeetCodeProblemURL string              `json:"leetCodeProblemUrl,omitempty"`
	Difficulty         ChallengeDifficulty `json:"difficulty"`
	Points             int                 `json:"points"`
	BonusPoints        *int                `json:"bonusPoints,omitempty"`
	ParticipantIDs     []string            `json:"participantIds"`
	CompletedByIDs     []string            `json:"completedByIds"`
	IsActive           bool                `json:"isActive"`
}

func (c DailyChallenge) PartitionKey() string { return c.Date }

func (c DailyChallenge) ParticipantCount() int { return len(c.ParticipantIDs) }

func (c DailyChallenge) CompletionCount() int { return len(c.CompletedByIDs) }

func (c DailyChallenge) CompletionRate() float64 {
	return percent(float64(c.CompletionCount()), float64(c.ParticipantCount()))
}

func (c DailyChallenge) CompletedBy(userID string) bool {
	return slices.Contains(c.CompletedByIDs, userID)
}

// CommunityGoal is the shared weekly target. Partitioned by WeekStart.
type CommunityGoal struct {
	BaseEntity
	WeekStart    string     `json:"weekStart"` // yyyy-MM-dd, a Monday
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	TargetValue  int        `json:"targetValue"`
	CurrentValue int        `json:"currentValue"`
	IsCompleted  bool       `json:"isCompleted"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`
}

func (g CommunityGoal) PartitionKey() string { return g.WeekStart }

func (g CommunityGoal) ProgressPercentage() float64 {
	p := percent(float64(g.CurrentValue), float64(g.TargetValue))
	if p > 100 {
		return 100
	}
	return p
}
