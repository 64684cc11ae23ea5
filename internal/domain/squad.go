package domain

import "slices"

// DefaultSquadSize is the member cap applied when a squad does not set one.
const DefaultSquadSize = 5

// Squad is a small team competing on weekly points. Partitioned by its own ID.
type Squad struct {
	BaseEntity
	Name            string   `json:"name"`
	Description     string   `json:"description,omitempty"`
	AvatarURL       string   `json:"avatarUrl,omitempty"`
	CaptainUserID   string   `json:"captainUserId"`
	MemberIDs       []string `json:"memberIds"`
	MaxMembers      int      `json:"maxMembers"`
	IsRecruiting    bool     `json:"isRecruiting"`
	TotalPoints     int      `json:"totalPoints"`
	WeeklyPoints    int      `json:"weeklyPoints"`
	Wins            int      `json:"wins"`
	Losses          int      `json:"losses"`
	CurrentBattleID string   `json:"currentBattleId,omitempty"`
	Tags            []string `json:"tags"`
}

func (s Squad) PartitionKey() string { return s.ID }

func (s Squad) MemberCount() int { return len(s.MemberIDs) }

func (s Squad) IsFull() bool { return s.MemberCount() >= s.MaxMembers }

func (s Squad) HasMember(userID string) bool { return slices.Contains(s.MemberIDs, userID) }
