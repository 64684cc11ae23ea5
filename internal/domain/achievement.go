package domain

import "time"

// Achievement is a badge instance owned by one user, locked or unlocked.
// Partitioned by UserID.
type Achievement struct {
	BaseEntity
	UserID           string          `json:"userId"`
	AchievementType  AchievementType `json:"achievementType"`
	Name             string          `json:"name"`
	Description      string          `json:"description"`
	Icon             string          `json:"icon"`
	Rarity           BadgeRarity     `json:"rarity"`
	IsUnlocked       bool            `json:"isUnlocked"`
	UnlockedAt       *time.Time      `json:"unlockedAt,omitempty"`
	Progress         int             `json:"progress"`
	RequiredProgress int             `json:"requiredProgress"`
}

func (a Achievement) PartitionKey() string { return a.UserID }

func (a Achievement) ProgressPercentage() float64 {
	p := percent(float64(a.Progress), float64(a.RequiredProgress))
	if p > 100 {
		return 100
	}
	return p
}

// Badge is a catalogue entry describing an achievement type.
type Badge struct {
	Type             AchievementType `json:"type"`
	Name             string          `json:"name"`
	Description      string          `json:"description"`
	Icon             string          `json:"icon"`
	Rarity           BadgeRarity     `json:"rarity"`
	RequiredProgress int             `json:"requiredProgress"`
}

// BadgeDefinitions is the static badge catalogue.
var BadgeDefinitions = map[AchievementType]Badge{
	AchievementFirstSteps:        {AchievementFirstSteps, "First Steps", "Complete Quest Level 1", "🌱", RarityCommon, 1},
	AchievementOnFire:            {AchievementOnFire, "On Fire", "7-day streak", "🔥", RarityCommon, 7},
	AchievementLightning:         {AchievementLightning, "Lightning", "30-day streak", "⚡", RarityRare, 30},
	AchievementUnstoppable:       {AchievementUnstoppable, "Unstoppable", "100-day streak", "🌋", RarityEpic, 100},
	AchievementQuestMaster:       {AchievementQuestMaster, "Quest Master", "Complete any Quest", "👑", RarityLegendary, 1},
	AchievementCommunityChampion: {AchievementCommunityChampion, "Community Champion", "#1 on any leaderboard", "🏆", RarityLegendary, 1},
	AchievementDsaSage:           {AchievementDsaSage, "DSA Sage", "Complete all 35 DSA levels", "🌟", RarityMythic, 35},
	AchievementPolyglot:          {AchievementPolyglot, "Polyglot", "Complete all 4 Quests", "💎", RarityMythic, 4},
	AchievementMentor:            {AchievementMentor, "Mentor", "Help 10 members", "🤝", RaritySpecial, 10},
	AchievementSharpshooter:      {AchievementSharpshooter, "Sharpshooter", "100% daily challenge completion for a month", "🎯", RarityEpic, 30},
}

// NewAchievement builds a locked achievement for userID from the catalogue.
// ok is false for unknown types.
func NewAchievement(userID string, t AchievementType) (a *Achievement, ok bool) {
	b, ok := BadgeDefinitions[t]
	if !ok {
		return nil, false
	}
	return &Achievement{
		UserID:           userID,
		AchievementType:  t,
		Name:             b.Name,
		Description:      b.Description,
		Icon:             b.Icon,
		Rarity:           b.Rarity,
		RequiredProgress: b.RequiredProgress,
	}, true
}
