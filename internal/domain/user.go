package domain

import "time"

// User is a registered community member. Partitioned by its own ID.
type User struct {
	BaseEntity
	GitHubID         string       `json:"githubId"`
	GitHubUsername   string       `json:"githubUsername"`
	LeetCodeUsername string       `json:"leetCodeUsername"`
	DisplayName      string       `json:"displayName"`
	Email            string       `json:"email,omitempty"`
	AvatarURL        string       `json:"avatarUrl,omitempty"`
	Role             UserRole     `json:"role"`
	Title            UserTitle    `json:"title"`
	ProfileTheme     ProfileTheme `json:"profileTheme"`
	SquadID          string       `json:"squadId,omitempty"`
	ShowcaseBadges   []string     `json:"showcaseBadges"`
	Settings         UserSettings `json:"settings"`
	IsActive         bool         `json:"isActive"`
	LastActiveAt     time.Time    `json:"lastActiveAt"`
}

func (u User) PartitionKey() string { return u.ID }

// UserSettings holds per-user preferences.
type UserSettings struct {
	EnablePushNotifications  bool   `json:"enablePushNotifications"`
	EnableEmailNotifications bool   `json:"enableEmailNotifications"`
	StreakReminderTime       string `json:"streakReminderTime,omitempty"` // HH:MM
	Timezone                 string `json:"timezone"`
	ShowOnLeaderboard        bool   `json:"showOnLeaderboard"`
}

// NewUser returns a User with the defaults new members start with.
func NewUser(githubID, githubUsername, leetCodeUsername, displayName string, now time.Time) *User {
	return &User{
		GitHubID:         githubID,
		GitHubUsername:   githubUsername,
		LeetCodeUsername: leetCodeUsername,
		DisplayName:      displayName,
		Role:             RoleMember,
		Title:            TitleNewcomer,
		ProfileTheme:     ThemeDefault,
		ShowcaseBadges:   []string{},
		Settings: UserSettings{
			EnablePushNotifications: true,
			StreakReminderTime:      "18:00",
			Timezone:                "UTC",
			ShowOnLeaderboard:       true,
		},
		IsActive:     true,
		LastActiveAt: now.UTC(),
	}
}
