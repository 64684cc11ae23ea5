package domain

// Enumerations are stored and served as their string names.

type UserRole string

const (
	RoleMember    UserRole = "Member"
	RoleModerator UserRole = "Moderator"
	RoleAdmin     UserRole = "Admin"
)

type UserTitle string

const (
	TitleNewcomer          UserTitle = "Newcomer"
	TitleForestWalker      UserTitle = "ForestWalker"
	TitleSpeedSolver       UserTitle = "SpeedSolver"
	TitleStreakWarrior     UserTitle = "StreakWarrior"
	TitleQuestMaster       UserTitle = "QuestMaster"
	TitleDsaSage           UserTitle = "DsaSage"
	TitleCommunityChampion UserTitle = "CommunityChampion"
	TitleMentor            UserTitle = "Mentor"
)

type ProfileTheme string

const (
	ThemeDefault        ProfileTheme = "Default"
	ThemeLinearShoal    ProfileTheme = "LinearShoal"
	ThemeSequenceValley ProfileTheme = "SequenceValley"
	ThemeForestWalker   ProfileTheme = "ForestWalker"
	ThemeSpeedSolver    ProfileTheme = "SpeedSolver"
	ThemeGraphMaster    ProfileTheme = "GraphMaster"
	ThemeStrategySummit ProfileTheme = "StrategySummit"
)

func (t ProfileTheme) Valid() bool {
	switch t {
	case ThemeDefault, ThemeLinearShoal, ThemeSequenceValley, ThemeForestWalker,
		ThemeSpeedSolver, ThemeGraphMaster, ThemeStrategySummit:
		return true
	}
	return false
}

type QuestType string

const (
	QuestDSA          QuestType = "DSA"
	QuestDatabase     QuestType = "Database"
	QuestSystemDesign QuestType = "SystemDesign"
	QuestMaths        QuestType = "Maths"
)

type BadgeRarity string

const (
	RarityCommon    BadgeRarity = "Common"
	RarityRare      BadgeRarity = "Rare"
	RarityEpic      BadgeRarity = "Epic"
	RarityLegendary BadgeRarity = "Legendary"
	RarityMythic    BadgeRarity = "Mythic"
	RaritySpecial   BadgeRarity = "Special"
)

type AchievementType string

const (
	AchievementFirstSteps        AchievementType = "FirstSteps"
	AchievementOnFire            AchievementType = "OnFire"
	AchievementLightning         AchievementType = "Lightning"
	AchievementUnstoppable       AchievementType = "Unstoppable"
	AchievementQuestMaster       AchievementType = "QuestMaster"
	AchievementDsaSage           AchievementType = "DsaSage"
	AchievementPolyglot          AchievementType = "Polyglot"
	AchievementCommunityChampion AchievementType = "CommunityChampion"
	AchievementMentor            AchievementType = "Mentor"
	AchievementSharpshooter      AchievementType = "Sharpshooter"
)

type LeaderboardType string

const (
	LeaderboardQuestChampions  LeaderboardType = "QuestChampions"
	LeaderboardStreakKings     LeaderboardType = "StreakKings"
	LeaderboardSpeedDemons     LeaderboardType = "SpeedDemons"
	LeaderboardHardCrushers    LeaderboardType = "HardCrushers"
	LeaderboardContestWarriors LeaderboardType = "ContestWarriors"
	LeaderboardRisingStars     LeaderboardType = "RisingStars"
)

// Valid reports whether t names a known leaderboard.
func (t LeaderboardType) Valid() bool {
	_, ok := LeaderboardDefinitions[t]
	return ok
}

type LeaderboardRefreshRate string

const (
	RefreshRealTime      LeaderboardRefreshRate = "RealTime"
	RefreshDaily         LeaderboardRefreshRate = "Daily"
	RefreshWeekly        LeaderboardRefreshRate = "Weekly"
	RefreshMonthly       LeaderboardRefreshRate = "Monthly"
	RefreshAfterContests LeaderboardRefreshRate = "AfterContests"
)

type ChallengeDifficulty string

const (
	DifficultyEasy   ChallengeDifficulty = "Easy"
	DifficultyMedium ChallengeDifficulty = "Medium"
	DifficultyHard   ChallengeDifficulty = "Hard"
)

type ActivityType string

const (
	ActivityProblemSolved       ActivityType = "ProblemSolved"
	ActivityStreakMaintained    ActivityType = "StreakMaintained"
	ActivityStreakLost          ActivityType = "StreakLost"
	ActivityQuestLevelCompleted ActivityType = "QuestLevelCompleted"
	ActivityQuestCompleted      ActivityType = "QuestCompleted"
	ActivityBadgeEarned         ActivityType = "BadgeEarned"
	ActivityChallengeCompleted  ActivityType = "ChallengeCompleted"
	ActivitySquadJoined         ActivityType = "SquadJoined"
	ActivitySquadBattleWon      ActivityType = "SquadBattleWon"
	ActivityMentorHelped        ActivityType = "MentorHelped"
	ActivityContestParticipated ActivityType = "ContestParticipated"
)

type NotificationType string

const (
	NotificationStreakAtRisk       NotificationType = "StreakAtRisk"
	NotificationLeaderboardChange  NotificationType = "LeaderboardChange"
	NotificationBadgeUnlocked      NotificationType = "BadgeUnlocked"
	NotificationSquadNeedsYou      NotificationType = "SquadNeedsYou"
	NotificationCommunityGoal      NotificationType = "CommunityGoal"
	NotificationQuestLevelUnlocked NotificationType = "QuestLevelUnlocked"
	NotificationSquadInvite        NotificationType = "SquadInvite"
	NotificationMentionInChat      NotificationType = "MentionInChat"
	NotificationDailyChallenge     NotificationType = "DailyChallenge"
	NotificationWeeklyEvent        NotificationType = "WeeklyEvent"
)

type NotificationPriority string

const (
	PriorityLow    NotificationPriority = "Low"
	PriorityMedium NotificationPriority = "Medium"
	PriorityHigh   NotificationPriority = "High"
	PriorityUrgent NotificationPriority = "Urgent"
)
