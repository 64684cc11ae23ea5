package domain

import (
	"testing"
	"time"
)

func TestPartitionKeys(t *testing.T) {
	cases := []struct {
		name string
		e    Entity
		want string
	}{
		{"user", &User{BaseEntity: BaseEntity{ID: "u1"}}, "u1"},
		{"stats", &UserStats{BaseEntity: BaseEntity{ID: "s1"}, UserID: "u1"}, "u1"},
		{"squad", &Squad{BaseEntity: BaseEntity{ID: "sq1"}}, "sq1"},
		{"achievement", &Achievement{UserID: "u2"}, "u2"},
		{"leaderboard", &LeaderboardEntry{Type: LeaderboardStreakKings}, "StreakKings"},
		{"challenge", &DailyChallenge{Date: "2024-06-10"}, "2024-06-10"},
		{"goal", &CommunityGoal{WeekStart: "2024-06-10"}, "2024-06-10"},
		{"activity", &Activity{Date: "2024-06-11"}, "2024-06-11"},
		{"notification", &Notification{UserID: "u3"}, "u3"},
		{"idempotency", &IdempotencyRecord{UserID: "u4"}, "u4"},
	}
	for _, tc := range cases {
		if got := tc.e.PartitionKey(); got != tc.want {
			t.Fatalf("%s: PartitionKey() = %q; want %q", tc.name, got, tc.want)
		}
	}
}

func TestMeta_ReturnsEmbeddedBase(t *testing.T) {
	u := &User{}
	u.Meta().ID = "abc"
	if u.ID != "abc" {
		t.Fatalf("Meta should point at embedded BaseEntity")
	}
}

func TestPagedList_Derived(t *testing.T) {
	empty := PagedList[int]{PageNumber: 1, PageSize: 10}
	if empty.TotalPages() != 0 || empty.HasNextPage() || empty.HasPreviousPage() {
		t.Fatalf("empty page derived fields wrong: %+v", empty)
	}

	p := PagedList[int]{PageNumber: 2, PageSize: 10, TotalCount: 25}
	if p.TotalPages() != 3 || !p.HasNextPage() || !p.HasPreviousPage() {
		t.Fatalf("middle page derived fields wrong")
	}
	last := PagedList[int]{PageNumber: 3, PageSize: 10, TotalCount: 25}
	if last.HasNextPage() {
		t.Fatalf("last page must not have next")
	}
	if (PagedList[int]{PageSize: 0, TotalCount: 5}).TotalPages() != 0 {
		t.Fatalf("zero page size should yield 0 pages")
	}
}

func TestWeekStart_Monday(t *testing.T) {
	cases := map[string]string{
		"2024-06-10": "2024-06-10", // Monday
		"2024-06-12": "2024-06-10",
		"2024-06-16": "2024-06-10", // Sunday
		"2024-06-17": "2024-06-17",
	}
	for in, want := range cases {
		d, err := ParseDate(in)
		if err != nil {
			t.Fatalf("parse %q: %v", in, err)
		}
		if got := FormatDate(WeekStart(d.Add(15 * time.Hour))); got != want {
			t.Fatalf("WeekStart(%s) = %s; want %s", in, got, want)
		}
	}
}

func TestSquad_Membership(t *testing.T) {
	s := Squad{MemberIDs: []string{"a", "b"}, MaxMembers: 2}
	if !s.IsFull() || !s.HasMember("a") || s.HasMember("c") || s.MemberCount() != 2 {
		t.Fatalf("squad helpers wrong: %+v", s)
	}
}

func TestAchievement_FromCatalogue(t *testing.T) {
	a, ok := NewAchievement("u1", AchievementOnFire)
	if !ok {
		t.Fatalf("OnFire should be in catalogue")
	}
	if a.RequiredProgress != 7 || a.Rarity != RarityCommon || a.IsUnlocked || a.PartitionKey() != "u1" {
		t.Fatalf("unexpected achievement: %+v", a)
	}
	a.Progress = 14
	if a.ProgressPercentage() != 100 {
		t.Fatalf("progress should clamp to 100, got %v", a.ProgressPercentage())
	}
	if _, ok := NewAchievement("u1", "Nope"); ok {
		t.Fatalf("unknown type should not build")
	}
}

func TestLeaderboardEntry_Changes(t *testing.T) {
	prevRank, prevScore := 7, 10.0
	e := LeaderboardEntry{Rank: 3, Score: 15, PreviousRank: &prevRank, PreviousScore: &prevScore}
	if e.RankChange() != 4 || e.ScoreChange() != 5 {
		t.Fatalf("changes wrong: %d %v", e.RankChange(), e.ScoreChange())
	}
	if (LeaderboardEntry{Rank: 1}).RankChange() != 0 {
		t.Fatalf("no previous rank should yield 0")
	}
	if !LeaderboardRisingStars.Valid() || LeaderboardType("Bogus").Valid() {
		t.Fatalf("Valid() wrong")
	}
}

func TestChallenge_CompletionRate(t *testing.T) {
	c := DailyChallenge{ParticipantIDs: []string{"a", "b", "c", "d"}, CompletedByIDs: []string{"a"}}
	if c.CompletionRate() != 25 || !c.CompletedBy("a") || c.CompletedBy("b") {
		t.Fatalf("completion helpers wrong")
	}
	if (DailyChallenge{}).CompletionRate() != 0 {
		t.Fatalf("no participants should yield 0")
	}
}

func TestNotification_ExpiryAndRead(t *testing.T) {
	now := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	n := Notification{ExpiresAt: &past}
	if !n.IsExpired(now) {
		t.Fatalf("expected expired")
	}
	if (Notification{}).IsExpired(now) {
		t.Fatalf("no expiry should never expire")
	}
	n.MarkRead(now)
	first := *n.ReadAt
	n.MarkRead(now.Add(time.Hour))
	if !n.IsRead || !n.ReadAt.Equal(first) {
		t.Fatalf("MarkRead should be idempotent")
	}
}

func TestNewUser_Defaults(t *testing.T) {
	u := NewUser("42", "octo", "octo_lc", "Octo", time.Now())
	if u.Role != RoleMember || u.Title != TitleNewcomer || !u.IsActive || u.Settings.Timezone != "UTC" {
		t.Fatalf("defaults wrong: %+v", u)
	}
	s := NewUserStats("u1", "octo_lc", time.Now())
	if s.QuestProgress == nil || s.PartitionKey() != "u1" {
		t.Fatalf("stats defaults wrong: %+v", s)
	}
	if !s.IsStale(time.Now().Add(time.Hour)) {
		t.Fatalf("stats synced before threshold should be stale")
	}
}

func TestIdempotencyID(t *testing.T) {
	if IdempotencyID("squads.create", "k1") != "squads.create:k1" {
		t.Fatalf("unexpected id")
	}
}
