package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tbourn/levelup-backend/internal/docstore"
	"github.com/tbourn/levelup-backend/internal/domain"
	"github.com/tbourn/levelup-backend/internal/errs"
	"github.com/tbourn/levelup-backend/internal/repo"
)

var testNow = time.Date(2024, 6, 12, 9, 0, 0, 0, time.UTC)

// tickClock advances one second per call so createdAt ordering is
// deterministic.
type tickClock struct{ t time.Time }

func (c *tickClock) now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

func newTestEnv(t *testing.T) (*Services, *repo.Repositories) {
	t.Helper()

	db, err := docstore.Open(filepath.Join(t.TempDir(), "svc.db"), docstore.Options{Silent: true})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	cs, err := docstore.NewContainers(db, docstore.Settings{})
	if err != nil {
		t.Fatalf("containers: %v", err)
	}
	clock := &tickClock{t: testNow}
	repos := repo.New(cs, repo.WithClock(clock.now), repo.WithLogger(zerolog.Nop()))

	svc := New(repos)
	fixed := func() time.Time { return testNow }
	svc.Users.Now, svc.Users.Log = fixed, zerolog.Nop()
	svc.Squads.Now, svc.Squads.Log = fixed, zerolog.Nop()
	svc.Leaderboards.Now, svc.Leaderboards.Log = fixed, zerolog.Nop()
	svc.Notifications.Now, svc.Notifications.Log = fixed, zerolog.Nop()
	svc.Community.Now = fixed
	return svc, repos
}

func register(t *testing.T, svc *Services, gh, login, leet string) *domain.User {
	t.Helper()
	u, _, err := svc.Users.Register(context.Background(), RegisterInput{
		GitHubID:         gh,
		GitHubUsername:   login,
		LeetCodeUsername: leet,
	})
	if err != nil {
		t.Fatalf("register %s: %v", login, err)
	}
	return u
}

// ----- Users -----

func TestUserService_RegisterIsIdempotent(t *testing.T) {
	svc, repos := newTestEnv(t)
	ctx := context.Background()

	in := RegisterInput{GitHubID: "gh-1", GitHubUsername: "octo-cat", LeetCodeUsername: "octo_lc", DisplayName: "  Octo   Cat "}
	u, created, err := svc.Users.Register(ctx, in)
	if err != nil || !created {
		t.Fatalf("Register = %v, %v", created, err)
	}
	if u.DisplayName != "Octo Cat" || u.Role != domain.RoleMember {
		t.Fatalf("unexpected profile: %+v", u)
	}
	stats, err := repos.Stats.GetByUserID(ctx, u.ID)
	if err != nil || stats.Value.LeetCodeUsername != "octo_lc" || stats.Value.TotalSolved != 0 {
		t.Fatalf("stats not created: %+v err=%v", stats.Value, err)
	}

	again, created, err := svc.Users.Register(ctx, in)
	if err != nil || created || again.ID != u.ID {
		t.Fatalf("second Register = %+v created=%v err=%v", again, created, err)
	}
}

func TestUserService_RegisterDisplayNameDefaultsToLogin(t *testing.T) {
	svc, _ := newTestEnv(t)
	u := register(t, svc, "gh-1", "octo", "octo_lc")
	if u.DisplayName != "octo" {
		t.Fatalf("DisplayName = %q; want login", u.DisplayName)
	}
}

func TestUserService_RegisterValidation(t *testing.T) {
	svc, _ := newTestEnv(t)
	ctx := context.Background()

	cases := []struct {
		name string
		in   RegisterInput
		kind errs.Kind
	}{
		{"no identity", RegisterInput{GitHubUsername: "octo", LeetCodeUsername: "lc"}, errs.KindUnauthorized},
		{"bad login", RegisterInput{GitHubID: "1", GitHubUsername: "-octo", LeetCodeUsername: "lc"}, errs.KindValidation},
		{"login too long", RegisterInput{GitHubID: "1", GitHubUsername: "a123456789012345678901234567890123456789", LeetCodeUsername: "lc"}, errs.KindValidation},
		{"bad leetcode", RegisterInput{GitHubID: "1", GitHubUsername: "octo", LeetCodeUsername: "has space"}, errs.KindValidation},
		{"missing leetcode", RegisterInput{GitHubID: "1", GitHubUsername: "octo"}, errs.KindValidation},
		{"short display name", RegisterInput{GitHubID: "1", GitHubUsername: "octo", LeetCodeUsername: "lc", DisplayName: "x"}, errs.KindValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := svc.Users.Register(ctx, tc.in)
			if got := errs.KindOf(err); got != tc.kind {
				t.Fatalf("kind = %v; want %v (err=%v)", got, tc.kind, err)
			}
		})
	}
}

func TestUserService_LeetCodeTaken(t *testing.T) {
	svc, _ := newTestEnv(t)
	register(t, svc, "gh-1", "alice", "shared_lc")

	_, _, err := svc.Users.Register(context.Background(), RegisterInput{GitHubID: "gh-2", GitHubUsername: "bob", LeetCodeUsername: "shared_lc"})
	if !errors.Is(err, ErrLeetCodeTaken) {
		t.Fatalf("expected ErrLeetCodeTaken, got %v", err)
	}
}

type failingStats struct{}

func (failingStats) Create(context.Context, *domain.UserStats) (domain.QueryResult[*domain.UserStats], error) {
	return domain.QueryResult[*domain.UserStats]{}, errs.Database("boom", nil)
}

func TestUserService_RegisterRollsBackWhenStatsFail(t *testing.T) {
	svc, repos := newTestEnv(t)
	svc.Users.Stats = failingStats{}

	_, _, err := svc.Users.Register(context.Background(), RegisterInput{GitHubID: "gh-1", GitHubUsername: "octo", LeetCodeUsername: "lc"})
	if !errors.Is(err, errs.ErrDatabase) {
		t.Fatalf("expected database error, got %v", err)
	}
	if _, err := repos.Users.GetByGitHubID(context.Background(), "gh-1"); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("user should have been rolled back, got %v", err)
	}
}

func TestUserService_CurrentAndUpdateProfile(t *testing.T) {
	svc, _ := newTestEnv(t)
	ctx := context.Background()

	if _, err := svc.Users.Current(ctx, "gh-404"); !errors.Is(err, ErrNotRegistered) {
		t.Fatalf("expected ErrNotRegistered, got %v", err)
	}
	if _, err := svc.Users.Current(ctx, ""); !errors.Is(err, errs.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}

	u := register(t, svc, "gh-1", "octo", "octo_lc")
	name := "The Octo"
	theme := domain.ThemeGraphMaster
	up, err := svc.Users.UpdateProfile(ctx, "gh-1", UpdateProfileInput{
		DisplayName:    &name,
		ProfileTheme:   &theme,
		ShowcaseBadges: []string{"OnFire", "OnFire", "FirstSteps"},
	}, u.ETag)
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if up.DisplayName != "The Octo" || up.ProfileTheme != theme || len(up.ShowcaseBadges) != 2 {
		t.Fatalf("unexpected update: %+v", up)
	}
	if up.ETag == u.ETag {
		t.Fatalf("ETag should change on update")
	}

	// The ETag from registration is now stale.
	if _, err := svc.Users.UpdateProfile(ctx, "gh-1", UpdateProfileInput{DisplayName: &name}, u.ETag); !errors.Is(err, errs.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	bad := domain.ProfileTheme("Neon")
	if _, err := svc.Users.UpdateProfile(ctx, "gh-1", UpdateProfileInput{ProfileTheme: &bad}, ""); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("expected validation for theme, got %v", err)
	}
	if _, err := svc.Users.UpdateProfile(ctx, "gh-1", UpdateProfileInput{ShowcaseBadges: []string{"Nope"}}, ""); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("expected validation for badge, got %v", err)
	}
	if _, err := svc.Users.UpdateProfile(ctx, "gh-1", UpdateProfileInput{Settings: &domain.UserSettings{StreakReminderTime: "25:00"}}, ""); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("expected validation for reminder, got %v", err)
	}
	if _, err := svc.Users.UpdateProfile(ctx, "gh-1", UpdateProfileInput{Settings: &domain.UserSettings{Timezone: "Mars/Olympus"}}, ""); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("expected validation for timezone, got %v", err)
	}

	found, err := svc.Users.Search(ctx, "octo", 0)
	if err != nil || len(found) != 1 {
		t.Fatalf("Search: %+v err=%v", found, err)
	}
}

// ----- Squads -----

func TestSquadService_CreateAndJoin(t *testing.T) {
	svc, repos := newTestEnv(t)
	ctx := context.Background()

	captain := register(t, svc, "gh-1", "cap", "cap_lc")
	joiner := register(t, svc, "gh-2", "joe", "joe_lc")
	late := register(t, svc, "gh-3", "late", "late_lc")

	sq, err := svc.Squads.Create(ctx, captain, CreateSquadInput{
		Name:         "  Go   Gophers ",
		Tags:         []string{"Go", "go", " Backend "},
		MaxMembers:   2,
		IsRecruiting: true,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if sq.Name != "Go Gophers" || len(sq.MemberIDs) != 1 || sq.MemberIDs[0] != captain.ID || sq.CaptainUserID != captain.ID {
		t.Fatalf("unexpected squad: %+v", sq)
	}
	if len(sq.Tags) != 2 || sq.Tags[0] != "go" || sq.Tags[1] != "backend" {
		t.Fatalf("tags = %v", sq.Tags)
	}
	stored, _ := repos.Users.GetByID(ctx, captain.ID, captain.ID)
	if stored.Value.SquadID != sq.ID {
		t.Fatalf("captain not linked: %q", stored.Value.SquadID)
	}

	other := register(t, svc, "gh-4", "other", "other_lc")
	if _, err := svc.Squads.Create(ctx, other, CreateSquadInput{Name: "go gophers"}); !errors.Is(err, ErrSquadNameTaken) {
		t.Fatalf("expected ErrSquadNameTaken, got %v", err)
	}
	if _, err := svc.Squads.Create(ctx, captain, CreateSquadInput{Name: "Second"}); !errors.Is(err, ErrAlreadyInSquad) {
		t.Fatalf("expected ErrAlreadyInSquad, got %v", err)
	}

	joined, err := svc.Squads.Join(ctx, sq.ID, joiner)
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if len(joined.MemberIDs) != 2 || joined.IsRecruiting {
		t.Fatalf("squad should be full and closed: %+v", joined)
	}
	if _, err := svc.Squads.Join(ctx, sq.ID, joiner); !errors.Is(err, ErrAlreadyMember) {
		t.Fatalf("expected ErrAlreadyMember, got %v", err)
	}
	if _, err := svc.Squads.Join(ctx, sq.ID, late); !errors.Is(err, ErrNotRecruiting) {
		t.Fatalf("expected ErrNotRecruiting, got %v", err)
	}

	members, err := svc.Squads.MembersOf(ctx, sq.ID)
	if err != nil || len(members) != 2 {
		t.Fatalf("MembersOf: %d err=%v", len(members), err)
	}
	feed, err := repos.Activities.GetByUserID(ctx, joiner.ID, 10)
	if err != nil || len(feed.Value) != 1 || feed.Value[0].ActivityType != domain.ActivitySquadJoined || feed.Value[0].Date != "2024-06-12" {
		t.Fatalf("join activity: %+v err=%v", feed.Value, err)
	}
}

func TestSquadService_CreateValidation(t *testing.T) {
	svc, _ := newTestEnv(t)
	captain := register(t, svc, "gh-1", "cap", "cap_lc")

	cases := []struct {
		name string
		in   CreateSquadInput
	}{
		{"short name", CreateSquadInput{Name: "ab"}},
		{"long name", CreateSquadInput{Name: "abcdefghijklmnopqrstuvwxyz012345"}},
		{"bad chars", CreateSquadInput{Name: "Squad!"}},
		{"too many tags", CreateSquadInput{Name: "Tags", Tags: []string{"a", "b", "c", "d", "e", "f"}}},
		{"long tag", CreateSquadInput{Name: "Tags", Tags: []string{"abcdefghijklmnopqrstu"}}},
		{"size too small", CreateSquadInput{Name: "Solo", MaxMembers: 1}},
		{"size too large", CreateSquadInput{Name: "Huge", MaxMembers: 50}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Squads.Create(context.Background(), captain, tc.in); !errors.Is(err, errs.ErrValidation) {
				t.Fatalf("expected validation, got %v", err)
			}
		})
	}
}

// racingSquads bumps the stored squad right after the service reads it, so
// the service's write carries a stale ETag.
type racingSquads struct {
	*repo.SquadRepository
	raced bool
}

func (r *racingSquads) GetByID(ctx context.Context, id, pk string) (domain.QueryResult[*domain.Squad], error) {
	res, err := r.SquadRepository.GetByID(ctx, id, pk)
	if err != nil || r.raced {
		return res, err
	}
	r.raced = true
	other, err := r.SquadRepository.GetByID(ctx, id, pk)
	if err != nil {
		return res, err
	}
	other.Value.Description = "changed meanwhile"
	if _, err := r.SquadRepository.Update(ctx, other.Value); err != nil {
		return res, err
	}
	return res, nil
}

func TestSquadService_JoinDetectsConcurrentWrite(t *testing.T) {
	svc, repos := newTestEnv(t)
	ctx := context.Background()

	captain := register(t, svc, "gh-1", "cap", "cap_lc")
	joiner := register(t, svc, "gh-2", "joe", "joe_lc")
	sq, err := svc.Squads.Create(ctx, captain, CreateSquadInput{Name: "Racers", IsRecruiting: true})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	svc.Squads.Squads = &racingSquads{SquadRepository: repos.Squads}
	if _, err := svc.Squads.Join(ctx, sq.ID, joiner); !errors.Is(err, errs.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	stored, _ := repos.Users.GetByID(ctx, joiner.ID, joiner.ID)
	if stored.Value.SquadID != "" {
		t.Fatalf("joiner must not be linked after a failed join")
	}

	// A retry reads the fresh ETag and succeeds.
	if _, err := svc.Squads.Join(ctx, sq.ID, joiner); err != nil {
		t.Fatalf("retry Join: %v", err)
	}
}

// touchUser rewrites the stored profile so any copy the caller holds carries
// a stale ETag.
func touchUser(t *testing.T, repos *repo.Repositories, id string) {
	t.Helper()
	ctx := context.Background()
	res, err := repos.Users.GetByID(ctx, id, id)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	res.Value.DisplayName = "renamed meanwhile"
	if _, err := repos.Users.Update(ctx, res.Value); err != nil {
		t.Fatalf("Update: %v", err)
	}
}

func TestSquadService_JoinUndoesMembershipWhenLinkFails(t *testing.T) {
	svc, repos := newTestEnv(t)
	ctx := context.Background()

	captain := register(t, svc, "gh-1", "cap", "cap_lc")
	joiner := register(t, svc, "gh-2", "joe", "joe_lc")
	sq, err := svc.Squads.Create(ctx, captain, CreateSquadInput{Name: "Pair", MaxMembers: 2, IsRecruiting: true})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	touchUser(t, repos, joiner.ID)
	if _, err := svc.Squads.Join(ctx, sq.ID, joiner); !errors.Is(err, errs.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if joiner.SquadID != "" {
		t.Fatalf("caller copy still linked: %q", joiner.SquadID)
	}
	stored, err := repos.Squads.GetByID(ctx, sq.ID, sq.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.Value.HasMember(joiner.ID) || len(stored.Value.MemberIDs) != 1 {
		t.Fatalf("joiner left in squad: %v", stored.Value.MemberIDs)
	}
	if !stored.Value.IsRecruiting {
		t.Fatalf("squad should be recruiting again after the undo")
	}

	fresh, err := repos.Users.GetByID(ctx, joiner.ID, joiner.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	joined, err := svc.Squads.Join(ctx, sq.ID, fresh.Value)
	if err != nil {
		t.Fatalf("retry Join: %v", err)
	}
	if len(joined.MemberIDs) != 2 || joined.IsRecruiting {
		t.Fatalf("unexpected squad after retry: %+v", joined)
	}
}

func TestSquadService_CreateRemovesSquadWhenCaptainLinkFails(t *testing.T) {
	svc, repos := newTestEnv(t)
	ctx := context.Background()

	captain := register(t, svc, "gh-1", "cap", "cap_lc")
	touchUser(t, repos, captain.ID)
	if _, err := svc.Squads.Create(ctx, captain, CreateSquadInput{Name: "Orphans"}); !errors.Is(err, errs.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if captain.SquadID != "" {
		t.Fatalf("caller copy still linked: %q", captain.SquadID)
	}
	taken, err := repos.Squads.ExistsByName(ctx, "Orphans")
	if err != nil {
		t.Fatalf("ExistsByName: %v", err)
	}
	if taken {
		t.Fatalf("squad left behind after failed captain link")
	}

	fresh, err := repos.Users.GetByID(ctx, captain.ID, captain.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	sq, err := svc.Squads.Create(ctx, fresh.Value, CreateSquadInput{Name: "Orphans"})
	if err != nil {
		t.Fatalf("retry Create: %v", err)
	}
	if sq.CaptainUserID != captain.ID {
		t.Fatalf("unexpected captain: %q", sq.CaptainUserID)
	}
}

func TestSquadService_ListAndTop(t *testing.T) {
	svc, repos := newTestEnv(t)
	ctx := context.Background()

	for i, name := range []string{"Alpha Team", "Beta Team", "Gamma"} {
		captain := register(t, svc, "gh-"+name, "cap"+string(rune('a'+i)), "lc"+string(rune('a'+i)))
		sq, err := svc.Squads.Create(ctx, captain, CreateSquadInput{Name: name, Tags: []string{"dsa"}, IsRecruiting: i != 2})
		if err != nil {
			t.Fatalf("Create %s: %v", name, err)
		}
		sq.WeeklyPoints, sq.TotalPoints = 10*(i+1), 100*(3-i)
		if _, err := repos.Squads.Update(ctx, sq); err != nil {
			t.Fatalf("seed points: %v", err)
		}
	}

	recruiting, err := svc.Squads.List(ctx, SquadFilter{})
	if err != nil || len(recruiting) != 2 {
		t.Fatalf("List(recruiting): %d err=%v", len(recruiting), err)
	}
	found, err := svc.Squads.List(ctx, SquadFilter{Search: "team"})
	if err != nil || len(found) != 2 {
		t.Fatalf("List(search): %d err=%v", len(found), err)
	}
	tagged, err := svc.Squads.List(ctx, SquadFilter{Tag: "DSA", Limit: 2})
	if err != nil || len(tagged) != 2 {
		t.Fatalf("List(tag): %d err=%v", len(tagged), err)
	}

	weekly, err := svc.Squads.Top(ctx, "weekly", 1)
	if err != nil || weekly[0].Name != "Gamma" {
		t.Fatalf("Top(weekly): %+v err=%v", weekly, err)
	}
	all, err := svc.Squads.Top(ctx, "", 1)
	if err != nil || all[0].Name != "Alpha Team" {
		t.Fatalf("Top(all): %+v err=%v", all, err)
	}
	if _, err := svc.Squads.Top(ctx, "yearly", 1); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("expected validation for period, got %v", err)
	}
}

// ----- Notifications -----

func TestNotificationService_Inbox(t *testing.T) {
	svc, _ := newTestEnv(t)
	ctx := context.Background()

	past := testNow.Add(-time.Minute)
	var ids []string
	for i := 0; i < 3; i++ {
		n := &domain.Notification{UserID: "u1", Type: domain.NotificationBadgeUnlocked, Title: "badge"}
		if i == 0 {
			n.ExpiresAt = &past
		}
		got, err := svc.Notifications.Notify(ctx, n)
		if err != nil {
			t.Fatalf("Notify: %v", err)
		}
		if got.Priority != domain.PriorityMedium {
			t.Fatalf("default priority = %q", got.Priority)
		}
		ids = append(ids, got.ID)
	}
	if _, err := svc.Notifications.Notify(ctx, &domain.Notification{}); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("expected validation for missing user, got %v", err)
	}

	page, err := svc.Notifications.List(ctx, "u1", 1, 2, "")
	if err != nil || len(page.Value.Items) != 2 || page.Value.TotalCount != 3 || page.ContinuationToken == "" {
		t.Fatalf("List: %+v err=%v", page.Value, err)
	}
	next, err := svc.Notifications.List(ctx, "u1", 2, 2, page.ContinuationToken)
	if err != nil || len(next.Value.Items) != 1 {
		t.Fatalf("List(next): %+v err=%v", next.Value, err)
	}

	if n, err := svc.Notifications.UnreadCount(ctx, "u1"); err != nil || n != 3 {
		t.Fatalf("UnreadCount = %d err=%v", n, err)
	}
	res, err := svc.Notifications.MarkAllRead(ctx, "u1")
	if err != nil || res.Succeeded != 3 {
		t.Fatalf("MarkAllRead: %+v err=%v", res, err)
	}
	if n, _ := svc.Notifications.UnreadCount(ctx, "u1"); n != 0 {
		t.Fatalf("UnreadCount after mark-all = %d", n)
	}

	swept, err := svc.Notifications.Sweep(ctx)
	if err != nil || swept.Succeeded != 1 {
		t.Fatalf("Sweep: %+v err=%v", swept, err)
	}

	if err := svc.Notifications.Delete(ctx, "u2", ids[1]); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("deleting another user's notification: %v", err)
	}
	if err := svc.Notifications.Delete(ctx, "u1", ids[1]); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := svc.Notifications.Delete(ctx, "", ids[2]); !errors.Is(err, errs.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestNotificationService_RunSweeperStopsOnCancel(t *testing.T) {
	svc, _ := newTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.Notifications.RunSweeper(ctx, 5*time.Millisecond)
		close(done)
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper did not stop")
	}
}

// ----- Leaderboards -----

func setStreak(t *testing.T, repos *repo.Repositories, userID string, streak int) {
	t.Helper()
	ctx := context.Background()
	st, err := repos.Stats.GetByUserID(ctx, userID)
	if err != nil {
		t.Fatalf("stats %s: %v", userID, err)
	}
	st.Value.CurrentStreak = streak
	if _, err := repos.Stats.Update(ctx, st.Value); err != nil {
		t.Fatalf("update stats: %v", err)
	}
}

func TestLeaderboardService_Publish(t *testing.T) {
	svc, repos := newTestEnv(t)
	ctx := context.Background()

	a := register(t, svc, "gh-a", "ann", "ann_lc")
	b := register(t, svc, "gh-b", "ben", "ben_lc")
	c := register(t, svc, "gh-c", "cat", "cat_lc")
	d := register(t, svc, "gh-d", "dan", "dan_lc")

	hidden := domain.UserSettings{Timezone: "UTC", ShowOnLeaderboard: false}
	if _, err := svc.Users.UpdateProfile(ctx, "gh-c", UpdateProfileInput{Settings: &hidden}, ""); err != nil {
		t.Fatalf("hide c: %v", err)
	}

	res, err := svc.Leaderboards.Publish(ctx, domain.LeaderboardStreakKings, []Standing{
		{UserID: a.ID, Rank: 1, Score: 10},
		{UserID: b.ID, Rank: 1, Score: 10},
		{UserID: c.ID, Rank: 3, Score: 7},
		{UserID: d.ID, Rank: 4, Score: 3},
		{UserID: "ghost", Rank: 5, Score: 1},
	})
	if err != nil || !res.OK() || res.Succeeded != 3 {
		t.Fatalf("Publish: %+v err=%v", res, err)
	}
	// c is hidden and ghost has no profile; ranks are stored as given.
	board, err := svc.Leaderboards.Board(ctx, domain.LeaderboardStreakKings, 0)
	if err != nil || len(board.Entries) != 3 {
		t.Fatalf("Board: %+v err=%v", board, err)
	}
	if board.Entries[0].Rank != 1 || board.Entries[1].Rank != 1 || board.Entries[2].Rank != 4 || board.Entries[2].UserID != d.ID {
		t.Fatalf("unexpected ranks: %d %d %d", board.Entries[0].Rank, board.Entries[1].Rank, board.Entries[2].Rank)
	}
	if board.Entries[2].DisplayName != d.DisplayName || board.Name != "Streak Kings" {
		t.Fatalf("entry or metadata not filled: %+v %+v", board.Entries[2], board.LeaderboardMetadata)
	}

	// d climbs to the top and b drops off.
	if _, err := svc.Leaderboards.Publish(ctx, domain.LeaderboardStreakKings, []Standing{
		{UserID: d.ID, Rank: 1, Score: 20},
		{UserID: a.ID, Rank: 2, Score: 11},
	}); err != nil {
		t.Fatalf("second Publish: %v", err)
	}
	pos, err := svc.Leaderboards.Around(ctx, domain.LeaderboardStreakKings, d.ID, 1)
	if err != nil {
		t.Fatalf("Around: %v", err)
	}
	if pos.Entry.Rank != 1 || pos.Entry.PreviousRank == nil || *pos.Entry.PreviousRank != 4 || pos.Entry.RankChange() != 3 {
		t.Fatalf("unexpected position: %+v", pos.Entry)
	}
	if pos.Entry.PreviousScore == nil || *pos.Entry.PreviousScore != 3 {
		t.Fatalf("previous score not carried: %+v", pos.Entry.PreviousScore)
	}
	if len(pos.Neighbors) != 2 {
		t.Fatalf("neighbors = %d; want 2", len(pos.Neighbors))
	}
	if _, err := repos.Leaderboards.GetUserEntry(ctx, domain.LeaderboardStreakKings, b.ID); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("b should have been removed, got %v", err)
	}

	summary, err := svc.Leaderboards.Summary(ctx, a.ID)
	if err != nil || len(summary) != 1 {
		t.Fatalf("Summary: %+v err=%v", summary, err)
	}

	if _, err := svc.Leaderboards.Board(ctx, "Nope", 10); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("expected validation for unknown board, got %v", err)
	}
}

func TestLeaderboardService_PublishValidation(t *testing.T) {
	svc, _ := newTestEnv(t)
	ctx := context.Background()
	svc.Leaderboards.BoardSize = 2

	cases := map[string]struct {
		board     domain.LeaderboardType
		standings []Standing
	}{
		"unknown board": {"Nope", nil},
		"missing user":  {domain.LeaderboardStreakKings, []Standing{{Rank: 1}}},
		"zero rank":     {domain.LeaderboardStreakKings, []Standing{{UserID: "u1", Rank: 0}}},
		"duplicate":     {domain.LeaderboardStreakKings, []Standing{{UserID: "u1", Rank: 1}, {UserID: "u1", Rank: 2}}},
		"too many":      {domain.LeaderboardStreakKings, []Standing{{UserID: "u1", Rank: 1}, {UserID: "u2", Rank: 2}, {UserID: "u3", Rank: 3}}},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := svc.Leaderboards.Publish(ctx, tc.board, tc.standings); !errors.Is(err, errs.ErrValidation) {
				t.Fatalf("err = %v; want validation", err)
			}
		})
	}
}

func TestLeaderboardService_Overview(t *testing.T) {
	svc, _ := newTestEnv(t)
	boards, err := svc.Leaderboards.Overview(context.Background(), 5)
	if err != nil || len(boards) != len(domain.LeaderboardDefinitions) {
		t.Fatalf("Overview: %d err=%v", len(boards), err)
	}
	for _, b := range boards {
		if b.Entries == nil {
			t.Fatalf("board %s has nil entries", b.Type)
		}
	}
}

func TestCatalogues_Ordered(t *testing.T) {
	badges := BadgeCatalogue()
	if len(badges) != len(domain.BadgeDefinitions) {
		t.Fatalf("badges = %d", len(badges))
	}
	for i := 1; i < len(badges); i++ {
		if rarityOrder[badges[i-1].Rarity] > rarityOrder[badges[i].Rarity] {
			t.Fatalf("badges not ordered by rarity at %d", i)
		}
	}
	defs := Definitions()
	for i := 1; i < len(defs); i++ {
		if defs[i-1].Type >= defs[i].Type {
			t.Fatalf("definitions not sorted at %d", i)
		}
	}
}

// ----- Progress and community -----

func TestProgressService_TopAndAchievements(t *testing.T) {
	svc, repos := newTestEnv(t)
	ctx := context.Background()

	a := register(t, svc, "gh-a", "ann", "ann_lc")
	setStreak(t, repos, a.ID, 4)
	top, err := svc.Progress.Top(ctx, MetricStreak, 0)
	if err != nil || len(top) != 1 || top[0].CurrentStreak != 4 {
		t.Fatalf("Top: %+v err=%v", top, err)
	}
	if _, err := svc.Progress.Top(ctx, "elo", 5); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("expected validation for metric, got %v", err)
	}

	ach, _ := domain.NewAchievement(a.ID, domain.AchievementOnFire)
	ach.IsUnlocked, ach.UnlockedAt = true, &testNow
	if _, err := repos.Achievements.Create(ctx, ach); err != nil {
		t.Fatalf("seed achievement: %v", err)
	}
	locked, _ := domain.NewAchievement(a.ID, domain.AchievementLightning)
	if _, err := repos.Achievements.Create(ctx, locked); err != nil {
		t.Fatalf("seed achievement: %v", err)
	}
	all, err := svc.Progress.UserAchievements(ctx, a.ID, false)
	if err != nil || len(all) != 2 {
		t.Fatalf("UserAchievements(all): %d err=%v", len(all), err)
	}
	unlocked, err := svc.Progress.UserAchievements(ctx, a.ID, true)
	if err != nil || len(unlocked) != 1 {
		t.Fatalf("UserAchievements(unlocked): %d err=%v", len(unlocked), err)
	}
	st, err := svc.Progress.UserStats(ctx, a.ID)
	if err != nil || st.UserID != a.ID {
		t.Fatalf("UserStats: %+v err=%v", st, err)
	}
}

func TestCommunityService_Challenges(t *testing.T) {
	svc, repos := newTestEnv(t)
	ctx := context.Background()

	for _, date := range []string{"2024-06-01", "2024-06-08", "2024-06-12"} {
		if _, err := repos.Challenges.Create(ctx, &domain.DailyChallenge{Date: date, Title: date, IsActive: true}); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	week, err := svc.Community.ChallengesBetween(ctx, "", "")
	if err != nil || len(week) != 2 {
		t.Fatalf("default range: %d err=%v", len(week), err)
	}
	all, err := svc.Community.ChallengesBetween(ctx, "2024-06-01", "2024-06-12")
	if err != nil || len(all) != 3 {
		t.Fatalf("explicit range: %d err=%v", len(all), err)
	}
	if _, err := svc.Community.ChallengesBetween(ctx, "2024-01-01", "2024-06-12"); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("expected validation for long range, got %v", err)
	}
	if _, err := svc.Community.ChallengesBetween(ctx, "June", ""); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("expected validation for bad date, got %v", err)
	}
	if c, err := svc.Community.Challenge(ctx, " 2024-06-08 "); err != nil || c.Title != "2024-06-08" {
		t.Fatalf("Challenge: %+v err=%v", c, err)
	}
	if active, err := svc.Community.ActiveChallenges(ctx, 0); err != nil || len(active) != 3 {
		t.Fatalf("ActiveChallenges: %d err=%v", len(active), err)
	}
}

func TestCommunityService_Feed(t *testing.T) {
	svc, repos := newTestEnv(t)
	ctx := context.Background()

	for _, typ := range []domain.ActivityType{domain.ActivityProblemSolved, domain.ActivityBadgeEarned, domain.ActivityProblemSolved} {
		if _, err := repos.Activities.Create(ctx, &domain.Activity{UserID: "u1", Date: "2024-06-12", ActivityType: typ}); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	feed, err := svc.Community.Feed(ctx, "", 0)
	if err != nil || len(feed) != 3 {
		t.Fatalf("Feed: %d err=%v", len(feed), err)
	}
	solved, err := svc.Community.Feed(ctx, domain.ActivityProblemSolved, 10)
	if err != nil || len(solved) != 2 {
		t.Fatalf("Feed(type): %d err=%v", len(solved), err)
	}
	mine, err := svc.Community.UserActivity(ctx, "u1", 1)
	if err != nil || len(mine) != 1 {
		t.Fatalf("UserActivity: %d err=%v", len(mine), err)
	}
}
