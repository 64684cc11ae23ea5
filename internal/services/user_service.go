// Package services – UserService
//
// This file implements registration and profile management. The caller's
// identity (the GitHub account id supplied by the authentication front door)
// is the natural key of a profile: registering twice returns the existing
// profile instead of creating a second one. Registration also creates the
// user's empty stats document.
package services

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/levelup-backend/internal/domain"
	"github.com/tbourn/levelup-backend/internal/errs"
)

// UserRepo is the user persistence contract required by UserService.
type UserRepo interface {
	GetByID(ctx context.Context, id, pk string) (domain.QueryResult[*domain.User], error)
	Create(ctx context.Context, u *domain.User) (domain.QueryResult[*domain.User], error)
	Update(ctx context.Context, u *domain.User) (domain.QueryResult[*domain.User], error)
	Delete(ctx context.Context, id, pk string) error
	GetByGitHubID(ctx context.Context, githubID string) (domain.QueryResult[*domain.User], error)
	GetByLeetCodeUsername(ctx context.Context, username string) (domain.QueryResult[*domain.User], error)
	SearchByDisplayName(ctx context.Context, term string, limit int) (domain.QueryResult[[]*domain.User], error)
}

// StatsWriter creates the stats document of a new user.
type StatsWriter interface {
	Create(ctx context.Context, s *domain.UserStats) (domain.QueryResult[*domain.UserStats], error)
}

// RegisterInput carries what a new member supplies. GitHubID comes from the
// authenticated identity, never from the request body.
type RegisterInput struct {
	GitHubID         string
	GitHubUsername   string
	LeetCodeUsername string
	DisplayName      string
	Email            string
	AvatarURL        string
}

// UpdateProfileInput is a partial update; nil fields are left unchanged.
type UpdateProfileInput struct {
	DisplayName    *string
	AvatarURL      *string
	ProfileTheme   *domain.ProfileTheme
	ShowcaseBadges []string
	Settings       *domain.UserSettings
}

// UserService manages member profiles.
type UserService struct {
	Users UserRepo
	Stats StatsWriter

	// Now is the clock used for timestamps that are not set by the store.
	Now func() time.Time
	Log zerolog.Logger
	// SearchLimit is used when a search does not pass a limit.
	SearchLimit int
}

func NewUserService(users UserRepo, stats StatsWriter) *UserService {
	return &UserService{
		Users:       users,
		Stats:       stats,
		Now:         time.Now,
		Log:         log.Logger.With().Str("component", "user_service").Logger(),
		SearchLimit: 20,
	}
}

// Register creates the caller's profile and an empty stats document. When the
// caller is already registered the existing profile is returned with
// created=false.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (u *domain.User, created bool, err error) {
	in.GitHubID = strings.TrimSpace(in.GitHubID)
	if in.GitHubID == "" {
		return nil, false, errs.Unauthorized("")
	}
	existing, err := s.Users.GetByGitHubID(ctx, in.GitHubID)
	switch {
	case err == nil:
		return existing.Value, false, nil
	case !errors.Is(err, errs.ErrNotFound):
		return nil, false, err
	}

	in.GitHubUsername = strings.TrimSpace(in.GitHubUsername)
	in.LeetCodeUsername = strings.TrimSpace(in.LeetCodeUsername)
	in.DisplayName = normalizeSpaces(in.DisplayName)
	if in.DisplayName == "" {
		in.DisplayName = in.GitHubUsername
	}
	if err := validateGitHubUsername(in.GitHubUsername); err != nil {
		return nil, false, err
	}
	if err := validateLeetCodeUsername(in.LeetCodeUsername); err != nil {
		return nil, false, err
	}
	if err := validateDisplayName(in.DisplayName); err != nil {
		return nil, false, err
	}
	if err := s.leetCodeAvailable(ctx, in.LeetCodeUsername, ""); err != nil {
		return nil, false, err
	}

	now := s.Now()
	u = domain.NewUser(in.GitHubID, in.GitHubUsername, in.LeetCodeUsername, in.DisplayName, now)
	u.Email = strings.TrimSpace(in.Email)
	u.AvatarURL = strings.TrimSpace(in.AvatarURL)
	if _, err := s.Users.Create(ctx, u); err != nil {
		return nil, false, err
	}

	if _, err := s.Stats.Create(ctx, domain.NewUserStats(u.ID, u.LeetCodeUsername, now)); err != nil {
		// Without stats the profile is unusable; roll it back so a retry
		// starts clean.
		if derr := s.Users.Delete(context.WithoutCancel(ctx), u.ID, u.ID); derr != nil {
			s.Log.Error().Err(derr).Str("user_id", u.ID).Msg("rollback of user after stats failure")
		}
		return nil, false, err
	}
	return u, true, nil
}

// Current returns the profile of the caller identified by githubID.
func (s *UserService) Current(ctx context.Context, githubID string) (*domain.User, error) {
	if strings.TrimSpace(githubID) == "" {
		return nil, errs.Unauthorized("")
	}
	res, err := s.Users.GetByGitHubID(ctx, githubID)
	if errors.Is(err, errs.ErrNotFound) {
		return nil, ErrNotRegistered
	}
	if err != nil {
		return nil, err
	}
	return res.Value, nil
}

func (s *UserService) Get(ctx context.Context, id string) (*domain.User, error) {
	res, err := s.Users.GetByID(ctx, id, id)
	if err != nil {
		return nil, err
	}
	return res.Value, nil
}

// UpdateProfile applies in to the caller's profile. A non-empty ifMatch makes
// the write conditional on that ETag; otherwise the ETag just read is used,
// so a concurrent writer still causes a Conflict.
func (s *UserService) UpdateProfile(ctx context.Context, githubID string, in UpdateProfileInput, ifMatch string) (*domain.User, error) {
	u, err := s.Current(ctx, githubID)
	if err != nil {
		return nil, err
	}
	if ifMatch = strings.TrimSpace(ifMatch); ifMatch != "" {
		u.ETag = ifMatch
	}

	if in.DisplayName != nil {
		name := normalizeSpaces(*in.DisplayName)
		if err := validateDisplayName(name); err != nil {
			return nil, err
		}
		u.DisplayName = name
	}
	if in.AvatarURL != nil {
		u.AvatarURL = strings.TrimSpace(*in.AvatarURL)
	}
	if in.ProfileTheme != nil {
		if err := validateTheme(*in.ProfileTheme); err != nil {
			return nil, err
		}
		u.ProfileTheme = *in.ProfileTheme
	}
	if in.ShowcaseBadges != nil {
		badges, err := showcase(in.ShowcaseBadges)
		if err != nil {
			return nil, err
		}
		u.ShowcaseBadges = badges
	}
	if in.Settings != nil {
		if err := validateReminder(in.Settings.StreakReminderTime); err != nil {
			return nil, err
		}
		settings := *in.Settings
		if settings.Timezone == "" {
			settings.Timezone = u.Settings.Timezone
		}
		if _, err := time.LoadLocation(settings.Timezone); err != nil {
			return nil, errs.Validation("Timezone", "Unknown time zone.")
		}
		u.Settings = settings
	}
	u.LastActiveAt = s.Now().UTC()

	if _, err := s.Users.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Search finds users by display name.
func (s *UserService) Search(ctx context.Context, term string, limit int) ([]*domain.User, error) {
	res, err := s.Users.SearchByDisplayName(ctx, term, limitOr(limit, s.SearchLimit))
	if err != nil {
		return nil, err
	}
	return res.Value, nil
}

// leetCodeAvailable fails with ErrLeetCodeTaken when username is linked to a
// user other than selfID.
func (s *UserService) leetCodeAvailable(ctx context.Context, username, selfID string) error {
	res, err := s.Users.GetByLeetCodeUsername(ctx, username)
	switch {
	case errors.Is(err, errs.ErrNotFound):
		return nil
	case err != nil:
		return err
	case res.Value.ID != selfID:
		return ErrLeetCodeTaken
	}
	return nil
}

// showcase validates the badges a user pins to their profile.
func showcase(badges []string) ([]string, error) {
	out := make([]string, 0, len(badges))
	for _, b := range badges {
		b = strings.TrimSpace(b)
		if _, ok := domain.BadgeDefinitions[domain.AchievementType(b)]; !ok {
			return nil, errs.Validation("ShowcaseBadges", "Unknown badge '"+b+"'.")
		}
		if !slices.Contains(out, b) {
			out = append(out, b)
		}
	}
	if len(out) > ShowcaseBadgesMax {
		return nil, errs.Validation("ShowcaseBadges", "At most 3 badges can be showcased.")
	}
	return out, nil
}
