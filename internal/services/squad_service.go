// Package services – SquadService
//
// Squads are small teams. The captain is the first member and each user
// belongs to at most one squad. Membership changes are read-modify-write
// cycles guarded by the squad's ETag, so two users racing for the last slot
// cannot both succeed: the loser gets a Conflict and may retry.
package services

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/levelup-backend/internal/domain"
	"github.com/tbourn/levelup-backend/internal/errs"
)

// SquadRepo is the squad persistence contract required by SquadService.
type SquadRepo interface {
	GetByID(ctx context.Context, id, pk string) (domain.QueryResult[*domain.Squad], error)
	Create(ctx context.Context, s *domain.Squad) (domain.QueryResult[*domain.Squad], error)
	Update(ctx context.Context, s *domain.Squad) (domain.QueryResult[*domain.Squad], error)
	Delete(ctx context.Context, id, pk string) error
	GetRecruiting(ctx context.Context, limit int) (domain.QueryResult[[]*domain.Squad], error)
	GetTopByPoints(ctx context.Context, limit int) (domain.QueryResult[[]*domain.Squad], error)
	GetTopByWeeklyPoints(ctx context.Context, limit int) (domain.QueryResult[[]*domain.Squad], error)
	SearchByName(ctx context.Context, term string, limit int) (domain.QueryResult[[]*domain.Squad], error)
	GetByTag(ctx context.Context, tag string) (domain.QueryResult[[]*domain.Squad], error)
	ExistsByName(ctx context.Context, name string) (bool, error)
}

// MemberRepo reads and links squad members.
type MemberRepo interface {
	Update(ctx context.Context, u *domain.User) (domain.QueryResult[*domain.User], error)
	GetBySquadID(ctx context.Context, squadID string) (domain.QueryResult[[]*domain.User], error)
}

// ActivityWriter records feed entries.
type ActivityWriter interface {
	Create(ctx context.Context, a *domain.Activity) (domain.QueryResult[*domain.Activity], error)
}

// CreateSquadInput is what a captain supplies.
type CreateSquadInput struct {
	Name         string
	Description  string
	AvatarURL    string
	Tags         []string
	MaxMembers   int
	IsRecruiting bool
}

// SquadFilter selects the squads List returns. Search wins over Tag.
type SquadFilter struct {
	Search string
	Tag    string
	Limit  int
}

// SquadService manages squads and their membership.
type SquadService struct {
	Squads     SquadRepo
	Members    MemberRepo
	Activities ActivityWriter // optional

	Now          func() time.Time
	Log          zerolog.Logger
	DefaultLimit int
	// MaxSquadSize caps CreateSquadInput.MaxMembers.
	MaxSquadSize int
}

func NewSquadService(squads SquadRepo, members MemberRepo, activities ActivityWriter) *SquadService {
	return &SquadService{
		Squads:       squads,
		Members:      members,
		Activities:   activities,
		Now:          time.Now,
		Log:          log.Logger.With().Str("component", "squad_service").Logger(),
		DefaultLimit: 20,
		MaxSquadSize: 10,
	}
}

// Create makes captain the captain and only member of a new squad and links
// the squad on the captain's profile.
func (s *SquadService) Create(ctx context.Context, captain *domain.User, in CreateSquadInput) (*domain.Squad, error) {
	if captain == nil {
		return nil, errs.NullValue
	}
	if captain.SquadID != "" {
		return nil, ErrAlreadyInSquad
	}
	name := normalizeSpaces(in.Name)
	if err := validateSquadName(name); err != nil {
		return nil, err
	}
	desc := strings.TrimSpace(in.Description)
	if utf8.RuneCountInString(desc) > SquadDescriptionMax {
		return nil, errs.Validation("Description", "Description must be at most 500 characters.")
	}
	tags, err := normalizeTags(in.Tags)
	if err != nil {
		return nil, err
	}
	size := in.MaxMembers
	if size == 0 {
		size = domain.DefaultSquadSize
	}
	if size < 2 || size > s.MaxSquadSize {
		return nil, errs.Validation("MaxMembers", "MaxMembers is out of range.")
	}

	taken, err := s.Squads.ExistsByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrSquadNameTaken
	}

	sq := &domain.Squad{
		Name:          name,
		Description:   desc,
		AvatarURL:     strings.TrimSpace(in.AvatarURL),
		CaptainUserID: captain.ID,
		MemberIDs:     []string{captain.ID},
		MaxMembers:    size,
		IsRecruiting:  in.IsRecruiting,
		Tags:          tags,
	}
	if _, err := s.Squads.Create(ctx, sq); err != nil {
		return nil, err
	}

	captain.SquadID = sq.ID
	if _, err := s.Members.Update(ctx, captain); err != nil {
		s.Log.Error().Err(err).Str("squad_id", sq.ID).Str("user_id", captain.ID).Msg("link captain to squad")
		captain.SquadID = ""
		if derr := s.Squads.Delete(context.WithoutCancel(ctx), sq.ID, sq.ID); derr != nil {
			s.Log.Error().Err(derr).Str("squad_id", sq.ID).Msg("rollback of squad after captain link failure")
		}
		return nil, err
	}
	s.record(ctx, captain.ID, domain.ActivitySquadJoined, "Founded squad "+sq.Name, sq.ID)
	return sq, nil
}

// Join adds user to squad squadID. The squad write is conditional on the ETag
// read at the start, so a concurrent join surfaces as a Conflict.
func (s *SquadService) Join(ctx context.Context, squadID string, user *domain.User) (*domain.Squad, error) {
	if user == nil {
		return nil, errs.NullValue
	}
	res, err := s.Squads.GetByID(ctx, squadID, squadID)
	if err != nil {
		return nil, err
	}
	sq := res.Value
	switch {
	case sq.HasMember(user.ID):
		return nil, ErrAlreadyMember
	case user.SquadID != "":
		return nil, ErrAlreadyInSquad
	case !sq.IsRecruiting:
		return nil, ErrNotRecruiting
	case sq.IsFull():
		return nil, ErrSquadFull
	}

	sq.MemberIDs = append(sq.MemberIDs, user.ID)
	closed := sq.IsFull()
	if closed {
		sq.IsRecruiting = false
	}
	if _, err := s.Squads.Update(ctx, sq); err != nil {
		return nil, err
	}

	user.SquadID = sq.ID
	if _, err := s.Members.Update(ctx, user); err != nil {
		s.Log.Error().Err(err).Str("squad_id", sq.ID).Str("user_id", user.ID).Msg("link member to squad")
		user.SquadID = ""
		s.unjoin(context.WithoutCancel(ctx), sq.ID, user.ID, closed)
		return nil, err
	}
	s.record(ctx, user.ID, domain.ActivitySquadJoined, "Joined squad "+sq.Name, sq.ID)
	return sq, nil
}

// unjoin takes userID back out of the squad after its profile could not be
// linked. Another writer may have touched the squad since the join, so the
// removal reads the current ETag and retries once on Conflict.
func (s *SquadService) unjoin(ctx context.Context, squadID, userID string, reopen bool) {
	var err error
	for attempt := 0; attempt < 2; attempt++ {
		var res domain.QueryResult[*domain.Squad]
		res, err = s.Squads.GetByID(ctx, squadID, squadID)
		if err != nil {
			break
		}
		sq := res.Value
		kept := sq.MemberIDs[:0]
		for _, id := range sq.MemberIDs {
			if id != userID {
				kept = append(kept, id)
			}
		}
		if len(kept) == len(sq.MemberIDs) {
			return
		}
		sq.MemberIDs = kept
		if reopen && !sq.IsFull() {
			sq.IsRecruiting = true
		}
		if _, err = s.Squads.Update(ctx, sq); err == nil || !errors.Is(err, errs.ErrConflict) {
			break
		}
	}
	if err != nil {
		s.Log.Error().Err(err).Str("squad_id", squadID).Str("user_id", userID).Msg("rollback of squad membership")
	}
}

func (s *SquadService) Get(ctx context.Context, id string) (*domain.Squad, error) {
	res, err := s.Squads.GetByID(ctx, id, id)
	if err != nil {
		return nil, err
	}
	return res.Value, nil
}

// MembersOf lists the profiles of a squad's members.
func (s *SquadService) MembersOf(ctx context.Context, id string) ([]*domain.User, error) {
	res, err := s.Members.GetBySquadID(ctx, id)
	if err != nil {
		return nil, err
	}
	return res.Value, nil
}

// List returns squads matching f. With no filter it lists recruiting squads.
func (s *SquadService) List(ctx context.Context, f SquadFilter) ([]*domain.Squad, error) {
	limit := limitOr(f.Limit, s.DefaultLimit)
	var (
		res domain.QueryResult[[]*domain.Squad]
		err error
	)
	switch {
	case strings.TrimSpace(f.Search) != "":
		res, err = s.Squads.SearchByName(ctx, f.Search, limit)
	case strings.TrimSpace(f.Tag) != "":
		res, err = s.Squads.GetByTag(ctx, f.Tag)
		if err == nil && len(res.Value) > limit {
			res.Value = res.Value[:limit]
		}
	default:
		res, err = s.Squads.GetRecruiting(ctx, limit)
	}
	if err != nil {
		return nil, err
	}
	return res.Value, nil
}

// Top ranks squads by weekly points when period is "weekly" and by total
// points otherwise.
func (s *SquadService) Top(ctx context.Context, period string, limit int) ([]*domain.Squad, error) {
	limit = limitOr(limit, s.DefaultLimit)
	var (
		res domain.QueryResult[[]*domain.Squad]
		err error
	)
	switch strings.ToLower(strings.TrimSpace(period)) {
	case "weekly", "week":
		res, err = s.Squads.GetTopByWeeklyPoints(ctx, limit)
	case "", "all", "alltime", "total":
		res, err = s.Squads.GetTopByPoints(ctx, limit)
	default:
		return nil, errs.Validation("Period", "Period must be 'weekly' or 'all'.")
	}
	if err != nil {
		return nil, err
	}
	return res.Value, nil
}

// record appends a feed entry. Feed writes never fail the calling operation.
func (s *SquadService) record(ctx context.Context, userID string, t domain.ActivityType, desc, squadID string) {
	if s.Activities == nil {
		return
	}
	a := &domain.Activity{
		UserID:       userID,
		Date:         domain.FormatDate(s.Now()),
		ActivityType: t,
		Description:  desc,
		Metadata:     map[string]any{"squadId": squadID},
	}
	if _, err := s.Activities.Create(ctx, a); err != nil && !errors.Is(err, errs.ErrCanceled) {
		s.Log.Warn().Err(err).Str("user_id", userID).Str("activity", string(t)).Msg("record activity")
	}
}
