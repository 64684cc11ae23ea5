package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"

	"github.com/tbourn/levelup-backend/internal/domain"
	"github.com/tbourn/levelup-backend/internal/errs"
	"github.com/tbourn/levelup-backend/internal/observability"
	"github.com/tbourn/levelup-backend/internal/repo"
)

// LeaderboardRepo is the persistence contract required by LeaderboardService.
type LeaderboardRepo interface {
	GetByType(ctx context.Context, t domain.LeaderboardType, limit int) (domain.QueryResult[[]*domain.LeaderboardEntry], error)
	GetUserEntry(ctx context.Context, t domain.LeaderboardType, userID string) (domain.QueryResult[*domain.LeaderboardEntry], error)
	GetUserEntries(ctx context.Context, userID string) (domain.QueryResult[[]*domain.LeaderboardEntry], error)
	GetEntriesAroundRank(ctx context.Context, t domain.LeaderboardType, rank, window int) (domain.QueryResult[[]*domain.LeaderboardEntry], error)
	BatchUpsert(ctx context.Context, entries []*domain.LeaderboardEntry) (repo.BatchResult, error)
	Delete(ctx context.Context, id, pk string) error
}

// UserReader resolves profiles by id.
type UserReader interface {
	GetByID(ctx context.Context, id, pk string) (domain.QueryResult[*domain.User], error)
}

// Board is a leaderboard definition with its top entries.
type Board struct {
	domain.LeaderboardMetadata
	Entries []*domain.LeaderboardEntry `json:"entries"`
}

// Position is a user's entry on one board and its neighbours.
type Position struct {
	Entry     *domain.LeaderboardEntry   `json:"entry"`
	Neighbors []*domain.LeaderboardEntry `json:"neighbors"`
}

// LeaderboardService serves boards and stores published standings.
type LeaderboardService struct {
	Boards LeaderboardRepo
	Users  UserReader

	Now          func() time.Time
	Log          zerolog.Logger
	DefaultLimit int
	// DefaultWindow is the number of neighbours on each side of a position.
	DefaultWindow int
	// BoardSize caps the entries of one board.
	BoardSize int
}

func NewLeaderboardService(boards LeaderboardRepo, users UserReader) *LeaderboardService {
	return &LeaderboardService{
		Boards:        boards,
		Users:         users,
		Now:           time.Now,
		Log:           log.Logger.With().Str("component", "leaderboard_service").Logger(),
		DefaultLimit:  100,
		DefaultWindow: 5,
		BoardSize:     100,
	}
}

// Definitions returns the leaderboard catalogue ordered by type name.
func Definitions() []domain.LeaderboardMetadata {
	out := make([]domain.LeaderboardMetadata, 0, len(domain.LeaderboardDefinitions))
	for _, m := range domain.LeaderboardDefinitions {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out
}

// Board returns the top limit entries of board t.
func (s *LeaderboardService) Board(ctx context.Context, t domain.LeaderboardType, limit int) (*Board, error) {
	meta, ok := domain.LeaderboardDefinitions[t]
	if !ok {
		return nil, errs.Validation("Type", "Unknown leaderboard type.")
	}
	res, err := s.Boards.GetByType(ctx, t, limitOr(limit, s.DefaultLimit))
	if err != nil {
		return nil, err
	}
	return &Board{LeaderboardMetadata: meta, Entries: res.Value}, nil
}

// Overview returns every board with its top perBoard entries.
func (s *LeaderboardService) Overview(ctx context.Context, perBoard int) ([]*Board, error) {
	defs := Definitions()
	out := make([]*Board, 0, len(defs))
	for _, d := range defs {
		b, err := s.Board(ctx, d.Type, limitOr(perBoard, 10))
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

// Around returns userID's entry on board t and the entries ranked within
// window places of it.
func (s *LeaderboardService) Around(ctx context.Context, t domain.LeaderboardType, userID string, window int) (*Position, error) {
	if window == 0 {
		window = s.DefaultWindow
	}
	me, err := s.Boards.GetUserEntry(ctx, t, userID)
	if err != nil {
		return nil, err
	}
	near, err := s.Boards.GetEntriesAroundRank(ctx, t, me.Value.Rank, window)
	if err != nil {
		return nil, err
	}
	return &Position{Entry: me.Value, Neighbors: near.Value}, nil
}

// Summary returns userID's entry on every board.
func (s *LeaderboardService) Summary(ctx context.Context, userID string) ([]*domain.LeaderboardEntry, error) {
	res, err := s.Boards.GetUserEntries(ctx, userID)
	if err != nil {
		return nil, err
	}
	return res.Value, nil
}

// Standing is one externally computed placement on a board.
type Standing struct {
	UserID string  `json:"userId"`
	Rank   int     `json:"rank"`
	Score  float64 `json:"score"`
}

// Publish stores standings as the current state of board t. Ranks come from
// the caller and are stored as given; each user's previous rank and score are
// carried over. Users hidden from leaderboards or without a profile are
// skipped, and entries absent from standings are removed.
func (s *LeaderboardService) Publish(ctx context.Context, t domain.LeaderboardType, standings []Standing) (res repo.BatchResult, err error) {
	ctx, span := observability.StartSpan(ctx, "leaderboard.publish",
		attribute.String("leaderboard.type", string(t)), attribute.Int("leaderboard.standings", len(standings)))
	defer func() {
		span.SetAttributes(attribute.Int("leaderboard.stored", res.Succeeded), attribute.Float64("store.charge", res.Charge))
		observability.EndSpan(span, err)
	}()

	meta, ok := domain.LeaderboardDefinitions[t]
	if !ok {
		return res, errs.Validation("Type", "Unknown leaderboard type.")
	}
	if err := validateStandings(standings, s.BoardSize); err != nil {
		return res, err
	}

	prev, err := s.Boards.GetByType(ctx, t, s.BoardSize)
	if err != nil {
		return res, err
	}
	before := make(map[string]*domain.LeaderboardEntry, len(prev.Value))
	for _, e := range prev.Value {
		before[e.UserID] = e
	}

	start := periodStart(meta.RefreshRate, s.Now().UTC())
	entries := make([]*domain.LeaderboardEntry, 0, len(standings))
	for _, st := range standings {
		u, err := s.Users.GetByID(ctx, st.UserID, st.UserID)
		if errors.Is(err, errs.ErrNotFound) {
			continue
		}
		if err != nil {
			return res, err
		}
		if !u.Value.Settings.ShowOnLeaderboard {
			continue
		}
		e := &domain.LeaderboardEntry{
			Type:        t,
			UserID:      u.Value.ID,
			DisplayName: u.Value.DisplayName,
			AvatarURL:   u.Value.AvatarURL,
			Rank:        st.Rank,
			Score:       st.Score,
			SquadID:     u.Value.SquadID,
			PeriodStart: start,
		}
		e.ID = repo.EntryID(t, e.UserID)
		if old, ok := before[e.UserID]; ok {
			rank, score := old.Rank, old.Score
			e.PreviousRank, e.PreviousScore = &rank, &score
			e.CreatedAt = old.CreatedAt
			delete(before, e.UserID)
		}
		entries = append(entries, e)
	}

	res, err = s.Boards.BatchUpsert(ctx, entries)
	if err != nil {
		return res, err
	}
	for _, old := range before {
		if derr := s.Boards.Delete(ctx, old.ID, old.PartitionKey()); derr != nil && !errors.Is(derr, errs.ErrNotFound) {
			res.Failures = append(res.Failures, repo.ItemFailure{ID: old.ID, PartitionKey: old.PartitionKey(), Err: derr})
		}
	}
	s.Log.Info().
		Str("board", string(t)).
		Int("stored", res.Succeeded).
		Int("removed", len(before)).
		Int("failed", len(res.Failures)).
		Float64("charge", res.Charge).
		Msg("leaderboard published")
	return res, nil
}

func validateStandings(standings []Standing, limit int) error {
	if len(standings) > limit {
		return errs.Validation("Standings", fmt.Sprintf("At most %d standings may be published at once.", limit))
	}
	seen := make(map[string]struct{}, len(standings))
	for _, st := range standings {
		if strings.TrimSpace(st.UserID) == "" {
			return errs.Validation("UserId", "Every standing needs a user id.")
		}
		if st.Rank < 1 {
			return errs.Validation("Rank", "Ranks start at 1.")
		}
		if _, dup := seen[st.UserID]; dup {
			return errs.Validation("UserId", "A user may appear only once per board.")
		}
		seen[st.UserID] = struct{}{}
	}
	return nil
}

// periodStart is the start of the ranking period containing now.
func periodStart(rate domain.LeaderboardRefreshRate, now time.Time) time.Time {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	switch rate {
	case domain.RefreshDaily:
		return day
	case domain.RefreshWeekly:
		return domain.WeekStart(now)
	case domain.RefreshMonthly:
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	}
	return now
}
