// Package handlers wires HTTP endpoints to the application services.
//
// Handlers are transport-thin: they read the caller from the identity
// middleware, bind and bound request parameters, call a service, and
// translate the result (or error) into the response envelope.
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/levelup-backend/internal/domain"
	"github.com/tbourn/levelup-backend/internal/errs"
	"github.com/tbourn/levelup-backend/internal/http/middleware"
	"github.com/tbourn/levelup-backend/internal/repo"
	"github.com/tbourn/levelup-backend/internal/services"
	"github.com/tbourn/levelup-backend/internal/utils"
)

//
// Service contracts (context-aware)
//

// UserService manages member profiles.
type UserService interface {
	Register(ctx context.Context, in services.RegisterInput) (*domain.User, bool, error)
	Current(ctx context.Context, githubID string) (*domain.User, error)
	Get(ctx context.Context, id string) (*domain.User, error)
	UpdateProfile(ctx context.Context, githubID string, in services.UpdateProfileInput, ifMatch string) (*domain.User, error)
	Search(ctx context.Context, term string, limit int) ([]*domain.User, error)
}

// SquadService manages squads and membership.
type SquadService interface {
	Create(ctx context.Context, captain *domain.User, in services.CreateSquadInput) (*domain.Squad, error)
	Join(ctx context.Context, squadID string, user *domain.User) (*domain.Squad, error)
	Get(ctx context.Context, id string) (*domain.Squad, error)
	MembersOf(ctx context.Context, id string) ([]*domain.User, error)
	List(ctx context.Context, f services.SquadFilter) ([]*domain.Squad, error)
	Top(ctx context.Context, period string, limit int) ([]*domain.Squad, error)
}

// ProgressService serves stats and achievements.
type ProgressService interface {
	UserStats(ctx context.Context, userID string) (*domain.UserStats, error)
	Top(ctx context.Context, metric string, limit int) ([]*domain.UserStats, error)
	UserAchievements(ctx context.Context, userID string, unlockedOnly bool) ([]*domain.Achievement, error)
}

// LeaderboardService serves leaderboards and stores published standings.
type LeaderboardService interface {
	Board(ctx context.Context, t domain.LeaderboardType, limit int) (*services.Board, error)
	Overview(ctx context.Context, perBoard int) ([]*services.Board, error)
	Around(ctx context.Context, t domain.LeaderboardType, userID string, window int) (*services.Position, error)
	Summary(ctx context.Context, userID string) ([]*domain.LeaderboardEntry, error)
	Publish(ctx context.Context, t domain.LeaderboardType, standings []services.Standing) (repo.BatchResult, error)
}

// CommunityService serves challenges, goals and the activity feed.
type CommunityService interface {
	TodaysChallenge(ctx context.Context) (*domain.DailyChallenge, error)
	Challenge(ctx context.Context, date string) (*domain.DailyChallenge, error)
	ChallengesBetween(ctx context.Context, from, to string) ([]*domain.DailyChallenge, error)
	ActiveChallenges(ctx context.Context, limit int) ([]*domain.DailyChallenge, error)
	CurrentGoal(ctx context.Context) (*domain.CommunityGoal, error)
	RecentGoals(ctx context.Context, limit int) ([]*domain.CommunityGoal, error)
	Feed(ctx context.Context, t domain.ActivityType, limit int) ([]*domain.Activity, error)
	UserActivity(ctx context.Context, userID string, limit int) ([]*domain.Activity, error)
}

// NotificationService serves the caller's inbox.
type NotificationService interface {
	List(ctx context.Context, userID string, page, pageSize int, token string) (domain.QueryResult[domain.PagedList[*domain.Notification]], error)
	UnreadCount(ctx context.Context, userID string) (int, error)
	MarkAllRead(ctx context.Context, userID string) (repo.BatchResult, error)
	Notify(ctx context.Context, n *domain.Notification) (*domain.Notification, error)
	Delete(ctx context.Context, userID, id string) error
	Sweep(ctx context.Context) (repo.BatchResult, error)
}

// IdempotencyStore remembers completed unsafe requests.
type IdempotencyStore interface {
	Save(ctx context.Context, userID, scope, key, resourceID string, status int, ttl time.Duration) (*domain.IdempotencyRecord, error)
}

//
// Handler wiring
//

// Deps are the services the handlers call. Idempotency may be nil.
type Deps struct {
	Users         UserService
	Squads        SquadService
	Progress      ProgressService
	Leaderboards  LeaderboardService
	Community     CommunityService
	Notifications NotificationService
	Idempotency   IdempotencyStore
}

// Options tunes handler behavior.
type Options struct {
	// IdempotencyTTL is how long a completed request can be replayed.
	IdempotencyTTL time.Duration
	// ExposeErrors keeps 5xx messages instead of a generic text.
	ExposeErrors bool
}

// Handlers groups every HTTP endpoint.
type Handlers struct {
	deps Deps
	opts Options
}

// New constructs Handlers bound to the given services.
func New(deps Deps, opts Options) *Handlers {
	if opts.IdempotencyTTL <= 0 {
		opts.IdempotencyTTL = 24 * time.Hour
	}
	return &Handlers{deps: deps, opts: opts}
}

// FromServices adapts the concrete service bundle.
func FromServices(s *services.Services, idem IdempotencyStore) Deps {
	return Deps{
		Users:         s.Users,
		Squads:        s.Squads,
		Progress:      s.Progress,
		Leaderboards:  s.Leaderboards,
		Community:     s.Community,
		Notifications: s.Notifications,
		Idempotency:   idem,
	}
}

//
// Helpers
//

// principal returns the authenticated caller or writes 401.
func (h *Handlers) principal(c *gin.Context) (middleware.Principal, bool) {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		h.failErr(c, errs.Unauthorized(""))
		return middleware.Principal{}, false
	}
	return p, true
}

// caller returns the registered profile of the authenticated caller or
// writes 401/404.
func (h *Handlers) caller(c *gin.Context) (*domain.User, bool) {
	p, ok := h.principal(c)
	if !ok {
		return nil, false
	}
	u, err := h.deps.Users.Current(c.Request.Context(), p.ID)
	if err != nil {
		h.failErr(c, err)
		return nil, false
	}
	return u, true
}

// RequireAdmin rejects callers whose profile lacks the Admin role.
func (h *Handlers) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := h.caller(c)
		if !ok {
			return
		}
		if u.Role != domain.RoleAdmin {
			h.failErr(c, services.ErrAdminOnly)
			return
		}
		c.Next()
	}
}

// remember records a completed unsafe request so a retry with the same
// Idempotency-Key replays it. Failures are logged; the request already
// succeeded.
func (h *Handlers) remember(c *gin.Context, resourceID string, status int) {
	key, ok := middleware.IdempotencyKey(c)
	if !ok || h.deps.Idempotency == nil {
		return
	}
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return
	}
	ctx := context.WithoutCancel(c.Request.Context())
	if _, err := h.deps.Idempotency.Save(ctx, p.ID, middleware.IdempotencyScope(c), key, resourceID, status, h.opts.IdempotencyTTL); err != nil {
		middleware.LoggerFrom(c).Warn().Err(err).Str("resource_id", resourceID).Msg("idempotency record not saved")
	}
}

// Query bounds shared by list endpoints.
const (
	defaultLimit    = 20
	maxLimit        = 100
	defaultPageSize = 20
	maxPageSize     = 100
)

// limitParam parses ?limit= and clamps it to [1, maxLimit].
func limitParam(c *gin.Context, def int) int {
	return utils.IntInRange(c.Query("limit"), def, 1, maxLimit)
}

// clampPagination parses and bounds page and pageSize query params.
func clampPagination(c *gin.Context) (page, pageSize int) {
	page = max(utils.AtoiDefault(c.Query("page"), 1), 1)
	pageSize = utils.IntInRange(c.Query("pageSize"), defaultPageSize, 1, maxPageSize)
	return
}

// bindJSON decodes the body or writes 400.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return false
	}
	return true
}
