// User HTTP handlers.
//
// This file exposes identity and profile endpoints:
//   - GET    /auth/me                     (caller identity and claims)
//   - POST   /users                       (register, idempotent)
//   - GET    /users/me, PATCH /users/me   (own profile, If-Match aware)
//   - GET    /users?search=               (search by display name)
//   - GET    /users/{id}                  (public profile)
//   - GET    /users/{id}/stats|achievements|activities|leaderboards
//   - GET    /stats/top, /achievements/definitions
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/levelup-backend/internal/domain"
	"github.com/tbourn/levelup-backend/internal/errs"
	"github.com/tbourn/levelup-backend/internal/http/middleware"
	"github.com/tbourn/levelup-backend/internal/services"
	"github.com/tbourn/levelup-backend/internal/utils"
)

//
// DTOs
//

// AuthMeResponse describes the caller as seen by the API.
type AuthMeResponse struct {
	Principal    middleware.Principal `json:"principal"`
	IsRegistered bool                 `json:"isRegistered"`
	User         *domain.User         `json:"user,omitempty"`
}

// RegisterRequest is the JSON payload for registration. The GitHub identity
// comes from the authentication headers, never from the body.
type RegisterRequest struct {
	LeetCodeUsername string `json:"leetCodeUsername" example:"octo_lc"`
	DisplayName      string `json:"displayName" example:"Octo Cat"`
	Email            string `json:"email" example:"octo@example.com"`
	AvatarURL        string `json:"avatarUrl"`
	// GitHubUsername overrides the login forwarded by the front door when
	// the front door did not forward one.
	GitHubUsername string `json:"githubUsername,omitempty" example:"octocat"`
}

// UpdateProfileRequest is a partial profile update; omitted fields are kept.
type UpdateProfileRequest struct {
	DisplayName    *string              `json:"displayName,omitempty"`
	AvatarURL      *string              `json:"avatarUrl,omitempty"`
	ProfileTheme   *domain.ProfileTheme `json:"profileTheme,omitempty"`
	ShowcaseBadges []string             `json:"showcaseBadges,omitempty"`
	Settings       *domain.UserSettings `json:"settings,omitempty"`
}

// etagValue strips weak prefixes and quotes from an If-Match value.
func etagValue(v string) string {
	v = strings.TrimSpace(v)
	v = strings.TrimPrefix(v, "W/")
	return strings.Trim(v, `"`)
}

//
// Handlers
//

// AuthMe godoc
// @ID          authMe
// @Summary     Caller identity
// @Description Returns the identity forwarded by the authentication front door and whether it is registered.
// @Tags        Auth
// @Produce     json
// @Param       X-MS-CLIENT-PRINCIPAL-ID    header  string  true   "GitHub user id"
// @Param       X-MS-CLIENT-PRINCIPAL-NAME  header  string  false  "GitHub login"
// @Success     200  {object}  handlers.Envelope{data=handlers.AuthMeResponse}
// @Failure     401  {object}  handlers.Envelope
// @Router      /auth/me [get]
func (h *Handlers) AuthMe(c *gin.Context) {
	p, authed := h.principal(c)
	if !authed {
		return
	}
	resp := AuthMeResponse{Principal: p}
	u, err := h.deps.Users.Current(c.Request.Context(), p.ID)
	switch {
	case err == nil:
		resp.IsRegistered, resp.User = true, u
	case !errors.Is(err, errs.ErrNotFound):
		h.failErr(c, err)
		return
	}
	ok(c, http.StatusOK, resp, "")
}

// Register godoc
// @ID          registerUser
// @Summary     Register the caller
// @Description Creates the caller's profile and empty stats. Registering again returns the existing profile with 200.
// @Tags        Users
// @Accept      json
// @Produce     json
// @Param       X-MS-CLIENT-PRINCIPAL-ID  header  string                    true   "GitHub user id"
// @Param       Idempotency-Key           header  string                    false  "Idempotency key"
// @Param       body                      body    handlers.RegisterRequest  true   "Registration payload"
// @Success     201  {object}  handlers.Envelope{data=domain.User}
// @Success     200  {object}  handlers.Envelope{data=domain.User}
// @Failure     400  {object}  handlers.Envelope
// @Failure     401  {object}  handlers.Envelope
// @Failure     409  {object}  handlers.Envelope
// @Router      /users [post]
func (h *Handlers) Register(c *gin.Context) {
	p, authed := h.principal(c)
	if !authed {
		return
	}
	var req RegisterRequest
	if !bindJSON(c, &req) {
		return
	}
	login := p.Name
	if login == "" {
		login = req.GitHubUsername
	}
	u, created, err := h.deps.Users.Register(c.Request.Context(), services.RegisterInput{
		GitHubID:         p.ID,
		GitHubUsername:   login,
		LeetCodeUsername: req.LeetCodeUsername,
		DisplayName:      req.DisplayName,
		Email:            req.Email,
		AvatarURL:        req.AvatarURL,
	})
	if err != nil {
		h.failErr(c, err)
		return
	}
	if !created {
		ok(c, http.StatusOK, u, "Already registered")
		return
	}
	h.remember(c, u.ID, http.StatusCreated)
	c.Header("Location", c.FullPath()+"/"+u.ID)
	ok(c, http.StatusCreated, u, "Created successfully")
}

// Me godoc
// @ID          getMe
// @Summary     Own profile
// @Tags        Users
// @Produce     json
// @Param       X-MS-CLIENT-PRINCIPAL-ID  header  string  true  "GitHub user id"
// @Success     200  {object}  handlers.Envelope{data=domain.User}
// @Failure     401  {object}  handlers.Envelope
// @Failure     404  {object}  handlers.Envelope  "Not registered"
// @Router      /users/me [get]
func (h *Handlers) Me(c *gin.Context) {
	u, found := h.caller(c)
	if !found {
		return
	}
	c.Header("ETag", u.ETag)
	ok(c, http.StatusOK, u, "")
}

// UpdateMe godoc
// @ID          updateMe
// @Summary     Update own profile
// @Description Partial update. When If-Match is sent the write only succeeds if the profile still carries that ETag.
// @Tags        Users
// @Accept      json
// @Produce     json
// @Param       X-MS-CLIENT-PRINCIPAL-ID  header  string                         true   "GitHub user id"
// @Param       If-Match                  header  string                         false  "ETag from a previous read"
// @Param       body                      body    handlers.UpdateProfileRequest  true   "Fields to change"
// @Success     200  {object}  handlers.Envelope{data=domain.User}
// @Failure     400  {object}  handlers.Envelope
// @Failure     409  {object}  handlers.Envelope  "ETag mismatch"
// @Router      /users/me [patch]
func (h *Handlers) UpdateMe(c *gin.Context) {
	p, authed := h.principal(c)
	if !authed {
		return
	}
	var req UpdateProfileRequest
	if !bindJSON(c, &req) {
		return
	}
	u, err := h.deps.Users.UpdateProfile(c.Request.Context(), p.ID, services.UpdateProfileInput{
		DisplayName:    req.DisplayName,
		AvatarURL:      req.AvatarURL,
		ProfileTheme:   req.ProfileTheme,
		ShowcaseBadges: req.ShowcaseBadges,
		Settings:       req.Settings,
	}, etagValue(c.GetHeader("If-Match")))
	if err != nil {
		h.failErr(c, err)
		return
	}
	c.Header("ETag", u.ETag)
	ok(c, http.StatusOK, u, "Profile updated")
}

// SearchUsers godoc
// @ID          searchUsers
// @Summary     Search users
// @Description Case-insensitive display name search.
// @Tags        Users
// @Produce     json
// @Param       search  query  string  true   "Display name fragment"
// @Param       limit   query  int     false  "Max results (1-100)"  default(20)
// @Success     200  {object}  handlers.Envelope{data=[]domain.User}
// @Failure     400  {object}  handlers.Envelope
// @Router      /users [get]
func (h *Handlers) SearchUsers(c *gin.Context) {
	term := strings.TrimSpace(c.Query("search"))
	if term == "" {
		h.failErr(c, errs.Validation("Search", "A search term is required."))
		return
	}
	users, err := h.deps.Users.Search(c.Request.Context(), term, limitParam(c, defaultLimit))
	if err != nil {
		h.failErr(c, err)
		return
	}
	ok(c, http.StatusOK, users, "")
}

// GetUser godoc
// @ID          getUser
// @Summary     Get a profile
// @Tags        Users
// @Produce     json
// @Param       id  path  string  true  "User ID"
// @Success     200  {object}  handlers.Envelope{data=domain.User}
// @Failure     404  {object}  handlers.Envelope
// @Router      /users/{id} [get]
func (h *Handlers) GetUser(c *gin.Context) {
	u, err := h.deps.Users.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.failErr(c, err)
		return
	}
	ok(c, http.StatusOK, u, "")
}

// UserStats godoc
// @ID          getUserStats
// @Summary     Solving stats of a user
// @Tags        Stats
// @Produce     json
// @Param       id  path  string  true  "User ID"
// @Success     200  {object}  handlers.Envelope{data=domain.UserStats}
// @Failure     404  {object}  handlers.Envelope
// @Router      /users/{id}/stats [get]
func (h *Handlers) UserStats(c *gin.Context) {
	st, err := h.deps.Progress.UserStats(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.failErr(c, err)
		return
	}
	ok(c, http.StatusOK, st, "")
}

// TopStats godoc
// @ID          topStats
// @Summary     Top users by a stats metric
// @Tags        Stats
// @Produce     json
// @Param       metric  query  string  false  "totalSolved | streak | weekly | hard"  default(totalSolved)
// @Param       limit   query  int     false  "Max results (1-100)"                   default(10)
// @Success     200  {object}  handlers.Envelope{data=[]domain.UserStats}
// @Failure     400  {object}  handlers.Envelope
// @Router      /stats/top [get]
func (h *Handlers) TopStats(c *gin.Context) {
	top, err := h.deps.Progress.Top(c.Request.Context(), c.Query("metric"), limitParam(c, 10))
	if err != nil {
		h.failErr(c, err)
		return
	}
	ok(c, http.StatusOK, top, "")
}

// UserAchievements godoc
// @ID          getUserAchievements
// @Summary     Achievements of a user
// @Tags        Achievements
// @Produce     json
// @Param       id        path   string  true   "User ID"
// @Param       unlocked  query  bool    false  "Only unlocked badges"
// @Success     200  {object}  handlers.Envelope{data=[]domain.Achievement}
// @Router      /users/{id}/achievements [get]
func (h *Handlers) UserAchievements(c *gin.Context) {
	list, err := h.deps.Progress.UserAchievements(c.Request.Context(), c.Param("id"), utils.BoolDefault(c.Query("unlocked"), false))
	if err != nil {
		h.failErr(c, err)
		return
	}
	ok(c, http.StatusOK, list, "")
}

// BadgeDefinitions godoc
// @ID          badgeDefinitions
// @Summary     Badge catalogue
// @Tags        Achievements
// @Produce     json
// @Success     200  {object}  handlers.Envelope{data=[]domain.Badge}
// @Router      /achievements/definitions [get]
func (h *Handlers) BadgeDefinitions(c *gin.Context) {
	ok(c, http.StatusOK, services.BadgeCatalogue(), "")
}

// UserActivities godoc
// @ID          getUserActivities
// @Summary     Recent activity of a user
// @Tags        Activity
// @Produce     json
// @Param       id     path   string  true   "User ID"
// @Param       limit  query  int     false  "Max results (1-100)"  default(20)
// @Success     200  {object}  handlers.Envelope{data=[]domain.Activity}
// @Router      /users/{id}/activities [get]
func (h *Handlers) UserActivities(c *gin.Context) {
	list, err := h.deps.Community.UserActivity(c.Request.Context(), c.Param("id"), limitParam(c, defaultLimit))
	if err != nil {
		h.failErr(c, err)
		return
	}
	ok(c, http.StatusOK, list, "")
}

// UserLeaderboards godoc
// @ID          getUserLeaderboards
// @Summary     A user's entry on every leaderboard
// @Tags        Leaderboards
// @Produce     json
// @Param       id  path  string  true  "User ID"
// @Success     200  {object}  handlers.Envelope{data=[]domain.LeaderboardEntry}
// @Router      /users/{id}/leaderboards [get]
func (h *Handlers) UserLeaderboards(c *gin.Context) {
	list, err := h.deps.Leaderboards.Summary(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.failErr(c, err)
		return
	}
	ok(c, http.StatusOK, list, "")
}
