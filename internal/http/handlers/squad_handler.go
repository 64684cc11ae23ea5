// Squad HTTP handlers.
//
// This file exposes squad endpoints:
//   - POST   /squads               (create, idempotent)
//   - GET    /squads               (search, tag filter or recruiting list)
//   - GET    /squads/top           (ranking by total or weekly points)
//   - GET    /squads/{id}          (details)
//   - GET    /squads/{id}/members  (member profiles)
//   - POST   /squads/{id}/join     (join, idempotent, optimistic concurrency)
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/levelup-backend/internal/http/middleware"
	"github.com/tbourn/levelup-backend/internal/services"
)

// CreateSquadRequest is the JSON payload for creating a squad.
type CreateSquadRequest struct {
	Name         string   `json:"name" example:"Graph Goblins"`
	Description  string   `json:"description" example:"Daily graph problems, no excuses."`
	AvatarURL    string   `json:"avatarUrl"`
	Tags         []string `json:"tags" example:"graphs,dp"`
	MaxMembers   int      `json:"maxMembers" example:"5"`
	IsRecruiting *bool    `json:"isRecruiting,omitempty"`
}

// HeaderReplay marks a response served from a stored idempotent result.
const HeaderReplay = "Idempotent-Replay"

// replaySquad answers a replayed unsafe squad request with the squad it
// produced. It reports whether a response was written.
func (h *Handlers) replaySquad(c *gin.Context) bool {
	id, replay := middleware.ReplayedResource(c)
	if !replay {
		return false
	}
	sq, err := h.deps.Squads.Get(c.Request.Context(), id)
	if err != nil {
		// The squad is gone; run the request normally.
		return false
	}
	c.Header(HeaderReplay, "true")
	ok(c, http.StatusOK, sq, "Replayed")
	return true
}

// CreateSquad godoc
// @ID          createSquad
// @Summary     Create a squad
// @Description Creates a squad with the caller as captain and first member.
// @Tags        Squads
// @Accept      json
// @Produce     json
// @Param       X-MS-CLIENT-PRINCIPAL-ID  header  string                       true   "GitHub user id"
// @Param       Idempotency-Key           header  string                       false  "Idempotency key"
// @Param       body                      body    handlers.CreateSquadRequest  true   "Squad payload"
// @Success     201  {object}  handlers.Envelope{data=domain.Squad}
// @Success     200  {object}  handlers.Envelope{data=domain.Squad}  "Replayed"
// @Failure     400  {object}  handlers.Envelope
// @Failure     409  {object}  handlers.Envelope  "Name taken or caller already in a squad"
// @Router      /squads [post]
func (h *Handlers) CreateSquad(c *gin.Context) {
	captain, found := h.caller(c)
	if !found {
		return
	}
	if h.replaySquad(c) {
		return
	}
	var req CreateSquadRequest
	if !bindJSON(c, &req) {
		return
	}
	recruiting := true
	if req.IsRecruiting != nil {
		recruiting = *req.IsRecruiting
	}
	sq, err := h.deps.Squads.Create(c.Request.Context(), captain, services.CreateSquadInput{
		Name:         req.Name,
		Description:  req.Description,
		AvatarURL:    req.AvatarURL,
		Tags:         req.Tags,
		MaxMembers:   req.MaxMembers,
		IsRecruiting: recruiting,
	})
	if err != nil {
		h.failErr(c, err)
		return
	}
	h.remember(c, sq.ID, http.StatusCreated)
	c.Header("Location", c.FullPath()+"/"+sq.ID)
	ok(c, http.StatusCreated, sq, "Created successfully")
}

// ListSquads godoc
// @ID          listSquads
// @Summary     List squads
// @Description Name search wins over tag filter; with neither, recruiting squads are listed.
// @Tags        Squads
// @Produce     json
// @Param       search  query  string  false  "Name fragment"
// @Param       tag     query  string  false  "Tag"
// @Param       limit   query  int     false  "Max results (1-100)"  default(20)
// @Success     200  {object}  handlers.Envelope{data=[]domain.Squad}
// @Router      /squads [get]
func (h *Handlers) ListSquads(c *gin.Context) {
	list, err := h.deps.Squads.List(c.Request.Context(), services.SquadFilter{
		Search: c.Query("search"),
		Tag:    c.Query("tag"),
		Limit:  limitParam(c, defaultLimit),
	})
	if err != nil {
		h.failErr(c, err)
		return
	}
	ok(c, http.StatusOK, list, "")
}

// TopSquads godoc
// @ID          topSquads
// @Summary     Top squads
// @Tags        Squads
// @Produce     json
// @Param       period  query  string  false  "all | weekly"  default(all)
// @Param       limit   query  int     false  "Max results (1-100)"  default(10)
// @Success     200  {object}  handlers.Envelope{data=[]domain.Squad}
// @Failure     400  {object}  handlers.Envelope
// @Router      /squads/top [get]
func (h *Handlers) TopSquads(c *gin.Context) {
	list, err := h.deps.Squads.Top(c.Request.Context(), c.Query("period"), limitParam(c, 10))
	if err != nil {
		h.failErr(c, err)
		return
	}
	ok(c, http.StatusOK, list, "")
}

// GetSquad godoc
// @ID          getSquad
// @Summary     Get a squad
// @Tags        Squads
// @Produce     json
// @Param       id  path  string  true  "Squad ID"
// @Success     200  {object}  handlers.Envelope{data=domain.Squad}
// @Failure     404  {object}  handlers.Envelope
// @Router      /squads/{id} [get]
func (h *Handlers) GetSquad(c *gin.Context) {
	sq, err := h.deps.Squads.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.failErr(c, err)
		return
	}
	c.Header("ETag", sq.ETag)
	ok(c, http.StatusOK, sq, "")
}

// SquadMembers godoc
// @ID          getSquadMembers
// @Summary     Members of a squad
// @Tags        Squads
// @Produce     json
// @Param       id  path  string  true  "Squad ID"
// @Success     200  {object}  handlers.Envelope{data=[]domain.User}
// @Failure     404  {object}  handlers.Envelope
// @Router      /squads/{id}/members [get]
func (h *Handlers) SquadMembers(c *gin.Context) {
	members, err := h.deps.Squads.MembersOf(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.failErr(c, err)
		return
	}
	ok(c, http.StatusOK, members, "")
}

// JoinSquad godoc
// @ID          joinSquad
// @Summary     Join a squad
// @Description Adds the caller to the squad. Concurrent joins for the last slot are resolved by ETag; the loser gets 409 and may retry.
// @Tags        Squads
// @Produce     json
// @Param       X-MS-CLIENT-PRINCIPAL-ID  header  string  true   "GitHub user id"
// @Param       Idempotency-Key           header  string  false  "Idempotency key"
// @Param       id                        path    string  true   "Squad ID"
// @Success     200  {object}  handlers.Envelope{data=domain.Squad}
// @Failure     404  {object}  handlers.Envelope
// @Failure     409  {object}  handlers.Envelope  "Full, not recruiting, already a member, or concurrent update"
// @Router      /squads/{id}/join [post]
func (h *Handlers) JoinSquad(c *gin.Context) {
	u, found := h.caller(c)
	if !found {
		return
	}
	if h.replaySquad(c) {
		return
	}
	sq, err := h.deps.Squads.Join(c.Request.Context(), c.Param("id"), u)
	if err != nil {
		h.failErr(c, err)
		return
	}
	h.remember(c, sq.ID, http.StatusOK)
	ok(c, http.StatusOK, sq, "Joined squad")
}
