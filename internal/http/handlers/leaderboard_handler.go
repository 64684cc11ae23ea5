package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/levelup-backend/internal/domain"
	"github.com/tbourn/levelup-backend/internal/repo"
	"github.com/tbourn/levelup-backend/internal/services"
	"github.com/tbourn/levelup-backend/internal/utils"
)

// BatchResponse summarizes a bulk write.
type BatchResponse struct {
	Attempted int      `json:"attempted" example:"25"`
	Succeeded int      `json:"succeeded" example:"24"`
	Failed    []string `json:"failed,omitempty"`
	CostUnit  float64  `json:"costUnit" example:"48.5"`
}

func batchResponse(b repo.BatchResult) BatchResponse {
	out := BatchResponse{Attempted: b.Attempted(), Succeeded: b.Succeeded, CostUnit: b.Charge}
	for _, f := range b.Failures {
		out.Failed = append(out.Failed, f.ID)
	}
	return out
}

// boardType reads the :type path parameter or writes 400.
func (h *Handlers) boardType(c *gin.Context) (domain.LeaderboardType, bool) {
	t := domain.LeaderboardType(c.Param("type"))
	if !t.Valid() {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unknown leaderboard type")
		return "", false
	}
	return t, true
}

// ListLeaderboards godoc
// @ID          listLeaderboards
// @Summary     All leaderboards
// @Description Every board with its top entries.
// @Tags        Leaderboards
// @Produce     json
// @Param       limit  query  int  false  "Entries per board (1-100)"  default(10)
// @Success     200  {object}  handlers.Envelope{data=[]services.Board}
// @Router      /leaderboards [get]
func (h *Handlers) ListLeaderboards(c *gin.Context) {
	boards, err := h.deps.Leaderboards.Overview(c.Request.Context(), limitParam(c, 10))
	if err != nil {
		h.failErr(c, err)
		return
	}
	ok(c, http.StatusOK, boards, "")
}

// LeaderboardDefinitions godoc
// @ID          leaderboardDefinitions
// @Summary     Leaderboard catalogue
// @Tags        Leaderboards
// @Produce     json
// @Success     200  {object}  handlers.Envelope{data=[]domain.LeaderboardMetadata}
// @Router      /leaderboards/definitions [get]
func (h *Handlers) LeaderboardDefinitions(c *gin.Context) {
	ok(c, http.StatusOK, services.Definitions(), "")
}

// GetLeaderboard godoc
// @ID          getLeaderboard
// @Summary     One leaderboard
// @Tags        Leaderboards
// @Produce     json
// @Param       type   path   string  true   "Board type"  Enums(QuestChampions,StreakKings,SpeedDemons,HardCrushers,ContestWarriors,RisingStars)
// @Param       limit  query  int     false  "Max entries (1-100)"  default(20)
// @Success     200  {object}  handlers.Envelope{data=services.Board}
// @Failure     400  {object}  handlers.Envelope
// @Router      /leaderboards/{type} [get]
func (h *Handlers) GetLeaderboard(c *gin.Context) {
	t, valid := h.boardType(c)
	if !valid {
		return
	}
	b, err := h.deps.Leaderboards.Board(c.Request.Context(), t, limitParam(c, defaultLimit))
	if err != nil {
		h.failErr(c, err)
		return
	}
	ok(c, http.StatusOK, b, "")
}

// AroundMe godoc
// @ID          leaderboardAroundMe
// @Summary     The caller's position on a board
// @Description The caller's entry plus the entries ranked within `range` places of it.
// @Tags        Leaderboards
// @Produce     json
// @Param       X-MS-CLIENT-PRINCIPAL-ID  header  string  true   "GitHub user id"
// @Param       type                      path    string  true   "Board type"
// @Param       range                     query   int     false  "Neighbours on each side (1-25)"  default(5)
// @Success     200  {object}  handlers.Envelope{data=services.Position}
// @Failure     404  {object}  handlers.Envelope  "Caller is not ranked"
// @Router      /leaderboards/{type}/around-me [get]
func (h *Handlers) AroundMe(c *gin.Context) {
	u, found := h.caller(c)
	if !found {
		return
	}
	t, valid := h.boardType(c)
	if !valid {
		return
	}
	window := utils.IntInRange(c.Query("range"), 5, 1, 25)
	pos, err := h.deps.Leaderboards.Around(c.Request.Context(), t, u.ID, window)
	if err != nil {
		h.failErr(c, err)
		return
	}
	ok(c, http.StatusOK, pos, "")
}

// PublishLeaderboardRequest carries standings ranked by an external job.
type PublishLeaderboardRequest struct {
	Standings []services.Standing `json:"standings"`
}

// PublishLeaderboard godoc
// @ID          publishLeaderboard
// @Summary     Publish leaderboard standings (admin)
// @Description Replaces a board with standings ranked elsewhere. Previous ranks are kept for rank-change display.
// @Tags        Admin
// @Accept      json
// @Produce     json
// @Param       X-MS-CLIENT-PRINCIPAL-ID  header  string                              true  "GitHub user id"
// @Param       type                      path    string                              true  "Board type"
// @Param       body                      body    handlers.PublishLeaderboardRequest  true  "Standings"
// @Success     200  {object}  handlers.Envelope{data=handlers.BatchResponse}
// @Failure     400  {object}  handlers.Envelope
// @Failure     403  {object}  handlers.Envelope
// @Router      /admin/leaderboards/{type} [put]
func (h *Handlers) PublishLeaderboard(c *gin.Context) {
	t, valid := h.boardType(c)
	if !valid {
		return
	}
	var req PublishLeaderboardRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.deps.Leaderboards.Publish(c.Request.Context(), t, req.Standings)
	if err != nil {
		h.failErr(c, err)
		return
	}
	ok(c, http.StatusOK, batchResponse(res), "Leaderboard published")
}
