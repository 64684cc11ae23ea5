package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/levelup-backend/internal/domain"
)

// TodaysChallenge godoc
// @ID          todaysChallenge
// @Summary     Today's daily challenge
// @Tags        Challenges
// @Produce     json
// @Success     200  {object}  handlers.Envelope{data=domain.DailyChallenge}
// @Failure     404  {object}  handlers.Envelope
// @Router      /challenges/today [get]
func (h *Handlers) TodaysChallenge(c *gin.Context) {
	ch, err := h.deps.Community.TodaysChallenge(c.Request.Context())
	if err != nil {
		h.failErr(c, err)
		return
	}
	ok(c, http.StatusOK, ch, "")
}

// ActiveChallenges godoc
// @ID          activeChallenges
// @Summary     Active challenges
// @Tags        Challenges
// @Produce     json
// @Param       limit  query  int  false  "Max results (1-100)"  default(20)
// @Success     200  {object}  handlers.Envelope{data=[]domain.DailyChallenge}
// @Router      /challenges/active [get]
func (h *Handlers) ActiveChallenges(c *gin.Context) {
	list, err := h.deps.Community.ActiveChallenges(c.Request.Context(), limitParam(c, defaultLimit))
	if err != nil {
		h.failErr(c, err)
		return
	}
	ok(c, http.StatusOK, list, "")
}

// ChallengeByDate godoc
// @ID          challengeByDate
// @Summary     Challenge for a date
// @Tags        Challenges
// @Produce     json
// @Param       date  path  string  true  "yyyy-MM-dd"  example(2024-06-12)
// @Success     200  {object}  handlers.Envelope{data=domain.DailyChallenge}
// @Failure     400  {object}  handlers.Envelope
// @Failure     404  {object}  handlers.Envelope
// @Router      /challenges/{date} [get]
func (h *Handlers) ChallengeByDate(c *gin.Context) {
	date := c.Param("date")
	if _, err := domain.ParseDate(date); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "date must be yyyy-MM-dd")
		return
	}
	ch, err := h.deps.Community.Challenge(c.Request.Context(), date)
	if err != nil {
		h.failErr(c, err)
		return
	}
	ok(c, http.StatusOK, ch, "")
}

// ListChallenges godoc
// @ID          listChallenges
// @Summary     Challenges in a date range
// @Description Both bounds are inclusive and default to the last seven days. A range spans at most 31 days.
// @Tags        Challenges
// @Produce     json
// @Param       from  query  string  false  "yyyy-MM-dd"
// @Param       to    query  string  false  "yyyy-MM-dd"
// @Success     200  {object}  handlers.Envelope{data=[]domain.DailyChallenge}
// @Failure     400  {object}  handlers.Envelope
// @Router      /challenges [get]
func (h *Handlers) ListChallenges(c *gin.Context) {
	list, err := h.deps.Community.ChallengesBetween(c.Request.Context(), c.Query("from"), c.Query("to"))
	if err != nil {
		h.failErr(c, err)
		return
	}
	ok(c, http.StatusOK, list, "")
}

// CurrentGoal godoc
// @ID          currentCommunityGoal
// @Summary     This week's community goal
// @Tags        Community
// @Produce     json
// @Success     200  {object}  handlers.Envelope{data=domain.CommunityGoal}
// @Failure     404  {object}  handlers.Envelope
// @Router      /community-goals/current [get]
func (h *Handlers) CurrentGoal(c *gin.Context) {
	g, err := h.deps.Community.CurrentGoal(c.Request.Context())
	if err != nil {
		h.failErr(c, err)
		return
	}
	ok(c, http.StatusOK, g, "")
}

// RecentGoals godoc
// @ID          recentCommunityGoals
// @Summary     Recent community goals
// @Tags        Community
// @Produce     json
// @Param       limit  query  int  false  "Max results (1-100)"  default(10)
// @Success     200  {object}  handlers.Envelope{data=[]domain.CommunityGoal}
// @Router      /community-goals [get]
func (h *Handlers) RecentGoals(c *gin.Context) {
	list, err := h.deps.Community.RecentGoals(c.Request.Context(), limitParam(c, 10))
	if err != nil {
		h.failErr(c, err)
		return
	}
	ok(c, http.StatusOK, list, "")
}

// ActivityFeed godoc
// @ID          activityFeed
// @Summary     Community activity feed
// @Description Public activities, newest first. `type` narrows the feed to one activity type.
// @Tags        Community
// @Produce     json
// @Param       type   query  string  false  "Activity type"  Enums(ProblemSolved,StreakMaintained,StreakLost,QuestLevelCompleted,QuestCompleted,BadgeEarned,ChallengeCompleted,SquadJoined,SquadBattleWon,MentorHelped,ContestParticipated)
// @Param       limit  query  int     false  "Max results (1-100)"  default(20)
// @Success     200  {object}  handlers.Envelope{data=[]domain.Activity}
// @Router      /activities/feed [get]
func (h *Handlers) ActivityFeed(c *gin.Context) {
	t := domain.ActivityType(c.Query("type"))
	list, err := h.deps.Community.Feed(c.Request.Context(), t, limitParam(c, defaultLimit))
	if err != nil {
		h.failErr(c, err)
		return
	}
	ok(c, http.StatusOK, list, "")
}
