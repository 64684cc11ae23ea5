package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/levelup-backend/internal/domain"
)

// UnreadCountResponse is the body of GET /notifications/unread-count.
type UnreadCountResponse struct {
	Count int `json:"count" example:"3"`
}

// SendNotificationRequest is the admin payload for pushing a notification.
type SendNotificationRequest struct {
	UserID    string                      `json:"userId" example:"6f1c..."`
	Type      domain.NotificationType     `json:"type" example:"WeeklyEvent"`
	Title     string                      `json:"title" example:"Double XP weekend"`
	Message   string                      `json:"message" example:"Every hard problem counts twice until Sunday."`
	Icon      string                      `json:"icon,omitempty"`
	Priority  domain.NotificationPriority `json:"priority,omitempty" example:"High"`
	ActionURL string                      `json:"actionUrl,omitempty"`
	// TTLHours sets ExpiresAt relative to now; zero never expires.
	TTLHours int `json:"ttlHours,omitempty" example:"72"`
}

// ListNotifications godoc
// @ID          listNotifications
// @Summary     The caller's notifications
// @Description Newest first. A continuationToken from a previous page takes precedence over page.
// @Tags        Notifications
// @Produce     json
// @Param       X-MS-CLIENT-PRINCIPAL-ID  header  string  true   "GitHub user id"
// @Param       page                      query   int     false  "Page number (1-based)"  default(1)
// @Param       pageSize                  query   int     false  "Page size (1-100)"  default(20)
// @Param       continuationToken         query   string  false  "Cursor from the previous page"
// @Success     200  {object}  handlers.Envelope{data=[]domain.Notification}
// @Failure     401  {object}  handlers.Envelope
// @Router      /notifications [get]
func (h *Handlers) ListNotifications(c *gin.Context) {
	u, found := h.caller(c)
	if !found {
		return
	}
	page, size := clampPagination(c)
	res, err := h.deps.Notifications.List(c.Request.Context(), u.ID, page, size, strings.TrimSpace(c.Query("continuationToken")))
	if err != nil {
		h.failErr(c, err)
		return
	}
	charge := res.Charge
	okMeta(c, http.StatusOK, res.Value.Items, "", &Metadata{
		Pagination: pageOf(res.Value),
		CostUnit:   &charge,
	})
}

// UnreadCount godoc
// @ID          unreadNotificationCount
// @Summary     Unread notification count
// @Tags        Notifications
// @Produce     json
// @Param       X-MS-CLIENT-PRINCIPAL-ID  header  string  true  "GitHub user id"
// @Success     200  {object}  handlers.Envelope{data=handlers.UnreadCountResponse}
// @Router      /notifications/unread-count [get]
func (h *Handlers) UnreadCount(c *gin.Context) {
	u, found := h.caller(c)
	if !found {
		return
	}
	n, err := h.deps.Notifications.UnreadCount(c.Request.Context(), u.ID)
	if err != nil {
		h.failErr(c, err)
		return
	}
	ok(c, http.StatusOK, UnreadCountResponse{Count: n}, "")
}

// ReadAll godoc
// @ID          markAllNotificationsRead
// @Summary     Mark every notification read
// @Description Notifications that changed concurrently are listed under `failed` and stay unread.
// @Tags        Notifications
// @Produce     json
// @Param       X-MS-CLIENT-PRINCIPAL-ID  header  string  true  "GitHub user id"
// @Success     200  {object}  handlers.Envelope{data=handlers.BatchResponse}
// @Router      /notifications/read-all [post]
func (h *Handlers) ReadAll(c *gin.Context) {
	u, found := h.caller(c)
	if !found {
		return
	}
	res, err := h.deps.Notifications.MarkAllRead(c.Request.Context(), u.ID)
	if err != nil {
		h.failErr(c, err)
		return
	}
	ok(c, http.StatusOK, batchResponse(res), "Notifications marked read")
}

// DeleteNotification godoc
// @ID          deleteNotification
// @Summary     Delete a notification
// @Tags        Notifications
// @Param       X-MS-CLIENT-PRINCIPAL-ID  header  string  true  "GitHub user id"
// @Param       id                        path    string  true  "Notification ID"
// @Success     204
// @Failure     404  {object}  handlers.Envelope
// @Router      /notifications/{id} [delete]
func (h *Handlers) DeleteNotification(c *gin.Context) {
	u, found := h.caller(c)
	if !found {
		return
	}
	if err := h.deps.Notifications.Delete(c.Request.Context(), u.ID, c.Param("id")); err != nil {
		h.failErr(c, err)
		return
	}
	noContent(c)
}

// SendNotification godoc
// @ID          sendNotification
// @Summary     Push a notification to a user (admin)
// @Tags        Admin
// @Accept      json
// @Produce     json
// @Param       X-MS-CLIENT-PRINCIPAL-ID  header  string                            true  "GitHub user id"
// @Param       body                      body    handlers.SendNotificationRequest  true  "Notification"
// @Success     201  {object}  handlers.Envelope{data=domain.Notification}
// @Failure     400  {object}  handlers.Envelope
// @Failure     403  {object}  handlers.Envelope
// @Router      /admin/notifications [post]
func (h *Handlers) SendNotification(c *gin.Context) {
	var req SendNotificationRequest
	if !bindJSON(c, &req) {
		return
	}
	if strings.TrimSpace(req.Title) == "" || req.Type == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "type and title are required")
		return
	}
	if _, err := h.deps.Users.Get(c.Request.Context(), req.UserID); err != nil {
		h.failErr(c, err)
		return
	}
	n := &domain.Notification{
		UserID:    req.UserID,
		Type:      req.Type,
		Title:     req.Title,
		Message:   req.Message,
		Icon:      req.Icon,
		Priority:  req.Priority,
		ActionURL: req.ActionURL,
	}
	if req.TTLHours > 0 {
		exp := time.Now().UTC().Add(time.Duration(req.TTLHours) * time.Hour)
		n.ExpiresAt = &exp
	}
	out, err := h.deps.Notifications.Notify(c.Request.Context(), n)
	if err != nil {
		h.failErr(c, err)
		return
	}
	ok(c, http.StatusCreated, out, "Created successfully")
}

// SweepNotifications godoc
// @ID          sweepNotifications
// @Summary     Delete expired notifications (admin)
// @Tags        Admin
// @Produce     json
// @Param       X-MS-CLIENT-PRINCIPAL-ID  header  string  true  "GitHub user id"
// @Success     200  {object}  handlers.Envelope{data=handlers.BatchResponse}
// @Failure     403  {object}  handlers.Envelope
// @Router      /admin/notifications/sweep [post]
func (h *Handlers) SweepNotifications(c *gin.Context) {
	res, err := h.deps.Notifications.Sweep(c.Request.Context())
	if err != nil {
		h.failErr(c, err)
		return
	}
	ok(c, http.StatusOK, batchResponse(res), "Expired notifications removed")
}
