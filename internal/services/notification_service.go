package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"

	"github.com/tbourn/levelup-backend/internal/domain"
	"github.com/tbourn/levelup-backend/internal/errs"
	"github.com/tbourn/levelup-backend/internal/observability"
	"github.com/tbourn/levelup-backend/internal/repo"
)

// NotificationRepo is the notification persistence contract required by
// NotificationService.
type NotificationRepo interface {
	Create(ctx context.Context, n *domain.Notification) (domain.QueryResult[*domain.Notification], error)
	Delete(ctx context.Context, id, pk string) error
	GetByUserID(ctx context.Context, userID string, pr repo.PageRequest) (domain.QueryResult[domain.PagedList[*domain.Notification]], error)
	GetUnreadCount(ctx context.Context, userID string) (domain.QueryResult[int], error)
	MarkAllAsRead(ctx context.Context, userID string) (repo.BatchResult, error)
	DeleteExpired(ctx context.Context, now time.Time) (repo.BatchResult, error)
}

// NotificationService serves a user's inbox and sweeps expired entries.
type NotificationService struct {
	Repo NotificationRepo
	Now  func() time.Time
	Log  zerolog.Logger
}

func NewNotificationService(r NotificationRepo) *NotificationService {
	return &NotificationService{
		Repo: r,
		Now:  time.Now,
		Log:  log.Logger.With().Str("component", "notification_service").Logger(),
	}
}

// List returns one page of userID's notifications, newest first. A
// continuation token from the previous page takes precedence over the page
// number.
func (s *NotificationService) List(ctx context.Context, userID string, page, pageSize int, token string) (domain.QueryResult[domain.PagedList[*domain.Notification]], error) {
	return s.Repo.GetByUserID(ctx, userID, repo.PageRequest{
		PageNumber:        page,
		PageSize:          pageSize,
		ContinuationToken: token,
	})
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int, error) {
	res, err := s.Repo.GetUnreadCount(ctx, userID)
	if err != nil {
		return 0, err
	}
	return res.Value, nil
}

// MarkAllRead marks every unread notification as read. Items that changed
// concurrently are reported in the result and left for the next call.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) (repo.BatchResult, error) {
	res, err := s.Repo.MarkAllAsRead(ctx, userID)
	if err != nil {
		return res, err
	}
	if !res.OK() {
		s.Log.Warn().Str("user_id", userID).Int("failed", len(res.Failures)).Msg("some notifications were not marked read")
	}
	return res, nil
}

// Notify stores a notification for n.UserID.
func (s *NotificationService) Notify(ctx context.Context, n *domain.Notification) (*domain.Notification, error) {
	if n == nil {
		return nil, errs.NullValue
	}
	if n.UserID == "" {
		return nil, errs.Validation("UserId", "User id is required.")
	}
	if n.Priority == "" {
		n.Priority = domain.PriorityMedium
	}
	if _, err := s.Repo.Create(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

// Delete removes notification id from userID's inbox. Deleting someone
// else's notification is indistinguishable from deleting a missing one.
func (s *NotificationService) Delete(ctx context.Context, userID, id string) error {
	if userID == "" {
		return errs.Unauthorized("")
	}
	return s.Repo.Delete(ctx, id, userID)
}

// Sweep deletes every notification that has expired.
func (s *NotificationService) Sweep(ctx context.Context) (repo.BatchResult, error) {
	ctx, span := observability.StartSpan(ctx, "notifications.sweep")
	res, err := s.Repo.DeleteExpired(ctx, s.Now().UTC())
	span.SetAttributes(attribute.Int("notifications.deleted", res.Succeeded))
	observability.EndSpan(span, err)
	return res, err
}

// RunSweeper calls Sweep every interval until ctx is done.
func (s *NotificationService) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			res, err := s.Sweep(ctx)
			if err != nil {
				s.Log.Error().Err(err).Msg("notification sweep")
				continue
			}
			if res.Succeeded > 0 || !res.OK() {
				s.Log.Info().Int("deleted", res.Succeeded).Int("failed", len(res.Failures)).Float64("charge", res.Charge).Msg("notification sweep")
			}
		}
	}
}
