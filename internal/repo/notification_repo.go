package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/tbourn/levelup-backend/internal/docstore"
	"github.com/tbourn/levelup-backend/internal/domain"
	"github.com/tbourn/levelup-backend/internal/errs"
)

// NotificationRepository stores in-app notifications, partitioned by UserID.
type NotificationRepository struct {
	*Repository[domain.Notification, *domain.Notification]
}

func NewNotificationRepository(c docstore.Container, opts ...Option) *NotificationRepository {
	return &NotificationRepository{NewRepository[domain.Notification](c, "Notification", opts...)}
}

// GetByUserID returns one page of userID's notifications, newest first.
// PartitionKey and Query of pr are overridden.
func (r *NotificationRepository) GetByUserID(ctx context.Context, userID string, pr PageRequest) (domain.QueryResult[domain.PagedList[*domain.Notification]], error) {
	if strings.TrimSpace(userID) == "" {
		return domain.QueryResult[domain.PagedList[*domain.Notification]]{}, errs.Validation("UserId", "User id is required.")
	}
	pr.PartitionKey = userID
	pr.Query = "SELECT * FROM c WHERE c.userId = @userId ORDER BY c.createdAt DESC"
	pr.Params = map[string]any{"userId": userID}
	return r.GetPaged(ctx, pr)
}

// GetUnread returns userID's unread notifications, newest first.
func (r *NotificationRepository) GetUnread(ctx context.Context, userID string) (domain.QueryResult[[]*domain.Notification], error) {
	if strings.TrimSpace(userID) == "" {
		return domain.QueryResult[[]*domain.Notification]{}, errs.Validation("UserId", "User id is required.")
	}
	return r.Query(ctx,
		"SELECT * FROM c WHERE c.userId = @userId AND c.isRead = false ORDER BY c.createdAt DESC",
		WithPartitionKey(userID), WithParam("userId", userID))
}

func (r *NotificationRepository) GetUnreadCount(ctx context.Context, userID string) (domain.QueryResult[int], error) {
	if strings.TrimSpace(userID) == "" {
		return domain.QueryResult[int]{}, errs.Validation("UserId", "User id is required.")
	}
	return r.Count(ctx,
		"SELECT * FROM c WHERE c.userId = @userId AND c.isRead = false",
		WithPartitionKey(userID), WithParam("userId", userID))
}

func (r *NotificationRepository) GetByType(ctx context.Context, userID string, t domain.NotificationType) (domain.QueryResult[[]*domain.Notification], error) {
	if strings.TrimSpace(userID) == "" {
		return domain.QueryResult[[]*domain.Notification]{}, errs.Validation("UserId", "User id is required.")
	}
	return r.Query(ctx,
		"SELECT * FROM c WHERE c.userId = @userId AND c.type = @type ORDER BY c.createdAt DESC",
		WithPartitionKey(userID), WithParam("userId", userID), WithParam("type", t))
}

// MarkAllAsRead marks every unread notification of userID as read. Each write
// is conditional on the ETag read a moment earlier; a notification changed in
// between is reported as a failure and left as is.
func (r *NotificationRepository) MarkAllAsRead(ctx context.Context, userID string) (BatchResult, error) {
	unread, err := r.GetUnread(ctx, userID)
	if err != nil {
		return BatchResult{}, err
	}
	res := BatchResult{Charge: unread.Charge}
	now := r.now()
	for _, n := range unread.Value {
		if err := ctx.Err(); err != nil {
			return res, errs.Canceled(err)
		}
		n.MarkRead(now)
		up, err := r.Update(ctx, n)
		if err != nil {
			if errors.Is(err, errs.ErrCanceled) {
				return res, err
			}
			res.Failures = append(res.Failures, ItemFailure{ID: n.ID, PartitionKey: userID, Err: err})
			continue
		}
		res.Succeeded++
		res.Charge += up.Charge
	}
	return res, nil
}

// DeleteExpired removes every notification whose expiry is before now.
func (r *NotificationRepository) DeleteExpired(ctx context.Context, now time.Time) (BatchResult, error) {
	expired, err := r.Query(ctx,
		"SELECT * FROM c WHERE c.expiresAt != null AND c.expiresAt < @now",
		WithParam("now", now))
	if err != nil {
		return BatchResult{}, err
	}
	res := BatchResult{Charge: expired.Charge}
	for _, n := range expired.Value {
		if err := ctx.Err(); err != nil {
			return res, errs.Canceled(err)
		}
		charge, err := r.remove(ctx, n.ID, n.PartitionKey())
		if err != nil && !errors.Is(err, errs.ErrNotFound) {
			if errors.Is(err, errs.ErrCanceled) {
				return res, err
			}
			res.Failures = append(res.Failures, ItemFailure{ID: n.ID, PartitionKey: n.PartitionKey(), Err: err})
			continue
		}
		res.Succeeded++
		res.Charge += charge
	}
	r.log.Info().Str("op", "delete_expired").Int("deleted", res.Succeeded).Int("failed", len(res.Failures)).Msg("expired notifications swept")
	return res, nil
}
