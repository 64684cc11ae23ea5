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

// IdempotencyRepository remembers completed unsafe requests per user. A record
// is addressed by (scope, key) inside the user's partition, so saving the same
// tuple twice collides on the store's uniqueness check.
type IdempotencyRepository struct {
	*Repository[domain.IdempotencyRecord, *domain.IdempotencyRecord]
}

func NewIdempotencyRepository(c docstore.Container, opts ...Option) *IdempotencyRepository {
	return &IdempotencyRepository{NewRepository[domain.IdempotencyRecord](c, "Idempotency", opts...)}
}

// Find returns the unexpired record for (userID, scope, key) or NotFound.
func (r *IdempotencyRepository) Find(ctx context.Context, userID, scope, key string, now time.Time) (*domain.IdempotencyRecord, error) {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(scope) == "" || strings.TrimSpace(key) == "" {
		return nil, errs.NotFound("Idempotency", key)
	}
	id := domain.IdempotencyID(scope, key)
	res, err := r.GetByID(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if !now.Before(res.Value.ExpiresAt) {
		return nil, errs.NotFound("Idempotency", id)
	}
	return res.Value, nil
}

// Save stores the outcome of a request. An expired record for the same tuple
// is replaced; a live one yields Conflict.
func (r *IdempotencyRepository) Save(ctx context.Context, userID, scope, key, resourceID string, status int, ttl time.Duration) (*domain.IdempotencyRecord, error) {
	now := r.now().UTC()
	rec := &domain.IdempotencyRecord{
		UserID:     userID,
		Scope:      scope,
		Key:        key,
		ResourceID: resourceID,
		Status:     status,
		ExpiresAt:  now.Add(ttl),
	}
	rec.ID = domain.IdempotencyID(scope, key)

	_, err := r.Create(ctx, rec)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, errs.ErrConflict) {
		return nil, err
	}

	existing, gerr := r.GetByID(ctx, rec.ID, userID)
	if gerr != nil {
		return nil, gerr
	}
	if now.Before(existing.Value.ExpiresAt) {
		return nil, err
	}
	rec.CreatedAt = now
	rec.ETag = existing.Value.ETag
	if _, err := r.Update(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}
