package docstore

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
)

// RetryPolicy controls retries of throttled calls.
type RetryPolicy struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// BreakerPolicy controls the circuit breaker. ConsecutiveFailures == 0
// disables it.
type BreakerPolicy struct {
	ConsecutiveFailures uint32
	OpenTimeout         time.Duration
}

// resilient retries ErrThrottled with exponential backoff and trips a circuit
// breaker after repeated backend failures. Expected outcomes (not found,
// conflicts, bad requests, cancellations) never count as failures.
type resilient struct {
	next    Container
	retry   RetryPolicy
	breaker *gobreaker.CircuitBreaker
}

// WithResilience wraps c with retry and circuit-breaker behavior.
func WithResilience(c Container, rp RetryPolicy, bp BreakerPolicy) Container {
	r := &resilient{next: c, retry: rp}
	if bp.ConsecutiveFailures > 0 {
		if bp.OpenTimeout <= 0 {
			bp.OpenTimeout = 30 * time.Second
		}
		r.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "docstore." + c.Name(),
			MaxRequests: 1,
			Timeout:     bp.OpenTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= bp.ConsecutiveFailures
			},
			IsSuccessful: func(err error) bool { return !isBackendFailure(err) },
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
			},
		})
	}
	return r
}

func isBackendFailure(err error) bool {
	if err == nil {
		return false
	}
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, ErrConflict),
		errors.Is(err, ErrPreconditionFailed),
		errors.Is(err, ErrBadRequest),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return false
	}
	return true
}

func (r *resilient) do(ctx context.Context, op string, fn func() error) error {
	call := fn
	if r.breaker != nil {
		call = func() error {
			_, err := r.breaker.Execute(func() (interface{}, error) { return nil, fn() })
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return wrap(op, r.next.Name(), errors.Join(ErrUnavailable, err))
			}
			return err
		}
	}
	if r.retry.MaxRetries <= 0 {
		return call()
	}

	b := backoff.NewExponentialBackOff()
	if r.retry.InitialInterval > 0 {
		b.InitialInterval = r.retry.InitialInterval
	}
	if r.retry.MaxInterval > 0 {
		b.MaxInterval = r.retry.MaxInterval
	}
	b.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(r.retry.MaxRetries)), ctx)

	err := backoff.Retry(func() error {
		err := call()
		if err != nil && !errors.Is(err, ErrThrottled) {
			return backoff.Permanent(err)
		}
		return err
	}, policy)
	if cerr := ctx.Err(); cerr != nil && err != nil && !errors.Is(err, cerr) {
		return cerr
	}
	return err
}

func (r *resilient) Name() string { return r.next.Name() }

func (r *resilient) Read(ctx context.Context, id, pk string) (resp Response, err error) {
	err = r.do(ctx, "read", func() error {
		resp, err = r.next.Read(ctx, id, pk)
		return err
	})
	return resp, err
}

func (r *resilient) Create(ctx context.Context, item Item) (resp Response, err error) {
	err = r.do(ctx, "create", func() error {
		resp, err = r.next.Create(ctx, item)
		return err
	})
	return resp, err
}

func (r *resilient) Replace(ctx context.Context, item Item, ifMatch string) (resp Response, err error) {
	err = r.do(ctx, "replace", func() error {
		resp, err = r.next.Replace(ctx, item, ifMatch)
		return err
	})
	return resp, err
}

func (r *resilient) Upsert(ctx context.Context, item Item) (resp Response, err error) {
	err = r.do(ctx, "upsert", func() error {
		resp, err = r.next.Upsert(ctx, item)
		return err
	})
	return resp, err
}

func (r *resilient) Delete(ctx context.Context, id, pk string) (charge float64, err error) {
	err = r.do(ctx, "delete", func() error {
		charge, err = r.next.Delete(ctx, id, pk)
		return err
	})
	return charge, err
}

func (r *resilient) Query(ctx context.Context, req QueryRequest) (page Page, err error) {
	err = r.do(ctx, "query", func() error {
		page, err = r.next.Query(ctx, req)
		return err
	})
	return page, err
}

func (r *resilient) Count(ctx context.Context, req QueryRequest) (n int, charge float64, err error) {
	err = r.do(ctx, "count", func() error {
		n, charge, err = r.next.Count(ctx, req)
		return err
	})
	return n, charge, err
}
