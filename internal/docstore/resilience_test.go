package docstore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// flaky is a Container whose Read fails with the queued errors before
// succeeding. Other methods are unused here.
type flaky struct {
	Container
	mu    sync.Mutex
	errs  []error
	calls int
}

func (f *flaky) Name() string { return "flaky" }

func (f *flaky) Read(ctx context.Context, id, pk string) (Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return Response{}, err
	}
	return Response{Item: Item{ID: id, PartitionKey: pk, ETag: "e1"}, Charge: 1}, nil
}

var fastRetry = RetryPolicy{MaxRetries: 3, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond}

func TestResilience_RetriesThrottled(t *testing.T) {
	f := &flaky{errs: []error{ErrThrottled, ErrThrottled}}
	c := WithResilience(f, fastRetry, BreakerPolicy{})

	resp, err := c.Read(context.Background(), "a", "p")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if f.calls != 3 || resp.Item.ETag != "e1" {
		t.Fatalf("calls=%d resp=%+v", f.calls, resp)
	}
}

func TestResilience_GivesUpAfterMaxRetries(t *testing.T) {
	f := &flaky{errs: []error{ErrThrottled, ErrThrottled, ErrThrottled, ErrThrottled, ErrThrottled}}
	c := WithResilience(f, fastRetry, BreakerPolicy{})

	_, err := c.Read(context.Background(), "a", "p")
	if !errors.Is(err, ErrThrottled) {
		t.Fatalf("expected ErrThrottled, got %v", err)
	}
	if f.calls != 4 {
		t.Fatalf("calls = %d; want 4 (1 + 3 retries)", f.calls)
	}
}

func TestResilience_DoesNotRetryNotFound(t *testing.T) {
	f := &flaky{errs: []error{ErrNotFound}}
	c := WithResilience(f, fastRetry, BreakerPolicy{})

	if _, err := c.Read(context.Background(), "a", "p"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if f.calls != 1 {
		t.Fatalf("calls = %d; want 1", f.calls)
	}
}

func TestResilience_BreakerOpensOnBackendFailures(t *testing.T) {
	f := &flaky{errs: []error{ErrUnavailable, ErrUnavailable, ErrNotFound}}
	c := WithResilience(f, RetryPolicy{}, BreakerPolicy{ConsecutiveFailures: 2, OpenTimeout: time.Minute})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := c.Read(ctx, "a", "p"); !errors.Is(err, ErrUnavailable) {
			t.Fatalf("call %d: expected ErrUnavailable, got %v", i, err)
		}
	}
	// Open: the backend is not called at all.
	_, err := c.Read(ctx, "a", "p")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable from open breaker, got %v", err)
	}
	if f.calls != 2 {
		t.Fatalf("calls = %d; want 2", f.calls)
	}
}

func TestResilience_ExpectedErrorsKeepBreakerClosed(t *testing.T) {
	f := &flaky{errs: []error{ErrNotFound, ErrNotFound, ErrNotFound}}
	c := WithResilience(f, RetryPolicy{}, BreakerPolicy{ConsecutiveFailures: 2, OpenTimeout: time.Minute})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, _ = c.Read(ctx, "a", "p")
	}
	if _, err := c.Read(ctx, "a", "p"); err != nil {
		t.Fatalf("breaker should stay closed, got %v", err)
	}
}

func TestResilience_StopsOnCanceledContext(t *testing.T) {
	f := &flaky{errs: []error{ErrThrottled, ErrThrottled, ErrThrottled}}
	c := WithResilience(f, RetryPolicy{MaxRetries: 3, InitialInterval: time.Hour}, BreakerPolicy{})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := c.Read(ctx, "a", "p")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context.DeadlineExceeded, got %v", err)
	}
}

func TestIsBackendFailure(t *testing.T) {
	for _, err := range []error{nil, ErrNotFound, ErrConflict, ErrPreconditionFailed, ErrBadRequest, context.Canceled} {
		if isBackendFailure(err) {
			t.Fatalf("%v should not count as a backend failure", err)
		}
	}
	for _, err := range []error{ErrUnavailable, ErrThrottled, errors.New("boom")} {
		if !isBackendFailure(err) {
			t.Fatalf("%v should count as a backend failure", err)
		}
	}
}
