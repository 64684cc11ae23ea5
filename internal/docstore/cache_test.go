package docstore

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestCache_ServesRepeatReadsWithoutCharge(t *testing.T) {
	base := NewSQLiteContainer(newStoreDB(t), "users", 0)
	c, err := WithCache(base, 8)
	if err != nil {
		t.Fatalf("WithCache: %v", err)
	}
	ctx := context.Background()

	created, err := c.Create(ctx, doc("u1", "u1", 1, ""))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	resp, err := c.Read(ctx, "u1", "u1")
	if err != nil || resp.Item.ETag != created.Item.ETag {
		t.Fatalf("read: %+v err=%v", resp, err)
	}
	if resp.Charge != 0 {
		t.Fatalf("cache hit charge = %v; want 0", resp.Charge)
	}
}

func TestCache_WriteRefreshesAndDeleteEvicts(t *testing.T) {
	base := NewSQLiteContainer(newStoreDB(t), "users", 0)
	c, _ := WithCache(base, 8)
	ctx := context.Background()

	created, _ := c.Create(ctx, doc("u1", "u1", 1, ""))
	replaced, err := c.Replace(ctx, doc("u1", "u1", 1, `,"v":2`), created.Item.ETag)
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	resp, _ := c.Read(ctx, "u1", "u1")
	if resp.Item.ETag != replaced.Item.ETag {
		t.Fatalf("cache not refreshed: %q vs %q", resp.Item.ETag, replaced.Item.ETag)
	}

	if _, err := c.Delete(ctx, "u1", "u1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := c.Read(ctx, "u1", "u1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestCache_PreconditionFailureEvicts(t *testing.T) {
	base := NewSQLiteContainer(newStoreDB(t), "users", 0)
	c, _ := WithCache(base, 8)
	ctx := context.Background()

	created, _ := c.Create(ctx, doc("u1", "u1", 1, ""))
	// Write behind the cache's back.
	behind, err := base.Replace(ctx, doc("u1", "u1", 1, `,"v":9`), created.Item.ETag)
	if err != nil {
		t.Fatalf("direct replace: %v", err)
	}
	if _, err := c.Replace(ctx, doc("u1", "u1", 1, `,"v":3`), created.Item.ETag); !errors.Is(err, ErrPreconditionFailed) {
		t.Fatalf("expected ErrPreconditionFailed, got %v", err)
	}
	resp, err := c.Read(ctx, "u1", "u1")
	if err != nil || resp.Item.ETag != behind.Item.ETag {
		t.Fatalf("stale entry served: %+v err=%v", resp.Item, err)
	}
}

func TestWithCache_ZeroSizeIsPassthrough(t *testing.T) {
	base := NewSQLiteContainer(newStoreDB(t), "users", 0)
	c, err := WithCache(base, 0)
	if err != nil || c != Container(base) {
		t.Fatalf("expected passthrough, got %T err=%v", c, err)
	}
}

// pausedRead holds the first Read after the backend answered, until release
// is closed.
type pausedRead struct {
	Container
	once     sync.Once
	answered chan struct{}
	release  chan struct{}
}

func (p *pausedRead) Read(ctx context.Context, id, pk string) (Response, error) {
	resp, err := p.Container.Read(ctx, id, pk)
	p.once.Do(func() {
		close(p.answered)
		<-p.release
	})
	return resp, err
}

// startPausedRead creates u1 behind an empty cache and leaves a Read of it
// parked with the original copy in hand.
func startPausedRead(t *testing.T) (Container, Response, func() Response) {
	t.Helper()
	base := NewSQLiteContainer(newStoreDB(t), "users", 0)
	ctx := context.Background()
	created, err := base.Create(ctx, doc("u1", "u1", 1, ""))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	slow := &pausedRead{Container: base, answered: make(chan struct{}), release: make(chan struct{})}
	c, err := WithCache(slow, 8)
	if err != nil {
		t.Fatalf("WithCache: %v", err)
	}

	done := make(chan Response, 1)
	go func() {
		resp, _ := c.Read(ctx, "u1", "u1")
		done <- resp
	}()
	<-slow.answered
	return c, created, func() Response {
		close(slow.release)
		return <-done
	}
}

func TestCache_InFlightReadDoesNotOverwriteNewerWrite(t *testing.T) {
	c, created, finish := startPausedRead(t)
	ctx := context.Background()

	replaced, err := c.Replace(ctx, doc("u1", "u1", 1, `,"v":2`), created.Item.ETag)
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	if old := finish(); old.Item.ETag != created.Item.ETag {
		t.Fatalf("parked read should have seen the original, got %q", old.Item.ETag)
	}

	resp, err := c.Read(ctx, "u1", "u1")
	if err != nil || resp.Item.ETag != replaced.Item.ETag {
		t.Fatalf("stale entry served after replace: %q want %q err=%v", resp.Item.ETag, replaced.Item.ETag, err)
	}
}

func TestCache_InFlightReadDoesNotResurrectDeleted(t *testing.T) {
	c, _, finish := startPausedRead(t)
	ctx := context.Background()

	if _, err := c.Delete(ctx, "u1", "u1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	finish()

	if _, err := c.Read(ctx, "u1", "u1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}
