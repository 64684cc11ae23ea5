package docstore

import (
	"context"
	"errors"
	"hash/fnv"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// cached serves point reads from an in-process LRU. Writes through this
// container refresh or evict the entry; queries always hit the backend.
// Cache hits report a zero charge.
//
// Every write bumps a generation counter for the key's stripe. A read only
// fills the cache when no write touched the stripe while it was at the
// backend, so an in-flight read can never put back a copy older than a
// write that has already returned.
type cached struct {
	Container
	items *lru.Cache[string, Item]

	mu   sync.Mutex
	gens [cacheStripes]uint64
}

const cacheStripes = 64

// WithCache wraps c with a point-read cache of size entries. size <= 0
// returns c unchanged.
func WithCache(c Container, size int) (Container, error) {
	if size <= 0 {
		return c, nil
	}
	items, err := lru.New[string, Item](size)
	if err != nil {
		return nil, err
	}
	return &cached{Container: c, items: items}, nil
}

func cacheKey(pk, id string) string { return pk + "\x00" + id }

func stripe(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % cacheStripes)
}

func (c *cached) generation(key string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gens[stripe(key)]
}

func (c *cached) Read(ctx context.Context, id, pk string) (Response, error) {
	key := cacheKey(pk, id)
	if it, ok := c.items.Get(key); ok {
		return Response{Item: it}, nil
	}
	gen := c.generation(key)
	resp, err := c.Container.Read(ctx, id, pk)
	if err == nil {
		c.mu.Lock()
		if c.gens[stripe(key)] == gen {
			c.items.Add(key, resp.Item)
		}
		c.mu.Unlock()
	}
	return resp, err
}

func (c *cached) Create(ctx context.Context, item Item) (Response, error) {
	gen := c.generation(cacheKey(item.PartitionKey, item.ID))
	resp, err := c.Container.Create(ctx, item)
	c.after(item, gen, resp, err)
	return resp, err
}

func (c *cached) Replace(ctx context.Context, item Item, ifMatch string) (Response, error) {
	gen := c.generation(cacheKey(item.PartitionKey, item.ID))
	resp, err := c.Container.Replace(ctx, item, ifMatch)
	c.after(item, gen, resp, err)
	return resp, err
}

func (c *cached) Upsert(ctx context.Context, item Item) (Response, error) {
	gen := c.generation(cacheKey(item.PartitionKey, item.ID))
	resp, err := c.Container.Upsert(ctx, item)
	c.after(item, gen, resp, err)
	return resp, err
}

func (c *cached) Delete(ctx context.Context, id, pk string) (float64, error) {
	charge, err := c.Container.Delete(ctx, id, pk)
	key := cacheKey(pk, id)
	c.mu.Lock()
	c.gens[stripe(key)]++
	c.items.Remove(key)
	c.mu.Unlock()
	return charge, err
}

// after settles the cache once a write returns. The write's own result is
// kept only when no other write on the stripe finished in the meantime;
// otherwise the order of the two is unknown and the entry is dropped.
func (c *cached) after(item Item, gen uint64, resp Response, err error) {
	key := cacheKey(item.PartitionKey, item.ID)
	c.mu.Lock()
	defer c.mu.Unlock()
	s := stripe(key)
	fresh := c.gens[s] == gen
	c.gens[s]++
	if err != nil {
		// A failed conditional write means our copy may be stale.
		if errors.Is(err, ErrPreconditionFailed) || errors.Is(err, ErrNotFound) {
			c.items.Remove(key)
		}
		return
	}
	if fresh {
		c.items.Add(key, resp.Item)
		return
	}
	c.items.Remove(key)
}
