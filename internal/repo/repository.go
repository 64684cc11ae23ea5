// Package repo implements the data persistence layer for domain entities on
// top of the document store.
//
// Repository[T, P] is the generic base: point reads and writes addressed by
// (id, partition key), ETag-guarded updates, exhaustive multi-page queries,
// page-at-a-time listing with continuation tokens, and partition-grouped batch
// upserts. Each per-entity repository embeds one and adds its read patterns.
//
// Error semantics:
//   - Every failure is an *errs.Error. Store sentinels are translated in one
//     place (fail): ErrNotFound -> NotFound, ErrConflict and
//     ErrPreconditionFailed -> Conflict, ErrBadRequest -> Validation, context
//     cancellation -> Canceled, anything else -> Database.
//   - Success is a nil error together with a domain.QueryResult carrying the
//     request units the store charged.
//
// Usage:
//
//	users := repo.NewUserRepository(containers.Users)
//	res, err := users.GetByID(ctx, id, id)
//	if errors.Is(err, errs.ErrNotFound) {
//	    // handle missing
//	}
package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/levelup-backend/internal/docstore"
	"github.com/tbourn/levelup-backend/internal/domain"
	"github.com/tbourn/levelup-backend/internal/errs"
)

const (
	// DefaultMaxLimit bounds WithLimit when no other maximum is configured.
	DefaultMaxLimit = 1000
	// DefaultPageSize is used by GetPaged when the request leaves it unset.
	DefaultPageSize = 20

	newestFirst = "SELECT * FROM c ORDER BY c.createdAt DESC"
)

// Repository is the generic document repository for entity type T. P is *T
// and must implement domain.Entity.
type Repository[T any, P interface {
	*T
	domain.Entity
}] struct {
	c        docstore.Container
	entity   string
	log      zerolog.Logger
	now      func() time.Time
	maxLimit int
}

// Option configures a Repository.
type Option func(*options)

type options struct {
	logger   *zerolog.Logger
	now      func() time.Time
	maxLimit int
}

// WithLogger replaces the repository logger. The collection and component
// fields are added on top.
func WithLogger(l zerolog.Logger) Option { return func(o *options) { o.logger = &l } }

// WithClock sets the time source used for CreatedAt/UpdatedAt.
func WithClock(now func() time.Time) Option { return func(o *options) { o.now = now } }

// WithMaxLimit sets the largest value accepted by WithLimit and page sizes.
func WithMaxLimit(n int) Option { return func(o *options) { o.maxLimit = n } }

// NewRepository returns a repository over c. entity names the type in error
// codes, e.g. "User" yields "User.NotFound".
func NewRepository[T any, P interface {
	*T
	domain.Entity
}](c docstore.Container, entity string, opts ...Option) *Repository[T, P] {
	o := options{now: time.Now, maxLimit: DefaultMaxLimit}
	for _, opt := range opts {
		opt(&o)
	}
	if o.maxLimit <= 0 {
		o.maxLimit = DefaultMaxLimit
	}
	base := log.Logger
	if o.logger != nil {
		base = *o.logger
	}
	return &Repository[T, P]{
		c:        c,
		entity:   entity,
		log:      base.With().Str("component", "repo").Str("collection", c.Name()).Logger(),
		now:      o.now,
		maxLimit: o.maxLimit,
	}
}

// MaxLimit is the largest accepted limit or page size.
func (r *Repository[T, P]) MaxLimit() int { return r.maxLimit }

// GetByID reads one document by id within partition pk.
func (r *Repository[T, P]) GetByID(ctx context.Context, id, pk string) (domain.QueryResult[P], error) {
	var out domain.QueryResult[P]
	if strings.TrimSpace(id) == "" {
		return out, errs.Validation("Id", "Id is required.")
	}
	resp, err := r.c.Read(ctx, id, pk)
	if err != nil {
		return out, r.fail(ctx, "get", id, err)
	}
	v, err := r.decode(resp.Item)
	if err != nil {
		return out, err
	}
	out.Value, out.Charge = v, resp.Charge
	return out, nil
}

// Create inserts e. It assigns an ID when empty, stamps CreatedAt, and sets
// the store's ETag on e, which is also returned as the result value.
func (r *Repository[T, P]) Create(ctx context.Context, e P) (domain.QueryResult[P], error) {
	var out domain.QueryResult[P]
	if e == nil {
		return out, errs.NullValue
	}
	m := e.Meta()
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	m.CreatedAt = r.now().UTC()
	item, err := r.encode(e)
	if err != nil {
		return out, err
	}
	resp, err := r.c.Create(ctx, item)
	if err != nil {
		return out, r.fail(ctx, "create", m.ID, err)
	}
	m.ETag = resp.Item.ETag
	r.log.Info().Str("op", "create").Str("id", m.ID).Float64("charge", resp.Charge).Msg("document written")
	out.Value, out.Charge = e, resp.Charge
	return out, nil
}

// Update replaces an existing document. When e carries an ETag the write only
// succeeds if the stored document still has it; otherwise it is an
// unconditional replace. UpdatedAt is refreshed.
func (r *Repository[T, P]) Update(ctx context.Context, e P) (domain.QueryResult[P], error) {
	var out domain.QueryResult[P]
	if e == nil {
		return out, errs.NullValue
	}
	m := e.Meta()
	if strings.TrimSpace(m.ID) == "" {
		return out, errs.Validation("Id", "Id is required.")
	}
	now := r.now().UTC()
	m.UpdatedAt = &now
	ifMatch := m.ETag
	item, err := r.encode(e)
	if err != nil {
		return out, err
	}
	resp, err := r.c.Replace(ctx, item, ifMatch)
	if err != nil {
		return out, r.fail(ctx, "update", m.ID, err)
	}
	m.ETag = resp.Item.ETag
	r.log.Info().Str("op", "update").Str("id", m.ID).Float64("charge", resp.Charge).Msg("document written")
	out.Value, out.Charge = e, resp.Charge
	return out, nil
}

// Upsert creates or replaces e without a concurrency check.
func (r *Repository[T, P]) Upsert(ctx context.Context, e P) (domain.QueryResult[P], error) {
	var out domain.QueryResult[P]
	if e == nil {
		return out, errs.NullValue
	}
	m := e.Meta()
	now := r.now().UTC()
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.UpdatedAt = &now
	item, err := r.encode(e)
	if err != nil {
		return out, err
	}
	resp, err := r.c.Upsert(ctx, item)
	if err != nil {
		return out, r.fail(ctx, "upsert", m.ID, err)
	}
	m.ETag = resp.Item.ETag
	r.log.Info().Str("op", "upsert").Str("id", m.ID).Float64("charge", resp.Charge).Msg("document written")
	out.Value, out.Charge = e, resp.Charge
	return out, nil
}

// Delete removes the document (id, pk).
func (r *Repository[T, P]) Delete(ctx context.Context, id, pk string) error {
	_, err := r.remove(ctx, id, pk)
	return err
}

func (r *Repository[T, P]) remove(ctx context.Context, id, pk string) (float64, error) {
	if strings.TrimSpace(id) == "" {
		return 0, errs.Validation("Id", "Id is required.")
	}
	charge, err := r.c.Delete(ctx, id, pk)
	if err != nil {
		return 0, r.fail(ctx, "delete", id, err)
	}
	r.log.Info().Str("op", "delete").Str("id", id).Float64("charge", charge).Msg("document deleted")
	return charge, nil
}

// Exists reports whether (id, pk) is stored. Only NotFound yields false with
// a nil error; other failures are returned.
func (r *Repository[T, P]) Exists(ctx context.Context, id, pk string) (bool, error) {
	_, err := r.GetByID(ctx, id, pk)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, errs.ErrNotFound):
		return false, nil
	}
	return false, err
}

// QueryOption refines Query, Count and FindOne.
type QueryOption func(*queryOptions)

type queryOptions struct {
	partitionKey string
	params       map[string]any
	limit        int
	limitSet     bool
}

// WithPartitionKey restricts the scan to one partition.
func WithPartitionKey(pk string) QueryOption {
	return func(o *queryOptions) { o.partitionKey = pk }
}

// WithParam binds @name to v.
func WithParam(name string, v any) QueryOption {
	return func(o *queryOptions) {
		if o.params == nil {
			o.params = map[string]any{}
		}
		o.params[strings.TrimPrefix(name, "@")] = v
	}
}

// WithParams binds every entry of params.
func WithParams(params map[string]any) QueryOption {
	return func(o *queryOptions) {
		for k, v := range params {
			WithParam(k, v)(o)
		}
	}
}

// WithLimit caps the number of results. n must be within [1, MaxLimit]; it is
// passed to the store as a request option and never spliced into query text.
func WithLimit(n int) QueryOption {
	return func(o *queryOptions) { o.limit, o.limitSet = n, true }
}

func (r *Repository[T, P]) request(text string, opts []QueryOption) (docstore.QueryRequest, error) {
	var o queryOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.limitSet && (o.limit < 1 || o.limit > r.maxLimit) {
		return docstore.QueryRequest{}, errs.Validation("Limit", fmt.Sprintf("Limit must be between 1 and %d.", r.maxLimit))
	}
	return docstore.QueryRequest{
		Text:         text,
		Params:       o.params,
		PartitionKey: o.partitionKey,
		Limit:        o.limit,
	}, nil
}

// Query runs text and follows continuation tokens until the result set is
// exhausted. Charges of all pages are summed.
func (r *Repository[T, P]) Query(ctx context.Context, text string, opts ...QueryOption) (domain.QueryResult[[]P], error) {
	out := domain.QueryResult[[]P]{Value: []P{}}
	req, err := r.request(text, opts)
	if err != nil {
		return out, err
	}
	for {
		page, err := r.c.Query(ctx, req)
		if err != nil {
			return domain.QueryResult[[]P]{}, r.fail(ctx, "query", "", err)
		}
		out.Charge += page.Charge
		for _, it := range page.Items {
			v, err := r.decode(it)
			if err != nil {
				return domain.QueryResult[[]P]{}, err
			}
			out.Value = append(out.Value, v)
		}
		if page.Continuation == "" {
			break
		}
		if err := ctx.Err(); err != nil {
			return domain.QueryResult[[]P]{}, errs.Canceled(err)
		}
		req.Continuation = page.Continuation
	}
	r.log.Debug().Str("op", "query").Int("count", len(out.Value)).Float64("charge", out.Charge).Msg("query executed")
	return out, nil
}

// FindOne runs text expecting zero or one result. Zero results is
// NotFound(entity, key); more than one is not checked.
func (r *Repository[T, P]) FindOne(ctx context.Context, key, text string, opts ...QueryOption) (domain.QueryResult[P], error) {
	var out domain.QueryResult[P]
	res, err := r.Query(ctx, text, append(opts, WithLimit(1))...)
	if err != nil {
		return out, err
	}
	if len(res.Value) == 0 {
		return domain.QueryResult[P]{Charge: res.Charge}, errs.NotFound(r.entity, key)
	}
	out.Value, out.Charge = res.Value[0], res.Charge
	return out, nil
}

// Count returns the number of documents matching text.
func (r *Repository[T, P]) Count(ctx context.Context, text string, opts ...QueryOption) (domain.QueryResult[int], error) {
	var out domain.QueryResult[int]
	req, err := r.request(text, opts)
	if err != nil {
		return out, err
	}
	n, charge, err := r.c.Count(ctx, req)
	if err != nil {
		return out, r.fail(ctx, "count", "", err)
	}
	out.Value, out.Charge = n, charge
	return out, nil
}

// GetAllByPartitionKey returns every document of partition pk, newest first.
func (r *Repository[T, P]) GetAllByPartitionKey(ctx context.Context, pk string) (domain.QueryResult[[]P], error) {
	if strings.TrimSpace(pk) == "" {
		return domain.QueryResult[[]P]{}, errs.Validation("PartitionKey", "Partition key is required.")
	}
	return r.Query(ctx, newestFirst, WithPartitionKey(pk))
}

// PageRequest selects one page for GetPaged.
//
// Fields:
//   - PageNumber: 1-based; values < 1 become 1.
//   - PageSize: items per page; 0 uses DefaultPageSize.
//   - PartitionKey: optional partition restriction.
//   - ContinuationToken: resumes a previous scan; when empty the page is
//     located by skipping (PageNumber-1)*PageSize items.
//   - Query, Params: optional filter; defaults to every document newest first.
type PageRequest struct {
	PageNumber        int
	PageSize          int
	PartitionKey      string
	ContinuationToken string
	Query             string
	Params            map[string]any
}

// GetPaged returns one page. TotalCount is the number of documents matching
// the query overall, computed with an extra count request. When a
// continuation token is supplied it decides the position, and PageNumber is
// reported from where the token landed rather than echoed from the request.
func (r *Repository[T, P]) GetPaged(ctx context.Context, pr PageRequest) (domain.QueryResult[domain.PagedList[P]], error) {
	var out domain.QueryResult[domain.PagedList[P]]
	if pr.PageNumber < 1 {
		pr.PageNumber = 1
	}
	if pr.PageSize == 0 {
		pr.PageSize = DefaultPageSize
	}
	if pr.PageSize < 1 || pr.PageSize > r.maxLimit {
		return out, errs.Validation("PageSize", fmt.Sprintf("PageSize must be between 1 and %d.", r.maxLimit))
	}
	if pr.Query == "" {
		pr.Query = newestFirst
	}

	req := docstore.QueryRequest{
		Text:         pr.Query,
		Params:       pr.Params,
		PartitionKey: pr.PartitionKey,
		MaxItems:     pr.PageSize,
		Continuation: pr.ContinuationToken,
	}
	if req.Continuation == "" {
		req.Skip = (pr.PageNumber - 1) * pr.PageSize
	}
	page, err := r.c.Query(ctx, req)
	if err != nil {
		return out, r.fail(ctx, "page", "", err)
	}
	if pr.ContinuationToken != "" {
		pr.PageNumber = page.Offset/pr.PageSize + 1
	}
	items := make([]P, 0, len(page.Items))
	for _, it := range page.Items {
		v, err := r.decode(it)
		if err != nil {
			return out, err
		}
		items = append(items, v)
	}

	total, countCharge, err := r.c.Count(ctx, req)
	if err != nil {
		return out, r.fail(ctx, "count", "", err)
	}

	out.Value = domain.PagedList[P]{
		Items:             items,
		PageNumber:        pr.PageNumber,
		PageSize:          pr.PageSize,
		TotalCount:        total,
		ContinuationToken: page.Continuation,
	}
	out.Charge = page.Charge + countCharge
	out.ContinuationToken = page.Continuation
	out.TotalCount = &total
	return out, nil
}

// ItemFailure is one entity a batch could not write.
type ItemFailure struct {
	ID           string
	PartitionKey string
	Err          error
}

// BatchResult reports a batch write item by item.
type BatchResult struct {
	Succeeded int
	Failures  []ItemFailure
	Charge    float64
}

// Attempted is the number of items the batch tried to write.
func (b BatchResult) Attempted() int { return b.Succeeded + len(b.Failures) }

// OK reports whether every item was written.
func (b BatchResult) OK() bool { return len(b.Failures) == 0 }

// Err joins the per-item errors, or nil when every item was written.
func (b BatchResult) Err() error {
	if b.OK() {
		return nil
	}
	list := make([]error, 0, len(b.Failures))
	for _, f := range b.Failures {
		list = append(list, fmt.Errorf("%s/%s: %w", f.PartitionKey, f.ID, f.Err))
	}
	return errors.Join(list...)
}

// BatchUpsert upserts every entity, grouped by partition key in first-seen
// order. A failing item is recorded and the batch continues; the returned
// error is non-nil only when ctx ends before the batch completes.
func (r *Repository[T, P]) BatchUpsert(ctx context.Context, entities []P) (BatchResult, error) {
	var res BatchResult
	var order []string
	groups := map[string][]P{}
	for _, e := range entities {
		if e == nil {
			res.Failures = append(res.Failures, ItemFailure{Err: errs.NullValue})
			continue
		}
		pk := e.PartitionKey()
		if _, ok := groups[pk]; !ok {
			order = append(order, pk)
		}
		groups[pk] = append(groups[pk], e)
	}

	for _, pk := range order {
		for _, e := range groups[pk] {
			if err := ctx.Err(); err != nil {
				return res, errs.Canceled(err)
			}
			up, err := r.Upsert(ctx, e)
			if err != nil {
				if errors.Is(err, errs.ErrCanceled) {
					return res, err
				}
				r.log.Warn().Err(err).Str("op", "batch_upsert").Str("id", e.Meta().ID).Str("partition_key", pk).Msg("batch item failed")
				res.Failures = append(res.Failures, ItemFailure{ID: e.Meta().ID, PartitionKey: pk, Err: err})
				continue
			}
			res.Succeeded++
			res.Charge += up.Charge
		}
	}
	r.log.Info().Str("op", "batch_upsert").Int("succeeded", res.Succeeded).Int("failed", len(res.Failures)).Float64("charge", res.Charge).Msg("batch complete")
	return res, nil
}

func (r *Repository[T, P]) encode(e P) (docstore.Item, error) {
	m := e.Meta()
	etag := m.ETag
	m.ETag = ""
	body, err := docstore.Marshal(e)
	m.ETag = etag
	if err != nil {
		return docstore.Item{}, errs.Database(fmt.Sprintf("Failed to encode %s.", r.entity), err)
	}
	pk := e.PartitionKey()
	if strings.TrimSpace(pk) == "" {
		return docstore.Item{}, errs.Validation("PartitionKey", "Partition key is required.")
	}
	return docstore.Item{ID: m.ID, PartitionKey: pk, Body: body}, nil
}

func (r *Repository[T, P]) decode(it docstore.Item) (P, error) {
	v := P(new(T))
	if err := docstore.Unmarshal(it.Body, v); err != nil {
		return nil, errs.Database(fmt.Sprintf("Failed to decode %s '%s'.", r.entity, it.ID), err)
	}
	v.Meta().ETag = it.ETag
	return v, nil
}

// fail translates a store error into the errs taxonomy and logs it.
func (r *Repository[T, P]) fail(ctx context.Context, op, id string, err error) error {
	if cerr := ctx.Err(); cerr != nil {
		return errs.Canceled(cerr)
	}
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return errs.Canceled(err)
	case errors.Is(err, docstore.ErrNotFound):
		r.log.Debug().Str("op", op).Str("id", id).Msg("document not found")
		return errs.NotFound(r.entity, id)
	case errors.Is(err, docstore.ErrConflict):
		return withCause(errs.Conflict(r.entity, fmt.Sprintf("%s with ID '%s' already exists.", r.entity, id)), err)
	case errors.Is(err, docstore.ErrPreconditionFailed):
		return withCause(errs.Conflict(r.entity, "The entity was modified by another process."), err)
	case errors.Is(err, docstore.ErrBadRequest):
		r.log.Warn().Err(err).Str("op", op).Int("status", docstore.StatusCode(err)).Msg("store rejected request")
		return withCause(errs.Validation("Query", "The query or continuation token is invalid."), err)
	}
	r.log.Error().Err(err).Str("op", op).Str("id", id).Int("status", docstore.StatusCode(err)).Msg("store operation failed")
	return errs.Database(fmt.Sprintf("A database error occurred while accessing %s.", r.entity), err)
}

func withCause(e *errs.Error, cause error) *errs.Error {
	e.Err = cause
	return e
}
