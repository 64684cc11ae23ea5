// Package docstore is the document-store backend used by the repositories.
//
// A Container is one logical collection of JSON documents addressed by
// (partition key, id). It supports point reads, create, replace guarded by an
// opaque ETag, unconditional upsert, delete, and a restricted Cosmos-style SQL
// dialect with named parameters and continuation-token paging. Every call
// reports a cost in abstract request units.
//
// The production implementation stores documents in a single SQLite table via
// GORM; decorators add retries, a circuit breaker, a point-read cache, and
// Prometheus metrics.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Item is a stored document.
type Item struct {
	ID           string
	PartitionKey string
	ETag         string
	Body         []byte
	Timestamp    int64 // last write, unix seconds
}

// Response is the outcome of a point operation.
type Response struct {
	Item   Item
	Charge float64
}

// QueryRequest describes one page of a query.
//
// Fields:
//   - Text: query in the supported SQL dialect (see Translate).
//   - Params: values for @name placeholders.
//   - PartitionKey: restricts the scan to one partition when non-empty.
//   - MaxItems: page size; <= 0 uses the container default.
//   - Limit: cap on total results across all pages (0 = none).
//   - Skip: rows to skip before the first page when Continuation is empty.
//   - Continuation: token from a previous Page.
type QueryRequest struct {
	Text         string
	Params       map[string]any
	PartitionKey string
	MaxItems     int
	Limit        int
	Skip         int
	Continuation string
}

// Page is one page of query results. Offset is the position of the first
// item within the full result, whether the page was reached by Skip or by a
// continuation token.
type Page struct {
	Items        []Item
	Charge       float64
	Continuation string
	Offset       int
}

// Container is one document collection.
type Container interface {
	Name() string
	Read(ctx context.Context, id, partitionKey string) (Response, error)
	Create(ctx context.Context, item Item) (Response, error)
	// Replace overwrites an existing document. When ifMatch is non-empty the
	// write only happens if the stored ETag equals it.
	Replace(ctx context.Context, item Item, ifMatch string) (Response, error)
	Upsert(ctx context.Context, item Item) (Response, error)
	Delete(ctx context.Context, id, partitionKey string) (float64, error)
	Query(ctx context.Context, req QueryRequest) (Page, error)
	// Count returns the number of documents matching req, ignoring ordering
	// and paging fields.
	Count(ctx context.Context, req QueryRequest) (int, float64, error)
}

var (
	ErrNotFound           = errors.New("document not found")
	ErrConflict           = errors.New("document already exists")
	ErrPreconditionFailed = errors.New("etag mismatch")
	ErrThrottled          = errors.New("store busy")
	ErrBadRequest         = errors.New("bad request")
	ErrUnavailable        = errors.New("store unavailable")
)

// Error annotates a store failure with the operation and collection.
type Error struct {
	Op         string
	Collection string
	Err        error
}

func (e *Error) Error() string {
	return fmt.Sprintf("docstore %s %s: %v", e.Op, e.Collection, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// StatusCode maps err to the HTTP-style status a managed document store
// would report. Unknown errors are 500.
func StatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrPreconditionFailed):
		return http.StatusPreconditionFailed
	case errors.Is(err, ErrThrottled):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout
	}
	return http.StatusInternalServerError
}

func wrap(op, collection string, err error) error {
	if err == nil {
		return nil
	}
	var de *Error
	if errors.As(err, &de) {
		return err
	}
	return &Error{Op: op, Collection: collection, Err: err}
}

// badRequest builds an ErrBadRequest with a reason.
func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrBadRequest, fmt.Sprintf(format, args...))
}
