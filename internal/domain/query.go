package domain

// QueryResult is the successful outcome of a repository call: the value plus
// what the store charged for it.
//
// Fields:
//   - Value: decoded entity, slice or page.
//   - Charge: non-negative cost units consumed (summed across pages).
//   - ContinuationToken: opaque cursor to resume a paged scan; empty when done.
//   - TotalCount: optional total when the store computed one.
type QueryResult[T any] struct {
	Value             T
	Charge            float64
	ContinuationToken string
	TotalCount        *int
}

// PagedList is one page of a larger, most-recent-first result set.
type PagedList[T any] struct {
	Items             []T
	PageNumber        int
	PageSize          int
	TotalCount        int
	ContinuationToken string
}

// TotalPages is ceil(TotalCount / PageSize).
func (p PagedList[T]) TotalPages() int {
	if p.PageSize <= 0 {
		return 0
	}
	return (p.TotalCount + p.PageSize - 1) / p.PageSize
}

func (p PagedList[T]) HasPreviousPage() bool { return p.PageNumber > 1 }

func (p PagedList[T]) HasNextPage() bool { return p.PageNumber < p.TotalPages() }
