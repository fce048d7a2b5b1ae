// Package pagination provides a generic single-round-trip pagination
// primitive: the target query is wrapped in a window-function count so each
// page carries the total row count without a second counting query.
package pagination

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/taskmesh/a2a-connector/internal/models"
)

// DefaultPerPage is the page size used when the caller does not supply one.
const DefaultPerPage = 25

// MaxPerPage caps the page size a caller may request.
const MaxPerPage = 200

// Options selects one page of a query, either by page number (1-based) or
// by explicit offset. PerPage of zero means DefaultPerPage.
type Options struct {
	Page    *int `json:"page,omitempty" form:"page"`
	Offset  *int `json:"offset,omitempty" form:"offset"`
	PerPage int  `json:"per_page,omitempty" form:"per_page"`
}

// perPage returns the effective page size.
func (o Options) perPage() int {
	switch {
	case o.PerPage <= 0:
		return DefaultPerPage
	case o.PerPage > MaxPerPage:
		return MaxPerPage
	}
	return o.PerPage
}

// offset returns the effective row offset. An explicit Offset wins over a
// page number.
func (o Options) offset() int {
	if o.Offset != nil && *o.Offset >= 0 {
		return *o.Offset
	}
	if o.Page != nil && *o.Page > 1 {
		return (*o.Page - 1) * o.perPage()
	}
	return 0
}

// Paginated is one page of records plus the total row count of the
// unpaginated query and whether more pages follow.
type Paginated[T any] struct {
	Records []T   `json:"records"`
	Total   int64 `json:"total"`
	HasMore bool  `json:"has_more"`
}

// Querier is the subset of pgx used by the pagination engine. It is
// satisfied by *pgxpool.Pool, a pooled connection, and pgx.Tx.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Paginate executes query wrapped in a window-count projection, fetching
// per_page+1 rows in a single round trip. Each row is rendered to JSON by
// the database and decoded into T, so the counting column is appended
// generically instead of being baked into every query's scan list.
func Paginate[T any](ctx context.Context, q Querier, query string, args []any, opts Options) (*Paginated[T], error) {
	wrapped := fmt.Sprintf(
		`SELECT row_to_json(t) AS record, COUNT(*) OVER () AS total_count FROM (%s) t LIMIT %d OFFSET %d`,
		query, opts.perPage()+1, opts.offset(),
	)

	rows, err := q.Query(ctx, wrapped, args...)
	if err != nil {
		return nil, models.StoreError(err, "failed to execute paginated query")
	}
	defer rows.Close()

	var records []T
	var counts []int64
	for rows.Next() {
		var raw json.RawMessage
		var total int64
		if err := rows.Scan(&raw, &total); err != nil {
			return nil, models.StoreError(err, "failed to scan paginated row")
		}
		var record T
		if err := json.Unmarshal(raw, &record); err != nil {
			return nil, models.Validation(err, "failed to decode paginated row")
		}
		records = append(records, record)
		counts = append(counts, total)
	}
	if err := rows.Err(); err != nil {
		return nil, models.StoreError(err, "error iterating paginated rows")
	}

	return compute(records, counts, opts), nil
}

// compute applies the page post-processing: drop the probe row fetched
// beyond per_page, derive has_more from its presence, and take the total
// from the count column of the first row (0 when the page is empty).
func compute[T any](records []T, counts []int64, opts Options) *Paginated[T] {
	perPage := opts.perPage()

	hasMore := len(records) > perPage
	if hasMore {
		records = records[:perPage]
	}

	var total int64
	if len(counts) > 0 {
		total = counts[0]
	}

	if records == nil {
		records = []T{}
	}

	return &Paginated[T]{
		Records: records,
		Total:   total,
		HasMore: hasMore,
	}
}
