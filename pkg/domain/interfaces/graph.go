package interfaces

import "context"

// Row is one result row of a graph query, mapping column name to value
type Row map[string]any

// GraphStore is the transactional boundary to the property graph backend.
// Each Run call executes a single pattern-matching statement inside its own
// managed transaction; merge semantics, ordering and time-range filters are
// expressed in the query text.
type GraphStore interface {
	Run(ctx context.Context, readOnly bool, query string, params map[string]any) ([]Row, error)
}
