// Package warehouse defines the read-only analytics store the assistant
// queries.
package warehouse

import "context"

// Row is one result record keyed by column name.
type Row map[string]any

// Executor runs a single SQL statement and materializes every returned row.
// Execution failures are returned as errors, never folded into the rows.
type Executor interface {
	Execute(ctx context.Context, sqlText string) ([]Row, error)
}
