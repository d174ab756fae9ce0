// Package duckdb executes warehouse queries against a local DuckDB file.
package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/marcboeker/go-duckdb/v2"

	"github.com/sqlchat/sqlchat/internal/warehouse"
)

// Executor opens the database per call and closes it before returning, so a
// request never holds a connection across LLM round-trips.
type Executor struct {
	Path string
}

func NewExecutor(path string) *Executor {
	return &Executor{Path: path}
}

func (e *Executor) Execute(ctx context.Context, sqlText string) ([]warehouse.Row, error) {
	sqlText = strings.TrimSpace(sqlText)
	if sqlText == "" {
		return nil, fmt.Errorf("sql is required")
	}
	if e.Path == "" {
		return nil, fmt.Errorf("warehouse path is required")
	}

	db, err := sql.Open("duckdb", e.Path)
	if err != nil {
		return nil, fmt.Errorf("open warehouse: %w", err)
	}
	defer func() { _ = db.Close() }()

	rows, err := db.QueryContext(ctx, sqlText)
	if err != nil {
		return nil, fmt.Errorf("execute query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("query columns: %w", err)
	}

	results := make([]warehouse.Row, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		record := make(warehouse.Row, len(columns))
		for i, column := range columns {
			record[column] = normalizeValue(values[i])
		}
		results = append(results, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return results, nil
}

func normalizeValue(value any) any {
	switch typed := value.(type) {
	case []byte:
		return string(typed)
	default:
		return typed
	}
}
