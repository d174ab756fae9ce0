package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sqlchat/sqlchat/internal/storage"
	"github.com/sqlchat/sqlchat/internal/warehouse"
)

// TableObject pairs a warehouse table with the parquet object backing it.
type TableObject struct {
	TableName  string
	ObjectPath string
}

// EnsureSchema creates the retail tables when they do not exist yet.
func EnsureSchema(ctx context.Context, path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("warehouse path is required")
	}
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return fmt.Errorf("open warehouse: %w", err)
	}
	defer func() { _ = db.Close() }()

	for _, ddl := range warehouse.RetailDDL {
		if _, err := db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// LoadSnapshot replaces the warehouse tables with the parquet objects from
// the object store. Each object is staged to a local file first because the
// duckdb read_parquet scan needs a seekable path.
func LoadSnapshot(ctx context.Context, path string, store storage.ObjectStore, objects []TableObject) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("warehouse path is required")
	}
	if store == nil {
		return fmt.Errorf("object store is required")
	}
	if len(objects) == 0 {
		return fmt.Errorf("no snapshot objects to load")
	}

	workDir, err := os.MkdirTemp("", "sqlchat-snapshot-")
	if err != nil {
		return fmt.Errorf("create snapshot temp dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(workDir) }()

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return fmt.Errorf("open warehouse: %w", err)
	}
	defer func() { _ = db.Close() }()

	for index, object := range objects {
		reader, err := store.Get(ctx, object.ObjectPath)
		if err != nil {
			return fmt.Errorf("get object %q: %w", object.ObjectPath, err)
		}
		localPath := filepath.Join(workDir, fmt.Sprintf("table_%d.parquet", index))
		if err := stageFile(localPath, reader); err != nil {
			_ = reader.Close()
			return fmt.Errorf("stage parquet file %q: %w", localPath, err)
		}
		if err := reader.Close(); err != nil {
			return fmt.Errorf("close object %q: %w", object.ObjectPath, err)
		}

		loadSQL := fmt.Sprintf(
			`CREATE OR REPLACE TABLE %s AS SELECT * FROM read_parquet(%s)`,
			quoteIdent(object.TableName),
			quoteString(localPath),
		)
		if _, err := db.ExecContext(ctx, loadSQL); err != nil {
			return fmt.Errorf("load table %q: %w", object.TableName, err)
		}
	}
	return nil
}

func stageFile(path string, reader io.Reader) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	if _, err := io.Copy(file, reader); err != nil {
		return err
	}
	return nil
}

func quoteIdent(value string) string {
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}

func quoteString(value string) string {
	return `'` + strings.ReplaceAll(value, `'`, `''`) + `'`
}
