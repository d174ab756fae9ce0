package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/sqlchat/sqlchat/internal/warehouse"
)

func TestExecuteSQLReturnsRows(t *testing.T) {
	executor := &fakeAPIExecutor{rows: []warehouse.Row{
		{"ProductID": float64(1), "Name": "Classic Tee"},
		{"ProductID": float64(2), "Name": "Hoodie"},
	}}
	h := NewHandler(testConfig(t, nil), Dependencies{Executor: executor})

	rr := postJSON(t, h, "/execute-sql", `{"sql":"SELECT ProductID, Name FROM Products"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
	}
	if executor.lastSQL != "SELECT ProductID, Name FROM Products" {
		t.Fatalf("lastSQL = %q", executor.lastSQL)
	}

	var rows []map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &rows); err != nil {
		t.Fatalf("json decode failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("len(rows) = %d", len(rows))
	}
	if rows[0]["Name"] != "Classic Tee" {
		t.Fatalf("rows[0] = %v", rows[0])
	}
}

func TestExecuteSQLRejectsWriteStatements(t *testing.T) {
	executor := &fakeAPIExecutor{}
	h := NewHandler(testConfig(t, nil), Dependencies{Executor: executor})

	rr := postJSON(t, h, "/execute-sql", `{"sql":"DELETE FROM Products"}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rr.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("json decode failed: %v", err)
	}
	if body["error_code"] != "SQL_NOT_ALLOWED" {
		t.Fatalf("error_code = %v", body["error_code"])
	}
	if executor.lastSQL != "" {
		t.Fatal("rejected query must not reach the executor")
	}
}

func TestExecuteSQLMapsExecutionFailure(t *testing.T) {
	executor := &fakeAPIExecutor{err: errors.New("Parser Error: syntax error")}
	h := NewHandler(testConfig(t, nil), Dependencies{Executor: executor})

	rr := postJSON(t, h, "/execute-sql", `{"sql":"SELEC broken"}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rr.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("json decode failed: %v", err)
	}
	if body["error_code"] != "QUERY_EXECUTION_FAILED" {
		t.Fatalf("error_code = %v", body["error_code"])
	}
}

func TestExecuteSQLRequiresSQL(t *testing.T) {
	h := NewHandler(testConfig(t, nil), Dependencies{Executor: &fakeAPIExecutor{}})

	rr := postJSON(t, h, "/execute-sql", `{"sql":"  "}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rr.Code)
	}
}
