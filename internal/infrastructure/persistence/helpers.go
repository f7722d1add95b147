package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"sort"
	"time"
)

// Executor abstracts *sql.DB and *sql.Tx so repository methods can run
// inside or outside a transaction.
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// sortedUpdateKeys fixes the SET clause order for map-driven updates so
// the generated SQL is stable.
func sortedUpdateKeys(updates map[string]interface{}) []string {
	keys := make([]string, 0, len(updates))
	for k := range updates {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

const sqlDateTimeFormat = "2006-01-02 15:04:05"

// parseDateTime parses a DATETIME column scanned as raw bytes. The driver
// hands back "2006-01-02 15:04:05" without parseTime and RFC3339 with it,
// so both are tried.
func parseDateTime(raw []byte) time.Time {
	if len(raw) == 0 {
		return time.Time{}
	}
	if t, err := time.Parse(sqlDateTimeFormat, string(raw)); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, string(raw)); err == nil {
		return t
	}
	return time.Time{}
}

// parseNullableDateTime is parseDateTime for columns that may be NULL
func parseNullableDateTime(raw []byte) *time.Time {
	if len(raw) == 0 {
		return nil
	}
	t := parseDateTime(raw)
	if t.IsZero() {
		return nil
	}
	return &t
}

// marshalStringList serializes a string slice for a TEXT column.
// nil and empty slices both store as an empty JSON array.
func marshalStringList(items []string) string {
	if len(items) == 0 {
		return "[]"
	}
	data, err := json.Marshal(items)
	if err != nil {
		return "[]"
	}
	return string(data)
}

// unmarshalStringList parses a JSON array column, tolerating NULL and junk
func unmarshalStringList(raw []byte) []string {
	if len(raw) == 0 {
		return nil
	}
	var items []string
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	if len(items) == 0 {
		return nil
	}
	return items
}
