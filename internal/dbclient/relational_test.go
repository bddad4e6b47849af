package dbclient

import (
	"strings"
	"testing"
	"time"

	"datalake/internal/schemagen"
)

func TestNewRelationalClient_UnsupportedDriver(t *testing.T) {
	if _, err := NewRelationalClient(RelationalConfig{Driver: "oracle"}); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}

func TestBuildPostgresDSN(t *testing.T) {
	dsn := buildPostgresDSN(RelationalConfig{
		Host: "db", User: "app", Password: "s3cret", Database: "lake",
	})
	for _, want := range []string{"host=db", "port=5432", "user=app", "dbname=lake", "sslmode=disable"} {
		if !strings.Contains(dsn, want) {
			t.Errorf("dsn missing %q: %s", want, dsn)
		}
	}
}

func TestBuildMySQLDSN(t *testing.T) {
	dsn := buildMySQLDSN(RelationalConfig{
		Host: "db", User: "app", Password: "s3cret", Database: "lake", SSLMode: "require",
	})
	if !strings.HasPrefix(dsn, "app:s3cret@tcp(db:3306)/lake") {
		t.Errorf("dsn = %s", dsn)
	}
	if !strings.Contains(dsn, "parseTime=true") || !strings.Contains(dsn, "tls=true") {
		t.Errorf("dsn missing options: %s", dsn)
	}
}

func TestPlaceholder(t *testing.T) {
	pg := &RelationalClient{driverName: "postgres"}
	if got := pg.placeholder(3); got != "$3" {
		t.Errorf("postgres placeholder = %q", got)
	}
	my := &RelationalClient{driverName: "mysql"}
	if got := my.placeholder(3); got != "?" {
		t.Errorf("mysql placeholder = %q", got)
	}
}

func TestColumnValue(t *testing.T) {
	if got := columnValue(nil, "string"); got != nil {
		t.Errorf("nil should stay nil, got %v", got)
	}
	if got := columnValue([]any{"a", "b"}, "array"); got != `["a","b"]` {
		t.Errorf("array column = %v", got)
	}
	if got := columnValue(map[string]any{"k": 1}, "object"); got != `{"k":1}` {
		t.Errorf("object column = %v", got)
	}
	// Structure arriving in a scalar column is serialized, not dropped.
	if got := columnValue([]any{1}, "string"); got != `[1]` {
		t.Errorf("structure in scalar column = %v", got)
	}
	if got := columnValue(float64(3.5), "number"); got != float64(3.5) {
		t.Errorf("scalar passthrough = %v", got)
	}
}

func TestBuildOrderClause(t *testing.T) {
	// Sort specs win over OrderBy.
	q := RowQuery{
		OrderBy: "ignored",
		Sort:    []SortSpec{{Field: "age", Desc: true}, {Field: "name"}},
	}
	got := buildOrderClause(q, schemagen.DialectPostgres)
	if got != ` ORDER BY "age" DESC, "name" ASC` {
		t.Errorf("clause = %q", got)
	}

	got = buildOrderClause(RowQuery{OrderBy: "name"}, schemagen.DialectPostgres)
	if got != ` ORDER BY "name" ASC` {
		t.Errorf("clause = %q", got)
	}

	if got := buildOrderClause(RowQuery{}, schemagen.DialectPostgres); got != "" {
		t.Errorf("empty query should yield no clause, got %q", got)
	}
}

func TestSortedFilterKeys(t *testing.T) {
	keys := sortedFilterKeys(map[string]any{"c": 1, "a": 2, "b": 3})
	if keys[0] != "a" || keys[1] != "b" || keys[2] != "c" {
		t.Errorf("keys = %v", keys)
	}
}

func TestFormatValue(t *testing.T) {
	if got := formatValue([]byte("hi")); got != "hi" {
		t.Errorf("bytes = %v", got)
	}
	ts := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	if got := formatValue(ts); got != "2026-08-01T12:00:00Z" {
		t.Errorf("time = %v", got)
	}
	if got := formatValue(nil); got != nil {
		t.Errorf("nil = %v", got)
	}
	if got := formatValue(int64(5)); got != int64(5) {
		t.Errorf("passthrough = %v", got)
	}
}
