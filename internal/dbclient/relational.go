package dbclient

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"

	"datalake/internal/domain"
	"datalake/internal/schemagen"
)

// RelationalClient writes and reads dataset rows in a SQL backend.
// The implementation is driver-generic: postgres (default) or mysql.
type RelationalClient struct {
	driverName string
	dialect    schemagen.Dialect
	db         *sql.DB
}

// RelationalConfig holds connection parameters for the relational store.
type RelationalConfig struct {
	Driver   string // "postgres" | "mysql"
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// NewRelationalClient opens a connection pool for the configured driver.
func NewRelationalClient(cfg RelationalConfig) (*RelationalClient, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = "postgres"
	}

	var dsn string
	var dialect schemagen.Dialect
	switch driver {
	case "postgres":
		dsn = buildPostgresDSN(cfg)
		dialect = schemagen.DialectPostgres
	case "mysql":
		dsn = buildMySQLDSN(cfg)
		dialect = schemagen.DialectMySQL
	default:
		return nil, fmt.Errorf("unsupported relational driver: %s", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(10 * time.Minute)

	return &RelationalClient{driverName: driver, dialect: dialect, db: db}, nil
}

// buildPostgresDSN constructs a lib/pq connection string.
func buildPostgresDSN(cfg RelationalConfig) string {
	port := cfg.Port
	if port == 0 {
		port = 5432
	}
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, port, cfg.User, cfg.Password, cfg.Database, sslMode,
	)
}

// buildMySQLDSN constructs a go-sql-driver DSN.
func buildMySQLDSN(cfg RelationalConfig) string {
	port := cfg.Port
	if port == 0 {
		port = 3306
	}
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4",
		cfg.User, cfg.Password, cfg.Host, port, cfg.Database,
	)
	if cfg.SSLMode == "require" {
		dsn += "&tls=true"
	}
	return dsn
}

// Dialect returns the DDL dialect matching the configured driver.
func (c *RelationalClient) Dialect() schemagen.Dialect {
	return c.dialect
}

// Ping verifies connectivity.
func (c *RelationalClient) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return c.db.PingContext(ctx)
}

// CreateTable executes the generated DDL. Table names are unique per dataset,
// so creation never collides with an existing table.
func (c *RelationalClient) CreateTable(ctx context.Context, ddl string) error {
	if _, err := c.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create table: %w", err)
	}
	return nil
}

// DropTable removes a dataset table. Used when a partially-written table is
// abandoned during fallback and on dataset deletion.
func (c *RelationalClient) DropTable(ctx context.Context, table string) error {
	stmt := fmt.Sprintf("DROP TABLE IF EXISTS %s", schemagen.QuoteIdent(table, c.dialect))
	if _, err := c.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("drop table: %w", err)
	}
	return nil
}

// placeholder returns the parameter marker for position i (1-based).
func (c *RelationalClient) placeholder(i int) string {
	if c.driverName == "postgres" {
		return fmt.Sprintf("$%d", i)
	}
	return "?"
}

// InsertRows bulk-inserts records restricted to the declared columns.
// Values with serialized column types are stored as JSON text.
func (c *RelationalClient) InsertRows(ctx context.Context, table string, fields []domain.FieldDef, records []map[string]any) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	cols := make([]string, len(fields))
	for i, f := range fields {
		cols[i] = schemagen.QuoteIdent(f.Name, c.dialect)
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	marks := make([]string, len(fields))
	for i := range fields {
		marks[i] = c.placeholder(i + 1)
	}
	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		schemagen.QuoteIdent(table, c.dialect),
		strings.Join(cols, ", "), strings.Join(marks, ", "))

	prepared, err := tx.PrepareContext(ctx, stmt)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer prepared.Close()

	written := 0
	for _, rec := range records {
		args := make([]any, len(fields))
		for i, f := range fields {
			args[i] = columnValue(rec[f.Name], f.Type)
		}
		if _, err := prepared.ExecContext(ctx, args...); err != nil {
			return written, fmt.Errorf("insert row %d: %w", written, err)
		}
		written++
	}

	if err := tx.Commit(); err != nil {
		return written, fmt.Errorf("commit: %w", err)
	}
	return written, nil
}

// columnValue converts a JSON value into a driver-friendly argument.
func columnValue(v any, colType string) any {
	if v == nil {
		return nil
	}
	switch colType {
	case "array", "object":
		b, _ := json.Marshal(v)
		return string(b)
	}
	switch val := v.(type) {
	case map[string]any, []any:
		// Type union resolved to a scalar column but this record holds
		// structure; serialize rather than fail the whole insert.
		b, _ := json.Marshal(val)
		return string(b)
	default:
		return val
	}
}

// RowQuery is the relational half of the backend-transparent query shape.
type RowQuery struct {
	Table   string
	Filter  map[string]any
	Fields  []string
	OrderBy string
	Sort    []SortSpec
	Limit   int
	Offset  int
}

// SortSpec orders one field.
type SortSpec struct {
	Field string `json:"field"`
	Desc  bool   `json:"desc"`
}

// Select runs a filtered, paginated read and returns rows as maps.
func (c *RelationalClient) Select(ctx context.Context, q RowQuery) ([]map[string]any, error) {
	projection := "*"
	if len(q.Fields) > 0 {
		quoted := make([]string, len(q.Fields))
		for i, f := range q.Fields {
			quoted[i] = schemagen.QuoteIdent(f, c.dialect)
		}
		projection = strings.Join(quoted, ", ")
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT %s FROM %s", projection, schemagen.QuoteIdent(q.Table, c.dialect))

	var args []any
	if len(q.Filter) > 0 {
		var conds []string
		for _, k := range sortedFilterKeys(q.Filter) {
			args = append(args, columnValue(q.Filter[k], ""))
			conds = append(conds, fmt.Sprintf("%s = %s",
				schemagen.QuoteIdent(k, c.dialect), c.placeholder(len(args))))
		}
		sb.WriteString(" WHERE " + strings.Join(conds, " AND "))
	}

	if orderClause := buildOrderClause(q, c.dialect); orderClause != "" {
		sb.WriteString(orderClause)
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 10
	}
	fmt.Fprintf(&sb, " LIMIT %d OFFSET %d", limit, q.Offset)

	rows, err := c.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("select: %w", err)
	}
	defer rows.Close()

	return scanRows(rows)
}

func buildOrderClause(q RowQuery, dialect schemagen.Dialect) string {
	if len(q.Sort) > 0 {
		parts := make([]string, len(q.Sort))
		for i, s := range q.Sort {
			dir := "ASC"
			if s.Desc {
				dir = "DESC"
			}
			parts[i] = schemagen.QuoteIdent(s.Field, dialect) + " " + dir
		}
		return " ORDER BY " + strings.Join(parts, ", ")
	}
	if q.OrderBy != "" {
		return " ORDER BY " + schemagen.QuoteIdent(q.OrderBy, dialect) + " ASC"
	}
	return ""
}

// sortedFilterKeys keeps generated SQL deterministic for identical filters.
func sortedFilterKeys(filter map[string]any) []string {
	keys := make([]string, 0, len(filter))
	for k := range filter {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Count returns the number of rows in a dataset table.
func (c *RelationalClient) Count(ctx context.Context, table string) (int64, error) {
	var n int64
	err := c.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT COUNT(*) FROM %s", schemagen.QuoteIdent(table, c.dialect)),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count rows: %w", err)
	}
	return n, nil
}

// scanRows converts sql rows into maps keyed by column name.
func scanRows(rows *sql.Rows) ([]map[string]any, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns: %w", err)
	}

	var out []map[string]any
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}

		rec := make(map[string]any, len(cols))
		for i, col := range cols {
			rec[col] = formatValue(values[i])
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// formatValue converts driver values into JSON-serializable ones.
func formatValue(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case []byte:
		return string(val)
	case time.Time:
		return val.Format(time.RFC3339)
	default:
		return val
	}
}

// Close closes the connection pool.
func (c *RelationalClient) Close() error {
	return c.db.Close()
}
