package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// QueryResult holds the rows of an ad-hoc SQL query.
type QueryResult struct {
	Columns []string
	Rows    [][]any
}

// Strings renders every cell as text. NULL becomes an empty string.
func (r *QueryResult) Strings() [][]string {
	out := make([][]string, len(r.Rows))
	for i, row := range r.Rows {
		cells := make([]string, len(row))
		for j, value := range row {
			cells[j] = FormatValue(value)
		}
		out[i] = cells
	}
	return out
}

// FormatValue renders a scanned SQL value as text.
func FormatValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case []byte:
		return string(v)
	case string:
		return v
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case time.Time:
		return v.UTC().Format(time.RFC3339)
	default:
		return fmt.Sprint(v)
	}
}

// Query runs an arbitrary SQL statement and returns all rows.
func (s *Store) Query(ctx context.Context, query string, args ...any) (*QueryResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("store: query is required")
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: query: %w", err)
	}
	defer rows.Close()
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("store: query columns: %w", err)
	}
	result := &QueryResult{Columns: cols}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("store: query scan: %w", err)
		}
		result.Rows = append(result.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: query: %w", err)
	}
	return result, nil
}

// Column describes one table column.
type Column struct {
	Name       string
	Type       string
	NotNull    bool
	Default    string
	PrimaryKey bool
}

// Table describes one table of the schema.
type Table struct {
	Name    string
	Columns []Column
}

// Tables lists user table names.
func (s *Store) Tables(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("store: list tables: %w", err)
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("store: list tables: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Schema returns the columns of one table.
func (s *Store) Schema(ctx context.Context, table string) (*Table, error) {
	names, err := s.Tables(ctx)
	if err != nil {
		return nil, err
	}
	var found string
	for _, name := range names {
		if strings.EqualFold(name, strings.TrimSpace(table)) {
			found = name
			break
		}
	}
	if found == "" {
		return nil, fmt.Errorf("table %s: %w", table, ErrNotFound)
	}
	rows, err := s.db.QueryContext(ctx, `SELECT name, type, "notnull", dflt_value, pk FROM pragma_table_info(?)`, found)
	if err != nil {
		return nil, fmt.Errorf("store: table info: %w", err)
	}
	defer rows.Close()
	out := &Table{Name: found}
	for rows.Next() {
		var (
			col     Column
			notNull int
			dflt    any
			pk      int
		)
		if err := rows.Scan(&col.Name, &col.Type, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("store: table info: %w", err)
		}
		col.NotNull = notNull != 0
		col.PrimaryKey = pk != 0
		col.Default = FormatValue(dflt)
		out.Columns = append(out.Columns, col)
	}
	return out, rows.Err()
}
