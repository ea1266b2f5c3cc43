package commands

import (
	"encoding/csv"
	"errors"
	"strings"

	"github.com/kingrea/birdwatcher/internal/plugin"
	"github.com/kingrea/birdwatcher/internal/store"
)

var queryMeta = plugin.CommandMetadata{
	Description: "Execute SQL query",
	Names:       []string{"query", "sql"},
	Usage:       "query QUERY",
	DetailedUsage: `The query command runs raw SQL against the database and prints the result
as a table. Use the schema command to see available tables.

USAGE:

Execute a query:
  query SELECT screen_name, followers FROM users ORDER BY followers DESC`,
}

type query struct{}

func (q *query) Run(ctx *plugin.Context, args []string) error {
	result, err := runQuery(ctx, args)
	if err != nil {
		return err
	}
	ctx.Out.Table(result.Columns, result.Strings())
	return nil
}

var queryCSVMeta = plugin.CommandMetadata{
	Description: "Execute SQL query and return result as CSV",
	Names:       []string{"query_csv", "csv"},
	Usage:       "query_csv QUERY",
}

type queryCSV struct{}

func (q *queryCSV) Run(ctx *plugin.Context, args []string) error {
	result, err := runQuery(ctx, args)
	if err != nil {
		return err
	}
	var buf strings.Builder
	w := csv.NewWriter(&buf)
	if err := w.Write(result.Columns); err != nil {
		return err
	}
	if err := w.WriteAll(result.Strings()); err != nil {
		return err
	}
	ctx.Out.Print(buf.String())
	return nil
}

func runQuery(ctx *plugin.Context, args []string) (*store.QueryResult, error) {
	if len(args) == 0 {
		return nil, plugin.Failf("You must provide an SQL query to execute")
	}
	if ctx.Store == nil {
		return nil, plugin.Failf("Database is not available")
	}
	result, err := ctx.Store.Query(ctx.Ctx(), strings.Join(args, " "))
	if err != nil {
		return nil, plugin.Failf("Syntax error: %v", err)
	}
	return result, nil
}

var schemaMeta = plugin.CommandMetadata{
	Description: "Show schema for database table",
	Names:       []string{"schema", "table"},
	Usage:       "schema [TABLE_NAME]",
}

type schema struct{}

func (s *schema) Run(ctx *plugin.Context, args []string) error {
	tables, err := ctx.Store.Tables(ctx.Ctx())
	if err != nil {
		return err
	}
	if len(args) == 0 {
		s.available(ctx, tables)
		return nil
	}
	name := args[0]
	table, err := ctx.Store.Schema(ctx.Ctx(), name)
	if errors.Is(err, store.ErrNotFound) {
		ctx.Out.Error("Unknown table: " + ctx.Out.Bold(name))
		ctx.Out.Newline()
		s.available(ctx, tables)
		return plugin.ErrReported
	}
	if err != nil {
		return err
	}
	rows := make([][]string, 0, len(table.Columns))
	for _, col := range table.Columns {
		def := col.Default
		if def == "" {
			def = "NULL"
		}
		rows = append(rows, []string{col.Name, col.Type, def, yesNo(!col.NotNull), yesNo(col.PrimaryKey)})
	}
	ctx.Out.Info("Schema information for table " + ctx.Out.Bold(table.Name) + ":")
	ctx.Out.Newline()
	ctx.Out.Table([]string{"Column Name", "Type", "Default", "Allow NULL", "Primary Key"}, rows)
	ctx.Out.Newline()
	return nil
}

func (s *schema) available(ctx *plugin.Context, tables []string) {
	ctx.Out.Info("Available tables:")
	ctx.Out.Newline()
	for _, t := range tables {
		ctx.Out.Output(" * " + ctx.Out.Bold(t))
	}
	ctx.Out.Newline()
}
