package reporting_csv

import (
	"encoding/csv"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"

	"github.com/kingrea/birdwatcher/internal/plugin"
)

const modulePath = "reporting/csv"

var metadata = plugin.ModuleMetadata{
	Name:        "CSV Exporter",
	Description: "Export result from SQL query to a CSV file",
	Author:      "Birdwatcher maintainers",
	Info: `The CSV exporter writes the result of an SQL query to a file in CSV format.

IMPORTANT: the query is not limited to the current workspace. Filter on
workspace_id in the query when needed.`,
	Options: []plugin.OptionSpec{
		{Key: "DEST", Description: "Destination file", Required: true},
		{Key: "QUERY", Description: "SQL query to execute", Required: true},
		{Key: "HEADERS", Default: true, Description: "Add CSV headers to the file", Boolean: true},
	},
}

// CSVModule exports a query result as CSV.
type CSVModule struct{}

// Register installs the module factory into the provided registry.
func Register(reg *plugin.Registry) {
	if reg == nil {
		return
	}
	reg.MustRegisterModule(modulePath, metadata, func() plugin.Module {
		return New()
	})
}

// New constructs the module.
func New() *CSVModule {
	return &CSVModule{}
}

// Run executes QUERY and writes the rows to DEST.
func (m *CSVModule) Run(ctx *plugin.ModuleContext) (plugin.Result, error) {
	dest, err := ctx.Options.String("DEST")
	if err != nil {
		return plugin.Result{Status: plugin.StatusFailed}, err
	}
	if dest, err = plugin.ExpandPath(dest); err != nil {
		return plugin.Result{Status: plugin.StatusFailed}, err
	}
	query, err := ctx.Options.String("QUERY")
	if err != nil {
		return plugin.Result{Status: plugin.StatusFailed}, err
	}
	headers, err := ctx.Options.Bool("HEADERS")
	if err != nil {
		return plugin.Result{Status: plugin.StatusFailed}, plugin.Failf("%v", err)
	}

	result, err := ctx.Store.Query(ctx.Ctx(), query)
	if err != nil {
		return plugin.Result{Status: plugin.StatusFailed}, plugin.Failf("Syntax error: %v", err)
	}

	rows := result.Strings()
	err = ctx.Out.Task(fmt.Sprintf("Writing %s to file...", english.Plural(len(rows), "row", "rows")), false, func() error {
		return writeCSV(dest, result.Columns, rows, headers)
	})
	if err != nil {
		return plugin.Result{Status: plugin.StatusFailed}, plugin.ErrReported
	}
	info, err := os.Stat(dest)
	if err != nil {
		return plugin.Result{Status: plugin.StatusFailed}, err
	}
	return plugin.Completed("Wrote %s to %s", humanize.Bytes(uint64(info.Size())), ctx.Out.Bold(dest)), nil
}

func writeCSV(path string, columns []string, rows [][]string, headers bool) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("reporting/csv: create %s: %w", path, err)
	}
	w := csv.NewWriter(f)
	if headers {
		if err := w.Write(columns); err != nil {
			f.Close()
			return fmt.Errorf("reporting/csv: write header: %w", err)
		}
	}
	if err := w.WriteAll(rows); err != nil {
		f.Close()
		return fmt.Errorf("reporting/csv: write rows: %w", err)
	}
	return f.Close()
}
