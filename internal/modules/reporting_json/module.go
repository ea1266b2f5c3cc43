package reporting_json

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"

	"github.com/kingrea/birdwatcher/internal/plugin"
	"github.com/kingrea/birdwatcher/internal/store"
)

const modulePath = "reporting/json"

var metadata = plugin.ModuleMetadata{
	Name:        "JSON Exporter",
	Description: "Export result from SQL query to a JSON file",
	Author:      "Birdwatcher maintainers",
	Info: `The JSON exporter writes the result of an SQL query to a file as an array of
objects, one per row, with keys in column order.

IMPORTANT: the query is not limited to the current workspace. Filter on
workspace_id in the query when needed.`,
	Options: []plugin.OptionSpec{
		{Key: "DEST", Description: "Destination file", Required: true},
		{Key: "QUERY", Description: "SQL query to execute", Required: true},
		{Key: "PRETTY_FORMATTING", Default: false, Description: "Output pretty formatted JSON", Boolean: true},
	},
}

// JSONModule exports a query result as JSON.
type JSONModule struct{}

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
func New() *JSONModule {
	return &JSONModule{}
}

// Run executes QUERY and writes the rows to DEST.
func (m *JSONModule) Run(ctx *plugin.ModuleContext) (plugin.Result, error) {
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
	pretty, err := ctx.Options.Bool("PRETTY_FORMATTING")
	if err != nil {
		return plugin.Result{Status: plugin.StatusFailed}, plugin.Failf("%v", err)
	}

	result, err := ctx.Store.Query(ctx.Ctx(), query)
	if err != nil {
		return plugin.Result{Status: plugin.StatusFailed}, plugin.Failf("Syntax error: %v", err)
	}

	var doc []byte
	err = ctx.Out.Task("Generating JSON...", false, func() error {
		var encErr error
		doc, encErr = Encode(result, pretty)
		return encErr
	})
	if err != nil {
		return plugin.Result{Status: plugin.StatusFailed}, plugin.ErrReported
	}
	err = ctx.Out.Task(fmt.Sprintf("Writing %s to file...", english.Plural(len(result.Rows), "row", "rows")), false, func() error {
		if err := os.WriteFile(dest, doc, 0o644); err != nil {
			return fmt.Errorf("reporting/json: write %s: %w", dest, err)
		}
		return nil
	})
	if err != nil {
		return plugin.Result{Status: plugin.StatusFailed}, plugin.ErrReported
	}
	return plugin.Completed("Wrote %s to %s", humanize.Bytes(uint64(len(doc))), ctx.Out.Bold(dest)), nil
}

// Encode renders result as a JSON array of objects keyed by column name.
// Keys keep the column order of the query.
func Encode(result *store.QueryResult, pretty bool) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, row := range result.Rows {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('{')
		for j, col := range result.Columns {
			if j > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(col)
			if err != nil {
				return nil, fmt.Errorf("reporting/json: encode column %s: %w", col, err)
			}
			value := row[j]
			if b, ok := value.([]byte); ok {
				value = string(b)
			}
			encoded, err := json.Marshal(value)
			if err != nil {
				return nil, fmt.Errorf("reporting/json: encode %s: %w", col, err)
			}
			buf.Write(key)
			buf.WriteByte(':')
			buf.Write(encoded)
		}
		buf.WriteByte('}')
	}
	buf.WriteByte(']')
	if !pretty {
		return buf.Bytes(), nil
	}
	var indented bytes.Buffer
	if err := json.Indent(&indented, buf.Bytes(), "", "  "); err != nil {
		return nil, fmt.Errorf("reporting/json: indent: %w", err)
	}
	indented.WriteByte('\n')
	return indented.Bytes(), nil
}
