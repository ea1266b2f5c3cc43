// Package output owns every piece of user-visible console text. Terminal
// writes and spool writes are guarded by separate locks so that concurrent
// workers can report progress without interleaving inside a single message.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/charmbracelet/x/ansi"
	"go.uber.org/zap"
)

const separatorWidth = 80

// LineSeparator is the horizontal rule printed between console sections.
var LineSeparator = strings.Repeat("=", separatorWidth)

// Option customizes an Output.
type Option func(*Output)

// WithExit replaces the process exit hook used by fatal tasks.
func WithExit(fn func(int)) Option {
	return func(o *Output) {
		if fn != nil {
			o.exit = fn
		}
	}
}

// WithLogger attaches a structured logger for task failures.
func WithLogger(logger *zap.Logger) Option {
	return func(o *Output) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Output writes styled text to a terminal and mirrors a stripped copy into
// the active spool.
type Output struct {
	termMu sync.Mutex
	term   io.Writer

	spoolMu sync.Mutex
	spool   io.Writer

	styles Styles
	exit   func(int)
	logger *zap.Logger
}

// New returns an Output writing to w.
func New(w io.Writer, opts ...Option) *Output {
	if w == nil {
		w = os.Stdout
	}
	o := &Output{
		term:   w,
		styles: newStyles(w),
		exit:   os.Exit,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}

// Styles exposes the styles bound to the terminal writer.
func (o *Output) Styles() Styles {
	return o.styles
}

// SetSpool installs (or clears, when nil) the spool sink.
func (o *Output) SetSpool(w io.Writer) {
	o.spoolMu.Lock()
	defer o.spoolMu.Unlock()
	o.spool = w
}

// Print writes text without a trailing newline.
func (o *Output) Print(text string) {
	o.termMu.Lock()
	_, _ = io.WriteString(o.term, text)
	o.termMu.Unlock()
	o.Mirror(text)
}

// Mirror writes text to the spool only.
func (o *Output) Mirror(text string) {
	o.spoolMu.Lock()
	defer o.spoolMu.Unlock()
	if o.spool == nil {
		return
	}
	_, _ = io.WriteString(o.spool, ansi.Strip(text))
}

// Output writes text followed by a newline.
func (o *Output) Output(text string) {
	o.Print(text + "\n")
}

// Printf writes formatted text without a trailing newline.
func (o *Output) Printf(format string, args ...any) {
	o.Print(fmt.Sprintf(format, args...))
}

// Newline writes an empty line.
func (o *Output) Newline() {
	o.Print("\n")
}

// LineSeparator writes the horizontal rule.
func (o *Output) LineSeparator() {
	o.Output(LineSeparator)
}

// Info writes an informational line.
func (o *Output) Info(text string) {
	o.Output(o.styles.Info.Render("[+]") + " " + text)
}

// Warn writes a warning line.
func (o *Output) Warn(text string) {
	o.Output(o.styles.Warn.Render("[!]") + " " + text)
}

// Error writes an error line.
func (o *Output) Error(text string) {
	o.Output(o.styles.Error.Render("[-]") + " " + text)
}

// Fatal writes a highlighted error line. It does not exit.
func (o *Output) Fatal(text string) {
	o.Output(o.styles.Fatal.Render("[-]") + " " + text)
}

// Bold renders text in bold for embedding inside other messages.
func (o *Output) Bold(text string) string {
	return o.styles.Bold.Render(text)
}

// Muted renders text dimmed.
func (o *Output) Muted(text string) string {
	return o.styles.Muted.Render(text)
}

// Table writes rows as a bordered table.
func (o *Output) Table(headers []string, rows [][]string) {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(o.styles.Muted).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return o.styles.Bold.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
	o.Output(t.String())
}

// Task prints description, runs body and reports " done" or " failed". A
// panic inside body counts as a failure. When fatal is set a failure exits
// the process with status 1.
func (o *Output) Task(description string, fatal bool, body func() error) error {
	o.Print(o.styles.Info.Render("[+]") + " " + description)
	err := Guard(body)
	if err == nil {
		o.Output(o.styles.Done.Render(" done"))
		return nil
	}
	o.Output(o.styles.Failed.Render(" failed"))
	o.Error(Describe(err))
	o.logger.Error("task failed",
		zap.String("task", description),
		zap.Bool("fatal", fatal),
		zap.Error(err),
	)
	if fatal {
		o.exit(1)
	}
	return err
}
