package console

import (
	"bufio"
	"context"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/kingrea/birdwatcher/internal/tui"
)

// LineReader supplies input lines to the console. ReadLine returns io.EOF
// when input is exhausted.
type LineReader interface {
	ReadLine(ctx context.Context, prompt string) (string, error)
	Close() error
}

// ScannerReader reads newline separated input, e.g. from a pipe. Prompts go
// to the terminal writer only, when one is set.
type ScannerReader struct {
	term    io.Writer
	lines   chan scanResult
	stop    chan struct{}
	started bool
	scanner *bufio.Scanner
}

type scanResult struct {
	line string
	err  error
}

// NewScannerReader returns a reader over r.
func NewScannerReader(r io.Reader, term io.Writer) *ScannerReader {
	return &ScannerReader{
		term:    term,
		scanner: bufio.NewScanner(r),
		lines:   make(chan scanResult),
		stop:    make(chan struct{}),
	}
}

// ReadLine prints prompt and waits for the next line.
func (r *ScannerReader) ReadLine(ctx context.Context, prompt string) (string, error) {
	if !r.started {
		r.started = true
		go r.scan()
	}
	if r.term != nil && prompt != "" {
		_, _ = io.WriteString(r.term, prompt)
	}
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res, ok := <-r.lines:
		if !ok {
			return "", io.EOF
		}
		return res.line, res.err
	}
}

// Close stops the background scanner once its current read returns.
func (r *ScannerReader) Close() error {
	select {
	case <-r.stop:
	default:
		close(r.stop)
	}
	return nil
}

func (r *ScannerReader) scan() {
	defer close(r.lines)
	for r.scanner.Scan() {
		select {
		case r.lines <- scanResult{line: strings.TrimRight(r.scanner.Text(), "\r")}:
		case <-r.stop:
			return
		}
	}
	if err := r.scanner.Err(); err != nil {
		select {
		case r.lines <- scanResult{err: err}:
		case <-r.stop:
		}
	}
}

// NewReader picks the bubbletea prompt when in and out are terminals and a
// scanner reader otherwise.
func NewReader(in io.Reader, out io.Writer, history *History, completions []string) LineReader {
	if isTerminal(in) && isTerminal(out) {
		return tui.NewPrompt(in, out,
			tui.WithHistory(history.Entries),
			tui.WithCompletions(completions),
		)
	}
	return NewScannerReader(in, out)
}

func isTerminal(v any) bool {
	f, ok := v.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
