// Package spool persists a copy of console output to a plain text file.
package spool

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Spool appends console output to a file.
type Spool struct {
	path    string
	started time.Time
	mu      sync.Mutex
	file    *os.File
}

// Open creates (or reopens for appending) the spool file at path.
func Open(path string) (*Spool, error) {
	if path == "" {
		return nil, fmt.Errorf("spool: path is required")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("spool: resolve %s: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return nil, fmt.Errorf("spool: ensure dir: %w", err)
	}
	file, err := os.OpenFile(abs, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("spool: open %s: %w", abs, err)
	}
	return &Spool{path: abs, started: time.Now(), file: file}, nil
}

// Path returns the file backing this spool.
func (s *Spool) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Started reports when the spool was opened.
func (s *Spool) Started() time.Time {
	if s == nil {
		return time.Time{}
	}
	return s.started
}

// Write appends p to the spool file.
func (s *Spool) Write(p []byte) (int, error) {
	if s == nil {
		return len(p), nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return 0, os.ErrClosed
	}
	return s.file.Write(p)
}

// Close flushes and releases the file handle.
func (s *Spool) Close() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

// Tail returns up to maxLines of the most recent spooled lines along with the
// total line count.
func (s *Spool) Tail(maxLines int) ([]string, int) {
	if s == nil || maxLines <= 0 {
		return nil, 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	file, err := os.Open(s.path)
	if err != nil {
		return nil, 0
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	total := len(lines)
	if total > maxLines {
		lines = lines[total-maxLines:]
	}
	return lines, total
}
