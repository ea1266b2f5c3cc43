package console

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// maxHistory caps the entries kept in memory for prompt navigation.
const maxHistory = 1000

// History is the command history, appended to a file as lines are entered.
// An empty path keeps history in memory only.
type History struct {
	mu      sync.Mutex
	path    string
	entries []string
}

// NewHistory returns a history backed by path.
func NewHistory(path string) *History {
	return &History{path: path}
}

// Load reads previously saved entries.
func (h *History) Load() error {
	if h.path == "" {
		return nil
	}
	file, err := os.Open(h.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("console: open history: %w", err)
	}
	defer file.Close()

	var entries []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			entries = append(entries, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("console: read history %s: %w", h.path, err)
	}
	h.mu.Lock()
	h.entries = trimHistory(append(entries, h.entries...))
	h.mu.Unlock()
	return nil
}

// Add records line and appends it to the history file.
func (h *History) Add(line string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = trimHistory(append(h.entries, line))
	if h.path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(h.path), 0o755); err != nil {
		return fmt.Errorf("console: append history: %w", err)
	}
	file, err := os.OpenFile(h.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("console: append history: %w", err)
	}
	defer file.Close()
	if _, err := file.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("console: append history: %w", err)
	}
	return nil
}

// Entries returns a copy of the history, oldest first.
func (h *History) Entries() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.entries...)
}

func trimHistory(entries []string) []string {
	if len(entries) > maxHistory {
		return entries[len(entries)-maxHistory:]
	}
	return entries
}
