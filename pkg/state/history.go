package state

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// DefaultMaxHistoryEntries bounds the line history.
const DefaultMaxHistoryEntries = 100

// History is the bounded line history of the shell.
//
// The line editor browses it with the arrow keys but never records into it:
// the REPL adds each accepted line itself, with secret option values
// removed. Entries are persisted one per line, oldest first.
type History struct {
	path       string
	maxEntries int

	mu      sync.RWMutex
	entries []string
}

// NewHistory creates an empty history stored at path. An empty path keeps the
// history in memory only.
func NewHistory(path string, maxEntries int) *History {
	if maxEntries <= 0 || maxEntries > DefaultMaxHistoryEntries {
		maxEntries = DefaultMaxHistoryEntries
	}
	return &History{path: path, maxEntries: maxEntries}
}

// Path returns the history file.
func (h *History) Path() string {
	return h.path
}

// Load replaces the entries with the content of the history file. A missing
// file leaves the history empty.
func (h *History) Load() error {
	if h.path == "" {
		return nil
	}
	data, err := os.ReadFile(h.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read history: %w", err)
	}

	var entries []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		if line := strings.TrimRight(scanner.Text(), "\r"); strings.TrimSpace(line) != "" {
			entries = append(entries, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to parse history: %w", err)
	}
	if len(entries) > h.maxEntries {
		entries = entries[len(entries)-h.maxEntries:]
	}

	h.mu.Lock()
	h.entries = entries
	h.mu.Unlock()
	return nil
}

// Save writes the entries to the history file.
func (h *History) Save() error {
	if h.path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(h.path), 0700); err != nil {
		return fmt.Errorf("failed to create history directory: %w", err)
	}

	var buf bytes.Buffer
	for _, e := range h.Entries() {
		buf.WriteString(e)
		buf.WriteByte('\n')
	}

	tmpPath := h.path + ".tmp"
	if err := os.WriteFile(tmpPath, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write history file: %w", err)
	}
	if err := os.Rename(tmpPath, h.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to save history file: %w", err)
	}
	return nil
}

// Add records a line. Blank lines and repeats of the latest entry are skipped.
func (h *History) Add(line string) {
	if strings.TrimSpace(line) == "" || strings.ContainsAny(line, "\n\r") {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if n := len(h.entries); n > 0 && h.entries[n-1] == line {
		return
	}
	h.entries = append(h.entries, line)
	if len(h.entries) > h.maxEntries {
		h.entries = h.entries[len(h.entries)-h.maxEntries:]
	}
}

// Len returns the number of entries.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.entries)
}

// At returns an entry counting back from the newest, which is At(0).
func (h *History) At(idx int) string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if idx < 0 || idx >= len(h.entries) {
		panic(fmt.Sprintf("history index %d out of range [0,%d)", idx, len(h.entries)))
	}
	return h.entries[len(h.entries)-1-idx]
}

// Entries returns a copy of the entries, oldest first.
func (h *History) Entries() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]string, len(h.entries))
	copy(out, h.entries)
	return out
}

// Last returns up to n of the most recent entries, oldest first.
func (h *History) Last(n int) []string {
	entries := h.Entries()
	if n > 0 && n < len(entries) {
		entries = entries[len(entries)-n:]
	}
	return entries
}

// Clear removes all entries.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = nil
}
