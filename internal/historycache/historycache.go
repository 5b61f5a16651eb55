// Package historycache implements the History Cache from spec §4.L: one
// plain-text file per widget identifier, newest entries trimmed to a
// configurable limit, with consecutive-duplicate suppression on append.
//
// Grounded on the teacher's Cache type (internal/cache/cache.go), whose
// size-bounded eviction this package simplifies down to a bounded
// append-only line log — no LRU bookkeeping is needed for a per-widget
// text file.
package historycache

import (
	"bufio"
	"os"
	"path/filepath"

	"github.com/derekwisong/datui/internal/errs"
)

const defaultHistoryLimit = 1000

// Store loads and saves per-widget history files lazily, one file per
// widget identifier under Dir.
type Store struct {
	Dir     string
	Limit   int
	entries map[string][]string // widget id -> loaded, trimmed lines
}

// NewStore returns a Store rooted at dir. limit <= 0 uses the spec
// default of 1000.
func NewStore(dir string, limit int) *Store {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	return &Store{Dir: dir, Limit: limit, entries: make(map[string][]string)}
}

func (s *Store) path(widgetID string) string {
	return filepath.Join(s.Dir, widgetID+"_history.txt")
}

// Load returns widgetID's history, oldest first, reading the backing
// file on first use and caching it for subsequent calls.
func (s *Store) Load(widgetID string) ([]string, error) {
	if lines, ok := s.entries[widgetID]; ok {
		return lines, nil
	}
	lines, err := readLines(s.path(widgetID))
	if err != nil {
		return nil, err
	}
	lines = trim(lines, s.Limit)
	s.entries[widgetID] = lines
	return lines, nil
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errs.Io.New("open", err.Error())
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, errs.Io.New("scan", err.Error())
	}
	return lines, nil
}

func trim(lines []string, limit int) []string {
	if len(lines) <= limit {
		return lines
	}
	return lines[len(lines)-limit:]
}

// Append adds entry to widgetID's history unless it duplicates the most
// recent entry, then atomically rewrites the backing file trimmed to
// Limit (spec §4.L).
func (s *Store) Append(widgetID, entry string) error {
	lines, err := s.Load(widgetID)
	if err != nil {
		return err
	}
	if len(lines) > 0 && lines[len(lines)-1] == entry {
		return nil
	}
	lines = append(lines, entry)
	lines = trim(lines, s.Limit)
	s.entries[widgetID] = lines
	return s.flush(widgetID, lines)
}

func (s *Store) flush(widgetID string, lines []string) error {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return errs.Io.New("mkdir", err.Error())
	}
	path := s.path(widgetID)
	tmp := path + ".tmp"

	f, err := os.Create(tmp)
	if err != nil {
		return errs.Io.New("create", err.Error())
	}
	w := bufio.NewWriter(f)
	for _, line := range lines {
		if _, err := w.WriteString(line + "\n"); err != nil {
			f.Close()
			os.Remove(tmp)
			return errs.Io.New("write", err.Error())
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		os.Remove(tmp)
		return errs.Io.New("flush", err.Error())
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return errs.Io.New("close", err.Error())
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return errs.Io.New("rename", err.Error())
	}
	return nil
}

// Clear removes only the named registered files (a fixed allow-list),
// never the templates directory (spec §4.L).
func (s *Store) Clear(widgetIDs []string) error {
	for _, id := range widgetIDs {
		path := s.path(id)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return errs.Io.New("remove", err.Error())
		}
		delete(s.entries, id)
	}
	return nil
}
