// Package template implements the Template Store from spec §4.K: named
// view configurations saved for reuse, ranked against a candidate
// file/schema by a fixed scoring table and retrieved from one JSON file
// per template under a directory.
//
// Grounded on the teacher's settings.GetEffectiveSettings "defaults
// overlaid with file contents, tolerant of missing fields" loading idiom
// (internal/settings/settings.go), with persistence switched to
// spec.md's one-file-per-template layout and atomic, lock-guarded
// writes via github.com/gofrs/flock.
package template

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"github.com/derekwisong/datui/internal/errs"
)

// schemaVersion is the on-disk format version; older files missing
// fields default to their zero value (spec §4.K).
const schemaVersion = 1

// Template is one saved view configuration.
type Template struct {
	SchemaVersion int      `json:"schema_version"`
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	AbsolutePath  string   `json:"absolute_path,omitempty"`
	RelativePath  string   `json:"relative_path,omitempty"`
	Columns       []string `json:"columns,omitempty"` // schema column names this template was built against
	Config        any      `json:"config"`             // opaque view config (query, filters, sort, pivot/melt, etc.)

	CreatedAt  int64 `json:"created_at"` // seconds since epoch
	LastUsedAt int64 `json:"last_used_at,omitempty"`
	UsageCount int   `json:"usage_count,omitempty"`
}

// Store manages templates persisted as one JSON file per template under Dir.
type Store struct {
	Dir string
}

func NewStore(dir string) *Store {
	return &Store{Dir: dir}
}

func (s *Store) path(id string) string {
	return filepath.Join(s.Dir, "template_"+id+".json")
}

// NewID derives a stable template ID from name and creation time.
func NewID(name string, createdAt int64) string {
	h := sha256.Sum256([]byte(fmt.Sprintf("%s|%d", name, createdAt)))
	return hex.EncodeToString(h[:])[:16]
}

// Save atomically writes t to its backing file, holding an exclusive
// file lock for the duration of the write (spec §4.K).
func (s *Store) Save(t *Template) error {
	if t.SchemaVersion == 0 {
		t.SchemaVersion = schemaVersion
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return errs.Io.New("mkdir", err.Error())
	}

	lockPath := s.path(t.ID) + ".lock"
	lock := flock.New(lockPath)
	if err := lock.Lock(); err != nil {
		return errs.Io.New("lock", err.Error())
	}
	defer lock.Unlock()

	b, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return errs.InternalInvariant.New(err.Error())
	}

	path := s.path(t.ID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return errs.Io.New("write", err.Error())
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return errs.Io.New("rename", err.Error())
	}
	return nil
}

// Load reads every template file in Dir, skipping files that fail to
// parse (tolerant of missing/corrupt files per the teacher's settings
// loader idiom).
func (s *Store) Load() ([]*Template, error) {
	entries, err := os.ReadDir(s.Dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errs.Io.New("readdir", err.Error())
	}
	var out []*Template
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		b, err := os.ReadFile(filepath.Join(s.Dir, e.Name()))
		if err != nil {
			continue
		}
		var t Template
		if err := json.Unmarshal(b, &t); err != nil {
			continue
		}
		out = append(out, &t)
	}
	return out, nil
}

// Delete removes a template's backing file.
func (s *Store) Delete(id string) error {
	if err := os.Remove(s.path(id)); err != nil && !os.IsNotExist(err) {
		return errs.Io.New("remove", err.Error())
	}
	return nil
}

// RecordUse bumps usage bookkeeping and re-saves t.
func (s *Store) RecordUse(t *Template, now time.Time) error {
	t.UsageCount++
	t.LastUsedAt = now.Unix()
	return s.Save(t)
}
