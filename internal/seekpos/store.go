// Package seekpos persists the byte offset where the previous scan of a log
// file stopped, one plain-text file per logical check. The next run resumes
// from the stored offset, so repeated invocations only ever see new lines.
package seekpos

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/mireault/checklog/internal/logging"
)

// DiscardSentinel disables persistence entirely; every run scans from 0.
// The platform null device is accepted as an alias.
const DiscardSentinel = "none"

const fileSuffix = ".offset"

// Store reads and writes persisted scan positions under a destination
// directory (one file per key) or at a single explicit file path.
type Store struct {
	dest string
	log  logging.Logger
}

// New creates a Store for the given destination. The destination is a
// directory (keys become files inside it, created on demand), an existing
// file used as the single seek file, or the discard sentinel.
func New(dest string) *Store {
	return &Store{dest: dest, log: logging.Default()}
}

// WithLogger replaces the store's logger. Used by tests.
func (s *Store) WithLogger(l logging.Logger) *Store {
	s.log = l
	return s
}

// Discard reports whether persistence is disabled.
func (s *Store) Discard() bool {
	return s.dest == "" || s.dest == DiscardSentinel || s.dest == os.DevNull
}

// Key derives a deterministic store key from the concrete file's directory
// and base name, flattened into one safe filename component. An optional tag
// disambiguates multiple checks against the same file.
func Key(path, tag string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	key := sanitize(abs)
	if tag != "" {
		key += "." + sanitize(tag)
	}
	return key
}

// sanitize flattens a path into a single filename component.
func sanitize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return strings.Trim(b.String(), "_")
}

// path returns the on-disk location for a key. A destination that is an
// existing regular file is used as-is; anything else is treated as a
// directory holding one file per key, created on the first write.
func (s *Store) path(key string) string {
	if info, err := os.Stat(s.dest); err == nil && !info.IsDir() {
		return s.dest
	}
	return filepath.Join(s.dest, key+fileSuffix)
}

// Read returns the persisted offset for key, or (0, false) when no usable
// state exists. Unparsable state counts as absent, not as an error.
func (s *Store) Read(key string) (int64, bool) {
	if s.Discard() {
		return 0, false
	}
	raw, err := os.ReadFile(s.path(key))
	if err != nil {
		return 0, false
	}
	offset, err := strconv.ParseInt(string(bytes.TrimSpace(raw)), 10, 64)
	if err != nil || offset < 0 {
		s.log.Warn("ignoring unparsable seek state in %s", s.path(key))
		return 0, false
	}
	return offset, true
}

// Age returns how long ago the persisted state for key was written.
func (s *Store) Age(key string) (time.Duration, bool) {
	if s.Discard() {
		return 0, false
	}
	info, err := os.Stat(s.path(key))
	if err != nil {
		return 0, false
	}
	return time.Since(info.ModTime()), true
}

// Write persists offset for key. When freshness is nonzero and the existing
// state is younger than freshness, the write is skipped silently; this keeps
// multiple pollers sharing a seek file from leapfrogging each other. A
// failed write degrades to a warning, never a failed run.
func (s *Store) Write(key string, offset int64, freshness time.Duration) {
	if s.Discard() {
		return
	}

	path := s.path(key)
	if freshness > 0 {
		if info, err := os.Stat(path); err == nil && time.Since(info.ModTime()) < freshness {
			s.log.Debug("seek state %s is fresher than %s, not overwriting", path, freshness)
			return
		}
	}

	_ = os.MkdirAll(filepath.Dir(path), 0755)
	if err := writeAtomic(path, []byte(strconv.FormatInt(offset, 10)+"\n")); err != nil {
		s.log.Warn("position not saved: %v", err)
	}
}

// Reset removes the persisted state for key so the next run scans from 0.
func (s *Store) Reset(key string) error {
	if s.Discard() {
		return nil
	}
	err := os.Remove(s.path(key))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Path exposes the on-disk location for a key, for the position subcommand.
func (s *Store) Path(key string) string {
	if s.Discard() {
		return DiscardSentinel
	}
	return s.path(key)
}

// writeAtomic writes through a temp file and renames into place.
func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("renaming %s: %w", tmp, err)
	}
	return nil
}
