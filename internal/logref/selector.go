// Package logref resolves a logical log reference to the single concrete
// file a run should scan. A reference is a fixed path plus an optional glob
// suffix whose strftime-style placeholders are expanded against a reference
// timestamp, so rotated or date-stamped logs (app.log.%Y%m%d, app.log.*)
// resolve to one candidate per run.
package logref

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrNotFound is returned when the reference matches no regular file.
// Callers decide the reporting policy for a missing log.
var ErrNotFound = errors.New("no matching log file")

// Policy selects among multiple glob candidates.
type Policy int

const (
	// PolicyLastMatch picks the lexicographically last full path (default).
	PolicyLastMatch Policy = iota
	// PolicyFirstMatch picks the lexicographically first full path.
	PolicyFirstMatch
	// PolicyMostRecent picks the candidate with the newest mtime; mtime
	// ties keep the later candidate in enumeration order.
	PolicyMostRecent
)

// ParsePolicy parses a selection policy name. Empty input means the default.
func ParsePolicy(name string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "last_match":
		return PolicyLastMatch, nil
	case "first_match":
		return PolicyFirstMatch, nil
	case "most_recent":
		return PolicyMostRecent, nil
	}
	return PolicyLastMatch, fmt.Errorf("invalid selection policy %q (want most_recent, first_match, or last_match)", name)
}

// Ref is an immutable logical log reference, constructed once per run.
type Ref struct {
	// Path is the fixed path component: a file, a directory, or the
	// non-glob prefix of a rotated log family.
	Path string

	// GlobSuffix is appended to Path and glob-matched after placeholder
	// expansion. Empty means Path must name the file itself.
	GlobSuffix string

	// Reference is the timestamp placeholders resolve against.
	// The zero value means now.
	Reference time.Time

	// Select disambiguates multiple glob candidates.
	Select Policy
}

// Resolve returns the one concrete file to scan, or ErrNotFound.
// Filesystem access is read-only.
func (r Ref) Resolve() (string, error) {
	ref := r.Reference
	if ref.IsZero() {
		ref = time.Now()
	}

	path := ExpandPlaceholders(r.Path, ref)
	suffix := ExpandPlaceholders(r.GlobSuffix, ref)

	if suffix == "" {
		info, err := os.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				return "", fmt.Errorf("%w: %s", ErrNotFound, path)
			}
			return "", err
		}
		if !info.IsDir() {
			return path, nil
		}
		// A bare directory behaves as if suffix "*" were given.
		path, suffix = strings.TrimSuffix(path, string(os.PathSeparator))+string(os.PathSeparator), "*"
	}

	candidates, err := filepath.Glob(path + suffix)
	if err != nil {
		return "", fmt.Errorf("invalid glob %q: %w", path+suffix, err)
	}

	var files []string
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && info.Mode().IsRegular() {
			files = append(files, c)
		}
	}
	if len(files) == 0 {
		return "", fmt.Errorf("%w: %s", ErrNotFound, path+suffix)
	}

	// filepath.Glob returns lexically sorted paths.
	switch r.Select {
	case PolicyFirstMatch:
		return files[0], nil
	case PolicyMostRecent:
		return mostRecent(files), nil
	default:
		return files[len(files)-1], nil
	}
}

// mostRecent returns the candidate with the newest mtime, keeping the
// later-seen candidate on ties.
func mostRecent(files []string) string {
	best := files[0]
	var bestTime time.Time
	if info, err := os.Stat(best); err == nil {
		bestTime = info.ModTime()
	}
	for _, f := range files[1:] {
		info, err := os.Stat(f)
		if err != nil {
			continue
		}
		if !info.ModTime().Before(bestTime) {
			best, bestTime = f, info.ModTime()
		}
	}
	return best
}

// placeholderFormats maps the supported strftime-style placeholders to
// time.Format layouts. %w and %j have no layout equivalent and are computed.
var placeholderFormats = map[byte]string{
	'Y': "2006",
	'y': "06",
	'm': "01",
	'd': "02",
	'H': "15",
	'M': "04",
	'S': "05",
}

// ExpandPlaceholders substitutes %Y %y %m %d %H %M %S %w %j against t.
// %% emits a literal percent; unknown sequences pass through unchanged.
func ExpandPlaceholders(pattern string, t time.Time) string {
	if !strings.Contains(pattern, "%") {
		return pattern
	}

	var b strings.Builder
	b.Grow(len(pattern))
	for i := 0; i < len(pattern); i++ {
		if pattern[i] != '%' || i == len(pattern)-1 {
			b.WriteByte(pattern[i])
			continue
		}
		i++
		switch c := pattern[i]; c {
		case '%':
			b.WriteByte('%')
		case 'w':
			fmt.Fprintf(&b, "%d", int(t.Weekday()))
		case 'j':
			fmt.Fprintf(&b, "%03d", t.YearDay())
		default:
			if layout, ok := placeholderFormats[c]; ok {
				b.WriteString(t.Format(layout))
			} else {
				b.WriteByte('%')
				b.WriteByte(c)
			}
		}
	}
	return b.String()
}
