// Package timeutil provides shared time parsing utilities.
package timeutil

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Pre-compiled regexes for relative time formats.
var (
	// Compact form: "2h", "30m", "7d"
	compactRe = regexp.MustCompile(`^(\d+)([mhdw])$`)

	// Verbose form: "2 days ago", "1 hour ago", "90 minutes ago"
	verboseRe = regexp.MustCompile(`^(\d+)\s+(second|minute|hour|day|week)s?\s+ago$`)
)

// Parse parses a reference time expression. Accepted forms:
//
//   - "now" or "" -> current time
//   - RFC3339 ("2026-08-23T06:00:00Z") -> that time
//   - compact relative: "2h", "30m", "7d", "1w"
//   - verbose relative: "2 days ago", "1 hour ago"
//   - "yesterday" -> 24 hours ago
func Parse(input string) (time.Time, error) {
	trimmed := strings.TrimSpace(input)
	// RFC3339 first, on the untouched input: its T and Z are case-sensitive.
	if t, err := time.Parse(time.RFC3339, trimmed); err == nil {
		return t, nil
	}

	input = strings.ToLower(trimmed)
	if input == "" || input == "now" {
		return time.Now(), nil
	}
	if input == "yesterday" {
		return time.Now().Add(-24 * time.Hour), nil
	}

	if m := compactRe.FindStringSubmatch(input); m != nil {
		value, _ := strconv.Atoi(m[1])
		return time.Now().Add(-time.Duration(value) * unitDuration(m[2])), nil
	}

	if m := verboseRe.FindStringSubmatch(input); m != nil {
		value, _ := strconv.Atoi(m[1])
		unit := m[2]
		if unit == "second" {
			return time.Now().Add(-time.Duration(value) * time.Second), nil
		}
		return time.Now().Add(-time.Duration(value) * unitDuration(unit[:1])), nil
	}

	return time.Time{}, fmt.Errorf("invalid time expression: %s - use RFC3339 (2026-08-23T06:00:00Z), relative (2h, 30m, 7d), or verbose (\"2 days ago\")", input)
}

func unitDuration(unit string) time.Duration {
	switch unit {
	case "m":
		return time.Minute
	case "h":
		return time.Hour
	case "d":
		return 24 * time.Hour
	case "w":
		return 7 * 24 * time.Hour
	}
	return 0
}

// FormatDuration formats a duration in a human-readable way.
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	if d < 24*time.Hour {
		return fmt.Sprintf("%.1fh", d.Hours())
	}
	return fmt.Sprintf("%.1fd", d.Hours()/24)
}

// FormatBytes converts bytes to human-readable form (e.g., "1.5 MB").
func FormatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
