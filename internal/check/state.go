// Package check defines the four-state monitoring contract shared by every
// checklog subcommand: the OK/WARNING/CRITICAL/UNKNOWN taxonomy, its mapping
// to process exit codes, and the typed errors that resolve to a state at the
// command boundary.
package check

import (
	"fmt"
	"strings"
)

// State is the outcome reported to the monitoring supervisor.
type State int

const (
	StateOK State = iota
	StateWarning
	StateCritical
	StateUnknown
)

var stateNames = [...]string{
	StateOK:       "OK",
	StateWarning:  "WARNING",
	StateCritical: "CRITICAL",
	StateUnknown:  "UNKNOWN",
}

// String returns the canonical state name.
func (s State) String() string {
	if s < StateOK || s > StateUnknown {
		return "UNKNOWN"
	}
	return stateNames[s]
}

// ExitCode returns the supervisor exit code for the state.
func (s State) ExitCode() int {
	return int(s)
}

// ParseState parses a state name (case-insensitive). Used for the
// missing-file override, so only valid supervisor states are accepted.
func ParseState(name string) (State, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "OK":
		return StateOK, nil
	case "WARNING", "WARN":
		return StateWarning, nil
	case "CRITICAL", "CRIT":
		return StateCritical, nil
	case "UNKNOWN":
		return StateUnknown, nil
	}
	return StateUnknown, fmt.Errorf("invalid state name %q (want OK, WARNING, CRITICAL, or UNKNOWN)", name)
}

// Reason classifies why a run failed before producing a threshold verdict.
type Reason int

const (
	ReasonConfig Reason = iota
	ReasonMissingFile
	ReasonIO
	ReasonTimeout
)

// RunError is a failed run resolved to a reporting state. Every internal
// failure becomes a RunError before it crosses the command boundary, so the
// user always sees exactly one status line and one exit code.
type RunError struct {
	State   State
	Reason  Reason
	Message string
}

func (e *RunError) Error() string {
	return e.Message
}

// ConfigErrorf reports an invalid configuration (UNKNOWN, detected before
// any file I/O).
func ConfigErrorf(format string, args ...interface{}) *RunError {
	return &RunError{State: StateUnknown, Reason: ReasonConfig, Message: fmt.Sprintf(format, args...)}
}

// MissingFile reports that the log file could not be resolved or opened
// because it does not exist. CRITICAL by default; callers may override the
// state per configuration.
func MissingFile(what string) *RunError {
	return &RunError{State: StateCritical, Reason: ReasonMissingFile, Message: "log file not found: " + what}
}

// IOErrorf reports a non-missing I/O failure. Always CRITICAL, never
// overridable, and the run must not persist a scan position afterwards.
func IOErrorf(format string, args ...interface{}) *RunError {
	return &RunError{State: StateCritical, Reason: ReasonIO, Message: fmt.Sprintf(format, args...)}
}

// Timeout reports that the run exceeded its configured deadline. The
// detail, when non-empty, names the deadline for the status line.
func Timeout(detail string) *RunError {
	msg := "scan timed out"
	if detail != "" {
		msg += " after " + detail
	}
	return &RunError{State: StateUnknown, Reason: ReasonTimeout, Message: msg}
}
