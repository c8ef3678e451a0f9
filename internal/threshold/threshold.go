// Package threshold turns a scan summary into a final alert state. It
// understands absolute and percentage thresholds, inverted ("negate")
// comparison, the heartbeat path, and pre-empting overrides for
// hard-exhaustion conditions.
package threshold

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mireault/checklog/internal/check"
	"github.com/mireault/checklog/internal/scan"
)

// Threshold is one alert boundary: an absolute count or a percentage.
// The zero value is a disabled threshold that never triggers.
type Threshold struct {
	Value   float64
	Percent bool
}

// Parse parses a threshold literal: an unsigned number with an optional
// trailing percent sign ("10", "25%", "2.5%").
func Parse(s string) (Threshold, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Threshold{}, nil
	}
	t := Threshold{}
	if strings.HasSuffix(s, "%") {
		t.Percent = true
		s = strings.TrimSuffix(s, "%")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return Threshold{}, fmt.Errorf("invalid threshold %q (want a non-negative number, optionally with %%)", s)
	}
	t.Value = v
	return t, nil
}

// String renders the threshold the way it was configured.
func (t Threshold) String() string {
	s := strconv.FormatFloat(t.Value, 'f', -1, 64)
	if t.Percent {
		return s + "%"
	}
	return s
}

// disabled reports whether the threshold can never trigger.
func (t Threshold) disabled() bool {
	return t.Value == 0
}

// Config drives one evaluation.
type Config struct {
	Warn, Crit Threshold

	// Negate inverts the comparison: alert when the count is below the
	// threshold. Also activated implicitly when Warn > Crit and both are
	// nonzero.
	Negate bool

	// AlwaysOK forces OK regardless of counts.
	AlwaysOK bool

	// Heartbeat evaluates total lines read instead of match counts.
	Heartbeat bool

	// HasClassifier switches the count basis to classifier-accepted
	// matches and the percentage basis to accepted/matched.
	HasClassifier bool

	// Escalate honors a classifier's escalation request (result > 1) by
	// raising a warning outcome to critical. Off by default; the legacy
	// behavior this replaces triggered too easily to leave implicit.
	Escalate bool
}

// Override can pre-empt threshold arithmetic entirely, e.g. a detected
// hard-exhaustion condition forcing CRITICAL. The first override to return
// ok wins.
type Override func(sum *scan.Summary) (check.State, bool)

// Evaluate computes the final alert state for a run.
func Evaluate(sum *scan.Summary, cfg Config, overrides ...Override) check.State {
	for _, o := range overrides {
		if state, ok := o(sum); ok {
			return state
		}
	}

	if cfg.AlwaysOK || (cfg.Warn.disabled() && cfg.Crit.disabled()) {
		return check.StateOK
	}

	negate := cfg.Negate
	if !negate && !cfg.Warn.disabled() && !cfg.Crit.disabled() && cfg.Warn.Value > cfg.Crit.Value {
		// Warning above critical only makes sense inverted.
		negate = true
	}

	// Warning first; critical overrides but never downgrades.
	state := check.StateOK
	if triggers(cfg.Warn, sum, cfg, negate) {
		state = check.StateWarning
	}
	if triggers(cfg.Crit, sum, cfg, negate) {
		state = check.StateCritical
	}

	if state == check.StateWarning && cfg.Escalate && sum.Escalated {
		state = check.StateCritical
	}
	return state
}

// triggers tests one threshold against the summary.
func triggers(t Threshold, sum *scan.Summary, cfg Config, negate bool) bool {
	if t.disabled() {
		return false
	}
	v := basis(t, sum, cfg)
	if negate {
		return v < t.Value
	}
	return v >= t.Value
}

// basis selects the value a threshold compares against.
func basis(t Threshold, sum *scan.Summary, cfg Config) float64 {
	if cfg.Heartbeat {
		// Heartbeat alerts on line volume alone.
		return float64(sum.Lines)
	}
	if t.Percent {
		return percentage(sum, cfg)
	}
	if cfg.HasClassifier {
		return float64(sum.Accepted)
	}
	return float64(sum.Matches)
}

// percentage computes the configured percentage basis, defined as 0 when
// the denominator is 0.
func percentage(sum *scan.Summary, cfg Config) float64 {
	if cfg.HasClassifier {
		if sum.Matches == 0 {
			return 0
		}
		return float64(sum.Accepted) / float64(sum.Matches) * 100
	}
	if sum.Lines == 0 {
		return 0
	}
	return float64(sum.Matches) / float64(sum.Lines) * 100
}
