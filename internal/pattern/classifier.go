package pattern

import (
	"fmt"
	"sort"
	"strings"
)

// Result is a classifier's verdict for one matched line.
type Result struct {
	// Count decides whether the match counts toward the alert threshold:
	// 0 excludes it (still tracked as a raw match), positive counts it,
	// and a value above 1 requests escalation (honored only when the
	// escalate policy is enabled).
	Count int

	// Override, when non-empty, replaces the raw line as display text.
	Override string

	// Metrics are optional custom perfdata values emitted by the
	// classifier, merged into the run's metrics line.
	Metrics map[string]float64
}

// LineContext gives a classifier read-only surroundings of the line under
// test. Peek reads ahead without moving the scan cursor; classifiers cannot
// seek.
type LineContext struct {
	// Ordinal is the 1-based index of the line within this run.
	Ordinal int64

	// Matches is the raw pattern-match count so far, including this line.
	Matches int64

	// Accepted is the classifier-accepted count so far, excluding this line.
	Accepted int64

	// Before holds the preceding context lines, oldest first.
	Before []string

	// Peek returns the n-th line after the current one (1-based) without
	// consuming it, or false at EOF.
	Peek func(n int) (string, bool)
}

// Classifier is custom per-line accept/reject logic, invoked only for lines
// that already passed the primary pattern and whitelist tests.
type Classifier interface {
	Classify(line string, ctx *LineContext) (Result, error)
}

// Factory builds a Classifier from its argument string.
type Factory func(arg string) (Classifier, error)

// registry holds classifier factories by name.
var registry = make(map[string]Factory)

// RegisterClassifier adds a classifier factory under a name. Called during
// init() by each implementation.
func RegisterClassifier(name string, f Factory) {
	registry[name] = f
}

// NewClassifier builds a classifier from a "name:argument" spec. A spec
// without a registered name prefix is treated as an expr program.
func NewClassifier(spec string) (Classifier, error) {
	if spec == "" {
		return nil, nil
	}
	if name, arg, ok := strings.Cut(spec, ":"); ok {
		if f, found := registry[name]; found {
			return f(arg)
		}
	}
	if f, found := registry[strings.TrimSpace(spec)]; found {
		return f("")
	}
	// Default: an inline expr program.
	return newExprClassifier(spec)
}

// RegisteredClassifiers lists registered classifier names, sorted.
func RegisteredClassifiers() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// FuncClassifier adapts a plain function to the Classifier interface.
type FuncClassifier func(line string, ctx *LineContext) (Result, error)

// Classify implements Classifier.
func (f FuncClassifier) Classify(line string, ctx *LineContext) (Result, error) {
	return f(line, ctx)
}

func init() {
	// "count" accepts every match unchanged; useful as an explicit no-op
	// when a config template always sets a classifier.
	RegisterClassifier("count", func(arg string) (Classifier, error) {
		if arg != "" {
			return nil, fmt.Errorf("count classifier takes no argument, got %q", arg)
		}
		return FuncClassifier(func(string, *LineContext) (Result, error) {
			return Result{Count: 1}, nil
		}), nil
	})
}
