package pattern

// Pipeline classifies one line at a time: primary pattern test, whitelist
// exclusion, then the optional classifier. It holds no scan state; the
// engine owns counters and buffers.
type Pipeline struct {
	// Match is the primary pattern set. An empty set puts the scan in
	// heartbeat mode (the engine skips classification entirely).
	Match *Set

	// Whitelist excludes otherwise-matching lines. Always OR-combined.
	Whitelist *Set

	// Classifier optionally re-counts and re-labels matches.
	Classifier Classifier
}

// Verdict is the pipeline's decision for one line.
type Verdict struct {
	// Matched: the line passed the primary test and was not whitelisted.
	Matched bool

	// Counted: the match counts toward the alert threshold. Equal to
	// Matched unless a classifier said otherwise.
	Counted bool

	// Escalate: the classifier returned a value above 1.
	Escalate bool

	// Display is the text to report for the match (classifier override
	// or the raw line).
	Display string

	// Metrics are classifier-emitted perfdata values.
	Metrics map[string]float64

	// Fault is a non-fatal classifier error. The line is treated as
	// classifier-result 0; the engine records the fault for diagnostics.
	Fault error
}

// Classify runs the pipeline for one line.
func (p *Pipeline) Classify(line string, ctx *LineContext) Verdict {
	if !p.Match.Match(line) {
		return Verdict{}
	}
	if !p.Whitelist.Empty() && p.Whitelist.Match(line) {
		return Verdict{}
	}

	v := Verdict{Matched: true, Counted: true, Display: line}
	if p.Classifier == nil {
		return v
	}

	result, err := p.Classifier.Classify(line, ctx)
	if err != nil {
		// A classifier fault must never abort the run.
		v.Counted = false
		v.Fault = err
		return v
	}

	v.Counted = result.Count > 0
	v.Escalate = result.Count > 1
	v.Metrics = result.Metrics
	if result.Override != "" {
		v.Display = result.Override
	}
	return v
}
