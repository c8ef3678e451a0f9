// Package scan is the streaming engine behind the log check: it reads the
// selected file from a persisted offset to EOF, drives the match pipeline
// per line, maintains context buffers, and applies the output-limiting
// policy. The returned Summary feeds the threshold evaluator and reporter.
package scan

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mireault/checklog/internal/check"
	"github.com/mireault/checklog/internal/pattern"
)

// LimitPolicy bounds how many matches a run retains for output.
type LimitPolicy int

const (
	// LimitLast retains only the most recent match (default).
	LimitLast LimitPolicy = iota
	// LimitAll retains every match in order.
	LimitAll
	// LimitMax retains up to Max matches, then stops classifying but
	// keeps consuming bytes so the persisted offset reaches true EOF.
	LimitMax
	// LimitFirst retains up to Max matches, then stops reading and jumps
	// the persisted offset to EOF, permanently skipping the remainder.
	LimitFirst
)

// ParseLimitPolicy parses a policy name. Empty input means the default.
func ParseLimitPolicy(name string) (LimitPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "last":
		return LimitLast, nil
	case "all":
		return LimitAll, nil
	case "max":
		return LimitMax, nil
	case "first":
		return LimitFirst, nil
	}
	return LimitLast, fmt.Errorf("invalid report policy %q (want last, all, max, or first)", name)
}

// Limits is the active output-limiting configuration.
type Limits struct {
	Policy LimitPolicy
	// Max bounds retained matches for LimitMax and LimitFirst.
	Max int
}

// Options configures one scan run.
type Options struct {
	// Encoding is the IANA name of the input text encoding ("" = UTF-8).
	Encoding string

	// NormalizeCRLF strips a trailing CR from every line (CRLF -> LF).
	NormalizeCRLF bool

	// Before and After are the context line counts captured per match.
	Before, After int

	// Limits is the output-limiting policy.
	Limits Limits
}

// MatchRecord is one retained match with its context.
type MatchRecord struct {
	// Ordinal is the 1-based line number within this run.
	Ordinal int64

	// Line is the display text (classifier override or the raw line).
	Line string

	// Before holds preceding context lines, oldest first.
	Before []string

	// After holds following context lines captured by read-ahead.
	After []string
}

// Summary aggregates one run.
type Summary struct {
	// File is the concrete path that was scanned.
	File string

	// Lines is the total number of lines read.
	Lines int64

	// Matches counts pattern matches that survived the whitelist.
	Matches int64

	// Accepted counts matches that count toward thresholds. Equal to
	// Matches unless a classifier is configured.
	Accepted int64

	// Escalated is set when any classifier result requested escalation.
	Escalated bool

	// Records are the retained matches, per the limit policy.
	Records []MatchRecord

	// Offset is the byte position to persist for the next run.
	Offset int64

	// Faults are non-fatal classifier errors, for verbose diagnostics.
	Faults []string

	// Metrics are classifier-emitted perfdata values, summed per key.
	Metrics map[string]float64
}

// pendingLine is a read-ahead line not yet consumed by the main loop.
type pendingLine struct {
	text string
	size int64
}

// Run scans path from startOffset to EOF. A startOffset beyond the current
// file size means the file was rotated; the scan restarts from 0. With an
// empty pipeline match set the engine runs in heartbeat mode and only counts
// lines. All failures come back as *check.RunError.
func Run(ctx context.Context, path string, startOffset int64, p *pattern.Pipeline, opts Options) (*Summary, error) {
	decoder, err := ResolveEncoding(opts.Encoding)
	if err != nil {
		return nil, check.ConfigErrorf("%v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, check.MissingFile(path)
		}
		return nil, check.IOErrorf("opening %s: %v", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, check.IOErrorf("stat %s: %v", path, err)
	}
	size := info.Size()

	offset := startOffset
	if offset > size {
		// Shorter file than last time: rotation. Restart from the top.
		offset = 0
	}
	if offset > 0 {
		if _, err := f.Seek(offset, io.SeekStart); err != nil {
			return nil, check.IOErrorf("seek %s to %d: %v", path, offset, err)
		}
	}

	sum := &Summary{File: path, Offset: offset, Metrics: make(map[string]float64)}
	lr := newLineReader(f, decoder, opts.NormalizeCRLF)
	heartbeat := p == nil || p.Match.Empty()

	// Lines read ahead for forward context or classifier peeking. The main
	// loop consumes them before touching the reader again, so the persisted
	// offset only ever reflects lines the main iteration has processed.
	var pending []pendingLine

	next := func() (string, int64, error) {
		if len(pending) > 0 {
			l := pending[0]
			pending = pending[1:]
			return l.text, l.size, nil
		}
		return lr.next()
	}
	peek := func(n int) (string, bool) {
		for len(pending) < n {
			text, sz, err := lr.next()
			if err != nil {
				return "", false
			}
			pending = append(pending, pendingLine{text, sz})
		}
		return pending[n-1].text, true
	}

	var backBuf []string
	classifying := true

	for {
		if err := ctx.Err(); err != nil {
			return nil, check.Timeout("")
		}

		text, n, err := next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, check.IOErrorf("reading %s: %v", path, err)
		}
		sum.Lines++
		sum.Offset += n

		if heartbeat || !classifying {
			continue
		}

		lctx := &pattern.LineContext{
			Ordinal:  sum.Lines,
			Matches:  sum.Matches + 1,
			Accepted: sum.Accepted,
			Before:   append([]string(nil), backBuf...),
			Peek:     peek,
		}
		verdict := p.Classify(text, lctx)

		if opts.Before > 0 {
			backBuf = append(backBuf, text)
			if len(backBuf) > opts.Before {
				backBuf = backBuf[1:]
			}
		}

		if verdict.Fault != nil {
			sum.Faults = append(sum.Faults, fmt.Sprintf("line %d: %v", sum.Lines, verdict.Fault))
		}
		if !verdict.Matched {
			continue
		}
		sum.Matches++
		for k, v := range verdict.Metrics {
			sum.Metrics[k] += v
		}
		if !verdict.Counted {
			continue
		}
		sum.Accepted++
		if verdict.Escalate {
			sum.Escalated = true
		}

		rec := MatchRecord{Ordinal: sum.Lines, Line: verdict.Display, Before: lctx.Before}
		for i := 1; i <= opts.After; i++ {
			line, ok := peek(i)
			if !ok {
				break
			}
			rec.After = append(rec.After, line)
		}

		switch opts.Limits.Policy {
		case LimitAll:
			sum.Records = append(sum.Records, rec)
		case LimitMax:
			sum.Records = append(sum.Records, rec)
			if len(sum.Records) >= opts.Limits.Max {
				// Keep consuming so the offset reaches true EOF, but
				// stop classifying.
				classifying = false
			}
		case LimitFirst:
			sum.Records = append(sum.Records, rec)
			if len(sum.Records) >= opts.Limits.Max {
				// Skip the rest of the file permanently.
				sum.Offset = size
				return sum, nil
			}
		default: // LimitLast
			sum.Records = append(sum.Records[:0], rec)
		}
	}

	return sum, nil
}
