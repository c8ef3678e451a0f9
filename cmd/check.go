package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/mireault/checklog/internal/check"
	"github.com/mireault/checklog/internal/config"
	"github.com/mireault/checklog/internal/logref"
	"github.com/mireault/checklog/internal/pattern"
	"github.com/mireault/checklog/internal/scan"
	"github.com/mireault/checklog/internal/seekpos"
	"github.com/mireault/checklog/internal/threshold"
	"github.com/mireault/checklog/pkg/timeutil"

	"github.com/olorin/nagiosplugin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	checkGlobSuffix     string
	checkRefTime        string
	checkSelect         string
	checkPatterns       []string
	checkPatternFile    string
	checkWhitelist      []string
	checkWhitelistFile  string
	checkMatchAll       bool
	checkIgnoreCase     bool
	checkWarning        string
	checkCritical       string
	checkNegate         bool
	checkAlwaysOK       bool
	checkReport         string
	checkReportMax      int
	checkBefore         int
	checkAfter          int
	checkClassifier     string
	checkClassifierFile string
	checkEscalate       bool
	checkSeekDir        string
	checkTag            string
	checkFreshness      int
	checkMissingState   string
	checkMissingText    string
	checkTimeout        string
	checkEncoding       string
	checkCRLF           bool
)

var checkCmd = &cobra.Command{
	Use:   "check <file-or-@alias>",
	Short: "Scan a log file once and report a monitoring status",
	Long: `Scan a log file for pattern matches since the last run and report one
status line plus exit code (OK=0, WARNING=1, CRITICAL=2, UNKNOWN=3).

The scan resumes from the byte offset persisted by the previous run. A file
that shrank since then is treated as rotated and rescanned from the top.
Without any -p pattern the check runs in heartbeat mode: it only counts new
lines, which combined with --negate alerts when a log went silent.

Rotated and date-stamped logs:
  --glob-suffix appends a glob to the file path. %Y %y %m %d %H %M %S %w %j
  placeholders expand against --time (e.g. "now", "2 days ago", RFC3339).
  With several candidates --select picks one: last_match (default),
  first_match, or most_recent.

Thresholds:
  -w/-c take absolute counts ("5") or percentages ("25%"). Percentages are
  matches/lines, or accepted/matches when a classifier is set. --negate
  inverts the comparison (alert below the threshold); it also activates
  implicitly when warning > critical and both are nonzero.

Output limiting (--report):
  last   keep only the most recent match (default)
  all    keep every match
  max    keep --report-max matches, then stop classifying (offset still
         reaches EOF)
  first  keep --report-max matches, then skip the rest of the file for good

Classifiers:
  --classifier runs a small expression per matched line; its integer result
  decides whether the match counts (0 = no, >=1 = yes). Example:
    checklog check app.log -p ERROR -w 1 \
      --classifier 'line contains "disk" ? 2 : 1' --escalate

Examples:
  checklog check /var/log/app.log -p ERROR -w 1 -c 10
  checklog check /var/log/app.log --glob-suffix '.%Y%m%d' -p FATAL -c 1
  checklog check @app-errors
  checklog check /var/log/app.log -c 1 --negate     # heartbeat`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	f := checkCmd.Flags()
	f.StringVar(&checkGlobSuffix, "glob-suffix", "", "Glob appended to the file path; %Y-style placeholders expand against --time")
	f.StringVar(&checkRefTime, "time", "", "Reference time for placeholders: now, RFC3339, or relative (\"2 days ago\")")
	f.StringVar(&checkSelect, "select", "", "Among multiple glob candidates: most_recent, first_match, last_match")
	f.StringArrayVarP(&checkPatterns, "pattern", "p", nil, "Match pattern (regexp); repeatable")
	f.StringVar(&checkPatternFile, "pattern-file", "", "File with one match pattern per line")
	f.StringArrayVar(&checkWhitelist, "whitelist", nil, "Exclusion pattern (regexp); repeatable")
	f.StringVar(&checkWhitelistFile, "whitelist-file", "", "File with one exclusion pattern per line")
	f.BoolVar(&checkMatchAll, "match-all", false, "AND-combine patterns: a line must match every -p pattern")
	f.BoolVarP(&checkIgnoreCase, "ignore-case", "i", false, "Case-insensitive matching for patterns and whitelist")
	f.StringVarP(&checkWarning, "warning", "w", "", "Warning threshold: count or percentage (\"5\", \"25%\")")
	f.StringVarP(&checkCritical, "critical", "c", "", "Critical threshold: count or percentage")
	f.BoolVar(&checkNegate, "negate", false, "Invert threshold comparison: alert below the threshold")
	f.BoolVar(&checkAlwaysOK, "always-ok", false, "Report OK regardless of counts (still scans and persists position)")
	f.StringVar(&checkReport, "report", "", "Output limiting: last, all, max, first")
	f.IntVar(&checkReportMax, "report-max", 0, "Match cap for --report max/first (default 1)")
	f.IntVarP(&checkBefore, "before", "B", 0, "Context lines captured before each match")
	f.IntVarP(&checkAfter, "after", "A", 0, "Context lines captured after each match")
	f.StringVar(&checkClassifier, "classifier", "", "Per-line classifier: expression, or name:argument")
	f.StringVar(&checkClassifierFile, "classifier-file", "", "File containing the classifier expression")
	f.BoolVar(&checkEscalate, "escalate", false, "Honor classifier escalation requests (result > 1 raises WARNING to CRITICAL)")
	f.StringVar(&checkSeekDir, "seek-dir", "", "Directory (or file) for persisted scan positions; \"none\" disables persistence")
	f.StringVar(&checkTag, "tag", "", "Disambiguates the seek key when several checks watch one file")
	f.IntVar(&checkFreshness, "freshness", 0, "Skip the position write if the stored one is younger than this many seconds")
	f.StringVar(&checkMissingState, "missing-state", "", "State to report when the log file is missing (default CRITICAL)")
	f.StringVar(&checkMissingText, "missing-message", "", "Message to report when the log file is missing")
	f.StringVar(&checkTimeout, "timeout", "", "Abort the run after this duration (e.g. 30s) and report UNKNOWN")
	f.StringVar(&checkEncoding, "encoding", "", "Input text encoding by IANA name (default UTF-8)")
	f.BoolVar(&checkCRLF, "crlf", false, "Normalize CRLF line endings before matching")
}

// specFromFlags snapshots the check flags into a CheckSpec.
func specFromFlags() config.CheckSpec {
	spec := config.CheckSpec{
		GlobSuffix:    checkGlobSuffix,
		ReferenceTime: checkRefTime,
		Select:        checkSelect,
		Patterns:      checkPatterns,
		PatternFile:   checkPatternFile,
		Whitelist:     checkWhitelist,
		WhitelistFile: checkWhitelistFile,
		MatchAll:      checkMatchAll,
		NoCase:        checkIgnoreCase,
		Warning:       checkWarning,
		Critical:      checkCritical,
		Negate:        checkNegate,
		AlwaysOK:      checkAlwaysOK,
		Report:        checkReport,
		ReportMax:     checkReportMax,
		Before:        checkBefore,
		After:         checkAfter,
		Classifier:    checkClassifier,
		Escalate:      checkEscalate,
		SeekDir:       checkSeekDir,
		Tag:           checkTag,
		Freshness:     checkFreshness,
		MissingState:  checkMissingState,
		MissingText:   checkMissingText,
		Timeout:       checkTimeout,
		Encoding:      checkEncoding,
		NormalizeCRLF: checkCRLF,
	}
	if checkClassifierFile != "" {
		spec.Classifier = "exprfile:" + checkClassifierFile
	}
	return spec
}

// mergeSpec overlays explicitly-set flags onto a config-file check spec.
// changed reports whether a flag was given on the command line.
func mergeSpec(base, flags config.CheckSpec, changed func(string) bool) config.CheckSpec {
	if changed("glob-suffix") {
		base.GlobSuffix = flags.GlobSuffix
	}
	if changed("time") {
		base.ReferenceTime = flags.ReferenceTime
	}
	if changed("select") {
		base.Select = flags.Select
	}
	if changed("pattern") {
		base.Patterns = flags.Patterns
	}
	if changed("pattern-file") {
		base.PatternFile = flags.PatternFile
	}
	if changed("whitelist") {
		base.Whitelist = flags.Whitelist
	}
	if changed("whitelist-file") {
		base.WhitelistFile = flags.WhitelistFile
	}
	if changed("match-all") {
		base.MatchAll = flags.MatchAll
	}
	if changed("ignore-case") {
		base.NoCase = flags.NoCase
	}
	if changed("warning") {
		base.Warning = flags.Warning
	}
	if changed("critical") {
		base.Critical = flags.Critical
	}
	if changed("negate") {
		base.Negate = flags.Negate
	}
	if changed("always-ok") {
		base.AlwaysOK = flags.AlwaysOK
	}
	if changed("report") {
		base.Report = flags.Report
	}
	if changed("report-max") {
		base.ReportMax = flags.ReportMax
	}
	if changed("before") {
		base.Before = flags.Before
	}
	if changed("after") {
		base.After = flags.After
	}
	if changed("classifier") || changed("classifier-file") {
		base.Classifier = flags.Classifier
	}
	if changed("escalate") {
		base.Escalate = flags.Escalate
	}
	if changed("seek-dir") {
		base.SeekDir = flags.SeekDir
	}
	if changed("tag") {
		base.Tag = flags.Tag
	}
	if changed("freshness") {
		base.Freshness = flags.Freshness
	}
	if changed("missing-state") {
		base.MissingState = flags.MissingState
	}
	if changed("missing-message") {
		base.MissingText = flags.MissingText
	}
	if changed("timeout") {
		base.Timeout = flags.Timeout
	}
	if changed("encoding") {
		base.Encoding = flags.Encoding
	}
	if changed("crlf") {
		base.NormalizeCRLF = flags.NormalizeCRLF
	}
	return base
}

// resolveSpec turns the command argument (path or @alias) plus flags into
// one effective CheckSpec.
func resolveSpec(cmd *cobra.Command, arg string) (config.CheckSpec, error) {
	flags := specFromFlags()

	if !strings.HasPrefix(arg, "@") {
		flags.File = arg
		if flags.SeekDir == "" {
			flags.SeekDir = viper.GetString("seek_dir")
		}
		return flags, nil
	}

	cfg, err := config.Load(configFilePath())
	if err != nil {
		return config.CheckSpec{}, check.ConfigErrorf("%v", err)
	}
	name := strings.TrimPrefix(arg, "@")
	spec, ok := cfg.Lookup(name)
	if !ok {
		available := make([]string, 0, len(cfg.Checks))
		for k := range cfg.Checks {
			available = append(available, k)
		}
		sort.Strings(available)
		return config.CheckSpec{}, check.ConfigErrorf("check %q not defined (available: %s)", name, strings.Join(available, ", "))
	}

	spec = mergeSpec(spec, flags, cmd.Flags().Changed)
	if spec.SeekDir == "" {
		spec.SeekDir = cfg.SeekDir
	}
	if spec.SeekDir == "" {
		spec.SeekDir = viper.GetString("seek_dir")
	}
	return spec, nil
}

// runPlan is a fully validated check, ready to execute. Building it does no
// file I/O against the log itself, so configuration errors surface as
// UNKNOWN before the scan starts.
type runPlan struct {
	ref       logref.Ref
	store     *seekpos.Store
	tag       string
	pipeline  *pattern.Pipeline
	scanOpts  scan.Options
	eval      threshold.Config
	freshness time.Duration
	timeout   time.Duration

	missingState   check.State
	missingSet     bool
	missingMessage string
}

// buildPlan validates a CheckSpec. All failures are config errors (UNKNOWN).
func buildPlan(spec config.CheckSpec) (*runPlan, error) {
	if spec.File == "" {
		return nil, check.ConfigErrorf("no log file given")
	}

	patterns, err := appendPatternFile(spec.Patterns, spec.PatternFile)
	if err != nil {
		return nil, err
	}
	whitelist, err := appendPatternFile(spec.Whitelist, spec.WhitelistFile)
	if err != nil {
		return nil, err
	}

	mode := pattern.ModeOr
	if spec.MatchAll {
		mode = pattern.ModeAnd
	}
	matchSet, err := pattern.Compile(patterns, mode, spec.NoCase)
	if err != nil {
		return nil, check.ConfigErrorf("%v", err)
	}
	whitelistSet, err := pattern.Compile(whitelist, pattern.ModeOr, spec.NoCase)
	if err != nil {
		return nil, check.ConfigErrorf("whitelist: %v", err)
	}
	classifier, err := pattern.NewClassifier(spec.Classifier)
	if err != nil {
		return nil, check.ConfigErrorf("%v", err)
	}

	warn, err := threshold.Parse(spec.Warning)
	if err != nil {
		return nil, check.ConfigErrorf("warning: %v", err)
	}
	crit, err := threshold.Parse(spec.Critical)
	if err != nil {
		return nil, check.ConfigErrorf("critical: %v", err)
	}

	policy, err := scan.ParseLimitPolicy(spec.Report)
	if err != nil {
		return nil, check.ConfigErrorf("%v", err)
	}
	limits := scan.Limits{Policy: policy, Max: spec.ReportMax}
	if (policy == scan.LimitMax || policy == scan.LimitFirst) && limits.Max < 1 {
		limits.Max = 1
	}

	selectPolicy, err := logref.ParsePolicy(spec.Select)
	if err != nil {
		return nil, check.ConfigErrorf("%v", err)
	}
	refTime, err := timeutil.Parse(spec.ReferenceTime)
	if err != nil {
		return nil, check.ConfigErrorf("%v", err)
	}

	if _, err := scan.ResolveEncoding(spec.Encoding); err != nil {
		return nil, check.ConfigErrorf("%v", err)
	}

	plan := &runPlan{
		ref: logref.Ref{
			Path:       spec.File,
			GlobSuffix: spec.GlobSuffix,
			Reference:  refTime,
			Select:     selectPolicy,
		},
		store: seekpos.New(spec.SeekDir),
		tag:   spec.Tag,
		pipeline: &pattern.Pipeline{
			Match:      matchSet,
			Whitelist:  whitelistSet,
			Classifier: classifier,
		},
		scanOpts: scan.Options{
			Encoding:      spec.Encoding,
			NormalizeCRLF: spec.NormalizeCRLF,
			Before:        spec.Before,
			After:         spec.After,
			Limits:        limits,
		},
		eval: threshold.Config{
			Warn:          warn,
			Crit:          crit,
			Negate:        spec.Negate,
			AlwaysOK:      spec.AlwaysOK,
			Heartbeat:     matchSet.Empty(),
			HasClassifier: classifier != nil,
			Escalate:      spec.Escalate,
		},
		freshness:      time.Duration(spec.Freshness) * time.Second,
		missingMessage: spec.MissingText,
	}

	if spec.MissingState != "" {
		state, err := check.ParseState(spec.MissingState)
		if err != nil {
			return nil, check.ConfigErrorf("missing-state: %v", err)
		}
		plan.missingState = state
		plan.missingSet = true
	}
	if spec.Timeout != "" {
		d, err := time.ParseDuration(spec.Timeout)
		if err != nil || d <= 0 {
			return nil, check.ConfigErrorf("invalid timeout %q", spec.Timeout)
		}
		plan.timeout = d
	}
	return plan, nil
}

// appendPatternFile loads one pattern per line, skipping blanks and
// #-comments.
func appendPatternFile(patterns []string, path string) ([]string, error) {
	if path == "" {
		return patterns, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, check.ConfigErrorf("pattern file: %v", err)
	}
	defer f.Close()

	out := append([]string(nil), patterns...)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, check.ConfigErrorf("pattern file: %v", err)
	}
	return out, nil
}

// outcome is one run resolved to a reportable result.
type outcome struct {
	State   check.State
	Message string
	Perf    map[string]float64
	Summary *scan.Summary
}

// executeCheck performs one full run: resolve the file, read the stored
// offset, scan, persist the new offset, evaluate thresholds. Every failure
// is resolved into a final state here; nothing propagates past this point.
func executeCheck(ctx context.Context, plan *runPlan) outcome {
	if plan.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, plan.timeout)
		defer cancel()
	}

	file, err := plan.ref.Resolve()
	if err != nil {
		if errors.Is(err, logref.ErrNotFound) {
			return plan.missingOutcome(err.Error())
		}
		return outcome{State: check.StateCritical, Message: err.Error()}
	}

	key := seekpos.Key(file, plan.tag)
	start, _ := plan.store.Read(key)

	sum, err := scan.Run(ctx, file, start, plan.pipeline, plan.scanOpts)
	if err != nil {
		var runErr *check.RunError
		if errors.As(err, &runErr) {
			if runErr.Reason == check.ReasonMissingFile {
				return plan.missingOutcome(runErr.Message)
			}
			if runErr.Reason == check.ReasonTimeout && plan.timeout > 0 {
				return outcome{State: runErr.State, Message: "scan timed out after " + plan.timeout.String()}
			}
			return outcome{State: runErr.State, Message: runErr.Message}
		}
		return outcome{State: check.StateUnknown, Message: err.Error()}
	}

	// Position is only persisted after a clean scan; aborted runs must not
	// poison the offset store.
	plan.store.Write(key, sum.Offset, plan.freshness)

	state := threshold.Evaluate(sum, plan.eval)
	return outcome{
		State:   state,
		Message: composeMessage(sum, plan),
		Perf:    perfValues(sum),
		Summary: sum,
	}
}

// missingOutcome applies the missing-file override policy.
func (p *runPlan) missingOutcome(defaultMsg string) outcome {
	state := check.StateCritical
	if p.missingSet {
		state = p.missingState
	}
	msg := defaultMsg
	if p.missingMessage != "" {
		msg = p.missingMessage
	}
	return outcome{State: state, Message: msg}
}

// composeMessage builds the single human-readable part of the status line.
func composeMessage(sum *scan.Summary, plan *runPlan) string {
	name := filepath.Base(sum.File)

	if plan.eval.Heartbeat {
		return fmt.Sprintf("%d new lines in %s", sum.Lines, name)
	}

	var b strings.Builder
	if plan.eval.HasClassifier {
		fmt.Fprintf(&b, "%d of %d matches accepted in %s", sum.Accepted, sum.Matches, name)
	} else {
		fmt.Fprintf(&b, "%d matches in %s", sum.Matches, name)
	}
	if plan.eval.Warn.Value > 0 {
		fmt.Fprintf(&b, " (warn=%s", plan.eval.Warn)
		if plan.eval.Crit.Value > 0 {
			fmt.Fprintf(&b, " crit=%s", plan.eval.Crit)
		}
		b.WriteString(")")
	} else if plan.eval.Crit.Value > 0 {
		fmt.Fprintf(&b, " (crit=%s)", plan.eval.Crit)
	}

	if len(sum.Records) > 0 {
		b.WriteString(" - ")
		parts := make([]string, 0, len(sum.Records))
		for _, rec := range sum.Records {
			lines := make([]string, 0, len(rec.Before)+1+len(rec.After))
			lines = append(lines, rec.Before...)
			lines = append(lines, rec.Line)
			lines = append(lines, rec.After...)
			parts = append(parts, strings.Join(lines, " | "))
		}
		b.WriteString(strings.Join(parts, " / "))
	}
	return b.String()
}

// perfValues builds the machine-readable counters for the perfdata section.
func perfValues(sum *scan.Summary) map[string]float64 {
	perf := map[string]float64{
		"lines":    float64(sum.Lines),
		"matches":  float64(sum.Matches),
		"accepted": float64(sum.Accepted),
	}
	for k, v := range sum.Metrics {
		perf[k] = v
	}
	return perf
}

func runCheck(cmd *cobra.Command, args []string) error {
	c := nagiosplugin.NewCheck()
	defer c.Finish()

	spec, err := resolveSpec(cmd, args[0])
	if err != nil {
		c.AddResult(nagiosStatus(stateOf(err)), err.Error())
		return nil
	}
	plan, err := buildPlan(spec)
	if err != nil {
		c.AddResult(nagiosStatus(stateOf(err)), err.Error())
		return nil
	}

	out := executeCheck(cmd.Context(), plan)

	if out.Summary != nil {
		Debugf("scanned %s: %d lines, %d matches, offset %d",
			out.Summary.File, out.Summary.Lines, out.Summary.Matches, out.Summary.Offset)
		for _, fault := range out.Summary.Faults {
			Debugf("classifier fault: %s", fault)
		}
	}

	keys := make([]string, 0, len(out.Perf))
	for k := range out.Perf {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		c.AddPerfDatum(k, "", out.Perf[k])
	}

	c.AddResult(nagiosStatus(out.State), out.Message)
	return nil
}

// stateOf extracts the reporting state from an error, defaulting to UNKNOWN.
func stateOf(err error) check.State {
	var runErr *check.RunError
	if errors.As(err, &runErr) {
		return runErr.State
	}
	return check.StateUnknown
}

// nagiosStatus maps the internal state onto the reporter's taxonomy.
func nagiosStatus(s check.State) nagiosplugin.Status {
	switch s {
	case check.StateOK:
		return nagiosplugin.OK
	case check.StateWarning:
		return nagiosplugin.WARNING
	case check.StateCritical:
		return nagiosplugin.CRITICAL
	default:
		return nagiosplugin.UNKNOWN
	}
}
