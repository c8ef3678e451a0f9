package pattern

import (
	"errors"
	"strings"
	"testing"
)

func newPipeline(t *testing.T, patterns, whitelist []string, mode Mode) *Pipeline {
	t.Helper()
	match, err := Compile(patterns, mode, false)
	if err != nil {
		t.Fatal(err)
	}
	wl, err := Compile(whitelist, ModeOr, false)
	if err != nil {
		t.Fatal(err)
	}
	return &Pipeline{Match: match, Whitelist: wl}
}

func TestPipelineBasicMatch(t *testing.T) {
	p := newPipeline(t, []string{"ERROR"}, nil, ModeOr)

	v := p.Classify("[ERROR] disk full", &LineContext{Ordinal: 1})
	if !v.Matched || !v.Counted {
		t.Errorf("verdict = %+v, want matched and counted", v)
	}
	if v.Display != "[ERROR] disk full" {
		t.Errorf("Display = %q, want raw line", v.Display)
	}

	if v := p.Classify("[INFO] ok", &LineContext{Ordinal: 2}); v.Matched {
		t.Errorf("non-matching line classified as match: %+v", v)
	}
}

func TestWhitelistPrecedence(t *testing.T) {
	p := newPipeline(t, []string{"ERROR"}, []string{"deprecated"}, ModeOr)
	// A classifier that would count everything must not see excluded lines.
	p.Classifier = FuncClassifier(func(string, *LineContext) (Result, error) {
		return Result{Count: 5}, nil
	})

	v := p.Classify("[ERROR] deprecated API call", &LineContext{})
	if v.Matched || v.Counted {
		t.Errorf("whitelisted line counted: %+v", v)
	}
}

func TestClassifierZeroExcludesFromCount(t *testing.T) {
	p := newPipeline(t, []string{"ERROR"}, nil, ModeOr)
	p.Classifier = FuncClassifier(func(line string, _ *LineContext) (Result, error) {
		if strings.Contains(line, "retryable") {
			return Result{Count: 0}, nil
		}
		return Result{Count: 1}, nil
	})

	v := p.Classify("[ERROR] retryable timeout", &LineContext{})
	if !v.Matched {
		t.Error("line should still be a raw match")
	}
	if v.Counted {
		t.Error("classifier result 0 must exclude line from the counted total")
	}
}

func TestClassifierOverrideAndEscalation(t *testing.T) {
	p := newPipeline(t, []string{"ERROR"}, nil, ModeOr)
	p.Classifier = FuncClassifier(func(string, *LineContext) (Result, error) {
		return Result{Count: 2, Override: "disk exhaustion detected"}, nil
	})

	v := p.Classify("[ERROR] disk full", &LineContext{})
	if !v.Counted || !v.Escalate {
		t.Errorf("verdict = %+v, want counted with escalation", v)
	}
	if v.Display != "disk exhaustion detected" {
		t.Errorf("Display = %q, want override text", v.Display)
	}
}

func TestClassifierFaultIsNonFatal(t *testing.T) {
	p := newPipeline(t, []string{"ERROR"}, nil, ModeOr)
	boom := errors.New("boom")
	p.Classifier = FuncClassifier(func(string, *LineContext) (Result, error) {
		return Result{}, boom
	})

	v := p.Classify("[ERROR] anything", &LineContext{})
	if !v.Matched {
		t.Error("faulting classifier must not hide the raw match")
	}
	if v.Counted {
		t.Error("faulting classifier must be treated as result 0")
	}
	if !errors.Is(v.Fault, boom) {
		t.Errorf("Fault = %v, want recorded classifier error", v.Fault)
	}
}

func TestExprClassifier(t *testing.T) {
	tests := []struct {
		name       string
		spec       string
		line       string
		wantCount  bool
		wantEscal  bool
		wantErrNew bool
	}{
		{name: "bool true", spec: `expr:line contains "disk"`, line: "[ERROR] disk full", wantCount: true},
		{name: "bool false", spec: `expr:line contains "disk"`, line: "[ERROR] net down", wantCount: false},
		{name: "int escalation", spec: `expr:line contains "full" ? 2 : 1`, line: "[ERROR] disk full", wantCount: true, wantEscal: true},
		{name: "bare program", spec: `line contains "disk"`, line: "[ERROR] disk full", wantCount: true},
		{name: "compile error", spec: `expr:line contains`, wantErrNew: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewClassifier(tt.spec)
			if tt.wantErrNew {
				if err == nil {
					t.Fatal("NewClassifier accepted invalid program")
				}
				return
			}
			if err != nil {
				t.Fatalf("NewClassifier(%q): %v", tt.spec, err)
			}
			result, err := c.Classify(tt.line, &LineContext{Ordinal: 1, Matches: 1})
			if err != nil {
				t.Fatalf("Classify: %v", err)
			}
			if (result.Count > 0) != tt.wantCount {
				t.Errorf("Count = %d, want counted=%v", result.Count, tt.wantCount)
			}
			if (result.Count > 1) != tt.wantEscal {
				t.Errorf("Count = %d, want escalation=%v", result.Count, tt.wantEscal)
			}
		})
	}
}

func TestExprClassifierCounters(t *testing.T) {
	c, err := NewClassifier(`expr:matches > 3 ? 1 : 0`)
	if err != nil {
		t.Fatal(err)
	}
	r, err := c.Classify("x", &LineContext{Matches: 2})
	if err != nil || r.Count != 0 {
		t.Errorf("Classify(matches=2) = %+v, %v; want count 0", r, err)
	}
	r, err = c.Classify("x", &LineContext{Matches: 4})
	if err != nil || r.Count != 1 {
		t.Errorf("Classify(matches=4) = %+v, %v; want count 1", r, err)
	}
}

func TestNewClassifierRegistry(t *testing.T) {
	c, err := NewClassifier("count")
	if err != nil {
		t.Fatalf("NewClassifier(count): %v", err)
	}
	r, err := c.Classify("anything", &LineContext{})
	if err != nil || r.Count != 1 {
		t.Errorf("count classifier = %+v, %v; want count 1", r, err)
	}

	names := RegisteredClassifiers()
	want := map[string]bool{"count": false, "expr": false, "exprfile": false}
	for _, n := range names {
		if _, ok := want[n]; ok {
			want[n] = true
		}
	}
	for n, seen := range want {
		if !seen {
			t.Errorf("classifier %q not registered (got %v)", n, names)
		}
	}
}
