package check

import (
	"errors"
	"testing"
)

func TestStateString(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateOK, "OK"},
		{StateWarning, "WARNING"},
		{StateCritical, "CRITICAL"},
		{StateUnknown, "UNKNOWN"},
		{State(42), "UNKNOWN"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}

func TestExitCodes(t *testing.T) {
	// The supervisor contract: OK=0 WARNING=1 CRITICAL=2 UNKNOWN=3.
	if StateOK.ExitCode() != 0 || StateWarning.ExitCode() != 1 ||
		StateCritical.ExitCode() != 2 || StateUnknown.ExitCode() != 3 {
		t.Errorf("exit codes = %d/%d/%d/%d, want 0/1/2/3",
			StateOK.ExitCode(), StateWarning.ExitCode(),
			StateCritical.ExitCode(), StateUnknown.ExitCode())
	}
}

func TestParseState(t *testing.T) {
	tests := []struct {
		input   string
		want    State
		wantErr bool
	}{
		{"ok", StateOK, false},
		{"OK", StateOK, false},
		{"warning", StateWarning, false},
		{"warn", StateWarning, false},
		{"critical", StateCritical, false},
		{"crit", StateCritical, false},
		{"unknown", StateUnknown, false},
		{" Critical ", StateCritical, false},
		{"fatal", StateUnknown, true},
		{"", StateUnknown, true},
	}
	for _, tt := range tests {
		got, err := ParseState(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseState(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if err == nil && got != tt.want {
			t.Errorf("ParseState(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestRunErrorAsError(t *testing.T) {
	var err error = IOErrorf("read %s: %v", "app.log", "permission denied")

	var runErr *RunError
	if !errors.As(err, &runErr) {
		t.Fatalf("errors.As failed for RunError")
	}
	if runErr.State != StateCritical || runErr.Reason != ReasonIO {
		t.Errorf("IOErrorf state/reason = %v/%v, want CRITICAL/ReasonIO", runErr.State, runErr.Reason)
	}

	if got := ConfigErrorf("bad threshold").State; got != StateUnknown {
		t.Errorf("ConfigErrorf state = %v, want UNKNOWN", got)
	}
	if got := MissingFile("/var/log/app.log").State; got != StateCritical {
		t.Errorf("MissingFile state = %v, want CRITICAL", got)
	}
	if got := Timeout("30s").State; got != StateUnknown {
		t.Errorf("Timeout state = %v, want UNKNOWN", got)
	}
}
