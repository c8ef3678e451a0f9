package scan

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mireault/checklog/internal/check"
	"github.com/mireault/checklog/internal/pattern"
)

func writeLog(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func appendLog(t *testing.T, path, content string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if _, err := f.WriteString(content); err != nil {
		t.Fatal(err)
	}
}

func errorPipeline(t *testing.T) *pattern.Pipeline {
	t.Helper()
	match, err := pattern.Compile([]string{"ERROR"}, pattern.ModeOr, false)
	if err != nil {
		t.Fatal(err)
	}
	return &pattern.Pipeline{Match: match}
}

func run(t *testing.T, path string, offset int64, p *pattern.Pipeline, opts Options) *Summary {
	t.Helper()
	sum, err := Run(context.Background(), path, offset, p, opts)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return sum
}

func TestBasicScan(t *testing.T) {
	path := writeLog(t, t.TempDir(), "app.log", "[INFO] ok\n[ERROR] disk full\n[INFO] ok\n")
	sum := run(t, path, 0, errorPipeline(t), Options{})

	if sum.Lines != 3 {
		t.Errorf("Lines = %d, want 3", sum.Lines)
	}
	if sum.Matches != 1 || sum.Accepted != 1 {
		t.Errorf("Matches/Accepted = %d/%d, want 1/1", sum.Matches, sum.Accepted)
	}
	if len(sum.Records) != 1 || sum.Records[0].Line != "[ERROR] disk full" {
		t.Errorf("Records = %+v, want the error line", sum.Records)
	}
	if info, _ := os.Stat(path); sum.Offset != info.Size() {
		t.Errorf("Offset = %d, want file size %d", sum.Offset, info.Size())
	}
}

func TestIdempotentEmptyDelta(t *testing.T) {
	path := writeLog(t, t.TempDir(), "app.log", "[ERROR] one\n[ERROR] two\n")

	first := run(t, path, 0, errorPipeline(t), Options{})
	second := run(t, path, first.Offset, errorPipeline(t), Options{})

	if second.Matches != 0 || second.Lines != 0 {
		t.Errorf("second run saw %d matches / %d lines, want 0/0", second.Matches, second.Lines)
	}
	if second.Offset != first.Offset {
		t.Errorf("second run offset %d, want unchanged %d", second.Offset, first.Offset)
	}
}

func TestResumeCorrectness(t *testing.T) {
	path := writeLog(t, t.TempDir(), "app.log", "[ERROR] old one\n[ERROR] old two\n")

	first := run(t, path, 0, errorPipeline(t), Options{})
	if first.Matches != 2 {
		t.Fatalf("first run matches = %d, want 2", first.Matches)
	}

	appendLog(t, path, "[INFO] filler\n[ERROR] new\n")
	second := run(t, path, first.Offset, errorPipeline(t), Options{})

	if second.Matches != 1 {
		t.Errorf("resumed run matches = %d, want 1", second.Matches)
	}
	if len(second.Records) != 1 || second.Records[0].Line != "[ERROR] new" {
		t.Errorf("resumed run records = %+v, want only the new error", second.Records)
	}
}

func TestRotationDetection(t *testing.T) {
	dir := t.TempDir()
	path := writeLog(t, dir, "app.log", "[ERROR] a\n[ERROR] b\n[ERROR] c\n")
	first := run(t, path, 0, errorPipeline(t), Options{})

	// Replace with a shorter file, simulating rotation.
	if err := os.WriteFile(path, []byte("[ERROR] fresh\n"), 0644); err != nil {
		t.Fatal(err)
	}
	second := run(t, path, first.Offset, errorPipeline(t), Options{})

	if second.Matches != 1 {
		t.Errorf("post-rotation matches = %d, want 1 (scan from offset 0)", second.Matches)
	}
}

func TestHeartbeatMode(t *testing.T) {
	path := writeLog(t, t.TempDir(), "app.log", "a\nb\nc\n")
	sum := run(t, path, 0, nil, Options{})

	if sum.Lines != 3 {
		t.Errorf("heartbeat Lines = %d, want 3", sum.Lines)
	}
	if sum.Matches != 0 || len(sum.Records) != 0 {
		t.Errorf("heartbeat classified lines: %+v", sum)
	}
}

func TestLimitPolicies(t *testing.T) {
	content := ""
	for i := 0; i < 10; i++ {
		content += "[ERROR] boom\n"
	}
	dir := t.TempDir()

	t.Run("last keeps one", func(t *testing.T) {
		path := writeLog(t, dir, "last.log", content)
		sum := run(t, path, 0, errorPipeline(t), Options{})
		if sum.Matches != 10 || len(sum.Records) != 1 {
			t.Errorf("Matches=%d Records=%d, want 10 matches and 1 record", sum.Matches, len(sum.Records))
		}
	})

	t.Run("all keeps everything", func(t *testing.T) {
		path := writeLog(t, dir, "all.log", content)
		sum := run(t, path, 0, errorPipeline(t), Options{Limits: Limits{Policy: LimitAll}})
		if len(sum.Records) != 10 {
			t.Errorf("Records = %d, want 10", len(sum.Records))
		}
	})

	t.Run("max stops classifying but consumes to EOF", func(t *testing.T) {
		path := writeLog(t, dir, "max.log", content)
		sum := run(t, path, 0, errorPipeline(t), Options{Limits: Limits{Policy: LimitMax, Max: 3}})
		if len(sum.Records) != 3 || sum.Matches != 3 {
			t.Errorf("Records=%d Matches=%d, want 3/3", len(sum.Records), sum.Matches)
		}
		if info, _ := os.Stat(path); sum.Offset != info.Size() {
			t.Errorf("Offset = %d, want EOF %d (max policy still consumes)", sum.Offset, info.Size())
		}
		if sum.Lines != 10 {
			t.Errorf("Lines = %d, want 10", sum.Lines)
		}
	})

	t.Run("first jumps offset to EOF", func(t *testing.T) {
		path := writeLog(t, dir, "first.log", content)
		sum := run(t, path, 0, errorPipeline(t), Options{Limits: Limits{Policy: LimitFirst, Max: 1}})
		if len(sum.Records) != 1 {
			t.Errorf("Records = %d, want 1", len(sum.Records))
		}
		if info, _ := os.Stat(path); sum.Offset != info.Size() {
			t.Errorf("Offset = %d, want EOF %d (first policy jumps)", sum.Offset, info.Size())
		}
		// A follow-up run must see nothing.
		again := run(t, path, sum.Offset, errorPipeline(t), Options{})
		if again.Matches != 0 {
			t.Errorf("run after EOF-jump saw %d matches, want 0", again.Matches)
		}
	})
}

func TestContextCapture(t *testing.T) {
	path := writeLog(t, t.TempDir(), "app.log", "one\ntwo\n[ERROR] boom\nfour\nfive\nsix\n")
	sum := run(t, path, 0, errorPipeline(t), Options{Before: 2, After: 2})

	if len(sum.Records) != 1 {
		t.Fatalf("Records = %d, want 1", len(sum.Records))
	}
	rec := sum.Records[0]
	if len(rec.Before) != 2 || rec.Before[0] != "one" || rec.Before[1] != "two" {
		t.Errorf("Before = %v, want [one two]", rec.Before)
	}
	if len(rec.After) != 2 || rec.After[0] != "four" || rec.After[1] != "five" {
		t.Errorf("After = %v, want [four five]", rec.After)
	}
	// Read-ahead must not disturb the line count or offset.
	if sum.Lines != 6 {
		t.Errorf("Lines = %d, want 6", sum.Lines)
	}
	if info, _ := os.Stat(path); sum.Offset != info.Size() {
		t.Errorf("Offset = %d, want file size %d", sum.Offset, info.Size())
	}
}

func TestForwardContextAtEOF(t *testing.T) {
	path := writeLog(t, t.TempDir(), "app.log", "[ERROR] boom\nonly one after\n")
	sum := run(t, path, 0, errorPipeline(t), Options{After: 5})

	if len(sum.Records) != 1 {
		t.Fatalf("Records = %d, want 1", len(sum.Records))
	}
	if got := sum.Records[0].After; len(got) != 1 || got[0] != "only one after" {
		t.Errorf("After = %v, want the single available line", got)
	}
}

func TestClassifierFaultRecorded(t *testing.T) {
	p := errorPipeline(t)
	p.Classifier = pattern.FuncClassifier(func(string, *pattern.LineContext) (pattern.Result, error) {
		return pattern.Result{}, errors.New("boom")
	})
	path := writeLog(t, t.TempDir(), "app.log", "[ERROR] x\n[ERROR] y\n")
	sum := run(t, path, 0, p, Options{})

	if sum.Matches != 2 || sum.Accepted != 0 {
		t.Errorf("Matches/Accepted = %d/%d, want 2/0", sum.Matches, sum.Accepted)
	}
	if len(sum.Faults) != 2 {
		t.Errorf("Faults = %v, want two diagnostics", sum.Faults)
	}
}

func TestUnterminatedLastLine(t *testing.T) {
	path := writeLog(t, t.TempDir(), "app.log", "[ERROR] complete\n[ERROR] no newline")
	sum := run(t, path, 0, errorPipeline(t), Options{})

	if sum.Matches != 2 {
		t.Errorf("Matches = %d, want 2 (unterminated line still scanned)", sum.Matches)
	}
	if info, _ := os.Stat(path); sum.Offset != info.Size() {
		t.Errorf("Offset = %d, want file size %d", sum.Offset, info.Size())
	}
}

func TestCRLFNormalization(t *testing.T) {
	path := writeLog(t, t.TempDir(), "app.log", "[ERROR] boom\r\n")

	p, err := pattern.Compile([]string{"boom$"}, pattern.ModeOr, false)
	if err != nil {
		t.Fatal(err)
	}
	pipe := &pattern.Pipeline{Match: p}

	raw := run(t, path, 0, pipe, Options{})
	if raw.Matches != 0 {
		t.Errorf("without normalization the CR should defeat the anchored match, got %d", raw.Matches)
	}

	norm := run(t, path, 0, pipe, Options{NormalizeCRLF: true})
	if norm.Matches != 1 {
		t.Errorf("with normalization Matches = %d, want 1", norm.Matches)
	}
}

func TestMissingFile(t *testing.T) {
	_, err := Run(context.Background(), filepath.Join(t.TempDir(), "absent.log"), 0, errorPipeline(t), Options{})
	var runErr *check.RunError
	if !errors.As(err, &runErr) || runErr.Reason != check.ReasonMissingFile {
		t.Errorf("Run(absent) error = %v, want missing-file RunError", err)
	}
}

func TestBadEncoding(t *testing.T) {
	path := writeLog(t, t.TempDir(), "app.log", "x\n")
	_, err := Run(context.Background(), path, 0, errorPipeline(t), Options{Encoding: "no-such-encoding"})
	var runErr *check.RunError
	if !errors.As(err, &runErr) || runErr.Reason != check.ReasonConfig {
		t.Errorf("Run(bad encoding) error = %v, want config RunError", err)
	}
}

func TestLatin1Decoding(t *testing.T) {
	dir := t.TempDir()
	// "fehlgeschlagen f\xfcr" is ISO-8859-1 for "für".
	path := writeLog(t, dir, "app.log", "[ERROR] Zugriff f\xfcr admin fehlgeschlagen\n")

	p, err := pattern.Compile([]string{"für"}, pattern.ModeOr, false)
	if err != nil {
		t.Fatal(err)
	}
	sum := run(t, path, 0, &pattern.Pipeline{Match: p}, Options{Encoding: "ISO-8859-1"})
	if sum.Matches != 1 {
		t.Errorf("latin-1 Matches = %d, want 1", sum.Matches)
	}
	if info, _ := os.Stat(path); sum.Offset != info.Size() {
		t.Errorf("Offset = %d, want raw size %d (offsets track raw bytes)", sum.Offset, info.Size())
	}
}

func TestTimeoutAborts(t *testing.T) {
	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	path := writeLog(t, t.TempDir(), "app.log", "x\n")
	_, err := Run(ctx, path, 0, errorPipeline(t), Options{})
	var runErr *check.RunError
	if !errors.As(err, &runErr) || runErr.Reason != check.ReasonTimeout {
		t.Errorf("Run(expired ctx) error = %v, want timeout RunError", err)
	}
}

func TestParseLimitPolicy(t *testing.T) {
	tests := []struct {
		input   string
		want    LimitPolicy
		wantErr bool
	}{
		{"", LimitLast, false},
		{"last", LimitLast, false},
		{"all", LimitAll, false},
		{"max", LimitMax, false},
		{"first", LimitFirst, false},
		{"FIRST", LimitFirst, false},
		{"everything", LimitLast, true},
	}
	for _, tt := range tests {
		got, err := ParseLimitPolicy(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLimitPolicy(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if err == nil && got != tt.want {
			t.Errorf("ParseLimitPolicy(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}
