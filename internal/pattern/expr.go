package pattern

import (
	"fmt"
	"os"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// exprClassifier evaluates a compiled expr program per matched line. This is
// the supported replacement for injecting interpreter code into the check:
// a sandboxed expression over the line and its counters instead of arbitrary
// code execution.
//
// The program sees:
//
//	line     string  the matched line (post-decoding)
//	ordinal  int     1-based line number within this run
//	matches  int     raw pattern matches so far, including this line
//	accepted int     classifier-accepted matches so far
//
// It returns either an int (the classifier result contract: 0 = don't
// count, 1 = count, >1 = count and request escalation), a bool (true = 1),
// or a map with "count" and optional "override" / "metrics" keys.
type exprClassifier struct {
	src     string
	program *vm.Program
}

func newExprClassifier(src string) (Classifier, error) {
	program, err := expr.Compile(src, expr.Env(exprEnv("", nil)), expr.AllowUndefinedVariables())
	if err != nil {
		return nil, fmt.Errorf("invalid classifier expression: %w", err)
	}
	return &exprClassifier{src: src, program: program}, nil
}

// newExprFileClassifier loads the program source from a file.
func newExprFileClassifier(path string) (Classifier, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading classifier file: %w", err)
	}
	return newExprClassifier(string(src))
}

func exprEnv(line string, ctx *LineContext) map[string]interface{} {
	env := map[string]interface{}{
		"line":     line,
		"ordinal":  0,
		"matches":  0,
		"accepted": 0,
	}
	if ctx != nil {
		env["ordinal"] = int(ctx.Ordinal)
		env["matches"] = int(ctx.Matches)
		env["accepted"] = int(ctx.Accepted)
	}
	return env
}

func (c *exprClassifier) Classify(line string, ctx *LineContext) (Result, error) {
	out, err := expr.Run(c.program, exprEnv(line, ctx))
	if err != nil {
		return Result{}, fmt.Errorf("classifier %q: %w", c.src, err)
	}
	return coerceResult(out)
}

// coerceResult maps a program's return value onto the Result contract.
func coerceResult(out interface{}) (Result, error) {
	switch v := out.(type) {
	case bool:
		if v {
			return Result{Count: 1}, nil
		}
		return Result{Count: 0}, nil
	case int:
		return Result{Count: v}, nil
	case int64:
		return Result{Count: int(v)}, nil
	case float64:
		return Result{Count: int(v)}, nil
	case map[string]interface{}:
		r := Result{}
		if count, ok := v["count"]; ok {
			cr, err := coerceResult(count)
			if err != nil {
				return Result{}, err
			}
			r.Count = cr.Count
		}
		if override, ok := v["override"].(string); ok {
			r.Override = override
		}
		if metrics, ok := v["metrics"].(map[string]interface{}); ok {
			r.Metrics = make(map[string]float64, len(metrics))
			for k, mv := range metrics {
				switch n := mv.(type) {
				case int:
					r.Metrics[k] = float64(n)
				case int64:
					r.Metrics[k] = float64(n)
				case float64:
					r.Metrics[k] = n
				}
			}
		}
		return r, nil
	case nil:
		return Result{Count: 0}, nil
	}
	return Result{}, fmt.Errorf("classifier returned %T, want int, bool, or map", out)
}

func init() {
	RegisterClassifier("expr", func(arg string) (Classifier, error) {
		return newExprClassifier(arg)
	})
	RegisterClassifier("exprfile", func(arg string) (Classifier, error) {
		return newExprFileClassifier(arg)
	})
}
