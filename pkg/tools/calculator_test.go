package tools

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"
)

func TestCalculatorEvaluatesWithBC(t *testing.T) {
	if _, err := exec.LookPath("bc"); err != nil {
		t.Skip("bc not installed")
	}
	calc, err := NewCalculator(nil)
	if err != nil {
		t.Fatalf("build calculator: %v", err)
	}
	out, err := calc.Handle(context.Background(), map[string]any{"expression": "2+2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "4" {
		t.Fatalf("expected 4, got %q", out)
	}

	again, err := calc.Handle(context.Background(), map[string]any{"expression": "2+2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if again != out {
		t.Fatalf("expected identical results, got %q then %q", out, again)
	}
}

func TestCalculatorRejectsShellMetacharacters(t *testing.T) {
	calc, err := NewCalculator(nil)
	if err != nil {
		t.Fatalf("build calculator: %v", err)
	}
	evalCalls := 0
	calc.eval = func(context.Context, string, string) (string, string, error) {
		evalCalls++
		return "", "", nil
	}
	for _, expr := range []string{
		"1; rm -rf /",
		"2+2 | cat /etc/passwd",
		"$(reboot)",
		"`uptime`",
		"3 > 2",
	} {
		_, err := calc.Handle(context.Background(), map[string]any{"expression": expr})
		if err == nil {
			t.Fatalf("expected rejection for %q", expr)
		}
		if !IsToolExecution(err) {
			t.Fatalf("expected execution error for %q, got %v", expr, err)
		}
	}
	if evalCalls != 0 {
		t.Fatalf("evaluator ran %d times for rejected input", evalCalls)
	}
}

func TestCalculatorStderrBecomesDiagnostic(t *testing.T) {
	calc, err := NewCalculator(nil)
	if err != nil {
		t.Fatalf("build calculator: %v", err)
	}
	calc.eval = func(context.Context, string, string) (string, string, error) {
		return "", "(standard_in) 1: syntax error\n", nil
	}
	_, err = calc.Handle(context.Background(), map[string]any{"expression": "2+"})
	if err == nil {
		t.Fatal("expected error")
	}
	var execErr ToolExecutionError
	if !errors.As(err, &execErr) {
		t.Fatalf("expected ToolExecutionError, got %v", err)
	}
	if !strings.Contains(execErr.Detail, "syntax error") {
		t.Fatalf("diagnostic lost: %q", execErr.Detail)
	}
}

func TestCalculatorTrimsEvaluatorOutput(t *testing.T) {
	calc, err := NewCalculator(map[string]any{"binary": "bc"})
	if err != nil {
		t.Fatalf("build calculator: %v", err)
	}
	calc.eval = func(_ context.Context, binary, expr string) (string, string, error) {
		if binary != "bc" {
			t.Fatalf("unexpected binary %q", binary)
		}
		if expr != "120/4" {
			t.Fatalf("unexpected expression %q", expr)
		}
		return "30\n", "", nil
	}
	out, err := calc.Handle(context.Background(), map[string]any{"expression": " 120/4 "})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "30" {
		t.Fatalf("expected trimmed output, got %q", out)
	}
}

func TestCalculatorMissingExpression(t *testing.T) {
	calc, err := NewCalculator(nil)
	if err != nil {
		t.Fatalf("build calculator: %v", err)
	}
	for _, args := range []map[string]any{nil, {}, {"expression": 7}, {"expression": "   "}} {
		_, err := calc.Handle(context.Background(), args)
		if !IsToolExecution(err) {
			t.Fatalf("args %v: expected execution error, got %v", args, err)
		}
	}
}
