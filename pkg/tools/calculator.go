package tools

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/harunnryd/tanya/pkg/configutil"
	"github.com/harunnryd/tanya/pkg/llm"
)

const ToolCalculator = "calculator"

// exprForbidden lists the characters refused in an expression before
// any process is spawned. The evaluator is fed through stdin without a
// shell, so command separators and expansions never get a chance to
// mean anything.
const exprForbidden = ";|&$`><\"'\\\n\r"

type CalculatorSettings struct {
	Binary string `mapstructure:"binary"`
}

// Calculator evaluates arithmetic expressions with an external
// evaluator, bc by default.
type Calculator struct {
	binary string
	eval   func(ctx context.Context, binary, expr string) (stdout, stderr string, err error)
}

func NewCalculator(settings map[string]any) (*Calculator, error) {
	if err := configutil.ValidateSettings(settings, configutil.Schema{
		Optional: []string{"binary"},
	}); err != nil {
		return nil, fmt.Errorf("calculator settings: %w", err)
	}
	var cfg CalculatorSettings
	if err := configutil.DecodeSettings(settings, &cfg); err != nil {
		return nil, fmt.Errorf("calculator settings: %w", err)
	}
	if strings.TrimSpace(cfg.Binary) == "" {
		cfg.Binary = "bc"
	}
	return &Calculator{binary: cfg.Binary, eval: runEvaluator}, nil
}

func (c *Calculator) Tool() llm.Tool {
	return llm.Tool{
		Name:        ToolCalculator,
		Description: "Evaluate an arithmetic expression and return the numeric result.",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"expression": map[string]any{"type": "string"},
			},
			"required": []string{"expression"},
		},
	}
}

func (c *Calculator) Handle(ctx context.Context, args map[string]any) (string, error) {
	expr, err := requiredString(args, "expression")
	if err != nil {
		return "", ToolExecutionError{Tool: ToolCalculator, Detail: err.Error()}
	}
	if idx := strings.IndexAny(expr, exprForbidden); idx >= 0 {
		return "", ToolExecutionError{
			Tool:   ToolCalculator,
			Detail: fmt.Sprintf("expression contains forbidden character %q", string(expr[idx])),
		}
	}
	stdout, stderr, err := c.eval(ctx, c.binary, expr)
	if err != nil {
		detail := strings.TrimSpace(stderr)
		if detail == "" {
			detail = err.Error()
		}
		return "", ToolExecutionError{Tool: ToolCalculator, Detail: detail, Err: err}
	}
	// bc reports syntax errors on stderr while still exiting zero.
	if diag := strings.TrimSpace(stderr); diag != "" {
		return "", ToolExecutionError{Tool: ToolCalculator, Detail: diag}
	}
	return strings.TrimSpace(stdout), nil
}

func runEvaluator(ctx context.Context, binary, expr string) (string, string, error) {
	cmd := exec.CommandContext(ctx, binary, "-l")
	cmd.Stdin = strings.NewReader(expr + "\n")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

func requiredString(args map[string]any, key string) (string, error) {
	v, ok := args[key]
	if !ok {
		return "", fmt.Errorf("missing %s", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("invalid %s", key)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("missing %s", key)
	}
	return s, nil
}
