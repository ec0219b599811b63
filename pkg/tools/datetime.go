package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/harunnryd/tanya/pkg/configutil"
	"github.com/harunnryd/tanya/pkg/llm"
)

const ToolCurrentDateTime = "current_datetime"

const defaultDateTimeLayout = "Monday, 02 January 2006 15:04:05 MST"

type DateTimeSettings struct {
	Layout string `mapstructure:"layout"`
}

// DateTime reports the host's current local date and time.
type DateTime struct {
	layout string
	now    func() time.Time
}

func NewDateTime(settings map[string]any) (*DateTime, error) {
	if err := configutil.ValidateSettings(settings, configutil.Schema{
		Optional: []string{"layout"},
	}); err != nil {
		return nil, fmt.Errorf("current_datetime settings: %w", err)
	}
	var cfg DateTimeSettings
	if err := configutil.DecodeSettings(settings, &cfg); err != nil {
		return nil, fmt.Errorf("current_datetime settings: %w", err)
	}
	if strings.TrimSpace(cfg.Layout) == "" {
		cfg.Layout = defaultDateTimeLayout
	}
	return &DateTime{layout: cfg.Layout, now: time.Now}, nil
}

func (d *DateTime) Tool() llm.Tool {
	return llm.Tool{
		Name:        ToolCurrentDateTime,
		Description: "Get the current local date and time.",
		Schema: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
	}
}

func (d *DateTime) Handle(_ context.Context, _ map[string]any) (string, error) {
	if d.now == nil {
		return "", ToolExecutionError{Tool: ToolCurrentDateTime, Detail: "clock source unavailable"}
	}
	return d.now().Format(d.layout), nil
}
