// Command tanya sends one prompt to a local inference server and, when
// tools are enabled, keeps the exchange going until the model answers
// without requesting another tool call.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/pflag"

	"github.com/harunnryd/tanya/pkg/chat"
	"github.com/harunnryd/tanya/pkg/llm"
	"github.com/harunnryd/tanya/pkg/logging"
	"github.com/harunnryd/tanya/pkg/runner"
	"github.com/harunnryd/tanya/pkg/tanya"
)

func main() {
	var (
		prompt         = pflag.StringP("prompt", "p", "", "prompt to send (required)")
		model          = pflag.StringP("model", "m", "", "model id (default from config, or the provider default)")
		toolNames      = pflag.StringP("tools", "t", "", "comma-separated tool names to advertise (none when absent)")
		configPath     = pflag.String("config", "", "optional config file")
		logLevel       = pflag.String("log-level", "", "debug, info, warn, or error")
		logFormat      = pflag.String("log-format", "", "text or json")
		maxTurns       = pflag.Int("max-turns", -1, "abort after this many endpoint calls (0 = unbounded)")
		showTranscript = pflag.Bool("transcript", false, "print the full transcript after the answer")
		noBanner       = pflag.Bool("no-banner", false, "suppress the startup banner")
	)
	pflag.Parse()

	if strings.TrimSpace(*prompt) == "" {
		fmt.Fprintln(os.Stderr, "error: -p/--prompt is required")
		pflag.Usage()
		os.Exit(2)
	}

	cfg, err := tanya.LoadConfig(*configPath)
	if err != nil {
		fail(err)
	}
	applyFlags(&cfg, *model, *toolNames, *logLevel, *logFormat, *maxTurns)

	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if !*noBanner {
		runner.PrintBanner(os.Stderr)
	}

	app, err := tanya.NewApp(cfg, tanya.AppOptions{})
	if err != nil {
		fail(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lr := runner.NewLifecycleRunner(app, runner.Hooks{}, 10*time.Second)
	err = lr.Run(ctx, func(ctx context.Context) error {
		result, err := app.Run(ctx, *prompt)
		if err != nil {
			return err
		}
		printResult(result, *showTranscript)
		return nil
	})
	if err != nil {
		fail(err)
	}
}

// applyFlags folds CLI overrides into the loaded config. Flags win over
// the config file; a flag left at its default leaves the file value be.
func applyFlags(cfg *tanya.Config, model, toolNames, logLevel, logFormat string, maxTurns int) {
	if strings.TrimSpace(model) != "" {
		if cfg.LLM.Settings == nil {
			cfg.LLM.Settings = map[string]any{}
		}
		cfg.LLM.Settings["model"] = model
	}
	if pflag.CommandLine.Changed("tools") {
		cfg.Tools.Enabled = splitToolNames(toolNames)
	}
	if strings.TrimSpace(logLevel) != "" {
		cfg.LogLevel = logLevel
	}
	if strings.TrimSpace(logFormat) != "" {
		cfg.LogFormat = logFormat
	}
	if maxTurns >= 0 {
		cfg.Chat.MaxTurns = maxTurns
	}
}

func splitToolNames(raw string) []string {
	var out []string
	for _, name := range strings.Split(raw, ",") {
		name = strings.TrimSpace(name)
		if name != "" {
			out = append(out, name)
		}
	}
	return out
}

func printResult(result chat.Result, withTranscript bool) {
	if withTranscript {
		printTranscript(result.Transcript)
		fmt.Println()
	}
	color.New(color.FgCyan, color.Bold).Println(result.Answer)
}

func printTranscript(messages []llm.Message) {
	roleColors := map[llm.Role]*color.Color{
		llm.RoleSystem:    color.New(color.FgMagenta),
		llm.RoleUser:      color.New(color.FgGreen),
		llm.RoleAssistant: color.New(color.FgCyan),
		llm.RoleTool:      color.New(color.FgYellow),
	}
	for _, msg := range messages {
		c := roleColors[msg.Role]
		if c == nil {
			c = color.New(color.Reset)
		}
		c.Printf("[%s] ", msg.Role)
		if msg.Content != "" {
			fmt.Println(msg.Content)
		} else {
			fmt.Println()
		}
		for _, call := range msg.ToolCalls {
			color.New(color.FgYellow).Printf("  -> tool call: %s %v\n", call.Name, call.Arguments)
		}
	}
}

func fail(err error) {
	if errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, "interrupted")
		os.Exit(130)
	}
	color.New(color.FgRed).Fprintln(os.Stderr, "error: "+err.Error())
	os.Exit(1)
}
