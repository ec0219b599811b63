package tanya

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/harunnryd/tanya/pkg/chat"
	"github.com/harunnryd/tanya/pkg/configutil"
	"github.com/harunnryd/tanya/pkg/errorsx"
	"github.com/harunnryd/tanya/pkg/llm"
	"github.com/harunnryd/tanya/pkg/logging"
	"github.com/harunnryd/tanya/pkg/metrics"
	"github.com/harunnryd/tanya/pkg/observers"
	"github.com/harunnryd/tanya/pkg/providers/ollama"
	"github.com/harunnryd/tanya/pkg/redact"
	"github.com/harunnryd/tanya/pkg/tools"
)

// App wires a chat adapter, a tool registry, and the observability
// stack into a ready-to-run conversation loop.
type App struct {
	cfg      Config
	adapter  llm.ChatAdapter
	loop     *chat.Loop
	asyncObs *metrics.AsyncObserver
	traceObs *observers.TraceObserver
	usageObs *observers.UsageObserver
	log      *slog.Logger
}

// AppOptions customize assembly. The zero value gives the built-in
// providers and the built-in tool registry.
type AppOptions struct {
	Providers *ProviderRegistry
	Registry  *tools.Registry
	Listeners []chat.StateListener
	// ExtraObservers receive every trace event alongside the built-in
	// observers, for callers that want their own sink.
	ExtraObservers []metrics.Observer
	InitLog        bool // install the process-wide logger from config
}

func NewApp(cfg Config, opts AppOptions) (*App, error) {
	if opts.InitLog {
		logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	}
	redact.SetEnabled(cfg.Privacy.RedactPII)
	log := logging.NewComponentLogger(slog.Default(), "app")

	log.Info("tanya_init",
		"llm_provider", cfg.LLM.Provider,
		"tools_enabled", strings.Join(cfg.Tools.Enabled, ","),
	)

	latencyObs := observers.NewLatencyObserver(slog.Default())
	var logObs metrics.Observer = observers.NewLoggerObserver(slog.Default())
	if rate := cfg.Observability.LogSampleRate; rate < 1 {
		logObs = metrics.NewSamplingObserver(logObs, rate)
	}
	obsList := []metrics.Observer{latencyObs, logObs}
	obsList = append(obsList, opts.ExtraObservers...)
	var traceObs *observers.TraceObserver
	var usageObs *observers.UsageObserver
	if dir := strings.TrimSpace(cfg.Observability.ArtifactsDir); dir != "" {
		if cfg.Observability.RetentionDays > 0 {
			if n, err := observers.PurgeArtifacts(dir, time.Duration(cfg.Observability.RetentionDays)*24*time.Hour); err != nil {
				log.Warn("artifact_purge_failed", "dir", dir, "error", err)
			} else if n > 0 {
				log.Info("artifacts_purged", "dir", dir, "removed", n)
			}
		}
		traceObs = observers.NewTraceObserver(dir)
		usageObs = observers.NewUsageObserver(dir)
		obsList = append(obsList, traceObs, usageObs)
	}
	asyncObs := metrics.NewAsyncObserver(observers.NewMultiObserver(obsList...), 2048)

	providers := opts.Providers
	if providers == nil {
		providers = DefaultProviderRegistry()
	}
	adapter, err := providers.BuildLLM(cfg.LLM.Provider, cfg)
	if err != nil {
		asyncObs.Close()
		return nil, err
	}

	registry := opts.Registry
	if registry == nil {
		registry, err = tools.NewDefault(cfg.Tools.Settings)
		if err != nil {
			asyncObs.Close()
			return nil, errorsx.Wrap(err, errorsx.ReasonConfigLoad)
		}
	}
	selected, err := registry.Descriptors(cfg.Tools.Enabled)
	if err != nil {
		asyncObs.Close()
		return nil, errorsx.Wrap(err, errorsx.ReasonToolSelect)
	}
	executor := tools.NewExecutor(registry, asyncObs, tools.ExecutorOptions{
		Timeout:      time.Duration(cfg.Tools.TimeoutMS) * time.Millisecond,
		Retries:      cfg.Tools.Retries,
		RetryBackoff: time.Duration(cfg.Tools.RetryBackoffMS) * time.Millisecond,
	})

	loop := chat.NewLoop(adapter, executor, asyncObs, chat.Options{
		Model:      modelName(cfg),
		Tools:      selected,
		BasePrompt: cfg.Chat.BasePrompt,
		MaxTurns:   cfg.Chat.MaxTurns,
		Listeners:  opts.Listeners,
	})

	return &App{
		cfg:      cfg,
		adapter:  adapter,
		loop:     loop,
		asyncObs: asyncObs,
		traceObs: traceObs,
		usageObs: usageObs,
		log:      log,
	}, nil
}

// Run drives one conversation to completion.
func (a *App) Run(ctx context.Context, prompt string) (chat.Result, error) {
	return a.loop.Run(ctx, prompt)
}

func (a *App) Config() Config { return a.cfg }

// Drain flushes buffered trace events and writes the per-run artifact
// files. Safe to call once the last Run has returned.
func (a *App) Drain() error {
	a.asyncObs.Close()
	var err error
	if a.traceObs != nil {
		err = errors.Join(err, a.traceObs.Close())
	}
	if a.usageObs != nil {
		err = errors.Join(err, a.usageObs.Close())
	}
	if dropped := a.asyncObs.Dropped(); dropped > 0 {
		a.log.Warn("trace_events_dropped", "count", dropped)
	}
	return err
}

// modelName resolves the model id recorded on trace events from the
// provider settings, falling back to the provider's own default.
func modelName(cfg Config) string {
	var settings struct {
		Model string `mapstructure:"model"`
	}
	if err := configutil.DecodeSettings(cfg.LLM.Settings, &settings); err == nil && strings.TrimSpace(settings.Model) != "" {
		return settings.Model
	}
	if strings.EqualFold(strings.TrimSpace(cfg.LLM.Provider), "ollama") {
		return ollama.DefaultModel
	}
	return ""
}
