package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/ryogok/computer-use-model/internal/agent"
	"github.com/ryogok/computer-use-model/internal/agent/providers"
	"github.com/ryogok/computer-use-model/internal/computer"
	"github.com/ryogok/computer-use-model/internal/config"
	"github.com/ryogok/computer-use-model/internal/observability"
)

// runOptions holds the run command's flag values. Only flags the user
// actually set are layered over the file configuration.
type runOptions struct {
	configPath string
	flags      config.Config
}

func buildRunCmd() *cobra.Command {
	return newRunCmd(&runOptions{})
}

func newRunCmd(opts *runOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a task (default command)",
		Long: `Start a task and drive the model until you stop it.

Each response is printed as it arrives: "Action:" carries the model's
reasoning summary and "Agent:" its message. Unless --autoplay is set every
computer action waits for Enter, and pending safety checks are shown before
they are acknowledged.`,
		Example: `  cua run --instructions "Search the web for the weather in Seattle"
  cua run --backend browser --start-url https://bing.com --autoplay
  cua run --config cua.yaml --log-level debug`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, opts)
			if err != nil {
				return err
			}
			return runTask(cmd.Context(), cfg, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.configPath, "config", "c", os.Getenv("CUA_CONFIG"), "Path to YAML or JSON5 configuration file")
	f.StringVarP(&opts.flags.Agent.Instructions, "instructions", "i", "", "Initial task; prompts when empty")
	f.BoolVar(&opts.flags.Agent.Autoplay, "autoplay", false, "Run computer actions without confirmation")
	f.IntVar(&opts.flags.Agent.MaxAttempts, "max-attempts", agent.DefaultMaxAttempts, "Attempts per turn when rate limited")
	f.StringVar(&opts.flags.Agent.ReasoningSummary, "reasoning-summary", "concise", "Reasoning summary verbosity (concise, detailed, auto)")

	f.StringVarP(&opts.flags.LLM.Model, "model", "m", "computer-use-preview", "Model or Azure deployment name")
	f.StringVar(&opts.flags.LLM.Endpoint, "endpoint", providers.EndpointOpenAI, "Endpoint: openai or azure")
	f.StringVar(&opts.flags.LLM.BaseURL, "base-url", "", "Override the OpenAI API base URL")
	f.StringVar(&opts.flags.LLM.AzureEndpoint, "azure-endpoint", "", "Azure OpenAI resource endpoint")
	f.StringVar(&opts.flags.LLM.APIVersion, "api-version", providers.DefaultAzureAPIVersion, "Azure OpenAI API version")

	f.StringVar(&opts.flags.Computer.Backend, "backend", config.BackendLocal, "Computer backend: local or browser")
	f.StringVar(&opts.flags.Computer.Environment, "environment", "", "Environment reported to the model (default: backend's own)")
	f.StringVar(&opts.flags.Computer.Display, "display", "", "X display for the local backend (default: $DISPLAY)")
	f.IntVar(&opts.flags.Computer.CanvasWidth, "canvas-width", 0, "Fixed canvas width (default: derived from the screen)")
	f.IntVar(&opts.flags.Computer.CanvasHeight, "canvas-height", 0, "Fixed canvas height (default: derived from the screen)")
	f.StringVar(&opts.flags.Computer.BrowserDebugURL, "browser-debug-url", "", "DevTools URL of a running Chrome (default: launch one)")
	f.StringVar(&opts.flags.Computer.StartURL, "start-url", "", "Page the browser backend opens first")
	f.BoolVar(&opts.flags.Computer.Headless, "headless", false, "Launch Chrome headless")

	f.StringVar(&opts.flags.Logging.Level, "log-level", "info", "Log level (debug, info, warn, error)")
	f.StringVar(&opts.flags.Logging.Format, "log-format", "text", "Log format (text, json)")
	f.StringVar(&opts.flags.Observability.MetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	f.StringVar(&opts.flags.Observability.Tracing.Endpoint, "otlp-endpoint", "", "Export traces to this OTLP gRPC endpoint")

	return cmd
}

// resolveConfig layers file values, flag overrides and environment
// credentials, then validates the result.
func resolveConfig(cmd *cobra.Command, opts *runOptions) (*config.Config, error) {
	cfg := config.Default()
	if opts.configPath != "" {
		loaded, err := config.Read(opts.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	applyFlagOverrides(cmd, cfg, opts.flags)
	config.ApplyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runTask(ctx context.Context, cfg *config.Config, stdin io.Reader, stdout io.Writer) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := observability.NewLogger(observability.LogConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	ctx = observability.AddSessionID(ctx, uuid.NewString())

	prompt := newPrompter(stdin, stdout)
	instructions := cfg.Agent.Instructions
	if instructions == "" {
		var err error
		instructions, err = prompt.instructions()
		if err != nil {
			return err
		}
	}

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)
	if addr := cfg.Observability.MetricsAddr; addr != "" {
		shutdown, err := serveMetrics(addr, registry, logger)
		if err != nil {
			return err
		}
		defer shutdown()
	}

	tracer, shutdownTracer := observability.NewTracer(traceConfig(cfg))
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracer(shutdownCtx); err != nil {
			logger.Warn(ctx, "tracer shutdown failed", "error", err)
		}
	}()

	backend, closeBackend, err := openBackend(ctx, cfg.Computer)
	if err != nil {
		return err
	}
	defer closeBackend()

	var canvas *computer.Size
	if cfg.Computer.CanvasWidth > 0 {
		canvas = &computer.Size{Width: cfg.Computer.CanvasWidth, Height: cfg.Computer.CanvasHeight}
	}
	scaler, err := computer.NewScaler(ctx, backend, canvas)
	if err != nil {
		return fmt.Errorf("set up canvas: %w", err)
	}
	if canvas != nil {
		// A fixed canvas skips the probing capture; record the screen frame
		// so the model's first click can be translated.
		if _, err := scaler.Screenshot(ctx); err != nil {
			return fmt.Errorf("capture initial screenshot: %w", err)
		}
	}
	logger.Info(ctx, "computer ready",
		"backend", cfg.Computer.Backend,
		"environment", scaler.Environment(),
		"canvas", scaler.Dimensions().String())

	provider, err := providers.NewOpenAIProvider(providers.OpenAIConfig{
		Endpoint:      cfg.LLM.Endpoint,
		APIKey:        cfg.LLM.APIKey,
		BaseURL:       cfg.LLM.BaseURL,
		AzureEndpoint: cfg.LLM.AzureEndpoint,
		APIVersion:    cfg.LLM.APIVersion,
	})
	if err != nil {
		return err
	}

	a, err := agent.New(provider, cfg.LLM.Model, scaler,
		agent.WithLogger(logger.WithFields("component", "agent")),
		agent.WithMetrics(metrics),
		agent.WithTracer(tracer),
		agent.WithReasoningSummary(cfg.Agent.ReasoningSummary),
		agent.WithRetryConfig(agent.RetryConfig{
			MaxAttempts:  cfg.Agent.MaxAttempts,
			DefaultDelay: cfg.Agent.DefaultRetryDelay,
		}),
	)
	if err != nil {
		return err
	}

	err = drive(ctx, a, prompt, instructions, cfg.Agent.Autoplay)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	if err != nil {
		logger.Error(ctx, "task failed", failureAttrs(err)...)
	}
	return err
}

// failureAttrs describes a failed turn. Service failures carry the request id
// needed to correlate them with the remote side.
func failureAttrs(err error) []any {
	attrs := []any{"error", err}
	if pe, ok := providers.GetProviderError(err); ok {
		attrs = append(attrs, "reason", string(pe.Reason), "status", pe.Status, "request_id", pe.RequestID)
	}
	return attrs
}

// openBackend connects the configured backend. The returned close func is
// always safe to call.
func openBackend(ctx context.Context, cfg config.ComputerConfig) (computer.Computer, func(), error) {
	switch cfg.Backend {
	case config.BackendBrowser:
		b, err := computer.NewBrowserComputer(ctx, computer.BrowserConfig{
			DebugURL: cfg.BrowserDebugURL,
			StartURL: cfg.StartURL,
			Width:    cfg.ViewportWidth,
			Height:   cfg.ViewportHeight,
			Headless: cfg.Headless,
		})
		if err != nil {
			return nil, func() {}, err
		}
		return b, b.Close, nil
	default:
		l, err := computer.NewLocalComputer(ctx, computer.LocalConfig{
			Display:     cfg.Display,
			Environment: cfg.Environment,
		})
		if err != nil {
			return nil, func() {}, err
		}
		return l, func() {}, nil
	}
}

func traceConfig(cfg *config.Config) observability.TraceConfig {
	tc := cfg.Observability.Tracing
	out := observability.TraceConfig{
		ServiceName:    tc.ServiceName,
		ServiceVersion: tc.ServiceVersion,
		Environment:    tc.Environment,
		SamplingRate:   tc.SamplingRate,
		Attributes:     tc.Attributes,
		EnableInsecure: tc.Insecure,
	}
	if out.ServiceVersion == "" {
		out.ServiceVersion = version
	}
	if tc.Enabled || tc.Endpoint != "" {
		out.Endpoint = tc.Endpoint
	}
	return out
}

// serveMetrics exposes /metrics on addr until the returned func is called.
func serveMetrics(addr string, g prometheus.Gatherer, logger *observability.Logger) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listener: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler(g))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(context.Background(), "metrics server stopped", "error", err)
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}
