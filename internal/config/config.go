// Package config loads the cua configuration file.
//
// Files are YAML, or JSON5 when the extension is .json or .json5. Environment
// variables are expanded before parsing and a top-level $include (a path or a
// list of paths, relative to the including file) is merged underneath the
// including file. Unknown fields are rejected.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// Config is the complete cua configuration.
type Config struct {
	Version       int                 `yaml:"version"`
	LLM           LLMConfig           `yaml:"llm"`
	Computer      ComputerConfig      `yaml:"computer"`
	Agent         AgentConfig         `yaml:"agent"`
	Logging       LoggingConfig       `yaml:"logging"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// LLMConfig selects the remote completion service.
type LLMConfig struct {
	// Endpoint is "openai" or "azure".
	Endpoint string `yaml:"endpoint"`

	// Model is the model (or Azure deployment) name.
	Model string `yaml:"model"`

	// APIKey falls back to OPENAI_API_KEY or AZURE_OPENAI_API_KEY. Azure
	// without a key authenticates with the default Azure credential chain.
	APIKey string `yaml:"api_key"`

	BaseURL       string `yaml:"base_url"`
	AzureEndpoint string `yaml:"azure_endpoint"`
	APIVersion    string `yaml:"api_version"`
}

// Computer backends.
const (
	BackendLocal   = "local"
	BackendBrowser = "browser"
)

// ComputerConfig selects and configures the computer backend.
type ComputerConfig struct {
	// Backend is "local" (xdotool on an X display) or "browser" (Chrome DevTools).
	Backend string `yaml:"backend"`

	// Environment overrides the environment reported to the model.
	Environment string `yaml:"environment"`

	// Display is the X display for the local backend; empty uses $DISPLAY.
	Display string `yaml:"display"`

	// CanvasWidth and CanvasHeight fix the model's canvas. Zero derives it
	// from the first screenshot.
	CanvasWidth  int `yaml:"canvas_width"`
	CanvasHeight int `yaml:"canvas_height"`

	// Browser backend settings.
	BrowserDebugURL string `yaml:"browser_debug_url"`
	StartURL        string `yaml:"start_url"`
	ViewportWidth   int    `yaml:"viewport_width"`
	ViewportHeight  int    `yaml:"viewport_height"`
	Headless        bool   `yaml:"headless"`
}

// AgentConfig controls the agent loop.
type AgentConfig struct {
	// Instructions is the initial task; empty prompts for it.
	Instructions string `yaml:"instructions"`

	// Autoplay runs computer actions without asking for confirmation.
	Autoplay bool `yaml:"autoplay"`

	// MaxAttempts bounds rate limited requests per turn.
	MaxAttempts int `yaml:"max_attempts"`

	// DefaultRetryDelay is used when a rate limit error names no wait.
	DefaultRetryDelay time.Duration `yaml:"default_retry_delay"`

	// ReasoningSummary is the verbosity requested on continuation turns.
	ReasoningSummary string `yaml:"reasoning_summary"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ObservabilityConfig configures metrics and tracing.
type ObservabilityConfig struct {
	// MetricsAddr serves /metrics when set, e.g. ":9090".
	MetricsAddr string        `yaml:"metrics_addr"`
	Tracing     TracingConfig `yaml:"tracing"`
}

// TracingConfig controls OpenTelemetry tracing.
type TracingConfig struct {
	Enabled        bool              `yaml:"enabled"`
	Endpoint       string            `yaml:"endpoint"`
	ServiceName    string            `yaml:"service_name"`
	ServiceVersion string            `yaml:"service_version"`
	Environment    string            `yaml:"environment"`
	SamplingRate   float64           `yaml:"sampling_rate"`
	Insecure       bool              `yaml:"insecure"`
	Attributes     map[string]string `yaml:"attributes"`
}

// Default returns the built-in configuration without environment overrides.
func Default() *Config {
	cfg := &Config{Version: CurrentVersion}
	applyDefaults(cfg)
	return cfg
}

// Load reads, merges and validates the configuration file at path.
func Load(path string) (*Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return nil, err
	}
	ApplyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read reads and merges the configuration file at path and fills defaults.
// It neither consults the environment nor validates, so callers can layer
// overrides first.
func Read(path string) (*Config, error) {
	raw, err := LoadRaw(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err := decodeRawConfig(raw)
	if err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	return cfg, nil
}

// ApplyEnv fills credentials left empty in the file from the environment.
func ApplyEnv(cfg *Config) {
	if cfg.LLM.Endpoint == "azure" {
		if cfg.LLM.APIKey == "" {
			cfg.LLM.APIKey = os.Getenv("AZURE_OPENAI_API_KEY")
		}
		if cfg.LLM.AzureEndpoint == "" {
			cfg.LLM.AzureEndpoint = os.Getenv("AZURE_OPENAI_ENDPOINT")
		}
		return
	}
	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
	}
}

func applyDefaults(cfg *Config) {
	if cfg.LLM.Endpoint == "" {
		cfg.LLM.Endpoint = "openai"
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "computer-use-preview"
	}
	if cfg.LLM.Endpoint == "azure" && cfg.LLM.APIVersion == "" {
		cfg.LLM.APIVersion = "2025-03-01-preview"
	}
	if cfg.Computer.Backend == "" {
		cfg.Computer.Backend = BackendLocal
	}
	if cfg.Computer.ViewportWidth == 0 {
		cfg.Computer.ViewportWidth = 1024
	}
	if cfg.Computer.ViewportHeight == 0 {
		cfg.Computer.ViewportHeight = 768
	}
	if cfg.Agent.MaxAttempts == 0 {
		cfg.Agent.MaxAttempts = 10
	}
	if cfg.Agent.DefaultRetryDelay == 0 {
		cfg.Agent.DefaultRetryDelay = 10 * time.Second
	}
	if cfg.Agent.ReasoningSummary == "" {
		cfg.Agent.ReasoningSummary = "concise"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	if cfg.Observability.Tracing.ServiceName == "" {
		cfg.Observability.Tracing.ServiceName = "cua"
	}
	if cfg.Observability.Tracing.SamplingRate == 0 {
		cfg.Observability.Tracing.SamplingRate = 1.0
	}
}

// ValidationError lists every problem found in a configuration.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	return "invalid config: " + strings.Join(e.Issues, "; ")
}

// Validate reports configuration values that cannot work together.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if err := ValidateVersion(c.Version); err != nil {
		return err
	}

	var issues []string
	switch c.LLM.Endpoint {
	case "openai":
		if c.LLM.APIKey == "" {
			issues = append(issues, "llm.api_key is required for the openai endpoint (or set OPENAI_API_KEY)")
		}
	case "azure":
		if c.LLM.AzureEndpoint == "" {
			issues = append(issues, "llm.azure_endpoint is required for the azure endpoint (or set AZURE_OPENAI_ENDPOINT)")
		}
	default:
		issues = append(issues, fmt.Sprintf("llm.endpoint must be openai or azure, got %q", c.LLM.Endpoint))
	}
	if strings.TrimSpace(c.LLM.Model) == "" {
		issues = append(issues, "llm.model is required")
	}

	switch c.Computer.Backend {
	case BackendLocal, BackendBrowser:
	default:
		issues = append(issues, fmt.Sprintf("computer.backend must be local or browser, got %q", c.Computer.Backend))
	}
	if c.Computer.CanvasWidth < 0 || c.Computer.CanvasHeight < 0 {
		issues = append(issues, "computer.canvas_width and computer.canvas_height must not be negative")
	}
	if (c.Computer.CanvasWidth == 0) != (c.Computer.CanvasHeight == 0) {
		issues = append(issues, "computer.canvas_width and computer.canvas_height must be set together")
	}
	if c.Computer.ViewportWidth <= 0 || c.Computer.ViewportHeight <= 0 {
		issues = append(issues, "computer.viewport_width and computer.viewport_height must be positive")
	}

	if c.Agent.MaxAttempts < 1 {
		issues = append(issues, "agent.max_attempts must be at least 1")
	}
	if c.Agent.DefaultRetryDelay < 0 {
		issues = append(issues, "agent.default_retry_delay must not be negative")
	}

	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		issues = append(issues, fmt.Sprintf("logging.format must be text or json, got %q", c.Logging.Format))
	}

	if c.Observability.Tracing.Enabled && c.Observability.Tracing.Endpoint == "" {
		issues = append(issues, "observability.tracing.endpoint is required when tracing is enabled")
	}
	if rate := c.Observability.Tracing.SamplingRate; rate < 0 || rate > 1 {
		issues = append(issues, "observability.tracing.sampling_rate must be between 0 and 1")
	}

	if len(issues) > 0 {
		return &ValidationError{Issues: issues}
	}
	return nil
}
