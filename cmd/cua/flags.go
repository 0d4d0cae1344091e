package main

import (
	"github.com/spf13/cobra"

	"github.com/ryogok/computer-use-model/internal/config"
)

// applyFlagOverrides copies every flag the user set onto base.
func applyFlagOverrides(cmd *cobra.Command, base *config.Config, flags config.Config) {
	if flagChanged(cmd, "instructions") {
		base.Agent.Instructions = flags.Agent.Instructions
	}
	if flagChanged(cmd, "autoplay") {
		base.Agent.Autoplay = flags.Agent.Autoplay
	}
	if flagChanged(cmd, "max-attempts") {
		base.Agent.MaxAttempts = flags.Agent.MaxAttempts
	}
	if flagChanged(cmd, "reasoning-summary") {
		base.Agent.ReasoningSummary = flags.Agent.ReasoningSummary
	}

	if flagChanged(cmd, "model") {
		base.LLM.Model = flags.LLM.Model
	}
	if flagChanged(cmd, "endpoint") {
		base.LLM.Endpoint = flags.LLM.Endpoint
	}
	if flagChanged(cmd, "base-url") {
		base.LLM.BaseURL = flags.LLM.BaseURL
	}
	if flagChanged(cmd, "azure-endpoint") {
		base.LLM.AzureEndpoint = flags.LLM.AzureEndpoint
	}
	if flagChanged(cmd, "api-version") {
		base.LLM.APIVersion = flags.LLM.APIVersion
	}

	if flagChanged(cmd, "backend") {
		base.Computer.Backend = flags.Computer.Backend
	}
	if flagChanged(cmd, "environment") {
		base.Computer.Environment = flags.Computer.Environment
	}
	if flagChanged(cmd, "display") {
		base.Computer.Display = flags.Computer.Display
	}
	if flagChanged(cmd, "canvas-width") {
		base.Computer.CanvasWidth = flags.Computer.CanvasWidth
	}
	if flagChanged(cmd, "canvas-height") {
		base.Computer.CanvasHeight = flags.Computer.CanvasHeight
	}
	if flagChanged(cmd, "browser-debug-url") {
		base.Computer.BrowserDebugURL = flags.Computer.BrowserDebugURL
	}
	if flagChanged(cmd, "start-url") {
		base.Computer.StartURL = flags.Computer.StartURL
	}
	if flagChanged(cmd, "headless") {
		base.Computer.Headless = flags.Computer.Headless
	}

	if flagChanged(cmd, "log-level") {
		base.Logging.Level = flags.Logging.Level
	}
	if flagChanged(cmd, "log-format") {
		base.Logging.Format = flags.Logging.Format
	}
	if flagChanged(cmd, "metrics-addr") {
		base.Observability.MetricsAddr = flags.Observability.MetricsAddr
	}
	if flagChanged(cmd, "otlp-endpoint") {
		base.Observability.Tracing.Endpoint = flags.Observability.Tracing.Endpoint
		base.Observability.Tracing.Enabled = flags.Observability.Tracing.Endpoint != ""
	}
}

func flagChanged(cmd *cobra.Command, name string) bool {
	if f := cmd.Flags().Lookup(name); f != nil {
		return f.Changed
	}
	if f := cmd.InheritedFlags().Lookup(name); f != nil {
		return f.Changed
	}
	return false
}
