package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	return writeNamed(t, t.TempDir(), "cua.yaml", content)
}

func writeNamed(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.LLM.Endpoint != "openai" || cfg.LLM.Model != "computer-use-preview" {
		t.Errorf("unexpected llm defaults %+v", cfg.LLM)
	}
	if cfg.Agent.MaxAttempts != 10 || cfg.Agent.DefaultRetryDelay != 10*time.Second {
		t.Errorf("unexpected agent defaults %+v", cfg.Agent)
	}
	if cfg.Computer.Backend != BackendLocal || cfg.Agent.ReasoningSummary != "concise" {
		t.Errorf("unexpected defaults %+v", cfg)
	}
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, `
llm:
  api_key: sk-test
  model: cua
computer:
  backend: browser
  canvas_width: 1280
  canvas_height: 800
agent:
  autoplay: true
  default_retry_delay: 3s
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LLM.Model != "cua" || cfg.Computer.Backend != BackendBrowser || !cfg.Agent.Autoplay {
		t.Errorf("unexpected config %+v", cfg)
	}
	if cfg.Agent.DefaultRetryDelay != 3*time.Second {
		t.Errorf("retry delay = %v", cfg.Agent.DefaultRetryDelay)
	}
	if cfg.Computer.CanvasWidth != 1280 || cfg.Computer.CanvasHeight != 800 {
		t.Errorf("canvas = %dx%d", cfg.Computer.CanvasWidth, cfg.Computer.CanvasHeight)
	}
}

func TestLoadJSON5WithInclude(t *testing.T) {
	dir := t.TempDir()
	writeNamed(t, dir, "base.yaml", `
llm:
  api_key: sk-base
  model: base-model
logging:
  level: debug
`)
	path := writeNamed(t, dir, "cua.json5", `{
  // comments are allowed
  "$include": "base.yaml",
  llm: {model: "override"},
}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LLM.Model != "override" {
		t.Errorf("including file must win, model = %q", cfg.LLM.Model)
	}
	if cfg.LLM.APIKey != "sk-base" || cfg.Logging.Level != "debug" {
		t.Errorf("included values lost: %+v", cfg)
	}
}

func TestLoadRawYAMLIncludeWithEnv(t *testing.T) {
	t.Setenv("include", "shadowed")
	t.Setenv("CUA_TEST_MODEL", "from-env")
	dir := t.TempDir()
	writeNamed(t, dir, "base.yaml", "llm:\n  model: ${CUA_TEST_MODEL}\n")
	path := writeNamed(t, dir, "cua.yaml", "$include: base.yaml\nlogging:\n  level: debug\n")

	raw, err := LoadRaw(path)
	if err != nil {
		t.Fatalf("LoadRaw: %v", err)
	}
	if _, ok := raw[includeKey]; ok {
		t.Errorf("include directive must not survive the merge: %v", raw)
	}
	llm, _ := raw["llm"].(map[string]any)
	if llm["model"] != "from-env" {
		t.Errorf("included values lost or unexpanded: %v", raw)
	}
	logging, _ := raw["logging"].(map[string]any)
	if logging["level"] != "debug" {
		t.Errorf("including file values lost: %v", raw)
	}
}

func TestLoadIncludeCycle(t *testing.T) {
	dir := t.TempDir()
	writeNamed(t, dir, "a.yaml", "$include: b.yaml\n")
	path := writeNamed(t, dir, "b.yaml", "$include: a.yaml\n")

	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "cycle") {
		t.Fatalf("expected include cycle error, got %v", err)
	}
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("CUA_TEST_KEY", "sk-from-env")
	path := writeConfig(t, `
llm:
  api_key: ${CUA_TEST_KEY}
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LLM.APIKey != "sk-from-env" {
		t.Errorf("api key = %q", cfg.LLM.APIKey)
	}
}

func TestLoadAzureFromEnv(t *testing.T) {
	t.Setenv("AZURE_OPENAI_ENDPOINT", "https://example.openai.azure.com")
	t.Setenv("AZURE_OPENAI_API_KEY", "")
	path := writeConfig(t, `
llm:
  endpoint: azure
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LLM.AzureEndpoint != "https://example.openai.azure.com" {
		t.Errorf("azure endpoint = %q", cfg.LLM.AzureEndpoint)
	}
	if cfg.LLM.APIVersion != "2025-03-01-preview" {
		t.Errorf("api version = %q", cfg.LLM.APIVersion)
	}
	if cfg.LLM.APIKey != "" {
		t.Error("azure without a key must stay keyless")
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	path := writeConfig(t, `
llm:
  api_key: sk-test
  temperature: 0.5
`)

	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for unknown field")
	}
}

func TestLoadValidation(t *testing.T) {
	path := writeConfig(t, `
llm:
  endpoint: bedrock
computer:
  backend: vnc
  canvas_width: 1024
agent:
  max_attempts: -1
logging:
  format: xml
`)

	_, err := Load(path)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	for _, want := range []string{"llm.endpoint", "computer.backend", "canvas_height", "agent.max_attempts", "logging.format"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected %s issue in %v", want, err)
		}
	}
}

func TestValidateVersionInFile(t *testing.T) {
	path := writeConfig(t, `
version: 99
llm:
  api_key: sk-test
`)

	var ve *VersionError
	if _, err := Load(path); !errors.As(err, &ve) {
		t.Fatalf("expected VersionError, got %v", err)
	}
}

func TestWriteRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cua.yaml")
	cfg := Default()
	cfg.LLM.APIKey = "sk-written"

	if err := Write(path, cfg, false); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := Write(path, cfg, false); err == nil {
		t.Error("expected error when the file exists")
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.LLM.APIKey != "sk-written" || loaded.Agent.DefaultRetryDelay != 10*time.Second {
		t.Errorf("round trip lost values: %+v", loaded)
	}
}

func TestJSONSchema(t *testing.T) {
	schema, err := JSONSchema()
	if err != nil {
		t.Fatalf("JSONSchema: %v", err)
	}
	for _, field := range []string{"llm", "computer", "default_retry_delay"} {
		if !strings.Contains(string(schema), field) {
			t.Errorf("schema missing %q", field)
		}
	}
}
