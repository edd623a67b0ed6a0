package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadValid(t *testing.T) {
	path := writeConfig(t, `
[project]
include_tests = true
concurrency = 4
max_file_kb = 512

[summarize]
provider = "openai"
endpoint = "http://localhost:11434"
model = "qwen2.5-coder"
temperature = 0.2
timeout_seconds = 30
max_workers = 5

[context]
token_budget = 2000

[cache]
path = "/tmp/cache.db"
ttl_hours = 48
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.Project.IncludeTests || cfg.Project.Concurrency != 4 {
		t.Errorf("project = %+v", cfg.Project)
	}
	if cfg.Project.MaxFileBytesOrDefault() != 512*1024 {
		t.Errorf("max file bytes = %d", cfg.Project.MaxFileBytesOrDefault())
	}
	if cfg.Summarize.Model != "qwen2.5-coder" || cfg.Summarize.WorkersOrDefault() != 5 {
		t.Errorf("summarize = %+v", cfg.Summarize)
	}
	if cfg.Context.BudgetOrDefault() != 2000 {
		t.Errorf("budget = %d", cfg.Context.BudgetOrDefault())
	}
	if cfg.Cache.CacheTTLOrDefault() != 48 {
		t.Errorf("ttl = %d", cfg.Cache.CacheTTLOrDefault())
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Fatal("missing file should fail")
	}
	if _, err := Load(""); err == nil {
		t.Fatal("empty path should fail")
	}
}

func TestValidateOpenAIRequiresEndpointAndModel(t *testing.T) {
	path := writeConfig(t, `
[summarize]
provider = "openai"
`)
	_, err := Load(path)
	if err == nil {
		t.Fatal("openai without endpoint/model should fail")
	}
	msg := err.Error()
	if !strings.Contains(msg, "summarize.endpoint") || !strings.Contains(msg, "summarize.model") {
		t.Errorf("error should name both missing fields: %v", err)
	}
}

func TestValidateBadEndpoint(t *testing.T) {
	path := writeConfig(t, `
[summarize]
provider = "openai"
endpoint = "not a url"
model = "m"
`)
	if _, err := Load(path); err == nil {
		t.Fatal("bad endpoint should fail validation")
	}
}

func TestValidateTemperatureRange(t *testing.T) {
	path := writeConfig(t, `
[summarize]
provider = "mock"
temperature = 3.5
`)
	if _, err := Load(path); err == nil {
		t.Fatal("temperature out of range should fail")
	}
}

func TestMockProviderNeedsNoEndpoint(t *testing.T) {
	path := writeConfig(t, `
[summarize]
provider = "mock"
`)
	if _, err := Load(path); err != nil {
		t.Fatalf("mock provider should validate without endpoint: %v", err)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("CODETREE_SUMMARIZE_ENDPOINT", "http://override:9999")
	t.Setenv("CODETREE_TOKEN_BUDGET", "777")

	path := writeConfig(t, `
[summarize]
provider = "openai"
endpoint = "http://original:1111"
model = "m"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Summarize.Endpoint != "http://override:9999" {
		t.Errorf("endpoint override lost: %q", cfg.Summarize.Endpoint)
	}
	if cfg.Context.TokenBudget != 777 {
		t.Errorf("budget override lost: %d", cfg.Context.TokenBudget)
	}
}

func TestDefaults(t *testing.T) {
	cfg := Default()
	if cfg.Summarize.ProviderOrDefault() != "mock" {
		t.Errorf("default provider = %q", cfg.Summarize.ProviderOrDefault())
	}
	if cfg.Context.BudgetOrDefault() != 1200 {
		t.Errorf("default budget = %d", cfg.Context.BudgetOrDefault())
	}
	if cfg.Summarize.TimeoutOrDefault() != 60 {
		t.Errorf("default timeout = %d", cfg.Summarize.TimeoutOrDefault())
	}
	if cfg.UI.SyntaxThemeOrDefault() != "vulcan" {
		t.Errorf("default theme = %q", cfg.UI.SyntaxThemeOrDefault())
	}
}
