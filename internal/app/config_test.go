package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("TASKPILOT_API_URL", "")
	t.Setenv("TASKPILOT_TOKEN", "")
	t.Setenv("TASKPILOT_THEME", "")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yml"))
	if err != nil {
		t.Fatalf("missing config file must not error: %v", err)
	}
	if cfg.APIURL == "" {
		t.Fatalf("default api url missing")
	}
	if cfg.PollInterval() != time.Second {
		t.Fatalf("poll interval = %v, want 1s", cfg.PollInterval())
	}
	if cfg.PageSize != 12 || cfg.Theme != "dark" {
		t.Fatalf("defaults = %+v", cfg)
	}
	if cfg.DownloadDir == "" || cfg.StateDir == "" {
		t.Fatalf("derived dirs missing: %+v", cfg)
	}
}

func TestLoadConfigReadsYAML(t *testing.T) {
	t.Setenv("TASKPILOT_API_URL", "")
	t.Setenv("TASKPILOT_TOKEN", "")
	t.Setenv("TASKPILOT_THEME", "")

	path := filepath.Join(t.TempDir(), "config.yml")
	content := "api_url: https://backend.example\npoll_interval_ms: 250\npage_size: 5\ntheme: light\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIURL != "https://backend.example" {
		t.Fatalf("api url = %q", cfg.APIURL)
	}
	if cfg.PollIntervalMS != 250 || cfg.PageSize != 5 || cfg.Theme != "light" {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte("api_url: https://from-file\ntheme: light\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("TASKPILOT_API_URL", "https://from-env")
	t.Setenv("TASKPILOT_TOKEN", "env-token")
	t.Setenv("TASKPILOT_THEME", "")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIURL != "https://from-env" {
		t.Fatalf("env must win over file, got %q", cfg.APIURL)
	}
	if cfg.Token != "env-token" {
		t.Fatalf("token = %q", cfg.Token)
	}
	if cfg.Theme != "light" {
		t.Fatalf("unset env var must not clobber file value, got %q", cfg.Theme)
	}
}

func TestSaveConfigRoundTrip(t *testing.T) {
	t.Setenv("TASKPILOT_API_URL", "")
	t.Setenv("TASKPILOT_TOKEN", "")
	t.Setenv("TASKPILOT_THEME", "")

	path := filepath.Join(t.TempDir(), "nested", "config.yml")
	want := DefaultConfig()
	want.APIURL = "https://saved.example"
	want.PageSize = 7

	if err := SaveConfig(want, path); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.APIURL != want.APIURL || got.PageSize != want.PageSize {
		t.Fatalf("round trip: %+v", got)
	}
}
