package app

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	APIURL         string `yaml:"api_url"`
	Token          string `yaml:"token"`
	PollIntervalMS int    `yaml:"poll_interval_ms"`
	PageSize       int    `yaml:"page_size"`
	Theme          string `yaml:"theme"`
	DownloadDir    string `yaml:"download_dir"`
	StateDir       string `yaml:"state_dir"`
}

func DefaultConfig() Config {
	return Config{
		APIURL:         "https://api.taskpilot.dev",
		PollIntervalMS: 1000,
		PageSize:       12,
		Theme:          "dark",
	}
}

// LoadConfig reads the YAML config at path, layering env vars on top.
// A missing file is not an error; defaults apply. A .env file in the
// working directory is honored before the environment is read.
func LoadConfig(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return cfg, err
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}

	if v := strings.TrimSpace(os.Getenv("TASKPILOT_API_URL")); v != "" {
		cfg.APIURL = v
	}
	if v := strings.TrimSpace(os.Getenv("TASKPILOT_TOKEN")); v != "" {
		cfg.Token = v
	}
	if v := strings.TrimSpace(os.Getenv("TASKPILOT_THEME")); v != "" {
		cfg.Theme = v
	}

	if cfg.APIURL == "" {
		cfg.APIURL = DefaultConfig().APIURL
	}
	if cfg.PollIntervalMS <= 0 {
		cfg.PollIntervalMS = 1000
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 12
	}
	if cfg.Theme == "" {
		cfg.Theme = "dark"
	}
	if cfg.StateDir == "" {
		cfg.StateDir = DefaultStateDir()
	}
	if cfg.DownloadDir == "" {
		cfg.DownloadDir = filepath.Join(cfg.StateDir, "downloads")
	}
	return cfg, nil
}

func SaveConfig(cfg Config, path string) error {
	if path == "" {
		return errors.New("no path provided for config")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func DefaultConfigPath() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(base, "taskpilot", "config.yml")
}

// DefaultStateDir is where the local cache, logs and downloads live.
func DefaultStateDir() string {
	if base := strings.TrimSpace(os.Getenv("XDG_DATA_HOME")); base != "" {
		return filepath.Join(base, "taskpilot")
	}
	if base, err := os.UserHomeDir(); err == nil && base != "" {
		return filepath.Join(base, ".local", "share", "taskpilot")
	}
	return filepath.Join(os.TempDir(), "taskpilot")
}

// PollInterval returns the polling cadence as a duration.
func (c Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}
