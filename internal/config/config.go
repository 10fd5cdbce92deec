package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const defaultEventBuffer = 256

type Config struct {
	Exclude     []string `yaml:"exclude"`
	EventBuffer int      `yaml:"event_buffer"`
	OutputFile  string   `yaml:"output_file"`
	LogLevel    string   `yaml:"log_level"`
}

func DefaultConfig() *Config {
	return &Config{
		Exclude: []string{
			".git/",
			".svn/",
			".hg/",
			"node_modules/",
			"__pycache__/",
			".DS_Store",
			"Thumbs.db",
		},
		EventBuffer: defaultEventBuffer,
		LogLevel:    "info",
	}
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}

	// Initialize Exclude slice if nil (for empty configs)
	if cfg.Exclude == nil {
		cfg.Exclude = []string{}
	}
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = defaultEventBuffer
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if _, err := ParseLevel(cfg.LogLevel); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// ParseLevel maps a log_level value to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", s)
	}
}
