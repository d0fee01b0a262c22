package cli

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"
)

// EnvConfig holds process-wide defaults read from the environment.
// Command-line flags take precedence over every field.
type EnvConfig struct {
	Database string `env:"ZEEMANHI_DB"`
	LogLevel string `env:"ZEEMANHI_LOG_LEVEL" envDefault:"info"`
	Workers  int    `env:"ZEEMANHI_WORKERS" envDefault:"4"`
}

// ParseEnv populates target from the process environment.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// LoadEnvConfig parses and checks EnvConfig.
func LoadEnvConfig() (EnvConfig, error) {
	var cfg EnvConfig
	if err := ParseEnv(&cfg); err != nil {
		return EnvConfig{}, err
	}
	if cfg.Workers < 1 {
		return EnvConfig{}, fmt.Errorf("ZEEMANHI_WORKERS must be at least 1, got %d", cfg.Workers)
	}
	if _, err := parseLevel(cfg.LogLevel); err != nil {
		return EnvConfig{}, err
	}
	return cfg, nil
}

// parseLevel accepts slog level names in any case ("debug", "WARN", "info+2").
func parseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(name))); err != nil {
		return 0, fmt.Errorf("invalid log level %q", name)
	}
	return level, nil
}

// configureLogging installs a text handler on w as the default logger.
// --verbose forces debug level.
func configureLogging(w io.Writer, opts *RootOptions) error {
	level := slog.LevelInfo
	if opts.Env.LogLevel != "" {
		l, err := parseLevel(opts.Env.LogLevel)
		if err != nil {
			return err
		}
		level = l
	}
	if opts.Verbose {
		level = slog.LevelDebug
	}

	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
	return nil
}

// databasePath resolves the database from the flag or ZEEMANHI_DB.
func databasePath(flag string, cfg EnvConfig) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if cfg.Database != "" {
		return cfg.Database, nil
	}
	return "", fmt.Errorf("--db or ZEEMANHI_DB is required")
}

// workerCount resolves the worker limit from the flag or ZEEMANHI_WORKERS.
func workerCount(flag int, cfg EnvConfig) int {
	if flag > 0 {
		return flag
	}
	return cfg.Workers
}
