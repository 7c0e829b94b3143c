package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Config captures environment driven configuration values for the recurrence daemon.
type Config struct {
	SQLiteDSN      string
	CronSpec       string
	MaxOccurrences int
	Location       *time.Location
	RunTimeout     time.Duration
	// MetricsPort is the /metrics listener port; 0 disables the endpoint.
	MetricsPort int
	LogLevel    slog.Level
}

// Load parses configuration values from the current process environment.
//
// The loader applies defaults for every field and reports all malformed
// entries at once with a localized message.
func Load() (Config, error) {
	cfg := Config{
		SQLiteDSN:      "recurrence.db",
		CronSpec:       "@hourly",
		MaxOccurrences: 20,
		Location:       time.Local,
		RunTimeout:     2 * time.Minute,
		MetricsPort:    9090,
		LogLevel:       slog.LevelInfo,
	}

	invalid := make([]string, 0, 2)

	if dsn := strings.TrimSpace(os.Getenv("RECURRENCE_SQLITE_DSN")); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	if spec := strings.TrimSpace(os.Getenv("RECURRENCE_CRON_SPEC")); spec != "" {
		if _, err := cron.ParseStandard(spec); err != nil {
			invalid = append(invalid, "RECURRENCE_CRON_SPEC")
		} else {
			cfg.CronSpec = spec
		}
	}

	if value := strings.TrimSpace(os.Getenv("RECURRENCE_MAX_OCCURRENCES")); value != "" {
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			invalid = append(invalid, "RECURRENCE_MAX_OCCURRENCES")
		} else {
			cfg.MaxOccurrences = n
		}
	}

	if name := strings.TrimSpace(os.Getenv("RECURRENCE_TIMEZONE")); name != "" {
		loc, err := time.LoadLocation(name)
		if err != nil {
			invalid = append(invalid, "RECURRENCE_TIMEZONE")
		} else {
			cfg.Location = loc
		}
	}

	if value := strings.TrimSpace(os.Getenv("RECURRENCE_RUN_TIMEOUT")); value != "" {
		timeout, err := time.ParseDuration(value)
		if err != nil || timeout <= 0 {
			invalid = append(invalid, "RECURRENCE_RUN_TIMEOUT")
		} else {
			cfg.RunTimeout = timeout
		}
	}

	if value := strings.TrimSpace(os.Getenv("RECURRENCE_METRICS_PORT")); value != "" {
		port, err := strconv.Atoi(value)
		if err != nil || port < 0 || port > 65535 {
			invalid = append(invalid, "RECURRENCE_METRICS_PORT")
		} else {
			cfg.MetricsPort = port
		}
	}

	if value := strings.TrimSpace(os.Getenv("RECURRENCE_LOG_LEVEL")); value != "" {
		var level slog.Level
		if err := level.UnmarshalText([]byte(value)); err != nil {
			invalid = append(invalid, "RECURRENCE_LOG_LEVEL")
		} else {
			cfg.LogLevel = level
		}
	}

	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("環境変数の値が不正です: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}
