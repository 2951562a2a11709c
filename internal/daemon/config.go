// Package daemon wires configuration, storage, the ledger service, the
// settlement cron and the HTTP API into a running process.
package daemon

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/smartsaver/smartsaver/internal/app/ledger"
	"github.com/smartsaver/smartsaver/internal/infra/sqlite"
)

// Config is the on-disk configuration (~/.smartsaver/config.toml).
type Config struct {
	API        APIConfig        `toml:"api"`
	Storage    StorageConfig    `toml:"storage"`
	Settlement SettlementConfig `toml:"settlement"`
	Display    DisplayConfig    `toml:"display"`
	Log        LogConfig        `toml:"log"`
}

// APIConfig configures the HTTP server.
type APIConfig struct {
	Host               string `toml:"host"`
	Port               int    `toml:"port"`
	AdminRatePerMinute int    `toml:"admin_rate_per_minute"`
	Metrics            bool   `toml:"metrics"`
}

// StorageConfig locates the ledger database.
type StorageConfig struct {
	Path string `toml:"path"` // empty = <home>/ledger.db
}

// SettlementConfig controls when weekly settlement fires.
type SettlementConfig struct {
	Weekday   string `toml:"weekday"`
	Timezone  string `toml:"timezone"`
	CheckSpec string `toml:"check_spec"` // cron spec for the due check
}

// DisplayConfig controls how amounts are printed.
type DisplayConfig struct {
	Currency string `toml:"currency"`
}

// LogConfig configures logrus.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // text or json
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() Config {
	return Config{
		API: APIConfig{
			Host:               "127.0.0.1",
			Port:               8090,
			AdminRatePerMinute: 10,
			Metrics:            true,
		},
		Settlement: SettlementConfig{
			Weekday:   "sunday",
			Timezone:  "Local",
			CheckSpec: "@every 5m",
		},
		Display: DisplayConfig{Currency: "CNY"},
		Log:     LogConfig{Level: "info", Format: "text"},
	}
}

// Home returns the data directory: $SMARTSAVER_HOME or ~/.smartsaver.
func Home() string {
	if h := os.Getenv("SMARTSAVER_HOME"); h != "" {
		return h
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".smartsaver"
	}
	return filepath.Join(home, ".smartsaver")
}

// LoadConfig reads <home>/.env and <home>/config.toml over the defaults.
// Both files are optional. Environment overrides win over the file.
func LoadConfig(home string) (Config, error) {
	cfg := DefaultConfig()

	if err := godotenv.Load(filepath.Join(home, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("load .env: %w", err)
	}

	path := filepath.Join(home, "config.toml")
	if _, err := toml.DecodeFile(path, &cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}

	if v := os.Getenv("SMARTSAVER_API_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("SMARTSAVER_API_PORT=%q: %w", v, err)
		}
		cfg.API.Port = port
	}
	if v := os.Getenv("SMARTSAVER_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}

	return cfg, cfg.Validate()
}

// WriteDefault writes the default config file unless one already exists.
func WriteDefault(home string) (string, error) {
	path := filepath.Join(home, "config.toml")
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}
	if err := os.MkdirAll(home, 0o700); err != nil {
		return "", fmt.Errorf("create home: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return path, toml.NewEncoder(f).Encode(DefaultConfig())
}

// Validate checks every field that would otherwise fail at startup.
func (c Config) Validate() error {
	if c.API.Port <= 0 || c.API.Port > 65535 {
		return fmt.Errorf("api.port %d out of range", c.API.Port)
	}
	if _, err := c.Calendar(); err != nil {
		return err
	}
	if _, err := cron.ParseStandard(c.Settlement.CheckSpec); err != nil {
		return fmt.Errorf("settlement.check_spec %q: %w", c.Settlement.CheckSpec, err)
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format %q: want text or json", c.Log.Format)
	}
	return nil
}

// Addr returns the listen address.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.API.Host, c.API.Port)
}

// DBPath resolves the database file.
func (c Config) DBPath(home string) string {
	switch c.Storage.Path {
	case "":
		return filepath.Join(home, "ledger.db")
	case sqlite.MemoryPath:
		return sqlite.MemoryPath
	}
	if strings.HasPrefix(c.Storage.Path, "~/") {
		if h, err := os.UserHomeDir(); err == nil {
			return filepath.Join(h, c.Storage.Path[2:])
		}
	}
	return c.Storage.Path
}

// Location returns the settlement timezone.
func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Settlement.Timezone)
	if err != nil {
		return nil, fmt.Errorf("settlement.timezone: %w", err)
	}
	return loc, nil
}

// Calendar builds the settlement calendar.
func (c Config) Calendar() (*ledger.WeekdayCalendar, error) {
	day, err := ledger.ParseWeekday(c.Settlement.Weekday)
	if err != nil {
		return nil, fmt.Errorf("settlement.weekday: %w", err)
	}
	loc, err := c.Location()
	if err != nil {
		return nil, err
	}
	return ledger.NewWeekdayCalendar(day, loc), nil
}

// Logger builds a logrus logger from the log section.
func (c Config) Logger() (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("log.level: %w", err)
	}
	l := logrus.New()
	l.SetLevel(level)
	if c.Log.Format == "json" {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return l, nil
}
