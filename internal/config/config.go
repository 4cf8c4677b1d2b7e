// Package config handles loading and validating the application configuration
// from YAML files with environment variable substitution.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/donaldgifford/film-deal-tracker/internal/salecal"
	"github.com/donaldgifford/film-deal-tracker/pkg/resolve"
	domain "github.com/donaldgifford/film-deal-tracker/pkg/types"
)

// Database drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// Config is the top-level application configuration.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Database      DatabaseConfig      `yaml:"database"`
	Search        SearchConfig        `yaml:"search"`
	Cache         CacheConfig         `yaml:"cache"`
	Sales         SalesConfig         `yaml:"sales"`
	Aliases       AliasesConfig       `yaml:"aliases"`
	Engine        EngineConfig        `yaml:"engine"`
	Schedule      ScheduleConfig      `yaml:"schedule"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Telemetry     TelemetryConfig     `yaml:"telemetry"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// ServerConfig defines the Echo HTTP server settings.
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// DatabaseConfig selects and configures the store.
type DatabaseConfig struct {
	Driver   string `yaml:"driver"` // postgres, sqlite, memory
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
	PoolSize int    `yaml:"pool_size"`
	Path     string `yaml:"path"` // sqlite file
}

// DSN returns a PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		d.Host, d.Port, d.Name, d.User, d.Password, d.SSLMode,
	)
}

// SearchConfig defines the shopping search API settings.
type SearchConfig struct {
	APIKey     string          `yaml:"api_key"`
	BaseURL    string          `yaml:"base_url"`
	Engine     string          `yaml:"engine"`
	Country    string          `yaml:"country"`
	Language   string          `yaml:"language"`
	NumResults int             `yaml:"num_results"`
	Timeout    time.Duration   `yaml:"timeout"`
	MaxAliases int             `yaml:"max_aliases"`
	RateLimit  RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig defines search API rate limiting settings.
type RateLimitConfig struct {
	PerSecond  float64 `yaml:"per_second"`
	Burst      int     `yaml:"burst"`
	DailyLimit int64   `yaml:"daily_limit"`
}

// CacheConfig defines deal cache validity.
type CacheConfig struct {
	DefaultTTL     time.Duration `yaml:"default_ttl"`
	RefreshTimeout time.Duration `yaml:"refresh_timeout"`
}

// SalesConfig defines promotional sale windows.
type SalesConfig struct {
	DisableBuiltin bool           `yaml:"disable_builtin"`
	Timezone       string         `yaml:"timezone"`
	Windows        []WindowConfig `yaml:"windows"`
}

// WindowConfig is one sale window. Recurring windows set Start and End as
// "MM-DD"; one-off windows set StartsAt and EndsAt.
type WindowConfig struct {
	Name     string        `yaml:"name"`
	Vendors  []string      `yaml:"vendors"`
	Start    string        `yaml:"start"`
	End      string        `yaml:"end"`
	StartsAt time.Time     `yaml:"starts_at"`
	EndsAt   time.Time     `yaml:"ends_at"`
	TTL      time.Duration `yaml:"ttl"`
}

// AliasesConfig defines title alias mappings on top of the built-in table.
type AliasesConfig struct {
	DisableBuiltin bool              `yaml:"disable_builtin"`
	Mappings       []resolve.Mapping `yaml:"mappings"`
}

// EngineConfig defines orchestrator settings.
type EngineConfig struct {
	Workers int `yaml:"workers"`
}

// ScheduleConfig defines the periodic check.
type ScheduleConfig struct {
	Enabled       bool          `yaml:"enabled"`
	CheckInterval time.Duration `yaml:"check_interval"`
	RunTimeout    time.Duration `yaml:"run_timeout"`
}

// NotificationsConfig defines notification targets.
type NotificationsConfig struct {
	Discord  DiscordConfig  `yaml:"discord"`
	Telegram TelegramConfig `yaml:"telegram"`
}

// DiscordConfig defines Discord webhook settings.
type DiscordConfig struct {
	Enabled    bool   `yaml:"enabled"`
	WebhookURL string `yaml:"webhook_url"`
}

// TelegramConfig defines Telegram bot settings.
type TelegramConfig struct {
	Enabled bool   `yaml:"enabled"`
	Token   string `yaml:"token"`
	ChatID  int64  `yaml:"chat_id"`
}

// TelemetryConfig defines OpenTelemetry export settings.
type TelemetryConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Endpoint    string  `yaml:"endpoint"`
	Insecure    bool    `yaml:"insecure"`
	ServiceName string  `yaml:"service_name"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// Load reads and parses a YAML config file, performing environment variable
// substitution and validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // config path from trusted CLI flag
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the YAML content.
	expanded := os.ExpandEnv(string(data))

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	applyDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Location returns the sale calendar time zone.
func (s *SalesConfig) Location() (*time.Location, error) {
	return time.LoadLocation(s.Timezone)
}

// CalendarOptions converts the configured windows into sale calendar
// options, built-in windows first.
func (s *SalesConfig) CalendarOptions() ([]salecal.Option, error) {
	loc, err := s.Location()
	if err != nil {
		return nil, fmt.Errorf("loading sales timezone: %w", err)
	}

	var (
		annual []salecal.AnnualWindow
		fixed  []domain.SaleWindow
	)
	if !s.DisableBuiltin {
		annual = append(annual, salecal.BuiltinWindows()...)
	}
	for i := range s.Windows {
		w := &s.Windows[i]
		if w.Start == "" {
			fixed = append(fixed, domain.SaleWindow{
				Name:             w.Name,
				VendorScope:      w.Vendors,
				StartsAt:         w.StartsAt,
				EndsAt:           w.EndsAt,
				CacheTTLOverride: w.TTL,
			})
			continue
		}
		start, err := salecal.ParseMonthDay(w.Start)
		if err != nil {
			return nil, fmt.Errorf("sales window %q: %w", w.Name, err)
		}
		end, err := salecal.ParseMonthDay(w.End)
		if err != nil {
			return nil, fmt.Errorf("sales window %q: %w", w.Name, err)
		}
		annual = append(annual, salecal.AnnualWindow{
			Name:             w.Name,
			VendorScope:      w.Vendors,
			Start:            start,
			End:              end,
			CacheTTLOverride: w.TTL,
		})
	}

	return []salecal.Option{
		salecal.WithLocation(loc),
		salecal.WithAnnualWindows(annual...),
		salecal.WithWindows(fixed...),
	}, nil
}

func applyDefaults(cfg *Config) {
	applyServerDefaults(&cfg.Server)
	applyDatabaseDefaults(&cfg.Database)
	applySearchDefaults(&cfg.Search)
	applyCacheDefaults(&cfg.Cache)
	applySalesDefaults(&cfg.Sales)
	applyEngineDefaults(&cfg.Engine)
	applyScheduleDefaults(&cfg.Schedule)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyLoggingDefaults(&cfg.Logging)
}

func applyServerDefaults(s *ServerConfig) {
	if s.Host == "" {
		s.Host = "0.0.0.0"
	}
	if s.Port == 0 {
		s.Port = 8080
	}
	if s.ReadTimeout == 0 {
		s.ReadTimeout = 30 * time.Second
	}
	if s.WriteTimeout == 0 {
		s.WriteTimeout = 5 * time.Minute
	}
}

func applyDatabaseDefaults(d *DatabaseConfig) {
	if d.Driver == "" {
		d.Driver = DriverPostgres
	}
	if d.Port == 0 {
		d.Port = 5432
	}
	if d.SSLMode == "" {
		d.SSLMode = "disable"
	}
	if d.PoolSize == 0 {
		d.PoolSize = 10
	}
	if d.Driver == DriverSQLite && d.Path == "" {
		d.Path = "film-deal-tracker.db"
	}
}

func applySearchDefaults(s *SearchConfig) {
	if s.Engine == "" {
		s.Engine = "google_shopping"
	}
	if s.Country == "" {
		s.Country = "us"
	}
	if s.Language == "" {
		s.Language = "en"
	}
	if s.NumResults == 0 {
		s.NumResults = 20
	}
	if s.Timeout == 0 {
		s.Timeout = 20 * time.Second
	}
	if s.MaxAliases == 0 {
		s.MaxAliases = 4
	}
	applyRateLimitDefaults(&s.RateLimit)
}

func applyRateLimitDefaults(r *RateLimitConfig) {
	if r.PerSecond == 0 {
		r.PerSecond = 0.5
	}
	if r.Burst == 0 {
		r.Burst = 2
	}
	if r.DailyLimit == 0 {
		r.DailyLimit = 250
	}
}

func applyCacheDefaults(c *CacheConfig) {
	if c.DefaultTTL == 0 {
		c.DefaultTTL = 48 * time.Hour
	}
	if c.RefreshTimeout == 0 {
		c.RefreshTimeout = 2 * time.Minute
	}
}

func applySalesDefaults(s *SalesConfig) {
	if s.Timezone == "" {
		s.Timezone = "UTC"
	}
}

func applyEngineDefaults(e *EngineConfig) {
	if e.Workers == 0 {
		e.Workers = 4
	}
}

func applyScheduleDefaults(s *ScheduleConfig) {
	if s.CheckInterval == 0 {
		s.CheckInterval = time.Hour
	}
}

func applyTelemetryDefaults(t *TelemetryConfig) {
	if t.ServiceName == "" {
		t.ServiceName = "film-deal-tracker"
	}
	if t.SampleRatio == 0 {
		t.SampleRatio = 1.0
	}
}

func applyLoggingDefaults(l *LoggingConfig) {
	if l.Level == "" {
		l.Level = "info"
	}
	if l.Format == "" {
		l.Format = "text"
	}
}

func validate(cfg *Config) error {
	var errs []error

	switch cfg.Database.Driver {
	case DriverPostgres:
		if cfg.Database.Host == "" {
			errs = append(errs, fmt.Errorf("database.host is required when driver is postgres"))
		}
		if cfg.Database.Name == "" {
			errs = append(errs, fmt.Errorf("database.name is required when driver is postgres"))
		}
		if cfg.Database.User == "" {
			errs = append(errs, fmt.Errorf("database.user is required when driver is postgres"))
		}
	case DriverSQLite, DriverMemory:
	default:
		errs = append(errs, fmt.Errorf(
			"database.driver must be one of: postgres, sqlite, memory (got %q)",
			cfg.Database.Driver,
		))
	}

	if cfg.Search.APIKey == "" {
		errs = append(errs, fmt.Errorf("search.api_key is required"))
	}
	if cfg.Search.RateLimit.PerSecond < 0 || cfg.Search.RateLimit.DailyLimit < 0 {
		errs = append(errs, fmt.Errorf("search.rate_limit values must not be negative"))
	}

	if cfg.Cache.DefaultTTL < time.Second {
		errs = append(errs, fmt.Errorf("cache.default_ttl must be at least 1s"))
	}
	if cfg.Engine.Workers < 0 {
		errs = append(errs, fmt.Errorf("engine.workers must not be negative"))
	}

	errs = append(errs, validateSales(&cfg.Sales)...)

	for i, m := range cfg.Aliases.Mappings {
		if m.Title == "" {
			errs = append(errs, fmt.Errorf("aliases.mappings[%d].title is required", i))
		}
	}

	if cfg.Notifications.Discord.Enabled && cfg.Notifications.Discord.WebhookURL == "" {
		errs = append(errs, fmt.Errorf(
			"notifications.discord.webhook_url is required when discord is enabled",
		))
	}
	if cfg.Notifications.Telegram.Enabled {
		if cfg.Notifications.Telegram.Token == "" {
			errs = append(errs, fmt.Errorf(
				"notifications.telegram.token is required when telegram is enabled",
			))
		}
		if cfg.Notifications.Telegram.ChatID == 0 {
			errs = append(errs, fmt.Errorf(
				"notifications.telegram.chat_id is required when telegram is enabled",
			))
		}
	}

	if cfg.Telemetry.Enabled && cfg.Telemetry.Endpoint == "" {
		errs = append(errs, fmt.Errorf("telemetry.endpoint is required when telemetry is enabled"))
	}
	if cfg.Telemetry.SampleRatio < 0 || cfg.Telemetry.SampleRatio > 1 {
		errs = append(errs, fmt.Errorf("telemetry.sample_ratio must be between 0 and 1"))
	}

	return errors.Join(errs...)
}

func validateSales(s *SalesConfig) []error {
	var errs []error

	if _, err := s.Location(); err != nil {
		errs = append(errs, fmt.Errorf("sales.timezone: %w", err))
	}

	for i := range s.Windows {
		w := &s.Windows[i]
		if w.Name == "" {
			errs = append(errs, fmt.Errorf("sales.windows[%d].name is required", i))
		}
		if w.TTL <= 0 {
			errs = append(errs, fmt.Errorf("sales.windows[%d].ttl must be positive", i))
		}
		if w.Start != "" || w.End != "" {
			if _, err := salecal.ParseMonthDay(w.Start); err != nil {
				errs = append(errs, fmt.Errorf("sales.windows[%d].start: %w", i, err))
			}
			if _, err := salecal.ParseMonthDay(w.End); err != nil {
				errs = append(errs, fmt.Errorf("sales.windows[%d].end: %w", i, err))
			}
			continue
		}
		if w.StartsAt.IsZero() || !w.EndsAt.After(w.StartsAt) {
			errs = append(errs, fmt.Errorf(
				"sales.windows[%d] needs start/end or starts_at before ends_at", i,
			))
		}
	}

	return errs
}
