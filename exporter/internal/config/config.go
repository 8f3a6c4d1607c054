package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/dotenv"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix of every environment variable read by Load.
const EnvPrefix = "PTERODACTYL_"

// DotEnvFile is read from the working directory when present. Its
// PTERODACTYL_* entries rank below the real environment.
const DotEnvFile = ".env"

// Default values applied when fields are absent from every source.
const (
	DefaultListen       = ":3000"
	DefaultPageSize     = 150
	DefaultBatchSize    = 50
	DefaultUnknownEgg   = "unknown egg"
	DefaultTimeout      = 10 * time.Second
	DefaultIdleTimeout  = 90 * time.Second
	DefaultMaxIdleConns = 100
	DefaultCycleTimeout = 60 * time.Second
	DefaultLogLevel     = "info"
	DefaultLogFormat    = "json"
)

// envAliases maps the variable names of existing deployments onto config keys.
var envAliases = map[string]string{
	"api_url":        "panel.url",
	"api_key":        "panel.api_key",
	"client_api_key": "panel.client_api_key",
}

// Config is the top-level exporter configuration.
type Config struct {
	Panel    PanelConfig    `koanf:"panel"`
	Exporter ExporterConfig `koanf:"exporter"`
	Log      LogConfig      `koanf:"log"`
}

// PanelConfig describes the upstream panel API.
type PanelConfig struct {
	// URL is the panel base URL, e.g. https://panel.example.com.
	URL string `koanf:"url"`

	// APIKey is the application API key (ptla_...).
	APIKey string `koanf:"api_key"`

	// ClientAPIKey is the client API key (ptlc_...) used for per-server
	// resource requests. Empty means APIKey.
	ClientAPIKey string `koanf:"client_api_key"`

	// Timeout bounds every single request to the panel.
	Timeout time.Duration `koanf:"timeout"`

	IdleTimeout        time.Duration `koanf:"idle_timeout"`
	MaxIdleConns       int           `koanf:"max_idle_conns"`
	InsecureSkipVerify bool          `koanf:"insecure_skip_verify"`
}

// ExporterConfig holds the scrape listener and refresh cycle settings.
type ExporterConfig struct {
	// Listen is the address the HTTP server binds to.
	Listen string `koanf:"listen"`

	// PageSize is the per_page value of listing requests.
	PageSize int `koanf:"page_size"`

	// BatchSize bounds concurrent resource requests.
	BatchSize int `koanf:"batch_size"`

	// CycleTimeout bounds a whole refresh cycle.
	CycleTimeout time.Duration `koanf:"cycle_timeout"`

	// IncludeEgg requests the egg relationship and adds the egg_name label.
	IncludeEgg bool `koanf:"include_egg"`

	// UnknownEgg is the egg_name value for servers without an egg.
	UnknownEgg string `koanf:"unknown_egg"`

	// StaleAfter evicts series of servers not refreshed within this window.
	// 0 keeps them until restart.
	StaleAfter time.Duration `koanf:"stale_after"`

	// RuntimeMetrics exposes Go runtime and process metrics.
	RuntimeMetrics bool `koanf:"runtime_metrics"`
}

// LogConfig controls the slog handler.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// SlogLevel returns the slog level for l.Level. Unknown values map to info;
// validate rejects them before this is reached.
func (l LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Load builds the Config from defaults, the optional file at path, a .env
// file in the working directory and the environment, later sources winning.
// An empty path skips the config file.
func Load(path string) (*Config, error) {
	ko := koanf.New(".")

	if path != "" {
		if err := ko.Load(file.Provider(path), parserFor(path)); err != nil {
			return nil, fmt.Errorf("config: load %s: %w", path, err)
		}
	}

	if err := loadDotEnv(ko, DotEnvFile); err != nil {
		return nil, err
	}

	if err := ko.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("config: load env: %w", err)
	}

	cfg := defaults()
	if err := ko.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// loadDotEnv merges the dotenv file at path into ko. A missing file is not an
// error.
func loadDotEnv(ko *koanf.Koanf, path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: stat %s: %w", path, err)
	}
	if err := ko.Load(file.Provider(path), dotenv.ParserEnv(EnvPrefix, ".", envKey)); err != nil {
		return fmt.Errorf("config: load %s: %w", path, err)
	}
	return nil
}

// parserFor picks the koanf parser by file extension.
func parserFor(path string) koanf.Parser {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return toml.Parser()
	}
	return yaml.Parser()
}

// envKey maps PTERODACTYL_EXPORTER__BATCH_SIZE to exporter.batch_size.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	if alias, ok := envAliases[key]; ok {
		return alias
	}
	return strings.ReplaceAll(key, "__", ".")
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Panel: PanelConfig{
			Timeout:      DefaultTimeout,
			IdleTimeout:  DefaultIdleTimeout,
			MaxIdleConns: DefaultMaxIdleConns,
		},
		Exporter: ExporterConfig{
			Listen:         DefaultListen,
			PageSize:       DefaultPageSize,
			BatchSize:      DefaultBatchSize,
			CycleTimeout:   DefaultCycleTimeout,
			IncludeEgg:     true,
			UnknownEgg:     DefaultUnknownEgg,
			RuntimeMetrics: true,
		},
		Log: LogConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}

// validate checks required fields and structural constraints.
func validate(cfg *Config) error {
	if cfg.Panel.URL == "" {
		return fmt.Errorf("panel.url is required (or set %sAPI_URL)", EnvPrefix)
	}
	if !strings.HasPrefix(cfg.Panel.URL, "http://") && !strings.HasPrefix(cfg.Panel.URL, "https://") {
		return fmt.Errorf("panel.url must start with http:// or https://")
	}
	if cfg.Panel.APIKey == "" {
		return fmt.Errorf("panel.api_key is required (or set %sAPI_KEY)", EnvPrefix)
	}
	if cfg.Panel.Timeout <= 0 {
		return fmt.Errorf("panel.timeout must be positive")
	}
	if cfg.Panel.IdleTimeout < 0 {
		return fmt.Errorf("panel.idle_timeout must not be negative")
	}
	if cfg.Panel.MaxIdleConns < 0 {
		return fmt.Errorf("panel.max_idle_conns must not be negative")
	}
	if cfg.Exporter.Listen == "" {
		return fmt.Errorf("exporter.listen is required")
	}
	if cfg.Exporter.PageSize <= 0 {
		return fmt.Errorf("exporter.page_size must be positive")
	}
	if cfg.Exporter.BatchSize <= 0 {
		return fmt.Errorf("exporter.batch_size must be positive")
	}
	if cfg.Exporter.CycleTimeout <= 0 {
		return fmt.Errorf("exporter.cycle_timeout must be positive")
	}
	if cfg.Exporter.StaleAfter < 0 {
		return fmt.Errorf("exporter.stale_after must not be negative")
	}
	if cfg.Exporter.UnknownEgg == "" {
		return fmt.Errorf("exporter.unknown_egg must not be empty")
	}
	switch strings.ToLower(cfg.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log.level: unknown level %q", cfg.Log.Level)
	}
	switch cfg.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("log.format: unknown format %q", cfg.Log.Format)
	}
	return nil
}
