package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/alx-travel/alx-travel-app/internal/auth"
)

const (
	defaultPort           = "8080"
	defaultEnvFile        = ".env"
	defaultRateLimitRPS   = 25.0
	defaultRateLimitBurst = 50
	defaultLanguageCode   = "en-us"
	defaultTimeZone       = "UTC"
	defaultStaticURL      = "static/"
)

// Storage backends accepted by STORAGE_BACKEND.
const (
	StorageMySQL  = "mysql"
	StorageMemory = "memory"
)

// debugAllowedHosts apply when DEBUG is on and ALLOWED_HOSTS is empty.
var debugAllowedHosts = []string{".localhost", "127.0.0.1", "[::1]"}

// Config aggregates runtime configuration resolved from multiple sources.
// Precedence: CLI flags > YAML config > Environment variables (.env included) > Defaults.
// SecretKey, Debug and Database are read from the environment only.
type Config struct {
	SecretKey    string
	Debug        bool
	AllowedHosts []string
	Database     DatabaseSettings

	Port                 string
	ShutdownGracePeriod  time.Duration
	ReadHeaderTimeout    time.Duration
	WriteTimeout         time.Duration
	IdleTimeout          time.Duration
	EnableRequestLogging bool
	RateLimitRPS         float64
	RateLimitBurst       int

	CORSAllowAllOrigins bool
	CORSAllowedOrigins  []string
	DefaultPermission   auth.Permission

	LanguageCode   string
	TimeZone       string
	Location       *time.Location
	StaticURL      string
	StorageBackend string

	// EnvFile is the .env path that was actually read, or "" when none was found.
	EnvFile string
}

// yamlConfig represents the YAML configuration file structure.
type yamlConfig struct {
	Port                 string        `yaml:"port"`
	ShutdownGracePeriod  string        `yaml:"shutdown_grace_period"`
	ReadHeaderTimeout    string        `yaml:"read_header_timeout"`
	WriteTimeout         string        `yaml:"write_timeout"`
	IdleTimeout          string        `yaml:"idle_timeout"`
	EnableRequestLogging *bool         `yaml:"enable_request_logging"`
	RateLimit            yamlRateLimit `yaml:"rate_limit"`
	AllowedHosts         []string      `yaml:"allowed_hosts"`
	CORS                 yamlCORS      `yaml:"cors"`
	DefaultPermission    string        `yaml:"default_permission"`
	StorageBackend       string        `yaml:"storage_backend"`
}

// yamlRateLimit represents the rate limit section in YAML.
type yamlRateLimit struct {
	RPS   *float64 `yaml:"rps"`
	Burst *int     `yaml:"burst"`
}

type yamlCORS struct {
	AllowAllOrigins *bool    `yaml:"allow_all_origins"`
	AllowedOrigins  []string `yaml:"allowed_origins"`
}

// CLIOverrides holds command-line flag overrides.
type CLIOverrides struct {
	ConfigFile     string
	EnvFile        *string
	Port           *string
	RateLimitRPS   *float64
	RateLimitBurst *int
	StorageBackend *string
}

// Load resolves configuration from the process environment, the .env file,
// an optional YAML file and CLI overrides.
func Load(overrides *CLIOverrides) (Config, error) {
	return LoadWithLookup(overrides, os.LookupEnv)
}

// LoadWithLookup is Load with an explicit process-environment lookup.
func LoadWithLookup(overrides *CLIOverrides, lookup LookupFunc) (Config, error) {
	var envFile string
	if overrides != nil && overrides.EnvFile != nil {
		envFile = *overrides.EnvFile
	} else if wd, err := os.Getwd(); err == nil {
		envFile = locateEnvFile(wd, defaultEnvFile)
	}

	env, err := newEnvironment(envFile, lookup)
	if err != nil {
		return Config{}, err
	}

	cfg := defaultConfig()
	cfg.EnvFile = env.file

	var errs []error
	applyEnvConfig(&cfg, env, &errs)
	if len(errs) > 0 {
		return Config{}, errors.Join(errs...)
	}

	if overrides != nil && overrides.ConfigFile != "" {
		yamlCfg, err := loadFromFile(overrides.ConfigFile)
		if err != nil {
			return Config{}, fmt.Errorf("load YAML config: %w", err)
		}
		if err := applyYAMLConfig(&cfg, yamlCfg); err != nil {
			return Config{}, err
		}
	}

	if overrides != nil {
		applyCLIOverrides(&cfg, overrides)
	}

	if err := validateConfig(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// defaultConfig returns a Config with default values.
func defaultConfig() Config {
	return Config{
		AllowedHosts:         []string{},
		Port:                 defaultPort,
		ShutdownGracePeriod:  10 * time.Second,
		ReadHeaderTimeout:    5 * time.Second,
		WriteTimeout:         15 * time.Second,
		IdleTimeout:          60 * time.Second,
		EnableRequestLogging: true,
		RateLimitRPS:         defaultRateLimitRPS,
		RateLimitBurst:       defaultRateLimitBurst,
		CORSAllowAllOrigins:  true,
		DefaultPermission:    auth.AllowAny,
		LanguageCode:         defaultLanguageCode,
		TimeZone:             defaultTimeZone,
		StaticURL:            defaultStaticURL,
		StorageBackend:       StorageMySQL,
	}
}

// loadFromFile loads configuration from a YAML file.
func loadFromFile(path string) (*yamlConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var yamlCfg yamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}

	return &yamlCfg, nil
}

// applyEnvConfig reads required secrets and optional tuning from the environment.
func applyEnvConfig(cfg *Config, env *environment, errs *[]error) {
	cfg.SecretKey = env.require("SECRET_KEY", errs)
	cfg.Debug = env.boolean("DEBUG", false)
	cfg.Database = loadDatabaseSettings(env, errs)

	if hosts, ok := env.list("ALLOWED_HOSTS"); ok {
		cfg.AllowedHosts = hosts
	}

	if port := env.str("PORT"); port != "" {
		cfg.Port = port
	}

	if rps := env.str("RATE_LIMIT_RPS"); rps != "" {
		value, err := strconv.ParseFloat(rps, 64)
		if err != nil {
			*errs = append(*errs, &InvalidSettingError{Name: "RATE_LIMIT_RPS", Reason: "must be a number"})
		} else {
			cfg.RateLimitRPS = value
		}
	}

	if burst := env.str("RATE_LIMIT_BURST"); burst != "" {
		value, err := strconv.Atoi(burst)
		if err != nil {
			*errs = append(*errs, &InvalidSettingError{Name: "RATE_LIMIT_BURST", Reason: "must be an integer"})
		} else {
			cfg.RateLimitBurst = value
		}
	}

	cfg.CORSAllowAllOrigins = env.boolean("CORS_ALLOW_ALL_ORIGINS", cfg.CORSAllowAllOrigins)
	if origins, ok := env.list("CORS_ALLOWED_ORIGINS"); ok {
		cfg.CORSAllowedOrigins = origins
	}

	if raw := env.str("DEFAULT_PERMISSION"); raw != "" {
		permission, err := auth.ParsePermission(raw)
		if err != nil {
			*errs = append(*errs, &InvalidSettingError{Name: "DEFAULT_PERMISSION", Reason: err.Error()})
		} else {
			cfg.DefaultPermission = permission
		}
	}

	if lang := env.str("LANGUAGE_CODE"); lang != "" {
		cfg.LanguageCode = lang
	}
	if tz := env.str("TIME_ZONE"); tz != "" {
		cfg.TimeZone = tz
	}
	if staticURL := env.str("STATIC_URL"); staticURL != "" {
		cfg.StaticURL = staticURL
	}
	if backend := env.str("STORAGE_BACKEND"); backend != "" {
		cfg.StorageBackend = strings.ToLower(backend)
	}
}

// applyYAMLConfig applies YAML configuration to the Config struct.
func applyYAMLConfig(cfg *Config, yamlCfg *yamlConfig) error {
	if yamlCfg.Port != "" {
		cfg.Port = yamlCfg.Port
	}

	durations := []struct {
		name   string
		raw    string
		target *time.Duration
	}{
		{"shutdown_grace_period", yamlCfg.ShutdownGracePeriod, &cfg.ShutdownGracePeriod},
		{"read_header_timeout", yamlCfg.ReadHeaderTimeout, &cfg.ReadHeaderTimeout},
		{"write_timeout", yamlCfg.WriteTimeout, &cfg.WriteTimeout},
		{"idle_timeout", yamlCfg.IdleTimeout, &cfg.IdleTimeout},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		value, err := time.ParseDuration(d.raw)
		if err != nil {
			return &InvalidSettingError{Name: d.name, Reason: err.Error()}
		}
		*d.target = value
	}

	if yamlCfg.EnableRequestLogging != nil {
		cfg.EnableRequestLogging = *yamlCfg.EnableRequestLogging
	}
	if yamlCfg.RateLimit.RPS != nil {
		cfg.RateLimitRPS = *yamlCfg.RateLimit.RPS
	}
	if yamlCfg.RateLimit.Burst != nil {
		cfg.RateLimitBurst = *yamlCfg.RateLimit.Burst
	}
	if len(yamlCfg.AllowedHosts) > 0 {
		cfg.AllowedHosts = yamlCfg.AllowedHosts
	}
	if yamlCfg.CORS.AllowAllOrigins != nil {
		cfg.CORSAllowAllOrigins = *yamlCfg.CORS.AllowAllOrigins
	}
	if len(yamlCfg.CORS.AllowedOrigins) > 0 {
		cfg.CORSAllowedOrigins = yamlCfg.CORS.AllowedOrigins
	}
	if yamlCfg.DefaultPermission != "" {
		permission, err := auth.ParsePermission(yamlCfg.DefaultPermission)
		if err != nil {
			return &InvalidSettingError{Name: "default_permission", Reason: err.Error()}
		}
		cfg.DefaultPermission = permission
	}
	if yamlCfg.StorageBackend != "" {
		cfg.StorageBackend = strings.ToLower(yamlCfg.StorageBackend)
	}
	return nil
}

// applyCLIOverrides applies command-line flag overrides.
func applyCLIOverrides(cfg *Config, overrides *CLIOverrides) {
	if overrides.Port != nil && *overrides.Port != "" {
		cfg.Port = *overrides.Port
	}

	if overrides.RateLimitRPS != nil && *overrides.RateLimitRPS >= 0 {
		cfg.RateLimitRPS = *overrides.RateLimitRPS
	}

	if overrides.RateLimitBurst != nil && *overrides.RateLimitBurst >= 0 {
		cfg.RateLimitBurst = *overrides.RateLimitBurst
	}

	if overrides.StorageBackend != nil && *overrides.StorageBackend != "" {
		cfg.StorageBackend = strings.ToLower(*overrides.StorageBackend)
	}
}

// validateConfig validates the final configuration and resolves derived values.
func validateConfig(cfg *Config) error {
	var errs []error

	if cfg.SecretKey == "" {
		errs = append(errs, &InvalidSettingError{Name: "SECRET_KEY", Reason: "must not be empty"})
	}
	errs = append(errs, validateDatabaseSettings(cfg.Database)...)

	if cfg.RateLimitRPS < 0 {
		errs = append(errs, &InvalidSettingError{Name: "RATE_LIMIT_RPS", Reason: "must be >= 0"})
	}
	if cfg.RateLimitBurst < 0 {
		errs = append(errs, &InvalidSettingError{Name: "RATE_LIMIT_BURST", Reason: "must be >= 0"})
	}

	switch cfg.StorageBackend {
	case StorageMySQL, StorageMemory:
	default:
		errs = append(errs, &InvalidSettingError{
			Name:   "STORAGE_BACKEND",
			Reason: fmt.Sprintf("unknown backend %q (expected %s or %s)", cfg.StorageBackend, StorageMySQL, StorageMemory),
		})
	}

	loc, err := time.LoadLocation(cfg.TimeZone)
	if err != nil {
		errs = append(errs, &InvalidSettingError{Name: "TIME_ZONE", Reason: err.Error()})
	}
	cfg.Location = loc

	cfg.StaticURL = normalizeStaticURL(cfg.StaticURL)

	return errors.Join(errs...)
}

// normalizeStaticURL turns "static/" into the mount path "/static/".
func normalizeStaticURL(raw string) string {
	trimmed := strings.Trim(strings.TrimSpace(raw), "/")
	if trimmed == "" {
		return "/" + strings.Trim(defaultStaticURL, "/") + "/"
	}
	return "/" + trimmed + "/"
}

// EffectiveAllowedHosts returns the host patterns accepted by the server.
func (c Config) EffectiveAllowedHosts() []string {
	if len(c.AllowedHosts) == 0 && c.Debug {
		out := make([]string, len(debugAllowedHosts))
		copy(out, debugAllowedHosts)
		return out
	}
	return c.AllowedHosts
}

// LogFields describes the configuration for a startup log line. Secrets are redacted.
func (c Config) LogFields() []zap.Field {
	return []zap.Field{
		zap.Bool("debug", c.Debug),
		zap.String("port", c.Port),
		zap.String("storage_backend", c.StorageBackend),
		zap.String("database", c.Database.Redacted()),
		zap.Strings("allowed_hosts", c.EffectiveAllowedHosts()),
		zap.Bool("cors_allow_all_origins", c.CORSAllowAllOrigins),
		zap.String("default_permission", string(c.DefaultPermission)),
		zap.String("time_zone", c.TimeZone),
		zap.String("env_file", c.EnvFile),
	}
}
