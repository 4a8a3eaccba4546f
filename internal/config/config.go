// Package config loads troski settings from defaults, an optional config
// file, a .env file and TROSKI_ environment variables, in increasing order
// of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"golang.org/x/text/language"
)

// EnvPrefix namespaces environment overrides: TROSKI_GOOGLE_API_KEY sets google.api_key.
const EnvPrefix = "TROSKI"

// Environments.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// ErrMissingAPIKey is returned when no directions provider key is configured.
var ErrMissingAPIKey = errors.New("google.api_key is required")

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Google    GoogleConfig    `mapstructure:"google"`
	Auth      AuthConfig      `mapstructure:"auth"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Format    FormatConfig    `mapstructure:"format"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Env             string        `mapstructure:"env"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	RequireTLS      bool          `mapstructure:"require_tls"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf(":%d", s.Port)
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	// Pretty switches to the human-readable console writer.
	Pretty bool `mapstructure:"pretty"`
}

type GoogleConfig struct {
	APIKey   string        `mapstructure:"api_key"`
	BaseURL  string        `mapstructure:"base_url"`
	Timeout  time.Duration `mapstructure:"timeout"`
	Language string        `mapstructure:"language"`
}

// Validate reports whether the provider can be called.
func (g GoogleConfig) Validate() error {
	if strings.TrimSpace(g.APIKey) == "" {
		return ErrMissingAPIKey
	}
	return nil
}

type AuthConfig struct {
	// SigningKey enables bearer authentication on the route endpoints when set.
	SigningKey string `mapstructure:"signing_key"`
	Issuer     string `mapstructure:"issuer"`
	Audience   string `mapstructure:"audience"`
}

// Enabled reports whether route endpoints require a token.
func (a AuthConfig) Enabled() bool {
	return a.SigningKey != ""
}

type RateLimitConfig struct {
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

type TelemetryConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	ServiceName  string        `mapstructure:"service_name"`
	OTLPEndpoint string        `mapstructure:"otlp_endpoint"`
	Insecure     bool          `mapstructure:"insecure"`
	SampleRatio  float64       `mapstructure:"sample_ratio"`
	Interval     time.Duration `mapstructure:"interval"`
}

// FormatConfig sets the arrival time rendering used when a request names
// no time zone or locale.
type FormatConfig struct {
	TimeZone string `mapstructure:"time_zone"`
	Locale   string `mapstructure:"locale"`
}

// Location resolves the default time zone.
func (f FormatConfig) Location() (*time.Location, error) {
	return time.LoadLocation(f.TimeZone)
}

// IsDevelopment reports whether the server runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == EnvDevelopment
}

// ZerologLevel returns the configured level, or info when unset.
func (c *Config) ZerologLevel() zerolog.Level {
	level, err := zerolog.ParseLevel(strings.ToLower(c.Log.Level))
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.env", EnvDevelopment)
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)
	v.SetDefault("server.require_tls", false)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	v.SetDefault("google.api_key", "")
	v.SetDefault("google.base_url", "https://maps.googleapis.com")
	v.SetDefault("google.timeout", 10*time.Second)
	v.SetDefault("google.language", "")

	v.SetDefault("auth.signing_key", "")
	v.SetDefault("auth.issuer", "https://api.troski.app")
	v.SetDefault("auth.audience", "troski-api")

	v.SetDefault("rate_limit.requests", 30)
	v.SetDefault("rate_limit.window", time.Minute)

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "troski-api")
	v.SetDefault("telemetry.otlp_endpoint", "localhost:4317")
	v.SetDefault("telemetry.insecure", true)
	v.SetDefault("telemetry.sample_ratio", 1.0)
	v.SetDefault("telemetry.interval", 15*time.Second)

	v.SetDefault("format.time_zone", "UTC")
	v.SetDefault("format.locale", "en-US")
}

// Options controls where Load looks for settings.
type Options struct {
	// ConfigFile is an explicit config file. When empty, config.yaml is
	// searched in the working directory and ./configs.
	ConfigFile string

	// EnvFiles are loaded into the process environment before reading
	// variables. Missing files are ignored. Defaults to ".env".
	EnvFiles []string
}

// Load reads the configuration and validates it.
func Load(opts Options) (*Config, error) {
	envFiles := opts.EnvFiles
	if envFiles == nil {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		// godotenv never overrides variables that are already set.
		_ = godotenv.Load(f) //nolint:errcheck // .env files are optional
	}

	v := viper.New()
	setDefaults(v)

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("reading config file: %w", err)
			}
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that configuration values are present and sane. The
// provider key is checked separately by GoogleConfig.Validate so that
// commands that never call the provider can run without it.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.Env != EnvDevelopment && c.Server.Env != EnvProduction {
		errs = append(errs, fmt.Sprintf("server.env must be %q or %q, got %q", EnvDevelopment, EnvProduction, c.Server.Env))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, "server.shutdown_timeout must be positive")
	}

	if _, err := zerolog.ParseLevel(strings.ToLower(c.Log.Level)); err != nil {
		errs = append(errs, fmt.Sprintf("log.level %q is not a valid level", c.Log.Level))
	}

	if c.Google.BaseURL == "" {
		errs = append(errs, "google.base_url is required")
	}
	if c.Google.Timeout <= 0 {
		errs = append(errs, "google.timeout must be positive")
	}
	if c.Google.Language != "" {
		if _, err := language.Parse(c.Google.Language); err != nil {
			errs = append(errs, fmt.Sprintf("google.language %q is not a valid language tag", c.Google.Language))
		}
	}

	if c.Auth.Enabled() && len(c.Auth.SigningKey) < 32 {
		errs = append(errs, "auth.signing_key must be at least 32 bytes")
	}

	if c.RateLimit.Requests <= 0 {
		errs = append(errs, "rate_limit.requests must be positive")
	}
	if c.RateLimit.Window <= 0 {
		errs = append(errs, "rate_limit.window must be positive")
	}

	if c.Telemetry.Enabled && c.Telemetry.OTLPEndpoint == "" {
		errs = append(errs, "telemetry.otlp_endpoint is required when telemetry is enabled")
	}
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		errs = append(errs, fmt.Sprintf("telemetry.sample_ratio must be 0-1, got %g", c.Telemetry.SampleRatio))
	}

	if _, err := c.Format.Location(); err != nil {
		errs = append(errs, fmt.Sprintf("format.time_zone %q is not a known time zone", c.Format.TimeZone))
	}
	if _, err := language.Parse(c.Format.Locale); err != nil {
		errs = append(errs, fmt.Sprintf("format.locale %q is not a valid language tag", c.Format.Locale))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
