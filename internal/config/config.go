// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const defaultJWTSecret = "your-secret-key-change-in-production"

// Config holds configuration shared by the API server, the proxy and the
// terminal client. Each binary reads the subset it needs.
type Config struct {
	Env  string `mapstructure:"APP_ENV"`
	Port string `mapstructure:"PORT"`

	ProxyPort  string `mapstructure:"PROXY_PORT"`
	BackendURL string `mapstructure:"BACKEND_URL"`
	APIBaseURL string `mapstructure:"API_BASE_URL"`

	DBDriver   string `mapstructure:"DB_DRIVER"`
	DBHost     string `mapstructure:"DB_HOST"`
	DBPort     string `mapstructure:"DB_PORT"`
	DBUser     string `mapstructure:"DB_USER"`
	DBPassword string `mapstructure:"DB_PASSWORD"`
	DBName     string `mapstructure:"DB_NAME"`
	DBSSLMode  string `mapstructure:"DB_SSLMODE"`
	SQLitePath string `mapstructure:"SQLITE_PATH"`

	RedisURL         string `mapstructure:"REDIS_URL"`
	JWTSecret        string `mapstructure:"JWT_SECRET"`
	AllowedOrigins   string `mapstructure:"ALLOWED_ORIGINS"`
	RateLimitEnabled bool   `mapstructure:"RATE_LIMIT_ENABLED"`

	UploadDir        string `mapstructure:"UPLOAD_DIR"`
	UploadMaxMB      int    `mapstructure:"UPLOAD_MAX_MB"`
	PublicBaseURL    string `mapstructure:"PUBLIC_BASE_URL"`
	LegacyImageHosts string `mapstructure:"LEGACY_IMAGE_HOSTS"`

	SessionStore     string        `mapstructure:"SESSION_STORE"`
	SessionPath      string        `mapstructure:"SESSION_PATH"`
	ChatPollInterval time.Duration `mapstructure:"CHAT_POLL_INTERVAL"`
	ChatMaxBackoff   time.Duration `mapstructure:"CHAT_MAX_BACKOFF"`
	ChatLongPoll     bool          `mapstructure:"CHAT_LONG_POLL"`

	TracingEnabled  bool   `mapstructure:"TRACING_ENABLED"`
	TracingExporter string `mapstructure:"TRACING_EXPORTER"`
	OTLPEndpoint    string `mapstructure:"OTLP_ENDPOINT"`

	SeedDemo bool `mapstructure:"SEED_DEMO"`
}

// LoadConfig loads application configuration from file and environment variables.
func LoadConfig() (*Config, error) {
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("..")
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AutomaticEnv()

	// The base file is optional; env vars and defaults cover local runs.
	_ = viper.ReadInConfig()

	env := viper.GetString("APP_ENV")
	if env != "" && env != "development" && env != "test" {
		viper.SetConfigName("config." + env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("required profile-specific config 'config.%s.yml' not found: %w", env, err)
		}
		log.Printf("Loaded profile-specific configuration: config.%s.yml", env)
	}

	setDefaults(viper.GetViper())

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	config.normalize()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("PORT", "8375")
	v.SetDefault("PROXY_PORT", "8380")
	v.SetDefault("BACKEND_URL", "http://localhost:8375")
	v.SetDefault("API_BASE_URL", "http://localhost:8380")
	v.SetDefault("DB_DRIVER", "sqlite")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "damara")
	v.SetDefault("DB_PASSWORD", "password")
	v.SetDefault("DB_NAME", "damara")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("SQLITE_PATH", "damara.db")
	v.SetDefault("REDIS_URL", "localhost:6379")
	v.SetDefault("JWT_SECRET", defaultJWTSecret)
	v.SetDefault("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000")
	v.SetDefault("RATE_LIMIT_ENABLED", true)
	v.SetDefault("UPLOAD_DIR", "uploads")
	v.SetDefault("UPLOAD_MAX_MB", 10)
	v.SetDefault("PUBLIC_BASE_URL", "")
	v.SetDefault("LEGACY_IMAGE_HOSTS", "")
	v.SetDefault("SESSION_STORE", "file")
	v.SetDefault("SESSION_PATH", ".damara/session.yml")
	v.SetDefault("CHAT_POLL_INTERVAL", "3s")
	v.SetDefault("CHAT_MAX_BACKOFF", "30s")
	v.SetDefault("CHAT_LONG_POLL", false)
	v.SetDefault("TRACING_ENABLED", false)
	v.SetDefault("TRACING_EXPORTER", "stdout")
	v.SetDefault("OTLP_ENDPOINT", "localhost:4318")
	v.SetDefault("SEED_DEMO", false)
}

func (c *Config) normalize() {
	c.Env = strings.ToLower(strings.TrimSpace(c.Env))
	c.DBDriver = strings.ToLower(strings.TrimSpace(c.DBDriver))
	c.DBSSLMode = strings.ToLower(strings.TrimSpace(c.DBSSLMode))
	c.SessionStore = strings.ToLower(strings.TrimSpace(c.SessionStore))
	c.BackendURL = strings.TrimRight(strings.TrimSpace(c.BackendURL), "/")
	c.APIBaseURL = strings.TrimRight(strings.TrimSpace(c.APIBaseURL), "/")
	c.PublicBaseURL = strings.TrimRight(strings.TrimSpace(c.PublicBaseURL), "/")
}

// IsProduction reports whether the production profile is active.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// IsLocal reports whether the development or test profile is active.
func (c *Config) IsLocal() bool {
	return c.Env == "" || c.Env == "development" || c.Env == "test"
}

// Origins returns ALLOWED_ORIGINS split on commas.
func (c *Config) Origins() []string {
	return splitList(c.AllowedOrigins)
}

// LegacyHosts returns LEGACY_IMAGE_HOSTS split on commas.
func (c *Config) LegacyHosts() []string {
	return splitList(c.LegacyImageHosts)
}

// DSN builds the postgres connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort, c.DBSSLMode)
}

// Validate ensures that required configuration values are present and meet
// security standards. All problems are reported together.
func (c *Config) Validate() error {
	var errs []error

	if c.Port == "" {
		errs = append(errs, errors.New("PORT is required"))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	switch c.DBDriver {
	case "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER must be postgres or sqlite, got %q", c.DBDriver))
	}
	switch c.SessionStore {
	case "", "file", "redis":
	default:
		errs = append(errs, fmt.Errorf("SESSION_STORE must be file or redis, got %q", c.SessionStore))
	}
	if c.BackendURL != "" {
		if u, err := url.Parse(c.BackendURL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("BACKEND_URL must be an absolute URL, got %q", c.BackendURL))
		}
	}
	if c.UploadMaxMB <= 0 {
		errs = append(errs, errors.New("UPLOAD_MAX_MB must be positive"))
	}
	if c.ChatPollInterval <= 0 {
		errs = append(errs, errors.New("CHAT_POLL_INTERVAL must be positive"))
	}
	if c.ChatMaxBackoff < c.ChatPollInterval {
		errs = append(errs, errors.New("CHAT_MAX_BACKOFF must not be shorter than CHAT_POLL_INTERVAL"))
	}

	if c.IsProduction() {
		if c.JWTSecret == defaultJWTSecret {
			errs = append(errs, errors.New("JWT_SECRET must be changed from the default value in production"))
		}
		if len(c.JWTSecret) < 32 {
			errs = append(errs, errors.New("JWT_SECRET must be at least 32 characters in production"))
		}
		if c.DBDriver == "postgres" && (c.DBPassword == "password" || c.DBPassword == "") {
			errs = append(errs, errors.New("a strong DB_PASSWORD is required in production"))
		}
		if c.DBDriver == "postgres" && (c.DBSSLMode == "disable" || c.DBSSLMode == "") {
			errs = append(errs, errors.New("DB_SSLMODE must not be 'disable' in production"))
		}
		if c.AllowedOrigins == "*" {
			log.Println("WARNING: ALLOWED_ORIGINS is set to '*' in production. This is insecure.")
		}
	} else if len(c.JWTSecret) < 32 {
		log.Println("WARNING: JWT_SECRET is shorter than 32 characters. Consider using a stronger secret for production.")
	}

	return errors.Join(errs...)
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
