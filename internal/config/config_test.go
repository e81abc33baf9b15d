package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Env:              "development",
		Port:             "8375",
		BackendURL:       "http://localhost:8375",
		DBDriver:         "sqlite",
		JWTSecret:        "secure-secret-at-least-32-chars-long",
		UploadMaxMB:      10,
		SessionStore:     "file",
		ChatPollInterval: 3 * time.Second,
		ChatMaxBackoff:   30 * time.Second,
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(c *Config)
		expectError bool
	}{
		{"valid development", func(*Config) {}, false},
		{"missing port", func(c *Config) { c.Port = "" }, true},
		{"unknown driver", func(c *Config) { c.DBDriver = "mysql" }, true},
		{"relative backend url", func(c *Config) { c.BackendURL = "backend:8375" }, true},
		{"unknown session store", func(c *Config) { c.SessionStore = "cookie" }, true},
		{"backoff shorter than poll", func(c *Config) { c.ChatMaxBackoff = time.Second }, true},
		{"production default secret", func(c *Config) {
			c.Env = "production"
			c.JWTSecret = defaultJWTSecret
		}, true},
		{"production postgres without ssl", func(c *Config) {
			c.Env = "production"
			c.DBDriver = "postgres"
			c.DBPassword = "s3cure-db-pass"
			c.DBSSLMode = "disable"
		}, true},
		{"production postgres with ssl", func(c *Config) {
			c.Env = "production"
			c.DBDriver = "postgres"
			c.DBPassword = "s3cure-db-pass"
			c.DBSSLMode = "require"
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			err := c.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_ValidateReportsAllProblems(t *testing.T) {
	c := validConfig()
	c.Port = ""
	c.DBDriver = "mysql"

	err := c.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PORT is required")
	assert.Contains(t, err.Error(), "DB_DRIVER")
}

func TestLoadConfig_EnvOverridesAndNormalization(t *testing.T) {
	defer viper.Reset()
	t.Setenv("APP_ENV", "test")
	t.Setenv("DB_DRIVER", "  SQLite ")
	t.Setenv("BACKEND_URL", "http://backend.internal:8375/")
	t.Setenv("CHAT_POLL_INTERVAL", "5s")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, "http://backend.internal:8375", cfg.BackendURL)
	assert.Equal(t, 5*time.Second, cfg.ChatPollInterval)
	assert.Equal(t, 30*time.Second, cfg.ChatMaxBackoff)
	assert.True(t, cfg.IsLocal())
}

func TestConfig_Lists(t *testing.T) {
	c := &Config{
		AllowedOrigins:   "http://a.test, ,http://b.test",
		LegacyImageHosts: "3.38.145.117,ec2-",
	}
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, c.Origins())
	assert.Equal(t, []string{"3.38.145.117", "ec2-"}, c.LegacyHosts())
	assert.Nil(t, (&Config{}).Origins())
}
