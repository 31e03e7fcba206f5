package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Auth modes.
const (
	AuthModeDevelopment = "development"
	AuthModeJWT         = "jwt"
)

// Policy sources for the role/permission table.
const (
	PolicySourceEmbedded = "embedded"
	PolicySourceFile     = "file"
	PolicySourcePostgres = "postgres"
)

type Config struct {
	Port           string   `mapstructure:"PORT"`
	Env            string   `mapstructure:"ENV"`
	AuthMode       string   `mapstructure:"AUTH_MODE"`
	AuthIssuer     string   `mapstructure:"AUTH_ISSUER"`
	AuthAudience   string   `mapstructure:"AUTH_AUDIENCE"`
	AuthJWKSURL    string   `mapstructure:"AUTH_JWKS_URL"`
	AuthSigningKey string   `mapstructure:"AUTH_SIGNING_KEY"`
	PolicySource   string   `mapstructure:"POLICY_SOURCE"`
	PolicyFile     string   `mapstructure:"POLICY_FILE"`
	DatabaseURL    string   `mapstructure:"DATABASE_URL"`
	DBMaxConns     int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns     int32    `mapstructure:"DB_MIN_CONNS"`
	DatasetFile    string   `mapstructure:"DATASET_FILE"`
	CORSOrigins    []string `mapstructure:"CORS_ORIGINS"`
	LogLevel       string   `mapstructure:"LOG_LEVEL"`
	LogFile        string   `mapstructure:"LOG_FILE"`
	LogMaxSizeMB   int      `mapstructure:"LOG_MAX_SIZE_MB"`
	LogMaxBackups  int      `mapstructure:"LOG_MAX_BACKUPS"`
	LogMaxAgeDays  int      `mapstructure:"LOG_MAX_AGE_DAYS"`
}

var keys = []string{
	"PORT", "ENV", "AUTH_MODE", "AUTH_ISSUER", "AUTH_AUDIENCE", "AUTH_JWKS_URL",
	"AUTH_SIGNING_KEY", "POLICY_SOURCE", "POLICY_FILE", "DATABASE_URL",
	"DB_MAX_CONNS", "DB_MIN_CONNS", "DATASET_FILE", "CORS_ORIGINS",
	"LOG_LEVEL", "LOG_FILE", "LOG_MAX_SIZE_MB", "LOG_MAX_BACKUPS", "LOG_MAX_AGE_DAYS",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("AUTH_MODE", "") // inferred from ENV
	v.SetDefault("POLICY_SOURCE", PolicySourceEmbedded)
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 1)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_MAX_SIZE_MB", 100)
	v.SetDefault("LOG_MAX_BACKUPS", 3)
	v.SetDefault("LOG_MAX_AGE_DAYS", 28)

	// Bind env vars explicitly so Unmarshal picks them up
	for _, k := range keys {
		v.BindEnv(k)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// ResolvedAuthMode returns the effective auth mode. An explicit AUTH_MODE
// wins; otherwise development environments use impersonation headers and
// everything else requires bearer tokens.
func (c *Config) ResolvedAuthMode() string {
	if c.AuthMode != "" {
		return c.AuthMode
	}
	if c.IsDev() {
		return AuthModeDevelopment
	}
	return AuthModeJWT
}

// Validate checks that the configuration is safe to run.
func (c *Config) Validate() error {
	switch mode := c.ResolvedAuthMode(); mode {
	case AuthModeDevelopment:
		if c.IsProduction() {
			return fmt.Errorf("AUTH_MODE %q is not allowed when ENV=production", mode)
		}
	case AuthModeJWT:
		if c.AuthIssuer == "" && c.AuthSigningKey == "" && c.AuthJWKSURL == "" {
			return fmt.Errorf(
				"AUTH_ISSUER, AUTH_JWKS_URL or AUTH_SIGNING_KEY must be set when AUTH_MODE is %q (current ENV=%q)",
				mode, c.Env)
		}
	default:
		return fmt.Errorf("AUTH_MODE must be %q or %q, got %q", AuthModeDevelopment, AuthModeJWT, mode)
	}

	switch c.PolicySource {
	case PolicySourceEmbedded:
	case PolicySourceFile:
		if c.PolicyFile == "" {
			return fmt.Errorf("POLICY_FILE is required when POLICY_SOURCE is %q", c.PolicySource)
		}
	case PolicySourcePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when POLICY_SOURCE is %q", c.PolicySource)
		}
	default:
		return fmt.Errorf("POLICY_SOURCE must be %q, %q or %q, got %q",
			PolicySourceEmbedded, PolicySourceFile, PolicySourcePostgres, c.PolicySource)
	}

	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) must not exceed DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	return nil
}
