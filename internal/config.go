package internal

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"http_server" envPrefix:"HTTP_"`
	Database      DatabaseConfig      `mapstructure:"database" envPrefix:"DB_"`
	Redis         RedisConfig         `mapstructure:"redis" envPrefix:"REDIS_"`
	Security      SecurityConfig      `mapstructure:"security" envPrefix:"SECURITY_"`
	Mailer        MailerConfig        `mapstructure:"mailer" envPrefix:"MAILER_"`
	Invitation    InvitationConfig    `mapstructure:"invitation" envPrefix:"INVITATION_"`
	OpenAPI       OpenAPIConfig       `mapstructure:"openapi" envPrefix:"OPENAPI_"`
	Observability ObservabilityConfig `mapstructure:"observability" envPrefix:"OBSERVABILITY_"`
}

type ServerConfig struct {
	Port              int           `mapstructure:"port" env:"PORT" envDefault:"8080"`
	BaseURL           string        `mapstructure:"base_url" env:"BASE_URL"`
	AllowedOrigins    string        `mapstructure:"allowed_origins" env:"ALLOWED_ORIGINS"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" env:"READ_HEADER_TIMEOUT" envDefault:"5s"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout" env:"READ_TIMEOUT" envDefault:"15s"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout" env:"IDLE_TIMEOUT" envDefault:"60s"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout" env:"WRITE_TIMEOUT" envDefault:"15s"`
}

type DatabaseConfig struct {
	MaxOpenConns    int           `mapstructure:"max_open_conns" env:"MAX_OPEN_CONNS" envDefault:"20"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" env:"MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" env:"CONN_MAX_LIFETIME" envDefault:"30m"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time" env:"CONN_MAX_IDLE_TIME" envDefault:"5m"`
	Source          string        `mapstructure:"source" env:"SOURCE"`
}

type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled" env:"ENABLED"`
	Addr     string        `mapstructure:"addr" env:"ADDR" envDefault:"localhost:6379"`
	Password string        `mapstructure:"password" env:"PASSWORD"`
	DB       int           `mapstructure:"db" env:"DB"`
	LockTTL  time.Duration `mapstructure:"lock_ttl" env:"LOCK_TTL" envDefault:"10s"`
}

type SecurityConfig struct {
	AccessTokenSecret    string        `mapstructure:"access_token_secret" env:"ACCESS_TOKEN_SECRET"`
	RefreshTokenSecret   string        `mapstructure:"refresh_token_secret" env:"REFRESH_TOKEN_SECRET"`
	AccessTokenDuration  time.Duration `mapstructure:"access_token_duration" env:"ACCESS_TOKEN_DURATION" envDefault:"15m"`
	RefreshTokenDuration time.Duration `mapstructure:"refresh_token_duration" env:"REFRESH_TOKEN_DURATION" envDefault:"168h"`
	BCryptCost           int           `mapstructure:"bcrypt_cost" env:"BCRYPT_COST" envDefault:"12"`
}

// MailerConfig selects the delivery transport: "log" (default), "http" or "ses".
type MailerConfig struct {
	Provider     string        `mapstructure:"provider" env:"PROVIDER" envDefault:"log"`
	APIURL       string        `mapstructure:"api_url" env:"API_URL"`
	APIKey       string        `mapstructure:"api_key" env:"API_KEY"`
	From         string        `mapstructure:"from" env:"FROM" envDefault:"no-reply@staff.local"`
	Timeout      time.Duration `mapstructure:"timeout" env:"TIMEOUT" envDefault:"10s"`
	AWSRegion    string        `mapstructure:"aws_region" env:"AWS_REGION" envDefault:"eu-central-1"`
	AWSAccessKey string        `mapstructure:"aws_access_key" env:"AWS_ACCESS_KEY"`
	AWSSecretKey string        `mapstructure:"aws_secret_key" env:"AWS_SECRET_KEY"`
	TemplatePath string        `mapstructure:"template_path" env:"TEMPLATE_PATH"`
}

type InvitationConfig struct {
	AcceptURL string `mapstructure:"accept_url" env:"ACCEPT_URL" envDefault:"http://localhost:3000/invitations/accept"`
}

type OpenAPIConfig struct {
	SpecPath         string `mapstructure:"spec_path" env:"SPEC_PATH" envDefault:"./api/openapi.yml"`
	ValidateRequests bool   `mapstructure:"validate_requests" env:"VALIDATE_REQUESTS"`
}

type ObservabilityConfig struct {
	Logging LoggingConfig `mapstructure:"logging" envPrefix:"LOGGING_"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" env:"LEVEL" envDefault:"info"`
	Format string `mapstructure:"format" env:"FORMAT" envDefault:"json"`
}

// LoadConfigFromEnv reads the whole configuration from STAFF_ prefixed environment variables,
// e.g. STAFF_DB_SOURCE or STAFF_SECURITY_ACCESS_TOKEN_SECRET.
func LoadConfigFromEnv() (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: "STAFF_"}); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	return &cfg, nil
}

// ----------------- VALIDATION -----------------

func (c *Config) Validate() error {
	var errs []string

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server config: %v", err))
	}

	if err := c.Database.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("database config: %v", err))
	}

	if err := c.Redis.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("redis config: %v", err))
	}

	if err := c.Security.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("security config: %v", err))
	}

	if err := c.Mailer.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("mailer config: %v", err))
	}

	if err := c.Invitation.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("invitation config: %v", err))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

func (c *ServerConfig) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.AllowedOrigins != "" {
		origins := strings.Split(c.AllowedOrigins, ",")
		for _, origin := range origins {
			origin = strings.TrimSpace(origin)
			if origin == "*" {
				continue
			}
			if _, err := url.Parse(origin); err != nil {
				return fmt.Errorf("invalid allowed origin %s: %w", origin, err)
			}
		}
	}
	if c.ReadTimeout < c.ReadHeaderTimeout {
		return errors.New("read_timeout must be >= read_header_timeout")
	}
	return nil
}

func (c *DatabaseConfig) Validate() error {
	if c.Source == "" {
		return errors.New("source is required")
	}
	if c.MaxIdleConns > c.MaxOpenConns {
		return errors.New("max_idle_conns cannot be greater than max_open_conns")
	}
	return nil
}

func (c *DatabaseConfig) GetDSN() string {
	return c.Source
}

func (c *RedisConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Addr == "" {
		return errors.New("addr is required when redis is enabled")
	}
	if c.LockTTL <= 0 {
		return errors.New("lock_ttl must be positive")
	}
	return nil
}

func (c *SecurityConfig) Validate() error {
	if len(c.AccessTokenSecret) < 32 {
		return errors.New("access token secret must be at least 32 characters")
	}
	if len(c.RefreshTokenSecret) < 32 {
		return errors.New("refresh token secret must be at least 32 characters")
	}
	if c.AccessTokenDuration < time.Minute || c.AccessTokenDuration > time.Hour {
		return errors.New("access_token_duration must be between 1m and 1h")
	}
	if c.RefreshTokenDuration < time.Hour {
		return errors.New("refresh_token_duration must be at least 1h")
	}
	if c.BCryptCost < 10 || c.BCryptCost > 15 {
		return errors.New("bcrypt_cost must be between 10 and 15")
	}
	return nil
}

func (c *MailerConfig) Validate() error {
	if c.From == "" {
		return errors.New("from is required")
	}
	switch c.Provider {
	case "", "log":
		return nil
	case "http":
		if c.APIURL == "" {
			return errors.New("api_url is required for the http provider")
		}
		if _, err := url.ParseRequestURI(c.APIURL); err != nil {
			return fmt.Errorf("invalid api_url: %w", err)
		}
	case "ses":
		if c.AWSRegion == "" {
			return errors.New("aws_region is required for the ses provider")
		}
		if (c.AWSAccessKey == "") != (c.AWSSecretKey == "") {
			return errors.New("aws_access_key and aws_secret_key must be set together")
		}
	default:
		return fmt.Errorf("unknown provider %q", c.Provider)
	}
	if c.Timeout <= 0 {
		return errors.New("timeout must be positive")
	}
	return nil
}

func (c *InvitationConfig) Validate() error {
	if c.AcceptURL == "" {
		return errors.New("accept_url is required")
	}
	if _, err := url.ParseRequestURI(c.AcceptURL); err != nil {
		return fmt.Errorf("invalid accept_url: %w", err)
	}
	return nil
}
