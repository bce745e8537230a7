package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"time"

	"github.com/goccy/go-yaml"
)

// Config holds the application configuration
type Config struct {
	App           AppConfig           `yaml:"app"`
	Server        ServerConfig        `yaml:"server"`
	Auth          AuthConfig          `yaml:"auth"`
	Database      DatabaseConfig      `yaml:"database"`
	WorkerPool    WorkerPoolConfig    `yaml:"worker_pool"`
	Redis         RedisConfig         `yaml:"redis"`
	Identity      IdentityConfig      `yaml:"identity"`
	SMTP          SMTPConfig          `yaml:"smtp"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Redirections  RedirectionsConfig  `yaml:"redirections"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// AppConfig holds app-specific configuration
type AppConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Host           string   `yaml:"host"`
	Port           int      `yaml:"port"`
	BodyLimit      int      `yaml:"body_limit"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// AuthConfig holds session and device trust settings
type AuthConfig struct {
	JWTPublicKeyBase64        string `yaml:"jwt_public_key_base64"`
	JWTLeewaySecs             int    `yaml:"jwt_leeway_secs"`
	DeviceAddTokenValidSecs   int    `yaml:"device_add_token_valid_secs"`
	EmailSendingTimeoutSecs   int    `yaml:"email_sending_timeout_secs"`
	StrictChallengeTimestamps *bool  `yaml:"strict_challenge_timestamps"`
}

// DatabaseConfig holds database-specific configuration
type DatabaseConfig struct {
	Driver   string `yaml:"driver"` // postgres, memory
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// WorkerPoolConfig bounds the number of concurrent storage jobs
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// RedisConfig holds redis-specific configuration
type RedisConfig struct {
	Enabled          bool   `yaml:"enabled"`
	Host             string `yaml:"host"`
	Port             int    `yaml:"port"`
	Password         string `yaml:"password"`
	DB               int    `yaml:"db"`
	WatermarkTTLSecs int    `yaml:"watermark_ttl_secs"`
}

// IdentityConfig points at the upstream identity service
type IdentityConfig struct {
	URL         string `yaml:"url"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// SMTPConfig holds outgoing mail settings
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	From     string `yaml:"from"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	TLSMode  string `yaml:"tls_mode"` // auto, ssl, none
}

// NotificationsConfig holds links embedded into outgoing emails
type NotificationsConfig struct {
	DeviceConfirmURL string `yaml:"device_confirm_url"`
}

// RedirectionsConfig holds browser redirect targets
type RedirectionsConfig struct {
	ConfirmRegisterDeviceURL string `yaml:"confirm_register_device_url"`
}

// LoggingConfig holds logging-specific configuration
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

const (
	defaultBodyLimit           = 1024 * 1024
	defaultWorkerPoolSize      = 10
	defaultDeviceTokenValid    = 24 * 60 * 60
	defaultEmailSendingTimeout = 30
	defaultWatermarkTTL        = 10 * 60
	defaultIdentityTimeout     = 10
)

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &cfg, nil
}

// Address returns the server address in the format "host:port"
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// MaxBodyBytes returns the request body cap, defaulting to 1 MiB
func (s *ServerConfig) MaxBodyBytes() int {
	if s.BodyLimit <= 0 {
		return defaultBodyLimit
	}
	return s.BodyLimit
}

// Leeway is the clock skew tolerated when checking token expiry
func (a *AuthConfig) Leeway() time.Duration {
	return time.Duration(a.JWTLeewaySecs) * time.Second
}

// TokenExpiration is how long a pending device token can be confirmed
func (a *AuthConfig) TokenExpiration() time.Duration {
	if a.DeviceAddTokenValidSecs <= 0 {
		return defaultDeviceTokenValid * time.Second
	}
	return time.Duration(a.DeviceAddTokenValidSecs) * time.Second
}

// EmailSendingTimeout is the minimum gap between two confirmation emails for one key
func (a *AuthConfig) EmailSendingTimeout() time.Duration {
	if a.EmailSendingTimeoutSecs <= 0 {
		return defaultEmailSendingTimeout * time.Second
	}
	return time.Duration(a.EmailSendingTimeoutSecs) * time.Second
}

// StrictTimestamps reports whether device challenges must carry increasing timestamps.
// Defaults to true when unset.
func (a *AuthConfig) StrictTimestamps() bool {
	if a.StrictChallengeTimestamps == nil {
		return true
	}
	return *a.StrictChallengeTimestamps
}

// PoolSize returns the configured worker count, defaulting to 10
func (w *WorkerPoolConfig) PoolSize() int {
	if w.Size <= 0 {
		return defaultWorkerPoolSize
	}
	return w.Size
}

// Address returns the redis address in the format "host:port"
func (r *RedisConfig) Address() string {
	return net.JoinHostPort(r.Host, fmt.Sprintf("%d", r.Port))
}

// WatermarkTTL is how long a cached revoke watermark stays valid
func (r *RedisConfig) WatermarkTTL() time.Duration {
	if r.WatermarkTTLSecs <= 0 {
		return defaultWatermarkTTL * time.Second
	}
	return time.Duration(r.WatermarkTTLSecs) * time.Second
}

// Timeout returns the per-request timeout for identity calls
func (i *IdentityConfig) Timeout() time.Duration {
	if i.TimeoutSecs <= 0 {
		return defaultIdentityTimeout * time.Second
	}
	return time.Duration(i.TimeoutSecs) * time.Second
}

// UseMemory reports whether the in-process store was selected
func (d *DatabaseConfig) UseMemory() bool {
	return d.Driver == "memory"
}

// quoteDSNValue quotes a DSN value if it contains spaces or special characters.
// Single quotes inside the value are escaped by doubling them.
func quoteDSNValue(value string) string {
	needsQuoting := false
	for _, r := range value {
		if r == ' ' || r == '\'' || r == '\\' || r == '=' {
			needsQuoting = true
			break
		}
		if !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') ||
			r == '.' || r == '-' || r == '_' || r == '/' || r == '@' || r == ':') {
			needsQuoting = true
			break
		}
	}

	if !needsQuoting {
		return value
	}

	escaped := ""
	for _, r := range value {
		if r == '\'' {
			escaped += "''"
		} else {
			escaped += string(r)
		}
	}

	return "'" + escaped + "'"
}

// DSN returns the database connection string
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		quoteDSNValue(d.Host),
		d.Port,
		quoteDSNValue(d.User),
		quoteDSNValue(d.Password),
		quoteDSNValue(d.DBName),
		quoteDSNValue(d.SSLMode),
	)
}

// URL returns the database connection URL in postgres:// format for golang-migrate
func (d *DatabaseConfig) URL() string {
	userInfo := url.UserPassword(d.User, d.Password)

	// net.JoinHostPort wraps IPv6 hosts in brackets
	host := net.JoinHostPort(d.Host, fmt.Sprintf("%d", d.Port))

	u := &url.URL{
		Scheme:   "postgres",
		User:     userInfo,
		Host:     host,
		Path:     "/" + d.DBName,
		RawQuery: fmt.Sprintf("sslmode=%s&search_path=public", url.QueryEscape(d.SSLMode)),
	}

	return u.String()
}
