package config

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// EnvironmentType represents the application environment
type EnvironmentType string

const (
	EnvironmentDevelopment EnvironmentType = "development"
	EnvironmentProduction  EnvironmentType = "production"
)

// String returns the string representation of the environment type
func (e EnvironmentType) String() string {
	return string(e)
}

// IsValid checks if the environment type is valid
func (e EnvironmentType) IsValid() bool {
	switch e {
	case EnvironmentDevelopment, EnvironmentProduction:
		return true
	default:
		return false
	}
}

// Environment holds the environment variables
type Environment struct {
	Environment  EnvironmentType `env:"ENVIRONMENT"`
	ConfigPath   string          `env:"CONFIG_PATH"`
	JWTPublicKey string          `env:"JWT_PUBLIC_KEY"`
	SMTPPassword string          `env:"SMTP_PASSWORD"`
}

// LoadEnv loads the environment variables, reading a .env file first when present
func LoadEnv() *Environment {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("Failed to load .env file", "error", err)
	}

	envStr := getEnv("ENVIRONMENT", string(EnvironmentDevelopment))
	envStr = strings.TrimSpace(envStr)
	envStr = strings.ToLower(envStr)
	envType := EnvironmentType(envStr)

	if !envType.IsValid() {
		envType = EnvironmentDevelopment
	}

	return &Environment{
		Environment:  envType,
		ConfigPath:   getEnv("CONFIG_PATH", "config.yaml"),
		JWTPublicKey: getEnv("JWT_PUBLIC_KEY", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
	}
}

// Apply copies secrets from the environment over the file configuration
func (e *Environment) Apply(cfg *Config) {
	if e.JWTPublicKey != "" {
		cfg.Auth.JWTPublicKeyBase64 = e.JWTPublicKey
	}
	if e.SMTPPassword != "" {
		cfg.SMTP.Password = e.SMTPPassword
	}
}

// getEnv gets the environment variable with a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value != "" {
		return value
	}
	return defaultValue
}

// LoadJWTPublicKey decodes the base64 session verification key.
// The decoded bytes may be PEM or raw DER, in PKIX or PKCS#1 form.
func LoadJWTPublicKey(encoded string) (*rsa.PublicKey, error) {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return nil, fmt.Errorf("jwt public key is required")
	}

	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode jwt public key: %w", err)
	}

	der := raw
	if block, _ := pem.Decode(raw); block != nil {
		der = block.Bytes
	}

	if key, err := x509.ParsePKCS1PublicKey(der); err == nil {
		return key, nil
	}

	pub, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, fmt.Errorf("failed to parse jwt public key: %w", err)
	}

	rsaKey, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("jwt public key is not an RSA key")
	}

	return rsaKey, nil
}
