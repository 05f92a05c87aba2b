// Package config defines the global configuration structure for the
// craftfolio backend. Configuration is loaded once at process start and is
// immutable thereafter. It follows 12-Factor principles by strictly
// separating code from configuration.
//
// Values are resolved via a priority chain:
//
//	OS Environment (Highest) -> Dotenv File (Lowest)
//
// Any missing required value or invalid format causes the application to
// fail immediately on startup.
package config

import (
	"time"

	"craftfolio/internal/types"
)

// SecretString is an alias for types.SecretString, the redacted secret type
// used throughout configuration to prevent accidental logging of sensitive
// values.
type SecretString = types.SecretString

// Config is the top-level configuration struct for the backend.
// It is populated once during process initialization and never modified.
// Sub-components receive only the specific config subsets they require.
type Config struct {
	// System Metadata
	Environment string `envconfig:"APP_ENV" default:"local" validate:"required,oneof=local dev staging prod"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	// Domain Configurations
	Server   ServerConfig
	Database DatabaseConfig
	Payment  PaymentConfig
	Auth     AuthConfig
	Security SecurityConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port           string        `envconfig:"PORT" default:"8080"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"29s"`
}

// DatabaseConfig holds database connection and pool tuning parameters.
type DatabaseConfig struct {
	URL SecretString `envconfig:"DATABASE_URL" validate:"required"`

	// Tuning Parameters
	MaxConns          int           `envconfig:"DB_MAX_CONNS" default:"10"`
	MinConns          int           `envconfig:"DB_MIN_CONNS" default:"2"`
	MaxConnLifetime   time.Duration `envconfig:"DB_MAX_CONN_LIFETIME" default:"30m"`
	AcquireTimeout    time.Duration `envconfig:"DB_ACQUIRE_TIMEOUT" default:"2s"`
	HealthCheckPeriod time.Duration `envconfig:"DB_HEALTH_CHECK_PERIOD" default:"1m"`
}

// PaymentConfig holds Razorpay integration credentials. KeySecret signs the
// payment callbacks; it must never appear in logs or serialized output.
type PaymentConfig struct {
	KeyID     string       `envconfig:"RAZORPAY_KEY_ID" validate:"required"`
	KeySecret SecretString `envconfig:"RAZORPAY_KEY_SECRET" validate:"required"`
	BaseURL   string       `envconfig:"RAZORPAY_BASE_URL" default:"https://api.razorpay.com"`
	Timeout   time.Duration `envconfig:"RAZORPAY_TIMEOUT" default:"20s"`
	Currency  string       `envconfig:"PAYMENT_CURRENCY" default:"INR"`
}

// AuthConfig holds the bearer-token verification key. Token issuance is
// owned by the external auth service; this backend only validates.
type AuthConfig struct {
	JWTSecret SecretString `envconfig:"JWT_SECRET" validate:"required,min=32"`
}

// SecurityConfig holds CORS settings.
type SecurityConfig struct {
	CorsAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
}
