// Package config defines the process configuration shared by the API, the
// email worker and routectl. It is loaded once at startup and treated as
// immutable afterwards.
//
// Values are resolved in priority order:
//
//	OS Environment (Highest) -> Dotenv File -> AWS SSM Parameter Store (Lowest)
//
// A missing required value or an invalid format fails startup.
package config

import (
	"time"

	"fixmystreet/internal/types"
)

// SecretString is an alias for types.SecretString so callers can build a
// Config without importing types.
type SecretString = types.SecretString

// Config is the top-level configuration. Each binary reads only the
// sections it needs and declares them through a Component when loading.
type Config struct {
	Environment string `envconfig:"APP_ENV" validate:"required,oneof=local dev staging prod"`
	Service     string `envconfig:"SERVICE_NAME" default:"fixmystreet"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`
	IsTestMode  bool   `envconfig:"IS_TEST_MODE" default:"false"`

	Server        ServerConfig
	Database      DatabaseConfig
	AWS           AWSConfig
	Email         EmailConfig
	Site          SiteConfig
	Worker        WorkerConfig
	Observability ObservabilityConfig

	// Injected via ldflags, not the environment.
	Build BuildInfo
}

// ServerConfig holds HTTP listener and public URL settings.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8080"`
	// PublicBaseURL is the site root used in confirmation links (no trailing slash).
	PublicBaseURL string `envconfig:"PUBLIC_BASE_URL" validate:"omitempty,url"`
	// TrustAccountHeader enables reading X-Account-Email set by the gateway.
	TrustAccountHeader bool `envconfig:"TRUST_ACCOUNT_HEADER" default:"true"`

	CorsAllowedOrigins []string      `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
	RequestTimeout     time.Duration `envconfig:"REQUEST_TIMEOUT" default:"29s"`
}

// DatabaseConfig holds the Postgres DSN and pool tuning.
type DatabaseConfig struct {
	URL SecretString `envconfig:"DATABASE_URL"`

	MaxConns          int           `envconfig:"DB_MAX_CONNS" default:"10" validate:"min=1"`
	MinConns          int           `envconfig:"DB_MIN_CONNS" default:"2" validate:"min=0"`
	MaxConnLifetime   time.Duration `envconfig:"DB_MAX_CONN_LIFETIME" default:"30m"`
	MaxConnIdleTime   time.Duration `envconfig:"DB_MAX_CONN_IDLE_TIME" default:"5m"`
	HealthCheckPeriod time.Duration `envconfig:"DB_HEALTH_CHECK_PERIOD" default:"1m"`
}

// AWSConfig holds the region, queue URLs and an optional LocalStack endpoint.
type AWSConfig struct {
	Region            string `envconfig:"AWS_REGION" default:"ca-central-1"`
	NotificationQueue string `envconfig:"SQS_NOTIFICATIONS" validate:"omitempty,url"`
	DlqURL            string `envconfig:"SQS_DLQ" validate:"omitempty,url"`

	// Empty in production.
	EndpointURL string `envconfig:"AWS_ENDPOINT_URL" validate:"omitempty,url"`
}

// EmailConfig selects and configures the outbound email provider.
type EmailConfig struct {
	Provider         string       `envconfig:"EMAIL_PROVIDER" default:"ses" validate:"oneof=ses sendgrid stub"`
	FromAddress      string       `envconfig:"EMAIL_FROM_ADDRESS" default:"reports@fixmystreet.ca" validate:"email"`
	FromName         string       `envconfig:"EMAIL_FROM_NAME" default:"FixMyStreet"`
	SendGridAPIKey   SecretString `envconfig:"SENDGRID_API_KEY"`
	SendGridBaseURL  string       `envconfig:"SENDGRID_BASE_URL" default:"https://api.sendgrid.com" validate:"url"`
	SESConfigSetName string       `envconfig:"SES_CONFIGURATION_SET"`
}

// SiteConfig holds site-level addresses and the API's outbox relay timing.
type SiteConfig struct {
	// AdminEmail receives flagged reports.
	AdminEmail string `envconfig:"ADMIN_EMAIL" validate:"omitempty,email"`

	// OutboxRelayInterval is how often the API retries notifications that
	// were not queued right after commit.
	OutboxRelayInterval time.Duration `envconfig:"OUTBOX_RELAY_INTERVAL" default:"1m"`
	// OutboxRelayDelay is the minimum age of a pending outbox row before
	// the relay touches it.
	OutboxRelayDelay time.Duration `envconfig:"OUTBOX_RELAY_DELAY" default:"30s"`
}

// WorkerConfig tunes the email worker.
type WorkerConfig struct {
	Concurrency int `envconfig:"WORKER_CONCURRENCY" default:"5" validate:"min=1,max=50"`
}

// ObservabilityConfig holds telemetry settings.
type ObservabilityConfig struct {
	MetricNamespace string `envconfig:"METRIC_NAMESPACE" default:"FixMyStreet"`
	EnableMetrics   bool   `envconfig:"ENABLE_METRICS" default:"true"`
}

// BuildInfo holds build-time metadata injected via ldflags.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// Component names the binary loading the configuration. It decides which
// otherwise optional sections must be present.
type Component string

const (
	ComponentAPI         Component = "api"
	ComponentEmailWorker Component = "email-worker"
	ComponentMigrate     Component = "migrate"
)

// ConfigErrorType categorizes configuration loading failures.
type ConfigErrorType string

const (
	// ErrMissingEnv indicates a required environment variable was not found.
	ErrMissingEnv ConfigErrorType = "MISSING_ENV"
	// ErrSSMResolution indicates a failure fetching secrets from AWS SSM.
	ErrSSMResolution ConfigErrorType = "SSM_FAILURE"
	// ErrValidation indicates the configuration failed struct validation.
	ErrValidation ConfigErrorType = "VALIDATION_FAILED"
	// ErrParsing indicates an environment value could not be parsed into
	// its target type.
	ErrParsing ConfigErrorType = "PARSING_FAILED"
)

// missingFor lists the environment variables component needs but which are
// unset.
func (c *Config) missingFor(component Component) []string {
	var missing []string
	need := func(ok bool, env string) {
		if !ok {
			missing = append(missing, env)
		}
	}

	switch component {
	case ComponentAPI:
		need(c.Database.URL.IsSet(), "DATABASE_URL")
		need(c.AWS.NotificationQueue != "", "SQS_NOTIFICATIONS")
		need(c.Server.PublicBaseURL != "", "PUBLIC_BASE_URL")
		need(c.Site.AdminEmail != "", "ADMIN_EMAIL")
	case ComponentEmailWorker:
		need(c.Database.URL.IsSet(), "DATABASE_URL")
		need(c.AWS.NotificationQueue != "", "SQS_NOTIFICATIONS")
		if c.Email.Provider == "sendgrid" {
			need(c.Email.SendGridAPIKey.IsSet(), "SENDGRID_API_KEY")
		}
	case ComponentMigrate:
		need(c.Database.URL.IsSet(), "DATABASE_URL")
	}
	return missing
}
