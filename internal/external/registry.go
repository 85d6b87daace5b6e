package external

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"

	"fixmystreet/internal/config"
)

// ClientRegistry holds the external clients the worker needs.
type ClientRegistry struct {
	Email EmailProvider
}

type RegistryOption func(*registryConfig)

type registryConfig struct {
	awsConfig  *aws.Config
	httpClient *http.Client
}

// WithAWSConfig supplies the AWS config used to build the SES client.
// Required when EMAIL_PROVIDER=ses outside local mode.
func WithAWSConfig(cfg aws.Config) RegistryOption {
	return func(rc *registryConfig) {
		rc.awsConfig = &cfg
	}
}

// WithHTTPClient overrides the HTTP client used by HTTP providers.
func WithHTTPClient(c *http.Client) RegistryOption {
	return func(rc *registryConfig) {
		rc.httpClient = c
	}
}

// NewClientRegistry builds the email provider selected by cfg.Email.Provider.
// APP_ENV=local always uses the stub.
func NewClientRegistry(cfg *config.Config, logger *slog.Logger, opts ...RegistryOption) (*ClientRegistry, error) {
	if logger == nil {
		logger = slog.Default()
	}
	rc := &registryConfig{}
	for _, opt := range opts {
		opt(rc)
	}

	provider := cfg.Email.Provider
	if cfg.Environment == "local" {
		provider = ProviderStub
	}
	logger.Info("initializing email provider", "provider", provider, "environment", cfg.Environment)

	switch provider {
	case ProviderStub:
		return &ClientRegistry{Email: NewStubEmailProvider(logger.With("mode", "stub"))}, nil

	case ProviderSendGrid:
		httpClient := rc.httpClient
		if httpClient == nil {
			httpClient = &http.Client{Timeout: 10 * time.Second}
		}
		return &ClientRegistry{Email: NewSendGridClient(httpClient, SendGridClientConfig{
			APIKey:  cfg.Email.SendGridAPIKey.Unmask(),
			BaseURL: cfg.Email.SendGridBaseURL,
			Logger:  logger.With("client", "sendgrid"),
		})}, nil

	case ProviderSES:
		if rc.awsConfig == nil {
			return nil, fmt.Errorf("registry: ses provider requires an AWS config")
		}
		return &ClientRegistry{Email: NewSESClient(*rc.awsConfig, SESClientConfig{
			ConfigSetName: cfg.Email.SESConfigSetName,
			Logger:        logger.With("client", "ses"),
		})}, nil
	}

	return nil, fmt.Errorf("registry: unknown email provider %q", provider)
}
