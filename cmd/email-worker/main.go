// Package main is the entrypoint for the Email Worker Lambda function.
//
// The worker consumes the notification queue filled by the API after each
// committed report, update or subscriber confirmation, renders the message
// for its kind and sends it through the configured email provider. The same
// queue receives SES bounce and complaint notifications via SNS.
//
// Cold start:
//  1. Load configuration (SSM outside local mode) and build the logger.
//  2. Open the database pool and the delivery/subscriber repositories.
//  3. Build the email provider, renderer and EmailChannel.
//  4. Build the DeliveryManager, retry publisher and metrics.
//  5. Call lambda.Start, or read one SQS event from stdin when APP_ENV=local.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"fixmystreet/internal/config"
	"fixmystreet/internal/db"
	"fixmystreet/internal/external"
	"fixmystreet/internal/notifications/core"
	"fixmystreet/internal/notifications/email"
	"fixmystreet/internal/types"
)

// slogAdapter wraps *slog.Logger to implement types.Logger, whose With
// returns types.Logger rather than *slog.Logger.
type slogAdapter struct {
	logger *slog.Logger
}

func (a *slogAdapter) Info(msg string, args ...any)  { a.logger.Info(msg, args...) }
func (a *slogAdapter) Error(msg string, args ...any) { a.logger.Error(msg, args...) }
func (a *slogAdapter) Warn(msg string, args ...any)  { a.logger.Warn(msg, args...) }
func (a *slogAdapter) With(args ...any) types.Logger {
	return &slogAdapter{logger: a.logger.With(args...)}
}

var _ types.Logger = (*slogAdapter)(nil)

// noopMetrics is used when ENABLE_METRICS=false.
type noopMetrics struct{}

func (noopMetrics) RecordDelivery(context.Context, types.NotificationKind, core.MetricResult) {}
func (noopMetrics) RecordLatency(context.Context, types.NotificationKind, time.Duration)      {}
func (noopMetrics) RecordQueueLag(context.Context, time.Duration)                             {}

var _ core.NotificationMetrics = noopMetrics{}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var provider config.SecretProvider
	if os.Getenv("APP_ENV") != "local" {
		provider = config.NewSSMProvider(os.Getenv("AWS_REGION"))
	}
	cfg, err := config.LoadConfig(provider, config.ComponentEmailWorker)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	logger.Info("email worker initializing (cold start)",
		"environment", cfg.Environment,
		"version", cfg.Build.Version,
		"test_mode", cfg.IsTestMode,
	)
	typedLogger := &slogAdapter{logger: logger}

	ctx := context.Background()
	awsCfg, err := config.LoadAWSConfig(ctx, cfg.AWS)
	if err != nil {
		return fmt.Errorf("loading AWS config: %w", err)
	}

	pool, err := db.NewPool(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer pool.Close()

	deliveries := db.NewDeliveryRepository(pool)
	subscribers := db.NewSubscriberRepository(pool)

	registry, err := external.NewClientRegistry(cfg, logger, external.WithAWSConfig(awsCfg))
	if err != nil {
		return fmt.Errorf("building email provider: %w", err)
	}

	renderer, err := email.NewRenderer(email.RendererConfig{
		DefaultFromAddr: cfg.Email.FromAddress,
		DefaultFromName: cfg.Email.FromName,
	})
	if err != nil {
		return fmt.Errorf("parsing email templates: %w", err)
	}

	var metrics core.NotificationMetrics = noopMetrics{}
	if cfg.Observability.EnableMetrics {
		metrics = core.NewCloudWatchNotificationMetrics(
			cloudwatch.NewFromConfig(awsCfg), cfg.Observability.MetricNamespace, typedLogger)
	}

	handler := &Handler{
		channel: email.NewEmailChannel(email.EmailChannelConfig{
			Provider:  registry.Email,
			Templates: renderer,
			Logger:    typedLogger,
			TestMode:  cfg.IsTestMode,
		}),
		deliveryMgr: core.NewDeliveryManager(deliveries, core.EmailRetryPolicy, typedLogger),
		publisher:   core.NewNotificationPublisher(sqs.NewFromConfig(awsCfg), cfg.AWS.NotificationQueue, typedLogger),
		metrics:     metrics,
		feedback: email.NewFeedbackProcessor(email.FeedbackProcessorConfig{
			Deliveries:  deliveries,
			Subscribers: subscribers,
			Logger:      typedLogger,
		}),
		retryPolicy: core.EmailRetryPolicy,
		concurrency: cfg.Worker.Concurrency,
		logger:      typedLogger,
		now:         time.Now,
	}

	logger.Info("email worker initialized",
		"notification_queue", cfg.AWS.NotificationQueue,
		"concurrency", cfg.Worker.Concurrency,
		"metrics_enabled", cfg.Observability.EnableMetrics,
	)

	if cfg.Environment == "local" {
		return runLocal(ctx, handler, os.Stdin, os.Stderr, logger)
	}

	lambda.Start(handler.Handle)
	return nil
}

// runLocal reads one JSON SQS event from in and runs it through the handler,
// writing any batch failures to out.
// Usage: echo '{"Records":[{"messageId":"1","body":"{...}"}]}' | go run ./cmd/email-worker
func runLocal(ctx context.Context, handler *Handler, in io.Reader, out io.Writer, logger *slog.Logger) error {
	logger.Info("APP_ENV=local: reading SQS event from stdin")
	payload, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("reading stdin: %w", err)
	}
	if len(payload) == 0 {
		return fmt.Errorf("no input received on stdin")
	}

	var sqsEvent events.SQSEvent
	if err := json.Unmarshal(payload, &sqsEvent); err != nil {
		return fmt.Errorf("parsing stdin as SQS event: %w", err)
	}

	response, err := handler.Handle(ctx, sqsEvent)
	if err != nil {
		return fmt.Errorf("handler execution failed: %w", err)
	}
	if len(response.BatchItemFailures) > 0 {
		logger.Warn("handler reported partial failures", "failed_count", len(response.BatchItemFailures))
		respJSON, _ := json.MarshalIndent(response, "", "  ")
		fmt.Fprintln(out, string(respJSON))
	}
	logger.Info("handler execution completed",
		"records_processed", len(sqsEvent.Records),
		"failures", len(response.BatchItemFailures),
	)
	return nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
