// Package core holds the notification plumbing shared by the email worker:
// delivery state transitions, retry policy, re-publish and metrics.
package core

import (
	"context"
	"time"

	"fixmystreet/internal/types"
)

// DeliveryManager abstracts database state transitions for notification
// deliveries.
type DeliveryManager interface {
	// EnsureDeliveryExists is idempotent. Uses INSERT ... ON CONFLICT DO NOTHING
	// and returns the stored row either way.
	EnsureDeliveryExists(ctx context.Context, msg types.NotificationMessage) (*types.Delivery, bool, error)

	// RecordAttempt logs that a worker is about to try sending.
	RecordAttempt(ctx context.Context, deliveryID string) error

	// MarkSuccess updates status to 'sent' and sets delivered_at.
	MarkSuccess(ctx context.Context, deliveryID string, providerMsgID string) error

	// MarkFailure records a failed attempt and reports whether another
	// attempt is allowed.
	MarkFailure(ctx context.Context, deliveryID string, reason string) (shouldRetry bool, err error)

	// MarkFailed records a failure that no retry can fix, such as a
	// template error.
	MarkFailed(ctx context.Context, deliveryID string, reason string) error

	// MarkBounced records a permanent rejection by the provider.
	MarkBounced(ctx context.Context, deliveryID string, reason string) error

	// MarkSkipped is used when there is nobody to send to.
	MarkSkipped(ctx context.Context, deliveryID string, reason string) error
}

// MetricResult categorizes a delivery outcome for metrics reporting.
type MetricResult string

const (
	MetricSuccess MetricResult = "success"
	MetricFailed  MetricResult = "failed"
	MetricBounced MetricResult = "bounced"
	MetricSkipped MetricResult = "skipped"
)

// NotificationMetrics abstracts CloudWatch operations for the email worker.
type NotificationMetrics interface {
	RecordDelivery(ctx context.Context, kind types.NotificationKind, result MetricResult)
	RecordLatency(ctx context.Context, kind types.NotificationKind, duration time.Duration)
	RecordQueueLag(ctx context.Context, lag time.Duration)
}

// RetryPolicy defines the exponential backoff parameters for delivery retries.
type RetryPolicy struct {
	MaxAttempts   int
	BaseDelay     time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// EmailRetryPolicy is the policy used by the email worker.
var EmailRetryPolicy = RetryPolicy{
	MaxAttempts:   3,
	BaseDelay:     1 * time.Second,
	MaxDelay:      10 * time.Second,
	BackoffFactor: 2.0,
}

// CalculateNextRetry computes the delay before the next retry attempt using
// exponential backoff: delay = min(BaseDelay * BackoffFactor^attempt, MaxDelay).
func CalculateNextRetry(policy RetryPolicy, attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}

	delay := float64(policy.BaseDelay)
	for i := 0; i < attempt; i++ {
		delay *= policy.BackoffFactor
		if delay > float64(policy.MaxDelay) {
			break
		}
	}

	d := time.Duration(delay)
	if d > policy.MaxDelay || d < 0 {
		d = policy.MaxDelay
	}
	return d
}
