package core

import (
	"context"
	"time"

	"fixmystreet/internal/queue"
	"fixmystreet/internal/types"
)

// NotificationPublisher re-publishes NotificationMessages to the notification
// queue for delayed retry.
//
// Publish increments msg.RetryCount before serializing, so the next consumer
// sees the updated retry state.
type NotificationPublisher struct {
	client   queue.SQSSender
	queueURL string
	logger   types.Logger
}

// NewNotificationPublisher creates a publisher targeting queueURL.
func NewNotificationPublisher(client queue.SQSSender, queueURL string, logger types.Logger) *NotificationPublisher {
	return &NotificationPublisher{
		client:   client,
		queueURL: queueURL,
		logger:   logger,
	}
}

// Publish increments RetryCount and sends msg with the given delay, clamped
// by SQS to at most 900 seconds.
func (p *NotificationPublisher) Publish(ctx context.Context, msg types.NotificationMessage, delay time.Duration) error {
	msg.RetryCount++

	if err := queue.Send(ctx, p.client, p.queueURL, msg, delay); err != nil {
		return err
	}

	p.logger.Info("notification message published",
		"notification_id", msg.NotificationID,
		"report_id", msg.ReportID,
		"retry_count", msg.RetryCount,
		"delay", delay.String(),
		"trace_id", msg.TraceID,
	)
	return nil
}
