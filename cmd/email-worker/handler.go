package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"golang.org/x/sync/errgroup"

	"fixmystreet/internal/notifications/core"
	"fixmystreet/internal/notifications/email"
	"fixmystreet/internal/queue"
	"fixmystreet/internal/types"
)

// Channel sends one rendered message.
type Channel interface {
	Deliver(ctx context.Context, msg *types.NotificationMessage) (*types.DeliveryResult, error)
	ShouldRetry(err error) bool
}

// RetryPublisher re-queues a message after delay.
type RetryPublisher interface {
	Publish(ctx context.Context, msg types.NotificationMessage, delay time.Duration) error
}

// FeedbackHandler applies SES bounce and complaint notifications.
type FeedbackHandler interface {
	ProcessSNS(ctx context.Context, body []byte) (int, error)
}

var (
	_ Channel         = (*email.EmailChannel)(nil)
	_ RetryPublisher  = (*core.NotificationPublisher)(nil)
	_ FeedbackHandler = (*email.FeedbackProcessor)(nil)
)

// Handler processes SQS batches from the notification queue. The same
// queue also carries SES feedback published through SNS.
type Handler struct {
	channel     Channel
	deliveryMgr core.DeliveryManager
	publisher   RetryPublisher
	metrics     core.NotificationMetrics
	feedback    FeedbackHandler
	retryPolicy core.RetryPolicy
	concurrency int
	logger      types.Logger
	now         func() time.Time
}

// Handle processes the batch with at most h.concurrency records in flight.
// Records that fail transiently are reported in BatchItemFailures so SQS
// redelivers only those. Handle itself never fails the whole batch.
func (h *Handler) Handle(ctx context.Context, sqsEvent events.SQSEvent) (events.SQSEventResponse, error) {
	var (
		mu       sync.Mutex
		response events.SQSEventResponse
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(h.concurrency, 1))

	for _, record := range sqsEvent.Records {
		g.Go(func() error {
			if err := h.processRecord(gctx, record); err != nil {
				h.logger.Error("failed to process SQS message",
					"message_id", record.MessageId,
					"error", err.Error(),
				)
				mu.Lock()
				response.BatchItemFailures = append(response.BatchItemFailures,
					events.SQSBatchItemFailure{ItemIdentifier: record.MessageId},
				)
				mu.Unlock()
			}
			// Per-record failures must not cancel siblings.
			return nil
		})
	}
	_ = g.Wait()

	return response, nil
}

func (h *Handler) processRecord(ctx context.Context, record events.SQSMessage) error {
	if email.IsSNSFeedback([]byte(record.Body)) {
		n, err := h.feedback.ProcessSNS(ctx, []byte(record.Body))
		if err != nil {
			return fmt.Errorf("process feedback: %w", err)
		}
		h.logger.Info("email feedback processed", "message_id", record.MessageId, "events", n)
		return nil
	}

	msg, err := queue.DecodeMessage(record.Body, attribute(record, queue.AttrContentEncoding))
	if err != nil {
		// A body that cannot be decoded never will be; ACK it.
		h.logger.Error("dropping undecodable notification message",
			"message_id", record.MessageId,
			"error", err.Error(),
		)
		return nil
	}
	if !msg.Kind.Valid() {
		h.logger.Error("dropping notification with unknown kind",
			"message_id", record.MessageId,
			"kind", string(msg.Kind),
		)
		return nil
	}

	logger := h.logger.With(
		"notification_id", msg.NotificationID,
		"kind", string(msg.Kind),
		"report_id", msg.ReportID,
		"retry_count", msg.RetryCount,
		"trace_id", msg.TraceID,
	)

	if sent, ok := record.Attributes["SentTimestamp"]; ok {
		if ms, err := strconv.ParseInt(sent, 10, 64); err == nil {
			h.metrics.RecordQueueLag(ctx, h.now().Sub(time.UnixMilli(ms)))
		}
	}

	delivery, created, err := h.deliveryMgr.EnsureDeliveryExists(ctx, msg)
	if err != nil {
		return err
	}
	if !created && delivery.Terminal() {
		logger.Info("delivery already finished, acknowledging duplicate",
			"delivery_id", delivery.ID,
			"status", string(delivery.Status),
		)
		return nil
	}

	if err := h.deliveryMgr.RecordAttempt(ctx, delivery.ID); err != nil {
		return err
	}

	start := h.now()
	result, deliverErr := h.channel.Deliver(ctx, &msg)
	h.metrics.RecordLatency(ctx, msg.Kind, h.now().Sub(start))

	if deliverErr != nil {
		if !h.channel.ShouldRetry(deliverErr) {
			if err := h.deliveryMgr.MarkFailed(ctx, delivery.ID, deliverErr.Error()); err != nil {
				return err
			}
			h.metrics.RecordDelivery(ctx, msg.Kind, core.MetricFailed)
			return nil
		}
		return h.retry(ctx, delivery.ID, msg, deliverErr, logger)
	}

	return h.settle(ctx, delivery.ID, msg, result, logger)
}

// settle records a final outcome returned by the channel.
func (h *Handler) settle(ctx context.Context, deliveryID string, msg types.NotificationMessage, result *types.DeliveryResult, logger types.Logger) error {
	if result == nil {
		return errors.New("channel returned neither result nor error")
	}

	switch result.Status {
	case types.DeliveryStatusSent:
		if err := h.deliveryMgr.MarkSuccess(ctx, deliveryID, result.ProviderMessageID); err != nil {
			return err
		}
		h.metrics.RecordDelivery(ctx, msg.Kind, core.MetricSuccess)

	case types.DeliveryStatusSkipped:
		reason := result.FailureReason
		if reason == "" {
			reason = "test_mode"
		}
		if err := h.deliveryMgr.MarkSkipped(ctx, deliveryID, reason); err != nil {
			return err
		}
		h.metrics.RecordDelivery(ctx, msg.Kind, core.MetricSkipped)

	case types.DeliveryStatusBounced:
		if err := h.deliveryMgr.MarkBounced(ctx, deliveryID, result.FailureReason); err != nil {
			return err
		}
		h.metrics.RecordDelivery(ctx, msg.Kind, core.MetricBounced)

	default:
		logger.Warn("unexpected delivery status", "status", string(result.Status))
		if err := h.deliveryMgr.MarkFailed(ctx, deliveryID, "unexpected_status: "+string(result.Status)); err != nil {
			return err
		}
		h.metrics.RecordDelivery(ctx, msg.Kind, core.MetricFailed)
	}
	return nil
}

// retry records the failed attempt and re-publishes msg with backoff while
// attempts remain. The original record is acknowledged either way; only a
// failed re-publish leaves it for SQS to redeliver.
func (h *Handler) retry(ctx context.Context, deliveryID string, msg types.NotificationMessage, cause error, logger types.Logger) error {
	again, err := h.deliveryMgr.MarkFailure(ctx, deliveryID, cause.Error())
	if err != nil {
		return err
	}
	h.metrics.RecordDelivery(ctx, msg.Kind, core.MetricFailed)

	if !again || msg.RetryCount >= h.retryPolicy.MaxAttempts {
		logger.Error("giving up on delivery", "delivery_id", deliveryID, "error", cause.Error())
		return nil
	}

	delay := core.CalculateNextRetry(h.retryPolicy, msg.RetryCount)
	if err := h.publisher.Publish(ctx, msg, delay); err != nil {
		return fmt.Errorf("publish retry: %w", err)
	}
	logger.Info("delivery retry scheduled",
		"delivery_id", deliveryID,
		"delay", delay.String(),
	)
	return nil
}

func attribute(record events.SQSMessage, name string) string {
	attr, ok := record.MessageAttributes[name]
	if !ok || attr.StringValue == nil {
		return ""
	}
	return *attr.StringValue
}
