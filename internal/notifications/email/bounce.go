package email

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fixmystreet/internal/types"
)

// FeedbackType classifies asynchronous provider feedback.
type FeedbackType string

const (
	// FeedbackBounce is a permanent (hard) bounce.
	FeedbackBounce FeedbackType = "bounce"

	// FeedbackComplaint is a spam complaint from the recipient.
	FeedbackComplaint FeedbackType = "complaint"
)

// FeedbackEvent is a provider-neutral bounce or complaint for one recipient
// of one sent message.
type FeedbackEvent struct {
	ProviderMessageID string
	EmailAddress      string
	Reason            string
	Type              FeedbackType
	Timestamp         time.Time
}

// DeliveryLookup finds a delivery by the provider's message ID and updates
// its status.
type DeliveryLookup interface {
	FindByProviderMessageID(ctx context.Context, providerMsgID string) (*types.Delivery, error)
	UpdateDeliveryStatus(ctx context.Context, deliveryID string, status types.DeliveryStatus, reason string) error
}

// SubscriberRemover drops an address from a report's subscriber list.
type SubscriberRemover interface {
	DeleteSubscriberByEmail(ctx context.Context, reportID int64, email string) (bool, error)
}

// FeedbackProcessor applies bounces and complaints to delivery rows.
//
// A complaint about a report_update email also unsubscribes the
// complaining address from that report when a SubscriberRemover is set.
type FeedbackProcessor struct {
	deliveries  DeliveryLookup
	subscribers SubscriberRemover
	logger      types.Logger
}

// FeedbackProcessorConfig holds the dependencies for a FeedbackProcessor.
type FeedbackProcessorConfig struct {
	Deliveries  DeliveryLookup
	Subscribers SubscriberRemover
	Logger      types.Logger
}

func NewFeedbackProcessor(cfg FeedbackProcessorConfig) *FeedbackProcessor {
	return &FeedbackProcessor{
		deliveries:  cfg.Deliveries,
		subscribers: cfg.Subscribers,
		logger:      cfg.Logger,
	}
}

// Process handles a single FeedbackEvent. Feedback for a message with no
// delivery row is logged and dropped.
func (p *FeedbackProcessor) Process(ctx context.Context, event FeedbackEvent) error {
	p.logger.Info("processing email feedback",
		"provider_message_id", event.ProviderMessageID,
		"email", RedactEmail(event.EmailAddress),
		"type", string(event.Type),
	)

	delivery, err := p.deliveries.FindByProviderMessageID(ctx, event.ProviderMessageID)
	if err != nil {
		var appErr *types.AppError
		if errors.As(err, &appErr) && appErr.Code == types.ErrCodeNotFoundDelivery {
			p.logger.Warn("feedback for unknown message, dropping",
				"provider_message_id", event.ProviderMessageID,
			)
			return nil
		}
		return fmt.Errorf("feedback processor: find delivery: %w", err)
	}

	reason := fmt.Sprintf("%s: %s", event.Type, event.Reason)
	if err := p.deliveries.UpdateDeliveryStatus(ctx, delivery.ID, types.DeliveryStatusBounced, reason); err != nil {
		return fmt.Errorf("feedback processor: mark bounced: %w", err)
	}

	if event.Type != FeedbackComplaint || p.subscribers == nil || delivery.Kind != types.KindReportUpdate {
		return nil
	}

	removed, err := p.subscribers.DeleteSubscriberByEmail(ctx, delivery.ReportID, event.EmailAddress)
	if err != nil {
		// The delivery is already marked; unsubscribing is best effort.
		p.logger.Error("failed to unsubscribe complaining address",
			"report_id", delivery.ReportID,
			"email", RedactEmail(event.EmailAddress),
			"error", err.Error(),
		)
		return nil
	}
	if removed {
		p.logger.Info("unsubscribed complaining address",
			"report_id", delivery.ReportID,
			"email", RedactEmail(event.EmailAddress),
		)
	}
	return nil
}

// ProcessSNS parses an SNS feedback body and processes every event in it.
// Processing stops at the first error.
func (p *FeedbackProcessor) ProcessSNS(ctx context.Context, body []byte) (int, error) {
	events, err := ParseSNSFeedback(body)
	if err != nil {
		return 0, err
	}
	for i, ev := range events {
		if err := p.Process(ctx, ev); err != nil {
			return i, err
		}
	}
	return len(events), nil
}
