package email

import (
	"context"
	"errors"

	"fixmystreet/internal/external"
	"fixmystreet/internal/types"
)

// EmailChannel renders a NotificationMessage and sends it through an
// external EmailProvider.
type EmailChannel struct {
	provider  external.EmailProvider
	templates TemplateService
	logger    types.Logger
	testMode  bool
}

// EmailChannelConfig holds the dependencies needed to create an EmailChannel.
type EmailChannelConfig struct {
	Provider  external.EmailProvider
	Templates TemplateService
	Logger    types.Logger
	// TestMode suppresses every send and reports the delivery as skipped.
	TestMode bool
}

// NewEmailChannel creates a new EmailChannel with the given dependencies.
func NewEmailChannel(cfg EmailChannelConfig) *EmailChannel {
	return &EmailChannel{
		provider:  cfg.Provider,
		templates: cfg.Templates,
		logger:    cfg.Logger,
		testMode:  cfg.TestMode,
	}
}

// Deliver sends msg as a single email to all of msg.To with msg.CC copied.
//
// A nil error with a result means the outcome is final for this attempt:
// sent, skipped (test mode or no recipients), or bounced (blocklisted). A
// non-nil error is a transient failure the caller may retry.
func (e *EmailChannel) Deliver(ctx context.Context, msg *types.NotificationMessage) (*types.DeliveryResult, error) {
	e.logger.Info("attempting email delivery",
		"notification_id", msg.NotificationID,
		"kind", string(msg.Kind),
		"to", RedactAll(msg.To),
		"cc_count", len(msg.CC),
	)

	if len(msg.To) == 0 {
		e.logger.Warn("no recipients, skipping", "notification_id", msg.NotificationID)
		return &types.DeliveryResult{
			Status:        types.DeliveryStatusSkipped,
			FailureReason: ErrNoRecipients.Error(),
		}, nil
	}

	if e.testMode {
		e.logger.Info("test mode: suppressing email", "notification_id", msg.NotificationID)
		return &types.DeliveryResult{
			Status:            types.DeliveryStatusSkipped,
			ProviderMessageID: "test-simulated",
		}, nil
	}

	rendered, sender, err := e.templates.Render(msg)
	if err != nil {
		e.logger.Error("template rendering failed",
			"kind", string(msg.Kind),
			"error", err.Error(),
		)
		return nil, err
	}

	msgID, err := e.provider.Send(ctx, types.SendInput{
		To:          msg.To,
		CC:          msg.CC,
		ReplyTo:     msg.ReplyTo,
		From:        sender,
		Subject:     rendered.Subject,
		BodyHTML:    rendered.BodyHTML,
		BodyText:    rendered.BodyText,
		ReferenceID: msg.NotificationID,
	})
	if err != nil {
		if IsBlocklistError(err) {
			e.logger.Warn("recipient blocked by provider",
				"to", RedactAll(msg.To),
				"notification_id", msg.NotificationID,
			)
			return &types.DeliveryResult{
				Status:        types.DeliveryStatusBounced,
				FailureReason: "address_blocked",
				Retryable:     false,
			}, nil
		}
		return nil, err
	}

	return &types.DeliveryResult{
		ProviderMessageID: msgID,
		Status:            types.DeliveryStatusSent,
	}, nil
}

// ShouldRetry reports whether err is transient. Blocklist and template
// errors are terminal; everything else is retried.
func (e *EmailChannel) ShouldRetry(err error) bool {
	if err == nil {
		return false
	}
	if IsBlocklistError(err) {
		return false
	}

	var appErr *types.AppError
	if errors.As(err, &appErr) {
		switch appErr.Code {
		case types.ErrCodeEmailBlocked, types.ErrCodeInternalTemplate:
			return false
		case types.ErrCodeUpstreamRateLimited, types.ErrCodeUpstreamUnavailable, types.ErrCodeUpstreamEmailProvider:
			return true
		}
	}
	return true
}
