package email

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"fixmystreet/internal/types"
)

func newReportMessage() *types.NotificationMessage {
	return &types.NotificationMessage{
		NotificationID: "n-42",
		Kind:           types.KindNewReport,
		ReportID:       42,
		To:             []string{"city@toronto.ca", "ward5@toronto.ca"},
		CC:             []string{"parks@toronto.ca"},
		ReplyTo:        "sam@example.com",
		Payload:        samplePayload(),
	}
}

func TestEmailChannelDeliver_Success(t *testing.T) {
	provider := &mockEmailProvider{sendMsgID: "ses-001"}
	ch := NewEmailChannel(EmailChannelConfig{
		Provider: provider,
		Templates: &mockTemplateService{
			sender: types.SenderIdentity{Name: "FixMyStreet", Address: "reports@fixmystreet.ca"},
		},
		Logger: newTestLogger(),
	})

	result, err := ch.Deliver(context.Background(), newReportMessage())
	if err != nil {
		t.Fatalf("Deliver() error: %v", err)
	}
	if result.Status != types.DeliveryStatusSent {
		t.Errorf("Status = %q, want sent", result.Status)
	}
	if result.ProviderMessageID != "ses-001" {
		t.Errorf("ProviderMessageID = %q, want ses-001", result.ProviderMessageID)
	}

	in := provider.sendInput
	if len(in.To) != 2 || in.To[0] != "city@toronto.ca" || in.To[1] != "ward5@toronto.ca" {
		t.Errorf("To = %v", in.To)
	}
	if len(in.CC) != 1 || in.CC[0] != "parks@toronto.ca" {
		t.Errorf("CC = %v", in.CC)
	}
	if in.ReplyTo != "sam@example.com" {
		t.Errorf("ReplyTo = %q", in.ReplyTo)
	}
	if in.ReferenceID != "n-42" {
		t.Errorf("ReferenceID = %q, want n-42", in.ReferenceID)
	}
	if in.From.Address != "reports@fixmystreet.ca" {
		t.Errorf("From = %+v", in.From)
	}
	if in.Subject != "Test Subject" || in.BodyText != "Test" {
		t.Errorf("rendered content not passed through: %+v", in)
	}
}

func TestEmailChannelDeliver_DuplicateRecipientsKept(t *testing.T) {
	provider := &mockEmailProvider{sendMsgID: "ses-002"}
	ch := NewEmailChannel(EmailChannelConfig{
		Provider:  provider,
		Templates: &mockTemplateService{},
		Logger:    newTestLogger(),
	})

	msg := newReportMessage()
	msg.To = []string{"city@toronto.ca", "city@toronto.ca"}
	if _, err := ch.Deliver(context.Background(), msg); err != nil {
		t.Fatalf("Deliver() error: %v", err)
	}
	if len(provider.sendInput.To) != 2 {
		t.Errorf("To = %v, want both entries", provider.sendInput.To)
	}
}

func TestEmailChannelDeliver_NoRecipients(t *testing.T) {
	provider := &mockEmailProvider{}
	logger := newTestLogger()
	ch := NewEmailChannel(EmailChannelConfig{
		Provider:  provider,
		Templates: &mockTemplateService{},
		Logger:    logger,
	})

	msg := newReportMessage()
	msg.To = nil
	result, err := ch.Deliver(context.Background(), msg)
	if err != nil {
		t.Fatalf("Deliver() error: %v", err)
	}
	if result.Status != types.DeliveryStatusSkipped {
		t.Errorf("Status = %q, want skipped", result.Status)
	}
	if provider.sendCalled {
		t.Error("provider should not be called without recipients")
	}
	if len(logger.warns) != 1 {
		t.Errorf("warns = %v", logger.warns)
	}
}

func TestEmailChannelDeliver_TestMode(t *testing.T) {
	provider := &mockEmailProvider{}
	ch := NewEmailChannel(EmailChannelConfig{
		Provider:  provider,
		Templates: &mockTemplateService{renderErr: errors.New("should not render")},
		Logger:    newTestLogger(),
		TestMode:  true,
	})

	result, err := ch.Deliver(context.Background(), newReportMessage())
	if err != nil {
		t.Fatalf("Deliver() error: %v", err)
	}
	if result.Status != types.DeliveryStatusSkipped || result.ProviderMessageID != "test-simulated" {
		t.Errorf("result = %+v", result)
	}
	if provider.sendCalled {
		t.Error("provider should not be called in test mode")
	}
}

func TestEmailChannelDeliver_RenderError(t *testing.T) {
	provider := &mockEmailProvider{}
	logger := newTestLogger()
	renderErr := types.NewAppError(types.ErrCodeInternalTemplate, "broken", nil)
	ch := NewEmailChannel(EmailChannelConfig{
		Provider:  provider,
		Templates: &mockTemplateService{renderErr: renderErr},
		Logger:    logger,
	})

	_, err := ch.Deliver(context.Background(), newReportMessage())
	if !errors.Is(err, renderErr) {
		t.Fatalf("Deliver() error = %v, want render error", err)
	}
	if provider.sendCalled {
		t.Error("provider should not be called when rendering fails")
	}
	if len(logger.errors) != 1 {
		t.Errorf("errors logged = %v", logger.errors)
	}
	if ch.ShouldRetry(err) {
		t.Error("template errors should not be retried")
	}
}

func TestEmailChannelDeliver_Blocked(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{name: "sentinel", err: ErrRecipientBlocked},
		{name: "app error", err: types.NewAppError(types.ErrCodeEmailBlocked, "suppressed", nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ch := NewEmailChannel(EmailChannelConfig{
				Provider:  &mockEmailProvider{sendErr: tt.err},
				Templates: &mockTemplateService{},
				Logger:    newTestLogger(),
			})

			result, err := ch.Deliver(context.Background(), newReportMessage())
			if err != nil {
				t.Fatalf("Deliver() error: %v", err)
			}
			if result.Status != types.DeliveryStatusBounced {
				t.Errorf("Status = %q, want bounced", result.Status)
			}
			if result.Retryable {
				t.Error("blocked recipients are not retryable")
			}
			if result.FailureReason != "address_blocked" {
				t.Errorf("FailureReason = %q", result.FailureReason)
			}
		})
	}
}

func TestEmailChannelDeliver_TransientError(t *testing.T) {
	sendErr := types.NewAppError(types.ErrCodeUpstreamUnavailable, "ses down", nil)
	ch := NewEmailChannel(EmailChannelConfig{
		Provider:  &mockEmailProvider{sendErr: sendErr},
		Templates: &mockTemplateService{},
		Logger:    newTestLogger(),
	})

	result, err := ch.Deliver(context.Background(), newReportMessage())
	if result != nil {
		t.Errorf("result = %+v, want nil", result)
	}
	if !errors.Is(err, sendErr) {
		t.Fatalf("Deliver() error = %v, want %v", err, sendErr)
	}
	if !ch.ShouldRetry(err) {
		t.Error("upstream unavailable should be retried")
	}
}

func TestEmailChannelShouldRetry(t *testing.T) {
	ch := NewEmailChannel(EmailChannelConfig{Logger: newTestLogger()})

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "blocked sentinel", err: ErrRecipientBlocked, want: false},
		{name: "wrapped blocked", err: fmt.Errorf("x: %w", ErrRecipientBlocked), want: false},
		{name: "email blocked code", err: types.NewAppError(types.ErrCodeEmailBlocked, "", nil), want: false},
		{name: "template", err: types.NewAppError(types.ErrCodeInternalTemplate, "", nil), want: false},
		{name: "rate limited", err: types.NewAppError(types.ErrCodeUpstreamRateLimited, "", nil), want: true},
		{name: "provider error", err: types.NewAppError(types.ErrCodeUpstreamEmailProvider, "", nil), want: true},
		{name: "network", err: errors.New("connection reset"), want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ch.ShouldRetry(tt.err); got != tt.want {
				t.Errorf("ShouldRetry() = %v, want %v", got, tt.want)
			}
		})
	}
}
