// Package external wraps the third-party email services the worker sends
// through. HTTP providers go through BaseClient, which adds circuit
// breaking, retry on 429/5xx and mapping to types.AppError codes.
package external

import (
	"context"

	"fixmystreet/internal/types"
)

// EmailProvider transmits one pre-rendered email to every address in
// input.To and input.CC and returns the provider's message ID.
//
// Errors are *types.AppError with one of ErrCodeEmailBlocked (terminal),
// ErrCodeUpstreamRateLimited, ErrCodeUpstreamUnavailable or
// ErrCodeUpstreamEmailProvider.
type EmailProvider interface {
	Send(ctx context.Context, input types.SendInput) (providerMsgID string, err error)
}

// Provider names accepted by EMAIL_PROVIDER.
const (
	ProviderSES      = "ses"
	ProviderSendGrid = "sendgrid"
	ProviderStub     = "stub"
)
