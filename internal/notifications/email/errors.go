// Package email renders queued NotificationMessages into emails and hands
// them to an external EmailProvider. It also turns SES bounce and complaint
// feedback into delivery state changes.
package email

import (
	"errors"

	"fixmystreet/internal/types"
)

// ErrRecipientBlocked indicates the provider has the recipient on a
// suppression list. Terminal, never retried.
var ErrRecipientBlocked = errors.New("recipient blocked by provider")

// ErrNoRecipients is returned when a message reaches the channel with an
// empty To list.
var ErrNoRecipients = errors.New("message has no recipients")

// IsBlocklistError checks both the sentinel ErrRecipientBlocked and the
// AppError code ErrCodeEmailBlocked returned by provider clients.
func IsBlocklistError(err error) bool {
	if errors.Is(err, ErrRecipientBlocked) {
		return true
	}
	var appErr *types.AppError
	if errors.As(err, &appErr) {
		return appErr.Code == types.ErrCodeEmailBlocked
	}
	return false
}
