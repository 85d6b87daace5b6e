package external

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"fixmystreet/internal/types"
)

// StubEmailProvider logs sends and keeps them in memory instead of
// contacting a provider. Used for EMAIL_PROVIDER=stub and APP_ENV=local.
type StubEmailProvider struct {
	logger *slog.Logger

	mu   sync.Mutex
	sent []types.SendInput
}

func NewStubEmailProvider(logger *slog.Logger) *StubEmailProvider {
	if logger == nil {
		logger = slog.Default()
	}
	return &StubEmailProvider{logger: logger}
}

func (s *StubEmailProvider) Send(ctx context.Context, input types.SendInput) (string, error) {
	s.mu.Lock()
	s.sent = append(s.sent, input)
	n := len(s.sent)
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "stub: email send",
		"to_count", len(input.To),
		"cc_count", len(input.CC),
		"subject", input.Subject,
		"reference_id", input.ReferenceID,
	)
	return fmt.Sprintf("msg_stub_%d_%s", n, input.ReferenceID), nil
}

// Sent returns a copy of every input passed to Send so far.
func (s *StubEmailProvider) Sent() []types.SendInput {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.SendInput, len(s.sent))
	copy(out, s.sent)
	return out
}

var _ EmailProvider = (*StubEmailProvider)(nil)
