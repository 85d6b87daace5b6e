package email

import (
	"context"

	"fixmystreet/internal/types"
)

type testLogger struct {
	infos  []string
	warns  []string
	errors []string
}

func newTestLogger() *testLogger {
	return &testLogger{}
}

func (l *testLogger) Info(msg string, args ...any)  { l.infos = append(l.infos, msg) }
func (l *testLogger) Warn(msg string, args ...any)  { l.warns = append(l.warns, msg) }
func (l *testLogger) Error(msg string, args ...any) { l.errors = append(l.errors, msg) }
func (l *testLogger) With(args ...any) types.Logger { return l }

// mockEmailProvider implements external.EmailProvider for testing.
type mockEmailProvider struct {
	sendCalled bool
	sendInput  types.SendInput
	sendMsgID  string
	sendErr    error
}

func (m *mockEmailProvider) Send(ctx context.Context, input types.SendInput) (string, error) {
	m.sendCalled = true
	m.sendInput = input
	if m.sendErr != nil {
		return "", m.sendErr
	}
	return m.sendMsgID, nil
}

// mockTemplateService implements TemplateService for testing.
type mockTemplateService struct {
	rendered  *RenderedEmail
	sender    types.SenderIdentity
	renderErr error
}

func (m *mockTemplateService) Render(msg *types.NotificationMessage) (*RenderedEmail, types.SenderIdentity, error) {
	if m.renderErr != nil {
		return nil, types.SenderIdentity{}, m.renderErr
	}
	rendered := m.rendered
	if rendered == nil {
		rendered = &RenderedEmail{
			Subject:  "Test Subject",
			BodyHTML: "<p>Test</p>",
			BodyText: "Test",
		}
	}
	return rendered, m.sender, nil
}
