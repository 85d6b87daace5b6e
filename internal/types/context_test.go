package types

import (
	"context"
	"testing"
)

type mockLogger struct {
	messages []string
}

func (m *mockLogger) Info(msg string, args ...any)  { m.messages = append(m.messages, "info:"+msg) }
func (m *mockLogger) Error(msg string, args ...any) { m.messages = append(m.messages, "error:"+msg) }
func (m *mockLogger) Warn(msg string, args ...any)  { m.messages = append(m.messages, "warn:"+msg) }
func (m *mockLogger) With(args ...any) Logger        { return m }

func TestWithActor_GetActor(t *testing.T) {
	t.Run("round-trip stores and retrieves actor", func(t *testing.T) {
		ctx := WithActor(context.Background(), NewAccountActor("jane@example.com"))
		got := GetActor(ctx)
		if !got.Authenticated {
			t.Fatal("expected authenticated actor")
		}
		if got.Email != "jane@example.com" {
			t.Errorf("Email: got %q, want %q", got.Email, "jane@example.com")
		}
	})

	t.Run("missing actor is anonymous", func(t *testing.T) {
		got := GetActor(context.Background())
		if got != Anonymous {
			t.Errorf("got %+v, want anonymous", got)
		}
	})
}

func TestActorOwns(t *testing.T) {
	a := NewAccountActor("jane@example.com")
	if !a.Owns("jane@example.com") {
		t.Error("expected actor to own its own email")
	}
	if a.Owns("Jane@example.com") {
		t.Error("ownership comparison must be exact")
	}
	if Anonymous.Owns("") {
		t.Error("anonymous actor owns nothing")
	}
}

func TestRequestIDAndLogger(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-1")
	if GetRequestID(ctx) != "req-1" {
		t.Errorf("GetRequestID = %q", GetRequestID(ctx))
	}
	if LoggerFromContext(ctx) != nil {
		t.Error("expected nil logger")
	}

	l := &mockLogger{}
	ctx = WithLogger(ctx, l)
	LoggerFromContext(ctx).Info("hello")
	if len(l.messages) != 1 || l.messages[0] != "info:hello" {
		t.Errorf("messages = %v", l.messages)
	}
}
