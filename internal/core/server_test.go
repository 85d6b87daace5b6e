package core

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"fixmystreet/internal/config"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := &config.Config{Environment: "local"}
	cfg.Server.TrustAccountHeader = true
	srv, err := NewServer(cfg, discardLogger())
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	return srv
}

func TestNewServer_Success(t *testing.T) {
	cfg := &config.Config{Environment: "local"}
	logger := discardLogger()

	srv, err := NewServer(cfg, logger)
	if err != nil {
		t.Fatalf("NewServer returned unexpected error: %v", err)
	}
	if srv.Config != cfg {
		t.Error("Config field not set correctly")
	}
	if srv.Logger != logger {
		t.Error("Logger field not set correctly")
	}
	if srv.Validator == nil {
		t.Error("Validator should be initialized by constructor")
	}
	if srv.Router() == nil || srv.Handler() == nil {
		t.Error("router should be initialized by constructor")
	}
}

func TestNewServer_RequiresConfigAndLogger(t *testing.T) {
	if _, err := NewServer(nil, discardLogger()); err == nil {
		t.Error("expected error for nil config")
	}
	if _, err := NewServer(&config.Config{}, nil); err == nil {
		t.Error("expected error for nil logger")
	}
}

func TestShutdown_RunsClosersInOrder(t *testing.T) {
	srv := newTestServer(t)
	var order []string
	srv.Closers = []func(){
		func() { order = append(order, "queue") },
		func() { order = append(order, "db") },
	}

	if err := srv.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if len(order) != 2 || order[0] != "queue" || order[1] != "db" {
		t.Errorf("unexpected closer order: %v", order)
	}
}

func TestShutdown_CancelledContext(t *testing.T) {
	srv := newTestServer(t)
	called := false
	srv.Closers = []func(){func() { called = true }}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := srv.Shutdown(ctx); err == nil {
		t.Error("expected context error")
	}
	if called {
		t.Error("closer should not run after cancellation")
	}
}
