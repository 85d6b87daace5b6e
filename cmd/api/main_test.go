package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"fixmystreet/internal/config"
	"fixmystreet/internal/core"
	"fixmystreet/internal/lifecycle"
	"fixmystreet/internal/routing"
	"fixmystreet/internal/types"
)

// stubLifecycle answers every call with a fixed value and records which
// method the router reached.
type stubLifecycle struct {
	last string
}

func (s *stubLifecycle) CreateReport(context.Context, lifecycle.CreateReportInput, types.Actor) (*types.Report, error) {
	s.last = "CreateReport"
	return &types.Report{ID: 1}, nil
}

func (s *stubLifecycle) CreateUpdate(context.Context, int64, lifecycle.CreateUpdateInput, types.Actor) (*types.ReportUpdate, error) {
	s.last = "CreateUpdate"
	return &types.ReportUpdate{ID: 2}, nil
}

func (s *stubLifecycle) CreateSubscriber(context.Context, int64, string, types.Actor) (*types.ReportSubscriber, error) {
	s.last = "CreateSubscriber"
	return &types.ReportSubscriber{ID: 3}, nil
}

func (s *stubLifecycle) FlagReport(context.Context, int64, lifecycle.FlagInput) error {
	s.last = "FlagReport"
	return nil
}

func (s *stubLifecycle) ResolveRouting(context.Context, int64) (routing.Recipients, error) {
	s.last = "ResolveRouting"
	return routing.Recipients{}, nil
}

func (s *stubLifecycle) ConfirmUpdate(context.Context, string) (*types.ReportUpdate, error) {
	s.last = "ConfirmUpdate"
	return &types.ReportUpdate{ID: 2, ReportID: 1}, nil
}

func (s *stubLifecycle) ConfirmSubscriber(context.Context, string) (*types.ReportSubscriber, error) {
	s.last = "ConfirmSubscriber"
	return &types.ReportSubscriber{ID: 3}, nil
}

func (s *stubLifecycle) Unsubscribe(context.Context, string) error {
	s.last = "Unsubscribe"
	return nil
}

func (s *stubLifecycle) DescribeRules(context.Context, int64, *int64) ([]routing.Description, error) {
	s.last = "DescribeRules"
	return nil, nil
}

// buildTestServer wires the production route table around svc.
func buildTestServer(t *testing.T, svc lifecycleAPI, probes ...core.HealthProbe) *core.Server {
	t.Helper()

	cfg := &config.Config{Environment: "local"}
	cfg.Build.Version = "test"
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	srv, err := core.NewServer(cfg, logger)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	srv.HealthProbes = append(srv.HealthProbes, probes...)
	registerHandlers(srv, svc, logger)
	srv.MountRoutes()
	return srv
}

func TestHealthEndpoint(t *testing.T) {
	srv := buildTestServer(t, &stubLifecycle{},
		core.FuncProbe{ProbeName: "database", Fn: func(context.Context) error { return nil }})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("GET /health: got status %d; body: %s", rec.Code, rec.Body.String())
	}
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if resp["status"] != "healthy" || resp["version"] != "test" {
		t.Errorf("unexpected health body: %v", resp)
	}
}

func TestHealthEndpoint_DatabaseDown(t *testing.T) {
	srv := buildTestServer(t, &stubLifecycle{},
		core.FuncProbe{ProbeName: "database", Fn: func(context.Context) error { return errors.New("refused") }})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("GET /health: got status %d, want 503", rec.Code)
	}
}

func TestRouteTable(t *testing.T) {
	tests := []struct {
		method, path string
		wantCall     string
		wantStatus   int
	}{
		{http.MethodGet, "/v1/reports/7/routing", "ResolveRouting", http.StatusOK},
		{http.MethodGet, "/v1/cities/3/rules", "DescribeRules", http.StatusOK},
		{http.MethodPost, "/v1/updates/confirm/abc_DEF-123", "ConfirmUpdate", http.StatusOK},
		{http.MethodPost, "/v1/subscribers/confirm/abc_DEF-123", "ConfirmSubscriber", http.StatusOK},
		{http.MethodDelete, "/v1/subscribers/abc_DEF-123", "Unsubscribe", http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			svc := &stubLifecycle{}
			srv := buildTestServer(t, svc)

			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d; body: %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if svc.last != tt.wantCall {
				t.Errorf("reached %q, want %q", svc.last, tt.wantCall)
			}
		})
	}
}

func TestUnknownRoute(t *testing.T) {
	svc := &stubLifecycle{}
	srv := buildTestServer(t, svc)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/wards", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
	if svc.last != "" {
		t.Errorf("service should not be reached, got %q", svc.last)
	}
}

func TestNewLogger(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", "unknown"} {
		t.Run(level, func(t *testing.T) {
			if newLogger(level) == nil {
				t.Fatalf("newLogger(%q) returned nil", level)
			}
		})
	}
}
