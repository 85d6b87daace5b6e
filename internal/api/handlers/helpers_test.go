package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"fixmystreet/internal/core"
	"fixmystreet/internal/lifecycle"
	"fixmystreet/internal/routing"
	"fixmystreet/internal/types"
)

// mockLifecycle implements every service interface in this package.
type mockLifecycle struct {
	createReportFn      func(ctx context.Context, in lifecycle.CreateReportInput, actor types.Actor) (*types.Report, error)
	createUpdateFn      func(ctx context.Context, reportID int64, in lifecycle.CreateUpdateInput, actor types.Actor) (*types.ReportUpdate, error)
	createSubscriberFn  func(ctx context.Context, reportID int64, email string, actor types.Actor) (*types.ReportSubscriber, error)
	flagReportFn        func(ctx context.Context, reportID int64, in lifecycle.FlagInput) error
	resolveRoutingFn    func(ctx context.Context, reportID int64) (routing.Recipients, error)
	confirmUpdateFn     func(ctx context.Context, token string) (*types.ReportUpdate, error)
	confirmSubscriberFn func(ctx context.Context, token string) (*types.ReportSubscriber, error)
	unsubscribeFn       func(ctx context.Context, token string) error
	describeRulesFn     func(ctx context.Context, cityID int64, wardID *int64) ([]routing.Description, error)

	calls int
}

func (m *mockLifecycle) CreateReport(ctx context.Context, in lifecycle.CreateReportInput, actor types.Actor) (*types.Report, error) {
	m.calls++
	return m.createReportFn(ctx, in, actor)
}

func (m *mockLifecycle) CreateUpdate(ctx context.Context, reportID int64, in lifecycle.CreateUpdateInput, actor types.Actor) (*types.ReportUpdate, error) {
	m.calls++
	return m.createUpdateFn(ctx, reportID, in, actor)
}

func (m *mockLifecycle) CreateSubscriber(ctx context.Context, reportID int64, email string, actor types.Actor) (*types.ReportSubscriber, error) {
	m.calls++
	return m.createSubscriberFn(ctx, reportID, email, actor)
}

func (m *mockLifecycle) FlagReport(ctx context.Context, reportID int64, in lifecycle.FlagInput) error {
	m.calls++
	return m.flagReportFn(ctx, reportID, in)
}

func (m *mockLifecycle) ResolveRouting(ctx context.Context, reportID int64) (routing.Recipients, error) {
	m.calls++
	return m.resolveRoutingFn(ctx, reportID)
}

func (m *mockLifecycle) ConfirmUpdate(ctx context.Context, token string) (*types.ReportUpdate, error) {
	m.calls++
	return m.confirmUpdateFn(ctx, token)
}

func (m *mockLifecycle) ConfirmSubscriber(ctx context.Context, token string) (*types.ReportSubscriber, error) {
	m.calls++
	return m.confirmSubscriberFn(ctx, token)
}

func (m *mockLifecycle) Unsubscribe(ctx context.Context, token string) error {
	m.calls++
	return m.unsubscribeFn(ctx, token)
}

func (m *mockLifecycle) DescribeRules(ctx context.Context, cityID int64, wardID *int64) ([]routing.Description, error) {
	m.calls++
	return m.describeRulesFn(ctx, cityID, wardID)
}

var (
	_ ReportService       = (*mockLifecycle)(nil)
	_ ConfirmationService = (*mockLifecycle)(nil)
	_ RuleDescriber       = (*mockLifecycle)(nil)
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newRouter mounts all handlers the way cmd/api does.
func newRouter(svc *mockLifecycle) http.Handler {
	v := core.NewValidator(nil)
	r := chi.NewRouter()
	r.Route("/v1", func(r chi.Router) {
		r.Route("/reports", NewReportHandler(svc, v, testLogger()).RegisterRoutes)
		r.Route("/cities", NewCityHandler(svc, testLogger()).RegisterRoutes)
		NewConfirmationHandler(svc, v, testLogger()).RegisterRoutes(r)
	})
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string, actor types.Actor) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rdr)
	req = req.WithContext(types.WithActor(req.Context(), actor))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// dataOf decodes the data member of an APIResponse into dst.
func dataOf(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.NoError(t, json.Unmarshal(env.Data, dst))
}

func errorOf(t *testing.T, rec *httptest.ResponseRecorder) core.ErrorDetail {
	t.Helper()
	var resp core.APIErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Error
}
