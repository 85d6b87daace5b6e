package lifecycle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"fixmystreet/internal/routing"
	"fixmystreet/internal/types"
)

// memStore is an in-memory implementation of every store interface.
type memStore struct {
	mu sync.Mutex

	cities      map[int64]*types.City
	wards       map[int64]*types.Ward
	councillors map[int64]*types.Councillor
	categories  map[int64]*types.Category
	rules       map[int64][]routing.EmailRule

	reports     map[int64]*types.Report
	updates     []*types.ReportUpdate
	subscribers []*types.ReportSubscriber
	outbox      []*outboxRow
	enqueueErr  error
	nextID      int64
}

type outboxRow struct {
	msg          types.NotificationMessage
	dispatchedAt *time.Time
}

func strPtr(s string) *string { return &s }
func int64Ptr(i int64) *int64  { return &i }

var parks = types.CategoryClass{ID: 1, Name: "Parks"}

// newCharlottetownStore seeds one city whose rules split on the Parks class.
func newCharlottetownStore() *memStore {
	m := &memStore{
		cities: map[int64]*types.City{
			7: {ID: 7, Name: "Charlottetown"},
			8: {ID: 8, Name: "Elsewhere", Email: strPtr("reports@elsewhere.com")},
		},
		wards: map[int64]*types.Ward{
			3: {ID: 3, CityID: 7, Name: "Ward 1", CouncillorID: int64Ptr(11), Email: strPtr("ward1@city.com")},
			4: {ID: 4, CityID: 8, Name: "Other ward"},
		},
		councillors: map[int64]*types.Councillor{
			11: {ID: 11, CityID: 7, FirstName: "Test", LastName: "Councillor", Email: strPtr("councillor_email@testward1.com")},
		},
		categories: map[int64]*types.Category{
			10: {ID: 10, ClassID: parks.ID, Name: "Broken bench"},
			20: {ID: 20, ClassID: 2, Name: "Graffiti on wall"},
		},
		rules: map[int64][]routing.EmailRule{
			7: {
				routing.MustEmailRule(1, 7, 10, routing.KindToCouncillor, true, nil, ""),
				routing.MustEmailRule(2, 7, 20, routing.KindMatchingCategoryClass, false, &parks, "parks@city.com"),
				routing.MustEmailRule(3, 7, 30, routing.KindMatchingCategoryClass, true, &parks, "parks_cc@city.com"),
				routing.MustEmailRule(4, 7, 40, routing.KindNotMatchingCategoryClass, false, &parks, "not_parks1@city.com"),
				routing.MustEmailRule(5, 7, 50, routing.KindNotMatchingCategoryClass, false, &parks, "not_parks2@city.com"),
				routing.MustEmailRule(6, 7, 60, routing.KindNotMatchingCategoryClass, true, &parks, "not_parks_cc@city.com"),
			},
		},
		reports: map[int64]*types.Report{},
		nextID:  100,
	}
	return m
}

func notFound(code types.ErrorCode, what string, id any) error {
	return types.NewAppError(code, fmt.Sprintf("%s %v not found", what, id), nil)
}

func (m *memStore) GetCity(_ context.Context, id int64) (*types.City, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cities[id]
	if !ok {
		return nil, notFound(types.ErrCodeNotFoundCity, "city", id)
	}
	cp := *c
	return &cp, nil
}

func (m *memStore) GetWard(_ context.Context, id int64) (*types.Ward, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.wards[id]
	if !ok {
		return nil, notFound(types.ErrCodeNotFoundWard, "ward", id)
	}
	cp := *w
	return &cp, nil
}

func (m *memStore) GetCouncillor(_ context.Context, id int64) (*types.Councillor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.councillors[id]
	if !ok {
		return nil, notFound(types.ErrCodeNotFoundCouncillor, "councillor", id)
	}
	cp := *c
	return &cp, nil
}

func (m *memStore) GetCategory(_ context.Context, id int64) (*types.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.categories[id]
	if !ok {
		return nil, notFound(types.ErrCodeNotFoundCategory, "category", id)
	}
	cp := *c
	return &cp, nil
}

func (m *memStore) ListRules(_ context.Context, cityID int64) ([]routing.EmailRule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]routing.EmailRule(nil), m.rules[cityID]...), nil
}

func (m *memStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memStore) CreateReport(_ context.Context, r *types.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r.ID = m.id()
	cp := *r
	m.reports[r.ID] = &cp
	return nil
}

func (m *memStore) GetReport(_ context.Context, id int64) (*types.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reports[id]
	if !ok {
		return nil, notFound(types.ErrCodeNotFoundReport, "report", id)
	}
	cp := *r
	return &cp, nil
}

func (m *memStore) LockReport(ctx context.Context, id int64) (*types.Report, error) {
	return m.GetReport(ctx, id)
}

func (m *memStore) UpdateReport(_ context.Context, r *types.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.reports[r.ID]; !ok {
		return notFound(types.ErrCodeNotFoundReport, "report", r.ID)
	}
	cp := *r
	m.reports[r.ID] = &cp
	return nil
}

func (m *memStore) MarkSent(_ context.Context, id int64, sentAt time.Time, sentTo string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reports[id]
	if !ok {
		return notFound(types.ErrCodeNotFoundReport, "report", id)
	}
	r.SentAt = &sentAt
	r.EmailSentTo = sentTo
	return nil
}

func (m *memStore) CreateUpdate(_ context.Context, u *types.ReportUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u.ID = m.id()
	cp := *u
	m.updates = append(m.updates, &cp)
	return nil
}

func (m *memStore) LockUpdateByToken(_ context.Context, token string) (*types.ReportUpdate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.updates {
		if u.ConfirmToken == token {
			cp := *u
			return &cp, nil
		}
	}
	return nil, notFound(types.ErrCodeNotFoundUpdateToken, "update token", token)
}

func (m *memStore) GetFirstUpdate(_ context.Context, reportID int64) (*types.ReportUpdate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.updates {
		if u.ReportID == reportID && u.FirstUpdate {
			cp := *u
			return &cp, nil
		}
	}
	return nil, notFound(types.ErrCodeNotFoundReport, "first update for report", reportID)
}

func (m *memStore) ConfirmUpdate(_ context.Context, id int64, confirmedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.updates {
		if u.ID == id {
			u.IsConfirmed = true
			u.ConfirmedAt = &confirmedAt
			return nil
		}
	}
	return notFound(types.ErrCodeNotFoundUpdateToken, "update", id)
}

func (m *memStore) updatesFor(reportID int64) []types.ReportUpdate {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []types.ReportUpdate
	for _, u := range m.updates {
		if u.ReportID == reportID {
			out = append(out, *u)
		}
	}
	return out
}

func (m *memStore) CreateSubscriber(_ context.Context, s *types.ReportSubscriber) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.ID = m.id()
	cp := *s
	m.subscribers = append(m.subscribers, &cp)
	return nil
}

func (m *memStore) ListSubscribers(_ context.Context, reportID int64) ([]types.ReportSubscriber, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []types.ReportSubscriber
	for _, s := range m.subscribers {
		if s.ReportID == reportID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (m *memStore) LockSubscriberByToken(_ context.Context, token string) (*types.ReportSubscriber, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.subscribers {
		if s.ConfirmToken != "" && s.ConfirmToken == token {
			cp := *s
			return &cp, nil
		}
	}
	return nil, notFound(types.ErrCodeNotFoundSubscriberToken, "subscriber token", token)
}

func (m *memStore) ConfirmSubscriber(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.subscribers {
		if s.ID == id {
			s.IsConfirmed = true
			return nil
		}
	}
	return notFound(types.ErrCodeNotFoundSubscriberToken, "subscriber", id)
}

func (m *memStore) DeleteSubscriber(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, s := range m.subscribers {
		if s.ID == id {
			m.subscribers = append(m.subscribers[:i], m.subscribers[i+1:]...)
			return nil
		}
	}
	return notFound(types.ErrCodeNotFoundSubscriberToken, "subscriber", id)
}

func (m *memStore) Enqueue(_ context.Context, msg types.NotificationMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.enqueueErr != nil {
		return m.enqueueErr
	}
	m.outbox = append(m.outbox, &outboxRow{msg: msg})
	return nil
}

func (m *memStore) ListPending(_ context.Context, before time.Time, limit int) ([]types.NotificationMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []types.NotificationMessage
	for _, row := range m.outbox {
		if row.dispatchedAt == nil && row.msg.CreatedAt.Before(before) && len(out) < limit {
			out = append(out, row.msg)
		}
	}
	return out, nil
}

func (m *memStore) MarkDispatched(_ context.Context, notificationID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range m.outbox {
		if row.msg.NotificationID == notificationID {
			row.dispatchedAt = &at
			return nil
		}
	}
	return fmt.Errorf("outbox row %s not found", notificationID)
}

func (m *memStore) pending() []types.NotificationMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []types.NotificationMessage
	for _, row := range m.outbox {
		if row.dispatchedAt == nil {
			out = append(out, row.msg)
		}
	}
	return out
}

// passthroughTx runs fn directly; memStore has no rollback.
type passthroughTx struct {
	calls int
}

func (p *passthroughTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	p.calls++
	return fn(ctx)
}

type recordingDispatcher struct {
	msgs []types.NotificationMessage
	err  error
}

func (d *recordingDispatcher) Dispatch(_ context.Context, msg types.NotificationMessage) error {
	if d.err != nil {
		return d.err
	}
	d.msgs = append(d.msgs, msg)
	return nil
}

func (d *recordingDispatcher) ofKind(kind types.NotificationKind) []types.NotificationMessage {
	var out []types.NotificationMessage
	for _, m := range d.msgs {
		if m.Kind == kind {
			out = append(out, m)
		}
	}
	return out
}

type stepClock struct {
	now time.Time
}

func (c *stepClock) Now() time.Time { return c.now }

func (c *stepClock) advance(d time.Duration) time.Time {
	c.now = c.now.Add(d)
	return c.now
}

type seqTokens struct {
	n int
}

func (s *seqTokens) NewToken() (string, error) {
	s.n++
	return fmt.Sprintf("tok-%d", s.n), nil
}

type mockLogger struct {
	mu       sync.Mutex
	messages []string
}

func (m *mockLogger) log(level, msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, level+":"+msg)
}

func (m *mockLogger) Info(msg string, args ...any)  { m.log("info", msg) }
func (m *mockLogger) Error(msg string, args ...any) { m.log("error", msg) }
func (m *mockLogger) Warn(msg string, args ...any)  { m.log("warn", msg) }
func (m *mockLogger) With(args ...any) types.Logger { return m }

type harness struct {
	svc        *Service
	store      *memStore
	dispatcher *recordingDispatcher
	clock      *stepClock
	tx         *passthroughTx
}

func newHarness() *harness {
	h := &harness{
		store:      newCharlottetownStore(),
		dispatcher: &recordingDispatcher{},
		clock:      &stepClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)},
		tx:         &passthroughTx{},
	}
	svc, err := NewService(Deps{
		Cities:      h.store,
		Reports:     h.store,
		Updates:     h.store,
		Subscribers: h.store,
		Outbox:      h.store,
		Tx:          h.tx,
		Dispatcher:  h.dispatcher,
		Tokens:      &seqTokens{},
		Clock:       h.clock,
		Logger:      &mockLogger{},
		Settings:    Settings{BaseURL: "https://fixmystreet.test/", AdminEmail: "admin@fixmystreet.test"},
	})
	if err != nil {
		panic(err)
	}
	h.svc = svc
	return h
}

func parksReportInput() CreateReportInput {
	return CreateReportInput{
		Title:      "Broken bench in Victoria Park",
		CategoryID: 10,
		WardID:     3,
		Author:     "Jane Citizen",
		Email:      "jane@example.com",
		Phone:      "555-0100",
		Desc:       "The bench slats are split.",
		PhotoURL:   "https://photos.test/bench.jpg",
	}
}
