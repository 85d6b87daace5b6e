// Package lifecycle implements the report state machine: report intake,
// update confirmation, fixed transitions and subscriber management.
//
// Every transition writes its notification messages to the outbox in the
// same transaction as the state change. After commit they are handed to the
// Dispatcher; rows that could not be handed over stay pending until
// RelayPending picks them up. Delivery happens in the email worker.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"fixmystreet/internal/routing"
	"fixmystreet/internal/types"
)

// CityStore reads the routing configuration. It is read-only here.
type CityStore interface {
	GetCity(ctx context.Context, id int64) (*types.City, error)
	GetWard(ctx context.Context, id int64) (*types.Ward, error)
	GetCouncillor(ctx context.Context, id int64) (*types.Councillor, error)
	GetCategory(ctx context.Context, id int64) (*types.Category, error)
	ListRules(ctx context.Context, cityID int64) ([]routing.EmailRule, error)
}

// ReportStore persists reports.
type ReportStore interface {
	CreateReport(ctx context.Context, r *types.Report) error
	GetReport(ctx context.Context, id int64) (*types.Report, error)
	// LockReport reads the report with a row lock held until the
	// surrounding transaction ends.
	LockReport(ctx context.Context, id int64) (*types.Report, error)
	UpdateReport(ctx context.Context, r *types.Report) error
	MarkSent(ctx context.Context, id int64, sentAt time.Time, sentTo string) error
}

// UpdateStore persists report updates.
type UpdateStore interface {
	CreateUpdate(ctx context.Context, u *types.ReportUpdate) error
	LockUpdateByToken(ctx context.Context, token string) (*types.ReportUpdate, error)
	GetFirstUpdate(ctx context.Context, reportID int64) (*types.ReportUpdate, error)
	ConfirmUpdate(ctx context.Context, id int64, confirmedAt time.Time) error
}

// SubscriberStore persists report subscribers.
type SubscriberStore interface {
	CreateSubscriber(ctx context.Context, s *types.ReportSubscriber) error
	ListSubscribers(ctx context.Context, reportID int64) ([]types.ReportSubscriber, error)
	LockSubscriberByToken(ctx context.Context, token string) (*types.ReportSubscriber, error)
	ConfirmSubscriber(ctx context.Context, id int64) error
	DeleteSubscriber(ctx context.Context, id int64) error
}

// OutboxStore persists notification messages until they have been handed
// to the Dispatcher.
type OutboxStore interface {
	Enqueue(ctx context.Context, msg types.NotificationMessage) error
	// ListPending returns undispatched messages created before before,
	// oldest first.
	ListPending(ctx context.Context, before time.Time, limit int) ([]types.NotificationMessage, error)
	MarkDispatched(ctx context.Context, notificationID string, at time.Time) error
}

// TxRunner runs fn in a transaction carried by the context passed to fn.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Dispatcher queues a notification for asynchronous delivery.
type Dispatcher interface {
	Dispatch(ctx context.Context, msg types.NotificationMessage) error
}

// TokenSource mints confirmation tokens.
type TokenSource interface {
	NewToken() (string, error)
}

// Settings holds site-level values used when building notifications.
type Settings struct {
	// BaseURL is the public site root used for confirmation links.
	BaseURL string
	// AdminEmail receives flagged reports.
	AdminEmail string
	// RelayDelay is how old a pending outbox row must be before
	// RelayPending retries it. Zero means DefaultRelayDelay.
	RelayDelay time.Duration
}

// DefaultRelayDelay leaves the post-commit relay of the request that wrote a
// row time to finish before RelayPending retries it.
const DefaultRelayDelay = 30 * time.Second

// Deps bundles the collaborators of a Service.
type Deps struct {
	Cities      CityStore
	Reports     ReportStore
	Updates     UpdateStore
	Subscribers SubscriberStore
	Outbox      OutboxStore
	Tx          TxRunner
	Dispatcher  Dispatcher
	Tokens      TokenSource
	Clock       types.Clock
	Logger      types.Logger
	Settings    Settings
}

// Service executes lifecycle commands.
type Service struct {
	cities      CityStore
	reports     ReportStore
	updates     UpdateStore
	subscribers SubscriberStore
	outbox      OutboxStore
	tx          TxRunner
	dispatcher  Dispatcher
	tokens      TokenSource
	clock       types.Clock
	logger      types.Logger
	settings    Settings
}

// NewService validates deps and builds a Service. Clock defaults to
// types.RealClock.
func NewService(d Deps) (*Service, error) {
	switch {
	case d.Cities == nil:
		return nil, errors.New("lifecycle: city store is required")
	case d.Reports == nil:
		return nil, errors.New("lifecycle: report store is required")
	case d.Updates == nil:
		return nil, errors.New("lifecycle: update store is required")
	case d.Subscribers == nil:
		return nil, errors.New("lifecycle: subscriber store is required")
	case d.Outbox == nil:
		return nil, errors.New("lifecycle: outbox store is required")
	case d.Tx == nil:
		return nil, errors.New("lifecycle: transaction runner is required")
	case d.Dispatcher == nil:
		return nil, errors.New("lifecycle: dispatcher is required")
	case d.Tokens == nil:
		return nil, errors.New("lifecycle: token source is required")
	case d.Logger == nil:
		return nil, errors.New("lifecycle: logger is required")
	}
	clock := d.Clock
	if clock == nil {
		clock = types.RealClock{}
	}
	settings := d.Settings
	if settings.RelayDelay <= 0 {
		settings.RelayDelay = DefaultRelayDelay
	}
	return &Service{
		cities:      d.Cities,
		reports:     d.Reports,
		updates:     d.Updates,
		subscribers: d.Subscribers,
		outbox:      d.Outbox,
		tx:          d.Tx,
		dispatcher:  d.Dispatcher,
		tokens:      d.Tokens,
		clock:       clock,
		logger:      d.Logger,
		settings:    settings,
	}, nil
}

// batch remembers the messages enqueued by one transaction so they can be
// relayed as soon as it commits.
type batch struct {
	msgs []types.NotificationMessage
}

// enqueue writes msg to the outbox. ctx must carry the transaction of the
// state change that produced msg.
func (s *Service) enqueue(ctx context.Context, b *batch, msg types.NotificationMessage) error {
	if err := s.outbox.Enqueue(ctx, msg); err != nil {
		return err
	}
	b.msgs = append(b.msgs, msg)
	return nil
}

// relay hands msgs to the Dispatcher and returns how many went through. A
// message that fails stays pending in the outbox. When report is the parent
// of a relayed new-report message its sent fields are updated in place.
func (s *Service) relay(ctx context.Context, msgs []types.NotificationMessage, report *types.Report) int {
	relayed := 0
	for _, msg := range msgs {
		if err := s.deliver(ctx, msg, report); err != nil {
			s.logger.Warn("notification left in outbox",
				"notification_id", msg.NotificationID, "kind", msg.Kind,
				"report_id", msg.ReportID, "error", err)
			continue
		}
		relayed++
	}
	return relayed
}

func (s *Service) deliver(ctx context.Context, msg types.NotificationMessage, report *types.Report) error {
	if err := s.dispatcher.Dispatch(ctx, msg); err != nil {
		return err
	}
	if msg.Kind == types.KindNewReport {
		if err := s.markSent(ctx, msg, report); err != nil {
			return err
		}
	}
	return s.outbox.MarkDispatched(ctx, msg.NotificationID, s.clock.Now())
}

// markSent records sent_at and email_sent_to once the new-report
// notification has been queued.
func (s *Service) markSent(ctx context.Context, msg types.NotificationMessage, report *types.Report) error {
	sentAt := s.clock.Now()
	sentTo := strings.Join(msg.To, ", ")
	if err := s.reports.MarkSent(ctx, msg.ReportID, sentAt, sentTo); err != nil {
		return err
	}
	if report != nil && report.ID == msg.ReportID {
		report.SentAt = &sentAt
		report.EmailSentTo = sentTo
	}
	s.logger.Info("new report queued",
		"report_id", msg.ReportID, "to_count", len(msg.To), "cc_count", len(msg.CC))
	return nil
}

// RelayPending retries outbox messages older than the relay delay that were
// never handed to the Dispatcher. It returns how many were relayed. The
// email worker deduplicates by notification ID, so a message relayed twice
// is delivered once.
func (s *Service) RelayPending(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = 100
	}
	before := s.clock.Now().Add(-s.settings.RelayDelay)
	msgs, err := s.outbox.ListPending(ctx, before, limit)
	if err != nil {
		return 0, fmt.Errorf("RelayPending: %w", err)
	}
	return s.relay(ctx, msgs, nil), nil
}
