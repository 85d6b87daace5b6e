package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"fixmystreet/internal/notifications/core"
	"fixmystreet/internal/types"
)

var _ core.DeliveryRepository = (*DeliveryRepository)(nil)

// DeliveryRepository persists notification_deliveries rows for the email
// worker.
type DeliveryRepository struct {
	db DBTX
}

// NewDeliveryRepository creates a DeliveryRepository.
func NewDeliveryRepository(db DBTX) *DeliveryRepository {
	return &DeliveryRepository{db: db}
}

// InsertDeliveryIfNotExists inserts d with ON CONFLICT DO NOTHING. When the
// row already exists the stored version is returned with created=false.
func (r *DeliveryRepository) InsertDeliveryIfNotExists(ctx context.Context, d *types.Delivery) (*types.Delivery, bool, error) {
	q := conn(ctx, r.db)

	createdAt := d.CreatedAt
	err := q.QueryRow(ctx,
		`INSERT INTO notification_deliveries
		 (id, notification_id, kind, report_id, status)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO NOTHING
		 RETURNING created_at`,
		d.ID,
		d.NotificationID,
		string(d.Kind),
		d.ReportID,
		string(d.Status),
	).Scan(&createdAt)
	if err == nil {
		out := *d
		out.CreatedAt = createdAt
		return &out, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, types.NewAppError(types.ErrCodeInternalDB, "failed to insert delivery", err)
	}

	existing, err := r.get(ctx, d.ID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

const deliverySelect = `SELECT id, notification_id, kind, report_id, status, attempt_count,
        last_attempt_at, failure_reason, provider_message_id, delivered_at, created_at
 FROM notification_deliveries`

func (r *DeliveryRepository) get(ctx context.Context, id string) (*types.Delivery, error) {
	return r.scanOne(conn(ctx, r.db).QueryRow(ctx, deliverySelect+` WHERE id = $1`, id))
}

// FindByProviderMessageID locates the delivery a provider feedback event
// refers to.
func (r *DeliveryRepository) FindByProviderMessageID(ctx context.Context, providerMsgID string) (*types.Delivery, error) {
	if providerMsgID == "" {
		return nil, types.NewAppError(types.ErrCodeNotFoundDelivery, "delivery not found", nil)
	}
	return r.scanOne(conn(ctx, r.db).QueryRow(ctx,
		deliverySelect+` WHERE provider_message_id = $1 ORDER BY created_at DESC LIMIT 1`, providerMsgID))
}

func (r *DeliveryRepository) scanOne(row pgx.Row) (*types.Delivery, error) {
	var (
		d                     types.Delivery
		kind, status          string
		reason, providerMsgID *string
	)
	err := row.Scan(
		&d.ID,
		&d.NotificationID,
		&kind,
		&d.ReportID,
		&status,
		&d.AttemptCount,
		&d.LastAttemptAt,
		&reason,
		&providerMsgID,
		&d.DeliveredAt,
		&d.CreatedAt,
	)
	if err != nil {
		return nil, mapError(err, types.ErrCodeNotFoundDelivery, "delivery")
	}
	d.Kind = types.NotificationKind(kind)
	d.Status = types.DeliveryStatus(status)
	if reason != nil {
		d.FailureReason = *reason
	}
	if providerMsgID != nil {
		d.ProviderMessageID = *providerMsgID
	}
	return &d, nil
}

// UpdateDeliveryStatus sets status and failure_reason.
func (r *DeliveryRepository) UpdateDeliveryStatus(ctx context.Context, deliveryID string, status types.DeliveryStatus, reason string) error {
	return r.exec(ctx,
		`UPDATE notification_deliveries SET status = $1, failure_reason = $2 WHERE id = $3`,
		string(status), nilIfEmpty(reason), deliveryID,
	)
}

// SetDeliverySuccess marks the delivery sent and records the provider ID.
func (r *DeliveryRepository) SetDeliverySuccess(ctx context.Context, deliveryID string, providerMsgID string) error {
	return r.exec(ctx,
		`UPDATE notification_deliveries SET
			status = 'sent',
			provider_message_id = $1,
			failure_reason = NULL,
			delivered_at = NOW()
		 WHERE id = $2`,
		nilIfEmpty(providerMsgID), deliveryID,
	)
}

// IncrementAttempt bumps attempt_count and last_attempt_at.
func (r *DeliveryRepository) IncrementAttempt(ctx context.Context, deliveryID string) error {
	return r.exec(ctx,
		`UPDATE notification_deliveries SET
			attempt_count = attempt_count + 1,
			last_attempt_at = NOW()
		 WHERE id = $1`,
		deliveryID,
	)
}

func (r *DeliveryRepository) GetDeliveryAttemptCount(ctx context.Context, deliveryID string) (int, error) {
	var n int
	err := conn(ctx, r.db).QueryRow(ctx,
		`SELECT attempt_count FROM notification_deliveries WHERE id = $1`, deliveryID,
	).Scan(&n)
	if err != nil {
		return 0, mapError(err, types.ErrCodeNotFoundDelivery, "delivery")
	}
	return n, nil
}

func (r *DeliveryRepository) exec(ctx context.Context, query string, args ...any) error {
	tag, err := conn(ctx, r.db).Exec(ctx, query, args...)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to update delivery", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundDelivery, "delivery not found", nil)
	}
	return nil
}
