package db

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Masterminds/squirrel"

	"fixmystreet/internal/types"
)

// OutboxRepository persists notification messages written alongside the
// state change that produced them. A row stays pending until the message
// has been handed to the queue.
type OutboxRepository struct {
	db DBTX
}

// NewOutboxRepository creates an OutboxRepository.
func NewOutboxRepository(db DBTX) *OutboxRepository {
	return &OutboxRepository{db: db}
}

// Enqueue stores msg as a pending row. Called with a transaction in ctx the
// row commits or rolls back with the rest of the transaction.
func (r *OutboxRepository) Enqueue(ctx context.Context, msg types.NotificationMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalUnexpected, "failed to encode outbox message", err)
	}
	_, err = conn(ctx, r.db).Exec(ctx,
		`INSERT INTO outbox_messages (notification_id, kind, report_id, message, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		msg.NotificationID,
		string(msg.Kind),
		msg.ReportID,
		body,
		msg.CreatedAt,
	)
	if err != nil {
		return mapError(err, types.ErrCodeNotFoundReport, "outbox message")
	}
	return nil
}

// ListPending returns up to limit undispatched messages created before
// before, oldest first.
func (r *OutboxRepository) ListPending(ctx context.Context, before time.Time, limit int) ([]types.NotificationMessage, error) {
	query, args, err := psql.
		Select("message").
		From("outbox_messages").
		Where(squirrel.Eq{"dispatched_at": nil}).
		Where(squirrel.Lt{"created_at": before}).
		OrderBy("created_at", "notification_id").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to build outbox query", err)
	}

	rows, err := conn(ctx, r.db).Query(ctx, query, args...)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list outbox messages", err)
	}
	defer rows.Close()

	var out []types.NotificationMessage
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan outbox message", err)
		}
		var msg types.NotificationMessage
		if err := json.Unmarshal(body, &msg); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to decode outbox message", err)
		}
		out = append(out, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list outbox messages", err)
	}
	return out, nil
}

// MarkDispatched records that the message left the outbox. Marking a row
// twice keeps the first timestamp.
func (r *OutboxRepository) MarkDispatched(ctx context.Context, notificationID string, at time.Time) error {
	_, err := conn(ctx, r.db).Exec(ctx,
		`UPDATE outbox_messages SET dispatched_at = COALESCE(dispatched_at, $1)
		 WHERE notification_id = $2`,
		at, notificationID,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to mark outbox message dispatched", err)
	}
	return nil
}
