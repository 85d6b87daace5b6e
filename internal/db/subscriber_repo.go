package db

import (
	"context"

	"github.com/Masterminds/squirrel"

	"fixmystreet/internal/types"
)

// SubscriberRepository persists report subscribers.
type SubscriberRepository struct {
	db DBTX
}

// NewSubscriberRepository creates a SubscriberRepository.
func NewSubscriberRepository(db DBTX) *SubscriberRepository {
	return &SubscriberRepository{db: db}
}

// CreateSubscriber inserts s. A second row for the same report and email
// returns ErrCodeConflictDuplicate.
func (r *SubscriberRepository) CreateSubscriber(ctx context.Context, s *types.ReportSubscriber) error {
	err := conn(ctx, r.db).QueryRow(ctx,
		`INSERT INTO report_subscribers (report_id, email, confirm_token, is_confirmed, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		s.ReportID,
		s.Email,
		nilIfEmpty(s.ConfirmToken),
		s.IsConfirmed,
		s.CreatedAt,
	).Scan(&s.ID)
	if err != nil {
		return mapError(err, types.ErrCodeNotFoundReport, "subscriber")
	}
	return nil
}

var subscriberSelect = psql.
	Select("id", "report_id", "email", "COALESCE(confirm_token, '')", "is_confirmed", "created_at").
	From("report_subscribers")

// ListSubscribers returns every subscriber of the report, confirmed or not,
// in subscription order.
func (r *SubscriberRepository) ListSubscribers(ctx context.Context, reportID int64) ([]types.ReportSubscriber, error) {
	query, args, err := subscriberSelect.
		Where(squirrel.Eq{"report_id": reportID}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to build subscriber query", err)
	}

	rows, err := conn(ctx, r.db).Query(ctx, query, args...)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list subscribers", err)
	}
	defer rows.Close()

	var subs []types.ReportSubscriber
	for rows.Next() {
		var s types.ReportSubscriber
		if err := rows.Scan(&s.ID, &s.ReportID, &s.Email, &s.ConfirmToken, &s.IsConfirmed, &s.CreatedAt); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan subscriber", err)
		}
		subs = append(subs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating subscribers", err)
	}
	return subs, nil
}

// LockSubscriberByToken finds the subscriber issued token and locks its row.
func (r *SubscriberRepository) LockSubscriberByToken(ctx context.Context, token string) (*types.ReportSubscriber, error) {
	if token == "" {
		return nil, types.NewAppError(types.ErrCodeNotFoundSubscriberToken, "subscriber not found", nil)
	}
	query, args, err := subscriberSelect.
		Where(squirrel.Eq{"confirm_token": token}).
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to build subscriber query", err)
	}

	var s types.ReportSubscriber
	err = conn(ctx, r.db).QueryRow(ctx, query, args...).
		Scan(&s.ID, &s.ReportID, &s.Email, &s.ConfirmToken, &s.IsConfirmed, &s.CreatedAt)
	if err != nil {
		return nil, mapError(err, types.ErrCodeNotFoundSubscriberToken, "subscriber")
	}
	return &s, nil
}

func (r *SubscriberRepository) ConfirmSubscriber(ctx context.Context, id int64) error {
	return r.exec(ctx, `UPDATE report_subscribers SET is_confirmed = TRUE WHERE id = $1`, id)
}

func (r *SubscriberRepository) DeleteSubscriber(ctx context.Context, id int64) error {
	return r.exec(ctx, `DELETE FROM report_subscribers WHERE id = $1`, id)
}

// DeleteSubscriberByEmail removes the exact address from the report's
// subscribers and reports whether a row was deleted.
func (r *SubscriberRepository) DeleteSubscriberByEmail(ctx context.Context, reportID int64, email string) (bool, error) {
	tag, err := conn(ctx, r.db).Exec(ctx,
		`DELETE FROM report_subscribers WHERE report_id = $1 AND email = $2`, reportID, email)
	if err != nil {
		return false, mapError(err, types.ErrCodeNotFoundSubscriberToken, "subscriber")
	}
	return tag.RowsAffected() > 0, nil
}

func (r *SubscriberRepository) exec(ctx context.Context, query string, id int64) error {
	tag, err := conn(ctx, r.db).Exec(ctx, query, id)
	if err != nil {
		return mapError(err, types.ErrCodeNotFoundSubscriberToken, "subscriber")
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundSubscriberToken, "subscriber not found", nil)
	}
	return nil
}
