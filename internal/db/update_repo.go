package db

import (
	"context"
	"time"

	"fixmystreet/internal/types"
)

const updateColumns = `id, report_id, "desc", author, email, phone, is_fixed, first_update,
	is_confirmed, COALESCE(confirm_token, ''), submitted_at, confirmed_at`

// UpdateRepository persists report updates.
type UpdateRepository struct {
	db DBTX
}

// NewUpdateRepository creates an UpdateRepository.
func NewUpdateRepository(db DBTX) *UpdateRepository {
	return &UpdateRepository{db: db}
}

// CreateUpdate inserts u and sets its ID. An empty ConfirmToken is stored
// as NULL so the unique index only covers issued tokens.
func (r *UpdateRepository) CreateUpdate(ctx context.Context, u *types.ReportUpdate) error {
	err := conn(ctx, r.db).QueryRow(ctx,
		`INSERT INTO report_updates
		 (report_id, "desc", author, email, phone, is_fixed, first_update,
		  is_confirmed, confirm_token, submitted_at, confirmed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING id`,
		u.ReportID,
		u.Desc,
		u.Author,
		u.Email,
		u.Phone,
		u.IsFixed,
		u.FirstUpdate,
		u.IsConfirmed,
		nilIfEmpty(u.ConfirmToken),
		u.SubmittedAt,
		u.ConfirmedAt,
	).Scan(&u.ID)
	if err != nil {
		return mapError(err, types.ErrCodeNotFoundReport, "report update")
	}
	return nil
}

// LockUpdateByToken finds the update issued token and locks its row.
func (r *UpdateRepository) LockUpdateByToken(ctx context.Context, token string) (*types.ReportUpdate, error) {
	if token == "" {
		return nil, types.NewAppError(types.ErrCodeNotFoundUpdateToken, "report update not found", nil)
	}
	return r.get(ctx, types.ErrCodeNotFoundUpdateToken,
		`SELECT `+updateColumns+` FROM report_updates WHERE confirm_token = $1 FOR UPDATE`, token)
}

func (r *UpdateRepository) GetFirstUpdate(ctx context.Context, reportID int64) (*types.ReportUpdate, error) {
	return r.get(ctx, types.ErrCodeNotFoundReport,
		`SELECT `+updateColumns+` FROM report_updates WHERE report_id = $1 AND first_update`, reportID)
}

func (r *UpdateRepository) get(ctx context.Context, notFound types.ErrorCode, query string, arg any) (*types.ReportUpdate, error) {
	var u types.ReportUpdate
	err := conn(ctx, r.db).QueryRow(ctx, query, arg).Scan(
		&u.ID,
		&u.ReportID,
		&u.Desc,
		&u.Author,
		&u.Email,
		&u.Phone,
		&u.IsFixed,
		&u.FirstUpdate,
		&u.IsConfirmed,
		&u.ConfirmToken,
		&u.SubmittedAt,
		&u.ConfirmedAt,
	)
	if err != nil {
		return nil, mapError(err, notFound, "report update")
	}
	return &u, nil
}

// ConfirmUpdate marks the update confirmed at confirmedAt.
func (r *UpdateRepository) ConfirmUpdate(ctx context.Context, id int64, confirmedAt time.Time) error {
	tag, err := conn(ctx, r.db).Exec(ctx,
		`UPDATE report_updates SET is_confirmed = TRUE, confirmed_at = $1 WHERE id = $2`,
		confirmedAt, id,
	)
	if err != nil {
		return mapError(err, types.ErrCodeNotFoundUpdateToken, "report update")
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundUpdateToken, "report update not found", nil)
	}
	return nil
}
