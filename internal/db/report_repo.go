package db

import (
	"context"
	"time"

	"github.com/Masterminds/squirrel"

	"fixmystreet/internal/types"
)

const reportColumns = `id, title, category_id, ward_id, created_at, updated_at, fixed_at,
	is_fixed, is_confirmed, sent_at, email_sent_to, photo_url`

// ReportRepository persists reports.
type ReportRepository struct {
	db DBTX
}

// NewReportRepository creates a ReportRepository.
func NewReportRepository(db DBTX) *ReportRepository {
	return &ReportRepository{db: db}
}

// CreateReport inserts rep and sets its ID. A missing category or ward
// yields the not-found code of that entity.
func (r *ReportRepository) CreateReport(ctx context.Context, rep *types.Report) error {
	err := conn(ctx, r.db).QueryRow(ctx,
		`INSERT INTO reports
		 (title, category_id, ward_id, created_at, updated_at, fixed_at,
		  is_fixed, is_confirmed, photo_url)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id`,
		rep.Title,
		rep.CategoryID,
		rep.WardID,
		rep.CreatedAt,
		rep.UpdatedAt,
		rep.FixedAt,
		rep.IsFixed,
		rep.IsConfirmed,
		rep.PhotoURL,
	).Scan(&rep.ID)
	if err != nil {
		return mapError(err, types.ErrCodeNotFoundWard, "report")
	}
	return nil
}

func (r *ReportRepository) GetReport(ctx context.Context, id int64) (*types.Report, error) {
	return r.get(ctx, id, "")
}

// LockReport reads the report with FOR UPDATE. Outside a transaction the
// lock is released immediately.
func (r *ReportRepository) LockReport(ctx context.Context, id int64) (*types.Report, error) {
	return r.get(ctx, id, "FOR UPDATE")
}

func (r *ReportRepository) get(ctx context.Context, id int64, suffix string) (*types.Report, error) {
	var rep types.Report
	err := conn(ctx, r.db).QueryRow(ctx,
		`SELECT `+reportColumns+` FROM reports WHERE id = $1 `+suffix, id,
	).Scan(
		&rep.ID,
		&rep.Title,
		&rep.CategoryID,
		&rep.WardID,
		&rep.CreatedAt,
		&rep.UpdatedAt,
		&rep.FixedAt,
		&rep.IsFixed,
		&rep.IsConfirmed,
		&rep.SentAt,
		&rep.EmailSentTo,
		&rep.PhotoURL,
	)
	if err != nil {
		return nil, mapError(err, types.ErrCodeNotFoundReport, "report")
	}
	return &rep, nil
}

// UpdateReport writes the mutable lifecycle columns of rep.
func (r *ReportRepository) UpdateReport(ctx context.Context, rep *types.Report) error {
	query, args, err := psql.Update("reports").
		Set("updated_at", rep.UpdatedAt).
		Set("fixed_at", rep.FixedAt).
		Set("is_fixed", rep.IsFixed).
		Set("is_confirmed", rep.IsConfirmed).
		Where(squirrel.Eq{"id": rep.ID}).
		ToSql()
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to build report update", err)
	}
	return r.exec(ctx, query, args...)
}

// MarkSent stamps the time the report email was queued and its To line.
func (r *ReportRepository) MarkSent(ctx context.Context, id int64, sentAt time.Time, sentTo string) error {
	return r.exec(ctx,
		`UPDATE reports SET sent_at = $1, email_sent_to = $2 WHERE id = $3`,
		sentAt, sentTo, id,
	)
}

func (r *ReportRepository) exec(ctx context.Context, query string, args ...any) error {
	tag, err := conn(ctx, r.db).Exec(ctx, query, args...)
	if err != nil {
		return mapError(err, types.ErrCodeNotFoundReport, "report")
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundReport, "report not found", nil)
	}
	return nil
}
