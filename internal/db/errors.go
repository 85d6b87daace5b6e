package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"fixmystreet/internal/types"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

// fkNotFound names the not-found code for each foreign key constraint, so a
// violation reports the entity that is actually missing.
var fkNotFound = map[string]types.ErrorCode{
	"reports_category_id_fkey":          types.ErrCodeNotFoundCategory,
	"reports_ward_id_fkey":              types.ErrCodeNotFoundWard,
	"report_updates_report_id_fkey":     types.ErrCodeNotFoundReport,
	"report_subscribers_report_id_fkey": types.ErrCodeNotFoundReport,
}

// mapError converts a pgx error into an AppError. pgx.ErrNoRows becomes
// notFound, as does a foreign key violation on a constraint missing from
// fkNotFound. Context errors pass through unchanged.
func mapError(err error, notFound types.ErrorCode, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return types.NewAppError(notFound, what+" not found", nil)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return types.NewAppError(types.ErrCodeConflictDuplicate, what+" already exists", err)
		case pgForeignKeyViolation:
			code := notFound
			if c, ok := fkNotFound[pgErr.ConstraintName]; ok {
				code = c
			}
			return types.NewAppError(code, fmt.Sprintf("%s references a missing row (%s)", what, pgErr.ConstraintName), err)
		case pgCheckViolation:
			return types.NewAppError(types.ErrCodeValidationFailed, what+" violates "+pgErr.ConstraintName, err)
		}
	}
	return types.NewAppError(types.ErrCodeInternalDB, "failed to access "+what, err)
}
