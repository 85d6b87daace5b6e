package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"fixmystreet/internal/types"
)

func newDelivery() *types.Delivery {
	return &types.Delivery{
		ID:             "del_n-1_email",
		NotificationID: "n-1",
		Kind:           types.KindNewReport,
		ReportID:       42,
		Status:         types.DeliveryStatusPending,
	}
}

func TestDeliveryRepository_InsertCreated(t *testing.T) {
	db := new(mockDBTX)
	repo := NewDeliveryRepository(db)
	created := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)

	db.On("QueryRow", mock.Anything, mock.MatchedBy(func(sql string) bool {
		return containsAll(sql, "INSERT INTO notification_deliveries", "ON CONFLICT (id) DO NOTHING")
	}), []any{"del_n-1_email", "n-1", "new_report", int64(42), "pending"}).
		Return(&mockRow{scanFn: func(dest ...any) error {
			*dest[0].(*time.Time) = created
			return nil
		}})

	d, wasCreated, err := repo.InsertDeliveryIfNotExists(context.Background(), newDelivery())
	require.NoError(t, err)
	assert.True(t, wasCreated)
	assert.Equal(t, created, d.CreatedAt)
	db.AssertExpectations(t)
}

func TestDeliveryRepository_InsertExisting(t *testing.T) {
	db := new(mockDBTX)
	repo := NewDeliveryRepository(db)
	reason := "timeout"

	db.On("QueryRow", mock.Anything, mock.MatchedBy(func(sql string) bool {
		return containsAll(sql, "INSERT INTO notification_deliveries")
	}), mock.Anything).Return(&mockRow{scanErr: pgx.ErrNoRows})
	db.On("QueryRow", mock.Anything, mock.MatchedBy(func(sql string) bool {
		return containsAll(sql, "SELECT id, notification_id", "WHERE id = $1")
	}), []any{"del_n-1_email"}).Return(&mockRow{scanFn: func(dest ...any) error {
		*dest[0].(*string) = "del_n-1_email"
		*dest[1].(*string) = "n-1"
		*dest[2].(*string) = "new_report"
		*dest[3].(*int64) = 42
		*dest[4].(*string) = "retrying"
		*dest[5].(*int) = 2
		*dest[7].(**string) = &reason
		return nil
	}})

	d, wasCreated, err := repo.InsertDeliveryIfNotExists(context.Background(), newDelivery())
	require.NoError(t, err)
	assert.False(t, wasCreated)
	assert.Equal(t, types.DeliveryStatusRetrying, d.Status)
	assert.Equal(t, 2, d.AttemptCount)
	assert.Equal(t, "timeout", d.FailureReason)
	assert.Empty(t, d.ProviderMessageID)
	db.AssertExpectations(t)
}

func TestDeliveryRepository_InsertError(t *testing.T) {
	db := new(mockDBTX)
	db.On("QueryRow", mock.Anything, mock.Anything, mock.Anything).
		Return(&mockRow{scanErr: errors.New("connection refused")})

	_, _, err := NewDeliveryRepository(db).InsertDeliveryIfNotExists(context.Background(), newDelivery())
	requireAppCode(t, err, types.ErrCodeInternalDB)
}

func TestDeliveryRepository_SetDeliverySuccess(t *testing.T) {
	db := new(mockDBTX)
	db.On("Exec", mock.Anything, mock.MatchedBy(func(sql string) bool {
		return containsAll(sql, "status = 'sent'", "delivered_at = NOW()")
	}), []any{ptr("ses-123"), "del-1"}).Return(pgconn.NewCommandTag("UPDATE 1"), nil)

	require.NoError(t, NewDeliveryRepository(db).SetDeliverySuccess(context.Background(), "del-1", "ses-123"))
	db.AssertExpectations(t)
}

func TestDeliveryRepository_UpdateStatus_NotFound(t *testing.T) {
	db := new(mockDBTX)
	db.On("Exec", mock.Anything, mock.Anything, []any{"bounced", ptr("mailbox full"), "del-x"}).
		Return(pgconn.NewCommandTag("UPDATE 0"), nil)

	err := NewDeliveryRepository(db).UpdateDeliveryStatus(context.Background(), "del-x", types.DeliveryStatusBounced, "mailbox full")
	requireAppCode(t, err, types.ErrCodeNotFoundDelivery)
}

func TestDeliveryRepository_IncrementAndCount(t *testing.T) {
	db := new(mockDBTX)
	db.On("Exec", mock.Anything, mock.MatchedBy(func(sql string) bool {
		return containsAll(sql, "attempt_count = attempt_count + 1")
	}), []any{"del-1"}).Return(pgconn.NewCommandTag("UPDATE 1"), nil)
	db.On("QueryRow", mock.Anything, mock.MatchedBy(func(sql string) bool {
		return containsAll(sql, "SELECT attempt_count")
	}), []any{"del-1"}).Return(&mockRow{scanFn: func(dest ...any) error {
		*dest[0].(*int) = 1
		return nil
	}})

	repo := NewDeliveryRepository(db)
	require.NoError(t, repo.IncrementAttempt(context.Background(), "del-1"))
	n, err := repo.GetDeliveryAttemptCount(context.Background(), "del-1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestDeliveryRepository_FindByProviderMessageID(t *testing.T) {
	db := new(mockDBTX)
	msgID := "ses-777"
	db.On("QueryRow", mock.Anything, mock.MatchedBy(func(sql string) bool {
		return containsAll(sql, "FROM notification_deliveries", "WHERE provider_message_id = $1")
	}), []any{"ses-777"}).Return(&mockRow{scanFn: func(dest ...any) error {
		*dest[0].(*string) = "del_n-9_email"
		*dest[2].(*string) = "report_update"
		*dest[3].(*int64) = 42
		*dest[4].(*string) = "sent"
		*dest[8].(**string) = &msgID
		return nil
	}})

	d, err := NewDeliveryRepository(db).FindByProviderMessageID(context.Background(), "ses-777")
	require.NoError(t, err)
	assert.Equal(t, "del_n-9_email", d.ID)
	assert.Equal(t, types.KindReportUpdate, d.Kind)
	assert.Equal(t, "ses-777", d.ProviderMessageID)
	db.AssertExpectations(t)
}

func TestDeliveryRepository_FindByProviderMessageID_NotFound(t *testing.T) {
	db := new(mockDBTX)
	db.On("QueryRow", mock.Anything, mock.Anything, mock.Anything).
		Return(&mockRow{scanErr: pgx.ErrNoRows})

	repo := NewDeliveryRepository(db)
	_, err := repo.FindByProviderMessageID(context.Background(), "ses-missing")
	requireAppCode(t, err, types.ErrCodeNotFoundDelivery)

	_, err = repo.FindByProviderMessageID(context.Background(), "")
	requireAppCode(t, err, types.ErrCodeNotFoundDelivery)
}
