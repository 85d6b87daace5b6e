package core

import (
	"context"
	"fmt"

	"fixmystreet/internal/types"
)

var _ DeliveryManager = (*DeliveryManagerImpl)(nil)

// DeliveryRepository is the persistence the DeliveryManagerImpl needs.
type DeliveryRepository interface {
	// InsertDeliveryIfNotExists inserts d unless its ID exists and returns the
	// stored row and whether it was newly created.
	InsertDeliveryIfNotExists(ctx context.Context, d *types.Delivery) (*types.Delivery, bool, error)
	UpdateDeliveryStatus(ctx context.Context, deliveryID string, status types.DeliveryStatus, reason string) error
	SetDeliverySuccess(ctx context.Context, deliveryID string, providerMsgID string) error
	IncrementAttempt(ctx context.Context, deliveryID string) error
	GetDeliveryAttemptCount(ctx context.Context, deliveryID string) (int, error)
}

// DeliveryManagerImpl orchestrates delivery state transitions and enforces
// the retry policy.
type DeliveryManagerImpl struct {
	repo        DeliveryRepository
	retryPolicy RetryPolicy
	logger      types.Logger
}

// NewDeliveryManager creates a new DeliveryManagerImpl.
func NewDeliveryManager(repo DeliveryRepository, retryPolicy RetryPolicy, logger types.Logger) *DeliveryManagerImpl {
	return &DeliveryManagerImpl{
		repo:        repo,
		retryPolicy: retryPolicy,
		logger:      logger,
	}
}

// DeliveryID returns the deterministic delivery ID for a notification.
func DeliveryID(notificationID string) string {
	return fmt.Sprintf("del_%s_email", notificationID)
}

// EnsureDeliveryExists performs an idempotent insert of the delivery row for
// msg. A redelivered SQS message finds the existing row.
func (m *DeliveryManagerImpl) EnsureDeliveryExists(ctx context.Context, msg types.NotificationMessage) (*types.Delivery, bool, error) {
	d := &types.Delivery{
		ID:             DeliveryID(msg.NotificationID),
		NotificationID: msg.NotificationID,
		Kind:           msg.Kind,
		ReportID:       msg.ReportID,
		Status:         types.DeliveryStatusPending,
	}

	stored, created, err := m.repo.InsertDeliveryIfNotExists(ctx, d)
	if err != nil {
		return nil, false, fmt.Errorf("EnsureDeliveryExists: %w", err)
	}

	if created {
		m.logger.Info("delivery record created",
			"delivery_id", stored.ID,
			"notification_id", msg.NotificationID,
			"kind", string(msg.Kind),
		)
	}
	return stored, created, nil
}

// RecordAttempt updates last_attempt_at and increments attempt_count.
func (m *DeliveryManagerImpl) RecordAttempt(ctx context.Context, deliveryID string) error {
	if err := m.repo.IncrementAttempt(ctx, deliveryID); err != nil {
		return fmt.Errorf("RecordAttempt: %w", err)
	}
	return nil
}

// MarkSuccess sets status 'sent' with the provider message ID.
func (m *DeliveryManagerImpl) MarkSuccess(ctx context.Context, deliveryID string, providerMsgID string) error {
	if err := m.repo.SetDeliverySuccess(ctx, deliveryID, providerMsgID); err != nil {
		return fmt.Errorf("MarkSuccess: %w", err)
	}

	m.logger.Info("delivery succeeded",
		"delivery_id", deliveryID,
		"provider_message_id", providerMsgID,
	)
	return nil
}

// MarkFailure marks the delivery 'retrying' while attempts remain, otherwise
// 'failed'.
func (m *DeliveryManagerImpl) MarkFailure(ctx context.Context, deliveryID string, reason string) (bool, error) {
	attemptCount, err := m.repo.GetDeliveryAttemptCount(ctx, deliveryID)
	if err != nil {
		return false, fmt.Errorf("MarkFailure: get attempt count: %w", err)
	}

	if attemptCount < m.retryPolicy.MaxAttempts {
		if err := m.repo.UpdateDeliveryStatus(ctx, deliveryID, types.DeliveryStatusRetrying, reason); err != nil {
			return false, fmt.Errorf("MarkFailure: update status to retrying: %w", err)
		}

		m.logger.Warn("delivery failed, will retry",
			"delivery_id", deliveryID,
			"attempt", attemptCount,
			"max_attempts", m.retryPolicy.MaxAttempts,
			"reason", reason,
		)
		return true, nil
	}

	if err := m.repo.UpdateDeliveryStatus(ctx, deliveryID, types.DeliveryStatusFailed, reason); err != nil {
		return false, fmt.Errorf("MarkFailure: update status to failed: %w", err)
	}

	m.logger.Error("delivery permanently failed",
		"delivery_id", deliveryID,
		"attempt", attemptCount,
		"reason", reason,
	)
	return false, nil
}

// MarkFailed sets status 'failed' regardless of remaining attempts.
func (m *DeliveryManagerImpl) MarkFailed(ctx context.Context, deliveryID string, reason string) error {
	if err := m.repo.UpdateDeliveryStatus(ctx, deliveryID, types.DeliveryStatusFailed, reason); err != nil {
		return fmt.Errorf("MarkFailed: %w", err)
	}

	m.logger.Error("delivery failed without retry",
		"delivery_id", deliveryID,
		"reason", reason,
	)
	return nil
}

// MarkBounced sets status 'bounced'. Bounces are never retried.
func (m *DeliveryManagerImpl) MarkBounced(ctx context.Context, deliveryID string, reason string) error {
	if err := m.repo.UpdateDeliveryStatus(ctx, deliveryID, types.DeliveryStatusBounced, reason); err != nil {
		return fmt.Errorf("MarkBounced: %w", err)
	}

	m.logger.Warn("delivery bounced",
		"delivery_id", deliveryID,
		"reason", reason,
	)
	return nil
}

// MarkSkipped sets status 'skipped' with the given reason.
func (m *DeliveryManagerImpl) MarkSkipped(ctx context.Context, deliveryID string, reason string) error {
	if err := m.repo.UpdateDeliveryStatus(ctx, deliveryID, types.DeliveryStatusSkipped, reason); err != nil {
		return fmt.Errorf("MarkSkipped: %w", err)
	}

	m.logger.Info("delivery skipped",
		"delivery_id", deliveryID,
		"reason", reason,
	)
	return nil
}
