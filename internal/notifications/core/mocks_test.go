package core

import (
	"context"
	"sync"

	"fixmystreet/internal/types"
)

type mockLogger struct {
	mu       sync.Mutex
	messages []string
}

func (m *mockLogger) add(level, msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, level+":"+msg)
}

func (m *mockLogger) Info(msg string, args ...any)  { m.add("info", msg) }
func (m *mockLogger) Error(msg string, args ...any) { m.add("error", msg) }
func (m *mockLogger) Warn(msg string, args ...any)  { m.add("warn", msg) }
func (m *mockLogger) With(args ...any) types.Logger { return m }

// mockDeliveryRepo implements DeliveryRepository for testing.
type mockDeliveryRepo struct {
	insertDelivery *types.Delivery
	insertReturn   *types.Delivery
	insertCreated  bool
	insertErr      error

	updateCalled bool
	updateID     string
	updateStatus types.DeliveryStatus
	updateReason string
	updateErr    error

	successID       string
	successProvider string
	successErr      error

	attemptID  string
	attemptErr error

	attemptCount    int
	attemptCountErr error
}

func (m *mockDeliveryRepo) InsertDeliveryIfNotExists(_ context.Context, d *types.Delivery) (*types.Delivery, bool, error) {
	m.insertDelivery = d
	if m.insertErr != nil {
		return nil, false, m.insertErr
	}
	if m.insertReturn != nil {
		return m.insertReturn, m.insertCreated, nil
	}
	return d, m.insertCreated, nil
}

func (m *mockDeliveryRepo) UpdateDeliveryStatus(_ context.Context, id string, status types.DeliveryStatus, reason string) error {
	m.updateCalled = true
	m.updateID = id
	m.updateStatus = status
	m.updateReason = reason
	return m.updateErr
}

func (m *mockDeliveryRepo) SetDeliverySuccess(_ context.Context, id, providerMsgID string) error {
	m.successID = id
	m.successProvider = providerMsgID
	return m.successErr
}

func (m *mockDeliveryRepo) IncrementAttempt(_ context.Context, id string) error {
	m.attemptID = id
	return m.attemptErr
}

func (m *mockDeliveryRepo) GetDeliveryAttemptCount(_ context.Context, _ string) (int, error) {
	return m.attemptCount, m.attemptCountErr
}
