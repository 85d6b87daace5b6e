package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fixmystreet/internal/queue"
	"fixmystreet/internal/types"
)

type mockSQSSender struct {
	input *sqs.SendMessageInput
	err   error
}

func (m *mockSQSSender) SendMessage(_ context.Context, params *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	m.input = params
	if m.err != nil {
		return nil, m.err
	}
	return &sqs.SendMessageOutput{}, nil
}

func TestPublish_IncrementsRetryCount(t *testing.T) {
	client := &mockSQSSender{}
	p := NewNotificationPublisher(client, "https://sqs.test/q", &mockLogger{})

	msg := types.NotificationMessage{NotificationID: "n-1", Kind: types.KindReportUpdate, RetryCount: 1}
	require.NoError(t, p.Publish(context.Background(), msg, 4*time.Second))

	assert.Equal(t, int32(4), client.input.DelaySeconds)
	decoded, err := queue.DecodeMessage(aws.ToString(client.input.MessageBody), "")
	require.NoError(t, err)
	assert.Equal(t, 2, decoded.RetryCount)
	assert.Equal(t, 1, msg.RetryCount, "caller's copy is unchanged")
}

func TestPublish_Error(t *testing.T) {
	client := &mockSQSSender{err: errors.New("access denied")}
	p := NewNotificationPublisher(client, "q", &mockLogger{})

	err := p.Publish(context.Background(), types.NotificationMessage{NotificationID: "n-1"}, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
}
