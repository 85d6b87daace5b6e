// Package queue moves notification messages between the API and the email
// worker over SQS.
package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqsTypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/google/uuid"

	"fixmystreet/internal/types"
)

// SQSSender abstracts the SQS SendMessage operation for testability.
// Production code uses the *sqs.Client from aws-sdk-go-v2.
type SQSSender interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// Dispatcher sends lifecycle notifications to the notification queue.
type Dispatcher struct {
	client   SQSSender
	queueURL string
	logger   *slog.Logger
}

// NewDispatcher creates a Dispatcher targeting queueURL.
func NewDispatcher(client SQSSender, queueURL string, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		client:   client,
		queueURL: queueURL,
		logger:   logger,
	}
}

// Dispatch enqueues msg for immediate delivery.
func (d *Dispatcher) Dispatch(ctx context.Context, msg types.NotificationMessage) error {
	if msg.NotificationID == "" {
		msg.NotificationID = uuid.NewString()
	}
	if msg.TraceID == "" {
		msg.TraceID = types.GetRequestID(ctx)
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	if err := Send(ctx, d.client, d.queueURL, msg, 0); err != nil {
		return err
	}

	d.logger.InfoContext(ctx, "notification queued",
		"notification_id", msg.NotificationID,
		"kind", string(msg.Kind),
		"report_id", msg.ReportID,
		"recipients", len(msg.To)+len(msg.CC),
	)
	return nil
}

// Send encodes msg and sends it with the given delay. The delay is clamped
// to the SQS range of 0..900 seconds.
func Send(ctx context.Context, client SQSSender, queueURL string, msg types.NotificationMessage, delay time.Duration) error {
	enc, err := EncodeMessage(msg)
	if err != nil {
		return err
	}

	delaySec := int32(delay.Seconds())
	if delaySec > 900 {
		delaySec = 900
	}
	if delaySec < 0 {
		delaySec = 0
	}

	attrs := map[string]sqsTypes.MessageAttributeValue{
		AttrKind: {
			DataType:    aws.String("String"),
			StringValue: aws.String(string(msg.Kind)),
		},
	}
	if enc.Encoding != "" {
		attrs[AttrContentEncoding] = sqsTypes.MessageAttributeValue{
			DataType:    aws.String("String"),
			StringValue: aws.String(enc.Encoding),
		}
	}

	_, err = client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:          aws.String(queueURL),
		MessageBody:       aws.String(enc.Body),
		DelaySeconds:      delaySec,
		MessageAttributes: attrs,
	})
	if err != nil {
		return fmt.Errorf("queue: failed to send NotificationMessage to %s: %w", queueURL, err)
	}
	return nil
}
