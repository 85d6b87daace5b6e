package core

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"fixmystreet/internal/types"
)

// CloudWatchClient abstracts the CloudWatch PutMetricData operation for testability.
type CloudWatchClient interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

var _ NotificationMetrics = (*CloudWatchNotificationMetrics)(nil)

// CloudWatchNotificationMetrics emits:
//   - DeliveryAttempt: Dims {Kind, Result} on every delivery outcome
//   - DeliveryLatency: Dims {Kind}, provider call duration
//   - NotificationQueueLag: no dims, enqueue to processing start
//
// Metric failures are logged and never fail a delivery.
type CloudWatchNotificationMetrics struct {
	client    CloudWatchClient
	namespace string
	logger    types.Logger
}

// NewCloudWatchNotificationMetrics publishes to namespace, falling back to
// types.DefaultMetricNamespace.
func NewCloudWatchNotificationMetrics(client CloudWatchClient, namespace string, logger types.Logger) *CloudWatchNotificationMetrics {
	if namespace == "" {
		namespace = types.DefaultMetricNamespace
	}
	return &CloudWatchNotificationMetrics{
		client:    client,
		namespace: namespace,
		logger:    logger,
	}
}

func (m *CloudWatchNotificationMetrics) put(ctx context.Context, datum cwtypes.MetricDatum) error {
	_, err := m.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(m.namespace),
		MetricData: []cwtypes.MetricDatum{datum},
	})
	return err
}

// RecordDelivery emits a DeliveryAttempt count.
func (m *CloudWatchNotificationMetrics) RecordDelivery(ctx context.Context, kind types.NotificationKind, result MetricResult) {
	err := m.put(ctx, cwtypes.MetricDatum{
		MetricName: aws.String(types.MetricDeliveryAttempt),
		Value:      aws.Float64(1),
		Unit:       cwtypes.StandardUnitCount,
		Dimensions: []cwtypes.Dimension{
			{Name: aws.String(types.DimKind), Value: aws.String(string(kind))},
			{Name: aws.String(types.DimResult), Value: aws.String(string(result))},
		},
	})
	if err != nil {
		m.logger.Error("failed to record delivery metric",
			"error", err.Error(),
			"kind", string(kind),
			"result", string(result),
		)
	}
}

// RecordLatency emits the provider call duration in milliseconds.
func (m *CloudWatchNotificationMetrics) RecordLatency(ctx context.Context, kind types.NotificationKind, duration time.Duration) {
	err := m.put(ctx, cwtypes.MetricDatum{
		MetricName: aws.String(types.MetricDeliveryLatency),
		Value:      aws.Float64(float64(duration.Milliseconds())),
		Unit:       cwtypes.StandardUnitMilliseconds,
		Dimensions: []cwtypes.Dimension{
			{Name: aws.String(types.DimKind), Value: aws.String(string(kind))},
		},
	})
	if err != nil {
		m.logger.Error("failed to record latency metric",
			"error", err.Error(),
			"kind", string(kind),
			"duration_ms", duration.Milliseconds(),
		)
	}
}

// RecordQueueLag emits the time a message spent in the queue.
func (m *CloudWatchNotificationMetrics) RecordQueueLag(ctx context.Context, lag time.Duration) {
	err := m.put(ctx, cwtypes.MetricDatum{
		MetricName: aws.String(types.MetricQueueLag),
		Value:      aws.Float64(float64(lag.Milliseconds())),
		Unit:       cwtypes.StandardUnitMilliseconds,
	})
	if err != nil {
		m.logger.Error("failed to record queue lag metric",
			"error", err.Error(),
			"lag_ms", lag.Milliseconds(),
		)
	}
}
