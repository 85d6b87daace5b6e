package types

// CloudWatch metric names and dimensions emitted by the email worker.
const (
	DefaultMetricNamespace = "FixMyStreet"

	MetricDeliveryAttempt = "DeliveryAttempt"
	MetricDeliveryLatency = "DeliveryLatency"
	MetricQueueLag        = "NotificationQueueLag"

	DimKind   = "Kind"
	DimResult = "Result"
)
