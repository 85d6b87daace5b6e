package types

import "time"

// NotificationKind names one outbound email the lifecycle can request.
type NotificationKind string

const (
	KindConfirmUpdate       NotificationKind = "confirm_update"
	KindNewReport           NotificationKind = "new_report"
	KindReportUpdate        NotificationKind = "report_update"
	KindConfirmSubscription NotificationKind = "confirm_subscription"
	KindFlagReport          NotificationKind = "flag_report"
)

// Valid reports whether k is a known kind.
func (k NotificationKind) Valid() bool {
	switch k {
	case KindConfirmUpdate, KindNewReport, KindReportUpdate, KindConfirmSubscription, KindFlagReport:
		return true
	}
	return false
}

// NotificationMessage is the queue envelope carrying one outbound email from
// the lifecycle service to the email worker. JSON tags are snake_case.
type NotificationMessage struct {
	NotificationID string           `json:"notification_id"`
	Kind           NotificationKind `json:"kind"`
	ReportID       int64            `json:"report_id"`

	To      []string `json:"to"`
	CC      []string `json:"cc,omitempty"`
	ReplyTo string   `json:"reply_to,omitempty"`

	// Attachments holds URLs of files to include, e.g. the report photo.
	Attachments []string `json:"attachments,omitempty"`

	CreatedAt time.Time `json:"created_at"`

	// RetryCount is carried across re-publish cycles and incremented by the
	// publisher on every send.
	RetryCount int `json:"retry_count"`

	TraceID string `json:"trace_id,omitempty"`

	// Payload is the template data for Kind.
	Payload map[string]any `json:"payload"`
}

// DeliveryStatus is the lifecycle state of one notification delivery row.
type DeliveryStatus string

const (
	DeliveryStatusPending  DeliveryStatus = "pending"
	DeliveryStatusSent     DeliveryStatus = "sent"
	DeliveryStatusRetrying DeliveryStatus = "retrying"
	DeliveryStatusFailed   DeliveryStatus = "failed"
	DeliveryStatusBounced  DeliveryStatus = "bounced"
	DeliveryStatusSkipped  DeliveryStatus = "skipped"
)

// DeliveryResult tracks the outcome of a send attempt.
type DeliveryResult struct {
	ProviderMessageID string
	Status            DeliveryStatus
	FailureReason     string
	Retryable         bool
}

// SenderIdentity defines the sender for outgoing emails.
type SenderIdentity struct {
	Name    string
	Address string
}

// SendInput is the provider-neutral email a channel hands to a provider.
type SendInput struct {
	To          []string
	CC          []string
	ReplyTo     string
	From        SenderIdentity
	Subject     string
	BodyHTML    string
	BodyText    string
	ReferenceID string
}

// Delivery is the persisted state of one NotificationMessage's send.
type Delivery struct {
	ID                string
	NotificationID    string
	Kind              NotificationKind
	ReportID          int64
	Status            DeliveryStatus
	AttemptCount      int
	LastAttemptAt     *time.Time
	FailureReason     string
	ProviderMessageID string
	DeliveredAt       *time.Time
	CreatedAt         time.Time
}

// Terminal reports whether no further send attempts should be made.
func (d *Delivery) Terminal() bool {
	switch d.Status {
	case DeliveryStatusSent, DeliveryStatusFailed, DeliveryStatusBounced, DeliveryStatusSkipped:
		return true
	}
	return false
}
