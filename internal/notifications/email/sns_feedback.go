package email

import (
	"encoding/json"
	"fmt"
	"time"
)

// SNSNotification is the SNS envelope SES publishes feedback in.
type SNSNotification struct {
	Type      string `json:"Type"`
	MessageId string `json:"MessageId"`
	TopicArn  string `json:"TopicArn"`
	Message   string `json:"Message"`
	Timestamp string `json:"Timestamp"`
}

// SESNotification is the SES event carried in SNSNotification.Message.
type SESNotification struct {
	NotificationType string        `json:"notificationType"`
	Bounce           *SESBounce    `json:"bounce,omitempty"`
	Complaint        *SESComplaint `json:"complaint,omitempty"`
	Mail             SESMail       `json:"mail"`
}

type SESBounce struct {
	BounceType        string                `json:"bounceType"`
	BounceSubType     string                `json:"bounceSubType"`
	BouncedRecipients []SESBouncedRecipient `json:"bouncedRecipients"`
	Timestamp         string                `json:"timestamp"`
}

type SESBouncedRecipient struct {
	EmailAddress   string `json:"emailAddress"`
	Action         string `json:"action"`
	Status         string `json:"status"`
	DiagnosticCode string `json:"diagnosticCode"`
}

type SESComplaint struct {
	ComplainedRecipients  []SESComplainedRecipient `json:"complainedRecipients"`
	ComplaintFeedbackType string                   `json:"complaintFeedbackType"`
	Timestamp             string                   `json:"timestamp"`
}

type SESComplainedRecipient struct {
	EmailAddress string `json:"emailAddress"`
}

// SESMail identifies the original send. MessageId is the value SendEmail
// returned and is stored as the delivery's provider_message_id.
type SESMail struct {
	MessageId string `json:"messageId"`
}

// IsSNSFeedback reports whether body looks like an SNS notification
// envelope rather than a NotificationMessage. Used by the worker to route
// records arriving on a shared queue.
func IsSNSFeedback(body []byte) bool {
	var probe struct {
		Type     string `json:"Type"`
		TopicArn string `json:"TopicArn"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		return false
	}
	return probe.Type == "Notification" && probe.TopicArn != ""
}

// ParseSNSFeedback converts an SNS body carrying an SES bounce or complaint
// into FeedbackEvents, one per affected recipient.
//
// Transient bounces and unknown notification types yield no events and no
// error; SES keeps retrying transient bounces itself.
func ParseSNSFeedback(snsBody []byte) ([]FeedbackEvent, error) {
	if len(snsBody) == 0 {
		return nil, fmt.Errorf("sns feedback: empty SNS body")
	}

	var envelope SNSNotification
	if err := json.Unmarshal(snsBody, &envelope); err != nil {
		return nil, fmt.Errorf("sns feedback: failed to parse SNS envelope: %w", err)
	}
	if envelope.Message == "" {
		return nil, fmt.Errorf("sns feedback: SNS Message field is empty")
	}

	var n SESNotification
	if err := json.Unmarshal([]byte(envelope.Message), &n); err != nil {
		return nil, fmt.Errorf("sns feedback: failed to parse SES notification: %w", err)
	}

	switch n.NotificationType {
	case "Bounce":
		return bounceEvents(n)
	case "Complaint":
		return complaintEvents(n)
	default:
		return nil, nil
	}
}

func bounceEvents(n SESNotification) ([]FeedbackEvent, error) {
	if n.Bounce == nil {
		return nil, fmt.Errorf("sns feedback: bounce notification missing bounce details")
	}
	if n.Bounce.BounceType != "Permanent" {
		return nil, nil
	}

	ts := parseTimestamp(n.Bounce.Timestamp)
	events := make([]FeedbackEvent, 0, len(n.Bounce.BouncedRecipients))
	for _, rcpt := range n.Bounce.BouncedRecipients {
		reason := rcpt.DiagnosticCode
		if reason == "" {
			reason = fmt.Sprintf("%s (%s)", n.Bounce.BounceSubType, rcpt.Status)
		}
		events = append(events, FeedbackEvent{
			ProviderMessageID: n.Mail.MessageId,
			EmailAddress:      rcpt.EmailAddress,
			Reason:            reason,
			Type:              FeedbackBounce,
			Timestamp:         ts,
		})
	}
	return events, nil
}

func complaintEvents(n SESNotification) ([]FeedbackEvent, error) {
	if n.Complaint == nil {
		return nil, fmt.Errorf("sns feedback: complaint notification missing complaint details")
	}

	reason := n.Complaint.ComplaintFeedbackType
	if reason == "" {
		reason = "complaint"
	}

	ts := parseTimestamp(n.Complaint.Timestamp)
	events := make([]FeedbackEvent, 0, len(n.Complaint.ComplainedRecipients))
	for _, rcpt := range n.Complaint.ComplainedRecipients {
		events = append(events, FeedbackEvent{
			ProviderMessageID: n.Mail.MessageId,
			EmailAddress:      rcpt.EmailAddress,
			Reason:            reason,
			Type:              FeedbackComplaint,
			Timestamp:         ts,
		})
	}
	return events, nil
}

// parseTimestamp accepts RFC 3339 with or without fractional seconds. An
// empty or unparseable value yields the zero time.
func parseTimestamp(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t
	}
	return time.Time{}
}
