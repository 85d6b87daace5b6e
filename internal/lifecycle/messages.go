package lifecycle

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"fixmystreet/internal/routing"
	"fixmystreet/internal/types"
)

func (s *Service) message(kind types.NotificationKind, reportID int64, to []string, payload map[string]any) types.NotificationMessage {
	return types.NotificationMessage{
		NotificationID: uuid.NewString(),
		Kind:           kind,
		ReportID:       reportID,
		To:             to,
		CreatedAt:      s.clock.Now(),
		Payload:        payload,
	}
}

func (s *Service) link(format string, args ...any) string {
	return strings.TrimRight(s.settings.BaseURL, "/") + fmt.Sprintf(format, args...)
}

func (s *Service) reportURL(reportID int64) string {
	return s.link("/reports/%d", reportID)
}

func (s *Service) confirmUpdateMessage(report *types.Report, u *types.ReportUpdate) types.NotificationMessage {
	return s.message(types.KindConfirmUpdate, report.ID, []string{u.Email}, map[string]any{
		"report_title": report.Title,
		"report_url":   s.reportURL(report.ID),
		"confirm_url":  s.link("/reports/updates/confirm/%s", u.ConfirmToken),
		"author":       u.Author,
		"desc":         u.Desc,
		"first_update": u.FirstUpdate,
	})
}

func (s *Service) newReportMessage(sc *reportScope, first *types.ReportUpdate, to routing.Recipients) types.NotificationMessage {
	msg := s.message(types.KindNewReport, sc.report.ID, to.To, map[string]any{
		"report_title": sc.report.Title,
		"report_url":   s.reportURL(sc.report.ID),
		"category":     sc.category.Name,
		"ward":         sc.ward.Name,
		"city":         sc.city.Name,
		"author":       first.Author,
		"email":        first.Email,
		"phone":        first.Phone,
		"desc":         first.Desc,
		"photo_url":    sc.report.PhotoURL,
		"created_at":   sc.report.CreatedAt.Format("2006-01-02 15:04 MST"),
	})
	msg.CC = to.CC
	msg.ReplyTo = first.Email
	if sc.report.PhotoURL != "" {
		msg.Attachments = []string{sc.report.PhotoURL}
	}
	return msg
}

// reportUpdateMessage addresses one recipient. A non-empty subscriberToken
// adds the unsubscribe link for that subscriber.
func (s *Service) reportUpdateMessage(report *types.Report, u *types.ReportUpdate, to, subscriberToken string) types.NotificationMessage {
	payload := map[string]any{
		"report_title": report.Title,
		"report_url":   s.reportURL(report.ID),
		"author":       u.Author,
		"desc":         u.Desc,
		"is_fixed":     u.IsFixed,
	}
	if subscriberToken != "" {
		payload["unsubscribe_url"] = s.unsubscribeURL(subscriberToken)
	}
	return s.message(types.KindReportUpdate, report.ID, []string{to}, payload)
}

func (s *Service) unsubscribeURL(token string) string {
	return s.link("/reports/subscribers/unsubscribe/%s", token)
}

func (s *Service) confirmSubscriptionMessage(report *types.Report, sub *types.ReportSubscriber) types.NotificationMessage {
	return s.message(types.KindConfirmSubscription, report.ID, []string{sub.Email}, map[string]any{
		"report_title":    report.Title,
		"report_url":      s.reportURL(report.ID),
		"confirm_url":     s.link("/reports/subscribers/confirm/%s", sub.ConfirmToken),
		"unsubscribe_url": s.unsubscribeURL(sub.ConfirmToken),
	})
}

func (s *Service) flagReportMessage(report *types.Report, in FlagInput) types.NotificationMessage {
	msg := s.message(types.KindFlagReport, report.ID, []string{s.settings.AdminEmail}, map[string]any{
		"report_title": report.Title,
		"report_url":   s.reportURL(report.ID),
		"reason":       in.Reason,
		"flagged_by":   in.Email,
	})
	msg.ReplyTo = in.Email
	return msg
}
