package lifecycle

import (
	"context"
	"strings"

	"fixmystreet/internal/types"
)

// FlagInput reports a report as inappropriate.
type FlagInput struct {
	Email  string `json:"email,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// FlagReport notifies the site administrator about a report.
func (s *Service) FlagReport(ctx context.Context, reportID int64, in FlagInput) error {
	in.Email = strings.TrimSpace(in.Email)
	in.Reason = strings.TrimSpace(in.Reason)
	if in.Email != "" && !types.IsValidEmail(in.Email) {
		verr := &types.ValidationError{}
		verr.Add("email", "Enter a valid e-mail address.")
		return verr
	}
	if s.settings.AdminEmail == "" {
		return types.NewAppError(types.ErrCodeInternalUnexpected, "no administrator address is configured", nil)
	}

	report, err := s.reports.GetReport(ctx, reportID)
	if err != nil {
		return err
	}

	var b batch
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		return s.enqueue(ctx, &b, s.flagReportMessage(report, in))
	})
	if err != nil {
		return err
	}
	s.relay(ctx, b.msgs, nil)
	s.logger.Warn("report flagged", "report_id", report.ID)
	return nil
}
