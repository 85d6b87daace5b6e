package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"fixmystreet/internal/types"
)

// CreateReport stores a report with its first update.
//
// When the actor is authenticated as the submitting email, the first update
// is confirmed immediately and the new-report notification is queued.
// Otherwise a confirmation token is minted and a confirmation email is
// queued to the submitter instead. A failed hand-off to the queue does not
// fail the call; the message stays in the outbox for RelayPending.
func (s *Service) CreateReport(ctx context.Context, in CreateReportInput, actor types.Actor) (*types.Report, error) {
	in.normalize()
	verr := in.validate()

	if in.WardID > 0 {
		if _, err := s.cities.GetWard(ctx, in.WardID); err != nil {
			if !isNotFound(err) {
				return nil, err
			}
			verr.Add("ward_id", "The location could not be matched to a ward.")
		}
	}
	if in.CategoryID > 0 {
		if _, err := s.cities.GetCategory(ctx, in.CategoryID); err != nil {
			if !isNotFound(err) {
				return nil, err
			}
			verr.Add("category_id", "Select a valid choice.")
		}
	}
	if verr.HasErrors() {
		return nil, verr
	}

	now := s.clock.Now()
	confirmNow := actor.Owns(in.Email)

	report := &types.Report{
		Title:      in.Title,
		CategoryID: in.CategoryID,
		WardID:     in.WardID,
		CreatedAt:  now,
		UpdatedAt:  now,
		PhotoURL:   in.PhotoURL,
	}
	first := &types.ReportUpdate{
		Desc:        in.Desc,
		Author:      in.Author,
		Email:       in.Email,
		Phone:       in.Phone,
		FirstUpdate: true,
		SubmittedAt: now,
	}
	if confirmNow {
		first.IsConfirmed = true
		first.ConfirmedAt = &now
	} else {
		token, err := s.tokens.NewToken()
		if err != nil {
			return nil, fmt.Errorf("CreateReport: %w", err)
		}
		first.ConfirmToken = token
	}

	var b batch
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.reports.CreateReport(ctx, report); err != nil {
			return err
		}
		first.ReportID = report.ID
		if err := s.updates.CreateUpdate(ctx, first); err != nil {
			return err
		}
		if !confirmNow {
			return s.enqueue(ctx, &b, s.confirmUpdateMessage(report, first))
		}
		msg, err := s.confirmFirstUpdate(ctx, report, first)
		if err != nil {
			return err
		}
		return s.enqueue(ctx, &b, msg)
	})
	if err != nil {
		return nil, err
	}

	s.relay(ctx, b.msgs, report)

	s.logger.Info("report created",
		"report_id", report.ID, "ward_id", report.WardID, "confirmed", report.IsConfirmed)
	return report, nil
}

// CreateUpdate adds a later update to an existing report. Authenticated
// owners skip the confirmation round trip.
func (s *Service) CreateUpdate(ctx context.Context, reportID int64, in CreateUpdateInput, actor types.Actor) (*types.ReportUpdate, error) {
	in.normalize()
	if verr := in.validate(); verr.HasErrors() {
		return nil, verr
	}

	report, err := s.reports.GetReport(ctx, reportID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	confirmNow := actor.Owns(in.Email)

	u := &types.ReportUpdate{
		ReportID:    report.ID,
		Desc:        in.Desc,
		Author:      in.Author,
		Email:       in.Email,
		Phone:       in.Phone,
		IsFixed:     in.IsFixed,
		SubmittedAt: now,
	}
	if confirmNow {
		u.IsConfirmed = true
		u.ConfirmedAt = &now
	} else {
		token, err := s.tokens.NewToken()
		if err != nil {
			return nil, fmt.Errorf("CreateUpdate: %w", err)
		}
		u.ConfirmToken = token
	}

	var b batch
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.updates.CreateUpdate(ctx, u); err != nil {
			return err
		}
		if !confirmNow {
			return s.enqueue(ctx, &b, s.confirmUpdateMessage(report, u))
		}
		locked, err := s.reports.LockReport(ctx, report.ID)
		if err != nil {
			return err
		}
		msgs, err := s.confirmFollowUp(ctx, locked, u, now)
		if err != nil {
			return err
		}
		for _, msg := range msgs {
			if err := s.enqueue(ctx, &b, msg); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.relay(ctx, b.msgs, nil)
	return u, nil
}

// ConfirmUpdate confirms the update holding token.
//
// Confirming an already confirmed update changes nothing and queues nothing.
func (s *Service) ConfirmUpdate(ctx context.Context, token string) (*types.ReportUpdate, error) {
	if token == "" {
		return nil, types.NewAppError(types.ErrCodeNotFoundUpdateToken, "update not found", nil)
	}

	var (
		b      batch
		u      *types.ReportUpdate
		report *types.Report
	)
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		u, err = s.updates.LockUpdateByToken(ctx, token)
		if err != nil {
			return err
		}
		report, err = s.reports.LockReport(ctx, u.ReportID)
		if err != nil {
			return err
		}

		if u.IsConfirmed {
			return nil
		}

		now := s.clock.Now()
		if err := s.updates.ConfirmUpdate(ctx, u.ID, now); err != nil {
			return err
		}
		u.IsConfirmed = true
		u.ConfirmedAt = &now

		var msgs []types.NotificationMessage
		if u.FirstUpdate {
			msg, err := s.confirmFirstUpdate(ctx, report, u)
			if err != nil {
				return err
			}
			msgs = append(msgs, msg)
		} else {
			msgs, err = s.confirmFollowUp(ctx, report, u, now)
			if err != nil {
				return err
			}
		}
		for _, msg := range msgs {
			if err := s.enqueue(ctx, &b, msg); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.relay(ctx, b.msgs, report)
	return u, nil
}

// confirmFirstUpdate confirms the parent report and builds the new-report
// notification. UpdatedAt is pinned to CreatedAt.
func (s *Service) confirmFirstUpdate(ctx context.Context, report *types.Report, first *types.ReportUpdate) (types.NotificationMessage, error) {
	report.IsConfirmed = true
	report.UpdatedAt = report.CreatedAt
	if err := s.reports.UpdateReport(ctx, report); err != nil {
		return types.NotificationMessage{}, err
	}
	sc, err := s.loadScope(ctx, report)
	if err != nil {
		return types.NotificationMessage{}, err
	}
	return s.newReportMessage(sc, first, sc.recipients()), nil
}

// confirmFollowUp applies a confirmed non-first update to its report and
// builds one update notification for the reporter and one per confirmed
// subscriber. Subscriber copies carry an unsubscribe link.
func (s *Service) confirmFollowUp(ctx context.Context, report *types.Report, u *types.ReportUpdate, now time.Time) ([]types.NotificationMessage, error) {
	report.UpdatedAt = now
	if u.IsFixed {
		report.IsFixed = true
		if report.FixedAt == nil {
			report.FixedAt = &now
		}
	}
	if err := s.reports.UpdateReport(ctx, report); err != nil {
		return nil, err
	}

	first, err := s.updates.GetFirstUpdate(ctx, report.ID)
	if err != nil {
		return nil, err
	}
	subs, err := s.subscribers.ListSubscribers(ctx, report.ID)
	if err != nil {
		return nil, err
	}

	msgs := []types.NotificationMessage{s.reportUpdateMessage(report, u, first.Email, "")}
	for _, sub := range subs {
		if !sub.IsConfirmed {
			continue
		}
		msgs = append(msgs, s.reportUpdateMessage(report, u, sub.Email, sub.ConfirmToken))
	}
	return msgs, nil
}

func isNotFound(err error) bool {
	var appErr *types.AppError
	return errors.As(err, &appErr) && strings.HasPrefix(string(appErr.Code), "not_found_")
}
