package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"fixmystreet/internal/types"
)

const alreadySubscribed = "This email is already subscribed to this report."

// CreateSubscriber follows a report by email. The address must not already
// be the reporter's or an existing subscriber's; the comparison is exact.
// Authenticated owners are confirmed without a round trip but still get a
// token, which doubles as their unsubscribe key.
func (s *Service) CreateSubscriber(ctx context.Context, reportID int64, email string, actor types.Actor) (*types.ReportSubscriber, error) {
	email = strings.TrimSpace(email)
	verr := &types.ValidationError{}
	switch {
	case email == "":
		verr.Add("email", "This field is required.")
	case !types.IsValidEmail(email):
		verr.Add("email", "Enter a valid e-mail address.")
	}
	if verr.HasErrors() {
		return nil, verr
	}

	report, err := s.reports.GetReport(ctx, reportID)
	if err != nil {
		return nil, err
	}

	token, err := s.tokens.NewToken()
	if err != nil {
		return nil, fmt.Errorf("CreateSubscriber: %w", err)
	}
	sub := &types.ReportSubscriber{
		ReportID:     report.ID,
		Email:        email,
		ConfirmToken: token,
		IsConfirmed:  actor.Owns(email),
		CreatedAt:    s.clock.Now(),
	}

	var b batch
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		first, err := s.updates.GetFirstUpdate(ctx, report.ID)
		if err != nil {
			return err
		}
		if first.Email == email {
			verr.Add("email", alreadySubscribed)
			return verr
		}
		existing, err := s.subscribers.ListSubscribers(ctx, report.ID)
		if err != nil {
			return err
		}
		for _, e := range existing {
			if e.Email == email {
				verr.Add("email", alreadySubscribed)
				return verr
			}
		}

		if err := s.subscribers.CreateSubscriber(ctx, sub); err != nil {
			var appErr *types.AppError
			if errors.As(err, &appErr) && appErr.Code == types.ErrCodeConflictDuplicate {
				verr.Add("email", alreadySubscribed)
				return verr
			}
			return err
		}
		if sub.IsConfirmed {
			return nil
		}
		return s.enqueue(ctx, &b, s.confirmSubscriptionMessage(report, sub))
	})
	if err != nil {
		return nil, err
	}

	s.relay(ctx, b.msgs, nil)
	return sub, nil
}

// ConfirmSubscriber confirms the subscriber holding token. Repeated calls
// are no-ops.
func (s *Service) ConfirmSubscriber(ctx context.Context, token string) (*types.ReportSubscriber, error) {
	if token == "" {
		return nil, types.NewAppError(types.ErrCodeNotFoundSubscriberToken, "subscriber not found", nil)
	}
	var sub *types.ReportSubscriber
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		sub, err = s.subscribers.LockSubscriberByToken(ctx, token)
		if err != nil {
			return err
		}
		if sub.IsConfirmed {
			return nil
		}
		if err := s.subscribers.ConfirmSubscriber(ctx, sub.ID); err != nil {
			return err
		}
		sub.IsConfirmed = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// Unsubscribe deletes the subscriber holding token.
func (s *Service) Unsubscribe(ctx context.Context, token string) error {
	if token == "" {
		return types.NewAppError(types.ErrCodeNotFoundSubscriberToken, "subscriber not found", nil)
	}
	return s.tx.RunInTx(ctx, func(ctx context.Context) error {
		sub, err := s.subscribers.LockSubscriberByToken(ctx, token)
		if err != nil {
			return err
		}
		return s.subscribers.DeleteSubscriber(ctx, sub.ID)
	})
}
