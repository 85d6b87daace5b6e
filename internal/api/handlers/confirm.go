package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"fixmystreet/internal/core"
	"fixmystreet/internal/types"
)

// ConfirmationService covers the token-driven transitions reached from
// links in confirmation emails.
type ConfirmationService interface {
	ConfirmUpdate(ctx context.Context, token string) (*types.ReportUpdate, error)
	ConfirmSubscriber(ctx context.Context, token string) (*types.ReportSubscriber, error)
	Unsubscribe(ctx context.Context, token string) error
}

// ConfirmationHandler serves /v1/updates and /v1/subscribers.
type ConfirmationHandler struct {
	svc       ConfirmationService
	validator *core.Validator
	logger    *slog.Logger
}

func NewConfirmationHandler(svc ConfirmationService, v *core.Validator, logger *slog.Logger) *ConfirmationHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ConfirmationHandler{svc: svc, validator: v, logger: logger}
}

// RegisterRoutes mounts the handler on the /v1 router.
func (h *ConfirmationHandler) RegisterRoutes(r chi.Router) {
	r.Post("/updates/confirm/{token}", h.ConfirmUpdate)
	r.Post("/subscribers/confirm/{token}", h.ConfirmSubscriber)
	r.Delete("/subscribers/{token}", h.Unsubscribe)
}

// ConfirmUpdate handles POST /v1/updates/confirm/{token}. Confirming the
// first update of a report sends the report to the city.
func (h *ConfirmationHandler) ConfirmUpdate(w http.ResponseWriter, r *http.Request) {
	token, ok := h.token(w, r, types.ErrCodeNotFoundUpdateToken)
	if !ok {
		return
	}

	update, err := h.svc.ConfirmUpdate(r.Context(), token)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	h.logger.Info("update confirmed",
		"report_id", update.ReportID,
		"update_id", update.ID,
		"first_update", update.FirstUpdate,
	)
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: update})
}

// ConfirmSubscriber handles POST /v1/subscribers/confirm/{token}.
func (h *ConfirmationHandler) ConfirmSubscriber(w http.ResponseWriter, r *http.Request) {
	token, ok := h.token(w, r, types.ErrCodeNotFoundSubscriberToken)
	if !ok {
		return
	}

	sub, err := h.svc.ConfirmSubscriber(r.Context(), token)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: sub})
}

// Unsubscribe handles DELETE /v1/subscribers/{token}.
func (h *ConfirmationHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	token, ok := h.token(w, r, types.ErrCodeNotFoundSubscriberToken)
	if !ok {
		return
	}

	if err := h.svc.Unsubscribe(r.Context(), token); err != nil {
		core.Error(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// token reads the {token} parameter. A token with characters we never mint
// is answered as not found, the same as an unknown one.
func (h *ConfirmationHandler) token(w http.ResponseWriter, r *http.Request, notFound types.ErrorCode) (string, bool) {
	token := chi.URLParam(r, "token")
	if err := h.validator.ValidateVar("token", token, "token"); err != nil {
		var verr *types.ValidationError
		if errors.As(err, &verr) {
			err = types.NewAppError(notFound, "confirmation link is not valid", nil)
		}
		core.Error(w, r, err)
		return "", false
	}
	return token, true
}
