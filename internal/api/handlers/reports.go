// Package handlers exposes the report lifecycle and routing previews over
// HTTP. Each handler depends on a narrow local interface over the lifecycle
// service so tests can stub it.
package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"fixmystreet/internal/core"
	"fixmystreet/internal/lifecycle"
	"fixmystreet/internal/routing"
	"fixmystreet/internal/types"
)

// ReportService is the slice of the lifecycle service the report routes use.
type ReportService interface {
	CreateReport(ctx context.Context, in lifecycle.CreateReportInput, actor types.Actor) (*types.Report, error)
	CreateUpdate(ctx context.Context, reportID int64, in lifecycle.CreateUpdateInput, actor types.Actor) (*types.ReportUpdate, error)
	CreateSubscriber(ctx context.Context, reportID int64, email string, actor types.Actor) (*types.ReportSubscriber, error)
	FlagReport(ctx context.Context, reportID int64, in lifecycle.FlagInput) error
	ResolveRouting(ctx context.Context, reportID int64) (routing.Recipients, error)
}

// --- Request Models ---

// CreateReportRequest is the body of POST /v1/reports. Shape checks live in
// the validate tags; ward and category resolution happen in the service.
type CreateReportRequest struct {
	Title      string `json:"title" validate:"required,max=100"`
	CategoryID int64  `json:"category_id" validate:"required,gt=0"`
	WardID     int64  `json:"ward_id"`
	Author     string `json:"author" validate:"required,max=255"`
	Email      string `json:"email" validate:"required,email"`
	Phone      string `json:"phone,omitempty" validate:"max=255"`
	Desc       string `json:"desc" validate:"required"`
	IsFixed    bool   `json:"is_fixed,omitempty"`
	PhotoURL   string `json:"photo_url,omitempty" validate:"omitempty,url"`
}

// CreateUpdateRequest is the body of POST /v1/reports/{reportID}/updates.
type CreateUpdateRequest struct {
	Author  string `json:"author" validate:"required,max=255"`
	Email   string `json:"email" validate:"required,email"`
	Phone   string `json:"phone,omitempty" validate:"max=255"`
	Desc    string `json:"desc" validate:"required"`
	IsFixed bool   `json:"is_fixed,omitempty"`
}

// CreateSubscriberRequest is the body of POST /v1/reports/{reportID}/subscribers.
type CreateSubscriberRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// FlagReportRequest is the body of POST /v1/reports/{reportID}/flag. Both
// fields are optional.
type FlagReportRequest struct {
	Email  string `json:"email,omitempty" validate:"omitempty,email"`
	Reason string `json:"reason,omitempty" validate:"max=2000"`
}

// --- Response Models ---

// ReportResponse is returned after intake. ConfirmationRequired is true
// until the first update is confirmed.
type ReportResponse struct {
	*types.Report
	ConfirmationRequired bool `json:"confirmation_required"`
}

// UpdateResponse is returned after an update is accepted.
type UpdateResponse struct {
	*types.ReportUpdate
	ConfirmationRequired bool `json:"confirmation_required"`
}

// SubscriberResponse is returned after a subscription request.
type SubscriberResponse struct {
	*types.ReportSubscriber
	ConfirmationRequired bool `json:"confirmation_required"`
}

// PhotoURLChecker vets a photo link before it is stored.
type PhotoURLChecker interface {
	Check(ctx context.Context, rawURL string) error
}

// ReportHandler serves the /v1/reports routes.
type ReportHandler struct {
	svc        ReportService
	validator  *core.Validator
	photoCheck PhotoURLChecker
	logger     *slog.Logger
}

// ReportHandlerOption configures a ReportHandler.
type ReportHandlerOption func(*ReportHandler)

// WithPhotoURLChecker rejects reports whose photo_url fails c.
func WithPhotoURLChecker(c PhotoURLChecker) ReportHandlerOption {
	return func(h *ReportHandler) { h.photoCheck = c }
}

func NewReportHandler(svc ReportService, v *core.Validator, logger *slog.Logger, opts ...ReportHandlerOption) *ReportHandler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &ReportHandler{svc: svc, validator: v, logger: logger}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes mounts the handler on a /v1/reports sub-router.
func (h *ReportHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Route("/{reportID}", func(r chi.Router) {
		r.Get("/routing", h.Routing)
		r.Post("/updates", h.CreateUpdate)
		r.Post("/subscribers", h.Subscribe)
		r.Post("/flag", h.Flag)
	})
}

// Create handles POST /v1/reports.
func (h *ReportHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateReportRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}
	if req.PhotoURL != "" && h.photoCheck != nil {
		if err := h.photoCheck.Check(r.Context(), req.PhotoURL); err != nil {
			h.logger.Warn("photo url rejected",
				"error", err,
				"request_id", types.GetRequestID(r.Context()),
			)
			verr := &types.ValidationError{}
			verr.Add("photo_url", "The photo link must be a public web address.")
			core.Error(w, r, verr)
			return
		}
	}

	report, err := h.svc.CreateReport(r.Context(), lifecycle.CreateReportInput{
		Title:      req.Title,
		CategoryID: req.CategoryID,
		WardID:     req.WardID,
		Author:     req.Author,
		Email:      req.Email,
		Phone:      req.Phone,
		Desc:       req.Desc,
		IsFixed:    req.IsFixed,
		PhotoURL:   req.PhotoURL,
	}, types.GetActor(r.Context()))
	if err != nil {
		core.Error(w, r, err)
		return
	}

	h.logger.Info("report created",
		"report_id", report.ID,
		"confirmed", report.IsConfirmed,
		"request_id", types.GetRequestID(r.Context()),
	)
	core.JSON(w, r, http.StatusCreated, core.APIResponse{Data: ReportResponse{
		Report:               report,
		ConfirmationRequired: !report.IsConfirmed,
	}})
}

// CreateUpdate handles POST /v1/reports/{reportID}/updates.
func (h *ReportHandler) CreateUpdate(w http.ResponseWriter, r *http.Request) {
	reportID, ok := pathID(w, r, "reportID", types.ErrCodeNotFoundReport)
	if !ok {
		return
	}

	var req CreateUpdateRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	update, err := h.svc.CreateUpdate(r.Context(), reportID, lifecycle.CreateUpdateInput{
		Author:  req.Author,
		Email:   req.Email,
		Phone:   req.Phone,
		Desc:    req.Desc,
		IsFixed: req.IsFixed,
	}, types.GetActor(r.Context()))
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusCreated, core.APIResponse{Data: UpdateResponse{
		ReportUpdate:         update,
		ConfirmationRequired: !update.IsConfirmed,
	}})
}

// Subscribe handles POST /v1/reports/{reportID}/subscribers.
func (h *ReportHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	reportID, ok := pathID(w, r, "reportID", types.ErrCodeNotFoundReport)
	if !ok {
		return
	}

	var req CreateSubscriberRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	sub, err := h.svc.CreateSubscriber(r.Context(), reportID, req.Email, types.GetActor(r.Context()))
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusCreated, core.APIResponse{Data: SubscriberResponse{
		ReportSubscriber:     sub,
		ConfirmationRequired: !sub.IsConfirmed,
	}})
}

// Flag handles POST /v1/reports/{reportID}/flag. The notice is queued, so
// the response is 202 with no body.
func (h *ReportHandler) Flag(w http.ResponseWriter, r *http.Request) {
	reportID, ok := pathID(w, r, "reportID", types.ErrCodeNotFoundReport)
	if !ok {
		return
	}

	var req FlagReportRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	if err := h.svc.FlagReport(r.Context(), reportID, lifecycle.FlagInput{
		Email:  req.Email,
		Reason: req.Reason,
	}); err != nil {
		core.Error(w, r, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// Routing handles GET /v1/reports/{reportID}/routing.
func (h *ReportHandler) Routing(w http.ResponseWriter, r *http.Request) {
	reportID, ok := pathID(w, r, "reportID", types.ErrCodeNotFoundReport)
	if !ok {
		return
	}

	recipients, err := h.svc.ResolveRouting(r.Context(), reportID)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	if recipients.To == nil {
		recipients.To = []string{}
	}
	if recipients.CC == nil {
		recipients.CC = []string{}
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: recipients})
}

// pathID parses a positive integer URL parameter. A malformed ID cannot name
// an existing row, so it is reported with notFound.
func pathID(w http.ResponseWriter, r *http.Request, param string, notFound types.ErrorCode) (int64, bool) {
	raw := chi.URLParam(r, param)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		core.Error(w, r, types.NewAppError(notFound, "no record with id "+strconv.Quote(raw), nil))
		return 0, false
	}
	return id, true
}
