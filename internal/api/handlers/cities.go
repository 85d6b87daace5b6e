package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"fixmystreet/internal/core"
	"fixmystreet/internal/routing"
	"fixmystreet/internal/types"
)

// RuleDescriber renders a city's routing rules.
type RuleDescriber interface {
	DescribeRules(ctx context.Context, cityID int64, wardID *int64) ([]routing.Description, error)
}

// RuleView is one described rule. Text is the sentence shown on the city's
// contact page.
type RuleView struct {
	routing.Description
	Text string `json:"text"`
}

// CityHandler serves /v1/cities.
type CityHandler struct {
	svc    RuleDescriber
	logger *slog.Logger
}

func NewCityHandler(svc RuleDescriber, logger *slog.Logger) *CityHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CityHandler{svc: svc, logger: logger}
}

// RegisterRoutes mounts the handler on a /v1/cities sub-router.
func (h *CityHandler) RegisterRoutes(r chi.Router) {
	r.Get("/{cityID}/rules", h.Rules)
}

// Rules handles GET /v1/cities/{cityID}/rules. An optional ward_id query
// parameter resolves ward-dependent rules to that ward's addresses.
func (h *CityHandler) Rules(w http.ResponseWriter, r *http.Request) {
	cityID, ok := pathID(w, r, "cityID", types.ErrCodeNotFoundCity)
	if !ok {
		return
	}

	var wardID *int64
	if raw := r.URL.Query().Get("ward_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			verr := &types.ValidationError{}
			verr.Add("ward_id", "Enter a whole number.")
			core.Error(w, r, verr)
			return
		}
		wardID = &id
	}

	descs, err := h.svc.DescribeRules(r.Context(), cityID, wardID)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	views := make([]RuleView, 0, len(descs))
	for _, d := range descs {
		views = append(views, RuleView{Description: d, Text: d.String()})
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: views})
}
