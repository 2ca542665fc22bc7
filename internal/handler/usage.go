package handler

import (
	"log/slog"
	"net/http"

	driveSvc "skyvault/internal/domain/services/drive"
	"skyvault/internal/httputil"
	"skyvault/internal/plans"
)

// UsageHandler handles quota and plan HTTP requests
type UsageHandler struct {
	usageService driveSvc.UsageService
	plans        *plans.Registry
	logger       *slog.Logger
}

// NewUsageHandler creates a new usage handler
func NewUsageHandler(usageService driveSvc.UsageService, planRegistry *plans.Registry, logger *slog.Logger) *UsageHandler {
	return &UsageHandler{
		usageService: usageService,
		plans:        planRegistry,
		logger:       logger,
	}
}

// GetUsage returns the caller's usage and quota; admins may pass ?owner_id=
// GET /api/usage
func (h *UsageHandler) GetUsage(w http.ResponseWriter, r *http.Request) {
	p, err := getPrincipal(r)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	report, err := h.usageService.Report(r.Context(), p, r.URL.Query().Get("owner_id"))
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, report)
}

// SetPlan switches an owner to another quota plan
// PUT /api/usage/plan
func (h *UsageHandler) SetPlan(w http.ResponseWriter, r *http.Request) {
	p, err := getPrincipal(r)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	var req struct {
		OwnerID string `json:"owner_id"`
		Plan    string `json:"plan"`
	}
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	report, err := h.usageService.SetPlan(r.Context(), p, req.OwnerID, req.Plan)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, report)
}

// ListPlans lists the available quota plans
// GET /api/plans
func (h *UsageHandler) ListPlans(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, h.plans.List())
}
