package handler

import (
	"log/slog"
	"net/http"

	driveSvc "skyvault/internal/domain/services/drive"
	"skyvault/internal/httputil"
)

// MaintenanceHandler handles repair and consistency HTTP requests
type MaintenanceHandler struct {
	maintenanceService driveSvc.MaintenanceService
	logger             *slog.Logger
}

// NewMaintenanceHandler creates a new maintenance handler
func NewMaintenanceHandler(maintenanceService driveSvc.MaintenanceService, logger *slog.Logger) *MaintenanceHandler {
	return &MaintenanceHandler{
		maintenanceService: maintenanceService,
		logger:             logger,
	}
}

// FolderSize recomputes a folder's recursive live size
// GET /api/folders/{id}/size
func (h *MaintenanceHandler) FolderSize(w http.ResponseWriter, r *http.Request) {
	p, err := getPrincipal(r)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	size, err := h.maintenanceService.FolderSize(r.Context(), p, r.PathValue("id"))
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]int64{"size": size})
}

// CheckConsistency compares a folder's counters against recomputed truth
// GET /api/folders/{id}/consistency
func (h *MaintenanceHandler) CheckConsistency(w http.ResponseWriter, r *http.Request) {
	p, err := getPrincipal(r)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	if err := h.maintenanceService.CheckFolderConsistency(r.Context(), p, r.PathValue("id")); err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]bool{"consistent": true})
}

// RepairCounts rewrites a folder's counters from recomputed truth
// POST /api/folders/{id}/repair
func (h *MaintenanceHandler) RepairCounts(w http.ResponseWriter, r *http.Request) {
	p, err := getPrincipal(r)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	folder, err := h.maintenanceService.RepairFolderCounts(r.Context(), p, r.PathValue("id"))
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, folder)
}

// Repair runs the full repair pass over the caller's tree
// POST /api/maintenance/repair
func (h *MaintenanceHandler) Repair(w http.ResponseWriter, r *http.Request) {
	p, err := getPrincipal(r)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	report, err := h.maintenanceService.Repair(r.Context(), p)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, report)
}

// RecomputeUsage rebuilds the caller's storage-used counter
// POST /api/maintenance/usage/recompute
func (h *MaintenanceHandler) RecomputeUsage(w http.ResponseWriter, r *http.Request) {
	p, err := getPrincipal(r)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	used, err := h.maintenanceService.RecomputeUsage(r.Context(), p, r.URL.Query().Get("owner_id"))
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]int64{"storage_used": used})
}
