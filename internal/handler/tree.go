package handler

import (
	"log/slog"
	"net/http"

	driveSvc "skyvault/internal/domain/services/drive"
	"skyvault/internal/httputil"
)

// TreeHandler handles structure query HTTP requests
type TreeHandler struct {
	treeService driveSvc.TreeService
	logger      *slog.Logger
}

// NewTreeHandler creates a new tree handler
func NewTreeHandler(treeService driveSvc.TreeService, logger *slog.Logger) *TreeHandler {
	return &TreeHandler{
		treeService: treeService,
		logger:      logger,
	}
}

// GetTree returns the caller's full nested folder/file tree
// GET /api/tree
func (h *TreeHandler) GetTree(w http.ResponseWriter, r *http.Request) {
	p, err := getPrincipal(r)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	tree, err := h.treeService.Tree(r.Context(), p)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, tree)
}

// GetBreadcrumbs returns the root-first ancestor chain of a folder
// GET /api/folders/{id}/breadcrumbs
func (h *TreeHandler) GetBreadcrumbs(w http.ResponseWriter, r *http.Request) {
	p, err := getPrincipal(r)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	crumbs, err := h.treeService.Breadcrumbs(r.Context(), p, r.PathValue("id"))
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, crumbs)
}

// HealthCheck reports liveness
// GET /health
func (h *TreeHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
