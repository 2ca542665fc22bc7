package handler

import (
	"log/slog"
	"net/http"

	driveSvc "skyvault/internal/domain/services/drive"
	"skyvault/internal/httputil"
)

// FolderHandler handles folder HTTP requests
type FolderHandler struct {
	folderService driveSvc.FolderService
	logger        *slog.Logger
}

// NewFolderHandler creates a new folder handler
func NewFolderHandler(folderService driveSvc.FolderService, logger *slog.Logger) *FolderHandler {
	return &FolderHandler{
		folderService: folderService,
		logger:        logger,
	}
}

// CreateFolder creates a new folder
// POST /api/folders
func (h *FolderHandler) CreateFolder(w http.ResponseWriter, r *http.Request) {
	p, err := getPrincipal(r)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	var req driveSvc.CreateFolderRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Principal = p

	folder, err := h.folderService.CreateFolder(r.Context(), &req)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, folder)
}

// GetFolder retrieves a folder by ID
// GET /api/folders/{id}
func (h *FolderHandler) GetFolder(w http.ResponseWriter, r *http.Request) {
	p, err := getPrincipal(r)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	folder, err := h.folderService.GetFolder(r.Context(), p, r.PathValue("id"))
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, folder)
}

// ListChildren lists a folder's live immediate children
// GET /api/folders/{id}/children and GET /api/folders (root level)
func (h *FolderHandler) ListChildren(w http.ResponseWriter, r *http.Request) {
	p, err := getPrincipal(r)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	folders, err := h.folderService.ListChildren(r.Context(), p, optionalID(r.PathValue("id")))
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, folders)
}

// UpdateFolder renames a folder and/or updates its metadata
// PATCH /api/folders/{id}
func (h *FolderHandler) UpdateFolder(w http.ResponseWriter, r *http.Request) {
	p, err := getPrincipal(r)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	var req driveSvc.UpdateFolderRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	folder, err := h.folderService.UpdateFolder(r.Context(), p, r.PathValue("id"), &req)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, folder)
}

// MoveFolder re-parents a folder
// POST /api/folders/{id}/move
func (h *FolderHandler) MoveFolder(w http.ResponseWriter, r *http.Request) {
	p, err := getPrincipal(r)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	var req struct {
		NewParentID *string `json:"new_parent_id"`
	}
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	folder, err := h.folderService.MoveFolder(r.Context(), p, r.PathValue("id"), req.NewParentID)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, folder)
}

// DeleteFolder trashes a folder, or destroys it when ?permanent=true
// DELETE /api/folders/{id}
func (h *FolderHandler) DeleteFolder(w http.ResponseWriter, r *http.Request) {
	p, err := getPrincipal(r)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	permanent := r.URL.Query().Get("permanent") == "true"
	if err := h.folderService.DeleteFolder(r.Context(), p, r.PathValue("id"), permanent); err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RestoreFolder pulls a folder back out of trash
// POST /api/folders/{id}/restore
func (h *FolderHandler) RestoreFolder(w http.ResponseWriter, r *http.Request) {
	p, err := getPrincipal(r)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	if err := h.folderService.RestoreFolder(r.Context(), p, r.PathValue("id")); err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ShareFolder upserts a sharing grant
// POST /api/folders/{id}/share
func (h *FolderHandler) ShareFolder(w http.ResponseWriter, r *http.Request) {
	p, err := getPrincipal(r)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	var req driveSvc.ShareRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	folder, err := h.folderService.ShareFolder(r.Context(), p, r.PathValue("id"), &req)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, folder)
}

// UnshareFolder removes a grantee's entry
// DELETE /api/folders/{id}/share/{granteeID}
func (h *FolderHandler) UnshareFolder(w http.ResponseWriter, r *http.Request) {
	p, err := getPrincipal(r)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	folder, err := h.folderService.UnshareFolder(r.Context(), p, r.PathValue("id"), r.PathValue("granteeID"))
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, folder)
}

// CopyFolder duplicates a folder's metadata under a new parent
// POST /api/folders/{id}/copy
func (h *FolderHandler) CopyFolder(w http.ResponseWriter, r *http.Request) {
	p, err := getPrincipal(r)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	var req struct {
		NewParentID *string `json:"new_parent_id"`
	}
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	folder, err := h.folderService.CopyFolder(r.Context(), p, r.PathValue("id"), req.NewParentID)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, folder)
}

// ListTrash lists the caller's trashed folders
// GET /api/trash/folders
func (h *FolderHandler) ListTrash(w http.ResponseWriter, r *http.Request) {
	p, err := getPrincipal(r)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	folders, err := h.folderService.ListTrash(r.Context(), p)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, folders)
}
