package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	driveSvc "skyvault/internal/domain/services/drive"
	"skyvault/internal/httputil"
)

// FileHandler handles file HTTP requests
type FileHandler struct {
	fileService driveSvc.FileService
	logger      *slog.Logger
}

// NewFileHandler creates a new file handler
func NewFileHandler(fileService driveSvc.FileService, logger *slog.Logger) *FileHandler {
	return &FileHandler{
		fileService: fileService,
		logger:      logger,
	}
}

// CreateFile reserves an uploading record
// POST /api/files
func (h *FileHandler) CreateFile(w http.ResponseWriter, r *http.Request) {
	p, err := getPrincipal(r)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	var req driveSvc.CreateFileRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Principal = p

	file, err := h.fileService.CreateFile(r.Context(), &req)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, file)
}

// CompleteUpload reports durably stored content and activates the file
// POST /api/files/{id}/complete
func (h *FileHandler) CompleteUpload(w http.ResponseWriter, r *http.Request) {
	p, err := getPrincipal(r)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	var res driveSvc.UploadResult
	if err := httputil.ParseJSON(w, r, &res); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	file, err := h.fileService.CompleteUpload(r.Context(), p, r.PathValue("id"), &res)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, file)
}

// GetFile retrieves a file by ID
// GET /api/files/{id}
func (h *FileHandler) GetFile(w http.ResponseWriter, r *http.Request) {
	p, err := getPrincipal(r)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	file, err := h.fileService.GetFile(r.Context(), p, r.PathValue("id"))
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, file)
}

// RenameFile renames a file
// POST /api/files/{id}/rename
func (h *FileHandler) RenameFile(w http.ResponseWriter, r *http.Request) {
	p, err := getPrincipal(r)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	file, err := h.fileService.RenameFile(r.Context(), p, r.PathValue("id"), req.Name)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, file)
}

// MoveFile re-homes a file into another folder
// POST /api/files/{id}/move
func (h *FileHandler) MoveFile(w http.ResponseWriter, r *http.Request) {
	p, err := getPrincipal(r)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	var req struct {
		NewFolderID *string `json:"new_folder_id"`
	}
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	file, err := h.fileService.MoveFile(r.Context(), p, r.PathValue("id"), req.NewFolderID)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, file)
}

// DeleteFile trashes a file, or destroys it when ?permanent=true
// DELETE /api/files/{id}
func (h *FileHandler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	p, err := getPrincipal(r)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	permanent := r.URL.Query().Get("permanent") == "true"
	if err := h.fileService.DeleteFile(r.Context(), p, r.PathValue("id"), permanent); err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ShareFile upserts a sharing grant
// POST /api/files/{id}/share
func (h *FileHandler) ShareFile(w http.ResponseWriter, r *http.Request) {
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

	file, err := h.fileService.ShareFile(r.Context(), p, r.PathValue("id"), &req)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, file)
}

// UnshareFile removes a grantee's entry
// DELETE /api/files/{id}/share/{granteeID}
func (h *FileHandler) UnshareFile(w http.ResponseWriter, r *http.Request) {
	p, err := getPrincipal(r)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	file, err := h.fileService.UnshareFile(r.Context(), p, r.PathValue("id"), r.PathValue("granteeID"))
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, file)
}

// CopyFile duplicates a file into a new folder
// POST /api/files/{id}/copy
func (h *FileHandler) CopyFile(w http.ResponseWriter, r *http.Request) {
	p, err := getPrincipal(r)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	var req struct {
		NewFolderID *string `json:"new_folder_id"`
	}
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	file, err := h.fileService.CopyFile(r.Context(), p, r.PathValue("id"), req.NewFolderID)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, file)
}

// Quarantine contains a file
// POST /api/files/{id}/quarantine
func (h *FileHandler) Quarantine(w http.ResponseWriter, r *http.Request) {
	p, err := getPrincipal(r)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	var req struct {
		Reason string `json:"reason"`
	}
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	file, err := h.fileService.Quarantine(r.Context(), p, r.PathValue("id"), req.Reason)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, file)
}

// Restore releases a file from quarantine
// POST /api/files/{id}/unquarantine
func (h *FileHandler) Restore(w http.ResponseWriter, r *http.Request) {
	p, err := getPrincipal(r)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	var req struct {
		Reason string `json:"reason"`
	}
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	file, err := h.fileService.Restore(r.Context(), p, r.PathValue("id"), req.Reason)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, file)
}

// ReplaceContent applies new content over an existing file
// POST /api/files/{id}/content
func (h *FileHandler) ReplaceContent(w http.ResponseWriter, r *http.Request) {
	p, err := getPrincipal(r)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	var res driveSvc.UploadResult
	if err := httputil.ParseJSON(w, r, &res); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	file, err := h.fileService.ReplaceContent(r.Context(), p, r.PathValue("id"), &res)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, file)
}

// ListVersions returns the file's version history, oldest first
// GET /api/files/{id}/versions
func (h *FileHandler) ListVersions(w http.ResponseWriter, r *http.Request) {
	p, err := getPrincipal(r)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	versions, err := h.fileService.ListVersions(r.Context(), p, r.PathValue("id"))
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, versions)
}

// RestoreVersion makes a historical version the active content
// POST /api/files/{id}/versions/{version}/restore
func (h *FileHandler) RestoreVersion(w http.ResponseWriter, r *http.Request) {
	p, err := getPrincipal(r)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	version, err := strconv.Atoi(r.PathValue("version"))
	if err != nil || version < 1 {
		httputil.RespondError(w, http.StatusBadRequest, "version must be a positive integer")
		return
	}

	file, err := h.fileService.RestoreVersion(r.Context(), p, r.PathValue("id"), version)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, file)
}

// DownloadURL issues a temporary read URL for the file
// GET /api/files/{id}/download
func (h *FileHandler) DownloadURL(w http.ResponseWriter, r *http.Request) {
	p, err := getPrincipal(r)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	var ttl time.Duration
	if raw := r.URL.Query().Get("ttl"); raw != "" {
		ttl, err = time.ParseDuration(raw)
		if err != nil {
			httputil.RespondError(w, http.StatusBadRequest, "ttl must be a duration like 15m")
			return
		}
	}

	url, err := h.fileService.DownloadURL(r.Context(), p, r.PathValue("id"), ttl)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]string{"url": url})
}
