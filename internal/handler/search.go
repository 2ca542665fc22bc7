package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	models "skyvault/internal/domain/models/drive"
	driveSvc "skyvault/internal/domain/services/drive"
	"skyvault/internal/httputil"
)

// SearchHandler handles search HTTP requests
type SearchHandler struct {
	searchService driveSvc.SearchService
	logger        *slog.Logger
}

// NewSearchHandler creates a new search handler
func NewSearchHandler(searchService driveSvc.SearchService, logger *slog.Logger) *SearchHandler {
	return &SearchHandler{
		searchService: searchService,
		logger:        logger,
	}
}

// Search runs a subtree search over folders and files
// GET /api/search?q=...&folder_id=...&scope=...&limit=...&offset=...
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	p, err := getPrincipal(r)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	q := r.URL.Query()
	opts := &models.SearchOptions{
		Query:    q.Get("q"),
		FolderID: optionalID(q.Get("folder_id")),
		Scope:    models.SearchScope(q.Get("scope")),
	}
	if raw := q.Get("limit"); raw != "" {
		opts.Limit, _ = strconv.Atoi(raw)
	}
	if raw := q.Get("offset"); raw != "" {
		opts.Offset, _ = strconv.Atoi(raw)
	}

	response, err := h.searchService.Search(r.Context(), p, opts)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, response)
}
