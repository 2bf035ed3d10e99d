package handlers

import (
	"net/http"

	"docshelf/internal/search"
)

// SearchHandler handles HTTP requests for search.
type SearchHandler struct {
	search       search.Service
	defaultOwner string
}

// NewSearchHandler creates a new SearchHandler.
func NewSearchHandler(search search.Service, defaultOwner string) *SearchHandler {
	return &SearchHandler{search: search, defaultOwner: defaultOwner}
}

// Search handles GET /api/search. An empty q browses the listing instead of
// searching.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	query := r.URL.Query().Get("q")
	limit := queryInt(r, "limit", 0)
	offset := queryInt(r, "offset", 0)

	results, err := h.search.Search(ctx, query, requestOwner(r, h.defaultOwner), limit, offset)
	if err != nil {
		handleServiceError(w, ctx, err, "Search failed")
		return
	}
	writeJSON(ctx, w, http.StatusOK, toSearchResponse(results))
}

// History handles GET /api/search/history.
func (h *SearchHandler) History(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	recs, err := h.search.History(ctx, requestOwner(r, h.defaultOwner), queryInt(r, "limit", 0))
	if err != nil {
		handleServiceError(w, ctx, err, "Failed to list search history")
		return
	}
	writeJSON(ctx, w, http.StatusOK, toHistoryResponse(recs))
}
