package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"docshelf/internal/contextutil"
	"docshelf/internal/folders"
)

// FoldersHandler handles HTTP requests for the folder tree.
type FoldersHandler struct {
	folders      folders.Service
	defaultOwner string
}

// NewFoldersHandler creates a new FoldersHandler.
func NewFoldersHandler(folders folders.Service, defaultOwner string) *FoldersHandler {
	return &FoldersHandler{folders: folders, defaultOwner: defaultOwner}
}

// CreateFolderRequest is the payload for creating a folder. A null
// parent_id creates it at the root.
type CreateFolderRequest struct {
	Name     string  `json:"name"`
	ParentID *string `json:"parent_id"`
}

// Validate implements request validation.
func (r CreateFolderRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 255)),
	)
}

// Create handles POST /api/folders.
func (h *FoldersHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var req CreateFolderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	rec, err := h.folders.Create(ctx, req.Name, req.ParentID, requestOwner(r, h.defaultOwner))
	if err != nil {
		handleServiceError(w, ctx, err, "Failed to create folder")
		return
	}
	writeJSON(ctx, w, http.StatusCreated, toFolderResponse(rec))
}

// List handles GET /api/folders. The ?parent= query selects the level;
// absent means the root.
func (h *FoldersHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var parentID *string
	if parent := r.URL.Query().Get("parent"); parent != "" {
		parentID = &parent
	}

	children, err := h.folders.ListChildren(ctx, parentID, requestOwner(r, h.defaultOwner))
	if err != nil {
		handleServiceError(w, ctx, err, "Failed to list folders")
		return
	}
	writeJSON(ctx, w, http.StatusOK, toChildrenResponse(children))
}

// UpdateFolderRequest is the payload for renaming or reparenting a folder.
// Omitted fields stay unchanged; move_to_root pulls the folder up to the
// root level.
type UpdateFolderRequest struct {
	Name       *string `json:"name"`
	ParentID   *string `json:"parent_id"`
	MoveToRoot bool    `json:"move_to_root"`
}

// Validate implements request validation.
func (r UpdateFolderRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.NilOrNotEmpty, validation.Length(1, 255)),
	)
}

// Update handles PATCH /api/folders/{id}.
func (h *FoldersHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var req UpdateFolderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	in := folders.UpdateInput{Name: req.Name, ParentID: req.ParentID, MoveToRoot: req.MoveToRoot}
	rec, err := h.folders.Update(ctx, chi.URLParam(r, "id"), requestOwner(r, h.defaultOwner), in)
	if err != nil {
		handleServiceError(w, ctx, err, "Failed to update folder")
		return
	}
	writeJSON(ctx, w, http.StatusOK, toFolderResponse(rec))
}

// Delete handles DELETE /api/folders/{id}. The whole subtree goes with it.
func (h *FoldersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.folders.Delete(ctx, chi.URLParam(r, "id"), requestOwner(r, h.defaultOwner)); err != nil {
		handleServiceError(w, ctx, err, "Failed to delete folder")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MoveContentsRequest is the payload for bulk-moving a folder's direct
// children. A null to_folder_id moves them to the root.
type MoveContentsRequest struct {
	ToFolderID *string `json:"to_folder_id"`
}

// MoveContentsResponse reports how many items moved.
type MoveContentsResponse struct {
	Moved int `json:"moved"`
}

// MoveContents handles POST /api/folders/{id}/move-contents.
func (h *FoldersHandler) MoveContents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var req MoveContentsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	fromID := chi.URLParam(r, "id")
	moved, err := h.folders.MoveContents(ctx, &fromID, req.ToFolderID, requestOwner(r, h.defaultOwner))
	if err != nil {
		handleServiceError(w, ctx, err, "Failed to move folder contents")
		return
	}
	writeJSON(ctx, w, http.StatusOK, MoveContentsResponse{Moved: moved})
}
