package handlers

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"docshelf/internal/contextutil"
	"docshelf/internal/files"
	"docshelf/internal/storage"
)

// FilesHandler handles HTTP requests for file records.
type FilesHandler struct {
	files        files.Service
	defaultOwner string
}

// NewFilesHandler creates a new FilesHandler.
func NewFilesHandler(files files.Service, defaultOwner string) *FilesHandler {
	return &FilesHandler{files: files, defaultOwner: defaultOwner}
}

// CreateFileRequest is the payload for creating a file record. Content
// travels base64-encoded, or not at all when external_ref points at bytes
// uploaded out-of-band.
type CreateFileRequest struct {
	Filename      string  `json:"filename"`
	OriginalName  string  `json:"original_name"`
	MIMEType      string  `json:"mime_type"`
	FolderID      *string `json:"folder_id"`
	ContentBase64 string  `json:"content_base64"`
	ExternalRef   string  `json:"external_ref"`
	SizeBytes     int64   `json:"size_bytes"`
}

// Validate implements request validation.
func (r CreateFileRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Filename, validation.Required, validation.Length(1, 512)),
		validation.Field(&r.MIMEType, validation.Length(0, 255)),
		validation.Field(&r.SizeBytes, validation.Min(0)),
	)
}

func (r CreateFileRequest) toInput(owner string) (files.CreateInput, error) {
	in := files.CreateInput{
		Owner:        owner,
		Filename:     r.Filename,
		OriginalName: r.OriginalName,
		MIMEType:     r.MIMEType,
		FolderID:     r.FolderID,
		ExternalRef:  r.ExternalRef,
		DeclaredSize: r.SizeBytes,
	}
	if r.ContentBase64 != "" {
		raw, err := base64.StdEncoding.DecodeString(r.ContentBase64)
		if err != nil {
			return files.CreateInput{}, err
		}
		in.Raw = raw
	}
	return in, nil
}

// Create handles POST /api/files.
func (h *FilesHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var req CreateFileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	in, err := req.toInput(requestOwner(r, h.defaultOwner))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid base64 content")
		return
	}

	rec, err := h.files.Create(ctx, in)
	if err != nil {
		handleServiceError(w, ctx, err, "Failed to create file")
		return
	}
	writeJSON(ctx, w, http.StatusCreated, toFileResponse(rec))
}

// BatchCreateRequest is the payload for creating many files at once.
type BatchCreateRequest struct {
	Files []CreateFileRequest `json:"files"`
}

// Validate implements request validation.
func (r BatchCreateRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Files, validation.Required, validation.Length(1, 100)),
	)
}

// BatchItemError reports one failed item of a batch.
type BatchItemError struct {
	Index    int    `json:"index"`
	Filename string `json:"filename"`
	Error    string `json:"error"`
}

// BatchCreateResponse reports the per-item outcome of a batch create.
type BatchCreateResponse struct {
	Created []FileResponse   `json:"created"`
	Errors  []BatchItemError `json:"errors"`
}

// CreateBatch handles POST /api/files/batch.
func (h *FilesHandler) CreateBatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)
	owner := requestOwner(r, h.defaultOwner)

	var req BatchCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	items := make([]files.CreateInput, 0, len(req.Files))
	resp := BatchCreateResponse{Created: []FileResponse{}, Errors: []BatchItemError{}}
	// Undecodable items fail up front; the rest still go through.
	indexes := make([]int, 0, len(req.Files))
	for i, fileReq := range req.Files {
		in, err := fileReq.toInput(owner)
		if err != nil {
			resp.Errors = append(resp.Errors, BatchItemError{Index: i, Filename: fileReq.Filename, Error: "invalid base64 content"})
			continue
		}
		items = append(items, in)
		indexes = append(indexes, i)
	}

	result := h.files.CreateBatch(ctx, owner, items)
	for _, rec := range result.Created {
		resp.Created = append(resp.Created, toFileResponse(rec))
	}
	for _, itemErr := range result.Errors {
		resp.Errors = append(resp.Errors, BatchItemError{
			Index:    indexes[itemErr.Index],
			Filename: itemErr.Filename,
			Error:    itemErr.Err.Error(),
		})
	}

	status := http.StatusCreated
	if len(resp.Created) == 0 {
		status = http.StatusBadRequest
	} else if len(resp.Errors) > 0 {
		status = http.StatusMultiStatus
	}
	writeJSON(ctx, w, status, resp)
}

// List handles GET /api/files.
func (h *FilesHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner := requestOwner(r, h.defaultOwner)

	limit := queryInt(r, "limit", 0)
	offset := queryInt(r, "offset", 0)

	listing, err := h.files.List(ctx, owner, limit, offset)
	if err != nil {
		handleServiceError(w, ctx, err, "Failed to list files")
		return
	}
	writeJSON(ctx, w, http.StatusOK, toListingResponse(listing))
}

// Get handles GET /api/files/{id}.
func (h *FilesHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rec, err := h.files.Get(ctx, chi.URLParam(r, "id"), requestOwner(r, h.defaultOwner))
	if err != nil {
		handleServiceError(w, ctx, err, "Failed to get file")
		return
	}
	writeJSON(ctx, w, http.StatusOK, toFileResponse(rec))
}

// Content handles GET /api/files/{id}/content.
func (h *FilesHandler) Content(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner := requestOwner(r, h.defaultOwner)
	id := chi.URLParam(r, "id")

	rec, err := h.files.Get(ctx, id, owner)
	if err != nil {
		handleServiceError(w, ctx, err, "Failed to get file")
		return
	}
	data, err := h.files.Content(ctx, id, owner)
	if err != nil {
		handleServiceError(w, ctx, err, "Failed to fetch file content")
		return
	}

	contentType := rec.MIMEType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// UpdateStatusRequest is the payload for a status transition.
type UpdateStatusRequest struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

// Validate implements request validation.
func (r UpdateStatusRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Status, validation.Required, validation.In(
			string(storage.StatusPending), string(storage.StatusProcessing),
			string(storage.StatusCompleted), string(storage.StatusError),
		)),
	)
}

// UpdateStatus handles PATCH /api/files/{id}/status.
func (h *FilesHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	id := chi.URLParam(r, "id")
	owner := requestOwner(r, h.defaultOwner)
	if err := h.files.UpdateStatus(ctx, id, owner, storage.Status(req.Status), req.Error); err != nil {
		handleServiceError(w, ctx, err, "Failed to update status")
		return
	}

	rec, err := h.files.Get(ctx, id, owner)
	if err != nil {
		handleServiceError(w, ctx, err, "Failed to get file")
		return
	}
	writeJSON(ctx, w, http.StatusOK, toFileResponse(rec))
}

// AttachMetadataRequest is the payload the processing pipeline posts when a
// file finishes.
type AttachMetadataRequest struct {
	Summary    string    `json:"summary"`
	Keywords   []string  `json:"keywords"`
	Topics     []string  `json:"topics"`
	Categories []string  `json:"categories"`
	Excerpt    string    `json:"excerpt"`
	Embedding  []float32 `json:"embedding"`
	Confidence float64   `json:"confidence"`
}

// Validate implements request validation.
func (r AttachMetadataRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Embedding, validation.Required),
		validation.Field(&r.Confidence, validation.Min(0.0), validation.Max(1.0)),
	)
}

// AttachMetadata handles PUT /api/files/{id}/metadata.
func (h *FilesHandler) AttachMetadata(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var req AttachMetadataRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	meta := files.MetadataInput{
		Summary:    req.Summary,
		Keywords:   req.Keywords,
		Topics:     req.Topics,
		Categories: req.Categories,
		Excerpt:    req.Excerpt,
		Embedding:  req.Embedding,
		Confidence: req.Confidence,
	}
	if err := h.files.AttachMetadata(ctx, chi.URLParam(r, "id"), requestOwner(r, h.defaultOwner), meta); err != nil {
		handleServiceError(w, ctx, err, "Failed to attach metadata")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Retry handles POST /api/files/{id}/retry.
func (h *FilesHandler) Retry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.files.Retry(ctx, chi.URLParam(r, "id"), requestOwner(r, h.defaultOwner)); err != nil {
		handleServiceError(w, ctx, err, "Failed to retry file")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MoveFilesRequest is the payload for reassigning files to a folder.
// A null folder_id moves them to the root.
type MoveFilesRequest struct {
	FileIDs  []string `json:"file_ids"`
	FolderID *string  `json:"folder_id"`
}

// Validate implements request validation.
func (r MoveFilesRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FileIDs, validation.Required, validation.Length(1, 500)),
	)
}

// MoveFilesResponse reports how many files moved.
type MoveFilesResponse struct {
	Moved int `json:"moved"`
}

// Move handles POST /api/files/move.
func (h *FilesHandler) Move(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var req MoveFilesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	moved, err := h.files.Move(ctx, req.FileIDs, req.FolderID, requestOwner(r, h.defaultOwner))
	if err != nil {
		handleServiceError(w, ctx, err, "Failed to move files")
		return
	}
	writeJSON(ctx, w, http.StatusOK, MoveFilesResponse{Moved: moved})
}

// Delete handles DELETE /api/files/{id}.
func (h *FilesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.files.Delete(ctx, chi.URLParam(r, "id"), requestOwner(r, h.defaultOwner)); err != nil {
		handleServiceError(w, ctx, err, "Failed to delete file")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// StatsResponse aggregates an owner's file counts and byte totals.
type StatsResponse struct {
	TotalFiles  int            `json:"total_files"`
	ByStatus    map[string]int `json:"by_status"`
	TotalBytes  int64          `json:"total_bytes"`
	InlineBytes int64          `json:"inline_bytes"`
}

// Stats handles GET /api/stats.
func (h *FilesHandler) Stats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	stats, err := h.files.Stats(ctx, requestOwner(r, h.defaultOwner))
	if err != nil {
		handleServiceError(w, ctx, err, "Failed to aggregate stats")
		return
	}

	byStatus := make(map[string]int, len(stats.ByStatus))
	for status, count := range stats.ByStatus {
		byStatus[string(status)] = count
	}
	writeJSON(ctx, w, http.StatusOK, StatsResponse{
		TotalFiles:  stats.TotalFiles,
		ByStatus:    byStatus,
		TotalBytes:  stats.TotalBytes,
		InlineBytes: stats.InlineBytes,
	})
}

// queryInt parses an integer query parameter, falling back to def.
func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return val
}
