package handlers

import (
	"net/http"
	"time"

	"docshelf/internal/folders"
	"docshelf/internal/search"
	"docshelf/internal/storage"
)

// FileResponse is the wire shape of a file record. Content bytes are never
// part of it; they have their own endpoint.
type FileResponse struct {
	ID           string  `json:"id"`
	Filename     string  `json:"filename"`
	OriginalName string  `json:"original_name"`
	MIMEType     string  `json:"mime_type"`
	SizeBytes    int64   `json:"size_bytes"`
	StorageKind  string  `json:"storage_kind"`
	FolderID     *string `json:"folder_id"`
	UploadedAt   string  `json:"uploaded_at"`
	ProcessedAt  *string `json:"processed_at,omitempty"`
	Status       string  `json:"status"`
	ProcessError string  `json:"process_error,omitempty"`
}

// MetadataResponse is the wire shape of a metadata row. The embedding is
// internal and never serialized.
type MetadataResponse struct {
	Summary    string   `json:"summary"`
	Keywords   []string `json:"keywords"`
	Topics     []string `json:"topics"`
	Categories []string `json:"categories"`
	Excerpt    string   `json:"excerpt"`
	Confidence float64  `json:"confidence"`
}

// FileWithMetadataResponse is a file joined with its optional metadata.
// Missing metadata renders as null, never as an error.
type FileWithMetadataResponse struct {
	FileResponse
	Metadata *MetadataResponse `json:"metadata"`
}

// FolderResponse is the wire shape of a folder record.
type FolderResponse struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	ParentID *string `json:"parent_id"`
	Path     string  `json:"path"`
}

// FolderChildResponse is one child folder annotated with its immediate
// contents.
type FolderChildResponse struct {
	FolderResponse
	Subfolders []FolderResponse `json:"subfolders"`
	Files      []FileResponse   `json:"files"`
}

// SearchResultResponse is one search hit.
type SearchResultResponse struct {
	FileWithMetadataResponse
	Similarity *float32 `json:"similarity,omitempty"`
}

// SearchHistoryResponse is one recorded search.
type SearchHistoryResponse struct {
	ID         int64    `json:"id"`
	Query      string   `json:"query"`
	ResultIDs  []string `json:"result_ids"`
	SearchedAt string   `json:"searched_at"`
}

func toFileResponse(rec *storage.FileRecord) FileResponse {
	resp := FileResponse{
		ID:           rec.ID,
		Filename:     rec.Filename,
		OriginalName: rec.OriginalName,
		MIMEType:     rec.MIMEType,
		SizeBytes:    rec.SizeBytes,
		StorageKind:  string(rec.StorageKind),
		FolderID:     rec.FolderID,
		UploadedAt:   rec.UploadedAt.UTC().Format(time.RFC3339),
		Status:       string(rec.Status),
		ProcessError: rec.ProcessError,
	}
	if rec.ProcessedAt != nil {
		formatted := rec.ProcessedAt.UTC().Format(time.RFC3339)
		resp.ProcessedAt = &formatted
	}
	return resp
}

func toMetadataResponse(meta *storage.FileMetadataRecord) *MetadataResponse {
	if meta == nil {
		return nil
	}
	return &MetadataResponse{
		Summary:    meta.Summary,
		Keywords:   meta.Keywords,
		Topics:     meta.Topics,
		Categories: meta.Categories,
		Excerpt:    meta.Excerpt,
		Confidence: meta.Confidence,
	}
}

func toFileWithMetadataResponse(row *storage.FileWithMetadata) FileWithMetadataResponse {
	return FileWithMetadataResponse{
		FileResponse: toFileResponse(&row.File),
		Metadata:     toMetadataResponse(row.Metadata),
	}
}

func toListingResponse(rows []storage.FileWithMetadata) []FileWithMetadataResponse {
	out := make([]FileWithMetadataResponse, 0, len(rows))
	for i := range rows {
		out = append(out, toFileWithMetadataResponse(&rows[i]))
	}
	return out
}

func toFolderResponse(rec *storage.FolderRecord) FolderResponse {
	return FolderResponse{ID: rec.ID, Name: rec.Name, ParentID: rec.ParentID, Path: rec.Path}
}

func toChildrenResponse(children []folders.Child) []FolderChildResponse {
	out := make([]FolderChildResponse, 0, len(children))
	for i := range children {
		child := children[i]
		sub := make([]FolderResponse, 0, len(child.Subfolders))
		for j := range child.Subfolders {
			sub = append(sub, toFolderResponse(&child.Subfolders[j]))
		}
		files := make([]FileResponse, 0, len(child.Files))
		for j := range child.Files {
			files = append(files, toFileResponse(&child.Files[j]))
		}
		out = append(out, FolderChildResponse{
			FolderResponse: toFolderResponse(&child.Folder),
			Subfolders:     sub,
			Files:          files,
		})
	}
	return out
}

func toSearchResponse(results []search.Result) []SearchResultResponse {
	out := make([]SearchResultResponse, 0, len(results))
	for i := range results {
		out = append(out, SearchResultResponse{
			FileWithMetadataResponse: toFileWithMetadataResponse(&results[i].File),
			Similarity:               results[i].Similarity,
		})
	}
	return out
}

func toHistoryResponse(recs []storage.SearchHistoryRecord) []SearchHistoryResponse {
	out := make([]SearchHistoryResponse, 0, len(recs))
	for i := range recs {
		out = append(out, SearchHistoryResponse{
			ID:         recs[i].ID,
			Query:      recs[i].Query,
			ResultIDs:  recs[i].ResultIDs,
			SearchedAt: recs[i].SearchedAt.UTC().Format(time.RFC3339),
		})
	}
	return out
}

// requestOwner resolves the acting owner: the header when present, the
// configured default otherwise.
func requestOwner(r *http.Request, defaultOwner string) string {
	if owner := r.Header.Get(ownerHeader); owner != "" {
		return owner
	}
	return defaultOwner
}
