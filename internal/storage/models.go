package storage

import "time"

// StorageKind identifies where a file's raw bytes live.
type StorageKind string

const (
	// StorageInline means the bytes are stored directly on the relational row.
	StorageInline StorageKind = "inline"
	// StorageExternal means the bytes live in the object store, referenced
	// by StorageRef.
	StorageExternal StorageKind = "external"
)

// Status is the processing state of a file.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
)

// FileRecord represents a row in the files table. Content bytes are never
// carried on the record; they are fetched on demand.
type FileRecord struct {
	ID           string
	Owner        string
	Filename     string
	OriginalName string
	MIMEType     string
	SizeBytes    int64
	StorageKind  StorageKind
	StorageRef   string
	FolderID     *string
	UploadedAt   time.Time
	ProcessedAt  *time.Time
	Status       Status
	ProcessError string
}

// FileMetadataRecord represents a row in the file_metadata table.
// It exists only for files whose processing completed.
type FileMetadataRecord struct {
	FileID     string
	Summary    string
	Keywords   []string
	Topics     []string
	Categories []string
	Excerpt    string
	Embedding  []float32
	Confidence float64
}

// FileWithMetadata is the list/search shape: a file joined with its metadata.
// Metadata is nil when the file has not been processed yet; Excerpt on the
// joined metadata is truncated to a preview in list responses.
type FileWithMetadata struct {
	File     FileRecord
	Metadata *FileMetadataRecord
}

// FolderRecord represents a row in the folders table. Path is the
// materialized slash-joined ancestor name chain, always starting with "/".
type FolderRecord struct {
	ID       string
	Owner    string
	Name     string
	ParentID *string
	Path     string
}

// SearchHistoryRecord represents a recorded search.
type SearchHistoryRecord struct {
	ID         int64
	Owner      string
	Query      string
	ResultIDs  []string
	SearchedAt time.Time
}

// OwnerStats aggregates file counts and byte totals for one owner.
type OwnerStats struct {
	TotalFiles  int
	ByStatus    map[Status]int
	TotalBytes  int64
	InlineBytes int64
}
