// Package files owns the file lifecycle: creation with blob placement,
// cached listing, status transitions, moves, and deletion with cleanup of
// everything hanging off a file row.
package files

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"docshelf/internal/blob"
	"docshelf/internal/cache"
	"docshelf/internal/contextutil"
	"docshelf/internal/service"
	"docshelf/internal/storage"
	"docshelf/internal/vectorstore"
)

// maxListLimit caps a single list page.
const maxListLimit = 200

// defaultListLimit is used when the caller does not specify a page size.
const defaultListLimit = 50

// cacheableListLimit bounds the pages served through the cache: only the
// first page of small lists is cached, which is the shape browsing UIs ask
// for in a tight loop.
const cacheableListLimit = 50

// batchConcurrency bounds parallel item processing in CreateBatch.
const batchConcurrency = 4

// BlobPlacer decides where a file's bytes live.
// This interface is defined from the manager's perspective (consumer-first).
type BlobPlacer interface {
	Place(ctx context.Context, owner, fileID string, raw []byte, externalRef string) (blob.Placement, error)
}

// CreateInput carries everything needed to create one file record.
type CreateInput struct {
	Owner        string
	Filename     string
	OriginalName string
	MIMEType     string
	FolderID     *string
	// Raw is the uploaded content; nil when the content was uploaded
	// out-of-band and ExternalRef points at it.
	Raw []byte
	// ExternalRef is the pre-existing external reference for by-reference
	// uploads.
	ExternalRef string
	// DeclaredSize is the content length for by-reference uploads, where
	// the bytes are never seen here.
	DeclaredSize int64
}

// BatchError reports the failure of a single item in a batch.
type BatchError struct {
	Index    int
	Filename string
	Err      error
}

// BatchResult accumulates per-item outcomes of a batch create.
type BatchResult struct {
	Created []*storage.FileRecord
	Errors  []BatchError
}

// Service is the file-lifecycle surface consumed by the HTTP layer and the
// folder hierarchy manager.
type Service interface {
	Create(ctx context.Context, in CreateInput) (*storage.FileRecord, error)
	CreateBatch(ctx context.Context, owner string, items []CreateInput) BatchResult
	Get(ctx context.Context, id, owner string) (*storage.FileRecord, error)
	Content(ctx context.Context, id, owner string) ([]byte, error)
	List(ctx context.Context, owner string, limit, offset int) ([]storage.FileWithMetadata, error)
	UpdateStatus(ctx context.Context, id, owner string, status storage.Status, errText string) error
	AttachMetadata(ctx context.Context, id, owner string, meta MetadataInput) error
	Retry(ctx context.Context, id, owner string) error
	Move(ctx context.Context, ids []string, folderID *string, owner string) (int, error)
	Delete(ctx context.Context, id, owner string) error
	DeleteInFolder(ctx context.Context, owner string, folderID *string) error
	Stats(ctx context.Context, owner string) (*storage.OwnerStats, error)
}

// Manager implements Service.
type Manager struct {
	files    storage.FileStore
	metadata storage.MetadataStore
	folders  storage.FolderStore
	placer   BlobPlacer
	objects  blob.ObjectStore
	vectors  vectorstore.VectorIndex
	cache    *cache.Cache
	logger   *slog.Logger
}

// NewManager creates a new file record manager.
func NewManager(
	files storage.FileStore,
	metadata storage.MetadataStore,
	folders storage.FolderStore,
	placer BlobPlacer,
	objects blob.ObjectStore,
	vectors vectorstore.VectorIndex,
	c *cache.Cache,
) *Manager {
	return &Manager{
		files:    files,
		metadata: metadata,
		folders:  folders,
		placer:   placer,
		objects:  objects,
		vectors:  vectors,
		cache:    c,
		logger:   slog.Default(),
	}
}

// Create places the content, inserts a pending file row, and invalidates the
// owner's cached listings.
func (m *Manager) Create(ctx context.Context, in CreateInput) (*storage.FileRecord, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if in.Owner == "" {
		return nil, &service.ValidationError{Field: "owner", Message: "cannot be empty"}
	}
	if in.Filename == "" {
		return nil, &service.ValidationError{Field: "filename", Message: "cannot be empty"}
	}
	if in.FolderID != nil {
		// The owning folder must exist and belong to the same owner.
		if _, err := m.folders.Get(ctx, *in.FolderID, in.Owner); err != nil {
			return nil, mapNotFound(err)
		}
	}

	id := uuid.New().String()
	placement, err := m.placer.Place(ctx, in.Owner, id, in.Raw, in.ExternalRef)
	if err != nil {
		return nil, err
	}

	size := in.DeclaredSize
	if in.Raw != nil {
		size = int64(len(in.Raw))
	}

	originalName := in.OriginalName
	if originalName == "" {
		originalName = in.Filename
	}

	rec := &storage.FileRecord{
		ID:           id,
		Owner:        in.Owner,
		Filename:     in.Filename,
		OriginalName: originalName,
		MIMEType:     in.MIMEType,
		SizeBytes:    size,
		StorageKind:  placement.Kind,
		StorageRef:   placement.Ref,
		FolderID:     in.FolderID,
		UploadedAt:   time.Now().UTC(),
		Status:       storage.StatusPending,
	}
	if err := m.files.Insert(ctx, rec, placement.Inline); err != nil {
		return nil, service.WrapError(err, "failed to insert file record")
	}

	m.invalidateFileCaches(in.Owner)
	logger.InfoContext(ctx, "file created",
		"file_id", rec.ID, "owner", rec.Owner, "storage_kind", rec.StorageKind, "size_bytes", rec.SizeBytes)
	return rec, nil
}

// CreateBatch creates many files with bounded concurrency. A failing item
// never aborts its siblings; failures are accumulated per item.
func (m *Manager) CreateBatch(ctx context.Context, owner string, items []CreateInput) BatchResult {
	logger := contextutil.LoggerFromContext(ctx)

	var mu sync.Mutex
	result := BatchResult{}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(batchConcurrency)
	for i := range items {
		g.Go(func() error {
			item := items[i]
			item.Owner = owner

			rec, err := m.Create(gctx, item)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Errors = append(result.Errors, BatchError{Index: i, Filename: item.Filename, Err: err})
				return nil // isolate the failure to this item
			}
			result.Created = append(result.Created, rec)
			return nil
		})
	}
	_ = g.Wait() // goroutines never return errors

	logger.InfoContext(ctx, "batch create finished",
		"owner", owner, "created", len(result.Created), "failed", len(result.Errors))
	return result
}

// Get returns a file record by id scoped to owner.
func (m *Manager) Get(ctx context.Context, id, owner string) (*storage.FileRecord, error) {
	rec, err := m.files.Get(ctx, id, owner)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return rec, nil
}

// Content returns the raw bytes of a file, dispatching on its storage kind.
func (m *Manager) Content(ctx context.Context, id, owner string) ([]byte, error) {
	rec, err := m.Get(ctx, id, owner)
	if err != nil {
		return nil, err
	}

	if rec.StorageKind == storage.StorageInline {
		data, err := m.files.InlineContent(ctx, id, owner)
		if err != nil {
			return nil, mapNotFound(err)
		}
		return data, nil
	}

	data, err := m.objects.Get(ctx, rec.StorageRef)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", service.ErrStorageBackend, err)
	}
	return data, nil
}

// List returns one page of the owner's files joined with metadata, newest
// first. The first small page is served through the cache.
func (m *Manager) List(ctx context.Context, owner string, limit, offset int) ([]storage.FileWithMetadata, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}

	cacheable := offset == 0 && limit <= cacheableListLimit
	key := cache.FileListKey(owner, limit, offset)
	if cacheable {
		if val, ok := m.cache.Get(key); ok {
			if listing, ok := val.([]storage.FileWithMetadata); ok {
				return listing, nil
			}
		}
	}

	listing, err := m.files.List(ctx, owner, limit, offset)
	if err != nil {
		return nil, service.WrapError(err, "failed to list files")
	}
	if cacheable {
		m.cache.Set(key, listing)
	}
	return listing, nil
}

// UpdateStatus transitions a file's processing status and invalidates the
// owner's cached listings.
func (m *Manager) UpdateStatus(ctx context.Context, id, owner string, status storage.Status, errText string) error {
	rec, err := m.Get(ctx, id, owner)
	if err != nil {
		return err
	}
	if !validTransition(rec.Status, status) {
		return &service.ValidationError{
			Field:   "status",
			Message: fmt.Sprintf("cannot transition from %s to %s", rec.Status, status),
		}
	}

	var processedAt *time.Time
	if status == storage.StatusCompleted {
		now := time.Now().UTC()
		processedAt = &now
	}
	if status != storage.StatusError {
		errText = ""
	}

	if err := m.files.UpdateStatus(ctx, id, owner, status, processedAt, errText); err != nil {
		return mapNotFound(err)
	}
	m.invalidateFileCaches(owner)
	return nil
}

// MetadataInput is the output of the processing pipeline for one file.
type MetadataInput struct {
	Summary    string
	Keywords   []string
	Topics     []string
	Categories []string
	Excerpt    string
	Embedding  []float32
	Confidence float64
}

// AttachMetadata records the processing pipeline's output for a file: the
// metadata row with its durable embedding, the completed status, and the
// point in the similarity index. The index write is best-effort since the
// index is a rebuildable projection of the metadata row.
func (m *Manager) AttachMetadata(ctx context.Context, id, owner string, meta MetadataInput) error {
	logger := contextutil.LoggerFromContext(ctx)

	rec, err := m.Get(ctx, id, owner)
	if err != nil {
		return err
	}
	if len(meta.Embedding) == 0 {
		return &service.ValidationError{Field: "embedding", Message: "cannot be empty"}
	}
	if !validTransition(rec.Status, storage.StatusCompleted) {
		return &service.ValidationError{
			Field:   "status",
			Message: fmt.Sprintf("cannot complete a file in status %s", rec.Status),
		}
	}

	metaRec := &storage.FileMetadataRecord{
		FileID:     id,
		Summary:    meta.Summary,
		Keywords:   meta.Keywords,
		Topics:     meta.Topics,
		Categories: meta.Categories,
		Excerpt:    meta.Excerpt,
		Embedding:  meta.Embedding,
		Confidence: meta.Confidence,
	}
	if err := m.metadata.Upsert(ctx, metaRec); err != nil {
		return service.WrapError(err, "failed to upsert file metadata")
	}

	now := time.Now().UTC()
	if err := m.files.UpdateStatus(ctx, id, owner, storage.StatusCompleted, &now, ""); err != nil {
		return mapNotFound(err)
	}

	point := vectorstore.Point{
		FileID: id,
		Vector: meta.Embedding,
		Owner:  owner,
		Status: string(storage.StatusCompleted),
	}
	if err := m.vectors.Upsert(ctx, []vectorstore.Point{point}); err != nil {
		logger.WarnContext(ctx, "failed to index embedding, continuing",
			"file_id", id, "error", err)
	}

	m.invalidateFileCaches(owner)
	logger.InfoContext(ctx, "file metadata attached", "file_id", id, "owner", owner)
	return nil
}

// Retry re-queues an errored file for processing.
func (m *Manager) Retry(ctx context.Context, id, owner string) error {
	return m.UpdateStatus(ctx, id, owner, storage.StatusPending, "")
}

// Move reassigns files to a folder (nil = root) and returns the number
// moved. The target folder must belong to the same owner.
func (m *Manager) Move(ctx context.Context, ids []string, folderID *string, owner string) (int, error) {
	if folderID != nil {
		if _, err := m.folders.Get(ctx, *folderID, owner); err != nil {
			return 0, mapNotFound(err)
		}
	}

	moved, err := m.files.SetFolder(ctx, ids, folderID, owner)
	if err != nil {
		return 0, service.WrapError(err, "failed to move files")
	}
	if moved > 0 {
		m.invalidateFileCaches(owner)
		m.cache.InvalidatePrefix(cache.FoldersPrefix(owner))
	}
	return moved, nil
}

// Delete removes a file and everything hanging off it: the external blob
// (best-effort), its index point (best-effort), its metadata row, and the
// file row itself.
func (m *Manager) Delete(ctx context.Context, id, owner string) error {
	rec, err := m.Get(ctx, id, owner)
	if err != nil {
		return err
	}

	if err := m.deleteRecord(ctx, rec); err != nil {
		return err
	}
	m.invalidateFileCaches(owner)
	m.cache.InvalidatePrefix(cache.FoldersPrefix(owner))
	return nil
}

// DeleteInFolder removes every file directly inside a folder. Used by the
// folder hierarchy manager during recursive deletion; cache invalidation is
// left to the caller so a subtree delete invalidates once.
func (m *Manager) DeleteInFolder(ctx context.Context, owner string, folderID *string) error {
	recs, err := m.files.ListByFolder(ctx, owner, folderID)
	if err != nil {
		return service.WrapError(err, "failed to list folder files")
	}
	for i := range recs {
		if err := m.deleteRecord(ctx, &recs[i]); err != nil {
			return err
		}
	}
	return nil
}

// deleteRecord performs the per-file deletion sequence. Blob and index
// cleanup are best-effort: a storage-backend failure is logged and never
// blocks the relational deletion.
func (m *Manager) deleteRecord(ctx context.Context, rec *storage.FileRecord) error {
	logger := contextutil.LoggerFromContext(ctx)

	if rec.StorageKind == storage.StorageExternal && rec.StorageRef != "" {
		if err := m.objects.Delete(ctx, rec.StorageRef); err != nil {
			logger.WarnContext(ctx, "failed to delete blob, continuing",
				"file_id", rec.ID, "ref", rec.StorageRef, "error", err)
		}
	}
	if err := m.vectors.Delete(ctx, []string{rec.ID}); err != nil {
		logger.WarnContext(ctx, "failed to delete index point, continuing",
			"file_id", rec.ID, "error", err)
	}
	if err := m.metadata.DeleteByFile(ctx, rec.ID); err != nil {
		return service.WrapError(err, "failed to delete file metadata")
	}
	if err := m.files.Delete(ctx, rec.ID, rec.Owner); err != nil {
		return mapNotFound(err)
	}

	logger.InfoContext(ctx, "file deleted", "file_id", rec.ID, "owner", rec.Owner)
	return nil
}

// Stats returns the owner's aggregate file stats, served through the cache.
func (m *Manager) Stats(ctx context.Context, owner string) (*storage.OwnerStats, error) {
	key := cache.StatsKey(owner)
	if val, ok := m.cache.Get(key); ok {
		if stats, ok := val.(*storage.OwnerStats); ok {
			return stats, nil
		}
	}

	stats, err := m.files.Stats(ctx, owner)
	if err != nil {
		return nil, service.WrapError(err, "failed to aggregate stats")
	}
	m.cache.Set(key, stats)
	return stats, nil
}

func (m *Manager) invalidateFileCaches(owner string) {
	m.cache.InvalidatePrefix(cache.FilesPrefix(owner))
	m.cache.InvalidatePrefix(cache.FastFilesPrefix(owner))
}

// validTransition enforces monotonic status progression, with error->pending
// as the single sanctioned retry path. Any state may fall into error.
func validTransition(from, to storage.Status) bool {
	if from == to {
		return true
	}
	if to == storage.StatusError {
		return true
	}
	if from == storage.StatusError {
		return to == storage.StatusPending
	}

	rank := map[storage.Status]int{
		storage.StatusPending:    0,
		storage.StatusProcessing: 1,
		storage.StatusCompleted:  2,
	}
	fromRank, ok := rank[from]
	if !ok {
		return false
	}
	toRank, ok := rank[to]
	if !ok {
		return false
	}
	return toRank > fromRank
}

// mapNotFound converts the storage layer's not-found into the service-level
// sentinel; everything else passes through wrapped.
func mapNotFound(err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return service.ErrNotFound
	}
	return err
}
