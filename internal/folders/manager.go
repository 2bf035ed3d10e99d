// Package folders owns the folder tree: materialized paths, cascading
// renames and moves, and recursive deletion.
package folders

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"docshelf/internal/cache"
	"docshelf/internal/contextutil"
	"docshelf/internal/service"
	"docshelf/internal/storage"
)

// Child is one direct child folder annotated with what sits immediately
// inside it.
type Child struct {
	Folder     storage.FolderRecord
	Subfolders []storage.FolderRecord
	Files      []storage.FileRecord
}

// UpdateInput carries a rename and/or reparent request. Nil fields are left
// unchanged; MoveToRoot distinguishes "move to root" from "leave parent
// alone".
type UpdateInput struct {
	Name       *string
	ParentID   *string
	MoveToRoot bool
}

// FileDeleter is the slice of the file manager the hierarchy needs for
// recursive deletion.
type FileDeleter interface {
	DeleteInFolder(ctx context.Context, owner string, folderID *string) error
}

// Service is the folder-tree surface consumed by the HTTP layer.
type Service interface {
	Create(ctx context.Context, name string, parentID *string, owner string) (*storage.FolderRecord, error)
	Get(ctx context.Context, id, owner string) (*storage.FolderRecord, error)
	ListChildren(ctx context.Context, parentID *string, owner string) ([]Child, error)
	Update(ctx context.Context, id, owner string, in UpdateInput) (*storage.FolderRecord, error)
	Delete(ctx context.Context, id, owner string) error
	MoveContents(ctx context.Context, fromID, toID *string, owner string) (int, error)
}

// Manager implements Service.
type Manager struct {
	folders storage.FolderStore
	files   storage.FileStore
	deleter FileDeleter
	cache   *cache.Cache
	logger  *slog.Logger
}

// NewManager creates a new folder hierarchy manager.
func NewManager(folders storage.FolderStore, files storage.FileStore, deleter FileDeleter, c *cache.Cache) *Manager {
	return &Manager{
		folders: folders,
		files:   files,
		deleter: deleter,
		cache:   c,
		logger:  slog.Default(),
	}
}

// Create inserts a folder under the given parent (nil = root). The parent
// must exist and belong to the same owner; the materialized path is the
// parent's path plus the new name.
func (m *Manager) Create(ctx context.Context, name string, parentID *string, owner string) (*storage.FolderRecord, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if err := validateName(name); err != nil {
		return nil, err
	}

	parentPath := ""
	if parentID != nil {
		parent, err := m.folders.Get(ctx, *parentID, owner)
		if err != nil {
			return nil, mapNotFound(err)
		}
		parentPath = parent.Path
	}

	rec := &storage.FolderRecord{
		ID:       uuid.New().String(),
		Owner:    owner,
		Name:     name,
		ParentID: parentID,
		Path:     parentPath + "/" + name,
	}
	if err := m.folders.Insert(ctx, rec); err != nil {
		return nil, service.WrapError(err, "failed to insert folder")
	}

	m.cache.InvalidatePrefix(cache.FoldersPrefix(owner))
	logger.InfoContext(ctx, "folder created", "folder_id", rec.ID, "owner", owner, "path", rec.Path)
	return rec, nil
}

// Get returns a folder by id scoped to owner.
func (m *Manager) Get(ctx context.Context, id, owner string) (*storage.FolderRecord, error) {
	rec, err := m.folders.Get(ctx, id, owner)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return rec, nil
}

// ListChildren returns one level of the tree under parentID (nil = root),
// each child annotated with its immediate subfolders and files. Served
// through the cache.
func (m *Manager) ListChildren(ctx context.Context, parentID *string, owner string) ([]Child, error) {
	parentKey := "root"
	if parentID != nil {
		// The parent must exist and belong to the owner before its key
		// shape is trusted.
		if _, err := m.folders.Get(ctx, *parentID, owner); err != nil {
			return nil, mapNotFound(err)
		}
		parentKey = *parentID
	}

	key := cache.FolderChildrenKey(owner, parentKey)
	if val, ok := m.cache.Get(key); ok {
		if children, ok := val.([]Child); ok {
			return children, nil
		}
	}

	folders, err := m.folders.ListChildren(ctx, owner, parentID)
	if err != nil {
		return nil, service.WrapError(err, "failed to list child folders")
	}

	children := make([]Child, 0, len(folders))
	for i := range folders {
		folder := folders[i]
		subfolders, err := m.folders.ListChildren(ctx, owner, &folder.ID)
		if err != nil {
			return nil, service.WrapError(err, "failed to list subfolders")
		}
		files, err := m.files.ListByFolder(ctx, owner, &folder.ID)
		if err != nil {
			return nil, service.WrapError(err, "failed to list folder files")
		}
		children = append(children, Child{Folder: folder, Subfolders: subfolders, Files: files})
	}

	m.cache.Set(key, children)
	return children, nil
}

// Update renames and/or reparents a folder, then rewrites the paths of the
// whole subtree depth-first so every descendant's path keeps matching its
// ancestor chain.
func (m *Manager) Update(ctx context.Context, id, owner string, in UpdateInput) (*storage.FolderRecord, error) {
	logger := contextutil.LoggerFromContext(ctx)

	rec, err := m.folders.Get(ctx, id, owner)
	if err != nil {
		return nil, mapNotFound(err)
	}

	if in.Name != nil {
		if err := validateName(*in.Name); err != nil {
			return nil, err
		}
		rec.Name = *in.Name
	}

	parentPath := ""
	switch {
	case in.MoveToRoot:
		rec.ParentID = nil
	case in.ParentID != nil:
		if *in.ParentID == id {
			return nil, &service.ValidationError{Field: "parent_id", Message: "folder cannot be its own parent"}
		}
		parent, err := m.folders.Get(ctx, *in.ParentID, owner)
		if err != nil {
			return nil, mapNotFound(err)
		}
		// A folder cannot be moved under its own subtree.
		if strings.HasPrefix(parent.Path+"/", rec.Path+"/") {
			return nil, &service.ValidationError{Field: "parent_id", Message: "cannot move a folder into its own subtree"}
		}
		rec.ParentID = in.ParentID
		parentPath = parent.Path
	case rec.ParentID != nil:
		parent, err := m.folders.Get(ctx, *rec.ParentID, owner)
		if err != nil {
			return nil, mapNotFound(err)
		}
		parentPath = parent.Path
	}

	rec.Path = parentPath + "/" + rec.Name
	if err := m.folders.Update(ctx, rec); err != nil {
		return nil, mapNotFound(err)
	}
	if err := m.rewriteDescendantPaths(ctx, rec); err != nil {
		return nil, err
	}

	m.cache.InvalidatePrefix(cache.FoldersPrefix(owner))
	m.cache.InvalidatePrefix(cache.FilesPrefix(owner))
	logger.InfoContext(ctx, "folder updated", "folder_id", id, "owner", owner, "path", rec.Path)
	return rec, nil
}

// Delete removes a folder subtree depth-first: child folders recursively,
// then the folder's own files, then the folder row. The cache is
// invalidated once, after the whole subtree is gone.
func (m *Manager) Delete(ctx context.Context, id, owner string) error {
	logger := contextutil.LoggerFromContext(ctx)

	if _, err := m.folders.Get(ctx, id, owner); err != nil {
		return mapNotFound(err)
	}
	if err := m.deleteSubtree(ctx, id, owner); err != nil {
		return err
	}

	m.cache.InvalidatePrefix(cache.FoldersPrefix(owner))
	m.cache.InvalidatePrefix(cache.FilesPrefix(owner))
	m.cache.InvalidatePrefix(cache.FastFilesPrefix(owner))
	logger.InfoContext(ctx, "folder subtree deleted", "folder_id", id, "owner", owner)
	return nil
}

func (m *Manager) deleteSubtree(ctx context.Context, id, owner string) error {
	children, err := m.folders.ListChildren(ctx, owner, &id)
	if err != nil {
		return service.WrapError(err, "failed to list child folders")
	}
	for i := range children {
		if err := m.deleteSubtree(ctx, children[i].ID, owner); err != nil {
			return err
		}
	}
	if err := m.deleter.DeleteInFolder(ctx, owner, &id); err != nil {
		return err
	}
	if err := m.folders.Delete(ctx, id, owner); err != nil {
		return mapNotFound(err)
	}
	return nil
}

// MoveContents reparents every direct child (folders and files) of fromID
// into toID (nil = root on either side) and returns how many items moved.
// Descendant paths of the moved folders are always recomputed.
func (m *Manager) MoveContents(ctx context.Context, fromID, toID *string, owner string) (int, error) {
	logger := contextutil.LoggerFromContext(ctx)

	var source *storage.FolderRecord
	if fromID != nil {
		rec, err := m.folders.Get(ctx, *fromID, owner)
		if err != nil {
			return 0, mapNotFound(err)
		}
		source = rec
	}
	targetPath := ""
	if toID != nil {
		target, err := m.folders.Get(ctx, *toID, owner)
		if err != nil {
			return 0, mapNotFound(err)
		}
		targetPath = target.Path
		if fromID != nil && *fromID == *toID {
			return 0, &service.ValidationError{Field: "to", Message: "source and target are the same folder"}
		}
		// Moving a folder's contents anywhere inside its own subtree would
		// reparent a folder under one of its own descendants.
		if source != nil && strings.HasPrefix(target.Path+"/", source.Path+"/") {
			return 0, &service.ValidationError{Field: "to", Message: "cannot move contents into a descendant of the source"}
		}
	}

	childFolders, err := m.folders.ListChildren(ctx, owner, fromID)
	if err != nil {
		return 0, service.WrapError(err, "failed to list child folders")
	}
	childFiles, err := m.files.ListByFolder(ctx, owner, fromID)
	if err != nil {
		return 0, service.WrapError(err, "failed to list folder files")
	}

	moved := 0
	if len(childFolders) > 0 {
		ids := make([]string, len(childFolders))
		for i := range childFolders {
			ids[i] = childFolders[i].ID
		}
		n, err := m.folders.SetParent(ctx, ids, toID, owner)
		if err != nil {
			return 0, service.WrapError(err, "failed to reparent folders")
		}
		moved += n
		for i := range childFolders {
			folder := childFolders[i]
			folder.ParentID = toID
			folder.Path = targetPath + "/" + folder.Name
			if err := m.folders.UpdatePath(ctx, folder.ID, owner, folder.Path); err != nil {
				return 0, mapNotFound(err)
			}
			if err := m.rewriteDescendantPaths(ctx, &folder); err != nil {
				return 0, err
			}
		}
	}
	if len(childFiles) > 0 {
		ids := make([]string, len(childFiles))
		for i := range childFiles {
			ids[i] = childFiles[i].ID
		}
		n, err := m.files.SetFolder(ctx, ids, toID, owner)
		if err != nil {
			return 0, service.WrapError(err, "failed to move files")
		}
		moved += n
	}

	if moved > 0 {
		m.cache.InvalidatePrefix(cache.FoldersPrefix(owner))
		m.cache.InvalidatePrefix(cache.FilesPrefix(owner))
	}
	logger.InfoContext(ctx, "folder contents moved", "owner", owner, "moved", moved)
	return moved, nil
}

// rewriteDescendantPaths walks the subtree under rec depth-first and
// rewrites every descendant's path to hang off rec's current path.
func (m *Manager) rewriteDescendantPaths(ctx context.Context, rec *storage.FolderRecord) error {
	children, err := m.folders.ListChildren(ctx, rec.Owner, &rec.ID)
	if err != nil {
		return service.WrapError(err, "failed to list child folders")
	}
	for i := range children {
		child := children[i]
		child.Path = rec.Path + "/" + child.Name
		if err := m.folders.UpdatePath(ctx, child.ID, rec.Owner, child.Path); err != nil {
			return mapNotFound(err)
		}
		if err := m.rewriteDescendantPaths(ctx, &child); err != nil {
			return err
		}
	}
	return nil
}

func validateName(name string) error {
	if name == "" {
		return &service.ValidationError{Field: "name", Message: "cannot be empty"}
	}
	if strings.Contains(name, "/") {
		return &service.ValidationError{Field: "name", Message: "cannot contain '/'"}
	}
	return nil
}

func mapNotFound(err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return service.ErrNotFound
	}
	return err
}
