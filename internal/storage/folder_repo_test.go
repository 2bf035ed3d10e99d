package storage

import (
	"context"
	"errors"
	"testing"
)

func TestFolderRepo_InsertAndGet(t *testing.T) {
	db := newTestDB(t)
	repo := NewFolderRepo(db)

	root := &FolderRecord{ID: "d1", Owner: "alice", Name: "docs", Path: "/docs"}
	if err := repo.Insert(context.Background(), root); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	parentID := "d1"
	child := &FolderRecord{ID: "d2", Owner: "alice", Name: "reports", ParentID: &parentID, Path: "/docs/reports"}
	if err := repo.Insert(context.Background(), child); err != nil {
		t.Fatalf("Insert() child error = %v", err)
	}

	got, err := repo.Get(context.Background(), "d2", "alice")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Path != "/docs/reports" {
		t.Errorf("Get() path = %q, want /docs/reports", got.Path)
	}
	if got.ParentID == nil || *got.ParentID != "d1" {
		t.Errorf("Get() parent = %v, want d1", got.ParentID)
	}

	if _, err := repo.Get(context.Background(), "d2", "bob"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() wrong owner error = %v, want ErrNotFound", err)
	}
}

func TestFolderRepo_ListChildren(t *testing.T) {
	db := newTestDB(t)
	repo := NewFolderRepo(db)

	mustInsertFolder(t, repo, &FolderRecord{ID: "d1", Owner: "alice", Name: "b-docs", Path: "/b-docs"})
	mustInsertFolder(t, repo, &FolderRecord{ID: "d2", Owner: "alice", Name: "a-media", Path: "/a-media"})
	parentID := "d1"
	mustInsertFolder(t, repo, &FolderRecord{ID: "d3", Owner: "alice", Name: "inner", ParentID: &parentID, Path: "/b-docs/inner"})
	mustInsertFolder(t, repo, &FolderRecord{ID: "d4", Owner: "bob", Name: "other", Path: "/other"})

	atRoot, err := repo.ListChildren(context.Background(), "alice", nil)
	if err != nil {
		t.Fatalf("ListChildren(root) error = %v", err)
	}
	if len(atRoot) != 2 || atRoot[0].Name != "a-media" || atRoot[1].Name != "b-docs" {
		t.Errorf("ListChildren(root) = %+v, want a-media then b-docs", atRoot)
	}

	inner, err := repo.ListChildren(context.Background(), "alice", &parentID)
	if err != nil {
		t.Fatalf("ListChildren(d1) error = %v", err)
	}
	if len(inner) != 1 || inner[0].ID != "d3" {
		t.Errorf("ListChildren(d1) = %+v, want just d3", inner)
	}
}

func TestFolderRepo_UpdateAndUpdatePath(t *testing.T) {
	db := newTestDB(t)
	repo := NewFolderRepo(db)

	mustInsertFolder(t, repo, &FolderRecord{ID: "d1", Owner: "alice", Name: "docs", Path: "/docs"})
	mustInsertFolder(t, repo, &FolderRecord{ID: "d2", Owner: "alice", Name: "media", Path: "/media"})

	parentID := "d2"
	updated := &FolderRecord{ID: "d1", Owner: "alice", Name: "documents", ParentID: &parentID, Path: "/media/documents"}
	if err := repo.Update(context.Background(), updated); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got, err := repo.Get(context.Background(), "d1", "alice")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Name != "documents" || got.Path != "/media/documents" || got.ParentID == nil || *got.ParentID != "d2" {
		t.Errorf("Update() result = %+v", got)
	}

	if err := repo.UpdatePath(context.Background(), "d1", "alice", "/renamed/documents"); err != nil {
		t.Fatalf("UpdatePath() error = %v", err)
	}
	got, _ = repo.Get(context.Background(), "d1", "alice")
	if got.Path != "/renamed/documents" {
		t.Errorf("UpdatePath() path = %q", got.Path)
	}

	if err := repo.UpdatePath(context.Background(), "d1", "bob", "/x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdatePath() wrong owner error = %v, want ErrNotFound", err)
	}
}

func TestFolderRepo_SetParent(t *testing.T) {
	db := newTestDB(t)
	repo := NewFolderRepo(db)

	mustInsertFolder(t, repo, &FolderRecord{ID: "src", Owner: "alice", Name: "src", Path: "/src"})
	mustInsertFolder(t, repo, &FolderRecord{ID: "dst", Owner: "alice", Name: "dst", Path: "/dst"})
	srcID := "src"
	mustInsertFolder(t, repo, &FolderRecord{ID: "c1", Owner: "alice", Name: "c1", ParentID: &srcID, Path: "/src/c1"})
	mustInsertFolder(t, repo, &FolderRecord{ID: "c2", Owner: "alice", Name: "c2", ParentID: &srcID, Path: "/src/c2"})

	dstID := "dst"
	moved, err := repo.SetParent(context.Background(), []string{"c1", "c2", "ghost"}, &dstID, "alice")
	if err != nil {
		t.Fatalf("SetParent() error = %v", err)
	}
	if moved != 2 {
		t.Errorf("SetParent() moved = %d, want 2", moved)
	}

	children, err := repo.ListChildren(context.Background(), "alice", &dstID)
	if err != nil {
		t.Fatalf("ListChildren(dst) error = %v", err)
	}
	if len(children) != 2 {
		t.Errorf("ListChildren(dst) = %d folders, want 2", len(children))
	}
}

func TestFolderRepo_Delete(t *testing.T) {
	db := newTestDB(t)
	repo := NewFolderRepo(db)

	mustInsertFolder(t, repo, &FolderRecord{ID: "d1", Owner: "alice", Name: "docs", Path: "/docs"})

	if err := repo.Delete(context.Background(), "d1", "bob"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete() wrong owner error = %v, want ErrNotFound", err)
	}
	if err := repo.Delete(context.Background(), "d1", "alice"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := repo.Get(context.Background(), "d1", "alice"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrNotFound", err)
	}
}

func mustInsertFolder(t *testing.T, repo *FolderRepo, rec *FolderRecord) {
	t.Helper()
	if err := repo.Insert(context.Background(), rec); err != nil {
		t.Fatalf("Insert(%s) error = %v", rec.ID, err)
	}
}
