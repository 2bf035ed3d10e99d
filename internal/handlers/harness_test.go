package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/mock/gomock"

	"docshelf/internal/blob"
	blobmocks "docshelf/internal/blob/mocks"
	"docshelf/internal/cache"
	"docshelf/internal/files"
	"docshelf/internal/folders"
	"docshelf/internal/handlers"
	internalhttp "docshelf/internal/http"
	"docshelf/internal/search"
	searchmocks "docshelf/internal/search/mocks"
	"docshelf/internal/storage"
	vsmocks "docshelf/internal/vectorstore/mocks"
)

var errGone = errors.New("dependency gone")

// testServer wires the real managers over a sqlite file and mock external
// collaborators, behind the real router.
type testServer struct {
	router   http.Handler
	files    *files.Manager
	folders  *folders.Manager
	objects  *blobmocks.MockObjectStore
	vectors  *vsmocks.MockVectorIndex
	embedder *searchmocks.MockEmbedder
	storeErr error
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	db, err := storage.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := storage.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	ctrl := gomock.NewController(t)
	objects := blobmocks.NewMockObjectStore(ctrl)
	vectors := vsmocks.NewMockVectorIndex(ctrl)
	embedder := searchmocks.NewMockEmbedder(ctrl)

	fileRepo := storage.NewFileRepo(db)
	folderRepo := storage.NewFolderRepo(db)
	c := cache.New(128, time.Minute)

	fileManager := files.NewManager(
		fileRepo,
		storage.NewMetadataRepo(db),
		folderRepo,
		blob.NewPolicy(objects),
		objects,
		vectors,
		c,
	)
	folderManager := folders.NewManager(folderRepo, fileRepo, fileManager, c)
	searchEngine := search.NewEngine(embedder, vectors, fileRepo, fileManager, storage.NewHistoryRepo(db))

	srv := &testServer{
		files:    fileManager,
		folders:  folderManager,
		objects:  objects,
		vectors:  vectors,
		embedder: embedder,
	}
	srv.router = internalhttp.NewRouter(&internalhttp.Deps{
		Files:        fileManager,
		Folders:      folderManager,
		Search:       searchEngine,
		Store:        handlers.PingerFunc(func(ctx context.Context) error { return srv.storeErr }),
		VectorIndex:  handlers.PingerFunc(func(ctx context.Context) error { return nil }),
		DefaultOwner: "local",
	})
	return srv
}

// do runs one request through the router. A nil body sends an empty request;
// anything else is JSON-encoded.
func (s *testServer) do(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode body %q: %v", w.Body.String(), err)
	}
	return out
}
