package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"docshelf/internal/files"
	"docshelf/internal/folders"
	"docshelf/internal/handlers"
	"docshelf/internal/search"
)

// Route-shape tests only exercise paths that never reach the service layer,
// so embedded-interface stubs are enough.
type stubFiles struct{ files.Service }
type stubFolders struct{ folders.Service }
type stubSearch struct{ search.Service }

func newTestDeps() *Deps {
	ok := handlers.PingerFunc(func(ctx context.Context) error { return nil })
	return &Deps{
		Files:        stubFiles{},
		Folders:      stubFolders{},
		Search:       stubSearch{},
		Store:        ok,
		VectorIndex:  ok,
		DefaultOwner: "local",
	}
}

func TestNewRouter(t *testing.T) {
	if router := NewRouter(newTestDeps()); router == nil {
		t.Fatal("NewRouter() returned nil")
	}
}

func TestRouterRoutes(t *testing.T) {
	router := NewRouter(newTestDeps())

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
	}{
		{
			name:       "POST /api/files exists",
			method:     http.MethodPost,
			path:       "/api/files",
			wantStatus: http.StatusBadRequest, // empty body, but the route exists
		},
		{
			name:       "PATCH /api/files/{id}/status exists",
			method:     http.MethodPatch,
			path:       "/api/files/some-id/status",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "PATCH /api/folders/{id} exists",
			method:     http.MethodPatch,
			path:       "/api/folders/some-id",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "GET /health exists",
			method:     http.MethodGet,
			path:       "/health",
			wantStatus: http.StatusOK,
		},
		{
			name:       "unknown path",
			method:     http.MethodGet,
			path:       "/api/unknown",
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "wrong method",
			method:     http.MethodDelete,
			path:       "/api/search",
			wantStatus: http.StatusMethodNotAllowed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("Router %s %s status = %v, want %v", tt.method, tt.path, w.Code, tt.wantStatus)
			}
		})
	}
}
