package handlers_test

import (
	"net/http"
	"testing"

	"go.uber.org/mock/gomock"

	"docshelf/internal/handlers"
	"docshelf/internal/vectorstore"
)

// completeFile pushes a created file through metadata attachment so it is
// visible to search.
func completeFile(t *testing.T, srv *testServer, owner, id, summary string) {
	t.Helper()
	srv.vectors.EXPECT().Upsert(gomock.Any(), gomock.Any()).Return(nil)
	w := srv.do(t, http.MethodPut, "/api/files/"+id+"/metadata", map[string]any{
		"summary":    summary,
		"keywords":   []string{"test"},
		"embedding":  []float32{0.1, 0.2},
		"confidence": 0.8,
	}, map[string]string{"X-Owner-ID": owner})
	if w.Code != http.StatusNoContent {
		t.Fatalf("attach metadata status = %d, body %s", w.Code, w.Body.String())
	}
}

func TestSearch(t *testing.T) {
	srv := newTestServer(t)
	hdr := map[string]string{"X-Owner-ID": "alice"}

	dogs := createFile(t, srv, "alice", "dogs.txt", "woof")
	completeFile(t, srv, "alice", dogs.ID, "all about dogs")

	t.Run("semantic hit", func(t *testing.T) {
		srv.embedder.EXPECT().Embed(gomock.Any(), "dogs").Return([]float32{0.5, 0.5}, nil)
		srv.vectors.EXPECT().Query(gomock.Any(), "alice", gomock.Any(), gomock.Any()).
			Return([]vectorstore.Scored{{FileID: dogs.ID, Similarity: 0.88}}, nil)

		w := srv.do(t, http.MethodGet, "/api/search?q=dogs", nil, hdr)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
		}
		results := decodeBody[[]handlers.SearchResultResponse](t, w)
		if len(results) != 1 {
			t.Fatalf("results = %d, want 1", len(results))
		}
		if results[0].ID != dogs.ID {
			t.Errorf("hit ID = %q, want %q", results[0].ID, dogs.ID)
		}
		if results[0].Similarity == nil || *results[0].Similarity != 0.88 {
			t.Errorf("Similarity = %v, want 0.88", results[0].Similarity)
		}
	})

	t.Run("keyword fallback on provider failure", func(t *testing.T) {
		srv.embedder.EXPECT().Embed(gomock.Any(), "dogs").Return(nil, errGone)

		w := srv.do(t, http.MethodGet, "/api/search?q=dogs", nil, hdr)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}
		results := decodeBody[[]handlers.SearchResultResponse](t, w)
		if len(results) != 1 {
			t.Fatalf("results = %d, want 1 keyword hit", len(results))
		}
		if results[0].Similarity != nil {
			t.Error("keyword hit carries a similarity score")
		}
	})

	t.Run("blank query browses", func(t *testing.T) {
		w := srv.do(t, http.MethodGet, "/api/search", nil, hdr)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}
		results := decodeBody[[]handlers.SearchResultResponse](t, w)
		if len(results) != 1 {
			t.Fatalf("browse results = %d, want 1", len(results))
		}
	})

	t.Run("blank query paginates with offset", func(t *testing.T) {
		createFile(t, srv, "alice", "cats.txt", "meow")

		w := srv.do(t, http.MethodGet, "/api/search?limit=1&offset=1", nil, hdr)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}
		results := decodeBody[[]handlers.SearchResultResponse](t, w)
		if len(results) != 1 {
			t.Fatalf("results = %d, want 1", len(results))
		}
		// Newest first, so the second page starts past cats.
		if results[0].ID != dogs.ID {
			t.Errorf("offset hit = %q, want %q", results[0].ID, dogs.ID)
		}
	})

	t.Run("history recorded", func(t *testing.T) {
		w := srv.do(t, http.MethodGet, "/api/search/history", nil, hdr)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}
		history := decodeBody[[]handlers.SearchHistoryResponse](t, w)
		if len(history) != 2 {
			t.Fatalf("history = %d entries, want 2", len(history))
		}
		if history[0].Query != "dogs" {
			t.Errorf("latest query = %q, want dogs", history[0].Query)
		}
	})
}
