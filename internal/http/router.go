package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"docshelf/internal/files"
	"docshelf/internal/folders"
	"docshelf/internal/handlers"
	"docshelf/internal/search"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	Files        files.Service
	Folders      folders.Service
	Search       search.Service
	Store        handlers.Pinger
	VectorIndex  handlers.Pinger
	DefaultOwner string
}

// NewRouter creates a new HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(LoggerMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(CORS)

	filesHandler := handlers.NewFilesHandler(deps.Files, deps.DefaultOwner)
	foldersHandler := handlers.NewFoldersHandler(deps.Folders, deps.DefaultOwner)
	searchHandler := handlers.NewSearchHandler(deps.Search, deps.DefaultOwner)
	healthHandler := handlers.NewHealthHandler(deps.Store, deps.VectorIndex)

	r.Route("/api", func(r chi.Router) {
		r.Route("/files", func(r chi.Router) {
			r.Post("/", filesHandler.Create)
			r.Get("/", filesHandler.List)
			r.Post("/batch", filesHandler.CreateBatch)
			r.Post("/move", filesHandler.Move)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", filesHandler.Get)
				r.Delete("/", filesHandler.Delete)
				r.Get("/content", filesHandler.Content)
				r.Patch("/status", filesHandler.UpdateStatus)
				r.Put("/metadata", filesHandler.AttachMetadata)
				r.Post("/retry", filesHandler.Retry)
			})
		})

		r.Route("/folders", func(r chi.Router) {
			r.Post("/", foldersHandler.Create)
			r.Get("/", foldersHandler.List)
			r.Patch("/{id}", foldersHandler.Update)
			r.Delete("/{id}", foldersHandler.Delete)
			r.Post("/{id}/move-contents", foldersHandler.MoveContents)
		})

		r.Get("/search", searchHandler.Search)
		r.Get("/search/history", searchHandler.History)
		r.Get("/stats", filesHandler.Stats)
	})

	r.Method(http.MethodGet, "/health", healthHandler)

	return r
}
