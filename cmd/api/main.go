package main

import (
	"context"
	"log"
	"log/slog"
	nethttp "net/http"
	"os"

	"docshelf/internal/blob"
	"docshelf/internal/cache"
	"docshelf/internal/config"
	"docshelf/internal/files"
	"docshelf/internal/folders"
	"docshelf/internal/handlers"
	"docshelf/internal/http"
	"docshelf/internal/llm"
	"docshelf/internal/search"
	"docshelf/internal/storage"
	"docshelf/internal/vectorstore"
)

func main() {
	// Load configuration first (needed for log level)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Configure structured logging with configurable level and format
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
	slog.Debug("Logging configured", "level", cfg.LogLevel.String(), "format", cfg.LogFormat)

	// Initialize database
	db, err := storage.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer func() {
		_ = db.Close()
	}()

	if err := storage.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	slog.Info("Database initialized", "path", cfg.DBPath)

	// Create repository instances
	fileRepo := storage.NewFileRepo(db)
	folderRepo := storage.NewFolderRepo(db)
	metadataRepo := storage.NewMetadataRepo(db)
	historyRepo := storage.NewHistoryRepo(db)

	// Blob store for content above the inline threshold
	objectStore, err := blob.NewFSStore(cfg.BlobDir)
	if err != nil {
		log.Fatalf("Failed to initialize blob store: %v", err)
	}
	slog.Info("Blob store initialized", "dir", cfg.BlobDir)

	// Read cache shared by the managers
	readCache := cache.New(cfg.CacheMaxEntries, cfg.CacheTTL)

	ctx := context.Background()

	// Vector index for the semantic search stage
	vectorIndex, err := vectorstore.NewQdrantIndex(cfg.QdrantURL, cfg.QdrantCollection)
	if err != nil {
		log.Fatalf("Failed to create Qdrant client: %v", err)
	}
	if err := vectorIndex.Ensure(ctx, cfg.EmbeddingVectorDim); err != nil {
		log.Fatalf("Failed to ensure Qdrant collection: %v", err)
	}
	slog.Info("Qdrant collection ready", "collection", cfg.QdrantCollection, "vector_dim", cfg.EmbeddingVectorDim)

	embedder := llm.NewEmbeddingsClient(cfg.EmbeddingBaseURL, cfg.EmbeddingAPIKey, cfg.EmbeddingModelName, cfg.EmbeddingVectorDim)

	// Domain managers
	fileManager := files.NewManager(
		fileRepo,
		metadataRepo,
		folderRepo,
		blob.NewPolicy(objectStore),
		objectStore,
		vectorIndex,
		readCache,
	)
	folderManager := folders.NewManager(folderRepo, fileRepo, fileManager, readCache)
	searchEngine := search.NewEngine(embedder, vectorIndex, fileRepo, fileManager, historyRepo)
	slog.Info("Managers initialized", "default_owner", cfg.DefaultOwner)

	// Create router with dependencies
	deps := &http.Deps{
		Files:        fileManager,
		Folders:      folderManager,
		Search:       searchEngine,
		Store:        handlers.PingerFunc(db.PingContext),
		VectorIndex:  vectorIndex,
		DefaultOwner: cfg.DefaultOwner,
	}
	router := http.NewRouter(deps)

	// Start API server
	addr := ":" + cfg.APIPort
	slog.Info("Starting API server", "addr", addr)
	if err := nethttp.ListenAndServe(addr, router); err != nil {
		log.Fatalf("API server failed to start: %v", err)
	}
}
