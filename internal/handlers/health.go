package handlers

import (
	"context"
	"net/http"
	"time"

	"docshelf/internal/contextutil"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingerFunc adapts a function to the Pinger interface.
type PingerFunc func(ctx context.Context) error

// Ping calls the wrapped function.
func (f PingerFunc) Ping(ctx context.Context) error { return f(ctx) }

// HealthHandler handles HTTP requests for health checks.
type HealthHandler struct {
	store       Pinger
	vectorIndex Pinger
	timeout     time.Duration
}

// NewHealthHandler creates a new HealthHandler. The vector index pinger may
// be nil; the index is not a critical dependency because search degrades to
// the keyword stage without it.
func NewHealthHandler(store, vectorIndex Pinger) *HealthHandler {
	return &HealthHandler{
		store:       store,
		vectorIndex: vectorIndex,
		timeout:     5 * time.Second,
	}
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
	Issues    []string          `json:"issues,omitempty"`
}

// ServeHTTP handles GET /health. Returns 200 when the relational store is
// reachable; a missing vector index only degrades the status.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	checkCtx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	checks := make(map[string]string)
	var issues []string

	status := "healthy"
	httpStatus := http.StatusOK

	if err := h.store.Ping(checkCtx); err != nil {
		logger.WarnContext(ctx, "relational store health check failed", "error", err)
		checks["store"] = "error"
		issues = append(issues, "store_unavailable")
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["store"] = "ok"
	}

	if h.vectorIndex != nil {
		if err := h.vectorIndex.Ping(checkCtx); err != nil {
			logger.WarnContext(ctx, "vector index health check failed", "error", err)
			checks["vector_index"] = "error"
			issues = append(issues, "vector_index_unavailable")
			if status == "healthy" {
				status = "degraded"
			}
		} else {
			checks["vector_index"] = "ok"
		}
	}

	writeJSON(ctx, w, httpStatus, HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
		Issues:    issues,
	})
}
