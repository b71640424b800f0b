package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/Salad109/satellite-conjunction-api/internal/auth"
	"github.com/Salad109/satellite-conjunction-api/internal/conjunction"
	"github.com/Salad109/satellite-conjunction-api/internal/health"
	"github.com/Salad109/satellite-conjunction-api/internal/httputil"
	"github.com/Salad109/satellite-conjunction-api/internal/ingestion"
	"github.com/Salad109/satellite-conjunction-api/internal/metrics"
	"github.com/Salad109/satellite-conjunction-api/internal/satellite"
	"github.com/Salad109/satellite-conjunction-api/internal/stream"
)

// Server holds the HTTP server and its dependencies.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates a configured HTTP server exposing the catalog sync
// trigger, catalog read endpoints, and the conjunction read/stream
// endpoints.
func NewServer(
	addr string,
	logger *slog.Logger,
	authCfg auth.Config,
	catalog satellite.CatalogStore,
	ingestionSvc *ingestion.Service,
	conjunctions conjunction.Store,
	streamHandler *stream.Handler,
) *Server {
	h := &apiHandlers{
		catalog:      catalog,
		ingestionSvc: ingestionSvc,
		conjunctions: conjunctions,
		logger:       logger,
		syncLimiter:  httputil.NewIPRateLimiter(rate.Every(6*time.Second), 3),
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", health.Healthz)
	mux.HandleFunc("GET /readyz", health.NewReadyzHandler(catalog))
	mux.Handle("GET /metrics", metrics.Handler())

	mux.HandleFunc("POST /api/v1/catalog/sync", h.handleSync)
	mux.HandleFunc("GET /api/v1/catalog/stats", h.handleStats)
	mux.HandleFunc("GET /api/v1/catalog/{catId}", h.handleGetSatellite)
	mux.HandleFunc("GET /api/v1/conjunctions", h.handleGetConjunctions)

	if streamHandler != nil {
		mux.HandleFunc("GET /api/v1/conjunctions/stream", streamHandler.HandleConjunctions)
	}

	var handler http.Handler = mux
	handler = auth.Middleware(authCfg)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = metrics.Middleware(handler)
	handler = recoveryMiddleware(logger)(handler)

	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadTimeout:       10 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      0, // the conjunction stream is long-lived; per-handler deadlines apply instead
			IdleTimeout:       120 * time.Second,
		},
		logger: logger,
	}
}

// HTTPServer returns the underlying *http.Server for external control (e.g. shutdown).
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// apiHandlers holds the dependencies the route handlers close over.
type apiHandlers struct {
	catalog      satellite.CatalogStore
	ingestionSvc *ingestion.Service
	conjunctions conjunction.Store
	logger       *slog.Logger
	syncLimiter  *httputil.IPRateLimiter
}

// errorResponse is the uniform shape for every non-2xx JSON response.
type errorResponse struct {
	Status    int    `json:"status"`
	Error     string `json:"error"`
	Details   string `json:"details"`
	Timestamp string `json:"timestamp"`
}

func writeError(w http.ResponseWriter, status int, details string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorResponse{
		Status:    status,
		Error:     http.StatusText(status),
		Details:   details,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// handleSync triggers an ingestion catalog sync synchronously and reports
// the SyncResult: 200 on success, 500 with the same shape on failure.
func (h *apiHandlers) handleSync(w http.ResponseWriter, r *http.Request) {
	ip := httputil.ClientIP(r, false)
	if !h.syncLimiter.Allow(ip) {
		metrics.IncRateLimitRejection("catalog_sync")
		writeError(w, http.StatusTooManyRequests, "too many sync requests, try again later")
		return
	}

	result := h.ingestionSvc.Sync(r.Context())

	outcome := "success"
	status := http.StatusOK
	if !result.Successful {
		outcome = "failure"
		status = http.StatusInternalServerError
	}
	metrics.IncIngestionSync(outcome)
	metrics.SetCatalogObjectsTotal(h.catalog.Count())

	writeJSON(w, status, result)
}

// handleStats reports catalog size.
func (h *apiHandlers) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"totalObjects": h.catalog.Count(),
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
	})
}

// handleGetSatellite looks up a single catalog object by catalog number.
func (h *apiHandlers) handleGetSatellite(w http.ResponseWriter, r *http.Request) {
	catIDStr := r.PathValue("catId")
	catID, err := strconv.Atoi(catIDStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, "catId must be an integer")
		return
	}

	sat, ok := h.catalog.Find(catID)
	if !ok {
		writeError(w, http.StatusNotFound, "no satellite with that catalog number")
		return
	}
	writeJSON(w, http.StatusOK, sat)
}

// handleGetConjunctions returns a page of stored conjunctions. A
// "formations" query parameter is accepted so future clients asking for
// grouped multi-object conjunction formations don't need a breaking query
// shape change, but no formation grouping exists yet and the parameter is
// ignored.
func (h *apiHandlers) handleGetConjunctions(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 0)
	size := queryInt(r, "size", 50)
	if size <= 0 || size > 500 {
		size = 50
	}
	if page < 0 {
		page = 0
	}

	items, total := h.conjunctions.GetConjunctions(page*size, size)
	writeJSON(w, http.StatusOK, map[string]any{
		"content":       items,
		"page":          page,
		"size":          size,
		"totalElements": total,
	})
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// probePath returns true for health/readiness probe paths that should not log at INFO.
func probePath(path string) bool {
	return path == "/healthz" || path == "/readyz"
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.statusCode = code
	sr.ResponseWriter.WriteHeader(code)
}

func loggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sr := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(sr, r)

			duration := time.Since(start)
			level := slog.LevelInfo
			if probePath(r.URL.Path) {
				level = slog.LevelDebug
			}

			logger.Log(r.Context(), level, "request",
				"component", "api",
				"method", r.Method,
				"path", r.URL.Path,
				"status", strconv.Itoa(sr.statusCode),
				"duration_ms", duration.Milliseconds(),
				"remote_ip", r.RemoteAddr,
			)
		})
	}
}

// recoveryMiddleware converts a panic anywhere downstream into the uniform
// errorResponse shape instead of letting net/http close the connection
// with no response at all.
func recoveryMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if logger != nil {
						logger.Error("panic recovered in HTTP handler",
							"error", rec, "path", r.URL.Path, "stack", string(debug.Stack()))
					}
					writeError(w, http.StatusInternalServerError, "an unexpected error occurred")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
