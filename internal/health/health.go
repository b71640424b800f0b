// Package health exposes liveness and readiness endpoints for the
// screener service.
package health

import "net/http"

// Healthz reports process liveness: 200 as long as the HTTP server is
// accepting connections, regardless of catalog or ingestion state.
func Healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok\n"))
}

// CatalogChecker reports whether the satellite catalog holds enough data
// for a screening run to be meaningful.
type CatalogChecker interface {
	Count() int
}

// NewReadyzHandler returns a readiness handler that reports 200 once the
// catalog has been populated by at least one ingestion sync (startup or
// scheduled), and 503 while the catalog is still empty — screening and
// conjunction queries against an empty catalog are not useful signals,
// so callers load-balancing on readiness can hold traffic back until then.
func NewReadyzHandler(catalog CatalogChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		if catalog.Count() == 0 {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("not ready: catalog empty\n"))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ready\n"))
	}
}
