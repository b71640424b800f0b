package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Salad109/satellite-conjunction-api/internal/auth"
	"github.com/Salad109/satellite-conjunction-api/internal/conjunction"
	"github.com/Salad109/satellite-conjunction-api/internal/ingestion"
	"github.com/Salad109/satellite-conjunction-api/internal/satellite"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func testServer(t *testing.T, authCfg auth.Config) (*Server, satellite.CatalogStore, conjunction.Store) {
	t.Helper()
	logger := testLogger()
	catalog := satellite.NewInMemoryCatalogStore()
	conjunctions := conjunction.NewInMemoryStore()

	fetcher := ingestion.NewFetcher("http://unused.invalid/tle", logger)
	svc := ingestion.NewService(fetcher, "", 5, catalog, ingestion.NewInMemoryLogStore(), 500, logger)

	srv := NewServer("127.0.0.1:0", logger, authCfg, catalog, svc, conjunctions, nil)
	return srv, catalog, conjunctions
}

// TestHandleGetSatelliteNotFound verifies a catalog number absent from the
// store returns 404 with the uniform error shape.
func TestHandleGetSatelliteNotFound(t *testing.T) {
	srv, _, _ := testServer(t, auth.Config{Enabled: false})

	req := httptest.NewRequest("GET", "/api/v1/catalog/99999", nil)
	w := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusNotFound)
	}

	var resp errorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != http.StatusNotFound {
		t.Errorf("resp.Status = %d, want %d", resp.Status, http.StatusNotFound)
	}
	if resp.Timestamp == "" {
		t.Error("expected non-empty timestamp")
	}
}

// TestHandleGetSatelliteFound verifies a catalog number present in the
// store is returned as JSON.
func TestHandleGetSatelliteFound(t *testing.T) {
	srv, catalog, _ := testServer(t, auth.Config{Enabled: false})
	catalog.SaveAll([]satellite.Satellite{{CatalogNumber: 25544, Name: "ISS (ZARYA)"}})

	req := httptest.NewRequest("GET", "/api/v1/catalog/25544", nil)
	w := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var got satellite.Satellite
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.CatalogNumber != 25544 {
		t.Errorf("CatalogNumber = %d, want 25544", got.CatalogNumber)
	}
}

// TestHandleGetSatelliteBadID verifies a non-integer catId is rejected
// with 400 instead of panicking or matching no route.
func TestHandleGetSatelliteBadID(t *testing.T) {
	srv, _, _ := testServer(t, auth.Config{Enabled: false})

	req := httptest.NewRequest("GET", "/api/v1/catalog/not-a-number", nil)
	w := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

// TestHandleGetConjunctionsPagination verifies page/size query params are
// honored and totalElements reflects the full store, not just the page.
func TestHandleGetConjunctionsPagination(t *testing.T) {
	srv, _, conjunctions := testServer(t, auth.Config{Enabled: false})

	now := time.Now().UTC()
	var batch []conjunction.Conjunction
	for i := 0; i < 5; i++ {
		batch = append(batch, conjunction.Conjunction{
			CatalogNumberA: 1, CatalogNumberB: 100 + i,
			TimeOfClosestApproach: now.Add(time.Duration(i) * time.Hour),
			MissDistanceKm:        1.0,
		})
	}
	conjunctions.BatchUpsertIfCloser(batch, now)

	req := httptest.NewRequest("GET", "/api/v1/conjunctions?page=0&size=2", nil)
	w := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp struct {
		Content       []conjunction.Conjunction `json:"content"`
		TotalElements int                        `json:"totalElements"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Content) != 2 {
		t.Errorf("len(Content) = %d, want 2", len(resp.Content))
	}
	if resp.TotalElements != 5 {
		t.Errorf("TotalElements = %d, want 5", resp.TotalElements)
	}
}

// TestAuthMiddlewareRejectsUnauthenticatedMutation verifies that, with auth
// enabled, the sync endpoint requires a bearer token while read-only catalog
// and conjunction endpoints stay public.
func TestAuthMiddlewareRejectsUnauthenticatedMutation(t *testing.T) {
	srv, _, _ := testServer(t, auth.Config{Enabled: true, Token: "secret"})

	req := httptest.NewRequest("POST", "/api/v1/catalog/sync", nil)
	w := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("sync without token: status = %d, want %d", w.Code, http.StatusUnauthorized)
	}

	req = httptest.NewRequest("GET", "/api/v1/catalog/stats", nil)
	w = httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("stats without token: status = %d, want %d", w.Code, http.StatusOK)
	}

	req = httptest.NewRequest("POST", "/api/v1/catalog/sync", nil)
	req.Header.Set("Authorization", "Bearer secret")
	w = httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(w, req)
	if w.Code == http.StatusUnauthorized {
		t.Errorf("sync with correct token: status = %d, want not-401", w.Code)
	}
}

// TestRecoveryMiddlewareConvertsPanicToErrorResponse verifies a panicking
// handler still produces a well-formed JSON error response instead of a
// broken connection.
func TestRecoveryMiddlewareConvertsPanicToErrorResponse(t *testing.T) {
	logger := testLogger()
	panicky := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})
	handler := recoveryMiddleware(logger)(panicky)

	req := httptest.NewRequest("GET", "/whatever", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}

	var resp errorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Error == "" {
		t.Error("expected non-empty error field")
	}
}
