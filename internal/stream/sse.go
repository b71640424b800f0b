// Package stream implements Server-Sent Events (SSE) streaming of newly
// discovered conjunctions. Clients connect via GET /api/v1/conjunctions/stream
// and receive a continuous feed of conjunctions as each screening run
// upserts them.
//
// SSE message format:
//
//	data: {"type":"conjunction","catalog_number_a":25544,"catalog_number_b":44713,"miss_distance_km":3.2,"tca":"...","relative_speed_m_s":14800}\n\n
//
// First message is always metadata:
//
//	data: {"type":"metadata","total_conjunctions":42}\n\n
//
// Keep-alive comments (:\n\n) are sent every KeepaliveInterval to prevent
// an idle connection from being dropped by an intermediary.
package stream

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/Salad109/satellite-conjunction-api/internal/conjunction"
	"github.com/Salad109/satellite-conjunction-api/internal/httputil"
	"github.com/Salad109/satellite-conjunction-api/internal/metrics"
)

// Config holds streaming configuration loaded from environment variables.
type Config struct {
	MaxConcurrentPerIP int           // Max concurrent streams per IP (default: 10).
	MaxConcurrentTotal int           // Max concurrent streams server-wide (default: 1000).
	KeepaliveInterval  time.Duration // Keep-alive ping interval (default: 30s).
}

// Publisher is a narrow broadcast point the screening orchestrator writes
// newly-upserted conjunctions to; Handler fans each broadcast out to every
// connected client.
type Publisher struct {
	mu    sync.Mutex
	chans map[chan conjunction.Conjunction]struct{}
}

// NewPublisher creates an empty Publisher.
func NewPublisher() *Publisher {
	return &Publisher{chans: make(map[chan conjunction.Conjunction]struct{})}
}

// Publish fans out c to every currently-subscribed client without blocking
// on a slow reader; a client whose buffer is full drops the message.
func (p *Publisher) Publish(c conjunction.Conjunction) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for ch := range p.chans {
		select {
		case ch <- c:
		default:
		}
	}
}

func (p *Publisher) subscribe() chan conjunction.Conjunction {
	ch := make(chan conjunction.Conjunction, 32)
	p.mu.Lock()
	p.chans[ch] = struct{}{}
	p.mu.Unlock()
	return ch
}

func (p *Publisher) unsubscribe(ch chan conjunction.Conjunction) {
	p.mu.Lock()
	delete(p.chans, ch)
	p.mu.Unlock()
}

// Handler manages SSE streaming connections for newly-discovered conjunctions.
type Handler struct {
	conjunctions conjunction.Store
	publisher    *Publisher
	config       Config
	limiter      *streamLimiter
	logger       *slog.Logger
}

// NewHandler creates a new streaming handler.
func NewHandler(conjunctions conjunction.Store, publisher *Publisher, config Config, logger *slog.Logger) *Handler {
	return &Handler{
		conjunctions: conjunctions,
		publisher:    publisher,
		config:       config,
		limiter:      newStreamLimiter(config.MaxConcurrentPerIP, config.MaxConcurrentTotal),
		logger:       logger,
	}
}

// HandleConjunctions serves the SSE conjunction stream.
// GET /api/v1/conjunctions/stream
func (h *Handler) HandleConjunctions(w http.ResponseWriter, r *http.Request) {
	ip := httputil.ClientIP(r, false)
	if !h.limiter.acquire(ip) {
		h.logger.Warn("stream rate limit exceeded",
			"remote_ip", ip,
			"current_count", h.limiter.count(ip),
		)
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]string{"error": "too many concurrent streams"})
		return
	}

	metrics.IncStreamsActive()
	startTime := time.Now()
	h.logger.Info("conjunction stream connected", "remote_ip", ip, "user_agent", r.Header.Get("User-Agent"))

	defer func() {
		h.limiter.release(ip)
		metrics.DecStreamsActive()
		h.logger.Info("conjunction stream disconnected",
			"remote_ip", ip,
			"duration_seconds", int(time.Since(startTime).Seconds()),
		)
	}()

	flusher, ok := w.(http.Flusher)
	if !ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": "streaming not supported"})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		h.logger.Debug("could not clear write deadline", "error", err)
	}

	c := &client{w: w, flusher: flusher, rc: rc, ip: ip, logger: h.logger}

	retryMs := 3000 + rand.Intn(4000)
	fmt.Fprintf(w, "retry: %d\n\n", retryMs)
	flusher.Flush()

	_, total := h.conjunctions.GetConjunctions(0, 1)
	if err := c.sendMetadata(total); err != nil {
		metrics.IncStreamErrors("send_error")
		h.logger.Warn("stream send error (metadata)", "remote_ip", ip, "error", err)
		return
	}

	updates := h.publisher.subscribe()
	defer h.publisher.unsubscribe(updates)

	keepaliveTicker := time.NewTicker(h.config.KeepaliveInterval)
	defer keepaliveTicker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return

		case conj := <-updates:
			if err := c.sendConjunction(conj); err != nil {
				metrics.IncStreamErrors("send_error")
				h.logger.Warn("stream send error", "remote_ip", ip, "error", err)
				return
			}
			keepaliveTicker.Reset(h.config.KeepaliveInterval)

		case <-keepaliveTicker.C:
			if err := c.sendKeepalive(); err != nil {
				metrics.IncStreamErrors("send_error")
				h.logger.Warn("stream keepalive error", "remote_ip", ip, "error", err)
				return
			}
		}
	}
}

type metadataMessage struct {
	Type              string `json:"type"`
	TotalConjunctions int    `json:"total_conjunctions"`
}

type conjunctionMessage struct {
	Type                  string  `json:"type"`
	CatalogNumberA        int     `json:"catalog_number_a"`
	CatalogNumberB        int     `json:"catalog_number_b"`
	MissDistanceKm        float64 `json:"miss_distance_km"`
	TimeOfClosestApproach string  `json:"tca"`
	RelativeSpeedMS       float64 `json:"relative_speed_m_s"`
}
