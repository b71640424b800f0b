package stream

import (
	"sync"

	"github.com/Salad109/satellite-conjunction-api/internal/metrics"
)

// streamLimiter caps how many SSE conjunction-stream connections a single
// IP (and the server as a whole) may hold open at once, so a handful of
// clients that never disconnect can't starve the stream of file
// descriptors. Every rejection is counted against the "conjunction_stream"
// rate-limit metric so the cap's pressure is visible in dashboards.
type streamLimiter struct {
	mu          sync.Mutex
	connections map[string]int
	total       int
	maxPerIP    int
	maxTotal    int
}

func newStreamLimiter(maxPerIP, maxTotal int) *streamLimiter {
	if maxTotal <= 0 {
		maxTotal = 1000
	}
	return &streamLimiter{
		connections: make(map[string]int),
		maxPerIP:    maxPerIP,
		maxTotal:    maxTotal,
	}
}

// acquire attempts to register a new connection for ip, recording a
// rate-limit rejection metric when either the per-IP or global cap is
// already saturated. Returns whether the connection was admitted.
func (l *streamLimiter) acquire(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.total >= l.maxTotal || l.connections[ip] >= l.maxPerIP {
		metrics.IncRateLimitRejection("conjunction_stream")
		return false
	}

	l.connections[ip]++
	l.total++
	return true
}

// release decrements the connection count for ip.
func (l *streamLimiter) release(ip string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.connections[ip]--
	l.total--
	if l.connections[ip] <= 0 {
		delete(l.connections, ip)
	}
}

// count returns the number of active connections for ip.
func (l *streamLimiter) count(ip string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.connections[ip]
}
