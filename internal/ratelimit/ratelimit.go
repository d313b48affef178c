package ratelimit

import (
	"encoding/json"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"
)

const (
	idleBucketTTL = 1 * time.Hour
	sweepInterval = 30 * time.Minute
)

type bucket struct {
	remaining   int
	windowStart time.Time
}

// Limiter gives each client capacity requests per window. The whole
// allowance comes back at once when the client's window elapses.
type Limiter struct {
	mu       sync.Mutex
	capacity int
	window   time.Duration
	clients  map[string]*bucket
	now      func() time.Time
	stop     chan struct{}
	stopOnce sync.Once
}

// New starts a Limiter together with its background sweep of idle clients;
// call Stop to end the sweep.
func New(capacity int, window time.Duration) *Limiter {
	l := &Limiter{
		capacity: capacity,
		window:   window,
		clients:  make(map[string]*bucket),
		now:      time.Now,
		stop:     make(chan struct{}),
	}
	go l.sweepLoop()
	return l
}

func (l *Limiter) sweepLoop() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.sweep()
		case <-l.stop:
			return
		}
	}
}

func (l *Limiter) sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for client, b := range l.clients {
		if now.Sub(b.windowStart) > idleBucketTTL {
			delete(l.clients, client)
		}
	}
}

func (l *Limiter) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

// Reserve takes one request from client's allowance. When nothing is left it
// reports how long until the client's window resets.
func (l *Limiter) Reserve(client string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.clients[client]
	if !ok || now.Sub(b.windowStart) >= l.window {
		b = &bucket{remaining: l.capacity, windowStart: now}
		l.clients[client] = b
	}

	if b.remaining <= 0 {
		return false, b.windowStart.Add(l.window).Sub(now)
	}
	b.remaining--
	return true, 0
}

func (l *Limiter) Allow(client string) bool {
	ok, _ := l.Reserve(client)
	return ok
}

// Middleware answers clients that ran out of requests with a JSON 429 and a
// Retry-After header. Clients are keyed on the connection's remote address;
// forwarding headers are ignored because any caller can set them.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ok, wait := l.Reserve(clientIP(r))
		if !ok {
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "rate limit exceeded"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
