package middleware

import (
	"fmt"
	"net"
	"net/http"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"

	"github.com/zhouzirui/legalease/backend/pkg/utils"
)

const maxTrackedClients = 4096

// RateLimiter keeps one token bucket per client address. The least recently
// seen clients are evicted once maxTrackedClients is reached.
type RateLimiter struct {
	limit   rate.Limit
	burst   int
	clients *lru.Cache[string, *rate.Limiter]
}

// NewRateLimiter allows rps requests per second with the given burst per
// client. rps <= 0 disables limiting.
func NewRateLimiter(rps float64, burst int) (*RateLimiter, error) {
	if burst < 1 {
		burst = 1
	}
	clients, err := lru.New[string, *rate.Limiter](maxTrackedClients)
	if err != nil {
		return nil, fmt.Errorf("create limiter cache: %w", err)
	}
	limit := rate.Limit(rps)
	if rps <= 0 {
		limit = rate.Inf
	}
	return &RateLimiter{limit: limit, burst: burst, clients: clients}, nil
}

// Allow consumes one token for client.
func (l *RateLimiter) Allow(client string) bool {
	limiter, ok := l.clients.Get(client)
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.burst)
		// Another request may have raced us; keep whichever landed first.
		if prev, loaded, _ := l.clients.PeekOrAdd(client, limiter); loaded {
			limiter = prev
		}
	}
	return limiter.Allow()
}

// Handler rejects requests over the limit with 429.
func (l *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.Allow(clientKey(r)) {
			w.Header().Set("Retry-After", "1")
			utils.RespondError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientKey strips the port from RemoteAddr; chi's RealIP may already have
// replaced it with a bare address.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
