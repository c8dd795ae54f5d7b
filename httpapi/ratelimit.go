package httpapi

import (
	"net/http"
	"sync"

	"golang.org/x/time/rate"
)

// agentLimiters hands out one token-bucket limiter per agent name, created
// lazily, so a noisy agent's callers cannot starve requests to others.
type agentLimiters struct {
	rps   rate.Limit
	burst int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func newAgentLimiters(rps float64, burst int) *agentLimiters {
	return &agentLimiters{
		rps:      rate.Limit(rps),
		burst:    burst,
		limiters: make(map[string]*rate.Limiter),
	}
}

func (a *agentLimiters) forName(name string) *rate.Limiter {
	a.mu.Lock()
	defer a.mu.Unlock()

	l, ok := a.limiters[name]
	if !ok {
		l = rate.NewLimiter(a.rps, a.burst)
		a.limiters[name] = l
	}
	return l
}

// rateLimited wraps next so that requests exceeding the per-agent budget
// receive 429 Too Many Requests instead of reaching the handler.
func (s *Server) rateLimited(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := r.PathValue("name")
		if !s.limiters.forName(name).Allow() {
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next(w, r)
	}
}
