package api

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const rateLimitedMessage = "Too many requests from this IP, please try again after 15 minutes"

// ipLimiter keeps one token bucket per client IP. A bucket holds max tokens
// and refills completely over window.
type ipLimiter struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	max       int
	window    time.Duration
	limit     rate.Limit
	lastSweep time.Time
	now       func() time.Time
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// decision is the outcome of one limiter check
type decision struct {
	allowed    bool
	remaining  int
	resetIn    time.Duration
	retryAfter time.Duration
}

func newIPLimiter(max int, window time.Duration) *ipLimiter {
	return &ipLimiter{
		visitors: make(map[string]*visitor),
		max:      max,
		window:   window,
		limit:    rate.Every(window / time.Duration(max)),
		now:      time.Now,
	}
}

// take consumes one token for ip if available
func (l *ipLimiter) take(ip string) decision {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.sweep(now)

	v, ok := l.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.max)}
		l.visitors[ip] = v
	}
	v.lastSeen = now

	res := v.limiter.ReserveN(now, 1)
	if delay := res.DelayFrom(now); delay > 0 {
		res.CancelAt(now)
		return decision{
			resetIn:    l.refillTime(v.limiter.TokensAt(now)),
			retryAfter: delay,
		}
	}

	tokens := v.limiter.TokensAt(now)
	return decision{
		allowed:   true,
		remaining: int(math.Max(0, math.Floor(tokens))),
		resetIn:   l.refillTime(tokens),
	}
}

// refillTime is how long a bucket holding tokens needs to fill up again
func (l *ipLimiter) refillTime(tokens float64) time.Duration {
	missing := float64(l.max) - tokens
	if missing <= 0 {
		return 0
	}
	return time.Duration(missing * float64(l.window) / float64(l.max))
}

// sweep drops visitors idle for a whole window; their buckets are full
// again so forgetting them changes nothing. Runs at most once per window.
func (l *ipLimiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < l.window {
		return
	}
	for ip, v := range l.visitors {
		if now.Sub(v.lastSeen) >= l.window {
			delete(l.visitors, ip)
		}
	}
	l.lastSweep = now
}

func (l *ipLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.visitors)
}

// rateLimit rejects clients that exceeded their per-IP budget
func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		d := s.limiter.take(ip)

		h := w.Header()
		h.Set("RateLimit-Limit", strconv.Itoa(s.limiter.max))
		h.Set("RateLimit-Remaining", strconv.Itoa(d.remaining))
		h.Set("RateLimit-Reset", strconv.Itoa(ceilSeconds(d.resetIn)))

		if !d.allowed {
			s.requestLogger(r).Warn("rate limit exceeded", zap.String("ip", ip))
			h.Set("Retry-After", strconv.Itoa(ceilSeconds(d.retryAfter)))
			http.Error(w, rateLimitedMessage, http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP returns the caller address. Behind a trusted proxy
// handlers.ProxyHeaders has already replaced RemoteAddr with the
// forwarded client address, which carries no port.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func ceilSeconds(d time.Duration) int {
	return int(math.Ceil(d.Seconds()))
}
