package middleware

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/fakhrymubarak/weather-dashboard/internal/model"
	"golang.org/x/time/rate"
)

// DefaultParamKey is the query parameter that gets its own bucket per value.
const DefaultParamKey = "city"

// RateLimiterConfig holds per-minute rates and bursts for both limiters.
// TrustForwardedFor keys clients by the first X-Forwarded-For hop instead of
// the connection address; any client can forge that header, so enable it only
// behind a proxy that overwrites it.
type RateLimiterConfig struct {
	ParamKey          string
	GlobalPerMinute   float64
	GlobalBurst       int
	ParamPerMinute    float64
	ParamBurst        int
	IdleTimeout       time.Duration
	CleanupInterval   time.Duration
	TrustForwardedFor bool
}

// visitor holds a rate limiter and the last time its key was seen.
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter enforces a per-IP limit and a per-IP, per-parameter limit.
type RateLimiter struct {
	cfg RateLimiterConfig
	now func() time.Time

	muGlobal sync.Mutex
	// globalVisitors key: ip
	globalVisitors map[string]*visitor

	muParam sync.Mutex
	// paramVisitors key: ip -> paramValue
	paramVisitors map[string]map[string]*visitor
}

func NewRateLimiter(cfg RateLimiterConfig) *RateLimiter {
	if cfg.ParamKey == "" {
		cfg.ParamKey = DefaultParamKey
	}
	if cfg.GlobalPerMinute <= 0 {
		cfg.GlobalPerMinute = 10
	}
	if cfg.GlobalBurst <= 0 {
		cfg.GlobalBurst = 10
	}
	if cfg.ParamPerMinute <= 0 {
		cfg.ParamPerMinute = 2
	}
	if cfg.ParamBurst <= 0 {
		cfg.ParamBurst = 2
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = 3 * time.Minute
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = time.Minute
	}
	return &RateLimiter{
		cfg:            cfg,
		now:            time.Now,
		globalVisitors: make(map[string]*visitor),
		paramVisitors:  make(map[string]map[string]*visitor),
	}
}

func (l *RateLimiter) newLimiter(perMinute float64, burst int) *rate.Limiter {
	return rate.NewLimiter(rate.Limit(perMinute/60.0), burst)
}

// getGlobalLimiter returns the rate limiter for the given IP address, creating one if it does not exist.
func (l *RateLimiter) getGlobalLimiter(ip string) *rate.Limiter {
	l.muGlobal.Lock()
	defer l.muGlobal.Unlock()
	v, exists := l.globalVisitors[ip]
	if !exists {
		v = &visitor{limiter: l.newLimiter(l.cfg.GlobalPerMinute, l.cfg.GlobalBurst)}
		l.globalVisitors[ip] = v
	}
	v.lastSeen = l.now()
	return v.limiter
}

// getParamLimiter returns the rate limiter for the given IP address and parameter value, creating one if it does not exist.
func (l *RateLimiter) getParamLimiter(ip, param string) *rate.Limiter {
	l.muParam.Lock()
	defer l.muParam.Unlock()
	if _, ok := l.paramVisitors[ip]; !ok {
		l.paramVisitors[ip] = make(map[string]*visitor)
	}
	v, exists := l.paramVisitors[ip][param]
	if !exists {
		v = &visitor{limiter: l.newLimiter(l.cfg.ParamPerMinute, l.cfg.ParamBurst)}
		l.paramVisitors[ip][param] = v
	}
	v.lastSeen = l.now()
	return v.limiter
}

// Cleanup removes visitors not seen for longer than the idle timeout.
func (l *RateLimiter) Cleanup() {
	cutoff := l.now().Add(-l.cfg.IdleTimeout)

	l.muGlobal.Lock()
	for ip, v := range l.globalVisitors {
		if v.lastSeen.Before(cutoff) {
			delete(l.globalVisitors, ip)
		}
	}
	l.muGlobal.Unlock()

	l.muParam.Lock()
	for ip, paramMap := range l.paramVisitors {
		for param, v := range paramMap {
			if v.lastSeen.Before(cutoff) {
				delete(paramMap, param)
			}
		}
		if len(paramMap) == 0 {
			delete(l.paramVisitors, ip)
		}
	}
	l.muParam.Unlock()
}

// StartCleanup runs Cleanup every cleanup interval until ctx is done.
func (l *RateLimiter) StartCleanup(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(l.cfg.CleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				l.Cleanup()
			}
		}
	}()
}

// Reset clears all visitor state.
func (l *RateLimiter) Reset() {
	l.muGlobal.Lock()
	clear(l.globalVisitors)
	l.muGlobal.Unlock()
	l.muParam.Lock()
	clear(l.paramVisitors)
	l.muParam.Unlock()
}

// visitorCount returns the number of tracked IPs in each map.
func (l *RateLimiter) visitorCount() (global, param int) {
	l.muGlobal.Lock()
	global = len(l.globalVisitors)
	l.muGlobal.Unlock()
	l.muParam.Lock()
	param = len(l.paramVisitors)
	l.muParam.Unlock()
	return
}

// getIP extracts the client's IP address from the HTTP request. The
// X-Forwarded-For header is only consulted when trustForwarded is set.
func getIP(r *http.Request, trustForwarded bool) string {
	if xff := r.Header.Get("X-Forwarded-For"); trustForwarded && xff != "" {
		ips := strings.Split(xff, ",")
		return strings.TrimSpace(ips[0])
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr // fallback
	}
	return ip
}

func writeTooManyRequests(w http.ResponseWriter, errMsg, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Retry-After", "60")
	w.WriteHeader(http.StatusTooManyRequests)
	_ = json.NewEncoder(w).Encode(model.ErrorResponse(message, errMsg))
}

// Middleware returns an HTTP middleware that enforces global and per-parameter rate limiting.
// If a limit is exceeded, it responds with a 429 status and a JSON error message.
func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := getIP(r, l.cfg.TrustForwardedFor)
		param := strings.ToLower(strings.TrimSpace(r.URL.Query().Get(l.cfg.ParamKey)))
		if param == "" {
			// If param is missing, treat as a single bucket
			param = "__none__"
		}
		if !l.getGlobalLimiter(ip).Allow() {
			writeTooManyRequests(w, "Rate limit exceeded: too many requests per user/IP", "Too Many Requests (global limit)")
			return
		}
		if !l.getParamLimiter(ip, param).Allow() {
			writeTooManyRequests(w, "Rate limit exceeded: too many requests for this "+l.cfg.ParamKey+" per user/IP", "Too Many Requests (per-param limit)")
			return
		}
		next.ServeHTTP(w, r)
	})
}
