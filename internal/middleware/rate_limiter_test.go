package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
})

func doRequest(h http.Handler, remoteAddr, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.RemoteAddr = remoteAddr
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	return resp
}

func TestNewRateLimiter_Defaults(t *testing.T) {
	l := NewRateLimiter(RateLimiterConfig{})

	assert.Equal(t, RateLimiterConfig{
		ParamKey:        "city",
		GlobalPerMinute: 10,
		GlobalBurst:     10,
		ParamPerMinute:  2,
		ParamBurst:      2,
		IdleTimeout:     3 * time.Minute,
		CleanupInterval: time.Minute,
	}, l.cfg)
	assert.False(t, l.cfg.TrustForwardedFor)
}

func TestRateLimitMiddleware_GlobalBurst(t *testing.T) {
	l := NewRateLimiter(RateLimiterConfig{GlobalBurst: 3, ParamBurst: 10})
	mw := l.Middleware(okHandler)
	ip := "1.2.3.4:1234"

	for i := 0; i < 3; i++ {
		w := doRequest(mw, ip, fmt.Sprintf("/?city=city%d", i))
		require.Equal(t, http.StatusOK, w.Code, "request %d", i+1)
	}

	w := doRequest(mw, ip, "/?city=another")
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
	resp := decodeError(t, w)
	assert.Contains(t, resp["error"], "Rate limit exceeded")
	assert.Equal(t, "Too Many Requests (global limit)", resp["message"])

	// Other clients are unaffected.
	assert.Equal(t, http.StatusOK, doRequest(mw, "5.6.7.8:999", "/?city=city0").Code)
}

func TestRateLimitMiddleware_PerParamBurst(t *testing.T) {
	l := NewRateLimiter(RateLimiterConfig{})
	mw := l.Middleware(okHandler)
	ip := "2.3.4.5:2345"

	// City values share a bucket regardless of case.
	assert.Equal(t, http.StatusOK, doRequest(mw, ip, "/?city=Lahore").Code)
	assert.Equal(t, http.StatusOK, doRequest(mw, ip, "/?city=lahore").Code)

	w := doRequest(mw, ip, "/?city=LAHORE")
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "Too Many Requests (per-param limit)", decodeError(t, w)["message"])

	assert.Equal(t, http.StatusOK, doRequest(mw, ip, "/?city=Multan").Code)
}

func TestRateLimitMiddleware_MissingParamSharesBucket(t *testing.T) {
	l := NewRateLimiter(RateLimiterConfig{})
	mw := l.Middleware(okHandler)
	ip := "3.4.5.6:1"

	assert.Equal(t, http.StatusOK, doRequest(mw, ip, "/").Code)
	assert.Equal(t, http.StatusOK, doRequest(mw, ip, "/?city=").Code)
	assert.Equal(t, http.StatusTooManyRequests, doRequest(mw, ip, "/").Code)
}

func TestRateLimitMiddleware_ForwardedFor(t *testing.T) {
	l := NewRateLimiter(RateLimiterConfig{GlobalBurst: 1, ParamBurst: 5, TrustForwardedFor: true})
	mw := l.Middleware(okHandler)

	for _, xff := range []string{"10.0.0.1", "10.0.0.2, 192.168.1.1"} {
		req := httptest.NewRequest(http.MethodGet, "/?city=Sahiwal", nil)
		req.Header.Set("X-Forwarded-For", xff)
		w := httptest.NewRecorder()
		mw.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code, xff)
	}

	global, _ := l.visitorCount()
	assert.Equal(t, 2, global)
}

func TestRateLimitMiddleware_SpoofedForwardedForIgnoredByDefault(t *testing.T) {
	l := NewRateLimiter(RateLimiterConfig{GlobalBurst: 1, ParamBurst: 5})
	mw := l.Middleware(okHandler)

	codes := make([]int, 0, 2)
	for _, xff := range []string{"10.0.0.1", "10.0.0.2"} {
		req := httptest.NewRequest(http.MethodGet, "/?city=Sahiwal", nil)
		req.RemoteAddr = "6.6.6.6:1234"
		req.Header.Set("X-Forwarded-For", xff)
		w := httptest.NewRecorder()
		mw.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests}, codes)
	global, _ := l.visitorCount()
	assert.Equal(t, 1, global)
}

func TestGetIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "9.9.9.9:4321"
	assert.Equal(t, "9.9.9.9", getIP(req, false))

	req.RemoteAddr = "not-a-hostport"
	assert.Equal(t, "not-a-hostport", getIP(req, false))

	req.RemoteAddr = "9.9.9.9:4321"
	req.Header.Set("X-Forwarded-For", " 8.8.8.8 , 7.7.7.7")
	assert.Equal(t, "9.9.9.9", getIP(req, false))
	assert.Equal(t, "8.8.8.8", getIP(req, true))
}

func TestRateLimiter_Cleanup(t *testing.T) {
	clock := &testClock{t: time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)}
	l := NewRateLimiter(RateLimiterConfig{IdleTimeout: 3 * time.Minute})
	l.now = clock.Now
	mw := l.Middleware(okHandler)

	doRequest(mw, "1.1.1.1:1", "/?city=Sahiwal")
	clock.Advance(2 * time.Minute)
	doRequest(mw, "2.2.2.2:1", "/?city=Sahiwal")
	clock.Advance(2 * time.Minute)

	l.Cleanup()

	global, param := l.visitorCount()
	assert.Equal(t, 1, global)
	assert.Equal(t, 1, param)
	_, kept := l.globalVisitors["2.2.2.2"]
	assert.True(t, kept)
}

func TestRateLimiter_StartCleanup(t *testing.T) {
	clock := &testClock{t: time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)}
	l := NewRateLimiter(RateLimiterConfig{IdleTimeout: time.Minute, CleanupInterval: 5 * time.Millisecond})
	l.now = clock.Now

	doRequest(l.Middleware(okHandler), "1.1.1.1:1", "/")
	clock.Advance(2 * time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	l.StartCleanup(ctx)

	assert.Eventually(t, func() bool {
		global, param := l.visitorCount()
		return global == 0 && param == 0
	}, time.Second, 5*time.Millisecond)
}

func TestRateLimiter_Reset(t *testing.T) {
	l := NewRateLimiter(RateLimiterConfig{GlobalBurst: 1})
	mw := l.Middleware(okHandler)
	ip := "4.4.4.4:1"

	assert.Equal(t, http.StatusOK, doRequest(mw, ip, "/").Code)
	assert.Equal(t, http.StatusTooManyRequests, doRequest(mw, ip, "/").Code)

	l.Reset()

	assert.Equal(t, http.StatusOK, doRequest(mw, ip, "/").Code)
}
