package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fakhrymubarak/weather-dashboard/internal/config"
	"github.com/fakhrymubarak/weather-dashboard/internal/handler"
	"github.com/fakhrymubarak/weather-dashboard/internal/middleware"
	"github.com/fakhrymubarak/weather-dashboard/internal/redis"
	"github.com/fakhrymubarak/weather-dashboard/internal/repository"
	"github.com/fakhrymubarak/weather-dashboard/internal/service"
)

const staticDir = "static"

// newRouter mounts the dashboard routes. Only the JSON API is rate limited;
// the page must always render, so a browser refresh never gets a 429.
func newRouter(h *handler.DashboardHandler, limiter *middleware.RateLimiter, static string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", h.HandleHome)
	mux.Handle("/api/weather", limiter.Middleware(http.HandlerFunc(h.HandleDashboardAPI)))
	mux.HandleFunc("/health", h.HandleHealth)
	if static != "" {
		mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir(static))))
	}
	return mux
}

func newDashboardHandler() *handler.DashboardHandler {
	logger := config.GetLogger()
	loc := config.GetDisplayLocation()

	apiKey := config.GetOpenWeatherMapAPIKey()
	if apiKey == "" {
		logger.Warnw("OPENWEATHERMAP_API_KEY is not set, every lookup will report no data")
	}

	opts := repository.Options{
		APIKey:     apiKey,
		BaseURL:    config.GetOpenWeatherApiUrl(),
		Country:    config.GetCountryCode(),
		HTTPClient: &http.Client{Timeout: config.GetUpstreamTimeout()},
		CacheTTL:   config.GetCacheTTL(),
	}
	if config.GetCacheEnabled() {
		opts.Cache = redis.GetClient()
		logger.Infow("Redis cache enabled", "addr", config.GetRedisAddr(), "ttl", opts.CacheTTL)
	}

	svc := service.NewDashboardService(
		repository.NewWeatherRepository(opts),
		service.WithDefaultCity(config.GetDefaultCity()),
		service.WithLocation(loc),
		service.WithLogger(logger),
	)

	h := handler.NewDashboardHandler(svc, loc, logger)
	if config.GetCacheEnabled() {
		h.HealthCheck = redis.Ping
	}
	return h
}

func newRateLimiter() *middleware.RateLimiter {
	globalRate, globalBurst := config.GetGlobalRateLimiterConfig()
	paramRate, paramBurst := config.GetParamRateLimiterConfig()
	return middleware.NewRateLimiter(middleware.RateLimiterConfig{
		ParamKey:          middleware.DefaultParamKey,
		GlobalPerMinute:   globalRate,
		GlobalBurst:       globalBurst,
		ParamPerMinute:    paramRate,
		ParamBurst:        paramBurst,
		IdleTimeout:       config.GetRateLimiterCleanupTimeout(),
		TrustForwardedFor: config.GetRateLimiterTrustForwardedFor(),
	})
}

func main() {
	logger := config.GetLogger()
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	limiter := newRateLimiter()
	limiter.StartCleanup(ctx)

	port := config.GetServerPort()
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           newRouter(newDashboardHandler(), limiter, staticDir),
		ReadHeaderTimeout: config.GetServerTimeoutDuration("read_header_timeout", 15*time.Second),
		ReadTimeout:       config.GetServerTimeoutDuration("read_timeout", 15*time.Second),
		WriteTimeout:      config.GetServerTimeoutDuration("write_timeout", 10*time.Second),
		IdleTimeout:       config.GetServerTimeoutDuration("idle_timeout", 30*time.Second),
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Infow("Weather dashboard running", "port", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		logger.Fatalw("Server failed", "error", err)
	case <-ctx.Done():
	}

	logger.Infow("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorw("Graceful shutdown failed", "error", err)
	}
}
