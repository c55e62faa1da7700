package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fakhrymubarak/weather-dashboard/internal/model"
	redisv9 "github.com/redis/go-redis/v9"
)

// Custom error types
var (
	ErrLocationNotFound    = errors.New("location not found")
	ErrForecastUnavailable = errors.New("forecast unavailable")
	ErrAPIKeyMissing       = errors.New("API key missing")
	ErrExternalAPI         = errors.New("external API error")
	ErrMalformedResponse   = errors.New("malformed API response")
)

const DefaultBaseURL = "https://api.openweathermap.org/data/2.5"

// WeatherRepository defines the interface for weather data access
type WeatherRepository interface {
	GetWeather(ctx context.Context, city string) (*model.WeatherRecord, error)
	GetForecast(ctx context.Context, city string) ([]model.ForecastEntry, error)
}

// Cache is the subset of the Redis client the repository needs.
type Cache interface {
	Get(ctx context.Context, key string) *redisv9.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redisv9.StatusCmd
}

// Options configures a weather repository. A nil Cache disables caching.
type Options struct {
	APIKey     string
	BaseURL    string
	Country    string
	HTTPClient *http.Client
	Cache      Cache
	CacheTTL   time.Duration
}

// weatherRepository implements WeatherRepository
type weatherRepository struct {
	redisClient Cache
	httpClient  *http.Client
	apiKey      string
	baseURL     string
	country     string
	cacheTTL    time.Duration
}

// NewWeatherRepository creates a new weather repository instance
func NewWeatherRepository(opts Options) WeatherRepository {
	client := opts.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &weatherRepository{
		redisClient: opts.Cache,
		httpClient:  client,
		apiKey:      opts.APIKey,
		baseURL:     baseURL,
		country:     opts.Country,
		cacheTTL:    ttl,
	}
}

// GetWeather returns the current conditions for city, checking cache first.
// Temperatures are truncated toward zero.
func (r *weatherRepository) GetWeather(ctx context.Context, city string) (*model.WeatherRecord, error) {
	if strings.TrimSpace(city) == "" {
		return nil, ErrLocationNotFound
	}

	var cached model.WeatherRecord
	if r.getFromCache(ctx, weatherKey(city), &cached) {
		cached.Cached = true
		return &cached, nil
	}

	var data model.CurrentWeatherResponse
	status, err := r.fetch(ctx, "weather", city, &data)
	if err != nil {
		if status == http.StatusNotFound {
			return nil, ErrLocationNotFound
		}
		return nil, err
	}
	if data.Cod != http.StatusOK {
		return nil, fmt.Errorf("%w: cod %d", ErrLocationNotFound, data.Cod)
	}

	weather := &model.WeatherRecord{
		City:        data.Name,
		Temperature: int(data.Main.Temp),
		FeelsLike:   int(data.Main.FeelsLike),
		Sunrise:     data.Sys.Sunrise,
		Sunset:      data.Sys.Sunset,
	}
	if len(data.Weather) > 0 {
		weather.Description = data.Weather[0].Main
		weather.Icon = data.Weather[0].Icon
	}

	r.setCache(ctx, weatherKey(city), weather)
	return weather, nil
}

// GetForecast returns the 3-hour forecast steps for city in upstream order.
func (r *weatherRepository) GetForecast(ctx context.Context, city string) ([]model.ForecastEntry, error) {
	if strings.TrimSpace(city) == "" {
		return nil, ErrForecastUnavailable
	}

	var cached []model.ForecastEntry
	if r.getFromCache(ctx, forecastKey(city), &cached) {
		return cached, nil
	}

	var data model.ForecastResponse
	if _, err := r.fetch(ctx, "forecast", city, &data); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrForecastUnavailable, err)
	}
	if data.Cod != http.StatusOK {
		return nil, fmt.Errorf("%w: cod %d", ErrForecastUnavailable, data.Cod)
	}

	entries := make([]model.ForecastEntry, 0, len(data.List))
	for _, item := range data.List {
		e := model.ForecastEntry{
			Timestamp: item.Dt,
			Temp:      item.Main.Temp,
			TempMin:   item.Main.TempMin,
			TempMax:   item.Main.TempMax,
		}
		if len(item.Weather) > 0 {
			e.Description = item.Weather[0].Main
			e.Icon = item.Weather[0].Icon
		}
		entries = append(entries, e)
	}

	r.setCache(ctx, forecastKey(city), entries)
	return entries, nil
}

// fetch performs GET {baseURL}/{endpoint} for city and decodes the body into
// out. The HTTP status is returned alongside any error.
func (r *weatherRepository) fetch(ctx context.Context, endpoint, city string, out interface{}) (int, error) {
	if r.apiKey == "" {
		return 0, ErrAPIKeyMissing
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.endpointURL(endpoint, city), nil)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrExternalAPI, err)
	}
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrExternalAPI, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return resp.StatusCode, fmt.Errorf("%w: status %d", ErrExternalAPI, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return resp.StatusCode, nil
}

func (r *weatherRepository) endpointURL(endpoint, city string) string {
	q := city
	if r.country != "" {
		q = city + "," + r.country
	}
	params := url.Values{}
	params.Set("q", q)
	params.Set("units", "metric")
	params.Set("appid", r.apiKey)
	return r.baseURL + "/" + endpoint + "?" + params.Encode()
}

// getFromCache decodes the cached value for key into out. It reports false on
// a miss, a Redis error or a corrupt entry.
func (r *weatherRepository) getFromCache(ctx context.Context, key string, out interface{}) bool {
	if r.redisClient == nil {
		return false
	}
	val, err := r.redisClient.Get(ctx, key).Result()
	if err != nil {
		return false
	}
	return json.Unmarshal([]byte(val), out) == nil
}

func (r *weatherRepository) setCache(ctx context.Context, key string, value interface{}) {
	if r.redisClient == nil {
		return
	}
	if b, err := json.Marshal(value); err == nil {
		_ = r.redisClient.Set(ctx, key, b, r.cacheTTL).Err()
	}
}

func weatherKey(city string) string {
	return "weather:" + strings.ToLower(strings.TrimSpace(city))
}

func forecastKey(city string) string {
	return "forecast:" + strings.ToLower(strings.TrimSpace(city))
}
