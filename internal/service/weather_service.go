package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/fakhrymubarak/weather-dashboard/internal/forecast"
	"github.com/fakhrymubarak/weather-dashboard/internal/model"
	"github.com/fakhrymubarak/weather-dashboard/internal/repository"
	"go.uber.org/zap"
)

const DefaultCity = "Sahiwal"

// DashboardServiceInterface builds the render context for one request.
type DashboardServiceInterface interface {
	BuildDashboard(ctx context.Context, city string) *model.Dashboard
}

type DashboardService struct {
	WeatherRepo repository.WeatherRepository
	DefaultCity string
	Location    *time.Location
	Logger      *zap.SugaredLogger
	Now         func() time.Time
}

type Option func(*DashboardService)

func WithDefaultCity(city string) Option {
	return func(s *DashboardService) {
		if city != "" {
			s.DefaultCity = city
		}
	}
}

// WithLocation sets the zone used for the background hour and forecast labels.
func WithLocation(loc *time.Location) Option {
	return func(s *DashboardService) {
		if loc != nil {
			s.Location = loc
		}
	}
}

func WithLogger(l *zap.SugaredLogger) Option {
	return func(s *DashboardService) {
		if l != nil {
			s.Logger = l
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *DashboardService) {
		if now != nil {
			s.Now = now
		}
	}
}

func NewDashboardService(repo repository.WeatherRepository, opts ...Option) *DashboardService {
	s := &DashboardService{
		WeatherRepo: repo,
		DefaultCity: DefaultCity,
		Location:    time.Local,
		Logger:      zap.NewNop().Sugar(),
		Now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BuildDashboard looks up current weather and, when found, the forecast for
// city. A blank city means the default city. Upstream failures never surface
// as errors: a failed weather lookup yields the default background and echoes
// the requested city, and a failed forecast lookup leaves both slices empty.
func (s *DashboardService) BuildDashboard(ctx context.Context, city string) *model.Dashboard {
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.TrimSpace(city) == "" {
		city = s.DefaultCity
	}

	now := s.Now().In(s.Location)
	dash := &model.Dashboard{
		BackgroundImage: forecast.DefaultBackground,
		City:            city,
		HourlyForecast:  []model.HourlyForecast{},
		WeeklyForecast:  []model.DailyForecast{},
		TimeIcon:        forecast.TimeIcon(now.Hour()),
	}

	weather, err := s.WeatherRepo.GetWeather(ctx, city)
	if err != nil || weather == nil {
		s.logLookupFailure("weather", city, err)
		return dash
	}

	dash.Weather = weather
	dash.BackgroundImage = forecast.Background(now.Hour(), weather.Description)
	dash.City = weather.City

	entries, err := s.WeatherRepo.GetForecast(ctx, city)
	if err != nil {
		s.logLookupFailure("forecast", city, err)
		return dash
	}
	dash.HourlyForecast = forecast.Hourly(entries, s.Location)
	dash.WeeklyForecast = forecast.Daily(entries, s.Location)
	return dash
}

func (s *DashboardService) logLookupFailure(kind, city string, err error) {
	switch {
	case err == nil:
		s.Logger.Warnw("Empty lookup result", "kind", kind, "city", city)
	case errors.Is(err, repository.ErrLocationNotFound), errors.Is(err, repository.ErrForecastUnavailable) && !errors.Is(err, repository.ErrExternalAPI):
		s.Logger.Infow("City not recognized upstream", "kind", kind, "city", city, "error", err)
	default:
		s.Logger.Errorw("Upstream lookup failed", "kind", kind, "city", city, "error", err)
	}
}
