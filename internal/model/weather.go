package model

// WeatherRecord is the current conditions for one city, normalized for display.
type WeatherRecord struct {
	City        string `json:"city"`
	Temperature int    `json:"temperature"`
	FeelsLike   int    `json:"feels_like"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Sunrise     int64  `json:"sunrise"`
	Sunset      int64  `json:"sunset"`
	Cached      bool   `json:"cached"`
}

// ForecastEntry is one 3-hour step of the upstream forecast.
type ForecastEntry struct {
	Timestamp   int64   `json:"dt"`
	Temp        float64 `json:"temp"`
	TempMin     float64 `json:"temp_min"`
	TempMax     float64 `json:"temp_max"`
	Description string  `json:"description"`
	Icon        string  `json:"icon"`
}

type HourlyForecast struct {
	Time        string `json:"time"`
	Temperature int    `json:"temp"`
	Icon        string `json:"icon"`
}

type DailyForecast struct {
	Day     string `json:"day"`
	Date    string `json:"date"`
	TempMin int    `json:"temp_min"`
	TempMax int    `json:"temp_max"`
	Icon    string `json:"icon"`
}

// Dashboard is the context handed to the page renderer.
type Dashboard struct {
	Weather         *WeatherRecord   `json:"weather"`
	BackgroundImage string           `json:"background_image"`
	City            string           `json:"city"`
	HourlyForecast  []HourlyForecast `json:"hourly_forecast"`
	WeeklyForecast  []DailyForecast  `json:"weekly_forecast"`
	TimeIcon        string           `json:"time_icon"`
}
