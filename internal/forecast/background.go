package forecast

import "strings"

// DefaultBackground is used when no current weather is available.
const DefaultBackground = "default.jpg"

const (
	sunIcon  = "☀️"
	moonIcon = "🌙"
)

// TimeOfDay buckets an hour (0-23) into night, morning or evening.
func TimeOfDay(hour int) string {
	switch {
	case hour < 6:
		return "night"
	case hour < 12:
		return "morning"
	case hour < 18:
		return "evening"
	default:
		return "night"
	}
}

// WeatherKind buckets an upstream condition label. Order matters: "Rain"
// beats "Thunderstorm".
func WeatherKind(description string) string {
	switch {
	case strings.Contains(description, "Rain"), strings.Contains(description, "Drizzle"):
		return "rainy"
	case strings.Contains(description, "Thunderstorm"):
		return "storm"
	case strings.Contains(description, "Cloud"),
		strings.Contains(description, "Haze"),
		strings.Contains(description, "Smoke"):
		return "cloudy"
	default:
		return "clear"
	}
}

// Background returns the page background asset for the hour and condition.
func Background(hour int, description string) string {
	return TimeOfDay(hour) + "_" + WeatherKind(description) + ".jpg"
}

// TimeIcon returns a moon between 18:00 and 06:00 and a sun otherwise.
func TimeIcon(hour int) string {
	if hour >= 18 || hour < 6 {
		return moonIcon
	}
	return sunIcon
}
