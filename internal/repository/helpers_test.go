package repository

import (
	"io"
	"net/http"
	"strings"
)

// RoundTripperFunc allows us to easily mock http.Client responses in tests.
type RoundTripperFunc func(*http.Request) (*http.Response, error)

func (f RoundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func newMockHTTPClient(fn func(req *http.Request) (*http.Response, error)) *http.Client {
	return &http.Client{Transport: RoundTripperFunc(fn)}
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}

const sahiwalWeather = `{
	"cod": 200,
	"name": "Sahiwal",
	"main": {"temp": 31.87, "feels_like": -2.6, "temp_min": 30.1, "temp_max": 33.4, "humidity": 40},
	"weather": [{"id": 803, "main": "Clouds", "description": "broken clouds", "icon": "04d"}],
	"sys": {"country": "PK", "sunrise": 1705283460, "sunset": 1705321980}
}`

const sahiwalForecast = `{
	"cod": "200",
	"message": 0,
	"cnt": 3,
	"list": [
		{"dt": 1705276800, "main": {"temp": 12.4, "temp_min": 11.2, "temp_max": 13.9}, "weather": [{"main": "Clear", "icon": "01n"}]},
		{"dt": 1705287600, "main": {"temp": 15.6, "temp_min": 14.0, "temp_max": 16.1}, "weather": [{"main": "Clouds", "icon": "02d"}]},
		{"dt": 1705298400, "main": {"temp": 19.0, "temp_min": 18.5, "temp_max": 19.5}, "weather": []}
	],
	"city": {"name": "Sahiwal", "timezone": 18000}
}`
