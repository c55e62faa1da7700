package model

import (
	"encoding/json"
	"strconv"
	"strings"
)

// StatusCode is the "cod" field of an OpenWeatherMap payload. The API sends
// it as a number on the weather endpoint and as a string on forecast and
// error payloads.
type StatusCode int

func (c *StatusCode) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*c = 0
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	*c = StatusCode(n)
	return nil
}

func (c StatusCode) MarshalJSON() ([]byte, error) {
	return json.Marshal(int(c))
}

type Condition struct {
	ID          int    `json:"id"`
	Main        string `json:"main"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

type MainReadings struct {
	Temp      float64 `json:"temp"`
	FeelsLike float64 `json:"feels_like"`
	TempMin   float64 `json:"temp_min"`
	TempMax   float64 `json:"temp_max"`
	Pressure  int     `json:"pressure"`
	Humidity  int     `json:"humidity"`
	SeaLevel  int     `json:"sea_level"`
	GrndLevel int     `json:"grnd_level"`
}

// CurrentWeatherResponse is the body of GET /data/2.5/weather.
type CurrentWeatherResponse struct {
	Cod     StatusCode   `json:"cod"`
	Message string       `json:"message,omitempty"`
	Name    string       `json:"name"`
	Main    MainReadings `json:"main"`
	Weather []Condition  `json:"weather"`
	Sys     struct {
		Country string `json:"country"`
		Sunrise int64  `json:"sunrise"`
		Sunset  int64  `json:"sunset"`
	} `json:"sys"`
}

// ForecastResponse is the body of GET /data/2.5/forecast (5 day / 3 hour).
type ForecastResponse struct {
	Cod     StatusCode `json:"cod"`
	Message any        `json:"message,omitempty"`
	Count   int        `json:"cnt"`
	List    []struct {
		Dt      int64        `json:"dt"`
		Main    MainReadings `json:"main"`
		Weather []Condition  `json:"weather"`
	} `json:"list"`
	City struct {
		Name     string `json:"name"`
		Timezone int    `json:"timezone"`
	} `json:"city"`
}
