// Package forecast reshapes upstream forecast steps into the hourly strip and
// the weekly summary shown on the dashboard.
package forecast

import (
	"math"
	"time"

	"github.com/fakhrymubarak/weather-dashboard/internal/model"
)

const (
	// HourlySteps is 24h of 3-hour forecast steps.
	HourlySteps = 8
	// MaxDays caps the weekly summary.
	MaxDays = 7
)

// Hourly returns the first HourlySteps entries formatted for display in loc.
func Hourly(entries []model.ForecastEntry, loc *time.Location) []model.HourlyForecast {
	loc = orLocal(loc)
	n := min(len(entries), HourlySteps)
	out := make([]model.HourlyForecast, 0, n)
	for _, e := range entries[:n] {
		out = append(out, model.HourlyForecast{
			Time:        time.Unix(e.Timestamp, 0).In(loc).Format("15:04"),
			Temperature: int(math.Round(e.Temp)),
			Icon:        e.Icon,
		})
	}
	return out
}

type dayAggregate struct {
	day     time.Time
	tempMin float64
	tempMax float64
	icon    string
}

// Daily groups entries by calendar date in loc, keeping first-seen order, and
// returns at most MaxDays days. The icon of a day is the icon of its first
// entry.
func Daily(entries []model.ForecastEntry, loc *time.Location) []model.DailyForecast {
	loc = orLocal(loc)
	var days []*dayAggregate
	index := make(map[string]*dayAggregate)

	for _, e := range entries {
		t := time.Unix(e.Timestamp, 0).In(loc)
		key := t.Format(time.DateOnly)
		agg, ok := index[key]
		if !ok {
			if len(days) == MaxDays {
				continue
			}
			agg = &dayAggregate{day: t, tempMin: e.TempMin, tempMax: e.TempMax, icon: e.Icon}
			index[key] = agg
			days = append(days, agg)
			continue
		}
		agg.tempMin = math.Min(agg.tempMin, e.TempMin)
		agg.tempMax = math.Max(agg.tempMax, e.TempMax)
	}

	out := make([]model.DailyForecast, 0, len(days))
	for _, d := range days {
		out = append(out, model.DailyForecast{
			Day:     d.day.Weekday().String(),
			Date:    d.day.Format(time.DateOnly),
			TempMin: int(d.tempMin),
			TempMax: int(d.tempMax),
			Icon:    d.icon,
		})
	}
	return out
}

func orLocal(loc *time.Location) *time.Location {
	if loc == nil {
		return time.Local
	}
	return loc
}
