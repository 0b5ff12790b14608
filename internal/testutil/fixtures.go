package testutil

import (
	"time"

	"github.com/qcatchat/catchat/internal/weather"
)

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}

// ReadingFixture returns a mild current reading for location.
func ReadingFixture(location string) weather.Reading {
	return weather.Reading{
		Location:      location,
		Temperature:   Float(20),
		FeelsLike:     Float(19.5),
		Humidity:      Float(55),
		WindSpeed:     Float(10),
		WindDirection: Float(270),
		Conditions:    "Partially cloudy",
		Description:   "Partially cloudy, temperature 20°C, humidity 55%, wind speed 10 km/h",
		Icon:          "partly-cloudy-day",
		Timestamp:     "14:00:00",
		Timezone:      "America/New_York",
	}
}

// ForecastFixture returns a forecast of days entries starting today.
func ForecastFixture(location string, days int) weather.Forecast {
	f := weather.Forecast{Location: location, Timezone: "America/New_York"}
	start := time.Now().UTC()
	for i := 0; i < days; i++ {
		f.Forecasts = append(f.Forecasts, weather.DayForecast{
			Date:       start.AddDate(0, 0, i).Format(weather.DateLayout),
			TempMax:    Float(22),
			TempMin:    Float(12),
			Conditions: "Clear",
		})
	}
	return f
}
