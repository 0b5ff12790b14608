// Package weather detects weather questions, resolves where the user is,
// and fetches readings from a weather provider.
package weather

import (
	"context"
	"fmt"
	"math"
	"strings"
)

// Provider fetches weather data. Implementations return core.ErrNoWeatherData
// when the upstream has nothing for the location.
type Provider interface {
	Current(ctx context.Context, location string) (*Reading, error)
	Forecast(ctx context.Context, location string, days int) (*Forecast, error)
	Historical(ctx context.Context, location, date string) (*Historical, error)
}

// Reading is a current-conditions observation in metric units.
type Reading struct {
	Location      string   `json:"location"`
	Temperature   *float64 `json:"temperature"`
	FeelsLike     *float64 `json:"feels_like"`
	Humidity      *float64 `json:"humidity"`
	WindSpeed     *float64 `json:"wind_speed"`
	WindDirection *float64 `json:"wind_direction"`
	Conditions    string   `json:"conditions"`
	Description   string   `json:"description"`
	Icon          string   `json:"icon"`
	Timestamp     string   `json:"timestamp"`
	Timezone      string   `json:"timezone"`
}

// USView is a Reading with imperial conversions. It is derived per response
// and never stored.
type USView struct {
	Reading
	TemperatureF *float64 `json:"temperature_f,omitempty"`
	FeelsLikeF   *float64 `json:"feels_like_f,omitempty"`
	WindSpeedMPH *float64 `json:"wind_speed_mph,omitempty"`
}

// US returns the reading with Fahrenheit and mph values, each rounded to one
// decimal place.
func (r *Reading) US() USView {
	view := USView{Reading: *r}
	if r.Temperature != nil {
		view.TemperatureF = round1(CelsiusToFahrenheit(*r.Temperature))
	}
	if r.FeelsLike != nil {
		view.FeelsLikeF = round1(CelsiusToFahrenheit(*r.FeelsLike))
	}
	if r.WindSpeed != nil {
		view.WindSpeedMPH = round1(KmhToMph(*r.WindSpeed))
	}
	return view
}

// CelsiusToFahrenheit converts a temperature.
func CelsiusToFahrenheit(c float64) float64 {
	return c*9/5 + 32
}

// KmhToMph converts a speed.
func KmhToMph(kmh float64) float64 {
	return kmh * 0.621371
}

func round1(v float64) *float64 {
	r := math.Round(v*10) / 10
	return &r
}

// DayForecast is one day of a forecast.
type DayForecast struct {
	Date                     string   `json:"date"`
	TempMax                  *float64 `json:"temp_max"`
	TempMin                  *float64 `json:"temp_min"`
	Conditions               string   `json:"conditions"`
	Description              string   `json:"description"`
	Icon                     string   `json:"icon"`
	PrecipitationProbability *float64 `json:"precipitation_probability"`
}

// Forecast is a multi-day forecast for one location.
type Forecast struct {
	Location  string        `json:"location"`
	Forecasts []DayForecast `json:"forecasts"`
	Timezone  string        `json:"timezone"`
}

// Historical is the observed weather for a past date.
type Historical struct {
	Location      string   `json:"location"`
	Date          string   `json:"date"`
	TempMax       *float64 `json:"temp_max"`
	TempMin       *float64 `json:"temp_min"`
	TempAvg       *float64 `json:"temp_avg"`
	Humidity      *float64 `json:"humidity"`
	Conditions    string   `json:"conditions"`
	Description   string   `json:"description"`
	Precipitation *float64 `json:"precipitation"`
	WindSpeed     *float64 `json:"wind_speed"`
}

// Describe renders the human-readable summary used in every payload, e.g.
// "Partially cloudy, temperature 21.3°C, humidity 40%, wind speed 12 km/h".
func Describe(conditions string, temp, humidity, windSpeed *float64) string {
	if conditions == "" {
		conditions = "No conditions available"
	}

	var b strings.Builder
	b.WriteString(conditions)
	if temp != nil {
		fmt.Fprintf(&b, ", temperature %s°C", formatNumber(*temp))
	}
	if humidity != nil {
		fmt.Fprintf(&b, ", humidity %s%%", formatNumber(*humidity))
	}
	if windSpeed != nil {
		fmt.Fprintf(&b, ", wind speed %s km/h", formatNumber(*windSpeed))
	}
	return b.String()
}

func formatNumber(v float64) string {
	return fmt.Sprintf("%g", v)
}
