package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/qcatchat/catchat/internal/logging"
	"github.com/qcatchat/catchat/internal/weather"
)

func (s *Server) weatherReady(w http.ResponseWriter) bool {
	if s.weather == nil {
		s.respondError(w, http.StatusServiceUnavailable, "weather service is not configured")
		return false
	}
	return true
}

func (s *Server) handleCurrentWeather(w http.ResponseWriter, r *http.Request) {
	if !s.weatherReady(w) {
		return
	}
	location := chi.URLParam(r, "location")

	reading, err := s.weather.Current(r.Context(), location)
	if err != nil {
		s.respondWeatherErr(w, err, fmt.Sprintf("Weather data not found for %s", location))
		return
	}
	s.respondJSON(w, http.StatusOK, reading.US())
}

func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	if !s.weatherReady(w) {
		return
	}
	location := chi.URLParam(r, "location")

	days, err := parseDays(r.URL.Query().Get("days"), weather.DefaultForecastDays)
	if err == nil {
		err = weather.ValidateDays(days)
	}
	if err != nil {
		s.respondErr(w, err)
		return
	}

	forecast, err := s.weather.Forecast(r.Context(), location, days)
	if err != nil {
		s.respondWeatherErr(w, err, fmt.Sprintf("Forecast data not found for %s", location))
		return
	}
	s.respondJSON(w, http.StatusOK, forecast)
}

func (s *Server) handleHistorical(w http.ResponseWriter, r *http.Request) {
	if !s.weatherReady(w) {
		return
	}
	location := chi.URLParam(r, "location")
	date := chi.URLParam(r, "date")

	if err := weather.ValidateDate(date); err != nil {
		s.respondErr(w, err)
		return
	}

	hist, err := s.weather.Historical(r.Context(), location, date)
	if err != nil {
		s.respondWeatherErr(w, err, fmt.Sprintf("Historical weather data not found for %s on %s", location, date))
		return
	}
	s.respondJSON(w, http.StatusOK, hist)
}

// SearchResponse is the payload of GET /api/weather/search.
type SearchResponse struct {
	Query  string      `json:"query"`
	Type   string      `json:"type"`
	Result interface{} `json:"result"`
}

func (s *Server) handleWeatherSearch(w http.ResponseWriter, r *http.Request) {
	if !s.weatherReady(w) {
		return
	}
	query := r.URL.Query().Get("query")
	search, err := weather.ParseSearch(query, r.URL.Query().Get("type"), s.now())
	if err != nil {
		s.respondErr(w, err)
		return
	}

	var result interface{}
	switch search.Type {
	case weather.SearchForecast:
		result, err = s.weather.Forecast(r.Context(), search.Location, weather.DefaultForecastDays)
	case weather.SearchHistorical:
		result, err = s.weather.Historical(r.Context(), search.Location, search.Date)
	default:
		var reading *weather.Reading
		reading, err = s.weather.Current(r.Context(), search.Location)
		if err == nil {
			result = reading.US()
		}
	}
	if err != nil {
		s.respondWeatherErr(w, err, fmt.Sprintf("Weather data not found for query: %s", query))
		return
	}

	s.respondJSON(w, http.StatusOK, SearchResponse{Query: query, Type: search.Type, Result: result})
}

// respondWeatherErr answers 404 with notFound when the provider has no data
// for the location.
func (s *Server) respondWeatherErr(w http.ResponseWriter, err error, notFound string) {
	if statusFor(err) == http.StatusNotFound {
		logging.Warn("%s: %v", notFound, err)
		s.respondError(w, http.StatusNotFound, notFound)
		return
	}
	s.respondErr(w, err)
}
