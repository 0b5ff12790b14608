package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/qcatchat/catchat/internal/core"
	"github.com/qcatchat/catchat/internal/logging"
)

const historicalCacheSize = 16

// VisualCrossing queries the Visual Crossing timeline API.
type VisualCrossing struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	historical *lru.Cache[string, *Historical]
}

// VisualCrossingConfig for the Visual Crossing client
type VisualCrossingConfig struct {
	APIKey  string
	BaseURL string // Timeline endpoint
	Timeout time.Duration
}

// NewVisualCrossing creates a new Visual Crossing client
func NewVisualCrossing(cfg VisualCrossingConfig) *VisualCrossing {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://weather.visualcrossing.com/VisualCrossingWebServices/rest/services/timeline"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.APIKey == "" {
		logging.Warn("Visual Crossing API key not configured")
	}

	cache, _ := lru.New[string, *Historical](historicalCacheSize)
	return &VisualCrossing{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		historical: cache,
	}
}

// IsConfigured checks if API key is set
func (c *VisualCrossing) IsConfigured() bool {
	return c.apiKey != ""
}

type timelineDay struct {
	Datetime   string   `json:"datetime"`
	Temp       *float64 `json:"temp"`
	TempMax    *float64 `json:"tempmax"`
	TempMin    *float64 `json:"tempmin"`
	FeelsLike  *float64 `json:"feelslike"`
	Humidity   *float64 `json:"humidity"`
	WindSpeed  *float64 `json:"windspeed"`
	WindDir    *float64 `json:"winddir"`
	Precip     *float64 `json:"precip"`
	PrecipProb *float64 `json:"precipprob"`
	Conditions string   `json:"conditions"`
	Icon       string   `json:"icon"`
}

func (d *timelineDay) describe() string {
	return Describe(d.Conditions, d.Temp, d.Humidity, d.WindSpeed)
}

type timelineResponse struct {
	ResolvedAddress   string        `json:"resolvedAddress"`
	Timezone          string        `json:"timezone"`
	CurrentConditions *timelineDay  `json:"currentConditions"`
	Days              []timelineDay `json:"days"`
}

func (r *timelineResponse) address(fallback string) string {
	if r.ResolvedAddress != "" {
		return r.ResolvedAddress
	}
	return fallback
}

// Current returns current conditions, falling back to the first day's
// aggregate when the API omits currentConditions.
func (c *VisualCrossing) Current(ctx context.Context, location string) (*Reading, error) {
	data, err := c.timeline(ctx, location, "today", "current")
	if err != nil {
		return nil, err
	}

	current := data.CurrentConditions
	if current == nil {
		if len(data.Days) == 0 {
			return nil, fmt.Errorf("%w: %s", core.ErrNoWeatherData, location)
		}
		logging.Warn("currentConditions missing for %s, using first day", location)
		current = &data.Days[0]
	}

	return &Reading{
		Location:      data.address(location),
		Temperature:   current.Temp,
		FeelsLike:     current.FeelsLike,
		Humidity:      current.Humidity,
		WindSpeed:     current.WindSpeed,
		WindDirection: current.WindDir,
		Conditions:    current.Conditions,
		Description:   current.describe(),
		Icon:          current.Icon,
		Timestamp:     current.Datetime,
		Timezone:      data.Timezone,
	}, nil
}

// Forecast returns up to days daily forecasts.
func (c *VisualCrossing) Forecast(ctx context.Context, location string, days int) (*Forecast, error) {
	if days <= 0 {
		days = 3
	}

	data, err := c.timeline(ctx, location, fmt.Sprintf("next%ddays", days), "days")
	if err != nil {
		return nil, err
	}
	if len(data.Days) == 0 {
		return nil, fmt.Errorf("%w: no forecast for %s", core.ErrNoWeatherData, location)
	}

	n := min(days, len(data.Days))
	forecast := &Forecast{
		Location:  data.address(location),
		Timezone:  data.Timezone,
		Forecasts: make([]DayForecast, 0, n),
	}
	for _, day := range data.Days[:n] {
		forecast.Forecasts = append(forecast.Forecasts, DayForecast{
			Date:                     day.Datetime,
			TempMax:                  day.TempMax,
			TempMin:                  day.TempMin,
			Conditions:               day.Conditions,
			Description:              day.describe(),
			Icon:                     day.Icon,
			PrecipitationProbability: day.PrecipProb,
		})
	}
	return forecast, nil
}

// Historical returns observed weather for date (YYYY-MM-DD). Successful
// lookups are memoized in a small LRU keyed by location and date.
func (c *VisualCrossing) Historical(ctx context.Context, location, date string) (*Historical, error) {
	key := location + "|" + date
	if h, ok := c.historical.Get(key); ok {
		return h, nil
	}

	data, err := c.timeline(ctx, location, date, "days")
	if err != nil {
		return nil, err
	}
	if len(data.Days) == 0 {
		return nil, fmt.Errorf("%w: no history for %s on %s", core.ErrNoWeatherData, location, date)
	}

	day := data.Days[0]
	h := &Historical{
		Location:      data.address(location),
		Date:          day.Datetime,
		TempMax:       day.TempMax,
		TempMin:       day.TempMin,
		TempAvg:       day.Temp,
		Humidity:      day.Humidity,
		Conditions:    day.Conditions,
		Description:   day.describe(),
		Precipitation: day.Precip,
		WindSpeed:     day.WindSpeed,
	}
	c.historical.Add(key, h)
	return h, nil
}

func (c *VisualCrossing) timeline(ctx context.Context, location, period, include string) (*timelineResponse, error) {
	params := url.Values{}
	params.Set("unitGroup", "metric")
	params.Set("include", include)
	params.Set("key", c.apiKey)
	params.Set("contentType", "json")

	endpoint := fmt.Sprintf("%s/%s/%s?%s", c.baseURL, url.PathEscape(location), period, params.Encode())
	logging.Debug("fetching %s weather for %s (%s)", include, location, period)

	httpReq, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		// the API answers unknown places with 400 and a plain-text reason
		if resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s: %s", core.ErrNoWeatherData, location, strings.TrimSpace(string(body)))
		}
		return nil, fmt.Errorf("weather API error %d: %s", resp.StatusCode, string(body))
	}

	var data timelineResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &data, nil
}
