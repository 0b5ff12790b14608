package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/qcatchat/catchat/internal/core"
)

// ServiceClient talks to another Catchat instance's weather endpoints, for
// deployments that keep the provider key on a single host.
type ServiceClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewServiceClient creates a client for a weather API rooted at baseURL,
// e.g. http://weather.internal:8001/api/weather.
func NewServiceClient(baseURL string, timeout time.Duration) *ServiceClient {
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	return &ServiceClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Current fetches current conditions.
func (c *ServiceClient) Current(ctx context.Context, location string) (*Reading, error) {
	var r Reading
	if err := c.get(ctx, "/current/"+url.PathEscape(location), nil, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// Forecast fetches a daily forecast.
func (c *ServiceClient) Forecast(ctx context.Context, location string, days int) (*Forecast, error) {
	q := url.Values{}
	q.Set("days", strconv.Itoa(days))

	var f Forecast
	if err := c.get(ctx, "/forecast/"+url.PathEscape(location), q, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// Historical fetches observed weather for a date.
func (c *ServiceClient) Historical(ctx context.Context, location, date string) (*Historical, error) {
	var h Historical
	if err := c.get(ctx, "/historical/"+url.PathEscape(location)+"/"+url.PathEscape(date), nil, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

func (c *ServiceClient) get(ctx context.Context, path string, q url.Values, out any) error {
	endpoint := c.baseURL + path
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}

	httpReq, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("weather service request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("%w: %s", core.ErrNoWeatherData, path)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("weather service error %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
