package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/weatheriq/internal/metrics"
	"github.com/i474232898/weatheriq/internal/weather"
)

// DefaultOpenWeatherURL is the OpenWeatherMap 2.5 API root.
const DefaultOpenWeatherURL = "https://api.openweathermap.org/data/2.5"

// Endpoint names, also used as FetchError.Source and metric labels.
const (
	EndpointGroup      = "group"
	EndpointCurrent    = "weather"
	EndpointAirQuality = "air_pollution"
)

// OpenWeatherProvider implements weather.Provider for OpenWeatherMap.
type OpenWeatherProvider struct {
	name    string
	apiKey  string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
	metrics *metrics.Manager
}

// Option configures an OpenWeatherProvider.
type Option func(*OpenWeatherProvider)

// WithBaseURL overrides the API root, e.g. for a proxy or a test server.
func WithBaseURL(u string) Option {
	return func(p *OpenWeatherProvider) {
		if u != "" {
			p.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithMaxRetries enables retrying 429/5xx/transport failures.
func WithMaxRetries(n int) Option {
	return func(p *OpenWeatherProvider) {
		if n >= 0 {
			p.httpCfg.Backoff.MaxRetries = n
		}
	}
}

// WithMetrics records every outbound request.
func WithMetrics(m *metrics.Manager) Option {
	return func(p *OpenWeatherProvider) { p.metrics = m }
}

func NewOpenWeatherProvider(client *http.Client, apiKey string, opts ...Option) *OpenWeatherProvider {
	p := &OpenWeatherProvider{
		name:    "openweathermap",
		apiKey:  apiKey,
		baseURL: DefaultOpenWeatherURL,
		httpCfg: HTTPClientConfig{
			Client: client,
			Backoff: BackoffConfig{
				MaxRetries:      0,
				InitialInterval: 500 * time.Millisecond,
				MaxInterval:     5 * time.Second,
			},
		},
		circuit: newBreaker("openweather"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *OpenWeatherProvider) Name() string {
	return p.name
}

// FetchGroup calls the group endpoint for all ids in a single request.
func (p *OpenWeatherProvider) FetchGroup(ctx context.Context, ids []int64) ([]weather.RawObservation, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}

	values := url.Values{}
	values.Set("id", strings.Join(parts, ","))
	values.Set("units", "metric")

	body, err := p.get(ctx, EndpointGroup, values)
	if err != nil {
		return nil, err
	}

	var payload struct {
		List []weather.RawObservation `json:"list"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, p.fail(EndpointGroup, 0, fmt.Errorf("decode response: %w", err))
	}
	return payload.List, nil
}

// FetchCurrent calls the current-weather endpoint by city name.
func (p *OpenWeatherProvider) FetchCurrent(ctx context.Context, city string) (weather.RawObservation, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return weather.RawObservation{}, p.fail(EndpointCurrent, 0, errors.New("empty city name"))
	}

	values := url.Values{}
	values.Set("q", city)
	values.Set("units", "metric")

	body, err := p.get(ctx, EndpointCurrent, values)
	if err != nil {
		return weather.RawObservation{}, err
	}

	var probe struct {
		Main    json.RawMessage `json:"main"`
		Weather json.RawMessage `json:"weather"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		return weather.RawObservation{}, p.fail(EndpointCurrent, 0, fmt.Errorf("decode response: %w", err))
	}
	if len(probe.Main) == 0 || len(probe.Weather) == 0 {
		return weather.RawObservation{}, p.fail(EndpointCurrent, 0,
			fmt.Errorf("missing expected keys in response for %s: 'weather' or 'main'", city))
	}

	var raw weather.RawObservation
	if err := json.Unmarshal(body, &raw); err != nil {
		return weather.RawObservation{}, p.fail(EndpointCurrent, 0, fmt.Errorf("decode response: %w", err))
	}
	return raw, nil
}

// FetchAirQuality returns the AQI (1-5) at the coordinates, nil when the
// provider reports no readings.
func (p *OpenWeatherProvider) FetchAirQuality(ctx context.Context, lat, lon float64) (*int, error) {
	values := url.Values{}
	values.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	values.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))

	body, err := p.get(ctx, EndpointAirQuality, values)
	if err != nil {
		return nil, err
	}

	var payload struct {
		List []struct {
			Main struct {
				AQI *int `json:"aqi"`
			} `json:"main"`
		} `json:"list"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, p.fail(EndpointAirQuality, 0, fmt.Errorf("decode response: %w", err))
	}
	if len(payload.List) == 0 {
		return nil, nil
	}
	return payload.List[0].Main.AQI, nil
}

// get performs an authenticated GET and returns the body of a 2xx response.
func (p *OpenWeatherProvider) get(ctx context.Context, endpoint string, values url.Values) ([]byte, error) {
	if p.apiKey == "" {
		return nil, p.fail(endpoint, 0, errors.New("openweather api key is not configured"))
	}
	values.Set("appid", p.apiKey)

	buildRequest := func() (*http.Request, error) {
		u := fmt.Sprintf("%s/%s?%s", p.baseURL, endpoint, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return nil, p.fail(endpoint, statusCode(err), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, p.fail(endpoint, resp.StatusCode, fmt.Errorf("read response body: %w", err))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, p.fail(endpoint, resp.StatusCode, fmt.Errorf("%w: %s", errUnexpected, snippet(body)))
	}

	p.metrics.ProviderRequest(endpoint, "ok")
	return body, nil
}

func (p *OpenWeatherProvider) fail(endpoint string, code int, err error) error {
	p.metrics.ProviderRequest(endpoint, "error")
	return &weather.FetchError{Source: endpoint, StatusCode: code, Err: err}
}

func snippet(body []byte) string {
	const max = 200
	s := strings.TrimSpace(string(body))
	if len(s) > max {
		s = s[:max] + "..."
	}
	return s
}

var _ weather.Provider = (*OpenWeatherProvider)(nil)
