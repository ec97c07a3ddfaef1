package providers

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/i474232898/weatheriq/internal/weather"
)

// RateLimitedProvider spaces out every outbound call of the wrapped provider
// by at least the configured interval.
type RateLimitedProvider struct {
	provider weather.Provider
	limiter  *rate.Limiter
	name     string
}

// NewRateLimitedProvider wraps provider so that calls are admitted at most
// once per interval. A non-positive interval disables throttling.
func NewRateLimitedProvider(provider weather.Provider, interval time.Duration) *RateLimitedProvider {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &RateLimitedProvider{
		provider: provider,
		limiter:  rate.NewLimiter(limit, 1),
		name:     fmt.Sprintf("%s [Rate Limited]", provider.Name()),
	}
}

func (r *RateLimitedProvider) Name() string {
	return r.name
}

func (r *RateLimitedProvider) FetchGroup(ctx context.Context, ids []int64) ([]weather.RawObservation, error) {
	if err := r.wait(ctx); err != nil {
		return nil, err
	}
	return r.provider.FetchGroup(ctx, ids)
}

func (r *RateLimitedProvider) FetchCurrent(ctx context.Context, city string) (weather.RawObservation, error) {
	if err := r.wait(ctx); err != nil {
		return weather.RawObservation{}, err
	}
	return r.provider.FetchCurrent(ctx, city)
}

func (r *RateLimitedProvider) FetchAirQuality(ctx context.Context, lat, lon float64) (*int, error) {
	if err := r.wait(ctx); err != nil {
		return nil, err
	}
	return r.provider.FetchAirQuality(ctx, lat, lon)
}

func (r *RateLimitedProvider) wait(ctx context.Context) error {
	if err := r.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait canceled: %w", err)
	}
	return nil
}

var _ weather.Provider = (*RateLimitedProvider)(nil)
