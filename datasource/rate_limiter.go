package datasource

import (
	"context"
	"fmt"

	"rain-checker/models"

	"golang.org/x/time/rate"
)

// RateLimitedProvider wraps a Provider so that every upstream call waits
// on a shared token bucket
type RateLimitedProvider struct {
	provider Provider
	limiter  *rate.Limiter
	name     string
}

var _ Provider = (*RateLimitedProvider)(nil)

// NewRateLimitedProvider creates a new rate limited provider
// rps is the maximum requests per second allowed (can be fractional for less than 1 request per second)
// burst is the maximum burst size allowed
func NewRateLimitedProvider(provider Provider, rps float64, burst int) *RateLimitedProvider {
	return &RateLimitedProvider{
		provider: provider,
		limiter:  rate.NewLimiter(rate.Limit(rps), burst),
		name:     fmt.Sprintf("%s [Rate Limited]", provider.Name()),
	}
}

func (r *RateLimitedProvider) wait(ctx context.Context) error {
	// an unusable key fails below anyway; don't spend a token on it
	if c, ok := r.provider.(configurable); ok && !c.Configured() {
		return ErrNotConfigured
	}
	if err := r.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait canceled: %w", err)
	}
	return nil
}

// Geocode implements Geocoder with rate limiting
func (r *RateLimitedProvider) Geocode(ctx context.Context, query string) (models.GeoLocation, error) {
	if err := r.wait(ctx); err != nil {
		return models.GeoLocation{}, err
	}
	return r.provider.Geocode(ctx, query)
}

// FetchForecast implements ForecastSource with rate limiting
func (r *RateLimitedProvider) FetchForecast(ctx context.Context, loc models.GeoLocation, units models.Units) (models.Forecast, error) {
	if err := r.wait(ctx); err != nil {
		return models.Forecast{}, err
	}
	return r.provider.FetchForecast(ctx, loc, units)
}

// FetchCurrent implements CurrentSource with rate limiting
func (r *RateLimitedProvider) FetchCurrent(ctx context.Context, loc models.GeoLocation, units models.Units) (models.CurrentConditions, error) {
	if err := r.wait(ctx); err != nil {
		return models.CurrentConditions{}, err
	}
	return r.provider.FetchCurrent(ctx, loc, units)
}

// Name returns the provider name
func (r *RateLimitedProvider) Name() string {
	return r.name
}
