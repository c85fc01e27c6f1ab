package datasource

import (
	"context"

	"rain-checker/models"
)

// Geocoder resolves a free-text location into coordinates
type Geocoder interface {
	// Geocode returns the best match for query, or ErrLocationNotFound
	Geocode(ctx context.Context, query string) (models.GeoLocation, error)
}

// ForecastSource is an interface for services that can fetch 3-hour forecasts
type ForecastSource interface {
	// FetchForecast fetches the 5-day forecast for a location
	FetchForecast(ctx context.Context, loc models.GeoLocation, units models.Units) (models.Forecast, error)
}

// CurrentSource is an interface for services that can fetch current conditions
type CurrentSource interface {
	// FetchCurrent fetches the current weather for a location
	FetchCurrent(ctx context.Context, loc models.GeoLocation, units models.Units) (models.CurrentConditions, error)
}

// Provider is a weather service offering all three calls
type Provider interface {
	Geocoder
	ForecastSource
	CurrentSource

	// Name returns the provider's name
	Name() string
}

// configurable is implemented by providers that can tell up front whether
// their credentials are usable
type configurable interface {
	Configured() bool
}
