package collector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"rain-checker/datasource"
	"rain-checker/forecast"
	"rain-checker/models"
)

// Clock supplies the reference instant for "tomorrow"
type Clock interface {
	Now() time.Time
}

// RealClock reads the host clock, optionally pinned to a location
type RealClock struct {
	Location *time.Location
}

// Now returns the current time in c.Location, or host local time
func (c RealClock) Now() time.Time {
	if c.Location != nil {
		return time.Now().In(c.Location)
	}
	return time.Now()
}

// Request is one rain check
type Request struct {
	Location string
	Units    models.Units
}

// RainChecker runs the geocode, forecast and current-conditions calls for a
// location and derives tomorrow's rain summary
type RainChecker struct {
	provider     datasource.Provider
	clock        Clock
	logger       *zap.Logger
	fetchTimeout time.Duration
}

// NewRainChecker creates a rain checker backed by provider
func NewRainChecker(provider datasource.Provider, clock Clock, logger *zap.Logger) *RainChecker {
	if clock == nil {
		clock = RealClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RainChecker{
		provider:     provider,
		clock:        clock,
		logger:       logger,
		fetchTimeout: 10 * time.Second, // Default timeout
	}
}

// SetFetchTimeout changes the timeout for each upstream request
func (c *RainChecker) SetFetchTimeout(timeout time.Duration) {
	c.fetchTimeout = timeout
}

// Check geocodes req.Location, then fetches forecast and current conditions
// concurrently and builds the report
func (c *RainChecker) Check(ctx context.Context, req Request) (models.RainReport, error) {
	if req.Units == "" {
		req.Units = models.UnitsMetric
	}

	c.logger.Info("geocoding", zap.String("location", req.Location))

	geoCtx, cancel := context.WithTimeout(ctx, c.fetchTimeout)
	loc, err := c.provider.Geocode(geoCtx, req.Location)
	cancel()
	if err != nil {
		return models.RainReport{}, err
	}

	c.logger.Info("found location",
		zap.String("name", loc.Name),
		zap.String("country", loc.Country),
		zap.Float64("lat", loc.Lat),
		zap.Float64("lon", loc.Lon),
	)

	var (
		wg          sync.WaitGroup
		fc          models.Forecast
		current     models.CurrentConditions
		forecastErr error
		currentErr  error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		fetchCtx, cancel := context.WithTimeout(ctx, c.fetchTimeout)
		defer cancel()
		fc, forecastErr = c.provider.FetchForecast(fetchCtx, loc, req.Units)
	}()
	go func() {
		defer wg.Done()
		fetchCtx, cancel := context.WithTimeout(ctx, c.fetchTimeout)
		defer cancel()
		current, currentErr = c.provider.FetchCurrent(fetchCtx, loc, req.Units)
	}()
	wg.Wait()

	if forecastErr != nil {
		return models.RainReport{}, fmt.Errorf("error fetching forecast from %s: %w", c.provider.Name(), forecastErr)
	}
	if currentErr != nil {
		return models.RainReport{}, fmt.Errorf("error fetching current weather from %s: %w", c.provider.Name(), currentErr)
	}

	now := c.clock.Now()
	current.Sunrise = current.Sunrise.In(now.Location())
	current.Sunset = current.Sunset.In(now.Location())

	report := models.RainReport{
		Location:       models.DisplayName(fc.City, loc),
		SearchLocation: req.Location,
		Coordinates:    loc,
		Summary:        forecast.Derive(fc.Samples, now),
		Current:        current,
		Units:          req.Units,
		Labels:         req.Units.Labels(),
	}

	c.logger.Info("fetched weather",
		zap.String("location", report.Location),
		zap.Bool("will_rain", report.Summary.WillRain),
		zap.Int("chance_of_rain", report.Summary.ChanceOfRain),
		zap.Int("samples", report.Summary.Considered),
	)

	return report, nil
}
