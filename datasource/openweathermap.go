package datasource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"rain-checker/models"
)

const (
	DefaultGeoBaseURL  = "https://api.openweathermap.org/geo/1.0"
	DefaultDataBaseURL = "https://api.openweathermap.org/data/2.5"
	DefaultTimeout     = 10 * time.Second

	placeholderAPIKey = "your_api_key_here"
)

// OpenWeatherMapOptions configures an OpenWeatherMapProvider. Zero values
// fall back to the public endpoints and a 10 second client timeout.
type OpenWeatherMapOptions struct {
	APIKey      string
	GeoBaseURL  string
	DataBaseURL string
	HTTPClient  *http.Client
	Logger      *zap.Logger
}

// OpenWeatherMapProvider implements Provider against the OpenWeatherMap API
type OpenWeatherMapProvider struct {
	apiKey      string
	geoBaseURL  string
	dataBaseURL string
	httpClient  *http.Client
	logger      *zap.Logger
}

var _ Provider = (*OpenWeatherMapProvider)(nil)

// NewOpenWeatherMapProvider creates a new OpenWeatherMap provider
func NewOpenWeatherMapProvider(opts OpenWeatherMapOptions) *OpenWeatherMapProvider {
	p := &OpenWeatherMapProvider{
		apiKey:      opts.APIKey,
		geoBaseURL:  opts.GeoBaseURL,
		dataBaseURL: opts.DataBaseURL,
		httpClient:  opts.HTTPClient,
		logger:      opts.Logger,
	}
	if p.geoBaseURL == "" {
		p.geoBaseURL = DefaultGeoBaseURL
	}
	if p.dataBaseURL == "" {
		p.dataBaseURL = DefaultDataBaseURL
	}
	if p.httpClient == nil {
		p.httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	if p.logger == nil {
		p.logger = zap.NewNop()
	}
	return p
}

// Name returns the provider name
func (p *OpenWeatherMapProvider) Name() string {
	return "OpenWeatherMap"
}

// Configured reports whether a usable API key is set
func (p *OpenWeatherMapProvider) Configured() bool {
	return p.apiKey != "" && p.apiKey != placeholderAPIKey
}

// Geocode resolves query with the direct geocoding endpoint
func (p *OpenWeatherMapProvider) Geocode(ctx context.Context, query string) (models.GeoLocation, error) {
	params := url.Values{}
	params.Add("q", query)
	params.Add("limit", "1")

	var response []struct {
		Name    string  `json:"name"`
		Lat     float64 `json:"lat"`
		Lon     float64 `json:"lon"`
		Country string  `json:"country"`
		State   string  `json:"state"`
	}
	if err := p.get(ctx, p.geoBaseURL+"/direct", params, &response); err != nil {
		return models.GeoLocation{}, err
	}

	if len(response) == 0 {
		return models.GeoLocation{}, fmt.Errorf("geocoding %q: %w", query, ErrLocationNotFound)
	}

	match := response[0]
	return models.GeoLocation{
		Name:    match.Name,
		State:   match.State,
		Country: match.Country,
		Lat:     match.Lat,
		Lon:     match.Lon,
	}, nil
}

// FetchForecast fetches the 5 day / 3 hour forecast for a location
func (p *OpenWeatherMapProvider) FetchForecast(ctx context.Context, loc models.GeoLocation, units models.Units) (models.Forecast, error) {
	var response struct {
		City struct {
			Name    string `json:"name"`
			Country string `json:"country"`
		} `json:"city"`
		List []struct {
			Dt   int64 `json:"dt"`
			Main struct {
				Temp     float64 `json:"temp"`
				Humidity int     `json:"humidity"`
			} `json:"main"`
			Weather []struct {
				Description string `json:"description"`
				Icon        string `json:"icon"`
			} `json:"weather"`
			Wind struct {
				Speed float64 `json:"speed"`
			} `json:"wind"`
			Rain *struct {
				ThreeHour *float64 `json:"3h"`
			} `json:"rain"`
		} `json:"list"`
	}
	if err := p.get(ctx, p.dataBaseURL+"/forecast", coordParams(loc, units), &response); err != nil {
		return models.Forecast{}, err
	}

	forecast := models.Forecast{
		City:    response.City.Name,
		Samples: make([]models.ForecastSample, 0, len(response.List)),
	}

	for _, item := range response.List {
		sample := models.ForecastSample{
			Timestamp:   item.Dt,
			Temperature: item.Main.Temp,
			Humidity:    item.Main.Humidity,
			WindSpeed:   item.Wind.Speed,
		}
		if len(item.Weather) > 0 {
			sample.Description = item.Weather[0].Description
			sample.Icon = item.Weather[0].Icon
		}
		if item.Rain != nil {
			sample.RainVolume = item.Rain.ThreeHour
		}
		forecast.Samples = append(forecast.Samples, sample)
	}

	return forecast, nil
}

// FetchCurrent fetches current weather for a location
func (p *OpenWeatherMapProvider) FetchCurrent(ctx context.Context, loc models.GeoLocation, units models.Units) (models.CurrentConditions, error) {
	var response struct {
		Main struct {
			Temp      float64 `json:"temp"`
			FeelsLike float64 `json:"feels_like"`
			Humidity  int     `json:"humidity"`
			Pressure  int     `json:"pressure"`
		} `json:"main"`
		Wind struct {
			Speed float64 `json:"speed"`
			Deg   int     `json:"deg"`
		} `json:"wind"`
		Weather []struct {
			Description string `json:"description"`
			Icon        string `json:"icon"`
		} `json:"weather"`
		Visibility int `json:"visibility"`
		Sys        struct {
			Sunrise int64 `json:"sunrise"`
			Sunset  int64 `json:"sunset"`
		} `json:"sys"`
	}
	if err := p.get(ctx, p.dataBaseURL+"/weather", coordParams(loc, units), &response); err != nil {
		return models.CurrentConditions{}, err
	}

	current := models.CurrentConditions{
		Temperature:   response.Main.Temp,
		FeelsLike:     response.Main.FeelsLike,
		Humidity:      response.Main.Humidity,
		Pressure:      response.Main.Pressure,
		WindSpeed:     response.Wind.Speed,
		WindDirection: response.Wind.Deg,
		Visibility:    response.Visibility,
		Sunrise:       time.Unix(response.Sys.Sunrise, 0),
		Sunset:        time.Unix(response.Sys.Sunset, 0),
	}
	if len(response.Weather) > 0 {
		current.Description = response.Weather[0].Description
		current.Icon = response.Weather[0].Icon
	}

	return current, nil
}

// get performs an authenticated GET and decodes the JSON body into out
func (p *OpenWeatherMapProvider) get(ctx context.Context, endpoint string, params url.Values, out interface{}) error {
	if !p.Configured() {
		return ErrNotConfigured
	}

	// safeURL is what errors and logs see; the key only goes on the wire
	safeURL := endpoint + "?" + params.Encode()
	p.logger.Debug("OpenWeatherMap request", zap.String("url", safeURL))
	params.Set("appid", p.apiKey)

	// Create request
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	// Execute request
	resp, err := p.httpClient.Do(req)
	if err != nil {
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			urlErr.URL = safeURL
		}
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	// Read response body
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func coordParams(loc models.GeoLocation, units models.Units) url.Values {
	params := url.Values{}
	params.Add("lat", strconv.FormatFloat(loc.Lat, 'f', -1, 64))
	params.Add("lon", strconv.FormatFloat(loc.Lon, 'f', -1, 64))
	params.Add("units", string(units))
	return params
}
