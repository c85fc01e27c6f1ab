package models

import (
	"strings"
	"time"
)

// GeoLocation is a geocoding match for a free-text query
type GeoLocation struct {
	Name    string  `json:"name"`
	State   string  `json:"state,omitempty"`
	Country string  `json:"country"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

// CurrentConditions represents the current weather at a location
type CurrentConditions struct {
	Temperature   float64   `json:"temperature"`
	FeelsLike     float64   `json:"feelsLike"`
	Description   string    `json:"description"`
	Icon          string    `json:"icon"`
	Humidity      int       `json:"humidity"`      // percentage
	Pressure      int       `json:"pressure"`      // in hPa
	WindSpeed     float64   `json:"windSpeed"`     // in the requested units
	WindDirection int       `json:"windDirection"` // degrees
	Visibility    int       `json:"visibility"`    // metres, as reported by the provider
	Sunrise       time.Time `json:"sunrise"`
	Sunset        time.Time `json:"sunset"`
}

// Units selects the measurement system sent to the provider
type Units string

const (
	UnitsMetric   Units = "metric"
	UnitsImperial Units = "imperial"
)

const metresPerMile = 1609.344

// ParseUnits maps a form value to Units, defaulting to metric
func ParseUnits(s string) Units {
	if strings.EqualFold(strings.TrimSpace(s), string(UnitsImperial)) {
		return UnitsImperial
	}
	return UnitsMetric
}

// UnitLabels holds the display suffixes for a measurement system
type UnitLabels struct {
	Precipitation string `json:"precipitation"`
	Temperature   string `json:"temperature"`
	Wind          string `json:"wind"`
	Visibility    string `json:"visibility"`
}

// Labels returns the display suffixes for u
func (u Units) Labels() UnitLabels {
	if u == UnitsImperial {
		return UnitLabels{Precipitation: "mm", Temperature: "°F", Wind: "mph", Visibility: "miles"}
	}
	return UnitLabels{Precipitation: "mm", Temperature: "°C", Wind: "m/s", Visibility: "km"}
}

// Distance converts a provider distance in metres to km or miles
func (u Units) Distance(metres int) float64 {
	if u == UnitsImperial {
		return float64(metres) / metresPerMile
	}
	return float64(metres) / 1000
}
