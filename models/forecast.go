package models

import (
	"time"
)

// ForecastSample represents one 3-hour forecast slot from the provider
type ForecastSample struct {
	Timestamp   int64    `json:"timestamp"`   // unix seconds, start of the slot
	RainVolume  *float64 `json:"rainVolume"`  // mm over the slot, nil when the provider omits it
	Description string   `json:"description"` // short text description
	Icon        string   `json:"icon"`        // provider icon code
	Temperature float64  `json:"temperature"` // in the requested units
	Humidity    int      `json:"humidity"`    // percentage
	WindSpeed   float64  `json:"windSpeed"`   // in the requested units
}

// Time returns the sample timestamp as a time.Time in the host location
func (s ForecastSample) Time() time.Time {
	return time.Unix(s.Timestamp, 0)
}

// Rain returns the rain volume, treating a missing value as zero
func (s ForecastSample) Rain() float64 {
	if s.RainVolume == nil {
		return 0
	}
	return *s.RainVolume
}

// Forecast is the parsed 5-day forecast for one location
type Forecast struct {
	City    string           `json:"city"`
	Samples []ForecastSample `json:"samples"`
}

// DayWindow is one calendar day, start inclusive and end exclusive
type DayWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls inside the window
func (w DayWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// RainDetail describes one considered sample that reports rain
type RainDetail struct {
	Time        time.Time `json:"time"`
	Rain        float64   `json:"rain"`
	Description string    `json:"description"`
	Icon        string    `json:"icon"`
	Temperature float64   `json:"temperature"`
	Humidity    int       `json:"humidity"`
	WindSpeed   float64   `json:"windSpeed"`
}

// RainSummary is the derived rain outlook for tomorrow
type RainSummary struct {
	WillRain     bool         `json:"willRain"`
	ChanceOfRain int          `json:"chanceOfRain"` // 0-100
	MaxRain      float64      `json:"maxRain"`
	TotalRain    float64      `json:"totalRain"`
	Details      []RainDetail `json:"details"`
	Window       DayWindow    `json:"window"`
	Considered   int          `json:"considered"`   // number of samples the summary is based on
	UsedFallback bool         `json:"usedFallback"` // true when no sample fell inside Window
}
