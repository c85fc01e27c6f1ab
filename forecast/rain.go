// Package forecast derives a rain outlook from 3-hour forecast samples.
package forecast

import (
	"math"
	"time"

	"rain-checker/models"
)

// FallbackSamples is how many leading samples are used when none fall on
// tomorrow (8 slots of 3 hours cover the next 24 hours)
const FallbackSamples = 8

// TomorrowWindow returns the calendar day after now, in now's location
func TomorrowWindow(now time.Time) models.DayWindow {
	y, m, d := now.Date()
	loc := now.Location()
	return models.DayWindow{
		Start: time.Date(y, m, d+1, 0, 0, 0, 0, loc),
		End:   time.Date(y, m, d+2, 0, 0, 0, 0, loc),
	}
}

// SelectSamples returns the samples inside window, or the first
// FallbackSamples samples when none match. The bool reports the fallback.
func SelectSamples(samples []models.ForecastSample, window models.DayWindow) ([]models.ForecastSample, bool) {
	var selected []models.ForecastSample
	for _, s := range samples {
		if window.Contains(s.Time()) {
			selected = append(selected, s)
		}
	}
	if len(selected) > 0 {
		return selected, false
	}

	n := FallbackSamples
	if n > len(samples) {
		n = len(samples)
	}
	return samples[:n], true
}

// Derive builds the rain summary for the day after now. It never fails;
// callers validate the samples beforehand.
func Derive(samples []models.ForecastSample, now time.Time) models.RainSummary {
	window := TomorrowWindow(now)
	considered, fallback := SelectSamples(samples, window)

	summary := models.RainSummary{
		Details:      []models.RainDetail{},
		Window:       window,
		Considered:   len(considered),
		UsedFallback: fallback,
	}

	for _, s := range considered {
		volume := s.Rain()
		if volume <= 0 {
			continue
		}

		summary.WillRain = true
		summary.TotalRain += volume
		if volume > summary.MaxRain {
			summary.MaxRain = volume
		}
		summary.Details = append(summary.Details, models.RainDetail{
			Time:        s.Time().In(now.Location()),
			Rain:        volume,
			Description: s.Description,
			Icon:        s.Icon,
			Temperature: s.Temperature,
			Humidity:    s.Humidity,
			WindSpeed:   s.WindSpeed,
		})
	}

	if len(considered) > 0 {
		summary.ChanceOfRain = int(math.Round(100 * float64(len(summary.Details)) / float64(len(considered))))
	}

	return summary
}
