package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"

	"rain-checker/collector"
	"rain-checker/config"
	"rain-checker/datasource"
	"rain-checker/models"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Error loading .env file:", err)
	}

	location := flag.String("location", "", "City to check, e.g. \"Paris\" or \"London,UK\"")
	units := flag.String("units", "metric", "Units: metric or imperial")
	configFile := flag.String("config", "config.yaml", "Path to configuration file")
	flag.Parse()

	query := strings.TrimSpace(*location)
	if query == "" {
		fmt.Fprintln(os.Stderr, "usage: raincheck -location <city> [-units metric|imperial] [-config path]")
		os.Exit(2)
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if !cfg.APIKeyConfigured() {
		log.Fatal("No OpenWeatherMap API key provided; set OPENWEATHER_API_KEY")
	}
	loc, err := cfg.Location()
	if err != nil {
		log.Fatal(err)
	}

	provider := datasource.NewOpenWeatherMapProvider(datasource.OpenWeatherMapOptions{
		APIKey:      cfg.OpenWeather.APIKey,
		GeoBaseURL:  cfg.OpenWeather.GeoBaseURL,
		DataBaseURL: cfg.OpenWeather.DataBaseURL,
		HTTPClient:  &http.Client{Timeout: cfg.OpenWeather.Timeout},
	})
	checker := collector.NewRainChecker(provider, collector.RealClock{Location: loc}, nil)
	checker.SetFetchTimeout(cfg.OpenWeather.Timeout)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	report, err := checker.Check(ctx, collector.Request{Location: query, Units: models.ParseUnits(*units)})
	if err != nil {
		log.Fatalf("Rain check failed: %v", err)
	}
	printReport(report)
}

func printReport(report models.RainReport) {
	s := report.Summary

	fmt.Printf("=== Rain check for %s ===\n", report.Location)
	fmt.Printf("Tomorrow: %s\n", s.Window.Start.Format("Monday, January 2, 2006"))
	if s.UsedFallback {
		fmt.Println("(no forecast slots for tomorrow, using the next 24 hours)")
	}

	if s.WillRain {
		fmt.Println("Verdict:  YES, rain expected")
	} else {
		fmt.Println("Verdict:  NO, no rain expected")
	}
	fmt.Printf("Chance:   %d%% (%d of %d slots)\n", s.ChanceOfRain, len(s.Details), s.Considered)
	fmt.Printf("Max rain: %.1f %s\n", s.MaxRain, report.Labels.Precipitation)
	fmt.Printf("Total:    %.1f %s\n", s.TotalRain, report.Labels.Precipitation)

	if len(s.Details) > 0 {
		fmt.Println("\nRainy slots:")
		for _, d := range s.Details {
			fmt.Printf("  %s  %4.1f %s  %s\n", d.Time.Format("Mon 03:04 PM"), d.Rain, report.Labels.Precipitation, d.Description)
		}
	}
}
