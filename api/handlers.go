package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"rain-checker/collector"
	"rain-checker/models"
)

const (
	formTitle   = "Will It Rain Tomorrow?"
	resultTitle = "Rain Check Results"

	maxLocationLength = 100
)

// pageData is the template context shared by every page
type pageData struct {
	Title       string
	Error       string
	Result      *models.RainReport
	Location    string
	Units       models.Units
	Message     string
	Detail      string
	CurrentYear int
}

// handleIndex renders the search form
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, "index", pageData{Title: formTitle, Units: models.UnitsMetric})
}

// handleCheckWeather validates the form, runs the rain check and renders
// either the result or the form with an error message
func (s *Server) handleCheckWeather(w http.ResponseWriter, r *http.Request) {
	log := s.requestLogger(r)

	location := strings.TrimSpace(r.PostFormValue("location"))
	units := models.ParseUnits(r.PostFormValue("units"))
	form := pageData{Title: formTitle, Location: location, Units: units}

	if location == "" {
		form.Error = "Please enter a location"
		s.render(w, http.StatusOK, "index", form)
		return
	}
	if utf8.RuneCountInString(location) > maxLocationLength {
		form.Error = "Location name is too long. Please enter a valid city name."
		s.render(w, http.StatusOK, "index", form)
		return
	}

	report, err := s.checker.Check(r.Context(), collector.Request{Location: location, Units: units})
	if err != nil {
		log.Error("weather check failed", zap.String("location", location), zap.Error(err))
		form.Error = userMessage(err, location)
		s.render(w, http.StatusOK, "index", form)
		return
	}

	log.Info("successfully fetched weather", zap.String("location", report.Location))
	s.render(w, http.StatusOK, "result", pageData{Title: resultTitle, Result: &report, Units: units})
}

// handleHealthCheck provides a simple health check endpoint
func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   "weather-rain-checker",
	})
}

// handleNotFound renders the 404 page for unknown routes and methods
func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusNotFound, "error", pageData{
		Title:   "Page Not Found",
		Message: "The page you are looking for does not exist.",
	})
}

func (s *Server) requestLogger(r *http.Request) *zap.Logger {
	if id := RequestIDFromContext(r.Context()); id != "" {
		return s.logger.With(zap.String("request_id", id))
	}
	return s.logger
}
