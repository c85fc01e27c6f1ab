package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"rain-checker/datasource"
)

const (
	msgGeneric     = "An error occurred while fetching weather data."
	msgUnavailable = "Weather service is currently unavailable. Please try again later."
	msgNetwork     = "Network error. Please check your internet connection and try again."
	msgAuth        = "Weather service authentication failed. Please contact support."
	msgTooMany     = "Too many requests. Please wait a few minutes and try again."
	msgUpstreamErr = "Weather service is temporarily unavailable. Please try again in a few minutes."
	msgTimeout     = "Request timeout. The weather service is taking too long to respond. Please try again."
)

// userMessage turns a rain check failure into text safe to show the user
func userMessage(err error, location string) string {
	var (
		apiErr *datasource.APIError
		dnsErr *net.DNSError
		netErr net.Error
	)

	switch {
	case errors.Is(err, datasource.ErrLocationNotFound):
		return fmt.Sprintf("Location \"%s\" not found. Please try a different city name.", location)
	case errors.Is(err, datasource.ErrNotConfigured):
		return msgUnavailable
	case errors.As(err, &dnsErr) && !dnsErr.IsTimeout:
		return msgNetwork
	case errors.As(err, &apiErr):
		return statusMessage(apiErr.StatusCode)
	case errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &netErr) && netErr.Timeout(),
		strings.Contains(err.Error(), "timeout"),
		strings.Contains(err.Error(), "deadline"):
		return msgTimeout
	default:
		return msgGeneric
	}
}

func statusMessage(code int) string {
	switch code {
	case http.StatusUnauthorized:
		return msgAuth
	case http.StatusNotFound:
		return msgUnavailable
	case http.StatusTooManyRequests:
		return msgTooMany
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return msgUpstreamErr
	default:
		return fmt.Sprintf("Weather service error: %d. Please try again.", code)
	}
}
