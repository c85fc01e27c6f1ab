package api

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"html/template"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"rain-checker/collector"
	"rain-checker/datasource"
	"rain-checker/models"
)

// fakeChecker records requests and answers with a canned report or error
type fakeChecker struct {
	mutex     sync.Mutex
	report    models.RainReport
	err       error
	panicWith interface{}
	requests  []collector.Request
}

func (f *fakeChecker) Check(ctx context.Context, req collector.Request) (models.RainReport, error) {
	f.mutex.Lock()
	f.requests = append(f.requests, req)
	f.mutex.Unlock()
	if f.panicWith != nil {
		panic(f.panicWith)
	}
	return f.report, f.err
}

func (f *fakeChecker) calls() int {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return len(f.requests)
}

func sampleReport() models.RainReport {
	zone := time.FixedZone("CET", 60*60)
	start := time.Date(2024, time.October, 3, 0, 0, 0, 0, zone)
	return models.RainReport{
		Location:       "Paris, FR",
		SearchLocation: "Paris",
		Coordinates:    models.GeoLocation{Name: "Paris", Country: "FR", Lat: 48.8566, Lon: 2.3522},
		Summary: models.RainSummary{
			WillRain:     true,
			ChanceOfRain: 67,
			MaxRain:      2.0,
			TotalRain:    3.5,
			Window:       models.DayWindow{Start: start, End: start.AddDate(0, 0, 1)},
			Considered:   3,
			Details: []models.RainDetail{
				{Time: start, Rain: 2.0, Description: "moderate rain", Icon: "10n", Temperature: 11.6, Humidity: 90, WindSpeed: 4.2},
				{Time: start.Add(6 * time.Hour), Rain: 1.5, Description: "light rain", Icon: "10d", Temperature: 12.1, Humidity: 85, WindSpeed: 3.9},
			},
		},
		Current: models.CurrentConditions{
			Temperature: 14.2, FeelsLike: 13.8, Description: "broken clouds", Icon: "04d",
			Humidity: 72, Pressure: 1012, WindSpeed: 3.1, WindDirection: 200, Visibility: 10000,
			Sunrise: start.Add(-16 * time.Hour), Sunset: start.Add(-5 * time.Hour),
		},
		Units:  models.UnitsMetric,
		Labels: models.UnitsMetric.Labels(),
	}
}

func newTestServer(t *testing.T, checker RainChecker, opts Options) http.Handler {
	t.Helper()
	s, err := NewServer(checker, opts)
	require.NoError(t, err)
	return s.Handler()
}

func postForm(h http.Handler, values url.Values, mutate ...func(*http.Request)) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/check-weather", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, m := range mutate {
		m(req)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func get(h http.Handler, path string, mutate ...func(*http.Request)) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, m := range mutate {
		m(req)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestServer_Index(t *testing.T) {
	h := newTestServer(t, &fakeChecker{}, Options{})

	rec := get(h, "/")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	assert.Contains(t, body, "<title>Will It Rain Tomorrow?</title>")
	assert.Contains(t, body, `action="/check-weather"`)
	assert.Contains(t, body, time.Now().Format("2006"))
}

func TestServer_CheckWeatherValidation(t *testing.T) {
	checker := &fakeChecker{}
	h := newTestServer(t, checker, Options{})

	tests := []struct {
		name     string
		location string
		message  string
	}{
		{"empty", "", "Please enter a location"},
		{"whitespace", "   \t ", "Please enter a location"},
		{"too long", strings.Repeat("a", 101), "Location name is too long. Please enter a valid city name."},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			rec := postForm(h, url.Values{"location": {test.location}})

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Contains(t, rec.Body.String(), test.message)
		})
	}
	assert.Zero(t, checker.calls())
}

func TestServer_CheckWeatherSuccess(t *testing.T) {
	checker := &fakeChecker{report: sampleReport()}
	h := newTestServer(t, checker, Options{})

	rec := postForm(h, url.Values{"location": {"  Paris  "}, "units": {"imperial"}})

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "<title>Rain Check Results</title>")
	assert.Contains(t, body, "Paris, FR")
	assert.Contains(t, body, "Thursday, October 3, 2024")
	assert.Contains(t, body, "<strong>67%</strong>")
	assert.Contains(t, body, "2.0 mm")
	assert.Contains(t, body, "3.5 mm")
	assert.Contains(t, body, "12:00 AM")
	assert.Contains(t, body, "06:00 AM")
	assert.Contains(t, body, "moderate rain")
	assert.Contains(t, body, "https://openweathermap.org/img/wn/10n@2x.png")
	assert.Contains(t, body, "10.0 km")

	require.Equal(t, 1, checker.calls())
	assert.Equal(t, collector.Request{Location: "Paris", Units: models.UnitsImperial}, checker.requests[0])
}

func TestServer_CheckWeatherDry(t *testing.T) {
	report := sampleReport()
	report.Summary = models.RainSummary{Considered: 8, UsedFallback: true, Details: []models.RainDetail{}}
	h := newTestServer(t, &fakeChecker{report: report}, Options{})

	rec := postForm(h, url.Values{"location": {"Paris"}})

	body := rec.Body.String()
	assert.Contains(t, body, "No rain expected tomorrow.")
	assert.Contains(t, body, "<strong>0%</strong>")
	assert.Contains(t, body, "covering the next 24 hours")
	assert.NotContains(t, body, "Rainy periods")
}

func TestServer_CheckWeatherFailure(t *testing.T) {
	checker := &fakeChecker{err: &datasource.APIError{StatusCode: http.StatusTooManyRequests}}
	h := newTestServer(t, checker, Options{})

	rec := postForm(h, url.Values{"location": {"Paris"}})

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Too many requests. Please wait a few minutes and try again.")
	assert.Contains(t, body, `value="Paris"`)
}

func TestServer_LocationNotFound(t *testing.T) {
	checker := &fakeChecker{err: datasource.ErrLocationNotFound}
	h := newTestServer(t, checker, Options{})

	rec := postForm(h, url.Values{"location": {"Atlantis"}})

	want := template.HTMLEscapeString(`Location "Atlantis" not found. Please try a different city name.`)
	assert.Contains(t, rec.Body.String(), want)
}

func TestServer_NotFound(t *testing.T) {
	h := newTestServer(t, &fakeChecker{}, Options{})

	for _, path := range []string{"/nope", "/check-weather"} {
		rec := get(h, path)
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
		assert.Contains(t, rec.Body.String(), "Page Not Found")
		assert.Contains(t, rec.Body.String(), "The page you are looking for does not exist.")
	}
}

func TestServer_Health(t *testing.T) {
	h := newTestServer(t, &fakeChecker{}, Options{})

	rec := get(h, "/health")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "weather-rain-checker", body["service"])
	_, err := time.Parse(time.RFC3339, body["timestamp"])
	assert.NoError(t, err)
}

func TestServer_StaticAssets(t *testing.T) {
	h := newTestServer(t, &fakeChecker{}, Options{})

	rec := get(h, "/static/css/style.css")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "public, max-age=86400", rec.Header().Get("Cache-Control"))
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/css")

	rec = get(h, "/static/js/script.js")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Please enter a location")
}

func TestServer_SecurityHeadersAndRequestID(t *testing.T) {
	h := newTestServer(t, &fakeChecker{}, Options{})

	rec := get(h, "/")
	assert.Contains(t, rec.Header().Get("Content-Security-Policy"), "default-src 'self'")
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "SAMEORIGIN", rec.Header().Get("X-Frame-Options"))
	assert.Len(t, rec.Header().Get("X-Request-ID"), 36)

	rec = get(h, "/", func(r *http.Request) { r.Header.Set("X-Request-ID", "abc-123") })
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
}

func TestServer_Gzip(t *testing.T) {
	h := newTestServer(t, &fakeChecker{}, Options{})

	rec := get(h, "/", func(r *http.Request) { r.Header.Set("Accept-Encoding", "gzip, deflate") })

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "gzip", rec.Header().Get("Content-Encoding"))
	assert.Contains(t, rec.Header().Values("Vary"), "Accept-Encoding")

	zr, err := gzip.NewReader(rec.Body)
	require.NoError(t, err)
	plain, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Contains(t, string(plain), "Will It Rain Tomorrow?")
}

func TestServer_RateLimit(t *testing.T) {
	checker := &fakeChecker{report: sampleReport()}
	h := newTestServer(t, checker, Options{RateLimitMax: 2, RateLimitWindow: time.Hour})
	form := url.Values{"location": {"Paris"}}

	for i := 0; i < 2; i++ {
		rec := postForm(h, form)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "2", rec.Header().Get("RateLimit-Limit"))
	}

	rec := postForm(h, form)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("RateLimit-Remaining"))
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "Too many requests from this IP")
	assert.Equal(t, 2, checker.calls())

	other := postForm(h, form, func(r *http.Request) { r.RemoteAddr = "198.51.100.7:5555" })
	assert.Equal(t, http.StatusOK, other.Code)

	// the form page is not limited
	assert.Equal(t, http.StatusOK, get(h, "/").Code)
}

func TestServer_RecoversFromPanic(t *testing.T) {
	checker := &fakeChecker{panicWith: "template exploded"}

	rec := postForm(newTestServer(t, checker, Options{}), url.Values{"location": {"Paris"}})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Server Error")
	assert.NotContains(t, rec.Body.String(), "template exploded")

	rec = postForm(newTestServer(t, checker, Options{Development: true}), url.Values{"location": {"Paris"}})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "template exploded")
}

func TestServer_PanicIsLoggedAndCompressed(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	checker := &fakeChecker{panicWith: "template exploded"}
	h := newTestServer(t, checker, Options{Logger: zap.New(core)})

	rec := postForm(h, url.Values{"location": {"Paris"}}, func(r *http.Request) {
		r.Header.Set("Accept-Encoding", "gzip")
	})

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "gzip", rec.Header().Get("Content-Encoding"))
	zr, err := gzip.NewReader(rec.Body)
	require.NoError(t, err)
	plain, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Contains(t, string(plain), "Server Error")

	requests := logs.FilterMessage("request").All()
	require.Len(t, requests, 1)
	fields := requests[0].ContextMap()
	assert.EqualValues(t, http.StatusInternalServerError, fields["status"])
	assert.Equal(t, "/check-weather", fields["path"])
	assert.NotEmpty(t, fields["request_id"])

	assert.Len(t, logs.FilterMessage("unhandled error").All(), 1)
}

func TestServer_RateLimitKeysOnForwardedClient(t *testing.T) {
	form := url.Values{"location": {"Paris"}}
	from := func(ip string) func(*http.Request) {
		return func(r *http.Request) { r.Header.Set("X-Forwarded-For", ip+", 10.0.0.1") }
	}

	h := newTestServer(t, &fakeChecker{report: sampleReport()}, Options{RateLimitMax: 1, RateLimitWindow: time.Hour, TrustProxy: true})
	assert.Equal(t, http.StatusOK, postForm(h, form, from("203.0.113.1")).Code)
	assert.Equal(t, http.StatusOK, postForm(h, form, from("203.0.113.2")).Code)
	assert.Equal(t, http.StatusTooManyRequests, postForm(h, form, from("203.0.113.1")).Code)

	// without a trusted proxy the header is ignored and every request shares RemoteAddr
	h = newTestServer(t, &fakeChecker{report: sampleReport()}, Options{RateLimitMax: 1, RateLimitWindow: time.Hour})
	assert.Equal(t, http.StatusOK, postForm(h, form, from("203.0.113.1")).Code)
	assert.Equal(t, http.StatusTooManyRequests, postForm(h, form, from("203.0.113.2")).Code)
}
