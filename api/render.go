package api

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"math"
	"net/http"
	"time"

	"go.uber.org/zap"

	"rain-checker/models"
)

//go:embed templates/*.html static
var assets embed.FS

var templateFuncs = template.FuncMap{
	// clock formats a time as "03:04 PM"
	"clock": func(t time.Time) string { return t.Format("03:04 PM") },
	// shortDate formats a time as "Mon, Jan 2"
	"shortDate": func(t time.Time) string { return t.Format("Mon, Jan 2") },
	// longDate formats a time as "Monday, January 2, 2006"
	"longDate": func(t time.Time) string { return t.Format("Monday, January 2, 2006") },
	"round":    func(v float64) int { return int(math.Round(v)) },
	"fixed1":   func(v float64) string { return fmt.Sprintf("%.1f", v) },
	"distance": func(u models.Units, metres int) string { return fmt.Sprintf("%.1f", u.Distance(metres)) },
	"iconURL": func(code string) string {
		return "https://openweathermap.org/img/wn/" + code + "@2x.png"
	},
}

func parseTemplates() (*template.Template, error) {
	return template.New("").Funcs(templateFuncs).ParseFS(assets, "templates/*.html")
}

// render executes the named template into a buffer first so a template
// error never leaves a half-written page
func (s *Server) render(w http.ResponseWriter, status int, name string, data pageData) {
	data.CurrentYear = time.Now().Year()

	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		s.logger.Error("template render failed", zap.String("template", name), zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}
