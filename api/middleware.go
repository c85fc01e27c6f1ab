package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const contentSecurityPolicy = "default-src 'self'; " +
	"style-src 'self' 'unsafe-inline' https://cdnjs.cloudflare.com/ajax/libs https://fonts.googleapis.com; " +
	"script-src 'self' 'unsafe-inline' https://cdn.jsdelivr.net; " +
	"font-src 'self' https://cdnjs.cloudflare.com/ajax/libs https://fonts.gstatic.com; " +
	"img-src 'self' data: https://openweathermap.org https:"

type ctxKey int

const requestIDKey ctxKey = iota

// RequestIDFromContext returns the id assigned by the requestID middleware
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// requestID tags every request with X-Request-ID, reusing a caller-supplied one
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

// statusRecorder captures the status code and body size for access logs
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (rec *statusRecorder) WriteHeader(code int) {
	if rec.status == 0 {
		rec.status = code
	}
	rec.ResponseWriter.WriteHeader(code)
}

func (rec *statusRecorder) Write(b []byte) (int, error) {
	if rec.status == 0 {
		rec.status = http.StatusOK
	}
	n, err := rec.ResponseWriter.Write(b)
	rec.bytes += n
	return n, err
}

// accessLog writes one line per request
func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}

		next.ServeHTTP(rec, r)

		if rec.status == 0 {
			rec.status = http.StatusOK
		}
		s.logger.Info("request",
			zap.String("request_id", RequestIDFromContext(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Int("bytes", rec.bytes),
			zap.Duration("duration", time.Since(start)),
			zap.String("remote", clientIP(r)),
			zap.String("user_agent", r.UserAgent()),
		)
	})
}

// recoverer turns a handler panic into the 500 error page
func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rv := recover()
			if rv == nil {
				return
			}
			if rv == http.ErrAbortHandler {
				panic(rv)
			}

			s.requestLogger(r).Error("unhandled error",
				zap.String("panic", fmt.Sprint(rv)),
				zap.Stack("stack"),
			)

			data := pageData{
				Title:   "Server Error",
				Message: "Something went wrong on our end. Please try again later.",
			}
			if s.development {
				data.Detail = fmt.Sprint(rv)
			}
			s.render(w, http.StatusInternalServerError, "error", data)
		}()
		next.ServeHTTP(w, r)
	})
}

// securityHeaders sets the standard hardening headers on every response
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Content-Security-Policy", contentSecurityPolicy)
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "SAMEORIGIN")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Cross-Origin-Opener-Policy", "same-origin")
		next.ServeHTTP(w, r)
	})
}

// cacheStatic lets browsers keep static assets for a day
func cacheStatic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=86400")
		next.ServeHTTP(w, r)
	})
}
