package server

import (
	"net/http"
	"time"

	"tenant-integrity-service/services"

	"github.com/google/uuid"
)

// requestIDMiddleware makes sure every request carries an id, so apply
// runs triggered over HTTP correlate with their audit records
func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
			r.Header.Set("X-Request-ID", requestID)
		}
		w.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Wrap the response writer to capture the status code
		wrapper := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapper, r)

		s.logger.Info("HTTP request",
			services.String("method", r.Method),
			services.String("path", r.URL.Path),
			services.String("request_id", r.Header.Get("X-Request-ID")),
			services.Int("status_code", wrapper.statusCode),
			services.Duration("duration", time.Since(start)),
			services.String("remote_addr", r.RemoteAddr),
		)
	})
}

// contentTypeMiddleware sets default content type
func (s *Server) contentTypeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") == "" && (r.Method == "POST" || r.Method == "PUT") {
			r.Header.Set("Content-Type", "application/json")
		}
		next.ServeHTTP(w, r)
	})
}

// metricsMiddleware tracks request counts and latency
func (s *Server) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapper := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapper, r)

		duration := time.Since(start)
		tags := map[string]string{
			"method":   r.Method,
			"endpoint": r.URL.Path,
			"status":   http.StatusText(wrapper.statusCode),
		}

		s.metrics.RecordDuration("http.request.duration", duration, tags)
		s.metrics.IncrementCounter("http.requests.total", tags)

		if wrapper.statusCode >= 400 {
			s.metrics.IncrementCounter("http.requests.errors", tags)
		}
		if duration > time.Second {
			s.metrics.IncrementCounter("http.requests.slow", tags)
		}
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
