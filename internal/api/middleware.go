package api

import (
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// requestLogger assigns a request ID and logs method, path, status and
// duration for every request.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.New().String()
		start := time.Now()

		w.Header().Set("X-Request-ID", reqID)

		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)

		log.Printf("[REQ:%s] %s %s %d in %v", reqID, r.Method, r.URL.Path, rw.status, time.Since(start))
	})
}

// recoverer converts handler panics into the INTERNAL_SERVER_ERROR envelope.
func recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Printf("[REQ] panic serving %s %s: %v", r.Method, r.URL.Path, rec)
				renderError(w, internalError())
			}
		}()
		next.ServeHTTP(w, r)
	})
}
