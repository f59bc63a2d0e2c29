package api

import (
	"net/http"
	"time"

	"github.com/cloud-scan/controlcenter/internal/ctlerr"
	log "github.com/sirupsen/logrus"
)

// loggingMiddleware logs method/path/status/duration per request, the
// net/http translation of the deleted gRPC loggingInterceptor.
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		log.WithFields(log.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   sw.status,
			"duration": time.Since(start),
		}).Info("handled request")
	})
}

// recoveryMiddleware converts a panic into a ctlerr.Internal response
// instead of crashing the event loop's HTTP worker, the net/http
// translation of the deleted gRPC errorHandlingInterceptor.
func recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.WithField("panic", rec).WithField("path", r.URL.Path).Error("handler panicked")
				writeError(w, ctlerr.Internalf(nil, "internal error"))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// writeError maps a ctlerr.Kind to the HTTP status of
func writeError(w http.ResponseWriter, err error) {
	switch ctlerr.KindOf(err) {
	case ctlerr.InvalidRequest:
		http.Error(w, err.Error(), http.StatusBadRequest)
	case ctlerr.AccessDenied:
		http.Error(w, err.Error(), http.StatusForbidden)
	case ctlerr.Presentable:
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(err.Error()))
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
