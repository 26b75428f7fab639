// Package server contains the operational HTTP router of the social feed process.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/tomasen/realip"

	"github.com/Decentr-net/go-api/health"
)

var log = logrus.WithField("layer", "server")

// SetupRouter setups health and metrics handlers to chi router.
func SetupRouter(r chi.Router, timeout time.Duration, p ...health.Pinger) {
	r.Use(
		middleware.StripSlashes,
		middleware.Recoverer,
		loggerMiddleware,
	)

	r.Get("/health", health.Handler(timeout, p...))
	r.Handle("/metrics", promhttp.Handler())
}

func loggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		l := log.WithFields(logrus.Fields{
			"ip":       realip.FromRequest(r),
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   status,
			"bytes":    ww.BytesWritten(),
			"duration": time.Since(start),
		})

		if status >= http.StatusInternalServerError {
			l.Warn("request failed")
			return
		}

		l.Debug("request served")
	})
}
