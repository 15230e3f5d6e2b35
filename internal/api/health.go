package api

import (
	"net/http"

	"github.com/fruitstand/fruitstand/internal/server"
	"github.com/fruitstand/fruitstand/pkg/health"
)

const (
	probeLive  = "live"
	probeReady = "ready"
)

func reportStatus(r health.Report) int {
	if r.State == health.StateUp {
		return http.StatusOK
	}
	return http.StatusServiceUnavailable
}

// LivenessHandler handles GET /health/live.
func LivenessHandler(srv server.Server) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		status := health.Liveness()
		srv.Metrics.ObserveProbe(probeLive, status)

		report := health.NewReport(status)
		writeJSON(w, srv.Logger, reportStatus(report), report)
	})
}

// ReadinessHandler handles GET /health/ready. It answers 503 while the fruit
// store cannot be queried.
func ReadinessHandler(srv server.Server) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		status := health.Readiness(r.Context(), srv.Store, srv.Config.ReadinessFruitID())
		srv.Metrics.ObserveProbe(probeReady, status)
		if !status.Up() {
			srv.Logger.Warn("readiness probe failed",
				"path", r.URL.Path,
				"data", status.Data,
			)
		}

		report := health.NewReport(status)
		writeJSON(w, srv.Logger, reportStatus(report), report)
	})
}

// HealthHandler handles GET /health with every probe and the circuit breaker
// of every fruit pipeline. An open breaker makes the report DOWN.
func HealthHandler(srv server.Server) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		live := health.Liveness()
		ready := health.Readiness(r.Context(), srv.Store, srv.Config.ReadinessFruitID())
		srv.Metrics.ObserveProbe(probeLive, live)
		srv.Metrics.ObserveProbe(probeReady, ready)

		checks := []health.Status{live, ready}
		for _, b := range srv.Fruits.Breakers() {
			checks = append(checks, health.CircuitBreaker(b.Pipeline, b.State, b.Counts))
		}

		report := health.NewReport(checks...)
		writeJSON(w, srv.Logger, reportStatus(report), report)
	})
}
