package api

import (
	"net/http"

	"github.com/fruitstand/fruitstand/internal/server"
)

// NewRouter returns the HTTP handler serving every fruitstand route.
func NewRouter(srv server.Server) http.Handler {
	mux := http.NewServeMux()

	handle := func(pattern string, h http.Handler) {
		mux.Handle(pattern, Instrument(srv, pattern, h))
	}

	handle("/fruits", FruitsHandler(srv))
	handle("/fruits/top-voted", TopVotedHandler(srv))
	handle("/fruits/{id}", FruitHandler(srv))

	handle("/health", HealthHandler(srv))
	handle("/health/live", LivenessHandler(srv))
	handle("/health/ready", ReadinessHandler(srv))

	mux.Handle("/metrics", srv.Metrics.Handler())

	return RequestID(mux)
}
