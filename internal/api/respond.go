package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/hashicorp/go-hclog"

	"github.com/fruitstand/fruitstand/pkg/resilience"
)

// writeJSON writes v as a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, log hclog.Logger, code int, v any, logArgs ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("error encoding response", append(logArgs, "error", err)...)
	}
}

// errorStatus maps a fruit service error to an HTTP status code.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, resilience.ErrCircuitOpen):
		return http.StatusServiceUnavailable
	case errors.Is(err, resilience.ErrTimeout),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
