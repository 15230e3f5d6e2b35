package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/fruitstand/fruitstand/internal/server"
	"github.com/fruitstand/fruitstand/pkg/auth"
)

// RequestIDHeader carries the request id in requests and responses.
const RequestIDHeader = "X-Request-ID"

// requireRole authenticates r and checks that the caller holds role. It
// returns r with the principal in its context. On failure it writes a 401 or
// 403 response and returns false.
func requireRole(srv server.Server, w http.ResponseWriter, r *http.Request, role string) (*http.Request, bool) {
	logArgs := []any{
		"path", r.URL.Path,
		"method", r.Method,
	}

	p, err := srv.Auth.Authenticate(r)
	if err != nil {
		if errors.Is(err, auth.ErrNoCredentials) {
			srv.Logger.Debug("request without credentials", logArgs...)
		} else {
			srv.Logger.Warn("authentication failed",
				append(logArgs, "error", err)...)
		}
		w.Header().Set("WWW-Authenticate", `Basic realm="fruitstand"`)
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return nil, false
	}

	if !p.HasRole(role) {
		srv.Logger.Warn("principal is missing required role",
			append(logArgs, "principal", p.Name, "role", role)...)
		http.Error(w, "Forbidden", http.StatusForbidden)
		return nil, false
	}

	return r.WithContext(auth.WithPrincipal(r.Context(), p)), true
}

// RequestID makes sure every request and response carries a request id.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
			r.Header.Set(RequestIDHeader, id)
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// Instrument records metrics and a debug log line for each request to route.
func Instrument(srv server.Server, route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		elapsed := time.Since(start)
		srv.Metrics.ObserveRequest(route, r.Method, rec.status, elapsed)
		srv.Logger.Debug("request",
			"path", r.URL.Path,
			"method", r.Method,
			"status", rec.status,
			"elapsed", elapsed,
			"request_id", r.Header.Get(RequestIDHeader),
		)
	})
}
