// Package health implements the liveness and readiness probes polled by the
// hosting platform, and the circuit breaker checks listed by /health.
package health

import (
	"context"
	"strconv"

	"github.com/sony/gobreaker/v2"

	"github.com/fruitstand/fruitstand/pkg/models"
)

// State is the state reported by a probe.
type State string

const (
	StateUp   State = "UP"
	StateDown State = "DOWN"
)

// Probe names.
const (
	LivenessName = "application is alive"
	ReadyName    = "application is ready"
	NotReadyName = "application is not ready"
)

// BreakerNamePrefix prefixes the name of a circuit breaker check.
const BreakerNamePrefix = "circuit breaker "

// DefaultProbeID is the seeded fruit looked up by the readiness probe.
const DefaultProbeID uint = 1

const errorDataKey = "error"

// Status is the outcome of a single probe.
type Status struct {
	Name  string            `json:"name"`
	State State             `json:"status"`
	Data  map[string]string `json:"data,omitempty"`
}

// Up reports whether the probe succeeded.
func (s Status) Up() bool {
	return s.State == StateUp
}

// Report aggregates several probes. It is DOWN when any probe is DOWN.
type Report struct {
	State  State    `json:"status"`
	Checks []Status `json:"checks"`
}

// NewReport aggregates statuses into a Report.
func NewReport(statuses ...Status) Report {
	r := Report{State: StateUp, Checks: make([]Status, 0, len(statuses))}
	for _, s := range statuses {
		if !s.Up() {
			r.State = StateDown
		}
		r.Checks = append(r.Checks, s)
	}
	return r
}

// FruitFinder looks a fruit up by id. A missing fruit is not an error.
type FruitFinder interface {
	FindByID(ctx context.Context, id uint) (*models.Fruit, error)
}

// Liveness always reports UP; it checks no dependency.
func Liveness() Status {
	return Status{Name: LivenessName, State: StateUp}
}

// Readiness performs one lookup of id and reports UP when the store answers,
// whether or not the fruit exists. The error message is kept in the DOWN
// status. There is no retry.
func Readiness(ctx context.Context, store FruitFinder, id uint) Status {
	if _, err := store.FindByID(ctx, id); err != nil {
		return Status{
			Name:  NotReadyName,
			State: StateDown,
			Data:  map[string]string{errorDataKey: err.Error()},
		}
	}
	return Status{Name: ReadyName, State: StateUp}
}

// CircuitBreaker reports the breaker of the named pipeline. It is DOWN while
// the breaker is open. Data holds the counters of the current generation,
// which gobreaker resets on every state change.
func CircuitBreaker(pipeline string, state gobreaker.State, counts gobreaker.Counts) Status {
	s := Status{
		Name:  BreakerNamePrefix + pipeline,
		State: StateUp,
		Data: map[string]string{
			"state":                 state.String(),
			"requests":              formatCount(counts.Requests),
			"total_successes":       formatCount(counts.TotalSuccesses),
			"total_failures":        formatCount(counts.TotalFailures),
			"consecutive_failures":  formatCount(counts.ConsecutiveFailures),
			"consecutive_successes": formatCount(counts.ConsecutiveSuccesses),
		},
	}
	if state == gobreaker.StateOpen {
		s.State = StateDown
	}
	return s
}

func formatCount(n uint32) string {
	return strconv.FormatUint(uint64(n), 10)
}
