package faults

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-hclog"
)

// DefaultDelay is how long MaybeDelay blocks when its gate fires.
const DefaultDelay = 1000 * time.Millisecond

// ErrSimulatedFailure is returned by MaybeFail every other call when failure
// simulation is enabled.
var ErrSimulatedFailure = errors.New("simulated failure")

// Kind identifies one of the simulator gates.
type Kind string

const (
	KindDelay   Kind = "delay"
	KindFailure Kind = "failure"
)

// Config holds the simulation toggles. It is read once at construction.
type Config struct {
	// SimulateDelay enables the latency gate.
	SimulateDelay bool

	// SimulateFailure enables the failure gate.
	SimulateFailure bool

	// Delay is how long the latency gate blocks (default: 1s).
	Delay time.Duration
}

// Simulator holds two independent alternating gates, one producing latency and
// one producing failures. When a gate is enabled its armed flag flips on every
// check, so the 2nd, 4th, 6th... check fires.
//
// The check and the flip are two separate steps. Concurrent callers of the same
// gate can both see it unarmed; the simulator makes no guarantee about the
// sequence observed under concurrency.
type Simulator struct {
	cfg    Config
	logger hclog.Logger
	sleep  func(time.Duration)
	onFire func(Kind)

	delayArmed   atomic.Bool
	failureArmed atomic.Bool
}

// Option configures a Simulator.
type Option func(*Simulator)

// WithTriggerHook registers fn to be called every time a gate fires.
func WithTriggerHook(fn func(Kind)) Option {
	return func(s *Simulator) {
		s.onFire = fn
	}
}

// WithSleep replaces time.Sleep for the latency gate.
func WithSleep(fn func(time.Duration)) Option {
	return func(s *Simulator) {
		s.sleep = fn
	}
}

// New returns a Simulator with both gates unarmed.
func New(cfg Config, logger hclog.Logger, opts ...Option) *Simulator {
	if cfg.Delay <= 0 {
		cfg.Delay = DefaultDelay
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	s := &Simulator{
		cfg:    cfg,
		logger: logger,
		sleep:  time.Sleep,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Config returns the effective configuration, defaults applied.
func (s *Simulator) Config() Config {
	return s.cfg
}

// MaybeDelay blocks the caller for the configured delay every other call when
// delay simulation is enabled. It never blocks on odd-numbered calls.
func (s *Simulator) MaybeDelay() {
	if !s.cfg.SimulateDelay {
		return
	}

	if !s.delayArmed.Load() {
		s.delayArmed.Store(true)
		return
	}
	s.delayArmed.Store(false)

	s.logger.Error("simulating delay", "delay", s.cfg.Delay)
	s.fire(KindDelay)
	s.sleep(s.cfg.Delay)
}

// MaybeFail returns ErrSimulatedFailure every other call when failure
// simulation is enabled, and nil otherwise.
func (s *Simulator) MaybeFail() error {
	if !s.cfg.SimulateFailure {
		return nil
	}

	if !s.failureArmed.Load() {
		s.failureArmed.Store(true)
		return nil
	}
	s.failureArmed.Store(false)

	s.logger.Error("simulating failure")
	s.fire(KindFailure)
	return ErrSimulatedFailure
}

func (s *Simulator) fire(k Kind) {
	if s.onFire != nil {
		s.onFire(k)
	}
}
