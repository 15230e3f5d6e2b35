package fruits

import (
	"context"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/sony/gobreaker/v2"

	"github.com/fruitstand/fruitstand/pkg/models"
	"github.com/fruitstand/fruitstand/pkg/resilience"
)

// Pipeline names, also used as metric labels.
const (
	PipelineListAll  = "list_all"
	PipelineTopVoted = "top_voted"
)

// PolicyConfig configures the pipeline of one operation.
type PolicyConfig struct {
	Timeout    time.Duration
	MaxRetries uint64
	Breaker    *resilience.BreakerSettings
}

// ResilienceConfig holds the pipelines of both read operations.
type ResilienceConfig struct {
	ListAll  PolicyConfig
	TopVoted PolicyConfig
}

// DefaultResilienceConfig returns a 1s timeout, one retry and a circuit breaker
// for ListAll, and one retry and a circuit breaker for ListTopVoted (which
// always falls back).
func DefaultResilienceConfig() ResilienceConfig {
	breaker := resilience.DefaultBreakerSettings()
	topBreaker := breaker

	return ResilienceConfig{
		ListAll: PolicyConfig{
			Timeout:    time.Second,
			MaxRetries: 1,
			Breaker:    &breaker,
		},
		TopVoted: PolicyConfig{
			MaxRetries: 1,
			Breaker:    &topBreaker,
		},
	}
}

// Resilient exposes the Service read operations through their pipelines. A
// failed top-voted read is retried once before falling back, which means a
// simulated failure is always masked by the retry: the retry lands on the
// disarmed gate and returns real data.
type Resilient struct {
	svc      *Service
	listAll  *resilience.Pipeline[[]models.FruitView]
	topVoted *resilience.Pipeline[[]models.FruitView]
}

// NewResilient wraps svc in the pipelines described by cfg.
func NewResilient(svc *Service, cfg ResilienceConfig, logger hclog.Logger, hooks resilience.Hooks) *Resilient {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	r := &Resilient{svc: svc}

	r.listAll = resilience.New[[]models.FruitView](svc.ListAll, resilience.Options[[]models.FruitView]{
		Name:       PipelineListAll,
		Timeout:    cfg.ListAll.Timeout,
		MaxRetries: cfg.ListAll.MaxRetries,
		Breaker:    cfg.ListAll.Breaker,
		Logger:     logger,
		Hooks:      hooks,
	})

	r.topVoted = resilience.New[[]models.FruitView](svc.ListTopVoted, resilience.Options[[]models.FruitView]{
		Name:       PipelineTopVoted,
		Timeout:    cfg.TopVoted.Timeout,
		MaxRetries: cfg.TopVoted.MaxRetries,
		Breaker:    cfg.TopVoted.Breaker,
		Fallback: func(context.Context, error) ([]models.FruitView, error) {
			return svc.FallbackTopVoted(), nil
		},
		Logger: logger,
		Hooks:  hooks,
	})

	return r
}

// ListAll runs Service.ListAll through its pipeline.
func (r *Resilient) ListAll(ctx context.Context) ([]models.FruitView, error) {
	return r.listAll.Execute(ctx)
}

// ListTopVoted runs Service.ListTopVoted through its pipeline. Errors are
// replaced by the fallback list.
func (r *Resilient) ListTopVoted(ctx context.Context) ([]models.FruitView, error) {
	return r.topVoted.Execute(ctx)
}

// DeleteByID is not wrapped; it is forwarded to the service.
func (r *Resilient) DeleteByID(ctx context.Context, id int64) (int64, error) {
	return r.svc.DeleteByID(ctx, id)
}

// BreakerStatus is a snapshot of the breaker of one pipeline.
type BreakerStatus struct {
	Pipeline string
	State    gobreaker.State
	Counts   gobreaker.Counts
}

func (r *Resilient) pipelines() []*resilience.Pipeline[[]models.FruitView] {
	return []*resilience.Pipeline[[]models.FruitView]{r.listAll, r.topVoted}
}

// Breakers reports the breaker of every pipeline, list_all first.
func (r *Resilient) Breakers() []BreakerStatus {
	pipelines := r.pipelines()
	out := make([]BreakerStatus, 0, len(pipelines))
	for _, p := range pipelines {
		out = append(out, BreakerStatus{
			Pipeline: p.Name(),
			State:    p.BreakerState(),
			Counts:   p.BreakerCounts(),
		})
	}
	return out
}

// BreakerStates reports the breaker state of every pipeline.
func (r *Resilient) BreakerStates() map[string]gobreaker.State {
	states := make(map[string]gobreaker.State, 2)
	for _, p := range r.pipelines() {
		states[p.Name()] = p.BreakerState()
	}
	return states
}
