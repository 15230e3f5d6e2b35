package server

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-hclog"
	"gorm.io/gorm"

	"github.com/fruitstand/fruitstand/internal/config"
	"github.com/fruitstand/fruitstand/pkg/auth"
	"github.com/fruitstand/fruitstand/pkg/faults"
	"github.com/fruitstand/fruitstand/pkg/fruits"
	"github.com/fruitstand/fruitstand/pkg/metrics"
)

// Server contains the server configuration and the services shared by the
// HTTP handlers.
type Server struct {
	// Config is the config for the server.
	Config *config.Config

	// DB is the database for the server.
	DB *gorm.DB

	// Logger is the logger for the server.
	Logger hclog.Logger

	// Store is the fruit store. The readiness probe queries it directly.
	Store fruits.Store

	// Fruits serves fruit requests through the resilience pipelines.
	Fruits *fruits.Resilient

	// Metrics holds the Prometheus collectors.
	Metrics *metrics.Metrics

	// Auth authenticates callers of protected routes.
	Auth auth.Authenticator
}

// New wires the fruit store, fault simulator, service, pipelines, metrics and
// authenticators described by cfg on top of db.
func New(ctx context.Context, cfg *config.Config, db *gorm.DB, logger hclog.Logger) (Server, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	m := metrics.New()

	store := fruits.NewGormStore(db, cfg.Fruits.TopVotedLimit)
	sim := faults.New(cfg.FaultConfig(), logger.Named("faults"),
		faults.WithTriggerHook(m.FaultHook()))
	if fc := sim.Config(); fc.SimulateDelay || fc.SimulateFailure {
		logger.Warn("fault simulation enabled",
			"simulate_delay", fc.SimulateDelay,
			"simulate_failure", fc.SimulateFailure,
			"delay", fc.Delay,
		)
	}
	svc := fruits.NewService(store, sim, logger.Named("fruits"))
	resilient := fruits.NewResilient(svc, cfg.ResilienceConfig(),
		logger.Named("resilience"), m.ResilienceHooks())

	for name, state := range resilient.BreakerStates() {
		m.SetBreakerState(name, state)
	}

	authn, err := NewAuthenticator(ctx, cfg)
	if err != nil {
		return Server{}, err
	}

	return Server{
		Config:  cfg,
		DB:      db,
		Logger:  logger,
		Store:   store,
		Fruits:  resilient,
		Metrics: m,
		Auth:    authn,
	}, nil
}

// NewAuthenticator builds the authenticator chain for cfg: basic users first,
// then HMAC JWTs, then OIDC tokens.
func NewAuthenticator(ctx context.Context, cfg *config.Config) (auth.Authenticator, error) {
	chain := auth.Chain{auth.NewBasicAuthenticator(cfg.BasicUsers())}

	if j := cfg.Auth.JWT; j != nil {
		chain = append(chain, auth.NewJWTAuthenticator([]byte(j.HMACSecret), j.Issuer))
	}

	if o := cfg.Auth.OIDC; o != nil {
		oa, err := auth.NewOIDCAuthenticator(ctx, o.IssuerURL, o.ClientID)
		if err != nil {
			return nil, fmt.Errorf("error configuring OIDC: %w", err)
		}
		chain = append(chain, oa)
	}

	return chain, nil
}
