package serve

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/afero"

	"github.com/fruitstand/fruitstand/internal/api"
	"github.com/fruitstand/fruitstand/internal/cmd/base"
	"github.com/fruitstand/fruitstand/internal/config"
	"github.com/fruitstand/fruitstand/internal/db"
	"github.com/fruitstand/fruitstand/internal/server"
)

type Command struct {
	*base.Command

	// Fs is where the config file is read from. Nil means the OS filesystem.
	Fs afero.Fs

	flagAddr            string
	flagConfig          string
	flagSimulateDelay   bool
	flagSimulateFailure bool
}

func (c *Command) Synopsis() string {
	return "Run the fruitstand server"
}

func (c *Command) Help() string {
	return `Usage: fruitstand serve [options]

  Serve the fruit REST API, the health probes and Prometheus metrics.

  Without -config an auto-migrated SQLite database in ./fruitstand.db is
  used. The -simulate-* flags override the fruits block of the config.` +
		c.Flags().Help()
}

func (c *Command) Flags() *base.FlagSet {
	f := base.NewFlagSet(flag.NewFlagSet("serve", flag.ContinueOnError))

	f.StringVar(
		&c.flagAddr, "addr", "",
		"Address to bind to for serving, overrides the config.",
	)
	f.StringVar(
		&c.flagConfig, "config", "", "Path to the fruitstand `config` file.",
	)
	f.BoolVar(
		&c.flagSimulateDelay, "simulate-delay", false,
		"Delay every other request to list fruits.",
	)
	f.BoolVar(
		&c.flagSimulateFailure, "simulate-failure", false,
		"Fail every other request to list top voted fruits.",
	)

	return f
}

// loadConfig reads the config file, or returns the defaults when no file was
// given, and applies flag overrides.
func (c *Command) loadConfig(f *base.FlagSet) (*config.Config, error) {
	cfg := config.Default()
	if c.flagConfig != "" {
		fs := c.Fs
		if fs == nil {
			fs = afero.NewOsFs()
		}
		var err error
		if cfg, err = config.Load(fs, c.flagConfig); err != nil {
			return nil, err
		}
	}

	if c.flagAddr != "" {
		cfg.Server.Addr = c.flagAddr
	}
	if f.IsSet("simulate-delay") {
		cfg.Fruits.SimulateDelay = c.flagSimulateDelay
	}
	if f.IsSet("simulate-failure") {
		cfg.Fruits.SimulateFailure = c.flagSimulateFailure
	}
	return cfg, nil
}

func (c *Command) Run(args []string) int {
	ui := c.UI

	f := c.Flags()
	if err := f.Parse(args); err != nil {
		ui.Error(fmt.Sprintf("error parsing flags: %v", err))
		return 1
	}

	cfg, err := c.loadConfig(f)
	if err != nil {
		ui.Error(fmt.Sprintf("error parsing config file: %v", err))
		return 1
	}

	log := c.Log
	if log == nil {
		log = hclog.NewNullLogger()
	}
	log.SetLevel(cfg.LogLevelValue())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := db.NewDB(cfg, log.Named("db"))
	if err != nil {
		ui.Error(fmt.Sprintf("error initializing database: %v", err))
		return 1
	}

	srv, err := server.New(ctx, cfg, database, log)
	if err != nil {
		ui.Error(fmt.Sprintf("error initializing server: %v", err))
		return 1
	}

	httpSrv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           api.NewRouter(srv),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening",
			"addr", cfg.Server.Addr,
			"simulate_delay", cfg.Fruits.SimulateDelay,
			"simulate_failure", cfg.Fruits.SimulateFailure,
		)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			ui.Error(fmt.Sprintf("error starting listener: %v", err))
			return 1
		}
	case <-ctx.Done():
		log.Info("received interrupt, shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		ui.Error(fmt.Sprintf("error shutting down server: %v", err))
		return 1
	}

	if sqlDB, err := database.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Warn("error closing database", "error", err)
		}
	}

	log.Info("server stopped")
	return 0
}
